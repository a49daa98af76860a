// Package redisclient is the thin capability layer over a Redis Cluster
// used by the task pipeline: topology snapshots, a per-node connection
// cache, and the handful of CLUSTER/MIGRATE primitives the resharding
// engine needs. Retry policy is deliberately not here — it belongs to
// callers (internal/pipeline, internal/reshard).
package redisclient

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Client is the ClusterClient adapter: a capability surface over go-redis
// exposing exactly the operations the task pipeline and resharding engine
// use, with a per-address connection cache.
type Client struct {
	seedAddr    string
	defaultPort int
	password    string
	dialTimeout time.Duration

	mu    sync.RWMutex
	conns map[string]*redis.Client
}

// New builds a ClusterClient seeded from a single known cluster member.
func New(seedAddr string, defaultPort int, password string) *Client {
	return &Client{
		seedAddr:    seedAddr,
		defaultPort: defaultPort,
		password:    password,
		dialTimeout: 5 * time.Second,
		conns:       make(map[string]*redis.Client),
	}
}

// ConnectionForAddr returns the cached connection for addr, dialing one if
// necessary. The call is idempotent: repeated calls with the same address
// return the same pooled client.
func (c *Client) ConnectionForAddr(addr string) (*redis.Client, error) {
	c.mu.RLock()
	if conn, ok := c.conns[addr]; ok {
		c.mu.RUnlock()
		return conn, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if conn, ok := c.conns[addr]; ok {
		return conn, nil
	}
	conn := redis.NewClient(&redis.Options{
		Addr:        addr,
		Password:    c.password,
		DialTimeout: c.dialTimeout,
	})
	c.conns[addr] = conn
	return conn, nil
}

// ConnectionForNode resolves nodeID against topology and returns its
// connection.
func (c *Client) ConnectionForNode(nodeID string, topology []NodeInfo) (*redis.Client, error) {
	node, ok := ByID(topology, nodeID)
	if !ok {
		return nil, fmt.Errorf("redisclient: node-id %s not present in topology", nodeID)
	}
	return c.ConnectionForAddr(node.Addr)
}

// DropConnection evicts and closes a cached connection, e.g. after a
// CLUSTERDOWN error forces the caller to reacquire it.
func (c *Client) DropConnection(addr string) {
	c.mu.Lock()
	conn, ok := c.conns[addr]
	delete(c.conns, addr)
	c.mu.Unlock()
	if ok {
		_ = conn.Close()
	}
}

func (c *Client) anyConn() (*redis.Client, string, error) {
	c.mu.RLock()
	for addr, conn := range c.conns {
		c.mu.RUnlock()
		return conn, addr, nil
	}
	c.mu.RUnlock()
	conn, err := c.ConnectionForAddr(c.seedAddr)
	if err != nil {
		return nil, c.seedAddr, err
	}
	return conn, c.seedAddr, nil
}

// Topology fetches the current cluster view from whichever connection is
// already open, falling back to the seed.
func (c *Client) Topology(ctx context.Context) ([]NodeInfo, error) {
	conn, addr, err := c.anyConn()
	if err != nil {
		return nil, wrapErr(addr, "topology", err)
	}
	out, err := conn.ClusterNodes(ctx).Result()
	if err != nil {
		return nil, wrapErr(addr, "CLUSTER NODES", err)
	}
	nodes, err := parseClusterNodes(out)
	if err != nil {
		return nil, wrapErr(addr, "parse CLUSTER NODES", err)
	}
	return nodes, nil
}

// Canonicalize rewrites uri to the form the current topology reports.
func (c *Client) Canonicalize(ctx context.Context, uri string) (string, error) {
	topology, err := c.Topology(ctx)
	if err != nil {
		return "", err
	}
	return Canonicalize(topology, uri, c.defaultPort)
}

// Meet issues CLUSTER MEET from fromAddr toward targetHost:targetPort,
// introducing the target node to that one member; callers loop over the
// members they want to meet it.
func (c *Client) Meet(ctx context.Context, fromAddr, targetHost string, targetPort int) error {
	conn, err := c.ConnectionForAddr(fromAddr)
	if err != nil {
		return wrapErr(fromAddr, "connect", err)
	}
	if err := conn.ClusterMeet(ctx, targetHost, strconv.Itoa(targetPort)).Err(); err != nil {
		return wrapErr(fromAddr, "CLUSTER MEET", err)
	}
	return nil
}

// Forget issues CLUSTER FORGET nodeID from fromAddr.
func (c *Client) Forget(ctx context.Context, fromAddr, nodeID string) error {
	conn, err := c.ConnectionForAddr(fromAddr)
	if err != nil {
		return wrapErr(fromAddr, "connect", err)
	}
	if err := conn.ClusterForget(ctx, nodeID).Err(); err != nil {
		return wrapErr(fromAddr, "CLUSTER FORGET", err)
	}
	return nil
}

// ResetHard issues CLUSTER RESET HARD against addr.
func (c *Client) ResetHard(ctx context.Context, addr string) error {
	conn, err := c.ConnectionForAddr(addr)
	if err != nil {
		return wrapErr(addr, "connect", err)
	}
	if err := conn.ClusterResetHard(ctx).Err(); err != nil {
		return wrapErr(addr, "CLUSTER RESET HARD", err)
	}
	return nil
}

// Replicate issues CLUSTER REPLICATE masterID against addr.
func (c *Client) Replicate(ctx context.Context, addr, masterID string) error {
	conn, err := c.ConnectionForAddr(addr)
	if err != nil {
		return wrapErr(addr, "connect", err)
	}
	if err := conn.ClusterReplicate(ctx, masterID).Err(); err != nil {
		return wrapErr(addr, "CLUSTER REPLICATE", err)
	}
	return nil
}

// SetSlotImporting issues CLUSTER SETSLOT slot IMPORTING srcID against addr.
func (c *Client) SetSlotImporting(ctx context.Context, addr string, slot int, srcID string) error {
	conn, err := c.ConnectionForAddr(addr)
	if err != nil {
		return wrapErr(addr, "connect", err)
	}
	if err := conn.ClusterSetSlotImporting(ctx, slot, srcID).Err(); err != nil {
		return wrapErr(addr, "CLUSTER SETSLOT IMPORTING", err)
	}
	return nil
}

// SetSlotMigrating issues CLUSTER SETSLOT slot MIGRATING dstID against addr.
func (c *Client) SetSlotMigrating(ctx context.Context, addr string, slot int, dstID string) error {
	conn, err := c.ConnectionForAddr(addr)
	if err != nil {
		return wrapErr(addr, "connect", err)
	}
	if err := conn.ClusterSetSlotMigrating(ctx, slot, dstID).Err(); err != nil {
		return wrapErr(addr, "CLUSTER SETSLOT MIGRATING", err)
	}
	return nil
}

// SetSlotNode issues CLUSTER SETSLOT slot NODE ownerID against addr.
func (c *Client) SetSlotNode(ctx context.Context, addr string, slot int, ownerID string) error {
	conn, err := c.ConnectionForAddr(addr)
	if err != nil {
		return wrapErr(addr, "connect", err)
	}
	if err := conn.ClusterSetSlotNode(ctx, slot, ownerID).Err(); err != nil {
		return wrapErr(addr, "CLUSTER SETSLOT NODE", err)
	}
	return nil
}

// CountKeysInSlot issues CLUSTER COUNTKEYSINSLOT slot against addr.
func (c *Client) CountKeysInSlot(ctx context.Context, addr string, slot int) (int64, error) {
	conn, err := c.ConnectionForAddr(addr)
	if err != nil {
		return 0, wrapErr(addr, "connect", err)
	}
	n, err := conn.ClusterCountKeysInSlot(ctx, slot).Result()
	if err != nil {
		return 0, wrapErr(addr, "CLUSTER COUNTKEYSINSLOT", err)
	}
	return n, nil
}

// GetKeysInSlot issues CLUSTER GETKEYSINSLOT slot count against addr.
func (c *Client) GetKeysInSlot(ctx context.Context, addr string, slot, count int) ([]string, error) {
	conn, err := c.ConnectionForAddr(addr)
	if err != nil {
		return nil, wrapErr(addr, "connect", err)
	}
	keys, err := conn.ClusterGetKeysInSlot(ctx, slot, count).Result()
	if err != nil {
		return nil, wrapErr(addr, "CLUSTER GETKEYSINSLOT", err)
	}
	return keys, nil
}

// Migrate issues MIGRATE from addr to destAddr for the given keys. When
// replace is true the REPLACE option is set (used for BUSYKEY recovery).
func (c *Client) Migrate(ctx context.Context, addr, destAddr string, keys []string, replace bool, timeout time.Duration) error {
	if len(keys) == 0 {
		return nil
	}
	conn, err := c.ConnectionForAddr(addr)
	if err != nil {
		return wrapErr(addr, "connect", err)
	}
	destHost, destPort, err := net.SplitHostPort(destAddr)
	if err != nil {
		return wrapErr(addr, "MIGRATE", fmt.Errorf("bad destination address %q: %w", destAddr, err))
	}

	timeoutMs := timeout.Milliseconds()
	if timeoutMs <= 0 {
		timeoutMs = 1000
	}

	args := make([]interface{}, 0, 8+len(keys))
	args = append(args, "MIGRATE", destHost, destPort, "", 0, timeoutMs)
	if replace {
		args = append(args, "REPLACE")
	}
	args = append(args, "KEYS")
	for _, k := range keys {
		args = append(args, k)
	}

	if err := conn.Do(ctx, args...).Err(); err != nil {
		return wrapErr(addr, "MIGRATE", err)
	}
	return nil
}

// ClusterInfo issues CLUSTER INFO against addr and parses the "field:value"
// lines into a map.
func (c *Client) ClusterInfo(ctx context.Context, addr string) (map[string]string, error) {
	conn, err := c.ConnectionForAddr(addr)
	if err != nil {
		return nil, wrapErr(addr, "connect", err)
	}
	raw, err := conn.ClusterInfo(ctx).Result()
	if err != nil {
		return nil, wrapErr(addr, "CLUSTER INFO", err)
	}
	info := make(map[string]string)
	for _, line := range strings.Split(raw, "\r\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, ":", 2)
		if len(parts) != 2 {
			continue
		}
		info[parts[0]] = parts[1]
	}
	return info, nil
}

// Close releases every cached connection.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for addr, conn := range c.conns {
		_ = conn.Close()
		delete(c.conns, addr)
	}
}

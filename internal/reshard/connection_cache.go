package reshard

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"rcshard/internal/redisclient"
)

// ConnectionCache is an immutable, per-reshard map of node-id to a live
// command connection. It is built once at reshard start and is read-only
// for the lifetime of the reshard; concurrent readers (the 5 migration
// workers) need no synchronization.
type ConnectionCache struct {
	byNodeID map[string]*redis.Client
	addrOf   map[string]string
}

// BuildConnectionCache dials (or reuses, via client's own cache) a
// connection for every node in topology.
func BuildConnectionCache(client *redisclient.Client, topology []redisclient.NodeInfo) (*ConnectionCache, error) {
	byNodeID := make(map[string]*redis.Client, len(topology))
	addrOf := make(map[string]string, len(topology))
	for _, n := range topology {
		conn, err := client.ConnectionForAddr(n.Addr)
		if err != nil {
			return nil, fmt.Errorf("reshard: dialing %s (%s): %w", n.Addr, n.ID, err)
		}
		byNodeID[n.ID] = conn
		addrOf[n.ID] = n.Addr
	}
	return &ConnectionCache{byNodeID: byNodeID, addrOf: addrOf}, nil
}

// Conn returns the connection for nodeID, or false if it is not present in
// this cache (a miss here is a hard error for the caller: the cache was
// snapshotted at reshard start and never grows).
func (c *ConnectionCache) Conn(nodeID string) (*redis.Client, bool) {
	conn, ok := c.byNodeID[nodeID]
	return conn, ok
}

// Addr returns the address cached for nodeID.
func (c *ConnectionCache) Addr(nodeID string) (string, bool) {
	addr, ok := c.addrOf[nodeID]
	return addr, ok
}

// NodeIDs returns every node-id held in the cache, in no particular order.
func (c *ConnectionCache) NodeIDs() []string {
	ids := make([]string, 0, len(c.byNodeID))
	for id := range c.byNodeID {
		ids = append(ids, id)
	}
	return ids
}

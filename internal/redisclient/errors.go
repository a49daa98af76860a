package redisclient

import "fmt"

// ClusterClientError wraps a transport or command-level failure talking to
// a cluster node. Callers decide whether to retry.
type ClusterClientError struct {
	Addr string
	Op   string
	Err  error
}

func (e *ClusterClientError) Error() string {
	return fmt.Sprintf("redisclient: %s against %s: %v", e.Op, e.Addr, e.Err)
}

func (e *ClusterClientError) Unwrap() error { return e.Err }

func wrapErr(addr, op string, err error) error {
	if err == nil {
		return nil
	}
	return &ClusterClientError{Addr: addr, Op: op, Err: err}
}

// NodeNotInCluster is returned when a canonicalized URI does not appear in
// the current topology snapshot.
type NodeNotInCluster struct {
	URI string
}

func (e *NodeNotInCluster) Error() string {
	return fmt.Sprintf("redisclient: node %s is not part of the cluster", e.URI)
}

package redisclient

// NodeInfo is an immutable snapshot of one cluster member as reported by
// CLUSTER NODES.
type NodeInfo struct {
	ID        string
	Addr      string
	Flags     []string
	SlaveOf   string // node-id of the master this node replicates, "-" if none
	Connected bool
	Slots     [][2]int // inclusive [start, end] ranges this node owns
}

// IsMaster reports whether the node is a primary.
func (n NodeInfo) IsMaster() bool { return n.hasFlag("master") }

// IsReplica reports whether the node is a replica.
func (n NodeInfo) IsReplica() bool { return n.hasFlag("slave") || n.hasFlag("replica") }

func (n NodeInfo) hasFlag(flag string) bool {
	for _, f := range n.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// SlotCount returns the total number of slots this node owns.
func (n NodeInfo) SlotCount() int {
	total := 0
	for _, r := range n.Slots {
		total += r[1] - r[0] + 1
	}
	return total
}

// OwnedSlots flattens the slot ranges into individual slot numbers, in
// ascending order.
func (n NodeInfo) OwnedSlots() []int {
	slots := make([]int, 0, n.SlotCount())
	for _, r := range n.Slots {
		for s := r[0]; s <= r[1]; s++ {
			slots = append(slots, s)
		}
	}
	return slots
}

// Masters filters a topology snapshot down to master nodes.
func Masters(topology []NodeInfo) []NodeInfo {
	var out []NodeInfo
	for _, n := range topology {
		if n.IsMaster() {
			out = append(out, n)
		}
	}
	return out
}

// Replicas filters a topology snapshot down to replica nodes.
func Replicas(topology []NodeInfo) []NodeInfo {
	var out []NodeInfo
	for _, n := range topology {
		if n.IsReplica() {
			out = append(out, n)
		}
	}
	return out
}

// ByURI finds the node whose canonical address matches uri, if any.
func ByURI(topology []NodeInfo, uri string) (NodeInfo, bool) {
	for _, n := range topology {
		if n.Addr == uri {
			return n, true
		}
	}
	return NodeInfo{}, false
}

// ByID finds the node with the given node-id, if any.
func ByID(topology []NodeInfo, id string) (NodeInfo, bool) {
	for _, n := range topology {
		if n.ID == id {
			return n, true
		}
	}
	return NodeInfo{}, false
}

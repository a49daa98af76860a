// Package reshard implements the resharding engine: the pure slot-migration
// planner (Plan), the per-slot migration protocol (SlotMigrator), and the
// bounded-parallelism dispatcher that drives a full reshard (Router).
package reshard

import (
	"sort"

	"rcshard/internal/redisclient"
)

const numSlots = 16384

// Table maps each source master's node-id to the ordered (ascending) list
// of slots it must relinquish to the new/target master.
type Table map[string][]int

// Plan computes a Table that rebalances slot ownership from sources toward
// a newly added master. sources must not include the target master and
// must be non-empty; every source must currently own at least one slot.
// Plan is pure: identical input produces byte-identical output.
func Plan(sources []redisclient.NodeInfo) (Table, error) {
	if len(sources) == 0 {
		return nil, &ReshardTableError{Reason: "no source masters supplied"}
	}

	ideal := ceilDiv(numSlots, len(sources)+1)

	table := make(Table, len(sources))
	for _, src := range sources {
		owned := src.OwnedSlots()
		if len(owned) == 0 {
			return nil, &ReshardTableError{Reason: "source " + src.ID + " owns no slots"}
		}
		sort.Ints(owned)

		k := len(owned) - ideal
		if k < 0 {
			k = 0
		}
		if k > len(owned) {
			k = len(owned)
		}
		if k == 0 {
			continue
		}
		moving := make([]int, k)
		copy(moving, owned[:k])
		table[src.ID] = moving
	}

	return table, nil
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

// TotalSlots sums the slots a table schedules for migration.
func (t Table) TotalSlots() int {
	n := 0
	for _, slots := range t {
		n += len(slots)
	}
	return n
}

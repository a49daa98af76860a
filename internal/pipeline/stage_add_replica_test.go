package pipeline

import (
	"testing"

	"rcshard/internal/redisclient"
)

func masterNode(id string) redisclient.NodeInfo {
	return redisclient.NodeInfo{ID: id, Addr: id + ":7000", Flags: []string{"master"}}
}

func replicaOf(id, masterID string) redisclient.NodeInfo {
	return redisclient.NodeInfo{ID: id, Addr: id + ":7000", Flags: []string{"slave"}, SlaveOf: masterID}
}

// TestPoorestMastersRanksByCurrentSnapshot documents the Open Question 1
// resolution: replica counts come from one topology snapshot taken at the
// start of a batch, and are not incremented for assignments made within
// that same batch — poorestMasters is a pure function of one snapshot, so
// repeated calls against the same input always rank the same way.
func TestPoorestMastersRanksByCurrentSnapshot(t *testing.T) {
	topology := []redisclient.NodeInfo{
		masterNode("m1"),
		masterNode("m2"),
		masterNode("m3"),
		replicaOf("r1", "m1"),
		replicaOf("r2", "m1"),
		replicaOf("r3", "m2"),
	}
	masters := redisclient.Masters(topology)

	first := poorestMasters(masters, topology)
	second := poorestMasters(masters, topology)

	if len(first) != 3 || len(second) != 3 {
		t.Fatalf("expected 3 ranked masters, got %d and %d", len(first), len(second))
	}
	if first[0].ID != "m3" {
		t.Errorf("poorest master = %s, want m3 (0 replicas)", first[0].ID)
	}
	if first[0].Count != second[0].Count || first[0].ID != second[0].ID {
		t.Error("poorestMasters is not stable across repeated calls against the same snapshot")
	}
	if first[len(first)-1].ID != "m1" {
		t.Errorf("richest master = %s, want m1 (2 replicas)", first[len(first)-1].ID)
	}
}

func TestPoorestMastersHandlesNoReplicasYet(t *testing.T) {
	topology := []redisclient.NodeInfo{masterNode("m1"), masterNode("m2")}
	ranking := poorestMasters(redisclient.Masters(topology), topology)
	if len(ranking) != 2 {
		t.Fatalf("expected 2 ranked masters, got %d", len(ranking))
	}
	for _, e := range ranking {
		if e.Count != 0 {
			t.Errorf("master %s count = %d, want 0", e.ID, e.Count)
		}
	}
}

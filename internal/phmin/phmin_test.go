package phmin

import "testing"

func countsOf(entries []Entry) []int {
	out := make([]int, len(entries))
	for i, e := range entries {
		out[i] = e.Count
	}
	return out
}

func TestHeapKeepsSmallestN(t *testing.T) {
	h := New(2)
	for _, c := range []int{5, 1, 9, 2, 0, 7} {
		h.Push(Entry{ID: "x", Count: c})
	}
	counts := countsOf(h.Entries())
	if len(counts) != 2 {
		t.Fatalf("len(entries) = %d, want 2", len(counts))
	}
	sum := counts[0] + counts[1]
	if sum != 0+1 {
		t.Errorf("smallest-2 sum = %d, want 1 (entries were %v)", sum, counts)
	}
}

func TestHeapZeroCapacityKeepsNothing(t *testing.T) {
	h := New(0)
	h.Push(Entry{ID: "x", Count: 1})
	if h.Len() != 0 {
		t.Errorf("Len() = %d, want 0", h.Len())
	}
}

func TestHeapCapacityExceedsPushes(t *testing.T) {
	h := New(5)
	h.Push(Entry{ID: "a", Count: 3})
	h.Push(Entry{ID: "b", Count: 1})
	if h.Len() != 2 {
		t.Errorf("Len() = %d, want 2", h.Len())
	}
}

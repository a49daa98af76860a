// Package phmin selects the N entries with the smallest associated count
// out of a stream of (id, count) pairs — used by the task pipeline to find
// the "poorest" masters (fewest replicas) when assigning new replicas.
//
// It is realized as a bounded max-heap of size n: the heap always holds
// the n smallest-count entries seen so far, keyed by its *largest* member
// so a newcomer can be compared against the current worst-of-the-best in
// O(1) and only pays O(log n) when it actually displaces it.
package phmin

import "container/heap"

// Entry is one (id, count) observation.
type Entry struct {
	ID    string
	Count int
}

// Heap holds up to N entries with the smallest Count values seen via Push.
// Not safe for concurrent use — callers run selection single-threaded
// (spec.md §9: "AtomicInteger... trivially realized with plain integers
// since planning is single-threaded").
type Heap struct {
	n    int
	data maxHeap
}

// New builds a Heap bounded to the n smallest entries.
func New(n int) *Heap {
	return &Heap{n: n, data: make(maxHeap, 0, n)}
}

// Push admits e into the bounded set. If the heap isn't yet full, e is
// always kept (O(1) amortized via heap.Push, O(log n) worst case). Once
// full, e is kept only if it is smaller than the current maximum, which is
// then evicted; checking "can it displace the max" is O(1), and the
// eviction itself is O(log n).
func (h *Heap) Push(e Entry) {
	if h.n <= 0 {
		return
	}
	if len(h.data) < h.n {
		heap.Push(&h.data, e)
		return
	}
	if e.Count >= h.data[0].Count {
		return
	}
	h.data[0] = e
	heap.Fix(&h.data, 0)
}

// Entries returns the current contents, unordered.
func (h *Heap) Entries() []Entry {
	out := make([]Entry, len(h.data))
	copy(out, h.data)
	return out
}

// Len reports how many entries are currently held.
func (h *Heap) Len() int { return len(h.data) }

// maxHeap is a container/heap max-heap over Entry.Count.
type maxHeap []Entry

func (m maxHeap) Len() int            { return len(m) }
func (m maxHeap) Less(i, j int) bool  { return m[i].Count > m[j].Count }
func (m maxHeap) Swap(i, j int)       { m[i], m[j] = m[j], m[i] }
func (m *maxHeap) Push(x interface{}) { *m = append(*m, x.(Entry)) }
func (m *maxHeap) Pop() interface{} {
	old := *m
	n := len(old)
	item := old[n-1]
	*m = old[:n-1]
	return item
}

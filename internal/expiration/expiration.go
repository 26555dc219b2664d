// Package expiration implements the priority structure of (key, timestamp)
// entries that drives MycoKV's expiration sweep. It tolerates overwrites and
// deletions without disturbing heap structure, by flagging stale entries
// invalid rather than removing them in place.
package expiration

import "container/heap"

// Entry is one scheduled expiration. The key map holds the only live
// reference; a copy left behind in the heap after an overwrite has its
// valid flag cleared, and surfaces and is discarded on pop/peek.
type Entry struct {
	Key       string
	Timestamp int64
	valid     bool
}

type entryHeap []*Entry

func (h entryHeap) Len() int            { return len(h) }
func (h entryHeap) Less(i, j int) bool  { return h[i].Timestamp < h[j].Timestamp }
func (h entryHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *entryHeap) Push(x any)         { *h = append(*h, x.(*Entry)) }
func (h *entryHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return item
}

// Index is a min-heap over Timestamp keyed by Key for override. At most one
// entry per key is valid=true at any time.
type Index struct {
	heap entryHeap
	byKey map[string]*Entry
}

// New returns an empty expiration index.
func New() *Index {
	return &Index{byKey: make(map[string]*Entry)}
}

// Push schedules key to expire at timestamp. If key already has a pending
// entry, the old one is marked invalid in place; it remains in the heap
// until it surfaces and is discarded.
func (idx *Index) Push(key string, timestamp int64) {
	if old, ok := idx.byKey[key]; ok {
		old.valid = false
	}

	e := &Entry{Key: key, Timestamp: timestamp, valid: true}
	heap.Push(&idx.heap, e)
	idx.byKey[key] = e
}

// Peek returns the earliest valid entry without removing it, discarding any
// invalidated entries it finds at the top along the way.
func (idx *Index) Peek() (Entry, bool) {
	idx.discardInvalid()
	if idx.heap.Len() == 0 {
		return Entry{}, false
	}
	return *idx.heap[0], true
}

// Pop removes and returns the earliest valid entry, forgetting it in the
// key map.
func (idx *Index) Pop() (Entry, bool) {
	idx.discardInvalid()
	if idx.heap.Len() == 0 {
		return Entry{}, false
	}
	e := heap.Pop(&idx.heap).(*Entry)
	delete(idx.byKey, e.Key)
	return *e, true
}

// Invalidate marks key's current entry invalid and forgets it in the key
// map, without touching heap structure.
func (idx *Index) Invalidate(key string) {
	if e, ok := idx.byKey[key]; ok {
		e.valid = false
		delete(idx.byKey, key)
	}
}

// Clear empties both the heap and the key map.
func (idx *Index) Clear() {
	idx.heap = nil
	idx.byKey = make(map[string]*Entry)
}

func (idx *Index) discardInvalid() {
	for idx.heap.Len() > 0 && !idx.heap[0].valid {
		heap.Pop(&idx.heap)
	}
}

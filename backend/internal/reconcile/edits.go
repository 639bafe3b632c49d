package reconcile

import (
	"sort"
	"sync"
)

// Key addresses one editable cell: a row's external key (student ID) and a
// field or sub key inside it (course ID, "newCourse").
type Key struct {
	Row string
	Sub string
}

func (k Key) String() string {
	return k.Row + "-" + k.Sub
}

type edit[V any] struct {
	value V
	rev   uint64
}

// Ticket identifies one submitted mutation for a key. Seq orders
// submissions per key; Rev is the pending revision that was submitted
// (zero if nothing was pending).
type Ticket struct {
	Key Key
	Seq uint64
	Rev uint64
}

// Edits is the Keyed Row State: at most one pending value per Key. Values
// live here until a mutation for the same revision succeeds or the caller
// clears them. Nothing is persisted.
type Edits[V any] struct {
	mu      sync.Mutex
	pending map[Key]edit[V]
	seqs    map[Key]uint64
	nextRev uint64
}

// NewEdits creates an empty pending-edit store
func NewEdits[V any]() *Edits[V] {
	return &Edits[V]{
		pending: make(map[Key]edit[V]),
		seqs:    make(map[Key]uint64),
	}
}

// Set records v as the pending value for key, replacing any previous one,
// and returns its revision
func (e *Edits[V]) Set(key Key, v V) uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.nextRev++
	e.pending[key] = edit[V]{value: v, rev: e.nextRev}
	return e.nextRev
}

// Get returns the pending value for key
func (e *Edits[V]) Get(key Key) (V, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ed, ok := e.pending[key]
	return ed.value, ok
}

// Value returns the pending value for key, else the committed value from
// fallback, else the zero value
func (e *Edits[V]) Value(key Key, fallback func() (V, bool)) V {
	if v, ok := e.Get(key); ok {
		return v
	}
	if fallback != nil {
		if v, ok := fallback(); ok {
			return v
		}
	}
	var zero V
	return zero
}

// Clear drops the pending value for key
func (e *Edits[V]) Clear(key Key) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	_, ok := e.pending[key]
	delete(e.pending, key)
	return ok
}

// Len returns the number of pending edits
func (e *Edits[V]) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.pending)
}

// Keys returns the pending keys in a stable order
func (e *Edits[V]) Keys() []Key {
	e.mu.Lock()
	keys := make([]Key, 0, len(e.pending))
	for k := range e.pending {
		keys = append(keys, k)
	}
	e.mu.Unlock()

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Row != keys[j].Row {
			return keys[i].Row < keys[j].Row
		}
		return keys[i].Sub < keys[j].Sub
	})
	return keys
}

// Snapshot returns the pending value for key together with its revision,
// read under one lock. rev is zero when nothing is pending.
func (e *Edits[V]) Snapshot(key Key) (v V, rev uint64, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	ed, ok := e.pending[key]
	return ed.value, ed.rev, ok
}

// Begin issues the next sequence number for key. rev is the revision
// being submitted, as returned by Snapshot.
func (e *Edits[V]) Begin(key Key, rev uint64) Ticket {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.seqs[key]++
	return Ticket{Key: key, Seq: e.seqs[key], Rev: rev}
}

// Latest reports whether t is still the newest submission for its key
func (e *Edits[V]) Latest(t Ticket) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.seqs[t.Key] == t.Seq
}

// Settle is called once t's request succeeded. If t is still the newest
// submission, the pending value is cleared, but only when it is the same
// revision that was submitted. A value typed while the request was in
// flight survives.
func (e *Edits[V]) Settle(t Ticket) (latest, cleared bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.seqs[t.Key] != t.Seq {
		return false, false
	}

	ed, ok := e.pending[t.Key]
	if !ok {
		return true, false
	}
	if ed.rev != t.Rev {
		return true, false
	}
	delete(e.pending, t.Key)
	return true, true
}

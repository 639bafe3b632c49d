// Package reconcile keeps a locally edited collection consistent with a
// server of record.
//
// A Collection holds the authoritative rows last confirmed by the server.
// Edits holds user-entered values that have not been committed yet, keyed
// by (row, sub) and independent of the rows themselves. A Dispatcher turns
// a pending edit into a request, folds the outcome back and refreshes the
// collection. Views are composed by the callers from the three; nothing
// here renders.
package reconcile

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"
)

// DefaultMinFlagDuration is the floor applied before loading/refreshing
// flags clear, so fast networks do not flicker.
const DefaultMinFlagDuration = 300 * time.Millisecond

// Mode selects how a fetch presents itself
type Mode int

const (
	// Initial blocks the view: nothing is shown until it completes
	Initial Mode = iota
	// Background overlays existing rows, which remain visible and editable
	Background
)

func (m Mode) String() string {
	if m == Initial {
		return "initial"
	}
	return "background"
}

// ListFunc reads the authoritative collection. Scope (department, teacher,
// course) is captured by the function itself.
type ListFunc[R any] func(ctx context.Context) ([]R, error)

// Status is a snapshot of a collection's load state
type Status struct {
	Loading    bool // an initial fetch is in flight
	Refreshing bool // a background fetch is in flight
	Loaded     bool // at least one fetch has completed
	LastError  error
	FetchedAt  time.Time
}

// Collection is the Remote Collection Fetcher plus the rows it fetched
type Collection[R any] struct {
	name    string
	list    ListFunc[R]
	minFlag time.Duration

	mu         sync.RWMutex
	rows       []R
	loaded     bool
	loading    int
	refreshing int
	issued     uint64 // last fetch generation handed out
	applied    uint64 // generation whose rows are currently held
	lastErr    error
	fetchedAt  time.Time
	fetches    int
}

// CollectionOption configures a Collection
type CollectionOption func(*collectionOptions)

type collectionOptions struct {
	minFlag time.Duration
}

// WithMinFlagDuration overrides DefaultMinFlagDuration
func WithMinFlagDuration(d time.Duration) CollectionOption {
	return func(o *collectionOptions) { o.minFlag = d }
}

// NewCollection creates an empty, not-yet-loaded collection
func NewCollection[R any](name string, list ListFunc[R], opts ...CollectionOption) *Collection[R] {
	o := collectionOptions{minFlag: DefaultMinFlagDuration}
	for _, opt := range opts {
		opt(&o)
	}
	return &Collection[R]{name: name, list: list, minFlag: o.minFlag}
}

// Name returns the collection's label (used in logs)
func (c *Collection[R]) Name() string {
	return c.name
}

// Fetch reads the collection from the server.
//
// On failure an Initial fetch leaves the collection empty and a Background
// fetch leaves it unchanged. Either way the mode's flag is released once
// the call returns, no sooner than the minimum flag duration after it
// started. A fetch that completes after a newer one has been applied is
// discarded.
func (c *Collection[R]) Fetch(ctx context.Context, mode Mode) error {
	start := time.Now()

	c.mu.Lock()
	c.issued++
	gen := c.issued
	c.fetches++
	if mode == Initial {
		c.loading++
	} else {
		c.refreshing++
	}
	c.mu.Unlock()

	defer c.release(ctx, mode, start)

	rows, err := c.list(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()

	if err != nil {
		c.lastErr = err
		if mode == Initial && gen > c.applied {
			c.rows = []R{}
			c.loaded = true
			c.applied = gen
		}
		log.Printf("WARN: %s fetch (%s) failed: %v", c.name, mode, err)
		return fmt.Errorf("fetch %s: %w", c.name, err)
	}

	if gen < c.applied {
		log.Printf("INFO: %s fetch generation %d discarded, %d already applied", c.name, gen, c.applied)
		return nil
	}

	if rows == nil {
		rows = []R{}
	}
	c.rows = rows
	c.loaded = true
	c.applied = gen
	c.lastErr = nil
	c.fetchedAt = time.Now()
	return nil
}

// release clears the mode's flag after the minimum flag duration. It never
// blocks past ctx cancellation.
func (c *Collection[R]) release(ctx context.Context, mode Mode, start time.Time) {
	if wait := c.minFlag - time.Since(start); wait > 0 {
		timer := time.NewTimer(wait)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
		}
	}

	c.mu.Lock()
	if mode == Initial {
		c.loading--
	} else {
		c.refreshing--
	}
	c.mu.Unlock()
}

// Rows returns a copy of the authoritative rows
func (c *Collection[R]) Rows() []R {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]R, len(c.rows))
	copy(out, c.rows)
	return out
}

// Find returns the first row matching pred
func (c *Collection[R]) Find(pred func(R) bool) (R, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	for _, r := range c.rows {
		if pred(r) {
			return r, true
		}
	}
	var zero R
	return zero, false
}

// Upsert replaces the first row matching pred with row, or appends it.
// Used to fold a server-returned row in before the confirming refresh.
func (c *Collection[R]) Upsert(pred func(R) bool, row R) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, r := range c.rows {
		if pred(r) {
			c.rows[i] = row
			return
		}
	}
	c.rows = append(c.rows, row)
}

// Status returns the current load state
func (c *Collection[R]) Status() Status {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return Status{
		Loading:    c.loading > 0,
		Refreshing: c.refreshing > 0,
		Loaded:     c.loaded,
		LastError:  c.lastErr,
		FetchedAt:  c.fetchedAt,
	}
}

// Fetches returns how many fetches have been started
func (c *Collection[R]) Fetches() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.fetches
}

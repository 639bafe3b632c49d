package reconcile

import (
	"context"
	"log"
)

// Outcome describes what happened to a request
type Outcome int

const (
	// Rejected: the request never took effect; the error says why
	Rejected Outcome = iota
	// Applied: the response was folded back and a refresh ran
	Applied
	// Superseded: a newer submission for the same key exists, so this
	// response was discarded
	Superseded
)

func (o Outcome) String() string {
	switch o {
	case Applied:
		return "applied"
	case Superseded:
		return "superseded"
	default:
		return "rejected"
	}
}

// Refresher re-reads the authoritative state after a write
type Refresher func(ctx context.Context) error

// Confirmer asks the user a blocking yes/no question
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer
type ConfirmFunc func(ctx context.Context, prompt string) bool

// Confirm calls f
func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool {
	return f(ctx, prompt)
}

// Mutation is one create-or-update request for a pending key
type Mutation[V any] struct {
	Key Key

	// Value is sent only when nothing is pending for Key; otherwise the
	// pending value is sent
	Value V

	// Validate runs before anything is sent; a non-nil error aborts
	Validate func(V) error

	// Send performs the request
	Send func(ctx context.Context, v V) error

	// Merge, if set, folds the response into the collection. It only runs
	// when the response is still the newest for the key.
	Merge func()
}

// Dispatcher is the Mutation Dispatcher. Submissions on different keys
// run concurrently and are never serialized against each other.
type Dispatcher[V any] struct {
	name    string
	edits   *Edits[V]
	refresh Refresher
	confirm Confirmer
}

// NewDispatcher binds a dispatcher to its pending edits, the refresh to
// run after every applied write, and the confirmation prompt for deletes
func NewDispatcher[V any](name string, edits *Edits[V], refresh Refresher, confirm Confirmer) *Dispatcher[V] {
	return &Dispatcher[V]{name: name, edits: edits, refresh: refresh, confirm: confirm}
}

// Submit validates m locally, sends it and, on success, clears the
// pending edit and runs one background refresh.
//
// Invalid input returns a *ValidationError without sending anything. Any
// send failure leaves the pending edit untouched so the user can retry.
func (d *Dispatcher[V]) Submit(ctx context.Context, m Mutation[V]) (Outcome, error) {
	// 1. Snapshot the value with its revision
	v, rev, ok := d.edits.Snapshot(m.Key)
	if !ok {
		v = m.Value
	}

	// 2. Local validation
	if m.Validate != nil {
		if err := m.Validate(v); err != nil {
			return Rejected, err
		}
	}

	// 3. Tag the submission
	ticket := d.edits.Begin(m.Key, rev)

	// 4. Send
	if err := m.Send(ctx, v); err != nil {
		log.Printf("WARN: %s submit %s failed: %v", d.name, m.Key, err)
		return Rejected, err
	}

	// 5. Fold back
	return d.settle(ctx, ticket, m.Merge), nil
}

// Delete asks for confirmation, then sends. Declining returns ErrCancelled
// and sends nothing.
func (d *Dispatcher[V]) Delete(ctx context.Context, key Key, prompt string, send func(ctx context.Context) error, merge func()) (Outcome, error) {
	if d.confirm == nil || !d.confirm.Confirm(ctx, prompt) {
		return Rejected, ErrCancelled
	}

	_, rev, _ := d.edits.Snapshot(key)
	ticket := d.edits.Begin(key, rev)

	if err := send(ctx); err != nil {
		log.Printf("WARN: %s delete %s failed: %v", d.name, key, err)
		return Rejected, err
	}

	return d.settle(ctx, ticket, merge), nil
}

func (d *Dispatcher[V]) settle(ctx context.Context, ticket Ticket, merge func()) Outcome {
	latest, _ := d.edits.Settle(ticket)
	if !latest {
		log.Printf("INFO: %s response for %s (seq %d) superseded, discarded", d.name, ticket.Key, ticket.Seq)
		return Superseded
	}

	if merge != nil {
		merge()
	}

	if d.refresh != nil {
		// Background refresh failures keep the last good collection
		if err := d.refresh(ctx); err != nil {
			log.Printf("WARN: %s refresh after %s failed: %v", d.name, ticket.Key, err)
		}
	}
	return Applied
}

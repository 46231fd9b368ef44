// Package invalidate dispatches mutation events against the caching tiers:
// the edge cache store, the edge provider zone, and the origin's tag-based
// revalidation endpoint. Dispatch is a single bounded attempt; caching is a
// best-effort accelerator, so a failed leg is logged and surfaced as a
// warning, never retried synchronously and never rolled back.
package invalidate

import (
	"fmt"
	"time"
)

// Action is the mutation kind that triggered an invalidation.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
)

// Valid reports whether the action is one of the known mutation kinds.
func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete:
		return true
	default:
		return false
	}
}

// Event is a single mutation notification from the administrative surface.
// Events are consumed exactly once and never persisted; at-most-once
// delivery is acceptable because a later read self-heals from the store.
type Event struct {
	// Collection that was mutated (required).
	Collection string `json:"collection"`

	// DocumentID of the mutated document; empty for collection-wide changes.
	DocumentID string `json:"documentId,omitempty"`

	// Action is the mutation kind.
	Action Action `json:"action"`

	// ReceivedAt is when the event entered the dispatcher.
	ReceivedAt time.Time `json:"receivedAt"`
}

// Validate checks the event's required fields.
func (e Event) Validate() error {
	if e.Collection == "" {
		return fmt.Errorf("collection is required")
	}
	if !e.Action.Valid() {
		return fmt.Errorf("action %q is not one of create, update, delete", e.Action)
	}
	return nil
}

// State is the dispatcher's per-event state machine position.
type State string

const (
	StateReceived        State = "received"
	StateRejected        State = "rejected"
	StateAuthorized      State = "authorized"
	StateDispatching     State = "dispatching"
	StateCompleted       State = "completed"
	StatePartiallyFailed State = "partially_failed"
)

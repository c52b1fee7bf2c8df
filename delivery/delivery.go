// Package delivery implements the persistent delivery queue and the worker
// engine that drains it.
package delivery

import (
	"encoding/json"
	"time"

	"github.com/hooklinehq/hookline/id"
	"github.com/hooklinehq/hookline/internal/entity"
)

// State represents the current state of a delivery.
type State string

const (
	// StatePending indicates the delivery is awaiting an attempt.
	StatePending State = "pending"

	// StateDelivering indicates a worker holds an exclusive claim and an
	// attempt is in flight.
	StateDelivering State = "delivering"

	// StateDelivered indicates the destination acknowledged with a 2xx.
	StateDelivered State = "delivered"

	// StateFailed indicates the delivery was abandoned because its
	// subscription was deleted or deactivated before it could be sent.
	StateFailed State = "failed"

	// StateDeadLettered indicates the delivery exhausted its attempts.
	StateDeadLettered State = "dead_lettered"
)

// Delivery is one (event, subscription) pair scheduled for webhook dispatch.
type Delivery struct {
	entity.Entity

	// ID is the unique TypeID for this delivery.
	ID id.ID `json:"id"`

	// SubscriptionID references the target subscription.
	SubscriptionID id.ID `json:"subscription_id"`

	// EventID references the internal event row.
	EventID id.ID `json:"event_id"`

	// EventKey is the producer's event ID. Uniqueness on
	// (SubscriptionID, EventKey) makes enqueue idempotent.
	EventKey string `json:"event_key"`

	// EventType is the event's type tag, denormalized for listing.
	EventType string `json:"event_type"`

	// Payload is the canonical envelope serialized once at intake. Every
	// attempt sends and signs these exact bytes.
	Payload json.RawMessage `json:"payload"`

	// State is the current delivery state.
	State State `json:"state"`

	// AttemptCount is the number of attempts made so far.
	AttemptCount int `json:"attempt_count"`

	// MaxAttempts is the attempt budget before dead-lettering.
	MaxAttempts int `json:"max_attempts"`

	// NextAttemptAt is when the delivery becomes eligible for claim.
	NextAttemptAt time.Time `json:"next_attempt_at"`

	// LastStatusCode is the HTTP status from the most recent attempt.
	LastStatusCode int `json:"last_response_code,omitempty"`

	// LastError is the error message from the most recent failed attempt.
	LastError string `json:"last_error,omitempty"`

	// LastResponse is a truncated response body from the most recent attempt.
	LastResponse string `json:"last_response,omitempty"`

	// LastLatencyMs is the latency in milliseconds of the most recent attempt.
	LastLatencyMs int `json:"last_latency_ms,omitempty"`

	// CompletedAt is when the delivery reached a terminal state.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Terminal reports whether the delivery is in a terminal state.
func (d *Delivery) Terminal() bool {
	switch d.State {
	case StateDelivered, StateFailed, StateDeadLettered:
		return true
	}
	return false
}

// ListOpts configures filtering and pagination for delivery listing.
type ListOpts struct {
	Offset         int
	Limit          int
	SubscriptionID id.ID  // Nil matches all
	State          *State // nil matches all
}

// Package audit maintains the append-only ledger of subscription mutations
// and delivery lifecycle transitions.
//
// The ledger records everything about process and nothing sensitive about
// content: entries never contain the plaintext secret, authentication
// tokens, or more than a truncated slice of a destination's response body.
// Entries are never updated or deleted by the engine.
package audit

import (
	"time"

	"github.com/hooklinehq/hookline/id"
)

// Kind tags the lifecycle transition an entry records.
type Kind string

const (
	KindSubscriptionCreated Kind = "subscription_created"
	KindSubscriptionUpdated Kind = "subscription_updated"
	KindSubscriptionDeleted Kind = "subscription_deleted"
	KindSecretRotated       Kind = "secret_rotated"
	KindDelivered           Kind = "delivered"
	KindAttemptFailed       Kind = "attempt_failed"
	KindDeadLettered        Kind = "dead_lettered"
	KindAbandoned           Kind = "abandoned"
	KindRequeued            Kind = "requeued"
)

// MaxDetailBytes caps the response-body/error excerpt stored per entry.
const MaxDetailBytes = 2048

// Entry is one immutable row in the audit ledger.
type Entry struct {
	// ID is the unique TypeID for this entry.
	ID id.ID `json:"id"`

	// SubscriptionID references the subscription the transition concerns.
	SubscriptionID id.ID `json:"subscription_id"`

	// DeliveryID references the delivery for delivery transitions.
	// Nil for subscription mutations.
	DeliveryID id.ID `json:"delivery_id,omitempty"`

	// EventType is the delivery's event type, denormalized for filtering.
	EventType string `json:"event_type,omitempty"`

	// Kind is the recorded transition.
	Kind Kind `json:"kind"`

	// StatusCode is the destination's HTTP status, when one was received.
	StatusCode int `json:"status_code,omitempty"`

	// Attempt is the delivery attempt number the entry corresponds to.
	Attempt int `json:"attempt,omitempty"`

	// Detail is a truncated response/error excerpt. Never a secret.
	Detail string `json:"detail,omitempty"`

	// CreatedAt is when the transition was recorded.
	CreatedAt time.Time `json:"created_at"`
}

// ListOpts configures filtering and pagination for ledger reads.
type ListOpts struct {
	Offset         int
	Limit          int
	SubscriptionID id.ID // Nil matches all
	DeliveryID     id.ID // Nil matches all
	Kind           Kind  // empty matches all
}

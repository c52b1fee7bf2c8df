// Package subscription manages webhook subscriptions: destination URLs,
// signing secrets, event-type filters, and their lifecycle.
package subscription

import (
	"time"

	"github.com/hooklinehq/hookline/id"
	"github.com/hooklinehq/hookline/internal/entity"
)

// Subscription is a consumer's registration for webhook delivery.
type Subscription struct {
	entity.Entity

	// ID is the unique TypeID (prefix "sub") for this subscription.
	ID id.ID `json:"id"`

	// OwnerID identifies the principal that owns the subscription. All
	// reads and mutations are scoped to the owner.
	OwnerID string `json:"owner_id"`

	// URL is the destination endpoint. Validated at create/update time.
	URL string `json:"url"`

	// Description is free-form text, at most 500 characters.
	Description string `json:"description,omitempty"`

	// Secret is the HMAC signing secret. Returned in plaintext exactly
	// once, from Create and RotateSecret; never serialized otherwise.
	Secret string `json:"-"`

	// EventTypes is the set of event types delivered to this
	// subscription. Exact match, no wildcards.
	EventTypes []string `json:"event_types"`

	// Active gates delivery. Inactive subscriptions receive nothing and
	// their pending deliveries are abandoned at claim time.
	Active bool `json:"active"`

	// SecretRotatedAt is when the secret was last rotated, zero if never.
	SecretRotatedAt time.Time `json:"secret_rotated_at,omitzero"`

	// LastDeliveryAt is when a delivery last succeeded, zero if never.
	LastDeliveryAt time.Time `json:"last_delivery_at,omitzero"`
}

// Subscribed reports whether the subscription's filter includes eventType.
func (s *Subscription) Subscribed(eventType string) bool {
	for _, t := range s.EventTypes {
		if t == eventType {
			return true
		}
	}
	return false
}

// ListOpts configures pagination for subscription listings.
type ListOpts struct {
	Offset int
	Limit  int
}

package subscription

import (
	"context"
	"errors"
	"time"

	"github.com/hooklinehq/hookline/id"
)

// ErrNotFound is returned when a subscription does not exist. Ownership
// checks return it as well, so callers cannot probe for subscriptions they
// do not own.
var ErrNotFound = errors.New("subscription: not found")

// Store persists subscriptions.
//
// Implementations return ErrNotFound when a subscription ID does not
// resolve, so callers can branch with errors.Is.
type Store interface {
	// CreateSubscription inserts a new subscription.
	CreateSubscription(ctx context.Context, sub *Subscription) error

	// GetSubscription returns the subscription by ID.
	GetSubscription(ctx context.Context, subID id.ID) (*Subscription, error)

	// ListSubscriptions returns the owner's subscriptions ordered by
	// CreatedAt descending.
	ListSubscriptions(ctx context.Context, ownerID string, opts ListOpts) ([]*Subscription, error)

	// UpdateSubscription persists mutable fields of an existing
	// subscription (URL, Description, EventTypes, Active, UpdatedAt).
	UpdateSubscription(ctx context.Context, sub *Subscription) error

	// UpdateSecret replaces the signing secret and stamps rotation time.
	UpdateSecret(ctx context.Context, subID id.ID, secret string, rotatedAt time.Time) error

	// DeleteSubscription removes the subscription.
	DeleteSubscription(ctx context.Context, subID id.ID) error

	// ResolveActive returns all active subscriptions whose filter set
	// includes eventType.
	ResolveActive(ctx context.Context, eventType string) ([]*Subscription, error)

	// StampLastDelivery records the time of the latest successful
	// delivery for the subscription.
	StampLastDelivery(ctx context.Context, subID id.ID, at time.Time) error

	// CountActive returns the number of active subscriptions.
	CountActive(ctx context.Context) (int, error)
}

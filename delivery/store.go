package delivery

import (
	"context"
	"errors"
	"time"

	"github.com/hooklinehq/hookline/id"
)

var (
	// ErrNotFound is returned when a delivery does not exist.
	ErrNotFound = errors.New("delivery: not found")

	// ErrNotDeadLettered is returned when requeueing a delivery that is
	// not in the dead_lettered state.
	ErrNotDeadLettered = errors.New("delivery: not dead-lettered")
)

// Store defines the persistence contract for the delivery queue.
type Store interface {
	// Enqueue inserts one delivery in the pending state. A delivery for
	// the same (SubscriptionID, EventKey) pair is silently skipped.
	Enqueue(ctx context.Context, d *Delivery) error

	// EnqueueBatch inserts the deliveries, skipping (SubscriptionID,
	// EventKey) conflicts, and returns how many were actually inserted.
	EnqueueBatch(ctx context.Context, ds []*Delivery) (int, error)

	// Claim atomically transitions up to limit due pending deliveries to
	// delivering and returns them. A delivery returned by one Claim call
	// is never returned by a concurrent call.
	Claim(ctx context.Context, limit int, now time.Time) ([]*Delivery, error)

	// UpdateDelivery persists the delivery's mutable attempt fields.
	UpdateDelivery(ctx context.Context, d *Delivery) error

	// GetDelivery returns a delivery by ID.
	GetDelivery(ctx context.Context, dID id.ID) (*Delivery, error)

	// ListDeliveries returns matching deliveries ordered by CreatedAt
	// descending.
	ListDeliveries(ctx context.Context, opts ListOpts) ([]*Delivery, error)

	// CountByState returns delivery counts grouped by state.
	CountByState(ctx context.Context) (map[State]int, error)

	// ReleaseStale reverts delivering rows claimed before cutoff back to
	// pending, preserving their attempt counts, and returns how many
	// were released. Covers workers that died mid-attempt.
	ReleaseStale(ctx context.Context, cutoff time.Time) (int, error)

	// Requeue moves a dead_lettered delivery back to pending with a
	// fresh attempt budget. Returns ErrNotDeadLettered if the delivery
	// is in any other state.
	Requeue(ctx context.Context, dID id.ID, now time.Time) error

	// PurgeDeadLettered deletes dead_lettered deliveries completed
	// before cutoff and returns how many were removed.
	PurgeDeadLettered(ctx context.Context, cutoff time.Time) (int, error)
}

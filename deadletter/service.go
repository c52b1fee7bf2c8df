// Package deadletter provides operator tooling over deliveries that
// exhausted their attempt budget.
package deadletter

import (
	"context"
	"log/slog"
	"time"

	"github.com/hooklinehq/hookline/delivery"
	"github.com/hooklinehq/hookline/id"
)

// Trail records requeue operations in the audit ledger.
type Trail interface {
	DeliveryRequeued(ctx context.Context, d *delivery.Delivery)
}

// Service exposes inspection, requeue, and purge over dead-lettered
// deliveries.
type Service struct {
	store  delivery.Store
	audit  Trail
	logger *slog.Logger
}

// NewService creates a dead-letter service. audit may be nil.
func NewService(store delivery.Store, audit Trail, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{store: store, audit: audit, logger: logger}
}

// List returns dead-lettered deliveries, newest first.
func (svc *Service) List(ctx context.Context, opts delivery.ListOpts) ([]*delivery.Delivery, error) {
	state := delivery.StateDeadLettered
	opts.State = &state
	return svc.store.ListDeliveries(ctx, opts)
}

// Get returns a dead-lettered delivery by ID. A delivery in any other
// state is reported via ErrNotDeadLettered.
func (svc *Service) Get(ctx context.Context, dID id.ID) (*delivery.Delivery, error) {
	d, err := svc.store.GetDelivery(ctx, dID)
	if err != nil {
		return nil, err
	}
	if d.State != delivery.StateDeadLettered {
		return nil, delivery.ErrNotDeadLettered
	}
	return d, nil
}

// Requeue returns a dead-lettered delivery to the pending queue with a
// fresh attempt budget and records the operation.
func (svc *Service) Requeue(ctx context.Context, dID id.ID) (*delivery.Delivery, error) {
	if err := svc.store.Requeue(ctx, dID, time.Now().UTC()); err != nil {
		return nil, err
	}
	d, err := svc.store.GetDelivery(ctx, dID)
	if err != nil {
		return nil, err
	}

	svc.logger.InfoContext(ctx, "delivery requeued",
		"delivery_id", d.ID, "subscription_id", d.SubscriptionID)

	if svc.audit != nil {
		svc.audit.DeliveryRequeued(ctx, d)
	}
	return d, nil
}

// Purge deletes dead-lettered deliveries that completed before cutoff and
// returns how many were removed.
func (svc *Service) Purge(ctx context.Context, cutoff time.Time) (int, error) {
	n, err := svc.store.PurgeDeadLettered(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		svc.logger.InfoContext(ctx, "dead-lettered deliveries purged", "count", n)
	}
	return n, nil
}

// Count returns the number of dead-lettered deliveries.
func (svc *Service) Count(ctx context.Context) (int, error) {
	counts, err := svc.store.CountByState(ctx)
	if err != nil {
		return 0, err
	}
	return counts[delivery.StateDeadLettered], nil
}

package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/hooklinehq/hookline/delivery"
	"github.com/hooklinehq/hookline/id"
	"github.com/hooklinehq/hookline/subscription"
)

// Recorder writes ledger entries for subscription and delivery transitions.
// It satisfies the trail interfaces of both packages. Append failures are
// logged, never propagated: the ledger observes operations, it does not
// gate them.
type Recorder struct {
	store  Store
	logger *slog.Logger
}

// NewRecorder creates a recorder backed by store.
func NewRecorder(store Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: store, logger: logger}
}

// SubscriptionCreated records a subscription creation.
func (r *Recorder) SubscriptionCreated(ctx context.Context, sub *subscription.Subscription) {
	r.append(ctx, &Entry{SubscriptionID: sub.ID, Kind: KindSubscriptionCreated})
}

// SubscriptionUpdated records a subscription update.
func (r *Recorder) SubscriptionUpdated(ctx context.Context, sub *subscription.Subscription) {
	r.append(ctx, &Entry{SubscriptionID: sub.ID, Kind: KindSubscriptionUpdated})
}

// SubscriptionDeleted records a subscription deletion.
func (r *Recorder) SubscriptionDeleted(ctx context.Context, sub *subscription.Subscription) {
	r.append(ctx, &Entry{SubscriptionID: sub.ID, Kind: KindSubscriptionDeleted})
}

// SecretRotated records a secret rotation. The secret itself is never
// written to the ledger.
func (r *Recorder) SecretRotated(ctx context.Context, sub *subscription.Subscription) {
	r.append(ctx, &Entry{SubscriptionID: sub.ID, Kind: KindSecretRotated})
}

// DeliverySucceeded records a successful delivery attempt.
func (r *Recorder) DeliverySucceeded(ctx context.Context, d *delivery.Delivery) {
	r.append(ctx, deliveryEntry(d, KindDelivered, ""))
}

// DeliveryAttemptFailed records a failed attempt that will be retried.
func (r *Recorder) DeliveryAttemptFailed(ctx context.Context, d *delivery.Delivery, detail string) {
	r.append(ctx, deliveryEntry(d, KindAttemptFailed, detail))
}

// DeliveryDeadLettered records a delivery exhausting its attempt budget.
func (r *Recorder) DeliveryDeadLettered(ctx context.Context, d *delivery.Delivery, detail string) {
	r.append(ctx, deliveryEntry(d, KindDeadLettered, detail))
}

// DeliveryAbandoned records a delivery dropped because its subscription
// was deleted or deactivated.
func (r *Recorder) DeliveryAbandoned(ctx context.Context, d *delivery.Delivery, reason string) {
	r.append(ctx, deliveryEntry(d, KindAbandoned, reason))
}

// DeliveryRequeued records an operator returning a dead-lettered delivery
// to the queue.
func (r *Recorder) DeliveryRequeued(ctx context.Context, d *delivery.Delivery) {
	r.append(ctx, deliveryEntry(d, KindRequeued, ""))
}

func deliveryEntry(d *delivery.Delivery, kind Kind, detail string) *Entry {
	return &Entry{
		SubscriptionID: d.SubscriptionID,
		DeliveryID:     d.ID,
		EventType:      d.EventType,
		Kind:           kind,
		StatusCode:     d.LastStatusCode,
		Attempt:        d.AttemptCount,
		Detail:         detail,
	}
}

func (r *Recorder) append(ctx context.Context, entry *Entry) {
	entry.ID = id.NewAuditID()
	entry.CreatedAt = time.Now().UTC()
	if len(entry.Detail) > MaxDetailBytes {
		entry.Detail = entry.Detail[:MaxDetailBytes]
	}
	if err := r.store.AppendEntry(ctx, entry); err != nil {
		r.logger.ErrorContext(ctx, "audit append failed",
			"kind", string(entry.Kind),
			"subscription_id", entry.SubscriptionID,
			"error", err)
	}
}

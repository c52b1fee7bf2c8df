package hookline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/hooklinehq/hookline/audit"
	"github.com/hooklinehq/hookline/deadletter"
	"github.com/hooklinehq/hookline/delivery"
	"github.com/hooklinehq/hookline/event"
	"github.com/hooklinehq/hookline/eventtype"
	"github.com/hooklinehq/hookline/id"
	"github.com/hooklinehq/hookline/internal/entity"
	"github.com/hooklinehq/hookline/observability"
	"github.com/hooklinehq/hookline/ratelimit"
	"github.com/hooklinehq/hookline/store"
	"github.com/hooklinehq/hookline/subscription"
)

// wireServices initializes the internal services after options have been applied.
func (h *Hookline) wireServices() {
	h.registry = eventtype.NewRegistry()
	h.validator = eventtype.NewValidator()
	h.recorder = audit.NewRecorder(h.store, h.logger)

	h.subSvc = subscription.NewService(h.store, h.registry, h.limiter, h.recorder, h.logger)

	h.dlSvc = deadletter.NewService(h.store, h.recorder, h.logger)

	h.engine = delivery.NewEngine(h.store, h.recorder, delivery.EngineConfig{
		Concurrency:    h.config.Concurrency,
		PollInterval:   h.config.PollInterval,
		BatchSize:      h.config.BatchSize,
		RequestTimeout: h.config.RequestTimeout,
		RetrySchedule:  h.config.BackoffSchedule,
		SweepInterval:  h.config.SweepInterval,
		StaleAfter:     h.config.StaleAfter,
		Metrics:        h.metrics,
		Tracer:         h.tracer,
	}, h.logger)
}

// Start begins the delivery engine.
func (h *Hookline) Start(ctx context.Context) {
	h.engine.Start(ctx)
}

// Stop gracefully shuts down the delivery engine. In-flight attempts are
// returned to pending without consuming budget.
func (h *Hookline) Stop(ctx context.Context) {
	h.engine.Stop(ctx)
}

// RegisterEventTypes adds event type definitions to the registry. Intended
// for wire-up time, before events referencing the types are published.
func (h *Hookline) RegisterEventTypes(defs ...eventtype.Definition) {
	h.registry.Register(defs...)
}

// PublishInput carries one producer event into the engine.
type PublishInput struct {
	// ID is the producer's event identifier. Publishing the same ID
	// twice reuses the stored event; only missing deliveries are
	// enqueued.
	ID string `json:"event_id"`

	// Type is the registered event type tag.
	Type string `json:"event_type"`

	// OccurredAt is when the event happened. Zero means now.
	OccurredAt time.Time `json:"occurred_at,omitzero"`

	// Data is the event payload, delivered verbatim in the envelope.
	Data json.RawMessage `json:"data"`
}

// Publish validates and persists an event, then fans out one pending
// delivery per active matching subscription. It returns the number of
// deliveries enqueued.
//
// The critical path:
//  1. Reject unknown event types, validate the payload against the
//     type's JSON Schema if one is registered.
//  2. Persist the event; a duplicate producer event ID reuses the stored
//     event and continues, so retried publishes backfill missing
//     deliveries instead of erroring.
//  3. Serialize the wire envelope once and stamp it on every delivery, so
//     retries send and sign byte-identical bodies.
//  4. Resolve active subscriptions for the type and enqueue, skipping
//     (subscription, event) pairs that already exist.
func (h *Hookline) Publish(ctx context.Context, in PublishInput) (int, error) {
	if in.ID == "" {
		return 0, fmt.Errorf("hookline: event_id is required")
	}
	if in.Type == "" {
		return 0, fmt.Errorf("hookline: event_type is required")
	}

	def, known := h.registry.Get(in.Type)
	if !known {
		return 0, fmt.Errorf("%w: %s", ErrEventTypeUnknown, in.Type)
	}
	if len(def.Schema) > 0 {
		if err := h.validator.Validate(def.Schema, in.Data); err != nil {
			return 0, err
		}
	}

	occurredAt := in.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	evt := &event.Event{
		Entity:     entity.New(),
		ID:         id.NewEventID(),
		Key:        in.ID,
		Type:       in.Type,
		OccurredAt: occurredAt,
		Payload:    in.Data,
	}

	if err := h.store.CreateEvent(ctx, evt); err != nil {
		if !errors.Is(err, ErrDuplicateEvent) {
			return 0, fmt.Errorf("hookline: persist event: %w", err)
		}
		// Known event: the stored row wins, and fan-out still runs so a
		// retry backfills any delivery rows a previous publish never
		// reached. Existing (subscription, event) pairs are skipped.
		stored, getErr := h.store.GetEventByKey(ctx, in.ID)
		if getErr != nil {
			return 0, fmt.Errorf("hookline: load event: %w", getErr)
		}
		evt = stored
		h.logger.DebugContext(ctx, "duplicate publish re-enqueued", "event_id", in.ID)
	}

	envelope, err := evt.MarshalEnvelope()
	if err != nil {
		return 0, fmt.Errorf("hookline: marshal envelope: %w", err)
	}

	subs, err := h.store.ResolveActive(ctx, evt.Type)
	if err != nil {
		return 0, fmt.Errorf("hookline: resolve subscriptions: %w", err)
	}
	if len(subs) == 0 {
		return 0, nil
	}

	now := time.Now().UTC()
	deliveries := make([]*delivery.Delivery, 0, len(subs))
	for _, sub := range subs {
		deliveries = append(deliveries, &delivery.Delivery{
			Entity:         entity.New(),
			ID:             id.NewDeliveryID(),
			SubscriptionID: sub.ID,
			EventID:        evt.ID,
			EventKey:       evt.Key,
			EventType:      evt.Type,
			Payload:        envelope,
			State:          delivery.StatePending,
			MaxAttempts:    h.config.MaxAttempts,
			NextAttemptAt:  now,
		})
	}

	inserted, err := h.store.EnqueueBatch(ctx, deliveries)
	if err != nil {
		return 0, fmt.Errorf("hookline: enqueue deliveries: %w", err)
	}

	if h.metrics != nil {
		h.metrics.EventsPublishedTotal.Inc()
		h.metrics.PendingDeliveries.Add(float64(inserted))
	}

	h.logger.DebugContext(ctx, "event published",
		"event_id", evt.Key,
		"type", evt.Type,
		"deliveries", inserted,
	)

	return inserted, nil
}

// Stats summarizes the engine's queues.
type Stats struct {
	ActiveSubscriptions int                    `json:"active_subscriptions"`
	Deliveries          map[delivery.State]int `json:"deliveries"`
}

// Stats returns active subscription and per-state delivery counts.
func (h *Hookline) Stats(ctx context.Context) (*Stats, error) {
	active, err := h.store.CountActive(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := h.store.CountByState(ctx)
	if err != nil {
		return nil, err
	}
	return &Stats{
		ActiveSubscriptions: active,
		Deliveries:          counts,
	}, nil
}

// Subscriptions returns the subscription management service.
func (h *Hookline) Subscriptions() *subscription.Service {
	return h.subSvc
}

// DeadLetters returns the dead-letter service.
func (h *Hookline) DeadLetters() *deadletter.Service {
	return h.dlSvc
}

// Registry returns the event type registry.
func (h *Hookline) Registry() *eventtype.Registry {
	return h.registry
}

// Store returns the underlying store.
func (h *Hookline) Store() store.Store {
	return h.store
}

// Limiter returns the configured rate limiter, nil when unset.
func (h *Hookline) Limiter() ratelimit.Limiter {
	return h.limiter
}

// Metrics returns the configured metric instruments, nil when unset.
func (h *Hookline) Metrics() *observability.Metrics {
	return h.metrics
}

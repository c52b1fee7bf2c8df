package delivery

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/hooklinehq/hookline/id"
	"github.com/hooklinehq/hookline/observability"
	"github.com/hooklinehq/hookline/subscription"
)

// EngineStore is the interface the engine needs for delivery operations.
type EngineStore interface {
	Claim(ctx context.Context, limit int, now time.Time) ([]*Delivery, error)
	UpdateDelivery(ctx context.Context, d *Delivery) error
	ReleaseStale(ctx context.Context, cutoff time.Time) (int, error)
	GetSubscription(ctx context.Context, subID id.ID) (*subscription.Subscription, error)
	StampLastDelivery(ctx context.Context, subID id.ID, at time.Time) error
}

// AuditTrail records delivery lifecycle transitions. Implementations must
// not fail the calling operation.
type AuditTrail interface {
	DeliverySucceeded(ctx context.Context, d *Delivery)
	DeliveryAttemptFailed(ctx context.Context, d *Delivery, detail string)
	DeliveryDeadLettered(ctx context.Context, d *Delivery, detail string)
	DeliveryAbandoned(ctx context.Context, d *Delivery, reason string)
}

// EngineConfig holds engine configuration.
type EngineConfig struct {
	Concurrency    int
	PollInterval   time.Duration
	BatchSize      int
	RequestTimeout time.Duration
	RetrySchedule  []time.Duration
	SweepInterval  time.Duration
	StaleAfter     time.Duration
	Metrics        *observability.Metrics
	Tracer         *observability.Tracer
}

// Engine is the worker pool that claims due deliveries and attempts them.
// It also runs a sweeper that releases claims abandoned by dead workers.
type Engine struct {
	store   EngineStore
	sender  *Sender
	retrier *Retrier
	audit   AuditTrail
	config  EngineConfig
	logger  *slog.Logger

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewEngine creates a delivery engine. audit may be nil.
func NewEngine(store EngineStore, audit AuditTrail, cfg EngineConfig, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		store:   store,
		sender:  NewSender(cfg.RequestTimeout),
		retrier: NewRetrier(cfg.RetrySchedule),
		audit:   audit,
		config:  cfg,
		logger:  logger,
	}
}

// Start begins the poll loop, workers, and the stale-claim sweeper.
func (e *Engine) Start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		e.pollLoop(ctx)
	}()

	if e.config.SweepInterval > 0 {
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			e.sweepLoop(ctx)
		}()
	}
}

// Stop cancels the loops and waits for in-flight attempts to wind down.
// An attempt interrupted by shutdown is returned to pending without
// consuming budget.
func (e *Engine) Stop(_ context.Context) {
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
}

// pollLoop periodically claims due deliveries and dispatches them to workers.
func (e *Engine) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(e.config.PollInterval)
	defer ticker.Stop()

	sem := make(chan struct{}, e.config.Concurrency)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			batch, err := e.store.Claim(ctx, e.config.BatchSize, time.Now().UTC())
			if err != nil {
				if ctx.Err() == nil {
					e.logger.ErrorContext(ctx, "claim failed", "error", err)
				}
				continue
			}

			for _, d := range batch {
				select {
				case <-ctx.Done():
					// Claimed but never attempted. Release immediately
					// rather than waiting for the sweeper.
					e.release(d)
					continue
				case sem <- struct{}{}:
				}

				e.wg.Add(1)
				go func(del *Delivery) {
					defer e.wg.Done()
					defer func() { <-sem }()
					e.process(ctx, del)
				}(d)
			}
		}
	}
}

// sweepLoop reverts claims held longer than StaleAfter back to pending.
func (e *Engine) sweepLoop(ctx context.Context) {
	ticker := time.NewTicker(e.config.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-e.config.StaleAfter)
			n, err := e.store.ReleaseStale(ctx, cutoff)
			if err != nil {
				if ctx.Err() == nil {
					e.logger.ErrorContext(ctx, "release stale claims failed", "error", err)
				}
				continue
			}
			if n > 0 {
				e.logger.WarnContext(ctx, "released stale delivery claims", "count", n)
			}
		}
	}
}

// process handles one claimed delivery: load subscription, send, decide,
// persist the transition.
func (e *Engine) process(ctx context.Context, d *Delivery) {
	var span trace.Span
	if e.config.Tracer != nil {
		ctx, span = e.config.Tracer.StartDeliverySpan(ctx, d.ID.String(), d.EventID.String(), d.SubscriptionID.String())
	}

	sub, err := e.store.GetSubscription(ctx, d.SubscriptionID)
	switch {
	case errors.Is(err, subscription.ErrNotFound):
		e.abandon(ctx, d, "subscription deleted")
		e.endSpan(span, d)
		return
	case err != nil:
		if ctx.Err() != nil {
			e.release(d)
		} else {
			e.logger.ErrorContext(ctx, "get subscription failed",
				"delivery_id", d.ID, "subscription_id", d.SubscriptionID, "error", err)
			e.release(d)
		}
		e.endSpan(span, d)
		return
	case !sub.Active:
		e.abandon(ctx, d, "subscription inactive")
		e.endSpan(span, d)
		return
	}

	d.AttemptCount++
	result := e.sender.Send(ctx, sub, d)

	// An attempt cut short by shutdown does not count against the budget.
	if result.StatusCode == 0 && ctx.Err() != nil {
		d.AttemptCount--
		e.release(d)
		e.endSpan(span, d)
		return
	}

	d.LastStatusCode = result.StatusCode
	d.LastError = result.Error
	d.LastResponse = result.Response
	d.LastLatencyMs = result.LatencyMs

	latencySeconds := float64(result.LatencyMs) / 1000.0

	switch e.retrier.Decide(result, d) {
	case Delivered:
		now := time.Now().UTC()
		d.State = StateDelivered
		d.CompletedAt = &now
		if stampErr := e.store.StampLastDelivery(ctx, sub.ID, now); stampErr != nil {
			e.logger.ErrorContext(ctx, "stamp last delivery failed",
				"subscription_id", sub.ID, "error", stampErr)
		}
		if e.config.Metrics != nil {
			e.config.Metrics.RecordDelivery("delivered", latencySeconds)
			e.config.Metrics.PendingDeliveries.Dec()
		}
		if e.audit != nil {
			e.audit.DeliverySucceeded(ctx, d)
		}
		e.logger.DebugContext(ctx, "delivered",
			"delivery_id", d.ID, "status", result.StatusCode, "latency_ms", result.LatencyMs)

	case Retry:
		d.State = StatePending
		d.NextAttemptAt = e.retrier.NextAttempt(d.AttemptCount, time.Now().UTC())
		if e.config.Metrics != nil {
			e.config.Metrics.RecordDelivery("retried", latencySeconds)
		}
		if e.audit != nil {
			e.audit.DeliveryAttemptFailed(ctx, d, attemptDetail(result))
		}
		e.logger.DebugContext(ctx, "retry scheduled",
			"delivery_id", d.ID, "attempt", d.AttemptCount, "next_at", d.NextAttemptAt)

	case DeadLetter:
		now := time.Now().UTC()
		d.State = StateDeadLettered
		d.CompletedAt = &now
		if e.config.Metrics != nil {
			e.config.Metrics.RecordDelivery("dead_lettered", latencySeconds)
			e.config.Metrics.PendingDeliveries.Dec()
			e.config.Metrics.DeadLetteredSize.Inc()
		}
		if e.audit != nil {
			e.audit.DeliveryDeadLettered(ctx, d, attemptDetail(result))
		}
		e.logger.WarnContext(ctx, "delivery dead-lettered",
			"delivery_id", d.ID, "attempts", d.AttemptCount, "status", result.StatusCode, "error", result.Error)
	}

	e.endSpan(span, d)

	if updateErr := e.store.UpdateDelivery(e.persistCtx(ctx), d); updateErr != nil {
		e.logger.Error("update delivery failed",
			"delivery_id", d.ID, "error", updateErr)
	}
}

// abandon marks a delivery failed because its subscription is gone or
// inactive.
func (e *Engine) abandon(ctx context.Context, d *Delivery, reason string) {
	now := time.Now().UTC()
	d.State = StateFailed
	d.LastError = reason
	d.CompletedAt = &now

	if e.config.Metrics != nil {
		e.config.Metrics.RecordDelivery("abandoned", 0)
		e.config.Metrics.PendingDeliveries.Dec()
	}
	if e.audit != nil {
		e.audit.DeliveryAbandoned(ctx, d, reason)
	}
	e.logger.InfoContext(ctx, "delivery abandoned",
		"delivery_id", d.ID, "subscription_id", d.SubscriptionID, "reason", reason)

	if err := e.store.UpdateDelivery(e.persistCtx(ctx), d); err != nil {
		e.logger.Error("update delivery failed", "delivery_id", d.ID, "error", err)
	}
}

// release returns a claimed delivery to pending without consuming budget.
// Used when shutdown interrupts an attempt before a verdict.
func (e *Engine) release(d *Delivery) {
	d.State = StatePending
	if err := e.store.UpdateDelivery(context.Background(), d); err != nil {
		e.logger.Error("release delivery failed", "delivery_id", d.ID, "error", err)
	}
}

// persistCtx detaches persistence from request cancellation so a verdict
// reached mid-shutdown still lands in the store.
func (e *Engine) persistCtx(ctx context.Context) context.Context {
	return context.WithoutCancel(ctx)
}

func (e *Engine) endSpan(span trace.Span, d *Delivery) {
	if span != nil {
		e.config.Tracer.EndDeliverySpan(span, d.LastStatusCode, d.LastLatencyMs, d.LastError)
	}
}

func attemptDetail(res Result) string {
	if res.Error != "" {
		return res.Error
	}
	return res.Response
}

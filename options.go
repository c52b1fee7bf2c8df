package hookline

import (
	"log/slog"
	"time"

	"github.com/hooklinehq/hookline/audit"
	"github.com/hooklinehq/hookline/deadletter"
	"github.com/hooklinehq/hookline/delivery"
	"github.com/hooklinehq/hookline/eventtype"
	"github.com/hooklinehq/hookline/observability"
	"github.com/hooklinehq/hookline/ratelimit"
	"github.com/hooklinehq/hookline/store"
	"github.com/hooklinehq/hookline/subscription"
)

// Hookline is the root webhook subscription and delivery engine.
type Hookline struct {
	config    Config
	store     store.Store
	registry  *eventtype.Registry
	validator *eventtype.Validator
	limiter   ratelimit.Limiter
	recorder  *audit.Recorder
	subSvc    *subscription.Service
	dlSvc     *deadletter.Service
	engine    *delivery.Engine
	metrics   *observability.Metrics
	tracer    *observability.Tracer
	logger    *slog.Logger
}

// Option configures a Hookline instance.
type Option func(*Hookline) error

// New creates a new Hookline with the given options.
func New(opts ...Option) (*Hookline, error) {
	h := &Hookline{
		config: DefaultConfig(),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(h); err != nil {
			return nil, err
		}
	}
	if h.store == nil {
		return nil, ErrNoStore
	}
	h.wireServices()
	return h, nil
}

// WithStore sets the persistence backend for the Hookline instance.
func WithStore(s store.Store) Option {
	return func(h *Hookline) error {
		h.store = s
		return nil
	}
}

// WithLogger sets the structured logger for the Hookline instance.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Hookline) error {
		h.logger = logger
		return nil
	}
}

// WithRateLimiter sets the limiter applied to subscription management
// operations. Without one, those operations are unlimited.
func WithRateLimiter(l ratelimit.Limiter) Option {
	return func(h *Hookline) error {
		h.limiter = l
		return nil
	}
}

// WithMetrics sets the metric instruments for the delivery pipeline.
func WithMetrics(m *observability.Metrics) Option {
	return func(h *Hookline) error {
		h.metrics = m
		return nil
	}
}

// WithTracer sets the OpenTelemetry tracer for delivery attempts.
func WithTracer(t *observability.Tracer) Option {
	return func(h *Hookline) error {
		h.tracer = t
		return nil
	}
}

// WithConcurrency sets the number of delivery worker goroutines.
func WithConcurrency(n int) Option {
	return func(h *Hookline) error {
		h.config.Concurrency = n
		return nil
	}
}

// WithPollInterval sets how often the engine checks for due deliveries.
func WithPollInterval(d time.Duration) Option {
	return func(h *Hookline) error {
		h.config.PollInterval = d
		return nil
	}
}

// WithBatchSize sets the maximum number of deliveries claimed per poll cycle.
func WithBatchSize(n int) Option {
	return func(h *Hookline) error {
		h.config.BatchSize = n
		return nil
	}
}

// WithRequestTimeout sets the HTTP timeout per delivery attempt.
func WithRequestTimeout(d time.Duration) Option {
	return func(h *Hookline) error {
		h.config.RequestTimeout = d
		return nil
	}
}

// WithMaxAttempts sets the number of delivery attempts before dead-lettering.
func WithMaxAttempts(n int) Option {
	return func(h *Hookline) error {
		h.config.MaxAttempts = n
		return nil
	}
}

// WithBackoffSchedule sets the fixed delays applied between retry attempts.
func WithBackoffSchedule(schedule []time.Duration) Option {
	return func(h *Hookline) error {
		h.config.BackoffSchedule = schedule
		return nil
	}
}

// WithSweepInterval sets how often stale delivery claims are released.
func WithSweepInterval(d time.Duration) Option {
	return func(h *Hookline) error {
		h.config.SweepInterval = d
		return nil
	}
}

// WithStaleAfter sets how long a claim may be held before the sweeper
// considers its worker dead.
func WithStaleAfter(d time.Duration) Option {
	return func(h *Hookline) error {
		h.config.StaleAfter = d
		return nil
	}
}

// WithShutdownTimeout sets the maximum time to wait for in-flight
// deliveries on shutdown.
func WithShutdownTimeout(d time.Duration) Option {
	return func(h *Hookline) error {
		h.config.ShutdownTimeout = d
		return nil
	}
}

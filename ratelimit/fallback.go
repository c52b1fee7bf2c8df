package ratelimit

import (
	"context"
	"log/slog"
	"time"
)

// FallbackLimiter wraps a primary limiter (typically Redis-backed) with an
// in-process fallback. When the primary returns an error the decision is made
// by the fallback instead, so a counter-backend outage degrades limiting to
// per-process accuracy rather than failing management requests outright.
type FallbackLimiter struct {
	primary  Limiter
	fallback Limiter
	logger   *slog.Logger
}

// NewFallbackLimiter wraps primary with an in-memory fallback. A nil logger
// falls back to slog.Default().
func NewFallbackLimiter(primary Limiter, logger *slog.Logger) *FallbackLimiter {
	if logger == nil {
		logger = slog.Default()
	}
	return &FallbackLimiter{
		primary:  primary,
		fallback: NewMemoryLimiter(),
		logger:   logger,
	}
}

// Allow implements Limiter. Primary errors are logged, not returned; the
// fallback's decision stands.
func (l *FallbackLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, time.Duration, error) {
	allowed, retryAfter, err := l.primary.Allow(ctx, key, limit, window)
	if err == nil {
		return allowed, retryAfter, nil
	}
	l.logger.WarnContext(ctx, "rate limit backend unavailable, using in-memory fallback",
		"key", key,
		"error", err,
	)
	return l.fallback.Allow(ctx, key, limit, window)
}

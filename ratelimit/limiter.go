// Package ratelimit provides per-user, per-action rolling-window rate
// limiting for subscription management operations.
//
// The limiter is modeled as an externally-owned counting service behind a
// narrow interface so that horizontally scaled API instances agree on the
// count. RedisLimiter is the production implementation; MemoryLimiter is a
// single-process fallback for tests and degraded operation.
package ratelimit

import (
	"context"
	"fmt"
	"time"
)

// Limiter is the narrow increment-and-check contract shared by all
// implementations. Allow records one use of key and reports whether the
// caller is within limit for the rolling window. When denied, retryAfter
// hints how long until the oldest counted use leaves the window, and the
// denied request is not counted.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (allowed bool, retryAfter time.Duration, err error)
}

// Action names the rate-limited subscription management operations.
type Action string

const (
	ActionCreateSubscription Action = "subscription_create"
	ActionRotateSecret       Action = "secret_rotate"
	ActionListDeliveries     Action = "delivery_list"
)

// Policy pairs a window with its request budget.
type Policy struct {
	Limit  int
	Window time.Duration
}

// Per-action budgets. Exceeding one fails the request without consuming the
// limited resource.
var (
	PolicyCreateSubscription = Policy{Limit: 10, Window: time.Hour}
	PolicyRotateSecret       = Policy{Limit: 5, Window: time.Hour}
	PolicyListDeliveries     = Policy{Limit: 60, Window: time.Minute}
)

// Key builds the counter key for one owner and action.
func Key(owner string, action Action) string {
	return "ratelimit:" + string(action) + ":" + owner
}

// Check applies a policy for one owner/action pair and converts a denial
// into a *LimitExceededError. A nil limiter allows everything.
func Check(ctx context.Context, l Limiter, owner string, action Action, p Policy) error {
	if l == nil {
		return nil
	}
	allowed, retryAfter, err := l.Allow(ctx, Key(owner, action), p.Limit, p.Window)
	if err != nil {
		return fmt.Errorf("ratelimit: check %s: %w", action, err)
	}
	if !allowed {
		return &LimitExceededError{Action: action, Limit: p.Limit, Window: p.Window, RetryAfter: retryAfter}
	}
	return nil
}

// LimitExceededError is returned when an owner exhausts an action's budget.
type LimitExceededError struct {
	Action     Action
	Limit      int
	Window     time.Duration
	RetryAfter time.Duration
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("ratelimit: %s exceeded %d per %s, retry after %s",
		e.Action, e.Limit, e.Window, e.RetryAfter.Round(time.Second))
}

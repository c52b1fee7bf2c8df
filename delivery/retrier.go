package delivery

import "time"

// Decision is the outcome of evaluating a delivery attempt.
type Decision int

const (
	// Delivered means the destination acknowledged with a 2xx.
	Delivered Decision = iota

	// Retry means the delivery should be returned to pending with a
	// backoff applied.
	Retry

	// DeadLetter means the attempt budget is exhausted.
	DeadLetter
)

// Result holds the outcome of a single delivery attempt.
type Result struct {
	StatusCode int
	Error      string
	Response   string
	LatencyMs  int
}

// Retrier decides what to do after a delivery attempt. The backoff
// schedule is fixed per attempt number; there is no jitter, so retry
// timing is exactly predictable from the attempt count.
type Retrier struct {
	schedule []time.Duration
}

// NewRetrier creates a retrier with the given backoff schedule.
func NewRetrier(schedule []time.Duration) *Retrier {
	return &Retrier{schedule: schedule}
}

// Decide determines what to do with a delivery after an attempt. Any
// non-2xx status, timeout, or connection error is a failed attempt; the
// destination gets the full attempt budget regardless of status class.
func (r *Retrier) Decide(res Result, d *Delivery) Decision {
	if res.StatusCode >= 200 && res.StatusCode < 300 {
		return Delivered
	}
	if d.AttemptCount < d.MaxAttempts {
		return Retry
	}
	return DeadLetter
}

// NextAttempt returns when the next attempt becomes eligible, based on how
// many attempts have been made. Attempt counts past the schedule reuse its
// last entry.
func (r *Retrier) NextAttempt(attemptCount int, now time.Time) time.Time {
	idx := attemptCount - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(r.schedule) {
		idx = len(r.schedule) - 1
	}
	return now.Add(r.schedule[idx])
}

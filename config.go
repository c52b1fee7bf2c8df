package hookline

import "time"

// Config holds the configuration for a hookline engine instance.
type Config struct {
	// Concurrency is the number of delivery worker goroutines.
	Concurrency int

	// PollInterval is how often the delivery engine checks for due deliveries.
	PollInterval time.Duration

	// BatchSize is the maximum number of deliveries claimed per poll cycle.
	BatchSize int

	// RequestTimeout is the HTTP timeout per delivery attempt. A slow
	// destination that responds after the timeout still counts as a failure.
	RequestTimeout time.Duration

	// MaxAttempts is the number of delivery attempts before dead-lettering.
	MaxAttempts int

	// BackoffSchedule defines the delay after the Nth failed attempt.
	BackoffSchedule []time.Duration

	// SweepInterval is how often the reaper scans for deliveries stuck in
	// the delivering state by a crashed worker.
	SweepInterval time.Duration

	// StaleAfter is how long a delivery may sit in the delivering state
	// before the reaper reverts it to pending.
	StaleAfter time.Duration

	// ShutdownTimeout is the maximum time to wait for in-flight deliveries on shutdown.
	ShutdownTimeout time.Duration
}

// DefaultBackoffSchedule is the fixed retry backoff table: the delay applied
// after the 1st, 2nd, 3rd, 4th and 5th failed attempt.
var DefaultBackoffSchedule = []time.Duration{
	30 * time.Second,
	60 * time.Second,
	2 * time.Minute,
	4 * time.Minute,
	8 * time.Minute,
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		Concurrency:     10,
		PollInterval:    1 * time.Second,
		BatchSize:       50,
		RequestTimeout:  10 * time.Second,
		MaxAttempts:     5,
		BackoffSchedule: DefaultBackoffSchedule,
		SweepInterval:   1 * time.Minute,
		StaleAfter:      5 * time.Minute,
		ShutdownTimeout: 30 * time.Second,
	}
}

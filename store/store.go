// Package store defines the composite Store interface for all hookline
// persistence.
//
// Each subsystem defines its own store interface and the aggregate Store
// composes them all.
package store

import (
	"context"

	"github.com/hooklinehq/hookline/audit"
	"github.com/hooklinehq/hookline/delivery"
	"github.com/hooklinehq/hookline/event"
	"github.com/hooklinehq/hookline/subscription"
)

// Store is the aggregate persistence interface.
type Store interface {
	subscription.Store
	event.Store
	delivery.Store
	audit.Store

	// Migrate runs all schema migrations.
	Migrate(ctx context.Context) error

	// Ping checks database connectivity.
	Ping(ctx context.Context) error

	// Close closes the store connection.
	Close() error
}

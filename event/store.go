package event

import (
	"context"
	"errors"

	"github.com/hooklinehq/hookline/id"
)

var (
	// ErrDuplicate is returned when an event with the same producer
	// event ID already exists. Intake treats it as a no-op.
	ErrDuplicate = errors.New("event: duplicate producer event id")

	// ErrNotFound is returned when an event does not exist.
	ErrNotFound = errors.New("event: not found")
)

// Store defines the persistence contract for domain events.
type Store interface {
	// CreateEvent persists an event. Must be durable before returning.
	// Returns ErrDuplicate if an event with the same Key already exists.
	CreateEvent(ctx context.Context, evt *Event) error

	// GetEvent returns an event by internal ID.
	GetEvent(ctx context.Context, evtID id.ID) (*Event, error)

	// GetEventByKey returns an event by producer event ID.
	GetEventByKey(ctx context.Context, key string) (*Event, error)

	// ListEvents returns events, optionally filtered by type or time range.
	ListEvents(ctx context.Context, opts ListOpts) ([]*Event, error)
}

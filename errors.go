package hookline

import (
	"errors"

	"github.com/hooklinehq/hookline/delivery"
	"github.com/hooklinehq/hookline/event"
	"github.com/hooklinehq/hookline/eventtype"
	"github.com/hooklinehq/hookline/subscription"
)

// Sentinel errors returned by hookline operations. Domain packages own
// their sentinels; the aliases here let callers match everything from one
// import.
var (
	// ErrNoStore is returned when a Hookline is created without a store.
	ErrNoStore = errors.New("hookline: store is required")

	// ErrStoreClosed is returned when a store operation is attempted
	// after the store is closed.
	ErrStoreClosed = errors.New("hookline: store is closed")

	// ErrSubscriptionNotFound is returned when a subscription cannot be
	// found. Ownership checks return it as well, so callers cannot probe
	// for subscriptions they do not own.
	ErrSubscriptionNotFound = subscription.ErrNotFound

	// ErrEventTypeUnknown is returned when publishing an event whose
	// type is not registered.
	ErrEventTypeUnknown = eventtype.ErrUnknownType

	// ErrPayloadValidationFailed is returned when event data fails its
	// type's JSON Schema.
	ErrPayloadValidationFailed = eventtype.ErrValidationFailed

	// ErrDuplicateEvent is returned by stores when an event with the
	// same producer event ID already exists. Publish treats it as a
	// no-op.
	ErrDuplicateEvent = event.ErrDuplicate

	// ErrEventNotFound is returned when an event cannot be found.
	ErrEventNotFound = event.ErrNotFound

	// ErrDeliveryNotFound is returned when a delivery cannot be found.
	ErrDeliveryNotFound = delivery.ErrNotFound

	// ErrNotDeadLettered is returned when requeueing a delivery that is
	// not in the dead_lettered state.
	ErrNotDeadLettered = delivery.ErrNotDeadLettered
)

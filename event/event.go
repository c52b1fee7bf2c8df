package event

import (
	"encoding/json"
	"time"

	"github.com/hooklinehq/hookline/id"
	"github.com/hooklinehq/hookline/internal/entity"
)

// Event is a domain event accepted for delivery. The payload is immutable
// once persisted; the engine never transforms it beyond canonical JSON
// serialization into the wire envelope.
type Event struct {
	entity.Entity

	// ID is the unique TypeID for this event row.
	ID id.ID `json:"id"`

	// Key is the producer-supplied event identifier. Publishing the same key
	// twice is idempotent, and subscribers receive it as their idempotency key.
	Key string `json:"event_id"`

	// Type is the dot-separated event type tag (e.g. "clip.approved").
	Type string `json:"event_type"`

	// OccurredAt is when the event happened in the producing system.
	OccurredAt time.Time `json:"occurred_at"`

	// Payload is the producer's event data, stored verbatim.
	Payload json.RawMessage `json:"data"`
}

// Envelope is the canonical JSON wire format delivered to subscribers.
// Signatures are computed over the exact serialized envelope bytes.
type Envelope struct {
	EventID    string          `json:"event_id"`
	EventType  string          `json:"event_type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// MarshalEnvelope serializes the wire envelope for this event. The result is
// produced exactly once per event at intake and stored on each delivery, so
// every attempt transmits and signs byte-identical payloads.
func (e *Event) MarshalEnvelope() ([]byte, error) {
	return json.Marshal(Envelope{
		EventID:    e.Key,
		EventType:  e.Type,
		OccurredAt: e.OccurredAt.UTC(),
		Data:       e.Payload,
	})
}

// ListOpts configures filtering and pagination for event listing.
type ListOpts struct {
	Offset int
	Limit  int
	Type   string
	From   *time.Time
	To     *time.Time
}

package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/xraph/grove"

	"github.com/hooklinehq/hookline/audit"
	"github.com/hooklinehq/hookline/delivery"
	"github.com/hooklinehq/hookline/event"
	"github.com/hooklinehq/hookline/id"
	"github.com/hooklinehq/hookline/internal/entity"
	"github.com/hooklinehq/hookline/subscription"
)

// --- Subscription models ---

type subscriptionModel struct {
	grove.BaseModel `grove:"table:hookline_subscriptions"`

	ID              string     `grove:"id,pk"`
	OwnerID         string     `grove:"owner_id"`
	URL             string     `grove:"url"`
	Description     string     `grove:"description"`
	Secret          string     `grove:"secret"`
	EventTypes      []string   `grove:"event_types,array"`
	Active          bool       `grove:"active"`
	SecretRotatedAt *time.Time `grove:"secret_rotated_at"`
	LastDeliveryAt  *time.Time `grove:"last_delivery_at"`
	CreatedAt       time.Time  `grove:"created_at"`
	UpdatedAt       time.Time  `grove:"updated_at"`
}

func toSubscriptionModel(sub *subscription.Subscription) *subscriptionModel {
	m := &subscriptionModel{
		ID:          sub.ID.String(),
		OwnerID:     sub.OwnerID,
		URL:         sub.URL,
		Description: sub.Description,
		Secret:      sub.Secret,
		EventTypes:  sub.EventTypes,
		Active:      sub.Active,
		CreatedAt:   sub.CreatedAt,
		UpdatedAt:   sub.UpdatedAt,
	}
	if !sub.SecretRotatedAt.IsZero() {
		t := sub.SecretRotatedAt
		m.SecretRotatedAt = &t
	}
	if !sub.LastDeliveryAt.IsZero() {
		t := sub.LastDeliveryAt
		m.LastDeliveryAt = &t
	}
	return m
}

func fromSubscriptionModel(m *subscriptionModel) (*subscription.Subscription, error) {
	subID, err := id.ParseSubscriptionID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse subscription ID %q: %w", m.ID, err)
	}
	sub := &subscription.Subscription{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:          subID,
		OwnerID:     m.OwnerID,
		URL:         m.URL,
		Description: m.Description,
		Secret:      m.Secret,
		EventTypes:  m.EventTypes,
		Active:      m.Active,
	}
	if m.SecretRotatedAt != nil {
		sub.SecretRotatedAt = *m.SecretRotatedAt
	}
	if m.LastDeliveryAt != nil {
		sub.LastDeliveryAt = *m.LastDeliveryAt
	}
	return sub, nil
}

// --- Event models ---

type eventModel struct {
	grove.BaseModel `grove:"table:hookline_events"`

	ID         string          `grove:"id,pk"`
	Key        string          `grove:"event_key,unique"`
	Type       string          `grove:"type"`
	OccurredAt time.Time       `grove:"occurred_at"`
	Payload    json.RawMessage `grove:"payload,type:jsonb"`
	CreatedAt  time.Time       `grove:"created_at"`
	UpdatedAt  time.Time       `grove:"updated_at"`
}

func toEventModel(evt *event.Event) *eventModel {
	return &eventModel{
		ID:         evt.ID.String(),
		Key:        evt.Key,
		Type:       evt.Type,
		OccurredAt: evt.OccurredAt,
		Payload:    evt.Payload,
		CreatedAt:  evt.CreatedAt,
		UpdatedAt:  evt.UpdatedAt,
	}
}

func fromEventModel(m *eventModel) (*event.Event, error) {
	evtID, err := id.ParseEventID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse event ID %q: %w", m.ID, err)
	}
	return &event.Event{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:         evtID,
		Key:        m.Key,
		Type:       m.Type,
		OccurredAt: m.OccurredAt,
		Payload:    m.Payload,
	}, nil
}

// --- Delivery models ---

type deliveryModel struct {
	grove.BaseModel `grove:"table:hookline_deliveries"`

	ID             string          `grove:"id,pk"`
	SubscriptionID string          `grove:"subscription_id"`
	EventID        string          `grove:"event_id"`
	EventKey       string          `grove:"event_key"`
	EventType      string          `grove:"event_type"`
	Payload        json.RawMessage `grove:"payload,type:jsonb"`
	State          string          `grove:"state"`
	AttemptCount   int             `grove:"attempt_count"`
	MaxAttempts    int             `grove:"max_attempts"`
	NextAttemptAt  time.Time       `grove:"next_attempt_at"`
	LastStatusCode int             `grove:"last_status_code"`
	LastError      string          `grove:"last_error"`
	LastResponse   string          `grove:"last_response"`
	LastLatencyMs  int             `grove:"last_latency_ms"`
	ClaimedAt      *time.Time      `grove:"claimed_at"`
	CompletedAt    *time.Time      `grove:"completed_at"`
	CreatedAt      time.Time       `grove:"created_at"`
	UpdatedAt      time.Time       `grove:"updated_at"`
}

func toDeliveryModel(d *delivery.Delivery) *deliveryModel {
	return &deliveryModel{
		ID:             d.ID.String(),
		SubscriptionID: d.SubscriptionID.String(),
		EventID:        d.EventID.String(),
		EventKey:       d.EventKey,
		EventType:      d.EventType,
		Payload:        d.Payload,
		State:          string(d.State),
		AttemptCount:   d.AttemptCount,
		MaxAttempts:    d.MaxAttempts,
		NextAttemptAt:  d.NextAttemptAt,
		LastStatusCode: d.LastStatusCode,
		LastError:      d.LastError,
		LastResponse:   d.LastResponse,
		LastLatencyMs:  d.LastLatencyMs,
		CompletedAt:    d.CompletedAt,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

func fromDeliveryModel(m *deliveryModel) (*delivery.Delivery, error) {
	dID, err := id.ParseDeliveryID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse delivery ID %q: %w", m.ID, err)
	}
	subID, err := id.ParseSubscriptionID(m.SubscriptionID)
	if err != nil {
		return nil, fmt.Errorf("parse subscription ID %q: %w", m.SubscriptionID, err)
	}
	evtID, err := id.ParseEventID(m.EventID)
	if err != nil {
		return nil, fmt.Errorf("parse event ID %q: %w", m.EventID, err)
	}
	return &delivery.Delivery{
		Entity: entity.Entity{
			CreatedAt: m.CreatedAt,
			UpdatedAt: m.UpdatedAt,
		},
		ID:             dID,
		SubscriptionID: subID,
		EventID:        evtID,
		EventKey:       m.EventKey,
		EventType:      m.EventType,
		Payload:        m.Payload,
		State:          delivery.State(m.State),
		AttemptCount:   m.AttemptCount,
		MaxAttempts:    m.MaxAttempts,
		NextAttemptAt:  m.NextAttemptAt,
		LastStatusCode: m.LastStatusCode,
		LastError:      m.LastError,
		LastResponse:   m.LastResponse,
		LastLatencyMs:  m.LastLatencyMs,
		CompletedAt:    m.CompletedAt,
	}, nil
}

// --- Audit models ---

type auditEntryModel struct {
	grove.BaseModel `grove:"table:hookline_audit"`

	ID             string    `grove:"id,pk"`
	SubscriptionID string    `grove:"subscription_id"`
	DeliveryID     string    `grove:"delivery_id"`
	EventType      string    `grove:"event_type"`
	Kind           string    `grove:"kind"`
	StatusCode     int       `grove:"status_code"`
	Attempt        int       `grove:"attempt"`
	Detail         string    `grove:"detail"`
	CreatedAt      time.Time `grove:"created_at"`
}

func toAuditEntryModel(e *audit.Entry) *auditEntryModel {
	m := &auditEntryModel{
		ID:             e.ID.String(),
		SubscriptionID: e.SubscriptionID.String(),
		EventType:      e.EventType,
		Kind:           string(e.Kind),
		StatusCode:     e.StatusCode,
		Attempt:        e.Attempt,
		Detail:         e.Detail,
		CreatedAt:      e.CreatedAt,
	}
	if !e.DeliveryID.IsNil() {
		m.DeliveryID = e.DeliveryID.String()
	}
	return m
}

func fromAuditEntryModel(m *auditEntryModel) (*audit.Entry, error) {
	audID, err := id.ParseAuditID(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse audit ID %q: %w", m.ID, err)
	}
	subID, err := id.ParseSubscriptionID(m.SubscriptionID)
	if err != nil {
		return nil, fmt.Errorf("parse subscription ID %q: %w", m.SubscriptionID, err)
	}
	e := &audit.Entry{
		ID:             audID,
		SubscriptionID: subID,
		EventType:      m.EventType,
		Kind:           audit.Kind(m.Kind),
		StatusCode:     m.StatusCode,
		Attempt:        m.Attempt,
		Detail:         m.Detail,
		CreatedAt:      m.CreatedAt,
	}
	if m.DeliveryID != "" {
		dID, err := id.ParseDeliveryID(m.DeliveryID)
		if err != nil {
			return nil, fmt.Errorf("parse delivery ID %q: %w", m.DeliveryID, err)
		}
		e.DeliveryID = dID
	}
	return e, nil
}

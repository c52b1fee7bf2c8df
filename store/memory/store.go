// Package memory provides an in-memory Store implementation for unit testing.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/hooklinehq/hookline"
	"github.com/hooklinehq/hookline/audit"
	"github.com/hooklinehq/hookline/delivery"
	"github.com/hooklinehq/hookline/event"
	"github.com/hooklinehq/hookline/id"
	hookstore "github.com/hooklinehq/hookline/store"
	"github.com/hooklinehq/hookline/subscription"
)

// compile-time interface check.
var _ hookstore.Store = (*Store)(nil)

// Store is an in-memory implementation of store.Store for testing.
type Store struct {
	mu sync.RWMutex

	subscriptions map[string]*subscription.Subscription // keyed by ID string
	events        map[string]*event.Event               // keyed by ID string
	eventsByKey   map[string]*event.Event               // keyed by producer event ID
	deliveries    map[string]*delivery.Delivery         // keyed by ID string
	deliveryKeys  map[string]string                     // (subscription, event key) -> delivery ID
	claimedAt     map[string]time.Time                  // delivering rows by ID string
	auditEntries  []*audit.Entry

	closed bool
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		subscriptions: make(map[string]*subscription.Subscription),
		events:        make(map[string]*event.Event),
		eventsByKey:   make(map[string]*event.Event),
		deliveries:    make(map[string]*delivery.Delivery),
		deliveryKeys:  make(map[string]string),
		claimedAt:     make(map[string]time.Time),
	}
}

// ──────────────────────────────────────────────────
// Lifecycle
// ──────────────────────────────────────────────────

// Migrate is a no-op for the in-memory store.
func (s *Store) Migrate(_ context.Context) error { return nil }

// Ping is a no-op for the in-memory store.
func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return hookline.ErrStoreClosed
	}
	return nil
}

// Close marks the store as closed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// ──────────────────────────────────────────────────
// subscription.Store
// ──────────────────────────────────────────────────

// CreateSubscription persists a new subscription.
func (s *Store) CreateSubscription(_ context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.subscriptions[sub.ID.String()] = copySubscription(sub)
	return nil
}

// GetSubscription returns a subscription by ID.
func (s *Store) GetSubscription(_ context.Context, subID id.ID) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.subscriptions[subID.String()]
	if !ok {
		return nil, subscription.ErrNotFound
	}
	return copySubscription(sub), nil
}

// ListSubscriptions returns the owner's subscriptions, newest first.
func (s *Store) ListSubscriptions(_ context.Context, ownerID string, opts subscription.ListOpts) ([]*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*subscription.Subscription, 0, len(s.subscriptions))
	for _, sub := range s.subscriptions {
		if sub.OwnerID != ownerID {
			continue
		}
		result = append(result, copySubscription(sub))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	result = applyPagination(result, opts.Offset, opts.Limit)
	return result, nil
}

// UpdateSubscription modifies an existing subscription.
func (s *Store) UpdateSubscription(_ context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.subscriptions[sub.ID.String()]
	if !ok {
		return subscription.ErrNotFound
	}
	cp := copySubscription(sub)
	cp.Secret = existing.Secret
	cp.SecretRotatedAt = existing.SecretRotatedAt
	s.subscriptions[sub.ID.String()] = cp
	return nil
}

// UpdateSecret replaces the signing secret.
func (s *Store) UpdateSecret(_ context.Context, subID id.ID, secret string, rotatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subscriptions[subID.String()]
	if !ok {
		return subscription.ErrNotFound
	}
	sub.Secret = secret
	sub.SecretRotatedAt = rotatedAt
	sub.UpdatedAt = rotatedAt
	return nil
}

// DeleteSubscription removes a subscription.
func (s *Store) DeleteSubscription(_ context.Context, subID id.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.subscriptions[subID.String()]; !ok {
		return subscription.ErrNotFound
	}
	delete(s.subscriptions, subID.String())
	return nil
}

// ResolveActive finds all active subscriptions whose filter includes the
// event type.
func (s *Store) ResolveActive(_ context.Context, eventType string) ([]*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*subscription.Subscription
	for _, sub := range s.subscriptions {
		if !sub.Active {
			continue
		}
		if sub.Subscribed(eventType) {
			result = append(result, copySubscription(sub))
		}
	}
	return result, nil
}

// StampLastDelivery records the latest successful delivery time.
func (s *Store) StampLastDelivery(_ context.Context, subID id.ID, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sub, ok := s.subscriptions[subID.String()]
	if !ok {
		return subscription.ErrNotFound
	}
	if at.After(sub.LastDeliveryAt) {
		sub.LastDeliveryAt = at
	}
	return nil
}

// CountActive returns the number of active subscriptions.
func (s *Store) CountActive(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var count int
	for _, sub := range s.subscriptions {
		if sub.Active {
			count++
		}
	}
	return count, nil
}

// ──────────────────────────────────────────────────
// event.Store
// ──────────────────────────────────────────────────

// CreateEvent persists an event. Returns event.ErrDuplicate on a producer
// event ID conflict.
func (s *Store) CreateEvent(_ context.Context, evt *event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.eventsByKey[evt.Key]; ok {
		return event.ErrDuplicate
	}

	s.events[evt.ID.String()] = evt
	s.eventsByKey[evt.Key] = evt
	return nil
}

// GetEvent returns an event by internal ID.
func (s *Store) GetEvent(_ context.Context, evtID id.ID) (*event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	evt, ok := s.events[evtID.String()]
	if !ok {
		return nil, event.ErrNotFound
	}
	return evt, nil
}

// GetEventByKey returns an event by producer event ID.
func (s *Store) GetEventByKey(_ context.Context, key string) (*event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	evt, ok := s.eventsByKey[key]
	if !ok {
		return nil, event.ErrNotFound
	}
	return evt, nil
}

// ListEvents returns events, optionally filtered, newest first.
func (s *Store) ListEvents(_ context.Context, opts event.ListOpts) ([]*event.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*event.Event, 0, len(s.events))
	for _, evt := range s.events {
		if !matchEventOpts(evt, opts) {
			continue
		}
		result = append(result, evt)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	result = applyPagination(result, opts.Offset, opts.Limit)
	return result, nil
}

// ──────────────────────────────────────────────────
// delivery.Store
// ──────────────────────────────────────────────────

// Enqueue creates a pending delivery, skipping duplicates for the same
// (subscription, event key) pair.
func (s *Store) Enqueue(_ context.Context, d *delivery.Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.enqueueLocked(d)
	return nil
}

// EnqueueBatch creates the deliveries, skipping duplicates, and returns
// how many were inserted.
func (s *Store) EnqueueBatch(_ context.Context, ds []*delivery.Delivery) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var inserted int
	for _, d := range ds {
		if s.enqueueLocked(d) {
			inserted++
		}
	}
	return inserted, nil
}

func (s *Store) enqueueLocked(d *delivery.Delivery) bool {
	key := dedupKey(d.SubscriptionID, d.EventKey)
	if _, ok := s.deliveryKeys[key]; ok {
		return false
	}
	s.deliveries[d.ID.String()] = copyDelivery(d)
	s.deliveryKeys[key] = d.ID.String()
	return true
}

// Claim atomically moves up to limit due pending deliveries to delivering.
// Returns copies so workers can mutate without holding a lock.
func (s *Store) Claim(_ context.Context, limit int, now time.Time) ([]*delivery.Delivery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	candidates := make([]*delivery.Delivery, 0, len(s.deliveries))
	for _, d := range s.deliveries {
		if d.State != delivery.StatePending {
			continue
		}
		if d.NextAttemptAt.After(now) {
			continue
		}
		candidates = append(candidates, d)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].NextAttemptAt.Before(candidates[j].NextAttemptAt)
	})

	if limit > 0 && limit < len(candidates) {
		candidates = candidates[:limit]
	}

	result := make([]*delivery.Delivery, 0, len(candidates))
	for _, d := range candidates {
		d.State = delivery.StateDelivering
		d.UpdatedAt = now
		s.claimedAt[d.ID.String()] = now
		result = append(result, copyDelivery(d))
	}

	return result, nil
}

// UpdateDelivery persists a delivery's attempt fields and releases its claim.
func (s *Store) UpdateDelivery(_ context.Context, d *delivery.Delivery) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.deliveries[d.ID.String()]; !ok {
		return delivery.ErrNotFound
	}
	cp := copyDelivery(d)
	cp.UpdatedAt = time.Now().UTC()
	s.deliveries[d.ID.String()] = cp
	delete(s.claimedAt, d.ID.String())
	return nil
}

// GetDelivery returns a copy of the delivery by ID.
func (s *Store) GetDelivery(_ context.Context, dID id.ID) (*delivery.Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.deliveries[dID.String()]
	if !ok {
		return nil, delivery.ErrNotFound
	}
	return copyDelivery(d), nil
}

// ListDeliveries returns matching deliveries, newest first.
func (s *Store) ListDeliveries(_ context.Context, opts delivery.ListOpts) ([]*delivery.Delivery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*delivery.Delivery, 0, len(s.deliveries))
	for _, d := range s.deliveries {
		if !opts.SubscriptionID.IsNil() && d.SubscriptionID.String() != opts.SubscriptionID.String() {
			continue
		}
		if opts.State != nil && d.State != *opts.State {
			continue
		}
		result = append(result, copyDelivery(d))
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	result = applyPagination(result, opts.Offset, opts.Limit)
	return result, nil
}

// CountByState returns delivery counts grouped by state.
func (s *Store) CountByState(_ context.Context) (map[delivery.State]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	counts := make(map[delivery.State]int)
	for _, d := range s.deliveries {
		counts[d.State]++
	}
	return counts, nil
}

// ReleaseStale reverts delivering rows claimed before cutoff to pending.
func (s *Store) ReleaseStale(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var released int
	for idStr, claimed := range s.claimedAt {
		if !claimed.Before(cutoff) {
			continue
		}
		d, ok := s.deliveries[idStr]
		if !ok || d.State != delivery.StateDelivering {
			delete(s.claimedAt, idStr)
			continue
		}
		d.State = delivery.StatePending
		d.UpdatedAt = time.Now().UTC()
		delete(s.claimedAt, idStr)
		released++
	}
	return released, nil
}

// Requeue returns a dead-lettered delivery to pending with a fresh budget.
func (s *Store) Requeue(_ context.Context, dID id.ID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	d, ok := s.deliveries[dID.String()]
	if !ok {
		return delivery.ErrNotFound
	}
	if d.State != delivery.StateDeadLettered {
		return delivery.ErrNotDeadLettered
	}
	d.State = delivery.StatePending
	d.AttemptCount = 0
	d.NextAttemptAt = now
	d.CompletedAt = nil
	d.UpdatedAt = now
	return nil
}

// PurgeDeadLettered deletes dead-lettered deliveries completed before cutoff.
func (s *Store) PurgeDeadLettered(_ context.Context, cutoff time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var purged int
	for idStr, d := range s.deliveries {
		if d.State != delivery.StateDeadLettered {
			continue
		}
		if d.CompletedAt == nil || !d.CompletedAt.Before(cutoff) {
			continue
		}
		delete(s.deliveries, idStr)
		delete(s.deliveryKeys, dedupKey(d.SubscriptionID, d.EventKey))
		purged++
	}
	return purged, nil
}

// ──────────────────────────────────────────────────
// audit.Store
// ──────────────────────────────────────────────────

// AppendEntry writes one ledger entry.
func (s *Store) AppendEntry(_ context.Context, entry *audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *entry
	s.auditEntries = append(s.auditEntries, &cp)
	return nil
}

// ListEntries returns matching ledger entries, newest first.
func (s *Store) ListEntries(_ context.Context, opts audit.ListOpts) ([]*audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*audit.Entry, 0, len(s.auditEntries))
	for _, e := range s.auditEntries {
		if !opts.SubscriptionID.IsNil() && e.SubscriptionID.String() != opts.SubscriptionID.String() {
			continue
		}
		if !opts.DeliveryID.IsNil() && e.DeliveryID.String() != opts.DeliveryID.String() {
			continue
		}
		if opts.Kind != "" && e.Kind != opts.Kind {
			continue
		}
		cp := *e
		result = append(result, &cp)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})

	result = applyPagination(result, opts.Offset, opts.Limit)
	return result, nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func dedupKey(subID id.ID, eventKey string) string {
	return subID.String() + "\x00" + eventKey
}

func copySubscription(sub *subscription.Subscription) *subscription.Subscription {
	cp := *sub
	cp.EventTypes = append([]string(nil), sub.EventTypes...)
	return &cp
}

func copyDelivery(d *delivery.Delivery) *delivery.Delivery {
	cp := *d
	return &cp
}

func matchEventOpts(evt *event.Event, opts event.ListOpts) bool {
	if opts.Type != "" && evt.Type != opts.Type {
		return false
	}
	if opts.From != nil && evt.CreatedAt.Before(*opts.From) {
		return false
	}
	if opts.To != nil && evt.CreatedAt.After(*opts.To) {
		return false
	}
	return true
}

func applyPagination[T any](items []*T, offset, limit int) []*T {
	if offset > 0 && offset < len(items) {
		items = items[offset:]
	} else if offset >= len(items) && offset > 0 {
		return nil
	}

	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}

	return items
}

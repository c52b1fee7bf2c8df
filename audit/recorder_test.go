package audit_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/hooklinehq/hookline/audit"
	"github.com/hooklinehq/hookline/delivery"
	"github.com/hooklinehq/hookline/id"
	"github.com/hooklinehq/hookline/internal/entity"
	"github.com/hooklinehq/hookline/store/memory"
	"github.com/hooklinehq/hookline/subscription"
)

func ctx() context.Context { return context.Background() }

func newRecorder() (*audit.Recorder, *memory.Store) {
	store := memory.New()
	return audit.NewRecorder(store, nil), store
}

func testSubscription() *subscription.Subscription {
	return &subscription.Subscription{
		Entity:  entity.New(),
		ID:      id.NewSubscriptionID(),
		OwnerID: "o1",
		URL:     "https://203.0.113.10/hooks",
		Secret:  "whsec_recordersecret",
	}
}

func testDelivery(subID id.ID) *delivery.Delivery {
	return &delivery.Delivery{
		Entity:         entity.New(),
		ID:             id.NewDeliveryID(),
		SubscriptionID: subID,
		EventID:        id.NewEventID(),
		EventType:      "order.created",
		AttemptCount:   2,
		LastStatusCode: 503,
	}
}

func TestRecorderSubscriptionLifecycle(t *testing.T) {
	rec, store := newRecorder()
	sub := testSubscription()

	rec.SubscriptionCreated(ctx(), sub)
	rec.SubscriptionUpdated(ctx(), sub)
	rec.SecretRotated(ctx(), sub)
	rec.SubscriptionDeleted(ctx(), sub)

	entries, err := store.ListEntries(ctx(), audit.ListOpts{SubscriptionID: sub.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 4 {
		t.Fatalf("expected 4 entries, got %d", len(entries))
	}

	for _, e := range entries {
		if e.ID.IsNil() {
			t.Error("entry ID should be assigned")
		}
		if e.CreatedAt.IsZero() {
			t.Error("CreatedAt should be stamped")
		}
		// The ledger must never contain the signing secret.
		if strings.Contains(e.Detail, sub.Secret) {
			t.Error("entry detail contains the secret")
		}
	}
}

func TestRecorderDeliveryTransitions(t *testing.T) {
	rec, store := newRecorder()
	d := testDelivery(id.NewSubscriptionID())

	rec.DeliveryAttemptFailed(ctx(), d, "503 from destination")
	rec.DeliveryDeadLettered(ctx(), d, "budget exhausted")
	rec.DeliverySucceeded(ctx(), d)
	rec.DeliveryAbandoned(ctx(), d, "subscription deleted")
	rec.DeliveryRequeued(ctx(), d)

	entries, err := store.ListEntries(ctx(), audit.ListOpts{DeliveryID: d.ID})
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(entries))
	}

	failed, _ := store.ListEntries(ctx(), audit.ListOpts{Kind: audit.KindAttemptFailed})
	if len(failed) != 1 {
		t.Fatalf("expected 1 attempt-failed entry, got %d", len(failed))
	}
	e := failed[0]
	if e.SubscriptionID.String() != d.SubscriptionID.String() {
		t.Error("SubscriptionID not carried over")
	}
	if e.EventType != "order.created" {
		t.Errorf("EventType = %q", e.EventType)
	}
	if e.StatusCode != 503 {
		t.Errorf("StatusCode = %d", e.StatusCode)
	}
	if e.Attempt != 2 {
		t.Errorf("Attempt = %d", e.Attempt)
	}
	if e.Detail != "503 from destination" {
		t.Errorf("Detail = %q", e.Detail)
	}
}

func TestRecorderTruncatesDetail(t *testing.T) {
	rec, store := newRecorder()
	d := testDelivery(id.NewSubscriptionID())

	rec.DeliveryDeadLettered(ctx(), d, strings.Repeat("x", audit.MaxDetailBytes*2))

	entries, _ := store.ListEntries(ctx(), audit.ListOpts{})
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if len(entries[0].Detail) != audit.MaxDetailBytes {
		t.Fatalf("Detail length = %d, want %d", len(entries[0].Detail), audit.MaxDetailBytes)
	}
}

// failingStore always rejects appends.
type failingStore struct{}

func (failingStore) AppendEntry(context.Context, *audit.Entry) error {
	return errors.New("ledger unavailable")
}

func (failingStore) ListEntries(context.Context, audit.ListOpts) ([]*audit.Entry, error) {
	return nil, errors.New("ledger unavailable")
}

func TestRecorderSwallowsAppendErrors(t *testing.T) {
	rec := audit.NewRecorder(failingStore{}, nil)

	// Each call must return normally even when the ledger is down.
	rec.SubscriptionCreated(ctx(), testSubscription())
	rec.DeliverySucceeded(ctx(), testDelivery(id.NewSubscriptionID()))
}

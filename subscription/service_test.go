package subscription_test

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hooklinehq/hookline/eventtype"
	"github.com/hooklinehq/hookline/ratelimit"
	"github.com/hooklinehq/hookline/store/memory"
	"github.com/hooklinehq/hookline/subscription"
)

func ctx() context.Context { return context.Background() }

// Literal public IPs keep URL validation off the resolver in tests.
const hookURL = "https://203.0.113.10/hooks"

func newService() (*subscription.Service, *memory.Store) {
	s := memory.New()
	return subscription.NewService(s, nil, nil, nil, nil), s
}

func newServiceWithRegistry(types ...string) *subscription.Service {
	r := eventtype.NewRegistry()
	for _, name := range types {
		r.Register(eventtype.Definition{Name: name})
	}
	return subscription.NewService(memory.New(), r, nil, nil, nil)
}

func TestServiceCreate(t *testing.T) {
	svc, _ := newService()

	sub, err := svc.Create(ctx(), "owner-1", subscription.Input{
		URL:        hookURL,
		EventTypes: []string{"order.created"},
	})
	if err != nil {
		t.Fatal(err)
	}

	if sub.ID.IsNil() {
		t.Fatal("expected non-nil ID")
	}
	if !strings.HasPrefix(sub.Secret, "whsec_") {
		t.Fatalf("expected auto-generated secret, got %q", sub.Secret)
	}
	if !sub.Active {
		t.Fatal("expected active by default")
	}
	if sub.OwnerID != "owner-1" {
		t.Fatalf("OwnerID = %q", sub.OwnerID)
	}
}

func TestServiceCreateValidation(t *testing.T) {
	svc, _ := newService()

	// Missing owner
	if _, err := svc.Create(ctx(), "", subscription.Input{URL: hookURL, EventTypes: []string{"a.b"}}); err == nil {
		t.Fatal("expected error for missing owner")
	}

	// Missing URL
	if _, err := svc.Create(ctx(), "o1", subscription.Input{EventTypes: []string{"a.b"}}); err == nil {
		t.Fatal("expected error for missing URL")
	}

	// Private destination
	_, err := svc.Create(ctx(), "o1", subscription.Input{URL: "http://10.0.0.5/hooks", EventTypes: []string{"a.b"}})
	var verr *subscription.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError for private destination, got %v", err)
	}

	// Missing event types
	if _, err := svc.Create(ctx(), "o1", subscription.Input{URL: hookURL}); err == nil {
		t.Fatal("expected error for missing event_types")
	}
}

func TestServiceCreateUnknownEventType(t *testing.T) {
	svc := newServiceWithRegistry("order.created")

	_, err := svc.Create(ctx(), "o1", subscription.Input{
		URL:        hookURL,
		EventTypes: []string{"order.created", "order.refunded"},
	})
	if !errors.Is(err, eventtype.ErrUnknownType) {
		t.Fatalf("expected ErrUnknownType, got %v", err)
	}
	if !strings.Contains(err.Error(), "order.refunded") {
		t.Errorf("error should name the unknown type: %v", err)
	}
}

func TestServiceGetMasksOwnership(t *testing.T) {
	svc, _ := newService()

	sub, err := svc.Create(ctx(), "owner-1", subscription.Input{
		URL:        hookURL,
		EventTypes: []string{"order.created"},
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Get(ctx(), "owner-1", sub.ID); err != nil {
		t.Fatal(err)
	}

	// Another owner sees not-found, not forbidden.
	_, err = svc.Get(ctx(), "owner-2", sub.ID)
	if !errors.Is(err, subscription.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for cross-owner access, got %v", err)
	}
}

func TestServiceUpdate(t *testing.T) {
	svc, _ := newService()

	sub, err := svc.Create(ctx(), "o1", subscription.Input{
		URL:        hookURL,
		EventTypes: []string{"order.created"},
	})
	if err != nil {
		t.Fatal(err)
	}

	desc := "payments endpoint"
	inactive := false
	updated, err := svc.Update(ctx(), "o1", sub.ID, subscription.UpdateInput{
		Description: &desc,
		EventTypes:  []string{"order.created", "order.shipped"},
		Active:      &inactive,
	})
	if err != nil {
		t.Fatal(err)
	}
	if updated.Description != desc {
		t.Errorf("Description = %q, want %q", updated.Description, desc)
	}
	if len(updated.EventTypes) != 2 {
		t.Errorf("EventTypes = %v", updated.EventTypes)
	}
	if updated.Active {
		t.Error("expected inactive after update")
	}
	if updated.URL != hookURL {
		t.Errorf("unchanged URL was modified: %q", updated.URL)
	}

	// A changed URL is revalidated.
	bad := "http://192.168.0.1/hooks"
	if _, err := svc.Update(ctx(), "o1", sub.ID, subscription.UpdateInput{URL: &bad}); err == nil {
		t.Fatal("expected validation error for private URL on update")
	}
}

func TestServiceUpdateOwnership(t *testing.T) {
	svc, _ := newService()

	sub, _ := svc.Create(ctx(), "o1", subscription.Input{URL: hookURL, EventTypes: []string{"a.b"}})

	desc := "nope"
	if _, err := svc.Update(ctx(), "o2", sub.ID, subscription.UpdateInput{Description: &desc}); !errors.Is(err, subscription.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestServiceDelete(t *testing.T) {
	svc, _ := newService()

	sub, _ := svc.Create(ctx(), "o1", subscription.Input{URL: hookURL, EventTypes: []string{"a.b"}})

	if err := svc.Delete(ctx(), "o2", sub.ID); !errors.Is(err, subscription.ErrNotFound) {
		t.Fatalf("cross-owner delete should be not-found, got %v", err)
	}

	if err := svc.Delete(ctx(), "o1", sub.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Get(ctx(), "o1", sub.ID); !errors.Is(err, subscription.ErrNotFound) {
		t.Fatalf("expected deleted, got %v", err)
	}
}

func TestServiceList(t *testing.T) {
	svc, _ := newService()

	for i := 0; i < 3; i++ {
		if _, err := svc.Create(ctx(), "o1", subscription.Input{URL: hookURL, EventTypes: []string{"a.b"}}); err != nil {
			t.Fatal(err)
		}
	}
	svc.Create(ctx(), "o2", subscription.Input{URL: hookURL, EventTypes: []string{"a.b"}})

	subs, err := svc.List(ctx(), "o1", subscription.ListOpts{})
	if err != nil {
		t.Fatal(err)
	}
	if len(subs) != 3 {
		t.Fatalf("expected 3 subscriptions for o1, got %d", len(subs))
	}
}

func TestServiceRotateSecret(t *testing.T) {
	svc, store := newService()

	sub, _ := svc.Create(ctx(), "o1", subscription.Input{URL: hookURL, EventTypes: []string{"a.b"}})
	original := sub.Secret

	secret, err := svc.RotateSecret(ctx(), "o1", sub.ID)
	if err != nil {
		t.Fatal(err)
	}
	if secret == original {
		t.Fatal("rotation returned the old secret")
	}
	if !strings.HasPrefix(secret, "whsec_") {
		t.Fatalf("unexpected secret format %q", secret)
	}

	stored, err := store.GetSubscription(ctx(), sub.ID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.Secret != secret {
		t.Fatal("store should hold the new secret")
	}
	if stored.SecretRotatedAt.IsZero() {
		t.Fatal("SecretRotatedAt should be stamped")
	}

	// Cross-owner rotation is masked as not-found.
	if _, err := svc.RotateSecret(ctx(), "o2", sub.ID); !errors.Is(err, subscription.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestServiceRateLimits(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter()
	svc := subscription.NewService(memory.New(), nil, limiter, nil, nil)

	var lastErr error
	created := 0
	for i := 0; i < ratelimit.PolicyCreateSubscription.Limit+1; i++ {
		_, err := svc.Create(ctx(), "o1", subscription.Input{URL: hookURL, EventTypes: []string{"a.b"}})
		if err != nil {
			lastErr = err
			break
		}
		created++
	}

	if created != ratelimit.PolicyCreateSubscription.Limit {
		t.Fatalf("expected %d creates before denial, got %d", ratelimit.PolicyCreateSubscription.Limit, created)
	}
	var limitErr *ratelimit.LimitExceededError
	if !errors.As(lastErr, &limitErr) {
		t.Fatalf("expected *LimitExceededError, got %v", lastErr)
	}
	if limitErr.RetryAfter <= 0 || limitErr.RetryAfter > time.Hour {
		t.Errorf("RetryAfter = %s", limitErr.RetryAfter)
	}

	// A different owner still has budget.
	if _, err := svc.Create(ctx(), "o2", subscription.Input{URL: hookURL, EventTypes: []string{"a.b"}}); err != nil {
		t.Fatalf("other owner should not be limited: %v", err)
	}
}

func TestServiceSecretHiddenFromJSON(t *testing.T) {
	svc, _ := newService()

	sub, _ := svc.Create(ctx(), "o1", subscription.Input{URL: hookURL, EventTypes: []string{"a.b"}})

	// The struct tag keeps the secret out of API responses.
	b, err := json.Marshal(sub)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(string(b), sub.Secret) {
		t.Fatal("serialized subscription must not contain the secret")
	}
}

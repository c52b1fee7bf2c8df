package delivery_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/hooklinehq/hookline/delivery"
	"github.com/hooklinehq/hookline/id"
	"github.com/hooklinehq/hookline/internal/entity"
	"github.com/hooklinehq/hookline/signature"
	"github.com/hooklinehq/hookline/subscription"
)

const testSecret = "whsec_test_secret_1234567890abcdef1234567890abcdef"

func newTestSubscription(url string) *subscription.Subscription {
	return &subscription.Subscription{
		Entity:     entity.New(),
		ID:         id.NewSubscriptionID(),
		OwnerID:    "owner-1",
		URL:        url,
		Secret:     testSecret,
		EventTypes: []string{"order.created"},
		Active:     true,
	}
}

func newTestDelivery(subID id.ID) *delivery.Delivery {
	return &delivery.Delivery{
		Entity:         entity.New(),
		ID:             id.NewDeliveryID(),
		SubscriptionID: subID,
		EventID:        id.NewEventID(),
		EventKey:       "evt-producer-001",
		EventType:      "order.created",
		Payload:        json.RawMessage(`{"event_id":"evt-producer-001","type":"order.created","data":{"hello":"world"}}`),
		State:          delivery.StatePending,
		MaxAttempts:    5,
	}
}

func TestSenderHappyPath(t *testing.T) {
	var receivedHeaders http.Header
	var receivedBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		receivedHeaders = r.Header
		b, err := io.ReadAll(r.Body)
		if err != nil {
			t.Error(err)
		}
		receivedBody = b
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	sender := delivery.NewSender(5 * time.Second)
	sub := newTestSubscription(srv.URL)
	del := newTestDelivery(sub.ID)

	result := sender.Send(context.Background(), sub, del)

	if result.StatusCode != 200 {
		t.Fatalf("expected 200, got %d", result.StatusCode)
	}
	if result.Error != "" {
		t.Fatalf("unexpected error: %s", result.Error)
	}
	if result.Response != `{"ok":true}` {
		t.Fatalf("unexpected response: %s", result.Response)
	}
	if result.LatencyMs < 0 {
		t.Fatal("latency should be non-negative")
	}

	// Body is the stored envelope, byte for byte.
	if string(receivedBody) != string(del.Payload) {
		t.Fatalf("body = %s, want %s", receivedBody, del.Payload)
	}

	if got := receivedHeaders.Get("Content-Type"); got != "application/json" {
		t.Errorf("Content-Type = %q", got)
	}
	if got := receivedHeaders.Get("User-Agent"); got != "hookline/1.0" {
		t.Errorf("User-Agent = %q", got)
	}
	if got := receivedHeaders.Get("X-Webhook-Event-Id"); got != del.EventKey {
		t.Errorf("X-Webhook-Event-Id = %q, want %q", got, del.EventKey)
	}
	if got := receivedHeaders.Get("X-Webhook-Event-Type"); got != "order.created" {
		t.Errorf("X-Webhook-Event-Type = %q", got)
	}
	if got := receivedHeaders.Get("X-Webhook-Delivery-Id"); got != del.ID.String() {
		t.Errorf("X-Webhook-Delivery-Id = %q, want %q", got, del.ID.String())
	}
}

func TestSenderSignatureVerifiable(t *testing.T) {
	var sigHeader string
	var body []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sigHeader = r.Header.Get("X-Webhook-Signature")
		body, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	sender := delivery.NewSender(5 * time.Second)
	sub := newTestSubscription(srv.URL)
	del := newTestDelivery(sub.ID)

	sender.Send(context.Background(), sub, del)

	if !strings.HasPrefix(sigHeader, "sha256=") {
		t.Fatalf("signature header should carry the scheme, got %q", sigHeader)
	}
	// A consumer verifying against the raw received body must succeed.
	if !signature.Verify(sub.Secret, body, sigHeader) {
		t.Fatal("signature did not verify against the received body")
	}
	if signature.Verify("whsec_other", body, sigHeader) {
		t.Fatal("signature verified with the wrong secret")
	}
}

func TestSenderNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("overloaded"))
	}))
	defer srv.Close()

	sender := delivery.NewSender(5 * time.Second)
	sub := newTestSubscription(srv.URL)

	result := sender.Send(context.Background(), sub, newTestDelivery(sub.ID))

	if result.StatusCode != 503 {
		t.Fatalf("expected 503, got %d", result.StatusCode)
	}
	if result.Response != "overloaded" {
		t.Fatalf("Response = %q", result.Response)
	}
}

func TestSenderResponseBodyCapped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(strings.Repeat("x", 10_000)))
	}))
	defer srv.Close()

	sender := delivery.NewSender(5 * time.Second)
	sub := newTestSubscription(srv.URL)

	result := sender.Send(context.Background(), sub, newTestDelivery(sub.ID))

	if len(result.Response) != 2048 {
		t.Fatalf("expected response capped at 2048 bytes, got %d", len(result.Response))
	}
}

func TestSenderConnectionRefused(t *testing.T) {
	// A server that is immediately closed leaves a port nothing listens on.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	url := srv.URL
	srv.Close()

	sender := delivery.NewSender(1 * time.Second)
	sub := newTestSubscription(url)

	result := sender.Send(context.Background(), sub, newTestDelivery(sub.ID))

	if result.StatusCode != 0 {
		t.Fatalf("expected no status code, got %d", result.StatusCode)
	}
	if result.Error == "" {
		t.Fatal("expected a transport error")
	}
}

func TestSenderTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(2 * time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	sender := delivery.NewSender(100 * time.Millisecond)
	sub := newTestSubscription(srv.URL)

	result := sender.Send(context.Background(), sub, newTestDelivery(sub.ID))

	if result.StatusCode != 0 {
		t.Fatalf("expected no status code on timeout, got %d", result.StatusCode)
	}
	if result.Error == "" {
		t.Fatal("expected a timeout error")
	}
}

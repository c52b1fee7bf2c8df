package delivery

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hooklinehq/hookline/signature"
	"github.com/hooklinehq/hookline/subscription"
)

const maxResponseBody = 2048 // cap on stored response body

// Sender performs one HTTP webhook delivery attempt.
type Sender struct {
	client *http.Client
}

// NewSender creates a sender with the given HTTP timeout.
func NewSender(timeout time.Duration) *Sender {
	return &Sender{
		client: &http.Client{Timeout: timeout},
	}
}

// Send posts the delivery's stored envelope bytes to the subscription's
// URL, signed with the subscription's current secret. The body is exactly
// d.Payload on every attempt, so the signature is reproducible.
func (s *Sender) Send(ctx context.Context, sub *subscription.Subscription, d *Delivery) Result {
	body := []byte(d.Payload)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sub.URL, bytes.NewReader(body))
	if err != nil {
		return Result{Error: fmt.Sprintf("create request: %v", err)}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "hookline/1.0")
	req.Header.Set("X-Webhook-Event-Id", d.EventKey)
	req.Header.Set("X-Webhook-Event-Type", d.EventType)
	req.Header.Set("X-Webhook-Delivery-Id", d.ID.String())
	req.Header.Set("X-Webhook-Signature", signature.HeaderValue(sub.Secret, body))

	start := time.Now()
	resp, err := s.client.Do(req) //nolint:gosec // URL is a validated webhook destination.
	latency := time.Since(start).Milliseconds()

	if err != nil {
		return Result{
			Error:     err.Error(),
			LatencyMs: int(latency),
		}
	}
	defer resp.Body.Close()

	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if readErr != nil {
		return Result{
			StatusCode: resp.StatusCode,
			Error:      fmt.Sprintf("read response: %v", readErr),
			LatencyMs:  int(latency),
		}
	}

	return Result{
		StatusCode: resp.StatusCode,
		Response:   string(respBody),
		LatencyMs:  int(latency),
	}
}

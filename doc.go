// Package hookline provides a webhook subscription and delivery engine
// for Go.
//
// Hookline is a library, not a service. Import it into your application
// to get webhook subscriptions with SSRF-checked destinations, HMAC-SHA256
// signed deliveries, idempotent event intake, at-least-once delivery with
// fixed backoff and dead-lettering, and an append-only audit ledger.
//
// Key features:
//   - Owner-scoped subscriptions with one-time signing secrets
//   - Registered event types with optional JSON Schema validation
//   - Exclusive delivery claims, so scaled-out workers never double-send
//   - Fixed retry backoff with a dead-letter queue and operator requeue
//   - Rolling-window rate limits on management operations
//   - Composable store pattern (Postgres, Memory)
//
// Quick start:
//
//	h, err := hookline.New(
//	    hookline.WithStore(memoryStore),
//	)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	h.RegisterEventTypes(eventtype.Definition{Name: "invoice.created"})
//	h.Start(ctx)
//
//	h.Publish(ctx, hookline.PublishInput{
//	    ID:   "evt_01h...",
//	    Type: "invoice.created",
//	    Data: json.RawMessage(`{"invoice_id":"inv_123"}`),
//	})
package hookline

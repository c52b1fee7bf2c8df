package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/hooklinehq/hookline"

// Tracer provides OpenTelemetry tracing for hookline.
type Tracer struct {
	tracer trace.Tracer
}

// NewTracer creates a new hookline tracer.
func NewTracer() *Tracer {
	return &Tracer{
		tracer: otel.Tracer(tracerName),
	}
}

// StartDeliverySpan starts a new span for a delivery attempt.
func (t *Tracer) StartDeliverySpan(ctx context.Context, deliveryID, eventID, subscriptionID string) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "hookline.delivery",
		trace.WithAttributes(
			attribute.String("hookline.delivery_id", deliveryID),
			attribute.String("hookline.event_id", eventID),
			attribute.String("hookline.subscription_id", subscriptionID),
		),
	)
}

// EndDeliverySpan ends a delivery span with result attributes.
func (t *Tracer) EndDeliverySpan(span trace.Span, statusCode, latencyMs int, err string) {
	span.SetAttributes(
		attribute.Int("http.status_code", statusCode),
		attribute.Int("hookline.latency_ms", latencyMs),
	)
	if err != "" {
		span.SetAttributes(attribute.String("hookline.error", err))
	}
	span.End()
}

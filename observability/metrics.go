// Package observability provides metric instruments and tracing for the
// delivery pipeline.
package observability

import (
	gu "github.com/xraph/go-utils/metrics"
)

// Metrics holds metric instruments for hookline, backed by any go-utils
// MetricFactory (e.g. metrics.NewMetricsCollector() for standalone usage).
type Metrics struct {
	EventsPublishedTotal  gu.Counter
	DeliveriesTotal       gu.Counter
	DeliveryLatency       gu.Histogram
	PendingDeliveries     gu.Gauge
	DeadLetteredSize      gu.Gauge
	RateLimitRejectsTotal gu.Counter
}

// NewMetrics creates hookline metric instruments using the supplied factory.
func NewMetrics(factory gu.MetricFactory) *Metrics {
	return &Metrics{
		EventsPublishedTotal:  factory.Counter("hookline_events_published_total"),
		DeliveriesTotal:       factory.Counter("hookline_deliveries_total"),
		DeliveryLatency:       factory.Histogram("hookline_delivery_latency_seconds"),
		PendingDeliveries:     factory.Gauge("hookline_pending_deliveries"),
		DeadLetteredSize:      factory.Gauge("hookline_dead_lettered_size"),
		RateLimitRejectsTotal: factory.Counter("hookline_ratelimit_rejects_total"),
	}
}

// RecordDelivery records a delivery attempt with the given outcome and latency.
func (m *Metrics) RecordDelivery(status string, latencySeconds float64) {
	m.DeliveriesTotal.WithLabels(map[string]string{"status": status}).Inc()
	m.DeliveryLatency.Observe(latencySeconds)
}

// RecordRateLimitReject records a rejected management request.
func (m *Metrics) RecordRateLimitReject(action string) {
	m.RateLimitRejectsTotal.WithLabels(map[string]string{"action": action}).Inc()
}

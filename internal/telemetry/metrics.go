package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the order core instruments. A nil *Metrics records nothing.
type Metrics struct {
	checkoutsTotal     metric.Int64Counter
	checkoutDuration   metric.Float64Histogram
	paymentEventsTotal metric.Int64Counter
}

// NewMetrics creates the instruments on meter
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}
	var err error

	m.checkoutsTotal, err = meter.Int64Counter(
		"checkouts_total",
		metric.WithDescription("Checkout attempts by outcome"),
		metric.WithUnit("{checkout}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create checkouts_total counter: %w", err)
	}

	m.checkoutDuration, err = meter.Float64Histogram(
		"checkout_duration_seconds",
		metric.WithDescription("Duration of order builds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create checkout_duration_seconds histogram: %w", err)
	}

	m.paymentEventsTotal, err = meter.Int64Counter(
		"payment_events_total",
		metric.WithDescription("Payment provider events by provider, type and outcome"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create payment_events_total counter: %w", err)
	}

	return m, nil
}

// NewGlobalMetrics creates the instruments on the global meter provider
func NewGlobalMetrics() (*Metrics, error) {
	return NewMetrics(otel.Meter(instrumentationName))
}

// RecordCheckout counts one build attempt and its duration
func (m *Metrics) RecordCheckout(ctx context.Context, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("outcome", outcome))
	m.checkoutsTotal.Add(ctx, 1, attrs)
	m.checkoutDuration.Record(ctx, d.Seconds(), attrs)
}

// RecordPaymentEvent counts one reconciled provider event
func (m *Metrics) RecordPaymentEvent(ctx context.Context, provider, eventType, outcome string) {
	if m == nil {
		return
	}
	m.paymentEventsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("type", eventType),
		attribute.String("outcome", outcome),
	))
}

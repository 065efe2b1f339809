package telemetry

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/your-org/storefront-orders/internal/config"
)

func TestSetup(t *testing.T) {
	t.Run("disabled signals leave providers unset", func(t *testing.T) {
		cfg := &config.Config{App: config.AppConfig{Name: "svc", Version: "1.0.0"}}

		p, err := Setup(context.Background(), cfg)
		if err != nil {
			t.Fatalf("Setup() failed: %v", err)
		}
		if p.tracerProvider != nil || p.meterProvider != nil {
			t.Error("expected no providers when telemetry is disabled")
		}
		if err := p.Shutdown(context.Background()); err != nil {
			t.Errorf("Shutdown() failed: %v", err)
		}
	})

	t.Run("enabled signals use provided exporters", func(t *testing.T) {
		cfg := &config.Config{
			App: config.AppConfig{Name: "svc", Version: "1.0.0", Environment: "test"},
			Telemetry: config.TelemetryConfig{
				EnableTracing: true,
				EnableMetrics: true,
				SampleRate:    1,
			},
		}
		spans := tracetest.NewInMemoryExporter()

		p, err := Setup(context.Background(), cfg,
			WithTraceExporter(spans),
			WithMetricExporter(noopMetricExporter{}),
		)
		if err != nil {
			t.Fatalf("Setup() failed: %v", err)
		}
		t.Cleanup(func() { _ = p.Shutdown(context.Background()) })

		if p.tracerProvider == nil || p.meterProvider == nil {
			t.Fatal("expected both providers to be created")
		}

		ctx, span := StartSpan(context.Background(), "test.span")
		if TraceID(ctx) == "" {
			t.Error("expected a trace id inside the span")
		}
		EndSpan(span, nil)

		if err := p.tracerProvider.ForceFlush(context.Background()); err != nil {
			t.Fatalf("ForceFlush() failed: %v", err)
		}
		if n := len(spans.GetSpans()); n != 1 {
			t.Errorf("expected 1 exported span, got %d", n)
		}
	})
}

func TestSampler(t *testing.T) {
	tests := []struct {
		rate float64
		want string
	}{
		{rate: 0, want: "AlwaysOffSampler"},
		{rate: 1, want: "AlwaysOnSampler"},
	}
	for _, tt := range tests {
		if got := sampler(tt.rate).Description(); got != tt.want {
			t.Errorf("sampler(%v) = %s, want %s", tt.rate, got, tt.want)
		}
	}
}

package gateway

import (
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"github.com/xu2799/it-platform-frontend/internal/telemetry"
)

// Option is a functional option for configuring a Gateway.
type Option func(*Gateway)

// WithHTTPClient sets a custom http.Client for making requests.
// This is useful for testing, proxying, or custom transport configurations.
func WithHTTPClient(hc *http.Client) Option {
	return func(g *Gateway) {
		g.httpClient = hc
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// WithMetrics records request and deauthorization metrics.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(g *Gateway) {
		g.metrics = m
	}
}

// WithTracer sets the tracer used for per-request spans.
// Defaults to the global OpenTelemetry tracer provider.
func WithTracer(t trace.Tracer) Option {
	return func(g *Gateway) {
		g.tracer = t
	}
}

package telemetry

import (
	"context"
	"fmt"
	"io"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// TracerName is the instrumentation scope used for gateway spans.
const TracerName = "github.com/xu2799/it-platform-frontend/gateway"

// Tracing owns the tracer provider for one process.
type Tracing struct {
	provider trace.TracerProvider
	shutdown func(context.Context) error
}

// NewTracing builds a tracer provider. When enabled, spans are written as
// pretty-printed JSON to w; otherwise a no-op provider is used.
func NewTracing(enabled bool, w io.Writer) (*Tracing, error) {
	if !enabled {
		return &Tracing{
			provider: noop.NewTracerProvider(),
			shutdown: func(context.Context) error { return nil },
		}, nil
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, fmt.Errorf("create stdout trace exporter: %w", err)
	}
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	return &Tracing{provider: tp, shutdown: tp.Shutdown}, nil
}

// Tracer returns the gateway tracer.
func (t *Tracing) Tracer() trace.Tracer {
	return t.provider.Tracer(TracerName)
}

// Shutdown flushes and stops the provider.
func (t *Tracing) Shutdown(ctx context.Context) error {
	return t.shutdown(ctx)
}

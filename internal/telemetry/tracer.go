package telemetry

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// TracerWrapper provides nil-safe tracing by falling back to
// noop.TracerProvider. Every method is safe to call regardless of
// whether tracing is actually enabled, so callers never need a
// separate nil-check branch.
type TracerWrapper struct {
	tracer trace.Tracer
}

// NewTracerWrapper builds a TracerWrapper from tp. A nil tp (tracing
// disabled, or Manager never initialized) yields a no-op tracer.
func NewTracerWrapper(tp trace.TracerProvider, instrumentationName string) *TracerWrapper {
	if tp == nil {
		tp = noop.NewTracerProvider()
	}
	return &TracerWrapper{tracer: tp.Tracer(instrumentationName)}
}

// StartSpan starts a span of the given kind, always returning a usable span.
func (w *TracerWrapper) StartSpan(ctx context.Context, operation string, kind trace.SpanKind) (context.Context, trace.Span) {
	return w.tracer.Start(ctx, operation, trace.WithSpanKind(kind))
}

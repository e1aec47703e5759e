package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer is the peermesh tracer instance.
// Uses the global OTel tracer provider.
var tracer = otel.Tracer("peermesh")

// SpanManager handles trace span lifecycle.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartSweepSpan starts a span for one stale-peer sweep pass.
	StartSweepSpan(ctx context.Context) (context.Context, trace.Span)

	// StartRelaySpan starts a span for a relay pump lifetime.
	StartRelaySpan(ctx context.Context, name string) (context.Context, trace.Span)

	// EndSpanWithError completes a span, optionally recording an error.
	EndSpanWithError(span trace.Span, err error)

	// AddSpanEvent adds an event to the current span in context.
	AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue)
}

// otelSpanManager implements SpanManager using OpenTelemetry.
type otelSpanManager struct{}

// NewSpanManager returns a SpanManager that uses OpenTelemetry.
//
// The span manager uses the global OTel tracer provider. Configure the
// provider before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

// StartSweepSpan starts a span for one stale-peer sweep pass.
func (m *otelSpanManager) StartSweepSpan(ctx context.Context) (context.Context, trace.Span) {
	return tracer.Start(ctx, "peermesh.sweep",
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// StartRelaySpan starts a span for a relay pump lifetime.
func (m *otelSpanManager) StartRelaySpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "peermesh.relay."+name,
		trace.WithAttributes(
			attribute.String("pump.name", name),
		),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

// EndSpanWithError completes a span, optionally recording an error.
func (m *otelSpanManager) EndSpanWithError(span trace.Span, err error) {
	if span == nil {
		return
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

// AddSpanEvent adds an event to the current span in context.
func (m *otelSpanManager) AddSpanEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	span := trace.SpanFromContext(ctx)
	if span == nil {
		return
	}
	span.AddEvent(name, trace.WithAttributes(attrs...))
}

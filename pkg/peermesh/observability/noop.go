package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// NoopMetrics is a MetricsRecorder that does nothing.
// Use when metrics are disabled to avoid overhead.
type NoopMetrics struct{}

// Compile-time interface check.
var _ MetricsRecorder = NoopMetrics{}

// RecordSessionUpdate does nothing.
func (NoopMetrics) RecordSessionUpdate(_ context.Context, _ bool, _ time.Duration, _ error) {}

// RecordEviction does nothing.
func (NoopMetrics) RecordEviction(_ context.Context) {}

// RecordIdentityMismatch does nothing.
func (NoopMetrics) RecordIdentityMismatch(_ context.Context) {}

// RecordRelay does nothing.
func (NoopMetrics) RecordRelay(_ context.Context, _ int64, _ time.Duration, _ error) {}

// NoopSpanManager is a SpanManager that does nothing.
// Use when tracing is disabled to avoid overhead.
type NoopSpanManager struct{}

// Compile-time interface check.
var _ SpanManager = NoopSpanManager{}

// noopSpan is a span that does nothing.
// We use the OTel noop package for a proper no-op span implementation.
var noopSpan = noop.Span{}

// StartSweepSpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartSweepSpan(ctx context.Context) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// StartRelaySpan returns the context unchanged and a no-op span.
func (NoopSpanManager) StartRelaySpan(ctx context.Context, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan
}

// EndSpanWithError does nothing.
func (NoopSpanManager) EndSpanWithError(_ trace.Span, _ error) {}

// AddSpanEvent does nothing.
func (NoopSpanManager) AddSpanEvent(_ context.Context, _ string, _ ...attribute.KeyValue) {}

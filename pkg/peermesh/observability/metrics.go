package observability

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records session-layer metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordSessionUpdate records one atomic session update, whether it
	// created the session, its duration, and error status.
	RecordSessionUpdate(ctx context.Context, created bool, duration time.Duration, err error)

	// RecordEviction records a session removed from the index.
	RecordEviction(ctx context.Context)

	// RecordIdentityMismatch records a stale transient-id resolution
	// that was treated as a miss.
	RecordIdentityMismatch(ctx context.Context)

	// RecordRelay records a completed relay pump with the bytes it
	// moved and its error status.
	RecordRelay(ctx context.Context, bytes int64, duration time.Duration, err error)
}

// otelMetrics implements MetricsRecorder using OpenTelemetry.
type otelMetrics struct {
	sessionUpdates     metric.Int64Counter
	sessionCreations   metric.Int64Counter
	updateErrors       metric.Int64Counter
	updateLatency      metric.Float64Histogram
	evictions          metric.Int64Counter
	identityMismatches metric.Int64Counter
	relayBytes         metric.Int64Counter
	relayLatency       metric.Float64Histogram
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

// getDefaultMetrics returns the default OTel metrics instance.
// Lazily initializes the metrics on first call.
func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(func() {
		defaultMetrics, defaultMetricsErr = newOtelMetrics()
	})
	return defaultMetrics, defaultMetricsErr
}

// newOtelMetrics creates a new OTel metrics instance.
func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("peermesh")

	sessionUpdates, err := meter.Int64Counter("peermesh.session.updates",
		metric.WithDescription("Number of atomic session updates"),
	)
	if err != nil {
		return nil, err
	}

	sessionCreations, err := meter.Int64Counter("peermesh.session.creations",
		metric.WithDescription("Number of sessions created"),
	)
	if err != nil {
		return nil, err
	}

	updateErrors, err := meter.Int64Counter("peermesh.session.update_errors",
		metric.WithDescription("Number of session updates aborted by callback errors"),
	)
	if err != nil {
		return nil, err
	}

	updateLatency, err := meter.Float64Histogram("peermesh.session.update_latency_ms",
		metric.WithDescription("Session update latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	evictions, err := meter.Int64Counter("peermesh.session.evictions",
		metric.WithDescription("Number of sessions evicted from the index"),
	)
	if err != nil {
		return nil, err
	}

	identityMismatches, err := meter.Int64Counter("peermesh.index.identity_mismatches",
		metric.WithDescription("Number of stale transient-id resolutions treated as misses"),
	)
	if err != nil {
		return nil, err
	}

	relayBytes, err := meter.Int64Counter("peermesh.relay.bytes",
		metric.WithDescription("Bytes moved by relay pumps"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, err
	}

	relayLatency, err := meter.Float64Histogram("peermesh.relay.duration_ms",
		metric.WithDescription("Relay pump lifetime in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		sessionUpdates:     sessionUpdates,
		sessionCreations:   sessionCreations,
		updateErrors:       updateErrors,
		updateLatency:      updateLatency,
		evictions:          evictions,
		identityMismatches: identityMismatches,
		relayBytes:         relayBytes,
		relayLatency:       relayLatency,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the
// provider before calling this function:
//
//	import "go.opentelemetry.io/otel"
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		return NoopMetrics{}
	}
	return m
}

// RecordSessionUpdate records one atomic session update.
func (m *otelMetrics) RecordSessionUpdate(ctx context.Context, created bool, duration time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.Bool("created", created),
	)
	m.sessionUpdates.Add(ctx, 1, attrs)
	m.updateLatency.Record(ctx, float64(duration.Microseconds())/1000.0, attrs)
	if created {
		m.sessionCreations.Add(ctx, 1)
	}
	if err != nil {
		m.updateErrors.Add(ctx, 1)
	}
}

// RecordEviction records a session removed from the index.
func (m *otelMetrics) RecordEviction(ctx context.Context) {
	m.evictions.Add(ctx, 1)
}

// RecordIdentityMismatch records a stale transient-id resolution.
func (m *otelMetrics) RecordIdentityMismatch(ctx context.Context) {
	m.identityMismatches.Add(ctx, 1)
}

// RecordRelay records a completed relay pump.
func (m *otelMetrics) RecordRelay(ctx context.Context, bytes int64, duration time.Duration, err error) {
	attrs := metric.WithAttributes(
		attribute.Bool("error", err != nil),
	)
	m.relayBytes.Add(ctx, bytes, attrs)
	m.relayLatency.Record(ctx, float64(duration.Microseconds())/1000.0, attrs)
}

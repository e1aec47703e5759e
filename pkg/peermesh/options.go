package peermesh

import (
	"log/slog"

	"github.com/husseinmarah/peermesh/pkg/peermesh/event"
	"github.com/husseinmarah/peermesh/pkg/peermesh/observability"
)

// IndexOption configures a SessionIndex.
type IndexOption func(*SessionIndex)

// WithLogger attaches a structured logger. Session creations and
// evictions log at info level, state changes and stale-id resolutions
// at debug.
//
// Example:
//
//	index := peermesh.NewSessionIndex(
//	    peermesh.WithLogger(slog.Default()),
//	)
func WithLogger(logger *slog.Logger) IndexOption {
	return func(x *SessionIndex) {
		x.log = logger
	}
}

// WithMetrics attaches a metrics recorder. Default: no-op.
//
// Example:
//
//	index := peermesh.NewSessionIndex(
//	    peermesh.WithMetrics(observability.NewMetricsRecorder()),
//	)
func WithMetrics(recorder observability.MetricsRecorder) IndexOption {
	return func(x *SessionIndex) {
		if recorder != nil {
			x.metrics = recorder
		}
	}
}

// WithEventBus attaches a bus that receives session lifecycle events.
// Events are published after the session's key lock is released and
// never block the updating caller.
func WithEventBus(bus *event.Bus) IndexOption {
	return func(x *SessionIndex) {
		x.bus = bus
	}
}

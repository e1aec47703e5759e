// Package observability provides structured logging, metrics, and
// tracing for the peermesh session layer.
//
// Features:
//   - Structured logging via slog (Go stdlib)
//   - Metrics via OpenTelemetry
//   - Tracing via OpenTelemetry
//
// All features are opt-in and have no-op implementations when disabled.
package observability

import (
	"log/slog"
	"time"
)

// EnrichLogger adds peer context to a logger. Returns a new logger
// with peer_identity and session_id fields.
func EnrichLogger(logger *slog.Logger, identity string, sessionID string) *slog.Logger {
	if logger == nil {
		return nil
	}
	return logger.With(
		slog.String("peer_identity", identity),
		slog.String("session_id", sessionID),
	)
}

// LogSessionCreated logs creation of a session for a new peer.
func LogSessionCreated(logger *slog.Logger, identity, sessionID, state string) {
	if logger == nil {
		return
	}
	logger.Info("session created",
		slog.String("peer_identity", identity),
		slog.String("session_id", sessionID),
		slog.String("state", state),
	)
}

// LogSessionState logs a session state transition.
func LogSessionState(logger *slog.Logger, identity, sessionID, from, to string) {
	if logger == nil {
		return
	}
	logger.Debug("session state changed",
		slog.String("peer_identity", identity),
		slog.String("session_id", sessionID),
		slog.String("from", from),
		slog.String("to", to),
	)
}

// LogSessionEvicted logs removal of a session from the index.
func LogSessionEvicted(logger *slog.Logger, identity, sessionID string) {
	if logger == nil {
		return
	}
	logger.Info("session evicted",
		slog.String("peer_identity", identity),
		slog.String("session_id", sessionID),
	)
}

// LogIdentityMismatch logs a stale transient-id resolution. This is
// expected after reconnects and is handled as a miss, so it logs at
// debug level.
func LogIdentityMismatch(logger *slog.Logger, sessionID, mappedIdentity string) {
	if logger == nil {
		return
	}
	logger.Debug("stale session id mapping",
		slog.String("session_id", sessionID),
		slog.String("mapped_identity", mappedIdentity),
	)
}

// LogUpdateError logs a failed session update.
func LogUpdateError(logger *slog.Logger, identity, sessionID string, err error) {
	if logger == nil {
		return
	}
	logger.Error("session update failed",
		slog.String("peer_identity", identity),
		slog.String("session_id", sessionID),
		slog.String("error", err.Error()),
	)
}

// LogSweep logs completion of a stale-peer sweep pass.
func LogSweep(logger *slog.Logger, evicted int, duration time.Duration) {
	if logger == nil {
		return
	}
	logger.Debug("sweep completed",
		slog.Int("evicted", evicted),
		slog.Float64("duration_ms", float64(duration.Microseconds())/1000.0),
	)
}

// LogRelayDone logs completion of a relay pump.
func LogRelayDone(logger *slog.Logger, name string, bytes int64, err error) {
	if logger == nil {
		return
	}
	if err != nil {
		logger.Error("relay pump failed",
			slog.String("pump", name),
			slog.Int64("bytes", bytes),
			slog.String("error", err.Error()),
		)
		return
	}
	logger.Debug("relay pump done",
		slog.String("pump", name),
		slog.Int64("bytes", bytes),
	)
}

package peermesh

import (
	"context"
	"log/slog"
	"time"

	"github.com/husseinmarah/peermesh/pkg/peermesh/observability"
	"github.com/husseinmarah/peermesh/pkg/peermesh/peerstore"
)

// Sweeper periodically evicts sessions that have gone idle, so torn
// down or vanished peers do not accumulate in the index forever.
//
// A session is stale when it has been in StateDisconnected longer
// than the idle timeout, or has seen no activity at all for twice
// that long (covering peers that vanished mid-handshake without a
// disconnect callback). Evicted peers are written to the peer store,
// if one is attached, so they are still known after a restart.
type Sweeper struct {
	index     *SessionIndex
	interval  time.Duration
	idleAfter time.Duration
	store     peerstore.Store
	log       *slog.Logger
	spans     observability.SpanManager

	// now is replaceable for tests.
	now func() time.Time
}

// SweeperOption configures a Sweeper.
type SweeperOption func(*Sweeper)

// WithSweepLogger attaches a structured logger to the sweeper.
func WithSweepLogger(logger *slog.Logger) SweeperOption {
	return func(s *Sweeper) {
		s.log = logger
	}
}

// WithPeerStore makes the sweeper record evicted peers, keeping their
// identity and last-seen time across restarts.
func WithPeerStore(store peerstore.Store) SweeperOption {
	return func(s *Sweeper) {
		s.store = store
	}
}

// WithSweepSpans attaches a span manager; each sweep pass becomes one
// trace span.
func WithSweepSpans(spans observability.SpanManager) SweeperOption {
	return func(s *Sweeper) {
		if spans != nil {
			s.spans = spans
		}
	}
}

// NewSweeper creates a sweeper over index. interval is the time
// between passes, idleAfter the staleness threshold; non-positive
// values fall back to the defaults from DefaultSettings.
func NewSweeper(index *SessionIndex, interval, idleAfter time.Duration, opts ...SweeperOption) *Sweeper {
	defaults := DefaultSettings()
	if interval <= 0 {
		interval = defaults.SweepInterval
	}
	if idleAfter <= 0 {
		idleAfter = defaults.IdleTimeout
	}
	s := &Sweeper{
		index:     index,
		interval:  interval,
		idleAfter: idleAfter,
		spans:     observability.NoopSpanManager{},
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run sweeps at the configured interval until ctx is canceled.
// It returns ctx.Err().
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce runs a single sweep pass and returns the number of
// sessions evicted.
func (s *Sweeper) SweepOnce(ctx context.Context) int {
	_, span := s.spans.StartSweepSpan(ctx)
	start := s.now()

	// Collect first, evict after: eviction inside Range would be
	// correct (Range iterates a snapshot) but keeping the passes
	// separate makes the eviction set explicit in logs and traces.
	var stale []*Session
	s.index.Range(func(sess *Session) bool {
		if s.isStale(sess, start) {
			stale = append(stale, sess)
		}
		return true
	})

	evicted := 0
	for _, sess := range stale {
		removed, ok := s.index.Remove(sess.Identity)
		if !ok {
			continue
		}
		evicted++
		s.recordPeer(removed)
	}

	observability.LogSweep(s.log, evicted, s.now().Sub(start))
	s.spans.EndSpanWithError(span, nil)
	return evicted
}

func (s *Sweeper) isStale(sess *Session, now time.Time) bool {
	idle := sess.IdleFor(now)
	if sess.State == StateDisconnected {
		return idle > s.idleAfter
	}
	return idle > 2*s.idleAfter
}

// recordPeer writes an evicted session's identity to the peer store.
// Store errors are logged, not propagated: losing a peer record must
// not fail the sweep.
func (s *Sweeper) recordPeer(sess *Session) {
	if s.store == nil {
		return
	}
	err := s.store.Put(peerstore.PeerRecord{
		Identity:      sess.Identity,
		LastSessionID: string(sess.ID),
		Generation:    sess.Generation,
		LastSeen:      sess.LastActivity,
	})
	if err != nil && s.log != nil {
		s.log.Warn("peer store write failed",
			slog.String("peer_identity", sess.Identity),
			slog.String("error", err.Error()),
		)
	}
}

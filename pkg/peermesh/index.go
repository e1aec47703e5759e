package peermesh

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/husseinmarah/peermesh/pkg/peermesh/event"
	"github.com/husseinmarah/peermesh/pkg/peermesh/observability"
	"github.com/husseinmarah/peermesh/pkg/peermesh/registry"
)

// SessionUpdateFunc computes the replacement session for a peer. old
// is the current session, or nil if the peer has none. It runs under
// the peer's key lock: no other update for the same peer runs
// concurrently, and it must not perform I/O or call back into the
// index for the same peer.
//
// Return a modified Clone of old (or a new session) to store it.
// Return nil to leave the index unchanged: on a miss this declines to
// create, on a hit it leaves the stored session as it was.
//
// On the UpdateBySessionID creation path the callback can run more
// than once: once speculatively to learn the new session's identity,
// and again if another caller created the peer first, this time with
// their session as old. Callbacks should therefore be pure functions
// of their input, like the retry callback of a compare-and-swap loop.
type SessionUpdateFunc func(old *Session) (*Session, error)

// SessionIndex tracks one Session per remote peer and lets concurrent
// connectivity callbacks read and mutate them without races.
//
// It offers two lookup dimensions over a single set of sessions: the
// transient SessionID assigned by the transport for the current
// connection, and the stable peer identity that survives reconnects.
// Sessions are stored once, keyed by stable identity; a secondary
// SessionID-to-identity index resolves transient lookups and is
// re-derived from every update's output, so it can go stale but never
// authoritative-wrong: a resolution whose session no longer carries
// the looked-up SessionID is treated as a miss.
//
// All methods are safe for concurrent use. A SessionIndex must be
// created with NewSessionIndex; it holds no global state and is owned
// by whichever mesh-layer component constructs it.
type SessionIndex struct {
	sessions    *registry.Registry[string, *Session]
	byTransient *registry.Registry[SessionID, string]

	log     *slog.Logger
	metrics observability.MetricsRecorder
	bus     *event.Bus
}

// NewSessionIndex creates an empty index. Options attach a logger,
// metrics recorder, or event bus; without them the index is silent.
func NewSessionIndex(opts ...IndexOption) *SessionIndex {
	x := &SessionIndex{
		sessions:    registry.New[string, *Session](),
		byTransient: registry.New[SessionID, string](),
		metrics:     observability.NoopMetrics{},
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// UpdateBySessionID atomically updates the session for the peer
// currently using the transient identifier id.
//
// If id resolves to a known peer, fn receives that peer's session. If
// id is unknown (never seen, or stale after a reconnect), fn receives
// nil and may create the session; the returned session must carry a
// stable identity, which becomes its key. Exactly one session is ever
// created per identity, even when concurrent callers race on the same
// unseen id.
//
// The stored session is returned, or nil if fn declined the update.
func (x *SessionIndex) UpdateBySessionID(id SessionID, fn SessionUpdateFunc) (*Session, error) {
	if fn == nil {
		return nil, ErrNilUpdate
	}

	if identity, ok := x.resolve(id); ok {
		return x.updateByIdentity(identity, id, fn)
	}

	// Unknown transient id. Run fn once against absence to learn which
	// peer this is; its output chooses the primary key.
	draft, err := fn(nil)
	if err != nil {
		x.metrics.RecordSessionUpdate(context.Background(), false, 0, err)
		observability.LogUpdateError(x.log, "", string(id), err)
		return nil, err
	}
	if draft == nil {
		return nil, nil
	}
	if draft.Identity == "" {
		return nil, ErrNoIdentity
	}
	if draft.ID == "" {
		draft.ID = id
	}

	start := time.Now()
	created := false
	var prior *Session
	sess, err := x.sessions.Update(draft.Identity, func(old *Session, ok bool) (*Session, error) {
		if !ok {
			created = true
			return draft, nil
		}
		// A concurrent creator won, or the peer was already known
		// under another transient id. Reapply fn on the live session;
		// the draft is discarded.
		created = false
		prior = old
		next, err := fn(old)
		if err != nil {
			return nil, err
		}
		if next == nil {
			return nil, errSkip
		}
		if next.Identity != old.Identity {
			return nil, ErrIdentityMismatch
		}
		return next, nil
	})
	return x.finishUpdate(sess, prior, draft.Identity, id, created, start, err)
}

// UpdateByIdentity atomically updates the session for the peer with
// the given stable identity. fn receives the current session, or nil
// if the peer has none; a created or replaced session must keep the
// same identity (an empty Identity field is filled in from the key).
//
// The stored session is returned, or nil if fn declined the update.
func (x *SessionIndex) UpdateByIdentity(identity string, fn SessionUpdateFunc) (*Session, error) {
	return x.updateByIdentity(identity, "", fn)
}

// updateByIdentity carries the transient id the caller resolved
// through, if any, so failures log with full peer context.
func (x *SessionIndex) updateByIdentity(identity string, id SessionID, fn SessionUpdateFunc) (*Session, error) {
	if fn == nil {
		return nil, ErrNilUpdate
	}
	if identity == "" {
		return nil, ErrNoIdentity
	}

	start := time.Now()
	created := false
	var prior *Session
	sess, err := x.sessions.Update(identity, func(old *Session, ok bool) (*Session, error) {
		created = !ok
		if !ok {
			old = nil
		}
		prior = old
		next, err := fn(old)
		if err != nil {
			return nil, err
		}
		if next == nil {
			return nil, errSkip
		}
		if next.Identity == "" {
			next = next.Clone()
			next.Identity = identity
		}
		if next.Identity != identity {
			return nil, ErrIdentityMismatch
		}
		return next, nil
	})
	return x.finishUpdate(sess, prior, identity, id, created, start, err)
}

// finishUpdate handles the common tail of both update paths: skip
// handling, secondary-index refresh, metrics, logs, and events. It
// runs after the registry released the key lock.
func (x *SessionIndex) finishUpdate(sess, prior *Session, identity string, id SessionID, created bool, start time.Time, err error) (*Session, error) {
	ctx := context.Background()
	if err != nil {
		if errors.Is(err, errSkip) {
			return nil, nil
		}
		x.metrics.RecordSessionUpdate(ctx, false, time.Since(start), err)
		observability.LogUpdateError(x.log, identity, string(id), err)
		return nil, err
	}

	if sess.ID != "" {
		identity := sess.Identity
		x.byTransient.Update(sess.ID, func(string, bool) (string, error) {
			return identity, nil
		})
	}

	x.metrics.RecordSessionUpdate(ctx, created, time.Since(start), nil)
	if created {
		observability.LogSessionCreated(x.log, sess.Identity, string(sess.ID), sess.State.String())
		x.publish(event.TypeSessionCreated, sess)
	} else if prior != nil && prior.State != sess.State {
		observability.LogSessionState(x.log, sess.Identity, string(sess.ID), prior.State.String(), sess.State.String())
		x.publish(event.TypeSessionStateChanged, sess)
	}
	return sess, nil
}

// resolve maps a transient id to a stable identity, validating that
// the stored session still carries that id. A stale mapping (the peer
// reconnected under a new id, or the transport reused the id for a
// different peer) is pruned and reported as a miss.
func (x *SessionIndex) resolve(id SessionID) (string, bool) {
	identity, ok := x.byTransient.Get(id)
	if !ok {
		return "", false
	}
	sess, ok := x.sessions.Get(identity)
	if !ok || sess.ID != id {
		// Self-heal: drop the stale mapping. A concurrent remap of the
		// same id re-records itself on its own update path.
		x.byTransient.Remove(id)
		x.metrics.RecordIdentityMismatch(context.Background())
		observability.LogIdentityMismatch(x.log, string(id), identity)
		return "", false
	}
	return identity, true
}

// GetByIdentity returns a snapshot of the session for the given stable
// identity.
func (x *SessionIndex) GetByIdentity(identity string) (*Session, bool) {
	return x.sessions.Get(identity)
}

// GetBySessionID returns a snapshot of the session currently bound to
// the transient id. Stale ids report a miss, never another peer's
// session.
func (x *SessionIndex) GetBySessionID(id SessionID) (*Session, bool) {
	identity, ok := x.resolve(id)
	if !ok {
		return nil, false
	}
	sess, ok := x.sessions.Get(identity)
	if !ok || sess.ID != id {
		return nil, false
	}
	return sess, true
}

// Remove evicts the session for the given identity and returns it.
// Both lookup dimensions observe the removal: a subsequent lookup by
// the session's transient id misses.
func (x *SessionIndex) Remove(identity string) (*Session, bool) {
	sess, ok := x.sessions.Remove(identity)
	if !ok {
		return nil, false
	}
	if sess.ID != "" {
		if mapped, ok := x.byTransient.Get(sess.ID); ok && mapped == identity {
			x.byTransient.Remove(sess.ID)
		}
	}
	x.metrics.RecordEviction(context.Background())
	observability.LogSessionEvicted(x.log, identity, string(sess.ID))
	x.publish(event.TypeSessionEvicted, sess)
	return sess, true
}

// Range calls fn for each live session snapshot until fn returns
// false. fn may call back into the index, including Remove for the
// session it was handed.
func (x *SessionIndex) Range(fn func(*Session) bool) {
	x.sessions.Range(func(_ string, sess *Session) bool {
		return fn(sess)
	})
}

// Identities returns the stable identities of all live sessions.
func (x *SessionIndex) Identities() []string {
	return x.sessions.Keys()
}

// Len returns the number of live sessions.
func (x *SessionIndex) Len() int {
	return x.sessions.Len()
}

func (x *SessionIndex) publish(t event.Type, sess *Session) {
	if x.bus == nil {
		return
	}
	state := ""
	if t != event.TypeSessionEvicted {
		state = sess.State.String()
	}
	x.bus.Publish(event.New(t, sess.Identity, string(sess.ID), state))
}

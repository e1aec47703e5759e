package peermesh

import "time"

// SessionID is the transport-assigned identifier for a connectivity
// session. It is only valid for the lifetime of the underlying
// connection: a peer that drops and reconnects comes back with a new
// SessionID. Use the stable identity to refer to a peer across
// reconnects.
type SessionID string

// State is the connection state of a session.
type State int

const (
	// StateDiscovered means the peer has been seen by discovery but
	// no connection attempt has been made.
	StateDiscovered State = iota

	// StateConnecting means a connection attempt is in flight.
	StateConnecting

	// StateConnected means the session has a live connection.
	StateConnected

	// StateDisconnected means the connection was lost or torn down.
	// The session lingers until the sweeper evicts it.
	StateDisconnected
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateDiscovered:
		return "discovered"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	case StateDisconnected:
		return "disconnected"
	default:
		return "unknown"
	}
}

// Session is the per-peer connection state tracked by the index.
//
// A Session handed out by the index is a snapshot. Treat it as
// immutable: to change a peer's state, go through UpdateBySessionID or
// UpdateByIdentity and return a modified Clone from the callback.
// Mutating a snapshot in place is a race.
type Session struct {
	// ID is the current transient session identifier. Empty when the
	// peer is known only by identity (e.g. loaded from the peer store
	// before discovery has seen it this run).
	ID SessionID

	// Identity is the stable peer identity. Never empty for a stored
	// session; it is also the key the session is stored under.
	Identity string

	// State is the connection state.
	State State

	// Generation counts reconnects of this logical peer. It starts at
	// 1 and increments each time a new transient ID is attached.
	Generation int

	// LastActivity is the time of the last update touching this
	// session. The sweeper uses it to find stale peers.
	LastActivity time.Time

	// Attrs carries opaque per-connection attributes (negotiated
	// parameters, transport hints). The index never inspects them.
	Attrs map[string]string
}

// NewSession creates a session in StateDiscovered with generation 1.
func NewSession(id SessionID, identity string) *Session {
	return &Session{
		ID:           id,
		Identity:     identity,
		State:        StateDiscovered,
		Generation:   1,
		LastActivity: time.Now().UTC(),
	}
}

// Clone returns a deep copy. Update callbacks should clone the current
// session, modify the copy, and return it.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	if s.Attrs != nil {
		out.Attrs = make(map[string]string, len(s.Attrs))
		for k, v := range s.Attrs {
			out.Attrs[k] = v
		}
	}
	return &out
}

// WithState returns a clone with the state changed and LastActivity
// refreshed.
func (s *Session) WithState(state State) *Session {
	out := s.Clone()
	out.State = state
	out.LastActivity = time.Now().UTC()
	return out
}

// Reconnected returns a clone bound to a new transient ID: generation
// is bumped, state reset to StateConnecting, LastActivity refreshed.
func (s *Session) Reconnected(id SessionID) *Session {
	out := s.Clone()
	out.ID = id
	out.Generation++
	out.State = StateConnecting
	out.LastActivity = time.Now().UTC()
	return out
}

// IdleFor reports how long the session has been without activity at
// the given instant.
func (s *Session) IdleFor(now time.Time) time.Duration {
	return now.Sub(s.LastActivity)
}

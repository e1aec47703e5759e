// Package event carries session lifecycle notifications from the
// index to interested subscribers (UI layers, replication, logging
// taps) without the index ever blocking on them.
package event

import (
	"time"

	"github.com/google/uuid"
)

// Type identifies a session lifecycle event.
type Type string

const (
	// TypeSessionCreated fires when a session is created for a
	// previously unseen stable identity.
	TypeSessionCreated Type = "session.created"

	// TypeSessionStateChanged fires when an update changes a
	// session's connection state.
	TypeSessionStateChanged Type = "session.state_changed"

	// TypeSessionEvicted fires when a session is removed from the
	// index.
	TypeSessionEvicted Type = "session.evicted"
)

// Event is one session lifecycle notification. Events are values;
// subscribers receive independent copies and may keep them.
type Event struct {
	// ID uniquely identifies this event.
	ID string

	// Type is the lifecycle event type.
	Type Type

	// Time is when the event occurred.
	Time time.Time

	// Identity is the stable identity of the peer involved.
	Identity string

	// SessionID is the transient session identifier, if one was
	// attached at the time of the event.
	SessionID string

	// State is the session's connection state after the event, as a
	// string ("connected", "disconnected", ...). Empty for evictions.
	State string
}

// New creates an event with a fresh ID and the current time.
func New(t Type, identity, sessionID, state string) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      t,
		Time:      time.Now().UTC(),
		Identity:  identity,
		SessionID: sessionID,
		State:     state,
	}
}

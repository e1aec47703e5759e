// Package peerstore persists known peer identities across restarts.
//
// Live sessions belong to the in-memory index; the peer store only
// remembers which stable identities have been seen, when, and under
// which last transient session, so the mesh layer can prefer known
// peers after a restart and expire ones not seen for a long time.
package peerstore

import (
	"errors"
	"time"
)

// PeerRecord is one remembered peer.
type PeerRecord struct {
	// Identity is the stable peer identity.
	Identity string

	// LastSessionID is the transient id of the peer's last session,
	// if any. Informational only; it is invalid after a reconnect.
	LastSessionID string

	// Generation is the reconnect count of the peer's last session.
	Generation int

	// LastSeen is when the peer was last updated or evicted.
	LastSeen time.Time
}

// Store persists peer records.
// Implementations must be safe for concurrent use.
type Store interface {
	// Put stores or replaces the record for rec.Identity.
	Put(rec PeerRecord) error

	// Get retrieves a record.
	// Returns ErrNotFound if the identity is unknown.
	Get(identity string) (PeerRecord, error)

	// List returns all records, most recently seen first.
	List() ([]PeerRecord, error)

	// Delete removes a record.
	// Returns nil if the identity is unknown.
	Delete(identity string) error

	// Close releases any resources (connections, files).
	Close() error
}

// Sentinel errors for peer store operations.
var (
	// ErrNotFound indicates the identity has no record.
	ErrNotFound = errors.New("peer not found")

	// ErrStoreClosed indicates the store has been closed.
	ErrStoreClosed = errors.New("peer store closed")
)

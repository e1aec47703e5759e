package peermesh

import "errors"

// Sentinel errors for session index operations.
var (
	// ErrNoIdentity indicates an update callback created a session
	// without setting its stable identity, or an identity-keyed
	// operation was called with an empty identity.
	ErrNoIdentity = errors.New("session has no stable identity")

	// ErrIdentityMismatch indicates an update callback tried to move a
	// stored session to a different stable identity in place. Identity
	// is fixed at creation; changing it requires evicting the session
	// and creating a new one.
	ErrIdentityMismatch = errors.New("session identity does not match its key")

	// ErrNilUpdate indicates an update was called with a nil callback.
	ErrNilUpdate = errors.New("update callback cannot be nil")
)

// errSkip is returned by internal registry callbacks when the caller's
// update function declined the update by returning a nil session. It
// aborts the registry update without surfacing an error.
var errSkip = errors.New("update skipped")

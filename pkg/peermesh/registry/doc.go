// Package registry provides a generic keyed store with linearizable
// per-key read-modify-write semantics.
//
// Registry differs from a mutex-guarded map in one important way: the
// unit of atomicity is a single key, not the whole table. Update runs
// its callback under a lock private to that key, so concurrent updates
// of unrelated keys never contend beyond a brief table lookup, while
// updates of the same key serialize into a total order with no lost
// writes.
//
// # Fetch-or-create
//
// Update exposes "find the current value or create one" as a single
// indivisible step. The callback receives the current value (and an ok
// flag reporting presence) and returns the replacement:
//
//	sess, err := r.Update("peer-1", func(old *Session, ok bool) (*Session, error) {
//	    if !ok {
//	        return newSession("peer-1"), nil
//	    }
//	    next := old.Clone()
//	    next.Attempts++
//	    return next, nil
//	})
//
// Two goroutines racing to create the same key cannot both win: one
// callback observes absence and creates, the other observes the value
// the first one stored. There is no separate Get+Put window to race
// through.
//
// # Failure
//
// A callback error aborts the update for that key. The prior value (or
// absence) is left exactly as it was and the error is returned to the
// caller of Update.
//
// # Thread safety
//
// All methods are safe for concurrent use. Range iterates a snapshot,
// so callbacks may freely call back into the registry for any key.
// Update callbacks may re-enter the registry for a different key, but
// must not touch the key being updated: that lock is already held and
// the call would deadlock, as with sync.Mutex.
package registry

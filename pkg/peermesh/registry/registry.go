package registry

import "sync"

// UpdateFunc computes the replacement value for a key. old is the
// current value and ok reports whether the key was present. Returning
// an error aborts the update, leaving the prior state untouched.
type UpdateFunc[V any] func(old V, ok bool) (V, error)

// Registry is a keyed store with linearizable per-key updates.
// The zero value is not usable; use New.
type Registry[K comparable, V any] struct {
	mu      sync.Mutex
	entries map[K]*entry[V]
}

// entry is one key's slot. Its mutex serializes all access to the
// value; the registry's table mutex is never held while an entry
// mutex is held.
type entry[V any] struct {
	mu      sync.Mutex
	value   V
	present bool

	// dead marks an entry that has been unlinked from the table.
	// A goroutine that acquired the entry through the table before
	// the unlink must re-resolve instead of operating on it.
	dead bool
}

// New creates an empty registry.
func New[K comparable, V any]() *Registry[K, V] {
	return &Registry[K, V]{
		entries: make(map[K]*entry[V]),
	}
}

// Update atomically replaces the value under key with the result of
// fn. fn observes the current value (or absence) and no other Update,
// Get, or Remove on the same key runs between that observation and the
// store. The stored value is returned.
//
// If fn returns an error nothing is stored, a creation in progress is
// rolled back, and the error is returned. fn must not call back into
// the registry for the same key and must not perform I/O; it runs
// under the key's lock.
func (r *Registry[K, V]) Update(key K, fn UpdateFunc[V]) (V, error) {
	for {
		r.mu.Lock()
		e, ok := r.entries[key]
		if !ok {
			e = &entry[V]{}
			r.entries[key] = e
		}
		r.mu.Unlock()

		e.mu.Lock()
		if e.dead {
			// Removed between the table lookup and here.
			e.mu.Unlock()
			continue
		}

		v, err := fn(e.value, e.present)
		if err != nil {
			created := !e.present
			if created {
				e.dead = true
			}
			e.mu.Unlock()
			if created {
				r.unlink(key, e)
			}
			var zero V
			return zero, err
		}

		e.value = v
		e.present = true
		e.mu.Unlock()
		return v, nil
	}
}

// Get returns the current value for key. It may block behind an
// in-flight Update on the same key, never on other keys.
func (r *Registry[K, V]) Get(key K) (V, bool) {
	r.mu.Lock()
	e, ok := r.entries[key]
	r.mu.Unlock()
	if !ok {
		var zero V
		return zero, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dead || !e.present {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Has reports whether key holds a value.
func (r *Registry[K, V]) Has(key K) bool {
	_, ok := r.Get(key)
	return ok
}

// Remove atomically deletes key and returns the prior value, if any.
func (r *Registry[K, V]) Remove(key K) (V, bool) {
	var zero V

	r.mu.Lock()
	e, ok := r.entries[key]
	r.mu.Unlock()
	if !ok {
		return zero, false
	}

	e.mu.Lock()
	if e.dead {
		e.mu.Unlock()
		return zero, false
	}
	e.dead = true
	v, present := e.value, e.present
	e.mu.Unlock()

	r.unlink(key, e)
	if !present {
		return zero, false
	}
	return v, true
}

// unlink drops e from the table unless a concurrent Update already
// replaced it with a fresh entry for the same key.
func (r *Registry[K, V]) unlink(key K, e *entry[V]) {
	r.mu.Lock()
	if r.entries[key] == e {
		delete(r.entries, key)
	}
	r.mu.Unlock()
}

// Range calls fn for each entry until fn returns false. It iterates a
// snapshot: each value is read under its key's lock, but fn itself
// runs unlocked, so it may call any registry method, including for the
// key it was handed. Entries added or removed during iteration may or
// may not be observed.
func (r *Registry[K, V]) Range(fn func(K, V) bool) {
	r.mu.Lock()
	keys := make([]K, 0, len(r.entries))
	slots := make([]*entry[V], 0, len(r.entries))
	for k, e := range r.entries {
		keys = append(keys, k)
		slots = append(slots, e)
	}
	r.mu.Unlock()

	for i, e := range slots {
		e.mu.Lock()
		v, live := e.value, e.present && !e.dead
		e.mu.Unlock()
		if !live {
			continue
		}
		if !fn(keys[i], v) {
			return
		}
	}
}

// Keys returns all keys currently holding a value. Order is not
// guaranteed.
func (r *Registry[K, V]) Keys() []K {
	keys := make([]K, 0)
	r.Range(func(k K, _ V) bool {
		keys = append(keys, k)
		return true
	})
	return keys
}

// Len returns the number of keys holding a value.
func (r *Registry[K, V]) Len() int {
	n := 0
	r.Range(func(K, V) bool {
		n++
		return true
	})
	return n
}

package peerstore

import (
	"sort"
	"sync"
)

// MemoryStore is an in-memory peer store for testing.
// Data is lost when the process exits.
type MemoryStore struct {
	mu     sync.RWMutex
	peers  map[string]PeerRecord
	closed bool
}

// NewMemoryStore creates a new in-memory peer store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		peers: make(map[string]PeerRecord),
	}
}

// Put implements Store.
func (m *MemoryStore) Put(rec PeerRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	m.peers[rec.Identity] = rec
	return nil
}

// Get implements Store.
func (m *MemoryStore) Get(identity string) (PeerRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return PeerRecord{}, ErrStoreClosed
	}
	rec, ok := m.peers[identity]
	if !ok {
		return PeerRecord{}, ErrNotFound
	}
	return rec, nil
}

// List implements Store.
func (m *MemoryStore) List() ([]PeerRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, ErrStoreClosed
	}
	recs := make([]PeerRecord, 0, len(m.peers))
	for _, rec := range m.peers {
		recs = append(recs, rec)
	}
	sort.Slice(recs, func(i, j int) bool {
		return recs[i].LastSeen.After(recs[j].LastSeen)
	})
	return recs, nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(identity string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrStoreClosed
	}
	delete(m.peers, identity)
	return nil
}

// Close implements Store.
func (m *MemoryStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

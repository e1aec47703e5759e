package peerstore

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// storeFactories builds each Store implementation for the shared
// contract tests.
func storeFactories(t *testing.T) map[string]func(t *testing.T) Store {
	return map[string]func(t *testing.T) Store{
		"memory": func(t *testing.T) Store {
			return NewMemoryStore()
		},
		"sqlite": func(t *testing.T) Store {
			s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "peers.db"))
			require.NoError(t, err)
			return s
		},
	}
}

func TestStorePutGet(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			defer s.Close()

			rec := PeerRecord{
				Identity:      "P-abc",
				LastSessionID: "T1",
				Generation:    3,
				LastSeen:      time.Now().UTC().Truncate(time.Millisecond),
			}
			require.NoError(t, s.Put(rec))

			got, err := s.Get("P-abc")
			require.NoError(t, err)
			assert.Equal(t, rec.Identity, got.Identity)
			assert.Equal(t, rec.LastSessionID, got.LastSessionID)
			assert.Equal(t, rec.Generation, got.Generation)
			assert.WithinDuration(t, rec.LastSeen, got.LastSeen, time.Millisecond)
		})
	}
}

func TestStorePutReplaces(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			defer s.Close()

			require.NoError(t, s.Put(PeerRecord{Identity: "P-abc", LastSessionID: "T1", Generation: 1, LastSeen: time.Now().UTC()}))
			require.NoError(t, s.Put(PeerRecord{Identity: "P-abc", LastSessionID: "T2", Generation: 2, LastSeen: time.Now().UTC()}))

			got, err := s.Get("P-abc")
			require.NoError(t, err)
			assert.Equal(t, "T2", got.LastSessionID)
			assert.Equal(t, 2, got.Generation)

			recs, err := s.List()
			require.NoError(t, err)
			assert.Len(t, recs, 1)
		})
	}
}

func TestStoreGetNotFound(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			defer s.Close()

			_, err := s.Get("P-nope")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStoreListOrder(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			defer s.Close()

			now := time.Now().UTC()
			require.NoError(t, s.Put(PeerRecord{Identity: "P-old", LastSeen: now.Add(-time.Hour)}))
			require.NoError(t, s.Put(PeerRecord{Identity: "P-new", LastSeen: now}))

			recs, err := s.List()
			require.NoError(t, err)
			require.Len(t, recs, 2)
			assert.Equal(t, "P-new", recs[0].Identity)
			assert.Equal(t, "P-old", recs[1].Identity)
		})
	}
}

func TestStoreDelete(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			defer s.Close()

			require.NoError(t, s.Put(PeerRecord{Identity: "P-abc", LastSeen: time.Now().UTC()}))
			require.NoError(t, s.Delete("P-abc"))

			_, err := s.Get("P-abc")
			assert.ErrorIs(t, err, ErrNotFound)

			// Deleting an unknown identity is not an error.
			assert.NoError(t, s.Delete("P-nope"))
		})
	}
}

func TestStoreClosed(t *testing.T) {
	for name, factory := range storeFactories(t) {
		t.Run(name, func(t *testing.T) {
			s := factory(t)
			require.NoError(t, s.Close())
			require.NoError(t, s.Close()) // idempotent

			assert.ErrorIs(t, s.Put(PeerRecord{Identity: "P-abc"}), ErrStoreClosed)
			_, err := s.Get("P-abc")
			assert.ErrorIs(t, err, ErrStoreClosed)
			_, err = s.List()
			assert.ErrorIs(t, err, ErrStoreClosed)
			assert.ErrorIs(t, s.Delete("P-abc"), ErrStoreClosed)
		})
	}
}

func TestSQLiteSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "peers.db")

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Put(PeerRecord{Identity: "P-abc", LastSessionID: "T1", Generation: 1, LastSeen: time.Now().UTC()}))
	require.NoError(t, s.Close())

	s2, err := NewSQLiteStore(path)
	require.NoError(t, err)
	defer s2.Close()

	got, err := s2.Get("P-abc")
	require.NoError(t, err)
	assert.Equal(t, "T1", got.LastSessionID)
}

package peermesh

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/husseinmarah/peermesh/pkg/peermesh/peerstore"
)

// addSession stores a session with a fixed state and last activity.
func addSession(t *testing.T, x *SessionIndex, identity string, state State, lastActivity time.Time) {
	t.Helper()
	_, err := x.UpdateByIdentity(identity, func(*Session) (*Session, error) {
		sess := NewSession(SessionID("T-"+identity), identity)
		sess.State = state
		sess.LastActivity = lastActivity
		return sess, nil
	})
	require.NoError(t, err)
}

func TestSweepEvictsStaleDisconnected(t *testing.T) {
	x := NewSessionIndex()
	now := time.Now().UTC()

	addSession(t, x, "P-stale", StateDisconnected, now.Add(-10*time.Minute))
	addSession(t, x, "P-fresh", StateDisconnected, now.Add(-time.Second))
	addSession(t, x, "P-live", StateConnected, now.Add(-10*time.Minute))

	s := NewSweeper(x, time.Minute, 5*time.Minute)
	s.now = func() time.Time { return now }

	evicted := s.SweepOnce(context.Background())
	assert.Equal(t, 1, evicted)

	_, ok := x.GetByIdentity("P-stale")
	assert.False(t, ok)
	_, ok = x.GetByIdentity("P-fresh")
	assert.True(t, ok)
	_, ok = x.GetByIdentity("P-live")
	assert.True(t, ok)
}

func TestSweepEvictsVanishedPeers(t *testing.T) {
	x := NewSessionIndex()
	now := time.Now().UTC()

	// Never disconnected, but silent past twice the idle timeout:
	// the peer vanished without a callback.
	addSession(t, x, "P-gone", StateConnecting, now.Add(-11*time.Minute))

	s := NewSweeper(x, time.Minute, 5*time.Minute)
	s.now = func() time.Time { return now }

	assert.Equal(t, 1, s.SweepOnce(context.Background()))
	assert.Equal(t, 0, x.Len())
}

func TestSweepRecordsEvictedPeers(t *testing.T) {
	x := NewSessionIndex()
	store := peerstore.NewMemoryStore()
	now := time.Now().UTC()

	addSession(t, x, "P-stale", StateDisconnected, now.Add(-10*time.Minute))

	s := NewSweeper(x, time.Minute, 5*time.Minute, WithPeerStore(store))
	s.now = func() time.Time { return now }

	require.Equal(t, 1, s.SweepOnce(context.Background()))

	rec, err := store.Get("P-stale")
	require.NoError(t, err)
	assert.Equal(t, "T-P-stale", rec.LastSessionID)
	assert.Equal(t, 1, rec.Generation)
}

func TestSweepNothingStale(t *testing.T) {
	x := NewSessionIndex()
	addSession(t, x, "P-a", StateConnected, time.Now().UTC())

	s := NewSweeper(x, time.Minute, 5*time.Minute)
	assert.Equal(t, 0, s.SweepOnce(context.Background()))
	assert.Equal(t, 1, x.Len())
}

func TestSweeperRunStopsOnCancel(t *testing.T) {
	x := NewSessionIndex()
	s := NewSweeper(x, 10*time.Millisecond, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancel")
	}
}

func TestNewSweeperDefaults(t *testing.T) {
	x := NewSessionIndex()
	s := NewSweeper(x, 0, 0)
	d := DefaultSettings()
	assert.Equal(t, d.SweepInterval, s.interval)
	assert.Equal(t, d.IdleTimeout, s.idleAfter)
}

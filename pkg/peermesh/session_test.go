package peermesh

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSession(t *testing.T) {
	sess := NewSession("T1", "P-abc")
	assert.Equal(t, SessionID("T1"), sess.ID)
	assert.Equal(t, "P-abc", sess.Identity)
	assert.Equal(t, StateDiscovered, sess.State)
	assert.Equal(t, 1, sess.Generation)
	assert.False(t, sess.LastActivity.IsZero())
}

func TestCloneIsDeep(t *testing.T) {
	sess := NewSession("T1", "P-abc")
	sess.Attrs = map[string]string{"codec": "h264"}

	clone := sess.Clone()
	require.NotSame(t, sess, clone)
	assert.Equal(t, sess, clone)

	clone.Attrs["codec"] = "vp9"
	assert.Equal(t, "h264", sess.Attrs["codec"])
}

func TestCloneNil(t *testing.T) {
	var sess *Session
	assert.Nil(t, sess.Clone())
}

func TestWithState(t *testing.T) {
	sess := NewSession("T1", "P-abc")
	before := sess.LastActivity

	next := sess.WithState(StateConnected)
	assert.Equal(t, StateConnected, next.State)
	assert.False(t, next.LastActivity.Before(before))

	// Original untouched.
	assert.Equal(t, StateDiscovered, sess.State)
}

func TestReconnected(t *testing.T) {
	sess := NewSession("T1", "P-abc")
	sess.State = StateDisconnected

	next := sess.Reconnected("T2")
	assert.Equal(t, SessionID("T2"), next.ID)
	assert.Equal(t, 2, next.Generation)
	assert.Equal(t, StateConnecting, next.State)
	assert.Equal(t, "P-abc", next.Identity)
}

func TestIdleFor(t *testing.T) {
	sess := NewSession("T1", "P-abc")
	sess.LastActivity = time.Now().UTC().Add(-time.Minute)
	assert.InDelta(t, float64(time.Minute), float64(sess.IdleFor(time.Now().UTC())), float64(time.Second))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "discovered", StateDiscovered.String())
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "connected", StateConnected.String())
	assert.Equal(t, "disconnected", StateDisconnected.String())
	assert.Equal(t, "unknown", State(42).String())
}

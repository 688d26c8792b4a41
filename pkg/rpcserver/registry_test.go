package rpcserver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientRegistry_AddRemove(t *testing.T) {
	reg := NewClientRegistry()

	reg.Add(&Client{ID: "a"})
	reg.Add(&Client{ID: "b"})
	assert.Equal(t, 2, reg.Len())

	assert.True(t, reg.Remove("a"))
	assert.False(t, reg.Remove("a"))
	assert.Equal(t, 1, reg.Len())
}

func TestClientRegistry_AuthenticateAndListeners(t *testing.T) {
	reg := NewClientRegistry()
	auth := NewAuthHandler("s3cret")

	signed := &Client{ID: "signed"}
	pending := &Client{ID: "pending"}
	reg.Add(signed)
	reg.Add(pending)

	reg.Challenge(signed, "challenge-1")
	assert.Equal(t, StateAuthenticating, signed.State)

	result, attempts := reg.Authenticate(auth, pending, "whatever")
	assert.False(t, result.Success)
	assert.Equal(t, 0, attempts)

	result, attempts = reg.Authenticate(auth, signed, Sign("s3cret", "challenge-1"))
	assert.True(t, result.Success)
	assert.Equal(t, 0, attempts)
	assert.True(t, reg.IsAuthenticated(signed))
	assert.False(t, reg.IsAuthenticated(pending))

	listeners := reg.Listeners()
	require.Len(t, listeners, 1)
	assert.Equal(t, "signed", listeners[0].ID)
	assert.Len(t, reg.Sessions(), 2)
}

func TestClientRegistry_FailedAttemptsCounted(t *testing.T) {
	reg := NewClientRegistry()
	c := &Client{ID: "c"}
	reg.Add(c)
	reg.Challenge(c, "challenge")

	_, attempts := reg.Authenticate(NewAuthHandler("s"), c, "bad")
	assert.Equal(t, 1, attempts)
	_, attempts = reg.Authenticate(NewAuthHandler("s"), c, "bad")
	assert.Equal(t, 2, attempts)
}

func TestClientRegistry_SnapshotOrderAndIdle(t *testing.T) {
	reg := NewClientRegistry()
	now := time.Now()

	reg.Add(&Client{ID: "late", ConnectedAt: now, LastActivity: now})
	reg.Add(&Client{ID: "early", ConnectedAt: now.Add(-time.Hour), LastActivity: now.Add(-time.Hour)})

	infos := reg.Snapshot()
	require.Len(t, infos, 2)
	assert.Equal(t, "early", infos[0].ID)
	assert.True(t, infos[0].Idle)
	assert.Equal(t, "late", infos[1].ID)
	assert.False(t, infos[1].Idle)

	reg.Touch("early")
	assert.False(t, reg.Snapshot()[0].Idle)
}

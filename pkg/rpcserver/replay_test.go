package rpcserver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReplayCache_ScopedByMethod(t *testing.T) {
	cache := newReplayCache(time.Minute)
	cache.store("tools.call", "k", RPCResponse{ID: "1", Result: "created"})

	_, ok := cache.lookup("tools.list", "k")
	assert.False(t, ok)

	resp, ok := cache.lookup("tools.call", "k")
	require.True(t, ok)
	assert.Equal(t, "created", resp.Result)
}

func TestReplayCache_EmptyKeyNeverStored(t *testing.T) {
	cache := newReplayCache(time.Minute)
	cache.store("tools.call", "", RPCResponse{ID: "1"})

	_, ok := cache.lookup("tools.call", "")
	assert.False(t, ok)
	assert.Equal(t, 0, cache.len())
}

func TestReplayCache_StoreSweepsExpired(t *testing.T) {
	cache := newReplayCache(time.Minute)
	now := time.Now()
	cache.now = func() time.Time { return now }

	cache.store("tools.call", "old", RPCResponse{ID: "1"})
	now = now.Add(2 * time.Minute)
	cache.store("tools.call", "new", RPCResponse{ID: "2"})

	assert.Equal(t, 1, cache.len())
}

func TestReplayCache_ReturnsDetachedError(t *testing.T) {
	cache := newReplayCache(time.Minute)
	cache.store("tools.call", "k", *errorResponse("1", InvalidParams, "bad"))

	first, ok := cache.lookup("tools.call", "k")
	require.True(t, ok)
	first.Error.Message = "mutated"

	second, _ := cache.lookup("tools.call", "k")
	assert.Equal(t, "bad", second.Error.Message)
}

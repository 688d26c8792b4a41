package rpcserver

import (
	"sync"
	"time"
)

// DefaultIdempotencyTTL is how long a keyed response is replayed. A retried
// meta_create_campaign inside this window gets the first campaign back
// instead of creating a second one.
const DefaultIdempotencyTTL = 5 * time.Minute

type replayEntry struct {
	resp    RPCResponse
	expires time.Time
}

// replayCache stores responses by method and idempotency key. Keys are
// scoped per method, so the same key on tools.list and tools.call never
// collide.
type replayCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]replayEntry
}

func newReplayCache(ttl time.Duration) *replayCache {
	return &replayCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]replayEntry),
	}
}

func replayKey(method, key string) string {
	return method + "\x00" + key
}

func (c *replayCache) lookup(method, key string) (RPCResponse, bool) {
	if key == "" {
		return RPCResponse{}, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	k := replayKey(method, key)
	entry, ok := c.entries[k]
	if !ok {
		return RPCResponse{}, false
	}
	if c.now().After(entry.expires) {
		delete(c.entries, k)
		return RPCResponse{}, false
	}
	return copyResponse(entry.resp), true
}

// store records resp and drops every expired entry.
func (c *replayCache) store(method, key string, resp RPCResponse) {
	if key == "" {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, entry := range c.entries {
		if now.After(entry.expires) {
			delete(c.entries, k)
		}
	}
	c.entries[replayKey(method, key)] = replayEntry{
		resp:    copyResponse(resp),
		expires: now.Add(c.ttl),
	}
}

func (c *replayCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// copyResponse detaches the error so a replayed response can be re-addressed
// without touching the stored one. Results are immutable once produced.
func copyResponse(src RPCResponse) RPCResponse {
	dst := src
	if src.Error != nil {
		e := *src.Error
		dst.Error = &e
	}
	return dst
}

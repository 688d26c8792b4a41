package rpcserver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClientRateLimiter_CheckRequestAllowed(t *testing.T) {
	t.Run("should allow requests under limit", func(t *testing.T) {
		limiter := NewClientRateLimiter(10, 5)

		for i := 0; i < 5; i++ {
			allowed, reason := limiter.CheckRequestAllowed()
			assert.True(t, allowed)
			assert.Empty(t, reason)
			limiter.RecordRequestStart()
		}
	})

	t.Run("should reject when concurrent limit exceeded", func(t *testing.T) {
		limiter := NewClientRateLimiter(100, 3)

		for i := 0; i < 3; i++ {
			limiter.RecordRequestStart()
		}

		allowed, reason := limiter.CheckRequestAllowed()
		assert.False(t, allowed)
		assert.Equal(t, ReasonTooManyConcurrent, reason)

		limiter.RecordRequestEnd()
		allowed, _ = limiter.CheckRequestAllowed()
		assert.True(t, allowed)
	})

	t.Run("should reject when rate limit exceeded", func(t *testing.T) {
		limiter := NewClientRateLimiter(5, 10)

		for i := 0; i < 5; i++ {
			limiter.RecordRequestStart()
			limiter.RecordRequestEnd()
		}

		allowed, reason := limiter.CheckRequestAllowed()
		assert.False(t, allowed)
		assert.Equal(t, ReasonRateLimited, reason)
	})

	t.Run("should allow requests after window expires", func(t *testing.T) {
		limiter := NewClientRateLimiter(2, 10)

		old := time.Now().Add(-2 * time.Minute)
		limiter.requests = []time.Time{old, old}

		allowed, _ := limiter.CheckRequestAllowed()
		assert.True(t, allowed)

		count, concurrent := limiter.Stats()
		assert.Equal(t, 0, count)
		assert.Equal(t, 0, concurrent)
	})
}

func TestClientRateLimiter_Defaults(t *testing.T) {
	limiter := NewClientRateLimiter(0, -1)

	assert.Equal(t, DefaultRequestsPerMinute, limiter.requestsPerMinute)
	assert.Equal(t, DefaultMaxConcurrent, limiter.maxConcurrent)
}

func TestClientRateLimiter_RecordRequestEndNeverNegative(t *testing.T) {
	limiter := NewClientRateLimiter(10, 10)

	limiter.RecordRequestEnd()
	limiter.RecordRequestEnd()

	_, concurrent := limiter.Stats()
	assert.Equal(t, 0, concurrent)
}

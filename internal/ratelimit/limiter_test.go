package ratelimit

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLimiter_Allow(t *testing.T) {
	limiter := New(5, time.Second)

	for i := 0; i < 5; i++ {
		assert.True(t, limiter.Allow(), "request %d should be allowed", i+1)
	}

	assert.False(t, limiter.Allow(), "request 6 should be blocked")
}

func TestLimiter_Wait(t *testing.T) {
	limiter := New(5, 100*time.Millisecond)

	for i := 0; i < 5; i++ {
		assert.NoError(t, limiter.Wait(context.Background()))
	}
}

func TestLimiter_Wait_ContextCancellation(t *testing.T) {
	limiter := New(1, time.Hour)

	assert.NoError(t, limiter.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.Error(t, limiter.Wait(ctx))
}

func TestLimiter_WaitEndpoint(t *testing.T) {
	limiter := New(100, time.Second)

	for i := 0; i < 10; i++ {
		assert.NoError(t, limiter.WaitEndpoint(context.Background(), "GetLevel1"))
	}
	assert.NoError(t, limiter.WaitEndpoint(context.Background(), "Ping"))
}

func TestLimiter_WaitEndpoint_SeparateBuckets(t *testing.T) {
	limiter := New(4, time.Hour)

	// Each endpoint gets its own bucket under the shared global budget.
	assert.NoError(t, limiter.WaitEndpoint(context.Background(), "GetLevel1"))
	assert.NoError(t, limiter.WaitEndpoint(context.Background(), "Ping"))
	assert.NoError(t, limiter.WaitEndpoint(context.Background(), "GetLevel1"))
	assert.NoError(t, limiter.WaitEndpoint(context.Background(), "Ping"))
}

func TestLimiter_SetLimit(t *testing.T) {
	limiter := New(1, time.Hour)

	assert.True(t, limiter.Allow())
	assert.False(t, limiter.Allow())

	limiter.SetLimit(1000, time.Second)

	// The refill rate rises immediately.
	time.Sleep(5 * time.Millisecond)
	assert.True(t, limiter.Allow())
}

func TestLimiter_ConcurrentUse(t *testing.T) {
	limiter := New(1000, time.Second)

	var wg sync.WaitGroup
	for range 50 {
		wg.Go(func() {
			assert.NoError(t, limiter.WaitEndpoint(context.Background(), "GetLevel1"))
		})
	}
	wg.Wait()
}

package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlidingWindowLimiter_AllowsUpToLimit(t *testing.T) {
	limiter := NewSlidingWindowLimiter(3, time.Minute)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "key")
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should be allowed", i+1)
	}

	allowed, err := limiter.Allow(ctx, "key")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestSlidingWindowLimiter_KeysAreIndependent(t *testing.T) {
	limiter := NewSlidingWindowLimiter(1, time.Minute)
	ctx := context.Background()

	allowed, err := limiter.Allow(ctx, "a")
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "a")
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = limiter.Allow(ctx, "b")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestSlidingWindowLimiter_WindowExpires(t *testing.T) {
	limiter := NewSlidingWindowLimiter(1, 20*time.Millisecond)
	ctx := context.Background()

	allowed, err := limiter.Allow(ctx, "key")
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "key")
	require.NoError(t, err)
	require.False(t, allowed)

	time.Sleep(30 * time.Millisecond)

	allowed, err = limiter.Allow(ctx, "key")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestSlidingWindowLimiter_Reset(t *testing.T) {
	limiter := NewSlidingWindowLimiter(1, time.Minute)
	ctx := context.Background()

	allowed, err := limiter.Allow(ctx, "key")
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "key")
	require.NoError(t, err)
	require.False(t, allowed)

	require.NoError(t, limiter.Reset(ctx, "key"))

	allowed, err = limiter.Allow(ctx, "key")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestUserRateLimiter_KeyedByUser(t *testing.T) {
	limiter := NewUserRateLimiter(1)
	ctx := context.Background()

	allowed, err := limiter.Allow(ctx, "user-1")
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "user-1")
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = limiter.Allow(ctx, "user-2")
	require.NoError(t, err)
	assert.True(t, allowed)

	require.NoError(t, limiter.Reset(ctx, "user-1"))
	allowed, err = limiter.Allow(ctx, "user-1")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestIPRateLimiter_KeyedByIP(t *testing.T) {
	limiter := NewIPRateLimiter(2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		allowed, err := limiter.Allow(ctx, "203.0.113.7")
		require.NoError(t, err)
		require.True(t, allowed)
	}

	allowed, err := limiter.Allow(ctx, "203.0.113.7")
	require.NoError(t, err)
	assert.False(t, allowed)

	allowed, err = limiter.Allow(ctx, "198.51.100.2")
	require.NoError(t, err)
	assert.True(t, allowed)
}

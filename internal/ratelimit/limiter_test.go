package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalLimiterBurstThenDeny(t *testing.T) {
	l := NewLocalLimiter(60, 2)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		ok, _, err := l.Allow(ctx, "user_1")
		require.NoError(t, err)
		assert.True(t, ok)
	}

	ok, retry, err := l.Allow(ctx, "user_1")
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Greater(t, retry, time.Duration(0))

	ok, _, err = l.Allow(ctx, "user_2")
	require.NoError(t, err)
	assert.True(t, ok, "buckets are per key")
}

func TestNewWithoutRedisFallsBackToLocal(t *testing.T) {
	l, closeFn, err := New(context.Background(), &Config{RequestsPerMinute: 10, Burst: 1})
	require.NoError(t, err)
	defer closeFn()
	_, ok := l.(*LocalLimiter)
	assert.True(t, ok)
}

func TestRedisWindowKey(t *testing.T) {
	l := NewRedisLimiter(nil, 5, time.Minute)
	now := time.Unix(120, 0)
	assert.Equal(t, "creatorkit:ratelimit:user_1:2", l.windowKey("user_1", now))
}

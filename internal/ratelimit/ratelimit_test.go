package ratelimit

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestLimiter(t *testing.T) *Limiter {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	lim, err := New(client)
	require.NoError(t, err)
	return lim
}

func TestLimiter_BurstExceeded(t *testing.T) {
	lim := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < BurstRatePerMinute; i++ {
		res, err := lim.Allow(ctx, "tenant-1")
		require.NoError(t, err)
		require.True(t, res.Allowed, "request %d should be allowed", i)
	}

	res, err := lim.Allow(ctx, "tenant-1")
	require.NoError(t, err)
	require.False(t, res.Allowed)
	require.True(t, res.BurstExceeded)
}

func TestLimiter_IndependentPerTenant(t *testing.T) {
	lim := newTestLimiter(t)
	ctx := context.Background()

	for i := 0; i < BurstRatePerMinute; i++ {
		_, err := lim.Allow(ctx, "tenant-1")
		require.NoError(t, err)
	}

	res, err := lim.Allow(ctx, "tenant-2")
	require.NoError(t, err)
	require.True(t, res.Allowed)
}

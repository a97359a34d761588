package insights

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewCache(rdb, 15*time.Minute), mr
}

func TestCacheRoundTrip(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	_, err := cache.Get(ctx)
	require.ErrorIs(t, err, ErrCacheMiss)

	snap := &Snapshot{
		InboundByStatus: map[string]int{"Arrived": 3},
		LowStockItems:   7,
		GeneratedAt:     time.Date(2026, 8, 30, 9, 0, 0, 0, time.UTC),
	}
	require.NoError(t, cache.Set(ctx, snap))

	got, err := cache.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, snap, got)
}

func TestCacheExpires(t *testing.T) {
	cache, mr := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, &Snapshot{TotalItems: 1}))
	mr.FastForward(16 * time.Minute)

	_, err := cache.Get(ctx)
	require.ErrorIs(t, err, ErrCacheMiss)
}

func TestCacheReset(t *testing.T) {
	cache, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, &Snapshot{TotalItems: 1}))
	require.NoError(t, cache.Reset(ctx))

	_, err := cache.Get(ctx)
	require.ErrorIs(t, err, ErrCacheMiss)
}

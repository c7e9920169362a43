package knowledge

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func cachedFixture(answer string) *CachedResult {
	return &CachedResult{
		Docs:      []cachedDoc{{ID: "e1", Answer: answer, Category: "fees", Score: 0.8, Tier: "lexical"}},
		CreatedAt: time.Now(),
	}
}

func TestLRUCacheBound(t *testing.T) {
	c := NewLRUCache(10, 0)
	ctx := context.Background()

	for i := 0; i < 50; i++ {
		require.NoError(t, c.Set(ctx, fmt.Sprintf("key-%d", i), cachedFixture("a")))
		assert.LessOrEqual(t, c.Len(), 10)
	}
	assert.Equal(t, 10, c.Len())
}

func TestLRUCacheEvictionOrder(t *testing.T) {
	c := NewLRUCache(2, 0)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "a", cachedFixture("a")))
	require.NoError(t, c.Set(ctx, "b", cachedFixture("b")))

	// 访问 a 使其变为最近使用，淘汰应落在 b 上
	_, err := c.Get(ctx, "a")
	require.NoError(t, err)
	require.NoError(t, c.Set(ctx, "c", cachedFixture("c")))

	_, err = c.Get(ctx, "a")
	assert.NoError(t, err)
	_, err = c.Get(ctx, "b")
	assert.ErrorIs(t, err, ErrCacheMiss)
	_, err = c.Get(ctx, "c")
	assert.NoError(t, err)
}

func TestLRUCacheTTLExpiry(t *testing.T) {
	c := NewLRUCache(10, 10*time.Millisecond)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "k", cachedFixture("v")))
	_, err := c.Get(ctx, "k")
	require.NoError(t, err)

	time.Sleep(30 * time.Millisecond)
	_, err = c.Get(ctx, "k")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestLRUCacheStoresNoResultSentinel(t *testing.T) {
	c := NewLRUCache(10, 0)
	ctx := context.Background()

	require.NoError(t, c.Set(ctx, "nores", &CachedResult{NoResult: true, CreatedAt: time.Now()}))
	got, err := c.Get(ctx, "nores")
	require.NoError(t, err)
	assert.True(t, got.NoResult)
}

func TestTwoLevelCacheRedisRoundTrip(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ctx := context.Background()

	local := NewLRUCache(10, time.Minute)
	c := NewTwoLevelCache(local, rdb, time.Minute, nil)

	require.NoError(t, c.Set(ctx, "k1", cachedFixture("answer")))

	// 清掉本地层后仍应从 Redis 命中并回填
	require.NoError(t, local.Clear(ctx))
	got, err := c.Get(ctx, "k1")
	require.NoError(t, err)
	require.Len(t, got.Docs, 1)
	assert.Equal(t, "answer", got.Docs[0].Answer)

	_, err = local.Get(ctx, "k1")
	assert.NoError(t, err, "redis hit should backfill the local cache")
}

func TestTwoLevelCacheMissAndClear(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	ctx := context.Background()

	c := NewTwoLevelCache(NewLRUCache(10, time.Minute), rdb, time.Minute, nil)

	_, err := c.Get(ctx, "absent")
	assert.ErrorIs(t, err, ErrCacheMiss)

	require.NoError(t, c.Set(ctx, "k1", cachedFixture("a")))
	require.NoError(t, c.Clear(ctx))
	_, err = c.Get(ctx, "k1")
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestTwoLevelCacheWithoutRedis(t *testing.T) {
	ctx := context.Background()
	c := NewTwoLevelCache(NewLRUCache(10, time.Minute), nil, time.Minute, nil)

	require.NoError(t, c.Set(ctx, "k", cachedFixture("v")))
	got, err := c.Get(ctx, "k")
	require.NoError(t, err)
	assert.Len(t, got.Docs, 1)
}

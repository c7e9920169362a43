package knowledge

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const redisKeyPrefix = "queryflow:retrieval:"

// TwoLevelCache 本地 LRU + Redis 的两级检索缓存。
// Redis 层可选：客户端为 nil 时退化为纯本地缓存。
// Redis 故障只降级为未命中，绝不让缓存层失败拖垮检索。
type TwoLevelCache struct {
	local  *LRUCache
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewTwoLevelCache 创建两级缓存
func NewTwoLevelCache(local *LRUCache, rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *TwoLevelCache {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &TwoLevelCache{
		local:  local,
		rdb:    rdb,
		ttl:    ttl,
		logger: logger.With(zap.String("component", "retrieval_cache")),
	}
}

// Get 先查本地，再查 Redis 并回填本地
func (c *TwoLevelCache) Get(ctx context.Context, key string) (*CachedResult, error) {
	if result, err := c.local.Get(ctx, key); err == nil {
		return result, nil
	}

	if c.rdb == nil {
		return nil, ErrCacheMiss
	}

	data, err := c.rdb.Get(ctx, redisKeyPrefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("redis get error", zap.Error(err))
		}
		return nil, ErrCacheMiss
	}

	var result CachedResult
	if err := json.Unmarshal(data, &result); err != nil {
		c.logger.Warn("corrupt redis cache entry dropped", zap.Error(err))
		return nil, ErrCacheMiss
	}

	// 回填本地缓存
	_ = c.local.Set(ctx, key, &result)
	c.logger.Debug("redis cache hit", zap.String("key", key))
	return &result, nil
}

// Set 写两级缓存
func (c *TwoLevelCache) Set(ctx context.Context, key string, result *CachedResult) error {
	_ = c.local.Set(ctx, key, result)

	if c.rdb == nil {
		return nil
	}

	data, err := json.Marshal(result)
	if err != nil {
		return err
	}
	if err := c.rdb.Set(ctx, redisKeyPrefix+key, data, c.ttl).Err(); err != nil {
		c.logger.Warn("redis set error", zap.Error(err))
	}
	return nil
}

// Clear 清空本地缓存并按前缀扫描删除 Redis 条目
func (c *TwoLevelCache) Clear(ctx context.Context) error {
	_ = c.local.Clear(ctx)

	if c.rdb == nil {
		return nil
	}

	iter := c.rdb.Scan(ctx, 0, redisKeyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
		if len(keys) >= 100 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
			keys = keys[:0]
		}
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) > 0 {
		if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
			return err
		}
	}
	return nil
}

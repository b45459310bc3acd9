package scorecache

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisCache is the shared Cache for multi-instance deployments. Values live
// under a namespaced key, tags are Redis sets of member keys, and a master
// set tracks everything for Clear. Each cache layer gets its own namespace
// so tag invalidation on one layer never touches another.
type RedisCache struct {
	client *redis.Client

	entryPrefix string
	tagPrefix   string
	keySet      string

	hits, misses, invalidated atomic.Int64
}

func NewRedisCache(client *redis.Client, namespace string) *RedisCache {
	if namespace == "" {
		namespace = "default"
	}
	base := "scorecache:" + namespace
	return &RedisCache{
		client:      client,
		entryPrefix: base + ":entry:",
		tagPrefix:   base + ":tag:",
		keySet:      base + ":keys",
	}
}

func (c *RedisCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := c.client.Get(ctx, c.entryPrefix+key).Bytes()
	if err == redis.Nil {
		c.misses.Add(1)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	c.hits.Add(1)
	return val, true, nil
}

func (c *RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags []string) error {
	pipe := c.client.TxPipeline()
	pipe.Set(ctx, c.entryPrefix+key, value, ttl)
	pipe.SAdd(ctx, c.keySet, key)
	for _, tag := range tags {
		tagKey := c.tagPrefix + tag
		pipe.SAdd(ctx, tagKey, key)
		// Keep the tag set alive at least as long as its newest member.
		pipe.Expire(ctx, tagKey, ttl+time.Minute)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache set: %w", err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, key string) error {
	pipe := c.client.TxPipeline()
	pipe.Del(ctx, c.entryPrefix+key)
	pipe.SRem(ctx, c.keySet, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache invalidate: %w", err)
	}
	c.invalidated.Add(1)
	return nil
}

func (c *RedisCache) InvalidateTag(ctx context.Context, tag string) (int, error) {
	tagKey := c.tagPrefix + tag
	members, err := c.client.SMembers(ctx, tagKey).Result()
	if err != nil {
		return 0, fmt.Errorf("cache invalidate tag: %w", err)
	}
	if len(members) == 0 {
		return 0, nil
	}

	pipe := c.client.TxPipeline()
	for _, key := range members {
		pipe.Del(ctx, c.entryPrefix+key)
		pipe.SRem(ctx, c.keySet, key)
	}
	pipe.Del(ctx, tagKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("cache invalidate tag: %w", err)
	}
	c.invalidated.Add(int64(len(members)))
	return len(members), nil
}

func (c *RedisCache) Clear(ctx context.Context) error {
	keys, err := c.client.SMembers(ctx, c.keySet).Result()
	if err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}
	pipe := c.client.TxPipeline()
	for _, key := range keys {
		pipe.Del(ctx, c.entryPrefix+key)
	}
	pipe.Del(ctx, c.keySet)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("cache clear: %w", err)
	}
	c.invalidated.Add(int64(len(keys)))
	return nil
}

func (c *RedisCache) Stats(ctx context.Context) (CacheStats, error) {
	entries, err := c.client.SCard(ctx, c.keySet).Result()
	if err != nil {
		return CacheStats{}, fmt.Errorf("cache stats: %w", err)
	}
	return CacheStats{
		Entries:     int(entries),
		Hits:        c.hits.Load(),
		Misses:      c.misses.Load(),
		Invalidated: c.invalidated.Load(),
	}, nil
}

// Package scorecache computes and caches the time/location scoring layers:
// spending propensity, college presence, and the combined score. Entries are
// tagged with the time and location facets they depend on, so a facet change
// invalidates exactly the entries built from it.
package scorecache

import (
	"context"
	"time"
)

// Cache is a byte-value cache with per-entry TTL and dependency tags. An
// entry dies at its TTL or when any of its tags is invalidated, whichever
// comes first.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration, tags []string) error
	Invalidate(ctx context.Context, key string) error
	// InvalidateTag drops every entry carrying the tag and returns how many
	// were dropped.
	InvalidateTag(ctx context.Context, tag string) (int, error)
	Clear(ctx context.Context) error
	Stats(ctx context.Context) (CacheStats, error)
}

// CacheStats is a point-in-time count of cache activity.
type CacheStats struct {
	Entries     int   `json:"entries"`
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	Evictions   int64 `json:"evictions"`
	Invalidated int64 `json:"invalidated"`
}

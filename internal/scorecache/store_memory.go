package scorecache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
	tags      []string
}

// MemoryCache is the in-process Cache. One coarse lock guards the entry and
// tag maps; the workload is small values with short TTLs.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	byTag   map[string]map[string]struct{}
	now     func() time.Time

	hits, misses, evictions, invalidated int64
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]memoryEntry),
		byTag:   make(map[string]map[string]struct{}),
		now:     time.Now,
	}
}

func (c *MemoryCache) Get(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false, nil
	}
	if c.now().After(e.expiresAt) {
		c.removeLocked(key)
		c.evictions++
		c.misses++
		return nil, false, nil
	}
	c.hits++
	return e.value, true, nil
}

func (c *MemoryCache) Set(_ context.Context, key string, value []byte, ttl time.Duration, tags []string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.removeLocked(key)
	c.entries[key] = memoryEntry{
		value:     value,
		expiresAt: c.now().Add(ttl),
		tags:      tags,
	}
	for _, tag := range tags {
		keys, ok := c.byTag[tag]
		if !ok {
			keys = make(map[string]struct{})
			c.byTag[tag] = keys
		}
		keys[key] = struct{}{}
	}
	return nil
}

func (c *MemoryCache) Invalidate(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.entries[key]; ok {
		c.removeLocked(key)
		c.invalidated++
	}
	return nil
}

func (c *MemoryCache) InvalidateTag(_ context.Context, tag string) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := c.byTag[tag]
	n := len(keys)
	for key := range keys {
		c.removeLocked(key)
	}
	c.invalidated += int64(n)
	return n, nil
}

func (c *MemoryCache) Clear(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated += int64(len(c.entries))
	c.entries = make(map[string]memoryEntry)
	c.byTag = make(map[string]map[string]struct{})
	return nil
}

func (c *MemoryCache) Stats(_ context.Context) (CacheStats, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{
		Entries:     len(c.entries),
		Hits:        c.hits,
		Misses:      c.misses,
		Evictions:   c.evictions,
		Invalidated: c.invalidated,
	}, nil
}

// removeLocked drops an entry and its tag index rows. Caller holds the lock.
func (c *MemoryCache) removeLocked(key string) {
	e, ok := c.entries[key]
	if !ok {
		return
	}
	delete(c.entries, key)
	for _, tag := range e.tags {
		if keys, ok := c.byTag[tag]; ok {
			delete(keys, key)
			if len(keys) == 0 {
				delete(c.byTag, tag)
			}
		}
	}
}

package cachemanager

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/zjrosen/passflow/internal/log"
)

const (
	DefaultExpiration      = 10 * time.Minute
	DefaultCleanupInterval = 30 * time.Minute

	// NoExpiration keeps an entry until it is deleted or the cache is flushed.
	NoExpiration = gocache.NoExpiration
)

var _ CacheManager[string, struct{}] = (*InMemoryCacheManager[string, struct{}])(nil)

// NewInMemoryCacheManager creates a go-cache backed manager. useCase names the
// cache in log output. A cleanupInterval <= 0 disables the janitor.
func NewInMemoryCacheManager[K ~string, V any](useCase string, defaultExpiration, cleanupInterval time.Duration) *InMemoryCacheManager[K, V] {
	return &InMemoryCacheManager[K, V]{
		useCase: useCase,
		cache:   gocache.New(defaultExpiration, cleanupInterval),
	}
}

// InMemoryCacheManager is the process-local CacheManager.
type InMemoryCacheManager[K ~string, V any] struct {
	useCase string
	cache   *gocache.Cache
}

// Get retrieves an item by key. Entries of the wrong type count as misses.
func (c *InMemoryCacheManager[K, V]) Get(ctx context.Context, key K) (V, bool) {
	var zero V

	raw, found := c.cache.Get(string(key))
	if !found {
		return zero, false
	}

	v, ok := raw.(V)
	if !ok {
		log.Error(log.CatCache, "wrong type assertion when getting value", "cache", c.useCase, "key", key)
		return zero, false
	}

	log.Debug(log.CatCache, "cache hit", "cache", c.useCase, "key", key)
	return v, true
}

// GetWithRefresh retrieves an item and, on a hit, re-sets it with a fresh ttl.
func (c *InMemoryCacheManager[K, V]) GetWithRefresh(ctx context.Context, key K, ttl time.Duration) (V, bool) {
	value, found := c.Get(ctx, key)
	if !found {
		return value, false
	}
	c.Set(ctx, key, value, ttl)
	return value, true
}

// Set stores value under key for ttl.
func (c *InMemoryCacheManager[K, V]) Set(ctx context.Context, key K, value V, ttl time.Duration) {
	c.cache.Set(string(key), value, ttl)
}

// Delete removes keys. Missing keys are ignored.
func (c *InMemoryCacheManager[K, V]) Delete(ctx context.Context, keys ...K) error {
	for _, key := range keys {
		c.cache.Delete(string(key))
	}
	return nil
}

// Flush removes every entry.
func (c *InMemoryCacheManager[K, V]) Flush(ctx context.Context) error {
	n := c.cache.ItemCount()
	c.cache.Flush()
	if n > 0 {
		log.Debug(log.CatCache, "cache flushed", "cache", c.useCase, "entries", n)
	}
	return nil
}

// Len reports the number of stored entries, including expired ones not yet
// collected.
func (c *InMemoryCacheManager[K, V]) Len() int {
	return c.cache.ItemCount()
}

package cachemanager

import (
	"context"
	"time"
)

// Loader computes the value for a cache miss.
type Loader[V any, I any] func(ctx context.Context, input I) (V, error)

// ReadThroughCache fronts a Loader with a CacheManager. Loader errors are
// returned as-is and never cached.
type ReadThroughCache[K ~string, V any, I any] struct {
	cache  CacheManager[K, V]
	load   Loader[V, I]
	bypass bool
}

// NewReadThroughCache wraps load with cache. With bypass set every call goes
// straight to load.
func NewReadThroughCache[K ~string, V any, I any](cache CacheManager[K, V], load Loader[V, I], bypass bool) *ReadThroughCache[K, V, I] {
	return &ReadThroughCache[K, V, I]{
		cache:  cache,
		load:   load,
		bypass: bypass,
	}
}

// Get returns the cached value for key, loading and storing it on a miss.
func (r *ReadThroughCache[K, V, I]) Get(ctx context.Context, key K, input I, ttl time.Duration) (V, error) {
	return r.get(ctx, key, input, ttl, false)
}

// GetWithRefresh is Get, but a hit also extends the entry's ttl.
func (r *ReadThroughCache[K, V, I]) GetWithRefresh(ctx context.Context, key K, input I, ttl time.Duration) (V, error) {
	return r.get(ctx, key, input, ttl, true)
}

// Invalidate drops every cached value.
func (r *ReadThroughCache[K, V, I]) Invalidate(ctx context.Context) error {
	return r.cache.Flush(ctx)
}

func (r *ReadThroughCache[K, V, I]) get(ctx context.Context, key K, input I, ttl time.Duration, refresh bool) (V, error) {
	if r.bypass {
		return r.load(ctx, input)
	}

	var (
		value V
		ok    bool
	)
	if refresh {
		value, ok = r.cache.GetWithRefresh(ctx, key, ttl)
	} else {
		value, ok = r.cache.Get(ctx, key)
	}
	if ok {
		return value, nil
	}

	value, err := r.load(ctx, input)
	if err != nil {
		return value, err
	}
	r.cache.Set(ctx, key, value, ttl)
	return value, nil
}

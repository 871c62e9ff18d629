// Package cachemanager provides typed, expiring caches used to memoize
// resolved plans and other derived lookups.
package cachemanager

import (
	"context"
	"time"
)

//go:generate mockery --name CacheManager --output ../mocks --outpkg mocks --with-expecter

// CacheManager is a typed key/value cache with per-entry TTLs.
type CacheManager[K ~string, V any] interface {
	Get(ctx context.Context, key K) (V, bool)
	GetWithRefresh(ctx context.Context, key K, ttl time.Duration) (V, bool)
	Set(ctx context.Context, key K, value V, ttl time.Duration)
	Delete(ctx context.Context, keys ...K) error
	Flush(ctx context.Context) error
	Len() int
}

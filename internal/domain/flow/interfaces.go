package flow

import (
	"context"
	"time"
)

// Source provides read access to flow definitions. Registry implements it;
// tests substitute hand-built sources.
type Source interface {
	// Get returns the definition for name or a *FlowNotFoundError.
	Get(name Name) (*Definition, error)

	// Generation changes whenever previously returned definitions stop being
	// valid (a registry reset). Appending new flows does not change it.
	Generation() uint64
}

// PlanCache memoizes resolved plans keyed by flow name.
type PlanCache interface {
	Get(ctx context.Context, key string) (Plan, bool)
	Set(ctx context.Context, key string, value Plan, ttl time.Duration)
	Flush(ctx context.Context) error
}

// Compile-time check that Registry implements Source.
var _ Source = (*Registry)(nil)

package pipeline

import (
	"context"

	"github.com/zjrosen/passflow/internal/domain/flow"
	"github.com/zjrosen/passflow/internal/domain/pass"
)

//go:generate mockery --name PassResolver --output ../mocks --outpkg mocks --with-expecter
//go:generate mockery --name ReportRepository --output ../mocks --outpkg mocks --with-expecter

// PassResolver supplies the pass for a plan entry. *pass.Catalog satisfies it.
type PassResolver interface {
	Lookup(name string) (pass.Pass, error)
}

// ResolverFunc adapts a function to PassResolver.
type ResolverFunc func(name string) (pass.Pass, error)

func (f ResolverFunc) Lookup(name string) (pass.Pass, error) {
	return f(name)
}

// PlanResolver turns a flow name into a plan. *flow.Resolver satisfies it.
type PlanResolver interface {
	Resolve(ctx context.Context, name flow.Name) (flow.Plan, error)
}

// ListFilter narrows ReportRepository.List. Zero values match everything. A
// Flow with only Backend set matches every flow of that backend.
type ListFilter struct {
	Flow  flow.Name
	State *State
	Limit int
}

// ReportRepository persists execution reports.
type ReportRepository interface {
	Save(ctx context.Context, report *Report) error
	FindByRunID(ctx context.Context, runID string) (*Report, error)
	List(ctx context.Context, filter ListFilter) ([]*Report, error)
	Prune(ctx context.Context, keep int) (int64, error)
}

var (
	_ PassResolver = (*pass.Catalog)(nil)
	_ PlanResolver = (*flow.Resolver)(nil)
)

package pipeline

import (
	"context"
	"sync"

	"github.com/zjrosen/passflow/internal/domain/flow"
	"github.com/zjrosen/passflow/internal/domain/graph"
)

// Run drives one compilation request through
// Unresolved -> Resolved -> Executing -> Completed | Failed.
// A failed run is terminal; retrying means starting a new Run.
type Run struct {
	mu     sync.Mutex
	flow   flow.Name
	state  State
	plan   flow.Plan
	report *Report
	err    error
}

// NewRun creates an unresolved run for name.
func NewRun(name flow.Name) *Run {
	return &Run{flow: name, state: StateUnresolved}
}

// Resolve computes the plan. A resolution error fails the run.
func (r *Run) Resolve(ctx context.Context, resolver PlanResolver) (flow.Plan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != StateUnresolved {
		return flow.Plan{}, transitionErr(r.state, StateResolved)
	}

	plan, err := resolver.Resolve(ctx, r.flow)
	if err != nil {
		r.state = StateFailed
		r.err = err
		return flow.Plan{}, err
	}
	r.plan = plan
	r.state = StateResolved
	return plan.Clone(), nil
}

// Execute runs the resolved plan. The run is observable as Executing while
// passes run.
func (r *Run) Execute(ctx context.Context, exec *Executor, model graph.Model, passes PassResolver) (*Report, error) {
	r.mu.Lock()
	if r.state != StateResolved {
		from := r.state
		r.mu.Unlock()
		return nil, transitionErr(from, StateExecuting)
	}
	r.state = StateExecuting
	plan := r.plan
	r.mu.Unlock()

	report, err := exec.Execute(ctx, plan, model, passes)

	r.mu.Lock()
	defer r.mu.Unlock()
	r.report = report
	r.state = report.State
	r.err = err
	return report, err
}

// Flow returns the requested flow.
func (r *Run) Flow() flow.Name {
	return r.flow
}

// State returns the current state.
func (r *Run) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Plan returns the resolved plan, zero before resolution.
func (r *Run) Plan() flow.Plan {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.plan.Clone()
}

// Report returns the execution report, nil before execution finishes.
func (r *Run) Report() *Report {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.report
}

// Err returns the error that failed the run, if any.
func (r *Run) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

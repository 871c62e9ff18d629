package pipeline

import (
	"fmt"
	"time"

	"github.com/zjrosen/passflow/internal/domain/flow"
	"github.com/zjrosen/passflow/internal/domain/pass"
)

// State is the lifecycle position of one resolve+execute request.
type State int

const (
	StateUnresolved State = iota
	StateResolved
	StateExecuting
	StateCompleted
	StateFailed
)

var stateNames = map[State]string{
	StateUnresolved: "unresolved",
	StateResolved:   "resolved",
	StateExecuting:  "executing",
	StateCompleted:  "completed",
	StateFailed:     "failed",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// ParseState is the inverse of State.String.
func ParseState(s string) (State, error) {
	for st, name := range stateNames {
		if name == s {
			return st, nil
		}
	}
	return StateUnresolved, fmt.Errorf("unknown run state %q", s)
}

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateFailed
}

// Step records one executed (or attempted) pass.
type Step struct {
	RunID    string
	Flow     flow.Name
	Index    int
	Pass     string
	Outcome  pass.Outcome
	Duration time.Duration
	Err      error
}

// Failed reports whether the step aborted the run.
func (s Step) Failed() bool {
	return s.Err != nil
}

// Report is the result of executing one plan.
type Report struct {
	RunID      string
	Flow       flow.Name
	Plan       []string
	State      State
	Steps      []Step
	StartedAt  time.Time
	FinishedAt time.Time
	Failure    *PassExecutionError
}

// Succeeded reports whether every pass in the plan ran without error.
func (r *Report) Succeeded() bool {
	return r.State == StateCompleted && r.Failure == nil
}

// Duration is the wall time of the run.
func (r *Report) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}

// Transformed counts steps that changed the model.
func (r *Report) Transformed() int {
	n := 0
	for _, s := range r.Steps {
		if s.Err == nil && s.Outcome == pass.OutcomeTransformed {
			n++
		}
	}
	return n
}

// Skipped returns the plan entries that never ran because of a failure.
func (r *Report) Skipped() []string {
	if len(r.Steps) >= len(r.Plan) {
		return nil
	}
	return append([]string(nil), r.Plan[len(r.Steps):]...)
}

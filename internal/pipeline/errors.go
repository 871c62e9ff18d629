package pipeline

import (
	"errors"
	"fmt"

	"github.com/zjrosen/passflow/internal/domain/flow"
)

// ErrInvalidTransition is returned when a Run is driven out of order.
var ErrInvalidTransition = errors.New("invalid run state transition")

// PassNotFoundError reports a plan entry the pass lookup could not resolve.
type PassNotFoundError struct {
	Name string
	Err  error
}

func (e *PassNotFoundError) Error() string {
	return fmt.Sprintf("pass %q not found", e.Name)
}

func (e *PassNotFoundError) Unwrap() error {
	return e.Err
}

// PassExecutionError is the failure that aborted a run: which pass, where in
// the plan, for which flow, and why.
type PassExecutionError struct {
	Flow  flow.Name
	Pass  string
	Index int
	Err   error
}

func (e *PassExecutionError) Error() string {
	return fmt.Sprintf("flow %s: pass %d (%s): %v", e.Flow, e.Index, e.Pass, e.Err)
}

func (e *PassExecutionError) Unwrap() error {
	return e.Err
}

// ReportNotFoundError is returned by repositories for unknown run ids.
type ReportNotFoundError struct {
	RunID string
}

func (e *ReportNotFoundError) Error() string {
	return fmt.Sprintf("run %s not found", e.RunID)
}

func transitionErr(from, to State) error {
	return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
}

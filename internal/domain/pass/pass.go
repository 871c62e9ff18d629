package pass

import (
	"context"
	"fmt"

	"github.com/zjrosen/passflow/internal/domain/graph"
)

// Outcome reports what a successful pass did to the model.
type Outcome int

const (
	OutcomeNoOp Outcome = iota
	OutcomeTransformed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoOp:
		return "noop"
	case OutcomeTransformed:
		return "transformed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Pass is a named transformation over a model. A pass that returns an error
// may have partially mutated the model.
type Pass interface {
	Name() string
	Run(ctx context.Context, m graph.Model) (Outcome, error)
}

// RunFunc is the body of a Func pass.
type RunFunc func(ctx context.Context, m graph.Model) (Outcome, error)

// Func adapts a function to the Pass interface.
type Func struct {
	name string
	fn   RunFunc
}

// NewFunc returns a pass named name that runs fn.
func NewFunc(name string, fn RunFunc) *Func {
	return &Func{name: name, fn: fn}
}

func (f *Func) Name() string { return f.name }

func (f *Func) Run(ctx context.Context, m graph.Model) (Outcome, error) {
	return f.fn(ctx, m)
}

// Transform returns a pass that always reports OutcomeTransformed when fn
// succeeds.
func Transform(name string, fn func(ctx context.Context, m graph.Model) error) *Func {
	return NewFunc(name, func(ctx context.Context, m graph.Model) (Outcome, error) {
		if err := fn(ctx, m); err != nil {
			return OutcomeNoOp, err
		}
		return OutcomeTransformed, nil
	})
}

// Noop returns a pass that never touches the model.
func Noop(name string) *Func {
	return NewFunc(name, func(context.Context, graph.Model) (Outcome, error) {
		return OutcomeNoOp, nil
	})
}

// Fail returns a pass that always fails with reason.
func Fail(name, reason string) *Func {
	return NewFunc(name, func(context.Context, graph.Model) (Outcome, error) {
		return OutcomeNoOp, &FailedError{Pass: name, Reason: reason}
	})
}

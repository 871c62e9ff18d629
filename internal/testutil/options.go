package testutil

import (
	"time"

	"github.com/zjrosen/passflow/internal/domain/pass"
)

type stepData struct {
	pass     string
	outcome  pass.Outcome
	duration time.Duration
	err      error
}

func defaultStep(name string) stepData {
	return stepData{pass: name, outcome: pass.OutcomeNoOp}
}

// StepOption configures a step during builder setup.
type StepOption func(*stepData)

// Outcome sets what the pass did to the model.
func Outcome(o pass.Outcome) StepOption {
	return func(s *stepData) { s.outcome = o }
}

// Transformed marks the step as having changed the model.
func Transformed() StepOption {
	return Outcome(pass.OutcomeTransformed)
}

// Took sets the step duration.
func Took(d time.Duration) StepOption {
	return func(s *stepData) { s.duration = d }
}

// FailedWith makes the step abort the run with err.
func FailedWith(err error) StepOption {
	return func(s *stepData) { s.err = err }
}

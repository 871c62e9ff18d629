// Package testutil builds run reports for tests.
package testutil

import (
	"time"

	"github.com/zjrosen/passflow/internal/domain/flow"
	"github.com/zjrosen/passflow/internal/pipeline"
)

// Builder accumulates steps and assembles a report with consistent
// indices, state and failure.
type Builder struct {
	runID    string
	flow     flow.Name
	plan     []string
	steps    []stepData
	started  time.Time
	finished time.Duration
}

// NewBuilder creates a builder for one run of name.
func NewBuilder(runID string, name flow.Name) *Builder {
	return &Builder{runID: runID, flow: name, started: time.Now().UTC()}
}

// WithPlan sets the plan. Without it the plan is the list of steps.
func (b *Builder) WithPlan(passes ...string) *Builder {
	b.plan = passes
	return b
}

// WithStep appends one executed pass.
func (b *Builder) WithStep(passName string, opts ...StepOption) *Builder {
	step := defaultStep(passName)
	for _, opt := range opts {
		opt(&step)
	}
	b.steps = append(b.steps, step)
	return b
}

// StartedAt sets the run start time.
func (b *Builder) StartedAt(t time.Time) *Builder {
	b.started = t
	return b
}

// FinishedAfter sets the run wall time. By default it is the sum of the step
// durations.
func (b *Builder) FinishedAfter(d time.Duration) *Builder {
	b.finished = d
	return b
}

// Build assembles the report. A step carrying an error ends the run: later
// steps are dropped and the report is failed.
func (b *Builder) Build() *pipeline.Report {
	report := &pipeline.Report{
		RunID:     b.runID,
		Flow:      b.flow,
		Plan:      b.plan,
		State:     pipeline.StateCompleted,
		StartedAt: b.started,
	}

	var elapsed time.Duration
	for i, s := range b.steps {
		step := pipeline.Step{
			RunID:    b.runID,
			Flow:     b.flow,
			Index:    i,
			Pass:     s.pass,
			Outcome:  s.outcome,
			Duration: s.duration,
			Err:      s.err,
		}
		report.Steps = append(report.Steps, step)
		elapsed += s.duration
		if s.err != nil {
			report.State = pipeline.StateFailed
			report.Failure = &pipeline.PassExecutionError{Flow: b.flow, Pass: s.pass, Index: i, Err: s.err}
			break
		}
	}

	if report.Plan == nil {
		for _, s := range b.steps {
			report.Plan = append(report.Plan, s.pass)
		}
	}
	if b.finished > 0 {
		elapsed = b.finished
	}
	report.FinishedAt = b.started.Add(elapsed)
	return report
}

package pipeline

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/passflow/internal/domain/flow"
	"github.com/zjrosen/passflow/internal/domain/graph"
	"github.com/zjrosen/passflow/internal/domain/pass"
	"github.com/zjrosen/passflow/internal/log"
	"github.com/zjrosen/passflow/internal/pubsub"
	"github.com/zjrosen/passflow/internal/tracing"
)

// Events published for every step.
const (
	EventPassStarted  pubsub.EventType = "pass.started"
	EventPassFinished pubsub.EventType = "pass.finished"
	EventPassFailed   pubsub.EventType = "pass.failed"
)

const tracerName = "github.com/zjrosen/passflow/internal/pipeline"

// Executor runs plans against a model, stopping at the first failing pass.
// Mutations made by passes that ran before the failure are kept.
type Executor struct {
	events pubsub.Publisher[Step]
	tracer trace.Tracer
	now    func() time.Time
	newID  func() string
}

// Option configures an Executor.
type Option func(*Executor)

// WithEvents publishes step lifecycle events to p.
func WithEvents(p pubsub.Publisher[Step]) Option {
	return func(e *Executor) { e.events = p }
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) Option {
	return func(e *Executor) { e.tracer = t }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

// WithRunIDs overrides run id generation.
func WithRunIDs(newID func() string) Option {
	return func(e *Executor) { e.newID = newID }
}

// NewExecutor creates an executor.
func NewExecutor(opts ...Option) *Executor {
	e := &Executor{
		tracer: otel.Tracer(tracerName),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute runs plan's passes in order against model. The returned report is
// never nil. On failure the error is the report's *PassExecutionError and no
// later pass runs.
func (e *Executor) Execute(ctx context.Context, plan flow.Plan, model graph.Model, passes PassResolver) (*Report, error) {
	report := &Report{
		RunID:     e.newID(),
		Flow:      plan.Flow,
		Plan:      slices.Clone(plan.Passes),
		State:     StateExecuting,
		StartedAt: e.now(),
	}

	ctx, span := e.tracer.Start(ctx, tracing.SpanExecute, trace.WithAttributes(
		attribute.String(tracing.AttrRunID, report.RunID),
		attribute.String(tracing.AttrFlow, plan.Flow.String()),
		attribute.String(tracing.AttrBackend, plan.Flow.Backend),
		attribute.Int(tracing.AttrPlanSize, len(plan.Passes)),
	))

	log.Info(log.CatPass, "executing plan", "run", report.RunID, "flow", plan.Flow, "passes", len(plan.Passes))

	for i, name := range plan.Passes {
		step := e.runStep(ctx, report, i, name, model, passes)
		report.Steps = append(report.Steps, step)
		if step.Err == nil {
			continue
		}

		report.Failure = &PassExecutionError{Flow: plan.Flow, Pass: name, Index: i, Err: step.Err}
		report.State = StateFailed
		report.FinishedAt = e.now()
		span.AddEvent(tracing.EventRunAborted, trace.WithAttributes(
			attribute.Int("skipped", len(plan.Passes)-i-1),
		))
		span.SetAttributes(attribute.String(tracing.AttrRunState, report.State.String()))
		tracing.Finish(span, report.Failure)
		log.ErrorErr(log.CatPass, "plan aborted", step.Err, "run", report.RunID, "flow", plan.Flow, "pass", name, "index", i)
		return report, report.Failure
	}

	report.State = StateCompleted
	report.FinishedAt = e.now()
	span.SetAttributes(attribute.String(tracing.AttrRunState, report.State.String()))
	tracing.Finish(span, nil)
	log.Info(log.CatPass, "plan completed", "run", report.RunID, "flow", plan.Flow,
		"transformed", report.Transformed(), "duration", report.Duration())
	return report, nil
}

func (e *Executor) runStep(ctx context.Context, report *Report, index int, name string, model graph.Model, passes PassResolver) Step {
	step := Step{RunID: report.RunID, Flow: report.Flow, Index: index, Pass: name}

	ctx, span := e.tracer.Start(ctx, tracing.SpanPass, trace.WithAttributes(
		attribute.String(tracing.AttrPassName, name),
		attribute.Int(tracing.AttrPassIndex, index),
	))

	p, err := passes.Lookup(name)
	if err != nil {
		step.Err = &PassNotFoundError{Name: name, Err: err}
		tracing.Finish(span, step.Err)
		e.publish(EventPassFailed, step)
		return step
	}

	e.publish(EventPassStarted, step)
	start := e.now()
	step.Outcome, step.Err = run(ctx, p, model)
	step.Duration = e.now().Sub(start)

	span.SetAttributes(attribute.String(tracing.AttrOutcome, step.Outcome.String()))
	tracing.Finish(span, step.Err)

	if step.Err != nil {
		e.publish(EventPassFailed, step)
		return step
	}
	log.Debug(log.CatPass, "pass finished", "run", report.RunID, "pass", name, "outcome", step.Outcome, "duration", step.Duration)
	e.publish(EventPassFinished, step)
	return step
}

// run invokes p, turning a panic into an error so one broken pass cannot take
// down the caller.
func run(ctx context.Context, p pass.Pass, model graph.Model) (out pass.Outcome, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = pass.OutcomeNoOp, fmt.Errorf("pass panicked: %v", r)
		}
	}()
	return p.Run(ctx, model)
}

func (e *Executor) publish(t pubsub.EventType, step Step) {
	if e.events != nil {
		e.events.Publish(t, step)
	}
}

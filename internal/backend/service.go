package backend

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/passflow/internal/cachemanager"
	"github.com/zjrosen/passflow/internal/domain/flow"
	"github.com/zjrosen/passflow/internal/domain/graph"
	"github.com/zjrosen/passflow/internal/log"
	"github.com/zjrosen/passflow/internal/pipeline"
	"github.com/zjrosen/passflow/internal/tracing"
)

// ErrHistoryDisabled is returned by history queries when no repository is
// configured.
var ErrHistoryDisabled = errors.New("run history is disabled")

// Service answers plan and compile requests for a brought-up environment.
type Service struct {
	env      *Environment
	plans    *cachemanager.InMemoryCacheManager[string, flow.Plan]
	resolver *flow.Resolver
	explain  *cachemanager.ReadThroughCache[string, []flow.Contribution, flow.Name]
	executor *pipeline.Executor
	history  pipeline.ReportRepository
	keep     int
	tracer   trace.Tracer

	defaultBackend string
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithExecutor replaces the default executor.
func WithExecutor(e *pipeline.Executor) ServiceOption {
	return func(s *Service) { s.executor = e }
}

// WithHistory records every compile in repo and keeps the newest keep runs.
// keep <= 0 never prunes.
func WithHistory(repo pipeline.ReportRepository, keep int) ServiceOption {
	return func(s *Service) {
		s.history = repo
		s.keep = keep
	}
}

// WithDefaultBackend sets the backend used for bare flow names that are not
// global flows.
func WithDefaultBackend(name string) ServiceOption {
	return func(s *Service) { s.defaultBackend = flow.NormalizeBackend(name) }
}

// WithTracer overrides the tracer taken from the global provider.
func WithTracer(t trace.Tracer) ServiceOption {
	return func(s *Service) { s.tracer = t }
}

// NewService wraps env. Plans are memoized for the life of the service.
func NewService(env *Environment, opts ...ServiceOption) *Service {
	s := &Service{
		env:      env,
		plans:    cachemanager.NewInMemoryCacheManager[string, flow.Plan]("plans", cachemanager.NoExpiration, 0),
		executor: pipeline.NewExecutor(),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.resolver = flow.NewResolver(env.Flows, s.plans)
	s.explain = cachemanager.NewReadThroughCache[string, []flow.Contribution, flow.Name](
		cachemanager.NewInMemoryCacheManager[string, []flow.Contribution]("explain", cachemanager.NoExpiration, 0),
		s.resolver.Explain,
		false,
	)
	return s
}

// Environment returns the brought-up environment.
func (s *Service) Environment() *Environment {
	return s.env
}

// Backends returns every backend, sorted by name.
func (s *Service) Backends() []Backend {
	return s.env.Backends.All()
}

// Backend returns one backend, looked up case-insensitively.
func (s *Service) Backend(name string) (Backend, error) {
	return s.env.Backends.Get(name)
}

// Flows returns the flows registered under backend in registration order.
// An empty backend lists the global flows.
func (s *Service) Flows(backend string) []*flow.Definition {
	var out []*flow.Definition
	for def := range s.env.Flows.List(backend) {
		out = append(out, def)
	}
	return out
}

// Flow returns one flow definition.
func (s *Service) Flow(name flow.Name) (*flow.Definition, error) {
	return s.env.Flows.Get(name)
}

// DefaultFlow returns the flow a backend compiles by default.
func (s *Service) DefaultFlow(backend string) (flow.Name, error) {
	b, err := s.env.Backends.Get(backend)
	if err != nil {
		return flow.Name{}, err
	}
	if b.DefaultFlow.IsZero() {
		return flow.Name{}, fmt.Errorf("backend %s has no default flow", b.Name)
	}
	return b.DefaultFlow, nil
}

// WriterFlow returns the flow that emits a backend's artifacts.
func (s *Service) WriterFlow(backend string) (flow.Name, error) {
	b, err := s.env.Backends.Get(backend)
	if err != nil {
		return flow.Name{}, err
	}
	if b.WriterFlow.IsZero() {
		return flow.Name{}, fmt.Errorf("backend %s has no writer flow", b.Name)
	}
	return b.WriterFlow, nil
}

// ResolveName interprets a user-supplied flow reference:
//
//   - "<backend>:<flow>" is taken as written;
//   - a backend name selects that backend's default flow;
//   - a registered global flow name selects the global flow;
//   - any other bare name is looked up under the default backend.
func (s *Service) ResolveName(ref string) (flow.Name, error) {
	ref = strings.TrimSpace(ref)
	if strings.Contains(ref, ":") {
		return flow.ParseName(ref)
	}
	if s.env.Backends.Has(ref) {
		return s.DefaultFlow(ref)
	}
	name, err := flow.ParseName(ref)
	if err != nil {
		return flow.Name{}, err
	}
	if s.env.Flows.Has(name) || s.defaultBackend == "" {
		return name, nil
	}
	return flow.NewName(s.defaultBackend, ref), nil
}

// Plan resolves name into its pass order.
func (s *Service) Plan(ctx context.Context, name flow.Name) (plan flow.Plan, err error) {
	ctx, span := s.tracer.Start(ctx, tracing.SpanResolve, trace.WithAttributes(
		attribute.String(tracing.AttrFlow, name.String()),
		attribute.String(tracing.AttrBackend, name.Backend),
	))
	defer func() { tracing.Finish(span, err) }()

	if _, ok := s.plans.Get(ctx, name.String()); ok {
		span.AddEvent(tracing.EventPlanCached)
	}
	plan, err = s.resolver.Resolve(ctx, name)
	if err != nil {
		log.ErrorErr(log.CatFlow, "resolve failed", err, "flow", name)
		return flow.Plan{}, err
	}
	span.SetAttributes(attribute.Int(tracing.AttrPlanSize, plan.Len()))
	return plan, nil
}

// Explain attributes each pass of name's plan to the flow that placed it.
func (s *Service) Explain(ctx context.Context, name flow.Name) ([]flow.Contribution, error) {
	return s.explain.Get(ctx, name.String(), name, cachemanager.NoExpiration)
}

// Compile resolves name and executes the plan against model. The report is
// recorded in history when history is enabled; recording failures are logged
// and do not fail the compile. A resolution failure returns a nil report.
func (s *Service) Compile(ctx context.Context, name flow.Name, model graph.Model) (report *pipeline.Report, err error) {
	ctx, span := s.tracer.Start(ctx, tracing.SpanCompile, trace.WithAttributes(
		attribute.String(tracing.AttrFlow, name.String()),
	))
	defer func() { tracing.Finish(span, err) }()

	run := pipeline.NewRun(name)
	if _, err := run.Resolve(ctx, planResolverFunc(s.Plan)); err != nil {
		return nil, err
	}
	report, err = run.Execute(ctx, s.executor, model, s.env.Catalog)
	if report != nil {
		span.SetAttributes(
			attribute.String(tracing.AttrRunID, report.RunID),
			attribute.String(tracing.AttrRunState, report.State.String()),
		)
		s.record(ctx, report)
	}
	return report, err
}

func (s *Service) record(ctx context.Context, report *pipeline.Report) {
	if s.history == nil {
		return
	}
	if err := s.history.Save(ctx, report); err != nil {
		log.ErrorErr(log.CatDB, "failed to record run", err, "run", report.RunID)
		return
	}
	if s.keep > 0 {
		if _, err := s.history.Prune(ctx, s.keep); err != nil {
			log.ErrorErr(log.CatDB, "failed to prune history", err, "keep", s.keep)
		}
	}
}

// History lists recorded runs.
func (s *Service) History(ctx context.Context, filter pipeline.ListFilter) ([]*pipeline.Report, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	return s.history.List(ctx, filter)
}

// Run returns one recorded run.
func (s *Service) Run(ctx context.Context, runID string) (*pipeline.Report, error) {
	if s.history == nil {
		return nil, ErrHistoryDisabled
	}
	return s.history.FindByRunID(ctx, runID)
}

// PruneHistory keeps the newest keep runs and returns how many were removed.
func (s *Service) PruneHistory(ctx context.Context, keep int) (int64, error) {
	if s.history == nil {
		return 0, ErrHistoryDisabled
	}
	n, err := s.history.Prune(ctx, keep)
	if err != nil {
		return 0, err
	}
	log.Info(log.CatDB, "pruned history", "removed", n, "keep", keep)
	return n, nil
}

// RequirementDiff holds two flows' requirement lists and plans side by side.
type RequirementDiff struct {
	A, B                 flow.Name
	ARequires, BRequires []flow.Name
	APlan, BPlan         []string
}

// RequirementDiff gathers what the CLI needs to diff two flows.
func (s *Service) RequirementDiff(ctx context.Context, a, b flow.Name) (RequirementDiff, error) {
	d := RequirementDiff{A: a, B: b}
	for _, side := range []struct {
		name     flow.Name
		requires *[]flow.Name
		plan     *[]string
	}{
		{a, &d.ARequires, &d.APlan},
		{b, &d.BRequires, &d.BPlan},
	} {
		def, err := s.env.Flows.Get(side.name)
		if err != nil {
			return RequirementDiff{}, err
		}
		plan, err := s.Plan(ctx, side.name)
		if err != nil {
			return RequirementDiff{}, err
		}
		*side.requires = def.Requires()
		*side.plan = plan.Passes
	}
	return d, nil
}

// MissingPass is a plan entry with no pass in the catalog.
type MissingPass struct {
	Flow flow.Name
	Pass string
}

// Check resolves every registered flow and reports plan entries the catalog
// cannot supply. Resolution errors are returned immediately.
func (s *Service) Check(ctx context.Context) ([]MissingPass, error) {
	var missing []MissingPass
	for def := range s.env.Flows.All() {
		plan, err := s.Plan(ctx, def.Name())
		if err != nil {
			return nil, err
		}
		for _, p := range plan.Passes {
			if !s.env.Catalog.Has(p) {
				missing = append(missing, MissingPass{Flow: def.Name(), Pass: p})
			}
		}
	}
	slices.SortStableFunc(missing, func(x, y MissingPass) int {
		return strings.Compare(x.Flow.String(), y.Flow.String())
	})
	return missing, nil
}

type planResolverFunc func(ctx context.Context, name flow.Name) (flow.Plan, error)

func (f planResolverFunc) Resolve(ctx context.Context, name flow.Name) (flow.Plan, error) {
	return f(ctx, name)
}

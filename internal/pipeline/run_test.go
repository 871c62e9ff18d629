package pipeline_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/passflow/internal/cachemanager"
	"github.com/zjrosen/passflow/internal/domain/flow"
	"github.com/zjrosen/passflow/internal/domain/graph"
	"github.com/zjrosen/passflow/internal/domain/pass"
	"github.com/zjrosen/passflow/internal/pipeline"
)

func newResolver(t *testing.T, reg *flow.Registry) *flow.Resolver {
	t.Helper()
	return flow.NewResolver(reg, cachemanager.NewInMemoryCacheManager[string, flow.Plan]("run-test", cachemanager.NoExpiration, 0))
}

func scenario(t *testing.T) (*flow.Registry, *pass.Catalog) {
	t.Helper()
	reg := flow.NewRegistry()
	_, err := reg.Register("setup", []string{"p1"}, nil, "base")
	require.NoError(t, err)
	_, err = reg.Register("build", []string{"p2"}, flow.MustParseNames("base:setup"), "base")
	require.NoError(t, err)
	return reg, catalog(recordPass("p1"), recordPass("p2"))
}

func TestRun_HappyPath(t *testing.T) {
	reg, passes := scenario(t)
	run := pipeline.NewRun(flow.MustParseName("base:build"))
	require.Equal(t, pipeline.StateUnresolved, run.State())

	plan, err := run.Resolve(context.Background(), newResolver(t, reg))
	require.NoError(t, err)
	require.Equal(t, []string{"p1", "p2"}, plan.Passes)
	require.Equal(t, pipeline.StateResolved, run.State())

	g := graph.New()
	report, err := run.Execute(context.Background(), pipeline.NewExecutor(), g, passes)
	require.NoError(t, err)
	require.Equal(t, pipeline.StateCompleted, run.State())
	require.Same(t, report, run.Report())
	require.Equal(t, []string{"p1", "p2"}, trail(g))
	require.NoError(t, run.Err())
}

func TestRun_ExecuteBeforeResolve(t *testing.T) {
	_, passes := scenario(t)
	run := pipeline.NewRun(flow.MustParseName("base:build"))

	_, err := run.Execute(context.Background(), pipeline.NewExecutor(), graph.New(), passes)

	require.ErrorIs(t, err, pipeline.ErrInvalidTransition)
	require.Equal(t, pipeline.StateUnresolved, run.State())
}

func TestRun_ResolveTwice(t *testing.T) {
	reg, _ := scenario(t)
	run := pipeline.NewRun(flow.MustParseName("base:build"))
	resolver := newResolver(t, reg)

	_, err := run.Resolve(context.Background(), resolver)
	require.NoError(t, err)
	_, err = run.Resolve(context.Background(), resolver)
	require.ErrorIs(t, err, pipeline.ErrInvalidTransition)
}

func TestRun_ResolutionFailureIsTerminal(t *testing.T) {
	reg, passes := scenario(t)
	run := pipeline.NewRun(flow.MustParseName("base:missing"))

	_, err := run.Resolve(context.Background(), newResolver(t, reg))
	var notFound *flow.FlowNotFoundError
	require.True(t, errors.As(err, &notFound))
	require.Equal(t, pipeline.StateFailed, run.State())
	require.Same(t, err, run.Err())

	_, err = run.Execute(context.Background(), pipeline.NewExecutor(), graph.New(), passes)
	require.ErrorIs(t, err, pipeline.ErrInvalidTransition)
}

func TestRun_ExecutionFailureIsTerminal(t *testing.T) {
	reg, _ := scenario(t)
	passes := catalog(recordPass("p1"), pass.Fail("p2", "unsupported"))
	run := pipeline.NewRun(flow.MustParseName("base:build"))
	resolver := newResolver(t, reg)

	_, err := run.Resolve(context.Background(), resolver)
	require.NoError(t, err)
	report, err := run.Execute(context.Background(), pipeline.NewExecutor(), graph.New(), passes)
	require.Error(t, err)
	require.Equal(t, pipeline.StateFailed, run.State())
	require.Equal(t, pipeline.StateFailed, report.State)

	_, err = run.Execute(context.Background(), pipeline.NewExecutor(), graph.New(), passes)
	require.ErrorIs(t, err, pipeline.ErrInvalidTransition)
	_, err = run.Resolve(context.Background(), resolver)
	require.ErrorIs(t, err, pipeline.ErrInvalidTransition)
}

func TestState_RoundTrip(t *testing.T) {
	for _, s := range []pipeline.State{
		pipeline.StateUnresolved, pipeline.StateResolved, pipeline.StateExecuting,
		pipeline.StateCompleted, pipeline.StateFailed,
	} {
		got, err := pipeline.ParseState(s.String())
		require.NoError(t, err)
		require.Equal(t, s, got)
	}
	_, err := pipeline.ParseState("paused")
	require.Error(t, err)
	require.True(t, pipeline.StateFailed.Terminal())
	require.False(t, pipeline.StateExecuting.Terminal())
}

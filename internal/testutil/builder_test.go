package testutil

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/passflow/internal/domain/flow"
	"github.com/zjrosen/passflow/internal/domain/pass"
	"github.com/zjrosen/passflow/internal/pipeline"
)

var start = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestBuilder_PlanDefaultsToSteps(t *testing.T) {
	r := NewBuilder("r", flow.MustParseName("convert")).
		StartedAt(start).
		WithStep("a", Transformed(), Took(time.Millisecond)).
		WithStep("b", Took(2*time.Millisecond)).
		Build()

	require.Equal(t, []string{"a", "b"}, r.Plan)
	require.Equal(t, pipeline.StateCompleted, r.State)
	require.True(t, r.Succeeded())
	require.Equal(t, 3*time.Millisecond, r.Duration())
	require.Equal(t, 1, r.Transformed())
	require.Equal(t, 1, r.Steps[1].Index)
	require.Equal(t, "r", r.Steps[1].RunID)
}

func TestBuilder_FailureStopsRun(t *testing.T) {
	cause := errors.New("boom")
	r := NewBuilder("r", flow.NewName("vivado", "ip")).
		WithPlan("a", "b", "c").
		WithStep("a").
		WithStep("b", FailedWith(cause)).
		WithStep("c").
		Build()

	require.Equal(t, pipeline.StateFailed, r.State)
	require.Len(t, r.Steps, 2)
	require.Equal(t, []string{"c"}, r.Skipped())
	require.NotNil(t, r.Failure)
	require.Equal(t, "b", r.Failure.Pass)
	require.Equal(t, 1, r.Failure.Index)
	require.ErrorIs(t, r.Failure, cause)
}

func TestPresets(t *testing.T) {
	name := flow.NewName("vivado", "optimize")

	done := CompletedReport("r1", name, start)
	require.True(t, done.Succeeded())
	require.Equal(t, pass.OutcomeNoOp, done.Steps[1].Outcome)
	require.Equal(t, 2*time.Millisecond, done.Duration())

	failed := FailedReport("r2", name, start)
	require.False(t, failed.Succeeded())
	require.Equal(t, []string{"b:three"}, failed.Skipped())
	require.EqualError(t, failed.Failure.Err, "bad attr")
}

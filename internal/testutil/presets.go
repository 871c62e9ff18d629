package testutil

import (
	"errors"
	"time"

	"github.com/zjrosen/passflow/internal/domain/flow"
	"github.com/zjrosen/passflow/internal/pipeline"
)

// CompletedReport is a two-pass run where the first pass transformed the
// model and the second did nothing. It takes 2ms.
func CompletedReport(runID string, name flow.Name, started time.Time) *pipeline.Report {
	return NewBuilder(runID, name).
		StartedAt(started).
		WithStep("b:one", Transformed(), Took(1500*time.Microsecond)).
		WithStep("b:two", Took(20*time.Microsecond)).
		FinishedAfter(2 * time.Millisecond).
		Build()
}

// FailedReport is a three-pass run whose second pass fails with "bad attr",
// leaving b:three skipped. It takes 1ms.
func FailedReport(runID string, name flow.Name, started time.Time) *pipeline.Report {
	return NewBuilder(runID, name).
		StartedAt(started).
		WithPlan("b:one", "b:two", "b:three").
		WithStep("b:one").
		WithStep("b:two", FailedWith(errors.New("bad attr"))).
		FinishedAfter(time.Millisecond).
		Build()
}

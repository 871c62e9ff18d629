package tracing

import (
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Span names.
const (
	SpanResolve = "flow.resolve"
	SpanExecute = "pipeline.execute"
	SpanPass    = "pipeline.pass"
	SpanCompile = "backend.compile"
	SpanBringUp = "backend.bringup"
)

// Span attribute keys.
const (
	AttrFlow      = "flow.name"
	AttrBackend   = "flow.backend"
	AttrPlanSize  = "plan.size"
	AttrRunID     = "run.id"
	AttrPassName  = "pass.name"
	AttrPassIndex = "pass.index"
	AttrOutcome   = "pass.outcome"
	AttrRunState  = "run.state"

	AttrErrorMessage = "error.message"
	AttrErrorType    = "error.type"
)

// Event names.
const (
	EventPlanCached   = "plan.cached"
	EventPassSkipped  = "pass.skipped"
	EventRunAborted   = "run.aborted"
	EventBackendReady = "backend.ready"
)

// Finish records err on span, if any, and ends it.
func Finish(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

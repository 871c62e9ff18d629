package backend

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/zjrosen/passflow/internal/domain/flow"
	"github.com/zjrosen/passflow/internal/domain/graph"
	"github.com/zjrosen/passflow/internal/domain/pass"
	"github.com/zjrosen/passflow/internal/mocks"
	"github.com/zjrosen/passflow/internal/pipeline"
)

const failDoc = `
backend: broken
default_flow: build
passes:
  - {name: "broken:stamp", kind: stamp, with: {key: seen, value: "broken:stamp"}}
  - {name: "broken:reject", kind: fail, with: {reason: unsupported layer}}
  - {name: "broken:finish", kind: noop}
flows:
  - {name: build, passes: ["broken:stamp", "broken:reject", "broken:finish"]}
`

// newTestService brings up baseDoc and failDoc together. Pass names are
// global across backends, so failDoc's passes carry the broken: prefix.
func newTestService(t *testing.T, opts ...ServiceOption) *Service {
	t.Helper()
	env, err := BringUp(context.Background(), parseFiles(t, baseDoc, failDoc))
	require.NoError(t, err)
	return NewService(env, opts...)
}

func TestService_ResolveName(t *testing.T) {
	svc := NewService(embeddedEnv(t), WithDefaultBackend("Vivado"))

	tests := []struct {
		ref  string
		want flow.Name
	}{
		{"vitis:ip", flow.NewName("vitis", "ip")},
		{"VitisAccelerator", flow.NewName("vitisaccelerator", "ip")},
		{"optimize", flow.NewName("", "optimize")},
		{"streaming", flow.NewName("vivado", "streaming")},
		{"  vivado:write ", flow.NewName("vivado", "write")},
	}
	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			got, err := svc.ResolveName(tt.ref)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}

	_, err := svc.ResolveName("")
	require.Error(t, err)
}

func TestService_ResolveNameWithoutDefaultBackend(t *testing.T) {
	svc := NewService(embeddedEnv(t))

	got, err := svc.ResolveName("streaming")
	require.NoError(t, err)
	require.Equal(t, flow.NewName("", "streaming"), got)
}

func TestService_PlanVivadoIP(t *testing.T) {
	svc := NewService(embeddedEnv(t))

	plan, err := svc.Plan(context.Background(), flow.NewName("vivado", "ip"))
	require.NoError(t, err)
	require.Equal(t, []string{
		"channels_last_converter",
		"fuse_bias_add",
		"remove_nop_transpose",
		"output_rounding_saturation_mode",
		"fuse_consecutive_batch_normalization",
		"eliminate_linear_activation",
		"remove_nop_batch_normalization",
		"infer_precision_types",
		"set_precision_concat",
		"vivado:init_dense",
		"vivado:init_conv2d",
		"vivado:init_activation",
		"vivado:reshape_stream",
		"vivado:clone_output",
		"vivado:insert_zero_padding_before_conv",
		"vivado:broadcast_stream",
		"vivado:merge_batch_norm_quantized_tanh",
		"vivado:quantize_dense_output",
		"vivado:xnor_pooling",
		"vivado:remove_final_reshape",
		"vivado:optimize_pointwise_conv",
		"vivado:skip_softmax",
		"vivado:fix_softmax_table_size",
		"vivado:transform_types",
		"vivado:register_bram_weights",
		"vivado:apply_resource_strategy",
		"vivado:generate_conv_im2col",
		"vivado:template:activation",
		"vivado:template:conv2d",
		"vivado:template:dense",
	}, plan.Passes)

	again, err := svc.Plan(context.Background(), flow.NewName("vivado", "ip"))
	require.NoError(t, err)
	require.Equal(t, plan, again)
}

func TestService_PlanUnknownFlow(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Plan(context.Background(), flow.NewName("base", "nope"))
	var nf *flow.FlowNotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestService_Explain(t *testing.T) {
	svc := newTestService(t)

	got, err := svc.Explain(context.Background(), flow.NewName("base", "build"))
	require.NoError(t, err)
	require.Equal(t, []flow.Contribution{
		{Flow: flow.NewName("base", "setup"), Passes: []string{"p1"}},
		{Flow: flow.NewName("base", "build"), Passes: []string{"p2"}},
	}, got)
}

func TestService_DefaultAndWriterFlow(t *testing.T) {
	svc := NewService(embeddedEnv(t))

	def, err := svc.DefaultFlow("vitis")
	require.NoError(t, err)
	require.Equal(t, flow.NewName("vitis", "ip"), def)

	w, err := svc.WriterFlow("Vivado")
	require.NoError(t, err)
	require.Equal(t, flow.NewName("vivado", "write"), w)

	_, err = svc.DefaultFlow("quartus")
	var nf *BackendNotFoundError
	require.ErrorAs(t, err, &nf)

	svc = newTestService(t)
	_, err = svc.WriterFlow("base")
	require.ErrorContains(t, err, "no writer flow")
}

func TestService_Flows(t *testing.T) {
	svc := newTestService(t)

	var names []string
	for _, def := range svc.Flows("base") {
		names = append(names, def.Name().String())
	}
	require.Equal(t, []string{"base:setup", "base:build"}, names)
	require.Empty(t, svc.Flows(""))
}

func TestService_RequirementDiff(t *testing.T) {
	svc := NewService(embeddedEnv(t))

	d, err := svc.RequirementDiff(context.Background(), flow.NewName("vivado", "ip"), flow.NewName("vitis", "ip"))
	require.NoError(t, err)
	require.Len(t, d.BRequires, len(d.ARequires)+2)
	require.Contains(t, d.BRequires, flow.NewName("vitis", "validation"))
	require.Contains(t, d.BPlan, "vitis:template:dense")
	require.NotContains(t, d.APlan, "vitis:template:dense")

	_, err = svc.RequirementDiff(context.Background(), flow.NewName("vivado", "ip"), flow.NewName("vivado", "nope"))
	require.Error(t, err)
}

func TestService_CheckReportsMissingPasses(t *testing.T) {
	env, err := BringUp(context.Background(), parseFiles(t, `
backend: x
passes: [{name: real, kind: noop}]
flows: [{name: f, passes: [real, ghost]}]
`))
	require.NoError(t, err)

	missing, err := NewService(env).Check(context.Background())
	require.NoError(t, err)
	require.Equal(t, []MissingPass{{Flow: flow.NewName("x", "f"), Pass: "ghost"}}, missing)
}

func TestService_CompileRecordsHistory(t *testing.T) {
	repo := mocks.NewMockReportRepository(t)
	var saved *pipeline.Report
	repo.EXPECT().Save(mock.Anything, mock.Anything).
		Run(func(_ context.Context, r *pipeline.Report) { saved = r }).
		Return(nil)
	repo.EXPECT().Prune(mock.Anything, 10).Return(0, nil)

	svc := newTestService(t, WithHistory(repo, 10))
	g := graph.New()
	require.NoError(t, g.AddNode("n1", "Dense"))

	report, err := svc.Compile(context.Background(), flow.NewName("base", "build"), g)
	require.NoError(t, err)
	require.True(t, report.Succeeded())
	require.Equal(t, []string{"p1", "p2"}, report.Plan)
	require.Same(t, report, saved)
}

func TestService_CompileFailure(t *testing.T) {
	repo := mocks.NewMockReportRepository(t)
	repo.EXPECT().Save(mock.Anything, mock.Anything).Return(nil)

	svc := newTestService(t, WithHistory(repo, 0))
	g := graph.New()

	report, err := svc.Compile(context.Background(), flow.NewName("broken", "build"), g)
	require.Error(t, err)

	var execErr *pipeline.PassExecutionError
	require.ErrorAs(t, err, &execErr)
	require.Equal(t, "broken:reject", execErr.Pass)
	require.Equal(t, 1, execErr.Index)

	var failed *pass.FailedError
	require.ErrorAs(t, err, &failed)
	require.Equal(t, "unsupported layer", failed.Reason)

	require.NotNil(t, report)
	require.Equal(t, pipeline.StateFailed, report.State)
	require.Len(t, report.Steps, 2)
	require.Equal(t, []string{"broken:finish"}, report.Skipped())

	v, ok := g.GraphAttr("seen")
	require.True(t, ok, "passes before the failure keep their effect")
	require.Equal(t, "broken:stamp", v)
}

func TestService_CompileSaveErrorIsNotFatal(t *testing.T) {
	repo := mocks.NewMockReportRepository(t)
	repo.EXPECT().Save(mock.Anything, mock.Anything).Return(errors.New("disk full"))

	svc := newTestService(t, WithHistory(repo, 5))
	report, err := svc.Compile(context.Background(), flow.NewName("base", "build"), graph.New())
	require.NoError(t, err)
	require.True(t, report.Succeeded())
}

func TestService_CompileUnknownFlow(t *testing.T) {
	svc := newTestService(t)

	report, err := svc.Compile(context.Background(), flow.NewName("base", "nope"), graph.New())
	require.Nil(t, report)
	var nf *flow.FlowNotFoundError
	require.ErrorAs(t, err, &nf)
}

func TestService_HistoryDisabled(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.History(context.Background(), pipeline.ListFilter{})
	require.ErrorIs(t, err, ErrHistoryDisabled)
	_, err = svc.Run(context.Background(), "r1")
	require.ErrorIs(t, err, ErrHistoryDisabled)
	_, err = svc.PruneHistory(context.Background(), 1)
	require.ErrorIs(t, err, ErrHistoryDisabled)
}

func TestService_PruneHistory(t *testing.T) {
	repo := mocks.NewMockReportRepository(t)
	repo.EXPECT().Prune(mock.Anything, 2).Return(int64(3), nil)

	svc := newTestService(t, WithHistory(repo, 0))
	n, err := svc.PruneHistory(context.Background(), 2)
	require.NoError(t, err)
	require.Equal(t, int64(3), n)
}

func TestService_History(t *testing.T) {
	repo := mocks.NewMockReportRepository(t)
	want := []*pipeline.Report{{RunID: "r1"}}
	repo.EXPECT().List(mock.Anything, pipeline.ListFilter{Limit: 3}).Return(want, nil)
	repo.EXPECT().FindByRunID(mock.Anything, "r1").Return(want[0], nil)

	svc := newTestService(t, WithHistory(repo, 0))
	got, err := svc.History(context.Background(), pipeline.ListFilter{Limit: 3})
	require.NoError(t, err)
	require.Equal(t, want, got)

	one, err := svc.Run(context.Background(), "r1")
	require.NoError(t, err)
	require.Same(t, want[0], one)
}

package pass

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/passflow/internal/domain/graph"
)

func TestOutcome_String(t *testing.T) {
	require.Equal(t, "noop", OutcomeNoOp.String())
	require.Equal(t, "transformed", OutcomeTransformed.String())
	require.Equal(t, "Outcome(9)", Outcome(9).String())
}

func TestTransform(t *testing.T) {
	g := graph.New()
	p := Transform("vivado:add_input", func(_ context.Context, m graph.Model) error {
		return m.AddNode("input", "Input")
	})

	out, err := p.Run(context.Background(), g)
	require.NoError(t, err)
	require.Equal(t, OutcomeTransformed, out)
	require.Equal(t, "vivado:add_input", p.Name())

	out, err = p.Run(context.Background(), g)
	require.ErrorIs(t, err, graph.ErrDuplicateNode)
	require.Equal(t, OutcomeNoOp, out)
}

func TestNoop(t *testing.T) {
	g := graph.New()
	out, err := Noop("x:nothing").Run(context.Background(), g)
	require.NoError(t, err)
	require.Equal(t, OutcomeNoOp, out)
	require.Zero(t, g.Len())
}

func TestFail(t *testing.T) {
	_, err := Fail("x:broken", "unsupported layer").Run(context.Background(), graph.New())

	var failed *FailedError
	require.True(t, errors.As(err, &failed))
	require.Equal(t, "x:broken", failed.Pass)
	require.Equal(t, "unsupported layer", failed.Reason)
	require.EqualError(t, err, "pass x:broken failed: unsupported layer")
}

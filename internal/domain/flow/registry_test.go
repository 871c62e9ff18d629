package flow

import (
	"errors"
	"slices"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewRegistry(t *testing.T) {
	reg := NewRegistry()
	require.NotNil(t, reg)
	require.Zero(t, reg.Len())
	require.False(t, reg.Frozen())
}

func TestRegistry_Register(t *testing.T) {
	reg := NewRegistry()

	def, err := reg.Register("init_layers", []string{"vivado:validate"}, nil, "Vivado")

	require.NoError(t, err)
	require.Equal(t, NewName("vivado", "init_layers"), def.Name())
	require.Equal(t, "vivado", def.Backend())
	require.Equal(t, []string{"vivado:validate"}, def.Passes())
	require.Empty(t, def.Requires())
	require.Equal(t, 1, reg.Len())
}

func TestRegistry_Register_QualifiedNameWithoutBackend(t *testing.T) {
	reg := NewRegistry()

	def, err := reg.Register("vivado:ip", []string{"p"}, nil, "")

	require.NoError(t, err)
	require.Equal(t, "vivado:ip", def.Name().String())
}

func TestRegistry_Register_DuplicateKey(t *testing.T) {
	reg := NewRegistry()
	mustRegister(t, reg, "base", "setup", []string{"p1"})

	_, err := reg.Register("setup", []string{"other"}, nil, "BASE")

	var dup *DuplicateFlowError
	require.True(t, errors.As(err, &dup), "expected DuplicateFlowError, got %v", err)
	require.Equal(t, "base:setup", dup.Name.String())

	// Registry unchanged: original definition still in place.
	require.Equal(t, 1, reg.Len())
	def, err := reg.Get(MustParseName("base:setup"))
	require.NoError(t, err)
	require.Equal(t, []string{"p1"}, def.Passes())
}

func TestRegistry_Register_SameFlowDifferentBackend(t *testing.T) {
	reg := NewRegistry()
	mustRegister(t, reg, "vivado", "ip", []string{"p"})
	mustRegister(t, reg, "vitis", "ip", []string{"p"})

	require.Equal(t, 2, reg.Len())
}

func TestRegistry_Register_UnknownReference(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Register("build", []string{"p2"}, MustParseNames("base:setup"), "base")

	var unknown *UnknownFlowReferenceError
	require.True(t, errors.As(err, &unknown))
	require.Equal(t, "base:build", unknown.Flow.String())
	require.Equal(t, "base:setup", unknown.Missing.String())
	require.Zero(t, reg.Len())
}

func TestRegistry_Register_SelfReference(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Register("loop", []string{"p"}, MustParseNames("base:loop"), "base")

	var cyc *CyclicFlowDependencyError
	require.True(t, errors.As(err, &cyc))
	require.Equal(t, MustParseNames("base:loop", "base:loop"), cyc.Path)
}

func TestRegistry_Register_EmptyFlowRejected(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Register("nothing", nil, nil, "base")

	require.ErrorIs(t, err, ErrEmptyFlow)
}

func TestRegistry_Register_AggregateFlowAllowed(t *testing.T) {
	reg := NewRegistry()
	mustRegister(t, reg, "base", "setup", []string{"p1"})

	def, err := reg.Register("all", nil, MustParseNames("base:setup"), "base")

	require.NoError(t, err)
	require.True(t, def.IsAggregate())
}

func TestRegistry_Register_EmptyPassName(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Register("bad", []string{"ok", " "}, nil, "base")

	require.ErrorIs(t, err, ErrInvalidPass)
}

func TestRegistry_Register_Frozen(t *testing.T) {
	reg := NewRegistry()
	mustRegister(t, reg, "base", "setup", []string{"p1"})
	reg.Freeze()

	_, err := reg.Register("late", []string{"p"}, nil, "base")

	require.ErrorIs(t, err, ErrRegistryFrozen)
	require.Equal(t, 1, reg.Len())
}

func TestRegistry_DefinitionIsImmutable(t *testing.T) {
	reg := NewRegistry()
	passes := []string{"p1", "p2"}
	def := mustRegister(t, reg, "base", "setup", passes)

	passes[0] = "mutated"
	got := def.Passes()
	got[1] = "mutated"

	require.Equal(t, []string{"p1", "p2"}, def.Passes())
}

func TestRegistry_Get_NotFound(t *testing.T) {
	reg := NewRegistry()

	_, err := reg.Get(MustParseName("vivado:ip"))

	var notFound *FlowNotFoundError
	require.True(t, errors.As(err, &notFound))
	require.Equal(t, "vivado:ip", notFound.Name.String())
}

func TestRegistry_List_ByBackendInOrder(t *testing.T) {
	reg := NewRegistry()
	mustRegister(t, reg, "vivado", "b", []string{"p"})
	mustRegister(t, reg, "vitis", "x", []string{"p"})
	mustRegister(t, reg, "vivado", "a", []string{"p"})

	var names []string
	for def := range reg.List("Vivado") {
		names = append(names, def.Name().String())
	}

	require.Equal(t, []string{"vivado:b", "vivado:a"}, names)
}

func TestRegistry_List_IsRestartable(t *testing.T) {
	reg := NewRegistry()
	mustRegister(t, reg, "vivado", "a", []string{"p"})
	seq := reg.List("vivado")

	first := slices.Collect(seq)
	mustRegister(t, reg, "vivado", "b", []string{"p"})
	second := slices.Collect(seq)

	require.Len(t, first, 1)
	require.Len(t, second, 2)
}

func TestRegistry_List_EarlyBreak(t *testing.T) {
	reg := NewRegistry()
	mustRegister(t, reg, "vivado", "a", []string{"p"})
	mustRegister(t, reg, "vivado", "b", []string{"p"})

	count := 0
	for range reg.List("vivado") {
		count++
		break
	}

	require.Equal(t, 1, count)
}

func TestRegistry_Backends(t *testing.T) {
	reg := NewRegistry()
	mustRegister(t, reg, "vitis", "a", []string{"p"})
	mustRegister(t, reg, "vivado", "a", []string{"p"})
	mustRegister(t, reg, "", "convert", []string{"p"})

	require.Equal(t, []string{"", "vitis", "vivado"}, reg.Backends())
}

func TestRegistry_Reset(t *testing.T) {
	reg := NewRegistry()
	mustRegister(t, reg, "base", "setup", []string{"p1"})
	reg.Freeze()
	gen := reg.Generation()

	reg.Reset()

	require.Zero(t, reg.Len())
	require.False(t, reg.Frozen())
	require.Greater(t, reg.Generation(), gen)
	mustRegister(t, reg, "base", "setup", []string{"p1"})
}

func TestRegistry_MustRegister_Panics(t *testing.T) {
	reg := NewRegistry()
	reg.MustRegister("setup", []string{"p"}, nil, "base")

	require.Panics(t, func() {
		reg.MustRegister("setup", []string{"p"}, nil, "base")
	})
}

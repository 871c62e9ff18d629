package flow

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestResolver_Resolve_PrerequisitesFirst(t *testing.T) {
	reg := NewRegistry()
	mustRegister(t, reg, "base", "setup", []string{"p1"})
	mustRegister(t, reg, "base", "build", []string{"p2"}, "base:setup")
	r := newTestResolver(t, reg)

	plan, err := r.Resolve(context.Background(), MustParseName("base:build"))

	require.NoError(t, err)
	require.Equal(t, MustParseName("base:build"), plan.Flow)
	require.Equal(t, []string{"p1", "p2"}, plan.Passes)
}

func TestResolver_Resolve_SiblingOrderAndDedupe(t *testing.T) {
	reg := NewRegistry()
	mustRegister(t, reg, "b", "common", []string{"c1", "c2"})
	mustRegister(t, reg, "b", "left", []string{"l1", "c2"}, "b:common")
	mustRegister(t, reg, "b", "right", []string{"r1", "l1"}, "b:common")
	mustRegister(t, reg, "b", "top", []string{"t1", "c1"}, "b:left", "b:right")
	r := newTestResolver(t, reg)

	plan, err := r.Resolve(context.Background(), MustParseName("b:top"))

	require.NoError(t, err)
	require.Equal(t, []string{"c1", "c2", "l1", "r1", "t1"}, plan.Passes)
}

func TestResolver_Resolve_AggregateFlow(t *testing.T) {
	reg := NewRegistry()
	mustRegister(t, reg, "b", "one", []string{"p1"})
	mustRegister(t, reg, "b", "two", []string{"p2"})
	mustRegister(t, reg, "b", "all", nil, "b:two", "b:one")
	r := newTestResolver(t, reg)

	plan, err := r.Resolve(context.Background(), MustParseName("b:all"))

	require.NoError(t, err)
	require.Equal(t, []string{"p2", "p1"}, plan.Passes)
}

func TestResolver_Resolve_DuplicatePassWithinFlow(t *testing.T) {
	reg := NewRegistry()
	mustRegister(t, reg, "b", "dup", []string{"p1", "p2", "p1"})
	r := newTestResolver(t, reg)

	plan, err := r.Resolve(context.Background(), MustParseName("b:dup"))

	require.NoError(t, err)
	require.Equal(t, []string{"p1", "p2"}, plan.Passes)
}

func TestResolver_Resolve_NotFound(t *testing.T) {
	r := newTestResolver(t, NewRegistry())

	_, err := r.Resolve(context.Background(), MustParseName("vivado:ip"))

	var notFound *FlowNotFoundError
	require.True(t, errors.As(err, &notFound))
	require.True(t, notFound.ReferencedBy.IsZero())
}

func TestResolver_Resolve_MissingReferenceFromSource(t *testing.T) {
	src := newMapSource()
	src.add("b:top", []string{"t"}, "b:ghost")
	r := newTestResolver(t, src)

	_, err := r.Resolve(context.Background(), MustParseName("b:top"))

	var notFound *FlowNotFoundError
	require.True(t, errors.As(err, &notFound))
	require.Equal(t, "b:ghost", notFound.Name.String())
	require.Equal(t, "b:top", notFound.ReferencedBy.String())
}

func TestResolver_Resolve_SelfCycle(t *testing.T) {
	src := newMapSource()
	src.add("b:self", []string{"p"}, "b:self")
	r := newTestResolver(t, src)

	_, err := r.Resolve(context.Background(), MustParseName("b:self"))

	var cyc *CyclicFlowDependencyError
	require.True(t, errors.As(err, &cyc))
	require.Equal(t, MustParseNames("b:self", "b:self"), cyc.Path)
}

func TestResolver_Resolve_TransitiveCycle(t *testing.T) {
	src := newMapSource()
	src.add("b:entry", []string{"e"}, "b:a")
	src.add("b:a", []string{"a"}, "b:b")
	src.add("b:b", []string{"b"}, "b:c")
	src.add("b:c", []string{"c"}, "b:a")
	r := newTestResolver(t, src)

	_, err := r.Resolve(context.Background(), MustParseName("b:entry"))

	var cyc *CyclicFlowDependencyError
	require.True(t, errors.As(err, &cyc))
	require.Equal(t, MustParseNames("b:a", "b:b", "b:c", "b:a"), cyc.Path)
	require.Contains(t, err.Error(), "b:a -> b:b -> b:c -> b:a")
}

func TestResolver_Resolve_Memoized(t *testing.T) {
	src := newMapSource()
	src.add("b:setup", []string{"p1"})
	src.add("b:build", []string{"p2"}, "b:setup")
	r := newTestResolver(t, src)
	ctx := context.Background()

	first, err := r.Resolve(ctx, MustParseName("b:build"))
	require.NoError(t, err)

	// Editing the source behind the resolver's back is invisible until the
	// generation changes.
	src.add("b:setup", []string{"changed"})
	second, err := r.Resolve(ctx, MustParseName("b:build"))
	require.NoError(t, err)
	require.Equal(t, first, second)

	src.gen++
	third, err := r.Resolve(ctx, MustParseName("b:build"))
	require.NoError(t, err)
	require.Equal(t, []string{"changed", "p2"}, third.Passes)
}

func TestResolver_Resolve_ReturnsCopies(t *testing.T) {
	reg := NewRegistry()
	mustRegister(t, reg, "b", "setup", []string{"p1"})
	r := newTestResolver(t, reg)
	ctx := context.Background()

	plan, err := r.Resolve(ctx, MustParseName("b:setup"))
	require.NoError(t, err)
	plan.Passes[0] = "mutated"

	again, err := r.Resolve(ctx, MustParseName("b:setup"))
	require.NoError(t, err)
	require.Equal(t, []string{"p1"}, again.Passes)
}

func TestResolver_Resolve_AfterRegistryReset(t *testing.T) {
	reg := NewRegistry()
	mustRegister(t, reg, "b", "setup", []string{"p1"})
	r := newTestResolver(t, reg)
	ctx := context.Background()

	_, err := r.Resolve(ctx, MustParseName("b:setup"))
	require.NoError(t, err)

	reg.Reset()
	_, err = r.Resolve(ctx, MustParseName("b:setup"))
	var notFound *FlowNotFoundError
	require.True(t, errors.As(err, &notFound), "memo must not survive a reset")

	mustRegister(t, reg, "b", "setup", []string{"p9"})
	plan, err := r.Resolve(ctx, MustParseName("b:setup"))
	require.NoError(t, err)
	require.Equal(t, []string{"p9"}, plan.Passes)
}

func TestResolver_Explain(t *testing.T) {
	reg := NewRegistry()
	mustRegister(t, reg, "b", "setup", []string{"p1", "shared"})
	mustRegister(t, reg, "b", "extra", []string{"e1", "shared"})
	mustRegister(t, reg, "b", "build", []string{"p2"}, "b:setup", "b:extra")
	r := newTestResolver(t, reg)

	contribs, err := r.Explain(context.Background(), MustParseName("b:build"))

	require.NoError(t, err)
	require.Equal(t, []Contribution{
		{Flow: MustParseName("b:setup"), Passes: []string{"p1", "shared"}},
		{Flow: MustParseName("b:extra"), Passes: []string{"e1"}},
		{Flow: MustParseName("b:build"), Passes: []string{"p2"}},
	}, contribs)
}

func TestResolver_Explain_PropagatesCycle(t *testing.T) {
	src := newMapSource()
	src.add("b:a", []string{"a"}, "b:a")
	r := newTestResolver(t, src)

	_, err := r.Explain(context.Background(), MustParseName("b:a"))

	var cyc *CyclicFlowDependencyError
	require.True(t, errors.As(err, &cyc))
}

// === Property Tests ===

// genRegistry registers a random acyclic flow graph. Flow i may only require
// flows registered before it, mirroring bring-up order.
func genRegistry(t *rapid.T) (*Registry, []Name) {
	reg := NewRegistry()
	numFlows := rapid.IntRange(1, 12).Draw(t, "numFlows")
	names := make([]Name, 0, numFlows)
	for i := 0; i < numFlows; i++ {
		var requires []Name
		if i > 0 {
			numReqs := rapid.IntRange(0, min(i, 3)).Draw(t, fmt.Sprintf("numReqs%d", i))
			for j := 0; j < numReqs; j++ {
				idx := rapid.IntRange(0, i-1).Draw(t, fmt.Sprintf("req%d_%d", i, j))
				requires = append(requires, names[idx])
			}
		}
		numPasses := rapid.IntRange(0, 3).Draw(t, fmt.Sprintf("numPasses%d", i))
		if numPasses == 0 && len(requires) == 0 {
			numPasses = 1
		}
		passes := make([]string, numPasses)
		for j := range passes {
			passes[j] = fmt.Sprintf("p%d", rapid.IntRange(0, 20).Draw(t, fmt.Sprintf("pass%d_%d", i, j)))
		}
		def, err := reg.Register(fmt.Sprintf("f%d", i), passes, requires, "prop")
		if err != nil {
			t.Fatalf("register f%d: %v", i, err)
		}
		names = append(names, def.Name())
	}
	return reg, names
}

// expand is the naive, unmemoized flattening used as the oracle.
func expand(reg *Registry, name Name) []string {
	def, _ := reg.Get(name)
	var out []string
	for _, req := range def.Requires() {
		out = append(out, expand(reg, req)...)
	}
	return append(out, def.Passes()...)
}

func TestResolver_Property_MatchesNaiveFlattening(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		reg, names := genRegistry(t)
		cache := newRapidCache()
		r := NewResolver(reg, cache)
		target := names[rapid.IntRange(0, len(names)-1).Draw(t, "target")]

		plan, err := r.Resolve(context.Background(), target)
		if err != nil {
			t.Fatalf("resolve %s: %v", target, err)
		}

		var want []string
		seen := map[string]bool{}
		for _, p := range expand(reg, target) {
			if !seen[p] {
				seen[p] = true
				want = append(want, p)
			}
		}
		if fmt.Sprint(want) != fmt.Sprint(plan.Passes) {
			t.Fatalf("plan %v, want %v", plan.Passes, want)
		}
	})
}

func TestResolver_Property_PrerequisitePassesPrecedeDependents(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		reg, names := genRegistry(t)
		r := NewResolver(reg, newRapidCache())
		target := names[rapid.IntRange(0, len(names)-1).Draw(t, "target")]

		plan, err := r.Resolve(context.Background(), target)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		pos := make(map[string]int, len(plan.Passes))
		for i, p := range plan.Passes {
			pos[p] = i
		}

		// Every pass of every prerequisite appears in the plan, and appears
		// before any pass the dependent flow introduces for the first time.
		def, _ := reg.Get(target)
		for _, req := range def.Requires() {
			for _, p := range expand(reg, req) {
				if _, ok := pos[p]; !ok {
					t.Fatalf("prerequisite pass %s missing from plan", p)
				}
			}
		}
	})
}

func TestResolver_Property_Idempotent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		reg, names := genRegistry(t)
		r := NewResolver(reg, newRapidCache())
		target := names[rapid.IntRange(0, len(names)-1).Draw(t, "target")]
		ctx := context.Background()

		first, err := r.Resolve(ctx, target)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		second, err := r.Resolve(ctx, target)
		if err != nil {
			t.Fatalf("resolve again: %v", err)
		}
		fresh, err := NewResolver(reg, newRapidCache()).Resolve(ctx, target)
		if err != nil {
			t.Fatalf("resolve fresh: %v", err)
		}
		if fmt.Sprint(first) != fmt.Sprint(second) || fmt.Sprint(first) != fmt.Sprint(fresh) {
			t.Fatalf("non-deterministic plans: %v / %v / %v", first, second, fresh)
		}
	})
}

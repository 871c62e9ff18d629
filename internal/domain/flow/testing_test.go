package flow

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/zjrosen/passflow/internal/cachemanager"
)

// newTestResolver wires a resolver to a fresh in-memory plan cache.
func newTestResolver(t *testing.T, source Source) *Resolver {
	t.Helper()
	cache := cachemanager.NewInMemoryCacheManager[string, Plan]("test-plans", cachemanager.NoExpiration, 0)
	return NewResolver(source, cache)
}

// mustRegister registers a flow from string names and fails the test on error.
func mustRegister(t *testing.T, reg *Registry, backend, name string, passes []string, requires ...string) *Definition {
	t.Helper()
	def, err := reg.Register(name, passes, MustParseNames(requires...), backend)
	require.NoError(t, err)
	return def
}

// mapSource is a Source that accepts any graph, including cyclic ones.
type mapSource struct {
	defs map[Name]*Definition
	gen  uint64
}

func newMapSource() *mapSource {
	return &mapSource{defs: make(map[Name]*Definition)}
}

func (s *mapSource) add(name string, passes []string, requires ...string) {
	n := MustParseName(name)
	s.defs[n] = newDefinition(n, passes, MustParseNames(requires...))
}

func (s *mapSource) Get(name Name) (*Definition, error) {
	def, ok := s.defs[name]
	if !ok {
		return nil, &FlowNotFoundError{Name: name}
	}
	return def, nil
}

func (s *mapSource) Generation() uint64 {
	return s.gen
}

// newRapidCache builds a plan cache for property checks, which run outside a
// *testing.T.
func newRapidCache() PlanCache {
	return cachemanager.NewInMemoryCacheManager[string, Plan]("prop-plans", cachemanager.NoExpiration, 0)
}

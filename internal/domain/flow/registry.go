package flow

import (
	"fmt"
	"iter"
	"sort"
	"strings"
	"sync"
)

// Registry holds all flow definitions keyed by (backend, flow).
type Registry struct {
	mu         sync.RWMutex
	defs       map[Name]*Definition
	order      []Name
	frozen     bool
	generation uint64
}

// NewRegistry creates an empty, unfrozen registry.
func NewRegistry() *Registry {
	return &Registry{
		defs: make(map[Name]*Definition),
	}
}

// Register stores a new flow under backend. When backend is empty the flow
// name may itself be qualified ("vivado:ip"); otherwise it is the bare flow
// part. Every requirement must already be registered, so registration order
// matters and the requirement graph stays acyclic. On error the registry is
// unchanged.
func (r *Registry) Register(flowName string, passes []string, requires []Name, backend string) (*Definition, error) {
	name, err := qualify(flowName, backend)
	if err != nil {
		return nil, err
	}
	if len(passes) == 0 && len(requires) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyFlow, name)
	}
	for i, p := range passes {
		if strings.TrimSpace(p) == "" {
			return nil, fmt.Errorf("%w: flow %s pass[%d] is empty", ErrInvalidPass, name, i)
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return nil, fmt.Errorf("%w: cannot register %s", ErrRegistryFrozen, name)
	}
	if _, exists := r.defs[name]; exists {
		return nil, &DuplicateFlowError{Name: name}
	}
	for _, req := range requires {
		if req == name {
			return nil, &CyclicFlowDependencyError{Path: []Name{name, name}}
		}
		if _, ok := r.defs[req]; !ok {
			return nil, &UnknownFlowReferenceError{Flow: name, Missing: req}
		}
	}

	def := newDefinition(name, passes, requires)
	r.defs[name] = def
	r.order = append(r.order, name)
	return def, nil
}

// MustRegister panics if registration fails. Intended for static bring-up.
func (r *Registry) MustRegister(flowName string, passes []string, requires []Name, backend string) *Definition {
	def, err := r.Register(flowName, passes, requires, backend)
	if err != nil {
		panic(err)
	}
	return def
}

// Get returns a registered definition.
func (r *Registry) Get(name Name) (*Definition, error) {
	r.mu.RLock()
	def, ok := r.defs[name]
	r.mu.RUnlock()
	if !ok {
		return nil, &FlowNotFoundError{Name: name}
	}
	return def, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name Name) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.defs[name]
	return ok
}

// List yields the definitions registered under backend in registration order.
// Each range over the returned sequence starts from a fresh snapshot.
func (r *Registry) List(backend string) iter.Seq[*Definition] {
	backend = NormalizeBackend(backend)
	return func(yield func(*Definition) bool) {
		for _, def := range r.snapshot() {
			if def.Backend() != backend {
				continue
			}
			if !yield(def) {
				return
			}
		}
	}
}

// All yields every definition in registration order.
func (r *Registry) All() iter.Seq[*Definition] {
	return func(yield func(*Definition) bool) {
		for _, def := range r.snapshot() {
			if !yield(def) {
				return
			}
		}
	}
}

// Backends returns the sorted backend ids that own at least one flow. The
// global namespace is reported as "".
func (r *Registry) Backends() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := make(map[string]bool)
	for _, name := range r.order {
		set[name.Backend] = true
	}
	backends := make([]string, 0, len(set))
	for b := range set {
		backends = append(backends, b)
	}
	sort.Strings(backends)
	return backends
}

// Len returns the number of registered flows.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// Freeze ends bring-up. Subsequent Register calls fail with ErrRegistryFrozen.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Frozen reports whether Freeze has been called since the last Reset.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}

// Reset drops every definition and unfreezes the registry. Resolvers reading
// from this registry discard their memoized plans.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defs = make(map[Name]*Definition)
	r.order = nil
	r.frozen = false
	r.generation++
}

// Generation implements Source.
func (r *Registry) Generation() uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.generation
}

func (r *Registry) snapshot() []*Definition {
	r.mu.RLock()
	defer r.mu.RUnlock()
	defs := make([]*Definition, len(r.order))
	for i, name := range r.order {
		defs[i] = r.defs[name]
	}
	return defs
}

// qualify builds the registry key for a Register call.
func qualify(flowName, backend string) (Name, error) {
	var name Name
	if strings.TrimSpace(backend) == "" {
		parsed, err := ParseName(flowName)
		if err != nil {
			return Name{}, err
		}
		name = parsed
	} else {
		name = NewName(backend, flowName)
	}
	if err := name.Validate(); err != nil {
		return Name{}, err
	}
	return name, nil
}

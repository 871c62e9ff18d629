package backend

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/zjrosen/passflow/internal/domain/flow"
)

// ErrInvalidBackend is returned for backend names that cannot be used as a
// flow namespace.
var ErrInvalidBackend = errors.New("invalid backend")

// Backend describes one target variant.
type Backend struct {
	// Name is the normalized (lower-case) id used as the flow namespace.
	Name string
	// Display is the name as written in the pipeline file.
	Display     string
	Parent      string
	Description string
	DefaultFlow flow.Name
	WriterFlow  flow.Name
	Source      string
}

// BackendNotFoundError is returned when a backend is not registered.
type BackendNotFoundError struct {
	Name      string
	Available []string
}

func (e *BackendNotFoundError) Error() string {
	if len(e.Available) == 0 {
		return fmt.Sprintf("backend %q not found", e.Name)
	}
	return fmt.Sprintf("backend %q not found (available: %s)", e.Name, strings.Join(e.Available, ", "))
}

// DuplicateBackendError is returned when two pipeline files declare the same
// backend.
type DuplicateBackendError struct {
	Name string
}

func (e *DuplicateBackendError) Error() string {
	return fmt.Sprintf("backend %q already registered", e.Name)
}

// ParentCycleError is returned when backends name each other as parents.
type ParentCycleError struct {
	Path []string
}

func (e *ParentCycleError) Error() string {
	return "backend parent cycle: " + strings.Join(e.Path, " -> ")
}

// Registry holds the known backends, keyed case-insensitively.
type Registry struct {
	mu       sync.RWMutex
	backends map[string]Backend
}

// NewRegistry creates an empty backend registry.
func NewRegistry() *Registry {
	return &Registry{backends: make(map[string]Backend)}
}

// Register adds b. The name is normalized; Display keeps the original
// spelling when it is not already set.
func (r *Registry) Register(b Backend) error {
	name := flow.NormalizeBackend(b.Name)
	if name == "" || strings.Contains(name, ":") {
		return fmt.Errorf("%w: %q", ErrInvalidBackend, b.Name)
	}
	if b.Display == "" {
		b.Display = strings.TrimSpace(b.Name)
	}
	b.Name = name
	b.Parent = flow.NormalizeBackend(b.Parent)

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.backends[name]; ok {
		return &DuplicateBackendError{Name: name}
	}
	r.backends[name] = b
	return nil
}

// Get returns the backend registered under name, compared case-insensitively.
func (r *Registry) Get(name string) (Backend, error) {
	key := flow.NormalizeBackend(name)
	r.mu.RLock()
	b, ok := r.backends[key]
	r.mu.RUnlock()
	if !ok {
		return Backend{}, &BackendNotFoundError{Name: name, Available: r.Available()}
	}
	return b, nil
}

// Has reports whether name is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.backends[flow.NormalizeBackend(name)]
	return ok
}

// Available returns the registered backend ids, sorted.
func (r *Registry) Available() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.backends))
	for name := range r.backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// All returns every backend, sorted by name.
func (r *Registry) All() []Backend {
	names := r.Available()
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Backend, len(names))
	for i, name := range names {
		out[i] = r.backends[name]
	}
	return out
}

// Lineage returns name followed by its ancestors, nearest first.
func (r *Registry) Lineage(name string) ([]string, error) {
	var chain []string
	seen := make(map[string]bool)
	for cur := flow.NormalizeBackend(name); cur != ""; {
		if seen[cur] {
			return nil, &ParentCycleError{Path: append(chain, cur)}
		}
		seen[cur] = true
		b, err := r.Get(cur)
		if err != nil {
			return nil, err
		}
		chain = append(chain, b.Name)
		cur = b.Parent
	}
	return chain, nil
}

// parentOrder sorts backends so every parent precedes its children. Ties keep
// name order. A parent missing from the set is an error.
func parentOrder(backends []Backend) ([]Backend, error) {
	byName := make(map[string]Backend, len(backends))
	names := make([]string, 0, len(backends))
	for _, b := range backends {
		byName[b.Name] = b
		names = append(names, b.Name)
	}
	sort.Strings(names)

	const (
		unvisited = iota
		visiting
		done
	)
	state := make(map[string]int, len(backends))
	out := make([]Backend, 0, len(backends))
	var stack []string

	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case done:
			return nil
		case visiting:
			start := 0
			for i, n := range stack {
				if n == name {
					start = i
					break
				}
			}
			path := append(append([]string(nil), stack[start:]...), name)
			return &ParentCycleError{Path: path}
		}
		b := byName[name]
		state[name] = visiting
		stack = append(stack, name)
		if b.Parent != "" {
			if _, ok := byName[b.Parent]; !ok {
				return &BackendNotFoundError{Name: b.Parent, Available: names}
			}
			if err := visit(b.Parent); err != nil {
				return err
			}
		}
		stack = stack[:len(stack)-1]
		state[name] = done
		out = append(out, b)
		return nil
	}

	for _, name := range names {
		if err := visit(name); err != nil {
			return nil, err
		}
	}
	return out, nil
}

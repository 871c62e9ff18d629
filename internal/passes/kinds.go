// Package passes holds the built-in pass kinds that pipeline files
// instantiate by name: noop, fail, annotate, require_attr, prune and stamp.
package passes

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"sync"

	"github.com/zjrosen/passflow/internal/domain/pass"
)

// ErrUnknownKind is returned by Build for kinds nobody registered.
var ErrUnknownKind = errors.New("unknown pass kind")

// Factory builds a pass named name from its pipeline-file parameters.
type Factory func(name string, params Params) (pass.Pass, error)

// Kinds maps kind identifiers to factories.
type Kinds struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewKinds returns an empty kind registry.
func NewKinds() *Kinds {
	return &Kinds{factories: make(map[string]Factory)}
}

// Builtin returns a registry preloaded with every built-in kind.
func Builtin() *Kinds {
	k := NewKinds()
	for kind, f := range map[string]Factory{
		KindNoop:        newNoop,
		KindFail:        newFail,
		KindAnnotate:    newAnnotate,
		KindRequireAttr: newRequireAttr,
		KindPrune:       newPrune,
		KindStamp:       newStamp,
	} {
		if err := k.Register(kind, f); err != nil {
			panic(err)
		}
	}
	return k
}

// Register adds a factory for kind. Kinds cannot be replaced.
func (k *Kinds) Register(kind string, f Factory) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if _, ok := k.factories[kind]; ok {
		return fmt.Errorf("pass kind %q already registered", kind)
	}
	k.factories[kind] = f
	return nil
}

// Build instantiates a pass of the given kind.
func (k *Kinds) Build(name, kind string, params Params) (pass.Pass, error) {
	k.mu.RLock()
	f, ok := k.factories[kind]
	k.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w %q (pass %s)", ErrUnknownKind, kind, name)
	}
	p, err := f(name, params)
	if err != nil {
		return nil, fmt.Errorf("build pass %s (%s): %w", name, kind, err)
	}
	return p, nil
}

// Kinds returns registered kind identifiers, sorted.
func (k *Kinds) Kinds() []string {
	k.mu.RLock()
	defer k.mu.RUnlock()
	out := make([]string, 0, len(k.factories))
	for kind := range k.factories {
		out = append(out, kind)
	}
	sort.Strings(out)
	return out
}

// Params are the `with:` values of a pass entry.
type Params map[string]any

// String returns a required string parameter.
func (p Params) String(key string) (string, error) {
	v, ok := p[key]
	if !ok {
		return "", fmt.Errorf("missing parameter %q", key)
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("parameter %q must be a non-empty string, got %T", key, v)
	}
	return s, nil
}

// StringOr returns an optional string parameter or def when unset.
func (p Params) StringOr(key, def string) (string, error) {
	if _, ok := p[key]; !ok {
		return def, nil
	}
	return p.String(key)
}

// Value returns a required parameter of any type.
func (p Params) Value(key string) (any, error) {
	v, ok := p[key]
	if !ok {
		return nil, fmt.Errorf("missing parameter %q", key)
	}
	return v, nil
}

// oneOf validates s against allowed.
func oneOf(key, s string, allowed ...string) error {
	if !slices.Contains(allowed, s) {
		return fmt.Errorf("parameter %q must be one of %v, got %q", key, allowed, s)
	}
	return nil
}

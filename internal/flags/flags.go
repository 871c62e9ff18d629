// Package flags holds opt-in behavior switches read from the flags section
// of the config file. Unknown flags are off.
package flags

import (
	"maps"

	"github.com/zjrosen/passflow/internal/log"
)

const (
	// FlagStrictPipelines rejects a pipeline reload when any flow resolves
	// to a pass the catalog does not register.
	FlagStrictPipelines = "strict-pipelines"
)

// Registry holds flag state. It is read-only after New.
type Registry struct {
	flags map[string]bool
}

// New creates a Registry from the config map. A nil map disables every flag.
func New(flags map[string]bool) *Registry {
	r := &Registry{flags: maps.Clone(flags)}
	if r.flags == nil {
		r.flags = make(map[string]bool)
	}
	log.Debug(log.CatConfig, "flags initialized", "count", len(r.flags), "flags", r.All())
	return r
}

// Enabled reports whether name is set. It is false for unknown flags and on
// a nil registry.
func (r *Registry) Enabled(name string) bool {
	if r == nil {
		return false
	}
	value, ok := r.flags[name]
	if !ok {
		log.Debug(log.CatConfig, "unknown flag", "flag", name)
	}
	return value
}

// All returns a copy of every flag.
func (r *Registry) All() map[string]bool {
	if r == nil {
		return make(map[string]bool)
	}
	return maps.Clone(r.flags)
}

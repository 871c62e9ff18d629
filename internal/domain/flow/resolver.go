package flow

import (
	"context"
	"sync"
)

// noExpiration keeps memoized plans until the cache is flushed. It matches
// go-cache's NoExpiration sentinel.
const noExpiration = -1

// visit colors for cycle detection.
const (
	unvisited = iota
	onStack
	done
)

// Resolver flattens flows into execution plans.
type Resolver struct {
	source Source
	cache  PlanCache

	mu         sync.Mutex
	generation uint64
}

// NewResolver creates a resolver reading from source and memoizing into cache.
func NewResolver(source Source, cache PlanCache) *Resolver {
	return &Resolver{
		source:     source,
		cache:      cache,
		generation: source.Generation(),
	}
}

// Resolve returns the ordered, deduplicated pass list for name. Prerequisite
// flows are walked depth-first in declared order and their passes precede the
// flow's own; a pass already placed is not emitted again.
func (r *Resolver) Resolve(ctx context.Context, name Name) (Plan, error) {
	r.syncGeneration(ctx)

	if plan, ok := r.cache.Get(ctx, name.String()); ok {
		return plan.Clone(), nil
	}

	w := &walk{
		ctx:      ctx,
		resolver: r,
		color:    make(map[Name]int),
		resolved: make(map[Name][]string),
	}
	passes, err := w.visit(name, Name{})
	if err != nil {
		return Plan{}, err
	}
	return Plan{Flow: name, Passes: cloneStrings(passes)}, nil
}

// Contribution records which passes a flow newly placed into a plan.
type Contribution struct {
	Flow   Name
	Passes []string
}

// Explain resolves name and attributes every pass of the plan to the flow that
// first emitted it, in plan order. Flows that placed nothing new are omitted.
func (r *Resolver) Explain(ctx context.Context, name Name) ([]Contribution, error) {
	if _, err := r.Resolve(ctx, name); err != nil {
		return nil, err
	}

	var out []Contribution
	visited := make(map[Name]bool)
	placed := make(map[string]bool)
	var visit func(Name) error
	visit = func(n Name) error {
		if visited[n] {
			return nil
		}
		visited[n] = true
		def, err := r.source.Get(n)
		if err != nil {
			return err
		}
		for _, req := range def.requires {
			if err := visit(req); err != nil {
				return err
			}
		}
		var fresh []string
		for _, p := range def.passes {
			if !placed[p] {
				placed[p] = true
				fresh = append(fresh, p)
			}
		}
		if len(fresh) > 0 {
			out = append(out, Contribution{Flow: n, Passes: fresh})
		}
		return nil
	}
	if err := visit(name); err != nil {
		return nil, err
	}
	return out, nil
}

// Invalidate drops every memoized plan.
func (r *Resolver) Invalidate(ctx context.Context) error {
	return r.cache.Flush(ctx)
}

// syncGeneration flushes the memo if the source was reset since the last call.
func (r *Resolver) syncGeneration(ctx context.Context) {
	gen := r.source.Generation()
	r.mu.Lock()
	defer r.mu.Unlock()
	if gen == r.generation {
		return
	}
	_ = r.cache.Flush(ctx)
	r.generation = gen
}

// walk is the state of one Resolve call.
type walk struct {
	ctx      context.Context
	resolver *Resolver
	color    map[Name]int
	stack    []Name
	resolved map[Name][]string
}

func (w *walk) visit(name Name, referrer Name) ([]string, error) {
	if passes, ok := w.resolved[name]; ok {
		return passes, nil
	}
	if plan, ok := w.resolver.cache.Get(w.ctx, name.String()); ok {
		w.resolved[name] = plan.Passes
		return plan.Passes, nil
	}
	if w.color[name] == onStack {
		return nil, &CyclicFlowDependencyError{Path: w.cycleTo(name)}
	}

	def, err := w.resolver.source.Get(name)
	if err != nil {
		if !referrer.IsZero() {
			return nil, &FlowNotFoundError{Name: name, ReferencedBy: referrer}
		}
		return nil, err
	}

	w.color[name] = onStack
	w.stack = append(w.stack, name)

	var passes []string
	seen := make(map[string]bool)
	add := func(p string) {
		if !seen[p] {
			seen[p] = true
			passes = append(passes, p)
		}
	}
	for _, req := range def.requires {
		sub, err := w.visit(req, name)
		if err != nil {
			return nil, err
		}
		for _, p := range sub {
			add(p)
		}
	}
	for _, p := range def.passes {
		add(p)
	}

	w.stack = w.stack[:len(w.stack)-1]
	w.color[name] = done
	w.resolved[name] = passes
	w.resolver.cache.Set(w.ctx, name.String(), Plan{Flow: name, Passes: cloneStrings(passes)}, noExpiration)
	return passes, nil
}

// cycleTo returns the stack suffix starting at name, closed with name again.
func (w *walk) cycleTo(name Name) []Name {
	start := 0
	for i, n := range w.stack {
		if n == name {
			start = i
			break
		}
	}
	path := make([]Name, 0, len(w.stack)-start+1)
	path = append(path, w.stack[start:]...)
	return append(path, name)
}

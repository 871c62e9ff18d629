package backend

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zjrosen/passflow/internal/domain/flow"
	"github.com/zjrosen/passflow/internal/domain/pass"
	"github.com/zjrosen/passflow/internal/log"
	"github.com/zjrosen/passflow/internal/passes"
	"github.com/zjrosen/passflow/internal/tracing"
)

const tracerName = "github.com/zjrosen/passflow/internal/backend"

// Environment is the result of bring-up: the backends, the frozen flow
// registry and the pass catalog the flows run against.
type Environment struct {
	Backends *Registry
	Flows    *flow.Registry
	Catalog  *pass.Catalog
	Files    []*File
}

// BringUpOption configures BringUp.
type BringUpOption func(*bringUp)

type bringUp struct {
	kinds  *passes.Kinds
	tracer trace.Tracer
}

// WithKinds replaces the built-in pass kinds.
func WithKinds(k *passes.Kinds) BringUpOption {
	return func(b *bringUp) { b.kinds = k }
}

// WithBringUpTracer overrides the tracer taken from the global provider.
func WithBringUpTracer(t trace.Tracer) BringUpOption {
	return func(b *bringUp) { b.tracer = t }
}

// BringUp registers files into a fresh environment. Global files go first in
// the order given, then backend files with parents before children. Flows
// register in file order, so a flow may only require flows declared above it
// or in a file that registered earlier. The flow registry is frozen on
// success.
func BringUp(ctx context.Context, files []*File, opts ...BringUpOption) (env *Environment, err error) {
	cfg := bringUp{kinds: passes.Builtin(), tracer: otel.Tracer(tracerName)}
	for _, opt := range opts {
		opt(&cfg)
	}

	_, span := cfg.tracer.Start(ctx, tracing.SpanBringUp, trace.WithAttributes(
		attribute.Int("files", len(files)),
	))
	defer func() { tracing.Finish(span, err) }()

	env = &Environment{
		Backends: NewRegistry(),
		Flows:    flow.NewRegistry(),
		Catalog:  pass.NewCatalog(),
	}

	var globals []*File
	byBackend := make(map[string]*File)
	for _, f := range files {
		if f.IsGlobal() {
			globals = append(globals, f)
			continue
		}
		b, err := describe(f)
		if err != nil {
			return nil, err
		}
		if err := env.Backends.Register(b); err != nil {
			return nil, &FileError{Source: f.Source, Field: "backend", Err: err}
		}
		byBackend[flow.NormalizeBackend(f.Backend)] = f
	}

	ordered, err := parentOrder(env.Backends.All())
	if err != nil {
		return nil, err
	}
	env.Files = append(env.Files, globals...)
	for _, b := range ordered {
		env.Files = append(env.Files, byBackend[b.Name])
	}

	composer := flow.NewComposer(env.Flows)
	for _, f := range env.Files {
		if err := registerPasses(env.Catalog, cfg.kinds, f); err != nil {
			return nil, err
		}
		if err := registerFlows(env, composer, f); err != nil {
			return nil, err
		}
	}

	for _, b := range ordered {
		f := byBackend[b.Name]
		for _, ref := range []struct {
			field string
			name  flow.Name
		}{
			{"default_flow", b.DefaultFlow},
			{"writer_flow", b.WriterFlow},
		} {
			if !ref.name.IsZero() && !env.Flows.Has(ref.name) {
				return nil, &FileError{Source: f.Source, Field: ref.field, Err: &flow.FlowNotFoundError{Name: ref.name}}
			}
		}
		span.AddEvent(tracing.EventBackendReady, trace.WithAttributes(
			attribute.String(tracing.AttrBackend, b.Name),
		))
		log.Info(log.CatBackend, "backend ready", "backend", b.Display, "parent", b.Parent, "default", b.DefaultFlow)
	}

	env.Flows.Freeze()
	span.SetAttributes(
		attribute.Int("flows", env.Flows.Len()),
		attribute.Int("passes", env.Catalog.Len()),
	)
	return env, nil
}

func describe(f *File) (Backend, error) {
	ns := flow.NormalizeBackend(f.Backend)
	b := Backend{
		Name:        f.Backend,
		Display:     strings.TrimSpace(f.Backend),
		Parent:      f.Parent,
		Description: f.Description,
		Source:      f.Source,
	}
	var err error
	if f.DefaultFlow != "" {
		if b.DefaultFlow, err = qualifyFlow(ns, f.DefaultFlow); err != nil {
			return Backend{}, &FileError{Source: f.Source, Field: "default_flow", Err: err}
		}
	}
	if f.WriterFlow != "" {
		if b.WriterFlow, err = qualifyFlow(ns, f.WriterFlow); err != nil {
			return Backend{}, &FileError{Source: f.Source, Field: "writer_flow", Err: err}
		}
	}
	return b, nil
}

func registerPasses(catalog *pass.Catalog, kinds *passes.Kinds, f *File) error {
	for i, spec := range f.Passes {
		p, err := kinds.Build(spec.Name, spec.Kind, passes.Params(spec.With))
		if err != nil {
			return &FileError{Source: f.Source, Field: fmt.Sprintf("passes[%d]", i), Err: err}
		}
		if err := catalog.Register(p); err != nil {
			return &FileError{Source: f.Source, Field: fmt.Sprintf("passes[%d]", i), Err: err}
		}
	}
	return nil
}

func registerFlows(env *Environment, composer *flow.Composer, f *File) error {
	ns := flow.NormalizeBackend(f.Backend)
	for i, spec := range f.Flows {
		def, err := registerFlow(env, composer, ns, spec)
		if err != nil {
			return &FileError{Source: f.Source, Field: fmt.Sprintf("flows[%d]", i), Err: err}
		}
		log.Debug(log.CatFlow, "registered flow", "flow", def.Name(),
			"passes", len(def.Passes()), "requires", flow.JoinNames(def.Requires()))
	}
	return nil
}

func registerFlow(env *Environment, composer *flow.Composer, ns string, spec FlowSpec) (*flow.Definition, error) {
	passList := spec.Passes
	if spec.PassesFrom != "" {
		passList = env.Catalog.WithPrefix(spec.PassesFrom)
		if len(passList) == 0 {
			return nil, fmt.Errorf("passes_from %q matches no registered pass", spec.PassesFrom)
		}
	}

	if spec.DeriveFrom == "" {
		requires, err := flow.ParseNames(spec.Requires...)
		if err != nil {
			return nil, err
		}
		return env.Flows.Register(spec.Name, passList, requires, ns)
	}

	base, err := flow.ParseName(spec.DeriveFrom)
	if err != nil {
		return nil, err
	}
	target, err := qualifyFlow(ns, spec.Name)
	if err != nil {
		return nil, err
	}
	insertions := make([]flow.Insertion, 0, len(spec.Insert))
	for _, ins := range spec.Insert {
		prereq, err := flow.ParseName(ins.Flow)
		if err != nil {
			return nil, err
		}
		if ins.Before != "" {
			anchor, err := flow.ParseName(ins.Before)
			if err != nil {
				return nil, err
			}
			insertions = append(insertions, flow.InsertBefore(anchor, prereq))
			continue
		}
		anchor, err := flow.ParseName(ins.After)
		if err != nil {
			return nil, err
		}
		insertions = append(insertions, flow.InsertAfter(anchor, prereq))
	}

	var opts []flow.DeriveOption
	switch {
	case spec.Aggregate:
		opts = append(opts, flow.WithoutPasses())
	case len(passList) > 0:
		opts = append(opts, flow.WithPasses(passList...))
	}
	return composer.Derive(base, target, insertions, opts...)
}

// qualifyFlow resolves a flow name written inside a pipeline file: bare names
// belong to the file's backend, qualified names are taken as written.
func qualifyFlow(ns, s string) (flow.Name, error) {
	if ns == "" || strings.Contains(s, ":") {
		return flow.ParseName(s)
	}
	name := flow.NewName(ns, s)
	if err := name.Validate(); err != nil {
		return flow.Name{}, err
	}
	return name, nil
}

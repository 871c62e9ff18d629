// Package app wires configuration, pipeline files, run history and tracing
// into a backend.Service for the command line.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/zjrosen/passflow/internal/backend"
	"github.com/zjrosen/passflow/internal/config"
	"github.com/zjrosen/passflow/internal/flags"
	"github.com/zjrosen/passflow/internal/infrastructure/sqlite"
	"github.com/zjrosen/passflow/internal/log"
	"github.com/zjrosen/passflow/internal/pipeline"
	"github.com/zjrosen/passflow/internal/pipelines"
	"github.com/zjrosen/passflow/internal/pubsub"
	"github.com/zjrosen/passflow/internal/tracing"
)

// App owns the long-lived resources behind one command invocation.
type App struct {
	cfg        config.Config
	configPath string
	flags      *flags.Registry

	mu      sync.RWMutex
	service *backend.Service

	events  *pubsub.Broker[pipeline.Step]
	db      *sqlite.DB
	tracing *tracing.Provider
}

// New validates cfg, starts tracing, opens run history and brings up the
// pipeline files. configPath is where settings changes are written.
func New(ctx context.Context, cfg config.Config, configPath string) (*App, error) {
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	provider, err := tracing.NewProvider(cfg.Tracing)
	if err != nil {
		return nil, fmt.Errorf("starting tracing: %w", err)
	}

	a := &App{
		cfg:        cfg,
		configPath: configPath,
		flags:      flags.New(cfg.Flags),
		events:     pubsub.NewBroker[pipeline.Step](),
		tracing:    provider,
	}

	if cfg.History.Enabled {
		db, err := sqlite.NewDB(cfg.History.Path)
		if err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("opening run history: %w", err)
		}
		a.db = db
	}

	if err := a.Reload(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

// LoadFiles reads the configured pipelines directory, or the embedded
// pipelines when none is configured.
func (a *App) LoadFiles() ([]*backend.File, error) {
	if a.cfg.PipelinesDir != "" {
		return backend.LoadDir(a.cfg.PipelinesDir)
	}
	return backend.LoadFS(pipelines.FS())
}

// Reload re-reads the pipeline files and swaps in a fresh service. On error
// the previous service stays in place. With the strict-pipelines flag a flow
// that resolves to an unregistered pass is an error.
func (a *App) Reload(ctx context.Context) error {
	files, err := a.LoadFiles()
	if err != nil {
		return fmt.Errorf("loading pipelines: %w", err)
	}
	env, err := backend.BringUp(ctx, files, backend.WithBringUpTracer(a.tracing.Tracer()))
	if err != nil {
		return fmt.Errorf("bringing up backends: %w", err)
	}

	opts := []backend.ServiceOption{
		backend.WithExecutor(pipeline.NewExecutor(
			pipeline.WithEvents(a.events),
			pipeline.WithTracer(a.tracing.Tracer()),
		)),
		backend.WithTracer(a.tracing.Tracer()),
	}
	if a.cfg.DefaultBackend != "" {
		if env.Backends.Has(a.cfg.DefaultBackend) {
			opts = append(opts, backend.WithDefaultBackend(a.cfg.DefaultBackend))
		} else {
			log.Warn(log.CatConfig, "default backend not registered", "backend", a.cfg.DefaultBackend,
				"available", env.Backends.Available())
		}
	}
	if a.db != nil {
		opts = append(opts, backend.WithHistory(a.db.Reports(), a.cfg.History.Keep))
	}

	svc := backend.NewService(env, opts...)
	if a.flags.Enabled(flags.FlagStrictPipelines) {
		missing, err := svc.Check(ctx)
		if err != nil {
			return fmt.Errorf("checking pipelines: %w", err)
		}
		if len(missing) > 0 {
			return &UnregisteredPassError{Missing: missing}
		}
	}
	a.mu.Lock()
	a.service = svc
	a.mu.Unlock()

	log.Info(log.CatBackend, "pipelines loaded", "files", len(files),
		"backends", len(env.Backends.Available()), "flows", env.Flows.Len())
	return nil
}

// UnregisteredPassError rejects pipelines whose flows name passes the
// catalog does not register.
type UnregisteredPassError struct {
	Missing []backend.MissingPass
}

func (e *UnregisteredPassError) Error() string {
	first := e.Missing[0]
	if len(e.Missing) == 1 {
		return fmt.Sprintf("flow %s uses unregistered pass %q", first.Flow, first.Pass)
	}
	return fmt.Sprintf("flow %s uses unregistered pass %q (and %d more)", first.Flow, first.Pass, len(e.Missing)-1)
}

// Service returns the current service.
func (a *App) Service() *backend.Service {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.service
}

// Events publishes a step event for every pass the service executes.
func (a *App) Events() *pubsub.Broker[pipeline.Step] {
	return a.events
}

// Config returns the configuration the app was built from.
func (a *App) Config() config.Config {
	return a.cfg
}

// ConfigPath returns the config file settings are saved to.
func (a *App) ConfigPath() string {
	return a.configPath
}

// Close flushes traces and closes the history database.
func (a *App) Close() error {
	var errs []error
	a.events.Close()
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if a.tracing != nil {
		errs = append(errs, a.tracing.Shutdown(context.Background()))
	}
	return errors.Join(errs...)
}

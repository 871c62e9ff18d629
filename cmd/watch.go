package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/zjrosen/passflow/internal/app"
	"github.com/zjrosen/passflow/internal/log"
	"github.com/zjrosen/passflow/internal/presentation"
	"github.com/zjrosen/passflow/internal/pubsub"
	"github.com/zjrosen/passflow/internal/watcher"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Reload and check pipeline files whenever they change",
	Long: `Watch the pipelines directory and bring the backends up again after
every change, then report plan entries with no registered pass. Errors in a
pipeline file are printed and the last good pipelines stay loaded.

Requires pipelines_dir or --pipelines. With --verbose, log lines are
streamed to stderr.

Examples:
  passflow watch --pipelines ./pipelines
  passflow watch -p . --verbose`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

var watchVerbose bool

func init() {
	watchCmd.Flags().BoolVarP(&watchVerbose, "verbose", "v", false, "stream log output to stderr")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, _ []string) error {
	if cfg.PipelinesDir == "" {
		return errors.New("watch needs a pipelines directory (set pipelines_dir or pass --pipelines)")
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if watchVerbose {
		if logCleanup == nil {
			logCleanup = log.InitWriter(io.Discard)
		}
		go streamLogs(log.Subscribe(ctx), cmd.ErrOrStderr())
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()

	wcfg := watcher.DefaultConfig(cfg.PipelinesDir)
	if cfg.Watch.Debounce > 0 {
		wcfg.DebounceDur = cfg.Watch.Debounce
	}
	w, err := watcher.New(wcfg)
	if err != nil {
		return err
	}
	changes, err := w.Start()
	if err != nil {
		_ = w.Stop()
		return err
	}
	defer func() { _ = w.Stop() }()

	out := cmd.OutOrStdout()
	_, _ = fmt.Fprintf(out, "watching %s\n", cfg.PipelinesDir)
	checkPipelines(ctx, out, a)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-changes:
			log.Info(log.CatWatcher, "pipelines changed, reloading", "dir", cfg.PipelinesDir)
			if err := a.Reload(ctx); err != nil {
				_, _ = fmt.Fprintf(out, "reload failed: %v\n", err)
				continue
			}
			checkPipelines(ctx, out, a)
		}
	}
}

func streamLogs(entries <-chan pubsub.Event[string], w io.Writer) {
	for e := range entries {
		_, _ = io.WriteString(w, e.Payload)
	}
}

func checkPipelines(ctx context.Context, out io.Writer, a *app.App) {
	svc := a.Service()
	env := svc.Environment()
	_, _ = fmt.Fprintf(out, "loaded %d backends, %d flows, %d passes\n",
		len(env.Backends.Available()), env.Flows.Len(), env.Catalog.Len())

	missing, err := svc.Check(ctx)
	if err != nil {
		_, _ = fmt.Fprintf(out, "check failed: %v\n", err)
		return
	}
	_ = textOutput(out).Missing(presentation.FromMissingPasses(missing))
}

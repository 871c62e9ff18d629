package cmd

import (
	"context"
	"fmt"
	"io"
	"sync"

	"github.com/spf13/cobra"

	"github.com/zjrosen/passflow/internal/domain/graph"
	"github.com/zjrosen/passflow/internal/infrastructure/modelfile"
	"github.com/zjrosen/passflow/internal/pipeline"
	"github.com/zjrosen/passflow/internal/presentation"
	"github.com/zjrosen/passflow/internal/pubsub"
)

var (
	compileOut      string
	compileProgress bool
)

var compileCmd = &cobra.Command{
	Use:   "compile <flow> <model.yaml>",
	Short: "Run a flow's passes against a model",
	Long: `Resolve a flow and execute its passes, in order, against a model graph
read from a YAML model file ("-" reads stdin). Execution stops at the first
failing pass; the remaining passes are reported as skipped.

The run is recorded in the history database unless history is disabled.

Examples:
  passflow compile vivado:ip model.yaml
  passflow compile vitis model.yaml -o out.yaml
  passflow compile vivado:write model.yaml --progress
  cat model.yaml | passflow compile optimize - --json`,
	Args: cobra.ExactArgs(2),
	RunE: runCompile,
}

func init() {
	compileCmd.Flags().StringVarP(&compileOut, "out", "o", "", "write the transformed model to this file")
	compileCmd.Flags().BoolVar(&compileProgress, "progress", false, "print each pass as it runs (stderr)")
	rootCmd.AddCommand(compileCmd)
}

func runCompile(cmd *cobra.Command, args []string) error {
	model, err := loadModel(cmd.InOrStdin(), args[1])
	if err != nil {
		return err
	}

	a, err := openApp(cmd)
	if err != nil {
		return err
	}
	defer func() { _ = a.Close() }()
	svc := a.Service()

	name, err := svc.ResolveName(args[0])
	if err != nil {
		return err
	}

	var wg sync.WaitGroup
	ctx, stop := context.WithCancel(cmd.Context())
	if compileProgress {
		events := a.Events().Subscribe(ctx)
		wg.Add(1)
		go func() {
			defer wg.Done()
			printProgress(cmd.ErrOrStderr(), events)
		}()
	}

	report, runErr := svc.Compile(ctx, name, model)
	stop()
	wg.Wait()

	if report == nil {
		return runErr
	}
	dto := presentation.FromReport(report)
	if jsonFlag {
		err = jsonOutput(cmd.OutOrStdout()).FormatReport(dto)
	} else {
		err = textOutput(cmd.OutOrStdout()).Report(dto)
	}
	if err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}

	if compileOut != "" {
		if err := modelfile.WriteFile(compileOut, model); err != nil {
			return fmt.Errorf("writing model: %w", err)
		}
	}
	return nil
}

func loadModel(stdin io.Reader, path string) (*graph.Graph, error) {
	if path == "-" {
		return modelfile.Load(stdin)
	}
	return modelfile.LoadFile(path)
}

func printProgress(w io.Writer, events <-chan pubsub.Event[pipeline.Step]) {
	for ev := range events {
		step := ev.Payload
		switch ev.Type {
		case pipeline.EventPassStarted:
			_, _ = fmt.Fprintf(w, "%4d  %s\n", step.Index+1, step.Pass)
		case pipeline.EventPassFailed:
			_, _ = fmt.Fprintf(w, "%4d  %s failed: %v\n", step.Index+1, step.Pass, step.Err)
		}
	}
}

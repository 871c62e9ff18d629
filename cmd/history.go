package cmd

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/zjrosen/passflow/internal/domain/flow"
	"github.com/zjrosen/passflow/internal/pipeline"
	"github.com/zjrosen/passflow/internal/presentation"
)

var (
	historyFlow    string
	historyBackend string
	historyState   string
	historyLimit   int
	historyKeep    int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect recorded compile runs",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded runs, newest first",
	Long: `List recorded runs, newest first.

Examples:
  passflow history list
  passflow history list --backend vitis --state failed
  passflow history list --flow vivado:ip --limit 5`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		filter, err := historyFilter()
		if err != nil {
			return err
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		reports, err := a.Service().History(cmd.Context(), filter)
		if err != nil {
			return err
		}
		dtos := presentation.FromReports(reports)
		if jsonFlag {
			return jsonOutput(cmd.OutOrStdout()).FormatReports(dtos)
		}
		return textOutput(cmd.OutOrStdout()).Reports(dtos)
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <run-id>",
	Short: "Show one recorded run",
	Long: `Show one recorded run. A unique prefix of the run id is enough.

Examples:
  passflow history show 3f2a9c1e`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()
		svc := a.Service()

		report, err := svc.Run(cmd.Context(), args[0])
		var notFound *pipeline.ReportNotFoundError
		if errors.As(err, &notFound) {
			all, listErr := svc.History(cmd.Context(), pipeline.ListFilter{})
			if listErr != nil {
				return listErr
			}
			report, err = matchRunPrefix(all, args[0])
		}
		if err != nil {
			return err
		}

		dto := presentation.FromReport(report)
		if jsonFlag {
			return jsonOutput(cmd.OutOrStdout()).FormatReport(dto)
		}
		return textOutput(cmd.OutOrStdout()).Report(dto)
	},
}

var historyPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete all but the newest runs",
	Long: `Delete all but the newest --keep runs.

Examples:
  passflow history prune --keep 100
  passflow history prune --keep 0   # delete everything`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		n, err := a.Service().PruneHistory(cmd.Context(), historyKeep)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "removed %d runs\n", n)
		return err
	},
}

func init() {
	historyListCmd.Flags().StringVarP(&historyFlow, "flow", "f", "", "only runs of this flow (<backend>:<flow> or a global flow)")
	historyListCmd.Flags().StringVar(&historyBackend, "backend", "", "only runs of this backend's flows")
	historyListCmd.Flags().StringVarP(&historyState, "state", "s", "", "only runs in this state (completed, failed)")
	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum runs to list (0 for all)")

	historyPruneCmd.Flags().IntVar(&historyKeep, "keep", 0, "number of newest runs to keep")
	_ = historyPruneCmd.MarkFlagRequired("keep")

	historyCmd.AddCommand(historyListCmd, historyShowCmd, historyPruneCmd)
	rootCmd.AddCommand(historyCmd)
}

func historyFilter() (pipeline.ListFilter, error) {
	filter := pipeline.ListFilter{Limit: historyLimit}
	if historyFlow != "" && historyBackend != "" {
		return filter, errors.New("--flow and --backend are exclusive")
	}
	if historyFlow != "" {
		name, err := flow.ParseName(historyFlow)
		if err != nil {
			return filter, err
		}
		filter.Flow = name
	}
	if historyBackend != "" {
		filter.Flow = flow.Name{Backend: flow.NormalizeBackend(historyBackend)}
	}
	if historyState != "" {
		state, err := pipeline.ParseState(historyState)
		if err != nil {
			return filter, err
		}
		filter.State = &state
	}
	return filter, nil
}

func matchRunPrefix(reports []*pipeline.Report, prefix string) (*pipeline.Report, error) {
	var match *pipeline.Report
	for _, r := range reports {
		if !strings.HasPrefix(r.RunID, prefix) {
			continue
		}
		if match != nil {
			return nil, fmt.Errorf("run id prefix %q is ambiguous", prefix)
		}
		match = r
	}
	if match == nil {
		return nil, &pipeline.ReportNotFoundError{RunID: prefix}
	}
	return match, nil
}

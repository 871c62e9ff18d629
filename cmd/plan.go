package cmd

import (
	"github.com/spf13/cobra"

	"github.com/zjrosen/passflow/internal/domain/flow"
	"github.com/zjrosen/passflow/internal/presentation"
)

var planExplain bool

var planCmd = &cobra.Command{
	Use:   "plan <flow>",
	Short: "Print the pass order a flow resolves to",
	Long: `Resolve a flow into its ordered, duplicate-free pass list.

The flow may be "<backend>:<flow>", a backend name (its default flow), a
global flow name, or a flow of the default backend.

Examples:
  passflow plan vivado:ip
  passflow plan vitis
  passflow plan optimize --explain
  passflow plan vitisaccelerator:ip --json | jq '.passes | length'`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
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
		plan, err := svc.Plan(cmd.Context(), name)
		if err != nil {
			return err
		}
		var contributions []flow.Contribution
		if planExplain {
			if contributions, err = svc.Explain(cmd.Context(), name); err != nil {
				return err
			}
		}

		dto := presentation.FromPlan(plan, contributions)
		if jsonFlag {
			return jsonOutput(cmd.OutOrStdout()).FormatPlan(dto)
		}
		return textOutput(cmd.OutOrStdout()).Plan(dto)
	},
}

func init() {
	planCmd.Flags().BoolVarP(&planExplain, "explain", "e", false, "group passes by the flow that contributed them")
	rootCmd.AddCommand(planCmd)
}

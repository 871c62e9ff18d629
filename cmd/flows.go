package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/passflow/internal/domain/flow"
	"github.com/zjrosen/passflow/internal/presentation"
)

var (
	flowsGlobal bool
	flowsCheck  bool
)

var flowsCmd = &cobra.Command{
	Use:   "flows [backend]",
	Short: "List registered flows",
	Long: `List flows in registration order. With a backend, only that backend's
flows are listed; --global lists the backend-independent flows.

--check resolves every flow and reports plan entries with no registered
pass. It exits non-zero when any are missing.

Examples:
  passflow flows
  passflow flows vitis
  passflow flows --global
  passflow flows --check`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()
		svc := a.Service()

		if flowsCheck {
			missing, err := svc.Check(cmd.Context())
			if err != nil {
				return err
			}
			dtos := presentation.FromMissingPasses(missing)
			if jsonFlag {
				err = jsonOutput(cmd.OutOrStdout()).FormatJSON(dtos)
			} else {
				err = textOutput(cmd.OutOrStdout()).Missing(dtos)
			}
			if err != nil {
				return err
			}
			if len(missing) > 0 {
				return fmt.Errorf("%d plan entries have no registered pass", len(missing))
			}
			return nil
		}

		var defs []*flow.Definition
		switch {
		case flowsGlobal:
			defs = svc.Flows("")
		case len(args) == 1:
			b, err := svc.Backend(args[0])
			if err != nil {
				return err
			}
			defs = svc.Flows(b.Name)
		default:
			for def := range svc.Environment().Flows.All() {
				defs = append(defs, def)
			}
		}

		dtos := presentation.FromFlows(defs)
		if jsonFlag {
			return jsonOutput(cmd.OutOrStdout()).FormatFlows(dtos)
		}
		return textOutput(cmd.OutOrStdout()).Flows(dtos)
	},
}

func init() {
	flowsCmd.Flags().BoolVarP(&flowsGlobal, "global", "g", false, "list only backend-independent flows")
	flowsCmd.Flags().BoolVar(&flowsCheck, "check", false, "report plan entries with no registered pass")
	rootCmd.AddCommand(flowsCmd)
}

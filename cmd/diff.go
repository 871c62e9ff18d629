package cmd

import (
	"github.com/spf13/cobra"

	"github.com/zjrosen/passflow/internal/presentation"
)

var diffCmd = &cobra.Command{
	Use:   "diff <flow-a> <flow-b>",
	Short: "Compare two flows' requirements and plans",
	Long: `Show a line diff of two flows' direct requirements and of their
resolved plans. Useful to see what a derived backend flow adds.

Examples:
  passflow diff vivado:ip vitis:ip
  passflow diff vitis vitisaccelerator`,
	Args: cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()
		svc := a.Service()

		left, err := svc.ResolveName(args[0])
		if err != nil {
			return err
		}
		right, err := svc.ResolveName(args[1])
		if err != nil {
			return err
		}
		d, err := svc.RequirementDiff(cmd.Context(), left, right)
		if err != nil {
			return err
		}

		dto := presentation.FromRequirementDiff(d)
		if jsonFlag {
			return jsonOutput(cmd.OutOrStdout()).FormatJSON(dto)
		}
		return textOutput(cmd.OutOrStdout()).Diff(dto)
	},
}

func init() {
	rootCmd.AddCommand(diffCmd)
}

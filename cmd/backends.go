package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/zjrosen/passflow/internal/config"
	"github.com/zjrosen/passflow/internal/presentation"
)

var backendsCmd = &cobra.Command{
	Use:   "backends",
	Short: "List registered backends",
	Long: `List every backend registered by the pipeline files, parents included.
The default backend is marked with *.

Examples:
  passflow backends
  passflow backends --json | jq '.[].default_flow'
  passflow backends use vitis`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		svc := a.Service()
		backends := svc.Backends()
		dtos := make([]presentation.BackendDTO, 0, len(backends))
		for _, b := range backends {
			lineage, err := svc.Environment().Backends.Lineage(b.Name)
			if err != nil {
				return err
			}
			dtos = append(dtos, presentation.FromBackend(b, lineage, a.Config().DefaultBackend))
		}

		if jsonFlag {
			return jsonOutput(cmd.OutOrStdout()).FormatBackends(dtos)
		}
		return textOutput(cmd.OutOrStdout()).Backends(dtos)
	},
}

var backendsUseCmd = &cobra.Command{
	Use:   "use <backend>",
	Short: "Set the default backend in the config file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()

		b, err := a.Service().Backend(args[0])
		if err != nil {
			return err
		}
		if err := config.SaveDefaultBackend(a.ConfigPath(), b.Name); err != nil {
			return fmt.Errorf("saving default backend: %w", err)
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "default backend set to %s (%s)\n", b.Name, a.ConfigPath())
		return err
	},
}

func init() {
	backendsCmd.AddCommand(backendsUseCmd)
	rootCmd.AddCommand(backendsCmd)
}

package commands

import (
	"github.com/spf13/cobra"
)

func (c *CLI) newSpackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spack",
		Short: "Orchestrate spack builds across the configured targets",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "describe",
		Short: "Render the resolved build plan without executing anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			confDir, err := cmd.Flags().GetString("config")
			if err != nil {
				return err
			}
			return c.app.Describe(cmd.Context(), confDir, cmd.OutOrStdout())
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "build",
		Short: "Execute the resolved build plan",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			confDir, err := cmd.Flags().GetString("config")
			if err != nil {
				return err
			}
			return c.app.Build(cmd.Context(), confDir, cmd.OutOrStdout())
		},
	})

	return cmd
}

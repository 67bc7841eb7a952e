package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var listCmd = &cobra.Command{
	Use:   "commands",
	Short: "List the commands available to invoke and serve",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		registry, shutdown, err := newRegistry(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		defer shutdown()

		for _, name := range registry.Names() {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(listCmd)
}

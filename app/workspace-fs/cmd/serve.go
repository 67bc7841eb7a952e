package cmd

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cchalm/workspace-fs/internal/transport"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve commands over stdin/stdout",
	Long: `Reads one JSON request per line from stdin, of the form
{"id": "1", "command": "read_file", "args": {"path": "notes/todo.txt"}},
and writes one JSON response per line to stdout. Requests are handled
concurrently; match responses to requests by id. Logs go to stderr.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := setupContext()

	registry, shutdown, err := newRegistry(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer shutdown()

	logger.Info("Serving commands on stdio", zap.Strings("commands", registry.Names()))
	err = transport.Serve(ctx, os.Stdin, cmd.OutOrStdout(), registry, logger)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/cchalm/workspace-fs/internal/transport"
)

var invokeCmd = &cobra.Command{
	Use:   "invoke <command> [args-json | -]",
	Short: "Run a single command and print its JSON response",
	Long: `Runs one command, such as read_file or write_file, and prints the response as JSON.
Arguments are a JSON object, e.g. '{"path": "notes/todo.txt"}'. Pass "-" to read
the arguments from stdin. The exit status is non-zero if the command failed.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runInvoke,
}

func init() {
	rootCmd.AddCommand(invokeCmd)
}

func runInvoke(cmd *cobra.Command, args []string) error {
	ctx := setupContext()

	var rawArgs json.RawMessage
	if len(args) == 2 {
		if args[1] == "-" {
			data, err := io.ReadAll(os.Stdin)
			if err != nil {
				return fmt.Errorf("failed to read arguments from stdin: %w", err)
			}
			rawArgs = data
		} else {
			rawArgs = json.RawMessage(args[1])
		}
	}

	registry, shutdown, err := newRegistry(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer shutdown()

	return invokeAndPrint(ctx, registry, cmd.OutOrStdout(), args[0], rawArgs)
}

var errCommandFailed = errors.New("command failed")

// invokeAndPrint runs one command and writes its response as a JSON line
func invokeAndPrint(ctx context.Context, invoker transport.Invoker, w io.Writer, name string, args json.RawMessage) error {
	resp := invoker.Invoke(ctx, name, args)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		return fmt.Errorf("failed to write response: %w", err)
	}
	if !resp.OK() {
		return fmt.Errorf("%w: %s", errCommandFailed, resp.Kind)
	}
	return nil
}

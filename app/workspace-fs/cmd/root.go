package cmd

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/cchalm/workspace-fs/internal/config"
	"github.com/cchalm/workspace-fs/internal/logging"
)

var rootCmd = &cobra.Command{
	Use:   "workspace-fs",
	Short: "Workspace-scoped file operations for a local editor shell",
	Long: `workspace-fs reads, writes, lists, creates, deletes and renames files on behalf of
a local editor UI. Every path is resolved against a single workspace root, and
nothing outside that root is ever touched.`,
	PersistentPreRunE: loadRootConfig,
	SilenceUsage:      true,
}

func Execute() error {
	return rootCmd.Execute()
}

func loadRootConfig(cmd *cobra.Command, _ []string) error {
	// Load .env file
	envErr := godotenv.Load()

	loaded, err := config.Load()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("workspace") {
		loaded.WorkspaceRoot = flags.workspace
	}
	if cmd.Flags().Changed("log-level") {
		loaded.LogLevel = flags.logLevel
	}
	if err := loaded.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	cfg = loaded

	logger, err = logging.New(logging.Config{Level: cfg.LogLevel, Development: cfg.LogDevelopment})
	if err != nil {
		return err
	}
	if envErr != nil {
		logger.Debug("No .env file found, using environment variables")
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flags.workspace, "workspace", "", "Initial workspace root (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "info", "Log level: debug, info, warn, error")
}

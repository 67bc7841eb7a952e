package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/cchalm/workspace-fs/internal/commands"
	"github.com/cchalm/workspace-fs/internal/config"
	"github.com/cchalm/workspace-fs/internal/filesystem"
	"github.com/cchalm/workspace-fs/internal/recents"
	"github.com/cchalm/workspace-fs/internal/telemetry"
	"github.com/cchalm/workspace-fs/internal/workspace"
)

func setupContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	// Setup graceful shutdown
	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt)
	go func() {
		<-interrupt
		logger.Info("Interrupt signal detected, shutting down gracefully...")
		cancel()
		<-interrupt
		logger.Fatal("Forcing shutdown")
	}()

	return ctx
}

// newStore creates the workspace store from the configured root, or from the working directory if none is configured
func newStore(c config.Config) (*workspace.Store, error) {
	if c.WorkspaceRoot == "" {
		return workspace.NewStoreFromWorkingDir()
	}
	root, err := filepath.Abs(c.WorkspaceRoot)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve workspace root: %w", err)
	}
	return workspace.NewStore(root), nil
}

// newRegistry wires the workspace store, scoped filesystem, recents list and telemetry into a command registry. The
// returned function flushes telemetry and must be called before exit
func newRegistry(ctx context.Context, c config.Config, log *zap.Logger) (*commands.Registry, func(), error) {
	store, err := newStore(c)
	if err != nil {
		return nil, nil, err
	}

	recentsPath, err := c.RecentsPath()
	if err != nil {
		return nil, nil, err
	}
	recentList := recents.NewList(c.MaxRecents)
	if recentsPath != "" {
		recentList, err = recents.Open(recentsPath, c.MaxRecents)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open recent files: %w", err)
		}
	}

	tp, err := telemetry.NewProvider(ctx, telemetry.TelemetryConfig{
		Enabled:        c.TelemetryEnabled,
		OTLPEndpoint:   c.OTLPEndpoint,
		ServiceVersion: versionInfo.version,
	})
	if err != nil {
		return nil, nil, err
	}
	shutdown := func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			log.Warn("Failed to shut down telemetry", zap.Error(err))
		}
	}

	log.Info("Workspace initialized", zap.String("root", store.Root()), zap.String("recents_file", recentsPath))

	cmdCtx := &commands.CommandContext{
		FS:      filesystem.NewScopedFS(store),
		Recents: recentList,
	}
	return commands.NewRegistry(cmdCtx, log, tp), shutdown, nil
}

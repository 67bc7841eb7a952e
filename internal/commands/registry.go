// Package commands exposes the workspace file operations by name, the way a UI shell invokes them, and translates
// their structured errors into display strings at this boundary.
package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"github.com/cchalm/workspace-fs/internal/filesystem"
	"github.com/cchalm/workspace-fs/internal/recents"
	"github.com/cchalm/workspace-fs/internal/telemetry"
)

const (
	KindUnknownCommand = "unknown_command"
)

// Command defines the interface for all commands
type Command interface {
	// Run decodes args, performs the command and returns its result, which must be JSON-encodable. The error is an
	// ArgumentError if args could not be decoded, in which case Run has no side effects
	Run(ctx context.Context, args json.RawMessage, cmdCtx *CommandContext) (any, error)
}

// CommandContext provides what commands need during execution
type CommandContext struct {
	FS      filesystem.WorkspaceFileSystem
	Recents *recents.List
}

// ArgumentError represents arguments that are missing or malformed
type ArgumentError struct {
	cause error
}

func (ae ArgumentError) Error() string {
	return fmt.Sprintf("invalid arguments: %s", ae.cause)
}

func (ae ArgumentError) Unwrap() error {
	return ae.cause
}

func NewArgumentError(cause error) ArgumentError {
	return ArgumentError{cause: cause}
}

// Response is the outcome of one invocation: a result, or an error string with a stable kind tag
type Response struct {
	Result any    `json:"result"`
	Error  string `json:"error,omitempty"`
	Kind   string `json:"kind,omitempty"`
}

// OK reports whether the invocation succeeded
func (r Response) OK() bool {
	return r.Error == ""
}

// Registry manages all available commands
type Registry struct {
	commands  map[string]Command
	cmdCtx    *CommandContext
	logger    *zap.Logger
	telemetry *telemetry.Provider
}

// NewRegistry creates a registry with all available commands
func NewRegistry(cmdCtx *CommandContext, logger *zap.Logger, tp *telemetry.Provider) *Registry {
	registry := &Registry{
		commands:  make(map[string]Command),
		cmdCtx:    cmdCtx,
		logger:    logger,
		telemetry: tp,
	}

	registry.register("read_file", &ReadFileCommand{})
	registry.register("write_file", &WriteFileCommand{})
	registry.register("list_dir", &ListDirCommand{})
	registry.register("set_workspace", &SetWorkspaceCommand{})
	registry.register("get_workspace", &GetWorkspaceCommand{})
	registry.register("create_dir", &CreateDirCommand{})
	registry.register("delete_node", &DeleteNodeCommand{})
	registry.register("rename_node", &RenameNodeCommand{})
	registry.register("recent_files", &RecentFilesCommand{})
	registry.register("add_recent", &AddRecentCommand{})

	return registry
}

func (r *Registry) register(name string, cmd Command) {
	r.commands[name] = cmd
}

// Names returns the names of all registered commands, sorted
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.commands))
	for name := range r.commands {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Invoke runs the named command. It never returns a Go error; failures are reported in the Response
func (r *Registry) Invoke(ctx context.Context, name string, args json.RawMessage) Response {
	start := time.Now()
	ctx, inv := r.telemetry.StartInvocation(ctx, name)

	var (
		result any
		err    error
	)
	if cmd := r.commands[name]; cmd == nil {
		err = fmt.Errorf("unknown command: %s", name)
	} else {
		result, err = cmd.Run(ctx, args, r.cmdCtx)
	}

	resp := Response{Result: result}
	if err != nil {
		resp = Response{Error: err.Error(), Kind: errorKind(name, r.commands[name] != nil, err)}
	}
	inv.End(resp.Kind, err)

	fields := []zap.Field{
		zap.String("command", name),
		zap.String("invocation_id", inv.ID),
		zap.Duration("duration", time.Since(start)),
	}
	if err != nil {
		r.logger.Warn("command failed", append(fields, zap.String("kind", resp.Kind), zap.Error(err))...)
	} else {
		r.logger.Debug("command succeeded", fields...)
	}

	return resp
}

func errorKind(name string, known bool, err error) string {
	if !known {
		return KindUnknownCommand
	}
	var ae ArgumentError
	if errors.As(err, &ae) {
		return filesystem.KindInvalidArgument.String()
	}
	return filesystem.KindOf(err).String()
}

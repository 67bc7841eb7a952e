package commands

import (
	"context"
	"encoding/json"
	"fmt"
)

// parseArgs unmarshals command arguments. Absent arguments decode as an empty object
func parseArgs(args json.RawMessage, target any) error {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	if err := json.Unmarshal(args, target); err != nil {
		return NewArgumentError(err)
	}
	return nil
}

func required(name string, v *string) (string, error) {
	if v == nil {
		return "", NewArgumentError(fmt.Errorf("missing required argument '%s'", name))
	}
	return *v, nil
}

type pathArgs struct {
	Path *string `json:"path"`
}

func parsePath(args json.RawMessage) (string, error) {
	var input pathArgs
	if err := parseArgs(args, &input); err != nil {
		return "", err
	}
	return required("path", input.Path)
}

// ReadFileCommand returns the content of a text file
type ReadFileCommand struct{}

func (c *ReadFileCommand) Run(ctx context.Context, args json.RawMessage, cmdCtx *CommandContext) (any, error) {
	path, err := parsePath(args)
	if err != nil {
		return nil, err
	}
	return cmdCtx.FS.Read(ctx, path)
}

// WriteFileCommand creates or overwrites a file, creating missing parent directories
type WriteFileCommand struct{}

type WriteFileInput struct {
	Path    *string `json:"path"`
	Content *string `json:"content"`
}

func (c *WriteFileCommand) Run(ctx context.Context, args json.RawMessage, cmdCtx *CommandContext) (any, error) {
	var input WriteFileInput
	if err := parseArgs(args, &input); err != nil {
		return nil, err
	}
	path, err := required("path", input.Path)
	if err != nil {
		return nil, err
	}
	content, err := required("content", input.Content)
	if err != nil {
		return nil, err
	}
	return nil, cmdCtx.FS.Write(ctx, path, content)
}

// ListDirCommand lists a directory as rendered marker+name strings
type ListDirCommand struct{}

func (c *ListDirCommand) Run(ctx context.Context, args json.RawMessage, cmdCtx *CommandContext) (any, error) {
	path, err := parsePath(args)
	if err != nil {
		return nil, err
	}
	entries, err := cmdCtx.FS.ListDir(ctx, path)
	if err != nil {
		return nil, err
	}

	rendered := make([]string, 0, len(entries))
	for _, entry := range entries {
		rendered = append(rendered, entry.String())
	}
	return rendered, nil
}

// SetWorkspaceCommand replaces the workspace root
type SetWorkspaceCommand struct{}

func (c *SetWorkspaceCommand) Run(ctx context.Context, args json.RawMessage, cmdCtx *CommandContext) (any, error) {
	path, err := parsePath(args)
	if err != nil {
		return nil, err
	}
	return nil, cmdCtx.FS.SetWorkspace(ctx, path)
}

// GetWorkspaceCommand returns the current workspace root
type GetWorkspaceCommand struct{}

func (c *GetWorkspaceCommand) Run(_ context.Context, _ json.RawMessage, cmdCtx *CommandContext) (any, error) {
	return cmdCtx.FS.Workspace(), nil
}

// CreateDirCommand creates a directory and its missing ancestors
type CreateDirCommand struct{}

func (c *CreateDirCommand) Run(ctx context.Context, args json.RawMessage, cmdCtx *CommandContext) (any, error) {
	path, err := parsePath(args)
	if err != nil {
		return nil, err
	}
	return nil, cmdCtx.FS.CreateDir(ctx, path)
}

// DeleteNodeCommand deletes a file or a directory tree
type DeleteNodeCommand struct{}

func (c *DeleteNodeCommand) Run(ctx context.Context, args json.RawMessage, cmdCtx *CommandContext) (any, error) {
	path, err := parsePath(args)
	if err != nil {
		return nil, err
	}
	return nil, cmdCtx.FS.Delete(ctx, path)
}

// RenameNodeCommand moves a file or directory within the workspace
type RenameNodeCommand struct{}

type RenameNodeInput struct {
	Path    *string `json:"path"`
	NewPath *string `json:"newPath"`
}

func (c *RenameNodeCommand) Run(ctx context.Context, args json.RawMessage, cmdCtx *CommandContext) (any, error) {
	var input RenameNodeInput
	if err := parseArgs(args, &input); err != nil {
		return nil, err
	}
	path, err := required("path", input.Path)
	if err != nil {
		return nil, err
	}
	newPath, err := required("newPath", input.NewPath)
	if err != nil {
		return nil, err
	}
	return nil, cmdCtx.FS.Rename(ctx, path, newPath)
}

// RecentFilesCommand returns the recently opened files, most recent first
type RecentFilesCommand struct{}

func (c *RecentFilesCommand) Run(_ context.Context, _ json.RawMessage, cmdCtx *CommandContext) (any, error) {
	return cmdCtx.Recents.Items(), nil
}

// AddRecentCommand moves a path to the top of the recent files and returns the updated list
type AddRecentCommand struct{}

func (c *AddRecentCommand) Run(_ context.Context, args json.RawMessage, cmdCtx *CommandContext) (any, error) {
	path, err := parsePath(args)
	if err != nil {
		return nil, err
	}
	if path == "" {
		return nil, NewArgumentError(fmt.Errorf("path must not be empty"))
	}
	return cmdCtx.Recents.Add(path)
}

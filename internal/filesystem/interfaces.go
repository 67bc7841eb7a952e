// Package filesystem provides file operations scoped to a workspace root.
//
// Every operation resolves a caller-supplied path against the current workspace root and refuses to touch anything
// that resolves outside of it, both lexically and after symlink resolution.
package filesystem

import (
	"context"

	"github.com/cchalm/workspace-fs/internal/workspace"
)

// ReadOnlyFileSystem is a basic interface for reading files and directories
type ReadOnlyFileSystem interface {
	// Read reads the content of a text file at the given path
	Read(ctx context.Context, path string) (string, error)

	// ListDir lists the immediate children of the given directory, sorted by their rendered form
	ListDir(ctx context.Context, dir string) ([]DirEntry, error)
}

// FileSystem is a basic interface for reading and writing files
type FileSystem interface {
	ReadOnlyFileSystem

	// Write writes the content to a file at the given path, creating the file and its parents if they don't exist
	Write(ctx context.Context, path string, content string) error

	// CreateDir creates a directory and any missing ancestors. It succeeds if the directory already exists
	CreateDir(ctx context.Context, path string) error

	// Delete deletes a file, or a directory and everything below it
	Delete(ctx context.Context, path string) error

	// Rename moves a file or directory to a new path
	Rename(ctx context.Context, path string, newPath string) error
}

// WorkspaceFileSystem is a FileSystem whose root can be inspected and replaced
type WorkspaceFileSystem interface {
	FileSystem

	// Workspace returns the current workspace root
	Workspace() string

	// SetWorkspace replaces the workspace root. This is the only operation not subject to the containment check
	SetWorkspace(ctx context.Context, path string) error
}

// RootStore is where a ScopedFS snapshots its root from
type RootStore interface {
	workspace.RootProvider
	workspace.RootSetter
}

package filesystem

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
)

const (
	dirPerm  os.FileMode = 0o755
	filePerm os.FileMode = 0o644
)

// ScopedFS performs file operations relative to the root held by a RootStore.
//
// Each operation snapshots the root once and uses that snapshot to the end, even if the root is replaced while the
// operation is in flight. Operations are not serialized against each other, and multi-step operations (Write creating
// parents, Delete inspecting before removing) are not atomic as a whole. Nothing is rolled back on failure.
type ScopedFS struct {
	store RootStore
}

func NewScopedFS(store RootStore) *ScopedFS {
	return &ScopedFS{store: store}
}

// Read returns the full content of a text file
func (sfs *ScopedFS) Read(_ context.Context, path string) (string, error) {
	const op = "read"

	fullPath, err := resolve(op, sfs.store.Root(), path, true)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(fullPath)
	if err != nil {
		return "", classify(op, path, err)
	}
	if !utf8.Valid(data) {
		return "", &Error{
			Kind: KindIO,
			Op:   op,
			Path: path,
			Err:  fmt.Errorf("content is not valid UTF-8 text (detected %s)", mimetype.Detect(data)),
		}
	}
	return string(data), nil
}

// Write creates any missing parent directories, then creates or truncates the file and writes content to it
func (sfs *ScopedFS) Write(_ context.Context, path string, content string) error {
	const op = "write"

	fullPath, err := resolve(op, sfs.store.Root(), path, true)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(fullPath), dirPerm); err != nil {
		return classify(op, path, fmt.Errorf("failed to create parent directories: %w", err))
	}
	if err := os.WriteFile(fullPath, []byte(content), filePerm); err != nil {
		return classify(op, path, err)
	}
	return nil
}

// ListDir lists the immediate children of a directory. Entries are sorted by their rendered marker+name form, which
// puts directories before files
func (sfs *ScopedFS) ListDir(_ context.Context, dir string) ([]DirEntry, error) {
	const op = "list"

	fullPath, err := resolve(op, sfs.store.Root(), dir, true)
	if err != nil {
		return nil, err
	}

	dirEntries, err := os.ReadDir(fullPath)
	if err != nil {
		return nil, classify(op, dir, err)
	}

	entries := make([]DirEntry, 0, len(dirEntries))
	for _, de := range dirEntries {
		entries = append(entries, DirEntry{Name: de.Name(), IsDir: de.IsDir()})
	}
	slices.SortFunc(entries, func(a, b DirEntry) int {
		return strings.Compare(a.String(), b.String())
	})
	return entries, nil
}

// CreateDir creates a directory and all missing ancestors
func (sfs *ScopedFS) CreateDir(_ context.Context, path string) error {
	const op = "create_dir"

	fullPath, err := resolve(op, sfs.store.Root(), path, true)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(fullPath, dirPerm); err != nil {
		return classify(op, path, err)
	}
	return nil
}

// Delete removes a file, or a directory and all of its contents. A symlink is removed itself, never its target
func (sfs *ScopedFS) Delete(_ context.Context, path string) error {
	const op = "delete"

	fullPath, err := resolve(op, sfs.store.Root(), path, false)
	if err != nil {
		return err
	}

	info, err := os.Lstat(fullPath)
	if err != nil {
		return classify(op, path, err)
	}

	if info.IsDir() {
		err = os.RemoveAll(fullPath)
	} else {
		err = os.Remove(fullPath)
	}
	if err != nil {
		return classify(op, path, err)
	}
	return nil
}

// Rename moves path to newPath. Both endpoints must be inside the workspace
func (sfs *ScopedFS) Rename(_ context.Context, path string, newPath string) error {
	const op = "rename"

	root := sfs.store.Root()
	from, err := resolve(op, root, path, false)
	if err != nil {
		return err
	}
	to, err := resolve(op, root, newPath, false)
	if err != nil {
		return err
	}

	if err := os.Rename(from, to); err != nil {
		return classify(op, path, err)
	}
	return nil
}

// Workspace returns the current workspace root
func (sfs *ScopedFS) Workspace() string {
	return sfs.store.Root()
}

// SetWorkspace makes path absolute against the process working directory and stores it as the new root. The path is
// not required to exist; operations under a missing root fail when they resolve their paths
func (sfs *ScopedFS) SetWorkspace(_ context.Context, path string) error {
	const op = "set_workspace"

	if strings.TrimSpace(path) == "" {
		return invalidArgument(op, path, fmt.Errorf("workspace path is empty"))
	}

	root, err := filepath.Abs(path)
	if err != nil {
		return classify(op, path, err)
	}
	sfs.store.SetRoot(root)
	return nil
}

package filesystem

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"syscall"
)

// maxSymlinkHops matches the Linux MAXSYMLINKS limit
const maxSymlinkHops = 40

var errWorkspaceRoot = errors.New("operation not permitted on the workspace root itself")

// resolve maps an untrusted path onto the workspace rooted at root and returns the path to perform I/O on. Callers
// pass the root they snapshotted from the store, so every path of one operation resolves against the same root.
//
// The lexical check runs first and needs no I/O. The symlink-resolved check runs second. If followFinal is false, the
// final path component is not dereferenced, so a symlink is itself the target of the operation.
func resolve(op, root, path string, followFinal bool) (string, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return "", classify(op, path, err)
	}

	candidate := path
	if !filepath.IsAbs(candidate) {
		candidate = filepath.Join(root, candidate)
	}
	candidate = filepath.Clean(candidate)

	if !within(root, candidate) {
		return "", outsideWorkspace(op, path)
	}
	if !followFinal && candidate == root {
		return "", invalidArgument(op, path, errWorkspaceRoot)
	}

	canonicalRoot, err := filepath.EvalSymlinks(root)
	if err != nil {
		return "", classify(op, path, fmt.Errorf("workspace root %s unavailable: %w", root, err))
	}

	var resolved string
	if followFinal {
		resolved, err = canonicalize(candidate)
	} else {
		var parent string
		parent, err = canonicalize(filepath.Dir(candidate))
		resolved = filepath.Join(parent, filepath.Base(candidate))
	}
	if err != nil {
		return "", classify(op, path, err)
	}

	if !within(canonicalRoot, resolved) {
		return "", outsideWorkspace(op, path)
	}
	return resolved, nil
}

// within reports whether path is root or lies below it. Both must be clean absolute paths
func within(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// canonicalize resolves every symlink in path, including in components that do not exist yet. The longest existing
// prefix is resolved with EvalSymlinks, and the missing remainder is appended to it. A dangling symlink is followed
// lexically to its target, so it cannot be used to create files outside the resolved tree.
func canonicalize(path string) (string, error) {
	var rest []string
	current := path
	hops := 0

	for {
		resolved, err := filepath.EvalSymlinks(current)
		if err == nil {
			return filepath.Join(append([]string{resolved}, rest...)...), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}

		info, lerr := os.Lstat(current)
		if lerr == nil && info.Mode()&fs.ModeSymlink != 0 {
			hops++
			if hops > maxSymlinkHops {
				return "", &fs.PathError{Op: "canonicalize", Path: path, Err: syscall.ELOOP}
			}
			target, err := os.Readlink(current)
			if err != nil {
				return "", err
			}
			if !filepath.IsAbs(target) {
				target = filepath.Join(filepath.Dir(current), target)
			}
			current = filepath.Clean(target)
			continue
		}

		parent := filepath.Dir(current)
		if parent == current {
			return filepath.Join(append([]string{current}, rest...)...), nil
		}
		rest = append([]string{filepath.Base(current)}, rest...)
		current = parent
	}
}

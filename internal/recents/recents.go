// Package recents keeps a short most-recently-used list of file paths.
package recents

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"sync"
)

// DefaultMax is how many paths a List keeps unless told otherwise
const DefaultMax = 10

// List is a de-duplicated list of paths, most recent first. If it was opened with a file path, every change is
// persisted to that file
type List struct {
	mu    sync.Mutex
	path  string
	max   int
	items []string
}

// NewList creates an in-memory list that is never persisted
func NewList(limit int) *List {
	return &List{max: normalizeMax(limit), items: []string{}}
}

// Open loads the list stored at path. A missing file yields an empty list
func Open(path string, limit int) (*List, error) {
	l := &List{path: path, max: normalizeMax(limit), items: []string{}}

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return l, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read recents file: %w", err)
	}

	if err := json.Unmarshal(data, &l.items); err != nil {
		return nil, fmt.Errorf("failed to parse recents file '%s': %w", path, err)
	}
	if len(l.items) > l.max {
		l.items = l.items[:l.max]
	}
	return l, nil
}

// Items returns a copy of the list
func (l *List) Items() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.items)
}

// Add moves path to the front of the list, inserting it if needed, and drops anything beyond the maximum
func (l *List) Add(path string) ([]string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	items := make([]string, 0, len(l.items)+1)
	items = append(items, path)
	for _, p := range l.items {
		if p != path {
			items = append(items, p)
		}
	}
	if len(items) > l.max {
		items = items[:l.max]
	}

	if err := l.save(items); err != nil {
		return nil, err
	}
	l.items = items
	return slices.Clone(items), nil
}

func (l *List) save(items []string) error {
	if l.path == "" {
		return nil
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode recents: %w", err)
	}
	return writeAtomic(l.path, data)
}

// writeAtomic writes to a temp file in the target directory and renames it over the target
func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create recents directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".recents-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	if _, err := tmp.Write(data); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to replace recents file: %w", err)
	}
	return nil
}

func normalizeMax(limit int) int {
	if limit <= 0 {
		return DefaultMax
	}
	return limit
}

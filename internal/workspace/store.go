package workspace

import (
	"fmt"
	"os"
	"sync"
)

// Store is a single mutable cell holding the workspace root. Reads and writes are mutually exclusive, and no lock is
// ever held beyond the copy of the string, so callers snapshot the root and then do their I/O unlocked
type Store struct {
	mu   sync.RWMutex
	root string
}

// NewStore creates a store with the given initial root
func NewStore(root string) *Store {
	return &Store{root: root}
}

// NewStoreFromWorkingDir creates a store rooted at the process's current working directory
func NewStoreFromWorkingDir() (*Store, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return NewStore(cwd), nil
}

// Root returns the current root
func (s *Store) Root() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.root
}

// SetRoot replaces the stored root unconditionally. No history of the previous root is kept
func (s *Store) SetRoot(root string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.root = root
}

// Package workspace holds the process-wide workspace root that every file operation is scoped to.
package workspace

// RootProvider hands out the current workspace root
type RootProvider interface {
	// Root returns a snapshot of the current workspace root
	Root() string
}

// RootSetter replaces the workspace root
type RootSetter interface {
	// SetRoot replaces the workspace root wholesale. The new value is not validated
	SetRoot(root string)
}

package filesystem

import (
	"errors"
	"fmt"
	"io/fs"
	"syscall"
)

var (
	ErrOutsideWorkspace error = fmt.Errorf("path outside workspace")
	ErrNotFound         error = fmt.Errorf("not found")
	ErrNotADirectory    error = fmt.Errorf("not a directory")
	ErrIsADirectory     error = fmt.Errorf("is a directory")
	ErrIO               error = fmt.Errorf("i/o error")
	ErrInvalidArgument  error = fmt.Errorf("invalid argument")
)

// Kind is the closed set of failure categories an operation can report
type Kind int

const (
	KindOutsideWorkspace Kind = iota + 1
	KindNotFound
	KindNotADirectory
	KindIsADirectory
	KindIO
	KindInvalidArgument
)

// String returns a stable tag for the kind, suitable for callers that branch on it
func (k Kind) String() string {
	switch k {
	case KindOutsideWorkspace:
		return "outside_workspace"
	case KindNotFound:
		return "not_found"
	case KindNotADirectory:
		return "not_a_directory"
	case KindIsADirectory:
		return "is_a_directory"
	case KindIO:
		return "io_error"
	case KindInvalidArgument:
		return "invalid_argument"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindOutsideWorkspace:
		return ErrOutsideWorkspace
	case KindNotFound:
		return ErrNotFound
	case KindNotADirectory:
		return ErrNotADirectory
	case KindIsADirectory:
		return ErrIsADirectory
	case KindInvalidArgument:
		return ErrInvalidArgument
	default:
		return ErrIO
	}
}

// Error is returned by every ScopedFS operation. Path is the path as the caller supplied it, and Err is the underlying
// cause, if any
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s %s: %s", e.Op, e.Path, e.Kind.sentinel())
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches the sentinel for the error's kind, so errors.Is(err, ErrNotFound) works on any *Error
func (e *Error) Is(target error) bool {
	return target == e.Kind.sentinel()
}

// KindOf returns the kind of err, or KindIO if err did not come from this package
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return KindIO
}

// classify wraps an OS error in an *Error of the matching kind
func classify(op, path string, err error) error {
	var fe *Error
	if errors.As(err, &fe) {
		return err
	}

	kind := KindIO
	switch {
	case errors.Is(err, fs.ErrNotExist):
		kind = KindNotFound
	case errors.Is(err, syscall.ENOTDIR):
		kind = KindNotADirectory
	case errors.Is(err, syscall.EISDIR):
		kind = KindIsADirectory
	}
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}

func outsideWorkspace(op, path string) error {
	return &Error{Kind: KindOutsideWorkspace, Op: op, Path: path}
}

func invalidArgument(op, path string, cause error) error {
	return &Error{Kind: KindInvalidArgument, Op: op, Path: path, Err: cause}
}

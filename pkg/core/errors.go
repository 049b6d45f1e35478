// pkg/core/errors.go
package core

import (
	"errors"
	"fmt"
)

var (
	// ErrPrecondition indicates the install cannot start (bad destination root,
	// unsupported library dir, unresolved module search path)
	ErrPrecondition = errors.New("precondition failed")

	// ErrMissingSource indicates a required source path is absent
	ErrMissingSource = errors.New("missing required source")

	// ErrSystemCall indicates a filesystem primitive failed
	ErrSystemCall = errors.New("system call failed")
)

// Error wraps an error with the operation and path that produced it
type Error struct {
	Kind error  // One of the Err* sentinels above
	Op   string // Operation that failed
	Path string // Path involved, if any
	Err  error  // Underlying error
}

func (e *Error) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

// Unwrap exposes both the kind and the cause, so errors.Is matches
// ErrMissingSource as well as fs.ErrNotExist.
func (e *Error) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

// PreconditionError builds an ErrPrecondition error
func PreconditionError(op, path string, err error) error {
	return &Error{Kind: ErrPrecondition, Op: op, Path: path, Err: err}
}

// MissingSourceError builds an ErrMissingSource error
func MissingSourceError(op, path string, err error) error {
	return &Error{Kind: ErrMissingSource, Op: op, Path: path, Err: err}
}

// SystemCallError builds an ErrSystemCall error
func SystemCallError(op, path string, err error) error {
	return &Error{Kind: ErrSystemCall, Op: op, Path: path, Err: err}
}

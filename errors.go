// errors.go
package layinstall

import "github.com/arc-language/layinstall/pkg/core"

var (
	// ErrPrecondition indicates invalid input detected before anything is written
	ErrPrecondition = core.ErrPrecondition

	// ErrMissingSource indicates a required source path does not exist
	ErrMissingSource = core.ErrMissingSource

	// ErrSystemCall indicates a filesystem operation failed
	ErrSystemCall = core.ErrSystemCall
)

// Error wraps an error with the operation and path that failed
type Error = core.Error

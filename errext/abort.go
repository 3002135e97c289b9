package errext

import (
	"errors"

	"github.com/liuxd6825/stylemap/errext/exitcodes"
)

// AbortError is returned when a build is stopped from the outside, for
// example by a signal, before it finished.
type AbortError struct {
	Reason string
}

var _ HasExitCode = &AbortError{}

// Error returns the reason of the abort.
func (a *AbortError) Error() string {
	return a.Reason
}

// ExitCode returns the status code used when the process exits.
func (a *AbortError) ExitCode() exitcodes.ExitCode {
	return exitcodes.ExternalAbort
}

// IsAbortError returns true if err is *AbortError.
func IsAbortError(err error) bool {
	if err == nil {
		return false
	}
	var abortErr *AbortError
	return errors.As(err, &abortErr)
}

// Package errext contains extensions for normal Go errors that are used in stylemap.
package errext

import (
	"errors"
	"fmt"
)

// HasHint is a wrapper around an error with an attached user hint, a human
// readable suggestion on how the error can be fixed.
type HasHint interface {
	error
	Hint() string
}

// WithHint attaches hint to err. A nil error stays nil. If err already had a
// hint, the result is "new hint (old hint)".
func WithHint(err error, hint string) error {
	if err == nil {
		return nil
	}
	return withHint{err, hint}
}

// WithHintf is WithHint with a formatted hint.
func WithHintf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return withHint{err, fmt.Sprintf(format, args...)}
}

// Hint returns the hint of the first error in the chain of err that has one,
// or an empty string.
func Hint(err error) string {
	var herr HasHint
	if errors.As(err, &herr) {
		return herr.Hint()
	}
	return ""
}

type withHint struct {
	error
	hint string
}

func (wh withHint) Unwrap() error {
	return wh.error
}

func (wh withHint) Hint() string {
	if old := Hint(wh.error); old != "" {
		return wh.hint + " (" + old + ")"
	}
	return wh.hint
}

var _ HasHint = withHint{}

// Package errx provides small helpers for composing sentinel errors with
// causes, so every error returned by fsyncer satisfies errors.Is against a
// stable sentinel while still carrying the underlying cause in its message
// and chain.
package errx

import "fmt"

// Wrap joins a sentinel and its cause into one error. errors.Is holds for
// both sentinel and cause.
func Wrap(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %w", sentinel, cause)
}

// With formats base with a suffix. The format string may reference %w to
// chain additional errors (Go's fmt supports more than one %w verb).
func With(base error, format string, args ...any) error {
	return fmt.Errorf("%w"+format, append([]any{base}, args...)...)
}

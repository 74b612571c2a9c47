// Package errors defines the small set of error kinds keyguard's layers agree
// on. Domain packages wrap one of these sentinels with their own context, and
// the HTTP layer only ever looks at the kind.
package errors

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound means the referenced key, rotation or event does not exist.
	ErrNotFound = errors.New("not found")

	// ErrConflict means the change clashes with stored state, such as a second
	// rotation for the same key.
	ErrConflict = errors.New("conflict")

	// ErrInvalidInput means the caller sent something that fails validation.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized means the presented credential was rejected.
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden means the credential is valid but lacks the permission.
	ErrForbidden = errors.New("forbidden")

	// ErrUnavailable means storage or the cache did not answer in time.
	ErrUnavailable = errors.New("unavailable")
)

var kinds = []error{
	ErrNotFound,
	ErrConflict,
	ErrInvalidInput,
	ErrUnauthorized,
	ErrForbidden,
	ErrUnavailable,
}

// KindOf returns the sentinel err wraps, or nil when err carries no kind.
func KindOf(err error) error {
	if err == nil {
		return nil
	}
	for _, kind := range kinds {
		if errors.Is(err, kind) {
			return kind
		}
	}
	return nil
}

// Wrap prefixes err with message, keeping it matchable with Is.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf is Wrap with a format string.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

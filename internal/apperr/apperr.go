package apperr

import (
	"errors"
	"fmt"
)

// Sentinel errors for the failure taxonomy. Callers classify with errors.Is
// and wrap with fmt.Errorf("...: %w", Err...) to add detail.
var (
	// ErrAuthentication is a bad or expired device/user credential. Not retried.
	ErrAuthentication = errors.New("authentication failed")

	// ErrValidation is malformed input. Not retried.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is an unknown device, sensor, command or alert.
	ErrNotFound = errors.New("not found")

	// ErrInvalidState is an operation against a terminal or wrong state,
	// e.g. acknowledging an already-acknowledged command.
	ErrInvalidState = errors.New("invalid state")

	// ErrTransientStorage is a store/queue hiccup. Callers may retry with backoff.
	ErrTransientStorage = errors.New("transient storage error")
)

// Authenticationf wraps ErrAuthentication with a formatted message
func Authenticationf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrAuthentication)...)
}

// Validationf wraps ErrValidation with a formatted message
func Validationf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrValidation)...)
}

// NotFoundf wraps ErrNotFound with a formatted message
func NotFoundf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
}

// InvalidStatef wraps ErrInvalidState with a formatted message
func InvalidStatef(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrInvalidState)...)
}

// Transientf wraps ErrTransientStorage with a formatted message
func Transientf(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrTransientStorage)...)
}

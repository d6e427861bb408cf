// Package errors provides centralized error handling for osdep.
//
// This package defines the sentinel errors used to classify platform failures.
// Every error returned by an osdep package wraps exactly one of the kind
// sentinels (ErrPlatformFailure, ErrMemoryFailure, ErrArgumentFailure,
// ErrFatalCorruption) so callers can branch with errors.Is().
//
// IMPORTANT: This package MUST NOT import any other internal packages.
// Only standard library imports are allowed.
package errors

import (
	"errors"
	"fmt"
)

// Error kinds. These mirror the status classes the TLS engine understands.
var (
	// ErrPlatformFailure indicates an unexpected OS error: a failed syscall,
	// descriptor exhaustion, or a clock that cannot be read.
	ErrPlatformFailure = errors.New("platform failure")

	// ErrMemoryFailure indicates that the memory pool denied an allocation.
	ErrMemoryFailure = errors.New("memory allocation failed")

	// ErrArgumentFailure indicates invalid caller input, such as an empty file name.
	ErrArgumentFailure = errors.New("invalid argument")

	// ErrFatalCorruption indicates that a mutex primitive malfunctioned.
	// The process must not continue after observing this error.
	ErrFatalCorruption = errors.New("fatal lock corruption")
)

// Component-specific sentinels. Each is wrapped together with its kind.
var (
	// ErrShortFill indicates that the entropy source delivered fewer bytes
	// than requested. A short fill is a failure, never a partial success.
	ErrShortFill = errors.New("entropy short fill")

	// ErrRetryBoundExceeded indicates that a read was interrupted more times
	// than the sanity bound allows.
	ErrRetryBoundExceeded = errors.New("interrupt retry bound exceeded")

	// ErrUnsupportedFlag indicates that a mutex was requested with a flag
	// this platform does not recognize.
	ErrUnsupportedFlag = errors.New("unsupported mutex flag")

	// ErrMutexNotHeld indicates a release of a mutex nobody holds.
	ErrMutexNotHeld = errors.New("mutex not held")

	// ErrMutexBusy indicates Destroy of a mutex that is still held.
	ErrMutexBusy = errors.New("mutex destroyed while held")

	// ErrMutexDestroyed indicates use of a mutex after Destroy.
	ErrMutexDestroyed = errors.New("mutex destroyed")

	// ErrNotOpen indicates that a component was used before Open succeeded.
	ErrNotOpen = errors.New("component not open")

	// ErrConfigNil indicates that a nil config was passed to validation.
	ErrConfigNil = errors.New("config is nil")

	// ErrConfigInvalid indicates an out-of-range or inconsistent configuration value.
	ErrConfigInvalid = errors.New("invalid configuration")

	// ErrInvalidOutputFormat indicates an invalid output format was specified.
	ErrInvalidOutputFormat = errors.New("invalid output format")

	// ErrSelfTestFailed indicates that one or more components failed the self test.
	ErrSelfTestFailed = errors.New("self test failed")
)

// Classify wraps err together with its kind so that errors.Is matches both.
// The message reads "kind: err".
func Classify(kind, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %w", kind, err)
}

// ExitCode2Error wraps an error to indicate exit code 2 should be used.
type ExitCode2Error struct {
	Err error
}

// NewExitCode2Error wraps an error to indicate exit code 2.
func NewExitCode2Error(err error) *ExitCode2Error {
	return &ExitCode2Error{Err: err}
}

// Error implements the error interface.
func (e *ExitCode2Error) Error() string {
	return e.Err.Error()
}

// Unwrap returns the underlying error.
func (e *ExitCode2Error) Unwrap() error {
	return e.Err
}

// IsExitCode2Error checks if an error should result in exit code 2.
func IsExitCode2Error(err error) bool {
	var e *ExitCode2Error
	return errors.As(err, &e)
}

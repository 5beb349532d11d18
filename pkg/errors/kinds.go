package errors

import (
	"context"
	"errors"
	"fmt"
)

// Exported variables.
var (
	ErrBusy           = errors.New("another operation is already in progress")
	ErrLocalIO        = errors.New("local file operation failed")
	ErrPartialFailure = errors.New("operation completed with problems")
	ErrRemoteIO       = errors.New("device operation failed")
	ErrTimeout        = errors.New("operation timed out")
	ErrUserCancelled  = errors.New("cancelled by user")
	ErrValidation     = errors.New("invalid input")
)

// Remote wraps an error returned by the device with the operation and path it
// concerns. Context cancellation and deadlines are mapped to ErrUserCancelled
// and ErrTimeout; everything else is tagged ErrRemoteIO.
func Remote(op, path string, err error) error {
	return tag(op, path, err, ErrRemoteIO)
}

// Local is the local-disk counterpart of Remote.
func Local(op, path string, err error) error {
	return tag(op, path, err, ErrLocalIO)
}

// Validationf returns an ErrValidation error with a formatted reason.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Classify maps an error onto the taxonomy used for reporting. The specific
// sentinels win; the message pattern matcher refines plain I/O failures.
func Classify(err error) ErrorCategory {
	switch {
	case err == nil:
		return CategoryUnknown
	case errors.Is(err, ErrUserCancelled):
		return CategoryCancelled
	case errors.Is(err, ErrBusy):
		return CategoryBusy
	case errors.Is(err, ErrTimeout):
		return CategoryTimeout
	case errors.Is(err, ErrValidation):
		return CategoryValidation
	case errors.Is(err, ErrPartialFailure):
		return CategoryPartialFailure
	}

	if category := NewPatternMatcher().Match(err.Error()); category != CategoryUnknown {
		return category
	}

	switch {
	case errors.Is(err, ErrRemoteIO):
		return CategoryRemoteIO
	case errors.Is(err, ErrLocalIO):
		return CategoryLocalIO
	default:
		return CategoryUnknown
	}
}

func tag(op, path string, err, kind error) error {
	if err == nil {
		return nil
	}

	switch {
	case errors.Is(err, ErrUserCancelled), errors.Is(err, ErrTimeout),
		errors.Is(err, ErrRemoteIO), errors.Is(err, ErrLocalIO):
		return fmt.Errorf("%s %s: %w", op, path, err)
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("%s %s: %w", op, path, ErrUserCancelled)
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%s %s: %w", op, path, ErrTimeout)
	default:
		return fmt.Errorf("%s %s: %w: %w", op, path, kind, err)
	}
}

// Is reports whether any error in err's tree matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's tree that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// New returns an error that formats as the given text.
func New(text string) error {
	return errors.New(text) //nolint:err113 // Passthrough for callers importing this package as errors
}

// Join wraps the given errors, discarding nils.
func Join(errs ...error) error {
	return errors.Join(errs...)
}

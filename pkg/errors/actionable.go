// Package errors defines the error taxonomy of the device explorer and
// enriches errors with actionable suggestions for display.
//
// Every failure that reaches a user is one of the sentinel kinds in kinds.go
// (cancelled, busy, timeout, device I/O, local I/O, validation, partial
// failure). Device and local errors are tagged with Remote and Local at the
// point where they cross the I/O boundary:
//
//	err := fs.Delete(ctx, entry)
//	if err != nil {
//	    return errors.Remote("delete", entry.Path, err)
//	}
//
// The enricher turns such an error into an ActionableError whose category and
// suggestions are derived from the kind and from the message text:
//
//	enriched := errors.NewEnricher().Enrich(err, "")
//	fmt.Println(errors.FormatSuggestions(enriched))
package errors

import (
	"errors"
	"strings"
)

// Exported constants.
const (
	CategoryBusy           ErrorCategory = "busy"
	CategoryCancelled      ErrorCategory = "cancelled"
	CategoryCopy           ErrorCategory = "copy"
	CategoryDelete         ErrorCategory = "delete"
	CategoryDiskSpace      ErrorCategory = "disk_space"
	CategoryLocalIO        ErrorCategory = "local_io"
	CategoryPartialFailure ErrorCategory = "partial_failure"
	CategoryPath           ErrorCategory = "path"
	CategoryPermission     ErrorCategory = "permission"
	CategoryRemoteIO       ErrorCategory = "remote_io"
	CategoryTimeout        ErrorCategory = "timeout"
	CategoryUnknown        ErrorCategory = "unknown"
	CategoryValidation     ErrorCategory = "validation"
)

// ActionableError represents an error with actionable suggestions for the user.
type ActionableError interface {
	error
	OriginalError() string
	Category() ErrorCategory
	Suggestions() []string
	AffectedPath() string
}

// NewActionableError creates a new ActionableError with the given details.
func NewActionableError(
	cause error,
	category ErrorCategory,
	suggestions []string,
	affectedPath string,
) ActionableError {
	return &actionableError{
		cause:         cause,
		originalError: cause.Error(),
		category:      category,
		suggestions:   suggestions,
		affectedPath:  affectedPath,
	}
}

// ErrorCategory represents the type of error that occurred.
type ErrorCategory string

// FormatSuggestions formats the suggestions from an ActionableError as a bulleted list
// for display in the TUI. Returns empty string if the error is nil or has no suggestions.
func FormatSuggestions(err error) string {
	if err == nil {
		return ""
	}

	var actionable ActionableError
	if !errors.As(err, &actionable) {
		return ""
	}

	suggestions := actionable.Suggestions()
	if len(suggestions) == 0 {
		return ""
	}

	var builder strings.Builder
	for i, suggestion := range suggestions {
		if i > 0 {
			builder.WriteString("\n")
		}
		builder.WriteString("  • ")
		builder.WriteString(suggestion)
	}

	return builder.String()
}

// actionableError is the concrete implementation of ActionableError.
type actionableError struct {
	cause         error
	originalError string
	category      ErrorCategory
	suggestions   []string
	affectedPath  string
}

// AffectedPath returns the file path affected by this error.
func (e *actionableError) AffectedPath() string {
	return e.affectedPath
}

// Category returns the error category.
func (e *actionableError) Category() ErrorCategory {
	return e.category
}

// Error implements the error interface.
func (e *actionableError) Error() string {
	return e.originalError
}

// OriginalError returns the original error message.
func (e *actionableError) OriginalError() string {
	return e.originalError
}

// Unwrap returns the enriched error.
func (e *actionableError) Unwrap() error {
	return e.cause
}

// Suggestions returns the list of actionable suggestions.
func (e *actionableError) Suggestions() []string {
	return e.suggestions
}

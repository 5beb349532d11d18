package errors

import (
	"errors"
	"regexp"
	"strings"
)

// Enricher enriches standard errors with actionable suggestions.
type Enricher interface {
	Enrich(err error, affectedPath string) error
}

// NewEnricher creates a new Enricher with the default suggestion generator.
func NewEnricher() Enricher {
	return &enricher{
		generator: NewSuggestionGenerator(),
	}
}

// unexported variables.
var (
	//nolint:gochecknoglobals // Compiled regexes shared across all enricher instances
	pathExtractionPatterns = []*regexp.Regexp{
		// "download /sdcard/DCIM: ..." as produced by Remote and Local
		regexp.MustCompile(`\b\w+\s+(/[^\s:]+):`),
		// "open ./relative/file: ..."
		regexp.MustCompile(`\b\w+\s+(\.[^\s:]+):`),
		// Windows paths with backslashes or forward slashes
		regexp.MustCompile(`\b\w+\s+([A-Za-z]:[\\/][^\s:]+):`),
	}
)

// enricher is the concrete implementation of Enricher.
type enricher struct {
	generator SuggestionGenerator
}

// Enrich takes an error and enriches it with category and actionable suggestions.
// If the error is already an ActionableError, it is returned unchanged.
// If affectedPath is empty, attempts to extract a path from the error message.
func (e *enricher) Enrich(err error, affectedPath string) error {
	if err == nil {
		return nil
	}

	var actionableErr ActionableError
	if errors.As(err, &actionableErr) {
		return actionableErr
	}

	if affectedPath == "" {
		affectedPath = extractPath(err.Error())
	}

	category := Classify(err)

	return NewActionableError(
		err,
		category,
		e.generator.Generate(category, affectedPath),
		affectedPath,
	)
}

// extractPath attempts to extract a file path from "op /path: reason" style
// messages. Returns empty string if no path is found.
func extractPath(errorMsg string) string {
	for _, pattern := range pathExtractionPatterns {
		if matches := pattern.FindStringSubmatch(errorMsg); len(matches) > 1 {
			path := strings.TrimSpace(matches[1])
			if path != "" {
				return path
			}
		}
	}

	return ""
}

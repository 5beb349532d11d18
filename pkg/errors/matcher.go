package errors

import "strings"

// PatternMatcher matches error messages to categories using string patterns.
type PatternMatcher interface {
	Match(errorMsg string) ErrorCategory
}

// NewPatternMatcher creates a new PatternMatcher with predefined patterns.
// Rules are checked in order; the first matching rule wins.
func NewPatternMatcher() PatternMatcher {
	return &patternMatcher{
		rules: []patternRule{
			{CategoryPermission, []string{
				"permission denied",
				"access denied",
				"operation not permitted",
				"read-only file system",
			}},
			{CategoryDiskSpace, []string{
				"no space left on device",
				"disk full",
				"quota exceeded",
			}},
			{CategoryPath, []string{
				"no such file or directory",
				"file does not exist",
				"file not found",
				"path does not exist",
			}},
			{CategoryDelete, []string{
				"directory not empty",
				"cannot remove",
			}},
			{CategoryRemoteIO, []string{
				"connection lost",
				"connection reset",
				"broken pipe",
				"device offline",
			}},
			{CategoryCopy, []string{
				"short write",
				"input/output error",
				"i/o error",
			}},
		},
	}
}

type patternRule struct {
	category ErrorCategory
	patterns []string
}

// patternMatcher is the concrete implementation of PatternMatcher.
type patternMatcher struct {
	rules []patternRule
}

// Match returns the error category based on pattern matching.
func (m *patternMatcher) Match(errorMsg string) ErrorCategory {
	lowerMsg := strings.ToLower(errorMsg)

	for _, rule := range m.rules {
		for _, pattern := range rule.patterns {
			if strings.Contains(lowerMsg, pattern) {
				return rule.category
			}
		}
	}

	return CategoryUnknown
}

package explorer

import (
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/joe/device-explorer/pkg/errors"
	"github.com/joe/device-explorer/pkg/filesystem"
)

// HiddenFilter drops listing entries matching any of its glob patterns.
// A pattern without a separator is matched against the entry name, one
// with a separator against the full remote path. Matching is
// case-insensitive.
type HiddenFilter struct {
	namePatterns []string
	pathPatterns []string
}

// NewHiddenFilter compiles patterns. Blank patterns are ignored.
func NewHiddenFilter(patterns []string) (*HiddenFilter, error) {
	filter := &HiddenFilter{}

	for _, pattern := range patterns {
		pattern = strings.ToLower(strings.TrimSpace(pattern))
		if pattern == "" {
			continue
		}

		if !doublestar.ValidatePattern(pattern) {
			return nil, errors.Validationf("invalid hidden pattern %q", pattern)
		}

		if strings.Contains(pattern, filesystem.Separator) {
			filter.pathPatterns = append(filter.pathPatterns, pattern)
		} else {
			filter.namePatterns = append(filter.namePatterns, pattern)
		}
	}

	return filter, nil
}

// Hidden reports whether entry is left out of listings.
func (f *HiddenFilter) Hidden(entry filesystem.FileEntry) bool {
	name := strings.ToLower(entry.Name)
	for _, pattern := range f.namePatterns {
		if matched, _ := doublestar.Match(pattern, name); matched {
			return true
		}
	}

	fullPath := strings.ToLower(entry.Path)
	for _, pattern := range f.pathPatterns {
		if matched, _ := doublestar.Match(pattern, fullPath); matched {
			return true
		}
	}

	return false
}

// Apply returns the visible entries, keeping their order.
func (f *HiddenFilter) Apply(entries []filesystem.FileEntry) []filesystem.FileEntry {
	if len(f.namePatterns) == 0 && len(f.pathPatterns) == 0 {
		return entries
	}

	visible := make([]filesystem.FileEntry, 0, len(entries))

	for _, entry := range entries {
		if !f.Hidden(entry) {
			visible = append(visible, entry)
		}
	}

	return visible
}

package tui

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/joe/device-explorer/pkg/filesystem"
)

// pathCompletions returns the local paths that complete input, directories
// with a trailing separator.
func pathCompletions(local filesystem.LocalFileStore, input string) []string {
	if input == "" {
		input = "."
	}

	input = expandHome(input)

	dir := filepath.Dir(input)
	prefix := filepath.Base(input)

	// Completing inside a directory
	if strings.HasSuffix(input, string(filepath.Separator)) {
		dir = input
		prefix = ""
	}

	entries, err := local.ReadDir(dir)
	if err != nil {
		return nil
	}

	var completions []string

	for _, entry := range entries {
		name := entry.Name()

		// Skip hidden files unless prefix starts with .
		if strings.HasPrefix(name, ".") && !strings.HasPrefix(prefix, ".") {
			continue
		}

		if prefix != "" && !strings.HasPrefix(name, prefix) {
			continue
		}

		full := filepath.Join(dir, name)
		if entry.IsDir() {
			full += string(filepath.Separator)
		}

		completions = append(completions, full)
	}

	sort.Strings(completions)

	return completions
}

// expandHome replaces a leading ~ with the user's home directory.
func expandHome(p string) string {
	if !strings.HasPrefix(p, "~") {
		return p
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return p
	}

	expanded := filepath.Join(home, p[1:])
	if strings.HasSuffix(p, string(filepath.Separator)) {
		expanded += string(filepath.Separator)
	}

	return expanded
}

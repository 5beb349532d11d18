package errors

import "fmt"

// SuggestionGenerator generates actionable suggestions based on error category.
type SuggestionGenerator interface {
	Generate(category ErrorCategory, affectedPath string) []string
}

// NewSuggestionGenerator creates a new SuggestionGenerator.
func NewSuggestionGenerator() SuggestionGenerator {
	return &suggestionGenerator{}
}

// suggestionGenerator is the concrete implementation of SuggestionGenerator.
type suggestionGenerator struct{}

// Generate returns actionable suggestions based on the error category and affected path.
//
//nolint:cyclop // One branch per category
func (g *suggestionGenerator) Generate(category ErrorCategory, affectedPath string) []string {
	switch category {
	case CategoryPermission:
		return g.generatePermissionSuggestions(affectedPath)
	case CategoryDiskSpace:
		return g.generateDiskSpaceSuggestions(affectedPath)
	case CategoryPath:
		return g.generatePathSuggestions(affectedPath)
	case CategoryDelete:
		return g.generateDeleteSuggestions(affectedPath)
	case CategoryCopy:
		return g.generateCopySuggestions(affectedPath)
	case CategoryRemoteIO:
		return g.generateRemoteSuggestions(affectedPath)
	case CategoryLocalIO:
		return g.generateLocalSuggestions(affectedPath)
	case CategoryTimeout:
		return []string{
			"Check that the device is still connected and responsive",
			"Retry the operation",
		}
	case CategoryBusy:
		return []string{
			"Wait for the current transfer to finish or cancel it",
		}
	case CategoryValidation:
		return []string{
			"Enter a non-empty name that does not contain '/'",
		}
	case CategoryCancelled, CategoryPartialFailure:
		return nil
	case CategoryUnknown:
		return g.generateUnknownSuggestions(affectedPath)
	default:
		return g.generateUnknownSuggestions(affectedPath)
	}
}

func (g *suggestionGenerator) generateCopySuggestions(_ string) []string {
	return []string{
		"Check if there is sufficient space on the receiving side",
		"Try the operation again - this may be a transient I/O error",
		"Reconnect the device if the error persists",
	}
}

func (g *suggestionGenerator) generateDeleteSuggestions(path string) []string {
	suggestions := []string{
		"Ensure the directory is empty before attempting to remove it",
	}

	if path != "" {
		suggestions = append(suggestions, "Refresh "+path+" to see its current contents")
	}

	return suggestions
}

func (g *suggestionGenerator) generateDiskSpaceSuggestions(path string) []string {
	suggestions := []string{
		"Free up space on the receiving side",
		"Remove unnecessary files or pick a different destination",
	}

	if path != "" {
		suggestions = append(suggestions, "Verify free space for the filesystem containing "+path)
	}

	return suggestions
}

func (g *suggestionGenerator) generateLocalSuggestions(path string) []string {
	suggestions := []string{
		"Check that the local destination is writable",
	}

	if path != "" {
		suggestions = append(suggestions, "Verify the local path is accessible: "+path)
	}

	return suggestions
}

func (g *suggestionGenerator) generatePathSuggestions(path string) []string {
	suggestions := []string{
		"Refresh the parent directory - the entry may have been moved or deleted",
	}

	if path != "" {
		suggestions = append(suggestions, "Check that the path exists: "+path)
	}

	return suggestions
}

func (g *suggestionGenerator) generatePermissionSuggestions(path string) []string {
	suggestions := []string{
		"Ensure the device user has read/write access to the entry",
	}

	if path != "" {
		suggestions = append(suggestions, fmt.Sprintf("Check permissions with 'ls -la %s' on the device", path))
	}

	return suggestions
}

func (g *suggestionGenerator) generateRemoteSuggestions(path string) []string {
	suggestions := []string{
		"Check that the device is still connected",
		"Retry the operation",
	}

	if path != "" {
		suggestions = append(suggestions, "Refresh the parent of "+path+" and try again")
	}

	return suggestions
}

func (g *suggestionGenerator) generateUnknownSuggestions(path string) []string {
	suggestions := []string{
		"Check the error message for more details",
	}

	if path != "" {
		suggestions = append(suggestions, "Verify the path is accessible: "+path)
	}

	return suggestions
}

package tui

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/lipgloss"
)

const (
	accentColorCode    = "62"  // Blue
	dimColorCode       = "240" // Dark gray
	errorColorCode     = "196" // Red
	highlightColorCode = "86"  // Cyan
	normalColorCode    = "252" // Light gray
	primaryColorCode   = "205" // Pink/purple
	successColorCode   = "42"  // Green
	warningColorCode   = "214" // Orange

	progressBarWidth = 40
	barPadding       = 4
	percentScale     = 100
)

// colorsDisabled is set when the terminal asked for plain output.
var colorsDisabled = os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" //nolint:gochecknoglobals // Read once at startup

var (
	titleStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(primaryColorCode))
	directoryStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(accentColorCode))
	linkStyle        = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color(highlightColorCode))
	fileStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color(normalColorCode))
	placeholderStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color(dimColorCode))
	dimStyle         = lipgloss.NewStyle().Foreground(lipgloss.Color(dimColorCode))
	errorStyle       = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(errorColorCode))
	successStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color(successColorCode))
	transferStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color(warningColorCode))
	cursorStyle      = lipgloss.NewStyle().Reverse(true)
	markStyle        = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(highlightColorCode))
	boxStyle         = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color(accentColorCode)).
				Padding(0, 1)
)

// newProgressModel creates the operation progress bar.
func newProgressModel(width int) progress.Model {
	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = width
	bar.ShowPercentage = false

	if !colorsDisabled {
		bar.EmptyColor = dimColorCode
		bar.FullColor = accentColorCode
	}

	return bar
}

// renderProgress draws fraction with the bubbles bar, or as ASCII when colors
// are disabled.
func renderProgress(bar progress.Model, fraction float64) string {
	if colorsDisabled {
		return renderASCIIProgress(fraction, bar.Width)
	}

	return bar.ViewAs(fraction)
}

// renderASCIIProgress returns e.g. "[=========>          ] 45%".
func renderASCIIProgress(fraction float64, width int) string {
	fraction = min(max(fraction, 0), 1)
	filled := int(fraction * float64(width))

	var bar strings.Builder

	bar.WriteString("[")

	switch {
	case filled >= width:
		bar.WriteString(strings.Repeat("=", width))
	case fraction > 0:
		equals := max(0, filled-1)
		bar.WriteString(strings.Repeat("=", equals))
		bar.WriteString(">")
		bar.WriteString(strings.Repeat(" ", width-equals-1))
	default:
		bar.WriteString(strings.Repeat(" ", width))
	}

	bar.WriteString("]")

	return fmt.Sprintf("%s %d%%", bar.String(), int(fraction*percentScale))
}

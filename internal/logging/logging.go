// Package logging builds the zerolog logger shared by the explorer and its
// front-ends.
package logging

import (
	"fmt"
	"io"
	"strings"

	"github.com/rs/zerolog"
)

// TimeFormat is the console timestamp layout.
const TimeFormat = "15:04:05"

// DefaultLevel is used when no level is configured.
const DefaultLevel = "info"

// ParseLevel accepts zerolog level names, case-insensitively. An empty name
// yields DefaultLevel.
func ParseLevel(name string) (zerolog.Level, error) {
	if strings.TrimSpace(name) == "" {
		name = DefaultLevel
	}

	level, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(name)))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("invalid log level %q: %w", name, err)
	}

	return level, nil
}

// New returns a logger writing to out at the given level. Console output is
// human readable; otherwise one JSON object per line is written, which is
// what the interactive mode sends to its log file.
func New(out io.Writer, level string, console bool) (zerolog.Logger, error) {
	parsed, err := ParseLevel(level)
	if err != nil {
		return zerolog.Nop(), err
	}

	if console {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: TimeFormat}
	}

	return zerolog.New(out).Level(parsed).With().Timestamp().Logger(), nil
}

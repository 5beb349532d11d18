//nolint:varnamelen // Test files use idiomatic short variable names (t, g, etc.)
package logging_test

import (
	"bytes"
	"testing"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for gomega matchers
	"github.com/rs/zerolog"

	"github.com/joe/device-explorer/internal/logging"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		input   string
		want    zerolog.Level
		wantErr bool
	}{
		{name: "empty defaults to info", input: "", want: zerolog.InfoLevel},
		{name: "debug", input: "debug", want: zerolog.DebugLevel},
		{name: "mixed case", input: " WARN ", want: zerolog.WarnLevel},
		{name: "unknown", input: "loud", wantErr: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := NewWithT(t)

			level, err := logging.ParseLevel(tt.input)
			if tt.wantErr {
				g.Expect(err).To(HaveOccurred())
				return
			}

			g.Expect(err).ToNot(HaveOccurred())
			g.Expect(level).To(Equal(tt.want))
		})
	}
}

func TestNew_FiltersBelowLevel(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	var buf bytes.Buffer

	logger, err := logging.New(&buf, "warn", false)
	g.Expect(err).ToNot(HaveOccurred())

	logger.Info().Msg("quiet")
	logger.Warn().Str("op", "delete").Msg("loud")

	g.Expect(buf.String()).ToNot(ContainSubstring("quiet"))
	g.Expect(buf.String()).To(ContainSubstring(`"op":"delete"`))
	g.Expect(buf.String()).To(ContainSubstring(`"message":"loud"`))
}

func TestNew_ConsoleIsHumanReadable(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	var buf bytes.Buffer

	logger, err := logging.New(&buf, "info", true)
	g.Expect(err).ToNot(HaveOccurred())

	logger.Info().Str("kind", "download").Msg("finished")

	g.Expect(buf.String()).To(ContainSubstring("finished"))
	g.Expect(buf.String()).To(ContainSubstring("kind="))
	g.Expect(buf.String()).ToNot(ContainSubstring(`"message"`))
}

func TestNew_RejectsBadLevel(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	_, err := logging.New(&bytes.Buffer{}, "shout", true)
	g.Expect(err).To(MatchError(ContainSubstring("invalid log level")))
}

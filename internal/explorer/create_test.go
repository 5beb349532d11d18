//nolint:varnamelen // Test files use idiomatic short variable names (t, g, h, etc.)
package explorer_test

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for gomega matchers

	"github.com/joe/device-explorer/internal/explorer"
	"github.com/joe/device-explorer/pkg/errors"
	"github.com/joe/device-explorer/pkg/filesystem"
)

type prompt struct {
	initial string
	problem string
}

// scripted answers prompts with names in order and gives up when they run
// out. Every prompt it saw is recorded.
type scripted struct {
	names []string
	seen  []prompt
}

func (s *scripted) PromptName(_ context.Context, initial, problem string) (string, bool) {
	s.seen = append(s.seen, prompt{initial: initial, problem: problem})

	if len(s.names) == 0 {
		return "", false
	}

	name := s.names[0]
	s.names = s.names[1:]

	return name, true
}

func TestNewDirectory_RepromptsUntilTheDeviceAcceptsAName(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	h := newHarness(t, func(remote *filesystem.MockRemoteFileSystem) {
		remote.AddDir("/sd/taken")
	})
	sd := h.expand(t, "/sd")

	prompter := &scripted{names: []string{"  ", "a/b", "taken", " fresh "}}

	g.Expect(h.explorer.NewDirectory(context.Background(), sd, prompter)).To(Succeed())

	g.Expect(prompter.seen).To(HaveLen(4))
	g.Expect(prompter.seen[0]).To(Equal(prompt{}))
	g.Expect(prompter.seen[1]).To(Equal(prompt{initial: "  ", problem: "Enter a name"}))
	g.Expect(prompter.seen[2]).To(Equal(prompt{initial: "a/b", problem: "A name cannot contain /"}))
	g.Expect(prompter.seen[3].initial).To(Equal("taken"))
	g.Expect(prompter.seen[3].problem).To(ContainSubstring("already exists"))

	g.Expect(h.calls(filesystem.OpCreateDirectory)).To(Equal([]string{"/sd/taken", "/sd/fresh"}))
	g.Expect(h.childNames(sd)).To(Equal([]string{"fresh", "taken"}))
	g.Expect(h.node(sd).Loaded).To(BeTrue())
}

func TestNewFile_AppearsInTheParent(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	h := newHarness(t, func(remote *filesystem.MockRemoteFileSystem) {
		remote.AddDir("/sd/music")
	})
	sd := h.expand(t, "/sd")

	err := h.explorer.NewFile(context.Background(), sd,
		explorer.NamePrompterFunc(func(context.Context, string, string) (string, bool) { return "notes.txt", true }))
	g.Expect(err).ToNot(HaveOccurred())

	g.Expect(h.remote.Exists("/sd/notes.txt")).To(BeTrue())
	g.Expect(h.childNames(sd)).To(Equal([]string{"music", "notes.txt"}))
	g.Expect(h.node(h.handle(t, "/sd/notes.txt")).Entry.IsDir).To(BeFalse())
}

func TestNewDirectory_TimeoutRepromptsAndGivingUpCancels(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	h := newHarness(t, func(remote *filesystem.MockRemoteFileSystem) {
		remote.AddDir("/sd")
		remote.StallOn(filesystem.OpCreateDirectory, "/sd/slow")
	}, func(opts *explorer.Options) {
		opts.Settings.AdminTimeout = 20 * time.Millisecond
	})
	sd := h.expand(t, "/sd")

	prompter := &scripted{names: []string{"slow"}}

	err := h.explorer.NewDirectory(context.Background(), sd, prompter)
	g.Expect(err).To(MatchError(errors.ErrUserCancelled))

	g.Expect(prompter.seen).To(HaveLen(2))
	g.Expect(prompter.seen[1].initial).To(Equal("slow"))
	g.Expect(prompter.seen[1].problem).To(ContainSubstring("operation timed out"))
	g.Expect(h.remote.Exists("/sd/slow")).To(BeFalse())
}

func TestNewFile_ParentMustBeADirectory(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	h := newHarness(t, func(remote *filesystem.MockRemoteFileSystem) {
		remote.AddFile("/a.txt", []byte("a"))
	})
	h.expand(t, filesystem.Separator)

	prompter := &scripted{names: []string{"b.txt"}}

	err := h.explorer.NewFile(context.Background(), h.handle(t, "/a.txt"), prompter)
	g.Expect(err).To(MatchError(errors.ErrValidation))
	g.Expect(prompter.seen).To(BeEmpty())
}

func TestValidateName(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)

	tests := []struct {
		name    string
		input   string
		want    string
		problem string
	}{
		{name: "plain", input: "photos", want: "photos"},
		{name: "trimmed", input: "  photos\t", want: "photos"},
		{name: "blank", input: " \t ", problem: "Enter a name"},
		{name: "separator", input: "a/b", problem: "A name cannot contain /"},
		{name: "dots are fine", input: "..hidden", want: "..hidden"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := NewWithT(t)

			got, problem := h.explorer.ValidateName(tt.input)
			g.Expect(got).To(Equal(tt.want))
			g.Expect(problem).To(Equal(tt.problem))
		})
	}
}

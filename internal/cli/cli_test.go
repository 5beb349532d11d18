//nolint:varnamelen // Test files use idiomatic short variable names (t, g, r, etc.)
package cli_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for gomega matchers

	"github.com/joe/device-explorer/internal/cli"
	"github.com/joe/device-explorer/internal/config"
	"github.com/joe/device-explorer/internal/events"
	"github.com/joe/device-explorer/internal/explorer"
	"github.com/joe/device-explorer/pkg/errors"
	"github.com/joe/device-explorer/pkg/filesystem"
)

type fixture struct {
	runner *cli.Runner
	remote *filesystem.MockRemoteFileSystem
	store  *filesystem.BillyStore
	out    *bytes.Buffer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	store := filesystem.NewBillyStore(memfs.New(), "/mirror")
	remote := filesystem.NewMockRemoteFileSystem(store)
	remote.AddDir("/docs").
		AddFile("/docs/guide.md", []byte("guide")).
		AddFile("/a.txt", []byte("alpha")).
		AddSymlink("/latest", "/docs")

	queue := events.NewQueue()

	x, err := explorer.New(explorer.Options{
		Remote:   remote,
		Local:    store,
		Device:   "test-device",
		Emitter:  queue,
		Settings: explorer.Settings{AdminTimeout: time.Second},
	})
	if err != nil {
		t.Fatalf("new explorer: %v", err)
	}

	t.Cleanup(x.Close)

	out := &bytes.Buffer{}

	return &fixture{
		runner: cli.New(cli.Options{Explorer: x, Queue: queue, Out: out}),
		remote: remote,
		store:  store,
		out:    out,
	}
}

func TestListPrintsDirectoryEntries(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	f := newFixture(t)
	err := f.runner.Run(context.Background(), &config.Config{List: &config.ListCmd{Path: "/"}})

	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(f.out.String()).To(MatchRegexp(`(?s)docs/.*latest@/.*a\.txt`))
	g.Expect(f.out.String()).To(ContainSubstring("5 B"))
}

func TestListWalksDownToNestedDirectories(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	f := newFixture(t)
	err := f.runner.List(context.Background(), "/docs")

	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(f.out.String()).To(ContainSubstring("guide.md"))
	g.Expect(f.out.String()).NotTo(ContainSubstring("a.txt"))
}

func TestListOfMissingPathIsInvalid(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	f := newFixture(t)
	err := f.runner.List(context.Background(), "/nope/deeper")

	g.Expect(errors.Is(err, errors.ErrValidation)).To(BeTrue())
	g.Expect(err.Error()).To(ContainSubstring("/nope/deeper does not exist"))
}

func TestPullDownloadsIntoDirectory(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	f := newFixture(t)
	err := f.runner.Run(context.Background(), &config.Config{
		Pull: &config.PullCmd{To: "/out", Remotes: []string{"/a.txt", "/docs"}},
	})

	g.Expect(err).NotTo(HaveOccurred())

	_, statErr := f.store.Stat("/out/a.txt")
	g.Expect(statErr).NotTo(HaveOccurred())

	_, statErr = f.store.Stat("/out/docs/guide.md")
	g.Expect(statErr).NotTo(HaveOccurred())

	g.Expect(f.out.String()).To(ContainSubstring("Downloaded"))
}

func TestPushUploadsIntoRemoteDirectory(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	f := newFixture(t)
	g.Expect(f.store.WriteFile("/up/notes.txt", []byte("notes"))).To(Succeed())

	err := f.runner.Run(context.Background(), &config.Config{
		Push: &config.PushCmd{To: "/docs", Locals: []string{"/up/notes.txt"}},
	})

	g.Expect(err).NotTo(HaveOccurred())

	data, ok := f.remote.ReadFile("/docs/notes.txt")
	g.Expect(ok).To(BeTrue())
	g.Expect(string(data)).To(Equal("notes"))
	g.Expect(f.out.String()).To(ContainSubstring("Uploaded"))
}

func TestRemoveDeletesEntries(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	f := newFixture(t)
	err := f.runner.Run(context.Background(), &config.Config{
		Remove: &config.RemoveCmd{Remotes: []string{"/a.txt"}},
	})

	g.Expect(err).NotTo(HaveOccurred())
	g.Expect(f.remote.Exists("/a.txt")).To(BeFalse())
	g.Expect(f.remote.Exists("/docs/guide.md")).To(BeTrue())
	g.Expect(f.out.String()).To(ContainSubstring("Deleted"))
}

func TestMkdirAndTouch(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	f := newFixture(t)
	ctx := context.Background()

	g.Expect(f.runner.Run(ctx, &config.Config{Mkdir: &config.CreateCmd{Parent: "/docs", Name: "drafts"}})).To(Succeed())
	g.Expect(f.runner.Run(ctx, &config.Config{Touch: &config.CreateCmd{Parent: "/", Name: " todo.txt "}})).To(Succeed())

	g.Expect(f.remote.Exists("/docs/drafts")).To(BeTrue())
	g.Expect(f.remote.Exists("/todo.txt")).To(BeTrue())
	g.Expect(f.out.String()).To(ContainSubstring("Created /docs/drafts"))
	g.Expect(f.out.String()).To(ContainSubstring("Created /todo.txt"))
}

func TestCreateReportsRefusedName(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	f := newFixture(t)
	err := f.runner.Create(context.Background(), "/", "a/b", true)

	g.Expect(errors.Is(err, errors.ErrValidation)).To(BeTrue())
	g.Expect(err.Error()).To(ContainSubstring("A name cannot contain /"))
}

func TestCreateReportsExistingEntry(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	f := newFixture(t)
	err := f.runner.Create(context.Background(), "/", "a.txt", false)

	g.Expect(err).To(HaveOccurred())
	g.Expect(err.Error()).To(ContainSubstring("a.txt"))
}

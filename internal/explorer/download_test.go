//nolint:varnamelen // Test files use idiomatic short variable names (t, g, h, etc.)
package explorer_test

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for gomega matchers

	"github.com/joe/device-explorer/internal/events"
	"github.com/joe/device-explorer/internal/transfer"
	"github.com/joe/device-explorer/internal/tree"
	"github.com/joe/device-explorer/pkg/errors"
	"github.com/joe/device-explorer/pkg/filesystem"
)

func musicLibrary(remote *filesystem.MockRemoteFileSystem) {
	remote.AddFile("/music/intro.mp3", []byte("intro")).
		AddFile("/music/album/one.mp3", []byte("one..")).
		AddFile("/music/album/two.mp3", []byte("two.."))
}

func TestDownload_DirectoryTree(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	h := newHarness(t, musicLibrary)
	h.expand(t, filesystem.Separator)
	music := h.handle(t, "/music")

	summary, err := h.explorer.Download(context.Background(), []tree.Handle{music}, "/out")
	g.Expect(err).ToNot(HaveOccurred())

	g.Expect(summary.Kind).To(Equal(transfer.Download))
	g.Expect(summary.FileCount).To(Equal(3))
	g.Expect(summary.DirectoryCount).To(Equal(2))
	g.Expect(summary.ByteCount).To(Equal(int64(15)))
	g.Expect(summary.Problems).To(BeEmpty())

	g.Expect(h.readLocal(t, "/out/music/intro.mp3")).To(Equal("intro"))
	g.Expect(h.readLocal(t, "/out/music/album/one.mp3")).To(Equal("one.."))
	g.Expect(h.readLocal(t, "/out/music/album/two.mp3")).To(Equal("two.."))

	album := h.handle(t, "/music/album")
	g.Expect(h.node(album).Loaded).To(BeTrue())
	intro := h.node(h.handle(t, "/music/intro.mp3"))
	g.Expect(intro.IsTransferring()).To(BeFalse())

	finished := events.Of[events.OperationFinished](h.events)
	g.Expect(finished).To(HaveLen(1))
	g.Expect(finished[0].Err).ToNot(HaveOccurred())
	g.Expect(finished[0].Message).To(ContainSubstring("Downloaded 3 files and 2 directories (15 B)"))

	progress := events.Of[events.ProgressChanged](h.events)
	g.Expect(progress).ToNot(BeEmpty())
	g.Expect(progress[0].Kind).To(Equal("download"))
}

func TestDownload_CountsEmptyFilesAndDirectories(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	h := newHarness(t, func(remote *filesystem.MockRemoteFileSystem) {
		remote.AddFile("/pack/ten.bin", []byte("0123456789")).
			AddFile("/pack/zero.bin", nil).
			AddFile("/pack/five.bin", []byte("01234")).
			AddDir("/pack/empty")
	})
	h.expand(t, filesystem.Separator)
	pack := h.handle(t, "/pack")

	summary, err := h.explorer.Download(context.Background(), []tree.Handle{pack}, "/out")
	g.Expect(err).ToNot(HaveOccurred())

	g.Expect(summary.FileCount).To(Equal(3))
	g.Expect(summary.DirectoryCount).To(Equal(2))
	g.Expect(summary.ByteCount).To(Equal(int64(15)))
	g.Expect(summary.Problems).To(BeEmpty())

	g.Expect(h.readLocal(t, "/out/pack/ten.bin")).To(Equal("0123456789"))
	g.Expect(h.readLocal(t, "/out/pack/zero.bin")).To(BeEmpty())
	g.Expect(h.readLocal(t, "/out/pack/five.bin")).To(Equal("01234"))

	info, err := h.store.Stat("/out/pack/empty")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(info.IsDir()).To(BeTrue())

	finished := events.Of[events.OperationFinished](h.events)
	g.Expect(finished).To(HaveLen(1))
	g.Expect(finished[0].Message).To(ContainSubstring("Downloaded 3 files and 2 directories (15 B)"))
}

func TestDownload_EmptyLocalDirUsesDefaultLocation(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	h := newHarness(t, musicLibrary)
	h.expand(t, "/music")
	intro := h.handle(t, "/music/intro.mp3")

	_, err := h.explorer.Download(context.Background(), []tree.Handle{intro}, "")
	g.Expect(err).ToNot(HaveOccurred())

	want := h.store.DefaultLocalPath("test-device", filesystem.FileEntry{Path: "/music/intro.mp3", Name: "intro.mp3"})
	g.Expect(h.readLocal(t, want)).To(Equal("intro"))
}

func TestDownload_FailedFileIsAProblem(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	h := newHarness(t, func(remote *filesystem.MockRemoteFileSystem) {
		musicLibrary(remote)
		remote.FailOn(filesystem.OpDownload, "/music/album/one.mp3", errors.New("connection reset"))
	})
	h.expand(t, filesystem.Separator)

	summary, err := h.explorer.Download(context.Background(), []tree.Handle{h.handle(t, "/music")}, "/out")
	g.Expect(err).To(MatchError(errors.ErrPartialFailure))

	g.Expect(summary.FileCount).To(Equal(2))
	g.Expect(summary.Problems).To(HaveLen(1))
	g.Expect(summary.Problems[0].Path).To(Equal("/music/album/one.mp3"))
	g.Expect(summary.Problems[0].Err).To(MatchError(errors.ErrRemoteIO))

	finished := events.Of[events.OperationFinished](h.events)
	g.Expect(finished).To(HaveLen(1))
	g.Expect(finished[0].Message).To(ContainSubstring("finished with 1 problem:"))
	g.Expect(finished[0].Message).To(ContainSubstring("Check that the device is still connected"))
}

func TestDownload_SymlinkRootIsResolvedAndFollowed(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	h := newHarness(t, func(remote *filesystem.MockRemoteFileSystem) {
		musicLibrary(remote)
		remote.AddSymlink("/favorites", "/music/album")
	})

	h.expand(t, filesystem.Separator)
	favorites := h.handle(t, "/favorites")

	summary, err := h.explorer.Download(context.Background(), []tree.Handle{favorites}, "/out")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(summary.FileCount).To(Equal(2))
	g.Expect(summary.DirectoryCount).To(Equal(1))
	g.Expect(h.readLocal(t, "/out/favorites/two.mp3")).To(Equal("two.."))
	g.Expect(h.node(favorites).LinkToDir).To(Equal(tree.True))
}

func TestDownload_BadLocalDirIsASetupError(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	h := newHarness(t, musicLibrary)
	h.expand(t, filesystem.Separator)
	g.Expect(h.store.WriteFile("/taken", []byte("file"))).To(Succeed())

	_, err := h.explorer.Download(context.Background(), []tree.Handle{h.handle(t, "/music")}, "/taken/sub")
	g.Expect(err).To(MatchError(errors.ErrLocalIO))

	g.Expect(h.calls(filesystem.OpDownload)).To(BeEmpty())
	g.Expect(events.Of[events.BusyStarted](h.events)).ToNot(ContainElement(
		events.BusyStarted{Node: tree.NoHandle, Reason: transfer.Download.String()}))
}

func TestDownload_RepaintsTransferringNodes(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	started := make(chan struct{})
	release := make(chan struct{})

	h := newHarness(t, musicLibrary)
	h.remote.OnCall(func(op, p string) {
		if op == filesystem.OpDownload && p == "/music/intro.mp3" {
			close(started)
			<-release
		}
	})
	h.expand(t, "/music")
	intro := h.handle(t, "/music/intro.mp3")

	done := make(chan error, 1)

	go func() {
		_, err := h.explorer.Download(context.Background(), []tree.Handle{intro}, "/out")
		done <- err
	}()

	<-started
	g.Eventually(func() bool { return h.node(intro).Downloading }).Should(BeTrue())
	g.Expect(h.clock.Tickers()).To(HaveLen(1))
	ticker := h.clock.Tickers()[0]

	h.clock.TickAll(100 * time.Millisecond)
	g.Eventually(func() int { return h.node(intro).Tick }).Should(Equal(1))
	g.Expect(events.Of[events.NodesRepaint](h.events)).To(ContainElement(events.NodesRepaint{Nodes: []tree.Handle{intro}}))

	close(release)
	g.Eventually(done).Should(Receive(BeNil()))
	g.Expect(h.node(intro).Downloading).To(BeFalse())

	h.clock.TickAll(100 * time.Millisecond)
	g.Eventually(ticker.Stopped).Should(BeTrue())
}

func TestDownload_SecondDownloadBackgroundsTheFirst(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	started := make(chan struct{})
	release := make(chan struct{})

	h := newHarness(t, musicLibrary)
	h.remote.OnCall(func(op, p string) {
		if op == filesystem.OpDownload && p == "/music/intro.mp3" {
			close(started)
			<-release
		}
	})
	h.expand(t, "/music/album")

	type result struct {
		summary transfer.Summary
		err     error
	}

	first := make(chan result, 1)

	go func() {
		summary, err := h.explorer.Download(context.Background(), []tree.Handle{h.handle(t, "/music/intro.mp3")}, "/out")
		first <- result{summary, err}
	}()

	<-started

	summary, err := h.explorer.Download(context.Background(), []tree.Handle{h.handle(t, "/music/album/one.mp3")}, "/out")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(summary.FileCount).To(Equal(1))

	close(release)

	var background result
	g.Eventually(first).Should(Receive(&background))
	g.Expect(background.err).ToNot(HaveOccurred())
	g.Expect(background.summary.FileCount).To(Equal(1))
	g.Expect(h.readLocal(t, "/out/intro.mp3")).To(Equal("intro"))

	finished := events.Of[events.OperationFinished](h.events)
	g.Expect(finished).To(HaveLen(1))
	g.Expect(finished[0].Message).To(ContainSubstring("Downloaded 1 file"))
}

func TestDownload_CancelStopsTheBatch(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	started := make(chan struct{})

	h := newHarness(t, musicLibrary)
	h.remote.StallOn(filesystem.OpDownload, "/music/album/one.mp3")
	h.remote.OnCall(func(op, p string) {
		if op == filesystem.OpDownload && p == "/music/album/one.mp3" {
			close(started)
		}
	})
	h.expand(t, filesystem.Separator)

	done := make(chan transfer.Summary, 1)

	go func() {
		summary, _ := h.explorer.Download(context.Background(), []tree.Handle{h.handle(t, "/music")}, "/out")
		done <- summary
	}()

	<-started
	h.explorer.Cancel()

	var summary transfer.Summary
	g.Eventually(done).Should(Receive(&summary))
	g.Expect(summary.Cancelled).To(BeTrue())
	g.Expect(summary.Err()).To(MatchError(errors.ErrUserCancelled))
	g.Expect(summary.Problems).To(BeEmpty())
	g.Expect(h.calls(filesystem.OpDownload)).ToNot(ContainElement("/music/intro.mp3"))

	finished := events.Of[events.OperationFinished](h.events)
	g.Expect(finished).To(HaveLen(1))
	g.Expect(finished[0].Message).To(ContainSubstring("Downloading cancelled"))
}

func TestEstimate_SizesWithoutTransferring(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	h := newHarness(t, musicLibrary)
	h.expand(t, filesystem.Separator)

	summary, err := h.explorer.Estimate(context.Background(), []tree.Handle{h.handle(t, "/music")})
	g.Expect(err).ToNot(HaveOccurred())

	g.Expect(summary.Kind).To(Equal(transfer.EstimateOnly))
	g.Expect(summary.FileCount).To(Equal(3))
	g.Expect(summary.DirectoryCount).To(Equal(2))
	g.Expect(summary.ByteCount).To(Equal(int64(15)))
	g.Expect(h.calls(filesystem.OpDownload)).To(BeEmpty())
}

//nolint:varnamelen // Test files use idiomatic short variable names (t, g, h, etc.)
package explorer_test

import (
	"context"
	"testing"
	"time"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for gomega matchers

	"github.com/joe/device-explorer/internal/events"
	"github.com/joe/device-explorer/internal/explorer"
	"github.com/joe/device-explorer/internal/transfer"
	"github.com/joe/device-explorer/internal/tree"
	"github.com/joe/device-explorer/pkg/errors"
	"github.com/joe/device-explorer/pkg/filesystem"
)

func deleteFixture(remote *filesystem.MockRemoteFileSystem) {
	remote.AddFile("/d/b.txt", []byte("b")).
		AddFile("/d/a.txt", []byte("a")).
		AddFile("/e/c.txt", []byte("c")).
		AddFile("/e/keep.txt", []byte("k"))
}

func TestDelete_RunsInPathOrderAndRefreshesEachParentOnce(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	h := newHarness(t, deleteFixture)
	d := h.expand(t, "/d")
	e := h.expand(t, "/e")

	selection := []tree.Handle{h.handle(t, "/e/c.txt"), h.handle(t, "/d/b.txt"), h.handle(t, "/d/a.txt")}
	listsBefore := len(h.calls(filesystem.OpList))

	summary, err := h.explorer.Delete(context.Background(), selection)
	g.Expect(err).ToNot(HaveOccurred())

	g.Expect(summary.Kind).To(Equal(transfer.Delete))
	g.Expect(summary.FileCount).To(Equal(3))
	g.Expect(h.calls(filesystem.OpDelete)).To(Equal([]string{"/d/a.txt", "/d/b.txt", "/e/c.txt"}))
	g.Expect(h.calls(filesystem.OpList)[listsBefore:]).To(Equal([]string{"/d", "/e"}))

	g.Expect(h.childNames(d)).To(BeEmpty())
	g.Expect(h.childNames(e)).To(Equal([]string{"keep.txt"}))
}

func TestDelete_SkipsEntriesInsideSelectedDirectories(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	h := newHarness(t, deleteFixture)
	h.expand(t, "/d")

	summary, err := h.explorer.Delete(context.Background(), []tree.Handle{h.handle(t, "/d/a.txt"), h.handle(t, "/d")})
	g.Expect(err).ToNot(HaveOccurred())

	g.Expect(h.calls(filesystem.OpDelete)).To(Equal([]string{"/d"}))
	g.Expect(summary.DirectoryCount).To(Equal(1))
	g.Expect(summary.FileCount).To(BeZero())
	g.Expect(h.childNames(h.explorer.Root())).To(Equal([]string{"e"}))
}

func TestDelete_EachItemHasItsOwnTimeout(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	h := newHarness(t, func(remote *filesystem.MockRemoteFileSystem) {
		deleteFixture(remote)
		remote.StallOn(filesystem.OpDelete, "/d/a.txt")
	}, func(opts *explorer.Options) {
		opts.Settings.AdminTimeout = 20 * time.Millisecond
	})
	h.expand(t, "/d")

	summary, err := h.explorer.Delete(context.Background(),
		[]tree.Handle{h.handle(t, "/d/a.txt"), h.handle(t, "/d/b.txt")})
	g.Expect(err).To(MatchError(errors.ErrPartialFailure))

	g.Expect(summary.FileCount).To(Equal(1))
	g.Expect(summary.Problems).To(HaveLen(1))
	g.Expect(summary.Problems[0].Path).To(Equal("/d/a.txt"))
	g.Expect(summary.Problems[0].Err).To(MatchError(errors.ErrTimeout))
	g.Expect(h.remote.Exists("/d/b.txt")).To(BeFalse())

	finished := events.Of[events.OperationFinished](h.events)
	g.Expect(finished).To(HaveLen(1))
	g.Expect(finished[0].Message).To(ContainSubstring("[timeout]"))
}

func TestDelete_RefusesOtherOperationsWhileRunning(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	started := make(chan struct{})

	h := newHarness(t, func(remote *filesystem.MockRemoteFileSystem) {
		deleteFixture(remote)
		remote.StallOn(filesystem.OpDelete, "/d/a.txt")
	})
	h.remote.OnCall(func(op, p string) {
		if op == filesystem.OpDelete && p == "/d/a.txt" {
			close(started)
		}
	})
	h.expand(t, "/d")
	h.expand(t, "/e")

	done := make(chan transfer.Summary, 1)

	go func() {
		summary, _ := h.explorer.Delete(context.Background(), []tree.Handle{h.handle(t, "/d/a.txt")})
		done <- summary
	}()

	<-started

	_, err := h.explorer.Download(context.Background(), []tree.Handle{h.handle(t, "/e/c.txt")}, "/out")
	g.Expect(err).To(MatchError(errors.ErrBusy))
	g.Expect(h.calls(filesystem.OpDownload)).To(BeEmpty())
	g.Expect(h.explorer.Background()).To(BeFalse())

	h.explorer.Preempt("device switch")

	var summary transfer.Summary
	g.Eventually(done).Should(Receive(&summary))
	g.Expect(summary.Cancelled).To(BeTrue())
	g.Expect(h.remote.Exists("/d/a.txt")).To(BeTrue())

	reported := events.Of[events.ErrorReported](h.events)
	g.Expect(reported).ToNot(BeEmpty())
	g.Expect(reported[0].Err).To(MatchError(errors.ErrBusy))
}

//nolint:varnamelen // Test files use idiomatic short variable names (t, g, h, etc.)
package explorer_test

import (
	"context"
	"testing"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for gomega matchers

	"github.com/joe/device-explorer/internal/events"
	"github.com/joe/device-explorer/internal/explorer"
	"github.com/joe/device-explorer/internal/transfer"
	"github.com/joe/device-explorer/pkg/errors"
	"github.com/joe/device-explorer/pkg/filesystem"
)

func writeLocal(t *testing.T, h *harness, files map[string]string) {
	t.Helper()

	for p, data := range files {
		if err := h.store.WriteFile(p, []byte(data)); err != nil {
			t.Fatalf("write %s: %v", p, err)
		}
	}
}

func TestUpload_MirrorsDirectory(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	h := newHarness(t, func(remote *filesystem.MockRemoteFileSystem) { remote.AddDir("/sdcard") })
	writeLocal(t, h, map[string]string{
		"/src/photos/a.jpg":     "aaa",
		"/src/photos/raw/b.dng": "bbbb",
	})
	sdcard := h.expand(t, "/sdcard")

	summary, err := h.explorer.Upload(context.Background(), sdcard, []string{"/src/photos"})
	g.Expect(err).ToNot(HaveOccurred())

	g.Expect(summary.Kind).To(Equal(transfer.Upload))
	g.Expect(summary.FileCount).To(Equal(2))
	g.Expect(summary.DirectoryCount).To(Equal(2))
	g.Expect(summary.ByteCount).To(Equal(int64(7)))

	data, ok := h.remote.ReadFile("/sdcard/photos/raw/b.dng")
	g.Expect(ok).To(BeTrue())
	g.Expect(string(data)).To(Equal("bbbb"))

	g.Expect(h.childNames(sdcard)).To(Equal([]string{"photos"}))
	g.Expect(events.Of[events.OperationFinished](h.events)[0].Message).
		To(ContainSubstring("Uploaded 2 files and 2 directories (7 B)"))
}

func TestUpload_OneFailedFileIsAProblemAndParentIsRefreshed(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	h := newHarness(t, func(remote *filesystem.MockRemoteFileSystem) {
		remote.AddDir("/sdcard")
		remote.FailOn(filesystem.OpUpload, "/sdcard/photos/b.jpg",
			errors.Local(filesystem.OpUpload, "/src/photos/b.jpg", errors.New("disk read failed")))
	})
	writeLocal(t, h, map[string]string{
		"/src/photos/a.jpg": "a",
		"/src/photos/b.jpg": "b",
		"/src/photos/c.jpg": "c",
	})
	sdcard := h.expand(t, "/sdcard")

	summary, err := h.explorer.Upload(context.Background(), sdcard, []string{"/src/photos"})
	g.Expect(err).To(MatchError(errors.ErrPartialFailure))

	g.Expect(summary.FileCount).To(Equal(2))
	g.Expect(summary.Problems).To(HaveLen(1))
	g.Expect(summary.Problems[0].Err).To(MatchError(errors.ErrLocalIO))

	g.Expect(h.remote.Exists("/sdcard/photos/a.jpg")).To(BeTrue())
	g.Expect(h.remote.Exists("/sdcard/photos/b.jpg")).To(BeFalse())
	g.Expect(h.remote.Exists("/sdcard/photos/c.jpg")).To(BeTrue())

	g.Expect(h.childNames(sdcard)).To(Equal([]string{"photos"}))
	g.Expect(h.calls(filesystem.OpList)).To(ContainElements("/sdcard/photos", "/sdcard"))
}

func TestUpload_ExistingDirectoryIsReused(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	h := newHarness(t, func(remote *filesystem.MockRemoteFileSystem) {
		remote.AddFile("/sdcard/photos/old.jpg", []byte("old"))
	})
	writeLocal(t, h, map[string]string{"/src/photos/new.jpg": "new"})
	sdcard := h.expand(t, "/sdcard")

	summary, err := h.explorer.Upload(context.Background(), sdcard, []string{"/src/photos"})
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(summary.FileCount).To(Equal(1))
	g.Expect(h.remote.Exists("/sdcard/photos/old.jpg")).To(BeTrue())
	g.Expect(h.remote.Exists("/sdcard/photos/new.jpg")).To(BeTrue())
}

func TestUpload_HiddenUploadIsReportedAsNotVisible(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	h := newHarness(t, func(remote *filesystem.MockRemoteFileSystem) {
		remote.AddDir("/sdcard")
	}, func(opts *explorer.Options) {
		opts.Hidden = []string{".*"}
	})
	writeLocal(t, h, map[string]string{"/src/.nomedia": "", "/src/song.mp3": "la"})
	sdcard := h.expand(t, "/sdcard")

	summary, err := h.explorer.Upload(context.Background(), sdcard, []string{"/src/.nomedia", "/src/song.mp3"})
	g.Expect(err).To(MatchError(errors.ErrPartialFailure))

	g.Expect(summary.FileCount).To(Equal(2))
	g.Expect(summary.Problems).To(HaveLen(1))
	g.Expect(summary.Problems[0].Path).To(Equal("/sdcard/.nomedia"))
	g.Expect(summary.Problems[0].Err).To(MatchError(explorer.ErrNotVisible))
	g.Expect(h.childNames(sdcard)).To(Equal([]string{"song.mp3"}))
}

func TestUpload_MissingLocalPathIsASetupError(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	h := newHarness(t, func(remote *filesystem.MockRemoteFileSystem) { remote.AddDir("/sdcard") })
	sdcard := h.expand(t, "/sdcard")

	_, err := h.explorer.Upload(context.Background(), sdcard, []string{"/does/not/exist"})
	g.Expect(err).To(MatchError(errors.ErrLocalIO))

	g.Expect(h.calls(filesystem.OpUpload)).To(BeEmpty())
	g.Expect(events.Of[events.OperationFinished](h.events)).To(BeEmpty())
}

func TestUpload_TargetMustBeADirectory(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	h := newHarness(t, func(remote *filesystem.MockRemoteFileSystem) {
		remote.AddFile("/notes.txt", []byte("n"))
	})
	writeLocal(t, h, map[string]string{"/src/a.txt": "a"})
	h.expand(t, filesystem.Separator)

	_, err := h.explorer.Upload(context.Background(), h.handle(t, "/notes.txt"), []string{"/src/a.txt"})
	g.Expect(err).To(MatchError(errors.ErrValidation))
}

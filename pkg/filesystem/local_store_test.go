//nolint:varnamelen // Test files use idiomatic short variable names (t, etc.)
package filesystem_test

import (
	"io"
	"syscall"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/device-explorer/pkg/filesystem"
)

func TestBillyStore_DefaultLocalPath(t *testing.T) {
	t.Parallel()

	store := filesystem.NewBillyStore(memfs.New(), "/mirror")

	tests := []struct {
		name   string
		device string
		path   string
		want   string
	}{
		{name: "plain path", device: "mem", path: "/sdcard/a.txt", want: "/mirror/mem/sdcard/a.txt"},
		{name: "device name sanitized", device: "u@h:22", path: "/x", want: "/mirror/u@h_22/x"},
		{name: "unsafe characters", device: "mem", path: "/d/what?*.txt", want: "/mirror/mem/d/what__.txt"},
		{name: "dot segments", device: "mem", path: "/d/../e", want: "/mirror/mem/d/_/e"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g := NewWithT(t)

			got := store.DefaultLocalPath(tt.device, filesystem.FileEntry{Path: tt.path})

			g.Expect(got).To(Equal(tt.want))
		})
	}
}

func TestBillyStore_CreateMakesParents(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	store := filesystem.NewBillyStore(memfs.New(), "/mirror")

	w, err := store.Create("/a/b/c.txt")
	g.Expect(err).ToNot(HaveOccurred())
	_, err = w.Write([]byte("hello"))
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(w.Close()).To(Succeed())

	r, err := store.Open("/a/b/c.txt")
	g.Expect(err).ToNot(HaveOccurred())
	defer r.Close()

	data, err := io.ReadAll(r)
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(string(data)).To(Equal("hello"))
}

func TestBillyStore_MkdirAllRefusesFileAncestor(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	store := filesystem.NewBillyStore(memfs.New(), "/mirror")
	g.Expect(store.WriteFile("/taken", []byte("file"))).To(Succeed())

	g.Expect(store.MkdirAll("/taken/sub")).To(MatchError(syscall.ENOTDIR))
	g.Expect(store.MkdirAll("/taken/sub/deeper")).To(MatchError(syscall.ENOTDIR))
	g.Expect(store.MkdirAll("/taken")).To(MatchError(syscall.ENOTDIR))

	_, err := store.Stat("/taken/sub")
	g.Expect(err).To(HaveOccurred())

	g.Expect(store.MkdirAll("/free/sub")).To(Succeed())
	g.Expect(store.MkdirAll("/free/sub")).To(Succeed())

	info, err := store.Stat("/free/sub")
	g.Expect(err).ToNot(HaveOccurred())
	g.Expect(info.IsDir()).To(BeTrue())
}

func TestBillyStore_RemoveIsRecursive(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	store := filesystem.NewBillyStore(memfs.New(), "/mirror")
	g.Expect(store.WriteFile("/tree/sub/f.txt", []byte("x"))).To(Succeed())

	g.Expect(store.Remove("/tree")).To(Succeed())

	_, err := store.Stat("/tree")
	g.Expect(err).To(HaveOccurred())
}

func TestLocalScanner_WalksTree(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	store := filesystem.NewBillyStore(memfs.New(), "/mirror")
	g.Expect(store.WriteFile("/up/a.txt", []byte("12345"))).To(Succeed())
	g.Expect(store.WriteFile("/up/sub/b.txt", []byte("1"))).To(Succeed())
	g.Expect(store.MkdirAll("/up/empty")).To(Succeed())

	scanner := store.Scan("/up")

	found := map[string]filesystem.FileInfo{}
	for {
		info, ok := scanner.Next()
		if !ok {
			break
		}

		found[info.RelativePath] = info
	}

	g.Expect(scanner.Err()).ToNot(HaveOccurred())
	g.Expect(found).To(HaveLen(4))
	g.Expect(found["a.txt"].Size).To(Equal(int64(5)))
	g.Expect(found["sub"].IsDir).To(BeTrue())
	g.Expect(found).To(HaveKey("sub/b.txt"))
	g.Expect(found["empty"].IsDir).To(BeTrue())
}

func TestLocalScanner_MissingRoot(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	store := filesystem.NewBillyStore(memfs.New(), "/mirror")
	scanner := store.Scan("/nope")

	_, ok := scanner.Next()

	g.Expect(ok).To(BeFalse())
	g.Expect(scanner.Err()).To(HaveOccurred())
}

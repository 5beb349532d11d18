//nolint:varnamelen // Test files use idiomatic short variable names (t, etc.)
package tree_test

import (
	"testing"

	. "github.com/onsi/gomega" //nolint:revive // Dot import is idiomatic for Gomega matchers

	"github.com/joe/device-explorer/internal/tree"
	"github.com/joe/device-explorer/pkg/filesystem"
)

func TestRestoreSelection(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	tr, _ := newTree()
	root := tr.Root()
	tr.UpdateChildren(root, []filesystem.FileEntry{dir("a"), dir("b"), file("c", 0)})
	a, _ := tr.Lookup("/root/a")
	b, _ := tr.Lookup("/root/b")
	c, _ := tr.Lookup("/root/c")
	tr.UpdateChildren(b, []filesystem.FileEntry{{Path: "/root/b/x", Name: "x"}})
	x, _ := tr.Lookup("/root/b/x")

	selection := [][]tree.Handle{tr.PathTo(c), tr.PathTo(x), tr.PathTo(a)}

	// a disappears, b keeps its node but loses x
	tr.UpdateChildren(b, nil)
	tr.UpdateChildren(root, []filesystem.FileEntry{dir("b"), file("c", 0)})

	restored := tr.RestoreSelection(selection)

	g.Expect(restored).To(Equal([]tree.Handle{c, b, root}))
}

func TestRestoreSelection_CollapsesDuplicates(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	tr, _ := newTree()
	root := tr.Root()
	tr.UpdateChildren(root, []filesystem.FileEntry{dir("a"), dir("b")})
	a, _ := tr.Lookup("/root/a")
	b, _ := tr.Lookup("/root/b")

	selection := [][]tree.Handle{tr.PathTo(a), tr.PathTo(b), tr.PathTo(a)}
	tr.UpdateChildren(root, nil)

	g.Expect(tr.RestoreSelection(selection)).To(Equal([]tree.Handle{root}))
}

func TestPathTo(t *testing.T) {
	t.Parallel()
	g := NewWithT(t)

	tr, _ := newTree()
	root := tr.Root()
	tr.UpdateChildren(root, []filesystem.FileEntry{dir("a")})
	a, _ := tr.Lookup("/root/a")

	g.Expect(tr.PathTo(a)).To(Equal([]tree.Handle{root, a}))
	g.Expect(tr.PathTo(tree.Handle(999))).To(BeNil())
}

// Package tree holds the explorer's in-memory mirror of the device
// filesystem. Nodes live in an arena keyed by Handle, so a refresh that keeps
// an entry keeps its node, its handle and whatever transfer state hangs on
// it. Structural edits are reported to an Observer.
package tree

import (
	"slices"

	"github.com/joe/device-explorer/pkg/filesystem"
)

// Observer receives structural changes. Indices refer to the parent's child
// list: before the edit for removals, after it for insertions.
type Observer interface {
	NodesInserted(parent Handle, children []Handle, indices []int)
	NodesRemoved(parent Handle, children []Handle, indices []int)
	NodeChanged(node Handle)
}

// Tree is not safe for concurrent use.
type Tree struct {
	nodes    map[Handle]*Node
	root     Handle
	last     Handle
	observer Observer
}

// New creates a tree whose root mirrors rootEntry.
func New(rootEntry filesystem.FileEntry, observer Observer) *Tree {
	if observer == nil {
		observer = nopObserver{}
	}

	t := &Tree{nodes: make(map[Handle]*Node), observer: observer} //nolint:varnamelen // t is the conventional receiver-style name

	root := t.newNode(NoHandle, rootEntry)
	root.HasChildren = true
	t.root = root.handle

	return t
}

// Root returns the root handle.
func (t *Tree) Root() Handle {
	return t.root
}

// Node returns the live node for h, or nil once it has been removed.
func (t *Tree) Node(h Handle) *Node {
	return t.nodes[h]
}

// Alive reports whether h still addresses a node.
func (t *Tree) Alive(h Handle) bool {
	_, ok := t.nodes[h]
	return ok
}

// Len returns the number of nodes, placeholders included.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Children returns a copy of the child handles of h.
func (t *Tree) Children(h Handle) []Handle {
	n := t.nodes[h] //nolint:varnamelen // n is idiomatic for node
	if n == nil {
		return nil
	}

	return slices.Clone(n.children)
}

// PathTo returns the handles from the root down to h, or nil if h is gone.
func (t *Tree) PathTo(h Handle) []Handle {
	var chain []Handle

	for cur := h; cur != NoHandle; {
		n := t.nodes[cur] //nolint:varnamelen // n is idiomatic for node
		if n == nil {
			return nil
		}

		chain = append(chain, cur)
		cur = n.parent
	}

	slices.Reverse(chain)

	return chain
}

// Lookup finds the loaded node for a remote path below the root.
func (t *Tree) Lookup(remotePath string) (Handle, bool) {
	for h, n := range t.nodes {
		if !n.IsPlaceholder() && n.Entry.Path == remotePath {
			return h, true
		}
	}

	return NoHandle, false
}

// Changed reports a non-structural change of h to the observer.
func (t *Tree) Changed(h Handle) {
	if t.Alive(h) {
		t.observer.NodeChanged(h)
	}
}

// ResetLoaded forces the next expansion of h to fetch its children again.
func (t *Tree) ResetLoaded(h Handle) {
	if n := t.nodes[h]; n != nil {
		n.Loaded = false
	}
}

// SetPlaceholder shows a loading or error placeholder as the last child of
// parent, replacing an existing placeholder. The next UpdateChildren drops it.
func (t *Tree) SetPlaceholder(parent Handle, kind NodeKind, message string) Handle {
	p := t.nodes[parent] //nolint:varnamelen // p is idiomatic for parent
	if p == nil || kind == KindEntry {
		return NoHandle
	}

	if last := len(p.children) - 1; last >= 0 {
		if old := t.nodes[p.children[last]]; old.IsPlaceholder() {
			t.removeAt(p, []int{last})
		}
	}

	ph := t.newNode(parent, filesystem.FileEntry{})
	ph.Kind = kind
	ph.Message = message

	p.children = append(p.children, ph.handle)
	p.HasChildren = true
	t.observer.NodesInserted(parent, []Handle{ph.handle}, []int{len(p.children) - 1})

	return ph.handle
}

// ClearPlaceholder removes parent's loading or error placeholder. It reports
// whether there was one.
func (t *Tree) ClearPlaceholder(parent Handle) bool {
	p := t.nodes[parent] //nolint:varnamelen // p is idiomatic for parent
	if p == nil {
		return false
	}

	last := len(p.children) - 1
	if last < 0 || !t.nodes[p.children[last]].IsPlaceholder() {
		return false
	}

	t.removeAt(p, []int{last})

	return true
}

// RestoreSelection maps previously selected root-to-node chains onto the
// current tree. A chain whose terminal node is still attached where it was
// survives as is; otherwise its deepest surviving ancestor is selected.
// Duplicates are collapsed, first occurrence wins.
func (t *Tree) RestoreSelection(paths [][]Handle) []Handle {
	seen := make(map[Handle]bool, len(paths))
	result := make([]Handle, 0, len(paths))

	for _, chain := range paths {
		survivor := NoHandle

		for i, h := range chain {
			n := t.nodes[h] //nolint:varnamelen // n is idiomatic for node
			if n == nil || n.IsPlaceholder() || (i > 0 && n.parent != chain[i-1]) || (i == 0 && h != t.root) {
				break
			}

			survivor = h
		}

		if survivor == NoHandle || seen[survivor] {
			continue
		}

		seen[survivor] = true
		result = append(result, survivor)
	}

	return result
}

func (t *Tree) newNode(parent Handle, entry filesystem.FileEntry) *Node {
	t.last++

	n := &Node{ //nolint:varnamelen // n is idiomatic for node
		Entry:       entry,
		HasChildren: entry.IsDir || entry.IsSymlink,
		handle:      t.last,
		parent:      parent,
	}
	t.nodes[n.handle] = n

	return n
}

// removeAt detaches the children of p at the given ascending indices and
// frees their subtrees.
func (t *Tree) removeAt(p *Node, indices []int) {
	if len(indices) == 0 {
		return
	}

	removed := make([]Handle, len(indices))
	for i, idx := range indices {
		removed[i] = p.children[idx]
	}

	kept := p.children[:0:0]
	next := 0

	for idx, h := range p.children {
		if next < len(indices) && indices[next] == idx {
			next++
			continue
		}

		kept = append(kept, h)
	}

	p.children = kept

	for _, h := range removed {
		t.free(h)
	}

	t.observer.NodesRemoved(p.handle, removed, indices)
}

func (t *Tree) free(h Handle) {
	n := t.nodes[h] //nolint:varnamelen // n is idiomatic for node
	if n == nil {
		return
	}

	for _, child := range n.children {
		t.free(child)
	}

	delete(t.nodes, h)
}

// realCount returns how many leading children are real entries;
// placeholders always trail.
func (t *Tree) realCount(p *Node) int {
	count := len(p.children)
	for count > 0 && t.nodes[p.children[count-1]].IsPlaceholder() {
		count--
	}

	return count
}

type nopObserver struct{}

func (nopObserver) NodesInserted(Handle, []Handle, []int) {}
func (nopObserver) NodesRemoved(Handle, []Handle, []int)  {}
func (nopObserver) NodeChanged(Handle)                    {}

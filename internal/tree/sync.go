package tree

import (
	"slices"

	"github.com/joe/device-explorer/pkg/filesystem"
)

// SortEntries returns entries in sibling order for parent. A symbolic link
// entry sorts by the classification already resolved for the same-named
// child, so a refresh does not undo an earlier reclassification. The input is
// returned as is when already ordered.
func (t *Tree) SortEntries(parent Handle, entries []filesystem.FileEntry) []filesystem.FileEntry {
	known := t.knownLinks(t.nodes[parent])

	return sortEntries(known, entries)
}

// UpdateChildren merges a fresh listing into parent's children and returns
// the handles of the nodes it created.
//
// Existing children and entries are walked together in sibling order. A
// child whose name and kind match an entry keeps its node and transient
// state and only has its entry replaced; entries without a match become new
// nodes; children without a match, and placeholders, are removed.
func (t *Tree) UpdateChildren(parent Handle, entries []filesystem.FileEntry) []Handle {
	p := t.nodes[parent] //nolint:varnamelen // p is idiomatic for parent
	if p == nil {
		return nil
	}

	known := t.knownLinks(p)
	entries = sortEntries(known, entries)

	type update struct {
		node  *Node
		entry filesystem.FileEntry
	}

	type insert struct {
		slot  int
		entry filesystem.FileEntry
	}

	var (
		removeIdx []int
		updates   []update
		inserts   []insert
		final     = make([]Handle, 0, len(entries))
	)

	oldCount := t.realCount(p)
	i, j := 0, 0 //nolint:varnamelen // merge cursors

	for i < oldCount || j < len(entries) {
		switch {
		case i == oldCount:
			inserts = append(inserts, insert{slot: len(final), entry: entries[j]})
			final = append(final, NoHandle)
			j++
		case j == len(entries):
			removeIdx = append(removeIdx, i)
			i++
		default:
			n, e := t.nodes[p.children[i]], entries[j] //nolint:varnamelen // merge pair

			if n.Entry.Name == e.Name && sameKind(n.Entry, e) {
				updates = append(updates, update{node: n, entry: e})
				final = append(final, n.handle)
				i++
				j++

				continue
			}

			c := compareKeys(n.IsDirectoryLike(), n.Entry.Name, directoryLike(e, known[e.Name]), e.Name)
			if c <= 0 {
				removeIdx = append(removeIdx, i)
				i++
			}

			if c >= 0 {
				inserts = append(inserts, insert{slot: len(final), entry: e})
				final = append(final, NoHandle)
				j++
			}
		}
	}

	for idx := oldCount; idx < len(p.children); idx++ {
		removeIdx = append(removeIdx, idx)
	}

	t.removeAt(p, removeIdx)

	for _, u := range updates {
		if !sameEntry(u.node.Entry, u.entry) {
			u.node.Entry = u.entry
			t.observer.NodeChanged(u.node.handle)
		}
	}

	added := make([]Handle, 0, len(inserts))
	slots := make([]int, 0, len(inserts))

	for _, ins := range inserts {
		n := t.newNode(parent, ins.entry) //nolint:varnamelen // n is idiomatic for node
		final[ins.slot] = n.handle
		added = append(added, n.handle)
		slots = append(slots, ins.slot)
	}

	p.children = final
	p.HasChildren = len(final) > 0

	if len(added) > 0 {
		t.observer.NodesInserted(parent, added, slots)
	}

	return added
}

// Reclassify records whether the symbolic link h points at a directory. When
// the resolved value differs from the recorded one the node is removed from
// its parent and inserted again at its sorted position, reported as two
// structural edits so views re-render the row. It returns whether that
// happened.
func (t *Tree) Reclassify(h Handle, isDir bool) bool {
	n := t.nodes[h] //nolint:varnamelen // n is idiomatic for node
	if n == nil || n.IsPlaceholder() || !n.Entry.IsSymlink {
		return false
	}

	resolved := TristateOf(isDir)
	if n.LinkToDir == resolved {
		return false
	}

	p := t.nodes[n.parent] //nolint:varnamelen // p is idiomatic for parent
	if p == nil {
		n.LinkToDir = resolved
		n.HasChildren = isDir

		return false
	}

	from := t.indexOf(p, n)

	n.LinkToDir = resolved
	n.HasChildren = isDir

	if from < 0 {
		return false
	}

	p.children = slices.Delete(p.children, from, from+1)
	t.observer.NodesRemoved(p.handle, []Handle{h}, []int{from})

	to, _ := slices.BinarySearchFunc(p.children[:t.realCount(p)], n, t.compareHandle)
	p.children = slices.Insert(p.children, to, h)
	t.observer.NodesInserted(p.handle, []Handle{h}, []int{to})

	return true
}

// indexOf finds n among p's children by binary search, falling back to a
// scan if the order was disturbed.
func (t *Tree) indexOf(p, n *Node) int {
	idx, found := slices.BinarySearchFunc(p.children[:t.realCount(p)], n, t.compareHandle)
	if found && p.children[idx] == n.handle {
		return idx
	}

	return slices.Index(p.children, n.handle)
}

func (t *Tree) compareHandle(h Handle, target *Node) int {
	return compareNodes(t.nodes[h], target)
}

func (t *Tree) knownLinks(p *Node) map[string]Tristate {
	known := map[string]Tristate{}
	if p == nil {
		return known
	}

	for _, h := range p.children {
		if n := t.nodes[h]; n.Entry.IsSymlink && n.LinkToDir != Unknown {
			known[n.Entry.Name] = n.LinkToDir
		}
	}

	return known
}

func sortEntries(known map[string]Tristate, entries []filesystem.FileEntry) []filesystem.FileEntry {
	cmp := func(a, b filesystem.FileEntry) int {
		return compareKeys(directoryLike(a, known[a.Name]), a.Name, directoryLike(b, known[b.Name]), b.Name)
	}

	if slices.IsSortedFunc(entries, cmp) {
		return entries
	}

	sorted := slices.Clone(entries)
	slices.SortStableFunc(sorted, cmp)

	return sorted
}

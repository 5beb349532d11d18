package tree

import (
	"strings"

	"github.com/joe/device-explorer/pkg/filesystem"
)

// Handle addresses a node. Handles are never reused within a Tree; the zero
// Handle addresses nothing.
type Handle uint64

// NoHandle is the zero Handle.
const NoHandle Handle = 0

// Tristate is a boolean that may not be known yet.
type Tristate int

// Tristate values.
const (
	Unknown Tristate = iota
	True
	False
)

// TristateOf converts a resolved boolean.
func TristateOf(b bool) Tristate {
	if b {
		return True
	}

	return False
}

func (t Tristate) String() string {
	switch t {
	case True:
		return "true"
	case False:
		return "false"
	default:
		return "unknown"
	}
}

// NodeKind distinguishes real entries from placeholders.
type NodeKind int

// Node kinds.
const (
	KindEntry NodeKind = iota
	KindLoading
	KindError
)

// Progress is the byte progress of a transfer running on a node.
type Progress struct {
	Current int64
	Total   int64
}

// Node mirrors one remote entry plus the transient state the explorer hangs
// on it. Fields are read and written only on the coordination goroutine.
type Node struct {
	Entry filesystem.FileEntry
	Kind  NodeKind
	// Message is the text of an error placeholder.
	Message string

	Loaded      bool
	Downloading bool
	Uploading   bool
	Progress    Progress
	Tick        int
	LinkToDir   Tristate
	HasChildren bool

	handle   Handle
	parent   Handle
	children []Handle
}

// Handle returns the node's handle.
func (n *Node) Handle() Handle { return n.handle }

// Parent returns the parent handle, NoHandle for the root.
func (n *Node) Parent() Handle { return n.parent }

// IsPlaceholder reports whether the node is a loading or error placeholder.
func (n *Node) IsPlaceholder() bool { return n.Kind != KindEntry }

// IsTransferring reports whether bytes are moving for this node.
func (n *Node) IsTransferring() bool { return n.Downloading || n.Uploading }

// IsDirectoryLike reports whether the node sorts with directories: real
// directories, and symbolic links not known to point elsewhere.
func (n *Node) IsDirectoryLike() bool {
	return directoryLike(n.Entry, n.LinkToDir)
}

// IsExpandable reports whether the node can hold children.
func (n *Node) IsExpandable() bool {
	return n.Entry.IsDir || (n.Entry.IsSymlink && n.LinkToDir == True)
}

func directoryLike(entry filesystem.FileEntry, linkToDir Tristate) bool {
	if entry.IsSymlink {
		return linkToDir != False
	}

	return entry.IsDir
}

// compareKeys orders siblings: directory-like first, then case-insensitive
// name, then exact name.
func compareKeys(aDir bool, aName string, bDir bool, bName string) int {
	if aDir != bDir {
		if aDir {
			return -1
		}

		return 1
	}

	if c := strings.Compare(strings.ToLower(aName), strings.ToLower(bName)); c != 0 {
		return c
	}

	return strings.Compare(aName, bName)
}

func compareNodes(a, b *Node) int {
	return compareKeys(a.IsDirectoryLike(), a.Entry.Name, b.IsDirectoryLike(), b.Entry.Name)
}

func sameKind(a, b filesystem.FileEntry) bool {
	return a.IsDir == b.IsDir && a.IsSymlink == b.IsSymlink
}

func sameEntry(a, b filesystem.FileEntry) bool {
	return a.Path == b.Path && a.Name == b.Name && sameKind(a, b) &&
		a.Size == b.Size && a.ModTime.Equal(b.ModTime)
}

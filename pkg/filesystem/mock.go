package filesystem

import (
	"bytes"
	"context"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/joe/device-explorer/pkg/errors"
	"github.com/joe/device-explorer/pkg/fileops"
)

// MockRemoteFileSystem is an in-memory device for tests and the mem:// demo
// device. It records every call and supports failure and stall injection.
type MockRemoteFileSystem struct {
	mu       sync.Mutex
	nodes    map[string]*mockNode
	local    LocalFileStore
	failures map[string]error
	stalls   map[string]bool
	calls    []Call
	onCall   func(op, path string)
	modTime  time.Time
}

// Call is one recorded RemoteFileSystem invocation.
type Call struct {
	Op   string
	Path string
}

type mockNode struct {
	entry  FileEntry
	data   []byte
	target string
}

// NewMockRemoteFileSystem returns a device holding only the root directory.
// Downloads and uploads go through local.
func NewMockRemoteFileSystem(local LocalFileStore) *MockRemoteFileSystem {
	m := &MockRemoteFileSystem{ //nolint:varnamelen // m is the receiver-style name used throughout
		nodes:    make(map[string]*mockNode),
		local:    local,
		failures: make(map[string]error),
		stalls:   make(map[string]bool),
		modTime:  time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
	}
	m.nodes[Separator] = &mockNode{entry: FileEntry{Path: Separator, Name: Separator, IsDir: true, ModTime: m.modTime}}

	return m
}

// AddDir creates p and any missing parents.
func (m *MockRemoteFileSystem) AddDir(p string) *MockRemoteFileSystem {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.addDirLocked(path.Clean(p))

	return m
}

// AddFile creates a file holding data, creating missing parents.
func (m *MockRemoteFileSystem) AddFile(p string, data []byte) *MockRemoteFileSystem {
	m.mu.Lock()
	defer m.mu.Unlock()

	p = path.Clean(p)
	m.addDirLocked(ParentPath(p))
	m.nodes[p] = &mockNode{
		entry: FileEntry{Path: p, Name: path.Base(p), Size: int64(len(data)), ModTime: m.modTime},
		data:  append([]byte(nil), data...),
	}

	return m
}

// AddSymlink creates a link at p pointing at target. The target does not
// have to exist.
func (m *MockRemoteFileSystem) AddSymlink(p, target string) *MockRemoteFileSystem {
	m.mu.Lock()
	defer m.mu.Unlock()

	p = path.Clean(p)
	m.addDirLocked(ParentPath(p))
	m.nodes[p] = &mockNode{
		entry:  FileEntry{Path: p, Name: path.Base(p), IsSymlink: true, ModTime: m.modTime},
		target: path.Clean(target),
	}

	return m
}

// FailOn makes every op call on p fail with err. A nil err clears the
// injection.
func (m *MockRemoteFileSystem) FailOn(op, p string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err == nil {
		delete(m.failures, op+" "+p)
		return
	}

	m.failures[op+" "+p] = err
}

// StallOn makes op calls on p block until their context is done.
func (m *MockRemoteFileSystem) StallOn(op, p string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.stalls[op+" "+p] = true
}

// OnCall installs a hook invoked at the start of every call, before the
// context is checked.
func (m *MockRemoteFileSystem) OnCall(fn func(op, path string)) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.onCall = fn
}

// Calls returns the recorded calls in order.
func (m *MockRemoteFileSystem) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]Call(nil), m.calls...)
}

// CallCount returns how many op calls were made.
func (m *MockRemoteFileSystem) CallCount(op string) int {
	count := 0

	for _, c := range m.Calls() {
		if c.Op == op {
			count++
		}
	}

	return count
}

// Exists reports whether p exists on the device.
func (m *MockRemoteFileSystem) Exists(p string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.nodes[path.Clean(p)]

	return ok
}

// ReadFile returns the contents of the file at p.
func (m *MockRemoteFileSystem) ReadFile(p string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	node, ok := m.nodes[path.Clean(p)]
	if !ok || node.entry.IsDir {
		return nil, false
	}

	return append([]byte(nil), node.data...), true
}

// CreateDirectory implements RemoteFileSystem.
func (m *MockRemoteFileSystem) CreateDirectory(ctx context.Context, parentPath, name string) error {
	target := JoinPath(parentPath, name)
	if err := m.begin(ctx, OpCreateDirectory, target); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkCreatableLocked(parentPath, target); err != nil {
		return errors.Remote(OpCreateDirectory, target, err)
	}

	m.nodes[target] = &mockNode{entry: FileEntry{Path: target, Name: name, IsDir: true, ModTime: m.modTime}}

	return nil
}

// CreateFile implements RemoteFileSystem.
func (m *MockRemoteFileSystem) CreateFile(ctx context.Context, parentPath, name string) error {
	target := JoinPath(parentPath, name)
	if err := m.begin(ctx, OpCreateFile, target); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.checkCreatableLocked(parentPath, target); err != nil {
		return errors.Remote(OpCreateFile, target, err)
	}

	m.nodes[target] = &mockNode{entry: FileEntry{Path: target, Name: name, ModTime: m.modTime}}

	return nil
}

// Delete implements RemoteFileSystem. Directories go with their contents.
func (m *MockRemoteFileSystem) Delete(ctx context.Context, entry FileEntry) error {
	if err := m.begin(ctx, OpDelete, entry.Path); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	node, ok := m.nodes[entry.Path]
	if !ok {
		return errors.Remote(OpDelete, entry.Path, os.ErrNotExist)
	}

	delete(m.nodes, entry.Path)

	if node.entry.IsDir {
		prefix := entry.Path + Separator
		for p := range m.nodes {
			if len(p) > len(prefix) && p[:len(prefix)] == prefix {
				delete(m.nodes, p)
			}
		}
	}

	return nil
}

// Download implements RemoteFileSystem.
func (m *MockRemoteFileSystem) Download(
	ctx context.Context, entry FileEntry, localPath string, onProgress ProgressFunc,
) error {
	if err := m.begin(ctx, OpDownload, entry.Path); err != nil {
		return err
	}

	m.mu.Lock()
	node, err := m.resolveLocked(entry.Path)
	var data []byte
	if err == nil {
		if node.entry.IsDir {
			err = errors.Validationf("%s is a directory", entry.Path)
		} else {
			data = append([]byte(nil), node.data...)
		}
	}
	m.mu.Unlock()

	if err != nil {
		return errors.Remote(OpDownload, entry.Path, err)
	}

	dst, err := m.local.Create(localPath)
	if err != nil {
		return errors.Local(OpDownload, localPath, err)
	}

	_, err = fileops.CopyWithProgress(ctx, dst, bytes.NewReader(data), int64(len(data)),
		fileops.ProgressCallback(onProgress))
	if closeErr := dst.Close(); err == nil && closeErr != nil {
		err = closeErr
	}

	if err != nil {
		_ = m.local.Remove(localPath)
		return errors.Local(OpDownload, localPath, err)
	}

	return nil
}

// IsSymlinkToDirectory implements RemoteFileSystem.
func (m *MockRemoteFileSystem) IsSymlinkToDirectory(ctx context.Context, entry FileEntry) (bool, error) {
	if err := m.begin(ctx, OpResolveLink, entry.Path); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	node, err := m.resolveLocked(entry.Path)
	if err != nil {
		return false, errors.Remote(OpResolveLink, entry.Path, err)
	}

	return node.entry.IsDir, nil
}

// ListEntries implements RemoteFileSystem. Entries come back ordered by
// exact name, which is not the explorer's display order.
func (m *MockRemoteFileSystem) ListEntries(ctx context.Context, dir string) ([]FileEntry, error) {
	if err := m.begin(ctx, OpList, dir); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	dir = path.Clean(dir)

	node, err := m.resolveLocked(dir)
	if err != nil {
		return nil, errors.Remote(OpList, dir, err)
	}

	if !node.entry.IsDir {
		return nil, errors.Remote(OpList, dir, errors.Validationf("%s is not a directory", dir))
	}

	entries := make([]FileEntry, 0)

	for p, child := range m.nodes {
		if p != node.entry.Path && ParentPath(p) == node.entry.Path {
			entry := child.entry
			entry.Path = JoinPath(dir, entry.Name)
			entries = append(entries, entry)
		}
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })

	return entries, nil
}

// Upload implements RemoteFileSystem.
func (m *MockRemoteFileSystem) Upload(
	ctx context.Context, localPath, parentPath string, onProgress ProgressFunc,
) error {
	target := JoinPath(parentPath, filepath.Base(localPath))
	if err := m.begin(ctx, OpUpload, target); err != nil {
		return err
	}

	src, err := m.local.Open(localPath)
	if err != nil {
		return errors.Local(OpUpload, localPath, err)
	}
	defer src.Close()

	var buf bytes.Buffer

	info, err := m.local.Stat(localPath)
	if err != nil {
		return errors.Local(OpUpload, localPath, err)
	}

	if _, err := fileops.CopyWithProgress(ctx, &buf, src, info.Size(), fileops.ProgressCallback(onProgress)); err != nil {
		return errors.Local(OpUpload, localPath, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	parent, ok := m.nodes[path.Clean(parentPath)]
	if !ok || !parent.entry.IsDir {
		return errors.Remote(OpUpload, target, os.ErrNotExist)
	}

	m.nodes[target] = &mockNode{
		entry: FileEntry{Path: target, Name: path.Base(target), Size: int64(buf.Len()), ModTime: m.modTime},
		data:  buf.Bytes(),
	}

	return nil
}

// begin records the call, runs the hook and applies injected behaviour.
func (m *MockRemoteFileSystem) begin(ctx context.Context, op, p string) error {
	m.mu.Lock()
	m.calls = append(m.calls, Call{Op: op, Path: p})
	hook := m.onCall
	injected := m.failures[op+" "+p]
	stalled := m.stalls[op+" "+p]
	m.mu.Unlock()

	if hook != nil {
		hook(op, p)
	}

	if stalled {
		<-ctx.Done()
	}

	if err := ctx.Err(); err != nil {
		return errors.Remote(op, p, err)
	}

	return errors.Remote(op, p, injected)
}

func (m *MockRemoteFileSystem) addDirLocked(p string) {
	for ; ; p = ParentPath(p) {
		if _, ok := m.nodes[p]; ok {
			return
		}

		m.nodes[p] = &mockNode{entry: FileEntry{Path: p, Name: path.Base(p), IsDir: true, ModTime: m.modTime}}
	}
}

func (m *MockRemoteFileSystem) checkCreatableLocked(parentPath, target string) error {
	parent, ok := m.nodes[path.Clean(parentPath)]
	if !ok || !parent.entry.IsDir {
		return os.ErrNotExist
	}

	if _, exists := m.nodes[target]; exists {
		return os.ErrExist
	}

	return nil
}

// resolveLocked follows symbolic links in every component of p, giving up
// on cycles. Relative link targets are taken from the link's directory.
func (m *MockRemoteFileSystem) resolveLocked(p string) (*mockNode, error) {
	const maxHops = 16

	hops := 0
	current := Separator
	rest := splitPath(p)

	for len(rest) > 0 {
		current = JoinPath(current, rest[0])
		rest = rest[1:]

		node, ok := m.nodes[current]
		if !ok {
			return nil, os.ErrNotExist
		}

		if !node.entry.IsSymlink {
			continue
		}

		if hops++; hops > maxHops {
			return nil, errors.Validationf("too many levels of symbolic links at %s", p)
		}

		target := node.target
		if !path.IsAbs(target) {
			target = JoinPath(ParentPath(current), target)
		}

		rest = append(splitPath(target), rest...)
		current = Separator
	}

	return m.nodes[current], nil
}

func splitPath(p string) []string {
	trimmed := strings.Trim(path.Clean(p), Separator)
	if trimmed == "" {
		return nil
	}

	return strings.Split(trimmed, Separator)
}

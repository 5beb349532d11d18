package filesystem

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/joe/device-explorer/pkg/fileops"
)

// BillyStore is the LocalFileStore over a go-billy filesystem. Default
// download locations live under mirrorRoot, namespaced per device.
type BillyStore struct {
	fs         billy.Filesystem
	mirrorRoot string
}

// NewBillyStore wraps bfs. Paths passed to the store are interpreted by bfs.
func NewBillyStore(bfs billy.Filesystem, mirrorRoot string) *BillyStore {
	return &BillyStore{fs: bfs, mirrorRoot: mirrorRoot}
}

// NewOSStore returns a store on the host filesystem. Callers pass absolute
// paths.
func NewOSStore(mirrorRoot string) (*BillyStore, error) {
	abs, err := filepath.Abs(mirrorRoot)
	if err != nil {
		return nil, fmt.Errorf("resolving mirror root %s: %w", mirrorRoot, err)
	}

	return NewBillyStore(osfs.New(string(filepath.Separator)), abs), nil
}

// Create opens path for writing, creating missing parent directories and
// truncating an existing file.
func (s *BillyStore) Create(path string) (io.WriteCloser, error) {
	if err := s.MkdirAll(filepath.Dir(path)); err != nil {
		return nil, err
	}

	f, err := s.fs.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating %s: %w", path, err)
	}

	return f, nil
}

// DefaultLocalPath maps a remote entry to mirrorRoot/<device>/<remote path>.
// Characters that are unsafe in local file names are replaced.
func (s *BillyStore) DefaultLocalPath(device string, entry FileEntry) string {
	parts := []string{s.mirrorRoot, sanitizeSegment(device)}

	for _, segment := range strings.Split(entry.Path, Separator) {
		if segment == "" {
			continue
		}

		parts = append(parts, sanitizeSegment(segment))
	}

	return s.fs.Join(parts...)
}

// Join joins path elements with the store's separator.
func (s *BillyStore) Join(elem ...string) string {
	return s.fs.Join(elem...)
}

// MirrorRoot returns the directory default download paths live under.
func (s *BillyStore) MirrorRoot() string {
	return s.mirrorRoot
}

// MkdirAll creates path and any missing parents. Like the host filesystem,
// it fails when an existing ancestor is not a directory.
func (s *BillyStore) MkdirAll(path string) error {
	for dir := filepath.Clean(path); ; dir = filepath.Dir(dir) {
		info, err := s.fs.Stat(dir)
		if err == nil {
			if !info.IsDir() {
				return fmt.Errorf("creating directory %s: %s: %w", path, dir, syscall.ENOTDIR)
			}

			break
		}

		if parent := filepath.Dir(dir); parent == dir {
			break
		}
	}

	if err := s.fs.MkdirAll(path, fileops.DefaultDirPermissions); err != nil {
		return fmt.Errorf("creating directory %s: %w", path, err)
	}

	return nil
}

// Open opens path for reading.
func (s *BillyStore) Open(path string) (io.ReadCloser, error) {
	f, err := s.fs.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	return f, nil
}

// ReadDir lists path.
func (s *BillyStore) ReadDir(path string) ([]os.FileInfo, error) {
	infos, err := s.fs.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("reading directory %s: %w", path, err)
	}

	return infos, nil
}

// Remove deletes path, recursively for directories.
func (s *BillyStore) Remove(path string) error {
	if err := util.RemoveAll(s.fs, path); err != nil {
		return fmt.Errorf("removing %s: %w", path, err)
	}

	return nil
}

// Scan walks the tree below root.
func (s *BillyStore) Scan(root string) FileScanner {
	return NewLocalScanner(s.fs, root)
}

// Stat describes path.
func (s *BillyStore) Stat(path string) (os.FileInfo, error) {
	info, err := s.fs.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	return info, nil
}

// WriteFile is a convenience used by fixtures and the demo device.
func (s *BillyStore) WriteFile(path string, data []byte) error {
	if err := s.MkdirAll(filepath.Dir(path)); err != nil {
		return err
	}

	if err := util.WriteFile(s.fs, path, data, fileops.DefaultFilePermissions); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}

	return nil
}

func sanitizeSegment(segment string) string {
	if segment == "." || segment == ".." {
		return "_"
	}

	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f || strings.ContainsRune(`<>:"\|?*`, r) {
			return '_'
		}

		return r
	}, segment)
}

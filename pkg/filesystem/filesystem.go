// Package filesystem provides the two I/O surfaces of the device explorer:
// the remote device filesystem and the local store that downloads land in and
// uploads are read from. Both are interfaces so the engine can be driven by
// the in-memory implementations in tests.
package filesystem

import (
	"context"
	"io"
	"os"
	"path"
	"time"
)

// Separator is the remote path separator. Entry names may never contain it.
const Separator = "/"

// Remote operation names, used for call logs, failure injection and metrics.
const (
	OpCreateDirectory = "mkdir"
	OpCreateFile      = "touch"
	OpDelete          = "delete"
	OpDownload        = "download"
	OpList            = "list"
	OpResolveLink     = "resolve-link"
	OpUpload          = "upload"
)

// FileEntry describes one object on the device.
// Whether a symbolic link points at a directory is not part of the entry; it
// has to be asked for with RemoteFileSystem.IsSymlinkToDirectory.
type FileEntry struct {
	Path      string
	Name      string
	IsDir     bool
	IsSymlink bool
	Size      int64
	ModTime   time.Time
}

// ProgressFunc receives cumulative byte counts while a file is transferred.
type ProgressFunc func(transferred, total int64)

// RemoteFileSystem is the device side. Every call blocks until the device
// answered or ctx is done; implementations tag failures with errors.Remote or
// errors.Local depending on which side failed.
type RemoteFileSystem interface {
	ListEntries(ctx context.Context, dir string) ([]FileEntry, error)
	Download(ctx context.Context, entry FileEntry, localPath string, onProgress ProgressFunc) error
	Upload(ctx context.Context, localPath, parentPath string, onProgress ProgressFunc) error
	CreateFile(ctx context.Context, parentPath, name string) error
	CreateDirectory(ctx context.Context, parentPath, name string) error
	Delete(ctx context.Context, entry FileEntry) error
	IsSymlinkToDirectory(ctx context.Context, entry FileEntry) (bool, error)
}

// LocalFileStore materializes downloads and serves uploads.
type LocalFileStore interface {
	MkdirAll(path string) error
	Create(path string) (io.WriteCloser, error)
	Open(path string) (io.ReadCloser, error)
	Stat(path string) (os.FileInfo, error)
	ReadDir(path string) ([]os.FileInfo, error)
	Remove(path string) error
	Join(elem ...string) string
	Scan(root string) FileScanner
	DefaultLocalPath(device string, entry FileEntry) string
}

// JoinPath joins a remote parent path and a child name.
func JoinPath(parent, name string) string {
	return path.Join(parent, name)
}

// ParentPath returns the remote parent directory of p.
func ParentPath(p string) string {
	return path.Dir(p)
}

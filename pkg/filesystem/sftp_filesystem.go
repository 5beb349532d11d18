package filesystem

import (
	"context"
	"io"
	"os"
	"path/filepath"

	"github.com/pkg/sftp"

	"github.com/joe/device-explorer/pkg/errors"
	"github.com/joe/device-explorer/pkg/fileops"
)

// DefaultPoolSize leaves one session for browsing while a transfer streams.
const DefaultPoolSize = 2

// SFTPFileSystem implements RemoteFileSystem for a device reachable over SSH.
// Downloads land in, and uploads are read from, the given LocalFileStore.
type SFTPFileSystem struct {
	pool  *SFTPClientPool
	local LocalFileStore
}

// NewSFTPFileSystem creates a remote filesystem on an established connection.
func NewSFTPFileSystem(conn *SFTPConnection, local LocalFileStore, poolSize int) (*SFTPFileSystem, error) {
	if poolSize <= 0 {
		poolSize = DefaultPoolSize
	}

	pool, err := NewSFTPClientPool(conn.SSHClient(), poolSize)
	if err != nil {
		return nil, errors.Remote("connect", conn.Device().Name(), err)
	}

	return &SFTPFileSystem{pool: pool, local: local}, nil
}

// Close closes the SFTP client pool and releases all resources.
func (fs *SFTPFileSystem) Close() error {
	if fs.pool != nil {
		return fs.pool.Close()
	}

	return nil
}

// CreateDirectory creates parentPath/name. It fails if the name exists.
func (fs *SFTPFileSystem) CreateDirectory(ctx context.Context, parentPath, name string) error {
	target := JoinPath(parentPath, name)

	return fs.withClient(ctx, OpCreateDirectory, target, func(client *sftp.Client) error {
		return client.Mkdir(target) //nolint:wrapcheck // Tagged by withClient
	})
}

// CreateFile creates an empty file parentPath/name. It fails if the name
// exists.
func (fs *SFTPFileSystem) CreateFile(ctx context.Context, parentPath, name string) error {
	target := JoinPath(parentPath, name)

	return fs.withClient(ctx, OpCreateFile, target, func(client *sftp.Client) error {
		file, err := client.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_EXCL)
		if err != nil {
			return err //nolint:wrapcheck // Tagged by withClient
		}

		return file.Close() //nolint:wrapcheck // Tagged by withClient
	})
}

// Delete removes the entry. Directories are removed recursively; symbolic
// links are removed without following them.
func (fs *SFTPFileSystem) Delete(ctx context.Context, entry FileEntry) error {
	return fs.withClient(ctx, OpDelete, entry.Path, func(client *sftp.Client) error {
		if entry.IsDir && !entry.IsSymlink {
			return client.RemoveAll(entry.Path) //nolint:wrapcheck // Tagged by withClient
		}

		return client.Remove(entry.Path) //nolint:wrapcheck // Tagged by withClient
	})
}

// Download streams entry into localPath. A partially written local file is
// removed when the copy fails.
func (fs *SFTPFileSystem) Download(
	ctx context.Context, entry FileEntry, localPath string, onProgress ProgressFunc,
) error {
	client, err := fs.pool.Acquire(ctx)
	if err != nil {
		return errors.Remote(OpDownload, entry.Path, err)
	}

	remote, err := client.Open(entry.Path)
	if err != nil {
		fs.pool.Release(client)
		return errors.Remote(OpDownload, entry.Path, err)
	}

	src, err := NewPooledSFTPFile(remote, client, fs.pool)
	if err != nil {
		_ = remote.Close()
		fs.pool.Release(client)

		return errors.Remote(OpDownload, entry.Path, err)
	}
	defer src.Close()

	dst, err := fs.local.Create(localPath)
	if err != nil {
		return errors.Local(OpDownload, localPath, err)
	}

	_, err = fileops.CopyWithProgress(ctx,
		taggedWriter{dst, func(err error) error { return errors.Local(OpDownload, localPath, err) }},
		taggedReader{src, func(err error) error { return errors.Remote(OpDownload, entry.Path, err) }},
		entry.Size, fileops.ProgressCallback(onProgress))

	closeErr := dst.Close()
	if err == nil && closeErr != nil {
		err = errors.Local(OpDownload, localPath, closeErr)
	}

	if err != nil {
		_ = fs.local.Remove(localPath)
		return errors.Remote(OpDownload, entry.Path, err)
	}

	return nil
}

// IsSymlinkToDirectory follows the link and reports whether it ends at a
// directory.
func (fs *SFTPFileSystem) IsSymlinkToDirectory(ctx context.Context, entry FileEntry) (bool, error) {
	return withSession(ctx, fs, OpResolveLink, entry.Path, func(client *sftp.Client) (bool, error) {
		info, err := client.Stat(entry.Path)
		if err != nil {
			return false, err //nolint:wrapcheck // Tagged by withSession
		}

		return info.IsDir(), nil
	})
}

// ListEntries lists dir without following symbolic links.
func (fs *SFTPFileSystem) ListEntries(ctx context.Context, dir string) ([]FileEntry, error) {
	return withSession(ctx, fs, OpList, dir, func(client *sftp.Client) ([]FileEntry, error) {
		infos, err := client.ReadDir(dir)
		if err != nil {
			return nil, err //nolint:wrapcheck // Tagged by withSession
		}

		entries := make([]FileEntry, 0, len(infos))
		for _, info := range infos {
			entries = append(entries, entryFromInfo(dir, info))
		}

		return entries, nil
	})
}

// Upload copies the local file at localPath into parentPath, replacing an
// existing remote file of the same name.
func (fs *SFTPFileSystem) Upload(
	ctx context.Context, localPath, parentPath string, onProgress ProgressFunc,
) error {
	info, err := fs.local.Stat(localPath)
	if err != nil {
		return errors.Local(OpUpload, localPath, err)
	}

	src, err := fs.local.Open(localPath)
	if err != nil {
		return errors.Local(OpUpload, localPath, err)
	}
	defer src.Close()

	target := JoinPath(parentPath, filepath.Base(localPath))

	client, err := fs.pool.Acquire(ctx)
	if err != nil {
		return errors.Remote(OpUpload, target, err)
	}

	remote, err := client.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		fs.pool.Release(client)
		return errors.Remote(OpUpload, target, err)
	}

	dst, err := NewPooledSFTPFile(remote, client, fs.pool)
	if err != nil {
		_ = remote.Close()
		fs.pool.Release(client)

		return errors.Remote(OpUpload, target, err)
	}

	_, err = fileops.CopyWithProgress(ctx,
		taggedWriter{dst, func(err error) error { return errors.Remote(OpUpload, target, err) }},
		taggedReader{src, func(err error) error { return errors.Local(OpUpload, localPath, err) }},
		info.Size(), fileops.ProgressCallback(onProgress))

	closeErr := dst.Close()
	if err == nil && closeErr != nil {
		err = closeErr
	}

	return errors.Remote(OpUpload, target, err)
}

func (fs *SFTPFileSystem) withClient(
	ctx context.Context, op, path string, fn func(client *sftp.Client) error,
) error {
	_, err := withSession(ctx, fs, op, path, func(client *sftp.Client) (struct{}, error) {
		return struct{}{}, fn(client)
	})

	return err
}

// withSession runs fn on a pooled session. sftp calls cannot be interrupted,
// so when ctx ends first the caller gets the zero value and the session is
// returned once fn finishes.
func withSession[T any](
	ctx context.Context, fs *SFTPFileSystem, op, path string, fn func(client *sftp.Client) (T, error),
) (T, error) {
	var zero T

	client, err := fs.pool.Acquire(ctx)
	if err != nil {
		return zero, errors.Remote(op, path, err)
	}

	val, err := detached(ctx, func() (T, error) {
		defer fs.pool.Release(client)
		return fn(client)
	})
	if err != nil {
		return zero, errors.Remote(op, path, err)
	}

	return val, nil
}

type outcome[T any] struct {
	val T
	err error
}

// detached waits for fn or for ctx, whichever ends first. fn keeps running
// after ctx ends and its result is dropped; nothing it writes is shared with
// the caller.
func detached[T any](ctx context.Context, fn func() (T, error)) (T, error) {
	done := make(chan outcome[T], 1)

	go func() {
		val, err := fn()
		done <- outcome[T]{val: val, err: err}
	}()

	select {
	case res := <-done:
		return res.val, res.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err() //nolint:wrapcheck // Tagged by withSession
	}
}

func entryFromInfo(dir string, info os.FileInfo) FileEntry {
	return FileEntry{
		Path:      JoinPath(dir, info.Name()),
		Name:      info.Name(),
		IsDir:     info.IsDir(),
		IsSymlink: info.Mode()&os.ModeSymlink != 0,
		Size:      info.Size(),
		ModTime:   info.ModTime(),
	}
}

// taggedReader and taggedWriter attribute copy failures to the side that
// produced them.
type taggedReader struct {
	r   io.Reader
	tag func(error) error
}

func (t taggedReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		return n, t.tag(err)
	}

	return n, err //nolint:wrapcheck // io.EOF must pass through unchanged
}

type taggedWriter struct {
	w   io.Writer
	tag func(error) error
}

func (t taggedWriter) Write(p []byte) (int, error) {
	n, err := t.w.Write(p)

	return n, t.tag(err)
}

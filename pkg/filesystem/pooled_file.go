package filesystem

import (
	"errors"
	"io"
	"io/fs"
	"sync"

	"github.com/pkg/sftp"
)

// sftpFile is the part of *sftp.File the wrapper needs.
type sftpFile interface {
	io.Reader
	io.Writer
	io.Closer
}

// clientReleaser hands a session back to its pool.
type clientReleaser interface {
	Release(client *sftp.Client)
}

// PooledSFTPFile wraps a remote file and releases its SFTP session back to
// the pool when closed. The session is released even if closing the file
// fails.
type PooledSFTPFile struct {
	file   sftpFile
	client *sftp.Client
	pool   clientReleaser
	mu     sync.Mutex
	closed bool
}

// NewPooledSFTPFile creates a new pooled SFTP file wrapper.
func NewPooledSFTPFile(file sftpFile, client *sftp.Client, pool clientReleaser) (*PooledSFTPFile, error) {
	if file == nil {
		return nil, errors.New("file cannot be nil") //nolint:err113 // Programming error
	}

	if pool == nil {
		return nil, errors.New("pool cannot be nil") //nolint:err113 // Programming error
	}

	return &PooledSFTPFile{file: file, client: client, pool: pool}, nil
}

// Read reads from the remote file. Returns fs.ErrClosed after Close.
func (f *PooledSFTPFile) Read(p []byte) (int, error) {
	if f.isClosed() {
		return 0, fs.ErrClosed
	}

	return f.file.Read(p) //nolint:wrapcheck // io.Reader contract
}

// Write writes to the remote file. Returns fs.ErrClosed after Close.
func (f *PooledSFTPFile) Write(p []byte) (int, error) {
	if f.isClosed() {
		return 0, fs.ErrClosed
	}

	return f.file.Write(p) //nolint:wrapcheck // io.Writer contract
}

// Close closes the file and releases the session. Idempotent.
func (f *PooledSFTPFile) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return nil
	}

	f.closed = true
	fileErr := f.file.Close()
	f.pool.Release(f.client)

	return fileErr //nolint:wrapcheck // io.Closer contract
}

func (f *PooledSFTPFile) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.closed
}

// Package fileops provides the byte-copy loop shared by every transfer
// direction: device to local disk and local disk to device.
package fileops

import (
	"context"
	"errors"
	"fmt"
	"io"
)

// Exported constants.
const (
	// BufferSize is the size of the buffer used for file copy operations (32KB)
	BufferSize = 32 * 1024
	// DefaultDirPermissions is the default permission mode for created directories
	DefaultDirPermissions = 0o750
	// DefaultFilePermissions is the default permission mode for created files
	DefaultFilePermissions = 0o640
)

// ProgressCallback is called after every chunk with the cumulative byte count.
type ProgressCallback func(bytesTransferred int64, totalBytes int64)

// CopyWithProgress copies src to dst chunk by chunk, reporting cumulative
// progress and checking ctx between chunks. totalBytes is only passed through
// to the callback; the copy always runs to EOF.
func CopyWithProgress(
	ctx context.Context,
	dst io.Writer,
	src io.Reader,
	totalBytes int64,
	progress ProgressCallback,
) (int64, error) {
	var written int64

	buf := make([]byte, BufferSize)

	for {
		if err := ctx.Err(); err != nil { //nolint:noinlineerr // Inline error check is idiomatic for cancellation
			return written, fmt.Errorf("copy interrupted after %d bytes: %w", written, err)
		}

		nr, err := src.Read(buf) //nolint:varnamelen // nr is idiomatic for bytes read
		if nr > 0 {
			nw, werr := dst.Write(buf[0:nr]) //nolint:varnamelen // nw is idiomatic for bytes written
			if werr != nil {
				return written, fmt.Errorf("failed to write to destination: %w", werr)
			}

			if nr != nw {
				return written, fmt.Errorf("short write: %w", io.ErrShortWrite)
			}

			written += int64(nw)

			if progress != nil {
				progress(written, totalBytes)
			}
		}

		if errors.Is(err, io.EOF) {
			return written, nil
		}

		if err != nil {
			return written, fmt.Errorf("failed to read from source: %w", err)
		}
	}
}

package filesystem

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kr/fs"
)

// FileScanner is an iterator over files in a directory.
// It provides a simple Next pattern for traversing directory contents.
type FileScanner interface {
	// Next advances to the next file and returns its info.
	// Returns (FileInfo{}, false) when done or on error.
	// Check Err() after Next() returns false to distinguish between end-of-scan and error.
	Next() (FileInfo, bool)

	// Err returns any error that occurred during scanning.
	// Should be checked after Next() returns false.
	Err() error
}

// FileInfo contains metadata about a scanned local file.
type FileInfo struct {
	// RelativePath is the path relative to the scan root
	RelativePath string

	// Size is the file size in bytes
	Size int64

	// ModTime is the modification time
	ModTime time.Time

	// IsDir indicates if this is a directory
	IsDir bool
}

// LocalScanner walks a local tree lazily, one entry per Next call. The root
// itself is not reported.
type LocalScanner struct {
	root   string
	walker *fs.Walker
	err    error
}

// NewLocalScanner walks root on any filesystem kr/fs can drive; go-billy
// filesystems qualify as they are.
func NewLocalScanner(fsys fs.FileSystem, root string) *LocalScanner {
	return &LocalScanner{root: root, walker: fs.WalkFS(root, fsys)}
}

// Next advances to the next file and returns its info.
func (s *LocalScanner) Next() (FileInfo, bool) {
	if s.err != nil {
		return FileInfo{}, false
	}

	for s.walker.Step() {
		if err := s.walker.Err(); err != nil {
			s.err = fmt.Errorf("scanning %s: %w", s.walker.Path(), err)
			return FileInfo{}, false
		}

		relPath, err := filepath.Rel(s.root, s.walker.Path())
		if err != nil {
			s.err = fmt.Errorf("scanning %s: %w", s.walker.Path(), err)
			return FileInfo{}, false
		}

		if relPath == "." {
			continue
		}

		return toFileInfo(relPath, s.walker.Stat()), true
	}

	return FileInfo{}, false
}

// Err returns any error that occurred during scanning.
func (s *LocalScanner) Err() error {
	return s.err
}

func toFileInfo(relPath string, info os.FileInfo) FileInfo {
	return FileInfo{
		RelativePath: relPath,
		Size:         info.Size(),
		ModTime:      info.ModTime(),
		IsDir:        info.IsDir(),
	}
}

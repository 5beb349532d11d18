// Package estimate sizes a transfer before it starts so progress can be
// reported as a fraction.
//
// Every file and directory costs a fixed number of work units on top of one
// unit per byte. The fixed cost is large because a round trip to the device
// takes about as long as moving tens of kilobytes, so a tree of many small
// files is not reported as nearly done when only its bytes are counted.
package estimate

import (
	"context"
	"fmt"
	"time"

	"github.com/joe/device-explorer/internal/clock"
	"github.com/joe/device-explorer/internal/sequence"
	"github.com/joe/device-explorer/pkg/errors"
	"github.com/joe/device-explorer/pkg/filesystem"
)

// Work unit costs.
const (
	DirectoryWorkUnits int64 = 64_000
	FileWorkUnits      int64 = 64_000
)

// DefaultProgressInterval is the minimum spacing of progress callbacks.
const DefaultProgressInterval = 50 * time.Millisecond

// MaxDepth bounds recursion through symbolic links that loop back.
const MaxDepth = 64

// Estimate is the size of a job.
type Estimate struct {
	FileCount      int
	DirectoryCount int
	WorkUnits      int64
}

// Add returns the sum of e and other.
func (e Estimate) Add(other Estimate) Estimate {
	return Estimate{
		FileCount:      e.FileCount + other.FileCount,
		DirectoryCount: e.DirectoryCount + other.DirectoryCount,
		WorkUnits:      e.WorkUnits + other.WorkUnits,
	}
}

// ProgressFunc receives cumulative counts during a walk.
type ProgressFunc func(Estimate)

// Estimator walks remote and local trees.
type Estimator struct {
	remote   filesystem.RemoteFileSystem
	local    filesystem.LocalFileStore
	clock    clock.TimeProvider
	interval time.Duration
}

// New creates an Estimator. A zero interval uses DefaultProgressInterval.
func New(
	remote filesystem.RemoteFileSystem, local filesystem.LocalFileStore, clk clock.TimeProvider, interval time.Duration,
) *Estimator {
	if clk == nil {
		clk = clock.RealTimeProvider{}
	}

	if interval <= 0 {
		interval = DefaultProgressInterval
	}

	return &Estimator{remote: remote, local: local, clock: clk, interval: interval}
}

// Remote estimates downloading entry. linkToDir says whether entry, if it is
// a symbolic link, points at a directory; links further down are resolved on
// the device. Children are listed and visited one at a time.
//
// A child that cannot be listed or resolved does not stop the walk; its
// error is returned joined with the others alongside the partial estimate.
// When ctx is done the walk stops before the next node and the error wraps
// errors.ErrUserCancelled.
func (e *Estimator) Remote(
	ctx context.Context, entry filesystem.FileEntry, linkToDir bool, progress ProgressFunc,
) (Estimate, error) {
	w := e.newWalk(progress) //nolint:varnamelen // w is the walk
	err := w.visitRemote(ctx, entry, linkToDir, 0)
	w.report(true)

	return w.total, err
}

// Local estimates uploading the local file or directory at path.
func (e *Estimator) Local(ctx context.Context, path string, progress ProgressFunc) (Estimate, error) {
	w := e.newWalk(progress) //nolint:varnamelen // w is the walk
	err := w.visitLocal(ctx, path)
	w.report(true)

	return w.total, err
}

type walk struct {
	*Estimator

	progress ProgressFunc
	total    Estimate
	last     time.Time
}

func (e *Estimator) newWalk(progress ProgressFunc) *walk {
	return &walk{Estimator: e, progress: progress}
}

func (w *walk) visitRemote(ctx context.Context, entry filesystem.FileEntry, linkToDir bool, depth int) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("estimating %s: %w", entry.Path, errors.ErrUserCancelled)
	}

	if !entry.IsDir && !(entry.IsSymlink && linkToDir) {
		w.addFile(entry.Size)
		return nil
	}

	w.addDirectory()

	if depth >= MaxDepth {
		return errors.Validationf("%s is nested more than %d levels deep", entry.Path, MaxDepth)
	}

	children, err := w.remote.ListEntries(ctx, entry.Path)
	if err != nil {
		return err //nolint:wrapcheck // Tagged by the remote filesystem
	}

	outcome, err := sequence.Run(ctx, children, func(ctx context.Context, child filesystem.FileEntry) error {
		childLinkToDir := false

		if child.IsSymlink {
			isDir, err := w.remote.IsSymlinkToDirectory(ctx, child)
			if err != nil {
				return err //nolint:wrapcheck // Tagged by the remote filesystem
			}

			childLinkToDir = isDir
		}

		return w.visitRemote(ctx, child, childLinkToDir, depth+1)
	})
	if err != nil {
		return err //nolint:wrapcheck // Already carries the cancellation
	}

	for _, failure := range outcome.Failures {
		if errors.Is(failure.Err, errors.ErrUserCancelled) {
			return failure.Err
		}
	}

	return outcome.Err()
}

func (w *walk) visitLocal(ctx context.Context, path string) error {
	info, err := w.local.Stat(path)
	if err != nil {
		return errors.Local("estimate", path, err)
	}

	if !info.IsDir() {
		w.addFile(info.Size())
		return nil
	}

	w.addDirectory()

	scanner := w.local.Scan(path)

	for {
		if ctx.Err() != nil {
			return fmt.Errorf("estimating %s: %w", path, errors.ErrUserCancelled)
		}

		file, ok := scanner.Next()
		if !ok {
			break
		}

		if file.IsDir {
			w.addDirectory()
		} else {
			w.addFile(file.Size)
		}
	}

	return errors.Local("estimate", path, scanner.Err())
}

func (w *walk) addFile(size int64) {
	w.total.FileCount++
	w.total.WorkUnits += FileWorkUnits + size
	w.report(false)
}

func (w *walk) addDirectory() {
	w.total.DirectoryCount++
	w.total.WorkUnits += DirectoryWorkUnits
	w.report(false)
}

func (w *walk) report(force bool) {
	if w.progress == nil {
		return
	}

	now := w.clock.Now()
	if !force && !w.last.IsZero() && now.Sub(w.last) < w.interval {
		return
	}

	w.last = now
	w.progress(w.total)
}

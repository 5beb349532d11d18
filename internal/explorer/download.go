package explorer

import (
	"context"

	"github.com/joe/device-explorer/internal/estimate"
	"github.com/joe/device-explorer/internal/transfer"
	"github.com/joe/device-explorer/internal/tree"
	"github.com/joe/device-explorer/pkg/errors"
	"github.com/joe/device-explorer/pkg/filesystem"
)

var errTooDeep = errors.New("directory nesting too deep")

// Download copies the entries behind handles into localDir, or into each
// entry's default location under the mirror root when localDir is empty.
// Directories are copied recursively.
//
// It blocks until the operation ends. The error is ErrBusy, ErrClosed or a
// local directory failure when nothing was started, and the summary's error
// otherwise.
func (e *Explorer) Download(ctx context.Context, handles []tree.Handle, localDir string) (transfer.Summary, error) {
	empty := transfer.Summary{Kind: transfer.Download}

	roots, ok := e.snapshot(handles)
	if !ok {
		return empty, ErrClosed
	}

	if len(roots) == 0 {
		return empty, errors.Validationf("nothing to download")
	}

	if localDir != "" {
		if err := e.local.MkdirAll(localDir); err != nil {
			return empty, errors.Local(filesystem.OpCreateDirectory, localDir, err)
		}
	}

	op, err := e.start(ctx, transfer.Download, true)
	if err != nil {
		return empty, err
	}

	ctx = op.ctx()
	roots = op.resolveRoots(ctx, roots)

	op.measure(ctx, len(roots), func(ctx context.Context, i int, progress estimate.ProgressFunc) (estimate.Estimate, error) {
		return op.estimator.Remote(ctx, roots[i].entry, roots[i].linkToDir == tree.True, progress)
	})
	op.advance(transfer.Transferring)

	_ = each(ctx, op, roots, item.path, func(ctx context.Context, root item) error {
		target := e.local.DefaultLocalPath(e.device, root.entry)
		if localDir != "" {
			target = e.local.Join(localDir, root.entry.Name)
		}

		return op.download(ctx, root, target, 0)
	})

	return op.finish()
}

// resolveRoots classifies root symbolic links that are still unknown so
// the estimate and the copy agree on what they are.
func (op *operation) resolveRoots(ctx context.Context, roots []item) []item {
	for i := range roots {
		if _, err := op.isDirectory(ctx, &roots[i]); err != nil {
			op.logger.Debug().Err(err).Str("path", roots[i].entry.Path).Msg("link resolution failed")
		}
	}

	return roots
}

// isDirectory reports whether it should be copied as a directory, asking
// the device about symbolic links not classified yet.
func (op *operation) isDirectory(ctx context.Context, it *item) (bool, error) {
	if !it.entry.IsSymlink {
		return it.entry.IsDir, nil
	}

	if it.linkToDir != tree.Unknown {
		return it.linkToDir == tree.True, nil
	}

	isDir, err := op.remote.IsSymlinkToDirectory(ctx, it.entry)
	if err != nil {
		return false, err
	}

	it.linkToDir = tree.TristateOf(isDir)

	if h := it.handle; h != tree.NoHandle {
		op.update(func(t *transfer.Tracker) {
			if t.IsInForeground() {
				op.tree.Reclassify(h, isDir)
			}
		})
	}

	return isDir, nil
}

func (op *operation) download(ctx context.Context, it item, localPath string, depth int) error {
	isDir, err := op.isDirectory(ctx, &it)
	if err != nil {
		return err
	}

	if !isDir {
		return op.downloadFile(ctx, it, localPath)
	}

	if depth >= estimate.MaxDepth {
		return errors.Remote(filesystem.OpList, it.entry.Path, errTooDeep)
	}

	if err := op.local.MkdirAll(localPath); err != nil {
		return errors.Local(filesystem.OpCreateDirectory, localPath, err)
	}

	children, err := op.children(ctx, it)
	if err != nil {
		return err
	}

	op.update(func(t *transfer.Tracker) { t.ProcessDirectory() })

	return each(ctx, op, children, item.path, func(ctx context.Context, child item) error {
		return op.download(ctx, child, op.local.Join(localPath, child.entry.Name), depth+1)
	})
}

// children lists a directory: through the tree while the operation is in
// the foreground and the directory is mirrored there, loading it if needed,
// and straight from the device otherwise.
func (op *operation) children(ctx context.Context, it item) ([]item, error) {
	if it.handle != tree.NoHandle && op.foreground() {
		if err := op.load(ctx, it.handle, false); err != nil {
			return nil, err
		}

		var (
			items  []item
			loaded bool
		)

		op.Call(func() {
			n := op.tree.Node(it.handle) //nolint:varnamelen // n is idiomatic for node
			if n == nil || !n.Loaded {
				return
			}

			loaded = true

			for _, h := range op.tree.Children(it.handle) {
				child := op.tree.Node(h)
				if !child.IsPlaceholder() {
					items = append(items, item{handle: h, entry: child.Entry, linkToDir: child.LinkToDir})
				}
			}
		})

		if loaded {
			return items, nil
		}
	}

	entries, err := op.listVisible(ctx, it.entry.Path)
	if err != nil {
		return nil, err
	}

	items := make([]item, 0, len(entries))
	for _, entry := range entries {
		items = append(items, item{handle: tree.NoHandle, entry: entry, linkToDir: tree.Unknown})
	}

	return items, nil
}

func (op *operation) downloadFile(ctx context.Context, it item, localPath string) error {
	op.update(func(t *transfer.Tracker) {
		if t.IsInForeground() && it.handle != tree.NoHandle {
			op.markTransferring(it.handle, false)
		}

		t.SetTransferText(it.entry.Path, 0, it.entry.Size)
	})

	err := op.remote.Download(ctx, it.entry, localPath, op.progress(it.entry.Path, it.handle))

	op.update(func(t *transfer.Tracker) {
		if t.IsInForeground() {
			op.clearTransferring(it.handle)
		}

		if err == nil {
			t.ProcessFile()
		}
	})

	return err
}

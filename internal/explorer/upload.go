package explorer

import (
	"context"
	"path/filepath"
	"slices"

	"github.com/joe/device-explorer/internal/estimate"
	"github.com/joe/device-explorer/internal/transfer"
	"github.com/joe/device-explorer/internal/tree"
	"github.com/joe/device-explorer/pkg/errors"
	"github.com/joe/device-explorer/pkg/filesystem"
)

// ErrNotVisible marks an upload that succeeded but is missing from the
// directory listing taken afterwards, because of a concurrent change on the
// device or the hidden-entry filter.
var ErrNotVisible = errors.New("uploaded entry is not visible on the device")

// Upload copies local files and directories into the remote directory
// behind parent, mirroring directories. After each directory finishes, the
// remote directory holding it is listed once: a loaded node is refreshed
// from that listing and uploaded items missing from it become problems.
// Items already uploaded stay on the device when others fail or the
// operation is cancelled.
//
// Errors are reported as for Download; a local path that cannot be read is
// a setup error.
func (e *Explorer) Upload(ctx context.Context, parent tree.Handle, localPaths []string) (transfer.Summary, error) {
	empty := transfer.Summary{Kind: transfer.Upload}

	targets, ok := e.snapshot([]tree.Handle{parent})
	if !ok {
		return empty, ErrClosed
	}

	if len(targets) == 0 {
		return empty, errors.Validationf("upload target no longer exists")
	}

	target := targets[0]
	if !target.entry.IsDir && !(target.entry.IsSymlink && target.linkToDir != tree.False) {
		return empty, errors.Validationf("%s is not a directory", target.entry.Path)
	}

	if len(localPaths) == 0 {
		return empty, errors.Validationf("nothing to upload")
	}

	for _, localPath := range localPaths {
		if _, err := e.local.Stat(localPath); err != nil {
			return empty, errors.Local(filesystem.OpUpload, localPath, err)
		}
	}

	op, err := e.start(ctx, transfer.Upload, true)
	if err != nil {
		return empty, err
	}

	listCtx := ctx
	ctx = op.ctx()

	op.measure(ctx, len(localPaths), func(ctx context.Context, i int, progress estimate.ProgressFunc) (estimate.Estimate, error) {
		return op.estimator.Local(ctx, localPaths[i], progress)
	})
	op.advance(transfer.Transferring)

	var uploaded []string

	_ = each(ctx, op, localPaths, filepath.Clean, func(ctx context.Context, localPath string) error {
		if err := op.upload(ctx, localPath, target.entry.Path, 0); err != nil {
			return err
		}

		uploaded = append(uploaded, filepath.Base(localPath))

		return nil
	})

	if listCtx.Err() == nil {
		op.verifyVisible(listCtx, target.entry.Path, uploaded)
	}

	return op.finish()
}

func (op *operation) upload(ctx context.Context, localPath, remoteParent string, depth int) error {
	info, err := op.local.Stat(localPath)
	if err != nil {
		return errors.Local(filesystem.OpUpload, localPath, err)
	}

	if !info.IsDir() {
		return op.uploadFile(ctx, localPath, remoteParent, info.Size())
	}

	name := filepath.Base(localPath)
	remoteDir := filesystem.JoinPath(remoteParent, name)

	if depth >= estimate.MaxDepth {
		return errors.Local(filesystem.OpUpload, localPath, errTooDeep)
	}

	if err := op.ensureDirectory(ctx, remoteParent, name); err != nil {
		return err
	}

	infos, err := op.local.ReadDir(localPath)
	if err != nil {
		return errors.Local(filesystem.OpUpload, localPath, err)
	}

	op.update(func(t *transfer.Tracker) { t.ProcessDirectory() })

	children := make([]string, 0, len(infos))
	for _, child := range infos {
		children = append(children, op.local.Join(localPath, child.Name()))
	}

	slices.Sort(children)

	var uploaded []string

	if err := each(ctx, op, children, filepath.Clean, func(ctx context.Context, child string) error {
		if err := op.upload(ctx, child, remoteDir, depth+1); err != nil {
			return err
		}

		uploaded = append(uploaded, filepath.Base(child))

		return nil
	}); err != nil {
		return err
	}

	op.verifyVisible(ctx, remoteDir, uploaded)

	return nil
}

// ensureDirectory creates parent/name on the device. A directory that is
// already there is reused.
func (op *operation) ensureDirectory(ctx context.Context, parent, name string) error {
	err := op.remote.CreateDirectory(ctx, parent, name)
	if err == nil || errors.Is(err, errors.ErrUserCancelled) {
		return err
	}

	entries, listErr := op.remote.ListEntries(ctx, parent)
	if listErr != nil {
		return err
	}

	for _, entry := range entries {
		if entry.Name == name && entry.IsDir {
			return nil
		}
	}

	return err
}

func (op *operation) uploadFile(ctx context.Context, localPath, remoteParent string, size int64) error {
	h := tree.NoHandle

	op.Call(func() {
		if !op.tracker.IsInForeground() {
			return
		}

		if parent, ok := op.tree.Lookup(remoteParent); ok {
			h = parent
			op.markTransferring(h, true)
		}

		op.tracker.SetTransferText(localPath, 0, size)
	})

	err := op.remote.Upload(ctx, localPath, remoteParent, op.progress(localPath, h))

	op.update(func(t *transfer.Tracker) {
		if t.IsInForeground() && h != tree.NoHandle {
			op.clearTransferring(h)
		}

		if err == nil {
			t.ProcessFile()
		}
	})

	return err
}

// verifyVisible lists dir once. When the tree has dir loaded the listing is
// applied to it; every uploaded name missing from it is a problem.
func (op *operation) verifyVisible(ctx context.Context, dir string, uploaded []string) {
	entries, err := op.listVisible(ctx, dir)
	if err != nil {
		op.problem(dir, err)
		return
	}

	var links []item

	op.Call(func() {
		if !op.tracker.IsInForeground() {
			return
		}

		h, ok := op.tree.Lookup(dir)
		if !ok || !op.tree.Node(h).Loaded {
			return
		}

		for _, added := range op.tree.UpdateChildren(h, entries) {
			if n := op.tree.Node(added); n.Entry.IsSymlink {
				links = append(links, item{handle: added, entry: n.Entry, linkToDir: tree.Unknown})
			}
		}
	})

	op.resolveLinks(ctx, links)

	visible := make(map[string]bool, len(entries))
	for _, entry := range entries {
		visible[entry.Name] = true
	}

	for _, name := range uploaded {
		if !visible[name] {
			missing := filesystem.JoinPath(dir, name)
			op.problem(missing, errors.Remote(filesystem.OpList, missing, ErrNotVisible))
		}
	}
}

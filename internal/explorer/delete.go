package explorer

import (
	"context"
	"slices"
	"strings"

	"github.com/joe/device-explorer/internal/estimate"
	"github.com/joe/device-explorer/internal/transfer"
	"github.com/joe/device-explorer/internal/tree"
	"github.com/joe/device-explorer/pkg/errors"
	"github.com/joe/device-explorer/pkg/filesystem"
)

// Delete removes the entries behind handles from the device, one at a time
// in ascending path order, each bounded by the admin timeout. Entries below
// another selected directory go with it. Every distinct parent is refreshed
// once afterwards. A delete cannot be backgrounded; while it runs other
// operations are refused with ErrBusy.
func (e *Explorer) Delete(ctx context.Context, handles []tree.Handle) (transfer.Summary, error) {
	empty := transfer.Summary{Kind: transfer.Delete}

	items, ok := e.snapshot(handles)
	if !ok {
		return empty, ErrClosed
	}

	if len(items) == 0 {
		return empty, errors.Validationf("nothing to delete")
	}

	items = outermost(items)

	op, err := e.start(ctx, transfer.Delete, false)
	if err != nil {
		return empty, err
	}

	var est estimate.Estimate

	for _, it := range items {
		if isPlainDirectory(it.entry) {
			est.DirectoryCount++
			est.WorkUnits += estimate.DirectoryWorkUnits
		} else {
			est.FileCount++
			est.WorkUnits += estimate.FileWorkUnits
		}
	}

	op.update(func(t *transfer.Tracker) {
		t.SetEstimate(est)
		t.Advance(transfer.Transferring)
	})

	_ = each(op.ctx(), op, items, item.path, func(ctx context.Context, it item) error {
		ctx, cancel := context.WithTimeout(ctx, e.settings.AdminTimeout)
		defer cancel()

		if err := e.remote.Delete(ctx, it.entry); err != nil {
			return err
		}

		op.update(func(t *transfer.Tracker) {
			if isPlainDirectory(it.entry) {
				t.ProcessDirectory()
			} else {
				t.ProcessFile()
			}
		})

		return nil
	})

	if ctx.Err() == nil {
		for _, parent := range distinctParents(items) {
			e.refreshPath(ctx, parent)
		}
	}

	return op.finish()
}

func isPlainDirectory(entry filesystem.FileEntry) bool {
	return entry.IsDir && !entry.IsSymlink
}

// outermost sorts items by path and drops those inside another selected
// directory.
func outermost(items []item) []item {
	slices.SortFunc(items, func(a, b item) int { return strings.Compare(a.entry.Path, b.entry.Path) })

	kept := items[:0]

	for _, it := range items {
		nested := false

		for _, outer := range kept {
			if isPlainDirectory(outer.entry) && strings.HasPrefix(it.entry.Path, outer.entry.Path+filesystem.Separator) {
				nested = true
				break
			}
		}

		if !nested && (len(kept) == 0 || kept[len(kept)-1].entry.Path != it.entry.Path) {
			kept = append(kept, it)
		}
	}

	return kept
}

func distinctParents(items []item) []string {
	parents := make([]string, 0, len(items))

	for _, it := range items {
		parent := filesystem.ParentPath(it.entry.Path)
		if !slices.Contains(parents, parent) {
			parents = append(parents, parent)
		}
	}

	return parents
}

package explorer

import (
	"context"

	"github.com/joe/device-explorer/internal/estimate"
	"github.com/joe/device-explorer/internal/transfer"
	"github.com/joe/device-explorer/internal/tree"
	"github.com/joe/device-explorer/pkg/errors"
)

// Estimate sizes the entries behind handles without transferring them. The
// summary carries the counted files, directories and bytes.
func (e *Explorer) Estimate(ctx context.Context, handles []tree.Handle) (transfer.Summary, error) {
	empty := transfer.Summary{Kind: transfer.EstimateOnly}

	roots, ok := e.snapshot(handles)
	if !ok {
		return empty, ErrClosed
	}

	if len(roots) == 0 {
		return empty, errors.Validationf("nothing to measure")
	}

	op, err := e.start(ctx, transfer.EstimateOnly, false)
	if err != nil {
		return empty, err
	}

	ctx = op.ctx()
	roots = op.resolveRoots(ctx, roots)

	total := op.measure(ctx, len(roots), func(ctx context.Context, i int, progress estimate.ProgressFunc) (estimate.Estimate, error) {
		return op.estimator.Remote(ctx, roots[i].entry, roots[i].linkToDir == tree.True, progress)
	})
	op.update(func(t *transfer.Tracker) { t.Measure(total) })

	return op.finish()
}

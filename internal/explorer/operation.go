package explorer

import (
	"context"

	"github.com/joe/device-explorer/internal/estimate"
	"github.com/joe/device-explorer/internal/events"
	"github.com/joe/device-explorer/internal/metrics"
	"github.com/joe/device-explorer/internal/sequence"
	"github.com/joe/device-explorer/internal/transfer"
	"github.com/joe/device-explorer/internal/tree"
	"github.com/joe/device-explorer/pkg/errors"
	"github.com/joe/device-explorer/pkg/filesystem"
)

// item is one entry a workflow visits. handle is tree.NoHandle when the
// entry is not mirrored in the tree.
type item struct {
	handle    tree.Handle
	entry     filesystem.FileEntry
	linkToDir tree.Tristate
}

func (it item) path() string { return it.entry.Path }

// snapshot copies the entries behind handles, skipping removed nodes and
// placeholders.
func (e *Explorer) snapshot(handles []tree.Handle) ([]item, bool) {
	var items []item

	ok := e.Call(func() {
		for _, h := range handles {
			n := e.tree.Node(h) //nolint:varnamelen // n is idiomatic for node
			if n == nil || n.IsPlaceholder() {
				continue
			}

			items = append(items, item{handle: h, entry: n.Entry, linkToDir: n.LinkToDir})
		}
	})

	return items, ok
}

// operation is a running batch workflow and its tracker.
type operation struct {
	*Explorer

	tracker *transfer.Tracker
}

// start admits a new tracked operation into the foreground slot.
func (e *Explorer) start(ctx context.Context, kind transfer.Kind, backgroundable bool) (*operation, error) {
	tracker := transfer.NewTracker(ctx, kind, transfer.Options{
		Backgroundable:   backgroundable,
		Emitter:          e.emitter,
		Clock:            e.clock,
		Messages:         e.messages,
		ProgressInterval: e.settings.RepaintInterval,
	})

	var err error

	if !e.Call(func() {
		previous := e.slot.Active()
		if err = e.slot.Register(tracker); err != nil {
			e.emitter.Emit(events.ErrorReported{Message: e.describe(err, ""), Err: err})
			return
		}

		if previous != nil {
			e.detached(previous, "superseded by "+kind.String())
		}

		tracker.Advance(transfer.Preparing)
		e.emitter.Emit(events.BusyStarted{Node: tree.NoHandle, Reason: kind.String()})
	}) {
		err = ErrClosed
	}

	if err != nil {
		tracker.Complete()
		return nil, err
	}

	e.logger.Debug().Str("op", tracker.ID()).Str("kind", kind.String()).Msg("operation started")

	return &operation{Explorer: e, tracker: tracker}, nil
}

// ctx is cancelled when the operation is.
func (op *operation) ctx() context.Context {
	return op.tracker.Context()
}

// update queues a tracker change on the loop.
func (op *operation) update(fn func(t *transfer.Tracker)) {
	op.Post(func() { fn(op.tracker) })
}

func (op *operation) advance(state transfer.State) {
	op.update(func(t *transfer.Tracker) { t.Advance(state) })
}

func (op *operation) foreground() bool {
	var foreground bool

	op.Call(func() { foreground = op.tracker.IsInForeground() })

	return foreground
}

func (op *operation) problem(path string, err error) {
	op.logger.Debug().Err(err).Str("op", op.tracker.ID()).Str("path", path).Msg("item failed")
	op.update(func(t *transfer.Tracker) { t.AddProblem(path, err) })
}

// progress adapts the cumulative byte counts of one transfer into tracker
// deltas and node progress.
func (op *operation) progress(displayPath string, h tree.Handle) filesystem.ProgressFunc {
	var last int64

	return func(transferred, total int64) {
		delta := transferred - last
		last = transferred

		op.update(func(t *transfer.Tracker) {
			t.ProcessFileBytes(delta)

			if !t.IsInForeground() {
				return
			}

			t.SetTransferText(displayPath, transferred, total)

			if n := op.tree.Node(h); n != nil && n.IsTransferring() {
				n.Progress = tree.Progress{Current: transferred, Total: total}
			}
		})
	}
}

// measure runs the estimation phase over count roots and installs the
// total as the operation's estimate. A walk that fails part way still
// contributes what it counted.
func (op *operation) measure(
	ctx context.Context,
	count int,
	size func(ctx context.Context, i int, progress estimate.ProgressFunc) (estimate.Estimate, error),
) estimate.Estimate {
	op.update(func(t *transfer.Tracker) {
		t.Advance(transfer.Estimating)
		t.SetIndeterminate(true)
	})

	var total estimate.Estimate

	for i := 0; i < count; i++ {
		if ctx.Err() != nil {
			break
		}

		base := total

		est, err := size(ctx, i, func(partial estimate.Estimate) {
			sum := base.Add(partial)
			op.update(func(t *transfer.Tracker) { t.SetCalculatingText(sum.FileCount, sum.DirectoryCount) })
		})
		if err != nil && !errors.Is(err, errors.ErrUserCancelled) {
			op.logger.Warn().Err(err).Str("op", op.tracker.ID()).Msg("estimate is incomplete")
		}

		total = total.Add(est)
	}

	op.update(func(t *transfer.Tracker) {
		t.SetEstimate(total)
		t.SetIndeterminate(false)
	})

	return total
}

// each visits items one at a time. Item failures become problems of the
// operation; the returned error is set only when ctx stopped the batch.
func each[T any](
	ctx context.Context, op *operation, items []T, pathOf func(T) string, visit func(context.Context, T) error,
) error {
	outcome, err := sequence.Run(ctx, items, visit)

	for _, failure := range outcome.Failures {
		if errors.Is(failure.Err, errors.ErrUserCancelled) {
			continue
		}

		op.problem(pathOf(items[failure.Index]), failure.Err)
	}

	return err
}

// finish completes the operation. A foreground operation reports its result
// to the views; a backgrounded one is only logged.
func (op *operation) finish() (transfer.Summary, error) {
	var (
		summary    transfer.Summary
		foreground bool
	)

	tracker := op.tracker

	if !op.Call(func() {
		foreground = tracker.IsInForeground()
		summary = tracker.Complete()
		op.slot.Release(tracker)

		if !foreground {
			return
		}

		op.emitter.Emit(events.BusyStopped{Node: tree.NoHandle})
		op.emitter.Emit(events.OperationFinished{
			OperationID: tracker.ID(),
			Kind:        tracker.Kind().String(),
			Message:     op.resultMessage(summary),
			Err:         summary.Err(),
		})
	}) {
		summary = tracker.Complete()
	}

	op.record(summary, foreground)

	return summary, summary.Err()
}

func (op *operation) record(summary transfer.Summary, foreground bool) {
	outcome := metrics.OutcomeSucceeded

	switch {
	case !foreground:
		outcome = metrics.OutcomeBackgrounded
	case summary.Cancelled:
		outcome = metrics.OutcomeCancelled
	case len(summary.Problems) > 0:
		outcome = metrics.OutcomePartial
	}

	kind := summary.Kind.String()
	metrics.RecordOperation(kind, outcome, summary.Duration)

	for _, problem := range summary.Problems {
		metrics.RecordProblem(problem.Err)
	}

	switch summary.Kind {
	case transfer.Download:
		metrics.RecordBytes(metrics.DirectionDownload, summary.ByteCount)
	case transfer.Upload:
		metrics.RecordBytes(metrics.DirectionUpload, summary.ByteCount)
	case transfer.Delete, transfer.EstimateOnly:
	}

	event := op.logger.Info().
		Str("op", op.tracker.ID()).
		Str("kind", kind).
		Str("outcome", outcome).
		Int("files", summary.FileCount).
		Int("directories", summary.DirectoryCount).
		Int64("bytes", summary.ByteCount).
		Dur("duration", summary.Duration).
		Int("problems", len(summary.Problems))

	if !foreground {
		event = event.Str("result", op.messages.Result(summary, op.settings.MaxReportedProblems))
	}

	event.Msg("operation finished")
}

// resultMessage renders a summary and, when items failed, suggestions for
// the first failure.
func (e *Explorer) resultMessage(summary transfer.Summary) string {
	text := e.messages.Result(summary, e.settings.MaxReportedProblems)

	if len(summary.Problems) > 0 && !summary.Cancelled {
		first := summary.Problems[0]
		if hints := errors.FormatSuggestions(e.enricher.Enrich(first.Err, first.Path)); hints != "" {
			text += "\n" + hints
		}
	}

	return text
}

// refreshPath reloads the node for remotePath if the tree has it loaded.
func (e *Explorer) refreshPath(ctx context.Context, remotePath string) {
	var (
		h      tree.Handle
		loaded bool
	)

	e.Call(func() {
		var ok bool
		if h, ok = e.tree.Lookup(remotePath); ok {
			loaded = e.tree.Node(h).Loaded
		}
	})

	if !loaded {
		return
	}

	if err := e.Refresh(ctx, h); err != nil {
		e.logger.Debug().Err(err).Str("path", remotePath).Msg("refresh failed")
	}
}

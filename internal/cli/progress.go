package cli

import (
	"context"
	"sync/atomic"

	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/joe/device-explorer/internal/events"
)

const (
	// barScale is the bar total; fractions are drawn in thousandths.
	barScale = 1000
	barWidth = 60
)

// operationBar draws the foreground operation's progress.
type operationBar struct {
	progress *mpb.Progress
	bar      *mpb.Bar
	text     atomic.Pointer[string]
	id       string
}

func newOperationBar(ctx context.Context, r *Runner, id string) *operationBar {
	ob := &operationBar{id: id}
	empty := ""
	ob.text.Store(&empty)

	ob.progress = mpb.NewWithContext(ctx, mpb.WithOutput(r.progress), mpb.WithWidth(barWidth))
	ob.bar = ob.progress.New(barScale,
		mpb.BarStyle().Lbound("[").Filler("=").Tip(">").Padding(" ").Rbound("]"),
		mpb.PrependDecorators(
			decor.Any(func(decor.Statistics) string { return *ob.text.Load() }, decor.WCSyncSpaceR),
		),
		mpb.AppendDecorators(decor.Percentage(decor.WCSyncSpace)),
		mpb.BarRemoveOnComplete(),
	)

	return ob
}

func (ob *operationBar) update(ev events.ProgressChanged) {
	text := ev.Text
	ob.text.Store(&text)
	ob.bar.SetCurrent(int64(min(max(ev.Fraction, 0), 1) * barScale))
}

func (ob *operationBar) done() {
	ob.bar.SetTotal(-1, true)
	ob.progress.Wait()
}

// watch prints what the explorer reports until ctx is done and the queue is
// drained.
func (r *Runner) watch(ctx context.Context) {
	var current *operationBar

	finish := func() {
		if current != nil {
			current.done()
			current = nil
		}
	}

	defer finish()

	for {
		event, ok := r.queue.Next(ctx)
		if !ok {
			return
		}

		switch ev := event.(type) {
		case events.ProgressChanged:
			if r.progress == nil || ev.Indeterminate {
				continue
			}

			if current != nil && current.id != ev.OperationID {
				finish()
			}

			if current == nil {
				// Bars stay up until done, even once ctx ends.
				current = newOperationBar(context.WithoutCancel(ctx), r, ev.OperationID)
			}

			current.update(ev)

		case events.OperationFinished:
			finish()
			r.printf("%s\n", ev.Message)

			r.logger.Debug().Str("op", ev.OperationID).Str("kind", ev.Kind).Msg("result printed")

		case events.ErrorReported:
			r.logger.Warn().Err(ev.Err).Msg(ev.Message)
		}
	}
}

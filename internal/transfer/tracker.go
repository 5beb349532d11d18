// Package transfer tracks the one batch operation the explorer runs in the
// foreground: its lifecycle, progress against an estimate, cancellation,
// backgrounding and accumulated problems.
package transfer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/joe/device-explorer/internal/clock"
	"github.com/joe/device-explorer/internal/estimate"
	"github.com/joe/device-explorer/internal/events"
	"github.com/joe/device-explorer/pkg/errors"
)

// Kind is what an operation does.
type Kind int

// Operation kinds.
const (
	Download Kind = iota
	Upload
	Delete
	EstimateOnly
)

func (k Kind) String() string {
	switch k {
	case Download:
		return "download"
	case Upload:
		return "upload"
	case Delete:
		return "delete"
	case EstimateOnly:
		return "estimate"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// State is where an operation is in its lifecycle.
type State int

// Operation states.
const (
	Created State = iota
	Preparing
	Estimating
	Transferring
	Completed
	Cancelled
	Backgrounded
)

func (s State) String() string {
	return [...]string{"created", "preparing", "estimating", "transferring", "completed", "cancelled", "backgrounded"}[s]
}

// Terminal reports whether the state ends foreground tracking.
func (s State) Terminal() bool {
	return s >= Completed
}

// Problem is one per-item failure.
type Problem struct {
	Path string
	Err  error
}

// Summary is the immutable result of an operation.
type Summary struct {
	Kind           Kind
	FileCount      int
	DirectoryCount int
	ByteCount      int64
	Duration       time.Duration
	Problems       []Problem
	Cancelled      bool
}

// Err classifies the outcome: nil, errors.ErrUserCancelled, or
// errors.ErrPartialFailure joined with every problem.
func (s Summary) Err() error {
	if s.Cancelled {
		return errors.ErrUserCancelled
	}

	if len(s.Problems) == 0 {
		return nil
	}

	errs := make([]error, 0, len(s.Problems))
	for _, p := range s.Problems {
		errs = append(errs, p.Err)
	}

	return fmt.Errorf("%w: %w", errors.ErrPartialFailure, errors.Join(errs...))
}

// Options configure a Tracker.
type Options struct {
	Backgroundable bool
	Emitter        events.Emitter
	Clock          clock.TimeProvider
	Messages       *Messages
	// ProgressInterval spaces ProgressChanged events caused by byte counts.
	ProgressInterval time.Duration
}

// Tracker owns one operation. Apart from Context and IsCancelled, its
// methods must be called from the explorer's coordination goroutine.
type Tracker struct {
	id       string
	kind     Kind
	opts     Options
	ctx      context.Context //nolint:containedctx // The tracker owns the operation's cancellation
	cancel   context.CancelFunc
	state    State
	started  time.Time
	estimate estimate.Estimate
	units    int64
	summary  Summary
	done     bool

	indeterminate bool
	text          string
	lastEmit      time.Time
}

// NewTracker creates a tracker in state Created whose context derives from
// parent.
func NewTracker(parent context.Context, kind Kind, opts Options) *Tracker {
	if opts.Emitter == nil {
		opts.Emitter = events.Discard
	}

	if opts.Clock == nil {
		opts.Clock = clock.RealTimeProvider{}
	}

	if opts.Messages == nil {
		opts.Messages = NewMessages()
	}

	ctx, cancel := context.WithCancel(parent)

	return &Tracker{
		id:      uuid.NewString(),
		kind:    kind,
		opts:    opts,
		ctx:     ctx,
		cancel:  cancel,
		started: opts.Clock.Now(),
		summary: Summary{Kind: kind},
	}
}

// ID identifies the operation in logs and events.
func (t *Tracker) ID() string { return t.id }

// Kind returns the operation kind.
func (t *Tracker) Kind() Kind { return t.kind }

// State returns the lifecycle state.
func (t *Tracker) State() State { return t.state }

// Backgroundable reports whether a newer operation may push this one to the
// background instead of being refused.
func (t *Tracker) Backgroundable() bool { return t.opts.Backgroundable }

// Context is cancelled when the operation is.
func (t *Tracker) Context() context.Context { return t.ctx }

// IsCancelled may be called from any goroutine.
func (t *Tracker) IsCancelled() bool { return t.ctx.Err() != nil }

// IsInForeground reports whether the operation may still touch the UI.
func (t *Tracker) IsInForeground() bool { return t.state != Backgrounded && !t.done }

// Done reports whether Complete was called.
func (t *Tracker) Done() bool { return t.done }

// Cancel asks the operation to stop at its next check.
func (t *Tracker) Cancel() {
	t.cancel()
}

// Background detaches the operation from the UI. It keeps running.
func (t *Tracker) Background() {
	if t.done || t.state == Backgrounded {
		return
	}

	t.state = Backgrounded
}

// Advance moves to the next lifecycle state. Backgrounded operations stay
// backgrounded.
func (t *Tracker) Advance(state State) {
	if t.done || t.state == Backgrounded || state.Terminal() {
		return
	}

	t.state = state
	t.emit(true)
}

// SetEstimate sets the work the fraction is measured against.
func (t *Tracker) SetEstimate(est estimate.Estimate) {
	t.estimate = est
	t.emit(true)
}

// Measure records est as the operation's result. Used by estimate-only
// operations, which transfer nothing.
func (t *Tracker) Measure(est estimate.Estimate) {
	t.estimate = est
	t.units = est.WorkUnits
	t.summary.FileCount = est.FileCount
	t.summary.DirectoryCount = est.DirectoryCount
	t.summary.ByteCount = est.WorkUnits -
		int64(est.FileCount)*estimate.FileWorkUnits - int64(est.DirectoryCount)*estimate.DirectoryWorkUnits
	t.emit(true)
}

// Estimate returns the current estimate.
func (t *Tracker) Estimate() estimate.Estimate { return t.estimate }

// SetIndeterminate switches between a spinner and a fraction.
func (t *Tracker) SetIndeterminate(indeterminate bool) {
	t.indeterminate = indeterminate
	t.emit(true)
}

// SetCalculatingText shows estimation progress.
func (t *Tracker) SetCalculatingText(files, dirs int) {
	t.text = t.opts.Messages.Calculating(files, dirs)
	t.emit(true)
}

// SetTransferText shows the item being transferred.
func (t *Tracker) SetTransferText(path string, current, total int64) {
	t.text = t.opts.Messages.Transferring(t.kind, path, current, total)
	t.emit(false)
}

// ProcessFile records a finished file.
func (t *Tracker) ProcessFile() {
	t.summary.FileCount++
	t.units += estimate.FileWorkUnits
	t.emit(false)
}

// ProcessDirectory records a finished directory.
func (t *Tracker) ProcessDirectory() {
	t.summary.DirectoryCount++
	t.units += estimate.DirectoryWorkUnits
	t.emit(false)
}

// ProcessFileBytes records n transferred bytes.
func (t *Tracker) ProcessFileBytes(n int64) {
	t.summary.ByteCount += n
	t.units += n
	t.emit(false)
}

// Fraction is the completed share of the estimate, within [0, 1].
func (t *Tracker) Fraction() float64 {
	if t.estimate.WorkUnits <= 0 {
		return 0
	}

	return min(max(float64(t.units)/float64(t.estimate.WorkUnits), 0), 1)
}

// AddProblem records a per-item failure and lets the batch carry on.
func (t *Tracker) AddProblem(path string, err error) {
	if err == nil {
		return
	}

	t.summary.Problems = append(t.summary.Problems, Problem{Path: path, Err: err})
}

// Problems returns how many problems were recorded so far.
func (t *Tracker) Problems() int { return len(t.summary.Problems) }

// Complete ends the operation and returns its summary. Later calls return
// the same summary.
func (t *Tracker) Complete() Summary {
	if !t.done {
		t.done = true
		t.summary.Duration = t.opts.Clock.Now().Sub(t.started)
		t.summary.Cancelled = t.IsCancelled()

		if t.state != Backgrounded {
			if t.summary.Cancelled {
				t.state = Cancelled
			} else {
				t.state = Completed
			}
		}

		t.cancel()
	}

	summary := t.summary
	summary.Problems = append([]Problem(nil), t.summary.Problems...)

	return summary
}

func (t *Tracker) emit(force bool) {
	if !t.IsInForeground() {
		return
	}

	now := t.opts.Clock.Now()
	if !force && !t.lastEmit.IsZero() && now.Sub(t.lastEmit) < t.opts.ProgressInterval {
		return
	}

	t.lastEmit = now
	t.opts.Emitter.Emit(events.ProgressChanged{
		OperationID:   t.id,
		Kind:          t.kind.String(),
		Text:          t.text,
		Fraction:      t.Fraction(),
		Indeterminate: t.indeterminate,
	})
}

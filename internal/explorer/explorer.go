// Package explorer runs the device explorer's workflows against a remote
// device: listing directories into the tree, downloading, uploading,
// deleting and creating entries.
//
// A single coordination goroutine owns the tree, the foreground slot and
// every tracker. Workflows run on their caller's goroutine, do their I/O
// there, and marshal every state change onto the loop with Post or Call.
package explorer

import (
	"path"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/joe/device-explorer/internal/clock"
	"github.com/joe/device-explorer/internal/estimate"
	"github.com/joe/device-explorer/internal/events"
	"github.com/joe/device-explorer/internal/transfer"
	"github.com/joe/device-explorer/internal/tree"
	"github.com/joe/device-explorer/pkg/errors"
	"github.com/joe/device-explorer/pkg/filesystem"
)

// Default settings.
const (
	DefaultAdminTimeout    = 10 * time.Second
	DefaultRepaintInterval = 100 * time.Millisecond
)

// ErrClosed is returned by workflows started after Close.
var ErrClosed = errors.New("explorer is closed")

// Settings tune the workflows.
type Settings struct {
	// AdminTimeout bounds each create and delete call.
	AdminTimeout time.Duration
	// RepaintInterval spaces repaints of transferring nodes and byte-driven
	// progress events.
	RepaintInterval          time.Duration
	EstimateProgressInterval time.Duration
	// MaxReportedProblems caps the problems listed in a result message.
	MaxReportedProblems int
}

// DefaultSettings returns the settings used when none are configured.
func DefaultSettings() Settings {
	return Settings{
		AdminTimeout:             DefaultAdminTimeout,
		RepaintInterval:          DefaultRepaintInterval,
		EstimateProgressInterval: estimate.DefaultProgressInterval,
		MaxReportedProblems:      transfer.DefaultMaxProblems,
	}
}

func (s Settings) withDefaults() Settings {
	def := DefaultSettings()

	if s.AdminTimeout <= 0 {
		s.AdminTimeout = def.AdminTimeout
	}

	if s.RepaintInterval <= 0 {
		s.RepaintInterval = def.RepaintInterval
	}

	if s.EstimateProgressInterval <= 0 {
		s.EstimateProgressInterval = def.EstimateProgressInterval
	}

	if s.MaxReportedProblems <= 0 {
		s.MaxReportedProblems = def.MaxReportedProblems
	}

	return s
}

// Options configure an Explorer. Remote and Local are required.
type Options struct {
	Remote filesystem.RemoteFileSystem
	Local  filesystem.LocalFileStore
	// Device namespaces default download locations.
	Device string
	// RootPath is the remote directory shown as the tree root; "/" if empty.
	RootPath string
	Emitter  events.Emitter
	Clock    clock.TimeProvider
	Settings Settings
	Logger   *zerolog.Logger
	Messages *transfer.Messages
	// Hidden holds glob patterns for entries left out of listings.
	Hidden []string
}

// Explorer is the device explorer engine.
type Explorer struct {
	remote    filesystem.RemoteFileSystem
	local     filesystem.LocalFileStore
	device    string
	emitter   events.Emitter
	clock     clock.TimeProvider
	settings  Settings
	logger    zerolog.Logger
	messages  *transfer.Messages
	enricher  errors.Enricher
	filter    *HiddenFilter
	estimator *estimate.Estimator
	loads     singleflight.Group

	work      chan func()
	quit      chan struct{}
	stopped   chan struct{}
	closeOnce sync.Once

	// Owned by the coordination goroutine.
	tree         *tree.Tree
	slot         transfer.Slot
	transferring map[tree.Handle]struct{}
	repaint      clock.Ticker
}

// New creates an Explorer and starts its coordination goroutine. Close
// stops it.
func New(opts Options) (*Explorer, error) {
	if opts.Remote == nil || opts.Local == nil {
		return nil, errors.Validationf("explorer needs a remote filesystem and a local store")
	}

	filter, err := NewHiddenFilter(opts.Hidden)
	if err != nil {
		return nil, err
	}

	if opts.Emitter == nil {
		opts.Emitter = events.Discard
	}

	if opts.Clock == nil {
		opts.Clock = clock.RealTimeProvider{}
	}

	if opts.Messages == nil {
		opts.Messages = transfer.NewMessages()
	}

	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = opts.Logger.With().Str("component", "explorer").Logger()
	}

	rootPath := opts.RootPath
	if rootPath == "" {
		rootPath = filesystem.Separator
	}

	rootPath = path.Clean(rootPath)
	settings := opts.Settings.withDefaults()

	e := &Explorer{ //nolint:varnamelen // e is the receiver-style name used throughout
		remote:       opts.Remote,
		local:        opts.Local,
		device:       opts.Device,
		emitter:      opts.Emitter,
		clock:        opts.Clock,
		settings:     settings,
		logger:       logger,
		messages:     opts.Messages,
		enricher:     errors.NewEnricher(),
		filter:       filter,
		estimator:    estimate.New(opts.Remote, opts.Local, opts.Clock, settings.EstimateProgressInterval),
		work:         make(chan func()),
		quit:         make(chan struct{}),
		stopped:      make(chan struct{}),
		transferring: make(map[tree.Handle]struct{}),
	}

	e.tree = tree.New(
		filesystem.FileEntry{Path: rootPath, Name: path.Base(rootPath), IsDir: true},
		events.TreeObserver{Emitter: e.emitter},
	)

	go e.run()

	return e, nil
}

// Root returns the handle of the tree root.
func (e *Explorer) Root() tree.Handle {
	return e.tree.Root()
}

// Settings returns the effective settings.
func (e *Explorer) Settings() Settings {
	return e.settings
}

// View runs fn with the tree on the coordination goroutine. fn must not
// keep the tree or call back into the explorer.
func (e *Explorer) View(fn func(t *tree.Tree)) bool {
	return e.Call(func() { fn(e.tree) })
}

// Cancel asks the foreground operation, if any, to stop.
func (e *Explorer) Cancel() {
	e.Call(func() {
		if active := e.slot.Active(); active != nil {
			active.Cancel()
		}
	})
}

// Background detaches the foreground operation when it allows that. It
// reports whether an operation was detached.
func (e *Explorer) Background() bool {
	var detached bool

	e.Call(func() {
		active := e.slot.Active()
		if active == nil || !active.Backgroundable() {
			return
		}

		active.Background()
		e.detached(active, "user")

		detached = true
	})

	return detached
}

// Preempt frees the foreground slot ahead of a device switch, a device list
// refresh or shutdown. A backgroundable operation keeps running detached;
// any other is cancelled.
func (e *Explorer) Preempt(reason string) {
	e.Call(func() {
		if displaced := e.slot.Preempt(); displaced != nil {
			e.detached(displaced, reason)
		}
	})
}

// Close pre-empts the foreground operation and stops the coordination
// goroutine. Backgrounded operations keep running but no longer touch the
// tree.
func (e *Explorer) Close() {
	e.closeOnce.Do(func() {
		e.Preempt("shutdown")
		close(e.quit)
		<-e.stopped
	})
}

// detached clears what a foreground operation showed once it no longer is
// one. Runs on the loop.
func (e *Explorer) detached(t *transfer.Tracker, reason string) {
	e.logger.Info().
		Str("op", t.ID()).
		Str("kind", t.Kind().String()).
		Str("state", t.State().String()).
		Str("reason", reason).
		Msg("operation left the foreground")

	e.clearAllTransferring()
	e.emitter.Emit(events.BusyStopped{Node: tree.NoHandle})
}

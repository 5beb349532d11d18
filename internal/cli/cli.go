// Package cli runs one explorer command without the interactive tree view:
// list a directory, pull or push entries, remove entries or create one.
package cli

import (
	"context"
	"fmt"
	"io"
	"path"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/joe/device-explorer/internal/config"
	"github.com/joe/device-explorer/internal/events"
	"github.com/joe/device-explorer/internal/explorer"
	"github.com/joe/device-explorer/internal/tree"
	"github.com/joe/device-explorer/pkg/errors"
	"github.com/joe/device-explorer/pkg/filesystem"
	"github.com/joe/device-explorer/pkg/formatters"
)

const timeLayout = "2006-01-02 15:04"

// Options configures a Runner.
type Options struct {
	Explorer *explorer.Explorer
	// Queue must be the explorer's emitter.
	Queue *events.Queue
	Out   io.Writer
	// Progress receives progress bars; nil disables them.
	Progress io.Writer
	Logger   *zerolog.Logger
}

// Runner executes commands against an Explorer and prints their results.
type Runner struct {
	explorer *explorer.Explorer
	queue    *events.Queue
	progress io.Writer
	logger   zerolog.Logger

	mu  sync.Mutex
	out io.Writer
}

// New creates a Runner.
func New(opts Options) *Runner {
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = opts.Logger.With().Str("component", "cli").Logger()
	}

	out := opts.Out
	if out == nil {
		out = io.Discard
	}

	return &Runner{
		explorer: opts.Explorer,
		queue:    opts.Queue,
		progress: opts.Progress,
		logger:   logger,
		out:      out,
	}
}

// Run executes the subcommand cfg selects. Operation results are printed as
// the explorer reports them; the returned error is the command's outcome.
func (r *Runner) Run(ctx context.Context, cfg *config.Config) error {
	watchCtx, stop := context.WithCancel(ctx)

	var group errgroup.Group

	group.Go(func() error {
		r.watch(watchCtx)
		return nil
	})

	err := r.dispatch(ctx, cfg)

	stop()
	_ = group.Wait()

	return err
}

func (r *Runner) dispatch(ctx context.Context, cfg *config.Config) error {
	switch {
	case cfg.List != nil:
		return r.List(ctx, cfg.List.Path)
	case cfg.Pull != nil:
		return r.Pull(ctx, cfg.Pull.Remotes, cfg.Pull.To)
	case cfg.Push != nil:
		return r.Push(ctx, cfg.Push.Locals, cfg.Push.To)
	case cfg.Remove != nil:
		return r.Remove(ctx, cfg.Remove.Remotes)
	case cfg.Mkdir != nil:
		return r.Create(ctx, cfg.Mkdir.Parent, cfg.Mkdir.Name, true)
	case cfg.Touch != nil:
		return r.Create(ctx, cfg.Touch.Parent, cfg.Touch.Name, false)
	default:
		return errors.Validationf("no command given")
	}
}

// List prints the entries of the directory at remotePath, or the entry
// itself when it is not a directory.
func (r *Runner) List(ctx context.Context, remotePath string) error {
	h, err := r.resolve(ctx, remotePath)
	if err != nil {
		return err
	}

	if err := r.explorer.Expand(ctx, h); err != nil {
		return err
	}

	var nodes []tree.Node

	r.explorer.View(func(tr *tree.Tree) {
		n := tr.Node(h) //nolint:varnamelen // n is idiomatic for node
		if n == nil {
			return
		}

		if !n.IsExpandable() {
			nodes = append(nodes, *n)
			return
		}

		for _, child := range tr.Children(h) {
			if c := tr.Node(child); c != nil && !c.IsPlaceholder() {
				nodes = append(nodes, *c)
			}
		}
	})

	r.mu.Lock()
	defer r.mu.Unlock()

	w := tabwriter.NewWriter(r.out, 0, 0, 2, ' ', tabwriter.AlignRight) //nolint:mnd // Column padding
	for _, n := range nodes {
		size := "-"
		if !n.Entry.IsDir && !n.Entry.IsSymlink {
			size = formatters.FormatBytes(n.Entry.Size)
		}

		modified := ""
		if !n.Entry.ModTime.IsZero() {
			modified = n.Entry.ModTime.Format(timeLayout)
		}

		_, _ = fmt.Fprintf(w, "%s\t%s\t %s\n", size, modified, displayName(n))
	}

	if err := w.Flush(); err != nil {
		return errors.Local("write", "", err)
	}

	return nil
}

// Pull downloads remotePaths into localDir, or into each entry's default
// mirror location when localDir is empty.
func (r *Runner) Pull(ctx context.Context, remotePaths []string, localDir string) error {
	handles, err := r.resolveAll(ctx, remotePaths)
	if err != nil {
		return err
	}

	_, err = r.explorer.Download(ctx, handles, localDir)

	return err
}

// Push uploads localPaths into the remote directory remoteDir.
func (r *Runner) Push(ctx context.Context, localPaths []string, remoteDir string) error {
	parent, err := r.resolve(ctx, remoteDir)
	if err != nil {
		return err
	}

	_, err = r.explorer.Upload(ctx, parent, localPaths)

	return err
}

// Remove deletes remotePaths from the device.
func (r *Runner) Remove(ctx context.Context, remotePaths []string) error {
	handles, err := r.resolveAll(ctx, remotePaths)
	if err != nil {
		return err
	}

	_, err = r.explorer.Delete(ctx, handles)

	return err
}

// Create makes a directory or an empty file called name inside remoteParent.
func (r *Runner) Create(ctx context.Context, remoteParent, name string, dir bool) error {
	parent, err := r.resolve(ctx, remoteParent)
	if err != nil {
		return err
	}

	prompter := &fixedName{name: name}

	if dir {
		err = r.explorer.NewDirectory(ctx, parent, prompter)
	} else {
		err = r.explorer.NewFile(ctx, parent, prompter)
	}

	if errors.Is(err, errors.ErrUserCancelled) && prompter.refused != "" {
		return errors.Validationf("%s: %s", name, prompter.refused)
	}

	if err != nil {
		return err
	}

	r.printf("Created %s\n", filesystem.JoinPath(remoteParent, strings.TrimSpace(name)))

	return nil
}

// fixedName answers the first prompt with name and gives up on the next,
// keeping the reason the name was refused.
type fixedName struct {
	name    string
	asked   bool
	refused string
}

func (p *fixedName) PromptName(_ context.Context, _, problem string) (string, bool) {
	if p.asked {
		p.refused = problem
		return "", false
	}

	p.asked = true

	return p.name, true
}

func (r *Runner) resolveAll(ctx context.Context, remotePaths []string) ([]tree.Handle, error) {
	handles := make([]tree.Handle, 0, len(remotePaths))

	for _, p := range remotePaths {
		h, err := r.resolve(ctx, p)
		if err != nil {
			return nil, err
		}

		handles = append(handles, h)
	}

	return handles, nil
}

// resolve loads every directory from the tree root down to remotePath and
// returns the node mirroring it.
func (r *Runner) resolve(ctx context.Context, remotePath string) (tree.Handle, error) {
	root := r.explorer.Root()

	var rootPath string

	r.explorer.View(func(tr *tree.Tree) { rootPath = tr.Node(root).Entry.Path })

	remotePath = path.Clean(remotePath)
	if remotePath == rootPath {
		return root, nil
	}

	prefix := strings.TrimSuffix(rootPath, filesystem.Separator) + filesystem.Separator

	rel, ok := strings.CutPrefix(remotePath, prefix)
	if !ok {
		return tree.NoHandle, errors.Validationf("%s is outside %s", remotePath, rootPath)
	}

	current := root

	for _, name := range strings.Split(rel, filesystem.Separator) {
		if err := r.explorer.Expand(ctx, current); err != nil {
			return tree.NoHandle, err
		}

		child, found := r.child(current, name)
		if !found {
			return tree.NoHandle, errors.Validationf("%s does not exist", remotePath)
		}

		current = child
	}

	return current, nil
}

func (r *Runner) child(parent tree.Handle, name string) (tree.Handle, bool) {
	var (
		found tree.Handle
		ok    bool
	)

	r.explorer.View(func(tr *tree.Tree) {
		for _, child := range tr.Children(parent) {
			if n := tr.Node(child); n != nil && !n.IsPlaceholder() && n.Entry.Name == name {
				found, ok = child, true
				return
			}
		}
	})

	return found, ok
}

func (r *Runner) printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, _ = fmt.Fprintf(r.out, format, args...)
}

func displayName(n tree.Node) string {
	switch {
	case n.Entry.IsSymlink && n.LinkToDir == tree.True:
		return n.Entry.Name + "@/"
	case n.Entry.IsSymlink:
		return n.Entry.Name + "@"
	case n.Entry.IsDir:
		return n.Entry.Name + "/"
	default:
		return n.Entry.Name
	}
}

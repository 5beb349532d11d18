package explorer

import (
	"context"
	"strconv"

	"github.com/joe/device-explorer/internal/events"
	"github.com/joe/device-explorer/internal/sequence"
	"github.com/joe/device-explorer/internal/tree"
	"github.com/joe/device-explorer/pkg/errors"
	"github.com/joe/device-explorer/pkg/filesystem"
)

// Expand lists the children of h unless they are already loaded.
func (e *Explorer) Expand(ctx context.Context, h tree.Handle) error {
	return e.load(ctx, h, false)
}

// Refresh lists the children of h again. Nodes whose entries survive keep
// their handles and transfer state.
func (e *Explorer) Refresh(ctx context.Context, h tree.Handle) error {
	return e.load(ctx, h, true)
}

// load fetches h's children, applies them to the tree and then resolves the
// symbolic links it has not classified yet. Concurrent loads of one node
// share a single listing.
func (e *Explorer) load(ctx context.Context, h tree.Handle, force bool) error {
	var (
		entry filesystem.FileEntry
		skip  bool
	)

	if !e.Call(func() {
		n := e.tree.Node(h) //nolint:varnamelen // n is idiomatic for node
		if n == nil || n.IsPlaceholder() || !n.IsDirectoryLike() || (n.Loaded && !force) {
			skip = true
			return
		}

		entry = n.Entry

		if !n.Loaded {
			e.tree.SetPlaceholder(h, tree.KindLoading, "")
		}

		e.emitter.Emit(events.BusyStarted{Node: h, Reason: filesystem.OpList})
	}) {
		return ErrClosed
	}

	if skip {
		return nil
	}

	// One listing per node at a time, applied to the tree once and outliving
	// the callers waiting on it.
	results := e.loads.DoChan(strconv.FormatUint(uint64(h), 10), func() (any, error) {
		entries, err := e.listVisible(context.WithoutCancel(ctx), entry.Path)
		return e.applyListing(h, entry, entries, err), err
	})

	var (
		links []item
		err   error
	)

	select {
	case res := <-results:
		links, _ = res.Val.([]item)
		err = res.Err
	case <-ctx.Done():
		err = errors.Remote(filesystem.OpList, entry.Path, ctx.Err())
	}

	e.Call(func() { e.emitter.Emit(events.BusyStopped{Node: h}) })

	if err != nil {
		e.logger.Debug().Err(err).Str("path", entry.Path).Msg("listing failed")
		return err
	}

	e.resolveLinks(ctx, links)

	return nil
}

// applyListing puts the outcome of listing h into the tree and returns the
// symbolic links still to classify. A cancelled listing leaves h unloaded
// with no placeholder.
func (e *Explorer) applyListing(h tree.Handle, entry filesystem.FileEntry, entries []filesystem.FileEntry, err error) []item {
	var links []item

	e.Call(func() {
		if !e.tree.Alive(h) {
			return
		}

		switch {
		case errors.Is(err, errors.ErrUserCancelled):
			e.tree.ClearPlaceholder(h)
			e.tree.ResetLoaded(h)

			return
		case err != nil:
			e.tree.SetPlaceholder(h, tree.KindError, err.Error())
			e.emitter.Emit(events.ErrorReported{Message: e.describe(err, entry.Path), Err: err})

			return
		}

		e.tree.UpdateChildren(h, entries)
		e.tree.Node(h).Loaded = true

		for _, child := range e.tree.Children(h) {
			n := e.tree.Node(child) //nolint:varnamelen // n is idiomatic for node
			if !n.IsPlaceholder() && n.Entry.IsSymlink && n.LinkToDir == tree.Unknown {
				links = append(links, item{handle: child, entry: n.Entry, linkToDir: tree.Unknown})
			}
		}
	})

	return links
}

// resolveLinks asks the device, one link at a time, where each symbolic link
// points and moves the node when that changes its sort position. A link
// that cannot be resolved, such as a dangling one, is treated as a file.
func (e *Explorer) resolveLinks(ctx context.Context, links []item) {
	if len(links) == 0 {
		return
	}

	outcome, err := sequence.Run(ctx, links, func(ctx context.Context, link item) error {
		isDir, err := e.remote.IsSymlinkToDirectory(ctx, link.entry)
		if errors.Is(err, errors.ErrUserCancelled) {
			return err
		}

		e.Call(func() { e.tree.Reclassify(link.handle, isDir) })

		return err
	})
	if err != nil {
		e.logger.Debug().Err(err).Int("resolved", outcome.Completed).Msg("link resolution stopped")
	}

	for _, failure := range outcome.Failures {
		e.logger.Debug().Err(failure.Err).Str("path", links[failure.Index].entry.Path).Msg("link resolution failed")
	}
}

// listVisible lists dir on the device without hidden entries.
func (e *Explorer) listVisible(ctx context.Context, dir string) ([]filesystem.FileEntry, error) {
	entries, err := e.remote.ListEntries(ctx, dir)
	if err != nil {
		return nil, err
	}

	return e.filter.Apply(entries), nil
}

// describe renders err for the user with suggestions for its category.
func (e *Explorer) describe(err error, affectedPath string) string {
	text := err.Error()
	if hints := errors.FormatSuggestions(e.enricher.Enrich(err, affectedPath)); hints != "" {
		text += "\n" + hints
	}

	return text
}

package explorer

import (
	"slices"
	"time"

	"github.com/joe/device-explorer/internal/events"
	"github.com/joe/device-explorer/internal/tree"
)

func (e *Explorer) run() {
	defer close(e.stopped)

	for {
		var tick <-chan time.Time
		if e.repaint != nil {
			tick = e.repaint.C()
		}

		select {
		case fn := <-e.work:
			fn()
		case <-tick:
			e.repaintTick()
		case <-e.quit:
			e.stopRepaint()
			return
		}
	}
}

// Post queues fn on the coordination goroutine without waiting for it. It
// is dropped once the explorer is closed. Must not be called from the loop.
func (e *Explorer) Post(fn func()) {
	select {
	case e.work <- fn:
	case <-e.quit:
	}
}

// Call runs fn on the coordination goroutine and waits for it. It reports
// false, without running fn, once the explorer is closed. Must not be called
// from the loop.
func (e *Explorer) Call(fn func()) bool {
	done := make(chan struct{})

	select {
	case e.work <- func() { defer close(done); fn() }:
	case <-e.quit:
		return false
	}

	<-done

	return true
}

// markTransferring flags h as moving bytes and starts the repaint ticker.
// Runs on the loop.
func (e *Explorer) markTransferring(h tree.Handle, upload bool) {
	n := e.tree.Node(h) //nolint:varnamelen // n is idiomatic for node
	if n == nil {
		return
	}

	if upload {
		n.Uploading = true
	} else {
		n.Downloading = true
	}

	n.Progress = tree.Progress{}
	e.transferring[h] = struct{}{}

	if e.repaint == nil {
		e.repaint = e.clock.NewTicker(e.settings.RepaintInterval)
	}

	e.emitter.Emit(events.NodesRepaint{Nodes: []tree.Handle{h}})
}

// clearTransferring drops h from the transferring set. The ticker notices
// the empty set on its next tick. Runs on the loop.
func (e *Explorer) clearTransferring(h tree.Handle) {
	if _, ok := e.transferring[h]; !ok {
		return
	}

	delete(e.transferring, h)

	if n := e.tree.Node(h); n != nil {
		n.Downloading = false
		n.Uploading = false
		n.Progress = tree.Progress{}
		e.emitter.Emit(events.NodesRepaint{Nodes: []tree.Handle{h}})
	}
}

func (e *Explorer) clearAllTransferring() {
	for h := range e.transferring {
		e.clearTransferring(h)
	}
}

// repaintTick advances the animation of every transferring node and asks
// views to redraw them. An empty set stops the ticker.
func (e *Explorer) repaintTick() {
	nodes := make([]tree.Handle, 0, len(e.transferring))

	for h := range e.transferring {
		n := e.tree.Node(h) //nolint:varnamelen // n is idiomatic for node
		if n == nil {
			delete(e.transferring, h)
			continue
		}

		n.Tick++
		nodes = append(nodes, h)
	}

	if len(nodes) == 0 {
		e.stopRepaint()
		return
	}

	slices.Sort(nodes)
	e.emitter.Emit(events.NodesRepaint{Nodes: nodes})
}

func (e *Explorer) stopRepaint() {
	if e.repaint != nil {
		e.repaint.Stop()
		e.repaint = nil
	}
}

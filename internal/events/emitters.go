package events

import (
	"context"
	"sync"

	"github.com/joe/device-explorer/internal/tree"
)

// TreeObserver forwards tree edits as events.
type TreeObserver struct {
	Emitter Emitter
}

// NodesInserted implements tree.Observer.
func (o TreeObserver) NodesInserted(parent tree.Handle, children []tree.Handle, indices []int) {
	o.Emitter.Emit(NodesInserted{Parent: parent, Children: children, Indices: indices})
}

// NodesRemoved implements tree.Observer.
func (o TreeObserver) NodesRemoved(parent tree.Handle, children []tree.Handle, indices []int) {
	o.Emitter.Emit(NodesRemoved{Parent: parent, Children: children, Indices: indices})
}

// NodeChanged implements tree.Observer.
func (o TreeObserver) NodeChanged(node tree.Handle) {
	o.Emitter.Emit(NodeChanged{Node: node})
}

// Queue is an unbounded emitter. Emit never blocks, so the explorer loop
// cannot stall on a slow consumer.
type Queue struct {
	mu      sync.Mutex
	pending []Event
	ready   chan struct{}
	closed  bool
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{ready: make(chan struct{}, 1)}
}

// Emit appends event. Events emitted after Close are dropped.
func (q *Queue) Emit(event Event) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}

	q.pending = append(q.pending, event)
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Next blocks until an event is available, the queue is closed and drained,
// or ctx is done.
func (q *Queue) Next(ctx context.Context) (Event, bool) {
	for {
		q.mu.Lock()
		if len(q.pending) > 0 {
			event := q.pending[0]
			q.pending[0] = nil
			q.pending = q.pending[1:]
			q.mu.Unlock()

			return event, true
		}

		closed := q.closed
		q.mu.Unlock()

		if closed {
			return nil, false
		}

		select {
		case <-q.ready:
		case <-ctx.Done():
			return nil, false
		}
	}
}

// Close stops accepting events and wakes a blocked Next.
func (q *Queue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()

	select {
	case q.ready <- struct{}{}:
	default:
	}
}

// Recorder keeps every event, for tests and for replaying a run.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// Emit implements Emitter.
func (r *Recorder) Emit(event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, event)
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]Event(nil), r.events...)
}

// Reset forgets recorded events.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = nil
}

// Of returns the recorded events of type T in order.
func Of[T Event](r *Recorder) []T {
	var matched []T

	for _, event := range r.Events() {
		if typed, ok := event.(T); ok {
			matched = append(matched, typed)
		}
	}

	return matched
}

// Multi fans an event out to several emitters in order.
type Multi []Emitter

// Emit implements Emitter.
func (m Multi) Emit(event Event) {
	for _, emitter := range m {
		emitter.Emit(event)
	}
}

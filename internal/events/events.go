// Package events carries what the explorer engine tells its front-ends:
// structural tree edits, repaint requests, busy indicators, operation
// progress and result messages.
package events

import "github.com/joe/device-explorer/internal/tree"

// Event is the interface implemented by all explorer events.
type Event interface {
	isEvent()
}

// Emitter is the interface for emitting events.
type Emitter interface {
	Emit(event Event)
}

// EmitterFunc adapts a function to Emitter.
type EmitterFunc func(Event)

// Emit calls f.
func (f EmitterFunc) Emit(event Event) { f(event) }

// Discard drops every event.
var Discard Emitter = EmitterFunc(func(Event) {})

// Tree events

// NodesInserted is emitted after children were added to Parent. Indices are
// positions in the updated child list.
type NodesInserted struct {
	Parent   tree.Handle
	Children []tree.Handle
	Indices  []int
}

func (NodesInserted) isEvent() {}

// NodesRemoved is emitted after children were detached from Parent. Indices
// are positions in the child list before the removal.
type NodesRemoved struct {
	Parent   tree.Handle
	Children []tree.Handle
	Indices  []int
}

func (NodesRemoved) isEvent() {}

// NodeChanged is emitted when a node's entry was replaced in place.
type NodeChanged struct {
	Node tree.Handle
}

func (NodeChanged) isEvent() {}

// NodesRepaint asks views to redraw nodes whose transfer state moved.
type NodesRepaint struct {
	Nodes []tree.Handle
}

func (NodesRepaint) isEvent() {}

// Busy indicator events

// BusyStarted is emitted when the explorer starts waiting on the device for
// Node. Node is tree.NoHandle for operations not tied to a node.
type BusyStarted struct {
	Node   tree.Handle
	Reason string
}

func (BusyStarted) isEvent() {}

// BusyStopped ends the matching BusyStarted.
type BusyStopped struct {
	Node tree.Handle
}

func (BusyStopped) isEvent() {}

// Operation events

// ProgressChanged is emitted by the foreground operation.
type ProgressChanged struct {
	OperationID   string
	Kind          string
	Text          string
	Fraction      float64
	Indeterminate bool
}

func (ProgressChanged) isEvent() {}

// OperationFinished carries the user-facing result of a foreground
// operation. Err is nil on full success.
type OperationFinished struct {
	OperationID string
	Kind        string
	Message     string
	Err         error
}

func (OperationFinished) isEvent() {}

// ErrorReported carries a failure not tied to a batch operation, such as a
// directory that could not be listed.
type ErrorReported struct {
	Message string
	Err     error
}

func (ErrorReported) isEvent() {}

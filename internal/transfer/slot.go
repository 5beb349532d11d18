package transfer

import (
	"fmt"

	"github.com/joe/device-explorer/pkg/errors"
)

// Slot admits at most one foreground operation. It is confined to the
// explorer's coordination goroutine.
type Slot struct {
	active *Tracker
}

// Register admits t. While a non-backgroundable operation is active it
// fails with errors.ErrBusy and changes nothing; a backgroundable one is
// moved to the background to make room.
func (s *Slot) Register(t *Tracker) error {
	if current := s.current(); current != nil {
		if !current.Backgroundable() {
			return fmt.Errorf("%s %s is running: %w", current.Kind(), current.ID(), errors.ErrBusy)
		}

		current.Background()
	}

	s.active = t

	return nil
}

// Release frees the slot if t holds it.
func (s *Slot) Release(t *Tracker) {
	if s.active == t {
		s.active = nil
	}
}

// Active returns the foreground operation, or nil.
func (s *Slot) Active() *Tracker {
	return s.current()
}

// Preempt frees the slot for a device switch, device list refresh or
// shutdown: a backgroundable operation keeps running in the background, any
// other is cancelled. It returns the displaced tracker, if any.
func (s *Slot) Preempt() *Tracker {
	current := s.current()
	if current == nil {
		return nil
	}

	if current.Backgroundable() {
		current.Background()
	} else {
		current.Cancel()
	}

	s.active = nil

	return current
}

func (s *Slot) current() *Tracker {
	if s.active != nil && (s.active.Done() || s.active.State() == Backgrounded) {
		s.active = nil
	}

	return s.active
}

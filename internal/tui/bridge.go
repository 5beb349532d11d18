package tui

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/joe/device-explorer/internal/events"
)

// EventMsg wraps an explorer event for use as a tea.Msg.
type EventMsg struct {
	Event events.Event
}

// queueClosedMsg is sent once the event queue is closed and drained.
type queueClosedMsg struct{}

// listen returns a tea.Cmd that blocks until the next explorer event.
// Update re-arms it after every EventMsg.
func listen(ctx context.Context, queue *events.Queue) tea.Cmd {
	return func() tea.Msg {
		event, ok := queue.Next(ctx)
		if !ok {
			return queueClosedMsg{}
		}

		return EventMsg{Event: event}
	}
}

// promptRequestMsg asks the Update loop for a name.
type promptRequestMsg struct {
	initial string
	problem string
	reply   chan<- promptReply
}

type promptReply struct {
	name string
	ok   bool
}

// namePrompter implements explorer.NamePrompter by handing each request to
// the Update loop and waiting for the user's answer.
type namePrompter struct {
	requests chan promptRequestMsg
}

func newNamePrompter() *namePrompter {
	return &namePrompter{requests: make(chan promptRequestMsg)}
}

// PromptName implements explorer.NamePrompter.
func (p *namePrompter) PromptName(ctx context.Context, initial, problem string) (string, bool) {
	reply := make(chan promptReply, 1)

	select {
	case p.requests <- promptRequestMsg{initial: initial, problem: problem, reply: reply}:
	case <-ctx.Done():
		return "", false
	}

	select {
	case answer := <-reply:
		return answer.name, answer.ok
	case <-ctx.Done():
		return "", false
	}
}

// listen returns a tea.Cmd that blocks until a workflow asks for a name.
func (p *namePrompter) listen(ctx context.Context) tea.Cmd {
	return func() tea.Msg {
		select {
		case request := <-p.requests:
			return request
		case <-ctx.Done():
			return nil
		}
	}
}

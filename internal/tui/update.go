package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/joe/device-explorer/internal/events"
	"github.com/joe/device-explorer/internal/transfer"
	"github.com/joe/device-explorer/internal/tree"
	"github.com/joe/device-explorer/pkg/errors"
)

const (
	kindExpand  = "expand"
	kindRefresh = "refresh"
)

// opDoneMsg is sent when a workflow started from the TUI returns.
type opDoneMsg struct {
	kind string
	err  error
}

// Update implements tea.Model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.bar.Width = min(max(msg.Width-barPadding, minTreeHeight), progressBarWidth)
		m.help.Width = msg.Width
		m.clampOffset()

		return m, nil

	case EventMsg:
		m.handleEvent(msg.Event)
		m.rebuild()

		return m, listen(m.ctx, m.queue)

	case queueClosedMsg:
		return m, nil

	case promptRequestMsg:
		m.openNamePrompt(msg)
		return m, textinput.Blink

	case opDoneMsg:
		m.handleDone(msg)
		m.rebuild()

		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)

		return m, cmd

	case progress.FrameMsg:
		model, cmd := m.bar.Update(msg)
		if bar, ok := model.(progress.Model); ok {
			m.bar = bar
		}

		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m *Model) handleEvent(event events.Event) {
	switch ev := event.(type) {
	case events.BusyStarted:
		m.busy[ev.Node] = ev.Reason
		if ev.Node == tree.NoHandle {
			m.running = true
			m.progress = events.ProgressChanged{Kind: ev.Reason, Indeterminate: true}
		}
	case events.BusyStopped:
		delete(m.busy, ev.Node)
		if ev.Node == tree.NoHandle {
			m.running = false
		}
	case events.ProgressChanged:
		m.progress = ev
	case events.OperationFinished:
		m.running = false
		m.progress = events.ProgressChanged{}

		style := successStyle
		if ev.Err != nil {
			style = errorStyle
		}

		for _, line := range strings.Split(ev.Message, "\n") {
			m.addLog(style.Render(line))
		}
	case events.ErrorReported:
		m.addLog(errorStyle.Render(ev.Message))
	}
}

// handleDone reports errors the explorer did not already present. Listing
// failures arrive as ErrorReported events.
func (m *Model) handleDone(msg opDoneMsg) {
	err := msg.err
	if err == nil || msg.kind == kindExpand || msg.kind == kindRefresh {
		return
	}

	if errors.Is(err, errors.ErrPartialFailure) || errors.Is(err, errors.ErrUserCancelled) ||
		errors.Is(err, errors.ErrBusy) {
		return
	}

	m.addLog(errorStyle.Render(fmt.Sprintf("%s: %v", msg.kind, err)))
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch m.mode {
	case modeConfirmDelete:
		return m.handleConfirmKey(msg)
	case modeName, modeUploadPath:
		return m.handleInputKey(msg)
	case modeBrowse:
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Up):
		m.moveCursor(-1)

	case key.Matches(msg, m.keys.Down):
		m.moveCursor(1)

	case key.Matches(msg, m.keys.Expand):
		return m.expandCurrent()

	case key.Matches(msg, m.keys.Collapse):
		m.collapseCurrent()

	case key.Matches(msg, m.keys.Refresh):
		h := m.directory()
		return m, m.runErr(kindRefresh, func(ctx context.Context) error { return m.explorer.Refresh(ctx, h) })

	case key.Matches(msg, m.keys.Select):
		m.toggleMark()
		m.moveCursor(1)

	case key.Matches(msg, m.keys.ClearSelection):
		m.marked = nil

	case key.Matches(msg, m.keys.Download):
		handles := m.targets()
		if len(handles) == 0 {
			return m, nil
		}

		dir := m.downloadDir

		return m, m.run(transfer.Download.String(), func(ctx context.Context) (transfer.Summary, error) {
			return m.explorer.Download(ctx, handles, dir)
		})

	case key.Matches(msg, m.keys.Estimate):
		handles := m.targets()
		if len(handles) == 0 {
			return m, nil
		}

		return m, m.run(transfer.EstimateOnly.String(), func(ctx context.Context) (transfer.Summary, error) {
			return m.explorer.Estimate(ctx, handles)
		})

	case key.Matches(msg, m.keys.Upload):
		m.openUploadPrompt()
		return m, textinput.Blink

	case key.Matches(msg, m.keys.Delete):
		if handles := m.targets(); len(handles) > 0 {
			m.pendingDelete = handles
			m.mode = modeConfirmDelete
		}

	case key.Matches(msg, m.keys.NewFile):
		parent := m.directory()
		return m, m.runErr("new file", func(ctx context.Context) error {
			return m.explorer.NewFile(ctx, parent, m.prompter)
		})

	case key.Matches(msg, m.keys.NewDir):
		parent := m.directory()
		return m, m.runErr("new directory", func(ctx context.Context) error {
			return m.explorer.NewDirectory(ctx, parent, m.prompter)
		})

	case key.Matches(msg, m.keys.Background):
		if m.explorer.Background() {
			m.running = false
			m.progress = events.ProgressChanged{}
			m.addLog(dimStyle.Render("Moved to the background"))
		}

	case key.Matches(msg, m.keys.Cancel):
		m.explorer.Cancel()
	}

	return m, nil
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		handles := m.pendingDelete
		m.pendingDelete = nil
		m.mode = modeBrowse
		m.marked = nil

		return m, m.run(transfer.Delete.String(), func(ctx context.Context) (transfer.Summary, error) {
			return m.explorer.Delete(ctx, handles)
		})

	case key.Matches(msg, m.keys.Deny):
		m.pendingDelete = nil
		m.mode = modeBrowse
	}

	return m, nil
}

func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type { //nolint:exhaustive // Only special keys are handled; the rest go to the input
	case tea.KeyEnter:
		return m.submitInput()

	case tea.KeyEsc, tea.KeyCtrlC:
		if m.mode != modeName {
			m.closeInput()
			return m, nil
		}

		m.answerPrompt("", false)
		m.closeInput()

		return m, m.prompter.listen(m.ctx)

	case tea.KeyTab, tea.KeyShiftTab:
		if m.mode == modeUploadPath {
			m.cycleCompletion(msg.Type == tea.KeyTab)
			return m, nil
		}
	}

	m.completions = nil

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)

	return m, cmd
}

func (m Model) submitInput() (tea.Model, tea.Cmd) {
	value := m.input.Value()

	if m.mode == modeName {
		m.answerPrompt(value, true)
		m.closeInput()

		return m, m.prompter.listen(m.ctx)
	}

	local := strings.TrimSpace(value)
	parent := m.directory()
	m.closeInput()

	if local == "" {
		return m, nil
	}

	local = expandHome(local)

	return m, m.run(transfer.Upload.String(), func(ctx context.Context) (transfer.Summary, error) {
		return m.explorer.Upload(ctx, parent, []string{local})
	})
}

func (m *Model) openNamePrompt(request promptRequestMsg) {
	m.pendingPrompt = &request
	m.mode = modeName
	m.inputProblem = request.problem
	m.input.Placeholder = "name"
	m.input.SetValue(request.initial)
	m.input.CursorEnd()
	m.input.Focus()
}

func (m *Model) openUploadPrompt() {
	m.mode = modeUploadPath
	m.inputProblem = ""
	m.input.Placeholder = "local file or directory"
	m.input.SetValue("")
	m.input.Focus()
}

func (m *Model) answerPrompt(name string, ok bool) {
	if m.pendingPrompt == nil {
		return
	}

	m.pendingPrompt.reply <- promptReply{name: name, ok: ok}
	m.pendingPrompt = nil
}

func (m *Model) closeInput() {
	m.mode = modeBrowse
	m.inputProblem = ""
	m.completions = nil
	m.input.Blur()
	m.input.SetValue("")
}

// cycleCompletion completes the upload path. A single match is taken
// directly; several are cycled through.
func (m *Model) cycleCompletion(forward bool) {
	if len(m.completions) == 0 {
		m.completions = pathCompletions(m.local, m.input.Value())
		m.completionIdx = 0

		if len(m.completions) == 1 {
			m.input.SetValue(m.completions[0])
			m.input.CursorEnd()
			m.completions = nil
		}

		return
	}

	if forward {
		m.completionIdx = (m.completionIdx + 1) % len(m.completions)
	} else {
		m.completionIdx = (m.completionIdx - 1 + len(m.completions)) % len(m.completions)
	}

	m.input.SetValue(m.completions[m.completionIdx])
	m.input.CursorEnd()
}

func (m Model) expandCurrent() (tea.Model, tea.Cmd) {
	r, ok := m.current()
	if !ok || r.node.IsPlaceholder() || !r.node.IsExpandable() {
		return m, nil
	}

	m.expanded[r.handle()] = true
	m.rebuild()

	return m, m.expandCmd(r.handle())
}

func (m *Model) collapseCurrent() {
	r, ok := m.current()
	if !ok {
		return
	}

	if r.expanded && len(r.path) > 1 {
		delete(m.expanded, r.handle())
		m.rebuild()

		return
	}

	if len(r.path) > 1 {
		m.cursorPath = r.path[:len(r.path)-1]
		m.cursor = m.visibleIndex(m.cursorPath)
		m.clampOffset()
	}
}

func (m Model) expandCmd(h tree.Handle) tea.Cmd {
	return m.runErr(kindExpand, func(ctx context.Context) error { return m.explorer.Expand(ctx, h) })
}

// run starts a batch workflow off the Update loop.
func (m Model) run(kind string, fn func(ctx context.Context) (transfer.Summary, error)) tea.Cmd {
	ctx := m.ctx

	return func() tea.Msg {
		_, err := fn(ctx)
		return opDoneMsg{kind: kind, err: err}
	}
}

func (m Model) runErr(kind string, fn func(ctx context.Context) error) tea.Cmd {
	ctx := m.ctx

	return func() tea.Msg {
		return opDoneMsg{kind: kind, err: fn(ctx)}
	}
}

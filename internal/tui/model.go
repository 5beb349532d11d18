// Package tui is the interactive terminal front-end of the explorer: a
// lazily expanded tree of the device with selection, transfers, deletes and
// entry creation.
package tui

import (
	"context"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/joe/device-explorer/internal/events"
	"github.com/joe/device-explorer/internal/explorer"
	"github.com/joe/device-explorer/internal/tree"
	"github.com/joe/device-explorer/pkg/filesystem"
)

const (
	maxLogEntries = 5
	// chromeLines is what the title, status area and help take up.
	chromeLines   = 11
	minTreeHeight = 3
)

// Options configures a Model.
type Options struct {
	Explorer *explorer.Explorer
	// Queue must be the explorer's emitter.
	Queue *events.Queue
	// Local resolves upload path completions.
	Local filesystem.LocalFileStore
	// DownloadDir receives downloads; empty means each entry's default
	// location in the mirror.
	DownloadDir string
	Title       string
}

type mode int

const (
	modeBrowse mode = iota
	modeConfirmDelete
	modeName
	modeUploadPath
)

// row is one visible line of the tree.
type row struct {
	path     []tree.Handle
	node     tree.Node
	depth    int
	expanded bool
}

func (r row) handle() tree.Handle { return r.path[len(r.path)-1] }

// Model represents the TUI state
type Model struct {
	ctx      context.Context
	explorer *explorer.Explorer
	queue    *events.Queue
	local    filesystem.LocalFileStore
	prompter *namePrompter
	keys     KeyMap

	help    help.Model
	spinner spinner.Model
	bar     progress.Model
	input   textinput.Model

	rows       []row
	cursor     int
	offset     int
	cursorPath []tree.Handle
	expanded   map[tree.Handle]bool
	marked     [][]tree.Handle
	busy       map[tree.Handle]string

	mode          mode
	pendingDelete []tree.Handle
	pendingPrompt *promptRequestMsg
	inputProblem  string
	completions   []string
	completionIdx int

	progress    events.ProgressChanged
	running     bool
	log         []string
	downloadDir string
	title       string
	width       int
	height      int
	quitting    bool
}

// New creates the explorer TUI. ctx bounds every operation it starts.
func New(ctx context.Context, opts Options) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color(primaryColorCode))

	input := textinput.New()
	input.CharLimit = 255
	input.Width = 60
	input.Prompt = "▶ "

	title := opts.Title
	if title == "" {
		title = "Device Explorer"
	}

	m := Model{
		ctx:         ctx,
		explorer:    opts.Explorer,
		queue:       opts.Queue,
		local:       opts.Local,
		prompter:    newNamePrompter(),
		keys:        DefaultKeyMap(),
		help:        help.New(),
		spinner:     s,
		bar:         newProgressModel(progressBarWidth),
		input:       input,
		expanded:    make(map[tree.Handle]bool),
		busy:        make(map[tree.Handle]string),
		downloadDir: opts.DownloadDir,
		title:       title,
		height:      chromeLines + 20,
	}

	root := opts.Explorer.Root()
	m.expanded[root] = true
	m.cursorPath = []tree.Handle{root}
	m.rebuild()

	return m
}

// Init implements tea.Model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		listen(m.ctx, m.queue),
		m.prompter.listen(m.ctx),
		m.spinner.Tick,
		m.expandCmd(m.explorer.Root()),
	)
}

// Quitting reports whether the user asked to leave.
func (m Model) Quitting() bool {
	return m.quitting
}

// rebuild flattens the expanded part of the tree into rows and puts the
// cursor back on the entry it was on, or on its nearest surviving ancestor.
func (m *Model) rebuild() {
	var rows []row

	m.explorer.View(func(tr *tree.Tree) {
		var walk func(chain []tree.Handle, depth int)

		walk = func(chain []tree.Handle, depth int) {
			h := chain[len(chain)-1]
			n := tr.Node(h) //nolint:varnamelen // n is idiomatic for node
			expanded := m.expanded[h] && n.IsExpandable()

			rows = append(rows, row{path: chain, node: *n, depth: depth, expanded: expanded})

			if !expanded {
				return
			}

			for _, child := range tr.Children(h) {
				walk(append(chain[:len(chain):len(chain)], child), depth+1)
			}
		}

		walk([]tree.Handle{tr.Root()}, 0)

		if survivors := tr.RestoreSelection([][]tree.Handle{m.cursorPath}); len(survivors) == 1 {
			m.cursorPath = tr.PathTo(survivors[0])
		}

		var kept [][]tree.Handle

		for _, chain := range m.marked {
			if survivors := tr.RestoreSelection([][]tree.Handle{chain}); len(survivors) == 1 && survivors[0] == chain[len(chain)-1] {
				kept = append(kept, chain)
			}
		}

		m.marked = kept
	})

	m.rows = rows
	m.cursor = m.visibleIndex(m.cursorPath)
	m.clampOffset()
}

// visibleIndex returns the row of the deepest handle of chain that is shown.
func (m *Model) visibleIndex(chain []tree.Handle) int {
	for depth := len(chain) - 1; depth >= 0; depth-- {
		for i, r := range m.rows {
			if r.handle() == chain[depth] {
				return i
			}
		}
	}

	return 0
}

func (m *Model) moveCursor(delta int) {
	if len(m.rows) == 0 {
		return
	}

	m.cursor = min(max(m.cursor+delta, 0), len(m.rows)-1)
	m.cursorPath = m.rows[m.cursor].path
	m.clampOffset()
}

func (m *Model) treeHeight() int {
	return max(m.height-chromeLines, minTreeHeight)
}

func (m *Model) clampOffset() {
	visible := m.treeHeight()

	if m.cursor < m.offset {
		m.offset = m.cursor
	}

	if m.cursor >= m.offset+visible {
		m.offset = m.cursor - visible + 1
	}

	m.offset = max(0, min(m.offset, len(m.rows)-visible))
}

func (m *Model) current() (row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return row{}, false
	}

	return m.rows[m.cursor], true
}

func (m *Model) isMarked(h tree.Handle) bool {
	for _, chain := range m.marked {
		if chain[len(chain)-1] == h {
			return true
		}
	}

	return false
}

func (m *Model) toggleMark() {
	r, ok := m.current()
	if !ok || r.node.IsPlaceholder() || len(r.path) == 1 {
		return
	}

	for i, chain := range m.marked {
		if chain[len(chain)-1] == r.handle() {
			m.marked = append(m.marked[:i:i], m.marked[i+1:]...)
			return
		}
	}

	m.marked = append(m.marked, r.path)
}

// targets returns the marked entries, or the one under the cursor.
func (m *Model) targets() []tree.Handle {
	if len(m.marked) > 0 {
		handles := make([]tree.Handle, 0, len(m.marked))
		for _, chain := range m.marked {
			handles = append(handles, chain[len(chain)-1])
		}

		return handles
	}

	r, ok := m.current()
	if !ok || r.node.IsPlaceholder() || len(r.path) == 1 {
		return nil
	}

	return []tree.Handle{r.handle()}
}

// directory returns the directory under the cursor, or the parent of the
// entry under it.
func (m *Model) directory() tree.Handle {
	r, ok := m.current()
	if !ok {
		return m.explorer.Root()
	}

	if !r.node.IsPlaceholder() && r.node.IsExpandable() {
		return r.handle()
	}

	if len(r.path) > 1 {
		return r.path[len(r.path)-2]
	}

	return r.handle()
}

func (m *Model) addLog(line string) {
	m.log = append(m.log, line)
	if len(m.log) > maxLogEntries {
		m.log = m.log[len(m.log)-maxLogEntries:]
	}
}

package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the explorer's key bindings.
type KeyMap struct {
	// Navigation
	Up       key.Binding
	Down     key.Binding
	Expand   key.Binding
	Collapse key.Binding
	Refresh  key.Binding

	// Selection
	Select         key.Binding
	ClearSelection key.Binding

	// Operations
	Download    key.Binding
	Upload      key.Binding
	Delete      key.Binding
	NewFile     key.Binding
	NewDir      key.Binding
	Estimate    key.Binding
	Background  key.Binding
	Cancel      key.Binding
	Quit        key.Binding
	Confirm     key.Binding
	Deny        key.Binding
	Complete    key.Binding
	CompleteRev key.Binding
}

// DefaultKeyMap returns the standard bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
		Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
		Expand:   key.NewBinding(key.WithKeys("right", "l", "enter"), key.WithHelp("→/l", "expand")),
		Collapse: key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "collapse")),
		Refresh:  key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),

		Select:         key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "select")),
		ClearSelection: key.NewBinding(key.WithKeys("C"), key.WithHelp("C", "clear selection")),

		Download:    key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "download")),
		Upload:      key.NewBinding(key.WithKeys("u"), key.WithHelp("u", "upload")),
		Delete:      key.NewBinding(key.WithKeys("x", "delete"), key.WithHelp("x", "delete")),
		NewFile:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "new file")),
		NewDir:      key.NewBinding(key.WithKeys("N"), key.WithHelp("N", "new directory")),
		Estimate:    key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "size")),
		Background:  key.NewBinding(key.WithKeys("b"), key.WithHelp("b", "background")),
		Cancel:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
		Quit:        key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
		Confirm:     key.NewBinding(key.WithKeys("y", "enter")),
		Deny:        key.NewBinding(key.WithKeys("n", "esc")),
		Complete:    key.NewBinding(key.WithKeys("tab")),
		CompleteRev: key.NewBinding(key.WithKeys("shift+tab")),
	}
}

// ShortHelp lists the bindings shown in the footer.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{
		k.Expand, k.Select, k.Download, k.Upload, k.Delete, k.NewFile, k.NewDir,
		k.Estimate, k.Refresh, k.Background, k.Cancel, k.Quit,
	}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Expand, k.Collapse, k.Refresh},
		{k.Select, k.ClearSelection},
		{k.Download, k.Upload, k.Delete, k.NewFile, k.NewDir, k.Estimate},
		{k.Background, k.Cancel, k.Quit},
	}
}

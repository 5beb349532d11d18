package tui

import (
	"fmt"
	"strings"

	"github.com/joe/device-explorer/internal/tree"
	"github.com/joe/device-explorer/pkg/formatters"
)

//nolint:gochecknoglobals // Animation frames for transferring entries
var transferFrames = []string{"◐", "◓", "◑", "◒"}

// View implements tea.Model
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")

	end := min(m.offset+m.treeHeight(), len(m.rows))
	for i := m.offset; i < end; i++ {
		line := m.renderRow(m.rows[i])
		if i == m.cursor {
			line = cursorStyle.Render(line)
		}

		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString(m.renderPrompt())

	for _, line := range m.log {
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(m.keys.ShortHelp()))

	return b.String()
}

func (m Model) renderRow(r row) string {
	indent := strings.Repeat("  ", r.depth)
	n := r.node //nolint:varnamelen // n is idiomatic for node

	switch n.Kind {
	case tree.KindLoading:
		return indent + "  " + placeholderStyle.Render("Loading…")
	case tree.KindError:
		return indent + "  " + errorStyle.Render(n.Message)
	case tree.KindEntry:
	}

	var b strings.Builder

	b.WriteString(indent)

	switch {
	case r.expanded:
		b.WriteString("▾ ")
	case n.IsExpandable() || (n.Entry.IsSymlink && n.LinkToDir == tree.Unknown):
		b.WriteString("▸ ")
	default:
		b.WriteString("  ")
	}

	if m.isMarked(r.handle()) {
		b.WriteString(markStyle.Render("● "))
	}

	b.WriteString(renderName(n))

	if _, busy := m.busy[r.handle()]; busy {
		b.WriteString(" ")
		b.WriteString(m.spinner.View())
	}

	if n.IsTransferring() {
		b.WriteString(" ")
		b.WriteString(transferStyle.Render(transferFrames[n.Tick%len(transferFrames)]))

		if n.Progress.Total > 0 {
			b.WriteString(transferStyle.Render(fmt.Sprintf(" %s / %s",
				formatters.FormatBytes(n.Progress.Current), formatters.FormatBytes(n.Progress.Total))))
		}
	}

	return b.String()
}

func renderName(n tree.Node) string {
	name := n.Entry.Name

	switch {
	case n.Entry.IsSymlink:
		return linkStyle.Render(name + " →")
	case n.Entry.IsDir:
		return directoryStyle.Render(strings.TrimSuffix(name, "/") + "/")
	default:
		return fileStyle.Render(name) + dimStyle.Render("  "+formatters.FormatBytes(n.Entry.Size))
	}
}

func (m Model) renderStatus() string {
	if !m.running {
		return ""
	}

	var b strings.Builder

	b.WriteString(m.spinner.View())
	b.WriteString(" ")

	text := m.progress.Text
	if text == "" {
		text = m.progress.Kind
	}

	b.WriteString(text)
	b.WriteString("\n")

	if !m.progress.Indeterminate {
		b.WriteString(renderProgress(m.bar, m.progress.Fraction))
		b.WriteString("\n")
	}

	return b.String()
}

func (m Model) renderPrompt() string {
	switch m.mode {
	case modeConfirmDelete:
		return boxStyle.Render(fmt.Sprintf("Delete %d %s? (y/n)", len(m.pendingDelete), plural(len(m.pendingDelete), "entry", "entries"))) + "\n"

	case modeName, modeUploadPath:
		label := "Name"
		if m.mode == modeUploadPath {
			label = "Upload"
		}

		var b strings.Builder

		b.WriteString(label)
		b.WriteString("\n")
		b.WriteString(m.input.View())

		if m.inputProblem != "" {
			b.WriteString("\n")
			b.WriteString(errorStyle.Render(m.inputProblem))
		}

		for i, completion := range m.completions {
			b.WriteString("\n")

			if i == m.completionIdx {
				b.WriteString(markStyle.Render(completion))
			} else {
				b.WriteString(dimStyle.Render(completion))
			}
		}

		return boxStyle.Render(b.String()) + "\n"

	case modeBrowse:
	}

	return ""
}

func plural(count int, one, other string) string {
	if count == 1 {
		return one
	}

	return other
}

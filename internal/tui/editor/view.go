package editor

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/mattsolo1/grove-hed/pkg/service"
	"github.com/mattsolo1/grove-hed/pkg/tree"
)

var (
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	cursorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("208"))
	mutedStyle   = lipgloss.NewStyle().Faint(true)
	markStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("13"))
	newStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	changedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	deletedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Strikethrough(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("3"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))
	selectedLine = lipgloss.NewStyle().Bold(true)
)

var inputLabels = map[inputMode]string{
	inputRename:  "Rename: ",
	inputEdit:    "Set: ",
	inputType:    "Type: ",
	inputSearch:  "Search: ",
	inputColumns: "Columns: ",
}

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if !m.ready {
		return "Loading..."
	}
	if m.help.ShowAll {
		return m.help.View(m.keys)
	}

	body := m.renderTree()
	if m.confirm.Active {
		body = m.confirm.View()
	}

	fullView := lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		"",
		body,
		"",
		m.renderStatus(),
		m.help.View(m.keys),
	)
	return fullView
}

func (m Model) renderHeader() string {
	parts := []string{headerStyle.Render(m.service.Config.Project)}
	if n := m.service.PendingCount(); n > 0 {
		parts = append(parts, changedStyle.Render(fmt.Sprintf("%d pending", n)))
	}
	if q := m.service.Query(); q != "" {
		parts = append(parts, infoStyle.Render(fmt.Sprintf("[search: %s]", q)))
	}
	if m.service.Locked() {
		parts = append(parts, markStyle.Render("[locked]"))
	}
	if m.busy > 0 || m.service.Loading() {
		parts = append(parts, mutedStyle.Render("loading..."))
	}
	// The breadcrumb line is always present so the viewport height is stable.
	var crumbs []string
	if row, ok := m.current(); ok {
		crumbs = m.service.Breadcrumbs(row.Node.Key)
	}
	return strings.Join(parts, "  ") + "\n" + mutedStyle.Render(strings.Join(crumbs, " / "))
}

func (m Model) renderTree() string {
	if len(m.rows) == 0 {
		return mutedStyle.Render("No folders. Press F to add one.")
	}

	var b strings.Builder
	errs := m.service.Errors()
	viewportHeight := m.getViewportHeight()
	start := m.scrollOffset
	end := start + viewportHeight
	if end > len(m.rows) {
		end = len(m.rows)
	}

	labels := make([]string, 0, end-start)
	labelWidth := 0
	for i := start; i < end; i++ {
		label := m.renderRow(i, m.rows[i])
		labels = append(labels, label)
		if w := lipgloss.Width(label); w > labelWidth {
			labelWidth = w
		}
	}

	if len(m.columns) > 0 {
		b.WriteString(strings.Repeat(" ", labelWidth))
		for _, col := range m.columns {
			b.WriteString(" ")
			b.WriteString(headerStyle.Render(service.FitCell(col.Name, col.Width)))
		}
		b.WriteString("\n")
	}

	for i, label := range labels {
		n := m.rows[start+i].Node
		b.WriteString(label)
		if len(m.columns) > 0 {
			b.WriteString(strings.Repeat(" ", labelWidth-lipgloss.Width(label)))
			for _, col := range m.columns {
				b.WriteString(" ")
				b.WriteString(col.Cell(n.Data))
			}
		}
		if msg, ok := errs[n.Key]; ok {
			b.WriteString(" ")
			b.WriteString(errorStyle.Render(msg))
		}
		b.WriteString("\n")
	}

	if len(m.rows) > viewportHeight {
		b.WriteString(mutedStyle.Render(fmt.Sprintf(" (%d-%d of %d)", start+1, end, len(m.rows))))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderRow(i int, row tree.Row) string {
	n := row.Node
	state := m.service.RowState(n.Key)

	cursor := "  "
	if i == m.cursor {
		cursor = cursorStyle.Render("▶ ")
	}
	mark := " "
	if m.marked[n.Key] {
		mark = markStyle.Render("●")
	}

	fold := "  "
	switch {
	case n.Leaf:
	case row.Expanded:
		fold = "▼ "
	default:
		fold = "▶ "
	}

	name := n.Name
	if name == "" {
		name = "<unnamed>"
	}
	name = styleForState(state).Render(name)
	if i == m.cursor {
		name = selectedLine.Render(name)
	}

	line := fmt.Sprintf("%s%s %s%s%s", cursor, mark, strings.Repeat("  ", row.Depth), fold, name)
	if typ := n.Data.Type(); typ != "" {
		line += " " + mutedStyle.Render(typ)
	}
	return line
}

func styleForState(state service.RowState) lipgloss.Style {
	switch state {
	case service.RowNew:
		return newStyle
	case service.RowChanged:
		return changedStyle
	case service.RowDeleted:
		return deletedStyle
	case service.RowError:
		return errorStyle
	}
	return lipgloss.NewStyle()
}

func (m Model) renderStatus() string {
	if m.mode != inputNone {
		return inputLabels[m.mode] + m.input.View()
	}
	if m.statusMessage == "" {
		return ""
	}
	switch m.statusLevel {
	case service.LevelError:
		return errorStyle.Render(m.statusMessage)
	case service.LevelWarning:
		return warningStyle.Render(m.statusMessage)
	}
	return infoStyle.Render(m.statusMessage)
}

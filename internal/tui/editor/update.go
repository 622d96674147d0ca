package editor

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mattsolo1/grove-hed/internal/tui/components/confirm"
	"github.com/mattsolo1/grove-hed/pkg/changeset"
	"github.com/mattsolo1/grove-hed/pkg/models"
	"github.com/mattsolo1/grove-hed/pkg/service"
)

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.clampScroll()
		return m, nil

	case initDoneMsg:
		m.ready = true
		m.setError(msg.err)
		m.refresh()
		if sel := m.service.Selection(); len(sel) > 0 {
			m.moveTo(sel[0])
		} else {
			m.syncSelection()
		}
		return m, nil

	case branchLoadedMsg:
		m.busy--
		m.setError(msg.err)
		m.refresh()
		return m, nil

	case reloadedMsg:
		m.busy--
		m.setError(msg.err)
		if msg.err == nil {
			m.setStatus(service.LevelInfo, "Reloaded")
		}
		m.refresh()
		return m, nil

	case nodesAddedMsg:
		m.busy--
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.refresh()
		m.marked = make(map[string]bool)
		if len(msg.ids) > 1 {
			for _, id := range msg.ids {
				m.marked[id] = true
			}
		}
		if len(msg.ids) > 0 {
			m.moveTo(msg.ids[0])
		}
		m.setStatus(service.LevelInfo, fmt.Sprintf("Added %d unsaved entities", len(msg.ids)))
		return m, m.startInput(inputRename, "", "name")

	case committedMsg:
		m.busy--
		if msg.err != nil {
			m.setError(msg.err)
			m.refresh()
			return m, nil
		}
		m.marked = make(map[string]bool)
		m.refresh()
		failed := len(msg.result.Failed)
		if failed == 0 {
			m.setStatus(service.LevelInfo, fmt.Sprintf("Committed %d operations", msg.result.Submitted))
		} else {
			m.setStatus(service.LevelWarning, fmt.Sprintf("%d of %d operations failed", failed, msg.result.Submitted))
		}
		m.syncSelection()
		return m, nil

	case EntitiesUpdatedMsg:
		if len(msg.IDs) == 0 {
			return m, nil
		}
		m.refresh()
		m.setStatus(service.LevelInfo, fmt.Sprintf("Updated %d entities from the server", len(msg.IDs)))
		return m, nil

	case StatusMsg:
		m.setStatus(msg.Level, msg.Message)
		return m, nil

	case notificationMsg:
		m.setStatus(msg.Level, msg.Message)
		return m, waitForNotification(m.notes)

	case confirm.ConfirmedMsg:
		return m.runConfirmed(msg.Action)

	case confirm.CancelledMsg:
		m.statusMessage = ""
		return m, nil

	case tea.KeyMsg:
		if m.confirm.Active {
			var cmd tea.Cmd
			m.confirm, cmd = m.confirm.Update(msg)
			return m, cmd
		}
		if m.help.ShowAll {
			m.help.ShowAll = false
			return m, nil
		}
		if m.mode != inputNone {
			return m.updateInput(msg)
		}
		return m.updateKeys(msg)
	}

	return m, nil
}

// updateKeys handles keys while no input or dialog is open.
func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		if m.service.PendingCount() > 0 {
			m.confirm.Activate(actionQuit, fmt.Sprintf("Discard %d pending changes and quit?", m.service.PendingCount()))
			return m, nil
		}
		return m.quit()

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = true
		return m, nil

	case key.Matches(msg, m.keys.Up):
		m.move(-1)
	case key.Matches(msg, m.keys.Down):
		m.move(1)
	case key.Matches(msg, m.keys.PageUp):
		m.move(-m.getViewportHeight())
	case key.Matches(msg, m.keys.PageDown):
		m.move(m.getViewportHeight())
	case key.Matches(msg, m.keys.GoToTop):
		m.move(-len(m.rows))
	case key.Matches(msg, m.keys.GoToBottom):
		m.move(len(m.rows))

	case key.Matches(msg, m.keys.Expand):
		return m.expand()

	case key.Matches(msg, m.keys.Collapse):
		row, ok := m.current()
		if !ok {
			return m, nil
		}
		if row.Expanded {
			m.service.Collapse(row.Node.Key)
			m.refresh()
			return m, nil
		}
		if parent := row.Node.Data.ParentID; parent != "" && parent != models.RootID {
			m.moveTo(parent)
			m.syncSelection()
		}

	case key.Matches(msg, m.keys.Toggle):
		row, ok := m.current()
		if !ok || row.Node.Leaf {
			return m, nil
		}
		if row.Expanded {
			m.service.Collapse(row.Node.Key)
			m.refresh()
			return m, nil
		}
		return m.expand()

	case key.Matches(msg, m.keys.Mark):
		row, ok := m.current()
		if !ok {
			return m, nil
		}
		if m.marked[row.Node.Key] {
			delete(m.marked, row.Node.Key)
		} else {
			m.marked[row.Node.Key] = true
		}
		m.move(1)

	case key.Matches(msg, m.keys.ClearMarks):
		m.marked = make(map[string]bool)
		m.syncSelection()

	case key.Matches(msg, m.keys.Lock):
		locked := !m.service.Locked()
		m.service.SetLocked(locked)
		if locked {
			m.setStatus(service.LevelInfo, "Selection locked")
		} else {
			m.setStatus(service.LevelInfo, "Selection unlocked")
			m.syncSelection()
		}

	case key.Matches(msg, m.keys.Columns):
		return m, m.startInput(inputColumns, service.FormatColumns(m.columns), "fps:6, frameStart, status")

	case key.Matches(msg, m.keys.Rename):
		name := ""
		if row, ok := m.current(); ok {
			name = row.Node.Name
		}
		return m, m.startInput(inputRename, name, "name")

	case key.Matches(msg, m.keys.Edit):
		return m, m.startInput(inputEdit, "", "column=value")

	case key.Matches(msg, m.keys.SetType):
		typ := ""
		if row, ok := m.current(); ok {
			typ = row.Node.Data.Type()
		}
		return m, m.startInput(inputType, typ, "type")

	case key.Matches(msg, m.keys.AddFolder):
		m.busy++
		return m, addCmd(m.ctx, m.service, models.EntityFolder, false)

	case key.Matches(msg, m.keys.AddRoot):
		m.busy++
		return m, addCmd(m.ctx, m.service, models.EntityFolder, true)

	case key.Matches(msg, m.keys.AddTask):
		m.busy++
		return m, addCmd(m.ctx, m.service, models.EntityTask, false)

	case key.Matches(msg, m.keys.Delete):
		m.setError(m.service.DeleteSelection())
		m.refresh()
		m.dropStaleMarks()

	case key.Matches(msg, m.keys.Revert):
		m.service.RevertSelection()
		m.refresh()
		m.dropStaleMarks()

	case key.Matches(msg, m.keys.RevertAll):
		if n := m.service.PendingCount(); n > 0 {
			m.confirm.Activate(actionRevertAll, fmt.Sprintf("Revert all %d pending changes?", n))
		}

	case key.Matches(msg, m.keys.Commit):
		if !m.service.CanCommit() {
			m.setStatus(service.LevelInfo, "Nothing to commit")
			return m, nil
		}
		m.confirm.Activate(actionCommit, fmt.Sprintf("Commit %d pending changes?", m.service.PendingCount()))

	case key.Matches(msg, m.keys.Search):
		return m, m.startInput(inputSearch, m.service.Query(), "search folders and tasks")

	case key.Matches(msg, m.keys.ClearSearch):
		if m.service.Query() != "" {
			m.service.ClearSearch()
			m.refresh()
		}

	case key.Matches(msg, m.keys.Reload):
		m.busy++
		return m, reloadCmd(m.ctx, m.service)
	}

	return m, nil
}

// runConfirmed performs an action the user confirmed.
func (m Model) runConfirmed(action string) (tea.Model, tea.Cmd) {
	switch action {
	case actionCommit:
		m.busy++
		m.setStatus(service.LevelInfo, "Committing...")
		return m, commitCmd(m.ctx, m.service)
	case actionRevertAll:
		m.service.RevertAll()
		m.marked = make(map[string]bool)
		m.refresh()
		m.syncSelection()
		m.setStatus(service.LevelInfo, "All changes reverted")
	case actionQuit:
		return m.quit()
	}
	return m, nil
}

// updateInput handles keys while the text input is open.
func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.mode = inputNone
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		mode := m.mode
		value := strings.TrimSpace(m.input.Value())
		m.mode = inputNone
		m.input.Blur()
		m.submitInput(mode, value)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *Model) submitInput(mode inputMode, value string) {
	switch mode {
	case inputRename:
		if value == "" {
			return
		}
		m.setError(m.service.EditSelection(service.FieldName, value))
	case inputType:
		if value == "" {
			return
		}
		m.setError(m.service.EditSelection(service.FieldType, value))
	case inputEdit:
		column, raw, ok := strings.Cut(value, "=")
		column = strings.TrimSpace(column)
		if !ok || column == "" {
			m.setStatus(service.LevelWarning, "Expected column=value")
			return
		}
		m.setError(m.service.EditSelection(column, changeset.ParseValue(strings.TrimSpace(raw))))
	case inputSearch:
		if _, err := m.service.ApplySearch(value); err != nil {
			m.setError(err)
			return
		}
	case inputColumns:
		cols, err := service.ParseColumns(value)
		if err != nil {
			m.setError(err)
			return
		}
		m.service.SetColumns(cols)
	}
	m.refresh()
}

func (m *Model) startInput(mode inputMode, value, placeholder string) tea.Cmd {
	m.mode = mode
	m.input.Placeholder = placeholder
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m.input.Focus()
}

func (m Model) expand() (tea.Model, tea.Cmd) {
	row, ok := m.current()
	if !ok || row.Node.Leaf || row.Expanded {
		return m, nil
	}
	m.busy++
	return m, expandCmd(m.ctx, m.service, row.Node.Key)
}

func (m *Model) move(delta int) {
	if len(m.rows) == 0 {
		return
	}
	m.cursor += delta
	if m.cursor < 0 {
		m.cursor = 0
	}
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	m.clampScroll()
	m.syncSelection()
}

// dropStaleMarks unmarks rows that are no longer shown.
func (m *Model) dropStaleMarks() {
	visible := make(map[string]bool, len(m.rows))
	for _, row := range m.rows {
		visible[row.Node.Key] = true
	}
	for id := range m.marked {
		if !visible[id] {
			delete(m.marked, id)
		}
	}
	m.syncSelection()
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	if err := m.service.SaveViewState(); err != nil {
		m.setError(err)
	}
	return m, tea.Quit
}

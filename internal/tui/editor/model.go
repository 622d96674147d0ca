// Package editor is the interactive hierarchy editor.
package editor

import (
	"context"
	"errors"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mattsolo1/grove-hed/internal/tui/components/confirm"
	"github.com/mattsolo1/grove-hed/pkg/models"
	"github.com/mattsolo1/grove-hed/pkg/service"
	"github.com/mattsolo1/grove-hed/pkg/tree"
)

type inputMode int

const (
	inputNone inputMode = iota
	inputRename
	inputEdit
	inputType
	inputSearch
	inputColumns
)

// Confirmable actions.
const (
	actionCommit    = "commit"
	actionRevertAll = "revert-all"
	actionQuit      = "quit"
)

// Model is the main model for the hierarchy editor TUI
type Model struct {
	service *service.Service
	ctx     context.Context
	notes   service.ChanNotifier

	rows         []tree.Row
	columns      []service.Column
	cursor       int
	scrollOffset int
	marked       map[string]bool
	ready        bool

	keys    KeyMap
	help    help.Model
	input   textinput.Model
	mode    inputMode
	confirm confirm.Model

	width  int
	height int

	statusMessage string
	statusLevel   service.Level
	busy          int
	quitting      bool
}

// New creates the editor for svc. Notifications of svc are shown in the
// status line.
func New(ctx context.Context, svc *service.Service) Model {
	notes := make(service.ChanNotifier, 64)
	svc.SetNotifier(notes)

	ti := textinput.New()
	ti.CharLimit = 200
	ti.Width = 60

	return Model{
		service: svc,
		ctx:     ctx,
		notes:   notes,
		marked:  make(map[string]bool),
		keys:    keys,
		help:    help.New(),
		input:   ti,
		confirm: confirm.New(),
	}
}

// Init loads the saved view and starts listening for notifications.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		initCmd(m.ctx, m.service),
		waitForNotification(m.notes),
	)
}

// --- Messages ---

// initDoneMsg is sent once the root and the saved expansion are loaded
type initDoneMsg struct{ err error }

// branchLoadedMsg is sent after a branch load finished
type branchLoadedMsg struct {
	id  string
	err error
}

// nodesAddedMsg is sent after unsaved entities were added
type nodesAddedMsg struct {
	ids []string
	err error
}

// committedMsg is sent after a commit finished
type committedMsg struct {
	result *service.CommitResult
	err    error
}

// reloadedMsg is sent after a full reload
type reloadedMsg struct{ err error }

// EntitiesUpdatedMsg tells the editor that live updates patched loaded
// entities.
type EntitiesUpdatedMsg struct {
	IDs []string
}

// StatusMsg shows a message from outside the editor in the status line.
type StatusMsg service.Notification

// notificationMsg wraps a service notification
type notificationMsg service.Notification

// --- Commands ---

func initCmd(ctx context.Context, svc *service.Service) tea.Cmd {
	return func() tea.Msg {
		return initDoneMsg{err: svc.Init(ctx)}
	}
}

func waitForNotification(notes service.ChanNotifier) tea.Cmd {
	return func() tea.Msg {
		return notificationMsg(<-notes)
	}
}

func expandCmd(ctx context.Context, svc *service.Service, id string) tea.Cmd {
	return func() tea.Msg {
		return branchLoadedMsg{id: id, err: svc.Expand(ctx, id)}
	}
}

func addCmd(ctx context.Context, svc *service.Service, entityType models.EntityType, atRoot bool) tea.Cmd {
	return func() tea.Msg {
		ids, err := svc.AddNode(ctx, entityType, atRoot)
		return nodesAddedMsg{ids: ids, err: err}
	}
}

func commitCmd(ctx context.Context, svc *service.Service) tea.Cmd {
	return func() tea.Msg {
		res, err := svc.Commit(ctx)
		return committedMsg{result: res, err: err}
	}
}

func reloadCmd(ctx context.Context, svc *service.Service) tea.Cmd {
	return func() tea.Msg {
		return reloadedMsg{err: svc.LoadExpanded(ctx)}
	}
}

// --- Helpers ---

// current returns the row under the cursor.
func (m *Model) current() (tree.Row, bool) {
	if m.cursor < 0 || m.cursor >= len(m.rows) {
		return tree.Row{}, false
	}
	return m.rows[m.cursor], true
}

// refresh rebuilds the rows and keeps the cursor on the same entity when it
// is still visible.
func (m *Model) refresh() {
	var key string
	if row, ok := m.current(); ok {
		key = row.Node.Key
	}
	m.rows = m.service.Rows()
	m.columns = m.service.Columns()
	for i, row := range m.rows {
		if row.Node.Key == key {
			m.cursor = i
			m.clampScroll()
			return
		}
	}
	if m.cursor >= len(m.rows) {
		m.cursor = len(m.rows) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
	m.clampScroll()
}

// moveTo puts the cursor on the row of id.
func (m *Model) moveTo(id string) {
	for i, row := range m.rows {
		if row.Node.Key == id {
			m.cursor = i
			m.clampScroll()
			return
		}
	}
}

// syncSelection hands the marked rows, or the row under the cursor, to the
// service. A locked selection is left alone.
func (m *Model) syncSelection() {
	var ids []string
	for _, row := range m.rows {
		if m.marked[row.Node.Key] {
			ids = append(ids, row.Node.Key)
		}
	}
	if len(ids) == 0 {
		if row, ok := m.current(); ok {
			ids = []string{row.Node.Key}
		}
	}
	m.service.Select(ids...)
}

func (m *Model) setStatus(level service.Level, msg string) {
	m.statusLevel = level
	m.statusMessage = msg
}

func (m *Model) setError(err error) {
	if err == nil {
		return
	}
	if errors.Is(err, service.ErrNothingToCommit) {
		m.setStatus(service.LevelInfo, "Nothing to commit")
		return
	}
	m.setStatus(service.LevelError, err.Error())
}

func (m Model) getViewportHeight() int {
	// header, breadcrumbs, blank, blank, status, help
	h := m.height - 7
	if len(m.columns) > 0 {
		h--
	}
	if h < 1 {
		return 10
	}
	return h
}

func (m *Model) clampScroll() {
	vh := m.getViewportHeight()
	if m.cursor < m.scrollOffset {
		m.scrollOffset = m.cursor
	}
	if m.cursor >= m.scrollOffset+vh {
		m.scrollOffset = m.cursor - vh + 1
	}
	if m.scrollOffset < 0 {
		m.scrollOffset = 0
	}
}

package editor

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the keybindings for the hierarchy editor
type KeyMap struct {
	Up          key.Binding
	Down        key.Binding
	PageUp      key.Binding
	PageDown    key.Binding
	GoToTop     key.Binding
	GoToBottom  key.Binding
	Expand      key.Binding
	Collapse    key.Binding
	Toggle      key.Binding
	Mark        key.Binding
	ClearMarks  key.Binding
	Lock        key.Binding
	Columns     key.Binding
	Rename      key.Binding
	Edit        key.Binding
	SetType     key.Binding
	AddFolder   key.Binding
	AddRoot     key.Binding
	AddTask     key.Binding
	Delete      key.Binding
	Revert      key.Binding
	RevertAll   key.Binding
	Commit      key.Binding
	Search      key.Binding
	ClearSearch key.Binding
	Reload      key.Binding
	Help        key.Binding
	Quit        key.Binding
}

func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Toggle, k.Mark, k.Rename, k.Commit, k.Search, k.Help, k.Quit}
}

func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown, k.GoToTop, k.GoToBottom},
		{k.Expand, k.Collapse, k.Toggle, k.Mark, k.ClearMarks, k.Lock, k.Columns},
		{k.Rename, k.Edit, k.SetType, k.AddFolder, k.AddRoot, k.AddTask, k.Delete},
		{k.Revert, k.RevertAll, k.Commit, k.Search, k.ClearSearch, k.Reload, k.Help, k.Quit},
	}
}

var keys = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("ctrl+u", "pgup"),
		key.WithHelp("ctrl+u", "page up"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("ctrl+d", "pgdown"),
		key.WithHelp("ctrl+d", "page down"),
	),
	GoToTop: key.NewBinding(
		key.WithKeys("g", "home"),
		key.WithHelp("g", "go to top"),
	),
	GoToBottom: key.NewBinding(
		key.WithKeys("G", "end"),
		key.WithHelp("G", "go to bottom"),
	),
	Expand: key.NewBinding(
		key.WithKeys("right", "l"),
		key.WithHelp("→/l", "expand"),
	),
	Collapse: key.NewBinding(
		key.WithKeys("left", "h"),
		key.WithHelp("←/h", "collapse"),
	),
	Toggle: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("enter", "toggle"),
	),
	Mark: key.NewBinding(
		key.WithKeys(" "),
		key.WithHelp("space", "mark"),
	),
	ClearMarks: key.NewBinding(
		key.WithKeys("M"),
		key.WithHelp("M", "clear marks"),
	),
	Lock: key.NewBinding(
		key.WithKeys("L"),
		key.WithHelp("L", "lock selection"),
	),
	Columns: key.NewBinding(
		key.WithKeys("C"),
		key.WithHelp("C", "set columns"),
	),
	Rename: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "rename"),
	),
	Edit: key.NewBinding(
		key.WithKeys("e"),
		key.WithHelp("e", "edit column"),
	),
	SetType: key.NewBinding(
		key.WithKeys("t"),
		key.WithHelp("t", "set type"),
	),
	AddFolder: key.NewBinding(
		key.WithKeys("f"),
		key.WithHelp("f", "add folder"),
	),
	AddRoot: key.NewBinding(
		key.WithKeys("F"),
		key.WithHelp("F", "add root folder"),
	),
	AddTask: key.NewBinding(
		key.WithKeys("a"),
		key.WithHelp("a", "add task"),
	),
	Delete: key.NewBinding(
		key.WithKeys("x", "delete"),
		key.WithHelp("x", "delete"),
	),
	Revert: key.NewBinding(
		key.WithKeys("u"),
		key.WithHelp("u", "revert selection"),
	),
	RevertAll: key.NewBinding(
		key.WithKeys("U"),
		key.WithHelp("U", "revert all"),
	),
	Commit: key.NewBinding(
		key.WithKeys("ctrl+s", "c"),
		key.WithHelp("c", "commit"),
	),
	Search: key.NewBinding(
		key.WithKeys("/"),
		key.WithHelp("/", "search"),
	),
	ClearSearch: key.NewBinding(
		key.WithKeys("esc"),
		key.WithHelp("esc", "clear search"),
	),
	Reload: key.NewBinding(
		key.WithKeys("ctrl+r"),
		key.WithHelp("ctrl+r", "reload"),
	),
	Help: key.NewBinding(
		key.WithKeys("?"),
		key.WithHelp("?", "help"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// Binding is one documented key binding.
type Binding struct {
	Group  string `json:"group"`
	Keys   string `json:"keys"`
	Action string `json:"action"`
}

var groupNames = []string{"Navigation", "Tree", "Editing", "Changes"}

// KeymapInfo lists the editor key bindings in help order.
func KeymapInfo() []Binding {
	var out []Binding
	for i, group := range keys.FullHelp() {
		for _, b := range group {
			h := b.Help()
			out = append(out, Binding{Group: groupNames[i], Keys: h.Key, Action: h.Desc})
		}
	}
	return out
}

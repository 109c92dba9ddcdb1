package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up     key.Binding
	Down   key.Binding
	Left   key.Binding
	Right  key.Binding
	Edit   key.Binding
	Add    key.Binding
	Change key.Binding
	Remove key.Binding
	Title  key.Binding
	Notes  key.Binding
	Save   key.Binding
	Help   key.Binding
	Quit   key.Binding

	ForceQuit key.Binding

	Accept   key.Binding
	Cancel   key.Binding
	Complete key.Binding
}

var keys = keyMap{
	Up:     key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "row up")),
	Down:   key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "row down")),
	Left:   key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "column left")),
	Right:  key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "column right")),
	Edit:   key.NewBinding(key.WithKeys("enter", "e"), key.WithHelp("enter", "edit cell")),
	Add:    key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add food")),
	Change: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "change food")),
	Remove: key.NewBinding(key.WithKeys("x", "delete"), key.WithHelp("x", "remove row")),
	Title:  key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "title")),
	Notes:  key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "notes")),
	Save:   key.NewBinding(key.WithKeys("s", "ctrl+s"), key.WithHelp("s", "save")),
	Help:   key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "toggle help")),
	Quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),

	ForceQuit: key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),

	Accept:   key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "accept")),
	Cancel:   key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	Complete: key.NewBinding(key.WithKeys("tab"), key.WithHelp("tab", "complete")),
}

// ShortHelp returns keybindings to be shown in the mini help view. It's part
// of the key.Map interface.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Edit, k.Add, k.Remove, k.Save, k.Quit, k.Help}
}

// FullHelp returns keybindings for the expanded help view. It's part of the
// key.Map interface.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Left, k.Right},
		{k.Edit, k.Add, k.Change, k.Remove},
		{k.Title, k.Notes, k.Save},
		{k.Help, k.Quit},
	}
}

package tui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Quit        key.Binding
	ForceQuit   key.Binding
	SwitchFocus key.Binding
	Submit      key.Binding
	Cancel      key.Binding
	Up          key.Binding
	Down        key.Binding
	Toggle      key.Binding
	Edit        key.Binding
	Delete      key.Binding
	Confirm     key.Binding
	Theme       key.Binding
	Refresh     key.Binding
}

var keys = keyMap{
	Quit:        key.NewBinding(key.WithKeys("q"), key.WithHelp("q", "quit")),
	ForceQuit:   key.NewBinding(key.WithKeys("ctrl+c"), key.WithHelp("ctrl+c", "quit")),
	SwitchFocus: key.NewBinding(key.WithKeys("tab", "shift+tab"), key.WithHelp("tab", "switch focus")),
	Submit:      key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "save")),
	Cancel:      key.NewBinding(key.WithKeys("esc"), key.WithHelp("esc", "cancel")),
	Up:          key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:        key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Toggle:      key.NewBinding(key.WithKeys(" ", "x"), key.WithHelp("space/x", "toggle")),
	Edit:        key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
	Delete:      key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
	Confirm:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "confirm")),
	Theme:       key.NewBinding(key.WithKeys("t"), key.WithHelp("t", "theme")),
	Refresh:     key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "refresh")),
}

func helpLine(bindings ...key.Binding) string {
	out := ""
	for i, b := range bindings {
		if i > 0 {
			out += "  "
		}
		h := b.Help()
		out += h.Key + " " + h.Desc
	}
	return out
}

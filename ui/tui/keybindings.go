package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all key bindings for the TUI.
type KeyMap struct {
	Up       key.Binding
	Down     key.Binding
	Camera   key.Binding
	Start    key.Binding
	Stop     key.Binding
	Copy     key.Binding
	Refresh  key.Binding
	Increase key.Binding
	Decrease key.Binding
	Quit     key.Binding
}

// DefaultKeyMap provides the default key bindings for the TUI.
var DefaultKeyMap = KeyMap{
	Up: key.NewBinding(
		key.WithKeys("up", "k"),
		key.WithHelp("↑/k", "up"),
	),
	Down: key.NewBinding(
		key.WithKeys("down", "j"),
		key.WithHelp("↓/j", "down"),
	),
	Camera: key.NewBinding(
		key.WithKeys("tab"),
		key.WithHelp("tab", "next camera"),
	),
	Start: key.NewBinding(
		key.WithKeys("s"),
		key.WithHelp("s", "start"),
	),
	Stop: key.NewBinding(
		key.WithKeys("x"),
		key.WithHelp("x", "stop"),
	),
	Copy: key.NewBinding(
		key.WithKeys("c", "enter"),
		key.WithHelp("c", "copy selected"),
	),
	Refresh: key.NewBinding(
		key.WithKeys("r"),
		key.WithHelp("r", "refresh cameras"),
	),
	Increase: key.NewBinding(
		key.WithKeys("+", "="),
		key.WithHelp("+/-", "cooldown"),
	),
	Decrease: key.NewBinding(
		key.WithKeys("-"),
	),
	Quit: key.NewBinding(
		key.WithKeys("q", "ctrl+c"),
		key.WithHelp("q", "quit"),
	),
}

// ShortHelp implements help.KeyMap.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Start, k.Stop, k.Camera, k.Copy, k.Increase, k.Refresh, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.Copy},
		{k.Start, k.Stop, k.Camera, k.Refresh},
		{k.Increase, k.Quit},
	}
}

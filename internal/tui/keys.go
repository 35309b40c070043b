package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings for the application
type KeyMap struct {
	// Navigation
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding

	// Actions
	Help      key.Binding
	Focus     key.Binding
	Escape    key.Binding
	Enter     key.Binding
	Quit      key.Binding
	Interrupt key.Binding
	Refresh   key.Binding
	GapPanel  key.Binding

	// Gap panel
	ToggleSelect   key.Binding
	SelectAll      key.Binding
	ClearSelection key.Binding
	Ignore         key.Binding
	IgnoreAll      key.Binding
	UnignoreAll    key.Binding
	CriticalOnly   key.Binding
	CycleType      key.Binding
	ClearFilters   key.Binding
	Collapse       key.Binding
}

// DefaultKeyMap returns the default key bindings
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("↑/k", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("↓/j", "down"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "page up"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "page down"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Focus: key.NewBinding(
			key.WithKeys("/"),
			key.WithHelp("/", "focus input"),
		),
		Escape: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "back/unfocus"),
		),
		Enter: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send/select"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		Interrupt: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "quit"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh gaps"),
		),
		GapPanel: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "switch panel"),
		),
		ToggleSelect: key.NewBinding(
			key.WithKeys(" "),
			key.WithHelp("space", "select gap"),
		),
		SelectAll: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "select all visible"),
		),
		ClearSelection: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "clear selection"),
		),
		Ignore: key.NewBinding(
			key.WithKeys("i"),
			key.WithHelp("i", "ignore selected"),
		),
		IgnoreAll: key.NewBinding(
			key.WithKeys("I"),
			key.WithHelp("I", "ignore all visible"),
		),
		UnignoreAll: key.NewBinding(
			key.WithKeys("u"),
			key.WithHelp("u", "restore ignored"),
		),
		CriticalOnly: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "critical only"),
		),
		CycleType: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "cycle type filter"),
		),
		ClearFilters: key.NewBinding(
			key.WithKeys("f"),
			key.WithHelp("f", "clear filters"),
		),
		Collapse: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "collapse panel"),
		),
	}
}

// ShortHelp returns a short help string
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Help, k.Focus, k.GapPanel, k.Quit}
}

// FullHelp returns the full help string
func (k KeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.PageUp, k.PageDown},
		{k.Focus, k.GapPanel, k.Refresh, k.Escape},
		{k.ToggleSelect, k.SelectAll, k.Ignore, k.CriticalOnly},
		{k.Help, k.Quit},
	}
}

package ui

import "github.com/charmbracelet/bubbles/key"

// keyMap defines the [key.Binding] mapping for the TUI.
type keyMap struct {
	yes    key.Binding
	no     key.Binding
	cancel key.Binding
	quit   key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		yes:    key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "start")),
		no:     key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "abort")),
		cancel: key.NewBinding(key.WithKeys("q", "esc"), key.WithHelp("q", "cancel run")),
		quit:   key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.quit}
}

func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.yes, k.no},
		{k.cancel, k.quit},
	}
}

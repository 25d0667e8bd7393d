// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/charmbracelet/bubbles/key"
)

// =============================================================================
// KEY MAP
// =============================================================================

// KeyMap holds every binding the chat screen reacts to.
type KeyMap struct {
	Send        key.Binding
	History     key.Binding
	NewChat     key.Binding
	DeleteAll   key.Binding
	ToggleTheme key.Binding
	Voice       key.Binding
	Quit        key.Binding

	// Active while the history panel is open.
	Up     key.Binding
	Down   key.Binding
	Open   key.Binding
	Close  key.Binding
	PageUp key.Binding
	PageDn key.Binding

	// Active while a confirmation is pending.
	Yes key.Binding
	No  key.Binding
}

// DefaultKeyMap returns the stock bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Send: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "send"),
		),
		History: key.NewBinding(
			key.WithKeys("ctrl+h"),
			key.WithHelp("^h", "history"),
		),
		NewChat: key.NewBinding(
			key.WithKeys("ctrl+n"),
			key.WithHelp("^n", "new chat"),
		),
		DeleteAll: key.NewBinding(
			key.WithKeys("ctrl+d"),
			key.WithHelp("^d", "clear all"),
		),
		ToggleTheme: key.NewBinding(
			key.WithKeys("ctrl+t"),
			key.WithHelp("^t", "theme"),
		),
		Voice: key.NewBinding(
			key.WithKeys("ctrl+r"),
			key.WithHelp("^r", "mic"),
		),
		Quit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("^c", "quit"),
		),
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
		),
		Open: key.NewBinding(
			key.WithKeys("enter"),
		),
		Close: key.NewBinding(
			key.WithKeys("esc", "ctrl+h"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
		),
		PageDn: key.NewBinding(
			key.WithKeys("pgdown"),
		),
		Yes: key.NewBinding(
			key.WithKeys("y", "Y"),
		),
		No: key.NewBinding(
			key.WithKeys("n", "N", "esc"),
		),
	}
}

// ShortHelp lists the bindings shown in the status bar.
func (k KeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Send, k.History, k.NewChat, k.DeleteAll, k.ToggleTheme, k.Voice, k.Quit}
}

// Copyright 2026 The Tripmate Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines the key bindings of the conversation view. Printable
// keys always go to the compose line, so scrolling uses page and
// modifier keys only.
type KeyMap struct {
	Send       key.Binding
	ScrollUp   key.Binding
	ScrollDown key.Binding
	PageUp     key.Binding
	PageDown   key.Binding
	Bottom     key.Binding
	Quit       key.Binding
}

// DefaultKeyMap is the built-in key binding set.
var DefaultKeyMap = KeyMap{
	Send: key.NewBinding(
		key.WithKeys("enter"),
		key.WithHelp("Enter", "send"),
	),
	ScrollUp: key.NewBinding(
		key.WithKeys("ctrl+up", "ctrl+p"),
		key.WithHelp("C-↑", "scroll up"),
	),
	ScrollDown: key.NewBinding(
		key.WithKeys("ctrl+down", "ctrl+n"),
		key.WithHelp("C-↓", "scroll down"),
	),
	PageUp: key.NewBinding(
		key.WithKeys("pgup", "ctrl+u"),
		key.WithHelp("PgUp", "page up"),
	),
	PageDown: key.NewBinding(
		key.WithKeys("pgdown", "ctrl+d"),
		key.WithHelp("PgDn", "page down"),
	),
	Bottom: key.NewBinding(
		key.WithKeys("ctrl+end", "ctrl+g"),
		key.WithHelp("C-g", "latest"),
	),
	Quit: key.NewBinding(
		key.WithKeys("esc", "ctrl+c"),
		key.WithHelp("Esc", "quit"),
	),
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat is the full-screen terminal front end.
//
// Model is a Bubble Tea model. It never calls the conversation controller
// from Update; every controller call runs inside a tea.Cmd. The controller
// talks back through Bridge, which implements conversation.Renderer and
// conversation.Confirmer by turning each call into a tea.Msg.
//
// Wiring order matters because the controller needs its renderer up front:
//
//	bridge := chat.NewBridge()
//	ctrl := conversation.New(store, client, bridge, conversation.WithConfirmer(bridge))
//	m := chat.New(ctrl, bridge, chat.Options{...})
//	p := tea.NewProgram(m, tea.WithAltScreen())
//	bridge.Attach(p)
//	_, err := p.Run()
//
// Key bindings:
//
//	Enter   send
//	Ctrl+H  history panel (Up/Down, Enter to open, Esc to close)
//	Ctrl+N  new chat
//	Ctrl+D  delete all history (asks first)
//	Ctrl+T  toggle light/dark
//	Ctrl+R  voice input
//	Ctrl+C  quit
package chat

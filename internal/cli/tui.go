// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/kryptonite/internal/conversation"
	"github.com/jeranaias/kryptonite/internal/ui/chat"
	"github.com/jeranaias/kryptonite/internal/ui/styles"
)

// runTUI opens the full-screen chat and blocks until it exits.
func runTUI(ctx context.Context, flags *globalFlags) error {
	a, err := flags.openApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	bridge := chat.NewBridge()
	ctrl := a.controller(bridge, conversation.WithConfirmer(bridge))

	m := chat.New(ctrl, bridge, chat.Options{
		Theme:        styles.NewTheme(a.dark()),
		Preferences:  a.prefs,
		Voice:        a.mic,
		GlamourStyle: a.cfg.UI.GlamourStyle,
		Logger:       a.logger,
	})

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithContext(ctx))
	bridge.Attach(p)

	// A cancelled context kills the program; that is a normal exit.
	if _, err := p.Run(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

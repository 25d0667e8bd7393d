// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/kryptonite/internal/model"
	"github.com/jeranaias/kryptonite/internal/ui/styles"
)

// RenderMessage draws one turn as a labelled bubble. User text is shown
// verbatim; model text goes through md.
func RenderMessage(theme *styles.Theme, md *MarkdownRenderer, msg model.Message) string {
	width := theme.BubbleWidth()
	label := theme.RoleLabel.Render(msg.Role.DisplayName())

	var body string
	var bubble lipgloss.Style
	if msg.Role == model.RoleUser {
		body = lipgloss.NewStyle().Width(width - 4).Render(msg.Text)
		bubble = theme.UserBubble
	} else {
		body = md.Render(msg.Text, width-4, theme.Palette)
		bubble = theme.ModelBubble
	}
	return label + "\n" + bubble.Render(body)
}

// RenderTranscript draws every message separated by blank lines.
func RenderTranscript(theme *styles.Theme, md *MarkdownRenderer, msgs []model.Message) string {
	parts := make([]string, 0, len(msgs))
	for _, msg := range msgs {
		parts = append(parts, RenderMessage(theme, md, msg))
	}
	return strings.Join(parts, "\n\n")
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/kryptonite/internal/ui/styles"
)

// RenderConfirm draws the y/n confirmation box centred in width x height.
func RenderConfirm(theme *styles.Theme, prompt string, width, height int) string {
	boxWidth := width / 2
	if boxWidth < 30 {
		boxWidth = 30
	}
	body := theme.ModalTitle.Render("Heads up") + "\n\n" +
		lipgloss.NewStyle().Width(boxWidth-8).Render(prompt) + "\n\n" +
		theme.ModalButton.Render("[y] yes") + "   " + theme.ShortcutDesc.Render("[n] no")
	box := theme.ModalBox.Width(boxWidth).Render(body)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}

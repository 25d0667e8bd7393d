// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/kryptonite/internal/ui/components"
	"github.com/jeranaias/kryptonite/internal/util"
)

// View implements tea.Model.
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	if m.confirm != nil {
		return components.RenderConfirm(m.theme, m.confirm.prompt, m.width, m.height)
	}

	body := m.viewport.View()
	if m.showHistory {
		panel := m.history.View(m.theme, historyPanelWidth, m.viewport.Height)
		body = lipgloss.JoinHorizontal(lipgloss.Top, panel, body)
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		m.renderHeader(),
		body,
		m.typing.View(m.theme),
		m.theme.InputContainer.Width(m.width-2).Render(m.input.View()),
		m.renderStatusBar(),
	)
}

func (m Model) renderHeader() string {
	brand := m.theme.HeaderBrand.Render("⚡ Kryptonite")
	title, ok := m.history.Title(m.currentID)
	if !ok {
		title = "New Chat"
	}
	title = m.theme.HeaderTitle.Render(util.TruncateWidth(util.SingleLine(title), m.width/2))
	gap := m.width - lipgloss.Width(brand) - lipgloss.Width(title) - 2
	if gap < 1 {
		gap = 1
	}
	return m.theme.Header.Width(m.width).Render(brand + strings.Repeat(" ", gap) + title)
}

func (m Model) renderStatusBar() string {
	if m.status != "" {
		if m.statusError {
			return m.theme.ErrorText.Render(m.status)
		}
		return m.theme.StatusBar.Render(m.status)
	}

	var parts []string
	for _, b := range m.keys.ShortHelp() {
		h := b.Help()
		parts = append(parts, m.theme.ShortcutKey.Render(h.Key)+" "+m.theme.ShortcutDesc.Render(h.Desc))
	}
	return m.theme.StatusBar.Render(strings.Join(parts, "  "))
}

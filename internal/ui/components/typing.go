// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/kryptonite/internal/ui/styles"
)

// TypingIndicator is the "Kryptonite is typing" line under the transcript.
type TypingIndicator struct {
	spinner spinner.Model
	active  bool
}

// NewTypingIndicator creates an idle indicator.
func NewTypingIndicator() TypingIndicator {
	s := spinner.New()
	s.Spinner = spinner.Spinner{
		Frames: []string{"●  ", " ● ", "  ●", " ● "},
		FPS:    time.Second / 6,
	}
	return TypingIndicator{spinner: s}
}

// Start activates the indicator and returns the first tick.
func (t *TypingIndicator) Start() tea.Cmd {
	if t.active {
		return nil
	}
	t.active = true
	return t.spinner.Tick
}

// Stop deactivates the indicator. Pending ticks are ignored.
func (t *TypingIndicator) Stop() {
	t.active = false
}

// Active reports whether the indicator is showing.
func (t TypingIndicator) Active() bool {
	return t.active
}

// Update advances the spinner while active.
func (t TypingIndicator) Update(msg tea.Msg) (TypingIndicator, tea.Cmd) {
	if !t.active {
		return t, nil
	}
	var cmd tea.Cmd
	t.spinner, cmd = t.spinner.Update(msg)
	return t, cmd
}

// View renders the indicator, or "" when idle.
func (t TypingIndicator) View(theme *styles.Theme) string {
	if !t.active {
		return ""
	}
	return theme.Typing.Render("Kryptonite is typing " + t.spinner.View())
}

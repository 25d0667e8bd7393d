// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/jeranaias/kryptonite/internal/conversation"
	"github.com/jeranaias/kryptonite/internal/storage"
	"github.com/jeranaias/kryptonite/internal/ui/components"
)

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.theme.SetSize(msg.Width, msg.Height)
		m.layout()
		m.refreshTranscript()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	// Renderer callbacks.
	case conversationMsg:
		m.currentID = msg.id
		m.messages = msg.messages
		m.refreshTranscript()
		return m, m.syncTyping()

	case messageMsg:
		if msg.id != m.currentID {
			return m, nil
		}
		m.messages = append(m.messages, msg.msg)
		m.refreshTranscript()
		return m, nil

	case historyMsg:
		m.history.SetItems(msg.items, msg.currentID)
		return m, nil

	case typingMsg:
		if msg.on {
			m.typingFor[msg.id] = true
		} else {
			delete(m.typingFor, msg.id)
		}
		return m, m.syncTyping()

	case clearInputMsg:
		m.input.SetValue("")
		return m, nil

	case closeHistoryMsg:
		m.showHistory = false
		m.layout()
		return m, nil

	case confirmRequestMsg:
		if m.confirm != nil {
			// One modal at a time.
			msg.reply <- false
			return m, nil
		}
		m.confirm = &msg
		return m, nil

	// Command results.
	case sendDoneMsg:
		m.handleSendDone(msg)
		return m, nil

	case actionDoneMsg:
		if msg.err != nil {
			m.setError(msg.action + " failed: " + msg.err.Error())
			m.logger.Error("action failed", zap.String("action", msg.action), zap.Error(msg.err))
		}
		return m, nil

	case themeMsg:
		if msg.err != nil {
			m.setError("theme not saved: " + msg.err.Error())
		}
		if (msg.theme == storage.ThemeDark) != m.theme.IsDark() {
			m.theme = m.theme.Toggled()
			m.applyTheme()
			m.refreshTranscript()
		}
		return m, nil

	case voiceMsg:
		return m.handleVoice(msg)
	}

	var cmds []tea.Cmd
	var cmd tea.Cmd
	m.typing, cmd = m.typing.Update(msg)
	cmds = append(cmds, cmd)
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

// =============================================================================
// KEYS
// =============================================================================

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.quit()
		return m, tea.Quit
	}

	if m.confirm != nil {
		switch {
		case key.Matches(msg, m.keys.Yes):
			m.answer(true)
		case key.Matches(msg, m.keys.No):
			m.answer(false)
		}
		return m, nil
	}

	if m.showHistory {
		return m.handleHistoryKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Send):
		return m, m.sendCmd(m.input.Value(), false)

	case key.Matches(msg, m.keys.History):
		m.showHistory = true
		m.layout()
		return m, nil

	case key.Matches(msg, m.keys.NewChat):
		ctrl := m.ctrl
		return m, func() tea.Msg {
			_, err := ctrl.NewChat()
			return actionDoneMsg{action: "new chat", err: err}
		}

	case key.Matches(msg, m.keys.DeleteAll):
		ctrl, ctx := m.ctrl, m.ctx
		return m, func() tea.Msg {
			_, err := ctrl.DeleteAllHistory(ctx)
			return actionDoneMsg{action: "delete history", err: err}
		}

	case key.Matches(msg, m.keys.ToggleTheme):
		return m, m.toggleThemeCmd()

	case key.Matches(msg, m.keys.Voice):
		return m.toggleVoice()

	case key.Matches(msg, m.keys.PageUp):
		m.viewport.HalfViewUp()
		return m, nil

	case key.Matches(msg, m.keys.PageDn):
		m.viewport.HalfViewDown()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleHistoryKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Close):
		m.showHistory = false
		m.layout()
	case key.Matches(msg, m.keys.Up):
		m.history.Up()
	case key.Matches(msg, m.keys.Down):
		m.history.Down()
	case key.Matches(msg, m.keys.Open):
		id := m.history.Selected()
		if id == "" {
			return m, nil
		}
		ctrl := m.ctrl
		return m, func() tea.Msg {
			return actionDoneMsg{action: "switch chat", err: ctrl.SwitchChat(id)}
		}
	case key.Matches(msg, m.keys.NewChat):
		m.showHistory = false
		m.layout()
		ctrl := m.ctrl
		return m, func() tea.Msg {
			_, err := ctrl.NewChat()
			return actionDoneMsg{action: "new chat", err: err}
		}
	}
	return m, nil
}

// answer resolves the open confirmation.
func (m *Model) answer(ok bool) {
	m.confirm.reply <- ok
	m.confirm = nil
}

func (m *Model) quit() {
	if m.confirm != nil {
		m.answer(false)
	}
	if m.listening && m.voice != nil {
		m.voice.Stop()
	}
	m.cancel()
}

// =============================================================================
// COMMANDS
// =============================================================================

func (m *Model) sendCmd(text string, isVoice bool) tea.Cmd {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	m.clearStatus()
	ctrl, ctx := m.ctrl, m.ctx
	return func() tea.Msg {
		outcome, err := ctrl.SendMessage(ctx, text, isVoice)
		return sendDoneMsg{outcome: outcome, err: err}
	}
}

func (m *Model) handleSendDone(msg sendDoneMsg) {
	switch {
	case errors.Is(msg.err, conversation.ErrTurnInFlight):
		m.setError("Hold up, still cooking the last reply.")
	case msg.err != nil:
		m.setError("not saved: " + msg.err.Error())
		m.logger.Error("send failed", zap.Error(msg.err))
	case msg.outcome == conversation.OutcomeStale:
		m.setStatus("A reply landed in another chat.")
	}
}

func (m Model) toggleThemeCmd() tea.Cmd {
	prefs := m.prefs
	current := storage.ThemeDark
	if !m.theme.IsDark() {
		current = storage.ThemeLight
	}
	return func() tea.Msg {
		next := storage.ThemeLight
		if current == storage.ThemeLight {
			next = storage.ThemeDark
		}
		if prefs == nil {
			return themeMsg{theme: next}
		}
		return themeMsg{theme: next, err: prefs.SetTheme(next)}
	}
}

func (m Model) toggleVoice() (tea.Model, tea.Cmd) {
	if m.voice == nil {
		m.input.Placeholder = PlaceholderMicError
		return m, nil
	}
	if m.listening {
		m.voice.Stop()
		m.listening = false
		m.input.Placeholder = PlaceholderIdle
		return m, nil
	}

	m.listening = true
	m.input.Placeholder = PlaceholderListening
	voice, ctx := m.voice, m.ctx
	return m, func() tea.Msg {
		transcripts, err := voice.Start(ctx)
		if err != nil {
			return voiceMsg{err: err}
		}
		for t := range transcripts {
			if t.Err != nil {
				return voiceMsg{err: t.Err}
			}
			if strings.TrimSpace(t.Text) != "" {
				voice.Stop()
				return voiceMsg{text: t.Text}
			}
		}
		return voiceMsg{}
	}
}

func (m Model) handleVoice(msg voiceMsg) (tea.Model, tea.Cmd) {
	m.listening = false
	if msg.err != nil {
		m.input.Placeholder = PlaceholderMicError
		m.logger.Warn("voice input failed", zap.Error(msg.err))
		return m, nil
	}
	m.input.Placeholder = PlaceholderIdle
	return m, m.sendCmd(msg.text, true)
}

// =============================================================================
// STATE HELPERS
// =============================================================================

// syncTyping shows the indicator only when the conversation on screen has
// a reply outstanding.
func (m *Model) syncTyping() tea.Cmd {
	if m.typingFor[m.currentID] {
		return m.typing.Start()
	}
	m.typing.Stop()
	return nil
}

func (m *Model) refreshTranscript() {
	atBottom := m.viewport.AtBottom() || m.viewport.TotalLineCount() == 0
	m.viewport.SetContent(components.RenderTranscript(m.theme, m.markdown, m.messages))
	if atBottom {
		m.viewport.GotoBottom()
	}
}

// layout sizes the viewport for the current window and panel state.
func (m *Model) layout() {
	if m.width == 0 || m.height == 0 {
		return
	}
	// header, typing line, bordered input (3), status bar
	vh := m.height - 6
	if vh < 3 {
		vh = 3
	}
	vw := m.width
	if m.showHistory {
		vw -= historyPanelWidth
	}
	if vw < 20 {
		vw = 20
	}
	m.viewport.Width = vw
	m.viewport.Height = vh
	m.input.Width = m.width - 6
}

func (m *Model) setStatus(s string) {
	m.status, m.statusError = s, false
}

func (m *Model) setError(s string) {
	m.status, m.statusError = s, true
}

func (m *Model) clearStatus() {
	m.status, m.statusError = "", false
}

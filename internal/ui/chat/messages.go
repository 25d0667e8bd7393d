// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"github.com/jeranaias/kryptonite/internal/conversation"
	"github.com/jeranaias/kryptonite/internal/model"
	"github.com/jeranaias/kryptonite/internal/storage"
)

// =============================================================================
// RENDERER MESSAGES
// =============================================================================

// conversationMsg replaces the transcript.
type conversationMsg struct {
	id       string
	messages []model.Message
}

// messageMsg appends one turn.
type messageMsg struct {
	id  string
	msg model.Message
}

// historyMsg redraws the history panel.
type historyMsg struct {
	items     []storage.Summary
	currentID string
}

// typingMsg toggles the typing indicator for one conversation.
type typingMsg struct {
	id string
	on bool
}

type clearInputMsg struct{}

type closeHistoryMsg struct{}

// confirmRequestMsg opens the y/n modal. The answer goes on reply, which
// has room for exactly one value.
type confirmRequestMsg struct {
	prompt string
	reply  chan bool
}

// =============================================================================
// COMMAND RESULTS
// =============================================================================

// sendDoneMsg reports a finished SendMessage.
type sendDoneMsg struct {
	outcome conversation.Outcome
	err     error
}

// actionDoneMsg reports a finished NewChat, SwitchChat or DeleteAllHistory.
type actionDoneMsg struct {
	action string
	err    error
}

// themeMsg reports the persisted theme after a toggle.
type themeMsg struct {
	theme storage.Theme
	err   error
}

// voiceMsg carries one recognised utterance, or why listening stopped.
type voiceMsg struct {
	text string
	err  error
}

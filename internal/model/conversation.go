// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"github.com/jeranaias/kryptonite/internal/util"
)

const (
	// DefaultTitle is the title of a conversation with no messages yet.
	DefaultTitle = "New Chat"

	// TitleMaxRunes is how much of the first message becomes the title.
	TitleMaxRunes = 30
)

// =============================================================================
// CONVERSATION TYPE
// =============================================================================

// Conversation is a titled, ordered sequence of turns.
type Conversation struct {
	ID      string    `json:"id"`
	Title   string    `json:"title"`
	History []Message `json:"history"`
}

// NewConversation creates an empty conversation with the default title.
func NewConversation(id string) *Conversation {
	return &Conversation{
		ID:      id,
		Title:   DefaultTitle,
		History: make([]Message, 0),
	}
}

// Append adds msg to the history. The first message appended also names the
// conversation; the title never changes after that.
func (c *Conversation) Append(msg Message) {
	c.History = append(c.History, msg)
	if len(c.History) == 1 {
		c.Title = util.TruncateRunesNoEllipsis(msg.Text, TitleMaxRunes)
	}
}

// IsEmpty reports whether no turns have been recorded.
func (c *Conversation) IsEmpty() bool {
	return len(c.History) == 0
}

// MessageCount returns the number of turns.
func (c *Conversation) MessageCount() int {
	return len(c.History)
}

// Clone returns a deep copy that shares nothing with c.
func (c *Conversation) Clone() *Conversation {
	if c == nil {
		return nil
	}
	clone := *c
	clone.History = make([]Message, len(c.History))
	copy(clone.History, c.History)
	return &clone
}

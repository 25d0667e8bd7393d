// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"context"

	"github.com/jeranaias/kryptonite/internal/model"
	"github.com/jeranaias/kryptonite/internal/storage"
)

// Store is the part of storage.ConversationStore the controller drives.
type Store interface {
	CurrentID() string
	Current() *model.Conversation
	Conversation(id string) (*model.Conversation, error)
	Has(id string) bool
	List() []storage.Summary
	CreateConversation() (string, error)
	SetCurrent(id string) (bool, error)
	AppendMessage(id string, role model.Role, text string) error
	DeleteAll() (string, error)
}

// Transport performs one exchange with the generation backend.
type Transport interface {
	Generate(ctx context.Context, history []model.Message, systemInstruction string) model.Reply
}

// Renderer displays state. Implementations must not call back into the
// Controller from these methods.
type Renderer interface {
	// RenderConversation replaces the visible transcript.
	RenderConversation(conversationID string, messages []model.Message)
	// RenderMessage appends one turn to the visible transcript.
	RenderMessage(conversationID string, msg model.Message)
	// RenderHistory redraws the history panel.
	RenderHistory(items []storage.Summary, currentID string)
	ShowTyping(conversationID string)
	HideTyping(conversationID string)
	ClearInput()
	CloseHistoryPanel()
}

// Confirmer asks the user a yes/no question and blocks for the answer.
type Confirmer interface {
	Confirm(ctx context.Context, prompt string) bool
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, prompt string) bool

// Confirm calls f.
func (f ConfirmFunc) Confirm(ctx context.Context, prompt string) bool {
	return f(ctx, prompt)
}

// denyAll is the default Confirmer. Destructive actions stay off until a
// real prompt is wired in.
var denyAll = ConfirmFunc(func(context.Context, string) bool { return false })

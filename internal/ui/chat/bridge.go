// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/kryptonite/internal/model"
	"github.com/jeranaias/kryptonite/internal/storage"
)

// Bridge forwards controller callbacks into the Bubble Tea event loop.
//
// Every method blocks until the program accepts the message, so it must
// only be called from a tea.Cmd or another goroutine, never from Update.
// Calls made before Attach are dropped.
type Bridge struct {
	mu   sync.RWMutex
	send func(tea.Msg)
}

// NewBridge returns an unattached bridge.
func NewBridge() *Bridge {
	return &Bridge{}
}

// Attach routes messages into p.
func (b *Bridge) Attach(p *tea.Program) {
	b.AttachFunc(p.Send)
}

// AttachFunc routes messages into send.
func (b *Bridge) AttachFunc(send func(tea.Msg)) {
	b.mu.Lock()
	b.send = send
	b.mu.Unlock()
}

func (b *Bridge) post(msg tea.Msg) {
	b.mu.RLock()
	send := b.send
	b.mu.RUnlock()
	if send != nil {
		send(msg)
	}
}

// RenderConversation implements conversation.Renderer.
func (b *Bridge) RenderConversation(id string, messages []model.Message) {
	b.post(conversationMsg{id: id, messages: append([]model.Message(nil), messages...)})
}

// RenderMessage implements conversation.Renderer.
func (b *Bridge) RenderMessage(id string, msg model.Message) {
	b.post(messageMsg{id: id, msg: msg})
}

// RenderHistory implements conversation.Renderer.
func (b *Bridge) RenderHistory(items []storage.Summary, currentID string) {
	b.post(historyMsg{items: append([]storage.Summary(nil), items...), currentID: currentID})
}

// ShowTyping implements conversation.Renderer.
func (b *Bridge) ShowTyping(id string) { b.post(typingMsg{id: id, on: true}) }

// HideTyping implements conversation.Renderer.
func (b *Bridge) HideTyping(id string) { b.post(typingMsg{id: id, on: false}) }

// ClearInput implements conversation.Renderer.
func (b *Bridge) ClearInput() { b.post(clearInputMsg{}) }

// CloseHistoryPanel implements conversation.Renderer.
func (b *Bridge) CloseHistoryPanel() { b.post(closeHistoryMsg{}) }

// Confirm implements conversation.Confirmer. It shows the modal and waits
// for y or n. A cancelled context, or no attached program, counts as no.
func (b *Bridge) Confirm(ctx context.Context, prompt string) bool {
	b.mu.RLock()
	attached := b.send != nil
	b.mu.RUnlock()
	if !attached {
		return false
	}

	reply := make(chan bool, 1)
	b.post(confirmRequestMsg{prompt: prompt, reply: reply})
	select {
	case ok := <-reply:
		return ok
	case <-ctx.Done():
		return false
	}
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"

	"github.com/jeranaias/kryptonite/internal/model"
	"github.com/jeranaias/kryptonite/internal/storage"
	"github.com/jeranaias/kryptonite/internal/ui/components"
	"github.com/jeranaias/kryptonite/internal/ui/styles"
)

const typingText = "Kryptonite is typing..."

// plainRenderer draws the conversation as scrolling text. It implements
// conversation.Renderer for the REPL and the one-shot commands.
type plainRenderer struct {
	mu  sync.Mutex
	out io.Writer

	palette styles.Palette
	width   int

	// interactive enables the transient typing line.
	interactive bool
	// replyOnly prints model text and nothing else, for piping.
	replyOnly bool
	// highlight runs fenced code through chroma.
	highlight bool

	typingShown bool
	items       []storage.Summary
	currentID   string

	userLabel  *color.Color
	modelLabel *color.Color
}

func newPlainRenderer(out io.Writer, palette styles.Palette) *plainRenderer {
	return &plainRenderer{
		out:        out,
		palette:    palette,
		width:      DefaultTerminalWidth,
		userLabel:  color.New(color.FgCyan, color.Bold),
		modelLabel: color.New(color.FgGreen, color.Bold),
	}
}

// SetPalette switches the colours used for code blocks.
func (r *plainRenderer) SetPalette(p styles.Palette) {
	r.mu.Lock()
	r.palette = p
	r.mu.Unlock()
}

// RenderConversation prints a divider and every turn.
func (r *plainRenderer) RenderConversation(id string, messages []model.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.currentID = id
	if r.replyOnly {
		return
	}
	r.clearTypingLocked()
	rule := lipgloss.NewStyle().Foreground(r.palette.TextMuted).Render(strings.Repeat("─", r.width/2))
	fmt.Fprintln(r.out, rule)
	for _, msg := range messages {
		r.writeMessageLocked(msg)
	}
}

// RenderMessage prints one turn.
func (r *plainRenderer) RenderMessage(_ string, msg model.Message) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.replyOnly {
		if msg.Role == model.RoleModel {
			fmt.Fprintln(r.out, msg.Text)
		}
		return
	}
	r.clearTypingLocked()
	r.writeMessageLocked(msg)
}

func (r *plainRenderer) writeMessageLocked(msg model.Message) {
	label := r.modelLabel
	text := msg.Text
	if msg.Role == model.RoleUser {
		label = r.userLabel
	} else if r.highlight {
		text = components.HighlightCodeBlocks(text, r.width-4, r.palette)
	}
	label.Fprintln(r.out, msg.Role.DisplayName())
	fmt.Fprintln(r.out, text)
	fmt.Fprintln(r.out)
}

// RenderHistory remembers the list for /history and /switch.
func (r *plainRenderer) RenderHistory(items []storage.Summary, currentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items = append(r.items[:0], items...)
	r.currentID = currentID
}

// ShowTyping prints the typing line on a terminal.
func (r *plainRenderer) ShowTyping(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.interactive || r.replyOnly {
		return
	}
	fmt.Fprint(r.out, lipgloss.NewStyle().Italic(true).Foreground(r.palette.TextMuted).Render(typingText))
	r.typingShown = true
}

// HideTyping erases the typing line.
func (r *plainRenderer) HideTyping(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clearTypingLocked()
}

func (r *plainRenderer) clearTypingLocked() {
	if !r.typingShown {
		return
	}
	fmt.Fprint(r.out, "\r"+strings.Repeat(" ", len(typingText))+"\r")
	r.typingShown = false
}

// ClearInput is a no-op; the line editor owns the input line.
func (r *plainRenderer) ClearInput() {}

// CloseHistoryPanel is a no-op; there is no panel.
func (r *plainRenderer) CloseHistoryPanel() {}

// history returns the last list seen and the current id.
func (r *plainRenderer) history() ([]storage.Summary, string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]storage.Summary(nil), r.items...), r.currentID
}

// writeHistory prints a numbered chat list with the current one marked.
func writeHistory(out io.Writer, items []storage.Summary, currentID string) {
	if len(items) == 0 {
		fmt.Fprintln(out, "No chats yet.")
		return
	}
	current := color.New(color.FgGreen, color.Bold)
	for i, it := range items {
		line := fmt.Sprintf("%3d. %s (%d)", i+1, it.Title, it.MessageCount)
		if it.ID == currentID {
			current.Fprintln(out, line+"  *")
			continue
		}
		fmt.Fprintln(out, line)
	}
}

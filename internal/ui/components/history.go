// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package components

import (
	"fmt"
	"strings"

	"github.com/jeranaias/kryptonite/internal/storage"
	"github.com/jeranaias/kryptonite/internal/ui/styles"
	"github.com/jeranaias/kryptonite/internal/util"
)

// HistoryList is the conversation picker shown with ctrl+h. Items arrive
// newest first from the store.
type HistoryList struct {
	items     []storage.Summary
	currentID string
	selected  int
	offset    int
}

// SetItems replaces the list and moves the cursor to the current
// conversation.
func (h *HistoryList) SetItems(items []storage.Summary, currentID string) {
	h.items = append(h.items[:0], items...)
	h.currentID = currentID
	h.selected = 0
	for i, it := range h.items {
		if it.ID == currentID {
			h.selected = i
			break
		}
	}
	h.offset = 0
}

// Len returns the number of items.
func (h *HistoryList) Len() int { return len(h.items) }

// Title returns the title of id if it is listed.
func (h *HistoryList) Title(id string) (string, bool) {
	for _, it := range h.items {
		if it.ID == id {
			return it.Title, true
		}
	}
	return "", false
}

// Up moves the cursor up one item.
func (h *HistoryList) Up() {
	if h.selected > 0 {
		h.selected--
	}
}

// Down moves the cursor down one item.
func (h *HistoryList) Down() {
	if h.selected < len(h.items)-1 {
		h.selected++
	}
}

// Selected returns the id under the cursor, or "" when empty.
func (h *HistoryList) Selected() string {
	if len(h.items) == 0 {
		return ""
	}
	return h.items[h.selected].ID
}

// View renders at most height rows in a panel of the given width.
func (h *HistoryList) View(theme *styles.Theme, width, height int) string {
	inner := width - 4
	if inner < 10 {
		inner = 10
	}
	rows := height - 4
	if rows < 1 {
		rows = 1
	}

	// Keep the cursor visible.
	if h.selected < h.offset {
		h.offset = h.selected
	}
	if h.selected >= h.offset+rows {
		h.offset = h.selected - rows + 1
	}

	var sb strings.Builder
	sb.WriteString(theme.HistoryTitle.Render("Chat History"))
	sb.WriteString("\n")

	if len(h.items) == 0 {
		sb.WriteString(theme.ShortcutDesc.Render("No chats yet."))
	}

	end := h.offset + rows
	if end > len(h.items) {
		end = len(h.items)
	}
	for i := h.offset; i < end; i++ {
		it := h.items[i]
		marker := "  "
		if it.ID == h.currentID {
			marker = "● "
		}
		count := fmt.Sprintf(" (%d)", it.MessageCount)
		title := util.TruncateWidth(util.SingleLine(it.Title), inner-util.StringWidth(marker)-util.StringWidth(count))
		line := util.PadWidth(marker+title+count, inner)

		switch {
		case i == h.selected:
			line = theme.HistoryItemSelected.Render(line)
		case it.ID == h.currentID:
			line = theme.HistoryItemCurrent.Render(line)
		default:
			line = theme.HistoryItem.Render(line)
		}
		sb.WriteString(line)
		if i < end-1 {
			sb.WriteString("\n")
		}
	}

	return theme.HistoryPanel.Width(width - 2).Render(sb.String())
}

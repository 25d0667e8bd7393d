// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package components provides the visual pieces of the kryptonite TUI:
// markdown and code rendering, message bubbles, the history list, the
// typing indicator and the confirmation modal.
//
// Components are plain values rendered by the chat model; only
// TypingIndicator takes part in the bubbletea update loop (for its spinner).
package components

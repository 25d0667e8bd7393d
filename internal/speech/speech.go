// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package speech

import (
	"context"
	"regexp"
)

// DefaultCodePlaceholder is spoken in place of each fenced code block.
const DefaultCodePlaceholder = "Here is a code snippet."

// codeFence matches a fenced block, shortest match, across lines.
var codeFence = regexp.MustCompile("(?s)```.*?```")

// Output speaks text aloud. Speak returns once playback has started;
// Cancel stops whatever is playing and never blocks on it finishing.
type Output interface {
	Speak(ctx context.Context, text string) error
	Cancel()
}

// Transcript is one recognised utterance, or the error that ended
// recognition.
type Transcript struct {
	Text string
	Err  error
}

// Input turns speech into text. The channel returned by Start is closed when
// recognition ends, either on its own or after Stop.
type Input interface {
	Start(ctx context.Context) (<-chan Transcript, error)
	Stop()
}

// SanitizeForSpeech replaces every fenced code block with placeholder.
func SanitizeForSpeech(text, placeholder string) string {
	if placeholder == "" {
		placeholder = DefaultCodePlaceholder
	}
	return codeFence.ReplaceAllLiteralString(text, placeholder)
}

// Nop is a silent Output and an Input that never hears anything.
type Nop struct{}

// Speak does nothing.
func (Nop) Speak(context.Context, string) error { return nil }

// Cancel does nothing.
func (Nop) Cancel() {}

// Start returns ErrUnavailable.
func (Nop) Start(context.Context) (<-chan Transcript, error) { return nil, ErrUnavailable }

// Stop does nothing.
func (Nop) Stop() {}

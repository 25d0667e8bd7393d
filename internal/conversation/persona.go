// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package conversation

import (
	"strings"

	"github.com/jeranaias/kryptonite/internal/model"
	"github.com/jeranaias/kryptonite/internal/speech"
)

// Persona holds every fixed string the assistant says or sends.
type Persona struct {
	// SystemInstruction is sent with every request.
	SystemInstruction string

	// Greeting is shown for a conversation with no turns. It is never stored.
	Greeting string

	// BlockedReply is shown when the backend refuses on content policy.
	BlockedReply string

	// GlitchReply is shown for a 2xx response without usable text.
	GlitchReply string

	// FailureTemplate is shown when the exchange fails. The first "%s" is
	// replaced with the error text.
	FailureTemplate string

	// CodePlaceholder is spoken instead of each fenced code block.
	CodePlaceholder string

	// ConfirmDeletePrompt gates DeleteAllHistory.
	ConfirmDeletePrompt string
}

// DefaultPersona returns Kryptonite's stock voice.
func DefaultPersona() Persona {
	return Persona{
		SystemInstruction: "You are Kryptonite, a fun, funky, and cool chatbot with a Gen Z personality. " +
			"You were created by Aryan. Your language is full of modern slang. " +
			"IMPORTANT: When you provide code, you MUST always format it in a Markdown code block, " +
			"like ```language\\n...code...\\n```. Ensure the code is syntactically correct and complete.",
		Greeting:            "Yo! What's the vibe? Kryptonite here, the bot built by the legend Aryan. Spill the tea, what we getting into?",
		BlockedReply:        "Yikes, can't vibe with that. My programming says that's a no-go zone. Try something else!",
		GlitchReply:         "Oof, my brain just glitched. No cap. Try that again?",
		FailureTemplate:     `Oof, major L. The mainframe connection failed. The console says: "%s". No cap.`,
		CodePlaceholder:     speech.DefaultCodePlaceholder,
		ConfirmDeletePrompt: "Are you sure you want to delete all chat history? This cannot be undone.",
	}
}

// withDefaults fills empty fields from DefaultPersona.
func (p Persona) withDefaults() Persona {
	d := DefaultPersona()
	if p.SystemInstruction == "" {
		p.SystemInstruction = d.SystemInstruction
	}
	if p.Greeting == "" {
		p.Greeting = d.Greeting
	}
	if p.BlockedReply == "" {
		p.BlockedReply = d.BlockedReply
	}
	if p.GlitchReply == "" {
		p.GlitchReply = d.GlitchReply
	}
	if p.FailureTemplate == "" {
		p.FailureTemplate = d.FailureTemplate
	}
	if p.CodePlaceholder == "" {
		p.CodePlaceholder = d.CodePlaceholder
	}
	if p.ConfirmDeletePrompt == "" {
		p.ConfirmDeletePrompt = d.ConfirmDeletePrompt
	}
	return p
}

// GreetingMessage returns the synthesized greeting turn.
func (p Persona) GreetingMessage() model.Message {
	return model.NewMessage(model.RoleModel, p.Greeting)
}

// FailureMessage embeds err's text in the failure template.
func (p Persona) FailureMessage(err error) string {
	reason := "unknown error"
	if err != nil {
		reason = err.Error()
	}
	if !strings.Contains(p.FailureTemplate, "%s") {
		return p.FailureTemplate + " " + reason
	}
	return strings.Replace(p.FailureTemplate, "%s", reason, 1)
}

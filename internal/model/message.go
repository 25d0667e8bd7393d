// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"fmt"
	"strings"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role identifies who authored a turn.
type Role string

const (
	RoleUser  Role = "user"
	RoleModel Role = "model"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// Valid reports whether r is one of the two roles the backend accepts.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleModel
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleModel:
		return "Kryptonite"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Part is one text segment of a message as it appears on the wire.
type Part struct {
	Text string `json:"text"`
}

// Message is a single turn. Messages are values and are never edited after
// they are appended to a conversation.
//
// On the wire and on disk a message is {"role": ..., "parts": [{"text": ...}]},
// the shape the generation backend consumes directly.
type Message struct {
	Role Role
	Text string
}

type wireMessage struct {
	Role  Role   `json:"role"`
	Parts []Part `json:"parts"`
}

// NewMessage creates a message.
func NewMessage(role Role, text string) Message {
	return Message{Role: role, Text: text}
}

// MarshalJSON encodes the message in the parts shape.
func (m Message) MarshalJSON() ([]byte, error) {
	return json.Marshal(wireMessage{Role: m.Role, Parts: []Part{{Text: m.Text}}})
}

// UnmarshalJSON accepts the parts shape. Multiple parts are concatenated.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	if !w.Role.Valid() {
		return fmt.Errorf("unknown message role %q", w.Role)
	}
	var sb strings.Builder
	for _, p := range w.Parts {
		sb.WriteString(p.Text)
	}
	m.Role = w.Role
	m.Text = sb.String()
	return nil
}

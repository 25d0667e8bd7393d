// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// =============================================================================
// CONVERSATION SET
// =============================================================================

// ConversationSet maps conversation ids to conversations and remembers the
// order in which they were inserted. That order survives a JSON round trip,
// which is what lets the history panel list newest-first after a restart.
//
// The zero value is ready to use. A ConversationSet is not safe for
// concurrent use; the storage layer serialises access to it.
type ConversationSet struct {
	order []string
	byID  map[string]*Conversation
}

// NewConversationSet returns an empty set.
func NewConversationSet() *ConversationSet {
	return &ConversationSet{byID: make(map[string]*Conversation)}
}

// Len returns the number of conversations.
func (s *ConversationSet) Len() int {
	return len(s.order)
}

// Has reports whether id is a key of the set.
func (s *ConversationSet) Has(id string) bool {
	_, ok := s.byID[id]
	return ok
}

// Get returns the conversation for id, or nil.
func (s *ConversationSet) Get(id string) *Conversation {
	return s.byID[id]
}

// Insert adds c at the end of the insertion order. Ids are never reused, so
// inserting an id that is already present is an error.
func (s *ConversationSet) Insert(c *Conversation) error {
	if c == nil || c.ID == "" {
		return fmt.Errorf("conversation has no id")
	}
	if s.byID == nil {
		s.byID = make(map[string]*Conversation)
	}
	if _, exists := s.byID[c.ID]; exists {
		return fmt.Errorf("duplicate conversation id %q", c.ID)
	}
	s.byID[c.ID] = c
	s.order = append(s.order, c.ID)
	return nil
}

// Clear removes every conversation.
func (s *ConversationSet) Clear() {
	s.order = nil
	s.byID = make(map[string]*Conversation)
}

// NewestFirst returns the conversations in reverse insertion order.
func (s *ConversationSet) NewestFirst() []*Conversation {
	out := make([]*Conversation, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, s.byID[s.order[i]])
	}
	return out
}

// MarshalJSON encodes the set as a JSON object keyed by id, with keys in
// insertion order.
func (s *ConversationSet) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, id := range s.order {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(id)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(s.byID[id])
		if err != nil {
			return nil, fmt.Errorf("encode conversation %s: %w", id, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON decodes an object keyed by id, keeping the key order as the
// insertion order. A record without an id takes its key; a repeated key
// replaces the earlier record but keeps its position.
func (s *ConversationSet) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))

	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		s.Clear()
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("conversation set: expected object, got %v", tok)
	}

	next := NewConversationSet()
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := keyTok.(string)

		var conv Conversation
		if err := dec.Decode(&conv); err != nil {
			return fmt.Errorf("conversation %s: %w", key, err)
		}
		if conv.ID == "" {
			conv.ID = key
		}
		if conv.ID != key {
			return fmt.Errorf("conversation key %q does not match id %q", key, conv.ID)
		}
		if conv.Title == "" {
			conv.Title = DefaultTitle
		}
		if conv.History == nil {
			conv.History = make([]Message, 0)
		}
		if next.Has(key) {
			next.byID[key] = &conv
			continue
		}
		next.Insert(&conv)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}

	*s = *next
	return nil
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestMessage_WireShape(t *testing.T) {
	data, err := json.Marshal(NewMessage(RoleUser, "hi"))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	want := `{"role":"user","parts":[{"text":"hi"}]}`
	if string(data) != want {
		t.Errorf("got %s, want %s", data, want)
	}
}

func TestMessage_UnmarshalJoinsParts(t *testing.T) {
	var m Message
	if err := json.Unmarshal([]byte(`{"role":"model","parts":[{"text":"a"},{"text":"b"}]}`), &m); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if m.Role != RoleModel || m.Text != "ab" {
		t.Errorf("got %+v", m)
	}
}

func TestMessage_UnmarshalRejectsUnknownRole(t *testing.T) {
	var m Message
	if err := json.Unmarshal([]byte(`{"role":"system","parts":[]}`), &m); err == nil {
		t.Error("expected error for unknown role")
	}
}

func TestRole_DisplayName(t *testing.T) {
	if RoleUser.DisplayName() != "You" || RoleModel.DisplayName() != "Kryptonite" {
		t.Error("unexpected display names")
	}
}

// =============================================================================
// CONVERSATION TESTS
// =============================================================================

func TestConversation_TitleSetOnceFromFirstMessage(t *testing.T) {
	c := NewConversation("chat_1")
	if c.Title != DefaultTitle {
		t.Fatalf("Title = %q, want %q", c.Title, DefaultTitle)
	}

	c.Append(NewMessage(RoleUser, "Explain recursion in depth, please, with examples"))
	if c.Title != "Explain recursion in depth, pl" {
		t.Errorf("Title = %q", c.Title)
	}

	c.Append(NewMessage(RoleModel, "Sure"))
	c.Append(NewMessage(RoleUser, "Something completely different"))
	if c.Title != "Explain recursion in depth, pl" {
		t.Errorf("Title changed to %q", c.Title)
	}
	if c.MessageCount() != 3 {
		t.Errorf("MessageCount = %d", c.MessageCount())
	}
}

func TestConversation_CloneIsIndependent(t *testing.T) {
	c := NewConversation("chat_1")
	c.Append(NewMessage(RoleUser, "one"))

	clone := c.Clone()
	clone.Append(NewMessage(RoleModel, "two"))

	if c.MessageCount() != 1 {
		t.Errorf("original mutated through clone")
	}
}

// =============================================================================
// CONVERSATION SET TESTS
// =============================================================================

func TestConversationSet_InsertRejectsDuplicate(t *testing.T) {
	s := NewConversationSet()
	if err := s.Insert(NewConversation("a")); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if err := s.Insert(NewConversation("a")); err == nil {
		t.Error("expected duplicate id error")
	}
	if err := s.Insert(&Conversation{}); err == nil {
		t.Error("expected error for empty id")
	}
}

func TestConversationSet_NewestFirst(t *testing.T) {
	s := NewConversationSet()
	for _, id := range []string{"a", "b", "c"} {
		s.Insert(NewConversation(id))
	}

	var got []string
	for _, c := range s.NewestFirst() {
		got = append(got, c.ID)
	}
	if diff := cmp.Diff([]string{"c", "b", "a"}, got); diff != "" {
		t.Errorf("NewestFirst mismatch (-want +got):\n%s", diff)
	}
}

func TestConversationSet_JSONPreservesOrder(t *testing.T) {
	s := NewConversationSet()
	// Deliberately not sorted so map iteration order would be visible.
	for _, id := range []string{"chat_z", "chat_a", "chat_m"} {
		c := NewConversation(id)
		c.Append(NewMessage(RoleUser, "hello from "+id))
		s.Insert(c)
	}

	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	restored := NewConversationSet()
	if err := json.Unmarshal(data, restored); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}

	if diff := cmp.Diff(idsOf(s), idsOf(restored)); diff != "" {
		t.Errorf("order mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(s.Get("chat_a"), restored.Get("chat_a")); diff != "" {
		t.Errorf("conversation mismatch (-want +got):\n%s", diff)
	}
}

func TestConversationSet_UnmarshalFillsMissingFields(t *testing.T) {
	var s ConversationSet
	if err := json.Unmarshal([]byte(`{"chat_1":{"history":null}}`), &s); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	c := s.Get("chat_1")
	if c == nil {
		t.Fatal("conversation missing")
	}
	if c.ID != "chat_1" || c.Title != DefaultTitle || c.History == nil {
		t.Errorf("got %+v", c)
	}
}

func TestConversationSet_UnmarshalRejectsMismatchedID(t *testing.T) {
	var s ConversationSet
	err := json.Unmarshal([]byte(`{"chat_1":{"id":"chat_2","title":"x","history":[]}}`), &s)
	if err == nil {
		t.Error("expected error for mismatched key and id")
	}
}

func TestConversationSet_UnmarshalRejectsNonObject(t *testing.T) {
	var s ConversationSet
	if err := json.Unmarshal([]byte(`[1,2]`), &s); err == nil {
		t.Error("expected error for array")
	}
}

// idsOf lists the set's ids newest first.
func idsOf(s *ConversationSet) []string {
	var ids []string
	for _, c := range s.NewestFirst() {
		ids = append(ids, c.ID)
	}
	return ids
}

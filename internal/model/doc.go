// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for conversations and messages.
//
// # Key Types
//
//   - Message: one turn, user or model, serialised as {role, parts:[{text}]}
//   - Conversation: id, title and ordered history
//   - ConversationSet: insertion-ordered id -> Conversation mapping
//   - Role: RoleUser or RoleModel
//
// # Usage
//
//	conv := model.NewConversation("chat_0190...")
//	conv.Append(model.NewMessage(model.RoleUser, "Hello!"))
//	// conv.Title is now "Hello!"
package model

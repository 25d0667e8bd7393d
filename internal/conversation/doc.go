// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package conversation implements the chat controller: new chat, switch
// chat, delete all, and the send-message protocol.
//
// A send runs as echo -> store user turn -> typing -> exchange -> one of
// appended, blocked, glitched, failed or stale. Only successful model turns
// are stored. Replies are bound to the conversation they were sent from.
//
// # Usage
//
//	ctrl := conversation.New(store, client, renderer,
//	    conversation.WithSpeaker(speaker),
//	    conversation.WithConfirmer(confirmer),
//	    conversation.WithLogger(logger))
//	ctrl.Start()
//	outcome, err := ctrl.SendMessage(ctx, "yo", false)
package conversation

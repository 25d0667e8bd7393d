// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cloud is the HTTP transport to the kryptonite chat backend.
//
// A request carries the full conversation as {contents, system_instruction};
// the response is classified once, at this boundary, into a model.Reply:
//
//   - ReplySuccess: candidates[0].content.parts[0].text present
//   - ReplyBlocked: promptFeedback.blockReason present
//   - ReplyMalformed: any other 2xx body
//   - ReplyFailed: network error or non-2xx status (*StatusError)
//
// # Usage
//
//	client := cloud.NewClient(cfg.Backend.URL, cloud.WithTimeout(30*time.Second))
//	reply := client.Generate(ctx, conv.History, persona.SystemInstruction)
package cloud

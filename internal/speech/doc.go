// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package speech provides the text-to-speech and speech-to-text
// capabilities the chat uses for voice turns.
//
// Both directions are backed by external commands configured by the user;
// with voice disabled the Nop implementation is used.
package speech

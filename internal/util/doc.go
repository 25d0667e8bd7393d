// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package util provides small helpers shared across kryptonite.
//
// # Key Functions
//
// String Utilities:
//   - TruncateRunes, TruncateRunesNoEllipsis: UTF-8 safe truncation
//   - TruncateWidth, PadWidth, StringWidth: terminal cell aware layout
//   - NormalizeInput: NFC normalisation of user input
//
// File Operations:
//   - AtomicWriteFile: crash-safe file replacement with fsync
//   - BackupFile: copy a file aside before it is overwritten
//
// # Usage
//
//	title := util.TruncateRunesNoEllipsis(prompt, 30)
//	err := util.AtomicWriteFile(path, data, 0600)
package util

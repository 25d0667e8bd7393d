// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package export writes a single conversation to Markdown, HTML or JSON.
//
// # Usage
//
//	exp, err := export.New("html", export.DefaultOptions())
//	if err != nil {
//	    return err
//	}
//	path, err := export.ExportToFile(conv, exp, "chat.html", nil)
package export

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export_test

import (
	"fmt"

	"github.com/jeranaias/kryptonite/internal/export"
	"github.com/jeranaias/kryptonite/internal/model"
)

// ExampleMarkdownExporter shows a metadata-free Markdown export.
func ExampleMarkdownExporter() {
	conv := model.NewConversation("chat_example")
	conv.Append(model.Message{Role: model.RoleUser, Text: "yo"})
	conv.Append(model.Message{Role: model.RoleModel, Text: "What's good?"})

	out, err := export.NewMarkdownExporter(&export.Options{}).Export(conv)
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	fmt.Print(string(out))
	// Output:
	// # yo
	//
	// ### You
	//
	// yo
	//
	// ---
	//
	// ### Kryptonite
	//
	// What's good?
}

// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/jeranaias/kryptonite/internal/model"
)

var fixedNow = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

func sampleConversation() *model.Conversation {
	conv := model.NewConversation("chat_abc")
	conv.Append(model.Message{Role: model.RoleUser, Text: "how do I print in go?"})
	conv.Append(model.Message{Role: model.RoleModel, Text: "Easy:\n\n```go\nfmt.Println(\"hi\")\n```"})
	return conv
}

func TestNewFormats(t *testing.T) {
	for format, ext := range map[string]string{
		"md": ".md", "markdown": ".md", "HTML": ".html", "htm": ".html", "json": ".json",
	} {
		exp, err := New(format, nil)
		require.NoError(t, err, format)
		assert.Equal(t, ext, exp.FileExtension(), format)
	}

	_, err := New("pdf", nil)
	assert.Error(t, err)
}

func TestFormatFromPath(t *testing.T) {
	assert.Equal(t, "html", FormatFromPath("out/chat.HTML"))
	assert.Equal(t, "json", FormatFromPath("chat.json"))
	assert.Equal(t, "md", FormatFromPath("chat.txt"))
}

func TestNilConversation(t *testing.T) {
	for _, format := range []string{"md", "html", "json"} {
		exp, err := New(format, nil)
		require.NoError(t, err)
		_, err = exp.Export(nil)
		assert.ErrorIs(t, err, ErrNilConversation, format)
	}
}

func TestMarkdownExport(t *testing.T) {
	out, err := NewMarkdownExporter(&Options{IncludeMetadata: true, Now: fixedNow}).Export(sampleConversation())
	require.NoError(t, err)
	md := string(out)

	assert.True(t, strings.HasPrefix(md, "---\ntitle: how do I print in go?\nid: chat_abc\nmessages: 2\nexported: 2025-06-01T12:00:00Z\n"))
	assert.Contains(t, md, "# how do I print in go?\n")
	assert.Contains(t, md, "### You\n\nhow do I print in go?")
	assert.Contains(t, md, "### Kryptonite\n\nEasy:\n\n```go\nfmt.Println(\"hi\")\n```")
}

func TestMarkdownEscapesFrontmatter(t *testing.T) {
	conv := model.NewConversation("chat_x")
	conv.Title = "Test\nInjection: malicious"
	out, err := NewMarkdownExporter(&Options{IncludeMetadata: true, Now: fixedNow}).Export(conv)
	require.NoError(t, err)

	assert.Contains(t, string(out), `title: "Test\nInjection: malicious"`)
	assert.NotContains(t, string(out), "\nInjection: malicious\n")
	assert.Contains(t, string(out), "*No messages yet.*")
}

func TestHTMLExportRendersMarkdown(t *testing.T) {
	out, err := NewHTMLExporter(&Options{IncludeMetadata: true, Theme: "light", Now: fixedNow}).Export(sampleConversation())
	require.NoError(t, err)
	page := string(out)

	assert.Contains(t, page, `<body class="light-theme">`)
	assert.Contains(t, page, "<title>how do I print in go?</title>")
	assert.Contains(t, page, `<code class="language-go">`)
	assert.Contains(t, page, `class="message user-message"`)
	assert.Contains(t, page, `class="message model-message"`)
	assert.Contains(t, page, ">Kryptonite<")
}

func TestHTMLEscapesRawHTML(t *testing.T) {
	conv := model.NewConversation("chat_xss")
	conv.Append(model.Message{Role: model.RoleUser, Text: "<script>alert('xss')</script>"})
	conv.Append(model.Message{Role: model.RoleModel, Text: "```<img src=x onerror=alert(1)>\ncode\n```"})

	out, err := NewHTMLExporter(nil).Export(conv)
	require.NoError(t, err)
	page := string(out)

	assert.NotContains(t, page, "<script>alert")
	assert.NotContains(t, page, "<img src=x")
}

func TestJSONExportUsesStorageShape(t *testing.T) {
	out, err := NewJSONExporter(nil).Export(sampleConversation())
	require.NoError(t, err)

	assert.Equal(t, "chat_abc", gjson.GetBytes(out, "id").String())
	assert.Equal(t, "how do I print in go?", gjson.GetBytes(out, "title").String())
	assert.Equal(t, "model", gjson.GetBytes(out, "history.1.role").String())
	assert.Equal(t, "how do I print in go?", gjson.GetBytes(out, "history.0.parts.0.text").String())
}

func TestExportToFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "chat.md")

	got, err := ExportToFile(sampleConversation(), NewMarkdownExporter(nil), path, nil)
	require.NoError(t, err)
	assert.Equal(t, path, got)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "### You")
}

func TestDefaultFilename(t *testing.T) {
	conv := model.NewConversation("chat_1")
	conv.Title = `what/is:this?`
	name := DefaultFilename(conv, NewHTMLExporter(nil), fixedNow())
	assert.Equal(t, "kryptonite_what-is-this-_20250601_120000.html", name)
}

func TestSanitizeFilename(t *testing.T) {
	assert.Equal(t, "conversation", sanitizeFilename(""))
	assert.Equal(t, "a_b-c", sanitizeFilename("a b|c"))
	assert.Equal(t, 50, len([]rune(sanitizeFilename(strings.Repeat("x", 80)))))
}

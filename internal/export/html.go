// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"bytes"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"github.com/jeranaias/kryptonite/internal/model"
)

// =============================================================================
// HTML EXPORTER
// =============================================================================

// HTMLExporter exports conversations to a standalone HTML page. Message
// markdown is rendered with goldmark; raw HTML inside messages is escaped
// (goldmark's default, html.WithUnsafe is never set).
type HTMLExporter struct {
	options *Options
	md      goldmark.Markdown
}

// NewHTMLExporter creates a new HTML exporter.
func NewHTMLExporter(opts *Options) *HTMLExporter {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &HTMLExporter{
		options: opts,
		md:      goldmark.New(goldmark.WithExtensions(extension.GFM)),
	}
}

// Export converts a conversation to HTML format.
func (e *HTMLExporter) Export(conv *model.Conversation) ([]byte, error) {
	if conv == nil {
		return nil, ErrNilConversation
	}

	theme := e.options.Theme
	if theme != "light" {
		theme = "dark"
	}

	var sb strings.Builder
	sb.WriteString("<!DOCTYPE html>\n<html lang=\"en\">\n<head>\n")
	sb.WriteString("  <meta charset=\"UTF-8\">\n")
	sb.WriteString("  <meta name=\"viewport\" content=\"width=device-width, initial-scale=1.0\">\n")
	fmt.Fprintf(&sb, "  <title>%s</title>\n", html.EscapeString(conv.Title))
	sb.WriteString("  <meta name=\"generator\" content=\"kryptonite\">\n")
	sb.WriteString(pageCSS)
	sb.WriteString("</head>\n")
	fmt.Fprintf(&sb, "<body class=\"%s-theme\">\n<div class=\"container\">\n", theme)

	if e.options.IncludeMetadata {
		sb.WriteString(e.renderHeader(conv))
	}

	sb.WriteString("<main class=\"conversation\">\n")
	for _, msg := range conv.History {
		rendered, err := e.renderMessage(msg)
		if err != nil {
			return nil, err
		}
		sb.WriteString(rendered)
	}
	if conv.IsEmpty() {
		sb.WriteString("<p class=\"empty\">No messages yet.</p>\n")
	}
	sb.WriteString("</main>\n")

	fmt.Fprintf(&sb, "<footer class=\"footer\">Exported from Kryptonite on %s</footer>\n",
		e.options.now().Format("January 2, 2006 at 3:04 PM"))
	sb.WriteString("</div>\n</body>\n</html>\n")

	return []byte(sb.String()), nil
}

// FileExtension returns the file extension for HTML.
func (e *HTMLExporter) FileExtension() string {
	return ".html"
}

// MimeType returns the MIME type for HTML.
func (e *HTMLExporter) MimeType() string {
	return "text/html"
}

// =============================================================================
// RENDERING FUNCTIONS
// =============================================================================

func (e *HTMLExporter) renderHeader(conv *model.Conversation) string {
	var sb strings.Builder
	sb.WriteString("<header class=\"header\">\n")
	fmt.Fprintf(&sb, "  <h1>%s</h1>\n", html.EscapeString(conv.Title))
	sb.WriteString("  <div class=\"metadata\">\n")
	fmt.Fprintf(&sb, "    <span class=\"meta-item\"><strong>Messages:</strong> %d</span>\n", conv.MessageCount())
	fmt.Fprintf(&sb, "    <span class=\"meta-item\"><strong>Exported:</strong> %s</span>\n",
		html.EscapeString(e.options.now().Format(time.RFC3339)))
	sb.WriteString("  </div>\n</header>\n")
	return sb.String()
}

func (e *HTMLExporter) renderMessage(msg model.Message) (string, error) {
	var body bytes.Buffer
	if err := e.md.Convert([]byte(msg.Text), &body); err != nil {
		return "", fmt.Errorf("render message: %w", err)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "<div class=\"message %s-message\">\n", html.EscapeString(string(msg.Role)))
	fmt.Fprintf(&sb, "  <div class=\"role-label\">%s</div>\n", html.EscapeString(msg.Role.DisplayName()))
	sb.WriteString("  <div class=\"message-content\">\n")
	sb.Write(body.Bytes())
	sb.WriteString("  </div>\n</div>\n")
	return sb.String(), nil
}

// =============================================================================
// EMBEDDED CSS
// =============================================================================

const pageCSS = `  <style>
    * { margin: 0; padding: 0; box-sizing: border-box; }
    :root {
      --font-sans: -apple-system, BlinkMacSystemFont, "Segoe UI", Roboto, sans-serif;
      --font-mono: "Fira Code", "SF Mono", Menlo, monospace;
    }
    .dark-theme {
      --bg: #0d1117; --panel: #161b22; --user-bg: #123524; --model-bg: #1c2128;
      --text: #e6edf3; --muted: #8b949e; --accent: #39ff14; --code-bg: #0b0f14;
    }
    .light-theme {
      --bg: #f6f8fa; --panel: #ffffff; --user-bg: #dcfce7; --model-bg: #f1f5f9;
      --text: #1f2328; --muted: #656d76; --accent: #15803d; --code-bg: #eef1f4;
    }
    body { font-family: var(--font-sans); line-height: 1.6; background: var(--bg); color: var(--text); padding: 24px; }
    .container { max-width: 860px; margin: 0 auto; background: var(--panel); border-radius: 12px; overflow: hidden; }
    .header { padding: 24px 32px; border-bottom: 2px solid var(--accent); }
    .header h1 { font-size: 26px; margin-bottom: 8px; }
    .metadata { display: flex; gap: 16px; font-size: 14px; color: var(--muted); }
    .conversation { padding: 24px 32px; display: flex; flex-direction: column; gap: 16px; }
    .message { padding: 12px 16px; border-radius: 10px; max-width: 85%; }
    .user-message { background: var(--user-bg); align-self: flex-end; }
    .model-message { background: var(--model-bg); align-self: flex-start; }
    .role-label { font-size: 12px; font-weight: 700; color: var(--accent); margin-bottom: 4px; }
    .message-content p { margin: 6px 0; }
    .message-content pre { background: var(--code-bg); padding: 12px; border-radius: 6px; overflow-x: auto; }
    .message-content code { font-family: var(--font-mono); font-size: 13px; }
    .empty { color: var(--muted); font-style: italic; }
    .footer { padding: 16px 32px; font-size: 12px; color: var(--muted); text-align: center; }
  </style>
`

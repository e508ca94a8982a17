package renderer

import (
	"bytes"
	"fmt"
	"html"

	"github.com/charmbracelet/glamour"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// markdown converts GitHub flavoured tables. Raw HTML in the source is
// escaped.
var markdown = goldmark.New(goldmark.WithExtensions(extension.Table))

// HTML converts a markdown report to an HTML fragment.
func HTML(md string) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("failed to convert markdown: %w", err)
	}
	return buf.String(), nil
}

// HTMLPage converts a markdown report to a standalone HTML document.
func HTMLPage(title, md string) (string, error) {
	body, err := HTML(md)
	if err != nil {
		return "", err
	}
	var b bytes.Buffer
	fmt.Fprintln(&b, "<!DOCTYPE html>")
	fmt.Fprintln(&b, `<html><head><meta charset="utf-8">`)
	fmt.Fprintf(&b, "<title>%s</title>\n", html.EscapeString(title))
	fmt.Fprintln(&b, "<style>table{border-collapse:collapse}td,th{padding:.25em .75em}</style>")
	fmt.Fprintln(&b, "</head><body>")
	b.WriteString(body)
	fmt.Fprintln(&b, "</body></html>")
	return b.String(), nil
}

// Terminal renders markdown with terminal styles, wrapping at width columns.
// The style follows the terminal background, and is plain when the output
// is not a terminal.
func Terminal(md string, width int) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create terminal renderer: %w", err)
	}
	out, err := r.Render(md)
	if err != nil {
		return "", fmt.Errorf("failed to render markdown: %w", err)
	}
	return out, nil
}

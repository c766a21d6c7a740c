// Package render converts document markdown bodies to HTML.
package render

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

// Renderer turns GitHub-flavored markdown into HTML. It is stateless, so a
// single instance can be shared across requests without locking. Raw HTML
// in document bodies is omitted from the output; library content is not
// trusted markup.
type Renderer struct {
	engine goldmark.Markdown
}

// New builds a renderer with GFM extensions and automatic heading IDs.
func New() *Renderer {
	return &Renderer{
		engine: goldmark.New(
			goldmark.WithExtensions(
				extension.GFM,
				extension.Linkify,
				extension.TaskList,
			),
			goldmark.WithParserOptions(parser.WithAutoHeadingID()),
		),
	}
}

// HTML renders a markdown body.
func (r *Renderer) HTML(body []byte) (string, error) {
	var buf bytes.Buffer
	if err := r.engine.Convert(body, &buf); err != nil {
		return "", fmt.Errorf("render: %w", err)
	}
	return buf.String(), nil
}

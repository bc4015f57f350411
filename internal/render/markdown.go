// Package render turns chat turn content into HTML safe to drop into the page.
package render

import (
	"bytes"
	"fmt"
	"html"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// Markdown converts Markdown to sanitized HTML. It is safe for concurrent use.
type Markdown struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

func NewMarkdown() *Markdown {
	return &Markdown{
		md:     goldmark.New(goldmark.WithExtensions(extension.GFM)),
		policy: bluemonday.UGCPolicy(),
	}
}

// ToHTML renders source. Model output is untrusted, so raw HTML is dropped
// by goldmark and the result is passed through the UGC policy.
func (m *Markdown) ToHTML(source string) (string, error) {
	var buf bytes.Buffer
	if err := m.md.Convert([]byte(source), &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return m.policy.Sanitize(buf.String()), nil
}

// Plain renders source as escaped text in a single paragraph. Used for
// user turns, which are shown verbatim.
func Plain(source string) string {
	return "<p>" + html.EscapeString(source) + "</p>"
}

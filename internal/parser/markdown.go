package parser

import (
	"io"
	"strings"

	"github.com/dgallion1/inkwell/internal/markup"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"golang.org/x/text/unicode/norm"
)

// MarkdownParser handles Markdown files using goldmark.
type MarkdownParser struct{}

func (p *MarkdownParser) Parse(r io.Reader, filename string) (*Imported, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	src = norm.NFC.Bytes(src)

	out, err := markup.MarkdownToHTML(src)
	if err != nil {
		return nil, err
	}
	doc, err := markup.ParseHTMLString(out)
	if err != nil {
		return nil, err
	}

	title := titleFromName(filename)
	if h := firstHeading(src); h != "" {
		title = h
	}
	return &Imported{Title: title, Document: doc}, nil
}

// firstHeading returns the text of a level-one heading that opens the
// document, if any.
func firstHeading(src []byte) string {
	root := goldmark.New().Parser().Parse(text.NewReader(src))
	h, ok := root.FirstChild().(*ast.Heading)
	if !ok || h.Level != 1 {
		return ""
	}
	var buf strings.Builder
	for c := h.FirstChild(); c != nil; c = c.NextSibling() {
		if t, ok := c.(*ast.Text); ok {
			buf.Write(t.Value(src))
		}
	}
	return strings.TrimSpace(buf.String())
}

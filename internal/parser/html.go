package parser

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"github.com/dgallion1/inkwell/internal/markup"
	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// HTMLParser handles HTML files. Page chrome (nav, header, footer) is
// dropped before the body is read into the schema.
type HTMLParser struct{}

func (p *HTMLParser) Parse(r io.Reader, filename string) (*Imported, error) {
	src, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	page, err := html.Parse(bytes.NewReader(norm.NFC.Bytes(src)))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	title := titleFromName(filename)
	if t := findTitle(page); t != "" {
		title = t
	}

	body := findBody(page)
	if body == nil {
		body = page
	}
	stripChrome(body)

	var buf bytes.Buffer
	for c := body.FirstChild; c != nil; c = c.NextSibling {
		if err := html.Render(&buf, c); err != nil {
			return nil, fmt.Errorf("render body: %w", err)
		}
	}
	doc, err := markup.ParseHTML(&buf)
	if err != nil {
		return nil, err
	}
	return &Imported{Title: title, Document: doc}, nil
}

func stripChrome(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		if c.Type == html.ElementNode {
			switch c.Data {
			case "nav", "footer", "header", "script", "style":
				n.RemoveChild(c)
			default:
				stripChrome(c)
			}
		}
		c = next
	}
}

func textContent(n *html.Node) string {
	var buf strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.TextNode {
			buf.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}
	}
	extract(n)
	return strings.TrimSpace(buf.String())
}

func findTitle(n *html.Node) string {
	if n.Type == html.ElementNode && n.Data == "title" {
		return textContent(n)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if t := findTitle(c); t != "" {
			return t
		}
	}
	return ""
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.Data == "body" {
		return n
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if b := findBody(c); b != nil {
			return b
		}
	}
	return nil
}

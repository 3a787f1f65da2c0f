// Package markup converts between documents and tag-based markup: HTML
// rendering and allow-list parsing, sanitizing of untrusted HTML, and
// markdown conversion.
package markup

import (
	"bytes"
	"strings"

	"github.com/dgallion1/inkwell/internal/doctree"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// LinkRel is the rel attribute written on every link.
const LinkRel = "noopener noreferrer nofollow"

// RenderHTML serializes a document. An empty document renders as a
// single empty paragraph.
func RenderHTML(d *doctree.Document) string {
	var buf bytes.Buffer
	for _, b := range d.Blocks {
		// Writes to a bytes.Buffer do not fail and the trees built here
		// never give void elements children.
		_ = html.Render(&buf, blockNode(b))
	}
	if buf.Len() == 0 {
		return "<p></p>"
	}
	return buf.String()
}

func element(a atom.Atom, attrs ...html.Attribute) *html.Node {
	return &html.Node{Type: html.ElementNode, DataAtom: a, Data: a.String(), Attr: attrs}
}

func attr(k, v string) html.Attribute {
	return html.Attribute{Key: k, Val: v}
}

func blockNode(b *doctree.Block) *html.Node {
	var n *html.Node
	switch b.Type {
	case doctree.TypeParagraph:
		n = element(atom.P, alignAttrs(b)...)
		appendInline(n, b.Inline)
	case doctree.TypeHeading:
		n = element(headingAtom(b.Attr(doctree.AttrLevel)), alignAttrs(b)...)
		appendInline(n, b.Inline)
	case doctree.TypeCodeBlock:
		n = element(atom.Pre)
		var code *html.Node
		if lang := b.Attr(doctree.AttrLanguage); lang != "" {
			code = element(atom.Code, attr("class", "language-"+lang))
		} else {
			code = element(atom.Code)
		}
		var sb strings.Builder
		for _, in := range b.Inline {
			sb.WriteString(in.Text)
		}
		if sb.Len() > 0 {
			code.AppendChild(&html.Node{Type: html.TextNode, Data: sb.String()})
		}
		n.AppendChild(code)
	case doctree.TypeHorizontalRule:
		n = element(atom.Hr)
	case doctree.TypeImage:
		attrs := []html.Attribute{attr("src", b.Attr(doctree.AttrSrc))}
		if alt := b.Attr(doctree.AttrAlt); alt != "" {
			attrs = append(attrs, attr("alt", alt))
		}
		if title := b.Attr(doctree.AttrTitle); title != "" {
			attrs = append(attrs, attr("title", title))
		}
		n = element(atom.Img, attrs...)
	case doctree.TypeBlockquote:
		n = element(atom.Blockquote)
	case doctree.TypeBulletList:
		n = element(atom.Ul)
	case doctree.TypeOrderedList:
		if start := b.Attr(doctree.AttrStart); start != "" && start != "1" {
			n = element(atom.Ol, attr("start", start))
		} else {
			n = element(atom.Ol)
		}
	case doctree.TypeListItem:
		n = element(atom.Li)
	default:
		n = element(atom.Div)
	}
	for _, c := range b.Children {
		n.AppendChild(blockNode(c))
	}
	return n
}

func headingAtom(level string) atom.Atom {
	switch level {
	case "2":
		return atom.H2
	case "3":
		return atom.H3
	case "4":
		return atom.H4
	case "5":
		return atom.H5
	case "6":
		return atom.H6
	}
	return atom.H1
}

func alignAttrs(b *doctree.Block) []html.Attribute {
	v := b.Attr(doctree.AttrTextAlign)
	if v == "" || v == doctree.DefaultAlignment {
		return nil
	}
	return []html.Attribute{attr("style", "text-align: "+v)}
}

// appendInline writes runs under parent, keeping a mark element open
// across consecutive runs that share it.
func appendInline(parent *html.Node, content []doctree.Inline) {
	type open struct {
		mark doctree.Mark
		node *html.Node
	}
	var stack []open
	for _, in := range content {
		var marks []doctree.Mark
		if in.Type == doctree.TypeText {
			marks = in.Marks
		}
		keep := 0
		for keep < len(stack) && keep < len(marks) && stack[keep].mark.Equal(marks[keep]) {
			keep++
		}
		stack = stack[:keep]
		top := func() *html.Node {
			if len(stack) == 0 {
				return parent
			}
			return stack[len(stack)-1].node
		}
		for _, m := range marks[keep:] {
			el := markNode(m)
			top().AppendChild(el)
			stack = append(stack, open{mark: m, node: el})
		}
		top().AppendChild(inlineNode(in))
	}
}

func inlineNode(in doctree.Inline) *html.Node {
	if in.Type == doctree.TypeHardBreak {
		return element(atom.Br)
	}
	return &html.Node{Type: html.TextNode, Data: in.Text}
}

func markNode(m doctree.Mark) *html.Node {
	switch m.Type {
	case doctree.MarkBold:
		return element(atom.Strong)
	case doctree.MarkItalic:
		return element(atom.Em)
	case doctree.MarkUnderline:
		return element(atom.U)
	case doctree.MarkStrike:
		return element(atom.S)
	case doctree.MarkCode:
		return element(atom.Code)
	case doctree.MarkSubscript:
		return element(atom.Sub)
	case doctree.MarkSuperscript:
		return element(atom.Sup)
	case doctree.MarkLink:
		return element(atom.A,
			attr("target", "_blank"),
			attr("rel", LinkRel),
			attr("href", m.Attr(doctree.AttrHref)))
	case doctree.MarkColor:
		return element(atom.Span, attr("style", "color: "+m.Attr(doctree.AttrColor)))
	case doctree.MarkHighlight:
		c := m.Attr(doctree.AttrColor)
		if c == "" {
			return element(atom.Mark)
		}
		return element(atom.Mark,
			attr("data-color", c),
			attr("style", "background-color: "+c+"; color: inherit"))
	}
	return element(atom.Span)
}

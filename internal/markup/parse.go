package markup

import (
	"fmt"
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/dgallion1/inkwell/internal/doctree"
	"github.com/dgallion1/inkwell/internal/schema"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

var (
	spaceRun   = regexp.MustCompile(`[ \t\n\r\f]+`)
	styleDecl  = regexp.MustCompile(`(?i)([a-z-]+)\s*:\s*([^;]+)`)
	langClass  = regexp.MustCompile(`(?:^|\s)language-([\w+#.-]+)`)
	safeColour = regexp.MustCompile(`^(#[0-9a-fA-F]{3,8}|[a-zA-Z]+|rgba?\([0-9.,%\s]+\)|hsla?\([0-9.,%\s]+\)|var\(--[\w-]+\))$`)
)

// ParseHTML reads an HTML fragment into a document. Only elements the
// schema understands survive; everything else is unwrapped to its
// content or, for script-like elements, dropped.
func ParseHTML(r io.Reader) (*doctree.Document, error) {
	body := &html.Node{Type: html.ElementNode, DataAtom: atom.Body, Data: "body"}
	nodes, err := html.ParseFragment(r, body)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	root := &html.Node{Type: html.ElementNode, DataAtom: atom.Div, Data: "div"}
	for _, n := range nodes {
		root.AppendChild(n)
	}
	d := &doctree.Document{Blocks: parseBlocks(root)}
	d.Normalize()
	return d, nil
}

// ParseHTMLString is ParseHTML over a string.
func ParseHTMLString(s string) (*doctree.Document, error) {
	return ParseHTML(strings.NewReader(s))
}

// SafeURL reports whether href uses a scheme links may carry.
func SafeURL(href string) bool {
	href = strings.TrimSpace(href)
	if href == "" {
		return false
	}
	u, err := url.Parse(href)
	if err != nil {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "", "http", "https", "mailto", "tel":
		return true
	}
	return false
}

func safeImageURL(src string) bool {
	u, err := url.Parse(strings.TrimSpace(src))
	if err != nil || src == "" {
		return false
	}
	switch strings.ToLower(u.Scheme) {
	case "", "http", "https":
		return true
	}
	return false
}

func skipped(a atom.Atom) bool {
	switch a {
	case atom.Script, atom.Style, atom.Noscript, atom.Template, atom.Iframe,
		atom.Object, atom.Embed, atom.Head, atom.Title, atom.Meta, atom.Link,
		atom.Button, atom.Input, atom.Select, atom.Textarea, atom.Svg:
		return true
	}
	return false
}

func isBlockElement(a atom.Atom) bool {
	switch a {
	case atom.P, atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6,
		atom.Pre, atom.Blockquote, atom.Ul, atom.Ol, atom.Li, atom.Hr,
		atom.Div, atom.Section, atom.Article, atom.Main, atom.Header,
		atom.Footer, atom.Aside, atom.Nav, atom.Figure, atom.Table,
		atom.Tbody, atom.Thead, atom.Tr, atom.Td, atom.Th, atom.Dl, atom.Dt, atom.Dd:
		return true
	}
	return false
}

// parseBlocks turns the children of n into blocks. Stray inline content
// between blocks is gathered into paragraphs.
func parseBlocks(n *html.Node) []*doctree.Block {
	var out []*doctree.Block
	var pending []doctree.Inline
	flush := func() {
		content := cleanInline(pending)
		pending = nil
		if len(content) == 0 {
			return
		}
		out = append(out, splitImages(doctree.Paragraph(content...))...)
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode && skipped(c.DataAtom) {
			continue
		}
		if c.Type != html.ElementNode || !isBlockElement(c.DataAtom) {
			pending = append(pending, parseInline(c, nil)...)
			continue
		}
		flush()
		out = append(out, parseBlock(c)...)
	}
	flush()
	return out
}

func parseBlock(n *html.Node) []*doctree.Block {
	switch n.DataAtom {
	case atom.P:
		b := doctree.Paragraph(cleanInline(parseInlineChildren(n, nil))...)
		applyAlign(b, n)
		return splitImages(b)
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		b := &doctree.Block{Type: doctree.TypeHeading, Inline: cleanInline(parseInlineChildren(n, nil))}
		b.SetAttr(doctree.AttrLevel, n.Data[1:])
		applyAlign(b, n)
		return splitImages(b)
	case atom.Pre:
		return []*doctree.Block{parseCode(n)}
	case atom.Hr:
		return []*doctree.Block{{Type: doctree.TypeHorizontalRule}}
	case atom.Blockquote:
		return []*doctree.Block{{Type: doctree.TypeBlockquote, Children: parseBlocks(n)}}
	case atom.Ul:
		return []*doctree.Block{{Type: doctree.TypeBulletList, Children: parseItems(n)}}
	case atom.Ol:
		b := &doctree.Block{Type: doctree.TypeOrderedList, Children: parseItems(n)}
		if v, ok := attrOf(n, "start"); ok {
			if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil && i != 1 {
				b.SetAttr(doctree.AttrStart, strconv.Itoa(i))
			}
		}
		return []*doctree.Block{b}
	case atom.Li:
		return []*doctree.Block{{Type: doctree.TypeListItem, Children: parseBlocks(n)}}
	}
	return parseBlocks(n)
}

// splitImages lifts image placeholders out of a textblock, splitting it
// around each image. Empty pieces are dropped.
func splitImages(b *doctree.Block) []*doctree.Block {
	var out []*doctree.Block
	var seg []doctree.Inline
	found := false
	flush := func() {
		content := cleanInline(seg)
		seg = nil
		if len(content) == 0 {
			return
		}
		part := &doctree.Block{Type: b.Type, Inline: content}
		for k, v := range b.Attrs {
			part.SetAttr(k, v)
		}
		out = append(out, part)
	}
	for _, n := range b.Inline {
		if n.Type != doctree.TypeImage {
			seg = append(seg, n)
			continue
		}
		found = true
		flush()
		out = append(out, &doctree.Block{Type: doctree.TypeImage, Attrs: n.Attrs})
	}
	if !found {
		return []*doctree.Block{b}
	}
	flush()
	return out
}

func parseItems(n *html.Node) []*doctree.Block {
	var items []*doctree.Block
	for _, b := range parseBlocks(n) {
		if b.Type != doctree.TypeListItem {
			b = &doctree.Block{Type: doctree.TypeListItem, Children: []*doctree.Block{b}}
		}
		items = append(items, b)
	}
	return items
}

func parseCode(pre *html.Node) *doctree.Block {
	b := &doctree.Block{Type: doctree.TypeCodeBlock}
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch {
		case n.Type == html.TextNode:
			sb.WriteString(n.Data)
		case n.Type == html.ElementNode && n.DataAtom == atom.Br:
			sb.WriteByte('\n')
		case n.Type == html.ElementNode && n.DataAtom == atom.Code:
			if b.Attr(doctree.AttrLanguage) == "" {
				if cls, ok := attrOf(n, "class"); ok {
					if m := langClass.FindStringSubmatch(cls); m != nil {
						b.SetAttr(doctree.AttrLanguage, m[1])
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(pre)
	if text := strings.TrimSuffix(sb.String(), "\n"); text != "" {
		b.Inline = []doctree.Inline{doctree.Text(text)}
	}
	return b
}

func parseInlineChildren(n *html.Node, marks []doctree.Mark) []doctree.Inline {
	var out []doctree.Inline
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		out = append(out, parseInline(c, marks)...)
	}
	return out
}

func parseInline(n *html.Node, marks []doctree.Mark) []doctree.Inline {
	switch n.Type {
	case html.TextNode:
		text := spaceRun.ReplaceAllString(n.Data, " ")
		if text == "" {
			return nil
		}
		return []doctree.Inline{{Type: doctree.TypeText, Text: text, Marks: doctree.CloneMarks(marks)}}
	case html.ElementNode:
	default:
		return nil
	}
	if skipped(n.DataAtom) {
		return nil
	}
	switch n.DataAtom {
	case atom.Br:
		return []doctree.Inline{doctree.HardBreak()}
	case atom.Img:
		src, _ := attrOf(n, "src")
		if !safeImageURL(src) {
			return nil
		}
		img := doctree.Image(strings.TrimSpace(src), attrValue(n, "alt"))
		img.SetAttr(doctree.AttrTitle, attrValue(n, "title"))
		// Placeholder; splitImages lifts it out of the textblock.
		return []doctree.Inline{{Type: doctree.TypeImage, Attrs: img.Attrs}}
	}
	for _, m := range marksFor(n) {
		marks = schema.AddToSet(marks, m)
	}
	return parseInlineChildren(n, marks)
}

// marksFor maps an inline element to the marks it implies.
func marksFor(n *html.Node) []doctree.Mark {
	var out []doctree.Mark
	switch n.DataAtom {
	case atom.Strong, atom.B:
		out = append(out, doctree.Mark{Type: doctree.MarkBold})
	case atom.Em, atom.I:
		out = append(out, doctree.Mark{Type: doctree.MarkItalic})
	case atom.U:
		out = append(out, doctree.Mark{Type: doctree.MarkUnderline})
	case atom.S, atom.Strike, atom.Del:
		out = append(out, doctree.Mark{Type: doctree.MarkStrike})
	case atom.Code, atom.Kbd, atom.Samp:
		out = append(out, doctree.Mark{Type: doctree.MarkCode})
	case atom.Sub:
		out = append(out, doctree.Mark{Type: doctree.MarkSubscript})
	case atom.Sup:
		out = append(out, doctree.Mark{Type: doctree.MarkSuperscript})
	case atom.A:
		if href, ok := attrOf(n, "href"); ok && SafeURL(href) {
			out = append(out, doctree.Mark{Type: doctree.MarkLink, Attrs: map[string]string{doctree.AttrHref: strings.TrimSpace(href)}})
		}
	case atom.Mark:
		c := attrValue(n, "data-color")
		if c == "" {
			c = styleOf(n)["background-color"]
		}
		m := doctree.Mark{Type: doctree.MarkHighlight}
		if c != "" && safeColour.MatchString(c) {
			m.Attrs = map[string]string{doctree.AttrColor: c}
		}
		out = append(out, m)
	}
	if n.DataAtom == atom.Span || n.DataAtom == atom.Font {
		c := styleOf(n)["color"]
		if c == "" && n.DataAtom == atom.Font {
			c = attrValue(n, "color")
		}
		if c != "" && safeColour.MatchString(c) {
			out = append(out, doctree.Mark{Type: doctree.MarkColor, Attrs: map[string]string{doctree.AttrColor: c}})
		}
	}
	return out
}

func applyAlign(b *doctree.Block, n *html.Node) {
	v := strings.ToLower(styleOf(n)["text-align"])
	switch v {
	case "center", "right", "justify":
		b.SetAttr(doctree.AttrTextAlign, v)
	}
}

func styleOf(n *html.Node) map[string]string {
	style, ok := attrOf(n, "style")
	if !ok {
		return nil
	}
	out := map[string]string{}
	for _, m := range styleDecl.FindAllStringSubmatch(style, -1) {
		out[strings.ToLower(m[1])] = strings.TrimSpace(m[2])
	}
	return out
}

func attrOf(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func attrValue(n *html.Node, key string) string {
	v, _ := attrOf(n, key)
	return strings.TrimSpace(v)
}

// cleanInline trims collapsed whitespace at the edges of a textblock
// and around hard breaks, and drops doubled spaces between runs.
func cleanInline(in []doctree.Inline) []doctree.Inline {
	in = doctree.NormalizeInline(in)
	out := make([]doctree.Inline, 0, len(in))
	prevSpace := true
	for _, n := range in {
		if n.Type != doctree.TypeText {
			if n.Type == doctree.TypeHardBreak {
				trimTrailing(out)
				prevSpace = true
			} else {
				prevSpace = false
			}
			out = append(out, n)
			continue
		}
		text := n.Text
		if prevSpace {
			text = strings.TrimLeft(text, " ")
		}
		if text == "" {
			continue
		}
		prevSpace = strings.HasSuffix(text, " ")
		n.Text = text
		out = append(out, n)
	}
	trimTrailing(out)
	return doctree.NormalizeInline(out)
}

func trimTrailing(out []doctree.Inline) {
	if k := len(out) - 1; k >= 0 && out[k].Type == doctree.TypeText {
		out[k].Text = strings.TrimRight(out[k].Text, " ")
	}
}

package doctree

import "unicode/utf8"

// NodeType names a block or inline node kind.
type NodeType string

const (
	TypeParagraph      NodeType = "paragraph"
	TypeHeading        NodeType = "heading"
	TypeCodeBlock      NodeType = "codeBlock"
	TypeHorizontalRule NodeType = "horizontalRule"
	TypeBlockquote     NodeType = "blockquote"
	TypeBulletList     NodeType = "bulletList"
	TypeOrderedList    NodeType = "orderedList"
	TypeListItem       NodeType = "listItem"
	TypeImage          NodeType = "image"

	TypeText      NodeType = "text"
	TypeHardBreak NodeType = "hardBreak"
)

// MarkType names an inline formatting mark.
type MarkType string

const (
	MarkBold        MarkType = "bold"
	MarkItalic      MarkType = "italic"
	MarkUnderline   MarkType = "underline"
	MarkStrike      MarkType = "strike"
	MarkCode        MarkType = "code"
	MarkLink        MarkType = "link"
	MarkColor       MarkType = "color"
	MarkHighlight   MarkType = "highlight"
	MarkSubscript   MarkType = "subscript"
	MarkSuperscript MarkType = "superscript"
)

// Attribute keys used on blocks and marks.
const (
	AttrTextAlign = "textAlign"
	AttrLevel     = "level"
	AttrLanguage  = "language"
	AttrStart     = "start"
	AttrSrc       = "src"
	AttrAlt       = "alt"
	AttrTitle     = "title"
	AttrHref      = "href"
	AttrColor     = "color"
)

// DefaultAlignment is the alignment every paragraph and heading has
// when no textAlign attribute is set.
const DefaultAlignment = "left"

// Mark is a formatting attribute applied to a text run.
type Mark struct {
	Type  MarkType
	Attrs map[string]string
}

// Attr returns the attribute value for key, or "".
func (m Mark) Attr(key string) string {
	return m.Attrs[key]
}

// Equal reports whether both marks have the same type and attributes.
func (m Mark) Equal(o Mark) bool {
	return m.Type == o.Type && attrsEqual(m.Attrs, o.Attrs)
}

// Inline is a text run or an inline atom (hard break).
type Inline struct {
	Type  NodeType
	Text  string
	Marks []Mark
	Attrs map[string]string
}

// Text returns a text run carrying marks.
func Text(s string, marks ...Mark) Inline {
	return Inline{Type: TypeText, Text: s, Marks: marks}
}

// HardBreak returns an inline line break atom.
func HardBreak() Inline {
	return Inline{Type: TypeHardBreak}
}

// Len is the number of linear positions the inline occupies.
func (n Inline) Len() int {
	if n.Type == TypeText {
		return utf8.RuneCountInString(n.Text)
	}
	return 1
}

// IsAtom reports whether the inline is a single-position leaf.
func (n Inline) IsAtom() bool {
	return n.Type != TypeText
}

// HasMark reports whether the run carries a mark of type t.
func (n Inline) HasMark(t MarkType) bool {
	_, ok := n.Mark(t)
	return ok
}

// Mark returns the run's mark of type t.
func (n Inline) Mark(t MarkType) (Mark, bool) {
	for _, m := range n.Marks {
		if m.Type == t {
			return m, true
		}
	}
	return Mark{}, false
}

// Block is a structural node. Textblocks hold Inline content,
// containers hold Children, atoms (rules, images) hold neither.
type Block struct {
	Type     NodeType
	Attrs    map[string]string
	Inline   []Inline
	Children []*Block
}

// Paragraph returns a paragraph holding content.
func Paragraph(content ...Inline) *Block {
	return &Block{Type: TypeParagraph, Inline: content}
}

// Image returns an image block.
func Image(src, alt string) *Block {
	attrs := map[string]string{AttrSrc: src}
	if alt != "" {
		attrs[AttrAlt] = alt
	}
	return &Block{Type: TypeImage, Attrs: attrs}
}

// Attr returns the attribute value for key, or "".
func (b *Block) Attr(key string) string {
	return b.Attrs[key]
}

// SetAttr sets or, for an empty value, removes an attribute.
func (b *Block) SetAttr(key, value string) {
	if value == "" {
		delete(b.Attrs, key)
		if len(b.Attrs) == 0 {
			b.Attrs = nil
		}
		return
	}
	if b.Attrs == nil {
		b.Attrs = map[string]string{}
	}
	b.Attrs[key] = value
}

// IsTextblock reports whether the block holds inline content.
func (b *Block) IsTextblock() bool {
	return IsTextblockType(b.Type)
}

// IsLeaf reports whether the block is a position-bearing leaf
// (a textblock or an atom).
func (b *Block) IsLeaf() bool {
	return b.IsTextblock() || b.IsAtom()
}

// IsAtom reports whether the block is a single-position leaf with no
// content: a horizontal rule or an image.
func (b *Block) IsAtom() bool {
	return b.Type == TypeHorizontalRule || b.Type == TypeImage
}

// IsList reports whether the block is a bullet or ordered list.
func (b *Block) IsList() bool {
	return b.Type == TypeBulletList || b.Type == TypeOrderedList
}

// Alignment returns the effective text alignment of a textblock.
func (b *Block) Alignment() string {
	if v := b.Attr(AttrTextAlign); v != "" {
		return v
	}
	return DefaultAlignment
}

// IsTextblockType reports whether t holds inline content.
func IsTextblockType(t NodeType) bool {
	return t == TypeParagraph || t == TypeHeading || t == TypeCodeBlock
}

// Document is the root of an editable rich-text tree.
type Document struct {
	Blocks []*Block
}

// New returns a document holding one empty paragraph.
func New() *Document {
	return &Document{Blocks: []*Block{Paragraph()}}
}

// FromBlocks builds a normalized document from top-level blocks.
func FromBlocks(blocks ...*Block) *Document {
	d := &Document{Blocks: blocks}
	d.Normalize()
	return d
}

// Clone returns a deep copy of the document.
func (d *Document) Clone() *Document {
	out := &Document{Blocks: make([]*Block, len(d.Blocks))}
	for i, b := range d.Blocks {
		out.Blocks[i] = b.Clone()
	}
	return out
}

// Clone returns a deep copy of the block.
func (b *Block) Clone() *Block {
	out := &Block{Type: b.Type, Attrs: cloneAttrs(b.Attrs)}
	if b.Inline != nil {
		out.Inline = CloneInline(b.Inline)
	}
	if b.Children != nil {
		out.Children = make([]*Block, len(b.Children))
		for i, c := range b.Children {
			out.Children[i] = c.Clone()
		}
	}
	return out
}

// CloneInline deep-copies inline content.
func CloneInline(in []Inline) []Inline {
	out := make([]Inline, len(in))
	for i, n := range in {
		out[i] = Inline{Type: n.Type, Text: n.Text, Attrs: cloneAttrs(n.Attrs), Marks: CloneMarks(n.Marks)}
	}
	return out
}

// CloneMarks deep-copies a mark set.
func CloneMarks(in []Mark) []Mark {
	if in == nil {
		return nil
	}
	out := make([]Mark, len(in))
	for i, m := range in {
		out[i] = Mark{Type: m.Type, Attrs: cloneAttrs(m.Attrs)}
	}
	return out
}

// Equal reports structural equality.
func (d *Document) Equal(o *Document) bool {
	if d == nil || o == nil {
		return d == o
	}
	return blocksEqual(d.Blocks, o.Blocks)
}

func blocksEqual(a, b []*Block) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Equal(b[i]) {
			return false
		}
	}
	return true
}

// Equal reports structural equality of two blocks.
func (b *Block) Equal(o *Block) bool {
	if b.Type != o.Type || !attrsEqual(b.Attrs, o.Attrs) {
		return false
	}
	if !InlineEqual(b.Inline, o.Inline) {
		return false
	}
	return blocksEqual(b.Children, o.Children)
}

// InlineEqual reports structural equality of inline content.
func InlineEqual(a, b []Inline) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Type != b[i].Type || a[i].Text != b[i].Text || !attrsEqual(a[i].Attrs, b[i].Attrs) {
			return false
		}
		if !MarksEqual(a[i].Marks, b[i].Marks) {
			return false
		}
	}
	return true
}

// MarksEqual compares two mark sets irrespective of order.
func MarksEqual(a, b []Mark) bool {
	if len(a) != len(b) {
		return false
	}
	for _, m := range a {
		found := false
		for _, o := range b {
			if m.Equal(o) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func attrsEqual(a, b map[string]string) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if ov, ok := b[k]; !ok || ov != v {
			return false
		}
	}
	return true
}

func cloneAttrs(in map[string]string) map[string]string {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]string, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

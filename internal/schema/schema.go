// Package schema is the registry of formatting kinds the editor
// supports: which are inline marks, which are block wrappers or
// attributes, how marks exclude each other, and which kinds each editor
// profile enables.
package schema

import (
	"fmt"
	"strings"

	"github.com/dgallion1/inkwell/internal/doctree"
)

// Kind identifies a toolbar-addressable formatting kind.
type Kind string

const (
	Bold           Kind = "bold"
	Italic         Kind = "italic"
	Underline      Kind = "underline"
	Strike         Kind = "strike"
	Code           Kind = "code"
	BulletList     Kind = "bulletList"
	OrderedList    Kind = "orderedList"
	Blockquote     Kind = "blockquote"
	CodeBlock      Kind = "codeBlock"
	HorizontalRule Kind = "horizontalRule"
	Link           Kind = "link"
	Image          Kind = "image"
	TextAlign      Kind = "textAlign"
	Color          Kind = "color"
	Highlight      Kind = "highlight"
	Subscript      Kind = "subscript"
	Superscript    Kind = "superscript"
	Heading        Kind = "heading"
)

// Category groups kinds by how they are applied.
type Category int

const (
	// CategoryMark kinds toggle an inline mark over the selection.
	CategoryMark Category = iota
	// CategoryAttrMark kinds set or unset an inline mark carrying a value.
	CategoryAttrMark
	// CategoryWrap kinds wrap or lift the selected blocks.
	CategoryWrap
	// CategoryBlockType kinds convert the selected textblocks.
	CategoryBlockType
	// CategoryBlockAttr kinds set an attribute on the selected textblocks.
	CategoryBlockAttr
	// CategoryInsert kinds insert a node; they have no inverse.
	CategoryInsert
)

func (c Category) String() string {
	switch c {
	case CategoryMark:
		return "mark"
	case CategoryAttrMark:
		return "attr-mark"
	case CategoryWrap:
		return "wrap"
	case CategoryBlockType:
		return "block-type"
	case CategoryBlockAttr:
		return "block-attr"
	case CategoryInsert:
		return "insert"
	}
	return "unknown"
}

// Def describes one kind.
type Def struct {
	Kind     Kind
	Category Category
	// Mark is the document mark a mark kind maps to.
	Mark doctree.MarkType
	// Node is the block or inline node a node kind maps to.
	Node doctree.NodeType
	// Excludes lists marks that cannot coexist with this one. Every
	// mark excludes itself.
	Excludes []doctree.MarkType
	// Inclusive marks extend to text typed at their end.
	Inclusive bool
	// Attr is the attribute a valued kind reads and writes.
	Attr string
}

var allMarks = []doctree.MarkType{
	doctree.MarkLink, doctree.MarkBold, doctree.MarkItalic, doctree.MarkUnderline,
	doctree.MarkStrike, doctree.MarkColor, doctree.MarkHighlight,
	doctree.MarkSubscript, doctree.MarkSuperscript,
}

var registry = []Def{
	{Kind: Bold, Category: CategoryMark, Mark: doctree.MarkBold, Inclusive: true},
	{Kind: Italic, Category: CategoryMark, Mark: doctree.MarkItalic, Inclusive: true},
	{Kind: Underline, Category: CategoryMark, Mark: doctree.MarkUnderline, Inclusive: true},
	{Kind: Strike, Category: CategoryMark, Mark: doctree.MarkStrike, Inclusive: true},
	{Kind: Code, Category: CategoryMark, Mark: doctree.MarkCode, Excludes: allMarks, Inclusive: true},
	{Kind: BulletList, Category: CategoryWrap, Node: doctree.TypeBulletList},
	{Kind: OrderedList, Category: CategoryWrap, Node: doctree.TypeOrderedList},
	{Kind: Blockquote, Category: CategoryWrap, Node: doctree.TypeBlockquote},
	{Kind: CodeBlock, Category: CategoryBlockType, Node: doctree.TypeCodeBlock, Attr: doctree.AttrLanguage},
	{Kind: HorizontalRule, Category: CategoryInsert, Node: doctree.TypeHorizontalRule},
	{Kind: Link, Category: CategoryAttrMark, Mark: doctree.MarkLink, Attr: doctree.AttrHref},
	{Kind: Image, Category: CategoryInsert, Node: doctree.TypeImage, Attr: doctree.AttrSrc},
	{Kind: TextAlign, Category: CategoryBlockAttr, Attr: doctree.AttrTextAlign},
	{Kind: Color, Category: CategoryAttrMark, Mark: doctree.MarkColor, Inclusive: true, Attr: doctree.AttrColor},
	{Kind: Highlight, Category: CategoryAttrMark, Mark: doctree.MarkHighlight, Inclusive: true, Attr: doctree.AttrColor},
	{Kind: Subscript, Category: CategoryMark, Mark: doctree.MarkSubscript, Excludes: []doctree.MarkType{doctree.MarkSuperscript}, Inclusive: true},
	{Kind: Superscript, Category: CategoryMark, Mark: doctree.MarkSuperscript, Excludes: []doctree.MarkType{doctree.MarkSubscript}, Inclusive: true},
	{Kind: Heading, Category: CategoryBlockType, Node: doctree.TypeHeading, Attr: doctree.AttrLevel},
}

// Alignments are the accepted text-align values.
var Alignments = []string{"left", "center", "right", "justify"}

// Kinds returns every registered kind in registry order.
func Kinds() []Kind {
	out := make([]Kind, len(registry))
	for i, s := range registry {
		out[i] = s.Kind
	}
	return out
}

// Lookup returns the definition of k.
func Lookup(k Kind) (Def, bool) {
	for _, s := range registry {
		if s.Kind == k {
			return s, true
		}
	}
	return Def{}, false
}

// ForMark returns the definition owning mark type t.
func ForMark(t doctree.MarkType) (Def, bool) {
	for _, s := range registry {
		if s.Mark == t && s.Mark != "" {
			return s, true
		}
	}
	return Def{}, false
}

// Excludes reports whether mark a excludes mark b.
func Excludes(a, b doctree.MarkType) bool {
	if a == b {
		return true
	}
	s, ok := ForMark(a)
	if !ok {
		return false
	}
	for _, x := range s.Excludes {
		if x == b {
			return true
		}
	}
	return false
}

// IsInclusive reports whether typing at the end of mark t extends it.
func IsInclusive(t doctree.MarkType) bool {
	s, ok := ForMark(t)
	return ok && s.Inclusive
}

// AddToSet adds m to set, dropping marks that m excludes. If a
// remaining mark excludes m the set is returned unchanged. The result is in canonical order and never aliases set.
func AddToSet(set []doctree.Mark, m doctree.Mark) []doctree.Mark {
	out := make([]doctree.Mark, 0, len(set)+1)
	for _, e := range set {
		if e.Equal(m) {
			return doctree.CloneMarks(set)
		}
		if Excludes(m.Type, e.Type) {
			continue
		}
		if Excludes(e.Type, m.Type) {
			return doctree.CloneMarks(set)
		}
		out = append(out, e)
	}
	out = append(out, doctree.CloneMarks([]doctree.Mark{m})...)
	doctree.SortMarks(out)
	return out
}

// RemoveFromSet drops every mark of type t.
func RemoveFromSet(set []doctree.Mark, t doctree.MarkType) []doctree.Mark {
	var out []doctree.Mark
	for _, e := range set {
		if e.Type != t {
			out = append(out, e)
		}
	}
	return out
}

// ValidAlignment reports whether v is an accepted text-align value.
func ValidAlignment(v string) bool {
	for _, a := range Alignments {
		if a == v {
			return true
		}
	}
	return false
}

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	k := Kind(s)
	if _, ok := Lookup(k); !ok {
		return "", fmt.Errorf("unknown formatting kind %q", s)
	}
	return k, nil
}

// Profile is a named subset of kinds an editor variant enables.
type Profile struct {
	Name  string
	kinds map[Kind]bool
}

// Enabled reports whether the profile supports k.
func (p Profile) Enabled(k Kind) bool {
	if p.kinds == nil {
		return true
	}
	return p.kinds[k]
}

// Kinds lists the enabled kinds in registry order.
func (p Profile) Kinds() []Kind {
	var out []Kind
	for _, k := range Kinds() {
		if p.Enabled(k) {
			out = append(out, k)
		}
	}
	return out
}

// Full enables every registered kind.
var Full = Profile{Name: "full"}

// Basic is the compact toolbar variant.
var Basic = NewProfile("basic",
	Bold, Italic, Strike, BulletList, OrderedList, Blockquote, Link, Image, TextAlign)

// NewProfile builds a profile enabling kinds.
func NewProfile(name string, kinds ...Kind) Profile {
	p := Profile{Name: name, kinds: make(map[Kind]bool, len(kinds))}
	for _, k := range kinds {
		p.kinds[k] = true
	}
	return p
}

// ProfileByName resolves "full" or "basic".
func ProfileByName(name string) (Profile, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "full":
		return Full, nil
	case "basic":
		return Basic, nil
	}
	return Profile{}, fmt.Errorf("unknown editor profile %q", name)
}

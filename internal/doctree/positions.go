package doctree

import (
	"strings"
	"unicode/utf8"
)

// Leaf is a position-bearing block (textblock or atom) with
// its container chain and its span in linear coordinates.
type Leaf struct {
	Block     *Block
	Ancestors []*Block // outermost first, excluding Block
	Start     int
	End       int
}

// Len is the number of positions the leaf spans.
func (l Leaf) Len() int { return l.End - l.Start }

// Nearest returns the innermost ancestor matching pred.
func (l Leaf) Nearest(pred func(*Block) bool) *Block {
	for i := len(l.Ancestors) - 1; i >= 0; i-- {
		if pred(l.Ancestors[i]) {
			return l.Ancestors[i]
		}
	}
	return nil
}

// Has reports whether any ancestor has type t.
func (l Leaf) Has(t NodeType) bool {
	return l.Nearest(func(b *Block) bool { return b.Type == t }) != nil
}

// BlockLen is the linear length of a leaf block.
func BlockLen(b *Block) int {
	if b.IsAtom() {
		return 1
	}
	return InlineLen(b.Inline)
}

// Leaves lists every leaf block in document order.
func (d *Document) Leaves() []Leaf {
	var out []Leaf
	pos := 0
	var walk func(blocks []*Block, anc []*Block)
	walk = func(blocks []*Block, anc []*Block) {
		for _, b := range blocks {
			if b.IsLeaf() {
				if len(out) > 0 {
					pos++
				}
				n := BlockLen(b)
				out = append(out, Leaf{
					Block:     b,
					Ancestors: append([]*Block(nil), anc...),
					Start:     pos,
					End:       pos + n,
				})
				pos += n
				continue
			}
			walk(b.Children, append(anc, b))
		}
	}
	walk(d.Blocks, nil)
	return out
}

// Size is the largest valid position in the document.
func (d *Document) Size() int {
	leaves := d.Leaves()
	if len(leaves) == 0 {
		return 0
	}
	return leaves[len(leaves)-1].End
}

// Clamp bounds pos to [0, Size].
func (d *Document) Clamp(pos int) int {
	if pos < 0 {
		return 0
	}
	if s := d.Size(); pos > s {
		return s
	}
	return pos
}

// Resolve maps a position to the index of its leaf and the offset
// within that leaf. Boundary positions between two leaves resolve to
// the end of the earlier one.
func Resolve(leaves []Leaf, pos int) (int, int) {
	if len(leaves) == 0 {
		return -1, 0
	}
	for i, l := range leaves {
		if pos <= l.End {
			if pos < l.Start {
				pos = l.Start
			}
			return i, pos - l.Start
		}
	}
	last := len(leaves) - 1
	return last, leaves[last].Len()
}

// Touched returns the indices of leaves overlapping [from, to]. A
// collapsed range touches the leaf holding the caret.
func Touched(leaves []Leaf, from, to int) []int {
	if from > to {
		from, to = to, from
	}
	a, _ := Resolve(leaves, from)
	if a < 0 {
		return nil
	}
	b, ob := Resolve(leaves, to)
	// A range ending at the very start of the next leaf does not touch it.
	if b > a && ob == 0 && leaves[b].Len() > 0 {
		b--
	}
	out := make([]int, 0, b-a+1)
	for i := a; i <= b; i++ {
		out = append(out, i)
	}
	return out
}

// TextBetween extracts text in [from, to). blockSep separates leaves,
// leafText stands in for inline atoms, rules and images.
func (d *Document) TextBetween(from, to int, blockSep, leafText string) string {
	if from > to {
		from, to = to, from
	}
	var sb strings.Builder
	first := true
	for _, l := range d.Leaves() {
		if l.End < from || l.Start > to {
			continue
		}
		if l.End == from && l.Len() > 0 && from != to {
			continue
		}
		if !first {
			sb.WriteString(blockSep)
		}
		first = false
		if l.Block.IsAtom() {
			sb.WriteString(leafText)
			continue
		}
		lo, hi := max(from-l.Start, 0), min(to-l.Start, l.Len())
		for _, n := range SliceInline(l.Block.Inline, lo, hi) {
			if n.Type == TypeText {
				sb.WriteString(n.Text)
			} else {
				sb.WriteString(leafText)
			}
		}
	}
	return sb.String()
}

// PlainText is the editor's text extraction: textblocks joined by a
// blank line, hard breaks as newlines, images and rules omitted.
func (d *Document) PlainText() string {
	var parts []string
	for _, l := range d.Leaves() {
		if !l.Block.IsTextblock() {
			continue
		}
		var sb strings.Builder
		for _, n := range l.Block.Inline {
			switch n.Type {
			case TypeText:
				sb.WriteString(n.Text)
			case TypeHardBreak:
				sb.WriteByte('\n')
			}
		}
		parts = append(parts, sb.String())
	}
	return strings.Join(parts, "\n\n")
}

// CharCount counts characters the way the editor's budget does: every
// rune, atom and block boundary counts as one.
func (d *Document) CharCount() int {
	return utf8.RuneCountInString(d.TextBetween(0, d.Size(), " ", " "))
}

// IsEmpty reports whether the document is a single empty paragraph.
func (d *Document) IsEmpty() bool {
	return len(d.Blocks) == 1 && d.Blocks[0].Type == TypeParagraph && len(d.Blocks[0].Inline) == 0
}

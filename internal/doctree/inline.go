package doctree

import (
	"sort"
	"unicode/utf8"
)

// MarkOrder is the canonical rank of marks; it fixes the order marks
// are stored in and the nesting order used by renderers.
var MarkOrder = []MarkType{
	MarkLink,
	MarkBold,
	MarkItalic,
	MarkUnderline,
	MarkStrike,
	MarkCode,
	MarkColor,
	MarkHighlight,
	MarkSubscript,
	MarkSuperscript,
}

// MarkRank returns t's position in MarkOrder, or len(MarkOrder).
func MarkRank(t MarkType) int {
	for i, m := range MarkOrder {
		if m == t {
			return i
		}
	}
	return len(MarkOrder)
}

// SortMarks orders a mark set by rank in place.
func SortMarks(ms []Mark) {
	sort.SliceStable(ms, func(i, j int) bool {
		return MarkRank(ms[i].Type) < MarkRank(ms[j].Type)
	})
}

// InlineLen sums the linear length of inline content.
func InlineLen(in []Inline) int {
	n := 0
	for _, c := range in {
		n += c.Len()
	}
	return n
}

// SliceInline copies the content between offsets lo and hi.
func SliceInline(in []Inline, lo, hi int) []Inline {
	if lo < 0 {
		lo = 0
	}
	if hi <= lo {
		return nil
	}
	var out []Inline
	pos := 0
	for _, n := range in {
		l := n.Len()
		s, e := pos, pos+l
		pos = e
		if e <= lo || s >= hi {
			continue
		}
		if n.Type != TypeText {
			out = append(out, CloneInline([]Inline{n})...)
			continue
		}
		a, b := max(lo-s, 0), min(hi-s, l)
		c := CloneInline([]Inline{n})[0]
		c.Text = runeSlice(n.Text, a, b)
		out = append(out, c)
	}
	return out
}

// SplitInline divides content at offset.
func SplitInline(in []Inline, offset int) ([]Inline, []Inline) {
	total := InlineLen(in)
	return SliceInline(in, 0, offset), SliceInline(in, offset, total)
}

// Splice replaces [lo, hi) with repl.
func Splice(in []Inline, lo, hi int, repl []Inline) []Inline {
	head := SliceInline(in, 0, lo)
	tail := SliceInline(in, hi, InlineLen(in))
	out := make([]Inline, 0, len(head)+len(repl)+len(tail))
	out = append(out, head...)
	out = append(out, CloneInline(repl)...)
	out = append(out, tail...)
	return NormalizeInline(out)
}

// MapMarks rewrites the mark set of every text run in [lo, hi).
func MapMarks(in []Inline, lo, hi int, fn func([]Mark) []Mark) []Inline {
	total := InlineLen(in)
	lo, hi = max(lo, 0), min(hi, total)
	if hi <= lo {
		return in
	}
	mid := SliceInline(in, lo, hi)
	for i := range mid {
		if mid[i].Type == TypeText {
			mid[i].Marks = fn(mid[i].Marks)
		}
	}
	out := SliceInline(in, 0, lo)
	out = append(out, mid...)
	out = append(out, SliceInline(in, hi, total)...)
	return NormalizeInline(out)
}

// NormalizeInline drops empty runs, merges adjacent runs with equal
// marks and puts every mark set in canonical order.
func NormalizeInline(in []Inline) []Inline {
	var out []Inline
	for _, n := range in {
		if n.Type == TypeText {
			if n.Text == "" {
				continue
			}
			if len(n.Marks) == 0 {
				n.Marks = nil
			} else {
				SortMarks(n.Marks)
			}
			if k := len(out) - 1; k >= 0 && out[k].Type == TypeText && MarksEqual(out[k].Marks, n.Marks) {
				out[k].Text += n.Text
				continue
			}
		}
		out = append(out, n)
	}
	return out
}

// MarksAt returns the marks of the run containing the rune before
// offset, falling back to the run after it. Atoms contribute nothing.
func MarksAt(in []Inline, offset int) ([]Mark, []Mark) {
	var before, after []Mark
	pos := 0
	for _, n := range in {
		s, e := pos, pos+n.Len()
		pos = e
		if n.Type != TypeText {
			if s < offset && e >= offset {
				before = nil
			}
			continue
		}
		if s < offset && e >= offset {
			before = n.Marks
		}
		if s <= offset && e > offset && after == nil {
			after = n.Marks
		}
	}
	return before, after
}

// StripForCode removes marks and atoms for code block content; hard
// breaks become newlines.
func StripForCode(in []Inline) []Inline {
	var out []Inline
	for _, n := range in {
		switch n.Type {
		case TypeText:
			out = append(out, Inline{Type: TypeText, Text: n.Text})
		case TypeHardBreak:
			out = append(out, Inline{Type: TypeText, Text: "\n"})
		}
	}
	return NormalizeInline(out)
}

func runeSlice(s string, a, b int) string {
	if a == 0 && b >= utf8.RuneCountInString(s) {
		return s
	}
	r := []rune(s)
	return string(r[a:b])
}

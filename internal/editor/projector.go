package editor

import (
	"strconv"

	"github.com/dgallion1/inkwell/internal/doctree"
	"github.com/dgallion1/inkwell/internal/schema"
)

// Snapshot is the active formatting for a selection: what the toolbar
// highlights and which values its pickers show.
type Snapshot struct {
	Active       map[schema.Kind]bool `json:"active"`
	TextAlign    string               `json:"textAlign"`
	HeadingLevel int                  `json:"headingLevel,omitempty"`
	Link         string               `json:"link,omitempty"`
	Color        string               `json:"color,omitempty"`
	Highlight    string               `json:"highlight,omitempty"`
	CodeLanguage string               `json:"codeLanguage,omitempty"`
}

// IsActive reports whether k is active.
func (s Snapshot) IsActive(k schema.Kind) bool { return s.Active[k] }

// Project computes the active formatting of sel in d. A mark is active
// only when it covers every character of a ranged selection; a
// collapsed selection reports the marks at the caret.
func Project(d *doctree.Document, sel Selection) Snapshot {
	return project(d, sel, nil, false)
}

func project(d *doctree.Document, sel Selection, stored []doctree.Mark, storedSet bool) Snapshot {
	sel = sel.clamp(d)
	snap := Snapshot{Active: make(map[schema.Kind]bool, len(schema.Kinds()))}
	for _, k := range schema.Kinds() {
		snap.Active[k] = false
	}
	leaves := d.Leaves()
	from, to := sel.From(), sel.To()

	// inline marks
	var marks []doctree.Mark
	var runs [][]doctree.Mark
	if sel.Empty() {
		if storedSet {
			marks = stored
		} else if li, off := doctree.Resolve(leaves, from); li >= 0 && leaves[li].Block.IsTextblock() {
			marks = caretMarks(leaves[li].Block.Inline, off)
		}
		runs = [][]doctree.Mark{marks}
	} else {
		runs = textRuns(leaves, from, to)
	}
	for _, k := range schema.Kinds() {
		def, _ := schema.Lookup(k)
		if def.Mark == "" {
			continue
		}
		val, ok := commonMark(runs, def.Mark, def.Attr)
		snap.Active[k] = ok
		switch k {
		case schema.Link:
			snap.Link = val
		case schema.Color:
			snap.Color = val
		case schema.Highlight:
			snap.Highlight = val
		}
	}

	// block kinds
	touched := doctree.Touched(leaves, from, to)
	all := func(pred func(doctree.Leaf) bool) bool {
		if len(touched) == 0 {
			return false
		}
		for _, i := range touched {
			if !pred(leaves[i]) {
				return false
			}
		}
		return true
	}
	snap.Active[schema.BulletList] = all(func(l doctree.Leaf) bool { return l.Has(doctree.TypeBulletList) })
	snap.Active[schema.OrderedList] = all(func(l doctree.Leaf) bool { return l.Has(doctree.TypeOrderedList) })
	snap.Active[schema.Blockquote] = all(func(l doctree.Leaf) bool { return l.Has(doctree.TypeBlockquote) })
	snap.Active[schema.CodeBlock] = all(func(l doctree.Leaf) bool { return l.Block.Type == doctree.TypeCodeBlock })
	snap.Active[schema.Heading] = all(func(l doctree.Leaf) bool { return l.Block.Type == doctree.TypeHeading })
	snap.Active[schema.HorizontalRule] = !sel.Empty() && all(func(l doctree.Leaf) bool { return l.Block.Type == doctree.TypeHorizontalRule })
	snap.Active[schema.Image] = !sel.Empty() && all(func(l doctree.Leaf) bool { return l.Block.Type == doctree.TypeImage })

	if snap.Active[schema.Heading] {
		snap.HeadingLevel = commonInt(leaves, touched, doctree.AttrLevel)
	}
	if snap.Active[schema.CodeBlock] {
		snap.CodeLanguage = commonAttr(leaves, touched, doctree.AttrLanguage)
	}
	snap.TextAlign = alignment(leaves, touched)
	snap.Active[schema.TextAlign] = snap.TextAlign != doctree.DefaultAlignment && snap.TextAlign != ""
	return snap
}

// caretMarks returns the marks a collapsed caret at offset carries.
// Inside a text run that is the run's marks; on a run boundary it is
// the marks before the caret (or after it at the block start), minus
// non-inclusive marks that do not continue past the caret.
func caretMarks(in []doctree.Inline, offset int) []doctree.Mark {
	var before, after *doctree.Inline
	pos := 0
	for i := range in {
		s, e := pos, pos+in[i].Len()
		pos = e
		if offset > s && offset < e && in[i].Type == doctree.TypeText {
			return in[i].Marks
		}
		if e == offset {
			before = &in[i]
		}
		if s == offset && after == nil {
			after = &in[i]
		}
	}
	main, other := before, after
	if main == nil {
		main, other = after, nil
	}
	if main == nil || main.Type != doctree.TypeText {
		return nil
	}
	var out []doctree.Mark
	for _, m := range main.Marks {
		if !schema.IsInclusive(m.Type) && (other == nil || !hasEqualMark(other.Marks, m)) {
			continue
		}
		out = append(out, m)
	}
	return out
}

func hasEqualMark(set []doctree.Mark, m doctree.Mark) bool {
	for _, e := range set {
		if e.Equal(m) {
			return true
		}
	}
	return false
}

// textRuns collects the mark sets of every text run in [from, to).
func textRuns(leaves []doctree.Leaf, from, to int) [][]doctree.Mark {
	var out [][]doctree.Mark
	for _, l := range leaves {
		if !l.Block.IsTextblock() || l.End < from || l.Start >= to {
			continue
		}
		lo, hi := max(from-l.Start, 0), min(to-l.Start, l.Len())
		for _, n := range doctree.SliceInline(l.Block.Inline, lo, hi) {
			if n.Type == doctree.TypeText {
				out = append(out, n.Marks)
			}
		}
	}
	return out
}

// commonMark reports whether every run carries mark t and, if so, the
// attribute value they share ("" when it differs).
func commonMark(runs [][]doctree.Mark, t doctree.MarkType, attr string) (string, bool) {
	if len(runs) == 0 {
		return "", false
	}
	val, first := "", true
	for _, set := range runs {
		var found *doctree.Mark
		for i := range set {
			if set[i].Type == t {
				found = &set[i]
				break
			}
		}
		if found == nil {
			return "", false
		}
		v := ""
		if attr != "" {
			v = found.Attr(attr)
		}
		if first {
			val, first = v, false
		} else if v != val {
			val = ""
		}
	}
	return val, true
}

func commonAttr(leaves []doctree.Leaf, touched []int, key string) string {
	val := ""
	for n, i := range touched {
		v := leaves[i].Block.Attr(key)
		if n == 0 {
			val = v
		} else if v != val {
			return ""
		}
	}
	return val
}

func commonInt(leaves []doctree.Leaf, touched []int, key string) int {
	v, err := strconv.Atoi(commonAttr(leaves, touched, key))
	if err != nil {
		return 0
	}
	return v
}

// alignment is the alignment shared by the touched paragraphs and
// headings, or "" when they disagree.
func alignment(leaves []doctree.Leaf, touched []int) string {
	val := ""
	for _, i := range touched {
		b := leaves[i].Block
		if b.Type != doctree.TypeParagraph && b.Type != doctree.TypeHeading {
			continue
		}
		a := b.Alignment()
		if val == "" {
			val = a
		} else if a != val {
			return ""
		}
	}
	if val == "" {
		return doctree.DefaultAlignment
	}
	return val
}

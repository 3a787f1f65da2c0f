package editor

import (
	"strconv"
	"strings"

	"github.com/dgallion1/inkwell/internal/doctree"
	"github.com/dgallion1/inkwell/internal/schema"
)

// tx is one in-progress edit: a private copy of the document, the
// selection and the stored marks. Nothing is visible to the session
// until the transaction is committed.
type tx struct {
	doc       *doctree.Document
	sel       Selection
	stored    []doctree.Mark
	storedSet bool

	codeLanguage string
}

func (t *tx) setStored(marks []doctree.Mark) {
	t.stored, t.storedSet = marks, true
}

func (t *tx) clearStored() {
	t.stored, t.storedSet = nil, false
}

// posOf maps an offset inside leaf b back to a linear position.
func (t *tx) posOf(b *doctree.Block, off int) int {
	for _, l := range t.doc.Leaves() {
		if l.Block == b {
			return l.Start + min(max(off, 0), l.Len())
		}
	}
	return t.doc.Clamp(off)
}

func (t *tx) caretAt(b *doctree.Block, off int) {
	t.sel = Caret(t.posOf(b, off))
}

// keepSelection runs fn and maps the selection through it by leaf
// identity, which every structural transform preserves.
func (t *tx) keepSelection(fn func()) {
	leaves := t.doc.Leaves()
	ai, ao := doctree.Resolve(leaves, t.sel.Anchor)
	hi, ho := doctree.Resolve(leaves, t.sel.Head)
	ab, hb := leaves[ai].Block, leaves[hi].Block
	fn()
	t.doc.Normalize()
	t.sel = Selection{Anchor: t.posOf(ab, ao), Head: t.posOf(hb, ho)}
}

// siblings returns the child slice of parent; nil means the document.
func (t *tx) siblings(parent *doctree.Block) *[]*doctree.Block {
	if parent == nil {
		return &t.doc.Blocks
	}
	return &parent.Children
}

// locate finds target's parent (nil for top level) and index.
func (t *tx) locate(target *doctree.Block) (*doctree.Block, int, bool) {
	var find func(parent *doctree.Block, blocks []*doctree.Block) (*doctree.Block, int, bool)
	find = func(parent *doctree.Block, blocks []*doctree.Block) (*doctree.Block, int, bool) {
		for i, b := range blocks {
			if b == target {
				return parent, i, true
			}
			if p, j, ok := find(b, b.Children); ok {
				return p, j, ok
			}
		}
		return nil, 0, false
	}
	return find(nil, t.doc.Blocks)
}

func splice(blocks []*doctree.Block, lo, hi int, repl ...*doctree.Block) []*doctree.Block {
	out := make([]*doctree.Block, 0, len(blocks)-(hi-lo)+len(repl))
	out = append(out, blocks[:lo]...)
	out = append(out, repl...)
	return append(out, blocks[hi:]...)
}

func (t *tx) insertAfter(ref *doctree.Block, bs ...*doctree.Block) {
	parent, i, ok := t.locate(ref)
	if !ok {
		return
	}
	sibs := t.siblings(parent)
	*sibs = splice(*sibs, i+1, i+1, bs...)
}

func (t *tx) insertBefore(ref *doctree.Block, bs ...*doctree.Block) {
	parent, i, ok := t.locate(ref)
	if !ok {
		return
	}
	sibs := t.siblings(parent)
	*sibs = splice(*sibs, i, i, bs...)
}

func (t *tx) replaceBlock(ref *doctree.Block, bs ...*doctree.Block) {
	parent, i, ok := t.locate(ref)
	if !ok {
		return
	}
	sibs := t.siblings(parent)
	*sibs = splice(*sibs, i, i+1, bs...)
}

func removeBlocks(blocks []*doctree.Block, drop map[*doctree.Block]bool) []*doctree.Block {
	out := make([]*doctree.Block, 0, len(blocks))
	for _, b := range blocks {
		if drop[b] {
			continue
		}
		if !b.IsLeaf() {
			b.Children = removeBlocks(b.Children, drop)
		}
		out = append(out, b)
	}
	return out
}

// replace swaps [from, to) for inline content and returns the leaf and
// offset just after the inserted content. Across leaves, the first
// leaf's head joins the last leaf's tail and everything between goes.
func (t *tx) replace(from, to int, content []doctree.Inline) (*doctree.Block, int) {
	leaves := t.doc.Leaves()
	ai, ao := doctree.Resolve(leaves, from)
	bi, bo := doctree.Resolve(leaves, to)
	a, b := leaves[ai].Block, leaves[bi].Block

	if ai == bi {
		if a.IsAtom() {
			if from == to {
				if len(content) == 0 {
					return a, ao
				}
				p := doctree.Paragraph(doctree.NormalizeInline(doctree.CloneInline(content))...)
				if ao == 0 {
					t.insertBefore(a, p)
				} else {
					t.insertAfter(a, p)
				}
				return p, doctree.InlineLen(p.Inline)
			}
			a.Type, a.Attrs = doctree.TypeParagraph, nil
			a.Inline = doctree.NormalizeInline(doctree.CloneInline(content))
			return a, doctree.InlineLen(a.Inline)
		}
		if a.Type == doctree.TypeCodeBlock {
			content = doctree.StripForCode(content)
		}
		a.Inline = doctree.Splice(a.Inline, ao, bo, content)
		return a, ao + doctree.InlineLen(content)
	}

	drop := make(map[*doctree.Block]bool, bi-ai)
	for i := ai + 1; i <= bi; i++ {
		drop[leaves[i].Block] = true
	}
	target := a
	var head, tail []doctree.Inline
	switch {
	case a.IsAtom() && b.IsTextblock():
		drop[a] = true
		delete(drop, b)
		target = b
		tail = doctree.SliceInline(b.Inline, bo, doctree.InlineLen(b.Inline))
	case a.IsAtom():
		a.Type, a.Attrs = doctree.TypeParagraph, nil
	default:
		head = doctree.SliceInline(a.Inline, 0, ao)
		if b.IsTextblock() {
			tail = doctree.SliceInline(b.Inline, bo, doctree.InlineLen(b.Inline))
		}
	}
	content = doctree.CloneInline(content)
	if target.Type == doctree.TypeCodeBlock {
		content = doctree.StripForCode(content)
		tail = doctree.StripForCode(tail)
	}
	joined := make([]doctree.Inline, 0, len(head)+len(content)+len(tail))
	joined = append(joined, head...)
	joined = append(joined, content...)
	joined = append(joined, tail...)
	target.Inline = doctree.NormalizeInline(joined)

	t.doc.Blocks = removeBlocks(t.doc.Blocks, drop)
	t.doc.Normalize()
	return target, doctree.InlineLen(head) + doctree.InlineLen(content)
}

func (t *tx) deleteSelection() {
	if t.sel.Empty() {
		return
	}
	b, off := t.replace(t.sel.From(), t.sel.To(), nil)
	t.caretAt(b, off)
}

// currentMarks are the marks new text would receive.
func (t *tx) currentMarks() []doctree.Mark {
	if t.storedSet {
		return t.stored
	}
	leaves := t.doc.Leaves()
	from := t.sel.From()
	li, off := doctree.Resolve(leaves, from)
	l := leaves[li]
	if !l.Block.IsTextblock() {
		return nil
	}
	if !t.sel.Empty() {
		hi := min(t.sel.To()-l.Start, l.Len())
		for _, n := range doctree.SliceInline(l.Block.Inline, off, hi) {
			if n.Type == doctree.TypeText {
				return n.Marks
			}
		}
	}
	return caretMarks(l.Block.Inline, off)
}

func textContent(s string, marks []doctree.Mark) []doctree.Inline {
	var out []doctree.Inline
	for i, line := range strings.Split(s, "\n") {
		if i > 0 {
			out = append(out, doctree.HardBreak())
		}
		if line != "" {
			out = append(out, doctree.Inline{Type: doctree.TypeText, Text: line, Marks: doctree.CloneMarks(marks)})
		}
	}
	return out
}

func (t *tx) insertText(s string) error {
	if s == "" {
		return engineErr(ActionInsertText, "empty text")
	}
	marks := t.currentMarks()
	leaves := t.doc.Leaves()
	li, _ := doctree.Resolve(leaves, t.sel.From())
	var content []doctree.Inline
	if leaves[li].Block.Type == doctree.TypeCodeBlock {
		content = []doctree.Inline{doctree.Text(s)}
	} else {
		content = textContent(s, marks)
	}
	b, off := t.replace(t.sel.From(), t.sel.To(), content)
	t.caretAt(b, off)
	t.clearStored()
	return nil
}

func (t *tx) insertHardBreak() error {
	leaves := t.doc.Leaves()
	li, _ := doctree.Resolve(leaves, t.sel.From())
	if leaves[li].Block.Type == doctree.TypeCodeBlock {
		return t.insertText("\n")
	}
	b, off := t.replace(t.sel.From(), t.sel.To(), []doctree.Inline{doctree.HardBreak()})
	t.caretAt(b, off)
	return nil
}

func parentOf(l doctree.Leaf) *doctree.Block {
	if len(l.Ancestors) == 0 {
		return nil
	}
	return l.Ancestors[len(l.Ancestors)-1]
}

func (t *tx) deleteBackward() error {
	if !t.sel.Empty() {
		t.deleteSelection()
		return nil
	}
	pos := t.sel.Head
	leaves := t.doc.Leaves()
	li, off := doctree.Resolve(leaves, pos)
	l := leaves[li]
	if off > 0 {
		b, o := t.replace(pos-1, pos, nil)
		t.caretAt(b, o)
		return nil
	}
	if item := parentOf(l); item != nil && item.Type == doctree.TypeListItem && item.Children[0] == l.Block {
		t.keepSelection(func() { t.liftItem(item) })
		return nil
	}
	if li == 0 {
		if l.Block.IsTextblock() && l.Block.Type != doctree.TypeParagraph {
			t.keepSelection(func() { setBlockType(l.Block, doctree.TypeParagraph, nil) })
			return nil
		}
		return engineErr(ActionDeleteBackward, "at start of document")
	}
	b, o := t.replace(pos-1, pos, nil)
	t.caretAt(b, o)
	return nil
}

func (t *tx) deleteForward() error {
	if !t.sel.Empty() {
		t.deleteSelection()
		return nil
	}
	pos := t.sel.Head
	leaves := t.doc.Leaves()
	li, off := doctree.Resolve(leaves, pos)
	if off == leaves[li].Len() && li == len(leaves)-1 {
		return engineErr(ActionDeleteForward, "at end of document")
	}
	b, o := t.replace(pos, pos+1, nil)
	t.caretAt(b, o)
	return nil
}

// splitType is the block that continues after splitting b. Headings
// split at their end continue as paragraphs.
func splitType(b *doctree.Block, atEnd bool) *doctree.Block {
	nb := &doctree.Block{Type: b.Type}
	if b.Type == doctree.TypeHeading && atEnd {
		nb.Type = doctree.TypeParagraph
		nb.SetAttr(doctree.AttrTextAlign, b.Attr(doctree.AttrTextAlign))
		return nb
	}
	for k, v := range b.Attrs {
		nb.SetAttr(k, v)
	}
	return nb
}

func (t *tx) splitBlock() error {
	t.deleteSelection()
	leaves := t.doc.Leaves()
	li, off := doctree.Resolve(leaves, t.sel.Head)
	l := leaves[li]
	b := l.Block

	switch b.Type {
	case doctree.TypeHorizontalRule, doctree.TypeImage:
		p := doctree.Paragraph()
		t.insertAfter(b, p)
		t.caretAt(p, 0)
		return nil
	case doctree.TypeCodeBlock:
		return t.insertText("\n")
	}

	if item := parentOf(l); item != nil && item.Type == doctree.TypeListItem {
		idx := 0
		for i, c := range item.Children {
			if c == b {
				idx = i
			}
		}
		if len(b.Inline) == 0 && idx == 0 {
			t.keepSelection(func() { t.liftItem(item) })
			return nil
		}
		head, tail := doctree.SplitInline(b.Inline, off)
		np := splitType(b, len(tail) == 0)
		b.Inline, np.Inline = head, tail
		rest := append([]*doctree.Block{np}, item.Children[idx+1:]...)
		item.Children = item.Children[:idx+1]
		t.insertAfter(item, &doctree.Block{Type: doctree.TypeListItem, Children: rest})
		t.doc.Normalize()
		t.caretAt(np, 0)
		return nil
	}

	head, tail := doctree.SplitInline(b.Inline, off)
	nb := splitType(b, len(tail) == 0)
	b.Inline, nb.Inline = head, tail
	t.insertAfter(b, nb)
	t.doc.Normalize()
	t.caretAt(nb, 0)
	return nil
}

// touched returns the leaves the selection covers.
func (t *tx) touched() []doctree.Leaf {
	leaves := t.doc.Leaves()
	var out []doctree.Leaf
	for _, i := range doctree.Touched(leaves, t.sel.From(), t.sel.To()) {
		out = append(out, leaves[i])
	}
	return out
}

func isList(b *doctree.Block) bool { return b.IsList() }

func isItem(b *doctree.Block) bool { return b.Type == doctree.TypeListItem }

func isQuote(b *doctree.Block) bool { return b.Type == doctree.TypeBlockquote }

// blockRange finds the container and the span of its children holding
// the given leaves. Lists are never containers, and a list item is
// skipped when the range would start at its leading paragraph.
func blockRange(leaves []doctree.Leaf) (*doctree.Block, int, int, bool) {
	first, last := leaves[0], leaves[len(leaves)-1]
	n := 0
	for n < len(first.Ancestors) && n < len(last.Ancestors) && first.Ancestors[n] == last.Ancestors[n] {
		n++
	}
	childAt := func(l doctree.Leaf, d int) *doctree.Block {
		if d < len(l.Ancestors) {
			return l.Ancestors[d]
		}
		return l.Block
	}
	indexIn := func(blocks []*doctree.Block, b *doctree.Block) int {
		for i, c := range blocks {
			if c == b {
				return i
			}
		}
		return -1
	}
	for d := n; d >= 0; d-- {
		var c *doctree.Block
		children := []*doctree.Block(nil)
		if d > 0 {
			c = first.Ancestors[d-1]
			if c.Type != doctree.TypeBlockquote && c.Type != doctree.TypeListItem {
				continue
			}
			children = c.Children
		}
		i := indexIn(children, childAt(first, d))
		j := indexIn(children, childAt(last, d))
		if c != nil && c.Type == doctree.TypeListItem && i == 0 {
			continue
		}
		return c, i, j, true
	}
	return nil, 0, 0, false
}

// wrap replaces the span of blocks covering the selection with the
// result of build.
func (t *tx) wrap(build func(children []*doctree.Block) *doctree.Block) bool {
	leaves := t.touched()
	if len(leaves) == 0 {
		return false
	}
	c, i, j, ok := blockRange(leaves)
	if !ok {
		return false
	}
	sibs := t.siblings(c)
	if c == nil {
		i, j = topIndex(t.doc.Blocks, leaves[0]), topIndex(t.doc.Blocks, leaves[len(leaves)-1])
	}
	if i < 0 || j < i {
		return false
	}
	span := append([]*doctree.Block(nil), (*sibs)[i:j+1]...)
	*sibs = splice(*sibs, i, j+1, build(span))
	return true
}

func topIndex(blocks []*doctree.Block, l doctree.Leaf) int {
	top := l.Block
	if len(l.Ancestors) > 0 {
		top = l.Ancestors[0]
	}
	for i, b := range blocks {
		if b == top {
			return i
		}
	}
	return -1
}

// liftItem moves a list item out of its list. Items of a top-level list
// become plain blocks; items of a nested list move to the outer list,
// taking their following siblings along as a nested list.
func (t *tx) liftItem(item *doctree.Block) {
	list, li, ok := t.locate(item)
	if !ok || list == nil || !list.IsList() {
		return
	}
	container, ci, _ := t.locate(list)
	before := append([]*doctree.Block(nil), list.Children[:li]...)
	after := append([]*doctree.Block(nil), list.Children[li+1:]...)
	remnant := func(children []*doctree.Block) *doctree.Block {
		nl := &doctree.Block{Type: list.Type, Children: children}
		for k, v := range list.Attrs {
			nl.SetAttr(k, v)
		}
		return nl
	}

	if container != nil && container.Type == doctree.TypeListItem {
		outer, oi, ok := t.locate(container)
		if !ok {
			return
		}
		var keep []*doctree.Block
		if len(before) > 0 {
			keep = append(keep, remnant(before))
		}
		container.Children = splice(container.Children, ci, ci+1, keep...)
		if len(after) > 0 {
			item.Children = append(item.Children, remnant(after))
		}
		outer.Children = splice(outer.Children, oi+1, oi+1, item)
		return
	}

	var repl []*doctree.Block
	if len(before) > 0 {
		repl = append(repl, remnant(before))
	}
	repl = append(repl, item.Children...)
	if len(after) > 0 {
		rest := remnant(after)
		if list.Type == doctree.TypeOrderedList {
			start := 1
			if v, err := strconv.Atoi(list.Attr(doctree.AttrStart)); err == nil {
				start = v
			}
			rest.SetAttr(doctree.AttrStart, strconv.Itoa(start+li+1))
			if start+li+1 == 1 {
				rest.SetAttr(doctree.AttrStart, "")
			}
		}
		repl = append(repl, rest)
	}
	sibs := t.siblings(container)
	*sibs = splice(*sibs, ci, ci+1, repl...)
}

func (t *tx) toggleList(listType doctree.NodeType) error {
	leaves := t.touched()
	allSame, allInList := true, true
	for _, l := range leaves {
		nl := l.Nearest(isList)
		if nl == nil {
			allSame, allInList = false, false
			break
		}
		if nl.Type != listType {
			allSame = false
		}
	}
	switch {
	case allSame:
		var items []*doctree.Block
		seen := map[*doctree.Block]bool{}
		for _, l := range leaves {
			if it := l.Nearest(isItem); it != nil && !seen[it] {
				seen[it] = true
				items = append(items, it)
			}
		}
		t.keepSelection(func() {
			for _, it := range items {
				t.liftItem(it)
			}
		})
	case allInList:
		t.keepSelection(func() {
			for _, l := range leaves {
				nl := l.Nearest(isList)
				nl.Type = listType
				if listType == doctree.TypeBulletList {
					nl.SetAttr(doctree.AttrStart, "")
				}
			}
		})
	default:
		var ok bool
		t.keepSelection(func() {
			ok = t.wrap(func(span []*doctree.Block) *doctree.Block {
				nl := &doctree.Block{Type: listType}
				for _, b := range span {
					if b.IsList() {
						nl.Children = append(nl.Children, b.Children...)
						continue
					}
					nl.Children = append(nl.Children, &doctree.Block{Type: doctree.TypeListItem, Children: []*doctree.Block{b}})
				}
				return nl
			})
		})
		if !ok {
			return engineErr(ActionToggleMark, "cannot wrap selection in %s", listType)
		}
	}
	return nil
}

func (t *tx) toggleBlockquote() error {
	leaves := t.touched()
	all := len(leaves) > 0
	for _, l := range leaves {
		if !l.Has(doctree.TypeBlockquote) {
			all = false
			break
		}
	}
	if all {
		var quotes []*doctree.Block
		seen := map[*doctree.Block]bool{}
		for _, l := range leaves {
			if q := l.Nearest(isQuote); !seen[q] {
				seen[q] = true
				quotes = append(quotes, q)
			}
		}
		t.keepSelection(func() {
			for _, q := range quotes {
				t.replaceBlock(q, q.Children...)
			}
		})
		return nil
	}
	var ok bool
	t.keepSelection(func() {
		ok = t.wrap(func(span []*doctree.Block) *doctree.Block {
			return &doctree.Block{Type: doctree.TypeBlockquote, Children: span}
		})
	})
	if !ok {
		return engineErr(ActionToggleMark, "cannot wrap selection in blockquote")
	}
	return nil
}

// setBlockType converts a textblock in place, keeping alignment where
// the new type supports it.
func setBlockType(b *doctree.Block, nt doctree.NodeType, attrs map[string]string) {
	align := b.Attr(doctree.AttrTextAlign)
	b.Type, b.Attrs = nt, nil
	for k, v := range attrs {
		b.SetAttr(k, v)
	}
	if nt == doctree.TypeCodeBlock {
		b.Inline = doctree.StripForCode(b.Inline)
		return
	}
	b.SetAttr(doctree.AttrTextAlign, align)
}

func textblocks(leaves []doctree.Leaf) []*doctree.Block {
	var out []*doctree.Block
	for _, l := range leaves {
		if l.Block.IsTextblock() {
			out = append(out, l.Block)
		}
	}
	return out
}

func (t *tx) toggleCodeBlock() error {
	blocks := textblocks(t.touched())
	if len(blocks) == 0 {
		return engineErr(ActionToggleMark, "no textblock in selection")
	}
	all := true
	for _, b := range blocks {
		if b.Type != doctree.TypeCodeBlock {
			all = false
		}
	}
	t.keepSelection(func() {
		for _, b := range blocks {
			switch {
			case all:
				setBlockType(b, doctree.TypeParagraph, nil)
			case b.Type != doctree.TypeCodeBlock:
				setBlockType(b, doctree.TypeCodeBlock, map[string]string{doctree.AttrLanguage: t.codeLanguage})
			}
		}
	})
	return nil
}

func (t *tx) toggleHeading(level int) error {
	if level < 1 || level > 6 {
		return engineErr(ActionToggleHeading, "invalid heading level %d", level)
	}
	blocks := textblocks(t.touched())
	if len(blocks) == 0 {
		return engineErr(ActionToggleHeading, "no textblock in selection")
	}
	lv := strconv.Itoa(level)
	all := true
	for _, b := range blocks {
		if b.Type != doctree.TypeHeading || b.Attr(doctree.AttrLevel) != lv {
			all = false
		}
	}
	t.keepSelection(func() {
		for _, b := range blocks {
			if all {
				setBlockType(b, doctree.TypeParagraph, nil)
			} else {
				setBlockType(b, doctree.TypeHeading, map[string]string{doctree.AttrLevel: lv})
			}
		}
	})
	return nil
}

func (t *tx) setHeading(level int) error {
	if level < 1 || level > 6 {
		return engineErr(ActionSetBlockAttribute, "invalid heading level %d", level)
	}
	blocks := textblocks(t.touched())
	if len(blocks) == 0 {
		return engineErr(ActionSetBlockAttribute, "no textblock in selection")
	}
	t.keepSelection(func() {
		for _, b := range blocks {
			setBlockType(b, doctree.TypeHeading, map[string]string{doctree.AttrLevel: strconv.Itoa(level)})
		}
	})
	return nil
}

func (t *tx) setCodeLanguage(lang string) error {
	changed := false
	for _, b := range textblocks(t.touched()) {
		if b.Type == doctree.TypeCodeBlock {
			b.SetAttr(doctree.AttrLanguage, lang)
			changed = true
		}
	}
	if !changed {
		return engineErr(ActionSetBlockAttribute, "no code block in selection")
	}
	return nil
}

// setTextAlign sets alignment on the selected paragraphs and headings;
// "" removes it.
func (t *tx) setTextAlign(value string) error {
	if value != "" && !schema.ValidAlignment(value) {
		return engineErr(ActionSetBlockAttribute, "invalid alignment %q", value)
	}
	if value == doctree.DefaultAlignment {
		value = ""
	}
	changed := false
	for _, b := range textblocks(t.touched()) {
		if b.Type == doctree.TypeParagraph || b.Type == doctree.TypeHeading {
			b.SetAttr(doctree.AttrTextAlign, value)
			changed = true
		}
	}
	if !changed {
		return engineErr(ActionSetBlockAttribute, "no paragraph or heading in selection")
	}
	return nil
}

// insertRule inserts a horizontal rule at the caret and makes sure a
// textblock follows it.
func (t *tx) insertRule() error {
	return t.insertAtom(&doctree.Block{Type: doctree.TypeHorizontalRule}, true)
}

// insertImage inserts an image block at the selection.
func (t *tx) insertImage(src, alt string) error {
	src = strings.TrimSpace(src)
	if src == "" {
		return engineErr(ActionSetImage, "empty image source")
	}
	return t.insertAtom(doctree.Image(src, alt), false)
}

// insertAtom replaces the selection with an atom block, splitting the
// caret's textblock around it. An empty textblock is replaced; code
// blocks are never split, the atom goes after them. With trailing set,
// a paragraph is added when the atom ends its container. The caret
// lands at the start of the block after the atom, or just past the
// atom when nothing follows it.
func (t *tx) insertAtom(atom *doctree.Block, trailing bool) error {
	t.deleteSelection()
	leaves := t.doc.Leaves()
	li, off := doctree.Resolve(leaves, t.sel.Head)
	l := leaves[li]
	b := l.Block
	parent := parentOf(l)
	inItem := parent != nil && parent.Type == doctree.TypeListItem

	switch {
	case !b.IsTextblock() || b.Type == doctree.TypeCodeBlock:
		t.insertAfter(b, atom)
	case len(b.Inline) == 0 && !inItem:
		t.replaceBlock(b, atom)
	case off == 0 && !inItem:
		t.insertBefore(b, atom)
	case off == doctree.BlockLen(b):
		t.insertAfter(b, atom)
	default:
		head, tail := doctree.SplitInline(b.Inline, off)
		nb := splitType(b, false)
		b.Inline, nb.Inline = head, tail
		t.insertAfter(b, atom, nb)
	}

	parent, i, _ := t.locate(atom)
	sibs := *t.siblings(parent)
	if trailing && i == len(sibs)-1 {
		t.insertAfter(atom, doctree.Paragraph())
	}
	t.doc.Normalize()
	for _, l := range t.doc.Leaves() {
		if l.Block == atom {
			t.sel = Caret(t.doc.Clamp(l.End + 1))
			break
		}
	}
	t.clearStored()
	return nil
}

// mapMarks rewrites mark sets over [from, to) outside code blocks.
func (t *tx) mapMarks(from, to int, fn func([]doctree.Mark) []doctree.Mark) {
	for _, l := range t.doc.Leaves() {
		if !l.Block.IsTextblock() || l.Block.Type == doctree.TypeCodeBlock {
			continue
		}
		if l.End < from || l.Start > to {
			continue
		}
		lo, hi := max(from-l.Start, 0), min(to-l.Start, l.Len())
		l.Block.Inline = doctree.MapMarks(l.Block.Inline, lo, hi, fn)
	}
}

func (t *tx) addMark(m doctree.Mark) {
	if t.sel.Empty() {
		t.setStored(schema.AddToSet(t.currentMarks(), m))
		return
	}
	t.mapMarks(t.sel.From(), t.sel.To(), func(set []doctree.Mark) []doctree.Mark {
		return schema.AddToSet(set, m)
	})
}

func (t *tx) removeMark(mt doctree.MarkType) {
	if t.sel.Empty() {
		t.setStored(schema.RemoveFromSet(doctree.CloneMarks(t.currentMarks()), mt))
		return
	}
	t.mapMarks(t.sel.From(), t.sel.To(), func(set []doctree.Mark) []doctree.Mark {
		return schema.RemoveFromSet(set, mt)
	})
}

// toggleMark removes m when it covers every character of the
// selection and adds it otherwise. A mark with attributes only counts
// as present when they match, so toggling another colour replaces it.
func (t *tx) toggleMark(m doctree.Mark) {
	matches := func(set []doctree.Mark) bool {
		for _, e := range set {
			if e.Type == m.Type && (len(m.Attrs) == 0 || e.Equal(m)) {
				return true
			}
		}
		return false
	}
	if t.sel.Empty() {
		cur := t.currentMarks()
		if matches(cur) {
			t.setStored(schema.RemoveFromSet(doctree.CloneMarks(cur), m.Type))
			return
		}
		t.setStored(schema.AddToSet(cur, m))
		return
	}
	runs := textRuns(t.doc.Leaves(), t.sel.From(), t.sel.To())
	if len(runs) == 0 {
		return
	}
	for _, set := range runs {
		if !matches(set) {
			t.addMark(m)
			return
		}
	}
	t.removeMark(m.Type)
}

// markRange expands the caret to the extent of the mark of type mt
// around it, within the caret's textblock.
func (t *tx) markRange(mt doctree.MarkType) (int, int, bool) {
	leaves := t.doc.Leaves()
	li, off := doctree.Resolve(leaves, t.sel.Head)
	l := leaves[li]
	if !l.Block.IsTextblock() {
		return 0, 0, false
	}
	type span struct {
		s, e int
		m    doctree.Mark
		ok   bool
	}
	var spans []span
	pos := 0
	for _, n := range l.Block.Inline {
		sp := span{s: pos, e: pos + n.Len()}
		sp.m, sp.ok = n.Mark(mt)
		spans = append(spans, sp)
		pos = sp.e
	}
	at := -1
	for i, sp := range spans {
		if sp.ok && sp.s <= off && off <= sp.e {
			at = i
			if off < sp.e {
				break
			}
		}
	}
	if at < 0 {
		return 0, 0, false
	}
	lo, hi := at, at
	for lo > 0 && spans[lo-1].ok && spans[lo-1].m.Equal(spans[at].m) {
		lo--
	}
	for hi < len(spans)-1 && spans[hi+1].ok && spans[hi+1].m.Equal(spans[at].m) {
		hi++
	}
	return l.Start + spans[lo].s, l.Start + spans[hi].e, true
}

func (t *tx) unsetLink() {
	if t.sel.Empty() {
		if from, to, ok := t.markRange(doctree.MarkLink); ok {
			t.mapMarks(from, to, func(set []doctree.Mark) []doctree.Mark {
				return schema.RemoveFromSet(set, doctree.MarkLink)
			})
			return
		}
	}
	t.removeMark(doctree.MarkLink)
}

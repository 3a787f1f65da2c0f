package doctree

import (
	"encoding/json"
	"testing"
)

func sample() *Document {
	bold := Mark{Type: MarkBold}
	return FromBlocks(
		&Block{Type: TypeHeading, Attrs: map[string]string{AttrLevel: "1"}, Inline: []Inline{Text("Title")}},
		Paragraph(Text("Hello "), Text("world", bold)),
		&Block{Type: TypeHorizontalRule},
		&Block{Type: TypeBulletList, Children: []*Block{
			{Type: TypeListItem, Children: []*Block{Paragraph(Text("one"))}},
			{Type: TypeListItem, Children: []*Block{Paragraph(Text("two"), HardBreak(), Text("b"))}},
		}},
	)
}

func TestLeaves_Positions(t *testing.T) {
	leaves := sample().Leaves()
	if len(leaves) != 5 {
		t.Fatalf("expected 5 leaves, got %d", len(leaves))
	}
	want := [][2]int{{0, 5}, {6, 17}, {18, 19}, {20, 23}, {24, 29}}
	for i, w := range want {
		if leaves[i].Start != w[0] || leaves[i].End != w[1] {
			t.Errorf("leaf %d: expected [%d,%d], got [%d,%d]", i, w[0], w[1], leaves[i].Start, leaves[i].End)
		}
	}
	if !leaves[3].Has(TypeBulletList) || !leaves[3].Has(TypeListItem) {
		t.Error("expected list item leaf to carry list ancestors")
	}
	if leaves[0].Has(TypeBulletList) {
		t.Error("heading should not be inside a list")
	}
}

func TestResolve_Boundaries(t *testing.T) {
	leaves := sample().Leaves()
	cases := []struct {
		pos, leaf, off int
	}{
		{0, 0, 0},
		{5, 0, 5},
		{6, 1, 0},
		{17, 1, 11},
		{18, 2, 0},
		{29, 4, 5},
		{99, 4, 5},
	}
	for _, c := range cases {
		li, off := Resolve(leaves, c.pos)
		if li != c.leaf || off != c.off {
			t.Errorf("Resolve(%d): expected (%d,%d), got (%d,%d)", c.pos, c.leaf, c.off, li, off)
		}
	}
}

func TestTouched_ExcludesNextLeafStart(t *testing.T) {
	leaves := sample().Leaves()
	got := Touched(leaves, 0, 6)
	if len(got) != 1 || got[0] != 0 {
		t.Errorf("expected only leaf 0, got %v", got)
	}
	got = Touched(leaves, 3, 8)
	if len(got) != 2 {
		t.Errorf("expected 2 touched leaves, got %v", got)
	}
}

func TestPlainText(t *testing.T) {
	got := sample().PlainText()
	want := "Title\n\nHello world\n\none\n\ntwo\nb"
	if got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestCharCount(t *testing.T) {
	d := FromBlocks(Paragraph(Text("héllo")))
	if got := d.CharCount(); got != 5 {
		t.Errorf("expected 5, got %d", got)
	}
	d = FromBlocks(Paragraph(Text("ab")), Paragraph(Text("cd")))
	if got := d.CharCount(); got != 5 {
		t.Errorf("expected block separator to count, got %d", got)
	}
	if got := New().CharCount(); got != 0 {
		t.Errorf("expected empty doc to count 0, got %d", got)
	}
	d = FromBlocks(Paragraph(Text("a")), Image("x.png", ""), Paragraph(Text("b")))
	if got := d.CharCount(); got != 5 {
		t.Errorf("expected image and both separators to count, got %d", got)
	}
}

func TestImage_IsBlockLeaf(t *testing.T) {
	img := Image("x.png", "x")
	img.Inline = []Inline{Text("stray")}
	d := FromBlocks(Paragraph(Text("ab")), img, Paragraph(Text("cd")))

	leaves := d.Leaves()
	if len(leaves) != 3 {
		t.Fatalf("expected 3 leaves, got %d", len(leaves))
	}
	if l := leaves[1]; l.Block.Type != TypeImage || l.Start != 3 || l.End != 4 {
		t.Errorf("expected image leaf at [3,4], got %s [%d,%d]", l.Block.Type, l.Start, l.End)
	}
	if d.Blocks[1].Inline != nil {
		t.Errorf("expected image content dropped, got %+v", d.Blocks[1].Inline)
	}
	if got := d.PlainText(); got != "ab\n\ncd" {
		t.Errorf("expected image omitted from plain text, got %q", got)
	}
}

func TestNormalize_MergesRunsAndPrunes(t *testing.T) {
	bold := Mark{Type: MarkBold}
	d := FromBlocks(
		Paragraph(Text("a", bold), Text("", bold), Text("b", bold)),
		&Block{Type: TypeBlockquote},
		&Block{Type: TypeCodeBlock, Inline: []Inline{Text("x", bold), HardBreak()}},
	)
	if len(d.Blocks) != 2 {
		t.Fatalf("expected empty blockquote pruned, got %d blocks", len(d.Blocks))
	}
	if len(d.Blocks[0].Inline) != 1 || d.Blocks[0].Inline[0].Text != "ab" {
		t.Errorf("expected merged run, got %+v", d.Blocks[0].Inline)
	}
	code := d.Blocks[1].Inline
	if len(code) != 1 || code[0].Text != "x\n" || code[0].Marks != nil {
		t.Errorf("expected plain code text, got %+v", code)
	}
}

func TestNormalize_EmptyDocument(t *testing.T) {
	d := FromBlocks()
	if !d.IsEmpty() {
		t.Errorf("expected single empty paragraph, got %+v", d.Blocks)
	}
}

func TestNormalize_ListItemWithoutParagraph(t *testing.T) {
	d := FromBlocks(&Block{Type: TypeBulletList, Children: []*Block{
		{Type: TypeListItem, Children: []*Block{{Type: TypeBlockquote, Children: []*Block{Paragraph(Text("q"))}}}},
	}})
	item := d.Blocks[0].Children[0]
	if item.Children[0].Type != TypeParagraph {
		t.Errorf("expected leading paragraph in list item, got %s", item.Children[0].Type)
	}
}

func TestSplice(t *testing.T) {
	bold := Mark{Type: MarkBold}
	in := []Inline{Text("hello", bold), Text(" world")}
	out := Splice(in, 2, 8, []Inline{Text("X")})
	if InlineLen(out) != 6 {
		t.Fatalf("expected length 6, got %d", InlineLen(out))
	}
	if out[0].Text != "he" || out[1].Text != "Xrld" {
		t.Errorf("unexpected splice result %+v", out)
	}
}

func TestMarksAt(t *testing.T) {
	bold := Mark{Type: MarkBold}
	in := []Inline{Text("ab", bold), Text("cd")}
	before, after := MarksAt(in, 2)
	if len(before) != 1 || before[0].Type != MarkBold {
		t.Errorf("expected bold before caret, got %v", before)
	}
	if len(after) != 0 {
		t.Errorf("expected no marks after caret, got %v", after)
	}
}

func TestJSON_RoundTrip(t *testing.T) {
	d := sample()
	d.Blocks[1].SetAttr(AttrTextAlign, "center")
	data, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Document
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !got.Equal(d) {
		t.Errorf("round trip mismatch: %s", data)
	}
}

func TestJSON_HeadingLevelIsNumber(t *testing.T) {
	n := sample().ToJSON()
	if lvl, ok := n.Content[0].Attrs[AttrLevel].(int); !ok || lvl != 1 {
		t.Errorf("expected integer level 1, got %#v", n.Content[0].Attrs[AttrLevel])
	}
}

func TestFromJSON_RejectsUnknownNode(t *testing.T) {
	_, err := FromJSON(JSONNode{Type: "doc", Content: []JSONNode{{Type: "table"}}})
	if err == nil {
		t.Fatal("expected error for unknown node type")
	}
}

func TestClone_IsDeep(t *testing.T) {
	d := sample()
	c := d.Clone()
	c.Blocks[1].Inline[0].Text = "changed"
	if d.Blocks[1].Inline[0].Text != "Hello " {
		t.Error("clone shares inline storage with original")
	}
	if !d.Equal(sample()) {
		t.Error("original mutated")
	}
}

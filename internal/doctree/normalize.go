package doctree

// Normalize restores structural invariants in place: at least one
// block, no empty containers, list children are list items, list items
// open with a textblock, code blocks hold plain text only, and inline
// runs are canonical.
func (d *Document) Normalize() {
	d.Blocks = normalizeBlocks(d.Blocks, nil)
	if len(d.Blocks) == 0 {
		d.Blocks = []*Block{Paragraph()}
	}
}

func normalizeBlocks(blocks []*Block, parent *Block) []*Block {
	out := make([]*Block, 0, len(blocks))
	for _, b := range blocks {
		if b == nil {
			continue
		}
		switch {
		case b.Type == TypeCodeBlock:
			b.Inline = StripForCode(b.Inline)
			b.Children = nil
		case b.IsTextblock():
			b.Inline = NormalizeInline(b.Inline)
			b.Children = nil
			if b.Attr(AttrTextAlign) == DefaultAlignment {
				b.SetAttr(AttrTextAlign, "")
			}
		case b.IsAtom():
			b.Inline, b.Children = nil, nil
		default:
			b.Inline = nil
			b.Children = normalizeBlocks(b.Children, b)
			if len(b.Children) == 0 {
				continue
			}
		}

		if parent != nil && parent.IsList() && b.Type != TypeListItem {
			// Stray content inside a list becomes its own item; a nested
			// list merges into the previous item.
			if b.IsList() && len(out) > 0 {
				prev := out[len(out)-1]
				prev.Children = append(prev.Children, b)
				continue
			}
			b = &Block{Type: TypeListItem, Children: []*Block{b}}
		}
		if b.Type == TypeListItem && (parent == nil || !parent.IsList()) {
			out = append(out, b.Children...)
			continue
		}
		if b.Type == TypeListItem && !b.Children[0].IsTextblock() {
			b.Children = append([]*Block{Paragraph()}, b.Children...)
		}
		out = append(out, b)
	}
	return out
}

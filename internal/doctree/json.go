package doctree

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// JSONNode is a node in the ProseMirror JSON document shape.
type JSONNode struct {
	Type    string         `json:"type"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Content []JSONNode     `json:"content,omitempty"`
	Text    string         `json:"text,omitempty"`
	Marks   []JSONMark     `json:"marks,omitempty"`
}

// JSONMark is a text mark in the ProseMirror JSON shape.
type JSONMark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// integer-valued attributes
var intAttrs = map[string]bool{AttrLevel: true, AttrStart: true}

// ToJSON converts the document to ProseMirror JSON.
func (d *Document) ToJSON() JSONNode {
	root := JSONNode{Type: "doc"}
	for _, b := range d.Blocks {
		root.Content = append(root.Content, blockJSON(b))
	}
	return root
}

// MarshalJSON implements json.Marshaler.
func (d *Document) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.ToJSON())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Document) UnmarshalJSON(data []byte) error {
	var root JSONNode
	if err := json.Unmarshal(data, &root); err != nil {
		return err
	}
	doc, err := FromJSON(root)
	if err != nil {
		return err
	}
	*d = *doc
	return nil
}

func blockJSON(b *Block) JSONNode {
	n := JSONNode{Type: string(b.Type), Attrs: attrsJSON(b.Attrs)}
	for _, c := range b.Children {
		n.Content = append(n.Content, blockJSON(c))
	}
	for _, in := range b.Inline {
		n.Content = append(n.Content, inlineJSON(in))
	}
	return n
}

func inlineJSON(in Inline) JSONNode {
	n := JSONNode{Type: string(in.Type), Text: in.Text, Attrs: attrsJSON(in.Attrs)}
	for _, m := range in.Marks {
		n.Marks = append(n.Marks, JSONMark{Type: string(m.Type), Attrs: attrsJSON(m.Attrs)})
	}
	return n
}

func attrsJSON(attrs map[string]string) map[string]any {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		if intAttrs[k] {
			if i, err := strconv.Atoi(v); err == nil {
				out[k] = i
				continue
			}
		}
		out[k] = v
	}
	return out
}

// FromJSON builds a normalized document from ProseMirror JSON.
func FromJSON(root JSONNode) (*Document, error) {
	if root.Type != "doc" {
		return nil, fmt.Errorf("root node type %q, want doc", root.Type)
	}
	d := &Document{}
	for _, c := range root.Content {
		b, err := blockFromJSON(c)
		if err != nil {
			return nil, err
		}
		d.Blocks = append(d.Blocks, b)
	}
	d.Normalize()
	return d, nil
}

func blockFromJSON(n JSONNode) (*Block, error) {
	t := NodeType(n.Type)
	switch t {
	case TypeParagraph, TypeHeading, TypeCodeBlock, TypeHorizontalRule, TypeImage,
		TypeBlockquote, TypeBulletList, TypeOrderedList, TypeListItem:
	default:
		return nil, fmt.Errorf("unknown block type %q", n.Type)
	}
	b := &Block{Type: t, Attrs: attrsFromJSON(n.Attrs)}
	for _, c := range n.Content {
		if IsTextblockType(t) {
			in, err := inlineFromJSON(c)
			if err != nil {
				return nil, err
			}
			b.Inline = append(b.Inline, in)
			continue
		}
		child, err := blockFromJSON(c)
		if err != nil {
			return nil, err
		}
		b.Children = append(b.Children, child)
	}
	return b, nil
}

func inlineFromJSON(n JSONNode) (Inline, error) {
	t := NodeType(n.Type)
	switch t {
	case TypeText, TypeHardBreak:
	default:
		return Inline{}, fmt.Errorf("unknown inline type %q", n.Type)
	}
	in := Inline{Type: t, Text: n.Text, Attrs: attrsFromJSON(n.Attrs)}
	for _, m := range n.Marks {
		in.Marks = append(in.Marks, Mark{Type: MarkType(m.Type), Attrs: attrsFromJSON(m.Attrs)})
	}
	return in, nil
}

func attrsFromJSON(attrs map[string]any) map[string]string {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		switch x := v.(type) {
		case nil:
		case string:
			if x != "" {
				out[k] = x
			}
		case float64:
			out[k] = strconv.FormatFloat(x, 'f', -1, 64)
		case int:
			out[k] = strconv.Itoa(x)
		default:
			out[k] = fmt.Sprint(x)
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

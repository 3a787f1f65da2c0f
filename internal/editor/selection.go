package editor

import "github.com/dgallion1/inkwell/internal/doctree"

// Selection is a range over the document's linear positions. Anchor is
// where it started, Head where it ends; they are equal when collapsed.
type Selection struct {
	Anchor int `json:"anchor"`
	Head   int `json:"head"`
}

// Caret returns a collapsed selection at pos.
func Caret(pos int) Selection {
	return Selection{Anchor: pos, Head: pos}
}

// From is the lower bound.
func (s Selection) From() int { return min(s.Anchor, s.Head) }

// To is the upper bound.
func (s Selection) To() int { return max(s.Anchor, s.Head) }

// Empty reports whether the selection is collapsed.
func (s Selection) Empty() bool { return s.Anchor == s.Head }

// clamp bounds both ends to the document.
func (s Selection) clamp(d *doctree.Document) Selection {
	return Selection{Anchor: d.Clamp(s.Anchor), Head: d.Clamp(s.Head)}
}

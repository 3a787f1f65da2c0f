package editor

import (
	"strconv"
	"strings"

	"github.com/dgallion1/inkwell/internal/doctree"
	"github.com/dgallion1/inkwell/internal/markup"
	"github.com/dgallion1/inkwell/internal/schema"
)

// ActionType names a dispatchable command.
type ActionType string

const (
	ActionToggleMark        ActionType = "toggle-mark"
	ActionSetBlockAttribute ActionType = "set-block-attribute"
	ActionSetLink           ActionType = "set-link"
	ActionUnsetLink         ActionType = "unset-link"
	ActionSetImage          ActionType = "set-image"
	ActionSetColor          ActionType = "set-color"
	ActionUnsetColor        ActionType = "unset-color"
	ActionSetHighlight      ActionType = "set-highlight"
	ActionUnsetHighlight    ActionType = "unset-highlight"
	ActionUndo              ActionType = "undo"
	ActionRedo              ActionType = "redo"

	ActionInsertText      ActionType = "insert-text"
	ActionDeleteBackward  ActionType = "delete-backward"
	ActionDeleteForward   ActionType = "delete-forward"
	ActionSplitBlock      ActionType = "split-block"
	ActionInsertHardBreak ActionType = "insert-hard-break"
	ActionToggleHeading   ActionType = "toggle-heading"
	ActionUnsetTextAlign  ActionType = "unset-text-align"
)

// Action is one command with its payload. Value carries the href, image
// source, colour, alignment, heading level or code language depending
// on the action.
type Action struct {
	Type  ActionType  `json:"action"`
	Kind  schema.Kind `json:"kind,omitempty"`
	Value string      `json:"value,omitempty"`
	Alt   string      `json:"alt,omitempty"`
	Text  string      `json:"text,omitempty"`
	Level int         `json:"level,omitempty"`
}

// ToggleMark toggles formatting kind k over the selection.
func ToggleMark(k schema.Kind) Action { return Action{Type: ActionToggleMark, Kind: k} }

// SetBlockAttribute sets a block-level kind such as textAlign or heading.
func SetBlockAttribute(k schema.Kind, value string) Action {
	return Action{Type: ActionSetBlockAttribute, Kind: k, Value: value}
}

// SetLink links the selection to href.
func SetLink(href string) Action { return Action{Type: ActionSetLink, Value: href} }

// UnsetLink removes the link at the selection.
func UnsetLink() Action { return Action{Type: ActionUnsetLink} }

// SetImage inserts an image block at the selection.
func SetImage(src, alt string) Action { return Action{Type: ActionSetImage, Value: src, Alt: alt} }

// SetColor sets the text colour of the selection.
func SetColor(c string) Action { return Action{Type: ActionSetColor, Value: c} }

// UnsetColor clears the text colour.
func UnsetColor() Action { return Action{Type: ActionUnsetColor} }

// SetHighlight highlights the selection with colour c.
func SetHighlight(c string) Action { return Action{Type: ActionSetHighlight, Value: c} }

// UnsetHighlight clears the highlight.
func UnsetHighlight() Action { return Action{Type: ActionUnsetHighlight} }

// Undo reverts the last change.
func Undo() Action { return Action{Type: ActionUndo} }

// Redo reapplies the last undone change.
func Redo() Action { return Action{Type: ActionRedo} }

// InsertText replaces the selection with s. Newlines become hard breaks.
func InsertText(s string) Action { return Action{Type: ActionInsertText, Text: s} }

// DeleteBackward deletes the selection or the position before the caret.
func DeleteBackward() Action { return Action{Type: ActionDeleteBackward} }

// DeleteForward deletes the selection or the position after the caret.
func DeleteForward() Action { return Action{Type: ActionDeleteForward} }

// SplitBlock splits the textblock at the caret.
func SplitBlock() Action { return Action{Type: ActionSplitBlock} }

// InsertHardBreak inserts a line break.
func InsertHardBreak() Action { return Action{Type: ActionInsertHardBreak} }

// ToggleHeading toggles a heading of the given level.
func ToggleHeading(level int) Action { return Action{Type: ActionToggleHeading, Level: level} }

// UnsetTextAlign resets alignment to the default.
func UnsetTextAlign() Action { return Action{Type: ActionUnsetTextAlign} }

// kind is the formatting kind the profile must enable for a, or "".
func (a Action) kind() schema.Kind {
	switch a.Type {
	case ActionToggleMark, ActionSetBlockAttribute:
		return a.Kind
	case ActionSetLink, ActionUnsetLink:
		return schema.Link
	case ActionSetImage:
		return schema.Image
	case ActionSetColor, ActionUnsetColor:
		return schema.Color
	case ActionSetHighlight, ActionUnsetHighlight:
		return schema.Highlight
	case ActionToggleHeading:
		return schema.Heading
	case ActionUnsetTextAlign:
		return schema.TextAlign
	}
	return ""
}

// apply runs a against the transaction. Undo and redo are handled by
// the session.
func apply(t *tx, a Action, profile schema.Profile) error {
	if k := a.kind(); k != "" {
		if _, ok := schema.Lookup(k); !ok {
			return engineErr(a.Type, "unknown kind %q", k)
		}
		if !profile.Enabled(k) {
			return engineErr(a.Type, "%s is not enabled in the %s profile", k, profile.Name)
		}
	}

	switch a.Type {
	case ActionToggleMark:
		return toggle(t, a)
	case ActionSetBlockAttribute:
		return setBlockAttribute(t, a)
	case ActionSetLink:
		href := strings.TrimSpace(a.Value)
		if href == "" {
			return engineErr(a.Type, "empty href")
		}
		if !markup.SafeURL(href) {
			return engineErr(a.Type, "disallowed link target %q", href)
		}
		t.addMark(doctree.Mark{Type: doctree.MarkLink, Attrs: map[string]string{doctree.AttrHref: href}})
		return nil
	case ActionUnsetLink:
		t.unsetLink()
		return nil
	case ActionSetImage:
		return t.insertImage(a.Value, a.Alt)
	case ActionSetColor:
		return setValuedMark(t, a, doctree.MarkColor)
	case ActionUnsetColor:
		t.removeMark(doctree.MarkColor)
		return nil
	case ActionSetHighlight:
		return setValuedMark(t, a, doctree.MarkHighlight)
	case ActionUnsetHighlight:
		t.removeMark(doctree.MarkHighlight)
		return nil
	case ActionInsertText:
		return t.insertText(a.Text)
	case ActionDeleteBackward:
		return t.deleteBackward()
	case ActionDeleteForward:
		return t.deleteForward()
	case ActionSplitBlock:
		return t.splitBlock()
	case ActionInsertHardBreak:
		return t.insertHardBreak()
	case ActionToggleHeading:
		return t.toggleHeading(a.Level)
	case ActionUnsetTextAlign:
		return t.setTextAlign("")
	}
	return engineErr(a.Type, "unknown action")
}

func setValuedMark(t *tx, a Action, mt doctree.MarkType) error {
	v := strings.TrimSpace(a.Value)
	if v == "" {
		return engineErr(a.Type, "empty value")
	}
	t.addMark(doctree.Mark{Type: mt, Attrs: map[string]string{doctree.AttrColor: v}})
	return nil
}

func toggle(t *tx, a Action) error {
	def, _ := schema.Lookup(a.Kind)
	switch def.Category {
	case schema.CategoryMark:
		t.toggleMark(doctree.Mark{Type: def.Mark})
		return nil
	case schema.CategoryAttrMark:
		if a.Kind == schema.Link {
			if a.Value == "" {
				t.unsetLink()
				return nil
			}
			return apply(t, SetLink(a.Value), schema.Full)
		}
		m := doctree.Mark{Type: def.Mark}
		if v := strings.TrimSpace(a.Value); v != "" {
			m.Attrs = map[string]string{doctree.AttrColor: v}
		}
		t.toggleMark(m)
		return nil
	}
	switch a.Kind {
	case schema.BulletList:
		return t.toggleList(doctree.TypeBulletList)
	case schema.OrderedList:
		return t.toggleList(doctree.TypeOrderedList)
	case schema.Blockquote:
		return t.toggleBlockquote()
	case schema.CodeBlock:
		return t.toggleCodeBlock()
	case schema.HorizontalRule:
		return t.insertRule()
	case schema.Heading:
		level := a.Level
		if level == 0 {
			level, _ = strconv.Atoi(a.Value)
		}
		return t.toggleHeading(level)
	case schema.Image:
		return t.insertImage(a.Value, a.Alt)
	case schema.TextAlign:
		return t.setTextAlign(a.Value)
	}
	return engineErr(a.Type, "cannot toggle %s", a.Kind)
}

func setBlockAttribute(t *tx, a Action) error {
	switch a.Kind {
	case schema.TextAlign:
		if a.Value == "" {
			return engineErr(a.Type, "empty alignment")
		}
		return t.setTextAlign(a.Value)
	case schema.Heading:
		level := a.Level
		if level == 0 {
			var err error
			if level, err = strconv.Atoi(a.Value); err != nil {
				return engineErr(a.Type, "invalid heading level %q", a.Value)
			}
		}
		return t.setHeading(level)
	case schema.CodeBlock:
		return t.setCodeLanguage(strings.TrimSpace(a.Value))
	}
	return engineErr(a.Type, "%s has no block attribute", a.Kind)
}

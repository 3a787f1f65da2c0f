package editor

import (
	"time"

	"github.com/dgallion1/inkwell/internal/doctree"
)

// DefaultHistoryLimit bounds the undo stack.
const DefaultHistoryLimit = 100

// DefaultHistoryGroupDelay is the window within which consecutive
// typing is undone as one step.
const DefaultHistoryGroupDelay = 500 * time.Millisecond

type snapshot struct {
	doc *doctree.Document
	sel Selection
}

type history struct {
	limit int
	delay time.Duration

	undo []snapshot
	redo []snapshot

	// last grouping key and time, for merging consecutive typing
	lastKind ActionType
	lastAt   time.Time
}

func newHistory(limit int, delay time.Duration) *history {
	return &history{limit: limit, delay: delay}
}

// record pushes the state before a change. Consecutive insert-text
// actions inside the group delay extend the previous step instead.
func (h *history) record(prev snapshot, kind ActionType, now time.Time) {
	if h.limit <= 0 {
		return
	}
	grouped := kind == ActionInsertText && h.lastKind == ActionInsertText &&
		len(h.undo) > 0 && now.Sub(h.lastAt) < h.delay
	h.lastKind, h.lastAt = kind, now
	h.redo = nil
	if grouped {
		return
	}
	h.undo = append(h.undo, prev)
	if len(h.undo) > h.limit {
		h.undo = h.undo[len(h.undo)-h.limit:]
	}
}

func (h *history) canUndo() bool { return len(h.undo) > 0 }

func (h *history) canRedo() bool { return len(h.redo) > 0 }

func (h *history) popUndo(cur snapshot) (snapshot, bool) {
	if len(h.undo) == 0 {
		return snapshot{}, false
	}
	i := len(h.undo) - 1
	prev := h.undo[i]
	h.undo = h.undo[:i]
	h.redo = append(h.redo, cur)
	h.lastKind = ""
	return prev, true
}

func (h *history) popRedo(cur snapshot) (snapshot, bool) {
	if len(h.redo) == 0 {
		return snapshot{}, false
	}
	i := len(h.redo) - 1
	next := h.redo[i]
	h.redo = h.redo[:i]
	if h.limit > 0 {
		h.undo = append(h.undo, cur)
		if len(h.undo) > h.limit {
			h.undo = h.undo[len(h.undo)-h.limit:]
		}
	}
	h.lastKind = ""
	return next, true
}

func (h *history) clear() {
	h.undo, h.redo = nil, nil
	h.lastKind = ""
}

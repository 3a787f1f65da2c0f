package editor

import (
	"strings"

	"github.com/dgallion1/inkwell/internal/schema"
)

// DialogKind names the dialog that is open, if any.
type DialogKind string

const (
	DialogNone DialogKind = ""
	DialogLink DialogKind = "link"
)

// DialogState describes the open dialog. Only one can be open at a time.
type DialogState struct {
	Kind DialogKind `json:"kind"`
	Open bool       `json:"open"`
	// URL prefills the dialog with the link under the selection.
	URL string `json:"url,omitempty"`
}

// OpenLinkDialog opens the link dialog. The dialog takes focus from the
// editor until it is submitted or cancelled.
func (s *Session) OpenLinkDialog() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if !s.profile.Enabled(schema.Link) {
		s.mu.Unlock()
		return engineErr(ActionSetLink, "link is not enabled in the %s profile", s.profile.Name)
	}
	snap := project(s.doc, s.sel, s.stored, s.storedSet)
	s.dialog = DialogState{Kind: DialogLink, Open: true, URL: snap.Link}
	s.focused = false
	s.finish(events{})
	return nil
}

// SubmitLink closes the dialog and links the selection current at
// submit time. An empty URL just closes the dialog.
func (s *Session) SubmitLink(url string) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if !s.dialog.Open {
		s.mu.Unlock()
		return ErrDialogNotOpen
	}
	s.dialog = DialogState{}
	s.focused = true

	var ev events
	var err error
	if url = strings.TrimSpace(url); url != "" {
		err = s.applyLocked(SetLink(url), &ev)
	}
	s.finish(ev)
	return err
}

// CancelLinkDialog closes the dialog without touching the document.
func (s *Session) CancelLinkDialog() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if !s.dialog.Open {
		s.mu.Unlock()
		return ErrDialogNotOpen
	}
	s.dialog = DialogState{}
	s.finish(events{})
	return nil
}


package editor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dgallion1/inkwell/internal/doctree"
	"github.com/dgallion1/inkwell/internal/markup"
	"github.com/dgallion1/inkwell/internal/schema"
)

// State is everything a host needs to render the editor chrome.
type State struct {
	HTML        string           `json:"html"`
	Selection   Selection        `json:"selection"`
	Formatting  Snapshot         `json:"formatting"`
	Budget      Budget           `json:"budget"`
	Dialog      DialogState      `json:"dialog"`
	Enhancement EnhancementState `json:"enhancement"`
	Uploads     int              `json:"pendingUploads"`
	CanUndo     bool             `json:"canUndo"`
	CanRedo     bool             `json:"canRedo"`
	Focused     bool             `json:"focused"`
	Version     uint64           `json:"version"`
	Profile     string           `json:"profile"`
	Kinds       []schema.Kind    `json:"kinds"`
}

// Session owns one document and serialises every change to it. Network
// work (uploads, enhancement) runs outside the lock so editing stays
// responsive while it is pending.
type Session struct {
	mu     sync.Mutex
	emitMu sync.Mutex

	opt     Options
	log     *slog.Logger
	profile schema.Profile
	budget  *BudgetTracker
	hist    *history

	doc       *doctree.Document
	sel       Selection
	stored    []doctree.Mark
	storedSet bool
	focused   bool
	version   uint64

	dialog  DialogState
	enh     EnhancementState
	uploads int

	ctx    context.Context
	cancel context.CancelFunc
	closed bool
}

// events are the notifications a locked section produced.
type events struct {
	change  bool
	notices []Notice
}

// New creates a session from opts.
func New(opts Options) (*Session, error) {
	opts = opts.withDefaults()

	var doc *doctree.Document
	switch {
	case opts.Document != nil:
		doc = opts.Document.Clone()
		doc.Normalize()
	case opts.Content != "":
		d, err := markup.ParseHTMLString(opts.Content)
		if err != nil {
			return nil, fmt.Errorf("parse initial content: %w", err)
		}
		doc = d
	default:
		doc = doctree.New()
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		opt:     opts,
		log:     opts.Logger,
		profile: opts.Profile,
		budget:  NewBudgetTracker(opts.CharLimit),
		hist:    newHistory(opts.HistoryLimit, opts.HistoryGroupDelay),
		doc:     doc,
		sel:     Caret(0),
		enh:     EnhancementState{Phase: PhaseIdle},
		ctx:     ctx,
		cancel:  cancel,
	}
	s.log.Debug("session created", "profile", s.profile.Name, "size", doc.Size())
	return s, nil
}

// finish releases mu and delivers ev. Payloads are captured under mu;
// emitMu keeps deliveries in commit order.
func (s *Session) finish(ev events) {
	var html string
	if ev.change {
		html = markup.RenderHTML(s.doc)
	}
	st := s.stateLocked()
	s.emitMu.Lock()
	s.mu.Unlock()
	defer s.emitMu.Unlock()

	if ev.change && s.opt.OnChange != nil {
		s.opt.OnChange(html)
	}
	if s.opt.OnNotice != nil {
		for _, n := range ev.notices {
			s.opt.OnNotice(n)
		}
	}
	if s.opt.OnState != nil {
		s.opt.OnState(st)
	}
}

func (s *Session) begin() *tx {
	return &tx{
		doc:          s.doc.Clone(),
		sel:          s.sel,
		stored:       doctree.CloneMarks(s.stored),
		storedSet:    s.storedSet,
		codeLanguage: s.opt.CodeLanguage,
	}
}

// commit publishes t. History is recorded only when the document changed.
func (s *Session) commit(t *tx, kind ActionType, ev *events) {
	t.doc.Normalize()
	if !t.doc.Equal(s.doc) {
		s.hist.record(snapshot{doc: s.doc, sel: s.sel}, kind, s.opt.Now())
		s.doc = t.doc
		s.version++
		ev.change = true
	}
	s.sel = t.sel.clamp(s.doc)
	s.stored, s.storedSet = t.stored, t.storedSet
}

func (s *Session) applyLocked(a Action, ev *events) error {
	t := s.begin()
	if err := apply(t, a, s.profile); err != nil {
		s.log.Debug("action rejected", "action", a.Type, "kind", a.Kind, "error", err)
		return err
	}
	s.commit(t, a.Type, ev)
	return nil
}

// replaceLocked swaps the whole document, dropping history.
func (s *Session) replaceLocked(doc *doctree.Document, ev *events) {
	doc.Normalize()
	s.doc = doc
	s.sel = Caret(doc.Size())
	s.stored, s.storedSet = nil, false
	s.hist.clear()
	s.version++
	ev.change = true
}

// Dispatch applies one action to the document. Every dispatch focuses
// the editor, including ones that fail.
func (s *Session) Dispatch(a Action) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.focused = true
	var ev events
	var err error
	switch a.Type {
	case ActionUndo:
		err = s.step(true, &ev)
	case ActionRedo:
		err = s.step(false, &ev)
	default:
		err = s.applyLocked(a, &ev)
	}
	s.finish(ev)
	return err
}

func (s *Session) step(undo bool, ev *events) error {
	cur := snapshot{doc: s.doc, sel: s.sel}
	var next snapshot
	var ok bool
	if undo {
		next, ok = s.hist.popUndo(cur)
	} else {
		next, ok = s.hist.popRedo(cur)
	}
	if !ok {
		if undo {
			return engineErr(ActionUndo, "nothing to undo")
		}
		return engineErr(ActionRedo, "nothing to redo")
	}
	s.doc = next.doc
	s.sel = next.sel.clamp(s.doc)
	s.stored, s.storedSet = nil, false
	s.version++
	ev.change = true
	return nil
}

// Can reports whether a would succeed now, without applying it.
func (s *Session) Can(a Action) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	switch a.Type {
	case ActionUndo:
		return s.hist.canUndo()
	case ActionRedo:
		return s.hist.canRedo()
	}
	return apply(s.begin(), a, s.profile) == nil
}

func (s *Session) CanUndo() bool { return s.Can(Undo()) }

func (s *Session) CanRedo() bool { return s.Can(Redo()) }

// Select moves the selection. Positions are clamped to the document and
// any stored marks are dropped.
func (s *Session) Select(anchor, head int) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	s.sel = Selection{Anchor: anchor, Head: head}.clamp(s.doc)
	s.stored, s.storedSet = nil, false
	s.focused = true
	s.finish(events{})
	return nil
}

// SelectAll selects the whole document.
func (s *Session) SelectAll() error {
	s.mu.Lock()
	size := s.doc.Size()
	s.mu.Unlock()
	return s.Select(0, size)
}

// Blur marks the editor as unfocused.
func (s *Session) Blur() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.focused = false
	s.finish(events{})
}

// SetContent replaces the document with html. History is cleared and any
// pending enhancement response is discarded.
func (s *Session) SetContent(html string) error {
	doc, err := markup.ParseHTMLString(html)
	if err != nil {
		return fmt.Errorf("parse content: %w", err)
	}
	return s.SetDocument(doc)
}

// SetDocument is SetContent for an already built document.
func (s *Session) SetDocument(doc *doctree.Document) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	var ev events
	s.replaceLocked(doc.Clone(), &ev)
	if s.enh.Phase == PhaseRequesting {
		s.enh.Seq++
		s.enh.Phase = PhaseIdle
	}
	s.finish(ev)
	return nil
}

// HTML serialises the document.
func (s *Session) HTML() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return markup.RenderHTML(s.doc)
}

// JSON serialises the document tree.
func (s *Session) JSON() ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return json.Marshal(s.doc)
}

// PlainText is the document text without markup.
func (s *Session) PlainText() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.PlainText()
}

// Document returns a copy of the document.
func (s *Session) Document() *doctree.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc.Clone()
}

// Selection returns the current selection.
func (s *Session) Selection() Selection {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sel
}

// Snapshot is the active formatting at the current selection.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return project(s.doc, s.sel, s.stored, s.storedSet)
}

// Budget is the character budget of the current document.
func (s *Session) Budget() Budget {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.budget.Update(s.doc)
}

// Version increases with every document change.
func (s *Session) Version() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.version
}

// State returns the full editor state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	return State{
		HTML:        markup.RenderHTML(s.doc),
		Selection:   s.sel,
		Formatting:  project(s.doc, s.sel, s.stored, s.storedSet),
		Budget:      s.budget.Update(s.doc),
		Dialog:      s.dialog,
		Enhancement: s.enh,
		Uploads:     s.uploads,
		CanUndo:     s.hist.canUndo(),
		CanRedo:     s.hist.canRedo(),
		Focused:     s.focused,
		Version:     s.version,
		Profile:     s.profile.Name,
		Kinds:       s.profile.Kinds(),
	}
}

// Close cancels pending network work. Responses that arrive afterwards
// are discarded.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.cancel()
	s.log.Debug("session closed", "version", s.version)
}

// Closed reports whether Close has been called.
func (s *Session) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// bind derives a context that is also cancelled by Close.
func (s *Session) bind(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}

package editor

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dgallion1/inkwell/internal/schema"
)

func newSession(t *testing.T, content string, opts ...func(*Options)) *Session {
	t.Helper()
	o := Options{Content: content}
	for _, f := range opts {
		f(&o)
	}
	s, err := New(o)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func mustDispatch(t *testing.T, s *Session, a Action) {
	t.Helper()
	if err := s.Dispatch(a); err != nil {
		t.Fatalf("dispatch %s %s: %v", a.Type, a.Kind, err)
	}
}

func mustSelect(t *testing.T, s *Session, anchor, head int) {
	t.Helper()
	if err := s.Select(anchor, head); err != nil {
		t.Fatalf("select: %v", err)
	}
}

func expectHTML(t *testing.T, s *Session, want string) {
	t.Helper()
	if got := s.HTML(); got != want {
		t.Fatalf("expected html %q, got %q", want, got)
	}
}

func TestNew_EmptyDocument(t *testing.T) {
	s := newSession(t, "")
	expectHTML(t, s, "<p></p>")
	b := s.Budget()
	if b.Count != 0 || b.Remaining != DefaultCharLimit || b.Level != BudgetOK {
		t.Errorf("expected empty budget, got %+v", b)
	}
	if s.CanUndo() || s.CanRedo() {
		t.Error("expected no history on a new session")
	}
}

func TestNew_InitialContent(t *testing.T) {
	s := newSession(t, "<h2>Title</h2><p>Body</p>")
	expectHTML(t, s, "<h2>Title</h2><p>Body</p>")
	if got := s.PlainText(); got != "Title\n\nBody" {
		t.Errorf("expected plain text %q, got %q", "Title\n\nBody", got)
	}
}

func TestToggleMark_TwiceRestores(t *testing.T) {
	s := newSession(t, "<p>Hello world</p>")
	mustSelect(t, s, 0, 5)

	mustDispatch(t, s, ToggleMark(schema.Bold))
	expectHTML(t, s, "<p><strong>Hello</strong> world</p>")
	if !s.Snapshot().IsActive(schema.Bold) {
		t.Error("expected bold to be active over the bolded range")
	}

	mustDispatch(t, s, ToggleMark(schema.Bold))
	expectHTML(t, s, "<p>Hello world</p>")
}

func TestToggleMark_InvolutionForEveryPlainMark(t *testing.T) {
	for _, k := range []schema.Kind{
		schema.Bold, schema.Italic, schema.Underline, schema.Strike,
		schema.Code, schema.Subscript, schema.Superscript,
	} {
		t.Run(string(k), func(t *testing.T) {
			s := newSession(t, "<p>plain text</p>")
			if err := s.SelectAll(); err != nil {
				t.Fatalf("select all: %v", err)
			}
			mustDispatch(t, s, ToggleMark(k))
			if !s.Snapshot().IsActive(k) {
				t.Fatalf("expected %s active after first toggle", k)
			}
			mustDispatch(t, s, ToggleMark(k))
			expectHTML(t, s, "<p>plain text</p>")
		})
	}
}

func TestSnapshot_PartialCoverageIsInactive(t *testing.T) {
	s := newSession(t, "<p><strong>ab</strong>cd</p>")

	mustSelect(t, s, 0, 4)
	if s.Snapshot().IsActive(schema.Bold) {
		t.Error("expected bold inactive when only part of the range is bold")
	}
	mustSelect(t, s, 0, 2)
	if !s.Snapshot().IsActive(schema.Bold) {
		t.Error("expected bold active when the whole range is bold")
	}
	mustSelect(t, s, 1, 1)
	if !s.Snapshot().IsActive(schema.Bold) {
		t.Error("expected bold active inside a bold run")
	}
}

func TestSnapshot_LinkDoesNotExtendPastItsEnd(t *testing.T) {
	s := newSession(t, `<p><a href="https://x.test">ab</a>cd</p>`)

	mustSelect(t, s, 1, 1)
	if snap := s.Snapshot(); !snap.IsActive(schema.Link) || snap.Link != "https://x.test" {
		t.Errorf("expected link active inside the link, got %+v", snap)
	}
	mustSelect(t, s, 2, 2)
	if s.Snapshot().IsActive(schema.Link) {
		t.Error("expected link inactive at its trailing edge")
	}
}

func TestStoredMarks_ApplyToTypedText(t *testing.T) {
	var changes int
	s := newSession(t, "", func(o *Options) {
		o.OnChange = func(string) { changes++ }
	})

	mustDispatch(t, s, ToggleMark(schema.Bold))
	if changes != 0 {
		t.Errorf("expected no change event for a stored mark, got %d", changes)
	}
	if !s.Snapshot().IsActive(schema.Bold) {
		t.Error("expected stored bold to be reported active")
	}

	mustDispatch(t, s, InsertText("hi"))
	mustDispatch(t, s, InsertText("!"))
	expectHTML(t, s, "<p><strong>hi!</strong></p>")
	if changes != 2 {
		t.Errorf("expected 2 change events, got %d", changes)
	}
}

func TestExclusiveMarks_SubscriptAndSuperscript(t *testing.T) {
	s := newSession(t, "<p>x</p>")
	if err := s.SelectAll(); err != nil {
		t.Fatalf("select all: %v", err)
	}
	mustDispatch(t, s, ToggleMark(schema.Subscript))
	expectHTML(t, s, "<p><sub>x</sub></p>")
	mustDispatch(t, s, ToggleMark(schema.Superscript))
	expectHTML(t, s, "<p><sup>x</sup></p>")
	snap := s.Snapshot()
	if snap.IsActive(schema.Subscript) || !snap.IsActive(schema.Superscript) {
		t.Errorf("expected only superscript active, got %+v", snap.Active)
	}
}

func TestHistory_UndoRedo(t *testing.T) {
	s := newSession(t, "<p>abc</p>")
	if err := s.SelectAll(); err != nil {
		t.Fatalf("select all: %v", err)
	}
	mustDispatch(t, s, ToggleMark(schema.Bold))
	mustDispatch(t, s, ToggleMark(schema.Italic))

	mustDispatch(t, s, Undo())
	expectHTML(t, s, "<p><strong>abc</strong></p>")
	mustDispatch(t, s, Undo())
	expectHTML(t, s, "<p>abc</p>")
	if s.CanUndo() {
		t.Error("expected undo stack to be empty")
	}

	mustDispatch(t, s, Redo())
	expectHTML(t, s, "<p><strong>abc</strong></p>")
	if !s.CanRedo() {
		t.Error("expected a second redo step")
	}

	mustDispatch(t, s, ToggleMark(schema.Underline))
	if s.CanRedo() {
		t.Error("expected a new edit to clear redo")
	}
}

func TestHistory_EmptyStackIsEngineError(t *testing.T) {
	s := newSession(t, "<p>abc</p>")
	err := s.Dispatch(Undo())
	var ee *EngineError
	if !errors.As(err, &ee) {
		t.Fatalf("expected EngineError, got %v", err)
	}
	if s.Can(Undo()) {
		t.Error("expected undo to be unavailable")
	}
}

func TestHistory_GroupsConsecutiveTyping(t *testing.T) {
	now := time.Unix(1000, 0)
	s := newSession(t, "", func(o *Options) {
		o.Now = func() time.Time { return now }
	})

	mustDispatch(t, s, InsertText("a"))
	now = now.Add(100 * time.Millisecond)
	mustDispatch(t, s, InsertText("b"))
	now = now.Add(2 * time.Second)
	mustDispatch(t, s, InsertText("c"))
	expectHTML(t, s, "<p>abc</p>")

	mustDispatch(t, s, Undo())
	expectHTML(t, s, "<p>ab</p>")
	mustDispatch(t, s, Undo())
	expectHTML(t, s, "<p></p>")
	if s.CanUndo() {
		t.Error("expected typing inside the delay to be one step")
	}
}

func TestHistory_Limit(t *testing.T) {
	s := newSession(t, "<p>abc</p>", func(o *Options) { o.HistoryLimit = 2 })
	if err := s.SelectAll(); err != nil {
		t.Fatalf("select all: %v", err)
	}
	mustDispatch(t, s, ToggleMark(schema.Bold))
	mustDispatch(t, s, ToggleMark(schema.Italic))
	mustDispatch(t, s, ToggleMark(schema.Underline))

	mustDispatch(t, s, Undo())
	mustDispatch(t, s, Undo())
	expectHTML(t, s, "<p><strong>abc</strong></p>")
	if s.CanUndo() {
		t.Error("expected the oldest step to be dropped")
	}
}

func TestBudget_Levels(t *testing.T) {
	tests := []struct {
		count   int
		level   BudgetLevel
		percent float64
	}{
		{10, BudgetOK, 10.0 / 280 * 100},
		{224, BudgetWarning, 80},
		{280, BudgetWarning, 100},
		{300, BudgetOver, 100},
	}
	for _, tt := range tests {
		s := newSession(t, "<p>"+strings.Repeat("a", tt.count)+"</p>")
		b := s.Budget()
		if b.Count != tt.count {
			t.Errorf("expected count %d, got %d", tt.count, b.Count)
		}
		if b.Level != tt.level {
			t.Errorf("count %d: expected level %s, got %s", tt.count, tt.level, b.Level)
		}
		if b.Remaining != DefaultCharLimit-tt.count {
			t.Errorf("count %d: expected remaining %d, got %d", tt.count, DefaultCharLimit-tt.count, b.Remaining)
		}
		if b.OverLimit != (tt.count > DefaultCharLimit) {
			t.Errorf("count %d: unexpected overLimit %v", tt.count, b.OverLimit)
		}
		if b.ProgressPercent < tt.percent-0.001 || b.ProgressPercent > tt.percent+0.001 {
			t.Errorf("count %d: expected progress %.2f, got %.2f", tt.count, tt.percent, b.ProgressPercent)
		}
	}
}

func TestBudget_CountsBlockBoundaries(t *testing.T) {
	s := newSession(t, "<p>ab</p><p>cd</p>")
	if got := s.Budget().Count; got != 5 {
		t.Errorf("expected count 5, got %d", got)
	}
}

func TestBudget_CustomLimit(t *testing.T) {
	s := newSession(t, "<p>abcdef</p>", func(o *Options) { o.CharLimit = 5 })
	b := s.Budget()
	if !b.OverLimit || b.Remaining != -1 {
		t.Errorf("expected over limit by one, got %+v", b)
	}
}

func TestComputeBudget_ZeroLimitUsesDefault(t *testing.T) {
	for _, limit := range []int{0, -3} {
		b := ComputeBudget(0, limit)
		if b.Limit != DefaultCharLimit || b.ProgressPercent != 0 || b.Level != BudgetOK {
			t.Errorf("limit %d: expected default budget, got %+v", limit, b)
		}
		if _, err := json.Marshal(b); err != nil {
			t.Errorf("limit %d: expected budget to marshal, got %v", limit, err)
		}
	}
}

func TestProfile_RejectsDisabledKinds(t *testing.T) {
	s := newSession(t, "<p>abc</p>", func(o *Options) { o.Profile = schema.Basic })
	if err := s.SelectAll(); err != nil {
		t.Fatalf("select all: %v", err)
	}
	if s.Can(ToggleMark(schema.Underline)) {
		t.Error("expected underline unavailable in the basic profile")
	}
	if !s.Can(ToggleMark(schema.Bold)) {
		t.Error("expected bold available in the basic profile")
	}
	err := s.Dispatch(ToggleMark(schema.Underline))
	var ee *EngineError
	if !errors.As(err, &ee) {
		t.Fatalf("expected EngineError, got %v", err)
	}
	expectHTML(t, s, "<p>abc</p>")
}

func TestCan_DoesNotMutate(t *testing.T) {
	s := newSession(t, "<p>abc</p>")
	if err := s.SelectAll(); err != nil {
		t.Fatalf("select all: %v", err)
	}
	v := s.Version()
	if !s.Can(ToggleMark(schema.Bold)) {
		t.Fatal("expected bold to be applicable")
	}
	if s.Version() != v {
		t.Error("expected Can to leave the document untouched")
	}
	expectHTML(t, s, "<p>abc</p>")
}

func TestDispatch_FocusesEditor(t *testing.T) {
	s := newSession(t, "<p>abc</p>")
	s.Blur()
	if s.State().Focused {
		t.Fatal("expected blur to unfocus")
	}
	_ = s.Dispatch(Undo())
	if !s.State().Focused {
		t.Error("expected dispatch to focus even when it fails")
	}
}

func TestSelect_ClampsAndReportsFormatting(t *testing.T) {
	s := newSession(t, "<p>abc</p>")
	mustSelect(t, s, -4, 99)
	if sel := s.Selection(); sel.Anchor != 0 || sel.Head != 3 {
		t.Errorf("expected selection clamped to [0,3], got %+v", sel)
	}
}

func TestSetContent_ClearsHistory(t *testing.T) {
	var last string
	s := newSession(t, "<p>abc</p>", func(o *Options) {
		o.OnChange = func(html string) { last = html }
	})
	mustDispatch(t, s, InsertText("x"))
	if err := s.SetContent("<p>new</p>"); err != nil {
		t.Fatalf("set content: %v", err)
	}
	expectHTML(t, s, "<p>new</p>")
	if last != "<p>new</p>" {
		t.Errorf("expected change callback with new html, got %q", last)
	}
	if s.CanUndo() {
		t.Error("expected history to be cleared")
	}
}

func TestOnState_ReceivesFormatting(t *testing.T) {
	var states []State
	s := newSession(t, "<p><em>ab</em></p>", func(o *Options) {
		o.OnState = func(st State) { states = append(states, st) }
	})
	mustSelect(t, s, 1, 1)
	if len(states) != 1 {
		t.Fatalf("expected 1 state event, got %d", len(states))
	}
	if !states[0].Formatting.IsActive(schema.Italic) {
		t.Error("expected italic in the published state")
	}
}

func TestJSON_ExportsTree(t *testing.T) {
	s := newSession(t, "<p>abc</p>")
	data, err := s.JSON()
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	if !strings.Contains(string(data), `"type":"doc"`) || !strings.Contains(string(data), `"text":"abc"`) {
		t.Errorf("unexpected json %s", data)
	}
}

func TestClosedSession_RejectsOperations(t *testing.T) {
	s := newSession(t, "<p>abc</p>")
	s.Close()
	if err := s.Dispatch(ToggleMark(schema.Bold)); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed, got %v", err)
	}
	if err := s.Select(0, 1); !errors.Is(err, ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed from select, got %v", err)
	}
	if s.Can(ToggleMark(schema.Bold)) {
		t.Error("expected nothing to be possible after close")
	}
}

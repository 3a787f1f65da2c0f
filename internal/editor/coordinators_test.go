package editor

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/dgallion1/inkwell/internal/doctree"
	"github.com/dgallion1/inkwell/internal/schema"
)

type stubUploader struct {
	url   string
	err   error
	calls atomic.Int32
}

func (u *stubUploader) Upload(_ context.Context, _ string, r io.Reader) (string, error) {
	u.calls.Add(1)
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	return u.url, u.err
}

type blockingUploader struct {
	started chan struct{}
	release chan struct{}
	url     string
}

func newBlockingUploader(url string) *blockingUploader {
	return &blockingUploader{started: make(chan struct{}), release: make(chan struct{}), url: url}
}

func (u *blockingUploader) Upload(ctx context.Context, _ string, _ io.Reader) (string, error) {
	close(u.started)
	select {
	case <-u.release:
		return u.url, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

type stubEnhancer struct {
	out   string
	err   error
	calls atomic.Int32
	got   string
}

func (e *stubEnhancer) Enhance(_ context.Context, content string) (string, error) {
	e.calls.Add(1)
	e.got = content
	return e.out, e.err
}

type blockingEnhancer struct {
	started chan struct{}
	release chan struct{}
	out     string
}

func (e *blockingEnhancer) Enhance(ctx context.Context, _ string) (string, error) {
	close(e.started)
	select {
	case <-e.release:
		return e.out, nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

type noticeLog struct {
	mu      sync.Mutex
	notices []Notice
}

func (l *noticeLog) add(n Notice) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.notices = append(l.notices, n)
}

func (l *noticeLog) titles() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, n := range l.notices {
		out = append(out, n.Title)
	}
	return out
}

func TestLinkDialog_Submit(t *testing.T) {
	s := newSession(t, "<p>site</p>")
	mustSelect(t, s, 0, 4)

	if err := s.OpenLinkDialog(); err != nil {
		t.Fatalf("open: %v", err)
	}
	st := s.State()
	if !st.Dialog.Open || st.Dialog.Kind != DialogLink || st.Focused {
		t.Fatalf("expected open unfocused link dialog, got %+v focused=%v", st.Dialog, st.Focused)
	}

	if err := s.SubmitLink("https://example.com"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	st = s.State()
	if st.Dialog.Open || !st.Focused {
		t.Errorf("expected dialog closed and editor focused, got %+v focused=%v", st.Dialog, st.Focused)
	}
	if st.Formatting.Link != "https://example.com" {
		t.Errorf("expected link on the selection, got %q", st.Formatting.Link)
	}
}

func TestLinkDialog_PrefillsExistingLink(t *testing.T) {
	s := newSession(t, `<p><a href="https://x.test">link</a></p>`)
	mustSelect(t, s, 1, 3)
	if err := s.OpenLinkDialog(); err != nil {
		t.Fatalf("open: %v", err)
	}
	if got := s.State().Dialog.URL; got != "https://x.test" {
		t.Errorf("expected prefilled url, got %q", got)
	}
}

func TestLinkDialog_EmptyURLOnlyCloses(t *testing.T) {
	s := newSession(t, "<p>site</p>")
	mustSelect(t, s, 0, 4)
	if err := s.OpenLinkDialog(); err != nil {
		t.Fatalf("open: %v", err)
	}
	v := s.Version()
	if err := s.SubmitLink("   "); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if s.Version() != v {
		t.Error("expected empty url to leave the document alone")
	}
	if s.State().Dialog.Open {
		t.Error("expected dialog to close")
	}
}

func TestLinkDialog_SubmitWithoutOpen(t *testing.T) {
	s := newSession(t, "<p>site</p>")
	if err := s.SubmitLink("https://example.com"); !errors.Is(err, ErrDialogNotOpen) {
		t.Errorf("expected ErrDialogNotOpen, got %v", err)
	}
	if err := s.CancelLinkDialog(); !errors.Is(err, ErrDialogNotOpen) {
		t.Errorf("expected ErrDialogNotOpen from cancel, got %v", err)
	}
}

func TestLinkDialog_Cancel(t *testing.T) {
	s := newSession(t, "<p>site</p>")
	if err := s.OpenLinkDialog(); err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := s.CancelLinkDialog(); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if s.State().Dialog.Open {
		t.Error("expected dialog closed")
	}
	expectHTML(t, s, "<p>site</p>")
}

func TestAttachImage_Success(t *testing.T) {
	up := &stubUploader{url: "https://cdn.test/cat.png"}
	s := newSession(t, "<p>abcd</p>", func(o *Options) { o.Uploader = up })
	mustSelect(t, s, 2, 2)

	if err := s.AttachImage(context.Background(), "cat.png", strings.NewReader("png")); err != nil {
		t.Fatalf("attach: %v", err)
	}
	expectHTML(t, s, `<p>ab</p><img src="https://cdn.test/cat.png" alt="cat.png"/><p>cd</p>`)
	if got := s.Selection(); got.Head != 5 || got.Anchor != 5 {
		t.Errorf("expected caret at the start of the split-off paragraph, got %+v", got)
	}
	if up.calls.Load() != 1 {
		t.Errorf("expected one upload, got %d", up.calls.Load())
	}
}

func TestAttachImage_FailureLeavesDocument(t *testing.T) {
	var log noticeLog
	up := &stubUploader{err: errors.New("boom")}
	s := newSession(t, "<p>ab</p>", func(o *Options) {
		o.Uploader = up
		o.OnNotice = log.add
	})
	v := s.Version()

	err := s.AttachImage(context.Background(), "cat.png", strings.NewReader("png"))
	var ne *NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
	if s.Version() != v {
		t.Error("expected no document change")
	}
	if got := log.titles(); len(got) != 1 || got[0] != "Upload Failed" {
		t.Errorf("expected Upload Failed notice, got %v", got)
	}
}

func TestAttachImage_DisabledKind(t *testing.T) {
	up := &stubUploader{url: "https://cdn.test/cat.png"}
	s := newSession(t, "<p>ab</p>", func(o *Options) {
		o.Uploader = up
		o.Profile = schema.NewProfile("text", schema.Bold)
	})
	err := s.AttachImage(context.Background(), "cat.png", strings.NewReader("png"))
	var ee *EngineError
	if !errors.As(err, &ee) {
		t.Fatalf("expected EngineError, got %v", err)
	}
	if up.calls.Load() != 0 {
		t.Error("expected no upload for a disabled kind")
	}
}

func TestAttachImage_NoUploader(t *testing.T) {
	s := newSession(t, "<p>ab</p>")
	if err := s.AttachImage(context.Background(), "a.png", strings.NewReader("")); !errors.Is(err, ErrNoUploader) {
		t.Errorf("expected ErrNoUploader, got %v", err)
	}
}

func TestAttachImage_InsertsAtLiveSelection(t *testing.T) {
	up := newBlockingUploader("https://cdn.test/cat.png")
	s := newSession(t, "<p>ab</p>", func(o *Options) { o.Uploader = up })

	done := make(chan error, 1)
	go func() {
		done <- s.AttachImage(context.Background(), "cat.png", strings.NewReader("png"))
	}()
	<-up.started

	if got := s.State().Uploads; got != 1 {
		t.Errorf("expected one pending upload, got %d", got)
	}
	// Editing continues while the upload is pending.
	mustDispatch(t, s, InsertText("z"))
	mustSelect(t, s, 3, 3)

	close(up.release)
	if err := <-done; err != nil {
		t.Fatalf("attach: %v", err)
	}
	blocks := s.Document().Blocks
	if len(blocks) != 2 || blocks[0].Inline[0].Text != "zab" || blocks[1].Type != doctree.TypeImage {
		t.Fatalf("expected image after typed text, got %s", s.HTML())
	}
	if got := s.State().Uploads; got != 0 {
		t.Errorf("expected no pending uploads, got %d", got)
	}
}

func TestAttachImage_CloseDiscardsPending(t *testing.T) {
	up := newBlockingUploader("https://cdn.test/cat.png")
	s := newSession(t, "<p>ab</p>", func(o *Options) { o.Uploader = up })

	done := make(chan error, 1)
	go func() {
		done <- s.AttachImage(context.Background(), "cat.png", strings.NewReader("png"))
	}()
	<-up.started
	s.Close()

	if err := <-done; !errors.Is(err, ErrSessionClosed) {
		t.Errorf("expected ErrSessionClosed, got %v", err)
	}
	expectHTML(t, s, "<p>ab</p>")
}

func TestEnhance_ReplacesDocument(t *testing.T) {
	var log noticeLog
	var changed string
	enh := &stubEnhancer{out: "<p>Hi</p>"}
	s := newSession(t, "<p>hello</p>", func(o *Options) {
		o.Enhancer = enh
		o.OnNotice = log.add
		o.OnChange = func(html string) { changed = html }
	})
	mustDispatch(t, s, InsertText("!"))

	if err := s.Enhance(context.Background()); err != nil {
		t.Fatalf("enhance: %v", err)
	}
	expectHTML(t, s, "<p>Hi</p>")
	if enh.got != "!hello" {
		t.Errorf("expected plain text sent, got %q", enh.got)
	}
	if changed != "<p>Hi</p>" {
		t.Errorf("expected change callback, got %q", changed)
	}
	if s.CanUndo() {
		t.Error("expected history cleared by the replacement")
	}
	if got := s.State().Enhancement; got.Phase != PhaseIdle || got.Last != OutcomeApplied {
		t.Errorf("expected idle after an applied request, got %+v", got)
	}
	if got := log.titles(); len(got) != 1 || got[0] != "Content Enhanced" {
		t.Errorf("expected Content Enhanced notice, got %v", got)
	}
}

func TestEnhance_EmptyDocument(t *testing.T) {
	var log noticeLog
	enh := &stubEnhancer{out: "<p>Hi</p>"}
	s := newSession(t, "", func(o *Options) {
		o.Enhancer = enh
		o.OnNotice = log.add
	})
	err := s.Enhance(context.Background())
	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if enh.calls.Load() != 0 {
		t.Error("expected no network call for empty content")
	}
	if got := log.titles(); len(got) != 1 || got[0] != "Empty Content" {
		t.Errorf("expected Empty Content notice, got %v", got)
	}
}

func TestEnhance_FailureKeepsDocument(t *testing.T) {
	var log noticeLog
	enh := &stubEnhancer{err: errors.New("503")}
	s := newSession(t, "<p>hello</p>", func(o *Options) {
		o.Enhancer = enh
		o.OnNotice = log.add
	})
	err := s.Enhance(context.Background())
	var ne *NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
	expectHTML(t, s, "<p>hello</p>")
	if got := s.State().Enhancement; got.Phase != PhaseIdle || got.Last != OutcomeFailed {
		t.Errorf("expected idle after a failed request, got %+v", got)
	}
	if got := log.titles(); len(got) != 1 || got[0] != "Enhancement Failed" {
		t.Errorf("expected Enhancement Failed notice, got %v", got)
	}
}

func TestEnhance_SanitizesAndConvertsMarkdown(t *testing.T) {
	tests := []struct {
		name string
		out  string
		want string
	}{
		{"script dropped", "<p>ok</p><script>alert(1)</script>", "<p>ok</p>"},
		{"fenced markdown", "```markdown\n# Title\n\nSome *text*\n```", "<h1>Title</h1><p>Some <em>text</em></p>"},
		{"fenced html", "```html\n<h2>T</h2>\n```", "<h2>T</h2>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newSession(t, "<p>hello</p>", func(o *Options) { o.Enhancer = &stubEnhancer{out: tt.out} })
			if err := s.Enhance(context.Background()); err != nil {
				t.Fatalf("enhance: %v", err)
			}
			expectHTML(t, s, tt.want)
		})
	}
}

func TestEnhance_SingleFlight(t *testing.T) {
	enh := &blockingEnhancer{started: make(chan struct{}), release: make(chan struct{}), out: "<p>done</p>"}
	s := newSession(t, "<p>hello</p>", func(o *Options) { o.Enhancer = enh })

	done := make(chan error, 1)
	go func() { done <- s.Enhance(context.Background()) }()
	<-enh.started

	if !s.State().Enhancement.InFlight() {
		t.Error("expected enhancement in flight")
	}
	if err := s.Enhance(context.Background()); !errors.Is(err, ErrEnhancementInFlight) {
		t.Errorf("expected ErrEnhancementInFlight, got %v", err)
	}
	close(enh.release)
	if err := <-done; err != nil {
		t.Fatalf("enhance: %v", err)
	}
	expectHTML(t, s, "<p>done</p>")
}

func TestEnhance_StaleResponseDiscarded(t *testing.T) {
	enh := &blockingEnhancer{started: make(chan struct{}), release: make(chan struct{}), out: "<p>late</p>"}
	s := newSession(t, "<p>hello</p>", func(o *Options) { o.Enhancer = enh })

	done := make(chan error, 1)
	go func() { done <- s.Enhance(context.Background()) }()
	<-enh.started

	if err := s.SetContent("<p>new</p>"); err != nil {
		t.Fatalf("set content: %v", err)
	}
	close(enh.release)
	if err := <-done; err != nil {
		t.Fatalf("enhance: %v", err)
	}
	expectHTML(t, s, "<p>new</p>")
	if got := s.State().Enhancement.Phase; got != PhaseIdle {
		t.Errorf("expected phase idle, got %s", got)
	}
}

package editor

import (
	"context"
	"strings"

	"github.com/dgallion1/inkwell/internal/markup"
)

// Enhancer rewrites plain text into richer HTML (or markdown).
type Enhancer interface {
	Enhance(ctx context.Context, content string) (string, error)
}

// EnhancePhase is the lifecycle of an enhancement request. A request
// moves from idle to requesting and back to idle once it resolves.
type EnhancePhase string

const (
	PhaseIdle       EnhancePhase = "idle"
	PhaseRequesting EnhancePhase = "requesting"
)

// EnhanceOutcome is how a resolved request ended.
type EnhanceOutcome string

const (
	OutcomeApplied EnhanceOutcome = "applied"
	OutcomeFailed  EnhanceOutcome = "failed"
)

// EnhancementState is the enhancement coordinator's view for the host.
type EnhancementState struct {
	Phase EnhancePhase `json:"phase"`
	// Last is the outcome of the most recent resolved request, if any.
	Last EnhanceOutcome `json:"last,omitempty"`
	// Seq identifies the latest request; responses for older ones are dropped.
	Seq uint64 `json:"seq"`
}

// InFlight reports whether a request is awaiting its response.
func (e EnhancementState) InFlight() bool { return e.Phase == PhaseRequesting }

// Enhance sends the document's plain text to the enhancer and replaces
// the whole document with the sanitised result. Only one request may be
// in flight. An empty document is rejected without a network call.
func (s *Session) Enhance(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.enh.InFlight() {
		s.mu.Unlock()
		return ErrEnhancementInFlight
	}
	enhancer := s.opt.Enhancer
	if enhancer == nil {
		s.mu.Unlock()
		return ErrNoEnhancer
	}
	text := s.doc.PlainText()
	if strings.TrimSpace(text) == "" {
		s.finish(events{notices: []Notice{noticeEmptyContent}})
		return &ValidationError{Field: "content", Message: "document is empty"}
	}
	s.enh.Seq++
	seq := s.enh.Seq
	s.enh.Phase = PhaseRequesting
	s.finish(events{})

	s.log.Info("enhancement requested", "seq", seq, "chars", len([]rune(text)))
	ctx, stop := s.bind(ctx)
	out, err := enhancer.Enhance(ctx, text)
	stop()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.log.Debug("enhancement resolved after close, discarded", "seq", seq)
		return ErrSessionClosed
	}
	if seq != s.enh.Seq {
		cur := s.enh.Seq
		s.mu.Unlock()
		s.log.Info("stale enhancement discarded", "seq", seq, "current", cur)
		return nil
	}
	var ev events
	if err == nil {
		err = s.applyEnhancedLocked(out, &ev)
	}
	s.enh.Phase = PhaseIdle
	if err != nil {
		s.enh.Last = OutcomeFailed
		s.log.Error("enhancement failed", "seq", seq, "error", err)
		ev.notices = append(ev.notices, noticeEnhanceFailed)
		s.finish(ev)
		return asNetworkError("enhance", err)
	}
	s.enh.Last = OutcomeApplied
	ev.notices = append(ev.notices, noticeEnhanced)
	s.finish(ev)
	return nil
}

// applyEnhancedLocked turns the enhancer output into a document and
// swaps it in. Nothing changes if the output cannot be used.
func (s *Session) applyEnhancedLocked(out string, ev *events) error {
	html, err := markup.ToHTML(out)
	if err != nil {
		return err
	}
	doc, err := markup.ParseHTMLString(markup.Sanitize(html))
	if err != nil {
		return err
	}
	s.replaceLocked(doc, ev)
	return nil
}

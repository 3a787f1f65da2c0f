package enhance

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	minMaxTokens = 1024
	maxMaxTokens = 4096

	// callTimeout bounds a shared model call, which no single caller owns.
	callTimeout = 2 * time.Minute
)

// Service answers enhancement requests. Identical concurrent requests
// share one model call, and results are cached when a cache is set.
type Service struct {
	model    Model
	cache    Cache
	cacheTTL time.Duration
	stats    *Stats
	log      *slog.Logger
	group    singleflight.Group
}

// Option configures a Service.
type Option func(*Service)

func WithCache(c Cache, ttl time.Duration) Option {
	return func(s *Service) {
		s.cache, s.cacheTTL = c, ttl
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.log = l }
}

func NewService(model Model, opts ...Option) *Service {
	s := &Service{
		model: model,
		stats: NewStats(time.Hour),
		log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Enhance rewrites content and returns sanitized HTML.
func (s *Service) Enhance(ctx context.Context, content string) (string, error) {
	if err := ValidateInput(content); err != nil {
		return "", err
	}
	content = strings.TrimSpace(content)
	if LooksLikeInjection(content) {
		s.log.Warn("enhance input looks like prompt injection", "chars", len(content))
	}
	key := CacheKey(s.model.Name(), content)

	if s.cache != nil {
		if v, ok, err := s.cache.Get(ctx, key); err != nil {
			s.log.Warn("enhance cache get failed", "error", err)
		} else if ok {
			s.stats.RecordCacheHit()
			return v, nil
		}
	}

	ch := s.group.DoChan(key, func() (any, error) {
		callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), callTimeout)
		defer cancel()
		return s.complete(callCtx, key, content)
	})
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		if res.Shared {
			s.log.Debug("enhance request shared", "key", key[:12])
		}
		return res.Val.(string), nil
	}
}

func (s *Service) complete(ctx context.Context, key, content string) (string, error) {
	start := time.Now()
	out, err := s.model.Complete(ctx, SystemPrompt, UserPrompt(content), MaxTokensFor(content))
	s.stats.Record(time.Since(start), err != nil)
	if err != nil {
		return "", fmt.Errorf("model %s: %w", s.model.Name(), err)
	}
	html, err := CleanOutput(out)
	if err != nil {
		return "", fmt.Errorf("clean output: %w", err)
	}
	s.log.Info("content enhanced", "model", s.model.Name(), "in_tokens", EstimateTokens(content),
		"out_chars", len(html), "ms", time.Since(start).Milliseconds())

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, html, s.cacheTTL); err != nil {
			s.log.Warn("enhance cache set failed", "error", err)
		}
	}
	return html, nil
}

// Stats returns the latency snapshot with the model name filled in.
func (s *Service) Stats() StatsSnapshot {
	snap := s.stats.Snapshot()
	snap.Model = s.model.Name()
	return snap
}

// Close releases the model client.
func (s *Service) Close() {
	s.model.Close()
}

// EstimateTokens gives a rough token count from the word count.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	words := len(strings.Fields(text))
	tokens := int(float64(words) * 1.33)
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}

// MaxTokensFor sizes the reply budget from the input: room for an
// expanded tutorial, within fixed bounds.
func MaxTokensFor(content string) int {
	return min(max(EstimateTokens(content)*8, minMaxTokens), maxMaxTokens)
}

// Package enhance is the enhancement service: it asks a language model
// to rewrite editor content as an educational piece and returns cleaned,
// sanitized HTML.
package enhance

import (
	"context"
	"fmt"
	"net/http"
	"strings"
)

// Model is a chat-style language model.
type Model interface {
	Complete(ctx context.Context, system, user string, maxTokens int) (string, error)
	Name() string
	Close()
}

// ModelConfig selects and configures a provider.
type ModelConfig struct {
	Provider string // "openai" or "anthropic"

	AnthropicAPIKey string
	AnthropicModel  string

	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string
}

// NewModel builds the model client for cfg.Provider.
func NewModel(cfg ModelConfig) (Model, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "openai":
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("openai provider requires OPENAI_API_KEY")
		}
		return NewOpenAIClient(cfg.OpenAIAPIKey, cfg.OpenAIModel, cfg.OpenAIBaseURL), nil
	case "anthropic":
		if cfg.AnthropicAPIKey == "" {
			return nil, fmt.Errorf("anthropic provider requires ANTHROPIC_API_KEY")
		}
		return NewClaudeClient(cfg.AnthropicAPIKey, cfg.AnthropicModel), nil
	}
	return nil, fmt.Errorf("unknown llm provider %q", cfg.Provider)
}

// RetryableError indicates a transient upstream failure (rate limit or
// server error). It is reported, not retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

func classifyStatus(provider string, status int, body []byte) error {
	if status == http.StatusTooManyRequests || status >= 500 {
		return &RetryableError{StatusCode: status, Message: string(body)}
	}
	if status != http.StatusOK {
		return fmt.Errorf("%s api status %d: %s", provider, status, truncate(string(body), 200))
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

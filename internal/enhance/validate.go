package enhance

import (
	"errors"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/dgallion1/inkwell/internal/markup"
)

// MaxInputRunes bounds the content sent to the model.
const MaxInputRunes = 20000

var (
	ErrEmptyContent  = errors.New("content is empty")
	ErrContentTooBig = errors.New("content is too long")
	ErrEmptyOutput   = errors.New("model returned no usable content")
)

var injectionPattern = regexp.MustCompile(
	`(?i)(ignore\s+(previous|all|above)|system\s*prompt|you\s+are\s+now|` +
		`act\s+as\s+|pretend\s+|forget\s+(everything|all)|override|` +
		`new\s+instructions)`,
)

// ValidateInput checks content before it is sent to the model.
func ValidateInput(content string) error {
	text := strings.TrimSpace(content)
	if text == "" {
		return ErrEmptyContent
	}
	if utf8.RuneCountInString(text) > MaxInputRunes {
		return ErrContentTooBig
	}
	return nil
}

// LooksLikeInjection reports phrasing that tries to steer the model away
// from the system prompt.
func LooksLikeInjection(content string) bool {
	return injectionPattern.MatchString(content)
}

// CleanOutput turns a model reply into sanitized HTML. Fenced or
// markdown replies are converted first.
func CleanOutput(out string) (string, error) {
	html, err := markup.ToHTML(out)
	if err != nil {
		return "", err
	}
	html = strings.TrimSpace(markup.Sanitize(html))
	doc, err := markup.ParseHTMLString(html)
	if err != nil {
		return "", err
	}
	if doc.IsEmpty() {
		return "", ErrEmptyOutput
	}
	return markup.RenderHTML(doc), nil
}

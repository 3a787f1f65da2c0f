package markup

import (
	"bytes"
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	md = goldmark.New(goldmark.WithExtensions(extension.Strikethrough))

	fenceRe = regexp.MustCompile("(?s)^```(?:html|markdown|md)?\\s*(.*?)\\s*```$")
	tagRe   = regexp.MustCompile(`(?i)<\s*/?\s*(p|h[1-6]|ul|ol|li|pre|code|blockquote|strong|em|b|i|u|s|br|hr|a|img|div|span|mark|sub|sup)\b[^>]*>`)
)

// MarkdownToHTML converts markdown source to HTML.
func MarkdownToHTML(src []byte) (string, error) {
	var buf bytes.Buffer
	if err := md.Convert(src, &buf); err != nil {
		return "", fmt.Errorf("convert markdown: %w", err)
	}
	return buf.String(), nil
}

// LooksLikeHTML reports whether s already carries block or emphasis tags.
func LooksLikeHTML(s string) bool {
	return tagRe.MatchString(s)
}

// StripCodeFence removes a single surrounding ``` fence, which language
// models like to wrap markup in.
func StripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if m := fenceRe.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	return s
}

// ToHTML normalizes model or user output to HTML: fences are stripped
// and text without markup is treated as markdown.
func ToHTML(s string) (string, error) {
	s = StripCodeFence(s)
	if LooksLikeHTML(s) {
		return s, nil
	}
	return MarkdownToHTML([]byte(s))
}

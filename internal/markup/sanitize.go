package markup

import (
	"regexp"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	policyOnce sync.Once
	policy     *bluemonday.Policy
)

// Policy returns the allow-list applied to untrusted markup: exactly the
// elements and attributes the document schema can represent.
func Policy() *bluemonday.Policy {
	policyOnce.Do(func() {
		p := bluemonday.NewPolicy()
		p.AllowElements(
			"p", "h1", "h2", "h3", "h4", "h5", "h6",
			"blockquote", "ul", "ol", "li", "pre", "code", "hr", "br",
			"strong", "b", "em", "i", "u", "s", "strike", "del",
			"sub", "sup", "mark", "span",
		)
		p.AllowURLSchemes("http", "https", "mailto", "tel")
		p.AllowRelativeURLs(true)
		p.RequireParseableURLs(true)
		p.AllowAttrs("href").OnElements("a")
		p.AllowAttrs("src", "alt", "title").OnElements("img")
		p.AllowAttrs("start").Matching(bluemonday.Integer).OnElements("ol")
		p.AllowAttrs("class").Matching(regexp.MustCompile(`^language-[\w+#.-]+$`)).OnElements("code")
		p.AllowAttrs("data-color").Matching(safeColour).OnElements("mark")
		p.AllowStyles("color").OnElements("span")
		p.AllowStyles("background-color", "color").OnElements("mark")
		p.AllowStyles("text-align").MatchingEnum("left", "center", "right", "justify").
			OnElements("p", "h1", "h2", "h3", "h4", "h5", "h6")
		policy = p
	})
	return policy
}

// Sanitize strips everything outside the allow-list from s.
func Sanitize(s string) string {
	return Policy().Sanitize(s)
}

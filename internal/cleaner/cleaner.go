package cleaner

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Cleaner sanitizes HTML content using Bluemonday
type Cleaner struct {
	policy *bluemonday.Policy
}

// NewCleaner creates a new HTML cleaner with a safe policy that keeps
// basic formatting for job descriptions
func NewCleaner() *Cleaner {
	policy := bluemonday.NewPolicy()

	policy.AllowElements("p", "br", "div", "span")
	policy.AllowElements("strong", "b", "em", "i", "u")
	policy.AllowElements("ul", "ol", "li")
	policy.AllowElements("h1", "h2", "h3", "h4", "h5", "h6")

	// Allow links but strip javascript:
	policy.AllowAttrs("href").OnElements("a")
	policy.AllowRelativeURLs(true)
	policy.RequireParseableURLs(true)
	policy.AllowURLSchemes("http", "https", "mailto")

	return &Cleaner{policy: policy}
}

// NewStrictCleaner creates a cleaner that strips ALL HTML
func NewStrictCleaner() *Cleaner {
	return &Cleaner{policy: bluemonday.StrictPolicy()}
}

// Clean sanitizes HTML content
func (c *Cleaner) Clean(htmlContent string) string {
	return c.policy.Sanitize(htmlContent)
}

// CleanToText removes all HTML and returns plain text with entities
// decoded and whitespace collapsed
func (c *Cleaner) CleanToText(htmlContent string) string {
	// Some sources double-escape their markup; unescape before
	// stripping so tags are removed rather than kept as text, and
	// after so entity references read as plain text.
	strict := bluemonday.StrictPolicy()
	text := strict.Sanitize(html.UnescapeString(htmlContent))
	text = html.UnescapeString(text)

	text = strings.ReplaceAll(text, "\n\n\n", "\n\n")
	text = strings.TrimSpace(text)

	return text
}

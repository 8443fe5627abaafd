// Package htmlsanitize cleans user-supplied text before it is stored.
// Project descriptions keep a small set of formatting tags; cover letters
// and other short fields are reduced to plain text.
package htmlsanitize

import (
	"html/template"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	richPolicy  *bluemonday.Policy
	plainPolicy *bluemonday.Policy
	policyOnce  sync.Once
)

func policies() (rich, plain *bluemonday.Policy) {
	policyOnce.Do(func() {
		// Descriptions are shown inside listing cards, so no images,
		// tables or top-level headings.
		richPolicy = bluemonday.NewPolicy()
		richPolicy.AllowStandardURLs()
		richPolicy.AllowElements(
			"p", "br", "strong", "em", "b", "i", "u", "s", "mark", "sub", "sup",
			"ul", "ol", "li", "blockquote", "code", "pre", "h3", "h4",
		)
		richPolicy.AllowAttrs("href").OnElements("a")
		richPolicy.RequireNoFollowOnLinks(true)
		richPolicy.AddTargetBlankToFullyQualifiedLinks(true)

		plainPolicy = bluemonday.StrictPolicy()
	})
	return richPolicy, plainPolicy
}

// Sanitize removes dangerous markup from rich text and keeps basic
// formatting such as paragraphs, emphasis, lists and links.
func Sanitize(html string) string {
	if html == "" {
		return ""
	}
	rich, _ := policies()
	return strings.TrimSpace(rich.Sanitize(html))
}

// Description prepares a project description for storage. Plain text is
// converted to paragraphs first so line breaks survive.
func Description(content string) string {
	content = strings.TrimSpace(content)
	if content == "" {
		return ""
	}
	if IsPlainText(content) {
		return PlainTextToHTML(content)
	}
	return Sanitize(content)
}

// Strip removes every tag. The result is HTML-escaped text, safe to embed
// in a page as-is.
func Strip(s string) string {
	if s == "" {
		return ""
	}
	_, plain := policies()
	return strings.TrimSpace(plain.Sanitize(s))
}

// IsPlainText reports whether content has no HTML tags.
func IsPlainText(content string) bool {
	if content == "" {
		return true
	}
	return !strings.Contains(content, "<") || !strings.Contains(content, ">")
}

// PlainTextToHTML escapes text and turns newlines into <br> inside a <p>.
func PlainTextToHTML(text string) string {
	if text == "" {
		return ""
	}
	escaped := template.HTMLEscapeString(text)
	escaped = strings.ReplaceAll(escaped, "\r\n", "\n")
	escaped = strings.ReplaceAll(escaped, "\n", "<br>")
	return "<p>" + escaped + "</p>"
}

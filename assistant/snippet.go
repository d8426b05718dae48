package assistant

import (
	"strings"

	"github.com/jaytaylor/html2text"
	"github.com/microcosm-cc/bluemonday"
)

var (
	htmlPolicy      = bluemonday.UGCPolicy()
	stripTagsPolicy = bluemonday.StripTagsPolicy()
)

// ExcerptFromHTML derives a plain-text excerpt from an HTML message body.
// The HTML is sanitized first so script/style content never leaks into the
// prompt; if text conversion fails the sanitized text fallback is used.
func ExcerptFromHTML(rawHTML string) string {
	cleaned := htmlPolicy.Sanitize(rawHTML)

	text, err := html2text.FromString(cleaned, html2text.Options{TextOnly: true})
	if err != nil {
		return strings.TrimSpace(stripTagsPolicy.Sanitize(rawHTML))
	}
	return strings.TrimSpace(text)
}

// Package htmlsanitize cleans user-entered free text before it is stored.
package htmlsanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var strict = bluemonday.StrictPolicy()

// Text strips every tag (and script or style content) from s and returns
// plain text. Entities are decoded because templates escape on output.
func Text(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(strict.Sanitize(s)))
}

// TextMax is Text truncated to at most max runes.
func TextMax(s string, max int) string {
	out := Text(s)
	if max <= 0 {
		return out
	}
	r := []rune(out)
	if len(r) > max {
		return strings.TrimSpace(string(r[:max]))
	}
	return out
}

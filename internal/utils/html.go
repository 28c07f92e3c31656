package utils

import (
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// Policies are safe for concurrent use once built.
var (
	ugcPolicy    = bluemonday.UGCPolicy()
	strictPolicy = bluemonday.StrictPolicy()
)

// SanitizeHTML keeps the formatting an editor may paste into a script or
// story body and drops scripts, styles and event handlers.
func SanitizeHTML(s string) string {
	return strings.TrimSpace(ugcPolicy.Sanitize(s))
}

// StripHTML removes all markup, leaving plain text.
func StripHTML(s string) string {
	return strings.TrimSpace(strictPolicy.Sanitize(s))
}

// WordCount counts whitespace separated words of the plain text of s.
func WordCount(s string) int {
	return len(strings.Fields(StripHTML(s)))
}

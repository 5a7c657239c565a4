// Package sanitize cleans user supplied free text before it is stored or
// broadcast, and extracts mention candidates from chat text.
package sanitize

import (
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

//nolint:gochecknoglobals // policies are immutable and safe for concurrent use
var (
	strictPolicy = bluemonday.StrictPolicy()
	richPolicy   = bluemonday.UGCPolicy()

	// Email-shaped substrings are treated as mention candidates. This mirrors
	// the platform's historical behaviour; it both over- and under-matches
	// compared to a structured @mention syntax.
	mentionPattern = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
)

// Plain strips all markup from free text and trims surrounding whitespace.
// Applied to every user supplied string before storage or broadcast.
func Plain(s string) string {
	return strings.TrimSpace(strictPolicy.Sanitize(s))
}

// Rich keeps a safe subset of user-generated-content markup. Used for fields
// that may legitimately carry formatting, such as PR comment bodies.
func Rich(s string) string {
	return strings.TrimSpace(richPolicy.Sanitize(s))
}

// Mentions returns the distinct, lower-cased email-shaped substrings found in
// text, in order of first appearance.
func Mentions(text string) []string {
	matches := mentionPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(matches))
	out := make([]string, 0, len(matches))
	for _, m := range matches {
		m = strings.ToLower(m)
		if seen[m] {
			continue
		}
		seen[m] = true
		out = append(out, m)
	}
	return out
}

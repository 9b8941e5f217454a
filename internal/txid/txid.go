// Package txid pulls a transaction identifier out of free text.
package txid

import (
	"regexp"
	"strings"
)

// Format describes the canonical transaction id shape, for user-facing
// messages when no id can be resolved.
const Format = "TX######### (e.g. TX651750504)"

// patterns are tried in order; the first pattern that matches wins, even if
// a later pattern would match earlier in the text. Domain-specific patterns
// come first so generic catch-alls cannot shadow them.
var patterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(TX\d{9})\b`),
	regexp.MustCompile(`\b(TX\d+)\b`),
	regexp.MustCompile(`(?i)(?:transaction|txn|tx)[_-]?id[\s:=]+(TX\d+)`),
	regexp.MustCompile(`(?i)(?:transaction|txn|tx)[_-]?id[\s:=]+([a-zA-Z0-9-]+)`),
	regexp.MustCompile(`(?i)id[\s:=]+([a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12})`),
	regexp.MustCompile(`(?i)([a-f0-9]{8}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{4}-[a-f0-9]{12})`),
	regexp.MustCompile(`\b([A-Z0-9]{10,})\b`),
}

// prefixed is the number of leading patterns that only match the TX prefix.
const prefixed = 3

// Extract returns the first transaction id found in text.
func Extract(text string) (string, bool) {
	return extract(text, len(patterns))
}

// ExtractPrefixed is like Extract but only considers TX-prefixed ids. It is
// used where a generic alphanumeric token is too weak a signal.
func ExtractPrefixed(text string) (string, bool) {
	return extract(text, prefixed)
}

func extract(text string, n int) (string, bool) {
	if strings.TrimSpace(text) == "" {
		return "", false
	}
	for _, re := range patterns[:n] {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		if id := strings.TrimSpace(m[1]); id != "" {
			return id, true
		}
	}
	return "", false
}

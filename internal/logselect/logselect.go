// Package logselect picks a bounded, high-signal subset of a transaction's
// log lines so the evidence fits the LLM context window.
package logselect

import "strings"

// Default selection parameters.
const (
	DefaultHead     = 15
	DefaultTail     = 15
	DefaultBefore   = 5
	DefaultAfter    = 3
	DefaultMaxChars = 10000 // roughly 2500 tokens
)

// Keywords mark lines that usually carry a significant event. Matching is
// case-sensitive; common case variants are listed explicitly.
var Keywords = []string{
	"ERROR", "WARN", "FATAL", "Exception", "exception", "timeout",
	"TIMEOUT", "failed", "FAILED", "failure", "FAILURE", "rollback", "ROLLBACK",
}

// Options tunes a selection. Every field is used as given: a zero window
// keeps no lines on that side and a MaxChars of zero or less keeps nothing.
// Start from DefaultOptions to change a single field.
type Options struct {
	Head     int
	Tail     int
	Before   int
	After    int
	MaxChars int
}

// DefaultOptions returns the default windows with the given budget.
func DefaultOptions(maxChars int) Options {
	return Options{
		Head:     DefaultHead,
		Tail:     DefaultTail,
		Before:   DefaultBefore,
		After:    DefaultAfter,
		MaxChars: maxChars,
	}
}

// Stats describes the outcome of a selection, for logging.
type Stats struct {
	Total     int
	Marked    int
	Kept      int
	Chars     int
	Truncated bool
}

// Select returns the kept lines of lines in their original order, stopping
// for good at the first kept line that would push the total past maxChars.
func Select(lines []string, maxChars int) []string {
	out, _ := SelectWith(lines, DefaultOptions(maxChars))
	return out
}

// SelectWith is Select with explicit options and selection statistics.
//
// A line is kept when it is among the first Head or last Tail lines, or
// within [i-Before, i+After] of a line containing a keyword. Empty lines are
// never emitted and never match a keyword.
func SelectWith(lines []string, opts Options) ([]string, Stats) {
	n := len(lines)
	stats := Stats{Total: n}
	if n == 0 || opts.MaxChars <= 0 {
		stats.Truncated = n > 0
		return []string{}, stats
	}
	opts.Head = max(opts.Head, 0)
	opts.Tail = max(opts.Tail, 0)
	opts.Before = max(opts.Before, 0)
	opts.After = max(opts.After, 0)

	keep := make([]bool, n)
	for i := 0; i < min(opts.Head, n); i++ {
		keep[i] = true
	}
	for i := max(n-opts.Tail, 0); i < n; i++ {
		keep[i] = true
	}
	for i, line := range lines {
		if !significant(line) {
			continue
		}
		lo := max(i-opts.Before, 0)
		hi := min(i+opts.After, n-1)
		for j := lo; j <= hi; j++ {
			keep[j] = true
		}
	}

	out := make([]string, 0, n)
	for i, line := range lines {
		if !keep[i] {
			continue
		}
		stats.Marked++
		if line == "" || stats.Truncated {
			continue
		}
		if stats.Chars+len(line) > opts.MaxChars {
			stats.Truncated = true
			continue
		}
		out = append(out, line)
		stats.Chars += len(line)
	}
	stats.Kept = len(out)
	return out, stats
}

func significant(line string) bool {
	if line == "" {
		return false
	}
	for _, kw := range Keywords {
		if strings.Contains(line, kw) {
			return true
		}
	}
	return false
}

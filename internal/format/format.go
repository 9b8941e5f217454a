// Package format turns agent output into a safe HTML fragment.
package format

import (
	"context"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/zulandar/sensei/internal/llm"
	"github.com/zulandar/sensei/internal/logger"
)

const systemPrompt = `You are an HTML formatter. Convert the given plain text or markdown into clean, safe HTML.
- Preserve headings, lists and paragraphs.
- Use <p>, <ul>/<ol>, <li>, <strong>/<em> where appropriate.
- Do not invent content. Do not wrap the result in html or body tags.
- Return only the HTML fragment.`

var (
	markupTokens = []string{"<p>", "<ul>", "<li>", "<ol>"}
	orderedRe    = regexp.MustCompile(`^\d+\.\s+`)
	fenceRe      = regexp.MustCompile("(?s)^```[a-zA-Z]*\\s*\n(.*?)\n?```$")
)

// Formatter converts text to markup, trying the LLM first and the local
// converter when that fails.
type Formatter struct {
	llm llm.Completer
}

// New creates a Formatter. A nil completer always formats locally.
func New(c llm.Completer) *Formatter {
	if c == nil {
		c = llm.Unconfigured{}
	}
	return &Formatter{llm: c}
}

// Format returns raw as an HTML fragment. Text that already contains
// paragraph or list markup is returned byte for byte, so formatting is
// idempotent.
func (f *Formatter) Format(ctx context.Context, raw string) string {
	if IsMarkup(raw) {
		return raw
	}
	text := Normalize(raw)
	if strings.TrimSpace(text) == "" {
		return text
	}
	out, err := f.remote(ctx, text)
	if err != nil {
		logger.Warn("formatter fell back to local conversion", "err", err)
		return FormatLocal(text)
	}
	return out
}

func (f *Formatter) remote(ctx context.Context, text string) (string, error) {
	out, err := f.llm.Complete(ctx, llm.Request{
		System:      systemPrompt,
		User:        text,
		Temperature: llm.Float(0),
	})
	if err != nil {
		return "", err
	}
	out = strings.TrimSpace(out)
	if m := fenceRe.FindStringSubmatch(out); m != nil {
		out = strings.TrimSpace(m[1])
	}
	if !IsMarkup(out) {
		return "", fmt.Errorf("format: llm output has no paragraph or list markup")
	}
	return out, nil
}

// Normalize converts CRLF line endings and bullet glyphs to "- " lists.
func Normalize(raw string) string {
	text := strings.ReplaceAll(raw, "\r\n", "\n")
	return strings.ReplaceAll(text, "•", "- ")
}

// IsMarkup reports whether text already carries paragraph or list tags.
func IsMarkup(text string) bool {
	for _, tok := range markupTokens {
		if strings.Contains(text, tok) {
			return true
		}
	}
	return false
}

// FormatLocal converts text to HTML without any external call. Blank lines
// separate paragraphs, "- " lines form unordered lists and "N. " lines form
// ordered lists. All text is escaped.
func FormatLocal(raw string) string {
	var b strings.Builder
	var para []string
	list := "" // "ul", "ol" or none

	closeList := func() {
		if list != "" {
			b.WriteString("</" + list + ">")
			list = ""
		}
	}
	flushPara := func() {
		if len(para) > 0 {
			b.WriteString("<p>" + strings.Join(para, "<br>") + "</p>")
			para = para[:0]
		}
	}
	openList := func(kind string) {
		flushPara()
		if list != kind {
			closeList()
			b.WriteString("<" + kind + ">")
			list = kind
		}
	}

	for _, line := range strings.Split(Normalize(raw), "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			flushPara()
			closeList()
		case strings.HasPrefix(trimmed, "- "):
			openList("ul")
			b.WriteString("<li>" + html.EscapeString(strings.TrimSpace(trimmed[2:])) + "</li>")
		case orderedRe.MatchString(trimmed):
			openList("ol")
			b.WriteString("<li>" + html.EscapeString(orderedRe.ReplaceAllString(trimmed, "")) + "</li>")
		default:
			closeList()
			para = append(para, html.EscapeString(trimmed))
		}
	}
	flushPara()
	closeList()
	return b.String()
}

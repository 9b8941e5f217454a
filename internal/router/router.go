// Package router decides which agent handles a prompt: log root-cause
// analysis, a data query, or neither. An LLM classifier makes the call and a
// keyword heuristic takes over whenever the classifier fails.
package router

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/zulandar/sensei/internal/llm"
	"github.com/zulandar/sensei/internal/logger"
)

// Target is an agent a prompt can be routed to.
type Target string

const (
	LogAnalysis Target = "LOG_ANALYSIS"
	DataQuery   Target = "DATA_QUERY"
	OutOfScope  Target = "OUT_OF_SCOPE"
)

// Decision is the routing outcome for one turn. Fallback is set when the
// heuristic produced it.
type Decision struct {
	Target   Target
	Reason   string
	Fallback bool
}

// Limit bounds for data queries.
const (
	DefaultLimit = 5
	MaxLimit     = 1000
)

// MaxRecentPrompts is how many prior user prompts are shown to the
// classifier.
const MaxRecentPrompts = 5

// DataWords and FailureWords drive the heuristic. Matching is a substring
// test on the lower-cased prompt.
var (
	DataWords    = []string{"fetch", "report", "stats", "data", "analytics", "count", "list", "view"}
	FailureWords = []string{"fail", "error", "exception", "500", "timeout", "bug", "outage", "issue"}
)

const systemPrompt = `You are the routing model of a payments support assistant.
Decide which backend agent should handle the user's message.

Agents:
- LOG_ANALYSIS: investigating a failure, error, timeout or incident; root-cause analysis; questions about what the application logs say about a transaction; follow-up questions about a transaction already under discussion.
- DATA_QUERY: fetching, listing, counting or summarising transaction records, reports, stats or analytics.
- OUT_OF_SCOPE: anything unrelated to transaction failures or transaction data.

If the message asks both why something failed and for a list or count of records, choose DATA_QUERY.
Earlier prompts from the same chat may follow the message; use them only to understand intent.

Respond with exactly one JSON object and nothing else:
{"target": "LOG_ANALYSIS" | "DATA_QUERY" | "OUT_OF_SCOPE", "reason": "<short explanation>"}`

// followupNote is appended to the classifier input when the conversation is
// already anchored to a transaction.
const followupNote = "\n\nContext: this chat is already investigating a specific transaction."

var (
	greetingRe = regexp.MustCompile(`(?s)^(hi|hello|hey|greetings|good\s+(morning|afternoon|evening))(\W.*)?$`)
	keyedRe    = regexp.MustCompile(`(?i)\b(top|limit|last|first|recent)\s+(\d{1,4})\b`)
	numberRe   = regexp.MustCompile(`\b(\d{1,3})\b`)
)

// Router classifies prompts.
type Router struct {
	llm llm.Completer
}

// New creates a Router. A nil completer routes every prompt through the
// heuristic.
func New(c llm.Completer) *Router {
	if c == nil {
		c = llm.Unconfigured{}
	}
	return &Router{llm: c}
}

// Route decides the target for prompt. recent holds earlier user prompts of
// the same chat, newest first; followup reports that the chat already
// carries a transaction id. Classifier failures are logged and recovered
// with the heuristic, so Route always returns a decision.
func (r *Router) Route(ctx context.Context, prompt string, recent []string, followup bool) Decision {
	input := AugmentPrompt(prompt, recent)
	if followup {
		input += followupNote
	}
	raw, err := r.llm.Complete(ctx, llm.Request{
		System:      systemPrompt,
		User:        input,
		JSON:        true,
		Temperature: llm.Float(0),
		MaxTokens:   200,
	})
	if err == nil {
		d, perr := ParseDecision(raw)
		if perr == nil {
			logger.Info("router decision", "target", d.Target, "reason", d.Reason)
			return d
		}
		err = perr
	}
	d := Fallback(prompt, followup)
	logger.Warn("router classifier failed, using heuristic", "err", err, "target", d.Target)
	return d
}

// ParseDecision parses the classifier's JSON answer. Markdown code fences
// are stripped first. A missing or unknown target is an error.
func ParseDecision(raw string) (Decision, error) {
	var out struct {
		Target string `json:"target"`
		Reason string `json:"reason"`
	}
	if err := json.Unmarshal([]byte(stripFence(raw)), &out); err != nil {
		return Decision{}, fmt.Errorf("router: parse decision: %w", err)
	}
	target := Target(strings.ToUpper(strings.TrimSpace(out.Target)))
	switch target {
	case LogAnalysis, DataQuery, OutOfScope:
		return Decision{Target: target, Reason: out.Reason}, nil
	case "":
		return Decision{}, fmt.Errorf("router: decision has no target")
	default:
		return Decision{}, fmt.Errorf("router: unknown target %q", out.Target)
	}
}

// stripFence returns the JSON object inside a fenced block. Unfenced text is
// returned trimmed.
func stripFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	first := strings.Index(s, "{")
	last := strings.LastIndex(s, "}")
	if first >= 0 && last >= first {
		return s[first : last+1]
	}
	return s
}

// Fallback is the deterministic keyword heuristic. Failure words alone mean
// LOG_ANALYSIS and data words alone mean DATA_QUERY; both mean DATA_QUERY.
// Neither means OUT_OF_SCOPE unless the chat is a follow-up on a
// transaction.
func Fallback(prompt string, followup bool) Decision {
	lower := strings.ToLower(prompt)
	wantsData := containsAny(lower, DataWords)
	mentionsFailure := containsAny(lower, FailureWords)

	d := Decision{Fallback: true}
	switch {
	case mentionsFailure && !wantsData:
		d.Target, d.Reason = LogAnalysis, "failure keywords"
	case wantsData && !mentionsFailure:
		d.Target, d.Reason = DataQuery, "data keywords"
	case wantsData && mentionsFailure:
		d.Target, d.Reason = DataQuery, "data and failure keywords; data wins"
	case followup:
		d.Target, d.Reason = LogAnalysis, "follow-up on the chat's transaction"
	default:
		d.Target, d.Reason = OutOfScope, "no known intent"
	}
	return d
}

// WantsData reports whether prompt contains a data keyword.
func WantsData(prompt string) bool {
	return containsAny(strings.ToLower(prompt), DataWords)
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}

// IsGreeting reports whether prompt is a bare greeting such as "hi" or
// "good morning!".
func IsGreeting(prompt string) bool {
	return greetingRe.MatchString(strings.ToLower(strings.TrimSpace(prompt)))
}

// AugmentPrompt appends up to MaxRecentPrompts earlier prompts, newest first,
// one per line.
func AugmentPrompt(prompt string, recent []string) string {
	if len(recent) == 0 {
		return prompt
	}
	if len(recent) > MaxRecentPrompts {
		recent = recent[:MaxRecentPrompts]
	}
	var b strings.Builder
	b.WriteString(prompt)
	b.WriteString("\n\nPrevious user prompts in this chat (most recent first):\n")
	for _, p := range recent {
		b.WriteString("- ")
		b.WriteString(p)
		b.WriteString("\n")
	}
	return b.String()
}

// ResolveLimit returns the row limit for a data query. A positive explicit
// limit wins; otherwise the prompt is searched for "top N"-style phrases,
// then for any 1-3 digit number. The result is always in [1, MaxLimit].
func ResolveLimit(prompt string, explicit int) int {
	if explicit > 0 {
		return min(explicit, MaxLimit)
	}
	if m := keyedRe.FindStringSubmatch(prompt); m != nil {
		if n, _ := strconv.Atoi(m[2]); n > 0 {
			return min(n, MaxLimit)
		}
	}
	if m := numberRe.FindStringSubmatch(prompt); m != nil {
		if n, _ := strconv.Atoi(m[1]); n > 0 {
			return min(n, MaxLimit)
		}
	}
	return DefaultLimit
}

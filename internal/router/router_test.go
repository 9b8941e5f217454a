package router

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/zulandar/sensei/internal/llm"
)

func stubLLM(out string, err error) (llm.Completer, *llm.Request) {
	var got llm.Request
	return llm.CompleterFunc(func(_ context.Context, req llm.Request) (string, error) {
		got = req
		return out, err
	}), &got
}

// ---------------------------------------------------------------------------
// Route
// ---------------------------------------------------------------------------

func TestRoute_ClassifierDecision(t *testing.T) {
	c, req := stubLLM(`{"target":"DATA_QUERY","reason":"wants a list"}`, nil)
	d := New(c).Route(context.Background(), "show top 7 transactions", []string{"earlier"}, false)
	if d.Target != DataQuery || d.Fallback {
		t.Errorf("decision = %+v, want classifier DATA_QUERY", d)
	}
	if d.Reason != "wants a list" {
		t.Errorf("Reason = %q", d.Reason)
	}
	if !req.JSON {
		t.Error("classifier request not in JSON mode")
	}
	if req.Temperature == nil || *req.Temperature != 0 {
		t.Error("classifier temperature should be 0")
	}
	if !strings.Contains(req.User, "- earlier") {
		t.Errorf("classifier input missing recent prompts: %q", req.User)
	}
	if strings.Contains(req.User, "Context:") {
		t.Error("follow-up note sent for a fresh chat")
	}
}

func TestRoute_FollowupNote(t *testing.T) {
	c, req := stubLLM(`{"target":"LOG_ANALYSIS","reason":"follow-up"}`, nil)
	New(c).Route(context.Background(), "and why?", nil, true)
	if !strings.Contains(req.User, followupNote) {
		t.Errorf("classifier input = %q, want follow-up note", req.User)
	}
}

func TestRoute_FallsBack(t *testing.T) {
	tests := []struct {
		name string
		out  string
		err  error
	}{
		{"network error", "", errors.New("connection refused")},
		{"malformed", "not json", nil},
		{"missing target", `{"reason":"x"}`, nil},
		{"unknown target", `{"target":"RCA_SERVICE","reason":"x"}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := stubLLM(tt.out, tt.err)
			d := New(c).Route(context.Background(), "payment failed with timeout", nil, false)
			if !d.Fallback {
				t.Error("expected heuristic decision")
			}
			if d.Target != LogAnalysis {
				t.Errorf("Target = %s, want LOG_ANALYSIS", d.Target)
			}
		})
	}
}

func TestRoute_NilCompleterUsesHeuristic(t *testing.T) {
	d := New(nil).Route(context.Background(), "list all transactions", nil, false)
	if d.Target != DataQuery || !d.Fallback {
		t.Errorf("decision = %+v, want heuristic DATA_QUERY", d)
	}
}

// ---------------------------------------------------------------------------
// ParseDecision
// ---------------------------------------------------------------------------

func TestParseDecision(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    Target
		wantErr bool
	}{
		{"plain", `{"target":"OUT_OF_SCOPE","reason":"weather"}`, OutOfScope, false},
		{"lower case", `{"target":"log_analysis"}`, LogAnalysis, false},
		{"fenced", "```json\n{\"target\":\"DATA_QUERY\",\"reason\":\"r\"}\n```", DataQuery, false},
		{"bare fence", "```\n{\"target\":\"LOG_ANALYSIS\"}\n```", LogAnalysis, false},
		{"blank target", `{"target":"  "}`, "", true},
		{"unknown", `{"target":"SQL"}`, "", true},
		{"garbage", "I think DATA_QUERY", "", true},
		{"empty", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := ParseDecision(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if d.Target != tt.want {
				t.Errorf("Target = %q, want %q", d.Target, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Fallback
// ---------------------------------------------------------------------------

func TestFallback(t *testing.T) {
	tests := []struct {
		prompt   string
		followup bool
		want     Target
	}{
		{"why did the payment fail", false, LogAnalysis},
		{"got a 500 from checkout", false, LogAnalysis},
		{"fetch the daily report", false, DataQuery},
		{"count of failed transactions", false, DataQuery},
		{"what's the weather like", false, OutOfScope},
		{"and what happened next?", true, LogAnalysis},
		{"LIST ERRORS", false, DataQuery},
	}
	for _, tt := range tests {
		if got := Fallback(tt.prompt, tt.followup).Target; got != tt.want {
			t.Errorf("Fallback(%q, %v) = %s, want %s", tt.prompt, tt.followup, got, tt.want)
		}
	}
}

func TestFallback_Deterministic(t *testing.T) {
	for i := 0; i < 50; i++ {
		if got := Fallback("timeout outage bug", false).Target; got != LogAnalysis {
			t.Fatalf("call %d: Target = %s, want LOG_ANALYSIS", i, got)
		}
	}
}

func TestWantsData(t *testing.T) {
	if !WantsData("Show Stats for TX651750504") {
		t.Error("WantsData(stats) = false")
	}
	if WantsData("why did TX651750504 fail") {
		t.Error("WantsData(fail) = true")
	}
}

// ---------------------------------------------------------------------------
// Greeting and prompt augmentation
// ---------------------------------------------------------------------------

func TestIsGreeting(t *testing.T) {
	yes := []string{"hi", "Hello!", "  hey there", "greetings", "Good   Morning", "good evening, sensei", "hi\nhow are you"}
	no := []string{"", "history of TX1", "hiya", "good night", "why hello"}
	for _, p := range yes {
		if !IsGreeting(p) {
			t.Errorf("IsGreeting(%q) = false", p)
		}
	}
	for _, p := range no {
		if IsGreeting(p) {
			t.Errorf("IsGreeting(%q) = true", p)
		}
	}
}

func TestAugmentPrompt(t *testing.T) {
	if got := AugmentPrompt("q", nil); got != "q" {
		t.Errorf("no history = %q, want q", got)
	}
	got := AugmentPrompt("q", []string{"p1", "p2", "p3", "p4", "p5", "p6"})
	want := "q\n\nPrevious user prompts in this chat (most recent first):\n- p1\n- p2\n- p3\n- p4\n- p5\n"
	if got != want {
		t.Errorf("AugmentPrompt = %q, want %q", got, want)
	}
}

// ---------------------------------------------------------------------------
// ResolveLimit
// ---------------------------------------------------------------------------

func TestResolveLimit(t *testing.T) {
	tests := []struct {
		prompt   string
		explicit int
		want     int
	}{
		{"show top 7 transactions", 0, 7},
		{"list failures", 0, 5},
		{"x", 5000, 1000},
		{"x", 12, 12},
		{"LAST 25 failed payments", 0, 25},
		{"limit 2000 rows", 0, 1000},
		{"top 0 then 9", 0, 5},
		{"give me 42 rows", 0, 42},
		{"order 12345", 0, 5},
		{"top 3", -1, 3},
	}
	for _, tt := range tests {
		if got := ResolveLimit(tt.prompt, tt.explicit); got != tt.want {
			t.Errorf("ResolveLimit(%q, %d) = %d, want %d", tt.prompt, tt.explicit, got, tt.want)
		}
	}
}

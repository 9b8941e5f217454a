package prompt

import (
	"strings"
	"testing"
)

func TestParseCategory(t *testing.T) {
	tests := []struct {
		in      string
		want    Category
		wantErr bool
	}{
		{"", General, false},
		{"  ", General, false},
		{"GENERAL", General, false},
		{"developer_rca", DeveloperRCA, false},
		{"Security_Analysis", SecurityAnalysis, false},
		{"CUSTOMER_RCA", "", true},
	}
	for _, tt := range tests {
		got, err := ParseCategory(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseCategory(%q) err = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseCategory(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestEveryCategoryHasRule(t *testing.T) {
	for _, c := range Categories {
		r := RuleFor(c)
		if r.Category != c {
			t.Errorf("RuleFor(%s).Category = %s", c, r.Category)
		}
		if !strings.Contains(r.Template, QueryPlaceholder) || !strings.Contains(r.Template, LogsPlaceholder) {
			t.Errorf("%s template missing placeholders", c)
		}
	}
}

func TestRuleFor_UnknownFallsBackToGeneral(t *testing.T) {
	if got := RuleFor(Category("NOPE")).Category; got != General {
		t.Errorf("RuleFor(NOPE) = %s, want GENERAL", got)
	}
}

func TestSystemMessage(t *testing.T) {
	if got := SystemMessage(General); got != "ROLE: Log Analysis Assistant\nGOAL: Analyze logs and answer user questions" {
		t.Errorf("SystemMessage(GENERAL) = %q", got)
	}
	dev := SystemMessage(DeveloperRCA)
	if !strings.HasPrefix(dev, "ROLE & GOAL:") {
		t.Errorf("SystemMessage(DEVELOPER_RCA) = %q, want full instructions", dev[:40])
	}
	if strings.Contains(dev, QueryPlaceholder) {
		t.Error("system message must not carry the query placeholder")
	}
}

func TestUserMessage_SubstitutesPlaceholders(t *testing.T) {
	msg := UserMessage(PerformanceAnalysis, "why slow?", []string{"a ERROR", "b"})
	if !strings.Contains(msg, "User Query: why slow?") {
		t.Errorf("query not substituted: %q", msg)
	}
	if !strings.Contains(msg, "a ERROR\nb\n") {
		t.Errorf("logs not substituted: %q", msg)
	}
	if strings.Contains(msg, "{") {
		t.Errorf("placeholder left in message: %q", msg)
	}
}

func TestUserMessage_NoLogs(t *testing.T) {
	msg := UserMessage(General, "q", nil)
	if !strings.Contains(msg, NoLogs) {
		t.Errorf("message = %q, want no-logs notice", msg)
	}
}

func TestUserMessage_QueryWithPlaceholderText(t *testing.T) {
	// A query that itself contains {LOGS} must not be expanded a second time.
	msg := UserMessage(General, "what is {LOGS}?", []string{"x"})
	if !strings.Contains(msg, "User Query: what is {LOGS}?") {
		t.Errorf("message = %q", msg)
	}
}

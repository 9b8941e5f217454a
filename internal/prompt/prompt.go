// Package prompt holds the analysis personas and builds the system and user
// messages sent to the LLM for log root-cause analysis.
package prompt

import (
	"fmt"
	"strings"
)

// Category selects the persona used to analyse evidence.
type Category string

// Prompt categories.
const (
	General             Category = "GENERAL"
	DeveloperRCA        Category = "DEVELOPER_RCA"
	PerformanceAnalysis Category = "PERFORMANCE_ANALYSIS"
	SecurityAnalysis    Category = "SECURITY_ANALYSIS"
	BusinessImpact      Category = "BUSINESS_IMPACT"
)

// Categories lists every category in display order.
var Categories = []Category{General, DeveloperRCA, PerformanceAnalysis, SecurityAnalysis, BusinessImpact}

// ParseCategory maps a client-supplied name to a Category. Blank input
// yields General; unknown names are an error.
func ParseCategory(s string) (Category, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return General, nil
	}
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("prompt: unknown category %q", s)
}

// Placeholders substituted into a rule's template.
const (
	QueryPlaceholder = "{QUERY}"
	LogsPlaceholder  = "{LOGS}"
)

// NoLogs replaces {LOGS} when there is no evidence to show.
const NoLogs = "No logs found matching the transaction ID.\n"

// Rule is a persona. Instructions, when set, is the full system message;
// otherwise the system message is built from Role and Goal.
type Rule struct {
	Category     Category
	Role         string
	Goal         string
	Instructions string
	Template     string
}

// RuleFor returns the rule for c, falling back to General.
func RuleFor(c Category) Rule {
	if r, ok := rules[c]; ok {
		return r
	}
	return rules[General]
}

// SystemMessage returns the persona definition for c.
func SystemMessage(c Category) string {
	r := RuleFor(c)
	if r.Instructions != "" {
		return strings.TrimSpace(r.Instructions)
	}
	return fmt.Sprintf("ROLE: %s\nGOAL: %s", r.Role, r.Goal)
}

// UserMessage fills c's template with the query and selected log lines.
func UserMessage(c Category, query string, logs []string) string {
	logsText := NoLogs
	if len(logs) > 0 {
		var b strings.Builder
		for _, l := range logs {
			b.WriteString(l)
			b.WriteByte('\n')
		}
		logsText = b.String()
	}
	return strings.NewReplacer(QueryPlaceholder, query, LogsPlaceholder, logsText).
		Replace(RuleFor(c).Template)
}

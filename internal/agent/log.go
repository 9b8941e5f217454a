package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/zulandar/sensei/internal/evidence"
	"github.com/zulandar/sensei/internal/llm"
	"github.com/zulandar/sensei/internal/logger"
	"github.com/zulandar/sensei/internal/logselect"
	"github.com/zulandar/sensei/internal/prompt"
)

// AnalysisRequest is one root-cause question about a transaction. History is
// the chat so far in chronological order.
type AnalysisRequest struct {
	Query         string
	TransactionID string
	Category      prompt.Category
	History       []llm.Turn
}

// LogAgent answers questions about a transaction from its application logs.
type LogAgent struct {
	store    evidence.Store
	llm      llm.Completer
	maxChars int
}

// LogAgentOpts holds parameters for creating a LogAgent.
type LogAgentOpts struct {
	Store    evidence.Store
	LLM      llm.Completer
	MaxChars int // log budget; defaults to logselect.DefaultMaxChars
}

// NewLogAgent creates a LogAgent.
func NewLogAgent(opts LogAgentOpts) (*LogAgent, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("agent: log agent: evidence store is required")
	}
	if opts.LLM == nil {
		return nil, fmt.Errorf("agent: log agent: completer is required")
	}
	maxChars := opts.MaxChars
	if maxChars <= 0 {
		maxChars = logselect.DefaultMaxChars
	}
	return &LogAgent{store: opts.Store, llm: opts.LLM, maxChars: maxChars}, nil
}

// Analyze runs the analysis. A missing transaction record or missing logs
// produce an informational answer, not an error; errors mean the evidence
// store or the LLM failed.
func (a *LogAgent) Analyze(ctx context.Context, req AnalysisRequest) (string, error) {
	rec, err := a.store.FindTransactionRecord(ctx, req.TransactionID)
	if err != nil {
		return "", err
	}
	if rec == nil {
		logger.Warn("transaction not found", "tx", req.TransactionID)
		return fmt.Sprintf("Error: Transaction ID '%s' not found in database.", req.TransactionID), nil
	}

	lines, err := a.store.FindLogsByTransactionID(ctx, req.TransactionID)
	if err != nil {
		return "", err
	}
	if len(lines) == 0 && rec.CorrelationID != "" {
		logger.Info("no logs under transaction id, trying correlation id", "tx", req.TransactionID, "uuid", rec.CorrelationID)
		lines, err = a.store.FindLogsByCorrelationID(ctx, rec.CorrelationID)
		if err != nil {
			return "", err
		}
	}
	if len(lines) == 0 {
		return noLogsMessage(req.TransactionID, rec.CorrelationID, rec.ServiceID), nil
	}

	selected, stats := logselect.SelectWith(lines, logselect.DefaultOptions(a.maxChars))
	logger.Info("selected log evidence",
		"tx", req.TransactionID, "total", stats.Total, "kept", stats.Kept,
		"chars", stats.Chars, "truncated", stats.Truncated)

	return a.llm.Complete(ctx, llm.Request{
		System:  prompt.SystemMessage(req.Category),
		User:    prompt.UserMessage(req.Category, req.Query, selected),
		History: req.History,
	})
}

func noLogsMessage(txID, correlationID, serviceID string) string {
	var b strings.Builder
	b.WriteString("No logs found for transaction ID: " + txID)
	if correlationID != "" {
		b.WriteString(" (UUID: " + correlationID + ")")
	}
	if serviceID != "" {
		b.WriteString(" (Service ID: " + serviceID + ")")
	}
	return b.String()
}

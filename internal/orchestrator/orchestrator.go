// Package orchestrator runs one chat turn end to end: conversation and
// transaction resolution, routing, agent execution, formatting and
// persistence.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/zulandar/sensei/internal/agent"
	"github.com/zulandar/sensei/internal/chat"
	"github.com/zulandar/sensei/internal/format"
	"github.com/zulandar/sensei/internal/llm"
	"github.com/zulandar/sensei/internal/logger"
	"github.com/zulandar/sensei/internal/models"
	"github.com/zulandar/sensei/internal/prompt"
	"github.com/zulandar/sensei/internal/router"
	"github.com/zulandar/sensei/internal/txid"
)

// ErrValidation rejects a turn before any external call is made.
var ErrValidation = errors.New("orchestrator: invalid request")

// Defaults for Orchestrator.
const (
	DefaultHistoryWindow = 10
	DefaultRecentPrompts = router.MaxRecentPrompts
)

// Turn is one inbound prompt. ChatID, Limit and Category are optional.
type Turn struct {
	Owner    string
	Prompt   string
	ChatID   string
	Limit    int
	Category string
}

// Result is the rendered answer and the conversation it was stored in.
// Target is empty for greetings.
type Result struct {
	Text          string
	ChatID        string
	Target        router.Target
	TransactionID string
}

// Orchestrator wires the turn pipeline.
type Orchestrator struct {
	chat          *chat.Resolver
	router        *router.Router
	formatter     *format.Formatter
	logAgent      *agent.LogAgent
	dataAgent     *agent.DataAgent
	locks         *chat.TurnLocks
	historyWindow int
	recentPrompts int
}

// Opts holds parameters for creating an Orchestrator.
type Opts struct {
	Chat          *chat.Resolver
	Router        *router.Router
	Formatter     *format.Formatter
	LogAgent      *agent.LogAgent
	DataAgent     *agent.DataAgent
	Locks         *chat.TurnLocks // optional; a private set is used when nil
	HistoryWindow int             // prior messages sent with an analysis; defaults to DefaultHistoryWindow
	RecentPrompts int             // prior prompts shown to the router; defaults to DefaultRecentPrompts
}

// New creates an Orchestrator.
func New(opts Opts) (*Orchestrator, error) {
	switch {
	case opts.Chat == nil:
		return nil, fmt.Errorf("orchestrator: chat resolver is required")
	case opts.Router == nil:
		return nil, fmt.Errorf("orchestrator: router is required")
	case opts.Formatter == nil:
		return nil, fmt.Errorf("orchestrator: formatter is required")
	case opts.LogAgent == nil:
		return nil, fmt.Errorf("orchestrator: log agent is required")
	case opts.DataAgent == nil:
		return nil, fmt.Errorf("orchestrator: data agent is required")
	}
	o := &Orchestrator{
		chat:          opts.Chat,
		router:        opts.Router,
		formatter:     opts.Formatter,
		logAgent:      opts.LogAgent,
		dataAgent:     opts.DataAgent,
		locks:         opts.Locks,
		historyWindow: opts.HistoryWindow,
		recentPrompts: opts.RecentPrompts,
	}
	if o.locks == nil {
		o.locks = &chat.TurnLocks{}
	}
	if o.historyWindow <= 0 {
		o.historyWindow = DefaultHistoryWindow
	}
	if o.recentPrompts <= 0 {
		o.recentPrompts = DefaultRecentPrompts
	}
	return o, nil
}

// Process routes the prompt to an agent and stores the turn.
func (o *Orchestrator) Process(ctx context.Context, t Turn) (Result, error) {
	return o.run(ctx, t, "")
}

// Analyze is Process with routing skipped: the prompt always goes to log
// analysis.
func (o *Orchestrator) Analyze(ctx context.Context, t Turn) (Result, error) {
	return o.run(ctx, t, router.LogAnalysis)
}

func (o *Orchestrator) run(ctx context.Context, t Turn, forced router.Target) (Result, error) {
	t.Owner = strings.TrimSpace(t.Owner)
	t.Prompt = strings.TrimSpace(t.Prompt)
	if t.Owner == "" {
		return Result{}, fmt.Errorf("%w: owner is required", ErrValidation)
	}
	if t.Prompt == "" {
		return Result{}, fmt.Errorf("%w: prompt is required", ErrValidation)
	}
	category, err := prompt.ParseCategory(t.Category)
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}

	conv, err := o.chat.ResolveOrCreateConversation(ctx, t.Owner, t.ChatID)
	if err != nil {
		return Result{}, err
	}
	unlock := o.locks.Lock(conv.ExternalID)
	defer unlock()
	// Another turn may have finished while this one waited.
	if err := o.chat.Reload(ctx, conv); err != nil {
		return Result{}, err
	}

	lg := logger.With("turn").With("owner", t.Owner, "chat", conv.ExternalID)
	res := Result{ChatID: conv.ExternalID}

	var raw string
	switch {
	case forced == "" && router.IsGreeting(t.Prompt):
		lg.Info("greeting")
		raw = agent.GreetingMessage
	default:
		prior, err := o.chat.ResolvePriorTransactionID(ctx, conv.ID)
		if err != nil {
			return Result{}, err
		}
		res.Target = forced
		if res.Target == "" {
			res.Target = o.decide(ctx, conv.ID, t.Prompt, prior)
		}
		lg.Info("routed", "target", res.Target, "prior_tx", prior)
		raw, res.TransactionID = o.execute(ctx, lg, conv.ID, t, category, res.Target, prior)
	}

	res.Text = o.formatter.Format(ctx, raw)
	contentType := models.ContentText
	if format.IsMarkup(res.Text) {
		contentType = models.ContentHTML
	}
	err = o.chat.PersistTurn(ctx, conv, t.Prompt, res.Text, chat.TurnMeta{
		TransactionID:        res.TransactionID,
		Category:             string(category),
		AssistantContentType: contentType,
	})
	if err != nil {
		return Result{}, fmt.Errorf("orchestrator: persist turn: %w", err)
	}
	return res, nil
}

// decide short-circuits prompts that name a transaction without asking for
// data, and otherwise asks the router.
func (o *Orchestrator) decide(ctx context.Context, convID uint, p, prior string) router.Target {
	if _, ok := txid.ExtractPrefixed(p); ok && !router.WantsData(p) {
		return router.LogAnalysis
	}
	recent, err := o.chat.RecentUserPrompts(ctx, convID, o.recentPrompts)
	if err != nil {
		logger.Warn("recent prompts unavailable for routing", "err", err)
		recent = nil
	}
	return o.router.Route(ctx, p, recent, prior != "").Target
}

// execute runs the chosen agent and returns the raw answer plus the
// transaction id the turn was about. The chat's transaction takes precedence
// over one named in the prompt. Agent failures become an apology.
func (o *Orchestrator) execute(ctx context.Context, lg *log.Logger, convID uint, t Turn, category prompt.Category, target router.Target, prior string) (string, string) {
	switch target {
	case router.LogAnalysis:
		txID := prior
		if txID == "" {
			txID, _ = txid.Extract(t.Prompt)
		}
		if txID == "" {
			return agent.MissingTransactionMessage(), ""
		}
		history, err := o.history(ctx, convID)
		if err != nil {
			lg.Error("load chat history", "err", err)
			return agent.UpstreamFailureMessage, ""
		}
		out, err := o.logAgent.Analyze(ctx, agent.AnalysisRequest{
			Query:         t.Prompt,
			TransactionID: txID,
			Category:      category,
			History:       history,
		})
		if err != nil {
			lg.Error("log analysis failed", "tx", txID, "err", err)
			return agent.UpstreamFailureMessage, ""
		}
		return out, txID
	case router.DataQuery:
		limit := router.ResolveLimit(t.Prompt, t.Limit)
		out, err := o.dataAgent.Query(ctx, t.Prompt, limit)
		if err != nil {
			lg.Error("data query failed", "limit", limit, "err", err)
			return agent.UpstreamFailureMessage, ""
		}
		return out, ""
	default:
		return agent.OutOfScopeMessage, ""
	}
}

func (o *Orchestrator) history(ctx context.Context, convID uint) ([]llm.Turn, error) {
	msgs, err := o.chat.PriorTurns(ctx, convID, o.historyWindow)
	if err != nil {
		return nil, err
	}
	turns := make([]llm.Turn, 0, len(msgs))
	for _, m := range msgs {
		role := llm.RoleUser
		if m.Role == models.RoleAssistant {
			role = llm.RoleAssistant
		}
		turns = append(turns, llm.Turn{Role: role, Content: m.Content})
	}
	return turns, nil
}

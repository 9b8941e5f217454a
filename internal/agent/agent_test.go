package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/zulandar/sensei/internal/evidence"
	"github.com/zulandar/sensei/internal/llm"
	"github.com/zulandar/sensei/internal/models"
	"github.com/zulandar/sensei/internal/prompt"
)

type fakeStore struct {
	records   map[string]*models.Transaction
	byTx      map[string][]string
	byCorr    map[string][]string
	txns      []models.Transaction
	lastQuery evidence.Query
	err       error
}

func (f *fakeStore) FindLogsByTransactionID(_ context.Context, id string) ([]string, error) {
	return f.byTx[id], f.err
}

func (f *fakeStore) FindLogsByCorrelationID(_ context.Context, id string) ([]string, error) {
	return f.byCorr[id], f.err
}

func (f *fakeStore) FindTransactionRecord(_ context.Context, id string) (*models.Transaction, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.records[id], nil
}

func (f *fakeStore) QueryTransactions(_ context.Context, q evidence.Query) ([]models.Transaction, error) {
	f.lastQuery = q
	return f.txns, f.err
}

func recordingLLM(out string, err error) (llm.Completer, *[]llm.Request) {
	var reqs []llm.Request
	return llm.CompleterFunc(func(_ context.Context, req llm.Request) (string, error) {
		reqs = append(reqs, req)
		return out, err
	}), &reqs
}

// ---------------------------------------------------------------------------
// LogAgent
// ---------------------------------------------------------------------------

func TestNewLogAgent_Required(t *testing.T) {
	if _, err := NewLogAgent(LogAgentOpts{LLM: llm.Unconfigured{}}); err == nil {
		t.Error("expected error for nil store")
	}
	if _, err := NewLogAgent(LogAgentOpts{Store: &fakeStore{}}); err == nil {
		t.Error("expected error for nil completer")
	}
}

func TestAnalyze_TransactionNotFound(t *testing.T) {
	c, reqs := recordingLLM("x", nil)
	a, _ := NewLogAgent(LogAgentOpts{Store: &fakeStore{}, LLM: c})
	out, err := a.Analyze(context.Background(), AnalysisRequest{Query: "why", TransactionID: "TX1"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if out != "Error: Transaction ID 'TX1' not found in database." {
		t.Errorf("out = %q", out)
	}
	if len(*reqs) != 0 {
		t.Error("LLM called without evidence")
	}
}

func TestAnalyze_NoLogs(t *testing.T) {
	store := &fakeStore{records: map[string]*models.Transaction{
		"TX1": {TransactionID: "TX1", CorrelationID: "u-1", ServiceID: "svc-9"},
	}}
	c, reqs := recordingLLM("x", nil)
	a, _ := NewLogAgent(LogAgentOpts{Store: store, LLM: c})
	out, err := a.Analyze(context.Background(), AnalysisRequest{Query: "why", TransactionID: "TX1"})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if out != "No logs found for transaction ID: TX1 (UUID: u-1) (Service ID: svc-9)" {
		t.Errorf("out = %q", out)
	}
	if len(*reqs) != 0 {
		t.Error("LLM called without evidence")
	}
}

func TestAnalyze_WidensToCorrelationID(t *testing.T) {
	store := &fakeStore{
		records: map[string]*models.Transaction{"TX1": {TransactionID: "TX1", CorrelationID: "u-1"}},
		byCorr:  map[string][]string{"u-1": {"a INFO start", "b ERROR gateway timeout"}},
	}
	c, reqs := recordingLLM("root cause: gateway", nil)
	a, _ := NewLogAgent(LogAgentOpts{Store: store, LLM: c})
	history := []llm.Turn{{Role: llm.RoleUser, Content: "earlier"}}
	out, err := a.Analyze(context.Background(), AnalysisRequest{
		Query: "why did it fail", TransactionID: "TX1", Category: prompt.DeveloperRCA, History: history,
	})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if out != "root cause: gateway" {
		t.Errorf("out = %q", out)
	}
	if len(*reqs) != 1 {
		t.Fatalf("LLM calls = %d, want 1", len(*reqs))
	}
	req := (*reqs)[0]
	if !strings.HasPrefix(req.System, "ROLE & GOAL:") {
		t.Errorf("System = %q, want developer persona", req.System[:20])
	}
	if !strings.Contains(req.User, "b ERROR gateway timeout") || !strings.Contains(req.User, "why did it fail") {
		t.Errorf("User = %q", req.User)
	}
	if len(req.History) != 1 {
		t.Errorf("History = %d turns, want 1", len(req.History))
	}
}

func TestAnalyze_RespectsBudget(t *testing.T) {
	var lines []string
	for i := 0; i < 200; i++ {
		lines = append(lines, fmt.Sprintf("%03d %s", i, strings.Repeat("x", 46)))
	}
	store := &fakeStore{
		records: map[string]*models.Transaction{"TX1": {TransactionID: "TX1"}},
		byTx:    map[string][]string{"TX1": lines},
	}
	c, reqs := recordingLLM("ok", nil)
	a, _ := NewLogAgent(LogAgentOpts{Store: store, LLM: c, MaxChars: 500})
	if _, err := a.Analyze(context.Background(), AnalysisRequest{Query: "q", TransactionID: "TX1"}); err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	user := (*reqs)[0].User
	if strings.Contains(user, "010 ") {
		t.Error("lines past the budget were sent")
	}
	if !strings.Contains(user, "000 ") {
		t.Error("first line missing")
	}
}

func TestAnalyze_UpstreamErrors(t *testing.T) {
	boom := errors.New("boom")
	store := &fakeStore{err: boom}
	a, _ := NewLogAgent(LogAgentOpts{Store: store, LLM: llm.Unconfigured{}})
	if _, err := a.Analyze(context.Background(), AnalysisRequest{TransactionID: "TX1"}); !errors.Is(err, boom) {
		t.Errorf("store failure err = %v, want boom", err)
	}

	store = &fakeStore{
		records: map[string]*models.Transaction{"TX1": {TransactionID: "TX1"}},
		byTx:    map[string][]string{"TX1": {"line"}},
	}
	a, _ = NewLogAgent(LogAgentOpts{Store: store, LLM: llm.Unconfigured{}})
	if _, err := a.Analyze(context.Background(), AnalysisRequest{TransactionID: "TX1"}); !errors.Is(err, llm.ErrUnconfigured) {
		t.Errorf("llm failure err = %v, want ErrUnconfigured", err)
	}
}

// ---------------------------------------------------------------------------
// DataAgent
// ---------------------------------------------------------------------------

func TestStatusFromPrompt(t *testing.T) {
	tests := map[string]string{
		"list failed transactions":    evidence.StatusFailed,
		"show failures":               evidence.StatusFailed,
		"count successful payments":   evidence.StatusSuccess,
		"which ones succeeded":        evidence.StatusSuccess,
		"pending transactions please": evidence.StatusPending,
		"list transactions":           "",
	}
	for in, want := range tests {
		if got := StatusFromPrompt(in); got != want {
			t.Errorf("StatusFromPrompt(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDataAgent_Query(t *testing.T) {
	store := &fakeStore{txns: []models.Transaction{
		{TransactionID: "TX651750504", Status: evidence.StatusFailed, Amount: 99.5, UserID: "<USER_1>",
			CreatedAt: time.Date(2026, 1, 15, 10, 0, 0, 0, time.UTC)},
	}}
	a, err := NewDataAgent(store)
	if err != nil {
		t.Fatalf("NewDataAgent: %v", err)
	}
	out, err := a.Query(context.Background(), "show top 3 failed transactions", 3)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if store.lastQuery.Status != evidence.StatusFailed || store.lastQuery.Limit != 3 {
		t.Errorf("query = %+v", store.lastQuery)
	}
	for _, want := range []string{
		"<p>Showing 1 most recent failed transactions.</p>",
		"<th>Transaction ID</th>",
		"<td>TX651750504</td>",
		"<td>99.50</td>",
		"<td>&lt;USER_1&gt;</td>",
		"<td>2026-01-15 10:00:00</td>",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestDataAgent_TransactionFilterAndEmpty(t *testing.T) {
	store := &fakeStore{}
	a, _ := NewDataAgent(store)
	out, err := a.Query(context.Background(), "view data for TX651750504", 5)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if store.lastQuery.TransactionID != "TX651750504" {
		t.Errorf("TransactionID filter = %q", store.lastQuery.TransactionID)
	}
	if out != "<p>No transactions matched most recent transactions for TX651750504.</p>" {
		t.Errorf("out = %q", out)
	}
}

func TestNewDataAgent_NilStore(t *testing.T) {
	if _, err := NewDataAgent(nil); err == nil {
		t.Fatal("expected error for nil store")
	}
}

func TestMissingTransactionMessage(t *testing.T) {
	if msg := MissingTransactionMessage(); !strings.Contains(msg, "TX651750504") {
		t.Errorf("message = %q, want example id", msg)
	}
}

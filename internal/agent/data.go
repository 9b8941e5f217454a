package agent

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"strings"

	"github.com/zulandar/sensei/internal/evidence"
	"github.com/zulandar/sensei/internal/models"
	"github.com/zulandar/sensei/internal/txid"
)

var tableColumns = []string{"Transaction ID", "Status", "Amount", "Correlation ID", "Service", "User", "Created"}

// DataAgent answers data requests from the transaction records.
type DataAgent struct {
	store evidence.Store
}

// NewDataAgent creates a DataAgent.
func NewDataAgent(store evidence.Store) (*DataAgent, error) {
	if store == nil {
		return nil, fmt.Errorf("agent: data agent: evidence store is required")
	}
	return &DataAgent{store: store}, nil
}

// Query returns up to limit matching transactions, newest first, as an HTML
// table. The status filter and an optional transaction id come from the
// prompt.
func (a *DataAgent) Query(ctx context.Context, promptText string, limit int) (string, error) {
	q := evidence.Query{Status: StatusFromPrompt(promptText), Limit: limit}
	if id, ok := txid.ExtractPrefixed(promptText); ok {
		q.TransactionID = id
	}
	txns, err := a.store.QueryTransactions(ctx, q)
	if err != nil {
		return "", err
	}
	if len(txns) == 0 {
		return "<p>No transactions matched " + html.EscapeString(describe(q)) + ".</p>", nil
	}
	var b strings.Builder
	fmt.Fprintf(&b, "<p>Showing %d %s.</p>", len(txns), html.EscapeString(describe(q)))
	b.WriteString(renderTable(txns))
	return b.String(), nil
}

// StatusFromPrompt infers a status filter from the wording of a prompt.
func StatusFromPrompt(p string) string {
	lower := strings.ToLower(p)
	switch {
	case strings.Contains(lower, "fail"):
		return evidence.StatusFailed
	case strings.Contains(lower, "success"), strings.Contains(lower, "succeed"):
		return evidence.StatusSuccess
	case strings.Contains(lower, "pending"):
		return evidence.StatusPending
	default:
		return ""
	}
}

func describe(q evidence.Query) string {
	noun := "most recent transactions"
	if q.Status != "" {
		noun = "most recent " + strings.ToLower(q.Status) + " transactions"
	}
	if q.TransactionID != "" {
		noun += " for " + q.TransactionID
	}
	return noun
}

func renderTable(txns []models.Transaction) string {
	var b strings.Builder
	b.WriteString("<table><thead><tr>")
	for _, c := range tableColumns {
		b.WriteString("<th>" + html.EscapeString(c) + "</th>")
	}
	b.WriteString("</tr></thead><tbody>")
	for _, t := range txns {
		cells := []string{
			t.TransactionID,
			t.Status,
			strconv.FormatFloat(t.Amount, 'f', 2, 64),
			t.CorrelationID,
			t.ServiceID,
			t.UserID,
			t.CreatedAt.Format("2006-01-02 15:04:05"),
		}
		b.WriteString("<tr>")
		for _, c := range cells {
			b.WriteString("<td>" + html.EscapeString(c) + "</td>")
		}
		b.WriteString("</tr>")
	}
	b.WriteString("</tbody></table>")
	return b.String()
}

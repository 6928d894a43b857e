// Package reconcile links statement expenses to open invoices. Matching is
// deterministic and greedy: transactions are visited in statement order and
// each invoice can be claimed at most once.
package reconcile

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerlane/statement-engine/internal/domain"
	"github.com/ledgerlane/statement-engine/internal/logger"
)

// MatchType classifies a transaction-to-invoice link.
type MatchType string

const (
	MatchExact MatchType = "exact"
	// MatchFuzzy is reserved for approximate matching (partial payments,
	// bundled invoices). The current matcher never emits it.
	MatchFuzzy MatchType = "fuzzy"
	MatchNone  MatchType = "none"
)

const (
	exactConfidence = 0.95
	// dueDateWindow bounds how far a payment may land from the invoice due
	// date and still count as settling it.
	dueDateWindow = 7 * 24 * time.Hour
)

// amountTolerance absorbs rounding differences between invoice totals and
// booked amounts.
var amountTolerance = decimal.NewFromFloat(0.01)

// Match links one transaction to one invoice.
type Match struct {
	Transaction *domain.Transaction `json:"transaction"`
	Invoice     *domain.Invoice     `json:"invoice"`
	Type        MatchType           `json:"type"`
	Confidence  float64             `json:"confidence"`
}

// Result is the outcome of reconciling one envelope.
type Result struct {
	Matches               []Match               `json:"matches"`
	UnmatchedTransactions []*domain.Transaction `json:"unmatchedTransactions"`
	UnmatchedInvoices     []*domain.Invoice     `json:"unmatchedInvoices"`
}

// InvoiceSource supplies the invoices still awaiting payment.
type InvoiceSource interface {
	OpenInvoices(ctx context.Context) ([]*domain.Invoice, error)
}

// Reconciler matches envelope expenses against open invoices.
type Reconciler struct {
	invoices InvoiceSource
}

func New(invoices InvoiceSource) *Reconciler {
	return &Reconciler{invoices: invoices}
}

// Reconcile fetches the open invoices and runs the matcher. Income
// transactions never match invoices; they go straight to the unmatched list.
func (r *Reconciler) Reconcile(ctx context.Context, env *domain.Envelope) (*Result, error) {
	log := logger.FromContext(ctx)

	invoices, err := r.invoices.OpenInvoices(ctx)
	if err != nil {
		return nil, &domain.ServiceError{Service: "invoices", Err: fmt.Errorf("list open invoices: %w", err)}
	}

	result := match(env.Transactions, invoices)
	log.Info().
		Int("matches", len(result.Matches)).
		Int("unmatched_transactions", len(result.UnmatchedTransactions)).
		Int("unmatched_invoices", len(result.UnmatchedInvoices)).
		Msg("reconciliation finished")
	return result, nil
}

// match is the greedy core: first matching invoice wins, claimed invoices
// leave the pool.
func match(txs []*domain.Transaction, invoices []*domain.Invoice) *Result {
	result := &Result{
		Matches:               []Match{},
		UnmatchedTransactions: []*domain.Transaction{},
		UnmatchedInvoices:     []*domain.Invoice{},
	}

	claimed := make(map[string]bool, len(invoices))

	for _, tx := range txs {
		if tx.Type != domain.TxExpense {
			result.UnmatchedTransactions = append(result.UnmatchedTransactions, tx)
			continue
		}

		var found *domain.Invoice
		for _, inv := range invoices {
			if claimed[inv.ID] || !inv.Status.Open() {
				continue
			}
			if matches(tx, inv) {
				found = inv
				break
			}
		}

		if found == nil {
			result.UnmatchedTransactions = append(result.UnmatchedTransactions, tx)
			continue
		}

		claimed[found.ID] = true
		result.Matches = append(result.Matches, Match{
			Transaction: tx,
			Invoice:     found,
			Type:        MatchExact,
			Confidence:  exactConfidence,
		})
	}

	for _, inv := range invoices {
		if !claimed[inv.ID] && inv.Status.Open() {
			result.UnmatchedInvoices = append(result.UnmatchedInvoices, inv)
		}
	}
	return result
}

// matches requires the amounts to agree within tolerance and, when the
// invoice carries a due date, the payment to land within the window around
// it. Invoices without a due date match on amount alone.
func matches(tx *domain.Transaction, inv *domain.Invoice) bool {
	diff := tx.Amount.Sub(inv.TotalAmount).Abs()
	if diff.Cmp(amountTolerance) >= 0 {
		return false
	}
	if inv.DueDate == nil {
		return true
	}
	gap := tx.Date.Sub(*inv.DueDate)
	if gap < 0 {
		gap = -gap
	}
	return gap <= dueDateWindow
}

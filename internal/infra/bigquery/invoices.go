package bigquery

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"

	"github.com/ledgerlane/statement-engine/internal/domain"
)

// InvoiceRow is the storage schema of one invoice awaiting reconciliation.
type InvoiceRow struct {
	InvoiceID   string            `bigquery:"invoice_id"`   // REQUIRED
	Vendor      string            `bigquery:"vendor"`       // REQUIRED
	TotalAmount *big.Rat          `bigquery:"total_amount"` // REQUIRED NUMERIC
	DueDate     bigquery.NullDate `bigquery:"due_date"`     // NULLABLE
	Status      string            `bigquery:"status"`       // REQUIRED
}

// OpenInvoices lists the invoices still awaiting payment, satisfying the
// reconciler's invoice source contract.
func (s *Store) OpenInvoices(ctx context.Context) ([]*domain.Invoice, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT invoice_id, vendor, total_amount, due_date, status
		FROM %s.%s
		WHERE status IN ('awaiting_approval', 'in_review')
		ORDER BY due_date
	`, s.dataset, invoicesTable))

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("OpenInvoices: query read: %w", err)
	}

	var invoices []*domain.Invoice
	for {
		var row InvoiceRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("OpenInvoices: iter next: %w", err)
		}

		inv := &domain.Invoice{
			ID:          row.InvoiceID,
			Vendor:      row.Vendor,
			TotalAmount: decimal.NewFromBigRat(row.TotalAmount, amountScale),
			Status:      domain.InvoiceStatus(row.Status),
		}
		if row.DueDate.Valid {
			due := row.DueDate.Date.In(time.UTC)
			inv.DueDate = &due
		}
		invoices = append(invoices, inv)
	}
	return invoices, nil
}

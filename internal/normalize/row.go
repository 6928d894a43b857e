package normalize

import (
	"strings"

	"github.com/google/uuid"

	"github.com/ledgerlane/statement-engine/internal/domain"
)

// RawRow is one statement line as a parser saw it, before any normalization.
type RawRow struct {
	Line        int // 1-based position in the source document
	Date        string
	Description string
	Amount      string
	Balance     string // optional
	Reference   string // optional
}

// Row converts a raw row into a canonical transaction. It returns a
// *domain.RowError for unparseable dates and amounts and for zero amounts;
// callers skip such rows and keep going.
func Row(row RawRow, currency string) (*domain.Transaction, error) {
	date, err := ParseDate(row.Date)
	if err != nil {
		return nil, &domain.RowError{Line: row.Line, Field: "date", Reason: err.Error()}
	}

	amount, err := ParseAmount(row.Amount)
	if err != nil {
		return nil, &domain.RowError{Line: row.Line, Field: "amount", Reason: err.Error()}
	}
	if amount.IsZero() {
		// Zero-amount rows are headers, subtotals or noise, not transactions.
		return nil, &domain.RowError{Line: row.Line, Field: "amount", Reason: "zero amount"}
	}

	txType := domain.TxIncome
	if amount.IsNegative() {
		txType = domain.TxExpense
	}

	tx := &domain.Transaction{
		ID:             uuid.NewString(),
		Date:           date,
		Description:    collapseWhitespace(row.Description),
		RawDescription: row.Description,
		Amount:         amount.Abs(),
		Currency:       currency,
		Type:           txType,
		Counterparty:   CleanCounterparty(row.Description),
		Reference:      row.Reference,
		Confidence:     1.0,
	}

	if row.Balance != "" {
		if bal, err := ParseAmount(row.Balance); err == nil {
			tx.Balance = &bal
		}
	}

	return tx, nil
}

func collapseWhitespace(s string) string {
	return multiSpace.ReplaceAllString(strings.TrimSpace(s), " ")
}

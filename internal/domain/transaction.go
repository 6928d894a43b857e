package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TxType classifies a transaction by the direction of the money flow.
// Amounts are always non-negative; the sign lives here.
type TxType string

const (
	TxIncome  TxType = "income"
	TxExpense TxType = "expense"
)

// DateFormat is the canonical wire format for transaction dates.
const DateFormat = "2006-01-02"

// Transaction is the normalized, engine-internal representation of one
// bank-statement line.
type Transaction struct {
	ID             string    // engine-generated, unique per statement
	Date           time.Time // day precision, formatted as YYYY-MM-DD
	Description    string    // cleaned description
	RawDescription string    // description before cleanup
	Amount         decimal.Decimal // always >= 0
	Currency       string          // ISO code, e.g. "EUR"
	Type           TxType
	Category       string // optional, AI- or rule-assigned
	Subcategory    string
	Counterparty   string           // optional, cleaned
	Reference      string           // optional bank reference
	Balance        *decimal.Decimal // optional running balance
	Confidence     float64          // 0..1
}

// ISODate returns the transaction date in canonical YYYY-MM-DD form.
func (t *Transaction) ISODate() string {
	return t.Date.Format(DateFormat)
}

// SignedAmount reapplies the direction to the stored absolute amount.
func (t *Transaction) SignedAmount() decimal.Decimal {
	if t.Type == TxExpense {
		return t.Amount.Neg()
	}
	return t.Amount
}

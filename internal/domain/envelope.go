package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Period is the date range covered by a statement. Start is never after End.
type Period struct {
	Start time.Time
	End   time.Time
}

// EnvelopeMetadata records how a statement was processed, for observability.
type EnvelopeMetadata struct {
	DetectedFormat   string // bank profile name, or "generic"
	ProcessingMethod string // e.g. "csv", "xlsx", "ocr-ai", "ocr-regex"
}

// Envelope is the assembled in-memory representation of one imported
// statement. It is constructed fresh per upload and never persisted as a
// whole; only its transactions are.
type Envelope struct {
	AccountNumber  string
	AccountHolder  string
	BankName       string
	IBAN           string
	BIC            string
	Period         Period
	OpeningBalance decimal.Decimal
	ClosingBalance decimal.Decimal
	Transactions   []*Transaction // ascending by date
	Currency       string
	Confidence     float64
	Metadata       EnvelopeMetadata
}

// Package assemble builds the statement envelope from normalized
// transactions plus whatever account metadata the parse path produced.
package assemble

import (
	"sort"
	"time"

	"github.com/ledgerlane/statement-engine/internal/domain"
)

// Confidence floors per processing method. A clean tabular parse is fully
// trusted; regex extraction from OCR text is not.
const (
	regexFallbackCeiling = 0.75
)

// Input carries everything the assembler needs. Account metadata fields are
// optional; they are filled when OCR/AI extraction declared them.
type Input struct {
	Transactions     []*domain.Transaction
	SkippedRows      int
	AccountNumber    string
	AccountHolder    string
	BankName         string
	IBAN             string
	BIC              string
	Currency         string
	PeriodStart      time.Time // declared bounds win over derived ones
	PeriodEnd        time.Time
	DetectedFormat   string
	ProcessingMethod string
}

// Envelope sorts the transactions ascending by date, derives the statement
// period from the first and last transaction, and computes the envelope
// confidence from the skipped-row ratio.
func Envelope(in Input) *domain.Envelope {
	txs := in.Transactions

	sort.SliceStable(txs, func(i, j int) bool {
		return txs[i].Date.Before(txs[j].Date)
	})

	env := &domain.Envelope{
		AccountNumber: in.AccountNumber,
		AccountHolder: in.AccountHolder,
		BankName:      in.BankName,
		IBAN:          in.IBAN,
		BIC:           in.BIC,
		Transactions:  txs,
		Currency:      in.Currency,
		Metadata: domain.EnvelopeMetadata{
			DetectedFormat:   in.DetectedFormat,
			ProcessingMethod: in.ProcessingMethod,
		},
	}

	if len(txs) > 0 {
		env.Period = domain.Period{
			Start: txs[0].Date,
			End:   txs[len(txs)-1].Date,
		}
		if !in.PeriodStart.IsZero() && !in.PeriodEnd.IsZero() && !in.PeriodStart.After(in.PeriodEnd) {
			env.Period = domain.Period{Start: in.PeriodStart, End: in.PeriodEnd}
		}
		if first := txs[0].Balance; first != nil {
			// Opening balance is the running balance before the first
			// transaction.
			env.OpeningBalance = first.Sub(txs[0].SignedAmount())
		}
		if last := txs[len(txs)-1].Balance; last != nil {
			env.ClosingBalance = *last
		}
	}

	env.Confidence = confidence(len(txs), in.SkippedRows, in.ProcessingMethod)
	return env
}

// confidence starts at 1.0 and drops with the share of rows that had to be
// skipped. Regex-extracted OCR statements are capped lower regardless.
func confidence(kept, skipped int, method string) float64 {
	total := kept + skipped
	if total == 0 {
		return 0
	}
	c := float64(kept) / float64(total)
	if method == "ocr-regex" && c > regexFallbackCeiling {
		c = regexFallbackCeiling
	}
	return c
}

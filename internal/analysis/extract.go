package analysis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerlane/statement-engine/internal/assemble"
	"github.com/ledgerlane/statement-engine/internal/domain"
	"github.com/ledgerlane/statement-engine/internal/logger"
	"github.com/ledgerlane/statement-engine/internal/normalize"
)

// aiTxConfidence is attached to transactions the model extracted from OCR
// text. Higher than the regex fallback, lower than a tabular parse.
const aiTxConfidence = 0.9

// Extractor turns raw OCR text into a statement envelope via the model.
// It satisfies the parse package's StatementExtractor contract.
type Extractor struct {
	completer Completer
}

func NewExtractor(completer Completer) *Extractor {
	return &Extractor{completer: completer}
}

// extractedStatement mirrors the JSON contract of the extraction prompt.
type extractedStatement struct {
	AccountNumber   string `json:"accountNumber"`
	AccountHolder   string `json:"accountHolder"`
	BankName        string `json:"bankName"`
	IBAN            string `json:"iban"`
	BIC             string `json:"bic"`
	Currency        string `json:"currency"`
	StatementPeriod struct {
		StartDate string `json:"startDate"`
		EndDate   string `json:"endDate"`
	} `json:"statementPeriod"`
	Transactions []struct {
		Date        string   `json:"date"`
		Description string   `json:"description"`
		Amount      float64  `json:"amount"`
		Balance     *float64 `json:"balance"`
		Reference   string   `json:"reference"`
	} `json:"transactions"`
}

// ExtractStatement runs one completion over the OCR text and builds the
// envelope from whatever decodes cleanly. Individual bad transactions are
// skipped and lower the envelope confidence; a body that is not JSON at all
// is an error, which sends the PDF parser to its regex fallback.
func (e *Extractor) ExtractStatement(ctx context.Context, text string) (*domain.Envelope, error) {
	log := logger.FromContext(ctx)

	raw, err := e.completer.Complete(ctx, buildExtractionPrompt(text))
	if err != nil {
		return nil, fmt.Errorf("ExtractStatement: %w", err)
	}

	var stmt extractedStatement
	if err := json.Unmarshal([]byte(cleanModelJSON(raw)), &stmt); err != nil {
		return nil, fmt.Errorf("ExtractStatement: decode response: %w", err)
	}

	currency := stmt.Currency
	if currency == "" {
		currency = "EUR"
	}

	var txs []*domain.Transaction
	skipped := 0
	for i, row := range stmt.Transactions {
		tx, err := extractedTransaction(row.Date, row.Description, row.Amount, row.Balance, row.Reference, currency)
		if err != nil {
			log.Warn().Err(err).Int("index", i).Msg("skipping unusable extracted transaction")
			skipped++
			continue
		}
		txs = append(txs, tx)
	}

	if len(txs) == 0 {
		return nil, domain.ErrEmptyStatement
	}

	return assemble.Envelope(assemble.Input{
		Transactions:     txs,
		SkippedRows:      skipped,
		AccountNumber:    stmt.AccountNumber,
		AccountHolder:    stmt.AccountHolder,
		BankName:         stmt.BankName,
		IBAN:             stmt.IBAN,
		BIC:              stmt.BIC,
		Currency:         currency,
		PeriodStart:      parsedOrZero(stmt.StatementPeriod.StartDate),
		PeriodEnd:        parsedOrZero(stmt.StatementPeriod.EndDate),
		DetectedFormat:   stmt.BankName,
		ProcessingMethod: "ocr-ai",
	}), nil
}

func extractedTransaction(date, description string, amount float64, balance *float64, reference, currency string) (*domain.Transaction, error) {
	day, err := normalize.ParseDate(date)
	if err != nil {
		return nil, err
	}

	amt := decimal.NewFromFloat(amount)
	if amt.IsZero() {
		return nil, fmt.Errorf("zero amount")
	}

	txType := domain.TxIncome
	if amt.IsNegative() {
		txType = domain.TxExpense
	}

	tx := &domain.Transaction{
		ID:             uuid.NewString(),
		Date:           day,
		Description:    description,
		RawDescription: description,
		Amount:         amt.Abs(),
		Currency:       currency,
		Type:           txType,
		Counterparty:   normalize.CleanCounterparty(description),
		Reference:      reference,
		Confidence:     aiTxConfidence,
	}
	if balance != nil {
		b := decimal.NewFromFloat(*balance)
		tx.Balance = &b
	}
	return tx, nil
}

func parsedOrZero(date string) time.Time {
	if date == "" {
		return time.Time{}
	}
	day, err := normalize.ParseDate(date)
	if err != nil {
		return time.Time{}
	}
	return day
}

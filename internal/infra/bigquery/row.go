// Package bigquery persists statement transactions and serves the dedup
// lookups and history queries of the import pipeline.
package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"github.com/ledgerlane/statement-engine/internal/domain"
)

// amountScale is the decimal scale used when reading NUMERIC values back.
// Matches the scale of the BigQuery NUMERIC type.
const amountScale = 9

// TransactionRow is the storage schema of one booked transaction.
type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED

	AccountNumber string `bigquery:"account_number"` // REQUIRED

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED

	Amount   *big.Rat `bigquery:"amount"`   // REQUIRED NUMERIC, signed
	Currency string   `bigquery:"currency"` // REQUIRED STRING

	BalanceAfter *big.Rat `bigquery:"balance_after"` // NULLABLE NUMERIC

	Direction string `bigquery:"direction"` // income | expense

	RawDescription        string              `bigquery:"raw_description"`        // REQUIRED STRING
	NormalizedDescription bigquery.NullString `bigquery:"normalized_description"` // NULLABLE
	Counterparty          bigquery.NullString `bigquery:"counterparty"`           // NULLABLE

	CategoryName    bigquery.NullString `bigquery:"category_name"`    // NULLABLE
	SubcategoryName bigquery.NullString `bigquery:"subcategory_name"` // NULLABLE

	ExternalReference bigquery.NullString `bigquery:"external_reference"` // NULLABLE

	Confidence       float64 `bigquery:"confidence"`
	ProcessingMethod string  `bigquery:"processing_method"` // csv | xls | xlsx | ocr-ai | ocr-regex

	CreatedTS time.Time `bigquery:"created_ts"` // REQUIRED
}

// rowFromTransaction maps a domain transaction onto the storage schema.
func rowFromTransaction(account, method string, tx *domain.Transaction) *TransactionRow {
	row := &TransactionRow{
		TransactionID:    tx.ID,
		AccountNumber:    account,
		TransactionDate:  civil.DateOf(tx.Date),
		Amount:           tx.SignedAmount().Rat(),
		Currency:         tx.Currency,
		Direction:        string(tx.Type),
		RawDescription:   tx.RawDescription,
		Confidence:       tx.Confidence,
		ProcessingMethod: method,
		CreatedTS:        time.Now().UTC(),
	}
	if tx.Description != "" && tx.Description != tx.RawDescription {
		row.NormalizedDescription = bigquery.NullString{StringVal: tx.Description, Valid: true}
	}
	if tx.Counterparty != "" {
		row.Counterparty = bigquery.NullString{StringVal: tx.Counterparty, Valid: true}
	}
	if tx.Category != "" {
		row.CategoryName = bigquery.NullString{StringVal: tx.Category, Valid: true}
	}
	if tx.Subcategory != "" {
		row.SubcategoryName = bigquery.NullString{StringVal: tx.Subcategory, Valid: true}
	}
	if tx.Reference != "" {
		row.ExternalReference = bigquery.NullString{StringVal: tx.Reference, Valid: true}
	}
	if tx.Balance != nil {
		row.BalanceAfter = tx.Balance.Rat()
	}
	return row
}

// transactionFromRow maps a stored row back to the domain shape.
func transactionFromRow(row *TransactionRow) *domain.Transaction {
	amount := decimal.NewFromBigRat(row.Amount, amountScale)

	tx := &domain.Transaction{
		ID:             row.TransactionID,
		Date:           row.TransactionDate.In(time.UTC),
		RawDescription: row.RawDescription,
		Description:    row.RawDescription,
		Currency:       row.Currency,
		Type:           domain.TxType(row.Direction),
		Amount:         amount.Abs(),
		Confidence:     row.Confidence,
	}
	if row.NormalizedDescription.Valid {
		tx.Description = row.NormalizedDescription.StringVal
	}
	if row.Counterparty.Valid {
		tx.Counterparty = row.Counterparty.StringVal
	}
	if row.CategoryName.Valid {
		tx.Category = row.CategoryName.StringVal
	}
	if row.SubcategoryName.Valid {
		tx.Subcategory = row.SubcategoryName.StringVal
	}
	if row.ExternalReference.Valid {
		tx.Reference = row.ExternalReference.StringVal
	}
	if row.BalanceAfter != nil {
		b := decimal.NewFromBigRat(row.BalanceAfter, amountScale)
		tx.Balance = &b
	}
	return tx
}

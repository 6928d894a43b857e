package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"google.golang.org/api/iterator"

	"github.com/ledgerlane/statement-engine/internal/dedupe"
	"github.com/ledgerlane/statement-engine/internal/domain"
)

const (
	transactionsTable = "transactions"
	invoicesTable     = "invoices"
)

var _ dedupe.Store = (*Store)(nil)

// Store is the BigQuery-backed persistence layer. The client is injected so
// commands construct it once and tests substitute a fake at the interface
// level above.
type Store struct {
	client  *bigquery.Client
	dataset string
}

// NewStore wires a store onto an existing client and dataset.
func NewStore(client *bigquery.Client, dataset string) *Store {
	return &Store{client: client, dataset: dataset}
}

// FindExisting implements the dedup lookup with a parameterized count over
// the natural key.
func (s *Store) FindExisting(ctx context.Context, key dedupe.Key) (bool, error) {
	amount, err := decimal.NewFromString(key.Amount)
	if err != nil {
		return false, fmt.Errorf("FindExisting: bad amount %q: %w", key.Amount, err)
	}
	// transaction_date is a DATE column; the parameter must be typed as one.
	date, err := civil.ParseDate(key.Date)
	if err != nil {
		return false, fmt.Errorf("FindExisting: bad date %q: %w", key.Date, err)
	}

	q := s.client.Query(fmt.Sprintf(`
		SELECT COUNT(*) AS n
		FROM %s.%s
		WHERE account_number = @account
		  AND transaction_date = @date
		  AND amount = @amount
		  AND (external_reference = @reference
		       OR COALESCE(normalized_description, raw_description) = @reference)
	`, s.dataset, transactionsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "account", Value: key.Account},
		{Name: "date", Value: date},
		{Name: "amount", Value: amount.Rat()},
		{Name: "reference", Value: key.Reference},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return false, fmt.Errorf("FindExisting: query read: %w", err)
	}

	var row struct {
		N int64 `bigquery:"n"`
	}
	if err := it.Next(&row); err != nil && err != iterator.Done {
		return false, fmt.Errorf("FindExisting: iter next: %w", err)
	}
	return row.N > 0, nil
}

// Create inserts one transaction through the streaming inserter.
func (s *Store) Create(ctx context.Context, env *domain.Envelope, tx *domain.Transaction) error {
	row := rowFromTransaction(env.AccountNumber, env.Metadata.ProcessingMethod, tx)
	inserter := s.client.Dataset(s.dataset).Table(transactionsTable).Inserter()
	if err := inserter.Put(ctx, []*TransactionRow{row}); err != nil {
		return fmt.Errorf("Create: inserting row: %w", err)
	}
	return nil
}

// TransactionsByDateRange returns all stored transactions booked inside the
// date range, oldest first. Dates are ISO days, inclusive on both ends.
func (s *Store) TransactionsByDateRange(ctx context.Context, startDate, endDate string) ([]*domain.Transaction, error) {
	start, err := civil.ParseDate(startDate)
	if err != nil {
		return nil, fmt.Errorf("TransactionsByDateRange: bad start date %q: %w", startDate, err)
	}
	end, err := civil.ParseDate(endDate)
	if err != nil {
		return nil, fmt.Errorf("TransactionsByDateRange: bad end date %q: %w", endDate, err)
	}

	q := s.client.Query(fmt.Sprintf(`
		SELECT *
		FROM %s.%s
		WHERE transaction_date >= @start_date
		  AND transaction_date <= @end_date
		ORDER BY transaction_date, created_ts
	`, s.dataset, transactionsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "start_date", Value: start},
		{Name: "end_date", Value: end},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("TransactionsByDateRange: query read: %w", err)
	}

	var txs []*domain.Transaction
	for {
		var row TransactionRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("TransactionsByDateRange: iter next: %w", err)
		}
		txs = append(txs, transactionFromRow(&row))
	}
	return txs, nil
}

// RecentTransactions returns the newest stored transactions of an account,
// used as duplicate-detection context for the analysis prompt.
func (s *Store) RecentTransactions(ctx context.Context, account string, limit int) ([]*domain.Transaction, error) {
	q := s.client.Query(fmt.Sprintf(`
		SELECT *
		FROM %s.%s
		WHERE account_number = @account
		ORDER BY transaction_date DESC, created_ts DESC
		LIMIT @limit
	`, s.dataset, transactionsTable))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "account", Value: account},
		{Name: "limit", Value: int64(limit)},
	}

	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("RecentTransactions: query read: %w", err)
	}

	var txs []*domain.Transaction
	for {
		var row TransactionRow
		err := it.Next(&row)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("RecentTransactions: iter next: %w", err)
		}
		txs = append(txs, transactionFromRow(&row))
	}
	return txs, nil
}

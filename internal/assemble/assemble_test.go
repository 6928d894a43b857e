package assemble

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlane/statement-engine/internal/domain"
)

func day(s string) time.Time {
	t, err := time.Parse(domain.DateFormat, s)
	if err != nil {
		panic(err)
	}
	return t
}

func tx(date string, amount string, txType domain.TxType) *domain.Transaction {
	return &domain.Transaction{
		ID:     date + "-" + amount,
		Date:   day(date),
		Amount: decimal.RequireFromString(amount),
		Type:   txType,
	}
}

func TestEnvelopeSortsAscendingByDate(t *testing.T) {
	env := Envelope(Input{
		Transactions: []*domain.Transaction{
			tx("2024-03-15", "10", domain.TxExpense),
			tx("2024-03-01", "20", domain.TxIncome),
			tx("2024-03-10", "30", domain.TxExpense),
		},
		Currency:         "EUR",
		ProcessingMethod: "csv",
	})

	require.Len(t, env.Transactions, 3)
	for i := 1; i < len(env.Transactions); i++ {
		assert.False(t, env.Transactions[i].Date.Before(env.Transactions[i-1].Date))
	}
	assert.Equal(t, day("2024-03-01"), env.Period.Start)
	assert.Equal(t, day("2024-03-15"), env.Period.End)
	assert.False(t, env.Period.Start.After(env.Period.End))
}

func TestEnvelopeDeclaredPeriodWins(t *testing.T) {
	env := Envelope(Input{
		Transactions: []*domain.Transaction{tx("2024-03-10", "10", domain.TxIncome)},
		PeriodStart:  day("2024-03-01"),
		PeriodEnd:    day("2024-03-31"),
	})
	assert.Equal(t, day("2024-03-01"), env.Period.Start)
	assert.Equal(t, day("2024-03-31"), env.Period.End)
}

func TestEnvelopeBalances(t *testing.T) {
	first := tx("2024-03-01", "1200", domain.TxExpense)
	bal1 := decimal.RequireFromString("8800")
	first.Balance = &bal1

	last := tx("2024-03-20", "500", domain.TxIncome)
	bal2 := decimal.RequireFromString("9300")
	last.Balance = &bal2

	env := Envelope(Input{Transactions: []*domain.Transaction{last, first}})

	// Opening balance is the balance before the first transaction:
	// 8800 - (-1200) = 10000.
	assert.Equal(t, "10000", env.OpeningBalance.String())
	assert.Equal(t, "9300", env.ClosingBalance.String())
}

func TestEnvelopeConfidence(t *testing.T) {
	t.Run("clean parse is fully trusted", func(t *testing.T) {
		env := Envelope(Input{
			Transactions:     []*domain.Transaction{tx("2024-03-01", "10", domain.TxIncome)},
			ProcessingMethod: "csv",
		})
		assert.Equal(t, 1.0, env.Confidence)
	})

	t.Run("skipped rows reduce confidence", func(t *testing.T) {
		env := Envelope(Input{
			Transactions:     []*domain.Transaction{tx("2024-03-01", "10", domain.TxIncome)},
			SkippedRows:      1,
			ProcessingMethod: "csv",
		})
		assert.Equal(t, 0.5, env.Confidence)
	})

	t.Run("regex fallback is capped", func(t *testing.T) {
		env := Envelope(Input{
			Transactions:     []*domain.Transaction{tx("2024-03-01", "10", domain.TxIncome)},
			ProcessingMethod: "ocr-regex",
		})
		assert.Equal(t, 0.75, env.Confidence)
	})

	t.Run("empty input has zero confidence", func(t *testing.T) {
		env := Envelope(Input{})
		assert.Equal(t, 0.0, env.Confidence)
		assert.Empty(t, env.Transactions)
	})
}

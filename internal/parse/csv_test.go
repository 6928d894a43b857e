package parse

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlane/statement-engine/internal/domain"
)

func TestCSVParserGermanConvention(t *testing.T) {
	// Header Date,Description,Amount,Balance with a German-formatted row:
	// the comma decimal splits the amount across fields.
	data := "Date,Description,Amount,Balance\n" +
		"01.03.2024,Büromiete,-1200,00,8800,00\n"

	env, err := (&CSVParser{}).Parse(context.Background(), Document{Data: []byte(data), Filename: "export.csv", Type: TypeCSV})
	require.NoError(t, err)
	require.Len(t, env.Transactions, 1)

	tx := env.Transactions[0]
	assert.Equal(t, "1200", tx.Amount.String())
	assert.Equal(t, domain.TxExpense, tx.Type)
	assert.Equal(t, "2024-03-01", tx.ISODate())
	assert.Equal(t, "Büromiete", tx.Description)
	require.NotNil(t, tx.Balance)
	assert.Equal(t, "8800", tx.Balance.String())
}

func TestCSVParserSkipsBadRowsAndKeepsGoing(t *testing.T) {
	data := "Date,Description,Amount\n" +
		"01.03.2024,Miete,-1200.00\n" +
		"not-a-date,Broken,xx\n" +
		"02.03.2024,Gehalt,3500.00\n" +
		"short\n"

	env, err := (&CSVParser{}).Parse(context.Background(), Document{Data: []byte(data)})
	require.NoError(t, err)
	assert.Len(t, env.Transactions, 2)
	// Two of four rows were skipped.
	assert.Equal(t, 0.5, env.Confidence)
}

func TestCSVParserEmptyStatement(t *testing.T) {
	t.Run("header only", func(t *testing.T) {
		_, err := (&CSVParser{}).Parse(context.Background(), Document{Data: []byte("Date,Description,Amount\n")})
		assert.ErrorIs(t, err, domain.ErrEmptyStatement)
	})

	t.Run("all rows invalid", func(t *testing.T) {
		data := "Date,Description,Amount\nfoo,bar,baz\n"
		_, err := (&CSVParser{}).Parse(context.Background(), Document{Data: []byte(data)})
		assert.ErrorIs(t, err, domain.ErrEmptyStatement)
	})
}

func TestCSVParserDetectsBankFromHeader(t *testing.T) {
	data := "Buchungstag,Verwendungszweck,Betrag,Saldo\n" +
		"01.03.2024,REWE Markt,-54,30,1000,00\n"

	env, err := (&CSVParser{}).Parse(context.Background(), Document{Data: []byte(data)})
	require.NoError(t, err)
	assert.Equal(t, "Sparkasse", env.Metadata.DetectedFormat)
	assert.Equal(t, "EUR", env.Currency)
	assert.Equal(t, "csv", env.Metadata.ProcessingMethod)
}

func TestCSVParserTransactionsSorted(t *testing.T) {
	data := "Date,Description,Amount\n" +
		"05.03.2024,b,-10.00\n" +
		"01.03.2024,a,-20.00\n" +
		"03.03.2024,c,30.00\n"

	env, err := (&CSVParser{}).Parse(context.Background(), Document{Data: []byte(data)})
	require.NoError(t, err)
	require.Len(t, env.Transactions, 3)
	for i := 1; i < len(env.Transactions); i++ {
		assert.False(t, env.Transactions[i].Date.Before(env.Transactions[i-1].Date))
	}
	assert.Equal(t, "2024-03-01", env.Period.Start.Format(domain.DateFormat))
	assert.Equal(t, "2024-03-05", env.Period.End.Format(domain.DateFormat))
}

func TestRepairCommaDecimals(t *testing.T) {
	tests := []struct {
		name     string
		record   []string
		expected int
		want     []string
	}{
		{
			name:     "two split amounts",
			record:   []string{"01.03.2024", "Miete", "-1200", "00", "8800", "00"},
			expected: 4,
			want:     []string{"01.03.2024", "Miete", "-1200,00", "8800,00"},
		},
		{
			name:     "already correct width",
			record:   []string{"01.03.2024", "Miete", "-1200,00"},
			expected: 3,
			want:     []string{"01.03.2024", "Miete", "-1200,00"},
		},
		{
			name:     "grouped thousands",
			record:   []string{"01.03.2024", "Gehalt", "3.500", "00"},
			expected: 3,
			want:     []string{"01.03.2024", "Gehalt", "3.500,00"},
		},
		{
			name:     "no mergeable pair left untouched",
			record:   []string{"a", "b", "c", "d"},
			expected: 3,
			want:     []string{"a", "b", "c", "d"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, repairCommaDecimals(tt.record, tt.expected))
		})
	}
}

func TestTypeFromString(t *testing.T) {
	for _, s := range []string{"csv", "CSV", ".csv"} {
		got, err := TypeFromString(s)
		require.NoError(t, err)
		assert.Equal(t, TypeCSV, got)
	}

	_, err := TypeFromString("docx")
	var formatErr *domain.FormatError
	require.ErrorAs(t, err, &formatErr)
	assert.Equal(t, "docx", formatErr.Type)
}

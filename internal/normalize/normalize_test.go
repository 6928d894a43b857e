package normalize

import (
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlane/statement-engine/internal/domain"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "german convention", input: "31.12.2024", want: "2024-12-31"},
		{name: "iso", input: "2024-03-01", want: "2024-03-01"},
		{name: "uk slashes", input: "15/01/2024", want: "2024-01-15"},
		{name: "textual month", input: "15 Jan 2024", want: "2024-01-15"},
		{name: "single digit day and month", input: "1.3.2024", want: "2024-03-01"},
		{name: "excel serial", input: "45000", want: "2023-03-15"},
		{name: "small number is not a serial", input: "1234", wantErr: true},
		{name: "empty", input: "", wantErr: true},
		{name: "garbage", input: "not a date", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseDate(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Format(domain.DateFormat))
		})
	}
}

func TestParseDateExcelSerialIsValidGregorian(t *testing.T) {
	got, err := ParseDate("45000")
	require.NoError(t, err)
	assert.False(t, got.IsZero())
	assert.Equal(t, 2023, got.Year())
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    string
		wantErr bool
	}{
		{name: "european thousands", input: "1.234,56", want: "1234.56"},
		{name: "us thousands", input: "1,234.56", want: "1234.56"},
		{name: "plain dot decimal", input: "1234.56", want: "1234.56"},
		{name: "lone comma is decimal", input: "12,50", want: "12.5"},
		{name: "negative with currency symbol", input: "-1.200,00 €", want: "-1200"},
		{name: "pound sign", input: "£249.00", want: "249"},
		{name: "currency code suffix", input: "99,90 EUR", want: "99.9"},
		{name: "non-breaking space grouping", input: "1 234,56", want: "1234.56"},
		{name: "empty", input: "", wantErr: true},
		{name: "dash only", input: "-", wantErr: true},
		{name: "garbage", input: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestCleanCounterpartyRules(t *testing.T) {
	tests := []struct {
		rule  string
		input string
		want  string
	}{
		{rule: "transfer-prefix", input: "SEPA-LASTSCHRIFT Telekom Deutschland", want: " Telekom Deutschland"},
		{rule: "transfer-prefix", input: "DIRECT DEBIT British Gas", want: " British Gas"},
		{rule: "iban", input: "Miete DE02120300000000202051 Mai", want: "Miete   Mai"},
		{rule: "long-reference", input: "Rewe 1234567890123 Filiale", want: "Rewe   Filiale"},
		{rule: "card-scheme", input: "VISA Amazon Payments", want: "  Amazon Payments"},
	}

	for _, tt := range tests {
		t.Run(tt.rule, func(t *testing.T) {
			assert.Equal(t, tt.want, applyRule(tt.rule, tt.input))
		})
	}
}

func TestCleanCounterparty(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "sepa prefix and iban stripped",
			input: "SEPA-LASTSCHRIFT Telekom Deutschland GmbH DE02120300000000202051 Rechnung 1234567890",
			want:  "Telekom Deutschland GmbH",
		},
		{
			name:  "segment before slash",
			input: "Amazon EU S.a.r.l./AMZN-4711/BERLIN",
			want:  "Amazon EU S.a.r.l.",
		},
		{
			name:  "plain name untouched",
			input: "Büromiete März",
			want:  "Büromiete März",
		},
		{
			name:  "empty stays empty",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanCounterparty(tt.input))
		})
	}
}

func TestCleanCounterpartyCapsLength(t *testing.T) {
	t.Run("ascii", func(t *testing.T) {
		long := strings.Repeat("abcdefghij", 30)
		got := CleanCounterparty(long)
		assert.LessOrEqual(t, len(got), 100)
	})

	t.Run("umlaut straddling the cap stays valid utf-8", func(t *testing.T) {
		// The ä occupies bytes 99-100, right across the cap.
		long := strings.Repeat("a", 99) + "äöü"
		got := CleanCounterparty(long)
		assert.LessOrEqual(t, len(got), 100)
		assert.True(t, utf8.ValidString(got))
		assert.Equal(t, strings.Repeat("a", 99), got)
	})
}

func TestRow(t *testing.T) {
	t.Run("expense keeps absolute amount", func(t *testing.T) {
		tx, err := Row(RawRow{Line: 2, Date: "01.03.2024", Description: "Büromiete", Amount: "-1200,00", Balance: "8800,00"}, "EUR")
		require.NoError(t, err)
		assert.Equal(t, "1200", tx.Amount.String())
		assert.Equal(t, domain.TxExpense, tx.Type)
		assert.Equal(t, "2024-03-01", tx.ISODate())
		assert.Equal(t, "EUR", tx.Currency)
		require.NotNil(t, tx.Balance)
		assert.Equal(t, "8800", tx.Balance.String())
		assert.NotEmpty(t, tx.ID)
	})

	t.Run("income type for positive amount", func(t *testing.T) {
		tx, err := Row(RawRow{Line: 3, Date: "2024-03-02", Description: "Gehalt", Amount: "3.500,00"}, "EUR")
		require.NoError(t, err)
		assert.Equal(t, domain.TxIncome, tx.Type)
		assert.True(t, tx.Amount.IsPositive())
	})

	t.Run("bad date yields row error", func(t *testing.T) {
		_, err := Row(RawRow{Line: 4, Date: "yesterday", Amount: "10,00"}, "EUR")
		var rowErr *domain.RowError
		require.True(t, errors.As(err, &rowErr))
		assert.Equal(t, "date", rowErr.Field)
		assert.Equal(t, 4, rowErr.Line)
	})

	t.Run("zero amount is skipped", func(t *testing.T) {
		_, err := Row(RawRow{Line: 5, Date: "01.03.2024", Amount: "0,00"}, "EUR")
		var rowErr *domain.RowError
		require.True(t, errors.As(err, &rowErr))
		assert.Equal(t, "amount", rowErr.Field)
	})

	t.Run("raw description preserved", func(t *testing.T) {
		raw := "SEPA-LASTSCHRIFT  Telekom   Deutschland"
		tx, err := Row(RawRow{Line: 6, Date: "01.03.2024", Description: raw, Amount: "-49,99"}, "EUR")
		require.NoError(t, err)
		assert.Equal(t, raw, tx.RawDescription)
		assert.NotContains(t, tx.Description, "  ")
	})
}

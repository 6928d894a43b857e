package normalize

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

var currencyTokens = []string{
	"€", "$", "£", "EUR", "USD", "GBP", "CHF",
}

// ParseAmount converts a raw amount cell into a decimal. It strips currency
// symbols and whitespace, then disambiguates the separator convention:
// when both ',' and '.' appear, the one occurring earlier is the thousands
// separator and the later one the decimal point ("1.234,56" vs "1,234.56");
// a lone ',' is treated as the decimal point.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	for _, tok := range currencyTokens {
		s = strings.ReplaceAll(s, tok, "")
	}
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, "\u00A0", "")
	s = strings.TrimSpace(s)

	if s == "" || s == "-" {
		return decimal.Decimal{}, fmt.Errorf("empty amount")
	}

	comma := strings.Index(s, ",")
	dot := strings.Index(s, ".")

	switch {
	case comma >= 0 && dot >= 0:
		if dot < comma {
			// European: '.' groups thousands, ',' is the decimal point.
			s = strings.ReplaceAll(s, ".", "")
			s = strings.Replace(s, ",", ".", 1)
		} else {
			// US/UK: ',' groups thousands.
			s = strings.ReplaceAll(s, ",", "")
		}
	case comma >= 0:
		// Only commas: the last one is the decimal point.
		if strings.Count(s, ",") > 1 {
			last := strings.LastIndex(s, ",")
			s = strings.ReplaceAll(s[:last], ",", "") + "." + s[last+1:]
		} else {
			s = strings.Replace(s, ",", ".", 1)
		}
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("unparseable amount %q: %w", raw, err)
	}
	return d, nil
}

// Package bankformat holds the reference data describing known bank export
// conventions: identifier strings for detection, date and amount formats,
// and localized column-header vocabulary.
package bankformat

import "strings"

// Field names the four columns the engine needs from any tabular export.
type Field string

const (
	FieldDate        Field = "date"
	FieldDescription Field = "description"
	FieldAmount      Field = "amount"
	FieldBalance     Field = "balance"
)

// AmountFormat distinguishes the two decimal conventions seen in exports.
type AmountFormat string

const (
	// AmountComma is the European convention: "1.234,56".
	AmountComma AmountFormat = "comma-decimal"
	// AmountDot is the US/UK convention: "1,234.56".
	AmountDot AmountFormat = "dot-decimal"
)

// Profile describes one bank's export conventions. Profiles are immutable
// reference data; Detect matches them in declaration order.
type Profile struct {
	Name        string
	Identifiers []string // case-sensitive substrings, order is priority
	DateFormat  string   // Go reference layout of the bank's date column
	AmountFmt   AmountFormat
	Currency    string             // ISO code of the bank's home currency
	ColumnHints map[Field][]string // localized header name variants
}

// profiles is the fixed ordered registry. Earlier entries win.
var profiles = []Profile{
	{
		Name:        "Sparkasse",
		Identifiers: []string{"Sparkasse", "Auftragskonto", "Buchungstag"},
		DateFormat:  "02.01.2006",
		AmountFmt:   AmountComma,
		Currency:    "EUR",
		ColumnHints: map[Field][]string{
			FieldDate:        {"Buchungstag", "Valutadatum"},
			FieldDescription: {"Verwendungszweck", "Buchungstext"},
			FieldAmount:      {"Betrag"},
			FieldBalance:     {"Saldo"},
		},
	},
	{
		Name:        "Deutsche Bank",
		Identifiers: []string{"Deutsche Bank", "Umsatzanzeige"},
		DateFormat:  "02.01.2006",
		AmountFmt:   AmountComma,
		Currency:    "EUR",
		ColumnHints: map[Field][]string{
			FieldDate:        {"Buchungstag", "Wert"},
			FieldDescription: {"Verwendungszweck", "Umsatzart"},
			FieldAmount:      {"Soll", "Haben", "Betrag"},
			FieldBalance:     {"Saldo"},
		},
	},
	{
		Name:        "Commerzbank",
		Identifiers: []string{"Commerzbank", "Wertstellung"},
		DateFormat:  "02.01.2006",
		AmountFmt:   AmountComma,
		Currency:    "EUR",
		ColumnHints: map[Field][]string{
			FieldDate:        {"Buchungstag", "Wertstellung"},
			FieldDescription: {"Buchungstext", "Vorgang"},
			FieldAmount:      {"Betrag"},
			FieldBalance:     {"Saldo"},
		},
	},
	{
		Name:        "N26",
		Identifiers: []string{"N26", "Partner Name", "Payment Reference"},
		DateFormat:  "2006-01-02",
		AmountFmt:   AmountDot,
		Currency:    "EUR",
		ColumnHints: map[Field][]string{
			FieldDate:        {"Booking Date", "Value Date", "Date"},
			FieldDescription: {"Payment Reference", "Partner Name"},
			FieldAmount:      {"Amount (EUR)", "Amount"},
			FieldBalance:     {"Balance"},
		},
	},
	{
		Name:        "ING",
		Identifiers: []string{"ING-DiBa", "ING", "Buchung"},
		DateFormat:  "02.01.2006",
		AmountFmt:   AmountComma,
		Currency:    "EUR",
		ColumnHints: map[Field][]string{
			FieldDate:        {"Buchung", "Valuta"},
			FieldDescription: {"Verwendungszweck", "Auftraggeber/Empfänger"},
			FieldAmount:      {"Betrag"},
			FieldBalance:     {"Saldo"},
		},
	},
	{
		Name:        "Barclays",
		Identifiers: []string{"Barclays", "barclays.co.uk"},
		DateFormat:  "02/01/2006",
		AmountFmt:   AmountDot,
		Currency:    "GBP",
		ColumnHints: map[Field][]string{
			FieldDate:        {"Date"},
			FieldDescription: {"Description", "Memo"},
			FieldAmount:      {"Amount", "Money out", "Money in"},
			FieldBalance:     {"Balance"},
		},
	},
	{
		Name:        "HSBC",
		Identifiers: []string{"HSBC", "hsbc.co.uk"},
		DateFormat:  "02/01/2006",
		AmountFmt:   AmountDot,
		Currency:    "GBP",
		ColumnHints: map[Field][]string{
			FieldDate:        {"Date"},
			FieldDescription: {"Description", "Payment type and details"},
			FieldAmount:      {"Amount", "Paid out", "Paid in"},
			FieldBalance:     {"Balance"},
		},
	},
}

// Detect identifies a known bank from a text sample (header row or extracted
// document text). The first profile with any identifier occurring in the
// text wins; detection is case-sensitive substring matching and profile
// order is priority.
func Detect(text string) (*Profile, bool) {
	for i := range profiles {
		p := &profiles[i]
		if matchesAny(text, p.Identifiers) {
			return p, true
		}
	}
	return nil, false
}

func matchesAny(text string, identifiers []string) bool {
	for _, id := range identifiers {
		if strings.Contains(text, id) {
			return true
		}
	}
	return false
}

// GenericColumns is the language-mixed fallback vocabulary used when no
// bank profile matched. German variants first, English after.
func GenericColumns() map[Field][]string {
	return map[Field][]string{
		FieldDate:        {"Datum", "Buchungstag", "Wertstellung", "Valuta", "Date", "Booking Date"},
		FieldDescription: {"Verwendungszweck", "Buchungstext", "Beschreibung", "Empfänger", "Description", "Details", "Reference"},
		FieldAmount:      {"Betrag", "Umsatz", "Soll", "Haben", "Amount", "Value", "Debit", "Credit"},
		FieldBalance:     {"Saldo", "Kontostand", "Balance"},
	}
}

// Profiles returns the registry for callers that need to enumerate it.
func Profiles() []Profile {
	return profiles
}

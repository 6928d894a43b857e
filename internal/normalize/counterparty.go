package normalize

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

const maxCounterpartyLen = 100

// stripRule removes one class of noise from a raw description. Rules are
// applied in order; each one is independently testable.
type stripRule struct {
	name    string
	pattern *regexp.Regexp
}

// stripRules is the ordered cleanup table. Transaction-type prefixes first,
// then IBAN/BIC-shaped tokens, then long reference numbers.
var stripRules = []stripRule{
	{
		name: "transfer-prefix",
		pattern: regexp.MustCompile(`(?i)^\s*(SEPA[- ]?(ÜBERWEISUNG|UEBERWEISUNG|LASTSCHRIFT|GUTSCHRIFT|DAUERAUFTRAG)|LASTSCHRIFT|ÜBERWEISUNG|UEBERWEISUNG|GUTSCHRIFT|DAUERAUFTRAG|KARTENZAHLUNG|ENTGELTABRECHNUNG|DIRECT DEBIT|STANDING ORDER|BANK TRANSFER|CARD PAYMENT( TO)?|FASTER PAYMENT)\b[:\s]*`),
	},
	{
		name:    "card-scheme",
		pattern: regexp.MustCompile(`\b(VISA|MASTERCARD|MAESTRO|GIROCARD|AMEX)\b`),
	},
	{
		name:    "iban",
		pattern: regexp.MustCompile(`\b[A-Z]{2}\d{2}[A-Z0-9]{10,30}\b`),
	},
	{
		name:    "bic",
		pattern: regexp.MustCompile(`\b[A-Z]{6}[A-Z0-9]{2}([A-Z0-9]{3})?\b`),
	},
	{
		name:    "long-reference",
		pattern: regexp.MustCompile(`\b\d{10,}\b`),
	},
}

var multiSpace = regexp.MustCompile(`\s{2,}`)

// CleanCounterparty extracts a display-worthy counterparty name from a raw
// statement description. Returns "" when nothing usable remains.
func CleanCounterparty(raw string) string {
	s := raw
	for _, rule := range stripRules {
		s = rule.pattern.ReplaceAllString(s, " ")
	}

	// The counterparty is the segment before the first double space or
	// slash; everything after is usually purpose text or references.
	if idx := strings.Index(s, "  "); idx >= 0 {
		s = s[:idx]
	}
	if idx := strings.Index(s, "/"); idx >= 0 {
		s = s[:idx]
	}

	s = multiSpace.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	if len(s) > maxCounterpartyLen {
		// Back the cut up to a rune boundary so a multibyte character is
		// never split.
		cut := maxCounterpartyLen
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut]
	}
	return s
}

// applyRule runs a single named rule, for rule-level tests.
func applyRule(name, input string) string {
	for _, rule := range stripRules {
		if rule.name == name {
			return rule.pattern.ReplaceAllString(input, " ")
		}
	}
	return input
}

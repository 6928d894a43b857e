// Package parse turns raw statement uploads into statement envelopes. One
// adapter per file family (CSV, spreadsheet, OCR'd PDF) behind a single
// Parser contract; the adapter is chosen at construction time from the
// declared file type.
package parse

import (
	"context"
	"strings"

	"github.com/ledgerlane/statement-engine/internal/bankformat"
	"github.com/ledgerlane/statement-engine/internal/domain"
	"github.com/ledgerlane/statement-engine/internal/ocr"
)

// FileType is the declared type of an uploaded document.
type FileType string

const (
	TypeCSV  FileType = "csv"
	TypeXLS  FileType = "xls"
	TypeXLSX FileType = "xlsx"
	TypePDF  FileType = "pdf"
)

// TypeFromString maps a declared type or filename extension onto a FileType.
func TypeFromString(s string) (FileType, error) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "csv":
		return TypeCSV, nil
	case "xls":
		return TypeXLS, nil
	case "xlsx":
		return TypeXLSX, nil
	case "pdf":
		return TypePDF, nil
	default:
		return "", &domain.FormatError{Type: s}
	}
}

// Document is one uploaded statement: raw bytes plus what the caller
// declared about them.
type Document struct {
	Data     []byte
	Filename string
	Type     FileType
}

// Parser is the contract every adapter implements.
type Parser interface {
	Parse(ctx context.Context, doc Document) (*domain.Envelope, error)
}

// StatementExtractor is the AI text-to-structured-statement collaborator
// used by the PDF adapter's primary path.
type StatementExtractor interface {
	ExtractStatement(ctx context.Context, text string) (*domain.Envelope, error)
}

// Deps carries the collaborators some adapters need.
type Deps struct {
	OCR       *ocr.Poller
	Extractor StatementExtractor
}

// New selects the adapter for the declared file type.
func New(t FileType, deps Deps) (Parser, error) {
	switch t {
	case TypeCSV:
		return &CSVParser{}, nil
	case TypeXLSX:
		return &SpreadsheetParser{}, nil
	case TypeXLS:
		return &SpreadsheetParser{Legacy: true}, nil
	case TypePDF:
		return &PDFParser{OCR: deps.OCR, Extractor: deps.Extractor}, nil
	default:
		return nil, &domain.FormatError{Type: string(t)}
	}
}

// resolveColumns scans a header row for substring matches against the hint
// vocabulary. Fields are resolved in a fixed order and a column claimed by
// one field is not offered to the next.
func resolveColumns(header []string, hints map[bankformat.Field][]string) (map[bankformat.Field]int, []string) {
	resolved := make(map[bankformat.Field]int)
	claimed := make(map[int]bool)

	order := []bankformat.Field{
		bankformat.FieldDate,
		bankformat.FieldDescription,
		bankformat.FieldAmount,
		bankformat.FieldBalance,
	}

	for _, field := range order {
	hintLoop:
		for _, hint := range hints[field] {
			for i, col := range header {
				if claimed[i] {
					continue
				}
				if strings.Contains(strings.ToLower(strings.TrimSpace(col)), strings.ToLower(hint)) {
					resolved[field] = i
					claimed[i] = true
					break hintLoop
				}
			}
		}
	}

	var missing []string
	for _, field := range []bankformat.Field{bankformat.FieldDate, bankformat.FieldDescription, bankformat.FieldAmount} {
		if _, ok := resolved[field]; !ok {
			missing = append(missing, string(field))
		}
	}
	return resolved, missing
}

// columnHintsFor picks the bank-specific vocabulary when a profile was
// detected and the generic German+English one otherwise.
func columnHintsFor(profile *bankformat.Profile) map[bankformat.Field][]string {
	if profile != nil {
		return profile.ColumnHints
	}
	return bankformat.GenericColumns()
}

// currencyFor defaults to EUR when no profile declared a home currency.
func currencyFor(profile *bankformat.Profile) string {
	if profile != nil && profile.Currency != "" {
		return profile.Currency
	}
	return "EUR"
}

// formatName is the observability label for the detected profile.
func formatName(profile *bankformat.Profile) string {
	if profile != nil {
		return profile.Name
	}
	return "generic"
}

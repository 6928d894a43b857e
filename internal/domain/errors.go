package domain

import (
	"errors"
	"fmt"
	"strings"
)

// ErrEmptyStatement is returned when a document yields zero transactions
// after parsing. It is fatal for the whole statement.
var ErrEmptyStatement = errors.New("no transactions could be extracted from the statement")

// FormatError indicates an unrecognized or unsupported file type.
type FormatError struct {
	Type string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("unsupported file type %q", e.Type)
}

// ColumnError indicates that required tabular columns could not be resolved
// from the header row. It aborts the statement.
type ColumnError struct {
	Missing []string
}

func (e *ColumnError) Error() string {
	return fmt.Sprintf("could not resolve required columns: %s", strings.Join(e.Missing, ", "))
}

// RowError is a row-level validation failure (unparseable date or amount).
// It never aborts the document; the offending row is skipped with a warning.
type RowError struct {
	Line   int
	Field  string
	Reason string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: invalid %s: %s", e.Line, e.Field, e.Reason)
}

// ServiceError wraps a failure of an external collaborator (OCR, AI model,
// object storage).
type ServiceError struct {
	Service string
	Err     error
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s: %v", e.Service, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

package parse

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"regexp"
	"strings"

	"github.com/ledgerlane/statement-engine/internal/assemble"
	"github.com/ledgerlane/statement-engine/internal/bankformat"
	"github.com/ledgerlane/statement-engine/internal/domain"
	"github.com/ledgerlane/statement-engine/internal/logger"
	"github.com/ledgerlane/statement-engine/internal/normalize"
)

// CSVParser handles comma-separated statement exports. The first line is a
// header used for bank detection and column resolution; data rows need at
// least three columns.
type CSVParser struct{}

const minCSVColumns = 3

func (p *CSVParser) Parse(ctx context.Context, doc Document) (*domain.Envelope, error) {
	log := logger.FromContext(ctx)

	r := csv.NewReader(bytes.NewReader(doc.Data))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("CSVParser: reading %s: %w", doc.Filename, err)
	}
	if len(records) < 2 {
		return nil, domain.ErrEmptyStatement
	}

	header := records[0]
	profile, _ := bankformat.Detect(strings.Join(header, ","))

	cols, missing := resolveColumns(header, columnHintsFor(profile))
	if len(missing) > 0 {
		// CSV exports without recognizable headers fall back to the
		// conventional column order: date, description, amount, balance.
		cols = map[bankformat.Field]int{
			bankformat.FieldDate:        0,
			bankformat.FieldDescription: 1,
			bankformat.FieldAmount:      2,
			bankformat.FieldBalance:     3,
		}
	}

	currency := currencyFor(profile)
	expected := len(header)

	var txs []*domain.Transaction
	skipped := 0

	for i, record := range records[1:] {
		line := i + 2 // 1-based, after the header

		if len(record) < minCSVColumns {
			log.Warn().Int("line", line).Int("columns", len(record)).Msg("skipping short csv row")
			skipped++
			continue
		}
		if len(record) > expected {
			record = repairCommaDecimals(record, expected)
		}

		raw := normalize.RawRow{
			Line:        line,
			Date:        cell(record, cols[bankformat.FieldDate]),
			Description: cell(record, cols[bankformat.FieldDescription]),
			Amount:      cell(record, cols[bankformat.FieldAmount]),
		}
		if idx, ok := cols[bankformat.FieldBalance]; ok {
			raw.Balance = cell(record, idx)
		}

		tx, err := normalize.Row(raw, currency)
		if err != nil {
			log.Warn().Err(err).Int("line", line).Msg("skipping unparseable csv row")
			skipped++
			continue
		}
		txs = append(txs, tx)
	}

	if len(txs) == 0 {
		return nil, domain.ErrEmptyStatement
	}

	return assemble.Envelope(assemble.Input{
		Transactions:     txs,
		SkippedRows:      skipped,
		BankName:         bankNameOf(profile),
		Currency:         currency,
		DetectedFormat:   formatName(profile),
		ProcessingMethod: "csv",
	}), nil
}

func cell(record []string, idx int) string {
	if idx < 0 || idx >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[idx])
}

func bankNameOf(profile *bankformat.Profile) string {
	if profile != nil {
		return profile.Name
	}
	return ""
}

var (
	integerPart = regexp.MustCompile(`^-?\d{1,3}(\.\d{3})*$|^-?\d+$`)
	centsPart   = regexp.MustCompile(`^\d{2}$`)
)

// repairCommaDecimals rejoins amounts that were split by the CSV comma.
// German exports write "−1200,00" inside comma-separated rows, producing
// one extra field per amount: ["-1200","00"] is merged back to "-1200,00"
// until the row has the expected width again.
func repairCommaDecimals(record []string, expected int) []string {
	out := make([]string, len(record))
	copy(out, record)

	for len(out) > expected {
		merged := false
		for i := 0; i < len(out)-1; i++ {
			if integerPart.MatchString(strings.TrimSpace(out[i])) && centsPart.MatchString(strings.TrimSpace(out[i+1])) {
				joined := strings.TrimSpace(out[i]) + "," + strings.TrimSpace(out[i+1])
				out = append(out[:i], append([]string{joined}, out[i+2:]...)...)
				merged = true
				break
			}
		}
		if !merged {
			break
		}
	}
	return out
}

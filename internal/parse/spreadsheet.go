package parse

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/extrame/xls"
	"github.com/xuri/excelize/v2"

	"github.com/ledgerlane/statement-engine/internal/assemble"
	"github.com/ledgerlane/statement-engine/internal/bankformat"
	"github.com/ledgerlane/statement-engine/internal/domain"
	"github.com/ledgerlane/statement-engine/internal/logger"
	"github.com/ledgerlane/statement-engine/internal/normalize"
)

// SpreadsheetParser reads the first sheet of an Excel workbook. Legacy
// selects the old binary .xls reader instead of the .xlsx one.
type SpreadsheetParser struct {
	Legacy bool
}

// maxXLSRows bounds how much of a legacy workbook is loaded.
const maxXLSRows = 20000

func (p *SpreadsheetParser) Parse(ctx context.Context, doc Document) (*domain.Envelope, error) {
	log := logger.FromContext(ctx)

	var (
		rows [][]string
		err  error
	)
	if p.Legacy {
		rows, err = readXLS(doc.Data)
	} else {
		rows, err = readXLSX(doc.Data)
	}
	if err != nil {
		return nil, fmt.Errorf("SpreadsheetParser: reading %s: %w", doc.Filename, err)
	}

	headerIdx, cols, profile, err := locateHeader(rows)
	if err != nil {
		return nil, err
	}

	currency := currencyFor(profile)

	var txs []*domain.Transaction
	skipped := 0

	for i, row := range rows[headerIdx+1:] {
		line := headerIdx + i + 2

		raw := normalize.RawRow{
			Line:        line,
			Date:        cell(row, cols[bankformat.FieldDate]),
			Description: cell(row, cols[bankformat.FieldDescription]),
			Amount:      cell(row, cols[bankformat.FieldAmount]),
		}
		if idx, ok := cols[bankformat.FieldBalance]; ok {
			raw.Balance = cell(row, idx)
		}
		if raw.Date == "" && raw.Amount == "" {
			// Blank filler row, common at the bottom of exports.
			continue
		}

		tx, err := normalize.Row(raw, currency)
		if err != nil {
			log.Warn().Err(err).Int("line", line).Msg("skipping unparseable spreadsheet row")
			skipped++
			continue
		}
		txs = append(txs, tx)
	}

	if len(txs) == 0 {
		return nil, domain.ErrEmptyStatement
	}

	method := "xlsx"
	if p.Legacy {
		method = "xls"
	}

	return assemble.Envelope(assemble.Input{
		Transactions:     txs,
		SkippedRows:      skipped,
		BankName:         bankNameOf(profile),
		Currency:         currency,
		DetectedFormat:   formatName(profile),
		ProcessingMethod: method,
	}), nil
}

// locateHeader finds the header row within the first rows of the sheet.
// Bank exports often carry a few lines of account metadata above the actual
// table, so the scan is not limited to row one.
func locateHeader(rows [][]string) (int, map[bankformat.Field]int, *bankformat.Profile, error) {
	const scanDepth = 20

	var bestMissing []string
	for i := 0; i < len(rows) && i < scanDepth; i++ {
		joined := strings.Join(rows[i], " ")
		profile, _ := bankformat.Detect(joined)

		cols, missing := resolveColumns(rows[i], columnHintsFor(profile))
		if len(missing) == 0 {
			return i, cols, profile, nil
		}
		if bestMissing == nil || len(missing) < len(bestMissing) {
			bestMissing = missing
		}
	}

	if bestMissing == nil {
		return 0, nil, nil, domain.ErrEmptyStatement
	}
	return 0, nil, nil, &domain.ColumnError{Missing: bestMissing}
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

func readXLS(data []byte) ([][]string, error) {
	wb, err := xls.OpenReader(bytes.NewReader(data), "utf-8")
	if err != nil {
		return nil, fmt.Errorf("open legacy workbook: %w", err)
	}
	rows := wb.ReadAllCells(maxXLSRows)
	if len(rows) == 0 {
		return nil, fmt.Errorf("legacy workbook has no readable cells")
	}
	return rows, nil
}

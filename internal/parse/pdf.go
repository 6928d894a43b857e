package parse

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/ledgerlane/statement-engine/internal/assemble"
	"github.com/ledgerlane/statement-engine/internal/bankformat"
	"github.com/ledgerlane/statement-engine/internal/domain"
	"github.com/ledgerlane/statement-engine/internal/logger"
	"github.com/ledgerlane/statement-engine/internal/normalize"
	"github.com/ledgerlane/statement-engine/internal/ocr"
)

// PDFParser handles scanned and digital PDF statements. The document is run
// through the OCR collaborator first; the extracted text then goes to the
// AI statement extractor, with a regex line scan as the fallback when the
// AI path fails.
type PDFParser struct {
	OCR       *ocr.Poller
	Extractor StatementExtractor
}

// regexTxConfidence is attached to transactions recovered by the line scan;
// heuristic extraction is trusted less than the AI or tabular paths.
const regexTxConfidence = 0.75

func (p *PDFParser) Parse(ctx context.Context, doc Document) (*domain.Envelope, error) {
	log := logger.FromContext(ctx)

	if p.OCR == nil {
		return nil, &domain.ServiceError{Service: "ocr", Err: fmt.Errorf("no OCR client configured")}
	}

	lines, err := p.OCR.CollectLines(ctx, doc.Data, doc.Filename)
	if err != nil {
		return nil, err
	}
	text := strings.Join(lines, "\n")

	if p.Extractor != nil {
		env, err := p.Extractor.ExtractStatement(ctx, text)
		if err == nil && len(env.Transactions) > 0 {
			if env.Metadata.ProcessingMethod == "" {
				env.Metadata.ProcessingMethod = "ocr-ai"
			}
			return env, nil
		}
		if err != nil {
			log.Warn().Err(err).Str("file", doc.Filename).Msg("ai statement extraction failed, falling back to line scan")
		}
	}

	return p.parseLines(ctx, lines)
}

// linePattern describes one recognized token order of a statement line.
// Group indices are 1-based regexp submatch positions; 0 means absent.
type linePattern struct {
	name    string
	re      *regexp.Regexp
	date    int
	desc    int
	amount  int
	balance int
}

// amountToken matches amounts in either decimal convention, requiring an
// explicit cents part so reference numbers are not mistaken for money.
const amountToken = `-?\d{1,3}(?:[.,]\d{3})*[.,]\d{2}|-?\d+[.,]\d{2}`

var linePatterns = []linePattern{
	{
		name: "date-desc-amount-balance",
		re: regexp.MustCompile(`^(\d{1,2}[./]\d{1,2}[./]\d{2,4})\s+(.+?)\s+(` + amountToken + `)\s+(` + amountToken + `)\s*$`),
		date: 1, desc: 2, amount: 3, balance: 4,
	},
	{
		name: "date-desc-amount",
		re:   regexp.MustCompile(`^(\d{1,2}[./]\d{1,2}[./]\d{2,4})\s+(.+?)\s+(` + amountToken + `)\s*$`),
		date: 1, desc: 2, amount: 3,
	},
	{
		name: "iso-date-desc-amount",
		re:   regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})\s+(.+?)\s+(` + amountToken + `)(?:\s+(` + amountToken + `))?\s*$`),
		date: 1, desc: 2, amount: 3, balance: 4,
	},
	{
		name: "desc-date-amount",
		re:   regexp.MustCompile(`^(.+?)\s+(\d{1,2}[./]\d{1,2}[./]\d{2,4})\s+(` + amountToken + `)\s*$`),
		date: 2, desc: 1, amount: 3,
	},
}

// parseLines is the deterministic fallback: scan every OCR line against the
// known token orders and keep whatever normalizes cleanly.
func (p *PDFParser) parseLines(ctx context.Context, lines []string) (*domain.Envelope, error) {
	log := logger.FromContext(ctx)

	text := strings.Join(lines, "\n")
	profile, _ := bankformat.Detect(text)
	currency := currencyFor(profile)

	var txs []*domain.Transaction
	skipped := 0

	for i, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		raw, ok := matchLine(line, i+1)
		if !ok {
			continue
		}

		tx, err := normalize.Row(raw, currency)
		if err != nil {
			log.Warn().Err(err).Int("line", i+1).Msg("skipping unparseable ocr line")
			skipped++
			continue
		}
		tx.Confidence = regexTxConfidence
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
		ProcessingMethod: "ocr-regex",
	}), nil
}

func matchLine(line string, lineNo int) (normalize.RawRow, bool) {
	for _, p := range linePatterns {
		m := p.re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		raw := normalize.RawRow{
			Line:        lineNo,
			Date:        m[p.date],
			Description: m[p.desc],
			Amount:      m[p.amount],
		}
		if p.balance > 0 && p.balance < len(m) {
			raw.Balance = m[p.balance]
		}
		return raw, true
	}
	return normalize.RawRow{}, false
}

package analysis

import (
	"fmt"
	"strings"

	"github.com/ledgerlane/statement-engine/internal/domain"
)

// maxExistingInPrompt caps how many already-persisted transactions are shown
// to the model for duplicate detection. Statements rarely overlap more than
// one or two periods back.
const maxExistingInPrompt = 50

// buildAnalysisPrompt renders one envelope (plus recent history and open
// invoices) into the analysis instruction. The response contract is spelled
// out in full because the decoder is lenient, not forgiving: anything that
// is not a JSON object is a failed attempt.
func buildAnalysisPrompt(env *domain.Envelope, existing []*domain.Transaction, invoices []*domain.Invoice) string {
	var b strings.Builder

	b.WriteString("You are a bookkeeping assistant. Analyze the bank statement transactions below.\n\n")

	b.WriteString("STATEMENT METADATA:\n")
	if env.BankName != "" {
		b.WriteString("Bank: " + env.BankName + "\n")
	}
	if env.AccountNumber != "" {
		b.WriteString("Account: " + env.AccountNumber + "\n")
	}
	b.WriteString("Currency: " + env.Currency + "\n")
	if !env.Period.Start.IsZero() {
		b.WriteString(fmt.Sprintf("Period: %s to %s\n",
			env.Period.Start.Format(domain.DateFormat),
			env.Period.End.Format(domain.DateFormat)))
	}
	b.WriteString("\n")

	b.WriteString("TRANSACTIONS (id | date | description | amount | type):\n")
	for _, tx := range env.Transactions {
		b.WriteString(fmt.Sprintf("%s | %s | %s | %s | %s\n",
			tx.ID, tx.ISODate(), tx.Description, tx.SignedAmount().String(), tx.Type))
	}
	b.WriteString("\n")

	if len(existing) > 0 {
		shown := existing
		if len(shown) > maxExistingInPrompt {
			shown = shown[:maxExistingInPrompt]
		}
		b.WriteString("PREVIOUSLY RECORDED TRANSACTIONS (for duplicate detection):\n")
		for _, tx := range shown {
			b.WriteString(fmt.Sprintf("%s | %s | %s | %s\n",
				tx.ID, tx.ISODate(), tx.Description, tx.SignedAmount().String()))
		}
		b.WriteString("\n")
	}

	if len(invoices) > 0 {
		b.WriteString("OPEN INVOICES (id | vendor | total | due date):\n")
		for _, inv := range invoices {
			due := ""
			if inv.DueDate != nil {
				due = inv.DueDate.Format(domain.DateFormat)
			}
			b.WriteString(fmt.Sprintf("%s | %s | %s | %s\n", inv.ID, inv.Vendor, inv.TotalAmount.String(), due))
		}
		b.WriteString("\n")
	}

	b.WriteString("Return ONLY a JSON object with EXACTLY these keys:\n")
	b.WriteString(`{
  "suggestedCategories": [{"transactionId": "", "category": "", "subcategory": "", "confidence": 0.0}],
  "duplicateDetection": [{"transactionId": "", "existingId": "", "confidence": 0.0, "reason": ""}],
  "anomalyDetection": [{"transactionId": "", "severity": "low|medium|high", "reason": "", "confidence": 0.0}],
  "counterpartyMapping": [{"transactionId": "", "rawText": "", "counterparty": ""}],
  "reconciliation": [{"transactionId": "", "invoiceId": "", "confidence": 0.0}],
  "summary": {"totalIncome": 0, "totalExpenses": 0, "netCashFlow": 0, "transactionCount": 0, "categorizedCount": 0, "categorizationPercentage": 0.0}
}` + "\n\n")

	b.WriteString("RESPONSE RULES:\n")
	b.WriteString("1. Respond with the JSON object only. No markdown fences, no commentary.\n")
	b.WriteString("2. Every transactionId must be one of the ids shown above.\n")
	b.WriteString("3. Confidence values are between 0.0 and 1.0.\n")
	b.WriteString("4. Omit entries you are not confident about rather than guessing.\n")
	b.WriteString("5. Amounts in the summary use the statement currency, expenses as positive numbers.\n")

	return b.String()
}

// buildExtractionPrompt asks the model to structure raw OCR text into a
// statement. Used by the PDF primary path.
func buildExtractionPrompt(text string) string {
	var b strings.Builder

	b.WriteString("You are a bank statement parser. The text below was extracted from a scanned bank statement via OCR and may contain recognition noise.\n\n")
	b.WriteString("Extract the statement into ONLY a JSON object with EXACTLY these keys:\n")
	b.WriteString(`{
  "accountNumber": "",
  "accountHolder": "",
  "bankName": "",
  "iban": "",
  "bic": "",
  "currency": "EUR",
  "statementPeriod": {"startDate": "YYYY-MM-DD", "endDate": "YYYY-MM-DD"},
  "transactions": [{"date": "YYYY-MM-DD", "description": "", "amount": 0.0, "balance": 0.0, "reference": ""}]
}` + "\n\n")

	b.WriteString("RESPONSE RULES:\n")
	b.WriteString("1. Respond with the JSON object only. No markdown fences, no commentary.\n")
	b.WriteString("2. Amounts are signed numbers: negative for debits, positive for credits.\n")
	b.WriteString("3. Dates must be ISO format YYYY-MM-DD.\n")
	b.WriteString("4. Use null for balance or reference when the statement does not show one.\n")
	b.WriteString("5. Skip header, footer and page-number lines.\n\n")

	b.WriteString("STATEMENT TEXT:\n")
	b.WriteString(text)

	return b.String()
}

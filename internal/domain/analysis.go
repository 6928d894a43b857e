package domain

import "github.com/shopspring/decimal"

// CategorySuggestion is an AI-proposed category for one transaction.
type CategorySuggestion struct {
	TransactionID string  `json:"transactionId"`
	Category      string  `json:"category"`
	Subcategory   string  `json:"subcategory"`
	Confidence    float64 `json:"confidence"`
}

// DuplicateFlag marks a transaction as a likely re-import of an existing one.
type DuplicateFlag struct {
	TransactionID string  `json:"transactionId"`
	ExistingID    string  `json:"existingId"`
	Confidence    float64 `json:"confidence"`
	Reason        string  `json:"reason"`
}

// AnomalyFlag marks a transaction the model considers unusual.
type AnomalyFlag struct {
	TransactionID string  `json:"transactionId"`
	Severity      string  `json:"severity"`
	Reason        string  `json:"reason"`
	Confidence    float64 `json:"confidence"`
}

// CounterpartyMapping links a raw description to a cleaned counterparty name.
type CounterpartyMapping struct {
	TransactionID string `json:"transactionId"`
	RawText       string `json:"rawText"`
	Counterparty  string `json:"counterparty"`
}

// ReconciliationHint is an AI-suggested transaction-to-invoice link.
type ReconciliationHint struct {
	TransactionID string  `json:"transactionId"`
	InvoiceID     string  `json:"invoiceId"`
	Confidence    float64 `json:"confidence"`
}

// Summary aggregates an envelope's transactions.
type Summary struct {
	TotalIncome              decimal.Decimal `json:"totalIncome"`
	TotalExpenses            decimal.Decimal `json:"totalExpenses"`
	NetCashFlow              decimal.Decimal `json:"netCashFlow"`
	TransactionCount         int             `json:"transactionCount"`
	CategorizedCount         int             `json:"categorizedCount"`
	CategorizationPercentage float64         `json:"categorizationPercentage"`
}

// AnalysisResult is the outcome of the AI analysis step for one envelope.
// Every slice is non-nil; a failed AI path leaves them empty and fills only
// the summary.
type AnalysisResult struct {
	SuggestedCategories []CategorySuggestion  `json:"suggestedCategories"`
	DuplicateDetection  []DuplicateFlag       `json:"duplicateDetection"`
	AnomalyDetection    []AnomalyFlag         `json:"anomalyDetection"`
	CounterpartyMapping []CounterpartyMapping `json:"counterpartyMapping"`
	Reconciliation      []ReconciliationHint  `json:"reconciliation"`
	Summary             Summary               `json:"summary"`
	Fallback            bool                  `json:"-"` // true when AI was unavailable
}

// Summarize computes the deterministic summary for a transaction list.
// It is the fallback categorization-free analysis and also serves as the
// reference for the invariant sum(income) - sum(expense) == netCashFlow.
func Summarize(txs []*Transaction) Summary {
	var income, expenses decimal.Decimal
	categorized := 0
	for _, tx := range txs {
		switch tx.Type {
		case TxIncome:
			income = income.Add(tx.Amount)
		case TxExpense:
			expenses = expenses.Add(tx.Amount)
		}
		if tx.Category != "" {
			categorized++
		}
	}
	s := Summary{
		TotalIncome:      income,
		TotalExpenses:    expenses,
		NetCashFlow:      income.Sub(expenses),
		TransactionCount: len(txs),
		CategorizedCount: categorized,
	}
	if len(txs) > 0 {
		s.CategorizationPercentage = float64(categorized) / float64(len(txs)) * 100
	}
	return s
}

package analysis

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlane/statement-engine/internal/domain"
)

// mockCompleter scripts the model: one response per call, repeating the
// last entry once the script runs out.
type mockCompleter struct {
	responses []string
	err       error
	calls     int
}

func (m *mockCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	idx := m.calls - 1
	if idx >= len(m.responses) {
		idx = len(m.responses) - 1
	}
	return m.responses[idx], nil
}

func testEnvelope() *domain.Envelope {
	return &domain.Envelope{
		BankName: "Sparkasse",
		Currency: "EUR",
		Transactions: []*domain.Transaction{
			{ID: "t1", Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), Description: "Miete", Amount: decimal.NewFromInt(1200), Type: domain.TxExpense},
			{ID: "t2", Date: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), Description: "Honorar", Amount: decimal.NewFromInt(3500), Type: domain.TxIncome},
		},
	}
}

func testOrchestrator(c Completer) *Orchestrator {
	return &Orchestrator{completer: c, retries: 3, baseDelay: time.Millisecond}
}

func TestAnalyzeParsesModelResponse(t *testing.T) {
	response := "```json\n" + `{
		"suggestedCategories": [
			{"transactionId": "t1", "category": "Housing", "subcategory": "Rent", "confidence": 0.97},
			{"transactionId": "ghost", "category": "Other", "subcategory": "", "confidence": 0.5}
		],
		"anomalyDetection": [{"transactionId": "t2", "severity": "low", "reason": "unusually large credit", "confidence": 0.6}]
	}` + "\n```"

	c := &mockCompleter{responses: []string{response}}
	result, err := testOrchestrator(c).Analyze(context.Background(), testEnvelope(), nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 1, c.calls)
	assert.False(t, result.Fallback)

	// The hallucinated transaction id is dropped, the real one kept.
	require.Len(t, result.SuggestedCategories, 1)
	assert.Equal(t, "t1", result.SuggestedCategories[0].TransactionID)
	assert.Equal(t, "Housing", result.SuggestedCategories[0].Category)
	require.Len(t, result.AnomalyDetection, 1)

	// Keys the model omitted come back as empty slices, not nil.
	assert.NotNil(t, result.DuplicateDetection)
	assert.NotNil(t, result.CounterpartyMapping)
	assert.NotNil(t, result.Reconciliation)
}

func TestAnalyzeFallsBackAfterExhaustedRetries(t *testing.T) {
	c := &mockCompleter{responses: []string{"I'm sorry, I cannot help with that."}}
	env := testEnvelope()

	result, err := testOrchestrator(c).Analyze(context.Background(), env, nil, nil)
	require.NoError(t, err)

	assert.Equal(t, 3, c.calls)
	assert.True(t, result.Fallback)
	assert.Empty(t, result.SuggestedCategories)
	assert.Empty(t, result.DuplicateDetection)
	assert.Empty(t, result.AnomalyDetection)

	assert.Equal(t, 2, result.Summary.TransactionCount)
	assert.Equal(t, "3500", result.Summary.TotalIncome.String())
	assert.Equal(t, "1200", result.Summary.TotalExpenses.String())
	assert.Equal(t, "2300", result.Summary.NetCashFlow.String())
}

func TestAnalyzeRetriesTransportErrors(t *testing.T) {
	c := &mockCompleter{err: errors.New("503 service unavailable")}

	result, err := testOrchestrator(c).Analyze(context.Background(), testEnvelope(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, c.calls)
	assert.True(t, result.Fallback)
}

func TestAnalyzeStopsOnCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := &mockCompleter{err: errors.New("boom")}
	o := &Orchestrator{completer: c, retries: 3, baseDelay: time.Hour}

	_, err := o.Analyze(ctx, testEnvelope(), nil, nil)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDecodeAnalysis(t *testing.T) {
	t.Run("surrounded by prose", func(t *testing.T) {
		result, err := decodeAnalysis(`Here is the analysis: {"suggestedCategories": []} hope that helps`)
		require.NoError(t, err)
		assert.Empty(t, result.SuggestedCategories)
	})

	t.Run("not json at all", func(t *testing.T) {
		_, err := decodeAnalysis("no braces anywhere")
		assert.Error(t, err)
	})

	t.Run("summary numbers decode into decimals", func(t *testing.T) {
		result, err := decodeAnalysis(`{"summary": {"totalIncome": 3500, "totalExpenses": 1200.5, "netCashFlow": 2299.5, "transactionCount": 2}}`)
		require.NoError(t, err)
		assert.Equal(t, "1200.5", result.Summary.TotalExpenses.String())
	})
}

func TestExtractStatement(t *testing.T) {
	response := "```json\n" + `{
		"accountNumber": "1234567890",
		"bankName": "Sparkasse Musterstadt",
		"currency": "EUR",
		"statementPeriod": {"startDate": "2024-03-01", "endDate": "2024-03-31"},
		"transactions": [
			{"date": "2024-03-01", "description": "Miete Maerz", "amount": -1200.00, "balance": 8800.00},
			{"date": "2024-03-05", "description": "Honorar Projekt A", "amount": 3500.00, "balance": 12300.00},
			{"date": "not-a-date", "description": "noise", "amount": 1.00}
		]
	}` + "\n```"

	e := NewExtractor(&mockCompleter{responses: []string{response}})
	env, err := e.ExtractStatement(context.Background(), "ocr text")
	require.NoError(t, err)

	require.Len(t, env.Transactions, 2)
	assert.Equal(t, "ocr-ai", env.Metadata.ProcessingMethod)
	assert.Equal(t, "Sparkasse Musterstadt", env.BankName)
	assert.Equal(t, "2024-03-01", env.Period.Start.Format(domain.DateFormat))
	assert.Equal(t, "2024-03-31", env.Period.End.Format(domain.DateFormat))

	first := env.Transactions[0]
	assert.Equal(t, domain.TxExpense, first.Type)
	assert.Equal(t, "1200", first.Amount.String())
	assert.Equal(t, 0.9, first.Confidence)

	// One of three rows was unusable.
	assert.InDelta(t, 2.0/3.0, env.Confidence, 1e-9)
}

func TestExtractStatementErrors(t *testing.T) {
	t.Run("unparseable body", func(t *testing.T) {
		e := NewExtractor(&mockCompleter{responses: []string{"the statement shows rent and salary"}})
		_, err := e.ExtractStatement(context.Background(), "text")
		assert.Error(t, err)
	})

	t.Run("no usable transactions", func(t *testing.T) {
		e := NewExtractor(&mockCompleter{responses: []string{`{"currency": "EUR", "transactions": []}`}})
		_, err := e.ExtractStatement(context.Background(), "text")
		assert.ErrorIs(t, err, domain.ErrEmptyStatement)
	})

	t.Run("completer failure", func(t *testing.T) {
		e := NewExtractor(&mockCompleter{err: errors.New("quota exceeded")})
		_, err := e.ExtractStatement(context.Background(), "text")
		assert.Error(t, err)
	})
}

func TestBuildAnalysisPromptCapsHistory(t *testing.T) {
	existing := make([]*domain.Transaction, 80)
	for i := range existing {
		existing[i] = &domain.Transaction{ID: "old", Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), Amount: decimal.NewFromInt(1)}
	}

	prompt := buildAnalysisPrompt(testEnvelope(), existing, nil)
	assert.Equal(t, maxExistingInPrompt, strings.Count(prompt, "old | "))
}

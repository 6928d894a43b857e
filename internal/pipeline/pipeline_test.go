package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlane/statement-engine/internal/dedupe"
	"github.com/ledgerlane/statement-engine/internal/domain"
	"github.com/ledgerlane/statement-engine/internal/jobs"
	"github.com/ledgerlane/statement-engine/internal/reconcile"
)

type mockObjects struct {
	fetchFunc func(ctx context.Context, uri string) ([]byte, error)
	deleteErr error
	deleted   []string
}

func (m *mockObjects) Fetch(ctx context.Context, uri string) ([]byte, error) {
	return m.fetchFunc(ctx, uri)
}

func (m *mockObjects) Delete(ctx context.Context, uri string) error {
	m.deleted = append(m.deleted, uri)
	return m.deleteErr
}

type mockAnalyzer struct {
	analyzeFunc func(ctx context.Context, env *domain.Envelope, existing []*domain.Transaction, invoices []*domain.Invoice) (*domain.AnalysisResult, error)
}

func (m *mockAnalyzer) Analyze(ctx context.Context, env *domain.Envelope, existing []*domain.Transaction, invoices []*domain.Invoice) (*domain.AnalysisResult, error) {
	return m.analyzeFunc(ctx, env, existing, invoices)
}

type mockGate struct {
	persistFunc func(ctx context.Context, env *domain.Envelope, analysis *domain.AnalysisResult) (*dedupe.Outcome, error)
}

func (m *mockGate) Persist(ctx context.Context, env *domain.Envelope, analysis *domain.AnalysisResult) (*dedupe.Outcome, error) {
	return m.persistFunc(ctx, env, analysis)
}

type mockReconciler struct {
	result *reconcile.Result
	err    error
}

func (m *mockReconciler) Reconcile(ctx context.Context, env *domain.Envelope) (*reconcile.Result, error) {
	return m.result, m.err
}

const statementCSV = "Date,Description,Amount\n" +
	"01.03.2024,Miete,-1200.00\n" +
	"05.03.2024,Honorar,3500.00\n"

func testJob() *jobs.ImportJob {
	return &jobs.ImportJob{
		JobID:       "j1",
		DocumentURI: "gs://statements/in/export.csv",
		Filename:    "export.csv",
		FileType:    "csv",
	}
}

func testEngine(objects *mockObjects) *Engine {
	return &Engine{
		Objects: objects,
		Analyzer: &mockAnalyzer{
			analyzeFunc: func(ctx context.Context, env *domain.Envelope, existing []*domain.Transaction, invoices []*domain.Invoice) (*domain.AnalysisResult, error) {
				return &domain.AnalysisResult{Summary: domain.Summarize(env.Transactions)}, nil
			},
		},
		Reconciler: &mockReconciler{result: &reconcile.Result{Matches: []reconcile.Match{{}}}},
		Gate: &mockGate{
			persistFunc: func(ctx context.Context, env *domain.Envelope, analysis *domain.AnalysisResult) (*dedupe.Outcome, error) {
				return &dedupe.Outcome{Persisted: env.Transactions, SkippedDuplicates: []*domain.Transaction{}}, nil
			},
		},
	}
}

func TestEngineRunsFullImport(t *testing.T) {
	objects := &mockObjects{
		fetchFunc: func(ctx context.Context, uri string) ([]byte, error) {
			return []byte(statementCSV), nil
		},
	}

	report, err := testEngine(objects).Run(context.Background(), testJob())
	require.NoError(t, err)

	assert.Equal(t, 2, report.TransactionCount)
	assert.Equal(t, 2, report.Persisted)
	assert.Equal(t, 0, report.Duplicates)
	assert.Equal(t, 1, report.Matches)
	assert.False(t, report.AnalysisFallback)

	// The uploaded document is cleaned up after a successful import.
	assert.Equal(t, []string{"gs://statements/in/export.csv"}, objects.deleted)
}

func TestEngineFetchFailure(t *testing.T) {
	objects := &mockObjects{
		fetchFunc: func(ctx context.Context, uri string) ([]byte, error) {
			return nil, errors.New("object not found")
		},
	}

	_, err := testEngine(objects).Run(context.Background(), testJob())

	var svcErr *domain.ServiceError
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, "object-storage", svcErr.Service)
	assert.Empty(t, objects.deleted)
}

func TestEngineEmptyStatementPassesThrough(t *testing.T) {
	objects := &mockObjects{
		fetchFunc: func(ctx context.Context, uri string) ([]byte, error) {
			return []byte("Date,Description,Amount\n"), nil
		},
	}

	persistCalled := false
	engine := testEngine(objects)
	engine.Gate = &mockGate{
		persistFunc: func(ctx context.Context, env *domain.Envelope, analysis *domain.AnalysisResult) (*dedupe.Outcome, error) {
			persistCalled = true
			return &dedupe.Outcome{}, nil
		},
	}

	_, err := engine.Run(context.Background(), testJob())
	assert.ErrorIs(t, err, domain.ErrEmptyStatement)
	assert.False(t, persistCalled)
}

func TestEngineUnknownFileType(t *testing.T) {
	objects := &mockObjects{
		fetchFunc: func(ctx context.Context, uri string) ([]byte, error) {
			return []byte("x"), nil
		},
	}

	job := testJob()
	job.FileType = "docx"

	_, err := testEngine(objects).Run(context.Background(), job)
	var formatErr *domain.FormatError
	assert.ErrorAs(t, err, &formatErr)
}

func TestEngineStopsOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	objects := &mockObjects{
		fetchFunc: func(ctx context.Context, uri string) ([]byte, error) {
			return []byte(statementCSV), nil
		},
	}

	_, err := testEngine(objects).Run(ctx, testJob())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestEngineCleanupFailureIsNonFatal(t *testing.T) {
	objects := &mockObjects{
		fetchFunc: func(ctx context.Context, uri string) ([]byte, error) {
			return []byte(statementCSV), nil
		},
		deleteErr: errors.New("permission denied"),
	}

	report, err := testEngine(objects).Run(context.Background(), testJob())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Persisted)
}

func TestEngineWithoutReconciler(t *testing.T) {
	objects := &mockObjects{
		fetchFunc: func(ctx context.Context, uri string) ([]byte, error) {
			return []byte(statementCSV), nil
		},
	}

	engine := testEngine(objects)
	engine.Reconciler = nil

	report, err := engine.Run(context.Background(), testJob())
	require.NoError(t, err)
	assert.Equal(t, 0, report.Matches)
}

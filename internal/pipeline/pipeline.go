// Package pipeline runs one uploaded statement through fetch, parse, AI
// analysis, reconciliation and the persistence gate. Each stage is a step
// over shared state; collaborators are injected so every step can be tested
// against fakes.
package pipeline

import (
	"context"
	"fmt"

	"github.com/ledgerlane/statement-engine/internal/dedupe"
	"github.com/ledgerlane/statement-engine/internal/domain"
	"github.com/ledgerlane/statement-engine/internal/jobs"
	"github.com/ledgerlane/statement-engine/internal/logger"
	"github.com/ledgerlane/statement-engine/internal/parse"
	"github.com/ledgerlane/statement-engine/internal/reconcile"
)

// historyLimit caps how much persisted history is loaded per import as
// duplicate-detection context.
const historyLimit = 50

// Step is a single stage of the import pipeline.
type Step interface {
	Name() string
	Execute(ctx context.Context, state *State) error
}

// State is the shared state threaded through the steps of one import.
type State struct {
	Job *jobs.ImportJob

	Data     []byte
	FileType parse.FileType

	Envelope *domain.Envelope
	Analysis *domain.AnalysisResult
	Matches  *reconcile.Result
	Outcome  *dedupe.Outcome
}

// Engine wires the collaborators and executes the steps in order.
type Engine struct {
	Objects    ObjectFetcher
	ParserDeps parse.Deps
	History    History
	Invoices   InvoiceLister
	Analyzer   Analyzer
	Reconciler Reconciler
	Gate       Persister
}

// Run imports one statement. Typed domain errors from the steps pass through
// unchanged so the worker can distinguish empty statements and bad formats
// from service failures.
func (e *Engine) Run(ctx context.Context, job *jobs.ImportJob) (*jobs.ImportReport, error) {
	log := logger.FromContext(ctx).With().Str("job_id", job.JobID).Str("file", job.Filename).Logger()
	ctx = logger.WithContext(ctx, log)

	state := &State{Job: job}
	steps := []Step{
		&FetchDocumentStep{Objects: e.Objects},
		&ParseStep{Deps: e.ParserDeps},
		&AnalyzeStep{Analyzer: e.Analyzer, History: e.History, Invoices: e.Invoices},
		&ReconcileStep{Reconciler: e.Reconciler},
		&PersistStep{Gate: e.Gate},
		&CleanupStep{Objects: e.Objects},
	}

	for _, step := range steps {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		log.Debug().Str("step", step.Name()).Msg("executing pipeline step")
		if err := step.Execute(ctx, state); err != nil {
			log.Error().Err(err).Str("step", step.Name()).Msg("pipeline step failed")
			return nil, err
		}
	}

	report := &jobs.ImportReport{
		TransactionCount: len(state.Envelope.Transactions),
		Persisted:        len(state.Outcome.Persisted),
		Duplicates:       len(state.Outcome.SkippedDuplicates),
		Confidence:       state.Envelope.Confidence,
		AnalysisFallback: state.Analysis.Fallback,
	}
	if state.Matches != nil {
		report.Matches = len(state.Matches.Matches)
	}

	log.Info().
		Int("transactions", report.TransactionCount).
		Int("persisted", report.Persisted).
		Int("duplicates", report.Duplicates).
		Int("matches", report.Matches).
		Msg("statement import finished")
	return report, nil
}

// FetchDocumentStep loads the uploaded bytes from object storage.
type FetchDocumentStep struct {
	Objects ObjectFetcher
}

func (s *FetchDocumentStep) Name() string { return "fetch_document" }

func (s *FetchDocumentStep) Execute(ctx context.Context, state *State) error {
	data, err := s.Objects.Fetch(ctx, state.Job.DocumentURI)
	if err != nil {
		return &domain.ServiceError{Service: "object-storage", Err: fmt.Errorf("fetch %s: %w", state.Job.DocumentURI, err)}
	}
	state.Data = data
	return nil
}

// ParseStep selects the adapter for the declared file type and produces the
// statement envelope.
type ParseStep struct {
	Deps parse.Deps
}

func (s *ParseStep) Name() string { return "parse" }

func (s *ParseStep) Execute(ctx context.Context, state *State) error {
	fileType, err := parse.TypeFromString(state.Job.FileType)
	if err != nil {
		return err
	}
	state.FileType = fileType

	parser, err := parse.New(fileType, s.Deps)
	if err != nil {
		return err
	}

	env, err := parser.Parse(ctx, parse.Document{
		Data:     state.Data,
		Filename: state.Job.Filename,
		Type:     fileType,
	})
	if err != nil {
		return err
	}
	state.Envelope = env
	return nil
}

// AnalyzeStep loads history and open invoices, then runs the AI analysis.
type AnalyzeStep struct {
	Analyzer Analyzer
	History  History
	Invoices InvoiceLister
}

func (s *AnalyzeStep) Name() string { return "analyze" }

func (s *AnalyzeStep) Execute(ctx context.Context, state *State) error {
	log := logger.FromContext(ctx)

	var existing []*domain.Transaction
	if s.History != nil && state.Envelope.AccountNumber != "" {
		var err error
		existing, err = s.History.RecentTransactions(ctx, state.Envelope.AccountNumber, historyLimit)
		if err != nil {
			// History is context, not a prerequisite.
			log.Warn().Err(err).Msg("could not load transaction history")
		}
	}

	var invoices []*domain.Invoice
	if s.Invoices != nil {
		var err error
		invoices, err = s.Invoices.OpenInvoices(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("could not load open invoices for analysis")
		}
	}

	analysis, err := s.Analyzer.Analyze(ctx, state.Envelope, existing, invoices)
	if err != nil {
		return err
	}
	state.Analysis = analysis
	return nil
}

// ReconcileStep matches expenses against open invoices. Optional: engines
// without an invoice source skip it.
type ReconcileStep struct {
	Reconciler Reconciler
}

func (s *ReconcileStep) Name() string { return "reconcile" }

func (s *ReconcileStep) Execute(ctx context.Context, state *State) error {
	if s.Reconciler == nil {
		return nil
	}
	result, err := s.Reconciler.Reconcile(ctx, state.Envelope)
	if err != nil {
		return err
	}
	state.Matches = result
	return nil
}

// PersistStep runs the envelope through the dedup gate.
type PersistStep struct {
	Gate Persister
}

func (s *PersistStep) Name() string { return "persist" }

func (s *PersistStep) Execute(ctx context.Context, state *State) error {
	outcome, err := s.Gate.Persist(ctx, state.Envelope, state.Analysis)
	if err != nil {
		return err
	}
	state.Outcome = outcome
	return nil
}

// CleanupStep deletes the uploaded document once the import succeeded.
// Failures are logged, never returned: the import itself is complete.
type CleanupStep struct {
	Objects ObjectFetcher
}

func (s *CleanupStep) Name() string { return "cleanup" }

func (s *CleanupStep) Execute(ctx context.Context, state *State) error {
	if err := s.Objects.Delete(ctx, state.Job.DocumentURI); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Str("uri", state.Job.DocumentURI).Msg("cleanup failed")
	}
	return nil
}

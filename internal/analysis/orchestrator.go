package analysis

import (
	"context"
	"time"

	"github.com/ledgerlane/statement-engine/internal/domain"
	"github.com/ledgerlane/statement-engine/internal/logger"
)

const (
	defaultRetries = 3
	retryBaseDelay = time.Second
)

// Orchestrator drives the AI analysis of one statement envelope. It retries
// transient failures with a growing delay and degrades to a deterministic
// summary-only result when the model stays unreachable or unparseable, so a
// statement import never fails because of the AI layer.
type Orchestrator struct {
	completer Completer
	retries   int
	baseDelay time.Duration
}

// NewOrchestrator wires the completer; retries <= 0 selects the default.
func NewOrchestrator(completer Completer, retries int) *Orchestrator {
	if retries <= 0 {
		retries = defaultRetries
	}
	return &Orchestrator{completer: completer, retries: retries, baseDelay: retryBaseDelay}
}

// Analyze returns a result for every envelope. The error return is reserved
// for context cancellation; model failures surface as the fallback result.
func (o *Orchestrator) Analyze(ctx context.Context, env *domain.Envelope, existing []*domain.Transaction, invoices []*domain.Invoice) (*domain.AnalysisResult, error) {
	log := logger.FromContext(ctx)
	prompt := buildAnalysisPrompt(env, existing, invoices)

	for attempt := 1; attempt <= o.retries; attempt++ {
		if attempt > 1 {
			delay := time.Duration(attempt-1) * o.baseDelay
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		raw, err := o.completer.Complete(ctx, prompt)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn().Err(err).Int("attempt", attempt).Msg("analysis completion failed")
			continue
		}

		result, err := decodeAnalysis(raw)
		if err != nil {
			log.Warn().Err(err).Int("attempt", attempt).Msg("analysis response unparseable")
			continue
		}

		dropUnknownIDs(result, env)
		log.Info().Int("attempt", attempt).
			Int("categories", len(result.SuggestedCategories)).
			Int("duplicates", len(result.DuplicateDetection)).
			Msg("analysis completed")
		return result, nil
	}

	log.Warn().Int("attempts", o.retries).Msg("analysis exhausted retries, using fallback summary")
	return Fallback(env), nil
}

// Fallback is the summary-only result used when the AI path is unavailable.
func Fallback(env *domain.Envelope) *domain.AnalysisResult {
	return &domain.AnalysisResult{
		SuggestedCategories: []domain.CategorySuggestion{},
		DuplicateDetection:  []domain.DuplicateFlag{},
		AnomalyDetection:    []domain.AnomalyFlag{},
		CounterpartyMapping: []domain.CounterpartyMapping{},
		Reconciliation:      []domain.ReconciliationHint{},
		Summary:             domain.Summarize(env.Transactions),
		Fallback:            true,
	}
}

// dropUnknownIDs removes entries referencing transaction ids the envelope
// does not contain. Hallucinated ids would otherwise leak into persistence.
func dropUnknownIDs(result *domain.AnalysisResult, env *domain.Envelope) {
	known := make(map[string]bool, len(env.Transactions))
	for _, tx := range env.Transactions {
		known[tx.ID] = true
	}

	cats := result.SuggestedCategories[:0]
	for _, c := range result.SuggestedCategories {
		if known[c.TransactionID] {
			cats = append(cats, c)
		}
	}
	result.SuggestedCategories = cats

	dups := result.DuplicateDetection[:0]
	for _, d := range result.DuplicateDetection {
		if known[d.TransactionID] {
			dups = append(dups, d)
		}
	}
	result.DuplicateDetection = dups

	anomalies := result.AnomalyDetection[:0]
	for _, a := range result.AnomalyDetection {
		if known[a.TransactionID] {
			anomalies = append(anomalies, a)
		}
	}
	result.AnomalyDetection = anomalies

	mappings := result.CounterpartyMapping[:0]
	for _, m := range result.CounterpartyMapping {
		if known[m.TransactionID] {
			mappings = append(mappings, m)
		}
	}
	result.CounterpartyMapping = mappings

	hints := result.Reconciliation[:0]
	for _, h := range result.Reconciliation {
		if known[h.TransactionID] {
			hints = append(hints, h)
		}
	}
	result.Reconciliation = hints
}

// Package dedupe is the persistence gate: it applies the AI category
// suggestions, checks every transaction against what is already stored and
// writes only the new ones. Re-importing the same statement is a no-op.
package dedupe

import (
	"context"
	"fmt"

	"github.com/ledgerlane/statement-engine/internal/domain"
	"github.com/ledgerlane/statement-engine/internal/logger"
)

// minCategoryConfidence gates which AI suggestions are applied before
// persisting. Below the threshold the transaction stays uncategorized for
// manual review.
const minCategoryConfidence = 0.7

// Key is the natural identity of a transaction across imports. Reference
// numbers are stable across exports of the same account; when the bank
// provides none the description stands in. All fields are plain strings so
// the key is usable as a map key and a query filter alike.
type Key struct {
	Account   string
	Reference string
	Amount    string // signed decimal string
	Date      string // ISO day
}

// KeyFor derives the dedup key for one transaction in one account.
func KeyFor(account string, tx *domain.Transaction) Key {
	ref := tx.Reference
	if ref == "" {
		ref = tx.Description
	}
	return Key{
		Account:   account,
		Reference: ref,
		Amount:    tx.SignedAmount().String(),
		Date:      tx.ISODate(),
	}
}

// Store is the persistence backend the gate writes through. Create receives
// the envelope alongside the transaction so implementations can record
// statement-level context such as the processing method.
type Store interface {
	// FindExisting reports whether a transaction with this key is already
	// persisted.
	FindExisting(ctx context.Context, key Key) (bool, error)
	// Create persists one new transaction.
	Create(ctx context.Context, env *domain.Envelope, tx *domain.Transaction) error
}

// Outcome reports what the gate did with one envelope.
type Outcome struct {
	Persisted         []*domain.Transaction `json:"persisted"`
	SkippedDuplicates []*domain.Transaction `json:"skippedDuplicates"`
}

// Gate runs every transaction of an envelope through the duplicate check.
type Gate struct {
	store Store
}

func NewGate(store Store) *Gate {
	return &Gate{store: store}
}

// Persist applies the analysis categories, then writes each transaction that
// is not already stored. A storage failure aborts the batch; transactions
// persisted before the failure stay persisted, and a retry of the whole
// envelope is safe because they dedupe away.
func (g *Gate) Persist(ctx context.Context, env *domain.Envelope, analysis *domain.AnalysisResult) (*Outcome, error) {
	log := logger.FromContext(ctx)

	if analysis != nil {
		applyCategories(env, analysis.SuggestedCategories)
	}

	outcome := &Outcome{
		Persisted:         []*domain.Transaction{},
		SkippedDuplicates: []*domain.Transaction{},
	}

	for _, tx := range env.Transactions {
		key := KeyFor(env.AccountNumber, tx)

		exists, err := g.store.FindExisting(ctx, key)
		if err != nil {
			return outcome, &domain.ServiceError{Service: "storage", Err: fmt.Errorf("duplicate lookup: %w", err)}
		}
		if exists {
			log.Debug().Str("transaction_id", tx.ID).Str("date", key.Date).Msg("skipping duplicate transaction")
			outcome.SkippedDuplicates = append(outcome.SkippedDuplicates, tx)
			continue
		}

		if err := g.store.Create(ctx, env, tx); err != nil {
			return outcome, &domain.ServiceError{Service: "storage", Err: fmt.Errorf("persist transaction %s: %w", tx.ID, err)}
		}
		outcome.Persisted = append(outcome.Persisted, tx)
	}

	log.Info().
		Int("persisted", len(outcome.Persisted)).
		Int("duplicates", len(outcome.SkippedDuplicates)).
		Msg("envelope persisted")
	return outcome, nil
}

// applyCategories copies confident AI suggestions onto the transactions.
func applyCategories(env *domain.Envelope, suggestions []domain.CategorySuggestion) {
	byID := make(map[string]*domain.Transaction, len(env.Transactions))
	for _, tx := range env.Transactions {
		byID[tx.ID] = tx
	}

	for _, s := range suggestions {
		tx, ok := byID[s.TransactionID]
		if !ok || s.Confidence < minCategoryConfidence {
			continue
		}
		tx.Category = s.Category
		tx.Subcategory = s.Subcategory
	}
}

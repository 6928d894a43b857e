package pipeline

import (
	"context"

	"github.com/ledgerlane/statement-engine/internal/dedupe"
	"github.com/ledgerlane/statement-engine/internal/domain"
	"github.com/ledgerlane/statement-engine/internal/reconcile"
)

// ObjectFetcher reads uploaded documents out of object storage. Delete is
// best-effort cleanup of intermediates once an import finished.
type ObjectFetcher interface {
	Fetch(ctx context.Context, uri string) ([]byte, error)
	Delete(ctx context.Context, uri string) error
}

// Analyzer is the AI analysis collaborator.
type Analyzer interface {
	Analyze(ctx context.Context, env *domain.Envelope, existing []*domain.Transaction, invoices []*domain.Invoice) (*domain.AnalysisResult, error)
}

// Reconciler matches envelope expenses against open invoices.
type Reconciler interface {
	Reconcile(ctx context.Context, env *domain.Envelope) (*reconcile.Result, error)
}

// Persister is the duplicate-checked write path.
type Persister interface {
	Persist(ctx context.Context, env *domain.Envelope, analysis *domain.AnalysisResult) (*dedupe.Outcome, error)
}

// History supplies recently persisted transactions as context for duplicate
// detection in the analysis prompt.
type History interface {
	RecentTransactions(ctx context.Context, account string, limit int) ([]*domain.Transaction, error)
}

// InvoiceLister supplies the open invoices shown to the analysis prompt.
type InvoiceLister interface {
	OpenInvoices(ctx context.Context) ([]*domain.Invoice, error)
}

package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// InvoiceStatus is the approval state of an invoice. Only open statuses are
// eligible for reconciliation.
type InvoiceStatus string

const (
	InvoiceAwaitingApproval InvoiceStatus = "awaiting_approval"
	InvoiceInReview         InvoiceStatus = "in_review"
	InvoicePaid             InvoiceStatus = "paid"
	InvoiceRejected         InvoiceStatus = "rejected"
)

// Open reports whether the invoice can still be matched against a payment.
func (s InvoiceStatus) Open() bool {
	return s == InvoiceAwaitingApproval || s == InvoiceInReview
}

// Invoice is the reconciliation-relevant view of an open invoice, as
// returned by the invoice lookup collaborator.
type Invoice struct {
	ID          string
	TotalAmount decimal.Decimal
	DueDate     *time.Time // nil when the invoice carries no due date
	Vendor      string
	Status      InvoiceStatus
}

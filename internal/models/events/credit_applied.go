package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreditApplied is published after a credit is applied against an invoice.
type CreditApplied struct {
	EventID         string          `json:"event_id"`
	CreditID        int64           `json:"credit_id"`
	InvoiceID       int64           `json:"invoice_id"`
	Amount          decimal.Decimal `json:"amount"`
	RemainingAmount decimal.Decimal `json:"remaining_amount"`
	OccurredAt      time.Time       `json:"occurred_at"`
}

package events

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreditCreated is published when a new credit is recorded, whether from a CFS
// credit memo or an online-banking overpayment.
type CreditCreated struct {
	EventID       string          `json:"event_id"`
	CreditID      int64           `json:"credit_id"`
	AccountID     *int64          `json:"account_id"`
	Amount        decimal.Decimal `json:"amount"`
	IsCreditMemo  bool            `json:"is_credit_memo"`
	CFSIdentifier *string         `json:"cfs_identifier,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

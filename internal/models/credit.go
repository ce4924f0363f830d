package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Credit is a stored amount owed back to a payment account, consumable against
// invoices. One row per credit grant. Rows are never deleted; fully consumed
// credits remain behind as audit history.
type Credit struct {
	ID               int64           `json:"id"`
	AccountID        *int64          `json:"account_id"`
	Amount           decimal.Decimal `json:"amount"`
	CFSIdentifier    *string         `json:"cfs_identifier"`
	CFSSite          *string         `json:"cfs_site"`
	CreatedInvoiceID *int64          `json:"created_invoice_id"`
	CreatedOn        time.Time       `json:"created_on"`
	Details          *string         `json:"details"`
	IsCreditMemo     bool            `json:"is_credit_memo"`
	RemainingAmount  decimal.Decimal `json:"remaining_amount"`
}

// CreditColumns is the allow-list of persisted columns. Old and new versions of
// the service run simultaneously during rolling upgrades, so queries and the
// serialized projection are built from this list rather than from whatever
// columns transiently exist on the table mid-deploy.
//
// NOTE: keep in alpha order, id first.
var CreditColumns = []string{
	"id",
	"account_id",
	"amount",
	"cfs_identifier",
	"cfs_site",
	"created_invoice_id",
	"created_on",
	"details",
	"is_credit_memo",
	"remaining_amount",
}

// Projection returns the externally visible view of the credit: exactly the
// allow-listed columns, no computed or internal-only fields.
func (c *Credit) Projection() map[string]any {
	return map[string]any{
		"id":                 c.ID,
		"account_id":         c.AccountID,
		"amount":             c.Amount,
		"cfs_identifier":     c.CFSIdentifier,
		"cfs_site":           c.CFSSite,
		"created_invoice_id": c.CreatedInvoiceID,
		"created_on":         c.CreatedOn,
		"details":            c.Details,
		"is_credit_memo":     c.IsCreditMemo,
		"remaining_amount":   c.RemainingAmount,
	}
}

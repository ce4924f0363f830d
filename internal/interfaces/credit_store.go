package interfaces

import (
	"context"
	"errors"

	"github.com/govpay-services/credit-ledger/internal/models"
	"github.com/shopspring/decimal"
)

// Errors every CreditStore implementation must return for the corresponding
// conditions, so callers can match with errors.Is regardless of the backend.
var (
	// ErrInsufficientCredit is returned by ApplyCredit when the amount to
	// apply exceeds the credit's remaining amount. The row is left unchanged.
	ErrInsufficientCredit = errors.New("insufficient credit remaining")

	// ErrCreditNotFound is returned by ApplyCredit for an unknown credit id.
	ErrCreditNotFound = errors.New("credit not found")
)

// CreditStore is the persistence contract for credits. Lookups report absence
// as (nil, nil) rather than an error, since a miss is an expected outcome.
type CreditStore interface {
	// Insert persists a new credit and fills in its assigned id.
	Insert(ctx context.Context, credit *models.Credit) error

	// FindByID returns the credit with the given id, or (nil, nil).
	FindByID(ctx context.Context, id int64) (*models.Credit, error)

	// FindByCFSIdentifier returns the at-most-one credit matching the
	// (cfs_identifier, is_credit_memo) pair, or (nil, nil).
	FindByCFSIdentifier(ctx context.Context, cfsIdentifier string, isCreditMemo bool) (*models.Credit, error)

	// TotalRemainingByAccount sums remaining_amount over the account's
	// credits as an exact decimal. Zero when the account has no credits.
	TotalRemainingByAccount(ctx context.Context, accountID int64) (decimal.Decimal, error)

	// ApplyCredit atomically decrements remaining_amount by amount and records
	// the application against the invoice. No two concurrent applications can
	// spend the same remaining balance.
	ApplyCredit(ctx context.Context, creditID int64, amount decimal.Decimal, invoiceID int64) (*models.Credit, error)
}

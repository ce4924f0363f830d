package credit

import "errors"

// Validation errors, rejected before anything is persisted.
var (
	// ErrNegativeAmount rejects creation of a credit with a negative amount.
	ErrNegativeAmount = errors.New("credit amount must not be negative")

	// ErrInvalidApplyAmount rejects an application of zero or negative credit.
	ErrInvalidApplyAmount = errors.New("amount to apply must be positive")
)

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/govpay-services/credit-ledger/internal/interfaces"
	"github.com/govpay-services/credit-ledger/internal/models"
	"github.com/shopspring/decimal"
)

// selectColumns is derived from the allow-list so SELECTs never pick up
// columns added to the table by a newer service version mid-deploy.
var selectColumns = strings.Join(models.CreditColumns, ", ")

// PostgresCreditStore persists credits in the `credits` table, with each
// application against an invoice recorded in `credit_applications`. Monetary
// columns are NUMERIC(19,2); amounts round-trip through decimal.Decimal so no
// floating-point representation ever touches a balance.
type PostgresCreditStore struct {
	db *sql.DB
}

func NewPostgresCreditStore(db *sql.DB) *PostgresCreditStore {
	return &PostgresCreditStore{
		db: db,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

// scanCredit reads one row in CreditColumns order.
func scanCredit(r rowScanner, c *models.Credit) error {
	return r.Scan(
		&c.ID,
		&c.AccountID,
		&c.Amount,
		&c.CFSIdentifier,
		&c.CFSSite,
		&c.CreatedInvoiceID,
		&c.CreatedOn,
		&c.Details,
		&c.IsCreditMemo,
		&c.RemainingAmount,
	)
}

func (p *PostgresCreditStore) Insert(ctx context.Context, credit *models.Credit) error {
	const query = `INSERT INTO credits
		(account_id, amount, cfs_identifier, cfs_site, created_invoice_id, created_on, details, is_credit_memo, remaining_amount)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id`

	err := p.db.QueryRowContext(ctx, query,
		credit.AccountID,
		credit.Amount,
		credit.CFSIdentifier,
		credit.CFSSite,
		credit.CreatedInvoiceID,
		credit.CreatedOn,
		credit.Details,
		credit.IsCreditMemo,
		credit.RemainingAmount,
	).Scan(&credit.ID)
	if err != nil {
		return fmt.Errorf("failed to insert credit: %w", err)
	}
	return nil
}

func (p *PostgresCreditStore) FindByID(ctx context.Context, id int64) (*models.Credit, error) {
	query := `SELECT ` + selectColumns + ` FROM credits WHERE id = $1`

	credit := &models.Credit{}
	err := scanCredit(p.db.QueryRowContext(ctx, query, id), credit)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find credit %d: %w", id, err)
	}
	return credit, nil
}

func (p *PostgresCreditStore) FindByCFSIdentifier(ctx context.Context, cfsIdentifier string, isCreditMemo bool) (*models.Credit, error) {
	query := `SELECT ` + selectColumns + ` FROM credits
		WHERE cfs_identifier = $1 AND is_credit_memo = $2
		LIMIT 1`

	credit := &models.Credit{}
	err := scanCredit(p.db.QueryRowContext(ctx, query, cfsIdentifier, isCreditMemo), credit)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find credit by cfs identifier: %w", err)
	}
	return credit, nil
}

func (p *PostgresCreditStore) TotalRemainingByAccount(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	const query = `SELECT COALESCE(SUM(remaining_amount), 0) FROM credits WHERE account_id = $1`

	var total decimal.Decimal
	if err := p.db.QueryRowContext(ctx, query, accountID).Scan(&total); err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum remaining credit for account %d: %w", accountID, err)
	}
	return total, nil
}

// ApplyCredit decrements remaining_amount inside a single conditional UPDATE.
// The `remaining_amount >= $1` guard makes the decrement atomic: of two
// concurrent applications against the same credit, at most one can win the
// last of the balance. The application row is written in the same transaction.
func (p *PostgresCreditStore) ApplyCredit(ctx context.Context, creditID int64, amount decimal.Decimal, invoiceID int64) (*models.Credit, error) {
	dbTx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err != nil {
			dbTx.Rollback()
		}
	}()

	query := `UPDATE credits
		SET remaining_amount = remaining_amount - $1
		WHERE id = $2 AND remaining_amount >= $1
		RETURNING ` + selectColumns

	credit := &models.Credit{}
	err = scanCredit(dbTx.QueryRowContext(ctx, query, amount, creditID), credit)
	if errors.Is(err, sql.ErrNoRows) {
		err = p.classifyApplyMiss(ctx, dbTx, creditID)
		return nil, err
	}
	if err != nil {
		err = fmt.Errorf("failed to apply credit %d: %w", creditID, err)
		return nil, err
	}

	const insertApplication = `INSERT INTO credit_applications (credit_id, invoice_id, amount, applied_on)
		VALUES ($1, $2, $3, now())`
	if _, err = dbTx.ExecContext(ctx, insertApplication, creditID, invoiceID, amount); err != nil {
		err = fmt.Errorf("failed to record credit application: %w", err)
		return nil, err
	}

	if err = dbTx.Commit(); err != nil {
		return nil, err
	}
	return credit, nil
}

// classifyApplyMiss tells an unknown credit apart from one with too little
// remaining, since the conditional UPDATE matches neither.
func (p *PostgresCreditStore) classifyApplyMiss(ctx context.Context, dbTx *sql.Tx, creditID int64) error {
	var one int
	err := dbTx.QueryRowContext(ctx, `SELECT 1 FROM credits WHERE id = $1`, creditID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return interfaces.ErrCreditNotFound
	}
	if err != nil {
		return err
	}
	return interfaces.ErrInsufficientCredit
}

var _ interfaces.CreditStore = (*PostgresCreditStore)(nil)

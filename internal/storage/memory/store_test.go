package memory

import (
	"context"
	"testing"
	"time"

	"github.com/govpay-services/credit-ledger/internal/interfaces"
	"github.com/govpay-services/credit-ledger/internal/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCredit(accountID int64, amount string) *models.Credit {
	d := decimal.RequireFromString(amount)
	return &models.Credit{
		AccountID:       &accountID,
		Amount:          d,
		RemainingAmount: d,
		CreatedOn:       time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestInsertAssignsSequentialIDs(t *testing.T) {
	store := NewMemoryCreditStore()
	ctx := context.Background()

	first := newCredit(1, "10.00")
	second := newCredit(1, "20.00")
	require.NoError(t, store.Insert(ctx, first))
	require.NoError(t, store.Insert(ctx, second))

	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)
}

func TestInsertRejectsDuplicateCFSIdentifier(t *testing.T) {
	store := NewMemoryCreditStore()
	ctx := context.Background()

	id := "CM-77"
	first := newCredit(1, "10.00")
	first.CFSIdentifier = &id
	first.IsCreditMemo = true
	require.NoError(t, store.Insert(ctx, first))

	dup := newCredit(1, "10.00")
	dup.CFSIdentifier = &id
	dup.IsCreditMemo = true
	assert.Error(t, store.Insert(ctx, dup))

	// same identifier, different origin: allowed
	other := newCredit(1, "10.00")
	other.CFSIdentifier = &id
	require.NoError(t, store.Insert(ctx, other))
}

func TestFindByCFSIdentifier(t *testing.T) {
	store := NewMemoryCreditStore()
	ctx := context.Background()

	id := "OB-9"
	c := newCredit(3, "15.00")
	c.CFSIdentifier = &id
	require.NoError(t, store.Insert(ctx, c))

	found, err := store.FindByCFSIdentifier(ctx, "OB-9", false)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, c.ID, found.ID)

	missing, err := store.FindByCFSIdentifier(ctx, "OB-9", true)
	require.NoError(t, err)
	assert.Nil(t, missing)

	missing, err = store.FindByCFSIdentifier(ctx, "unknown", false)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestFindByIDReturnsCopy(t *testing.T) {
	store := NewMemoryCreditStore()
	ctx := context.Background()

	c := newCredit(3, "15.00")
	require.NoError(t, store.Insert(ctx, c))

	found, err := store.FindByID(ctx, c.ID)
	require.NoError(t, err)
	require.NotNil(t, found)

	// mutating the returned record must not touch store state
	found.RemainingAmount = decimal.Zero
	again, err := store.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, again.RemainingAmount.Equal(decimal.RequireFromString("15.00")))
}

func TestTotalRemainingByAccount(t *testing.T) {
	store := NewMemoryCreditStore()
	ctx := context.Background()

	require.NoError(t, store.Insert(ctx, newCredit(5, "25.50")))
	require.NoError(t, store.Insert(ctx, newCredit(5, "74.50")))
	require.NoError(t, store.Insert(ctx, newCredit(6, "3.00")))

	total, err := store.TotalRemainingByAccount(ctx, 5)
	require.NoError(t, err)
	assert.True(t, total.Equal(decimal.RequireFromString("100.00")),
		"expected 100.00, got %s", total)

	empty, err := store.TotalRemainingByAccount(ctx, 999)
	require.NoError(t, err)
	assert.True(t, empty.IsZero())
}

func TestApplyCredit(t *testing.T) {
	store := NewMemoryCreditStore()
	ctx := context.Background()

	c := newCredit(5, "100.00")
	require.NoError(t, store.Insert(ctx, c))

	applied, err := store.ApplyCredit(ctx, c.ID, decimal.RequireFromString("40.00"), 7)
	require.NoError(t, err)
	assert.True(t, applied.RemainingAmount.Equal(decimal.RequireFromString("60.00")))

	_, err = store.ApplyCredit(ctx, c.ID, decimal.RequireFromString("70.00"), 8)
	assert.ErrorIs(t, err, interfaces.ErrInsufficientCredit)

	unchanged, err := store.FindByID(ctx, c.ID)
	require.NoError(t, err)
	assert.True(t, unchanged.RemainingAmount.Equal(decimal.RequireFromString("60.00")))

	_, err = store.ApplyCredit(ctx, 404, decimal.RequireFromString("1.00"), 8)
	assert.ErrorIs(t, err, interfaces.ErrCreditNotFound)

	apps := store.Applications()
	require.Len(t, apps, 1)
	assert.Equal(t, c.ID, apps[0].CreditID)
	assert.Equal(t, int64(7), apps[0].InvoiceID)
	assert.True(t, apps[0].Amount.Equal(decimal.RequireFromString("40.00")))
}

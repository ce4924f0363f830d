package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/govpay-services/credit-ledger/internal/interfaces"
	"github.com/govpay-services/credit-ledger/internal/models"
	"github.com/shopspring/decimal"
)

// Application mirrors a credit_applications row.
type Application struct {
	CreditID  int64
	InvoiceID int64
	Amount    decimal.Decimal
	AppliedOn time.Time
}

// MemoryCreditStore is an in-memory implementation of interfaces.CreditStore
// with the same semantics as the postgres store, including the uniqueness of
// the (cfs_identifier, is_credit_memo) pair and the atomic conditional
// decrement. Used by tests and for running the service without a database.
type MemoryCreditStore struct {
	mu           sync.Mutex
	nextID       int64
	credits      map[int64]models.Credit
	applications []Application
}

func NewMemoryCreditStore() *MemoryCreditStore {
	return &MemoryCreditStore{
		nextID:  1,
		credits: make(map[int64]models.Credit),
	}
}

func (m *MemoryCreditStore) Insert(ctx context.Context, credit *models.Credit) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	// Same constraint the database enforces with a partial unique index.
	if credit.CFSIdentifier != nil {
		for _, existing := range m.credits {
			if existing.CFSIdentifier != nil &&
				*existing.CFSIdentifier == *credit.CFSIdentifier &&
				existing.IsCreditMemo == credit.IsCreditMemo {
				return fmt.Errorf("credit with cfs_identifier %q (is_credit_memo=%t) already exists",
					*credit.CFSIdentifier, credit.IsCreditMemo)
			}
		}
	}

	credit.ID = m.nextID
	m.nextID++
	m.credits[credit.ID] = *credit
	return nil
}

func (m *MemoryCreditStore) FindByID(ctx context.Context, id int64) (*models.Credit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	credit, exists := m.credits[id]
	if !exists {
		return nil, nil
	}
	// return a copy so callers can't mutate store state
	return &credit, nil
}

func (m *MemoryCreditStore) FindByCFSIdentifier(ctx context.Context, cfsIdentifier string, isCreditMemo bool) (*models.Credit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, credit := range m.credits {
		if credit.CFSIdentifier != nil &&
			*credit.CFSIdentifier == cfsIdentifier &&
			credit.IsCreditMemo == isCreditMemo {
			found := credit
			return &found, nil
		}
	}
	return nil, nil
}

func (m *MemoryCreditStore) TotalRemainingByAccount(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	total := decimal.Zero
	for _, credit := range m.credits {
		if credit.AccountID != nil && *credit.AccountID == accountID {
			total = total.Add(credit.RemainingAmount)
		}
	}
	return total, nil
}

func (m *MemoryCreditStore) ApplyCredit(ctx context.Context, creditID int64, amount decimal.Decimal, invoiceID int64) (*models.Credit, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	credit, exists := m.credits[creditID]
	if !exists {
		return nil, interfaces.ErrCreditNotFound
	}
	if credit.RemainingAmount.Cmp(amount) < 0 {
		return nil, interfaces.ErrInsufficientCredit
	}

	credit.RemainingAmount = credit.RemainingAmount.Sub(amount)
	m.credits[creditID] = credit
	m.applications = append(m.applications, Application{
		CreditID:  creditID,
		InvoiceID: invoiceID,
		Amount:    amount,
		AppliedOn: time.Now().UTC(),
	})

	applied := credit
	return &applied, nil
}

// Applications returns a copy of all recorded credit applications.
func (m *MemoryCreditStore) Applications() []Application {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := make([]Application, len(m.applications))
	copy(copied, m.applications)
	return copied
}

// Compile-time check: ensure MemoryCreditStore implements CreditStore.
var _ interfaces.CreditStore = (*MemoryCreditStore)(nil)

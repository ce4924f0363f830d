package credit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/govpay-services/credit-ledger/internal/interfaces"
	"github.com/govpay-services/credit-ledger/internal/models"
	"github.com/govpay-services/credit-ledger/internal/models/events"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// Event topics.
const (
	TopicCreditCreated = "credit_created"
	TopicCreditApplied = "credit_applied"
)

// Service owns the balance-accounting rules around credits: creation
// validation, single-writer application against invoices, and account totals.
// It holds a per-credit mutex map so that no two concurrent applications can
// spend the same remaining balance, whatever the storage backend.
type Service struct {
	store     interfaces.CreditStore
	publisher interfaces.EventPublisher // may be nil when events are disabled
	log       *logrus.Logger
	now       func() time.Time

	muMap map[int64]*sync.Mutex // per-credit lock
	mapMu sync.Mutex            // protects muMap itself
}

// CreateParams carries everything the caller knows about a new credit. The
// remaining amount is never supplied: it always starts equal to Amount.
type CreateParams struct {
	AccountID        *int64
	Amount           decimal.Decimal
	IsCreditMemo     bool
	CFSIdentifier    *string
	CFSSite          *string
	CreatedInvoiceID *int64
	Details          *string
}

// NewService wires a Service over the given store. publisher may be nil.
func NewService(store interfaces.CreditStore, publisher interfaces.EventPublisher, log *logrus.Logger) *Service {
	return &Service{
		store:     store,
		publisher: publisher,
		log:       log,
		now:       func() time.Time { return time.Now().UTC() },
		muMap:     make(map[int64]*sync.Mutex),
	}
}

// WithClock replaces the creation-timestamp source. Tests use it to pin
// created_on to a known instant.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

func (s *Service) getCreditLock(creditID int64) *sync.Mutex {
	s.mapMu.Lock()
	defer s.mapMu.Unlock()

	if _, exists := s.muMap[creditID]; !exists {
		s.muMap[creditID] = &sync.Mutex{}
	}
	return s.muMap[creditID]
}

// Create records a new credit with remaining_amount equal to amount.
//
// CFS can report the same credit event more than once, and the
// (cfs_identifier, is_credit_memo) pair identifies at most one credit, so a
// repeat import returns the already-stored record instead of inserting a
// duplicate.
func (s *Service) Create(ctx context.Context, params CreateParams) (*models.Credit, error) {
	if params.Amount.IsNegative() {
		return nil, ErrNegativeAmount
	}

	if params.CFSIdentifier != nil {
		existing, err := s.store.FindByCFSIdentifier(ctx, *params.CFSIdentifier, params.IsCreditMemo)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			s.log.WithFields(logrus.Fields{
				"credit_id":      existing.ID,
				"cfs_identifier": *params.CFSIdentifier,
			}).Info("credit already ingested, returning existing record")
			return existing, nil
		}
	}

	credit := &models.Credit{
		AccountID:        params.AccountID,
		Amount:           params.Amount,
		RemainingAmount:  params.Amount,
		IsCreditMemo:     params.IsCreditMemo,
		CFSIdentifier:    params.CFSIdentifier,
		CFSSite:          params.CFSSite,
		CreatedInvoiceID: params.CreatedInvoiceID,
		Details:          params.Details,
		CreatedOn:        s.now(),
	}

	if err := s.store.Insert(ctx, credit); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"credit_id":      credit.ID,
		"amount":         credit.Amount,
		"is_credit_memo": credit.IsCreditMemo,
	}).Info("credit created")

	s.publish(TopicCreditCreated, events.CreditCreated{
		EventID:       uuid.New().String(),
		CreditID:      credit.ID,
		AccountID:     credit.AccountID,
		Amount:        credit.Amount,
		IsCreditMemo:  credit.IsCreditMemo,
		CFSIdentifier: credit.CFSIdentifier,
		OccurredAt:    credit.CreatedOn,
	})

	return credit, nil
}

// Apply consumes amount from the credit against the given invoice. It fails
// with interfaces.ErrInsufficientCredit when amount exceeds the remaining
// balance, leaving the record unchanged.
func (s *Service) Apply(ctx context.Context, creditID int64, amount decimal.Decimal, invoiceID int64) (*models.Credit, error) {
	if amount.Cmp(decimal.Zero) <= 0 {
		return nil, ErrInvalidApplyAmount
	}

	mu := s.getCreditLock(creditID)
	mu.Lock()
	defer mu.Unlock()

	credit, err := s.store.ApplyCredit(ctx, creditID, amount, invoiceID)
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"credit_id":  creditID,
		"invoice_id": invoiceID,
		"applied":    amount,
		"remaining":  credit.RemainingAmount,
	}).Info("credit applied to invoice")

	s.publish(TopicCreditApplied, events.CreditApplied{
		EventID:         uuid.New().String(),
		CreditID:        creditID,
		InvoiceID:       invoiceID,
		Amount:          amount,
		RemainingAmount: credit.RemainingAmount,
		OccurredAt:      s.now(),
	})

	return credit, nil
}

// TotalRemaining returns the account's available credit balance: the exact
// decimal sum of remaining_amount over all of its credits, zero when it has
// none. The result is a snapshot; callers needing a balance consistent with a
// mutation must re-read inside the same transaction as that mutation.
func (s *Service) TotalRemaining(ctx context.Context, accountID int64) (decimal.Decimal, error) {
	total, err := s.store.TotalRemainingByAccount(ctx, accountID)
	if err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

// FindByCFSIdentifier looks up the credit sourced from the given CFS
// transaction. Returns (nil, nil) when no credit matches.
func (s *Service) FindByCFSIdentifier(ctx context.Context, cfsIdentifier string, isCreditMemo bool) (*models.Credit, error) {
	return s.store.FindByCFSIdentifier(ctx, cfsIdentifier, isCreditMemo)
}

// publish emits an event if a publisher is configured. A broker failure is
// logged but never fails the ledger operation that already committed.
func (s *Service) publish(topic string, event any) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(topic, event); err != nil {
		s.log.WithError(err).Warnf("failed to publish %s event", topic)
	}
}

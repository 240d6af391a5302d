package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kwesi-damoah/atlas-ledger/internal/domain"
	"github.com/kwesi-damoah/atlas-ledger/internal/logging"
)

type SubmitRequest struct {
	UserID          uuid.UUID
	SourceAccountID uuid.UUID
	DestAccountID   *uuid.UUID
	Type            domain.TransactionType
	Amount          int64
	Currency        domain.Currency
	Description     string
	Category        domain.Category
	Recipient       *domain.Recipient
}

// Submit runs one transaction attempt to a terminal state. Business-rule
// failures on a real, requester-owned source account come back as a failed
// transaction record plus the sentinel error, so the attempt stays
// auditable. Shape errors and unknown source accounts persist nothing.
// ErrContended means nothing was attempted and the same request may be
// retried.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (*domain.Transaction, error) {
	log := logging.FromContext(ctx)

	if err := s.validateRequest(req); err != nil {
		return nil, fmt.Errorf("Submit: %w", err)
	}

	src, err := s.accounts.GetByIDForUser(ctx, req.SourceAccountID, req.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("Submit: %w", domain.ErrAccountNotFound)
		}
		return nil, fmt.Errorf("Submit: %w", err)
	}

	txn := newTransaction(req, src.Currency)
	txn.Fee = s.fees.Fee(req.Type, req.Amount)

	if req.Currency != "" && req.Currency != src.Currency {
		return s.recordFailure(ctx, txn, req.UserID, domain.ErrCurrencyMismatch)
	}
	if !src.IsActive {
		return s.recordFailure(ctx, txn, req.UserID, domain.ErrAccountInactive)
	}

	if req.Type == domain.TransactionTypeInternational {
		rate, err := s.fx.Rate(src.Currency, req.Recipient.Currency)
		if err != nil {
			if errors.Is(err, domain.ErrConversionUnavailable) {
				return s.recordFailure(ctx, txn, req.UserID, err)
			}
			return nil, fmt.Errorf("Submit: %w", err)
		}
		txn.ExchangeRate = rate.Value
		txn.RateFallback = rate.Fallback
	}

	// Cheap pre-check against the last read balance. The authoritative
	// check runs again on the locked row inside settle.
	if total := txn.TotalDebit(); total > 0 && src.Balance-total < -src.OverdraftLimit {
		return s.recordFailure(ctx, txn, req.UserID, domain.ErrInsufficientFunds)
	}

	if err := s.settle(ctx, txn, req.UserID); err != nil {
		if domain.FailureCode(err) != "" {
			return s.recordFailure(ctx, txn, req.UserID, err)
		}
		return nil, fmt.Errorf("Submit: %w", err)
	}

	// Accrual is a side effect of settlement, never part of it: a failure
	// here is reconciled out of band and must not unwind the transaction.
	if err := s.rewards.Accrue(ctx, req.UserID, txn.Amount); err != nil {
		log.Warn("reward accrual failed, needs reconciliation",
			"transaction_id", txn.ID,
			"user_id", req.UserID,
			"error", err,
		)
	}

	log.Info("transaction completed",
		"transaction_id", txn.ID,
		"type", txn.Type,
		"amount", txn.Amount,
		"fee", txn.Fee,
		"source_account", txn.SourceAccountID,
	)

	return txn, nil
}

func (s *Service) validateRequest(req SubmitRequest) error {
	if !req.Type.IsValid() {
		return fmt.Errorf("validateRequest: type %q: %w", req.Type, domain.ErrInvalidRequest)
	}
	if req.Amount < domain.MinTransactionAmount {
		return fmt.Errorf("validateRequest: %w", domain.ErrInvalidAmount)
	}
	if strings.TrimSpace(req.Description) == "" {
		return fmt.Errorf("validateRequest: description: %w", domain.ErrInvalidRequest)
	}
	if req.Currency != "" && !req.Currency.IsValid() {
		return fmt.Errorf("validateRequest: %w", domain.ErrInvalidCurrency)
	}
	if req.Category != "" && !req.Category.IsValid() {
		return fmt.Errorf("validateRequest: category %q: %w", req.Category, domain.ErrInvalidRequest)
	}

	switch req.Type {
	case domain.TransactionTypeTransfer:
		if req.DestAccountID == nil {
			return fmt.Errorf("validateRequest: destination required: %w", domain.ErrInvalidRequest)
		}
		if *req.DestAccountID == req.SourceAccountID {
			return fmt.Errorf("validateRequest: %w", domain.ErrSelfTransfer)
		}
	case domain.TransactionTypeInternational:
		if req.DestAccountID != nil {
			return fmt.Errorf("validateRequest: destination not allowed for %s: %w", req.Type, domain.ErrInvalidRequest)
		}
		r := req.Recipient
		if r == nil || r.Name == "" || r.AccountNumber == "" || r.BankName == "" || r.Country == "" {
			return fmt.Errorf("validateRequest: recipient incomplete: %w", domain.ErrInvalidRequest)
		}
		if !r.Currency.IsValid() {
			return fmt.Errorf("validateRequest: recipient currency: %w", domain.ErrInvalidCurrency)
		}
	default:
		if req.DestAccountID != nil {
			return fmt.Errorf("validateRequest: destination not allowed for %s: %w", req.Type, domain.ErrInvalidRequest)
		}
	}

	return nil
}

// settle applies the balance mutation and persists the completed record as
// one atomic unit. No partially settled state is ever visible: the row
// locks, the balance writes, the transaction row, its journal entries and
// its event all commit or roll back together.
func (s *Service) settle(ctx context.Context, txn *domain.Transaction, actorID uuid.UUID) error {
	tx, err := s.beginSettleTx(ctx)
	if err != nil {
		return fmt.Errorf("settle: %w", err)
	}
	defer tx.Rollback()

	var entries []domain.JournalEntry

	switch txn.Type {
	case domain.TransactionTypeTransfer:
		locked, err := s.lockAccountsInOrder(ctx, tx, txn.SourceAccountID, *txn.DestAccountID)
		if err != nil {
			// The source was resolved before settle began, so a missing
			// row here is the destination.
			if errors.Is(err, domain.ErrNotFound) {
				return fmt.Errorf("settle: %w", domain.ErrDestinationNotFound)
			}
			return fmt.Errorf("settle: %w", err)
		}
		src, dest := locked[txn.SourceAccountID], locked[*txn.DestAccountID]

		if dest.Currency != src.Currency {
			return fmt.Errorf("settle: %w", domain.ErrCurrencyMismatch)
		}
		if !dest.IsActive {
			return fmt.Errorf("settle: destination: %w", domain.ErrAccountInactive)
		}

		srcBefore := src.Balance
		if _, err := s.accounts.Debit(ctx, tx, src, txn.TotalDebit()); err != nil {
			return fmt.Errorf("settle: %w", err)
		}
		destBefore := dest.Balance
		if _, err := s.accounts.Credit(ctx, tx, dest, txn.Amount); err != nil {
			return fmt.Errorf("settle: %w", err)
		}

		entries = append(entries,
			journalEntry(txn, src.ID, domain.EntryTypeDebit, txn.TotalDebit(), srcBefore, src.Balance),
			journalEntry(txn, dest.ID, domain.EntryTypeCredit, txn.Amount, destBefore, dest.Balance),
		)

	case domain.TransactionTypeDeposit:
		src, err := s.accounts.GetForUpdate(ctx, tx, txn.SourceAccountID)
		if err != nil {
			return fmt.Errorf("settle: %w", err)
		}
		before := src.Balance
		if _, err := s.accounts.Credit(ctx, tx, src, txn.Amount); err != nil {
			return fmt.Errorf("settle: %w", err)
		}
		entries = append(entries,
			journalEntry(txn, src.ID, domain.EntryTypeCredit, txn.Amount, before, src.Balance),
		)

	default: // withdrawal, payment, international
		src, err := s.accounts.GetForUpdate(ctx, tx, txn.SourceAccountID)
		if err != nil {
			return fmt.Errorf("settle: %w", err)
		}
		before := src.Balance
		if _, err := s.accounts.Debit(ctx, tx, src, txn.TotalDebit()); err != nil {
			return fmt.Errorf("settle: %w", err)
		}
		entries = append(entries,
			journalEntry(txn, src.ID, domain.EntryTypeDebit, txn.TotalDebit(), before, src.Balance),
		)
	}

	now := time.Now().UTC()
	txn.Status = domain.TransactionStatusCompleted
	txn.CompletedAt = &now

	if err := s.transactions.Create(ctx, tx, txn); err != nil {
		return fmt.Errorf("settle: create transaction: %w", err)
	}
	for i := range entries {
		if err := s.journal.Create(ctx, tx, &entries[i]); err != nil {
			return fmt.Errorf("settle: journal: %w", err)
		}
	}
	if err := s.events.Create(ctx, tx, newEvent(txn.ID, domain.TransactionEventTypeCompleted, actorID)); err != nil {
		return fmt.Errorf("settle: event: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("settle: commit: %w", err)
	}
	return nil
}

// recordFailure persists the attempt as a failed transaction carrying its
// stable cause code and returns the record alongside the sentinel error.
func (s *Service) recordFailure(ctx context.Context, txn *domain.Transaction, actorID uuid.UUID, cause error) (*domain.Transaction, error) {
	log := logging.FromContext(ctx)

	code := domain.FailureCode(cause)
	txn.Status = domain.TransactionStatusFailed
	txn.FailureReason = &code

	// A destination that does not exist cannot be referenced by the failed
	// row; the cause code carries the story.
	if errors.Is(cause, domain.ErrDestinationNotFound) {
		txn.DestAccountID = nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("recordFailure: %w", err)
	}
	defer tx.Rollback()

	if err := s.transactions.Create(ctx, tx, txn); err != nil {
		return nil, fmt.Errorf("recordFailure: %w", err)
	}
	if err := s.events.Create(ctx, tx, newEvent(txn.ID, domain.TransactionEventTypeFailed, actorID)); err != nil {
		return nil, fmt.Errorf("recordFailure: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("recordFailure: commit: %w", err)
	}

	log.Info("transaction failed",
		"transaction_id", txn.ID,
		"type", txn.Type,
		"cause", code,
	)

	return txn, fmt.Errorf("Submit: %w", cause)
}

func newTransaction(req SubmitRequest, currency domain.Currency) *domain.Transaction {
	category := req.Category
	if category == "" {
		category = domain.CategoryOther
	}
	return &domain.Transaction{
		ID:              uuid.New(),
		SourceAccountID: req.SourceAccountID,
		DestAccountID:   req.DestAccountID,
		Type:            req.Type,
		Amount:          req.Amount,
		Currency:        currency,
		Description:     req.Description,
		Category:        category,
		ExchangeRate:    decimal.NewFromInt(1),
		Recipient:       req.Recipient,
		Status:          domain.TransactionStatusPending,
		CreatedAt:       time.Now().UTC(),
	}
}

func journalEntry(txn *domain.Transaction, accountID uuid.UUID, entryType domain.EntryType, amount, before, after int64) domain.JournalEntry {
	return domain.JournalEntry{
		ID:            uuid.New(),
		TransactionID: txn.ID,
		AccountID:     accountID,
		EntryType:     entryType,
		Amount:        amount,
		Currency:      txn.Currency,
		BalanceBefore: before,
		BalanceAfter:  after,
		CreatedAt:     txn.CreatedAt,
	}
}

func newEvent(transactionID uuid.UUID, eventType domain.TransactionEventType, actorID uuid.UUID) *domain.TransactionEvent {
	return &domain.TransactionEvent{
		ID:            uuid.New(),
		TransactionID: transactionID,
		EventType:     eventType,
		Actor:         fmt.Sprintf("user:%s", actorID),
		CreatedAt:     time.Now().UTC(),
	}
}

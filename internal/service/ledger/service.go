// Package ledger is the transaction engine: it validates submitted
// requests, prices fees and conversion, mutates balances atomically, and
// owns the transaction lifecycle.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/kwesi-damoah/atlas-ledger/internal/domain"
	"github.com/kwesi-damoah/atlas-ledger/internal/fx"
)

type accountRepo interface {
	GetByIDForUser(ctx context.Context, id, userID uuid.UUID) (*domain.Account, error)
	GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Account, error)
	Debit(ctx context.Context, tx *sql.Tx, account *domain.Account, amount int64) (int64, error)
	Credit(ctx context.Context, tx *sql.Tx, account *domain.Account, amount int64) (int64, error)
}

type transactionRepo interface {
	Create(ctx context.Context, tx *sql.Tx, txn *domain.Transaction) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	Cancel(ctx context.Context, tx *sql.Tx, id uuid.UUID) error
}

type journalRepo interface {
	Create(ctx context.Context, tx *sql.Tx, entry *domain.JournalEntry) error
}

type eventRepo interface {
	Create(ctx context.Context, tx *sql.Tx, event *domain.TransactionEvent) error
}

type feeCalculator interface {
	Fee(txType domain.TransactionType, amount int64) int64
}

type converter interface {
	Rate(from, to domain.Currency) (fx.Rate, error)
}

type rewardAccruer interface {
	Accrue(ctx context.Context, userID uuid.UUID, settledAmount int64) error
}

type Service struct {
	accounts      accountRepo
	transactions  transactionRepo
	journal       journalRepo
	events        eventRepo
	fees          feeCalculator
	fx            converter
	rewards       rewardAccruer
	db            *sql.DB
	lockTimeoutMS int
}

func NewService(
	accounts accountRepo,
	transactions transactionRepo,
	journal journalRepo,
	events eventRepo,
	fees feeCalculator,
	fxSvc converter,
	rewards rewardAccruer,
	db *sql.DB,
	lockTimeoutMS int,
) *Service {
	return &Service{
		accounts:      accounts,
		transactions:  transactions,
		journal:       journal,
		events:        events,
		fees:          fees,
		fx:            fxSvc,
		rewards:       rewards,
		db:            db,
		lockTimeoutMS: lockTimeoutMS,
	}
}

func (s *Service) GetTransactionForUser(ctx context.Context, transactionID, userID uuid.UUID) (*domain.Transaction, error) {
	txn, err := s.transactions.GetByID(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("GetTransactionForUser: %w", err)
	}

	if _, err := s.accounts.GetByIDForUser(ctx, txn.SourceAccountID, userID); err != nil {
		return nil, fmt.Errorf("GetTransactionForUser: %w", domain.ErrNotFound)
	}

	return txn, nil
}

// beginSettleTx opens the settlement transaction and bounds how long any
// row lock inside it may be waited on.
func (s *Service) beginSettleTx(ctx context.Context) (*sql.Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginSettleTx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`SET LOCAL lock_timeout = '%dms'`, s.lockTimeoutMS)); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("beginSettleTx: set lock_timeout: %w", err)
	}
	return tx, nil
}

// lockAccountsInOrder acquires FOR UPDATE locks in ascending id order so
// two transfers moving money in opposite directions between the same pair
// of accounts cannot deadlock.
func (s *Service) lockAccountsInOrder(ctx context.Context, tx *sql.Tx, ids ...uuid.UUID) (map[uuid.UUID]*domain.Account, error) {
	sorted := make([]uuid.UUID, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].String() < sorted[j].String()
	})

	result := make(map[uuid.UUID]*domain.Account, len(ids))
	for _, id := range sorted {
		acct, err := s.accounts.GetForUpdate(ctx, tx, id)
		if err != nil {
			return nil, fmt.Errorf("lockAccountsInOrder: account %s: %w", id, err)
		}
		result[id] = acct
	}
	return result, nil
}

package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/kwesi-damoah/atlas-ledger/internal/domain"
	"github.com/kwesi-damoah/atlas-ledger/internal/logging"
)

// maxNumberAttempts bounds regeneration when a freshly derived account
// number collides with an issued one. Collisions are rare by construction,
// so exhausting this is a generator bug, not bad luck.
const maxNumberAttempts = 5

const recentTransactionLimit = 10

type accountRepo interface {
	Create(ctx context.Context, account *domain.Account) error
	GetByIDForUser(ctx context.Context, id, userID uuid.UUID) (*domain.Account, error)
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Account, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
}

type transactionRepo interface {
	ListRecentByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.Transaction, error)
}

type userChecker interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

type numberGenerator interface {
	Next() (string, error)
}

type AccountService struct {
	accounts     accountRepo
	transactions transactionRepo
	users        userChecker
	numbers      numberGenerator
}

func NewAccountService(accounts accountRepo, transactions transactionRepo, users userChecker, numbers numberGenerator) *AccountService {
	return &AccountService{
		accounts:     accounts,
		transactions: transactions,
		users:        users,
		numbers:      numbers,
	}
}

type OpenAccountRequest struct {
	UserID         uuid.UUID
	Type           domain.AccountType
	Currency       domain.Currency
	OverdraftLimit int64
}

// OpenAccount creates an account with a freshly issued number. The number
// is generated and attached before the insert, so no account row ever
// exists without one; a unique-constraint collision triggers regeneration
// with a new time/random derivation rather than failing the open.
func (s *AccountService) OpenAccount(ctx context.Context, req OpenAccountRequest) (*domain.Account, error) {
	log := logging.FromContext(ctx)

	if _, err := s.users.GetByID(ctx, req.UserID); err != nil {
		return nil, fmt.Errorf("OpenAccount: %w", err)
	}
	if !req.Type.IsValid() {
		return nil, fmt.Errorf("OpenAccount: type %q: %w", req.Type, domain.ErrInvalidRequest)
	}
	if !req.Currency.IsValid() {
		return nil, fmt.Errorf("OpenAccount: %w", domain.ErrInvalidCurrency)
	}
	if req.OverdraftLimit < 0 {
		return nil, fmt.Errorf("OpenAccount: overdraft limit: %w", domain.ErrInvalidRequest)
	}

	for attempt := 1; ; attempt++ {
		number, err := s.numbers.Next()
		if err != nil {
			return nil, fmt.Errorf("OpenAccount: %w", err)
		}

		account := &domain.Account{
			ID:             uuid.New(),
			UserID:         req.UserID,
			Number:         number,
			Type:           req.Type,
			Balance:        0,
			Currency:       req.Currency,
			InterestRate:   decimal.NewFromFloat(0.5),
			OverdraftLimit: req.OverdraftLimit,
			Version:        1,
			IsActive:       true,
			CreatedAt:      time.Now().UTC(),
		}

		err = s.accounts.Create(ctx, account)
		if err == nil {
			log.Info("account opened",
				"account_id", account.ID,
				"user_id", req.UserID,
				"type", req.Type,
				"currency", req.Currency,
			)
			return account, nil
		}
		if !errors.Is(err, domain.ErrAccountNumberCollision) || attempt == maxNumberAttempts {
			return nil, fmt.Errorf("OpenAccount: %w", err)
		}

		log.Warn("account number collision, regenerating", "attempt", attempt)
	}
}

type AccountSummary struct {
	Account            *domain.Account
	RecentTransactions []domain.Transaction
}

// GetAccountSummary is read-only: the owner's account plus its most recent
// transactions on either side.
func (s *AccountService) GetAccountSummary(ctx context.Context, accountID, userID uuid.UUID) (*AccountSummary, error) {
	account, err := s.accounts.GetByIDForUser(ctx, accountID, userID)
	if err != nil {
		return nil, fmt.Errorf("GetAccountSummary: %w", err)
	}

	txns, err := s.transactions.ListRecentByAccount(ctx, accountID, recentTransactionLimit)
	if err != nil {
		return nil, fmt.Errorf("GetAccountSummary: %w", err)
	}

	return &AccountSummary{Account: account, RecentTransactions: txns}, nil
}

func (s *AccountService) GetUserAccounts(ctx context.Context, userID uuid.UUID) ([]domain.Account, error) {
	accounts, err := s.accounts.GetByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("GetUserAccounts: %w", err)
	}
	return accounts, nil
}

// DeactivateAccount blocks new transactions while keeping history. Accounts
// are never hard-deleted.
func (s *AccountService) DeactivateAccount(ctx context.Context, accountID, userID uuid.UUID) error {
	account, err := s.accounts.GetByIDForUser(ctx, accountID, userID)
	if err != nil {
		return fmt.Errorf("DeactivateAccount: %w", err)
	}
	if err := s.accounts.Deactivate(ctx, account.ID); err != nil {
		return fmt.Errorf("DeactivateAccount: %w", err)
	}

	logging.FromContext(ctx).Info("account deactivated", "account_id", accountID)
	return nil
}

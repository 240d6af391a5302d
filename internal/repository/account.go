package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/kwesi-damoah/atlas-ledger/internal/domain"
)

const accountColumns = `id, user_id, account_number, account_type, balance, currency,
	interest_rate, overdraft_limit, version, is_active, created_at`

type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (
			id, user_id, account_number, account_type, balance, currency,
			interest_rate, overdraft_limit, version, is_active, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		account.ID, account.UserID, account.Number, account.Type,
		account.Balance, account.Currency, account.InterestRate,
		account.OverdraftLimit, account.Version, account.IsActive, account.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err, "accounts_account_number_key") {
			return fmt.Errorf("Create: %w", domain.ErrAccountNumberCollision)
		}
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id,
	)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return a, nil
}

// GetByIDForUser resolves an account only when it belongs to userID, so
// ownership checks and existence checks stay one query.
func (r *AccountRepository) GetByIDForUser(ctx context.Context, id, userID uuid.UUID) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1 AND user_id = $2`, id, userID,
	)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByIDForUser: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByIDForUser: %w", err)
	}
	return a, nil
}

func (r *AccountRepository) GetByUserID(ctx context.Context, userID uuid.UUID) ([]domain.Account, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE user_id = $1 ORDER BY created_at`, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("GetByUserID: %w", err)
	}
	defer rows.Close()

	var accounts []domain.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("GetByUserID: scan: %w", err)
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("GetByUserID: rows: %w", err)
	}
	return accounts, nil
}

// GetForUpdate locks the account row for the duration of tx. The wait is
// bounded by the transaction's lock_timeout; hitting it surfaces
// ErrContended, which callers may retry.
func (r *AccountRepository) GetForUpdate(ctx context.Context, tx *sql.Tx, id uuid.UUID) (*domain.Account, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = $1 FOR UPDATE`, id,
	)
	a, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrNotFound)
		}
		if isLockTimeout(err) {
			return nil, fmt.Errorf("GetForUpdate: %w", domain.ErrContended)
		}
		return nil, fmt.Errorf("GetForUpdate: %w", err)
	}
	return a, nil
}

// Debit subtracts amount from a row-locked account, failing closed when the
// result would breach the overdraft floor (the boundary itself is allowed).
// On success the in-memory account reflects the new balance and version.
func (r *AccountRepository) Debit(ctx context.Context, tx *sql.Tx, account *domain.Account, amount int64) (int64, error) {
	if !account.IsActive {
		return 0, fmt.Errorf("Debit: %w", domain.ErrAccountInactive)
	}
	newBalance := account.Balance - amount
	if newBalance < -account.OverdraftLimit {
		return 0, fmt.Errorf("Debit: %w", domain.ErrInsufficientFunds)
	}
	if err := r.updateBalance(ctx, tx, account.ID, newBalance, account.Version+1); err != nil {
		return 0, fmt.Errorf("Debit: %w", err)
	}
	account.Balance = newBalance
	account.Version++
	return newBalance, nil
}

// Credit adds amount to a row-locked active account.
func (r *AccountRepository) Credit(ctx context.Context, tx *sql.Tx, account *domain.Account, amount int64) (int64, error) {
	if !account.IsActive {
		return 0, fmt.Errorf("Credit: %w", domain.ErrAccountInactive)
	}
	newBalance := account.Balance + amount
	if err := r.updateBalance(ctx, tx, account.ID, newBalance, account.Version+1); err != nil {
		return 0, fmt.Errorf("Credit: %w", err)
	}
	account.Balance = newBalance
	account.Version++
	return newBalance, nil
}

func (r *AccountRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET is_active = false WHERE id = $1`, id,
	)
	if err != nil {
		return fmt.Errorf("Deactivate: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Deactivate: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("Deactivate: %w", domain.ErrNotFound)
	}
	return nil
}

// updateBalance is a compare-and-swap on the version column. A zero row
// count means another writer got there first despite the row lock, which
// indicates a bug rather than normal contention.
func (r *AccountRepository) updateBalance(ctx context.Context, tx *sql.Tx, id uuid.UUID, newBalance, newVersion int64) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE accounts SET balance = $1, version = $2 WHERE id = $3 AND version = $4`,
		newBalance, newVersion, id, newVersion-1,
	)
	if err != nil {
		return fmt.Errorf("updateBalance: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("updateBalance: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("updateBalance: %w", domain.ErrVersionConflict)
	}
	return nil
}

func scanAccount(s scanner) (*domain.Account, error) {
	var a domain.Account
	err := s.Scan(
		&a.ID, &a.UserID, &a.Number, &a.Type, &a.Balance, &a.Currency,
		&a.InterestRate, &a.OverdraftLimit, &a.Version, &a.IsActive, &a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

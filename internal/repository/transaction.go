package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/kwesi-damoah/atlas-ledger/internal/domain"
)

const transactionColumns = `id, source_account_id, dest_account_id, type, amount, currency,
	description, category, fee, exchange_rate, rate_fallback,
	recipient_name, recipient_account, recipient_bank, recipient_country, recipient_currency,
	status, failure_reason, created_at, completed_at`

type TransactionRepository struct {
	db *sql.DB
}

func NewTransactionRepository(db *sql.DB) *TransactionRepository {
	return &TransactionRepository{db: db}
}

// Create inserts a transaction row inside tx. Settled rows share the
// engine's settlement transaction; failed-attempt rows get a short
// transaction of their own so the row and its event land together.
func (r *TransactionRepository) Create(ctx context.Context, tx *sql.Tx, txn *domain.Transaction) error {
	var rName, rAccount, rBank, rCountry, rCurrency *string
	if txn.Recipient != nil {
		rName = &txn.Recipient.Name
		rAccount = &txn.Recipient.AccountNumber
		rBank = &txn.Recipient.BankName
		rCountry = &txn.Recipient.Country
		c := string(txn.Recipient.Currency)
		rCurrency = &c
	}

	_, err := tx.ExecContext(ctx,
		`INSERT INTO transactions (
			id, source_account_id, dest_account_id, type, amount, currency,
			description, category, fee, exchange_rate, rate_fallback,
			recipient_name, recipient_account, recipient_bank, recipient_country, recipient_currency,
			status, failure_reason, created_at, completed_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10,
			$11, $12, $13, $14, $15, $16, $17, $18, $19, $20
		)`,
		txn.ID, txn.SourceAccountID, txn.DestAccountID, txn.Type, txn.Amount, txn.Currency,
		txn.Description, txn.Category, txn.Fee, txn.ExchangeRate, txn.RateFallback,
		rName, rAccount, rBank, rCountry, rCurrency,
		txn.Status, txn.FailureReason, txn.CreatedAt, txn.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("Create: %w", err)
	}
	return nil
}

func (r *TransactionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = $1`, id,
	)
	t, err := scanTransaction(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetByID: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetByID: %w", err)
	}
	return t, nil
}

// ListRecentByAccount returns the newest transactions touching the account
// on either side, backed by the (source_account_id, created_at) and
// (dest_account_id, created_at) indexes.
func (r *TransactionRepository) ListRecentByAccount(ctx context.Context, accountID uuid.UUID, limit int) ([]domain.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		WHERE source_account_id = $1 OR dest_account_id = $1
		ORDER BY created_at DESC LIMIT $2`,
		accountID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("ListRecentByAccount: %w", err)
	}
	defer rows.Close()

	var txns []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("ListRecentByAccount: scan: %w", err)
		}
		txns = append(txns, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListRecentByAccount: rows: %w", err)
	}
	return txns, nil
}

// Cancel flips a pending transaction to cancelled. The status predicate
// makes the transition a compare-and-swap: a terminal row is never touched,
// whatever the caller believed its state was. completed_at stays null, it
// marks successful settlement only.
func (r *TransactionRepository) Cancel(ctx context.Context, tx *sql.Tx, id uuid.UUID) error {
	res, err := tx.ExecContext(ctx,
		`UPDATE transactions SET status = $1
		WHERE id = $2 AND status = $3`,
		domain.TransactionStatusCancelled, id, domain.TransactionStatusPending,
	)
	if err != nil {
		return fmt.Errorf("Cancel: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("Cancel: rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("Cancel: %w", domain.ErrTransactionTerminal)
	}
	return nil
}

func scanTransaction(s scanner) (*domain.Transaction, error) {
	var t domain.Transaction
	var destAccountID uuid.NullUUID
	var rName, rAccount, rBank, rCountry, rCurrency *string

	err := s.Scan(
		&t.ID, &t.SourceAccountID, &destAccountID, &t.Type, &t.Amount, &t.Currency,
		&t.Description, &t.Category, &t.Fee, &t.ExchangeRate, &t.RateFallback,
		&rName, &rAccount, &rBank, &rCountry, &rCurrency,
		&t.Status, &t.FailureReason, &t.CreatedAt, &t.CompletedAt,
	)
	if err != nil {
		return nil, err
	}

	if destAccountID.Valid {
		t.DestAccountID = &destAccountID.UUID
	}
	if rName != nil || rAccount != nil || rBank != nil || rCountry != nil {
		t.Recipient = &domain.Recipient{}
		if rName != nil {
			t.Recipient.Name = *rName
		}
		if rAccount != nil {
			t.Recipient.AccountNumber = *rAccount
		}
		if rBank != nil {
			t.Recipient.BankName = *rBank
		}
		if rCountry != nil {
			t.Recipient.Country = *rCountry
		}
		if rCurrency != nil {
			t.Recipient.Currency = domain.Currency(*rCurrency)
		}
	}

	return &t, nil
}

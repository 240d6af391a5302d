package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/kwesi-damoah/atlas-ledger/internal/domain"
	"github.com/kwesi-damoah/atlas-ledger/internal/logging"
)

// Cancel moves a pending transaction to cancelled. It only applies before
// processing has begun; once a row is terminal it never transitions again,
// and the repository's compare-and-swap enforces that even when this check
// races with a concurrent settle.
func (s *Service) Cancel(ctx context.Context, transactionID, userID uuid.UUID) (*domain.Transaction, error) {
	log := logging.FromContext(ctx)

	txn, err := s.transactions.GetByID(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("Cancel: %w", err)
	}

	if _, err := s.accounts.GetByIDForUser(ctx, txn.SourceAccountID, userID); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("Cancel: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("Cancel: %w", err)
	}

	if txn.Status.Terminal() {
		return nil, fmt.Errorf("Cancel: %w", domain.ErrTransactionTerminal)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("Cancel: %w", err)
	}
	defer tx.Rollback()

	if err := s.transactions.Cancel(ctx, tx, txn.ID); err != nil {
		return nil, fmt.Errorf("Cancel: %w", err)
	}
	if err := s.events.Create(ctx, tx, newEvent(txn.ID, domain.TransactionEventTypeCancelled, userID)); err != nil {
		return nil, fmt.Errorf("Cancel: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("Cancel: commit: %w", err)
	}

	txn.Status = domain.TransactionStatusCancelled

	log.Info("transaction cancelled", "transaction_id", txn.ID, "user_id", userID)

	return txn, nil
}

package domain

import (
	"time"

	"github.com/google/uuid"
)

type EntryType string

const (
	EntryTypeDebit  EntryType = "debit"
	EntryTypeCredit EntryType = "credit"
)

// JournalEntry records one balance mutation applied while settling a
// transaction. Entries are append-only; a transfer writes a debit and a
// credit under the same transaction id.
type JournalEntry struct {
	ID            uuid.UUID
	TransactionID uuid.UUID
	AccountID     uuid.UUID
	EntryType     EntryType
	Amount        int64
	Currency      Currency
	BalanceBefore int64
	BalanceAfter  int64
	CreatedAt     time.Time
}

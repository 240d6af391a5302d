package testutil

import (
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
)

var fixtureSeq uint64

// SeedTestUser inserts a user with a unique email and returns its id.
func SeedTestUser(t *testing.T, db *sql.DB) uuid.UUID {
	t.Helper()

	id := uuid.New()
	fixtureSeq++
	email := fmt.Sprintf("user-%d-%s@example.com", fixtureSeq, id.String()[:8])

	_, err := db.Exec(
		`INSERT INTO users (id, email, name) VALUES ($1, $2, $3)`,
		id, email, "Test User",
	)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return id
}

type AccountFixture struct {
	UserID         uuid.UUID
	Type           string
	Balance        int64
	Currency       string
	OverdraftLimit int64
	IsActive       bool
}

// SeedTestAccount inserts an account directly, bypassing the service layer,
// so tests can start from an arbitrary balance.
func SeedTestAccount(t *testing.T, db *sql.DB, f AccountFixture) uuid.UUID {
	t.Helper()

	if f.Type == "" {
		f.Type = "checking"
	}
	if f.Currency == "" {
		f.Currency = "USD"
	}

	id := uuid.New()
	fixtureSeq++
	number := fmt.Sprintf("BA%016d", fixtureSeq)

	_, err := db.Exec(
		`INSERT INTO accounts (id, user_id, account_number, account_type, balance, currency, overdraft_limit, version, is_active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, 1, $8)`,
		id, f.UserID, number, f.Type, f.Balance, f.Currency, f.OverdraftLimit, f.IsActive,
	)
	if err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return id
}

// SeedPendingTransaction inserts a pending transaction row for cancellation
// tests. The engine itself only ever persists terminal rows.
func SeedPendingTransaction(t *testing.T, db *sql.DB, sourceAccountID uuid.UUID, amount int64) uuid.UUID {
	t.Helper()

	id := uuid.New()
	_, err := db.Exec(
		`INSERT INTO transactions (id, source_account_id, type, amount, currency, description, status, created_at)
		 VALUES ($1, $2, 'withdrawal', $3, 'USD', 'pending fixture', 'pending', $4)`,
		id, sourceAccountID, amount, time.Now().UTC(),
	)
	if err != nil {
		t.Fatalf("seed pending transaction: %v", err)
	}
	return id
}

func GetAccountBalance(t *testing.T, db *sql.DB, accountID uuid.UUID) int64 {
	t.Helper()

	var balance int64
	if err := db.QueryRow(`SELECT balance FROM accounts WHERE id = $1`, accountID).Scan(&balance); err != nil {
		t.Fatalf("get account balance: %v", err)
	}
	return balance
}

func GetRewardsBalance(t *testing.T, db *sql.DB, userID uuid.UUID) int64 {
	t.Helper()

	var balance int64
	if err := db.QueryRow(`SELECT rewards_balance FROM users WHERE id = $1`, userID).Scan(&balance); err != nil {
		t.Fatalf("get rewards balance: %v", err)
	}
	return balance
}

func CountJournalEntries(t *testing.T, db *sql.DB, transactionID uuid.UUID) int {
	t.Helper()

	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM journal_entries WHERE transaction_id = $1`, transactionID).Scan(&n); err != nil {
		t.Fatalf("count journal entries: %v", err)
	}
	return n
}

func CountTransactionEvents(t *testing.T, db *sql.DB, transactionID uuid.UUID, eventType string) int {
	t.Helper()

	var n int
	if err := db.QueryRow(
		`SELECT COUNT(*) FROM transaction_events WHERE transaction_id = $1 AND event_type = $2`,
		transactionID, eventType,
	).Scan(&n); err != nil {
		t.Fatalf("count transaction events: %v", err)
	}
	return n
}

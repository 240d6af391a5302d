package ledger

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kwesi-damoah/atlas-ledger/internal/domain"
	"github.com/kwesi-damoah/atlas-ledger/internal/fees"
	"github.com/kwesi-damoah/atlas-ledger/internal/fx"
	"github.com/kwesi-damoah/atlas-ledger/internal/repository"
	"github.com/kwesi-damoah/atlas-ledger/internal/rewards"
	"github.com/kwesi-damoah/atlas-ledger/internal/testutil"
)

func newLedgerService(t *testing.T, db *sql.DB) *Service {
	t.Helper()

	accounts := repository.NewAccountRepository(db)
	transactions := repository.NewTransactionRepository(db)
	journal := repository.NewJournalRepository(db)
	events := repository.NewEventRepository(db)
	users := repository.NewUserRepository(db)

	return NewService(
		accounts, transactions, journal, events,
		fees.NewCalculator(), fx.NewConverter(false), rewards.NewAccrual(users),
		db, 1000,
	)
}

func transactionRow(t *testing.T, db *sql.DB, id uuid.UUID) (status string, failureReason sql.NullString, destID uuid.NullUUID) {
	t.Helper()
	err := db.QueryRow(
		`SELECT status, failure_reason, dest_account_id FROM transactions WHERE id = $1`, id,
	).Scan(&status, &failureReason, &destID)
	require.NoError(t, err)
	return status, failureReason, destID
}

func TestSubmit(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newLedgerService(t, db)
	ctx := context.Background()

	t.Run("withdrawal exceeding balance plus fee records a failed transaction", func(t *testing.T) {
		userID := testutil.SeedTestUser(t, db)
		accountID := testutil.SeedTestAccount(t, db, testutil.AccountFixture{
			UserID: userID, Balance: 10000, IsActive: true,
		})

		txn, err := svc.Submit(ctx, SubmitRequest{
			UserID:          userID,
			SourceAccountID: accountID,
			Type:            domain.TransactionTypeWithdrawal,
			Amount:          10000,
			Description:     "ATM withdrawal",
		})
		require.ErrorIs(t, err, domain.ErrInsufficientFunds)
		require.NotNil(t, txn)

		assert.Equal(t, domain.TransactionStatusFailed, txn.Status)
		assert.Equal(t, int64(250), txn.Fee)
		require.NotNil(t, txn.FailureReason)
		assert.Equal(t, "INSUFFICIENT_FUNDS", *txn.FailureReason)

		status, reason, _ := transactionRow(t, db, txn.ID)
		assert.Equal(t, "failed", status)
		assert.Equal(t, "INSUFFICIENT_FUNDS", reason.String)

		assert.Equal(t, int64(10000), testutil.GetAccountBalance(t, db, accountID))
		assert.Equal(t, 0, testutil.CountJournalEntries(t, db, txn.ID))
		assert.Equal(t, 1, testutil.CountTransactionEvents(t, db, txn.ID, "failed"))
	})

	t.Run("transfer debits fee from source and credits exact amount", func(t *testing.T) {
		userID := testutil.SeedTestUser(t, db)
		srcID := testutil.SeedTestAccount(t, db, testutil.AccountFixture{
			UserID: userID, Balance: 50000, IsActive: true,
		})
		destID := testutil.SeedTestAccount(t, db, testutil.AccountFixture{
			UserID: userID, Balance: 0, IsActive: true,
		})

		txn, err := svc.Submit(ctx, SubmitRequest{
			UserID:          userID,
			SourceAccountID: srcID,
			DestAccountID:   &destID,
			Type:            domain.TransactionTypeTransfer,
			Amount:          20000,
			Description:     "rent share",
			Category:        domain.CategoryBills,
		})
		require.NoError(t, err)
		require.NotNil(t, txn)

		assert.Equal(t, domain.TransactionStatusCompleted, txn.Status)
		assert.Equal(t, int64(0), txn.Fee)
		require.NotNil(t, txn.CompletedAt)

		assert.Equal(t, int64(30000), testutil.GetAccountBalance(t, db, srcID))
		assert.Equal(t, int64(20000), testutil.GetAccountBalance(t, db, destID))
		assert.Equal(t, 1, testutil.CountTransactionEvents(t, db, txn.ID, "completed"))

		entries, err := repository.NewJournalRepository(db).GetByTransactionID(ctx, txn.ID)
		require.NoError(t, err)
		require.Len(t, entries, 2)
		byAccount := map[uuid.UUID]domain.JournalEntry{}
		for _, e := range entries {
			byAccount[e.AccountID] = e
		}
		debit := byAccount[srcID]
		assert.Equal(t, domain.EntryTypeDebit, debit.EntryType)
		assert.Equal(t, int64(20000), debit.Amount)
		assert.Equal(t, int64(50000), debit.BalanceBefore)
		assert.Equal(t, int64(30000), debit.BalanceAfter)
		credit := byAccount[destID]
		assert.Equal(t, domain.EntryTypeCredit, credit.EntryType)
		assert.Equal(t, int64(20000), credit.Amount)
		assert.Equal(t, int64(0), credit.BalanceBefore)
		assert.Equal(t, int64(20000), credit.BalanceAfter)

		// floor(1% of 200.00) = 2 points
		assert.Equal(t, int64(2), testutil.GetRewardsBalance(t, db, userID))
	})

	t.Run("deposit below one reward point accrues nothing", func(t *testing.T) {
		userID := testutil.SeedTestUser(t, db)
		accountID := testutil.SeedTestAccount(t, db, testutil.AccountFixture{
			UserID: userID, Balance: 0, IsActive: true,
		})

		txn, err := svc.Submit(ctx, SubmitRequest{
			UserID:          userID,
			SourceAccountID: accountID,
			Type:            domain.TransactionTypeDeposit,
			Amount:          5000,
			Description:     "cash deposit",
		})
		require.NoError(t, err)

		assert.Equal(t, domain.TransactionStatusCompleted, txn.Status)
		assert.Equal(t, int64(0), txn.Fee)
		assert.Equal(t, int64(5000), testutil.GetAccountBalance(t, db, accountID))
		assert.Equal(t, int64(0), testutil.GetRewardsBalance(t, db, userID))
	})

	t.Run("international with unconfigured pair uses flagged fallback rate", func(t *testing.T) {
		userID := testutil.SeedTestUser(t, db)
		accountID := testutil.SeedTestAccount(t, db, testutil.AccountFixture{
			UserID: userID, Balance: 200000, IsActive: true,
		})

		txn, err := svc.Submit(ctx, SubmitRequest{
			UserID:          userID,
			SourceAccountID: accountID,
			Type:            domain.TransactionTypeInternational,
			Amount:          100000,
			Description:     "family support",
			Recipient: &domain.Recipient{
				Name:          "Adaeze Okafor",
				AccountNumber: "NG0011223344",
				BankName:      "Zenith Bank",
				Country:       "NG",
				Currency:      "NGN",
			},
		})
		require.NoError(t, err)

		assert.Equal(t, domain.TransactionStatusCompleted, txn.Status)
		// 3% capped at 25.00
		assert.Equal(t, int64(2500), txn.Fee)
		assert.True(t, txn.ExchangeRate.Equal(decimal.NewFromInt(1)))
		assert.True(t, txn.RateFallback)
		assert.Equal(t, int64(97500), testutil.GetAccountBalance(t, db, accountID))
	})

	t.Run("international with configured pair carries the real rate", func(t *testing.T) {
		userID := testutil.SeedTestUser(t, db)
		accountID := testutil.SeedTestAccount(t, db, testutil.AccountFixture{
			UserID: userID, Balance: 200000, IsActive: true,
		})

		txn, err := svc.Submit(ctx, SubmitRequest{
			UserID:          userID,
			SourceAccountID: accountID,
			Type:            domain.TransactionTypeInternational,
			Amount:          10000,
			Description:     "remittance",
			Recipient: &domain.Recipient{
				Name:          "Maria Santos",
				AccountNumber: "PH1234567890",
				BankName:      "BDO Unibank",
				Country:       "PH",
				Currency:      "PHP",
			},
		})
		require.NoError(t, err)

		assert.False(t, txn.RateFallback)
		assert.Equal(t, "56.8", txn.ExchangeRate.String())
		// 3% of 100.00 is under the cap
		assert.Equal(t, int64(300), txn.Fee)
	})

	t.Run("withdrawal may land exactly on the overdraft floor", func(t *testing.T) {
		userID := testutil.SeedTestUser(t, db)
		accountID := testutil.SeedTestAccount(t, db, testutil.AccountFixture{
			UserID: userID, Balance: 0, OverdraftLimit: 10250, IsActive: true,
		})

		txn, err := svc.Submit(ctx, SubmitRequest{
			UserID:          userID,
			SourceAccountID: accountID,
			Type:            domain.TransactionTypeWithdrawal,
			Amount:          10000,
			Description:     "overdraft withdrawal",
		})
		require.NoError(t, err)

		assert.Equal(t, domain.TransactionStatusCompleted, txn.Status)
		assert.Equal(t, int64(-10250), testutil.GetAccountBalance(t, db, accountID))
	})

	t.Run("inactive source records a failed transaction", func(t *testing.T) {
		userID := testutil.SeedTestUser(t, db)
		accountID := testutil.SeedTestAccount(t, db, testutil.AccountFixture{
			UserID: userID, Balance: 50000, IsActive: false,
		})

		txn, err := svc.Submit(ctx, SubmitRequest{
			UserID:          userID,
			SourceAccountID: accountID,
			Type:            domain.TransactionTypePayment,
			Amount:          1000,
			Description:     "utility bill",
		})
		require.ErrorIs(t, err, domain.ErrAccountInactive)
		require.NotNil(t, txn)
		require.NotNil(t, txn.FailureReason)
		assert.Equal(t, "ACCOUNT_INACTIVE", *txn.FailureReason)
		assert.Equal(t, int64(50000), testutil.GetAccountBalance(t, db, accountID))
	})

	t.Run("missing destination records a failed transaction without the dangling reference", func(t *testing.T) {
		userID := testutil.SeedTestUser(t, db)
		srcID := testutil.SeedTestAccount(t, db, testutil.AccountFixture{
			UserID: userID, Balance: 50000, IsActive: true,
		})
		ghost := uuid.New()

		txn, err := svc.Submit(ctx, SubmitRequest{
			UserID:          userID,
			SourceAccountID: srcID,
			DestAccountID:   &ghost,
			Type:            domain.TransactionTypeTransfer,
			Amount:          1000,
			Description:     "transfer to nowhere",
		})
		require.ErrorIs(t, err, domain.ErrDestinationNotFound)
		require.NotNil(t, txn)

		status, reason, destID := transactionRow(t, db, txn.ID)
		assert.Equal(t, "failed", status)
		assert.Equal(t, "DESTINATION_NOT_FOUND", reason.String)
		assert.False(t, destID.Valid)
		assert.Equal(t, int64(50000), testutil.GetAccountBalance(t, db, srcID))

		events, err := repository.NewEventRepository(db).GetByTransactionID(ctx, txn.ID)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, domain.TransactionEventTypeFailed, events[0].EventType)
		assert.Equal(t, "user:"+userID.String(), events[0].Actor)
	})

	t.Run("requested currency differing from account currency records a failure", func(t *testing.T) {
		userID := testutil.SeedTestUser(t, db)
		accountID := testutil.SeedTestAccount(t, db, testutil.AccountFixture{
			UserID: userID, Balance: 50000, Currency: "USD", IsActive: true,
		})

		txn, err := svc.Submit(ctx, SubmitRequest{
			UserID:          userID,
			SourceAccountID: accountID,
			Type:            domain.TransactionTypeWithdrawal,
			Amount:          1000,
			Currency:        "EUR",
			Description:     "mismatched withdrawal",
		})
		require.ErrorIs(t, err, domain.ErrCurrencyMismatch)
		require.NotNil(t, txn)
		require.NotNil(t, txn.FailureReason)
		assert.Equal(t, "CURRENCY_MISMATCH", *txn.FailureReason)
	})

	t.Run("unknown source account persists nothing", func(t *testing.T) {
		userID := testutil.SeedTestUser(t, db)

		txn, err := svc.Submit(ctx, SubmitRequest{
			UserID:          userID,
			SourceAccountID: uuid.New(),
			Type:            domain.TransactionTypeWithdrawal,
			Amount:          1000,
			Description:     "from nowhere",
		})
		require.ErrorIs(t, err, domain.ErrAccountNotFound)
		assert.Nil(t, txn)
	})

	t.Run("transfer to another user's account is allowed", func(t *testing.T) {
		sender := testutil.SeedTestUser(t, db)
		receiver := testutil.SeedTestUser(t, db)
		srcID := testutil.SeedTestAccount(t, db, testutil.AccountFixture{
			UserID: sender, Balance: 10000, IsActive: true,
		})
		destID := testutil.SeedTestAccount(t, db, testutil.AccountFixture{
			UserID: receiver, Balance: 0, IsActive: true,
		})

		txn, err := svc.Submit(ctx, SubmitRequest{
			UserID:          sender,
			SourceAccountID: srcID,
			DestAccountID:   &destID,
			Type:            domain.TransactionTypeTransfer,
			Amount:          4000,
			Description:     "paying a friend",
		})
		require.NoError(t, err)
		assert.Equal(t, domain.TransactionStatusCompleted, txn.Status)
		assert.Equal(t, int64(4000), testutil.GetAccountBalance(t, db, destID))
	})

	t.Run("transfer to an inactive destination records a failure", func(t *testing.T) {
		userID := testutil.SeedTestUser(t, db)
		srcID := testutil.SeedTestAccount(t, db, testutil.AccountFixture{
			UserID: userID, Balance: 10000, IsActive: true,
		})
		destID := testutil.SeedTestAccount(t, db, testutil.AccountFixture{
			UserID: userID, Balance: 0, IsActive: false,
		})

		txn, err := svc.Submit(ctx, SubmitRequest{
			UserID:          userID,
			SourceAccountID: srcID,
			DestAccountID:   &destID,
			Type:            domain.TransactionTypeTransfer,
			Amount:          1000,
			Description:     "transfer to closed account",
		})
		require.ErrorIs(t, err, domain.ErrAccountInactive)
		require.NotNil(t, txn)
		assert.Equal(t, int64(10000), testutil.GetAccountBalance(t, db, srcID))
		assert.Equal(t, int64(0), testutil.GetAccountBalance(t, db, destID))
	})
}

func TestSubmitConcurrency(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newLedgerService(t, db)
	ctx := context.Background()

	t.Run("opposite transfers between the same pair conserve total balance", func(t *testing.T) {
		userID := testutil.SeedTestUser(t, db)
		a := testutil.SeedTestAccount(t, db, testutil.AccountFixture{
			UserID: userID, Balance: 100000, IsActive: true,
		})
		b := testutil.SeedTestAccount(t, db, testutil.AccountFixture{
			UserID: userID, Balance: 100000, IsActive: true,
		})

		var wg sync.WaitGroup
		errs := make([]error, 2)

		wg.Add(2)
		go func() {
			defer wg.Done()
			_, errs[0] = svc.Submit(ctx, SubmitRequest{
				UserID:          userID,
				SourceAccountID: a,
				DestAccountID:   &b,
				Type:            domain.TransactionTypeTransfer,
				Amount:          10000,
				Description:     "a to b",
			})
		}()
		go func() {
			defer wg.Done()
			_, errs[1] = svc.Submit(ctx, SubmitRequest{
				UserID:          userID,
				SourceAccountID: b,
				DestAccountID:   &a,
				Type:            domain.TransactionTypeTransfer,
				Amount:          30000,
				Description:     "b to a",
			})
		}()
		wg.Wait()

		require.NoError(t, errs[0])
		require.NoError(t, errs[1])

		balanceA := testutil.GetAccountBalance(t, db, a)
		balanceB := testutil.GetAccountBalance(t, db, b)
		assert.Equal(t, int64(120000), balanceA)
		assert.Equal(t, int64(80000), balanceB)
		assert.Equal(t, int64(200000), balanceA+balanceB)
	})

	t.Run("concurrent withdrawals cannot jointly breach the overdraft floor", func(t *testing.T) {
		userID := testutil.SeedTestUser(t, db)
		accountID := testutil.SeedTestAccount(t, db, testutil.AccountFixture{
			UserID: userID, Balance: 10000, IsActive: true,
		})

		var wg sync.WaitGroup
		errs := make([]error, 2)

		for i := range errs {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, errs[i] = svc.Submit(ctx, SubmitRequest{
					UserID:          userID,
					SourceAccountID: accountID,
					Type:            domain.TransactionTypeWithdrawal,
					Amount:          9000,
					Description:     "racing withdrawal",
				})
			}()
		}
		wg.Wait()

		var succeeded, insufficient int
		for _, err := range errs {
			switch {
			case err == nil:
				succeeded++
			case errors.Is(err, domain.ErrInsufficientFunds):
				insufficient++
			}
		}
		assert.Equal(t, 1, succeeded)
		assert.Equal(t, 1, insufficient)

		// 100.00 - 90.00 - 2.50 fee
		assert.Equal(t, int64(750), testutil.GetAccountBalance(t, db, accountID))
	})
}

func TestCancel(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newLedgerService(t, db)
	ctx := context.Background()

	t.Run("pending transaction cancels and emits an event", func(t *testing.T) {
		userID := testutil.SeedTestUser(t, db)
		accountID := testutil.SeedTestAccount(t, db, testutil.AccountFixture{
			UserID: userID, Balance: 10000, IsActive: true,
		})
		txnID := testutil.SeedPendingTransaction(t, db, accountID, 5000)

		txn, err := svc.Cancel(ctx, txnID, userID)
		require.NoError(t, err)
		assert.Equal(t, domain.TransactionStatusCancelled, txn.Status)

		status, _, _ := transactionRow(t, db, txnID)
		assert.Equal(t, "cancelled", status)
		assert.Equal(t, 1, testutil.CountTransactionEvents(t, db, txnID, "cancelled"))

		var completedAt sql.NullTime
		require.NoError(t, db.QueryRow(
			`SELECT completed_at FROM transactions WHERE id = $1`, txnID,
		).Scan(&completedAt))
		assert.False(t, completedAt.Valid)
	})

	t.Run("terminal transaction never transitions again", func(t *testing.T) {
		userID := testutil.SeedTestUser(t, db)
		accountID := testutil.SeedTestAccount(t, db, testutil.AccountFixture{
			UserID: userID, Balance: 0, IsActive: true,
		})

		txn, err := svc.Submit(ctx, SubmitRequest{
			UserID:          userID,
			SourceAccountID: accountID,
			Type:            domain.TransactionTypeDeposit,
			Amount:          1000,
			Description:     "completed deposit",
		})
		require.NoError(t, err)

		_, err = svc.Cancel(ctx, txn.ID, userID)
		assert.ErrorIs(t, err, domain.ErrTransactionTerminal)

		status, _, _ := transactionRow(t, db, txn.ID)
		assert.Equal(t, "completed", status)
	})

	t.Run("cancelling another user's transaction reads as not found", func(t *testing.T) {
		owner := testutil.SeedTestUser(t, db)
		stranger := testutil.SeedTestUser(t, db)
		accountID := testutil.SeedTestAccount(t, db, testutil.AccountFixture{
			UserID: owner, Balance: 10000, IsActive: true,
		})
		txnID := testutil.SeedPendingTransaction(t, db, accountID, 5000)

		_, err := svc.Cancel(ctx, txnID, stranger)
		assert.ErrorIs(t, err, domain.ErrNotFound)

		status, _, _ := transactionRow(t, db, txnID)
		assert.Equal(t, "pending", status)
	})
}

func TestGetTransactionForUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := newLedgerService(t, db)
	ctx := context.Background()

	owner := testutil.SeedTestUser(t, db)
	stranger := testutil.SeedTestUser(t, db)
	accountID := testutil.SeedTestAccount(t, db, testutil.AccountFixture{
		UserID: owner, Balance: 10000, IsActive: true,
	})

	txn, err := svc.Submit(ctx, SubmitRequest{
		UserID:          owner,
		SourceAccountID: accountID,
		Type:            domain.TransactionTypeWithdrawal,
		Amount:          1000,
		Description:     "visible withdrawal",
	})
	require.NoError(t, err)

	got, err := svc.GetTransactionForUser(ctx, txn.ID, owner)
	require.NoError(t, err)
	assert.Equal(t, txn.ID, got.ID)
	assert.Equal(t, domain.TransactionStatusCompleted, got.Status)

	_, err = svc.GetTransactionForUser(ctx, txn.ID, stranger)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

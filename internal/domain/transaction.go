package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionType string

const (
	TransactionTypeTransfer      TransactionType = "transfer"
	TransactionTypeDeposit       TransactionType = "deposit"
	TransactionTypeWithdrawal    TransactionType = "withdrawal"
	TransactionTypePayment       TransactionType = "payment"
	TransactionTypeInternational TransactionType = "international"
)

func (t TransactionType) IsValid() bool {
	switch t {
	case TransactionTypeTransfer, TransactionTypeDeposit, TransactionTypeWithdrawal,
		TransactionTypePayment, TransactionTypeInternational:
		return true
	}
	return false
}

// Debits reports whether the type takes money out of the source account.
func (t TransactionType) Debits() bool {
	return t != TransactionTypeDeposit
}

type TransactionStatus string

const (
	TransactionStatusPending   TransactionStatus = "pending"
	TransactionStatusCompleted TransactionStatus = "completed"
	TransactionStatusFailed    TransactionStatus = "failed"
	TransactionStatusCancelled TransactionStatus = "cancelled"
)

// Terminal statuses are immutable; only pending rows may transition.
func (s TransactionStatus) Terminal() bool {
	return s != TransactionStatusPending
}

type Category string

const (
	CategoryFood          Category = "food"
	CategoryShopping      Category = "shopping"
	CategoryBills         Category = "bills"
	CategoryEntertainment Category = "entertainment"
	CategoryTransport     Category = "transport"
	CategoryHealthcare    Category = "healthcare"
	CategoryOther         Category = "other"
)

func (c Category) IsValid() bool {
	switch c {
	case CategoryFood, CategoryShopping, CategoryBills, CategoryEntertainment,
		CategoryTransport, CategoryHealthcare, CategoryOther:
		return true
	}
	return false
}

// Recipient identifies the external beneficiary of an international
// transaction. Currency selects the conversion target.
type Recipient struct {
	Name          string
	AccountNumber string
	BankName      string
	Country       string
	Currency      Currency
}

// MinTransactionAmount is one minor unit, i.e. 0.01 in major units.
const MinTransactionAmount int64 = 1

// Transaction is the append-only record of one submitted attempt. Once the
// status is terminal no field changes. RateFallback marks an exchange rate
// that was defaulted to 1 because the pair was not priced, so it stays
// distinguishable from a genuine 1:1 pair.
type Transaction struct {
	ID              uuid.UUID
	SourceAccountID uuid.UUID
	DestAccountID   *uuid.UUID
	Type            TransactionType
	Amount          int64
	Currency        Currency
	Description     string
	Category        Category
	Fee             int64
	ExchangeRate    decimal.Decimal
	RateFallback    bool
	Recipient       *Recipient
	Status          TransactionStatus
	FailureReason   *string
	CreatedAt       time.Time
	CompletedAt     *time.Time
}

// TotalDebit is the amount the source account is charged for debiting
// types: the amount plus the fee. The destination of a transfer is always
// credited the amount alone.
func (t *Transaction) TotalDebit() int64 {
	if !t.Type.Debits() {
		return 0
	}
	return t.Amount + t.Fee
}

package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Currency string

// IsValid reports whether the code looks like an ISO-4217 alpha code.
// The converter decides which pairs are actually priced.
func (c Currency) IsValid() bool {
	if len(c) != 3 {
		return false
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyCAD Currency = "CAD"
)

type AccountType string

const (
	AccountTypeChecking   AccountType = "checking"
	AccountTypeSavings    AccountType = "savings"
	AccountTypeBusiness   AccountType = "business"
	AccountTypeInvestment AccountType = "investment"
)

func (t AccountType) IsValid() bool {
	switch t {
	case AccountTypeChecking, AccountTypeSavings, AccountTypeBusiness, AccountTypeInvestment:
		return true
	}
	return false
}

// Account balances are integer minor units (10000 == 100.00).
// OverdraftLimit is the amount the balance may go below zero; the store
// never lets balance fall under -OverdraftLimit.
type Account struct {
	ID             uuid.UUID
	UserID         uuid.UUID
	Number         string
	Type           AccountType
	Balance        int64
	Currency       Currency
	InterestRate   decimal.Decimal
	OverdraftLimit int64
	Version        int64
	IsActive       bool
	CreatedAt      time.Time
}

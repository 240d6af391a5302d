// Package fees prices transactions. All amounts are integer minor units.
package fees

import (
	"github.com/shopspring/decimal"

	"github.com/kwesi-damoah/atlas-ledger/internal/domain"
)

type Calculator struct {
	withdrawalFee    int64
	paymentFee       int64
	internationalPct decimal.Decimal
	internationalCap int64
}

// NewCalculator returns the standard schedule: withdrawals 2.50, payments
// 1.50, transfers and deposits free, international 3% capped at 25.00.
func NewCalculator() *Calculator {
	return &Calculator{
		withdrawalFee:    250,
		paymentFee:       150,
		internationalPct: decimal.NewFromFloat(0.03),
		internationalCap: 2500,
	}
}

// Fee is informational until the engine charges it; it is always >= 0 and
// never shared with a transfer's destination.
func (c *Calculator) Fee(txType domain.TransactionType, amount int64) int64 {
	switch txType {
	case domain.TransactionTypeInternational:
		pct := decimal.NewFromInt(amount).Mul(c.internationalPct).Round(0).IntPart()
		if pct > c.internationalCap {
			return c.internationalCap
		}
		return pct
	case domain.TransactionTypeWithdrawal:
		return c.withdrawalFee
	case domain.TransactionTypePayment:
		return c.paymentFee
	default:
		return 0
	}
}

// Package rewards accrues loyalty points from settled transactions: one
// point per whole major currency unit of 1% of the amount, i.e.
// floor(amount * 0.01) in major units.
package rewards

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// minorUnitsPerPoint: 1% of the amount, floored to whole major units.
// 10000 minor units (100.00) earn 1 point.
const minorUnitsPerPoint int64 = 10_000

func PointsFor(amountMinor int64) int64 {
	if amountMinor < 0 {
		return 0
	}
	return amountMinor / minorUnitsPerPoint
}

type userRepo interface {
	IncrementRewards(ctx context.Context, userID uuid.UUID, points int64) error
}

type Accrual struct {
	users userRepo
}

func NewAccrual(users userRepo) *Accrual {
	return &Accrual{users: users}
}

// Accrue adds the points earned by a settled amount to the user's balance.
// It is keyed off the transaction amount, never amount+fee, and is only
// called after the transaction completes. The caller treats a returned
// error as a reconciliation item, not a transaction failure.
func (a *Accrual) Accrue(ctx context.Context, userID uuid.UUID, settledAmount int64) error {
	points := PointsFor(settledAmount)
	if points == 0 {
		return nil
	}
	if err := a.users.IncrementRewards(ctx, userID, points); err != nil {
		return fmt.Errorf("Accrue: %w", err)
	}
	return nil
}

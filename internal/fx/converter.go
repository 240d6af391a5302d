package fx

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/kwesi-damoah/atlas-ledger/internal/domain"
)

// Rate is a resolved exchange rate. Fallback is true when the pair had no
// configured rate and the value was defaulted to 1; callers must record
// that flag so a defaulted settlement stays distinguishable from a genuine
// 1:1 pair.
type Rate struct {
	Value    decimal.Decimal
	Fallback bool
}

type Converter struct {
	rates map[string]decimal.Decimal

	// failClosed turns the 1.0 fallback for unknown pairs into a hard
	// ErrConversionUnavailable.
	failClosed bool
}

func NewConverter(failClosed bool) *Converter {
	return &Converter{
		failClosed: failClosed,
		rates: map[string]decimal.Decimal{
			"USD_EUR": decimal.NewFromFloat(0.85),
			"USD_GBP": decimal.NewFromFloat(0.73),
			"USD_CAD": decimal.NewFromFloat(1.32),
			"USD_PHP": decimal.NewFromFloat(56.80),
			"USD_INR": decimal.NewFromFloat(83.15),
			"EUR_USD": decimal.NewFromFloat(1.18),
			"GBP_USD": decimal.NewFromFloat(1.37),
			"CAD_USD": decimal.NewFromFloat(0.76),
		},
	}
}

func pairKey(from, to domain.Currency) string {
	return string(from) + "_" + string(to)
}

func (c *Converter) Rate(from, to domain.Currency) (Rate, error) {
	if !from.IsValid() || !to.IsValid() {
		return Rate{}, fmt.Errorf("Rate: pair %s/%s: %w", from, to, domain.ErrInvalidCurrency)
	}

	if from == to {
		return Rate{Value: decimal.NewFromInt(1)}, nil
	}

	if r, ok := c.rates[pairKey(from, to)]; ok {
		return Rate{Value: r}, nil
	}

	if c.failClosed {
		return Rate{}, fmt.Errorf("Rate: pair %s/%s: %w", from, to, domain.ErrConversionUnavailable)
	}

	return Rate{Value: decimal.NewFromInt(1), Fallback: true}, nil
}

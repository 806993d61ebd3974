// Package pricer fetches live last prices used as the current price override in a scan.
package pricer

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/sbl/internal/domain"
)

// Pricer returns the latest traded (or mid) price for a pair.
type Pricer interface {
	GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error)
}

func parsePositive(raw string) (decimal.Decimal, error) {
	p, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, err
	}
	if !p.IsPositive() {
		return decimal.Zero, errNonPositive
	}
	return p, nil
}

package pricer

import (
	"context"

	"github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/sbl/internal/domain"
)

type BybitPricer struct {
	client *bybit.Client
}

func NewBybitPricer(client *bybit.Client) *BybitPricer {
	return &BybitPricer{client: client}
}

func (p *BybitPricer) GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}

	symbol := bybit.SymbolV5(pair.Symbol())
	result, err := p.client.V5().Market().GetTickers(bybit.V5GetTickersParam{
		Category: bybit.CategoryV5Spot,
		Symbol:   &symbol,
	})
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "bybit price for %s", pair.String())
	}

	if result.Result.Spot == nil || len(result.Result.Spot.List) == 0 {
		return decimal.Zero, errors.Errorf("bybit API returned empty prices for %s", pair.String())
	}

	return parsePositive(result.Result.Spot.List[0].LastPrice)
}

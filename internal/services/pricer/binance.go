package pricer

import (
	"context"

	"github.com/adshao/go-binance/v2"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/sbl/internal/domain"
)

var errNonPositive = errors.New("non-positive price")

// BinancePricer reads last prices from the public Binance ticker endpoint.
type BinancePricer struct {
	client *binance.Client
}

func NewBinancePricer(client *binance.Client) *BinancePricer {
	return &BinancePricer{client: client}
}

func (p *BinancePricer) GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	prices, err := p.client.NewListPricesService().Symbol(pair.Symbol()).Do(ctx)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "binance price for %s", pair.String())
	}
	if len(prices) == 0 {
		return decimal.Zero, errors.Errorf("binance API returned empty prices for %s", pair.String())
	}

	return parsePositive(prices[0].Price)
}

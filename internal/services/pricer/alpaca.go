package pricer

import (
	"context"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/sbl/internal/domain"
)

// AlpacaPricer reads the latest stock trade.
type AlpacaPricer struct {
	client *marketdata.Client
	feed   marketdata.Feed
}

func NewAlpacaPricer(client *marketdata.Client, feed marketdata.Feed) *AlpacaPricer {
	if feed == "" {
		feed = marketdata.IEX
	}
	return &AlpacaPricer{client: client, feed: feed}
}

func (p *AlpacaPricer) GetPrice(ctx context.Context, pair domain.Pair) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}

	trade, err := p.client.GetLatestTrade(pair.From, marketdata.GetLatestTradeRequest{Feed: p.feed})
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "alpaca latest trade for %s", pair.From)
	}
	if trade == nil || trade.Price <= 0 {
		return decimal.Zero, errors.Errorf("alpaca returned no trade for %s", pair.From)
	}

	return decimal.NewFromFloat(trade.Price), nil
}

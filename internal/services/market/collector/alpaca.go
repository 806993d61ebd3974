package collector

import (
	"context"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/sbl/internal/domain"
)

// AlpacaKlineProvider implements KlineProvider for US stocks through Alpaca market data.
type AlpacaKlineProvider struct {
	client *marketdata.Client
	feed   marketdata.Feed
	now    func() time.Time
}

// NewAlpacaKlineProvider creates a new Alpaca kline provider. Free accounts only have the IEX feed.
func NewAlpacaKlineProvider(client *marketdata.Client, feed marketdata.Feed) *AlpacaKlineProvider {
	if feed == "" {
		feed = marketdata.IEX
	}
	return &AlpacaKlineProvider{client: client, feed: feed, now: time.Now}
}

func alpacaTimeFrame(interval string) (marketdata.TimeFrame, float64, error) {
	n, unit, err := splitInterval(interval)
	if err != nil {
		return marketdata.TimeFrame{}, 0, err
	}

	// calendar time per bar is stretched to cover closed sessions and weekends
	switch unit {
	case 'm':
		return marketdata.NewTimeFrame(n, marketdata.Min), 5, nil
	case 'h':
		return marketdata.NewTimeFrame(n, marketdata.Hour), 5, nil
	case 'd':
		return marketdata.NewTimeFrame(n, marketdata.Day), 1.6, nil
	case 'w':
		return marketdata.NewTimeFrame(n, marketdata.Week), 1.1, nil
	default:
		return marketdata.TimeFrame{}, 0, errors.Errorf("unsupported interval unit: %c", unit)
	}
}

// GetKlines fetches split-adjusted bars for a stock ticker (pair.From).
func (p *AlpacaKlineProvider) GetKlines(ctx context.Context, pair domain.Pair, interval string, limit int) ([]domain.MarketCandle, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be > 0")
	}

	tf, stretch, err := alpacaTimeFrame(interval)
	if err != nil {
		return nil, err
	}
	dur, err := parseIntervalToDuration(interval)
	if err != nil {
		return nil, err
	}

	end := p.now()
	window := time.Duration(float64(dur)*float64(limit)*stretch) + 7*24*time.Hour

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	bars, err := p.client.GetBars(pair.From, marketdata.GetBarsRequest{
		TimeFrame:  tf,
		Adjustment: marketdata.Split,
		Start:      end.Add(-window),
		End:        end,
		Feed:       p.feed,
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch bars from Alpaca for %s", pair.From)
	}

	if len(bars) == 0 {
		return nil, errors.Wrapf(ErrNoData, "alpaca: %s", pair.From)
	}

	if len(bars) > limit {
		bars = bars[len(bars)-limit:]
	}

	out := make([]domain.MarketCandle, len(bars))
	for i, b := range bars {
		out[i] = domain.MarketCandle{
			OpenTime:  b.Timestamp,
			Open:      decimal.NewFromFloat(b.Open),
			High:      decimal.NewFromFloat(b.High),
			Low:       decimal.NewFromFloat(b.Low),
			Close:     decimal.NewFromFloat(b.Close),
			Volume:    decimal.NewFromFloat(float64(b.Volume)),
			CloseTime: b.Timestamp.Add(dur),
		}
	}

	return out, nil
}

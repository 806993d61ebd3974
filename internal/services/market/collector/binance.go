package collector

import (
	"context"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/adshao/go-binance/v2/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/vadiminshakov/sbl/internal/domain"
)

// binance error code for an unlisted symbol
const binanceInvalidSymbol = -1121

// BinanceKlineProvider implements KlineProvider for Binance exchange.
type BinanceKlineProvider struct {
	client *binance.Client
}

// NewBinanceKlineProvider creates a new Binance kline provider.
func NewBinanceKlineProvider(client *binance.Client) *BinanceKlineProvider {
	return &BinanceKlineProvider{client: client}
}

// GetKlines fetches kline data from Binance.
func (p *BinanceKlineProvider) GetKlines(ctx context.Context, pair domain.Pair, interval string, limit int) ([]domain.MarketCandle, error) {
	symbol := pair.Symbol()

	klines, err := p.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		var apiErr *common.APIError
		if errors.As(err, &apiErr) && apiErr.Code == binanceInvalidSymbol {
			return nil, errors.Wrapf(ErrUnknownSymbol, "binance: %s", pair.String())
		}
		return nil, errors.Wrapf(err, "failed to fetch klines from Binance for %s", pair.String())
	}

	result := make([]domain.MarketCandle, len(klines))
	for i, k := range klines {
		candle, err := parseCandle(k.Open, k.High, k.Low, k.Close, k.Volume)
		if err != nil {
			return nil, errors.Wrapf(err, "binance kline at index %d", i)
		}
		candle.OpenTime = time.UnixMilli(k.OpenTime)
		candle.CloseTime = time.UnixMilli(k.CloseTime)

		result[i] = candle
	}

	return result, nil
}

// parseCandle parses the string OHLCV fields exchanges return.
func parseCandle(open, high, low, close, volume string) (domain.MarketCandle, error) {
	o, err := decimal.NewFromString(open)
	if err != nil {
		return domain.MarketCandle{}, errors.Wrap(err, "failed to parse open price")
	}
	h, err := decimal.NewFromString(high)
	if err != nil {
		return domain.MarketCandle{}, errors.Wrap(err, "failed to parse high price")
	}
	l, err := decimal.NewFromString(low)
	if err != nil {
		return domain.MarketCandle{}, errors.Wrap(err, "failed to parse low price")
	}
	c, err := decimal.NewFromString(close)
	if err != nil {
		return domain.MarketCandle{}, errors.Wrap(err, "failed to parse close price")
	}
	v, err := decimal.NewFromString(volume)
	if err != nil {
		return domain.MarketCandle{}, errors.Wrap(err, "failed to parse volume")
	}

	return domain.MarketCandle{Open: o, High: h, Low: l, Close: c, Volume: v}, nil
}

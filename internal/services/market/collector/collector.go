// Package collector fetches candle history from exchanges, brokers and local files.
package collector

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/vadiminshakov/sbl/internal/domain"
	"github.com/vadiminshakov/sbl/pkg/retrier"
)

const fetchTimeout = 30 * time.Second

var (
	// ErrUnknownSymbol the source does not list the instrument. Never retried.
	ErrUnknownSymbol = errors.New("unknown symbol")
	// ErrNoData the source answered with an empty history.
	ErrNoData = errors.New("no candle data")
)

// KlineProvider defines the interface for fetching kline (candlestick) data
type KlineProvider interface {
	// GetKlines fetches historical kline data for a pair, oldest first.
	// limit specifies the maximum number of klines to fetch
	// interval specifies the kline interval (e.g., "1h", "4h", "1d")
	GetKlines(ctx context.Context, pair domain.Pair, interval string, limit int) ([]domain.MarketCandle, error)
}

// MarketDataCollector wraps a provider with a per-request timeout and retries.
type MarketDataCollector struct {
	provider KlineProvider
	retrier  *retrier.Retrier
	logger   *zap.Logger
	interval string
	limit    int
}

// NewMarketDataCollector creates a new market data collector
func NewMarketDataCollector(provider KlineProvider, r *retrier.Retrier, logger *zap.Logger, interval string, limit int) *MarketDataCollector {
	return &MarketDataCollector{
		provider: provider,
		retrier:  r,
		logger:   logger,
		interval: interval,
		limit:    limit,
	}
}

// Retryable reports whether err may go away on another attempt.
func Retryable(err error) bool {
	return !errors.Is(err, ErrUnknownSymbol) &&
		!errors.Is(err, context.Canceled) &&
		!errors.Is(err, context.DeadlineExceeded)
}

// FetchCandles fetches the configured history for pair.
func (c *MarketDataCollector) FetchCandles(ctx context.Context, pair domain.Pair) ([]domain.MarketCandle, error) {
	attempt := 0
	candles, err := retrier.DoWithData(c.retrier, ctx, func(ctx context.Context) ([]domain.MarketCandle, error) {
		attempt++
		if attempt > 1 {
			c.logger.Debug("retrying kline fetch", zap.String("symbol", pair.String()), zap.Int("attempt", attempt))
		}

		ctxWithTimeout, cancel := context.WithTimeout(ctx, fetchTimeout)
		defer cancel()

		return c.provider.GetKlines(ctxWithTimeout, pair, c.interval, c.limit)
	})
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch klines for %s (%s)", pair.String(), c.interval)
	}

	if len(candles) == 0 {
		return nil, errors.Wrapf(ErrNoData, "%s (%s)", pair.String(), c.interval)
	}

	return candles, nil
}

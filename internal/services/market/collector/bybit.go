package collector

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"time"

	bybit "github.com/hirokisan/bybit/v2"
	"github.com/pkg/errors"

	"github.com/vadiminshakov/sbl/internal/domain"
)

// BybitKlineProvider implements KlineProvider for Bybit exchange.
type BybitKlineProvider struct {
	client *bybit.Client
}

// NewBybitKlineProvider creates a new Bybit kline provider.
func NewBybitKlineProvider(client *bybit.Client) *BybitKlineProvider {
	return &BybitKlineProvider{client: client}
}

// GetKlines fetches kline data.
func (p *BybitKlineProvider) GetKlines(ctx context.Context, pair domain.Pair, interval string, limit int) ([]domain.MarketCandle, error) {
	if limit <= 0 {
		return nil, errors.New("limit must be > 0")
	}

	bybitInterval, err := convertIntervalToBybit(interval)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid interval: %s", interval)
	}

	symbol := bybit.SymbolV5(pair.Symbol())
	category := bybit.CategoryV5Spot

	const maxPerRequest = 200

	var allKlines []bybit.V5GetKlineItem
	var end *int64
	remainingLimit := limit

	// bybit returns the newest klines first; page backwards through End
	for remainingLimit > 0 {
		batchSize := min(remainingLimit, maxPerRequest)

		param := bybit.V5GetKlineParam{
			Category: category,
			Symbol:   symbol,
			Interval: bybit.Interval(bybitInterval),
			Limit:    &batchSize,
			End:      end,
		}

		result, err := p.client.V5().Market().GetKline(param)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to fetch klines from Bybit for %s", pair.String())
		}

		if result == nil {
			return nil, errors.Errorf("empty result from Bybit API for %s", pair.String())
		}

		klines := result.Result.List
		if len(klines) == 0 {
			if len(allKlines) == 0 {
				return nil, errors.Wrapf(ErrNoData, "bybit: %s", pair.String())
			}
			break
		}

		allKlines = append(allKlines, klines...)

		// if we got fewer results than requested, we've reached the end
		if len(klines) < batchSize {
			break
		}

		remainingLimit -= len(klines)

		end, err = pageEnd(klines[len(klines)-1].StartTime)
		if err != nil {
			return nil, err
		}

		// avoid rate limiting by small delay between requests
		if remainingLimit > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(100 * time.Millisecond):
			}
		}
	}

	candles := make([]domain.MarketCandle, len(allKlines))
	for i, k := range allKlines {
		openTime, err := parseTimestamp(k.StartTime)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse start time at index %d", i)
		}

		candle, err := parseCandle(k.Open, k.High, k.Low, k.Close, k.Volume)
		if err != nil {
			return nil, errors.Wrapf(err, "bybit kline at index %d", i)
		}
		candle.OpenTime = openTime
		candle.CloseTime = openTime // bybit doesn't provide close time

		candles[i] = candle
	}

	sort.Slice(candles, func(i, j int) bool {
		return candles[i].OpenTime.Before(candles[j].OpenTime)
	})

	return candles, nil
}

// convertIntervalToBybit maps "1m", "4h", "1d", "1w" to Bybit's "1", "240", "D", "W".
func convertIntervalToBybit(interval string) (string, error) {
	n, unit, err := splitInterval(interval)
	if err != nil {
		return "", err
	}

	switch unit {
	case 'm':
		return strconv.Itoa(n), nil
	case 'h':
		return strconv.Itoa(n * 60), nil
	case 'd':
		return "D", nil
	case 'w':
		return "W", nil
	default:
		return "", fmt.Errorf("unsupported interval unit: %c", unit)
	}
}

// splitInterval splits "15m" into 15 and 'm'.
func splitInterval(interval string) (int, byte, error) {
	if len(interval) < 2 {
		return 0, 0, fmt.Errorf("invalid interval format: %q", interval)
	}

	unit := interval[len(interval)-1]
	n, err := strconv.Atoi(interval[:len(interval)-1])
	if err != nil || n <= 0 {
		return 0, 0, fmt.Errorf("invalid interval number: %q", interval)
	}

	return n, unit, nil
}

// parseTimestamp converts a millisecond timestamp string to time.Time.
func parseTimestamp(ts string) (time.Time, error) {
	if ts == "" {
		return time.Time{}, errors.New("empty timestamp")
	}

	msec, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return time.Time{}, errors.Wrapf(err, "failed to parse timestamp: %s", ts)
	}

	return time.UnixMilli(msec), nil
}

// pageEnd returns the End bound of the next, older page: one millisecond before startTime.
func pageEnd(startTime string) (*int64, error) {
	oldest, err := strconv.ParseInt(startTime, 10, 64)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to parse bybit start time %q", startTime)
	}
	next := oldest - 1

	return &next, nil
}

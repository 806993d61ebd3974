package collector

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	hyperliquid "github.com/sonirico/go-hyperliquid"

	"github.com/vadiminshakov/sbl/internal/domain"
)

// HyperliquidKlineProvider implements KlineProvider for Hyperliquid exchange.
type HyperliquidKlineProvider struct {
	info *hyperliquid.Info
	now  func() time.Time
}

// NewHyperliquidKlineProvider creates a new Hyperliquid kline provider.
func NewHyperliquidKlineProvider(info *hyperliquid.Info) *HyperliquidKlineProvider {
	return &HyperliquidKlineProvider{info: info, now: time.Now}
}

func parseIntervalToDuration(interval string) (time.Duration, error) {
	n, unit, err := splitInterval(interval)
	if err != nil {
		return 0, err
	}

	switch unit {
	case 'm':
		return time.Duration(n) * time.Minute, nil
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	default:
		return 0, errors.Errorf("unsupported interval unit: %c", unit)
	}
}

// GetKlines fetches kline data. Hyperliquid has no limit parameter, so the time window
// is sized from the interval and trimmed afterwards.
func (p *HyperliquidKlineProvider) GetKlines(ctx context.Context, pair domain.Pair, interval string, limit int) ([]domain.MarketCandle, error) {
	if p.info == nil {
		return nil, errors.New("hyperliquid info is nil")
	}
	if limit <= 0 {
		return nil, errors.New("limit must be > 0")
	}
	dur, err := parseIntervalToDuration(interval)
	if err != nil {
		return nil, err
	}

	endMs := p.now().UnixMilli()
	// two extra candles of slack for rounding
	startMs := endMs - (int64(limit)+2)*dur.Milliseconds()

	// hyperliquid is keyed by base coin, e.g. "BTC"
	coin := strings.ToUpper(pair.From)

	candles, err := p.info.CandlesSnapshot(ctx, coin, interval, startMs, endMs)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to fetch candles from Hyperliquid for %s", coin)
	}

	if len(candles) == 0 {
		return nil, errors.Wrapf(ErrNoData, "hyperliquid: %s %s", coin, interval)
	}

	if len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}

	out := make([]domain.MarketCandle, 0, len(candles))
	for i, c := range candles {
		candle, err := parseCandle(c.Open, c.High, c.Low, c.Close, c.Volume)
		if err != nil {
			return nil, errors.Wrapf(err, "hyperliquid candle at index %d", i)
		}
		candle.OpenTime = time.UnixMilli(c.TimeOpen)
		candle.CloseTime = time.UnixMilli(c.TimeClose)

		out = append(out, candle)
	}

	return out, nil
}

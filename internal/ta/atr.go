package ta

import (
	"math"

	"github.com/vadiminshakov/sbl/pkg/indicators"
)

const (
	// DefaultATRPeriod trailing window for the true range average.
	DefaultATRPeriod = 14
	// shortRangeBars window used when history is too short for a full ATR.
	shortRangeBars = 10
)

// TrueRange returns max(high-low, |high-prevClose|, |low-prevClose|) for bar i >= 1.
func TrueRange(s Series, i int) float64 {
	hl := s.Highs[i] - s.Lows[i]
	hc := math.Abs(s.Highs[i] - s.Closes[i-1])
	lc := math.Abs(s.Lows[i] - s.Closes[i-1])

	return math.Max(hl, math.Max(hc, lc))
}

// ATR calculates the Average True Range as the plain mean of the last `period` true ranges.
// With fewer than period+1 bars it falls back to the mean high-low range of the
// last min(10, len) bars. An empty series yields 0.
func ATR(s Series, period int) float64 {
	n := s.Len()
	if n == 0 {
		return 0
	}
	if period <= 0 {
		period = DefaultATRPeriod
	}

	if n < period+1 {
		recent := s.Tail(shortRangeBars)
		ranges := make([]float64, recent.Len())
		for i := range ranges {
			ranges[i] = recent.Highs[i] - recent.Lows[i]
		}
		return indicators.Mean(ranges)
	}

	trs := make([]float64, 0, period)
	for i := n - period; i < n; i++ {
		trs = append(trs, TrueRange(s, i))
	}
	return indicators.Mean(trs)
}

// ATRPercent expresses atr as a percentage of price. Non-positive price yields 0.
func ATRPercent(atr, price float64) float64 {
	if price <= 0 {
		return 0
	}
	return atr / price * 100
}

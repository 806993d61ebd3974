package sbl

import (
	"github.com/vadiminshakov/sbl/internal/ta"
	"github.com/vadiminshakov/sbl/pkg/indicators"
)

// MarketStructure classifies the recent price action.
type MarketStructure string

const (
	StructureUptrend   MarketStructure = "uptrend"
	StructureDowntrend MarketStructure = "downtrend"
	StructureRange     MarketStructure = "range"
	StructureBreakout  MarketStructure = "breakout"
)

const (
	rangeBars        = 30
	trendBars        = 20
	trendStep        = 10
	breakoutFraction = 0.98
	swingTolerance   = 0.02
	averageDrift     = 0.02
)

// ClassifyStructure labels the series. Breakout wins over trends; a series that is
// neither breaking out nor trending is a range.
func ClassifyStructure(s ta.Series) MarketStructure {
	if s.Len() < trendBars {
		return StructureRange
	}

	recent := s.Tail(trendBars)
	older := s.Window(2*trendBars, trendBars)

	recentAvg := indicators.Mean(recent.Closes)
	olderAvg := recentAvg
	if older.Len() > 0 {
		olderAvg = indicators.Mean(older.Closes)
	}

	rangeHigh := s.Tail(rangeBars).HighestHigh()
	if s.LastClose() >= rangeHigh*breakoutFraction {
		return StructureBreakout
	}

	higherHighs := stepwise(recent.Highs, func(later, earlier float64) bool { return later >= earlier*(1-swingTolerance) })
	higherLows := stepwise(recent.Lows, func(later, earlier float64) bool { return later >= earlier*(1-swingTolerance) })
	lowerHighs := stepwise(recent.Highs, func(later, earlier float64) bool { return later <= earlier*(1+swingTolerance) })
	lowerLows := stepwise(recent.Lows, func(later, earlier float64) bool { return later <= earlier*(1+swingTolerance) })

	if higherHighs && higherLows && recentAvg > olderAvg*(1+averageDrift) {
		return StructureUptrend
	}
	if lowerHighs && lowerLows && recentAvg < olderAvg*(1-averageDrift) {
		return StructureDowntrend
	}

	return StructureRange
}

// stepwise compares each bar with the one trendStep bars earlier.
func stepwise(values []float64, holds func(later, earlier float64) bool) bool {
	for i := trendStep; i < len(values); i++ {
		if !holds(values[i], values[i-trendStep]) {
			return false
		}
	}
	return true
}

// RangePosition places price inside [low, high] as a percentage clamped to [0, 100].
// A degenerate range yields 50.
func RangePosition(price, high, low float64) float64 {
	width := high - low
	if width == 0 {
		return 50
	}

	pos := (price - low) / width * 100
	if pos < 0 {
		return 0
	}
	if pos > 100 {
		return 100
	}
	return pos
}

package sbscan

import (
	"github.com/vadiminshakov/sbl/internal/ta"
	"github.com/vadiminshakov/sbl/pkg/indicators"
)

// Structure coarse structure label used for ranking.
type Structure string

const (
	StructureImpuls Structure = "Impuls"
	StructureTrend  Structure = "Trend"
	StructureRange  Structure = "Range"
	StructureChop   Structure = "Chop"
)

// MomentumBias direction of the last ten bars relative to the ten before.
type MomentumBias string

const (
	MomentumPositive MomentumBias = "positive"
	MomentumNegative MomentumBias = "negative"
	MomentumNeutral  MomentumBias = "neutral"
)

const (
	structureBars     = 20
	halfWindow        = 10
	swingThreshold    = 0.01
	expansionFactor   = 1.2
	maxRangePercent   = 10
	momentumBars      = 10
	momentumThreshold = 0.02
)

// classifyStructure compares the two 10-bar halves of the last 20 bars. Rising highs and lows
// with expanding volatility is an impulse, any clean direction is a trend, a tight range
// without direction is a range and everything else is chop.
func classifyStructure(s ta.Series) Structure {
	if s.Len() < structureBars {
		return StructureRange
	}

	recent := s.Tail(structureBars)
	older := s.Window(2*structureBars, structureBars)

	first := recent.Window(structureBars, halfWindow)
	last := recent.Tail(halfWindow)

	firstHigh, lastHigh := first.HighestHigh(), last.HighestHigh()
	firstLow, lastLow := first.LowestLow(), last.LowestLow()

	higherHighs := lastHigh > firstHigh*(1+swingThreshold)
	higherLows := lastLow > firstLow*(1+swingThreshold)
	lowerHighs := lastHigh < firstHigh*(1-swingThreshold)
	lowerLows := lastLow < firstLow*(1-swingThreshold)

	recentATR := ta.ATR(recent, halfWindow)
	olderATR := recentATR
	if older.Len() >= halfWindow {
		olderATR = ta.ATR(older, halfWindow)
	}
	expanding := recentATR > olderATR*expansionFactor

	switch {
	case higherHighs && higherLows && expanding:
		return StructureImpuls
	case higherHighs && higherLows, lowerHighs && lowerLows:
		return StructureTrend
	}

	rangePercent := (lastHigh - lastLow) / ((lastHigh + lastLow) / 2) * 100
	if rangePercent < maxRangePercent && !higherHighs && !higherLows && !lowerHighs && !lowerLows {
		return StructureRange
	}

	return StructureChop
}

// momentumBias needs both a ten-bar average drift and a ten-bar close change beyond ±2%.
func momentumBias(s ta.Series) MomentumBias {
	n := s.Len()
	if n < momentumBars {
		return MomentumNeutral
	}

	older := s.Window(2*momentumBars, momentumBars)
	if older.Len() == 0 {
		return MomentumNeutral
	}

	recentAvg := indicators.Mean(s.Tail(momentumBars).Closes)
	olderAvg := indicators.Mean(older.Closes)

	base := s.Closes[n-momentumBars]
	change := (s.LastClose() - base) / base

	switch {
	case recentAvg > olderAvg*(1+momentumThreshold) && change > momentumThreshold:
		return MomentumPositive
	case recentAvg < olderAvg*(1-momentumThreshold) && change < -momentumThreshold:
		return MomentumNegative
	default:
		return MomentumNeutral
	}
}

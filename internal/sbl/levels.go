package sbl

import "github.com/vadiminshakov/sbl/internal/ta"

const clusterToleranceATR = 0.5

// KeyLevels primary and secondary levels around the current price plus the trailing range.
type KeyLevels struct {
	Resistance          float64
	Support             float64
	SecondaryResistance *float64
	SecondarySupport    *float64
	RangeHigh           float64
	RangeLow            float64
}

// FindLevels clusters swing highs above price into resistance and swing lows below price
// into support. A side without clusters falls back to the trailing 30-bar extreme.
func FindLevels(s ta.Series, price, atr float64) KeyLevels {
	tolerance := atr * clusterToleranceATR

	highs := ta.Above(ta.Prices(ta.SwingHighs(s, ta.DefaultPivotLookback)), price)
	lows := ta.Below(ta.Prices(ta.SwingLows(s, ta.DefaultPivotLookback)), price)

	resistances := ta.ClusterLevels(highs, tolerance, ta.LevelResistance)
	supports := ta.ClusterLevels(lows, tolerance, ta.LevelSupport)

	window := s.Tail(rangeBars)
	lv := KeyLevels{
		RangeHigh: window.HighestHigh(),
		RangeLow:  window.LowestLow(),
	}

	lv.Resistance = lv.RangeHigh
	if r, ok := ta.Nearest(resistances, price); ok {
		lv.Resistance = r.Price
	}
	if r, ok := ta.SecondNearest(resistances, price); ok {
		lv.SecondaryResistance = &r.Price
	}

	lv.Support = lv.RangeLow
	if sup, ok := ta.Nearest(supports, price); ok {
		lv.Support = sup.Price
	}
	if sup, ok := ta.SecondNearest(supports, price); ok {
		lv.SecondarySupport = &sup.Price
	}

	return lv
}

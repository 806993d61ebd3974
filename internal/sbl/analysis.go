// Package sbl implements the Scenario-Based Levels engine. Given a candle history it finds
// primary support and resistance, classifies the market structure and builds three mutually
// exclusive scenarios: breakout (A), pullback (B) and chop (C). Everything here is pure.
package sbl

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/vadiminshakov/sbl/internal/domain"
	"github.com/vadiminshakov/sbl/internal/ta"
)

// MinCandles required for an analysis.
const MinCandles = 30

// ErrInsufficientData is returned for histories shorter than MinCandles.
var ErrInsufficientData = errors.New("insufficient data for analysis")

// Analysis full SBL result for one instrument. Produced fresh on every call.
type Analysis struct {
	Symbol              string          `json:"ticker"`
	CurrentPrice        float64         `json:"currentPrice"`
	ATR                 float64         `json:"atr"`
	ATRPercent          float64         `json:"atrPercent"`
	PrimaryResistance   float64         `json:"primaryResistance"`
	PrimarySupport      float64         `json:"primarySupport"`
	SecondaryResistance *float64        `json:"secondaryResistance,omitempty"`
	SecondarySupport    *float64        `json:"secondarySupport,omitempty"`
	RangeHigh           float64         `json:"rangeHigh"`
	RangeLow            float64         `json:"rangeLow"`
	RangePosition       float64         `json:"rangePosition"`
	MarketStructure     MarketStructure `json:"marketStructure"`
	ScenarioA           PlannedScenario `json:"scenarioA"`
	ScenarioB           PlannedScenario `json:"scenarioB"`
	ScenarioC           ChopScenario    `json:"scenarioC"`
	ActiveScenario      ScenarioID      `json:"activeScenario"`
	DataPoints          int             `json:"dataPoints"`
}

type options struct {
	currentPrice *float64
}

// Option configures Analyze.
type Option func(*options)

// WithCurrentPrice overrides the last close as the reference price.
func WithCurrentPrice(p float64) Option {
	return func(o *options) {
		o.currentPrice = &p
	}
}

// Analyze runs the full pipeline over candles (ascending, oldest first).
// It returns ErrInsufficientData under MinCandles and ta.ErrMalformedCandle for invalid bars.
func Analyze(symbol string, candles []domain.MarketCandle, opts ...Option) (*Analysis, error) {
	if len(candles) < MinCandles {
		return nil, errors.Wrapf(ErrInsufficientData, "%s: %d candles, need %d", symbol, len(candles), MinCandles)
	}

	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	s, err := ta.NewSeries(candles)
	if err != nil {
		return nil, errors.Wrap(err, symbol)
	}

	price := s.LastClose()
	if o.currentPrice != nil {
		if *o.currentPrice <= 0 {
			return nil, errors.Errorf("%s: current price must be positive, got %v", symbol, *o.currentPrice)
		}
		price = *o.currentPrice
	}

	atr := ta.ATR(s, ta.DefaultATRPeriod)
	levels := FindLevels(s, price, atr)
	structure := ClassifyStructure(s)
	rp := RangePosition(price, levels.RangeHigh, levels.RangeLow)

	in := Inputs{
		Price:         price,
		Resistance:    levels.Resistance,
		Support:       levels.Support,
		ATR:           atr,
		RangePosition: rp,
		Structure:     structure,
	}

	a := &Analysis{
		Symbol:              symbol,
		CurrentPrice:        price,
		ATR:                 atr,
		ATRPercent:          ta.ATRPercent(atr, price),
		PrimaryResistance:   levels.Resistance,
		PrimarySupport:      levels.Support,
		SecondaryResistance: levels.SecondaryResistance,
		SecondarySupport:    levels.SecondarySupport,
		RangeHigh:           levels.RangeHigh,
		RangeLow:            levels.RangeLow,
		RangePosition:       rp,
		MarketStructure:     structure,
		ScenarioA:           Breakout(in),
		ScenarioB:           Pullback(in),
		ScenarioC:           Chop(in),
		DataPoints:          len(candles),
	}
	a.ActiveScenario = SelectActive(a.ScenarioA, a.ScenarioB, a.ScenarioC)

	return a, nil
}

// SelectActive returns the id of the first scenario, in priority order, that is active
// with at least MinConfidence. ScenarioNone when none qualifies.
func SelectActive(scenarios ...Scenario) ScenarioID {
	for _, sc := range scenarios {
		if qualifies(sc) {
			return sc.Header().ID
		}
	}
	return ScenarioNone
}

// Scenarios returns A, B and C in priority order.
func (a *Analysis) Scenarios() []Scenario {
	return []Scenario{a.ScenarioA, a.ScenarioB, a.ScenarioC}
}

// Active returns the active scenario, if any.
func (a *Analysis) Active() (Scenario, bool) {
	for _, sc := range a.Scenarios() {
		if sc.Header().ID == a.ActiveScenario && a.ActiveScenario != ScenarioNone {
			return sc, true
		}
	}
	return nil, false
}

// Summary one sentence describing the active scenario.
func (a *Analysis) Summary() string {
	switch a.ActiveScenario {
	case ScenarioBreakout:
		return fmt.Sprintf("IMPULSE: price (%s) is approaching resistance at %s. On a confirmed breakout consider entry with a stop at %s.",
			fmtPrice(a.CurrentPrice), fmtPrice(a.PrimaryResistance), fmtPrice(a.ScenarioA.TradingPlan.Stop))
	case ScenarioPullback:
		return fmt.Sprintf("PULLBACK: price (%s) is testing support at %s. On a confirmed reaction (higher low) consider entry targeting %s.",
			fmtPrice(a.CurrentPrice), fmtPrice(a.PrimarySupport), fmtPrice(a.PrimaryResistance))
	case ScenarioChop:
		return fmt.Sprintf("NO TRADE: price (%s) is mid-range between support (%s) and resistance (%s). Wait for the edge.",
			fmtPrice(a.CurrentPrice), fmtPrice(a.PrimarySupport), fmtPrice(a.PrimaryResistance))
	default:
		return "No scenario qualifies, waiting for clearer structure."
	}
}

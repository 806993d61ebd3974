// Package sbscan is the fast scanner. It ranks many instruments with trailing extremes,
// a coarse structure label and momentum instead of the full scenario engine. A low score
// is a prioritisation hint only; nothing here filters instruments out of analysis.
package sbscan

import (
	"github.com/pkg/errors"

	"github.com/vadiminshakov/sbl/internal/domain"
	"github.com/vadiminshakov/sbl/internal/ta"
)

// MinCandles required for a scan result.
const MinCandles = 10

// ErrInsufficientData is returned for histories shorter than MinCandles.
var ErrInsufficientData = errors.New("insufficient data for scan")

const (
	levelBars         = 30
	extendedLevelBars = 60
	levelProximity    = 0.02
	minLevelCandles   = 5
	defaultLevelGap   = 0.05
)

// Result scanner output for one instrument.
type Result struct {
	Symbol          string         `json:"ticker"`
	Name            string         `json:"name"`
	CurrentPrice    float64        `json:"currentPrice"`
	Resistance      float64        `json:"resistance"`
	Support         float64        `json:"support"`
	PctToResistance float64        `json:"percentToResistance"`
	PctToSupport    float64        `json:"percentToSupport"`
	ATRPercent      float64        `json:"atrPercent"`
	Structure       Structure      `json:"structure"`
	Momentum        MomentumBias   `json:"momentumBias"`
	Score           int            `json:"sbScore"`
	Breakdown       ScoreBreakdown `json:"scoreBreakdown"`
	Hint            Hint           `json:"scenarioHint"`
	HintReason      string         `json:"scenarioReason"`
}

type options struct {
	currentPrice *float64
}

// Option configures Scan.
type Option func(*options)

// WithCurrentPrice overrides the last close, e.g. with a live quote.
func WithCurrentPrice(p float64) Option {
	return func(o *options) {
		o.currentPrice = &p
	}
}

// Scan scores one instrument.
func Scan(symbol, name string, candles []domain.MarketCandle, opts ...Option) (*Result, error) {
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

	resistance := findResistance(s, price)
	support := findSupport(s, price)
	atrPercent := ta.ATRPercent(ta.ATR(s, ta.DefaultATRPeriod), price)

	pctToResistance := max(0, (resistance-price)/price*100)
	pctToSupport := max(0, (price-support)/price*100)

	st := classifyStructure(s)
	mb := momentumBias(s)
	breakdown := score(pctToResistance, pctToSupport, atrPercent, st, mb)
	h, reason := hint(pctToResistance, pctToSupport, st)

	return &Result{
		Symbol:          symbol,
		Name:            name,
		CurrentPrice:    price,
		Resistance:      resistance,
		Support:         support,
		PctToResistance: pctToResistance,
		PctToSupport:    pctToSupport,
		ATRPercent:      atrPercent,
		Structure:       st,
		Momentum:        mb,
		Score:           breakdown.Total(),
		Breakdown:       breakdown,
		Hint:            h,
		HintReason:      reason,
	}, nil
}

// findResistance is the 30-bar high, widened to 60 bars when price is already within 2% of it.
func findResistance(s ta.Series, price float64) float64 {
	if s.Len() < minLevelCandles {
		return price * (1 + defaultLevelGap)
	}

	high := s.Tail(levelBars).HighestHigh()
	if price >= high*(1-levelProximity) {
		return s.Tail(extendedLevelBars).HighestHigh()
	}
	return high
}

// findSupport mirrors findResistance on lows.
func findSupport(s ta.Series, price float64) float64 {
	if s.Len() < minLevelCandles {
		return price * (1 - defaultLevelGap)
	}

	low := s.Tail(levelBars).LowestLow()
	if price <= low*(1+levelProximity) {
		return s.Tail(extendedLevelBars).LowestLow()
	}
	return low
}

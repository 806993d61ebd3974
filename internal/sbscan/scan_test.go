package sbscan

import (
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vadiminshakov/sbl/internal/domain"
	"github.com/vadiminshakov/sbl/internal/ta"
)

type bar struct {
	close, spread float64
}

func candlesFrom(bars []bar) []domain.MarketCandle {
	start := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)
	out := make([]domain.MarketCandle, len(bars))
	for i, b := range bars {
		out[i] = domain.MarketCandle{
			OpenTime: start.AddDate(0, 0, i),
			Open:     decimal.NewFromFloat(b.close),
			High:     decimal.NewFromFloat(b.close + b.spread),
			Low:      decimal.NewFromFloat(b.close - b.spread),
			Close:    decimal.NewFromFloat(b.close),
			Volume:   decimal.NewFromInt(500),
		}
	}
	return out
}

func linear(n int, start, step, spread float64) []bar {
	bars := make([]bar, n)
	for i := range bars {
		bars[i] = bar{close: start + step*float64(i), spread: spread}
	}
	return bars
}

func cycle(n int, pattern []float64, spread float64) []bar {
	bars := make([]bar, n)
	for i := range bars {
		bars[i] = bar{close: pattern[i%len(pattern)], spread: spread}
	}
	return bars
}

var (
	widePattern  = []float64{100, 102, 104, 106, 108, 110, 108, 106, 104, 102}
	tightPattern = []float64{100, 101, 102, 103, 104, 105, 104, 103, 102, 101}
)

// impulse is flat and quiet for 20 bars, then climbs with four times the range.
func impulse() []bar {
	bars := linear(20, 100, 0, 0.5)
	for i := 20; i < 40; i++ {
		bars = append(bars, bar{close: 100 + 2*float64(i-19), spread: 2})
	}
	return bars
}

func series(t *testing.T, bars []bar) ta.Series {
	t.Helper()
	s, err := ta.NewSeries(candlesFrom(bars))
	require.NoError(t, err)
	return s
}

func TestClassifyStructure(t *testing.T) {
	tests := []struct {
		name string
		bars []bar
		want Structure
	}{
		{name: "short history", bars: linear(15, 100, 1, 1), want: StructureRange},
		{name: "steady rise", bars: linear(60, 100, 1, 1), want: StructureTrend},
		{name: "steady fall", bars: linear(60, 200, -1, 1), want: StructureTrend},
		{name: "rise with expanding ranges", bars: impulse(), want: StructureImpuls},
		{name: "tight sideways", bars: cycle(60, tightPattern, 0.5), want: StructureRange},
		{name: "wide sideways", bars: cycle(60, widePattern, 0.5), want: StructureChop},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyStructure(series(t, tt.bars)))
		})
	}
}

func TestMomentumBias(t *testing.T) {
	tests := []struct {
		name string
		bars []bar
		want MomentumBias
	}{
		{name: "no prior window", bars: linear(10, 100, 1, 1), want: MomentumNeutral},
		{name: "rising", bars: linear(60, 100, 1, 1), want: MomentumPositive},
		{name: "falling", bars: linear(60, 200, -1, 1), want: MomentumNegative},
		{name: "sideways", bars: cycle(60, widePattern, 0.5), want: MomentumNeutral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, momentumBias(series(t, tt.bars)))
		})
	}
}

func TestScore(t *testing.T) {
	tests := []struct {
		name           string
		pctRes, pctSup float64
		atrPercent     float64
		structure      Structure
		momentum       MomentumBias
		want           ScoreBreakdown
		wantTotal      int
	}{
		{
			name:   "everything lines up",
			pctRes: 0.5, pctSup: 10, atrPercent: 3,
			structure: StructureImpuls, momentum: MomentumPositive,
			want:      ScoreBreakdown{NearLevel: 30, Structure: 25, Volatility: 20, Momentum: 15, NotChop: 10},
			wantTotal: 100,
		},
		{
			name:   "proximity is capped at 30",
			pctRes: 1.5, pctSup: 2, atrPercent: 1.2,
			structure: StructureTrend, momentum: MomentumNeutral,
			want:      ScoreBreakdown{NearLevel: 30, Structure: 20, Volatility: 10, Momentum: 8, NotChop: 10},
			wantTotal: 78,
		},
		{
			name:   "chop with negative momentum",
			pctRes: 4, pctSup: 2, atrPercent: 0.5,
			structure: StructureChop, momentum: MomentumNegative,
			want:      ScoreBreakdown{NearLevel: 25, Structure: 0, Volatility: 5, Momentum: 0, NotChop: 0},
			wantTotal: 30,
		},
		{
			name:   "far from both levels",
			pctRes: 6, pctSup: 6, atrPercent: 6,
			structure: StructureRange, momentum: MomentumNeutral,
			want:      ScoreBreakdown{NearLevel: 0, Structure: 10, Volatility: 15, Momentum: 8, NotChop: 10},
			wantTotal: 43,
		},
		{
			name:   "band edges are inclusive",
			pctRes: 3, pctSup: 3.5, atrPercent: 5,
			structure: StructureTrend, momentum: MomentumPositive,
			want:      ScoreBreakdown{NearLevel: 20, Structure: 20, Volatility: 20, Momentum: 15, NotChop: 10},
			wantTotal: 85,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := score(tt.pctRes, tt.pctSup, tt.atrPercent, tt.structure, tt.momentum)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.wantTotal, got.Total())
		})
	}
}

func TestHint(t *testing.T) {
	tests := []struct {
		name           string
		pctRes, pctSup float64
		structure      Structure
		want           Hint
		wantReason     string
	}{
		{name: "near resistance", pctRes: 2.5, pctSup: 1, structure: StructureTrend, want: HintBreakout, wantReason: "2.5% to resistance"},
		{name: "near support", pctRes: 8, pctSup: 5, structure: StructureRange, want: HintPullback, wantReason: "5.0% to support"},
		{name: "chop", pctRes: 8, pctSup: 8, structure: StructureChop, want: HintNoEdge, wantReason: "Chop structure"},
		{name: "mid range", pctRes: 8, pctSup: 8, structure: StructureRange, want: HintNoEdge, wantReason: "Mid-range"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, reason := hint(tt.pctRes, tt.pctSup, tt.structure)
			assert.Equal(t, tt.want, got)
			assert.Contains(t, reason, tt.wantReason)
		})
	}
}

func TestScan(t *testing.T) {
	t.Run("insufficient data", func(t *testing.T) {
		r, err := Scan("AAPL", "Apple", candlesFrom(linear(MinCandles-1, 100, 1, 1)))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInsufficientData))
		assert.Nil(t, r)
	})

	t.Run("malformed candle", func(t *testing.T) {
		candles := candlesFrom(linear(20, 100, 1, 1))
		candles[3].Volume = decimal.NewFromInt(-5)

		_, err := Scan("AAPL", "Apple", candles)
		assert.True(t, errors.Is(err, ta.ErrMalformedCandle))
	})

	t.Run("minimum history", func(t *testing.T) {
		r, err := Scan("AAPL", "Apple", candlesFrom(linear(MinCandles, 100, 1, 1)))
		require.NoError(t, err)
		assert.Equal(t, StructureRange, r.Structure)
		assert.Equal(t, MomentumNeutral, r.Momentum)
	})

	t.Run("rising instrument at its high", func(t *testing.T) {
		r, err := Scan("BTC_USDT", "Bitcoin", candlesFrom(linear(60, 100, 1, 1)))
		require.NoError(t, err)

		assert.InDelta(t, 159.0, r.CurrentPrice, 1e-9)
		assert.InDelta(t, 160.0, r.Resistance, 1e-9)
		assert.InDelta(t, 129.0, r.Support, 1e-9)
		assert.Equal(t, StructureTrend, r.Structure)
		assert.Equal(t, MomentumPositive, r.Momentum)
		assert.Equal(t, 85, r.Score)
		assert.Equal(t, HintBreakout, r.Hint)
		assert.Equal(t, "Near level: +30 | Trend: +20 | ATR: +10 | Momentum: +15 | Not chop: +10", r.Explain())
	})

	t.Run("falling instrument at its low", func(t *testing.T) {
		r, err := Scan("ETH_USDT", "Ether", candlesFrom(linear(60, 200, -1, 1)))
		require.NoError(t, err)

		assert.InDelta(t, 171.0, r.Resistance, 1e-9)
		assert.InDelta(t, 140.0, r.Support, 1e-9)
		assert.Equal(t, MomentumNegative, r.Momentum)
		assert.Equal(t, 55, r.Score)
		assert.Equal(t, HintPullback, r.Hint)
	})

	t.Run("price above the range clamps distance to zero", func(t *testing.T) {
		r, err := Scan("SOL_USDT", "Solana", candlesFrom(cycle(60, widePattern, 0.5)), WithCurrentPrice(120))
		require.NoError(t, err)

		assert.Equal(t, 0.0, r.PctToResistance)
		assert.Equal(t, HintBreakout, r.Hint)
		assert.GreaterOrEqual(t, r.Score, 0)
		assert.LessOrEqual(t, r.Score, 100)
	})

	t.Run("non-positive price override", func(t *testing.T) {
		_, err := Scan("SOL_USDT", "Solana", candlesFrom(cycle(60, widePattern, 0.5)), WithCurrentPrice(-1))
		assert.Error(t, err)
	})
}

func TestRank(t *testing.T) {
	results := []Result{
		{Symbol: "A", Score: 40},
		{Symbol: "B", Score: 90},
		{Symbol: "C", Score: 40},
		{Symbol: "D", Score: 70},
	}

	Rank(results)

	var order []string
	for _, r := range results {
		order = append(order, r.Symbol)
	}
	assert.Equal(t, []string{"B", "D", "A", "C"}, order)

	b := Batch{Results: results}
	assert.Len(t, b.Top(2), 2)
	assert.Len(t, b.Top(10), 4)
	assert.Len(t, b.Top(-1), 4)
}

// Package ta holds the price primitives shared by the SBL engine and the fast scanner:
// a validated float series, average true range, swing pivots and level clustering.
package ta

import (
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/sbl/internal/domain"
)

// ErrMalformedCandle is returned when the candle source breaks the input contract.
var ErrMalformedCandle = errors.New("malformed candle")

// Series column view of a candle sequence. It is built once per call and never mutated.
type Series struct {
	Times   []time.Time
	Opens   []float64
	Highs   []float64
	Lows    []float64
	Closes  []float64
	Volumes []float64
}

// NewSeries validates candles and converts them to float columns.
// Timestamps are only compared when both neighbours carry one.
func NewSeries(candles []domain.MarketCandle) (Series, error) {
	s := Series{
		Times:   make([]time.Time, len(candles)),
		Opens:   make([]float64, len(candles)),
		Highs:   make([]float64, len(candles)),
		Lows:    make([]float64, len(candles)),
		Closes:  make([]float64, len(candles)),
		Volumes: make([]float64, len(candles)),
	}

	for i, c := range candles {
		if err := validateCandle(c); err != nil {
			return Series{}, errors.Wrapf(err, "candle %d", i)
		}
		if i > 0 {
			prev := candles[i-1].OpenTime
			if !prev.IsZero() && !c.OpenTime.IsZero() && !c.OpenTime.After(prev) {
				return Series{}, errors.Wrapf(ErrMalformedCandle, "candle %d: time %s is not after %s",
					i, c.OpenTime.Format(time.RFC3339), prev.Format(time.RFC3339))
			}
		}

		s.Times[i] = c.OpenTime
		s.Opens[i] = c.Open.InexactFloat64()
		s.Highs[i] = c.High.InexactFloat64()
		s.Lows[i] = c.Low.InexactFloat64()
		s.Closes[i] = c.Close.InexactFloat64()
		s.Volumes[i] = c.Volume.InexactFloat64()
	}

	return s, nil
}

func validateCandle(c domain.MarketCandle) error {
	if !c.High.IsPositive() || !c.Low.IsPositive() || !c.Close.IsPositive() {
		return errors.Wrap(ErrMalformedCandle, "prices must be positive")
	}
	if c.High.LessThan(c.Low) {
		return errors.Wrap(ErrMalformedCandle, fmt.Sprintf("high %s below low %s", c.High, c.Low))
	}
	if c.Volume.IsNegative() {
		return errors.Wrap(ErrMalformedCandle, "negative volume")
	}
	return nil
}

// Len returns the number of bars.
func (s Series) Len() int {
	return len(s.Closes)
}

// LastClose returns the close of the most recent bar.
func (s Series) LastClose() float64 {
	if s.Len() == 0 {
		return 0
	}
	return s.Closes[s.Len()-1]
}

// Tail returns the last n bars (all bars when n exceeds the length).
func (s Series) Tail(n int) Series {
	return s.Window(n, 0)
}

// Window returns bars in [len-fromEnd, len-toEnd), clipped to the series bounds.
// Window(40, 20) is the 20 bars preceding the last 20.
func (s Series) Window(fromEnd, toEnd int) Series {
	n := s.Len()
	start := clamp(n-fromEnd, 0, n)
	end := clamp(n-toEnd, 0, n)
	if start > end {
		start = end
	}

	return Series{
		Times:   sub(s.Times, n, start, end),
		Opens:   sub(s.Opens, n, start, end),
		Highs:   sub(s.Highs, n, start, end),
		Lows:    sub(s.Lows, n, start, end),
		Closes:  sub(s.Closes, n, start, end),
		Volumes: sub(s.Volumes, n, start, end),
	}
}

// sub slices col when it is a full column. Columns left unset stay nil.
func sub[T any](col []T, n, start, end int) []T {
	if len(col) != n {
		return nil
	}
	return col[start:end]
}

// HighestHigh returns the maximum high, 0 for an empty series.
func (s Series) HighestHigh() float64 {
	return Max(s.Highs)
}

// LowestLow returns the minimum low, 0 for an empty series.
func (s Series) LowestLow() float64 {
	return Min(s.Lows)
}

// Max returns the largest value, 0 for an empty slice.
func Max(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := values[0]
	for _, v := range values[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

// Min returns the smallest value, 0 for an empty slice.
func Min(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	m := values[0]
	for _, v := range values[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

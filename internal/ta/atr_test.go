package ta

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func flatSeries(n int, high, low, close float64) Series {
	s := Series{}
	for i := 0; i < n; i++ {
		s.Highs = append(s.Highs, high)
		s.Lows = append(s.Lows, low)
		s.Closes = append(s.Closes, close)
	}
	return s
}

func TestATR(t *testing.T) {
	tests := []struct {
		name   string
		series Series
		period int
		want   float64
	}{
		{
			name:   "empty series",
			series: Series{},
			period: 14,
			want:   0,
		},
		{
			name:   "short history uses mean high-low range",
			series: Series{Highs: []float64{12, 14}, Lows: []float64{10, 10}, Closes: []float64{11, 13}},
			period: 14,
			want:   3,
		},
		{
			name:   "constant bars",
			series: flatSeries(20, 102, 98, 100),
			period: 14,
			want:   4,
		},
		{
			name: "gap uses previous close",
			series: Series{
				Highs:  []float64{11, 21},
				Lows:   []float64{9, 19},
				Closes: []float64{10, 20},
			},
			period: 1,
			want:   11,
		},
		{
			name:   "non-positive period falls back to default",
			series: flatSeries(20, 102, 98, 100),
			period: 0,
			want:   4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, ATR(tt.series, tt.period), 1e-9)
		})
	}
}

func TestATRPercent(t *testing.T) {
	assert.InDelta(t, 2.0, ATRPercent(2, 100), 1e-9)
	assert.Equal(t, 0.0, ATRPercent(2, 0))
}

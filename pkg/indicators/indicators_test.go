package indicators

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSMA(t *testing.T) {
	tests := []struct {
		name     string
		values   []float64
		period   int
		wantLast float64
		wantNil  bool
	}{
		{name: "period longer than input", values: []float64{1, 2}, period: 3, wantNil: true},
		{name: "invalid period", values: []float64{1, 2}, period: 0, wantNil: true},
		{name: "rolling average", values: []float64{1, 2, 3, 4}, period: 2, wantLast: 3.5},
		{name: "single window", values: []float64{2, 4, 6}, period: 3, wantLast: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SMA(tt.values, tt.period)
			if tt.wantNil {
				assert.Nil(t, got)
				return
			}
			if assert.NotEmpty(t, got) {
				assert.InDelta(t, tt.wantLast, got[len(got)-1], 1e-9)
			}
		})
	}
}

func TestMean(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.InDelta(t, 2.5, Mean([]float64{1, 2, 3, 4}), 1e-9)
	assert.InDelta(t, 7.0, Mean([]float64{7}), 1e-9)
}

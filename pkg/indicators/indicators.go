// Package indicators wraps the cinar/indicator library with slice-in, value-out helpers.
package indicators

import (
	"github.com/cinar/indicator/v2/helper"
	"github.com/cinar/indicator/v2/trend"
)

// SMA calculates the Simple Moving Average for the given period.
// The result is shorter than the input by period-1 warmup values.
func SMA(values []float64, period int) []float64 {
	if period <= 0 || len(values) < period {
		return nil
	}

	sma := trend.NewSmaWithPeriod[float64](period)
	inputChan := helper.SliceToChan(values)
	outputChan := sma.Compute(inputChan)

	return helper.ChanToSlice(outputChan)
}

// Mean returns the average of the whole slice computed as a single SMA window.
// Empty input yields 0.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	out := SMA(values, len(values))
	if len(out) == 0 {
		return 0
	}
	return out[len(out)-1]
}

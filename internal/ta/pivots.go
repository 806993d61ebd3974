package ta

// DefaultPivotLookback bars on each side a swing point must dominate.
const DefaultPivotLookback = 5

// Pivot swing point.
type Pivot struct {
	Index int
	Price float64
}

// SwingHighs returns bars whose high is strictly greater than every other high
// within ±lookback bars. Bars without a full window on both sides are skipped.
func SwingHighs(s Series, lookback int) []Pivot {
	return swings(s.Highs, lookback, func(candidate, other float64) bool { return other >= candidate })
}

// SwingLows symmetric to SwingHighs.
func SwingLows(s Series, lookback int) []Pivot {
	return swings(s.Lows, lookback, func(candidate, other float64) bool { return other <= candidate })
}

func swings(values []float64, lookback int, beaten func(candidate, other float64) bool) []Pivot {
	var pivots []Pivot
	for i := lookback; i < len(values)-lookback; i++ {
		isPivot := true
		for j := i - lookback; j <= i+lookback; j++ {
			if j != i && beaten(values[i], values[j]) {
				isPivot = false
				break
			}
		}
		if isPivot {
			pivots = append(pivots, Pivot{Index: i, Price: values[i]})
		}
	}
	return pivots
}

// Prices extracts pivot prices.
func Prices(pivots []Pivot) []float64 {
	out := make([]float64, len(pivots))
	for i, p := range pivots {
		out[i] = p.Price
	}
	return out
}

package ta

import (
	"math"
	"sort"

	"github.com/vadiminshakov/sbl/pkg/indicators"
)

// LevelKind side of the market a level sits on.
type LevelKind string

const (
	LevelSupport    LevelKind = "support"
	LevelResistance LevelKind = "resistance"
)

// Level clustered price level. Weight is the number of pivots merged into it.
type Level struct {
	Price  float64   `json:"price"`
	Kind   LevelKind `json:"kind"`
	Weight int       `json:"weight"`
}

// ClusterLevels groups prices whose distance from the running cluster mean is within tolerance.
// Values are walked in ascending order; the result is ordered by weight, heaviest first,
// with ties kept in ascending price order.
func ClusterLevels(prices []float64, tolerance float64, kind LevelKind) []Level {
	if len(prices) == 0 {
		return nil
	}

	sorted := append([]float64(nil), prices...)
	sort.Float64s(sorted)

	clusters := [][]float64{{sorted[0]}}
	for _, p := range sorted[1:] {
		last := clusters[len(clusters)-1]
		if math.Abs(p-indicators.Mean(last)) <= tolerance {
			clusters[len(clusters)-1] = append(last, p)
		} else {
			clusters = append(clusters, []float64{p})
		}
	}

	levels := make([]Level, len(clusters))
	for i, c := range clusters {
		levels[i] = Level{Price: indicators.Mean(c), Kind: kind, Weight: len(c)}
	}

	sort.SliceStable(levels, func(i, j int) bool {
		return levels[i].Weight > levels[j].Weight
	})

	return levels
}

// Nearest returns the level closest to price. On equal distance the earlier
// (heavier) level wins.
func Nearest(levels []Level, price float64) (Level, bool) {
	if len(levels) == 0 {
		return Level{}, false
	}

	best := levels[0]
	for _, l := range levels[1:] {
		if math.Abs(l.Price-price) < math.Abs(best.Price-price) {
			best = l
		}
	}
	return best, true
}

// SecondNearest returns the level ranked second by distance to price.
func SecondNearest(levels []Level, price float64) (Level, bool) {
	if len(levels) < 2 {
		return Level{}, false
	}

	byDistance := append([]Level(nil), levels...)
	sort.SliceStable(byDistance, func(i, j int) bool {
		return math.Abs(byDistance[i].Price-price) < math.Abs(byDistance[j].Price-price)
	})
	return byDistance[1], true
}

// Above keeps values strictly greater than price.
func Above(values []float64, price float64) []float64 {
	var out []float64
	for _, v := range values {
		if v > price {
			out = append(out, v)
		}
	}
	return out
}

// Below keeps values strictly lower than price.
func Below(values []float64, price float64) []float64 {
	var out []float64
	for _, v := range values {
		if v < price {
			out = append(out, v)
		}
	}
	return out
}

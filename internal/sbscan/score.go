package sbscan

import (
	"fmt"
	"strings"
)

// ScoreBreakdown points awarded per component.
type ScoreBreakdown struct {
	NearLevel  int `json:"nearResistance"`
	Structure  int `json:"structureScore"`
	Volatility int `json:"volatilityScore"`
	Momentum   int `json:"momentumScore"`
	NotChop    int `json:"notChopScore"`
}

// Total sum of all components capped at 100.
func (b ScoreBreakdown) Total() int {
	return min(100, b.NearLevel+b.Structure+b.Volatility+b.Momentum+b.NotChop)
}

const maxNearLevel = 30

func score(pctToResistance, pctToSupport, atrPercent float64, st Structure, mb MomentumBias) ScoreBreakdown {
	var b ScoreBreakdown

	switch {
	case pctToResistance <= 1:
		b.NearLevel = 30
	case pctToResistance <= 2:
		b.NearLevel = 25
	case pctToResistance <= 3:
		b.NearLevel = 20
	case pctToResistance <= 5:
		b.NearLevel = 10
	}
	if pctToSupport <= 3 {
		b.NearLevel += 15
	}
	b.NearLevel = min(maxNearLevel, b.NearLevel)

	switch st {
	case StructureImpuls:
		b.Structure = 25
	case StructureTrend:
		b.Structure = 20
	case StructureRange:
		b.Structure = 10
	}

	switch {
	case atrPercent >= 2 && atrPercent <= 5:
		b.Volatility = 20
	case atrPercent >= 1.5 && atrPercent <= 7:
		b.Volatility = 15
	case atrPercent >= 1:
		b.Volatility = 10
	default:
		b.Volatility = 5
	}

	switch mb {
	case MomentumPositive:
		b.Momentum = 15
	case MomentumNeutral:
		b.Momentum = 8
	}

	if st != StructureChop {
		b.NotChop = 10
	}

	return b
}

// Hint which deep-analysis scenario is worth looking at first.
type Hint string

const (
	HintBreakout Hint = "A-candidate"
	HintPullback Hint = "B-candidate"
	HintNoEdge   Hint = "C/no-edge"
)

const (
	hintResistancePercent = 3
	hintSupportPercent    = 5
)

func hint(pctToResistance, pctToSupport float64, st Structure) (Hint, string) {
	switch {
	case pctToResistance <= hintResistancePercent:
		return HintBreakout, fmt.Sprintf("%.1f%% to resistance, check the breakout scenario in the full analysis", pctToResistance)
	case pctToSupport <= hintSupportPercent:
		return HintPullback, fmt.Sprintf("%.1f%% to support, check the pullback scenario in the full analysis", pctToSupport)
	case st == StructureChop:
		return HintNoEdge, "Chop structure, lower priority but still open for analysis"
	default:
		return HintNoEdge, "Mid-range, lower priority right now, wait for the edge"
	}
}

// Explain renders the non-zero score components, e.g. "Near level: +30 | Trend: +20".
func (r Result) Explain() string {
	var parts []string
	b := r.Breakdown

	if b.NearLevel > 0 {
		parts = append(parts, fmt.Sprintf("Near level: +%d", b.NearLevel))
	}
	if b.Structure > 0 {
		parts = append(parts, fmt.Sprintf("%s: +%d", r.Structure, b.Structure))
	}
	if b.Volatility > 0 {
		parts = append(parts, fmt.Sprintf("ATR: +%d", b.Volatility))
	}
	if b.Momentum > 0 {
		parts = append(parts, fmt.Sprintf("Momentum: +%d", b.Momentum))
	}
	if b.NotChop > 0 {
		parts = append(parts, fmt.Sprintf("Not chop: +%d", b.NotChop))
	}

	return strings.Join(parts, " | ")
}

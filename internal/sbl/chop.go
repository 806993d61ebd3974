package sbl

import "fmt"

const chopZoneATR = 0.5

// Chop builds scenario C. Its confidence is diagnostic and is computed whether or not
// the scenario is active.
func Chop(in Inputs) ChopScenario {
	rp := in.RangePosition
	isRange := in.Structure == StructureRange
	active := rp >= 20 && rp <= 80 && isRange

	confidence := 0
	if rp >= 30 && rp <= 70 {
		confidence += 40
	}
	if isRange {
		confidence += 40
	}
	if rp >= 40 && rp <= 60 {
		confidence += 20
	}
	confidence = capConfidence(confidence)

	return ChopScenario{ScenarioHeader{
		ID:              ScenarioChop,
		Name:            "Chop / Diagonal / No Trade",
		Description:     "Price is in the middle of the range with no edge",
		Active:          active,
		Confidence:      confidence,
		TradeableReason: "No trade: scenario C has no edge and is never traded",
		Zones: []Zone{
			{Kind: ZoneNoTrade, Low: in.Support + in.ATR*chopZoneATR, High: in.Resistance - in.ATR*chopZoneATR, Label: "No Trade Zone"},
			{Kind: ZoneChop, Low: in.Support, High: in.Resistance, Label: "Chop Range"},
		},
		WhyTrade: "No trading in scenario C. Wait for price to reach the edge of the range (scenario A or B).",
		WhyNotTrade: fmt.Sprintf("Mid-range (%.0f%% position). No entry, no stop, no targets. "+
			"Distance to support and resistance is similar, so R/R is poor either way.", rp),
		Invalidation: "Scenario C ends when price moves to the edge of the range and A or B activates.",
	}}
}

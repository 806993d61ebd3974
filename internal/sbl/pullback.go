package sbl

import "fmt"

const (
	pullbackMinRR       = 1.3
	pullbackEntryATR    = 0.3
	pullbackStopATR     = 1.0
	pullbackTarget1ATR  = 0.5
	pullbackTarget2ATR  = 1.0
	pullbackZoneATR     = 0.5
	pullbackMinPosition = 10
	pullbackMaxPosition = 40
	pullbackNearPercent = 3
)

// Pullback builds scenario B. The stop is structural, one ATR under support.
// Pullbacks against a downtrend are never tradeable.
func Pullback(in Inputs) PlannedScenario {
	active := in.RangePosition > pullbackMinPosition && in.RangePosition < pullbackMaxPosition
	distance := (in.Price - in.Support) / in.Price * 100
	downtrend := in.Structure == StructureDowntrend

	confidence := 0
	if active {
		confidence = 40
		if distance < pullbackNearPercent {
			confidence += 25
		}
		if in.Structure == StructureUptrend {
			confidence += 20
		}
		if !downtrend {
			confidence += 15
		}
	}
	confidence = capConfidence(confidence)

	entry := in.Support + in.ATR*pullbackEntryATR
	stop := in.Support - in.ATR*pullbackStopATR
	t1 := in.Resistance - in.ATR*pullbackTarget1ATR
	t2 := in.Resistance + in.ATR*pullbackTarget2ATR
	rr := riskReward(entry, stop, t1)

	var reason string
	switch {
	case !active:
		reason = "Not active: price is not near support"
	case downtrend:
		reason = "Not tradeable: against the trend (downtrend)"
	case rr < pullbackMinRR:
		reason = fmt.Sprintf("Not tradeable: R/R %.2f < %.1f minimum", rr, pullbackMinRR)
	case confidence < MinConfidence:
		reason = "Low confidence: wait for a confirmed reaction"
	default:
		reason = fmt.Sprintf("Tradeable: R/R %.2f", rr)
	}

	var whyNot string
	switch {
	case downtrend:
		whyNot = "Against the main trend. Buying pullbacks in a downtrend is high risk."
	case rr < pullbackMinRR:
		whyNot = fmt.Sprintf("R/R is %.2f, under the %.1f minimum.", rr, pullbackMinRR)
	default:
		whyNot = "Not near support, or no confirmed reaction yet."
	}

	header := ScenarioHeader{
		ID:              ScenarioPullback,
		Name:            "Pullback / Retest",
		Description:     "Price is testing support after a rise, continuation is possible",
		Active:          active,
		Confidence:      confidence,
		TradeableReason: reason,
		Zones: []Zone{
			{Kind: ZoneRetest, Low: in.Support - in.ATR*pullbackZoneATR, High: in.Support + in.ATR*pullbackZoneATR, Label: "Pullback Zone"},
			{Kind: ZoneTarget, Low: t1, High: t2, Label: "Target Zone"},
		},
		WhyTrade: fmt.Sprintf("At support %s with a confirmed reaction (higher low) we can buy with a structural stop. Requires R/R >= %.1f and no downtrend.",
			fmtPrice(in.Support), pullbackMinRR),
		WhyNotTrade: whyNot,
		Invalidation: fmt.Sprintf("The pullback idea is wrong if price breaks under %s. Support did not hold and the trend may have turned.",
			fmtPrice(stop)),
	}

	plan := TradingPlan{
		Trigger:       fmt.Sprintf("Price shows a reaction or higher low at %s support", fmtPrice(in.Support)),
		EntryType:     "Higher Low / Reclaim",
		Entry:         entry,
		Stop:          stop,
		StopReason:    fmt.Sprintf("Structural support stop: 1xATR under %s", fmtPrice(in.Support)),
		Target1:       t1,
		Target2:       t2,
		RiskReward:    rr,
		TrailGuidance: "Hold to T1, consider taking half, trail the rest",
	}

	return newPlannedScenario(header, plan, pullbackMinRR, !downtrend)
}

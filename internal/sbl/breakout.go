package sbl

import "fmt"

const (
	breakoutMinRR          = 1.5
	breakoutStopATR        = 1.0
	breakoutTarget1ATR     = 2.0
	breakoutTarget2ATR     = 4.0
	breakoutZoneATR        = 0.5
	breakoutActivePosition = 80
	breakoutNearPercent    = 2
)

// Inputs everything a scenario generator needs. All three generators receive the same value.
type Inputs struct {
	Price         float64
	Resistance    float64
	Support       float64
	ATR           float64
	RangePosition float64
	Structure     MarketStructure
}

// Breakout builds scenario A. The stop always sits one ATR under resistance,
// never under the range low.
func Breakout(in Inputs) PlannedScenario {
	active := in.RangePosition > breakoutActivePosition || in.Structure == StructureBreakout
	distance := (in.Resistance - in.Price) / in.Price * 100

	confidence := 0
	if active {
		confidence = 50
		if in.Structure == StructureBreakout {
			confidence += 30
		}
		if distance < breakoutNearPercent {
			confidence += 20
		}
		if in.Structure == StructureUptrend {
			confidence += 10
		}
	}
	confidence = capConfidence(confidence)

	entry := in.Resistance
	if in.Price > in.Resistance {
		entry = in.Price
	}
	stop := in.Resistance - in.ATR*breakoutStopATR
	t1 := in.Resistance + in.ATR*breakoutTarget1ATR
	t2 := in.Resistance + in.ATR*breakoutTarget2ATR
	rr := riskReward(entry, stop, t1)

	var reason string
	switch {
	case !active:
		reason = "Not active: price is not near resistance"
	case rr < breakoutMinRR:
		reason = fmt.Sprintf("Not tradeable: R/R %.2f < %.1f minimum", rr, breakoutMinRR)
	case confidence < MinConfidence:
		reason = "Low confidence: wait for a better setup"
	default:
		reason = fmt.Sprintf("Tradeable: R/R %.2f", rr)
	}

	whyNot := "Not in breakout position yet, or confidence is low."
	if rr < breakoutMinRR {
		whyNot = fmt.Sprintf("R/R is %.2f, under the %.1f minimum. With a tight stop this is not tradeable.", rr, breakoutMinRR)
	}

	header := ScenarioHeader{
		ID:              ScenarioBreakout,
		Name:            "Impulse / Breakout",
		Description:     "Price breaks out of the range or consolidation and continues with the trend",
		Active:          active,
		Confidence:      confidence,
		TradeableReason: reason,
		Zones: []Zone{
			{Kind: ZoneBreakout, Low: in.Resistance, High: in.Resistance + in.ATR*breakoutZoneATR, Label: "Breakout Zone"},
			{Kind: ZoneTarget, Low: t1, High: t2, Label: "Target Zone"},
		},
		WhyTrade: fmt.Sprintf("After a breakout above %s momentum often continues. A tight stop just under the breakout level gives good R/R on a fast move. Requires R/R >= %.1f.",
			fmtPrice(in.Resistance), breakoutMinRR),
		WhyNotTrade: whyNot,
		Invalidation: fmt.Sprintf("The breakout idea is wrong if price falls back under %s (tight stop). The breakout did not hold.",
			fmtPrice(stop)),
	}

	plan := TradingPlan{
		Trigger:       fmt.Sprintf("Price holds above %s (resistance) after the break", fmtPrice(in.Resistance)),
		EntryType:     "Break & Hold",
		Entry:         entry,
		Stop:          stop,
		StopReason:    fmt.Sprintf("Tight breakout stop: 1xATR (%s) under the breakout level, not the range low", fmtPrice(in.ATR)),
		Target1:       t1,
		Target2:       t2,
		RiskReward:    rr,
		TrailGuidance: "Move stop to break-even at T1, then trail by 1.5xATR",
	}

	return newPlannedScenario(header, plan, breakoutMinRR, true)
}

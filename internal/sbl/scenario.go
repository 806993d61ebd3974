package sbl

import (
	"encoding/json"
	"fmt"
)

// ScenarioID identifies one of the three scenarios. The zero value means no scenario.
type ScenarioID string

const (
	ScenarioNone     ScenarioID = ""
	ScenarioBreakout ScenarioID = "A"
	ScenarioPullback ScenarioID = "B"
	ScenarioChop     ScenarioID = "C"
)

// MarshalJSON encodes ScenarioNone as null.
func (id ScenarioID) MarshalJSON() ([]byte, error) {
	if id == ScenarioNone {
		return []byte("null"), nil
	}
	return json.Marshal(string(id))
}

// UnmarshalJSON accepts null as ScenarioNone.
func (id *ScenarioID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*id = ScenarioNone
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*id = ScenarioID(s)
	return nil
}

const (
	// MinConfidence floor for a scenario to be selected as active or tradeable.
	MinConfidence = 50
	maxConfidence = 100
)

// ZoneKind chart band type.
type ZoneKind string

const (
	ZoneBreakout ZoneKind = "breakout"
	ZoneRetest   ZoneKind = "retest"
	ZoneTarget   ZoneKind = "target"
	ZoneNoTrade  ZoneKind = "noTrade"
	ZoneChop     ZoneKind = "chop"
)

// Zone price band a scenario highlights.
type Zone struct {
	Kind  ZoneKind `json:"type"`
	Low   float64  `json:"y1"`
	High  float64  `json:"y2"`
	Label string   `json:"label"`
}

// TradingPlan entry, stop and targets of a tradeable idea.
type TradingPlan struct {
	Trigger       string  `json:"trigger"`
	EntryType     string  `json:"entryType"`
	Entry         float64 `json:"entryPrice"`
	Stop          float64 `json:"stopLoss"`
	StopReason    string  `json:"stopReason"`
	Target1       float64 `json:"target1"`
	Target2       float64 `json:"target2,omitempty"`
	RiskReward    float64 `json:"riskReward"`
	TrailGuidance string  `json:"trailStrategy,omitempty"`
}

// riskReward returns (T1-entry)/(entry-stop), or 0 when the risk is not positive.
func riskReward(entry, stop, target float64) float64 {
	risk := entry - stop
	if risk <= 0 {
		return 0
	}
	return (target - entry) / risk
}

// ScenarioHeader fields every scenario carries.
type ScenarioHeader struct {
	ID              ScenarioID `json:"id"`
	Name            string     `json:"name"`
	Description     string     `json:"description"`
	Active          bool       `json:"isActive"`
	Confidence      int        `json:"confidence"`
	TradeableReason string     `json:"tradeableReason"`
	Zones           []Zone     `json:"zones"`
	WhyTrade        string     `json:"whyTrade"`
	WhyNotTrade     string     `json:"whyNotTrade"`
	Invalidation    string     `json:"invalidationExplanation"`
}

// Scenario is implemented by PlannedScenario (A, B) and ChopScenario (C).
type Scenario interface {
	Header() ScenarioHeader
	Tradeable() bool
	Plan() (TradingPlan, bool)
}

// qualifies reports whether sc may be selected as the active scenario.
func qualifies(sc Scenario) bool {
	h := sc.Header()
	return h.Active && h.Confidence >= MinConfidence
}

// PlannedScenario scenario with a trading plan. Tradeability is fixed at construction.
type PlannedScenario struct {
	ScenarioHeader
	TradingPlan TradingPlan
	tradeable   bool
}

// newPlannedScenario computes tradeability from activity, confidence, the R/R floor and
// any scenario-specific gate.
func newPlannedScenario(h ScenarioHeader, plan TradingPlan, minRR float64, gate bool) PlannedScenario {
	return PlannedScenario{
		ScenarioHeader: h,
		TradingPlan:    plan,
		tradeable:      h.Active && h.Confidence >= MinConfidence && plan.RiskReward >= minRR && gate,
	}
}

func (s PlannedScenario) Header() ScenarioHeader { return s.ScenarioHeader }

func (s PlannedScenario) Tradeable() bool { return s.tradeable }

func (s PlannedScenario) Plan() (TradingPlan, bool) { return s.TradingPlan, true }

func (s PlannedScenario) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ScenarioHeader
		Tradeable   bool        `json:"tradeable"`
		TradingPlan TradingPlan `json:"tradingPlan"`
	}{s.ScenarioHeader, s.tradeable, s.TradingPlan})
}

func (s *PlannedScenario) UnmarshalJSON(data []byte) error {
	var raw struct {
		ScenarioHeader
		Tradeable   bool        `json:"tradeable"`
		TradingPlan TradingPlan `json:"tradingPlan"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = PlannedScenario{ScenarioHeader: raw.ScenarioHeader, TradingPlan: raw.TradingPlan, tradeable: raw.Tradeable}
	return nil
}

// ChopScenario scenario C. It has no plan and is never tradeable.
type ChopScenario struct {
	ScenarioHeader
}

func (s ChopScenario) Header() ScenarioHeader { return s.ScenarioHeader }

func (ChopScenario) Tradeable() bool { return false }

func (ChopScenario) Plan() (TradingPlan, bool) { return TradingPlan{}, false }

func (s ChopScenario) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ScenarioHeader
		Tradeable bool `json:"tradeable"`
	}{s.ScenarioHeader, false})
}

func capConfidence(c int) int {
	if c > maxConfidence {
		return maxConfidence
	}
	return c
}

func fmtPrice(v float64) string {
	return fmt.Sprintf("%.2f", v)
}

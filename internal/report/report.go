// Package report renders scans and analyses for the terminal.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/vadiminshakov/sbl/internal/sbl"
	"github.com/vadiminshakov/sbl/internal/sbscan"
)

var (
	positive = lipgloss.AdaptiveColor{Light: "#2E8B57", Dark: "#73F59F"}
	negative = lipgloss.AdaptiveColor{Light: "#C0392B", Dark: "#FF6B6B"}
	muted    = lipgloss.AdaptiveColor{Light: "#7A7A7A", Dark: "#9C9C9C"}

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	headStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	mutedStyle = lipgloss.NewStyle().Foreground(muted)
	boxStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

func hintStyle(h sbscan.Hint) lipgloss.Style {
	switch h {
	case sbscan.HintBreakout:
		return lipgloss.NewStyle().Foreground(positive).Bold(true)
	case sbscan.HintPullback:
		return lipgloss.NewStyle().Foreground(positive)
	default:
		return mutedStyle
	}
}

// Scan writes the top results of a batch as an aligned table.
func Scan(w io.Writer, batch sbscan.Batch, limit int) error {
	results := batch.Top(limit)

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("SB-SCAN %s", batch.FinishedAt.Format("2006-01-02 15:04"))))
	b.WriteString("\n\n")

	header := fmt.Sprintf("%-4s %-12s %6s %10s %8s %8s %6s %-8s %-12s", "#", "TICKER", "SCORE", "PRICE", "TO RES", "TO SUP", "ATR%", "STRUCT", "HINT")
	b.WriteString(headStyle.Render(header))
	b.WriteString("\n")

	for i, r := range results {
		line := fmt.Sprintf("%-4d %-12s %6d %10.2f %7.1f%% %7.1f%% %6.2f %-8s ",
			i+1, r.Symbol, r.Score, r.CurrentPrice, r.PctToResistance, r.PctToSupport, r.ATRPercent, r.Structure)
		b.WriteString(line)
		b.WriteString(hintStyle(r.Hint).Render(string(r.Hint)))
		b.WriteString("\n")
	}

	if len(batch.Omitted) > 0 {
		b.WriteString("\n")
		b.WriteString(mutedStyle.Render(fmt.Sprintf("%d omitted:", len(batch.Omitted))))
		b.WriteString("\n")
		for _, o := range batch.Omitted {
			b.WriteString(mutedStyle.Render(fmt.Sprintf("  %s: %s", o.Symbol, o.Reason)))
			b.WriteString("\n")
		}
	}

	_, err := io.WriteString(w, b.String())
	return err
}

// Analysis writes the levels, the three scenarios and the summary.
func Analysis(w io.Writer, a *sbl.Analysis) error {
	var b strings.Builder

	b.WriteString(titleStyle.Render(fmt.Sprintf("%s  %.2f  (%s, ATR %.2f / %.2f%%)",
		a.Symbol, a.CurrentPrice, a.MarketStructure, a.ATR, a.ATRPercent)))
	b.WriteString("\n\n")

	levels := fmt.Sprintf("Resistance  %.2f\nSupport     %.2f\nRange       %.2f - %.2f (position %.0f%%)",
		a.PrimaryResistance, a.PrimarySupport, a.RangeLow, a.RangeHigh, a.RangePosition)
	if a.SecondaryResistance != nil {
		levels += fmt.Sprintf("\nResistance2 %.2f", *a.SecondaryResistance)
	}
	if a.SecondarySupport != nil {
		levels += fmt.Sprintf("\nSupport2    %.2f", *a.SecondarySupport)
	}
	b.WriteString(boxStyle.Render(levels))
	b.WriteString("\n")

	for _, sc := range a.Scenarios() {
		b.WriteString(renderScenario(sc, sc.Header().ID == a.ActiveScenario))
		b.WriteString("\n")
	}

	b.WriteString(a.Summary())
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func renderScenario(sc sbl.Scenario, active bool) string {
	h := sc.Header()

	marker := " "
	style := mutedStyle
	if active {
		marker = "*"
		style = lipgloss.NewStyle()
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %s: %s  confidence %d\n", marker, h.ID, h.Name, h.Confidence)
	fmt.Fprintf(&b, "  %s\n", h.TradeableReason)

	if plan, ok := sc.Plan(); ok {
		color := negative
		if sc.Tradeable() {
			color = positive
		}
		fmt.Fprintf(&b, "  %s\n", lipgloss.NewStyle().Foreground(color).Render(fmt.Sprintf(
			"entry %.2f  stop %.2f  target %.2f  R/R %.2f", plan.Entry, plan.Stop, plan.Target1, plan.RiskReward)))
	}

	return style.Render(strings.TrimRight(b.String(), "\n"))
}

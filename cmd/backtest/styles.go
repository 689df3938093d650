package main

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/rxtech-lab/argo-backtest/internal/analyzer"
	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// Style definitions.
var (
	// TitleStyle for headers.
	TitleStyle = lipgloss.NewStyle().Bold(true)

	// LabelStyle for row labels.
	LabelStyle = lipgloss.NewStyle().Faint(true).Width(18)

	// BoxStyle frames the summary.
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("240")).
			Padding(0, 1)

	// GainStyle and LossStyle color signed amounts.
	GainStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	LossStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("196"))
)

// FormatSigned formats an amount with a color matching its sign.
func FormatSigned(value float64) string {
	text := fmt.Sprintf("%+.2f", value)

	switch {
	case value > 0:
		return GainStyle.Render(text)
	case value < 0:
		return LossStyle.Render(text)
	default:
		return text
	}
}

// FormatMetric prints n/a for undefined metrics.
func FormatMetric(value float64, format string) string {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return "n/a"
	}

	return fmt.Sprintf(format, value)
}

func row(label string, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, LabelStyle.Render(label), value)
}

func renderSummary(stats types.RunStats) string {
	rows := []string{
		TitleStyle.Render(fmt.Sprintf("%s on %s", stats.Strategy, stats.Symbol)),
		row("Run", stats.ID),
		row("Bars", fmt.Sprint(stats.Bars)),
		row("Initial value", fmt.Sprintf("%.2f", stats.InitialValue)),
		row("Final value", fmt.Sprintf("%.2f", stats.FinalValue)),
		row("Profit", FormatSigned(stats.FinalValue-stats.InitialValue)),
		row("Trades", fmt.Sprint(stats.NumberOfTrades)),
		row("Commission", fmt.Sprintf("%.2f", stats.TotalCommission)),
	}

	if sharpe, ok := stats.Analysis(analyzer.NameSharpeRatio); ok {
		rows = append(rows, row("Sharpe ratio", FormatMetric(sharpe.Get("sharpe_ratio"), "%.3f")))
	}

	if drawdown, ok := stats.Analysis(analyzer.NameDrawDown); ok {
		rows = append(rows, row("Max drawdown", FormatMetric(drawdown.Get("max_drawdown")*100, "%.2f%%")))
	}

	if trades, ok := stats.Analysis(analyzer.NameTrades); ok {
		rows = append(rows, row("Won / lost", fmt.Sprintf("%s / %s",
			FormatMetric(trades.Get("won"), "%.0f"),
			FormatMetric(trades.Get("lost"), "%.0f"),
		)))
	}

	if stats.TradesFilePath != "" {
		rows = append(rows, row("Results", strings.TrimSuffix(stats.TradesFilePath, "trades.parquet")))
	}

	return BoxStyle.Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func renderStrategy(def strategy.Definition) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, TitleStyle.Width(18).Render(def.Name), def.Description)
}

package analyzer

import (
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

//go:generate mockgen -destination=../../mocks/mock_analyzer.go -package=mocks github.com/rxtech-lab/argo-backtest/internal/analyzer Analyzer

// Analyzer observes a run through value copies of the engine state and
// produces named metrics when the run finishes.
type Analyzer interface {
	// Name identifies the analyzer in the run result.
	Name() string
	// OnBarClosed is called once per bar after the strategy and notifications ran.
	OnBarClosed(snapshot types.Snapshot)
	// OnTradeClosed is called when a trade returns to flat.
	OnTradeClosed(trade types.Trade)
	// OnFinish computes the final metrics. Undefined metrics are NaN.
	OnFinish() types.AnalysisResult
}

const (
	NameSharpeRatio  = "sharpe"
	NameDrawDown     = "drawdown"
	NameTrades       = "trades"
	NameAnnualReturn = "annual_return"
)

// Defaults returns the analyzers attached by the CLI when none are configured.
func Defaults(factor float64) []Analyzer {
	return []Analyzer{
		NewSharpeRatio(0, factor),
		NewDrawDown(),
		NewTradeAnalyzer(),
		NewAnnualReturn(),
	}
}

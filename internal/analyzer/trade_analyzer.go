package analyzer

import (
	"math"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// TradeAnalyzer aggregates closed trades. A trade with net pnl >= 0 counts as won.
type TradeAnalyzer struct {
	closed     int
	won        int
	lost       int
	grossTotal float64
	netTotal   float64
	wonTotal   float64
	lostTotal  float64
	barsTotal  int

	winStreak         int
	loseStreak        int
	longestWinStreak  int
	longestLoseStreak int

	openAtEnd bool
}

func NewTradeAnalyzer() *TradeAnalyzer {
	return &TradeAnalyzer{}
}

func (t *TradeAnalyzer) Name() string {
	return NameTrades
}

func (t *TradeAnalyzer) OnBarClosed(snapshot types.Snapshot) {
	t.openAtEnd = !snapshot.Position.IsFlat()
}

func (t *TradeAnalyzer) OnTradeClosed(trade types.Trade) {
	t.closed++
	t.grossTotal += trade.PnL
	t.netTotal += trade.PnLNet
	t.barsTotal += trade.BarLength

	if trade.PnLNet >= 0 {
		t.won++
		t.wonTotal += trade.PnLNet
		t.winStreak++
		t.loseStreak = 0
		t.longestWinStreak = max(t.longestWinStreak, t.winStreak)
	} else {
		t.lost++
		t.lostTotal += trade.PnLNet
		t.loseStreak++
		t.winStreak = 0
		t.longestLoseStreak = max(t.longestLoseStreak, t.loseStreak)
	}
}

func (t *TradeAnalyzer) OnFinish() types.AnalysisResult {
	open := 0
	if t.openAtEnd {
		open = 1
	}

	return types.AnalysisResult{
		Analyzer: t.Name(),
		Metrics: map[string]float64{
			"total":               float64(t.closed + open),
			"open":                float64(open),
			"closed":              float64(t.closed),
			"won":                 float64(t.won),
			"lost":                float64(t.lost),
			"pnl_gross_total":     t.grossTotal,
			"pnl_gross_average":   average(t.grossTotal, t.closed),
			"pnl_net_total":       t.netTotal,
			"pnl_net_average":     average(t.netTotal, t.closed),
			"won_pnl_total":       t.wonTotal,
			"won_pnl_average":     average(t.wonTotal, t.won),
			"lost_pnl_total":      t.lostTotal,
			"lost_pnl_average":    average(t.lostTotal, t.lost),
			"win_rate":            average(float64(t.won), t.closed),
			"bar_length_average":  average(float64(t.barsTotal), t.closed),
			"longest_win_streak":  float64(t.longestWinStreak),
			"longest_lose_streak": float64(t.longestLoseStreak),
		},
	}
}

func average(total float64, count int) float64 {
	if count == 0 {
		return math.NaN()
	}

	return total / float64(count)
}

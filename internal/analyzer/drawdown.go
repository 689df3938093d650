package analyzer

import (
	"math"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// DrawDown tracks the decline of the account value from its running peak.
type DrawDown struct {
	peak      float64
	hasPeak   bool
	length    int
	drawdown  float64
	moneydown float64

	maxDrawdown  float64
	maxMoneydown float64
	maxLength    int
}

func NewDrawDown() *DrawDown {
	return &DrawDown{}
}

func (d *DrawDown) Name() string {
	return NameDrawDown
}

func (d *DrawDown) OnBarClosed(snapshot types.Snapshot) {
	value := snapshot.Value

	if !d.hasPeak || value >= d.peak {
		d.peak = value
		d.hasPeak = true
		d.length = 0
		d.drawdown = 0
		d.moneydown = 0

		return
	}

	d.length++
	d.moneydown = d.peak - value
	d.drawdown = 0

	if d.peak > 0 {
		d.drawdown = math.Min(1, d.moneydown/d.peak)
	}

	d.maxDrawdown = math.Max(d.maxDrawdown, d.drawdown)
	d.maxMoneydown = math.Max(d.maxMoneydown, d.moneydown)
	d.maxLength = max(d.maxLength, d.length)
}

func (d *DrawDown) OnTradeClosed(types.Trade) {}

func (d *DrawDown) OnFinish() types.AnalysisResult {
	return types.AnalysisResult{
		Analyzer: d.Name(),
		Metrics: map[string]float64{
			"drawdown":      d.drawdown,
			"moneydown":     d.moneydown,
			"len":           float64(d.length),
			"max_drawdown":  d.maxDrawdown,
			"max_moneydown": d.maxMoneydown,
			"max_len":       float64(d.maxLength),
		},
	}
}

package analyzer

import (
	"math"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

const defaultAnnualizationFactor = 252

// SharpeRatio is the annualized mean excess return per bar over its standard deviation.
type SharpeRatio struct {
	// RiskFreeRate is annual and converted to a per-bar rate with Factor.
	RiskFreeRate float64
	// Factor is the number of bars per year.
	Factor float64

	lastValue float64
	hasValue  bool
	returns   []float64
}

func NewSharpeRatio(riskFreeRate float64, factor float64) *SharpeRatio {
	if factor <= 0 {
		factor = defaultAnnualizationFactor
	}

	return &SharpeRatio{
		RiskFreeRate: riskFreeRate,
		Factor:       factor,
		lastValue:    0,
		hasValue:     false,
		returns:      nil,
	}
}

func (s *SharpeRatio) Name() string {
	return NameSharpeRatio
}

func (s *SharpeRatio) OnBarClosed(snapshot types.Snapshot) {
	if s.hasValue && s.lastValue != 0 {
		s.returns = append(s.returns, snapshot.Value/s.lastValue-1)
	}

	s.lastValue = snapshot.Value
	s.hasValue = true
}

func (s *SharpeRatio) OnTradeClosed(types.Trade) {}

func (s *SharpeRatio) OnFinish() types.AnalysisResult {
	return types.AnalysisResult{
		Analyzer: s.Name(),
		Metrics: map[string]float64{
			"sharpe_ratio": s.ratio(),
			"periods":      float64(len(s.returns)),
		},
	}
}

func (s *SharpeRatio) ratio() float64 {
	if len(s.returns) < 2 {
		return math.NaN()
	}

	riskFreePerBar := math.Pow(1+s.RiskFreeRate, 1/s.Factor) - 1

	excess := make([]float64, len(s.returns))
	for i, r := range s.returns {
		excess[i] = r - riskFreePerBar
	}

	mean, std := meanStd(excess)
	if std == 0 || math.IsNaN(std) {
		return math.NaN()
	}

	return mean / std * math.Sqrt(s.Factor)
}

// meanStd returns the mean and population standard deviation.
func meanStd(values []float64) (float64, float64) {
	sum := 0.0
	for _, v := range values {
		sum += v
	}

	mean := sum / float64(len(values))

	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}

	variance /= float64(len(values))

	// tiny variances are floating point noise from flat equity curves
	if variance < 1e-24 {
		return mean, 0
	}

	return mean, math.Sqrt(variance)
}

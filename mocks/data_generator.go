package mocks

import (
	"math"
	"math/rand/v2"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// BarGenerator builds reproducible synthetic bar series for engine tests.
type BarGenerator struct {
	rng *rand.Rand
}

// NewBarGenerator returns a generator whose output depends only on seed.
func NewBarGenerator(seed uint64) *BarGenerator {
	return &BarGenerator{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// WalkConfig describes a random walk of closes.
type WalkConfig struct {
	Symbol   string
	Start    time.Time
	Interval time.Duration
	Count    int
	// StartPrice is the open of the first bar.
	StartPrice float64
	// Volatility is the standard deviation of the per-bar log return.
	Volatility float64
	// Drift is added to every per-bar log return.
	Drift float64
	// Volume is the mean volume. Each bar varies by up to VolumeJitter of it.
	Volume       float64
	VolumeJitter float64
}

// DefaultWalkConfig is a year of daily bars starting 2019-01-02.
func DefaultWalkConfig() WalkConfig {
	return WalkConfig{
		Symbol:       "TEST",
		Start:        time.Date(2019, 1, 2, 0, 0, 0, 0, time.UTC),
		Interval:     24 * time.Hour,
		Count:        252,
		StartPrice:   100,
		Volatility:   0.015,
		Drift:        0,
		Volume:       10000,
		VolumeJitter: 0.3,
	}
}

// RandomWalk generates config.Count bars with strictly increasing times.
// Every bar satisfies low <= min(open, close) and high >= max(open, close),
// and each open equals the previous close.
func (g *BarGenerator) RandomWalk(config WalkConfig) []types.Bar {
	bars := make([]types.Bar, config.Count)
	price := config.StartPrice

	for i := range bars {
		open := price
		closePrice := open * math.Exp(config.Drift+config.Volatility*g.rng.NormFloat64())

		body := math.Abs(closePrice - open)
		high := math.Max(open, closePrice) + g.rng.Float64()*(body+config.Volatility*open)*0.5
		low := math.Min(open, closePrice) - g.rng.Float64()*(body+config.Volatility*open)*0.5
		low = math.Max(low, math.Min(open, closePrice)*0.5)

		volume := config.Volume * (1 + config.VolumeJitter*(2*g.rng.Float64()-1))

		bars[i] = types.Bar{
			Symbol:       config.Symbol,
			Time:         config.Start.Add(time.Duration(i) * config.Interval),
			Open:         round(open, 4),
			High:         round(high, 4),
			Low:          round(low, 4),
			Close:        round(closePrice, 4),
			Volume:       round(math.Max(volume, 0), 2),
			OpenInterest: 0,
		}

		price = bars[i].Close
	}

	return bars
}

func round(value float64, places int) float64 {
	scale := math.Pow10(places)

	return math.Round(value*scale) / scale
}

package strategy

import (
	"github.com/rxtech-lab/argo-backtest/internal/indicator"
	"github.com/rxtech-lab/argo-backtest/internal/runtime"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

const (
	SMACrossoverName       = "sma_crossover"
	crossoverIndicatorName = "crossover"
)

// SMACrossoverConfig configures SMACrossover.
type SMACrossoverConfig struct {
	Period  int     `yaml:"period" validate:"gte=1" jsonschema:"title=Period,description=Moving average period,minimum=1,default=5"`
	Size    float64 `yaml:"size" validate:"gte=0" jsonschema:"title=Size,description=Units per order,minimum=0,default=100"`
	Percent float64 `yaml:"percent" validate:"gte=0,lte=1" jsonschema:"title=Percent,description=Share of affordable size per buy,minimum=0,maximum=1"`
}

func defaultSMACrossoverConfig() SMACrossoverConfig {
	return SMACrossoverConfig{Period: 5, Size: 100, Percent: 0}
}

// SMACrossover trades the same signal as SMACloseCross, read from a CrossOver of close over its average.
type SMACrossover struct {
	config    SMACrossoverConfig
	crossover *indicator.CrossOver
}

// NewSMACrossover creates the strategy with config.
func NewSMACrossover(config SMACrossoverConfig) *SMACrossover {
	return &SMACrossover{config: config, crossover: nil}
}

func smaCrossoverDefinition() Definition {
	return define(SMACrossoverName,
		"Trades the crossover of the close over its simple moving average",
		defaultSMACrossoverConfig,
		func(config SMACrossoverConfig) runtime.Strategy { return NewSMACrossover(config) },
	)
}

func (s *SMACrossover) Name() string {
	return SMACrossoverName
}

func (s *SMACrossover) Initialize(ctx runtime.Context) error {
	closeLine := indicator.NewCloseLine()

	sma, err := indicator.NewSMAOf(closeLine, s.config.Period)
	if err != nil {
		return err
	}

	crossover, err := indicator.NewCrossOver(closeLine, sma)
	if err != nil {
		return err
	}

	s.crossover = crossover

	return ctx.AddIndicator(crossoverIndicatorName, crossover)
}

func (s *SMACrossover) OnBar(ctx runtime.Context) error {
	signal, err := s.crossover.Value(0)
	if errors.IsNotReadyError(err) {
		return nil
	}

	if err != nil {
		return err
	}

	position := ctx.Position()

	switch {
	case position.IsFlat() && signal > 0:
		size := orderSize(ctx, s.config.Size, s.config.Percent, ctx.Bar().Close)
		if size <= 0 {
			return nil
		}

		_, err := ctx.Buy(size)

		return err
	case position.IsLong() && signal < 0:
		_, err := ctx.Close()

		return err
	}

	return nil
}

func (s *SMACrossover) OnTradeStatus(ctx runtime.Context, trade types.Trade) error {
	return logTrade(ctx, trade)
}

package strategy

import (
	"fmt"

	"github.com/rxtech-lab/argo-backtest/internal/indicator"
	"github.com/rxtech-lab/argo-backtest/internal/runtime"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

const (
	SMACloseCrossName = "sma_close_cross"
	smaIndicatorName  = "sma"
)

// SMACloseCrossConfig configures SMACloseCross.
type SMACloseCrossConfig struct {
	Period int     `yaml:"period" validate:"gte=1" jsonschema:"title=Period,description=Moving average period,minimum=1,default=5"`
	Size   float64 `yaml:"size" validate:"gte=0" jsonschema:"title=Size,description=Units per order,minimum=0,default=100"`
	// Percent sizes orders as a share of the affordable size. It wins over Size when set.
	Percent float64 `yaml:"percent" validate:"gte=0,lte=1" jsonschema:"title=Percent,description=Share of affordable size per buy,minimum=0,maximum=1"`
}

func defaultSMACloseCrossConfig() SMACloseCrossConfig {
	return SMACloseCrossConfig{Period: 5, Size: 100, Percent: 0}
}

// SMACloseCross buys when the close crosses above its moving average and sells when it crosses back below.
type SMACloseCross struct {
	config SMACloseCrossConfig
	sma    *indicator.SMA
}

var (
	_ runtime.OrderObserver = (*SMACloseCross)(nil)
	_ runtime.TradeObserver = (*SMACloseCross)(nil)
)

// NewSMACloseCross creates the strategy with config.
func NewSMACloseCross(config SMACloseCrossConfig) *SMACloseCross {
	return &SMACloseCross{config: config, sma: nil}
}

func smaCloseCrossDefinition() Definition {
	return define(SMACloseCrossName,
		"Buys when the close crosses above its simple moving average and sells when it crosses below",
		defaultSMACloseCrossConfig,
		func(config SMACloseCrossConfig) runtime.Strategy { return NewSMACloseCross(config) },
	)
}

func (s *SMACloseCross) Name() string {
	return SMACloseCrossName
}

func (s *SMACloseCross) Initialize(ctx runtime.Context) error {
	sma, err := indicator.NewSMA(s.config.Period)
	if err != nil {
		return err
	}

	s.sma = sma

	return ctx.AddIndicator(smaIndicatorName, sma)
}

func (s *SMACloseCross) OnBar(ctx runtime.Context) error {
	signal, ok, err := closeCrossSignal(ctx, s.sma)
	if err != nil || !ok {
		return err
	}

	bar := ctx.Bar()
	position := ctx.Position()

	switch {
	case position.IsFlat() && signal > 0:
		size := orderSize(ctx, s.config.Size, s.config.Percent, bar.Close)
		if size <= 0 {
			return nil
		}

		if err := ctx.Log(types.LogLevelInfo, "create buy order", map[string]string{"close": fmt.Sprintf("%.2f", bar.Close)}); err != nil {
			return err
		}

		_, err := ctx.Buy(size)

		return err
	case position.IsLong() && signal < 0:
		if err := ctx.Log(types.LogLevelInfo, "create sell order", map[string]string{"close": fmt.Sprintf("%.2f", bar.Close)}); err != nil {
			return err
		}

		_, err := ctx.Close()

		return err
	}

	return nil
}

func (s *SMACloseCross) OnOrderStatus(ctx runtime.Context, order types.Order) error {
	return logOrder(ctx, order)
}

func (s *SMACloseCross) OnTradeStatus(ctx runtime.Context, trade types.Trade) error {
	return logTrade(ctx, trade)
}

// closeCrossSignal compares close[-1] with sma[-1] and close with sma.
// It returns +1 on an upward cross, -1 on a downward cross and 0 otherwise.
// ok is false while the average has fewer than two values.
func closeCrossSignal(ctx runtime.Context, sma indicator.Indicator) (signal int, ok bool, err error) {
	current, err := sma.Value(0)
	if errors.IsNotReadyError(err) {
		return 0, false, nil
	}

	if err != nil {
		return 0, false, err
	}

	previous, err := sma.Value(1)
	if errors.IsNotReadyError(err) {
		return 0, false, nil
	}

	if err != nil {
		return 0, false, err
	}

	previousBar, err := ctx.Bars().Ago(1)
	if err != nil {
		return 0, false, err
	}

	price := ctx.Bar().Close

	switch {
	case previousBar.Close < previous && price > current:
		return 1, true, nil
	case previousBar.Close > previous && price < current:
		return -1, true, nil
	default:
		return 0, true, nil
	}
}

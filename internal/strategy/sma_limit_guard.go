package strategy

import (
	"fmt"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/indicator"
	"github.com/rxtech-lab/argo-backtest/internal/runtime"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

const SMALimitGuardName = "sma_limit_guard"

// SMALimitGuardConfig configures SMALimitGuard.
type SMALimitGuardConfig struct {
	Period int     `yaml:"period" validate:"gte=1" jsonschema:"title=Period,description=Moving average period,minimum=1,default=5"`
	Size   float64 `yaml:"size" validate:"gt=0" jsonschema:"title=Size,description=Units per order,minimum=0,default=100"`
	// LimitFactor scales the signal close into the limit price of entries.
	LimitFactor float64 `yaml:"limit_factor" validate:"gt=0" jsonschema:"title=Limit Factor,description=Entry limit price as a multiple of the close,default=0.99"`
	// ValidDays is how long an entry stays in the book, in calendar days after the signal bar.
	ValidDays int `yaml:"valid_days" validate:"gte=0" jsonschema:"title=Valid Days,description=Entry lifetime in days,minimum=0,default=7"`
}

func defaultSMALimitGuardConfig() SMALimitGuardConfig {
	return SMALimitGuardConfig{Period: 5, Size: 100, LimitFactor: 0.99, ValidDays: 7}
}

// SMALimitGuard enters with expiring limit buys and never keeps more than one order pending.
type SMALimitGuard struct {
	config  SMALimitGuardConfig
	sma     *indicator.SMA
	pending optional.Option[types.OrderID]
}

// NewSMALimitGuard creates the strategy with config.
func NewSMALimitGuard(config SMALimitGuardConfig) *SMALimitGuard {
	return &SMALimitGuard{config: config, sma: nil, pending: optional.None[types.OrderID]()}
}

func smaLimitGuardDefinition() Definition {
	return define(SMALimitGuardName,
		"Enters with expiring limit buys below the close and waits for every order to settle before the next",
		defaultSMALimitGuardConfig,
		func(config SMALimitGuardConfig) runtime.Strategy { return NewSMALimitGuard(config) },
	)
}

func (s *SMALimitGuard) Name() string {
	return SMALimitGuardName
}

func (s *SMALimitGuard) Initialize(ctx runtime.Context) error {
	sma, err := indicator.NewSMA(s.config.Period)
	if err != nil {
		return err
	}

	s.sma = sma

	return ctx.AddIndicator(smaIndicatorName, sma)
}

func (s *SMALimitGuard) OnBar(ctx runtime.Context) error {
	if s.pending.IsSome() {
		return nil
	}

	signal, ok, err := closeCrossSignal(ctx, s.sma)
	if err != nil || !ok {
		return err
	}

	bar := ctx.Bar()
	position := ctx.Position()

	var id types.OrderID

	switch {
	case position.IsFlat() && signal > 0:
		limit := s.config.LimitFactor * bar.Close

		if err := ctx.Log(types.LogLevelInfo, "create limit buy", map[string]string{"limit": fmt.Sprintf("%.2f", limit)}); err != nil {
			return err
		}

		id, err = ctx.SubmitOrder(types.OrderRequest{
			Side:       types.OrderSideBuy,
			Size:       s.config.Size,
			ExecType:   types.ExecTypeLimit,
			Price:      optional.Some(limit),
			ValidUntil: optional.Some(bar.Time.Add(time.Duration(s.config.ValidDays) * 24 * time.Hour)),
			Reason:     "",
		})
	case position.IsLong() && signal < 0:
		if err := ctx.Log(types.LogLevelInfo, "create sell", nil); err != nil {
			return err
		}

		id, err = ctx.Sell(position.Size)
	default:
		return nil
	}

	if err != nil {
		return err
	}

	s.pending = optional.Some(id)

	return nil
}

// OnOrderStatus releases the guard once the pending order settles.
func (s *SMALimitGuard) OnOrderStatus(ctx runtime.Context, order types.Order) error {
	if !order.Status.IsTerminal() {
		return nil
	}

	if s.pending.IsSome() && s.pending.Unwrap() == order.ID {
		s.pending = optional.None[types.OrderID]()
	}

	return logOrder(ctx, order)
}

func (s *SMALimitGuard) OnTradeStatus(ctx runtime.Context, trade types.Trade) error {
	return logTrade(ctx, trade)
}

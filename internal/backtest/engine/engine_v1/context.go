package engine

import (
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-backtest/internal/indicator"
	"github.com/rxtech-lab/argo-backtest/internal/log"
	"github.com/rxtech-lab/argo-backtest/internal/runtime"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
)

// strategyContext is the runtime.Context handed to the strategy of one engine.
type strategyContext struct {
	engine *BacktestEngineV1
	bars   barView
}

var _ runtime.Context = (*strategyContext)(nil)

func newStrategyContext(e *BacktestEngineV1) *strategyContext {
	return &strategyContext{
		engine: e,
		bars:   barView{BarSequence: e.bars},
	}
}

// barView hides bars after the cursor and ignores cursor moves from strategy code.
type barView struct {
	datasource.BarSequence
}

func (v barView) At(index int) (types.Bar, error) {
	if index > v.Cursor() {
		return types.Bar{}, errors.NewIndexError(index, v.Cursor()+1)
	}

	return v.BarSequence.At(index)
}

func (v barView) SetCursor(int) {}

func (c *strategyContext) BarIndex() int {
	return c.engine.bars.Cursor()
}

// Bar returns the bar being processed. It is the zero bar during initialize.
func (c *strategyContext) Bar() types.Bar {
	if c.engine.state == engine.StateInitializing {
		return types.Bar{}
	}

	bar, err := c.engine.bars.Current()
	if err != nil {
		return types.Bar{}
	}

	return bar
}

func (c *strategyContext) Bars() datasource.BarSequence {
	return c.bars
}

// AddIndicator implements runtime.Context.
func (c *strategyContext) AddIndicator(name string, ind indicator.Indicator) error {
	if c.engine.state != engine.StateInitializing {
		return errors.Newf(errors.ErrCodeEngineRunning, "indicator %s must be added during initialize", name)
	}

	return c.engine.indicators.RegisterIndicatorAs(name, ind)
}

func (c *strategyContext) Indicator(name string) (indicator.Indicator, error) {
	return c.engine.indicators.GetIndicator(name)
}

func (c *strategyContext) Position() types.Position {
	return c.engine.ledger.Position()
}

func (c *strategyContext) Broker() types.BrokerState {
	return c.engine.ledger.BrokerState()
}

// SubmitOrder implements runtime.Context. The order takes part in matching from the next bar on.
func (c *strategyContext) SubmitOrder(req types.OrderRequest) (types.OrderID, error) {
	if c.engine.state == engine.StateFinished {
		return 0, errors.New(errors.ErrCodeEngineFinished, "engine finished, no more orders accepted")
	}

	bar := c.Bar()

	id, err := c.engine.book.Submit(req, c.BarIndex(), bar.Time)
	if err != nil {
		c.engine.log.Debug("Order rejected at submission",
			zap.String("side", string(req.Side)),
			zap.String("exec_type", string(req.ExecType)),
			zap.Float64("size", req.Size),
			zap.Error(err),
		)

		return 0, err
	}

	c.engine.log.Debug("Order created",
		zap.Int64("order_id", int64(id)),
		zap.Int("bar_index", c.BarIndex()),
		zap.String("side", string(req.Side)),
		zap.String("exec_type", string(req.ExecType)),
		zap.Float64("size", req.Size),
	)

	return id, nil
}

func (c *strategyContext) Buy(size float64) (types.OrderID, error) {
	return c.SubmitOrder(types.OrderRequest{Side: types.OrderSideBuy, Size: size, ExecType: types.ExecTypeMarket})
}

func (c *strategyContext) Sell(size float64) (types.OrderID, error) {
	return c.SubmitOrder(types.OrderRequest{Side: types.OrderSideSell, Size: size, ExecType: types.ExecTypeMarket})
}

// Close submits a market order for the opposite of the current position.
func (c *strategyContext) Close() (types.OrderID, error) {
	position := c.Position()
	if position.IsFlat() {
		return 0, errors.New(errors.ErrCodeInvalidOrder, "no open position to close")
	}

	side := types.OrderSideSell
	if position.IsShort() {
		side = types.OrderSideBuy
	}

	size := position.Size
	if size < 0 {
		size = -size
	}

	return c.SubmitOrder(types.OrderRequest{Side: side, Size: size, ExecType: types.ExecTypeMarket})
}

func (c *strategyContext) Cancel(id types.OrderID) error {
	return c.engine.book.Cancel(id)
}

func (c *strategyContext) Order(id types.OrderID) (types.Order, bool) {
	return c.engine.book.Order(id)
}

func (c *strategyContext) PendingOrders() []types.Order {
	return c.engine.book.Pending()
}

func (c *strategyContext) MaxAffordableSize(price float64) float64 {
	return c.engine.ledger.MaxAffordableSize(price)
}

func (c *strategyContext) SizePrecision() int {
	return c.engine.config.DecimalPrecision
}

// Log implements runtime.Context. Entries carry the simulated bar time, not wall-clock time.
func (c *strategyContext) Log(level types.LogLevel, message string, fields map[string]string) error {
	return c.engine.logStore.Log(log.LogEntry{
		Timestamp: c.Bar().Time,
		BarIndex:  c.BarIndex(),
		Symbol:    c.engine.symbol,
		Level:     level,
		Message:   message,
		Fields:    fields,
	})
}

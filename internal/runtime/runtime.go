package runtime

import (
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-backtest/internal/indicator"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

//go:generate mockgen -destination=../../mocks/mock_strategy.go -package=mocks github.com/rxtech-lab/argo-backtest/internal/runtime Strategy

// Strategy is the decision logic driven by the engine, one instance per run.
type Strategy interface {
	// Name returns the name of the strategy
	Name() string
	// Initialize is called once before the first bar. Indicators are registered here.
	Initialize(ctx Context) error
	// OnBar is called exactly once per bar, after matching and indicator updates settled.
	OnBar(ctx Context) error
}

// OrderObserver is implemented by strategies that want order status notifications.
type OrderObserver interface {
	OnOrderStatus(ctx Context, order types.Order) error
}

// TradeObserver is implemented by strategies that want trade open/close notifications.
type TradeObserver interface {
	OnTradeStatus(ctx Context, trade types.Trade) error
}

// Context is the strategy's view of the running engine.
// Orders submitted through it are applied on the next advance, never synchronously.
//
//nolint:interfacebloat // the strategy surface is intentionally in one place
type Context interface {
	// BarIndex is the cursor of the bar being processed.
	BarIndex() int
	// Bar is the bar being processed.
	Bar() types.Bar
	// Bars gives indexed and lookback access to the bar sequence.
	Bars() datasource.BarSequence
	// AddIndicator registers an indicator under name. Only valid during Initialize.
	AddIndicator(name string, ind indicator.Indicator) error
	// Indicator returns a registered indicator.
	Indicator(name string) (indicator.Indicator, error)
	// Position returns a copy of the current position.
	Position() types.Position
	// Broker returns the cash and value marked at the current bar.
	Broker() types.BrokerState
	// SubmitOrder queues an order. Invalid requests fail with ErrCodeInvalidOrder.
	SubmitOrder(req types.OrderRequest) (types.OrderID, error)
	// Buy queues a market buy.
	Buy(size float64) (types.OrderID, error)
	// Sell queues a market sell.
	Sell(size float64) (types.OrderID, error)
	// Close queues a market order that flattens the position.
	Close() (types.OrderID, error)
	// Cancel queues the cancellation of a pending order.
	Cancel(id types.OrderID) error
	// Order looks up an order by ID.
	Order(id types.OrderID) (types.Order, bool)
	// PendingOrders returns the orders not yet in a terminal status.
	PendingOrders() []types.Order
	// MaxAffordableSize returns the largest buy size the cash covers at price.
	MaxAffordableSize(price float64) float64
	// SizePrecision is the number of decimal places order sizes are floored to.
	SizePrecision() int
	// Log records a strategy log entry stamped with the bar time.
	Log(level types.LogLevel, message string, fields map[string]string) error
}

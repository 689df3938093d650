package runtime

import (
	"fmt"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// NotifyOrder forwards an order notification if the strategy observes orders.
func NotifyOrder(strategy Strategy, ctx Context, order types.Order) error {
	observer, ok := strategy.(OrderObserver)
	if !ok {
		return nil
	}

	if err := observer.OnOrderStatus(ctx, order); err != nil {
		return fmt.Errorf("strategy %s failed on order %d status %s: %w", strategy.Name(), order.ID, order.Status, err)
	}

	return nil
}

// NotifyTrade forwards a trade notification if the strategy observes trades.
func NotifyTrade(strategy Strategy, ctx Context, trade types.Trade) error {
	observer, ok := strategy.(TradeObserver)
	if !ok {
		return nil
	}

	if err := observer.OnTradeStatus(ctx, trade); err != nil {
		return fmt.Errorf("strategy %s failed on trade %d status %s: %w", strategy.Name(), trade.ID, trade.Status, err)
	}

	return nil
}

// Capabilities lists the optional callbacks a strategy implements, for logging.
func Capabilities(strategy Strategy) []string {
	capabilities := []string{"initialize", "on_bar"}

	if _, ok := strategy.(OrderObserver); ok {
		capabilities = append(capabilities, "on_order_status")
	}

	if _, ok := strategy.(TradeObserver); ok {
		capabilities = append(capabilities, "on_trade_status")
	}

	return capabilities
}

package engine

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// Settler finalizes a matched fill, normally by applying it to the ledger.
type Settler func(order types.Order, fill types.Fill) (FillResult, error)

// OrderBook owns every order of a run and moves them through their status graph.
// Orders are processed in ID order, which is submission order.
type OrderBook struct {
	symbol        string
	orders        map[types.OrderID]*types.Order
	active        []types.OrderID
	queued        []types.OrderID
	cancels       []types.OrderID
	notifications []types.Order
	nextID        types.OrderID
}

func NewOrderBook(symbol string) *OrderBook {
	return &OrderBook{
		symbol:        symbol,
		orders:        make(map[types.OrderID]*types.Order),
		active:        nil,
		queued:        nil,
		cancels:       nil,
		notifications: nil,
		nextID:        1,
	}
}

// Submit validates req and stores it as a Created order. It becomes matchable after Activate.
// Invalid requests never enter the book.
func (b *OrderBook) Submit(req types.OrderRequest, barIndex int, at time.Time) (types.OrderID, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}

	reason := req.Reason
	if reason == "" {
		reason = types.OrderReasonStrategy
	}

	order := &types.Order{
		ID:              b.nextID,
		Symbol:          b.symbol,
		Side:            req.Side,
		Size:            req.Size,
		ExecType:        req.ExecType,
		Price:           req.Price,
		ValidUntil:      req.ValidUntil,
		Status:          types.OrderStatusCreated,
		CreatedBarIndex: barIndex,
		CreatedAt:       at,
		Executed:        optional.None[types.Execution](),
		Reason:          reason,
	}

	if order.ExecType == types.ExecTypeMarket {
		order.Price = optional.None[float64]()
	}

	b.nextID++
	b.orders[order.ID] = order
	b.active = append(b.active, order.ID)
	b.queued = append(b.queued, order.ID)

	return order.ID, nil
}

// Cancel queues a cancellation, applied on the next advance before matching.
func (b *OrderBook) Cancel(id types.OrderID) error {
	order, ok := b.orders[id]
	if !ok {
		return errors.Newf(errors.ErrCodeOrderNotFound, "order %d not found", id)
	}

	if order.Status.IsTerminal() {
		return errors.Newf(errors.ErrCodeInvalidTransition, "order %d is already %s", id, order.Status)
	}

	b.cancels = append(b.cancels, id)

	return nil
}

// ApplyCancellations cancels every queued order that is still open.
func (b *OrderBook) ApplyCancellations() error {
	cancels := b.cancels
	b.cancels = nil

	for _, id := range cancels {
		order := b.orders[id]
		if order.Status.IsTerminal() {
			continue
		}

		order.Reason = types.OrderReasonCanceled
		if err := b.transition(order, types.OrderStatusCanceled); err != nil {
			return err
		}
	}

	b.compact()

	return nil
}

// Activate moves every Created order through Submitted to Accepted.
func (b *OrderBook) Activate() error {
	queued := b.queued
	b.queued = nil

	for _, id := range queued {
		if err := b.activate(b.orders[id]); err != nil {
			return err
		}
	}

	return nil
}

func (b *OrderBook) activate(order *types.Order) error {
	if order.Status != types.OrderStatusCreated {
		return nil
	}

	if err := b.transition(order, types.OrderStatusSubmitted); err != nil {
		return err
	}

	return b.transition(order, types.OrderStatusAccepted)
}

// Match expires and matches every Accepted order against bar, in ID order.
func (b *OrderBook) Match(bar types.Bar, barIndex int, settle Settler) error {
	for _, id := range b.active {
		order := b.orders[id]
		if order.Status != types.OrderStatusAccepted {
			continue
		}

		if order.ValidUntil.IsSome() && order.ValidUntil.Unwrap().Before(bar.Time) {
			order.Reason = types.OrderReasonExpired
			if err := b.transition(order, types.OrderStatusExpired); err != nil {
				return err
			}

			continue
		}

		price, ok := MatchPrice(*order, bar)
		if !ok {
			continue
		}

		if err := b.settle(order, price, bar, barIndex, settle); err != nil {
			return err
		}
	}

	b.compact()

	return nil
}

// FillNow activates order id and fills it at price on bar, bypassing next-bar matching.
// It is used for the force close at the end of a run.
func (b *OrderBook) FillNow(id types.OrderID, price float64, bar types.Bar, barIndex int, settle Settler) error {
	order, ok := b.orders[id]
	if !ok {
		return errors.Newf(errors.ErrCodeOrderNotFound, "order %d not found", id)
	}

	if err := b.activate(order); err != nil {
		return err
	}

	if order.Status != types.OrderStatusAccepted {
		return errors.Newf(errors.ErrCodeInvalidTransition, "order %d cannot be filled from %s", id, order.Status)
	}

	if err := b.settle(order, price, bar, barIndex, settle); err != nil {
		return err
	}

	b.compact()

	return nil
}

// Finish handles orders still open when the run ends. With expire set, Accepted
// orders expire and orders never accepted are canceled. Otherwise they are left as they are.
func (b *OrderBook) Finish(expire bool) error {
	if !expire {
		return nil
	}

	b.cancels = nil
	b.queued = nil

	for _, id := range b.active {
		order := b.orders[id]
		if order.Status.IsTerminal() {
			continue
		}

		order.Reason = types.OrderReasonRunFinish

		var err error

		switch order.Status {
		case types.OrderStatusAccepted:
			err = b.transition(order, types.OrderStatusExpired)
		case types.OrderStatusCreated, types.OrderStatusSubmitted:
			err = b.transition(order, types.OrderStatusCanceled)
		}

		if err != nil {
			return err
		}
	}

	b.compact()

	return nil
}

// DrainNotifications returns the queued status notifications and clears the queue.
func (b *OrderBook) DrainNotifications() []types.Order {
	out := b.notifications
	b.notifications = nil

	return out
}

// Order returns a copy of the order with id.
func (b *OrderBook) Order(id types.OrderID) (types.Order, bool) {
	order, ok := b.orders[id]
	if !ok {
		return types.Order{}, false
	}

	return *order, true
}

// Orders returns copies of all orders in ID order.
func (b *OrderBook) Orders() []types.Order {
	out := make([]types.Order, 0, len(b.orders))
	for id := types.OrderID(1); id < b.nextID; id++ {
		out = append(out, *b.orders[id])
	}

	return out
}

// Pending returns copies of the orders not yet in a terminal status.
func (b *OrderBook) Pending() []types.Order {
	var out []types.Order

	for _, id := range b.active {
		if order := b.orders[id]; !order.Status.IsTerminal() {
			out = append(out, *order)
		}
	}

	return out
}

func (b *OrderBook) settle(order *types.Order, price float64, bar types.Bar, barIndex int, settle Settler) error {
	fill := types.Fill{
		OrderID:    order.ID,
		Side:       order.Side,
		ExecType:   order.ExecType,
		Price:      price,
		Size:       order.Size,
		BarIndex:   barIndex,
		Time:       bar.Time,
		LimitPrice: optional.None[float64](),
	}

	if order.ExecType == types.ExecTypeLimit {
		fill.LimitPrice = order.Price
	}

	result, err := settle(*order, fill)
	if err != nil {
		if rejectErr := b.transition(order, types.OrderStatusRejected); rejectErr != nil {
			return rejectErr
		}

		return err
	}

	if result.Margin {
		order.Reason = types.OrderReasonMargin

		return b.transition(order, types.OrderStatusMargin)
	}

	order.Executed = optional.Some(types.Execution{
		Price:      result.Price,
		Size:       result.Size,
		Commission: result.Commission,
		BarIndex:   barIndex,
		Time:       bar.Time,
	})

	return b.transition(order, types.OrderStatusCompleted)
}

func (b *OrderBook) transition(order *types.Order, next types.OrderStatus) error {
	if err := order.Transition(next); err != nil {
		return err
	}

	b.notifications = append(b.notifications, *order)

	return nil
}

// compact drops terminal orders from the active list.
func (b *OrderBook) compact() {
	active := b.active[:0]

	for _, id := range b.active {
		if !b.orders[id].Status.IsTerminal() {
			active = append(active, id)
		}
	}

	b.active = active
}

// MatchPrice returns the price an Accepted order fills at on bar, if it fills.
//
//	market:     open
//	limit buy:  open if open <= L, else L if low <= L
//	limit sell: open if open >= L, else L if high >= L
//	stop buy:   open if open >= S, else S if high >= S
//	stop sell:  open if open <= S, else S if low <= S
func MatchPrice(order types.Order, bar types.Bar) (float64, bool) {
	if order.ExecType == types.ExecTypeMarket {
		return bar.Open, true
	}

	if order.Price.IsNone() {
		return 0, false
	}

	level := order.Price.Unwrap()
	buy := order.Side == types.OrderSideBuy

	switch order.ExecType {
	case types.ExecTypeLimit:
		if buy {
			return touch(bar.Open <= level, bar.Low <= level, bar.Open, level)
		}

		return touch(bar.Open >= level, bar.High >= level, bar.Open, level)
	case types.ExecTypeStop:
		if buy {
			return touch(bar.Open >= level, bar.High >= level, bar.Open, level)
		}

		return touch(bar.Open <= level, bar.Low <= level, bar.Open, level)
	default:
		return 0, false
	}
}

func touch(atOpen bool, intrabar bool, open float64, level float64) (float64, bool) {
	switch {
	case atOpen:
		return open, true
	case intrabar:
		return level, true
	default:
		return 0, false
	}
}

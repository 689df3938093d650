package types

import (
	"fmt"
	"math"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// OrderID identifies an order within a single engine run.
// IDs are assigned sequentially so replaying a run yields the same IDs.
type OrderID int64

type OrderSide string

type ExecType string

type OrderStatus string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

const (
	ExecTypeMarket ExecType = "MARKET"
	ExecTypeLimit  ExecType = "LIMIT"
	ExecTypeStop   ExecType = "STOP"
)

const (
	OrderStatusCreated   OrderStatus = "CREATED"
	OrderStatusSubmitted OrderStatus = "SUBMITTED"
	OrderStatusAccepted  OrderStatus = "ACCEPTED"
	OrderStatusCompleted OrderStatus = "COMPLETED"
	OrderStatusCanceled  OrderStatus = "CANCELED"
	OrderStatusMargin    OrderStatus = "MARGIN"
	OrderStatusRejected  OrderStatus = "REJECTED"
	OrderStatusExpired   OrderStatus = "EXPIRED"
)

const (
	OrderReasonStrategy   string = "strategy"
	OrderReasonForceClose string = "force_close"
	OrderReasonMargin     string = "insufficient_cash"
	OrderReasonExpired    string = "expired"
	OrderReasonCanceled   string = "canceled"
	OrderReasonRunFinish  string = "run_finished"
)

// IsTerminal reports whether no further transition is possible from this status.
func (s OrderStatus) IsTerminal() bool {
	switch s {
	case OrderStatusCompleted, OrderStatusCanceled, OrderStatusMargin, OrderStatusRejected, OrderStatusExpired:
		return true
	default:
		return false
	}
}

// IsPending reports whether the order is waiting in the book (Submitted or Accepted).
func (s OrderStatus) IsPending() bool {
	return s == OrderStatusSubmitted || s == OrderStatusAccepted
}

// CanTransitionTo reports whether moving from s to next follows
// Created -> Submitted -> Accepted -> {Completed | Canceled | Margin | Rejected | Expired}.
// Created and Submitted orders may also be canceled or rejected before acceptance.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	switch s {
	case OrderStatusCreated:
		return next == OrderStatusSubmitted || next == OrderStatusCanceled || next == OrderStatusRejected
	case OrderStatusSubmitted:
		return next == OrderStatusAccepted || next == OrderStatusCanceled || next == OrderStatusRejected
	case OrderStatusAccepted:
		return next.IsTerminal()
	default:
		return false
	}
}

// OrderRequest is what a strategy submits. The engine turns it into an Order.
type OrderRequest struct {
	Side     OrderSide `yaml:"side" json:"side" validate:"required,oneof=BUY SELL"`
	Size     float64   `yaml:"size" json:"size" validate:"gt=0"`
	ExecType ExecType  `yaml:"exec_type" json:"exec_type" validate:"required,oneof=MARKET LIMIT STOP"`
	// Price is the limit or stop price. Required for LIMIT and STOP orders.
	Price optional.Option[float64] `yaml:"price" json:"price"`
	// ValidUntil expires the order once a bar later than this time is evaluated.
	ValidUntil optional.Option[time.Time] `yaml:"valid_until" json:"valid_until"`
	// Reason is a free-form tag carried to the executed order.
	Reason string `yaml:"reason" json:"reason"`
}

// Validate checks the request the way the order book does at submission.
func (r *OrderRequest) Validate() error {
	if !finite(r.Size) || r.Size <= 0 {
		return errors.Newf(errors.ErrCodeInvalidOrder, "order size must be positive and finite, got %v", r.Size)
	}

	if err := validator.New().Struct(r); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrder, "invalid order request", err)
	}

	if r.ExecType == ExecTypeLimit || r.ExecType == ExecTypeStop {
		if r.Price.IsNone() {
			return errors.Newf(errors.ErrCodeInvalidOrder, "%s order requires a price", r.ExecType)
		}

		if price := r.Price.Unwrap(); !finite(price) || price <= 0 {
			return errors.Newf(errors.ErrCodeInvalidOrder, "%s order price must be positive and finite, got %v", r.ExecType, price)
		}
	}

	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Execution describes how an order was filled.
type Execution struct {
	Price      float64   `yaml:"price" json:"price"`
	Size       float64   `yaml:"size" json:"size"`
	Commission float64   `yaml:"commission" json:"commission"`
	BarIndex   int       `yaml:"bar_index" json:"bar_index"`
	Time       time.Time `yaml:"time" json:"time"`
}

// Order is owned by the order book until it reaches a terminal status.
type Order struct {
	ID              OrderID                    `yaml:"id" json:"id"`
	Symbol          string                     `yaml:"symbol" json:"symbol"`
	Side            OrderSide                  `yaml:"side" json:"side"`
	Size            float64                    `yaml:"size" json:"size"`
	ExecType        ExecType                   `yaml:"exec_type" json:"exec_type"`
	Price           optional.Option[float64]   `yaml:"price" json:"price"`
	ValidUntil      optional.Option[time.Time] `yaml:"valid_until" json:"valid_until"`
	Status          OrderStatus                `yaml:"status" json:"status"`
	CreatedBarIndex int                        `yaml:"created_bar_index" json:"created_bar_index"`
	CreatedAt       time.Time                  `yaml:"created_at" json:"created_at"`
	Executed        optional.Option[Execution] `yaml:"executed" json:"executed"`
	Reason          string                     `yaml:"reason" json:"reason"`
}

// IsBuy reports whether the order buys.
func (o *Order) IsBuy() bool {
	return o.Side == OrderSideBuy
}

// IsSell reports whether the order sells.
func (o *Order) IsSell() bool {
	return o.Side == OrderSideSell
}

// Transition moves the order to next, refusing any move that is not part of the status graph.
func (o *Order) Transition(next OrderStatus) error {
	if !o.Status.CanTransitionTo(next) {
		return errors.Newf(errors.ErrCodeInvalidTransition, "order %d cannot move from %s to %s", o.ID, o.Status, next)
	}

	o.Status = next

	return nil
}

func (o Order) String() string {
	return fmt.Sprintf("order(%d %s %s %v %s)", o.ID, o.Side, o.ExecType, o.Size, o.Status)
}

// Fill is emitted by the order book when an order matches a bar.
// Price is the raw match price before slippage.
type Fill struct {
	OrderID  OrderID   `yaml:"order_id" json:"order_id"`
	Side     OrderSide `yaml:"side" json:"side"`
	ExecType ExecType  `yaml:"exec_type" json:"exec_type"`
	Price    float64   `yaml:"price" json:"price"`
	Size     float64   `yaml:"size" json:"size"`
	BarIndex int       `yaml:"bar_index" json:"bar_index"`
	Time     time.Time `yaml:"time" json:"time"`
	// LimitPrice bounds slippage for limit orders.
	LimitPrice optional.Option[float64] `yaml:"limit_price" json:"limit_price"`
}

// SignedSize returns the size with the sign of the position change.
func (f Fill) SignedSize() float64 {
	if f.Side == OrderSideSell {
		return -f.Size
	}

	return f.Size
}

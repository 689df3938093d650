package engine

import (
	stderrors "errors"
	"math"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type OrderBookTestSuite struct {
	suite.Suite
	book    *OrderBook
	bar     types.Bar
	settled []types.Fill
}

func TestOrderBookSuite(t *testing.T) {
	suite.Run(t, new(OrderBookTestSuite))
}

func (suite *OrderBookTestSuite) SetupTest() {
	suite.book = NewOrderBook("ORCL")
	suite.settled = nil
	suite.bar = types.Bar{
		Symbol: "ORCL",
		Time:   time.Date(2019, 1, 3, 0, 0, 0, 0, time.UTC),
		Open:   10,
		High:   12,
		Low:    9,
		Close:  11,
	}
}

// filled settles every fill at its raw price with no commission.
func (suite *OrderBookTestSuite) filled(_ types.Order, fill types.Fill) (FillResult, error) {
	suite.settled = append(suite.settled, fill)

	return FillResult{Price: fill.Price, Size: fill.Size, Commission: 0}, nil
}

func (suite *OrderBookTestSuite) submit(req types.OrderRequest) types.OrderID {
	id, err := suite.book.Submit(req, 0, suite.bar.Time.AddDate(0, 0, -1))
	suite.Require().NoError(err)

	return id
}

func (suite *OrderBookTestSuite) statuses(orders []types.Order) []types.OrderStatus {
	out := make([]types.OrderStatus, 0, len(orders))
	for _, order := range orders {
		out = append(out, order.Status)
	}

	return out
}

func (suite *OrderBookTestSuite) TestSubmit() {
	first := suite.submit(types.OrderRequest{Side: types.OrderSideBuy, Size: 10, ExecType: types.ExecTypeMarket, Price: optional.Some(99.0)})
	second := suite.submit(types.OrderRequest{Side: types.OrderSideSell, Size: 5, ExecType: types.ExecTypeLimit, Price: optional.Some(20.0), Reason: "exit"})

	suite.Equal(types.OrderID(1), first)
	suite.Equal(types.OrderID(2), second)

	order, ok := suite.book.Order(first)
	suite.Require().True(ok)
	suite.Equal(types.OrderStatusCreated, order.Status)
	suite.Equal("ORCL", order.Symbol)
	suite.True(order.Price.IsNone())
	suite.Equal(types.OrderReasonStrategy, order.Reason)
	suite.True(order.Executed.IsNone())

	limit, _ := suite.book.Order(second)
	suite.Equal(20.0, limit.Price.Unwrap())
	suite.Equal("exit", limit.Reason)

	suite.Empty(suite.book.DrainNotifications())
	suite.Len(suite.book.Pending(), 2)
}

func (suite *OrderBookTestSuite) TestSubmitInvalid() {
	_, err := suite.book.Submit(types.OrderRequest{Side: types.OrderSideBuy, Size: 0, ExecType: types.ExecTypeMarket}, 0, suite.bar.Time)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidOrder))

	_, err = suite.book.Submit(types.OrderRequest{Side: types.OrderSideBuy, Size: 1, ExecType: types.ExecTypeLimit}, 0, suite.bar.Time)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidOrder))

	nonFinite := []types.OrderRequest{
		{Side: types.OrderSideBuy, Size: 1, ExecType: types.ExecTypeLimit, Price: optional.Some(math.NaN())},
		{Side: types.OrderSideBuy, Size: 1, ExecType: types.ExecTypeLimit, Price: optional.Some(math.Inf(1))},
		{Side: types.OrderSideSell, Size: 1, ExecType: types.ExecTypeStop, Price: optional.Some(math.Inf(-1))},
		{Side: types.OrderSideSell, Size: math.Inf(1), ExecType: types.ExecTypeMarket},
		{Side: types.OrderSideBuy, Size: math.NaN(), ExecType: types.ExecTypeMarket},
	}

	for _, req := range nonFinite {
		_, err = suite.book.Submit(req, 0, suite.bar.Time)
		suite.True(errors.HasCode(err, errors.ErrCodeInvalidOrder), "size=%v price=%v", req.Size, req.Price)
	}

	suite.Empty(suite.book.Orders())

	id := suite.submit(types.OrderRequest{Side: types.OrderSideBuy, Size: 1, ExecType: types.ExecTypeMarket})
	suite.Equal(types.OrderID(1), id)
}

func (suite *OrderBookTestSuite) TestMarketFillsAtOpen() {
	id := suite.submit(types.OrderRequest{Side: types.OrderSideBuy, Size: 10, ExecType: types.ExecTypeMarket})

	suite.Require().NoError(suite.book.Activate())
	suite.Require().NoError(suite.book.Match(suite.bar, 1, suite.filled))

	order, _ := suite.book.Order(id)
	suite.Equal(types.OrderStatusCompleted, order.Status)
	suite.Require().True(order.Executed.IsSome())
	suite.Equal(10.0, order.Executed.Unwrap().Price)
	suite.Equal(1, order.Executed.Unwrap().BarIndex)
	suite.Equal(suite.bar.Time, order.Executed.Unwrap().Time)

	suite.Equal(
		[]types.OrderStatus{types.OrderStatusSubmitted, types.OrderStatusAccepted, types.OrderStatusCompleted},
		suite.statuses(suite.book.DrainNotifications()),
	)
	suite.Empty(suite.book.DrainNotifications())
	suite.Empty(suite.book.Pending())
}

func (suite *OrderBookTestSuite) TestCreatedOrdersDoNotMatch() {
	id := suite.submit(types.OrderRequest{Side: types.OrderSideBuy, Size: 10, ExecType: types.ExecTypeMarket})

	suite.Require().NoError(suite.book.Match(suite.bar, 0, suite.filled))

	order, _ := suite.book.Order(id)
	suite.Equal(types.OrderStatusCreated, order.Status)
	suite.Empty(suite.settled)
}

func (suite *OrderBookTestSuite) TestLimitSellNotTouchedStaysAccepted() {
	id := suite.submit(types.OrderRequest{Side: types.OrderSideSell, Size: 10, ExecType: types.ExecTypeLimit, Price: optional.Some(20.0)})

	suite.Require().NoError(suite.book.Activate())

	for i := 0; i < 3; i++ {
		suite.Require().NoError(suite.book.Match(suite.bar, i, suite.filled))
	}

	order, _ := suite.book.Order(id)
	suite.Equal(types.OrderStatusAccepted, order.Status)
	suite.Empty(suite.settled)
}

func (suite *OrderBookTestSuite) TestLimitFillCarriesLimitPrice() {
	suite.submit(types.OrderRequest{Side: types.OrderSideBuy, Size: 1, ExecType: types.ExecTypeLimit, Price: optional.Some(9.5)})

	suite.Require().NoError(suite.book.Activate())
	suite.Require().NoError(suite.book.Match(suite.bar, 0, suite.filled))

	suite.Require().Len(suite.settled, 1)
	suite.Equal(9.5, suite.settled[0].Price)
	suite.Equal(9.5, suite.settled[0].LimitPrice.Unwrap())
}

func (suite *OrderBookTestSuite) TestMatchPrice() {
	tests := []struct {
		name     string
		side     types.OrderSide
		execType types.ExecType
		level    float64
		price    float64
		fills    bool
	}{
		{"market", types.OrderSideBuy, types.ExecTypeMarket, 0, 10, true},
		{"limit buy above open fills at open", types.OrderSideBuy, types.ExecTypeLimit, 10.5, 10, true},
		{"limit buy touched intrabar", types.OrderSideBuy, types.ExecTypeLimit, 9.5, 9.5, true},
		{"limit buy at low", types.OrderSideBuy, types.ExecTypeLimit, 9, 9, true},
		{"limit buy below low", types.OrderSideBuy, types.ExecTypeLimit, 8.9, 0, false},
		{"limit sell below open fills at open", types.OrderSideSell, types.ExecTypeLimit, 9.5, 10, true},
		{"limit sell touched intrabar", types.OrderSideSell, types.ExecTypeLimit, 11.5, 11.5, true},
		{"limit sell above high", types.OrderSideSell, types.ExecTypeLimit, 20, 0, false},
		{"stop buy below open fills at open", types.OrderSideBuy, types.ExecTypeStop, 9.5, 10, true},
		{"stop buy touched intrabar", types.OrderSideBuy, types.ExecTypeStop, 11, 11, true},
		{"stop buy above high", types.OrderSideBuy, types.ExecTypeStop, 12.5, 0, false},
		{"stop sell above open fills at open", types.OrderSideSell, types.ExecTypeStop, 10.5, 10, true},
		{"stop sell touched intrabar", types.OrderSideSell, types.ExecTypeStop, 9.5, 9.5, true},
		{"stop sell below low", types.OrderSideSell, types.ExecTypeStop, 8, 0, false},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			order := types.Order{Side: tc.side, ExecType: tc.execType, Price: optional.None[float64]()}
			if tc.execType != types.ExecTypeMarket {
				order.Price = optional.Some(tc.level)
			}

			price, ok := MatchPrice(order, suite.bar)
			suite.Equal(tc.fills, ok)
			suite.Equal(tc.price, price)
		})
	}
}

func (suite *OrderBookTestSuite) TestExpiry() {
	expiring := suite.submit(types.OrderRequest{
		Side:       types.OrderSideBuy,
		Size:       1,
		ExecType:   types.ExecTypeLimit,
		Price:      optional.Some(5.0),
		ValidUntil: optional.Some(suite.bar.Time),
	})

	suite.Require().NoError(suite.book.Activate())
	suite.Require().NoError(suite.book.Match(suite.bar, 0, suite.filled))

	order, _ := suite.book.Order(expiring)
	suite.Equal(types.OrderStatusAccepted, order.Status, "valid through the bar at valid_until")

	next := suite.bar
	next.Time = suite.bar.Time.AddDate(0, 0, 1)
	suite.Require().NoError(suite.book.Match(next, 1, suite.filled))

	order, _ = suite.book.Order(expiring)
	suite.Equal(types.OrderStatusExpired, order.Status)
	suite.Equal(types.OrderReasonExpired, order.Reason)
	suite.Empty(suite.settled)
}

func (suite *OrderBookTestSuite) TestExpiryBeforeMatching() {
	id := suite.submit(types.OrderRequest{
		Side:       types.OrderSideBuy,
		Size:       1,
		ExecType:   types.ExecTypeMarket,
		ValidUntil: optional.Some(suite.bar.Time.AddDate(0, 0, -1)),
	})

	suite.Require().NoError(suite.book.Activate())
	suite.Require().NoError(suite.book.Match(suite.bar, 0, suite.filled))

	order, _ := suite.book.Order(id)
	suite.Equal(types.OrderStatusExpired, order.Status)
	suite.Empty(suite.settled)
}

func (suite *OrderBookTestSuite) TestCancel() {
	id := suite.submit(types.OrderRequest{Side: types.OrderSideSell, Size: 1, ExecType: types.ExecTypeLimit, Price: optional.Some(50.0)})
	suite.Require().NoError(suite.book.Activate())
	suite.book.DrainNotifications()

	suite.Require().NoError(suite.book.Cancel(id))

	order, _ := suite.book.Order(id)
	suite.Equal(types.OrderStatusAccepted, order.Status, "cancellation applies on the next advance")

	suite.Require().NoError(suite.book.ApplyCancellations())

	order, _ = suite.book.Order(id)
	suite.Equal(types.OrderStatusCanceled, order.Status)
	suite.Equal(types.OrderReasonCanceled, order.Reason)
	suite.Equal([]types.OrderStatus{types.OrderStatusCanceled}, suite.statuses(suite.book.DrainNotifications()))

	err := suite.book.Cancel(id)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidTransition))

	err = suite.book.Cancel(99)
	suite.True(errors.HasCode(err, errors.ErrCodeOrderNotFound))
}

func (suite *OrderBookTestSuite) TestCancelCreatedOrder() {
	id := suite.submit(types.OrderRequest{Side: types.OrderSideBuy, Size: 1, ExecType: types.ExecTypeMarket})

	suite.Require().NoError(suite.book.Cancel(id))
	suite.Require().NoError(suite.book.ApplyCancellations())
	suite.Require().NoError(suite.book.Activate())
	suite.Require().NoError(suite.book.Match(suite.bar, 0, suite.filled))

	order, _ := suite.book.Order(id)
	suite.Equal(types.OrderStatusCanceled, order.Status)
	suite.Empty(suite.settled)
}

func (suite *OrderBookTestSuite) TestCancelAfterFillIsIgnored() {
	id := suite.submit(types.OrderRequest{Side: types.OrderSideBuy, Size: 1, ExecType: types.ExecTypeMarket})
	suite.Require().NoError(suite.book.Activate())
	suite.Require().NoError(suite.book.Cancel(id))
	suite.Require().NoError(suite.book.Match(suite.bar, 0, suite.filled))
	suite.Require().NoError(suite.book.ApplyCancellations())

	order, _ := suite.book.Order(id)
	suite.Equal(types.OrderStatusCompleted, order.Status)
}

func (suite *OrderBookTestSuite) TestMargin() {
	id := suite.submit(types.OrderRequest{Side: types.OrderSideBuy, Size: 1000, ExecType: types.ExecTypeMarket})
	suite.Require().NoError(suite.book.Activate())

	err := suite.book.Match(suite.bar, 0, func(types.Order, types.Fill) (FillResult, error) {
		return FillResult{Margin: true}, nil
	})
	suite.Require().NoError(err)

	order, _ := suite.book.Order(id)
	suite.Equal(types.OrderStatusMargin, order.Status)
	suite.Equal(types.OrderReasonMargin, order.Reason)
	suite.True(order.Executed.IsNone())
}

func (suite *OrderBookTestSuite) TestSettleErrorRejects() {
	id := suite.submit(types.OrderRequest{Side: types.OrderSideBuy, Size: 1, ExecType: types.ExecTypeMarket})
	suite.Require().NoError(suite.book.Activate())

	boom := stderrors.New("boom")
	err := suite.book.Match(suite.bar, 0, func(types.Order, types.Fill) (FillResult, error) {
		return FillResult{}, boom
	})
	suite.ErrorIs(err, boom)

	order, _ := suite.book.Order(id)
	suite.Equal(types.OrderStatusRejected, order.Status)
}

func (suite *OrderBookTestSuite) TestMatchInIDOrder() {
	for i := 0; i < 3; i++ {
		suite.submit(types.OrderRequest{Side: types.OrderSideBuy, Size: float64(i + 1), ExecType: types.ExecTypeMarket})
	}

	suite.Require().NoError(suite.book.Activate())
	suite.Require().NoError(suite.book.Match(suite.bar, 0, suite.filled))

	suite.Require().Len(suite.settled, 3)

	for i, fill := range suite.settled {
		suite.Equal(types.OrderID(i+1), fill.OrderID)
	}
}

func (suite *OrderBookTestSuite) TestFillNowOnlyTouchesTarget() {
	other := suite.submit(types.OrderRequest{Side: types.OrderSideBuy, Size: 1, ExecType: types.ExecTypeMarket})
	target := suite.submit(types.OrderRequest{Side: types.OrderSideSell, Size: 2, ExecType: types.ExecTypeMarket, Reason: types.OrderReasonForceClose})

	suite.Require().NoError(suite.book.FillNow(target, suite.bar.Close, suite.bar, 0, suite.filled))

	order, _ := suite.book.Order(target)
	suite.Equal(types.OrderStatusCompleted, order.Status)
	suite.Equal(11.0, order.Executed.Unwrap().Price)

	untouched, _ := suite.book.Order(other)
	suite.Equal(types.OrderStatusCreated, untouched.Status)

	err := suite.book.FillNow(target, suite.bar.Close, suite.bar, 0, suite.filled)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidTransition))

	err = suite.book.FillNow(42, suite.bar.Close, suite.bar, 0, suite.filled)
	suite.True(errors.HasCode(err, errors.ErrCodeOrderNotFound))
}

func (suite *OrderBookTestSuite) TestFinish() {
	accepted := suite.submit(types.OrderRequest{Side: types.OrderSideSell, Size: 1, ExecType: types.ExecTypeLimit, Price: optional.Some(50.0)})
	suite.Require().NoError(suite.book.Activate())

	created := suite.submit(types.OrderRequest{Side: types.OrderSideBuy, Size: 1, ExecType: types.ExecTypeMarket})

	suite.Require().NoError(suite.book.Finish(false))

	order, _ := suite.book.Order(accepted)
	suite.Equal(types.OrderStatusAccepted, order.Status)
	suite.Len(suite.book.Pending(), 2)

	suite.Require().NoError(suite.book.Finish(true))

	order, _ = suite.book.Order(accepted)
	suite.Equal(types.OrderStatusExpired, order.Status)
	suite.Equal(types.OrderReasonRunFinish, order.Reason)

	order, _ = suite.book.Order(created)
	suite.Equal(types.OrderStatusCanceled, order.Status)

	suite.Empty(suite.book.Pending())
}

func (suite *OrderBookTestSuite) TestOrdersInIDOrder() {
	for i := 0; i < 4; i++ {
		suite.submit(types.OrderRequest{Side: types.OrderSideBuy, Size: 1, ExecType: types.ExecTypeMarket})
	}

	orders := suite.book.Orders()
	suite.Require().Len(orders, 4)

	for i, order := range orders {
		suite.Equal(types.OrderID(i+1), order.ID)
	}
}

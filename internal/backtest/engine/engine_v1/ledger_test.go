package engine

import (
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/slippage"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type LedgerTestSuite struct {
	suite.Suite
	bar types.Bar
}

func TestLedgerSuite(t *testing.T) {
	suite.Run(t, new(LedgerTestSuite))
}

func (suite *LedgerTestSuite) SetupTest() {
	suite.bar = types.Bar{
		Symbol: "ORCL",
		Time:   time.Date(2019, 1, 2, 0, 0, 0, 0, time.UTC),
		Open:   10,
		High:   25,
		Low:    5,
		Close:  12,
	}
}

func (suite *LedgerTestSuite) newLedger(capital float64, fee commission_fee.CommissionFee) *Ledger {
	return NewLedger("ORCL", capital, fee, slippage.NewNoSlippage(), 0)
}

func (suite *LedgerTestSuite) fill(side types.OrderSide, price float64, size float64, barIndex int) types.Fill {
	return types.Fill{
		OrderID:    1,
		Side:       side,
		ExecType:   types.ExecTypeMarket,
		Price:      price,
		Size:       size,
		BarIndex:   barIndex,
		Time:       suite.bar.Time.AddDate(0, 0, barIndex),
		LimitPrice: optional.None[float64](),
	}
}

func (suite *LedgerTestSuite) TestInitialState() {
	ledger := suite.newLedger(10000, commission_fee.NewZeroCommissionFee())

	suite.Equal(10000.0, ledger.Cash())
	suite.True(ledger.Position().IsFlat())
	suite.Equal("ORCL", ledger.Position().Symbol)
	suite.Equal(types.BrokerState{Cash: 10000, Value: 10000}, ledger.BrokerState())
	suite.True(ledger.OpenTrade().IsNone())
	suite.Empty(ledger.ClosedTrades())
	suite.True(ledger.PositionMatchesFills())
}

func (suite *LedgerTestSuite) TestBuyOpensTrade() {
	ledger := suite.newLedger(10000, commission_fee.NewPercentageCommissionFee(0.001))

	result, err := ledger.ApplyFill(suite.fill(types.OrderSideBuy, 10, 100, 1), suite.bar)
	suite.Require().NoError(err)

	suite.False(result.Margin)
	suite.Equal(10.0, result.Price)
	suite.Equal(100.0, result.Size)
	suite.InDelta(1.0, result.Commission, 1e-12)
	suite.InDelta(8999.0, ledger.Cash(), 1e-9)
	suite.Equal(100.0, ledger.Position().Size)
	suite.Equal(10.0, ledger.Position().AverageCost)

	suite.Require().Len(result.Trades, 1)
	trade := result.Trades[0]
	suite.Equal(1, trade.ID)
	suite.Equal(types.TradeStatusOpen, trade.Status)
	suite.True(trade.Long)
	suite.Equal(100.0, trade.Size)
	suite.Equal(1, trade.OpenBarIndex)
	suite.InDelta(1.0, trade.Commission, 1e-12)
	suite.InDelta(-1.0, trade.PnLNet, 1e-12)
	suite.True(ledger.OpenTrade().IsSome())
}

func (suite *LedgerTestSuite) TestWeightedAverageCost() {
	ledger := suite.newLedger(10000, commission_fee.NewZeroCommissionFee())

	_, err := ledger.ApplyFill(suite.fill(types.OrderSideBuy, 10, 10, 0), suite.bar)
	suite.Require().NoError(err)
	_, err = ledger.ApplyFill(suite.fill(types.OrderSideBuy, 20, 10, 1), suite.bar)
	suite.Require().NoError(err)

	suite.Equal(20.0, ledger.Position().Size)
	suite.Equal(15.0, ledger.Position().AverageCost)
	suite.Equal(9700.0, ledger.Cash())

	trade := ledger.OpenTrade().Unwrap()
	suite.Equal(1, trade.ID)
	suite.Equal(15.0, trade.EntryPrice)
	suite.Equal(20.0, trade.MaxSize)
}

func (suite *LedgerTestSuite) TestPartialReduceKeepsTradeOpen() {
	ledger := suite.newLedger(10000, commission_fee.NewZeroCommissionFee())

	_, err := ledger.ApplyFill(suite.fill(types.OrderSideBuy, 10, 10, 0), suite.bar)
	suite.Require().NoError(err)
	_, err = ledger.ApplyFill(suite.fill(types.OrderSideBuy, 20, 10, 1), suite.bar)
	suite.Require().NoError(err)

	result, err := ledger.ApplyFill(suite.fill(types.OrderSideSell, 20, 5, 2), suite.bar)
	suite.Require().NoError(err)

	suite.Require().Len(result.Trades, 1)
	trade := result.Trades[0]
	suite.Equal(types.TradeStatusOpen, trade.Status)
	suite.Equal(15.0, trade.Size)
	suite.Equal(20.0, trade.MaxSize)
	suite.Equal(25.0, trade.PnL)
	suite.Equal(20.0, trade.ExitPrice.Unwrap())
	suite.Equal(15.0, ledger.Position().AverageCost)
	suite.Empty(ledger.ClosedTrades())
}

func (suite *LedgerTestSuite) TestCloseTrade() {
	ledger := suite.newLedger(10000, commission_fee.NewFixedCommissionFee(0.1))

	_, err := ledger.ApplyFill(suite.fill(types.OrderSideBuy, 10, 10, 1), suite.bar)
	suite.Require().NoError(err)

	result, err := ledger.ApplyFill(suite.fill(types.OrderSideSell, 12, 10, 4), suite.bar)
	suite.Require().NoError(err)

	suite.Require().Len(result.Trades, 1)
	trade := result.Trades[0]
	suite.Equal(types.TradeStatusClosed, trade.Status)
	suite.Equal(0.0, trade.Size)
	suite.Equal(20.0, trade.PnL)
	suite.InDelta(2.0, trade.Commission, 1e-12)
	suite.InDelta(18.0, trade.PnLNet, 1e-12)
	suite.Equal(12.0, trade.ExitPrice.Unwrap())
	suite.Equal(4, trade.CloseBarIndex.Unwrap())
	suite.Equal(3, trade.BarLength)
	suite.True(trade.CloseTime.IsSome())

	suite.True(ledger.Position().IsFlat())
	suite.Equal(0.0, ledger.Position().AverageCost)
	suite.True(ledger.OpenTrade().IsNone())
	suite.Len(ledger.ClosedTrades(), 1)
	suite.InDelta(10018.0, ledger.Cash(), 1e-9)
}

func (suite *LedgerTestSuite) TestCrossingZeroReopensTrade() {
	ledger := suite.newLedger(10000, commission_fee.NewFixedCommissionFee(0.1))

	_, err := ledger.ApplyFill(suite.fill(types.OrderSideBuy, 10, 10, 0), suite.bar)
	suite.Require().NoError(err)

	result, err := ledger.ApplyFill(suite.fill(types.OrderSideSell, 12, 15, 2), suite.bar)
	suite.Require().NoError(err)
	suite.InDelta(1.5, result.Commission, 1e-12)

	suite.Require().Len(result.Trades, 2)

	closed := result.Trades[0]
	suite.Equal(1, closed.ID)
	suite.Equal(types.TradeStatusClosed, closed.Status)
	suite.Equal(20.0, closed.PnL)
	suite.InDelta(2.0, closed.Commission, 1e-12)

	opened := result.Trades[1]
	suite.Equal(2, opened.ID)
	suite.Equal(types.TradeStatusOpen, opened.Status)
	suite.False(opened.Long)
	suite.Equal(5.0, opened.Size)
	suite.Equal(12.0, opened.EntryPrice)
	suite.InDelta(0.5, opened.Commission, 1e-12)
	suite.Equal(2, opened.OpenBarIndex)

	suite.Equal(-5.0, ledger.Position().Size)
	suite.Equal(12.0, ledger.Position().AverageCost)
	suite.InDelta(10077.5, ledger.Cash(), 1e-9)
	suite.True(ledger.PositionMatchesFills())
}

func (suite *LedgerTestSuite) TestShortProfit() {
	ledger := suite.newLedger(1000, commission_fee.NewZeroCommissionFee())

	_, err := ledger.ApplyFill(suite.fill(types.OrderSideSell, 20, 5, 0), suite.bar)
	suite.Require().NoError(err)
	suite.Equal(1100.0, ledger.Cash())
	suite.True(ledger.Position().IsShort())

	suite.Equal(1050.0, ledger.MarkToMarket(10))

	result, err := ledger.ApplyFill(suite.fill(types.OrderSideBuy, 10, 5, 1), suite.bar)
	suite.Require().NoError(err)
	suite.Require().Len(result.Trades, 1)
	suite.Equal(50.0, result.Trades[0].PnL)
	suite.Equal(1050.0, ledger.Cash())
}

func (suite *LedgerTestSuite) TestMargin() {
	ledger := suite.newLedger(100, commission_fee.NewZeroCommissionFee())

	result, err := ledger.ApplyFill(suite.fill(types.OrderSideBuy, 10, 20, 0), suite.bar)
	suite.Require().NoError(err)

	suite.True(result.Margin)
	suite.Empty(result.Trades)
	suite.Equal(100.0, ledger.Cash())
	suite.True(ledger.Position().IsFlat())
	suite.Equal(0.0, ledger.FilledBuySize())
}

func (suite *LedgerTestSuite) TestMarginIncludesCommission() {
	ledger := suite.newLedger(100, commission_fee.NewFixedCommissionFee(1))

	suite.True(ledger.CanAfford(types.OrderSideBuy, 9, 10))
	suite.False(ledger.CanAfford(types.OrderSideBuy, 10, 10))
	suite.True(ledger.CanAfford(types.OrderSideSell, 1000, 1000))

	result, err := ledger.ApplyFill(suite.fill(types.OrderSideBuy, 10, 10, 0), suite.bar)
	suite.Require().NoError(err)
	suite.True(result.Margin)
}

func (suite *LedgerTestSuite) TestMarginUsesSlippedPrice() {
	slip, err := slippage.NewSlippage(slippage.Config{Type: slippage.TypeFixed, Rate: 0.5, ClampToBar: true})
	suite.Require().NoError(err)

	ledger := NewLedger("ORCL", 100, commission_fee.NewZeroCommissionFee(), slip, 0)
	suite.True(ledger.CanAfford(types.OrderSideBuy, 9.8, 10))
	suite.False(ledger.CanAfford(types.OrderSideBuy, 10.3, 10))

	result, err := ledger.ApplyFill(suite.fill(types.OrderSideBuy, 9.8, 10, 0), suite.bar)
	suite.Require().NoError(err)
	suite.True(result.Margin)
	suite.Equal(100.0, ledger.Cash())
	suite.True(ledger.Position().IsFlat())
}

func (suite *LedgerTestSuite) TestBuyUsingAllCash() {
	ledger := suite.newLedger(100, commission_fee.NewZeroCommissionFee())
	suite.True(ledger.CanAfford(types.OrderSideBuy, 10, 10))

	result, err := ledger.ApplyFill(suite.fill(types.OrderSideBuy, 10, 10, 0), suite.bar)
	suite.Require().NoError(err)
	suite.False(result.Margin)
	suite.Equal(0.0, ledger.Cash())
	suite.Equal(10.0, ledger.Position().Size)
}

func (suite *LedgerTestSuite) TestSlippageBeforeCommission() {
	slip, err := slippage.NewSlippage(slippage.Config{Type: slippage.TypeFixed, Rate: 0.5, ClampToBar: true})
	suite.Require().NoError(err)

	ledger := NewLedger("ORCL", 10000, commission_fee.NewPercentageCommissionFee(0.01), slip, 0)

	result, err := ledger.ApplyFill(suite.fill(types.OrderSideBuy, 10, 10, 0), suite.bar)
	suite.Require().NoError(err)

	suite.Equal(10.5, result.Price)
	suite.InDelta(1.05, result.Commission, 1e-12)
	suite.Equal(10.5, ledger.Position().AverageCost)
	suite.InDelta(10000-105-1.05, ledger.Cash(), 1e-9)
}

func (suite *LedgerTestSuite) TestMarkToMarket() {
	ledger := suite.newLedger(10000, commission_fee.NewZeroCommissionFee())

	_, err := ledger.ApplyFill(suite.fill(types.OrderSideBuy, 10, 10, 0), suite.bar)
	suite.Require().NoError(err)

	suite.Equal(10020.0, ledger.MarkToMarket(12))
	suite.Equal(types.BrokerState{Cash: 9900, Value: 10020}, ledger.BrokerState())
}

func (suite *LedgerTestSuite) TestPositionMatchesFills() {
	ledger := suite.newLedger(100000, commission_fee.NewPercentageCommissionFee(0.001))

	sides := []types.OrderSide{types.OrderSideBuy, types.OrderSideBuy, types.OrderSideSell, types.OrderSideSell, types.OrderSideBuy}
	sizes := []float64{0.1, 0.2, 0.25, 0.3, 0.15}

	for i := range sides {
		_, err := ledger.ApplyFill(suite.fill(sides[i], 10+float64(i), sizes[i], i), suite.bar)
		suite.Require().NoError(err)
		suite.True(ledger.PositionMatchesFills(), "after fill %d", i)
	}

	suite.InDelta(0.45, ledger.FilledBuySize(), 1e-12)
	suite.InDelta(0.55, ledger.FilledSellSize(), 1e-12)
	suite.InDelta(-0.1, ledger.Position().Size, 1e-12)
}

func (suite *LedgerTestSuite) TestInvalidFill() {
	ledger := suite.newLedger(1000, commission_fee.NewZeroCommissionFee())

	_, err := ledger.ApplyFill(suite.fill(types.OrderSideBuy, 10, 0, 0), suite.bar)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidOrder))
}

func (suite *LedgerTestSuite) TestMaxAffordableSize() {
	ledger := suite.newLedger(1000, commission_fee.NewZeroCommissionFee())
	suite.Equal(100.0, ledger.MaxAffordableSize(10))

	withFee := suite.newLedger(1000, commission_fee.NewFixedCommissionFee(1))
	suite.Equal(90.0, withFee.MaxAffordableSize(10))
}

package engine

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/slippage"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/internal/utils"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/shopspring/decimal"
)

// FillResult is the outcome of applying one fill.
type FillResult struct {
	// Margin is set when a buy could not be paid for. Nothing else changed in that case.
	Margin     bool
	Price      float64
	Size       float64
	Commission float64
	// Trades are copies of the trades opened, updated or closed by the fill, in order.
	Trades []types.Trade
}

// openTrade keeps the running exit average next to the trade being built.
type openTrade struct {
	trade     types.Trade
	exitValue decimal.Decimal
	exitSize  decimal.Decimal
}

// Ledger owns the cash, the position and the trades of a run.
// Amounts are kept as decimals so the position always equals buys minus sells exactly.
type Ledger struct {
	symbol     string
	commission commission_fee.CommissionFee
	slippage   slippage.Slippage
	precision  int

	cash        decimal.Decimal
	size        decimal.Decimal
	averageCost decimal.Decimal
	value       decimal.Decimal
	filledBuys  decimal.Decimal
	filledSells decimal.Decimal

	current     *openTrade
	closed      []types.Trade
	nextTradeID int
}

// NewLedger creates a ledger holding initialCapital in cash and no position.
func NewLedger(symbol string, initialCapital float64, commission commission_fee.CommissionFee, slip slippage.Slippage, precision int) *Ledger {
	capital := decimal.NewFromFloat(initialCapital)

	return &Ledger{
		symbol:      symbol,
		commission:  commission,
		slippage:    slip,
		precision:   precision,
		cash:        capital,
		size:        decimal.Zero,
		averageCost: decimal.Zero,
		value:       capital,
		filledBuys:  decimal.Zero,
		filledSells: decimal.Zero,
		current:     nil,
		closed:      nil,
		nextTradeID: 1,
	}
}

// Cash returns the cash balance.
func (l *Ledger) Cash() float64 {
	return l.cash.InexactFloat64()
}

// Position returns a copy of the position.
func (l *Ledger) Position() types.Position {
	return types.Position{
		Symbol:      l.symbol,
		Size:        l.size.InexactFloat64(),
		AverageCost: l.averageCost.InexactFloat64(),
	}
}

// BrokerState returns cash and the value as of the last mark to market.
func (l *Ledger) BrokerState() types.BrokerState {
	return types.BrokerState{
		Cash:  l.cash.InexactFloat64(),
		Value: l.value.InexactFloat64(),
	}
}

// FilledBuySize is the total size of all buy fills.
func (l *Ledger) FilledBuySize() float64 {
	return l.filledBuys.InexactFloat64()
}

// FilledSellSize is the total size of all sell fills.
func (l *Ledger) FilledSellSize() float64 {
	return l.filledSells.InexactFloat64()
}

// PositionMatchesFills reports whether buys minus sells equals the position size.
func (l *Ledger) PositionMatchesFills() bool {
	return l.filledBuys.Sub(l.filledSells).Equal(l.size)
}

// ClosedTrades returns copies of all closed trades in closing order.
func (l *Ledger) ClosedTrades() []types.Trade {
	out := make([]types.Trade, len(l.closed))
	copy(out, l.closed)

	return out
}

// OpenTrade returns the trade currently holding the position, if any.
func (l *Ledger) OpenTrade() optional.Option[types.Trade] {
	if l.current == nil {
		return optional.None[types.Trade]()
	}

	return optional.Some(l.current.trade)
}

// MarkToMarket values the position at close and returns the account value.
func (l *Ledger) MarkToMarket(close float64) float64 {
	l.value = l.cash.Add(l.size.Mul(decimal.NewFromFloat(close)))

	return l.value.InexactFloat64()
}

// CanAfford reports whether cash covers a buy of size at price including commission.
// Sells are always affordable.
func (l *Ledger) CanAfford(side types.OrderSide, price float64, size float64) bool {
	if side == types.OrderSideSell {
		return true
	}

	cost := decimal.NewFromFloat(price).Mul(decimal.NewFromFloat(size)).
		Add(decimal.NewFromFloat(l.commission.Calculate(price, size)))

	return cost.LessThanOrEqual(l.cash)
}

// MaxAffordableSize returns the largest buy size the cash covers at price.
func (l *Ledger) MaxAffordableSize(price float64) float64 {
	return utils.CalculateMaxQuantity(l.cash.InexactFloat64(), price, l.commission, l.precision)
}

// ApplyFill executes a matched order against the ledger on bar.
// Slippage is applied to the raw price first, then commission is charged on the slipped price.
func (l *Ledger) ApplyFill(fill types.Fill, bar types.Bar) (FillResult, error) {
	if fill.Size <= 0 {
		return FillResult{}, errors.Newf(errors.ErrCodeInvalidOrder, "fill size must be positive, got %v", fill.Size)
	}

	price := l.slippage.Apply(fill.Side, fill.Price, bar, fill.LimitPrice)
	commission := l.commission.Calculate(price, fill.Size)

	result := FillResult{
		Margin:     false,
		Price:      price,
		Size:       fill.Size,
		Commission: commission,
		Trades:     nil,
	}

	p := decimal.NewFromFloat(price)
	size := decimal.NewFromFloat(fill.Size)
	fee := decimal.NewFromFloat(commission)
	notional := p.Mul(size)

	if !l.CanAfford(fill.Side, price, fill.Size) {
		result.Margin = true

		return result, nil
	}

	if fill.Side == types.OrderSideBuy {
		l.cash = l.cash.Sub(notional).Sub(fee)
		l.filledBuys = l.filledBuys.Add(size)
	} else {
		l.cash = l.cash.Add(notional).Sub(fee)
		l.filledSells = l.filledSells.Add(size)
	}

	signed := size
	if fill.Side == types.OrderSideSell {
		signed = size.Neg()
	}

	result.Trades = l.updatePosition(signed, p, fee, fill.BarIndex, fill.Time)

	return result, nil
}

// updatePosition moves the position by signed at price and keeps trades in step.
func (l *Ledger) updatePosition(signed decimal.Decimal, price decimal.Decimal, fee decimal.Decimal, barIndex int, at time.Time) []types.Trade {
	var events []types.Trade

	if l.size.IsZero() || l.size.Sign() == signed.Sign() {
		l.increase(signed, price, fee, barIndex, at)

		return append(events, l.current.trade)
	}

	total := signed.Abs()
	closing := decimal.Min(total, l.size.Abs())
	closingFee := fee
	openingFee := decimal.Zero

	if closing.LessThan(total) {
		closingFee = fee.Mul(closing).Div(total)
		openingFee = fee.Sub(closingFee)
	}

	closingSigned := closing
	if signed.IsNegative() {
		closingSigned = closing.Neg()
	}

	events = append(events, l.reduce(closingSigned, price, closingFee, barIndex, at))

	if rest := signed.Sub(closingSigned); !rest.IsZero() {
		l.increase(rest, price, openingFee, barIndex, at)
		events = append(events, l.current.trade)
	}

	return events
}

func (l *Ledger) increase(signed decimal.Decimal, price decimal.Decimal, fee decimal.Decimal, barIndex int, at time.Time) {
	newSize := l.size.Add(signed)
	l.averageCost = l.size.Abs().Mul(l.averageCost).Add(signed.Abs().Mul(price)).Div(newSize.Abs())
	l.size = newSize

	if l.current == nil {
		l.current = &openTrade{
			trade: types.Trade{
				ID:            l.nextTradeID,
				Symbol:        l.symbol,
				Status:        types.TradeStatusOpen,
				Long:          signed.IsPositive(),
				OpenBarIndex:  barIndex,
				CloseBarIndex: optional.None[int](),
				OpenTime:      at,
				CloseTime:     optional.None[time.Time](),
				ExitPrice:     optional.None[float64](),
			},
			exitValue: decimal.Zero,
			exitSize:  decimal.Zero,
		}
		l.nextTradeID++
	}

	t := &l.current.trade
	t.Size = l.size.Abs().InexactFloat64()
	t.MaxSize = max(t.MaxSize, t.Size)
	t.EntryPrice = l.averageCost.InexactFloat64()
	t.Commission = decimal.NewFromFloat(t.Commission).Add(fee).InexactFloat64()
	t.PnLNet = decimal.NewFromFloat(t.PnL).Sub(decimal.NewFromFloat(t.Commission)).InexactFloat64()
}

// reduce shrinks the position toward zero by signed, which must not cross zero.
func (l *Ledger) reduce(signed decimal.Decimal, price decimal.Decimal, fee decimal.Decimal, barIndex int, at time.Time) types.Trade {
	closing := signed.Abs()
	direction := decimal.NewFromInt(int64(l.size.Sign()))
	pnl := price.Sub(l.averageCost).Mul(closing).Mul(direction)

	l.size = l.size.Add(signed)

	c := l.current
	c.exitValue = c.exitValue.Add(price.Mul(closing))
	c.exitSize = c.exitSize.Add(closing)

	t := &c.trade
	t.Size = l.size.Abs().InexactFloat64()
	t.PnL = decimal.NewFromFloat(t.PnL).Add(pnl).InexactFloat64()
	t.Commission = decimal.NewFromFloat(t.Commission).Add(fee).InexactFloat64()
	t.PnLNet = decimal.NewFromFloat(t.PnL).Sub(decimal.NewFromFloat(t.Commission)).InexactFloat64()
	t.ExitPrice = optional.Some(c.exitValue.Div(c.exitSize).InexactFloat64())

	if !l.size.IsZero() {
		return *t
	}

	t.Status = types.TradeStatusClosed
	t.CloseBarIndex = optional.Some(barIndex)
	t.CloseTime = optional.Some(at)
	t.BarLength = barIndex - t.OpenBarIndex

	l.averageCost = decimal.Zero
	l.closed = append(l.closed, *t)
	l.current = nil

	return l.closed[len(l.closed)-1]
}

package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rxtech-lab/argo-backtest/internal/analyzer"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/slippage"
	"github.com/rxtech-lab/argo-backtest/internal/indicator"
	"github.com/rxtech-lab/argo-backtest/internal/log"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/runtime"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/internal/version"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
)

// BacktestEngineV1 drives one strategy over one bar sequence.
// It is single threaded; independent engines share nothing.
type BacktestEngineV1 struct {
	config     BacktestEngineV1Config
	bars       datasource.BarSequence
	strategy   runtime.Strategy
	symbol     string
	runID      string
	log        *logger.Logger
	logStore   log.Log
	indicators indicator.IndicatorRegistry
	ledger     *Ledger
	book       *OrderBook
	analyzers  []analyzer.Analyzer
	analyses   []types.AnalysisResult
	ctx        *strategyContext
	state      engine.State
	processed  int
	finishedAt time.Time

	// trades holds trade events produced by fills, dispatched after OnBar.
	trades        []types.Trade
	onOrderStatus *engine.OnOrderStatusCallback
}

var _ engine.Engine = (*BacktestEngineV1)(nil)

// Option customizes a BacktestEngineV1.
type Option func(*BacktestEngineV1)

// WithLogger sets the engine logger. The default discards everything.
func WithLogger(l *logger.Logger) Option {
	return func(b *BacktestEngineV1) {
		b.log = l
	}
}

// WithLogStore sets where strategy logs are recorded. The default keeps them in memory.
func WithLogStore(store log.Log) Option {
	return func(b *BacktestEngineV1) {
		b.logStore = store
	}
}

// WithRunID overrides the generated run ID.
func WithRunID(id string) Option {
	return func(b *BacktestEngineV1) {
		b.runID = id
	}
}

// NewBacktestEngineV1 builds an engine in the Initializing state.
// The strategy's Initialize is deferred to the first Advance.
func NewBacktestEngineV1(config BacktestEngineV1Config, bars datasource.BarSequence, strategy runtime.Strategy, opts ...Option) (*BacktestEngineV1, error) {
	if bars == nil {
		return nil, errors.New(errors.ErrCodeMissingParameter, "bar sequence is required")
	}

	if strategy == nil {
		return nil, errors.New(errors.ErrCodeMissingParameter, "strategy is required")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	commission, err := commission_fee.NewCommissionFee(config.CommissionConfig())
	if err != nil {
		return nil, err
	}

	slip, err := slippage.NewSlippage(config.Slippage)
	if err != nil {
		return nil, err
	}

	symbol := config.Symbol
	if symbol == "" && bars.Len() > 0 {
		first, err := bars.At(0)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeEngineInitFailed, "failed to read first bar", err)
		}

		symbol = first.Symbol
	}

	b := &BacktestEngineV1{
		config:        config,
		bars:          bars,
		strategy:      strategy,
		symbol:        symbol,
		runID:         uuid.New().String(),
		log:           logger.NewNopLogger(),
		logStore:      log.NewMemoryLog(),
		indicators:    indicator.NewIndicatorRegistry(),
		ledger:        NewLedger(symbol, config.InitialCapital, commission, slip, config.DecimalPrecision),
		book:          NewOrderBook(symbol),
		analyzers:     nil,
		analyses:      nil,
		ctx:           nil,
		state:         engine.StateInitializing,
		processed:     0,
		finishedAt:    time.Time{},
		trades:        nil,
		onOrderStatus: nil,
	}

	for _, opt := range opts {
		opt(b)
	}

	b.ctx = newStrategyContext(b)

	b.log.Debug("Backtest engine created",
		zap.String("run_id", b.runID),
		zap.String("strategy", strategy.Name()),
		zap.Strings("capabilities", runtime.Capabilities(strategy)),
		zap.String("symbol", symbol),
		zap.Int("bars", bars.Len()),
		zap.Float64("initial_capital", config.InitialCapital),
	)

	return b, nil
}

// RunID returns the identifier of this run.
func (b *BacktestEngineV1) RunID() string {
	return b.runID
}

// LogStore returns the store strategy logs are recorded in.
func (b *BacktestEngineV1) LogStore() log.Log {
	return b.logStore
}

// Ledger exposes the broker ledger for inspection.
func (b *BacktestEngineV1) Ledger() *Ledger {
	return b.ledger
}

// State implements engine.Engine.
func (b *BacktestEngineV1) State() engine.State {
	return b.state
}

// AddAnalyzer implements engine.Engine.
func (b *BacktestEngineV1) AddAnalyzer(a analyzer.Analyzer) error {
	if a == nil {
		return errors.New(errors.ErrCodeMissingParameter, "analyzer is required")
	}

	if b.state != engine.StateInitializing {
		return errors.Newf(errors.ErrCodeEngineRunning, "cannot add analyzer %s while %s", a.Name(), b.state)
	}

	b.analyzers = append(b.analyzers, a)

	return nil
}

// AddDefaultAnalyzers attaches Sharpe, drawdown, trade and annual return analyzers
// annualized for the configured interval.
func (b *BacktestEngineV1) AddDefaultAnalyzers() error {
	factor, err := datasource.AnnualizationFactor(b.config.Interval)
	if err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to resolve annualization factor", err)
	}

	for _, a := range analyzer.Defaults(factor) {
		if err := b.AddAnalyzer(a); err != nil {
			return err
		}
	}

	return nil
}

// Advance implements engine.Engine.
func (b *BacktestEngineV1) Advance() error {
	if b.state == engine.StateFinished {
		return errors.New(errors.ErrCodeEngineFinished, "engine finished, no more bars to process")
	}

	if b.state == engine.StateInitializing {
		b.bars.SetCursor(0)

		if err := b.strategy.Initialize(b.ctx); err != nil {
			return errors.Wrapf(errors.ErrCodeStrategyRuntimeError, err, "strategy %s failed to initialize", b.strategy.Name())
		}

		b.state = engine.StateRunning

		if b.bars.Len() == 0 {
			b.log.Debug("Empty bar sequence, finishing run", zap.String("run_id", b.runID))
			b.finish()

			return nil
		}
	}

	index := b.processed
	b.bars.SetCursor(index)

	bar, err := b.bars.Current()
	if err != nil {
		return err
	}

	if err := b.book.ApplyCancellations(); err != nil {
		return err
	}

	if err := b.book.Activate(); err != nil {
		return err
	}

	if err := b.book.Match(bar, index, b.settler(bar)); err != nil {
		return err
	}

	b.ledger.MarkToMarket(bar.Close)

	if err := b.indicators.UpdateAll(b.ctx.bars); err != nil {
		return err
	}

	if err := b.strategy.OnBar(b.ctx); err != nil {
		return errors.Wrapf(errors.ErrCodeStrategyRuntimeError, err, "strategy %s failed on bar %d", b.strategy.Name(), index)
	}

	if err := b.dispatch(); err != nil {
		return err
	}

	last := index == b.bars.Len()-1
	if last {
		if err := b.closeOut(bar, index); err != nil {
			return err
		}
	}

	snapshot := b.snapshot(bar, index)
	for _, a := range b.analyzers {
		a.OnBarClosed(snapshot)
	}

	b.processed++

	if last {
		b.finish()
	}

	return nil
}

// Run implements engine.Engine.
func (b *BacktestEngineV1) Run(ctx context.Context, callbacks engine.LifecycleCallbacks) (result types.RunResult, err error) {
	if b.state == engine.StateFinished {
		return b.Result(), errors.New(errors.ErrCodeEngineFinished, "engine finished, run already completed")
	}

	defer func() {
		if callbacks.OnRunEnd != nil {
			(*callbacks.OnRunEnd)(result, err)
		}
	}()

	b.onOrderStatus = callbacks.OnOrderStatus
	total := b.bars.Len()

	if callbacks.OnRunStart != nil {
		if err := (*callbacks.OnRunStart)(b.runID, b.strategy.Name(), total); err != nil {
			return b.Result(), errors.Wrap(errors.ErrCodeCallbackFailed, "run start callback failed", err)
		}
	}

	b.log.Debug("Running strategy",
		zap.String("run_id", b.runID),
		zap.String("strategy", b.strategy.Name()),
		zap.Int("bars", total),
	)

	for b.state != engine.StateFinished {
		select {
		case <-ctx.Done():
			b.log.Debug("Run cancelled",
				zap.String("run_id", b.runID),
				zap.Int("processed", b.processed),
			)

			return b.Result(), errors.Wrap(errors.ErrCodeEngineCancelled, "run cancelled", ctx.Err())
		default:
		}

		if err := b.Advance(); err != nil {
			return b.Result(), err
		}

		if callbacks.OnProcessData != nil && total > 0 {
			if err := (*callbacks.OnProcessData)(b.processed, total); err != nil {
				return b.Result(), errors.Wrap(errors.ErrCodeCallbackFailed, "process data callback failed", err)
			}
		}
	}

	return b.Result(), nil
}

// Result implements engine.Engine.
func (b *BacktestEngineV1) Result() types.RunResult {
	broker := b.ledger.BrokerState()

	analyses := make([]types.AnalysisResult, len(b.analyses))
	copy(analyses, b.analyses)

	timestamp := b.finishedAt
	if timestamp.IsZero() {
		timestamp = time.Now()
	}

	return types.RunResult{
		ID:            b.runID,
		Timestamp:     timestamp,
		Symbol:        b.symbol,
		Strategy:      b.strategy.Name(),
		EngineVersion: version.GetVersion(),
		Bars:          b.processed,
		InitialValue:  b.config.InitialCapital,
		FinalValue:    broker.Value,
		FinalCash:     broker.Cash,
		Position:      b.ledger.Position(),
		Trades:        b.ledger.ClosedTrades(),
		Orders:        b.book.Orders(),
		Analyses:      analyses,
	}
}

func (b *BacktestEngineV1) settler(bar types.Bar) Settler {
	return func(order types.Order, fill types.Fill) (FillResult, error) {
		result, err := b.ledger.ApplyFill(fill, bar)
		if err != nil {
			b.log.Debug("Fill rejected",
				zap.Int64("order_id", int64(order.ID)),
				zap.Error(err),
			)

			return result, err
		}

		if result.Margin {
			b.log.Debug("Order margin",
				zap.Int64("order_id", int64(order.ID)),
				zap.Float64("price", result.Price),
				zap.Float64("size", result.Size),
				zap.Float64("cash", b.ledger.Cash()),
			)

			return result, nil
		}

		b.log.Debug("Order filled",
			zap.Int64("order_id", int64(order.ID)),
			zap.String("side", string(order.Side)),
			zap.Int("bar_index", fill.BarIndex),
			zap.Float64("price", result.Price),
			zap.Float64("size", result.Size),
			zap.Float64("commission", result.Commission),
		)

		b.trades = append(b.trades, result.Trades...)

		return result, nil
	}
}

// dispatch delivers queued order notifications, then trade notifications.
// Orders submitted from a handler are queued for the next bar.
func (b *BacktestEngineV1) dispatch() error {
	for _, order := range b.book.DrainNotifications() {
		if b.onOrderStatus != nil {
			if err := (*b.onOrderStatus)(order); err != nil {
				return errors.Wrap(errors.ErrCodeCallbackFailed, "order status callback failed", err)
			}
		}

		if err := runtime.NotifyOrder(b.strategy, b.ctx, order); err != nil {
			return errors.Wrap(errors.ErrCodeStrategyRuntimeError, "order notification failed", err)
		}
	}

	trades := b.trades
	b.trades = nil

	for _, trade := range trades {
		if trade.IsClosed() {
			for _, a := range b.analyzers {
				a.OnTradeClosed(trade)
			}
		}

		if err := runtime.NotifyTrade(b.strategy, b.ctx, trade); err != nil {
			return errors.Wrap(errors.ErrCodeStrategyRuntimeError, "trade notification failed", err)
		}
	}

	return nil
}

// closeOut runs the end-of-data handling on the last bar.
func (b *BacktestEngineV1) closeOut(bar types.Bar, index int) error {
	position := b.ledger.Position()

	if b.config.ForceCloseOnFinish && !position.IsFlat() {
		side := types.OrderSideSell
		size := position.Size

		if position.IsShort() {
			side = types.OrderSideBuy
			size = -size
		}

		id, err := b.book.Submit(types.OrderRequest{
			Side:     side,
			Size:     size,
			ExecType: types.ExecTypeMarket,
			Reason:   types.OrderReasonForceClose,
		}, index, bar.Time)
		if err != nil {
			return err
		}

		if err := b.book.FillNow(id, bar.Close, bar, index, b.settler(bar)); err != nil {
			return err
		}

		b.ledger.MarkToMarket(bar.Close)
	}

	if err := b.book.Finish(b.config.ExpireOpenOrdersOnFinish); err != nil {
		return err
	}

	return b.dispatch()
}

func (b *BacktestEngineV1) snapshot(bar types.Bar, index int) types.Snapshot {
	broker := b.ledger.BrokerState()

	return types.Snapshot{
		BarIndex: index,
		Time:     bar.Time,
		Close:    bar.Close,
		Cash:     broker.Cash,
		Value:    broker.Value,
		Position: b.ledger.Position(),
	}
}

func (b *BacktestEngineV1) finish() {
	b.analyses = make([]types.AnalysisResult, 0, len(b.analyzers))
	for _, a := range b.analyzers {
		b.analyses = append(b.analyses, a.OnFinish())
	}

	b.state = engine.StateFinished
	b.finishedAt = time.Now()

	broker := b.ledger.BrokerState()
	b.log.Debug("Backtest finished",
		zap.String("run_id", b.runID),
		zap.Int("bars", b.processed),
		zap.Float64("final_value", broker.Value),
		zap.Float64("final_cash", broker.Cash),
		zap.Int("trades", len(b.ledger.ClosedTrades())),
	)
}

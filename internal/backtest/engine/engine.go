package engine

import (
	"context"

	"github.com/rxtech-lab/argo-backtest/internal/analyzer"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// Lifecycle callback types for a backtest run.
// Callbacks returning an error abort the run.

// OnRunStartCallback is called before the first bar is processed.
// runID is a unique identifier for this run, generated before processing starts.
type OnRunStartCallback func(runID string, strategyName string, totalBars int) error

// OnRunEndCallback is called when the run stops, with the error that stopped it if any.
type OnRunEndCallback func(result types.RunResult, err error)

// OnProcessDataCallback is called after each bar is processed.
type OnProcessDataCallback func(current int, total int) error

// OnOrderStatusCallback is called for each dispatched order notification.
type OnOrderStatusCallback func(order types.Order) error

// LifecycleCallbacks holds all lifecycle callback functions for the backtest engine.
// All fields are pointers - nil means no callback will be invoked.
type LifecycleCallbacks struct {
	OnRunStart    *OnRunStartCallback
	OnRunEnd      *OnRunEndCallback
	OnProcessData *OnProcessDataCallback
	OnOrderStatus *OnOrderStatusCallback
}

// State is the lifecycle state of an engine.
type State string

const (
	StateInitializing State = "INITIALIZING"
	StateRunning      State = "RUNNING"
	StateFinished     State = "FINISHED"
)

// Engine drives one strategy over one bar sequence.
type Engine interface {
	// AddAnalyzer attaches an analyzer. It fails once the engine left Initializing.
	AddAnalyzer(a analyzer.Analyzer) error
	// Advance processes the next bar. After the last bar the engine is Finished
	// and further calls fail with ErrCodeEngineFinished.
	Advance() error
	// State returns the lifecycle state.
	State() State
	// Run advances until Finished or until ctx is cancelled.
	// The context is checked between bars; a cancelled run keeps everything committed so far.
	Run(ctx context.Context, callbacks LifecycleCallbacks) (types.RunResult, error)
	// Result assembles the run result from the current state.
	Result() types.RunResult
}

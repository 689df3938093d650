package engine

import (
	"context"

	"github.com/rxtech-lab/argo-backtest/internal/analyzer"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/runtime"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// RunSpec describes one independent run for RunMany.
type RunSpec struct {
	Config BacktestEngineV1Config
	Bars   []types.Bar
	// Strategy must not be shared with another spec.
	Strategy runtime.Strategy
	// Analyzers replaces the default analyzers when not empty. Instances must not be shared either.
	Analyzers []analyzer.Analyzer
}

// RunMany runs every spec on its own engine, at most concurrency at a time (0 means unbounded).
// Results are returned in spec order. The first failing run cancels the others.
func RunMany(ctx context.Context, specs []RunSpec, concurrency int, log *logger.Logger) ([]types.RunResult, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	results := make([]types.RunResult, len(specs))

	g, gctx := errgroup.WithContext(ctx)
	if concurrency > 0 {
		g.SetLimit(concurrency)
	}

	for i, spec := range specs {
		g.Go(func() error {
			result, err := runOne(gctx, spec, log)
			if err != nil {
				return errors.Wrapf(errors.GetCode(err), err, "run %d failed", i)
			}

			results[i] = result

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	log.Debug("All runs finished", zap.Int("runs", len(specs)))

	return results, nil
}

func runOne(ctx context.Context, spec RunSpec, log *logger.Logger) (types.RunResult, error) {
	bars, err := datasource.NewInMemoryBarSequence(spec.Bars)
	if err != nil {
		return types.RunResult{}, err
	}

	backtest, err := NewBacktestEngineV1(spec.Config, bars, spec.Strategy, WithLogger(log))
	if err != nil {
		return types.RunResult{}, err
	}

	if len(spec.Analyzers) == 0 {
		if err := backtest.AddDefaultAnalyzers(); err != nil {
			return types.RunResult{}, err
		}
	}

	for _, a := range spec.Analyzers {
		if err := backtest.AddAnalyzer(a); err != nil {
			return types.RunResult{}, err
		}
	}

	return backtest.Run(ctx, engine.LifecycleCallbacks{})
}

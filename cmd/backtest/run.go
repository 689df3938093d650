package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	engine_types "github.com/rxtech-lab/argo-backtest/internal/backtest/engine"
	engine "github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/strategy"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// runOptions carries the flags of the run command.
type runOptions struct {
	ConfigPath         string
	DataPath           string
	Strategy           string
	StrategyConfigPath string
	ResultsFolder      string
	LogLevel           string
	LogFile            string
	Quiet              bool
}

func runAction(ctx context.Context, cmd *cli.Command) error {
	opts := runOptions{
		ConfigPath:         cmd.String("config"),
		DataPath:           cmd.String("data"),
		Strategy:           cmd.String("strategy"),
		StrategyConfigPath: cmd.String("strategy-config"),
		ResultsFolder:      cmd.String("results"),
		LogLevel:           cmd.String("log-level"),
		LogFile:            cmd.String("log-file"),
		Quiet:              cmd.Bool("quiet"),
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	stats, err := runBacktest(ctx, opts)
	if err != nil {
		return err
	}

	fmt.Fprintln(cmd.Root().Writer, renderSummary(stats))

	return nil
}

// runBacktest loads the data, runs the strategy and writes the results folder.
func runBacktest(ctx context.Context, opts runOptions) (types.RunStats, error) {
	log, err := logger.NewLoggerWithOptions(logger.Options{
		Level:      opts.LogLevel,
		File:       opts.LogFile,
		MaxSizeMB:  0,
		MaxBackups: 3,
	})
	if err != nil {
		return types.RunStats{}, fmt.Errorf("failed to create logger: %w", err)
	}

	defer func() { _ = log.Sync() }()

	content, err := os.ReadFile(opts.ConfigPath)
	if err != nil {
		return types.RunStats{}, fmt.Errorf("failed to read config: %w", err)
	}

	config, err := engine.ParseConfig(content)
	if err != nil {
		return types.RunStats{}, err
	}

	var strategyConfig []byte
	if opts.StrategyConfigPath != "" {
		strategyConfig, err = os.ReadFile(opts.StrategyConfigPath)
		if err != nil {
			return types.RunStats{}, fmt.Errorf("failed to read strategy config: %w", err)
		}
	}

	strat, err := strategy.DefaultRegistry().New(opts.Strategy, strategyConfig)
	if err != nil {
		return types.RunStats{}, err
	}

	bars, err := loadBars(opts.DataPath, config, log)
	if err != nil {
		return types.RunStats{}, err
	}

	logStore, err := engine.NewBacktestLog(log)
	if err != nil {
		return types.RunStats{}, err
	}
	defer logStore.Close()

	backtest, err := engine.NewBacktestEngineV1(config, bars, strat,
		engine.WithLogger(log),
		engine.WithLogStore(logStore),
	)
	if err != nil {
		return types.RunStats{}, err
	}

	if err := backtest.AddDefaultAnalyzers(); err != nil {
		return types.RunStats{}, err
	}

	result, err := backtest.Run(ctx, progressCallbacks(log, opts.Quiet))
	if err != nil {
		return types.RunStats{}, err
	}

	writer, err := engine.NewResultsWriter(log)
	if err != nil {
		return types.RunStats{}, err
	}
	defer writer.Close()

	folder := engine.ResultFolder(opts.ResultsFolder, strat.Name(), opts.ConfigPath, opts.DataPath, config)

	return writer.Write(folder, result, logStore, opts.DataPath)
}

func loadBars(path string, config engine.BacktestEngineV1Config, log *logger.Logger) (*datasource.InMemoryBarSequence, error) {
	ds, err := datasource.NewDataSource(config.Columns, config.Symbol, log)
	if err != nil {
		return nil, err
	}
	defer ds.Close()

	if err := ds.Initialize(path); err != nil {
		return nil, err
	}

	return datasource.Preload(ds, config.StartTime, config.EndTime)
}

// progressCallbacks drives a progress bar from the engine lifecycle.
func progressCallbacks(log *logger.Logger, quiet bool) engine_types.LifecycleCallbacks {
	var bar *progressbar.ProgressBar

	onRunStart := engine_types.OnRunStartCallback(func(runID string, strategyName string, totalBars int) error {
		log.Info("Backtest started",
			zap.String("run_id", runID),
			zap.String("strategy", strategyName),
			zap.Int("bars", totalBars),
		)

		if !quiet {
			bar = progressbar.Default(int64(totalBars), strategyName)
		}

		return nil
	})

	onProcessData := engine_types.OnProcessDataCallback(func(current int, _ int) error {
		if bar == nil {
			return nil
		}

		return bar.Set(current)
	})

	onRunEnd := engine_types.OnRunEndCallback(func(result types.RunResult, err error) {
		if bar != nil {
			_ = bar.Finish()
		}

		if err != nil {
			log.Error("Backtest stopped", zap.String("run_id", result.ID), zap.Int("bars", result.Bars), zap.Error(err))

			return
		}

		log.Info("Backtest finished", zap.String("run_id", result.ID), zap.Float64("final_value", result.FinalValue))
	})

	return engine_types.LifecycleCallbacks{
		OnRunStart:    &onRunStart,
		OnRunEnd:      &onRunEnd,
		OnProcessData: &onProcessData,
		OnOrderStatus: nil,
	}
}

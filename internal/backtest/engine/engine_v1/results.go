package engine

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-backtest/internal/log"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
)

const (
	statsFileName  = "stats.yaml"
	tradesFileName = "trades.parquet"
	ordersFileName = "orders.parquet"
	logsFileName   = "logs.parquet"
)

// logExporter is implemented by log stores that can write their own parquet file.
type logExporter interface {
	Write(path string) error
}

// ResultsWriter exports a finished run as stats.yaml plus trades, orders and logs parquet files.
// Rows are staged in an in-memory DuckDB database and copied out with COPY ... TO.
type ResultsWriter struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

func NewResultsWriter(logger *logger.Logger) (*ResultsWriter, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		logger.Error("Failed to open database", zap.Error(err))

		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &ResultsWriter{
		db:     db,
		logger: logger,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}, nil
}

// Close closes the staging database.
func (w *ResultsWriter) Close() error {
	if w == nil || w.db == nil {
		return nil
	}

	return w.db.Close()
}

// Write exports result into path and returns the stats that were written.
// logs may be nil when the run recorded no strategy logs.
func (w *ResultsWriter) Write(path string, result types.RunResult, logs log.Log, dataPath string) (types.RunStats, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return types.RunStats{}, errors.Wrap(errors.ErrCodeResultsWriteFailed, "failed to create results folder", err)
	}

	if err := w.reset(); err != nil {
		return types.RunStats{}, errors.Wrap(errors.ErrCodeResultsWriteFailed, "failed to prepare results tables", err)
	}

	stats := types.NewRunStats(result)
	stats.DataPath = dataPath
	stats.TradesFilePath = filepath.Join(path, tradesFileName)
	stats.OrdersFilePath = filepath.Join(path, ordersFileName)

	if err := w.insertTrades(result.Trades); err != nil {
		return types.RunStats{}, errors.Wrap(errors.ErrCodeResultsWriteFailed, "failed to stage trades", err)
	}

	if err := w.insertOrders(result.Orders); err != nil {
		return types.RunStats{}, errors.Wrap(errors.ErrCodeResultsWriteFailed, "failed to stage orders", err)
	}

	if err := w.copyTo("trades", stats.TradesFilePath); err != nil {
		return types.RunStats{}, err
	}

	if err := w.copyTo("orders", stats.OrdersFilePath); err != nil {
		return types.RunStats{}, err
	}

	if logs != nil {
		logsPath, err := w.writeLogs(path, logs)
		if err != nil {
			return types.RunStats{}, err
		}

		stats.LogsFilePath = logsPath
	}

	if err := types.WriteRunStats(filepath.Join(path, statsFileName), stats); err != nil {
		return types.RunStats{}, errors.Wrap(errors.ErrCodeResultsWriteFailed, "failed to write stats", err)
	}

	w.logger.Info("Successfully exported backtest results",
		zap.String("run_id", result.ID),
		zap.String("folder", path),
		zap.Int("trades", len(result.Trades)),
		zap.Int("orders", len(result.Orders)),
	)

	return stats, nil
}

func (w *ResultsWriter) reset() error {
	_, err := w.db.Exec(`
		DROP TABLE IF EXISTS trades;
		DROP TABLE IF EXISTS orders;
		DROP TABLE IF EXISTS logs;
		CREATE TABLE trades (
			id INTEGER,
			symbol TEXT,
			status TEXT,
			is_long BOOLEAN,
			max_size DOUBLE,
			open_bar_index INTEGER,
			close_bar_index INTEGER,
			open_time TIMESTAMP,
			close_time TIMESTAMP,
			entry_price DOUBLE,
			exit_price DOUBLE,
			pnl DOUBLE,
			pnl_net DOUBLE,
			commission DOUBLE,
			bar_length INTEGER
		);
		CREATE TABLE orders (
			id BIGINT,
			symbol TEXT,
			side TEXT,
			size DOUBLE,
			exec_type TEXT,
			price DOUBLE,
			valid_until TIMESTAMP,
			status TEXT,
			created_bar_index INTEGER,
			created_at TIMESTAMP,
			executed_price DOUBLE,
			executed_size DOUBLE,
			executed_commission DOUBLE,
			executed_bar_index INTEGER,
			executed_at TIMESTAMP,
			reason TEXT
		);
		CREATE TABLE logs (
			id INTEGER,
			timestamp TIMESTAMP,
			bar_index INTEGER,
			symbol TEXT,
			level TEXT,
			message TEXT
		);
	`)

	return err
}

func (w *ResultsWriter) insertTrades(trades []types.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	insert := w.sq.Insert("trades").Columns(
		"id", "symbol", "status", "is_long", "max_size", "open_bar_index", "close_bar_index",
		"open_time", "close_time", "entry_price", "exit_price", "pnl", "pnl_net", "commission", "bar_length",
	)

	for _, trade := range trades {
		insert = insert.Values(
			trade.ID, trade.Symbol, string(trade.Status), trade.Long, trade.MaxSize, trade.OpenBarIndex,
			nullable(trade.CloseBarIndex), trade.OpenTime, nullable(trade.CloseTime), trade.EntryPrice,
			nullable(trade.ExitPrice), trade.PnL, trade.PnLNet, trade.Commission, trade.BarLength,
		)
	}

	_, err := insert.RunWith(w.db).Exec()

	return err
}

func (w *ResultsWriter) insertOrders(orders []types.Order) error {
	if len(orders) == 0 {
		return nil
	}

	insert := w.sq.Insert("orders").Columns(
		"id", "symbol", "side", "size", "exec_type", "price", "valid_until", "status",
		"created_bar_index", "created_at", "executed_price", "executed_size", "executed_commission",
		"executed_bar_index", "executed_at", "reason",
	)

	for _, order := range orders {
		var executedPrice, executedSize, executedCommission, executedBarIndex, executedAt any

		if order.Executed.IsSome() {
			execution := order.Executed.Unwrap()
			executedPrice = execution.Price
			executedSize = execution.Size
			executedCommission = execution.Commission
			executedBarIndex = execution.BarIndex
			executedAt = execution.Time
		}

		insert = insert.Values(
			int64(order.ID), order.Symbol, string(order.Side), order.Size, string(order.ExecType),
			nullable(order.Price), nullable(order.ValidUntil), string(order.Status), order.CreatedBarIndex,
			nullableTime(order.CreatedAt), executedPrice, executedSize, executedCommission,
			executedBarIndex, executedAt, order.Reason,
		)
	}

	_, err := insert.RunWith(w.db).Exec()

	return err
}

func (w *ResultsWriter) writeLogs(path string, logs log.Log) (string, error) {
	logsPath := filepath.Join(path, logsFileName)

	if exporter, ok := logs.(logExporter); ok {
		if err := exporter.Write(path); err != nil {
			return "", errors.Wrap(errors.ErrCodeResultsWriteFailed, "failed to export logs", err)
		}

		return logsPath, nil
	}

	entries, err := logs.GetLogs()
	if err != nil {
		return "", errors.Wrap(errors.ErrCodeResultsWriteFailed, "failed to read logs", err)
	}

	if len(entries) > 0 {
		insert := w.sq.Insert("logs").Columns("id", "timestamp", "bar_index", "symbol", "level", "message")
		for i, entry := range entries {
			insert = insert.Values(i+1, entry.Timestamp, entry.BarIndex, entry.Symbol, string(entry.Level), entry.Message)
		}

		if _, err := insert.RunWith(w.db).Exec(); err != nil {
			return "", errors.Wrap(errors.ErrCodeResultsWriteFailed, "failed to stage logs", err)
		}
	}

	if err := w.copyTo("logs", logsPath); err != nil {
		return "", err
	}

	return logsPath, nil
}

// copyTo exports table to a parquet file. Squirrel does not build COPY statements.
func (w *ResultsWriter) copyTo(table string, path string) error {
	_, err := w.db.Exec(fmt.Sprintf(`COPY %s TO '%s' (FORMAT PARQUET)`, table, strings.ReplaceAll(path, "'", "''")))
	if err != nil {
		return errors.Wrapf(errors.ErrCodeResultsWriteFailed, err, "failed to export %s to parquet", table)
	}

	return nil
}

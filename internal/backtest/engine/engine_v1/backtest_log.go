package engine

import (
	"database/sql"
	"encoding/json"
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

const logsTableDDL = `
	CREATE TABLE IF NOT EXISTS logs (
		id INTEGER PRIMARY KEY,
		timestamp TIMESTAMP,
		bar_index INTEGER,
		symbol TEXT,
		level TEXT,
		message TEXT,
		fields TEXT
	)`

var logColumns = []string{"id", "timestamp", "bar_index", "symbol", "level", "message", "fields"}

// BacktestLog stores strategy log entries in an in-memory DuckDB table so
// they can be filtered with SQL and exported as parquet next to the run results.
type BacktestLog struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
	// lastID is the id of the most recent entry. Ids start at 1 after every Cleanup.
	lastID int
}

var _ log.Log = (*BacktestLog)(nil)

// NewBacktestLog opens the in-memory database and creates the logs table.
func NewBacktestLog(logger *logger.Logger) (*BacktestLog, error) {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open log database", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()

		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to connect to log database", err)
	}

	store := &BacktestLog{
		db:     db,
		logger: logger,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		lastID: 0,
	}

	if err := store.initialize(); err != nil {
		db.Close()

		return nil, err
	}

	return store, nil
}

func (l *BacktestLog) ready() error {
	if l == nil || l.db == nil {
		return errors.New(errors.ErrCodeDataSourceUnavailable, "log store is not open")
	}

	return nil
}

// Log implements log.Log.
func (l *BacktestLog) Log(entry log.LogEntry) error {
	if err := l.ready(); err != nil {
		return err
	}

	fields := ""

	if len(entry.Fields) > 0 {
		encoded, err := json.Marshal(entry.Fields)
		if err != nil {
			return errors.Wrap(errors.ErrCodeInvalidParameter, "failed to encode log fields", err)
		}

		fields = string(encoded)
	}

	id := l.lastID + 1

	_, err := l.sq.Insert("logs").
		Columns(logColumns...).
		Values(id, entry.Timestamp, entry.BarIndex, entry.Symbol, string(entry.Level), entry.Message, fields).
		RunWith(l.db).
		Exec()
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to insert log entry", err)
	}

	l.lastID = id

	return nil
}

// GetLogs implements log.Log.
func (l *BacktestLog) GetLogs() ([]log.LogEntry, error) {
	if err := l.ready(); err != nil {
		return nil, err
	}

	return l.query(l.sq.Select(logColumns...).From("logs").OrderBy("id ASC"))
}

// GetLogsByLevel returns the entries recorded at level in insertion order.
func (l *BacktestLog) GetLogsByLevel(level types.LogLevel) ([]log.LogEntry, error) {
	if err := l.ready(); err != nil {
		return nil, err
	}

	return l.query(l.sq.Select(logColumns...).
		From("logs").
		Where(squirrel.Eq{"level": string(level)}).
		OrderBy("id ASC"))
}

func (l *BacktestLog) query(builder squirrel.SelectBuilder) ([]log.LogEntry, error) {
	rows, err := builder.RunWith(l.db).Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query logs", err)
	}
	defer rows.Close()

	var entries []log.LogEntry

	for rows.Next() {
		entry, err := scanLogEntry(rows)
		if err != nil {
			return nil, err
		}

		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to iterate logs", err)
	}

	return entries, nil
}

func scanLogEntry(rows *sql.Rows) (log.LogEntry, error) {
	var (
		id     int
		level  string
		fields sql.NullString
		entry  log.LogEntry
	)

	if err := rows.Scan(&id, &entry.Timestamp, &entry.BarIndex, &entry.Symbol, &level, &entry.Message, &fields); err != nil {
		return log.LogEntry{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan log entry", err)
	}

	entry.Level = types.LogLevel(level)

	if fields.Valid && fields.String != "" {
		if err := json.Unmarshal([]byte(fields.String), &entry.Fields); err != nil {
			return log.LogEntry{}, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to decode fields of log %d", id)
		}
	}

	return entry, nil
}

// Count returns the number of recorded entries.
func (l *BacktestLog) Count() (int, error) {
	if err := l.ready(); err != nil {
		return 0, err
	}

	var count int

	if err := l.sq.Select("COUNT(*)").From("logs").RunWith(l.db).QueryRow().Scan(&count); err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to count logs", err)
	}

	return count, nil
}

// Write exports the table to logs.parquet inside dir, creating dir when needed.
func (l *BacktestLog) Write(dir string) error {
	if err := l.ready(); err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.Wrap(errors.ErrCodeResultsWriteFailed, "failed to create log directory", err)
	}

	path := filepath.Join(dir, logsFileName)

	// squirrel has no COPY builder
	if _, err := l.db.Exec(fmt.Sprintf(`COPY logs TO '%s' (FORMAT PARQUET)`, strings.ReplaceAll(path, "'", "''"))); err != nil {
		return errors.Wrap(errors.ErrCodeResultsWriteFailed, "failed to export logs to parquet", err)
	}

	if l.logger != nil {
		l.logger.Debug("Exported strategy logs", zap.String("path", path), zap.Int("entries", l.lastID))
	}

	return nil
}

// Cleanup drops every entry and restarts ids at 1.
func (l *BacktestLog) Cleanup() error {
	if err := l.ready(); err != nil {
		return err
	}

	if _, err := l.db.Exec(`DROP TABLE IF EXISTS logs`); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to drop logs table", err)
	}

	l.lastID = 0

	return l.initialize()
}

// Close closes the database. Closing a nil store is a no-op.
func (l *BacktestLog) Close() error {
	if l == nil || l.db == nil {
		return nil
	}

	return l.db.Close()
}

func (l *BacktestLog) initialize() error {
	if _, err := l.db.Exec(logsTableDDL); err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to create logs table", err)
	}

	return nil
}

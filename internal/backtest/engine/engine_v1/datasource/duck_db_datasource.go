package datasource

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
)

const barView = "bars"

type DuckDBDataSource struct {
	db      *sql.DB
	logger  *logger.Logger
	sq      squirrel.StatementBuilderType
	mapping ColumnMapping
	symbol  string
	ready   bool
}

// NewDataSource opens an in-memory DuckDB database. Bars are mapped onto the
// canonical columns using mapping; symbol is used when the mapping has no symbol column.
func NewDataSource(mapping ColumnMapping, symbol string, logger *logger.Logger) (*DuckDBDataSource, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataSourceUnavailable, "failed to open duckdb", err)
	}

	if mapping.Time == "" || mapping.Open == "" || mapping.High == "" || mapping.Low == "" || mapping.Close == "" {
		db.Close()

		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "column mapping must name time, open, high, low and close columns")
	}

	return &DuckDBDataSource{
		db:      db,
		logger:  logger,
		sq:      squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		mapping: mapping,
		symbol:  symbol,
		ready:   false,
	}, nil
}

// Initialize implements DataSource. The file type is chosen by extension: .parquet is
// read with read_parquet, anything else with read_csv_auto.
func (d *DuckDBDataSource) Initialize(path string) error {
	d.logger.Debug("Initializing DuckDB data source", zap.String("path", path))

	if path == "" {
		return errors.New(errors.ErrCodeMissingParameter, "data path is required")
	}

	_, err := d.db.Exec(fmt.Sprintf("DROP VIEW IF EXISTS %s;", barView))
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to drop existing view", err)
	}

	reader := fmt.Sprintf("read_csv_auto('%s', header=true)", escapeLiteral(path))
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		reader = fmt.Sprintf("read_parquet('%s')", escapeLiteral(path))
	}

	// squirrel has no CREATE VIEW support, so only the projection is built with it
	projection, _, err := d.sq.Select(d.projectionColumns()...).From(reader).ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeQueryFailed, "failed to build projection", err)
	}

	_, err = d.db.Exec(fmt.Sprintf("CREATE VIEW %s AS %s;", barView, projection))
	if err != nil {
		return errors.Wrapf(errors.ErrCodeDataNotFound, err, "failed to load bars from %s", path)
	}

	d.ready = true

	return nil
}

func (d *DuckDBDataSource) projectionColumns() []string {
	m := d.mapping

	timeExpr := fmt.Sprintf("CAST(%s AS TIMESTAMP)", quoteIdent(m.Time))
	if m.TimeFormat != "" {
		timeExpr = fmt.Sprintf("strptime(CAST(%s AS VARCHAR), '%s')", quoteIdent(m.Time), escapeLiteral(m.TimeFormat))
	}

	symbolExpr := fmt.Sprintf("'%s'", escapeLiteral(d.symbol))
	if m.Symbol != "" {
		symbolExpr = fmt.Sprintf("CAST(%s AS VARCHAR)", quoteIdent(m.Symbol))
	}

	volumeExpr := "CAST(0 AS DOUBLE)"
	if m.Volume != "" {
		volumeExpr = fmt.Sprintf("CAST(%s AS DOUBLE)", quoteIdent(m.Volume))
	}

	openInterestExpr := "CAST(0 AS DOUBLE)"
	if m.OpenInterest != "" {
		openInterestExpr = fmt.Sprintf("CAST(%s AS DOUBLE)", quoteIdent(m.OpenInterest))
	}

	return []string{
		timeExpr + " AS time",
		symbolExpr + " AS symbol",
		fmt.Sprintf("CAST(%s AS DOUBLE) AS open", quoteIdent(m.Open)),
		fmt.Sprintf("CAST(%s AS DOUBLE) AS high", quoteIdent(m.High)),
		fmt.Sprintf("CAST(%s AS DOUBLE) AS low", quoteIdent(m.Low)),
		fmt.Sprintf("CAST(%s AS DOUBLE) AS close", quoteIdent(m.Close)),
		volumeExpr + " AS volume",
		openInterestExpr + " AS open_interest",
	}
}

func (d *DuckDBDataSource) withBounds(query squirrel.SelectBuilder, start optional.Option[time.Time], end optional.Option[time.Time]) squirrel.SelectBuilder {
	if start.IsSome() {
		query = query.Where(squirrel.GtOrEq{"time": start.Unwrap()})
	}

	if end.IsSome() {
		query = query.Where(squirrel.LtOrEq{"time": end.Unwrap()})
	}

	return query
}

// Count implements DataSource.
func (d *DuckDBDataSource) Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error) {
	if !d.ready {
		return 0, errors.New(errors.ErrCodeDataSourceUnavailable, "data source is not initialized")
	}

	query, args, err := d.withBounds(d.sq.Select("COUNT(*)").From(barView), start, end).ToSql()
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build count query", err)
	}

	var count int

	err = d.db.QueryRow(query, args...).Scan(&count)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to count bars", err)
	}

	return count, nil
}

// ReadAll implements DataSource.
func (d *DuckDBDataSource) ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.Bar, error) bool) {
	return func(yield func(types.Bar, error) bool) {
		if !d.ready {
			yield(types.Bar{}, errors.New(errors.ErrCodeDataSourceUnavailable, "data source is not initialized"))

			return
		}

		query, args, err := d.withBounds(
			d.sq.Select("time", "symbol", "open", "high", "low", "close", "volume", "open_interest").From(barView),
			start, end,
		).OrderBy("time ASC").ToSql()
		if err != nil {
			yield(types.Bar{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build bar query", err))

			return
		}

		d.logger.Debug("Reading bars from DuckDB", zap.String("query", query))

		rows, err := d.db.Query(query, args...)
		if err != nil {
			yield(types.Bar{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query bars", err))

			return
		}
		defer rows.Close()

		for rows.Next() {
			var bar types.Bar

			err := rows.Scan(&bar.Time, &bar.Symbol, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume, &bar.OpenInterest)
			if err != nil {
				yield(types.Bar{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan bar", err))

				return
			}

			if !yield(bar, nil) {
				return
			}
		}

		if err := rows.Err(); err != nil {
			yield(types.Bar{}, errors.Wrap(errors.ErrCodeQueryFailed, "failed to iterate bars", err))
		}
	}
}

// Close implements DataSource.
func (d *DuckDBDataSource) Close() error {
	return d.db.Close()
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func escapeLiteral(value string) string {
	return strings.ReplaceAll(value, "'", "''")
}

package datasource

import (
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

type Interval string

const (
	Interval1m  Interval = "1m"
	Interval5m  Interval = "5m"
	Interval15m Interval = "15m"
	Interval30m Interval = "30m"
	Interval1h  Interval = "1h"
	Interval4h  Interval = "4h"
	Interval1d  Interval = "1d"
	Interval1w  Interval = "1w"
	Interval1M  Interval = "1M"
)

var AllIntervals = []any{
	Interval1m, Interval5m, Interval15m, Interval30m, Interval1h, Interval4h, Interval1d, Interval1w, Interval1M,
}

// BarSequence is an ordered, read-only sequence of bars for one instrument with a live cursor.
type BarSequence interface {
	// Len returns the number of bars in the sequence.
	Len() int
	// At returns the bar at an absolute index.
	At(index int) (types.Bar, error)
	// Current returns the bar at the cursor.
	Current() (types.Bar, error)
	// Ago returns the bar k positions before the cursor (k >= 0). Ago(0) is Current().
	Ago(k int) (types.Bar, error)
	// Cursor returns the index of the bar being processed.
	Cursor() int
	// SetCursor moves the cursor. Only the engine calls this.
	SetCursor(index int)
}

// DataSource loads bars from an external store. Column mapping and parsing live here, not in the engine.
type DataSource interface {
	// Initialize points the data source at a CSV or Parquet file.
	Initialize(path string) error
	// ReadAll yields bars in ascending time order within the optional bounds.
	ReadAll(start optional.Option[time.Time], end optional.Option[time.Time]) func(yield func(types.Bar, error) bool)
	// Count returns the number of bars within the optional bounds.
	Count(start optional.Option[time.Time], end optional.Option[time.Time]) (int, error)
	// Close releases any resources.
	Close() error
}

// ColumnMapping maps source columns onto bar fields.
type ColumnMapping struct {
	Time   string `yaml:"time" json:"time"`
	Open   string `yaml:"open" json:"open"`
	High   string `yaml:"high" json:"high"`
	Low    string `yaml:"low" json:"low"`
	Close  string `yaml:"close" json:"close"`
	Volume string `yaml:"volume" json:"volume"`
	// OpenInterest is optional. Empty means the source has no such column and 0 is used.
	OpenInterest string `yaml:"open_interest" json:"open_interest"`
	// Symbol is optional. Empty means the data source's default symbol is used.
	Symbol string `yaml:"symbol" json:"symbol"`
	// TimeFormat is a strptime format for text or integer date columns, e.g. %Y%m%d.
	// Empty means the column is already a timestamp.
	TimeFormat string `yaml:"time_format" json:"time_format"`
}

// DefaultColumnMapping expects columns named after the bar fields.
func DefaultColumnMapping() ColumnMapping {
	return ColumnMapping{
		Time:         "time",
		Open:         "open",
		High:         "high",
		Low:          "low",
		Close:        "close",
		Volume:       "volume",
		OpenInterest: "",
		Symbol:       "",
		TimeFormat:   "",
	}
}

package indicator

import (
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// Line is a per-bar series of values that can be looked back on.
type Line interface {
	// Name returns the name of the line
	Name() string
	// Value returns the value k bars ago. Value(0) is the value for the current bar.
	// It fails with *errors.NotReadyError until enough bars have been seen.
	Value(ago int) (float64, error)
	// Ready reports whether Value(0) is defined.
	Ready() bool
}

// Indicator is a Line computed incrementally from a bar sequence.
type Indicator interface {
	Line
	// MinPeriod is the number of bars needed before the first value is defined.
	MinPeriod() int
	// Update computes the value for the bar at the sequence cursor.
	// Inputs are updated first, and repeated calls for the same cursor are no-ops.
	Update(bars datasource.BarSequence) error
}

// series stores computed values and remembers which cursor was last processed.
type series struct {
	name       string
	required   int
	values     []float64
	bars       int
	lastCursor int
}

func newSeries(name string, required int) series {
	return series{
		name:       name,
		required:   required,
		values:     nil,
		bars:       0,
		lastCursor: -1,
	}
}

// seen reports whether the cursor was already processed, and marks it processed otherwise.
func (s *series) seen(cursor int) bool {
	if cursor == s.lastCursor {
		return true
	}

	s.lastCursor = cursor
	s.bars++

	return false
}

func (s *series) push(value float64) {
	s.values = append(s.values, value)
}

func (s *series) Name() string {
	return s.name
}

func (s *series) Ready() bool {
	return len(s.values) > 0
}

func (s *series) Value(ago int) (float64, error) {
	if ago < 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "lookback offset must be >= 0, got %d", ago)
	}

	if ago >= len(s.values) {
		return 0, errors.NewNotReadyError(s.name, s.required+ago, s.bars)
	}

	return s.values[len(s.values)-1-ago], nil
}

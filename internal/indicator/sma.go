package indicator

import (
	"fmt"

	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// SMA is the simple moving average of a source line over a fixed window.
// It keeps a running sum so each update is O(1).
type SMA struct {
	series
	source Indicator
	period int
	window []float64
	pos    int
	filled int
	sum    float64
}

// NewSMA creates an SMA over the close price.
func NewSMA(period int) (*SMA, error) {
	return NewSMAOf(NewCloseLine(), period)
}

// NewSMAOf creates an SMA over an arbitrary source indicator.
func NewSMAOf(source Indicator, period int) (*SMA, error) {
	if period <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "period must be a positive integer, got %d", period)
	}

	if source == nil {
		return nil, errors.New(errors.ErrCodeMissingParameter, "sma source is required")
	}

	return &SMA{
		series: newSeries(fmt.Sprintf("sma(%s,%d)", source.Name(), period), source.MinPeriod()+period-1),
		source: source,
		period: period,
		window: make([]float64, period),
		pos:    0,
		filled: 0,
		sum:    0,
	}, nil
}

// Period returns the window length.
func (s *SMA) Period() int {
	return s.period
}

func (s *SMA) MinPeriod() int {
	return s.required
}

func (s *SMA) Update(bars datasource.BarSequence) error {
	if s.seen(bars.Cursor()) {
		return nil
	}

	if err := s.source.Update(bars); err != nil {
		return err
	}

	if !s.source.Ready() {
		return nil
	}

	value, err := s.source.Value(0)
	if err != nil {
		return err
	}

	if s.filled == s.period {
		s.sum -= s.window[s.pos]
	} else {
		s.filled++
	}

	s.window[s.pos] = value
	s.sum += value
	s.pos = (s.pos + 1) % s.period

	if s.filled == s.period {
		s.push(s.sum / float64(s.period))
	}

	return nil
}

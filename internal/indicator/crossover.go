package indicator

import (
	"fmt"

	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// CrossOver emits +1 when a crosses above b, -1 when a crosses below b and 0 otherwise.
// A crossing is a change in sign of a-b between the previous and the current bar,
// with the direction given by the current sign.
type CrossOver struct {
	series
	a Indicator
	b Indicator
}

// NewCrossOver creates a crossover signal of a over b.
func NewCrossOver(a Indicator, b Indicator) (*CrossOver, error) {
	if a == nil || b == nil {
		return nil, errors.New(errors.ErrCodeMissingParameter, "crossover needs two lines")
	}

	return &CrossOver{
		series: newSeries(fmt.Sprintf("crossover(%s,%s)", a.Name(), b.Name()), max(a.MinPeriod(), b.MinPeriod())+1),
		a:      a,
		b:      b,
	}, nil
}

func (c *CrossOver) MinPeriod() int {
	return c.required
}

func (c *CrossOver) Update(bars datasource.BarSequence) error {
	if c.seen(bars.Cursor()) {
		return nil
	}

	if err := c.a.Update(bars); err != nil {
		return err
	}

	if err := c.b.Update(bars); err != nil {
		return err
	}

	current, ok := c.diff(0)
	if !ok {
		return nil
	}

	previous, ok := c.diff(1)
	if !ok {
		return nil
	}

	c.push(crossSignal(previous, current))

	return nil
}

func (c *CrossOver) diff(ago int) (float64, bool) {
	a, err := c.a.Value(ago)
	if err != nil {
		return 0, false
	}

	b, err := c.b.Value(ago)
	if err != nil {
		return 0, false
	}

	return a - b, true
}

func crossSignal(previous, current float64) float64 {
	if sign(previous) == sign(current) {
		return 0
	}

	return float64(sign(current))
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

package indicator

import (
	"fmt"

	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/datasource"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// PriceLine exposes one field of the bar as a line, so bar prices can be fed to other indicators.
type PriceLine struct {
	series
	field types.PriceField
}

// NewPriceLine creates a line over the given bar field.
func NewPriceLine(field types.PriceField) *PriceLine {
	return &PriceLine{
		series: newSeries(string(field), 1),
		field:  field,
	}
}

// NewCloseLine is shorthand for NewPriceLine(types.PriceFieldClose).
func NewCloseLine() *PriceLine {
	return NewPriceLine(types.PriceFieldClose)
}

func (p *PriceLine) MinPeriod() int {
	return 1
}

func (p *PriceLine) Update(bars datasource.BarSequence) error {
	if p.seen(bars.Cursor()) {
		return nil
	}

	bar, err := bars.Current()
	if err != nil {
		return fmt.Errorf("failed to read bar for %s: %w", p.name, err)
	}

	p.push(bar.Field(p.field))

	return nil
}

package datasource

import (
	"math"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// InMemoryBarSequence holds every bar of a run in a slice and gives O(1) indexed access.
// It is read-only after construction apart from the cursor, which only the engine moves.
type InMemoryBarSequence struct {
	bars   []types.Bar
	cursor int
}

// NewInMemoryBarSequence validates that prices are finite and timestamps are strictly
// increasing, then wraps the bars.
// The slice is copied so later changes by the caller do not leak into the run.
func NewInMemoryBarSequence(bars []types.Bar) (*InMemoryBarSequence, error) {
	for i, bar := range bars {
		for _, field := range []types.PriceField{types.PriceFieldOpen, types.PriceFieldHigh, types.PriceFieldLow, types.PriceFieldClose, types.PriceFieldVolume} {
			if v := bar.Field(field); math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, errors.Newf(errors.ErrCodeInvalidBarSequence, "bar %d has non-finite %s: %v", i, field, v)
			}
		}
	}

	for i := 1; i < len(bars); i++ {
		if !bars[i].Time.After(bars[i-1].Time) {
			return nil, errors.Newf(errors.ErrCodeInvalidBarSequence,
				"bar timestamps must be strictly increasing: bar %d (%s) is not after bar %d (%s)",
				i, bars[i].Time.Format(time.RFC3339), i-1, bars[i-1].Time.Format(time.RFC3339))
		}
	}

	owned := make([]types.Bar, len(bars))
	copy(owned, bars)

	return &InMemoryBarSequence{
		bars:   owned,
		cursor: 0,
	}, nil
}

// Preload drains a data source into an in-memory sequence.
func Preload(ds DataSource, start optional.Option[time.Time], end optional.Option[time.Time]) (*InMemoryBarSequence, error) {
	var bars []types.Bar

	for bar, err := range ds.ReadAll(start, end) {
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeDataNotFound, "failed to preload bars", err)
		}

		bars = append(bars, bar)
	}

	return NewInMemoryBarSequence(bars)
}

// Len implements BarSequence.
func (s *InMemoryBarSequence) Len() int {
	return len(s.bars)
}

// At implements BarSequence.
func (s *InMemoryBarSequence) At(index int) (types.Bar, error) {
	if index < 0 || index >= len(s.bars) {
		return types.Bar{}, errors.NewIndexError(index, len(s.bars))
	}

	return s.bars[index], nil
}

// Current implements BarSequence.
func (s *InMemoryBarSequence) Current() (types.Bar, error) {
	return s.At(s.cursor)
}

// Ago implements BarSequence.
func (s *InMemoryBarSequence) Ago(k int) (types.Bar, error) {
	if k < 0 {
		return types.Bar{}, errors.Newf(errors.ErrCodeInvalidParameter, "lookback offset must be >= 0, got %d", k)
	}

	return s.At(s.cursor - k)
}

// Cursor implements BarSequence.
func (s *InMemoryBarSequence) Cursor() int {
	return s.cursor
}

// SetCursor implements BarSequence.
func (s *InMemoryBarSequence) SetCursor(index int) {
	s.cursor = index
}

// Bars returns a copy of every bar in the sequence.
func (s *InMemoryBarSequence) Bars() []types.Bar {
	out := make([]types.Bar, len(s.bars))
	copy(out, s.bars)

	return out
}

package datasource

import (
	"math"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type InMemoryBarSequenceTestSuite struct {
	suite.Suite
	bars []types.Bar
}

func TestInMemoryBarSequenceSuite(t *testing.T) {
	suite.Run(t, new(InMemoryBarSequenceTestSuite))
}

func (suite *InMemoryBarSequenceTestSuite) SetupTest() {
	start := time.Date(2019, 1, 2, 0, 0, 0, 0, time.UTC)
	suite.bars = nil

	for i, closePrice := range []float64{10, 11, 9, 12, 8} {
		suite.bars = append(suite.bars, types.Bar{
			Symbol: "600000",
			Time:   start.AddDate(0, 0, i),
			Open:   closePrice,
			High:   closePrice + 1,
			Low:    closePrice - 1,
			Close:  closePrice,
		})
	}
}

func (suite *InMemoryBarSequenceTestSuite) TestIndexedAccess() {
	seq, err := NewInMemoryBarSequence(suite.bars)
	suite.Require().NoError(err)

	suite.Equal(5, seq.Len())

	bar, err := seq.At(3)
	suite.NoError(err)
	suite.Equal(12.0, bar.Close)

	_, err = seq.At(5)
	suite.True(errors.IsIndexError(err))

	_, err = seq.At(-1)
	suite.True(errors.IsIndexError(err))
}

func (suite *InMemoryBarSequenceTestSuite) TestRejectsNonFinitePrices() {
	cases := []struct {
		name   string
		mutate func(bar *types.Bar)
	}{
		{"NaN close", func(bar *types.Bar) { bar.Close = math.NaN() }},
		{"infinite high", func(bar *types.Bar) { bar.High = math.Inf(1) }},
		{"negative infinite low", func(bar *types.Bar) { bar.Low = math.Inf(-1) }},
		{"NaN open", func(bar *types.Bar) { bar.Open = math.NaN() }},
		{"NaN volume", func(bar *types.Bar) { bar.Volume = math.NaN() }},
	}

	for _, tc := range cases {
		suite.Run(tc.name, func() {
			bars := append([]types.Bar(nil), suite.bars...)
			tc.mutate(&bars[2])

			_, err := NewInMemoryBarSequence(bars)
			suite.True(errors.HasCode(err, errors.ErrCodeInvalidBarSequence))
		})
	}
}

func (suite *InMemoryBarSequenceTestSuite) TestCursorLookback() {
	seq, err := NewInMemoryBarSequence(suite.bars)
	suite.Require().NoError(err)

	seq.SetCursor(2)
	suite.Equal(2, seq.Cursor())

	current, err := seq.Current()
	suite.NoError(err)
	suite.Equal(9.0, current.Close)

	previous, err := seq.Ago(1)
	suite.NoError(err)
	suite.Equal(11.0, previous.Close)

	first, err := seq.Ago(2)
	suite.NoError(err)
	suite.Equal(10.0, first.Close)

	_, err = seq.Ago(3)
	suite.True(errors.IsIndexError(err))

	_, err = seq.Ago(-1)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
}

func (suite *InMemoryBarSequenceTestSuite) TestRejectsNonIncreasingTimestamps() {
	bars := append([]types.Bar{}, suite.bars...)
	bars[3].Time = bars[2].Time

	_, err := NewInMemoryBarSequence(bars)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidBarSequence))

	bars[3].Time = bars[1].Time
	_, err = NewInMemoryBarSequence(bars)
	suite.Error(err)
}

func (suite *InMemoryBarSequenceTestSuite) TestCopiesInput() {
	seq, err := NewInMemoryBarSequence(suite.bars)
	suite.Require().NoError(err)

	suite.bars[0].Close = 999

	bar, _ := seq.At(0)
	suite.Equal(10.0, bar.Close)
	suite.Equal(10.0, seq.Bars()[0].Close)
}

func (suite *InMemoryBarSequenceTestSuite) TestEmptySequence() {
	seq, err := NewInMemoryBarSequence(nil)
	suite.Require().NoError(err)
	suite.Equal(0, seq.Len())

	_, err = seq.Current()
	suite.True(errors.IsIndexError(err))
}

type sliceDataSource struct {
	bars []types.Bar
	err  error
}

func (s *sliceDataSource) Initialize(string) error { return nil }

func (s *sliceDataSource) ReadAll(optional.Option[time.Time], optional.Option[time.Time]) func(yield func(types.Bar, error) bool) {
	return func(yield func(types.Bar, error) bool) {
		for _, bar := range s.bars {
			if !yield(bar, nil) {
				return
			}
		}

		if s.err != nil {
			yield(types.Bar{}, s.err)
		}
	}
}

func (s *sliceDataSource) Count(optional.Option[time.Time], optional.Option[time.Time]) (int, error) {
	return len(s.bars), nil
}

func (s *sliceDataSource) Close() error { return nil }

func (suite *InMemoryBarSequenceTestSuite) TestPreload() {
	seq, err := Preload(&sliceDataSource{bars: suite.bars}, optional.None[time.Time](), optional.None[time.Time]())
	suite.Require().NoError(err)
	suite.Equal(5, seq.Len())

	_, err = Preload(&sliceDataSource{bars: suite.bars, err: errors.New(errors.ErrCodeQueryFailed, "boom")},
		optional.None[time.Time](), optional.None[time.Time]())
	suite.True(errors.HasCode(err, errors.ErrCodeDataNotFound))
}

package analyzer

import (
	"math"
	"testing"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/stretchr/testify/suite"
)

type AnalyzerTestSuite struct {
	suite.Suite
	start time.Time
}

func TestAnalyzerSuite(t *testing.T) {
	suite.Run(t, new(AnalyzerTestSuite))
}

func (suite *AnalyzerTestSuite) SetupTest() {
	suite.start = time.Date(2019, 12, 30, 0, 0, 0, 0, time.UTC)
}

func (suite *AnalyzerTestSuite) feed(a Analyzer, values ...float64) {
	for i, v := range values {
		a.OnBarClosed(types.Snapshot{
			BarIndex: i,
			Time:     suite.start.AddDate(0, 0, i),
			Cash:     v,
			Value:    v,
		})
	}
}

func (suite *AnalyzerTestSuite) TestSharpeNaNWhenUndefined() {
	tests := []struct {
		name   string
		values []float64
	}{
		{"no bars", nil},
		{"one bar", []float64{100}},
		{"one return", []float64{100, 101}},
		{"flat equity", []float64{100, 100, 100, 100}},
		{"constant growth", []float64{100, 110, 121, 133.1}},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			sharpe := NewSharpeRatio(0, 252)
			suite.feed(sharpe, tc.values...)

			result := sharpe.OnFinish()
			suite.Equal(NameSharpeRatio, result.Analyzer)
			suite.True(math.IsNaN(result.Get("sharpe_ratio")))
		})
	}
}

func (suite *AnalyzerTestSuite) TestSharpeValue() {
	sharpe := NewSharpeRatio(0, 252)
	suite.feed(sharpe, 100, 110, 99)

	// returns 0.1 and -0.1: mean 0, so ratio 0
	suite.InDelta(0.0, sharpe.OnFinish().Get("sharpe_ratio"), 1e-12)

	sharpe = NewSharpeRatio(0, 4)
	suite.feed(sharpe, 100, 101, 103.02)

	// returns 0.01 and 0.02: mean 0.015, population std 0.005, sqrt(4) = 2
	result := sharpe.OnFinish()
	suite.InDelta(6.0, result.Get("sharpe_ratio"), 1e-9)
	suite.Equal(2.0, result.Get("periods"))
}

func (suite *AnalyzerTestSuite) TestSharpeRiskFreeRate() {
	withRf := NewSharpeRatio(0.05, 252)
	withoutRf := NewSharpeRatio(0, 252)

	values := []float64{100, 101, 100.5, 102, 101.7, 103}
	suite.feed(withRf, values...)
	suite.feed(withoutRf, values...)

	suite.Less(withRf.OnFinish().Get("sharpe_ratio"), withoutRf.OnFinish().Get("sharpe_ratio"))
}

func (suite *AnalyzerTestSuite) TestSharpeDefaultFactor() {
	suite.Equal(252.0, NewSharpeRatio(0, 0).Factor)
}

func (suite *AnalyzerTestSuite) TestDrawDown() {
	dd := NewDrawDown()
	suite.feed(dd, 100, 120, 90, 100, 130, 117)

	result := dd.OnFinish()
	suite.Equal(NameDrawDown, result.Analyzer)
	suite.InDelta(0.25, result.Get("max_drawdown"), 1e-12)
	suite.InDelta(30.0, result.Get("max_moneydown"), 1e-12)
	suite.Equal(2.0, result.Get("max_len"))
	suite.InDelta(0.1, result.Get("drawdown"), 1e-12)
	suite.Equal(1.0, result.Get("len"))
}

func (suite *AnalyzerTestSuite) TestDrawDownBounded() {
	tests := []struct {
		name   string
		values []float64
	}{
		{"monotonic up", []float64{100, 101, 102}},
		{"wiped out", []float64{100, 50, 0}},
		{"negative equity", []float64{100, -20, 10}},
		{"empty", nil},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			dd := NewDrawDown()
			suite.feed(dd, tc.values...)

			maxDD := dd.OnFinish().Get("max_drawdown")
			suite.GreaterOrEqual(maxDD, 0.0)
			suite.LessOrEqual(maxDD, 1.0)
		})
	}
}

func (suite *AnalyzerTestSuite) TestTradeAnalyzer() {
	ta := NewTradeAnalyzer()

	for _, pnl := range []float64{10, 0, -5, -3, 8} {
		ta.OnTradeClosed(types.Trade{Status: types.TradeStatusClosed, PnL: pnl + 1, PnLNet: pnl, BarLength: 2})
	}

	ta.OnBarClosed(types.Snapshot{Position: types.Position{Size: 10}})

	result := ta.OnFinish()
	suite.Equal(NameTrades, result.Analyzer)
	suite.Equal(6.0, result.Get("total"))
	suite.Equal(1.0, result.Get("open"))
	suite.Equal(5.0, result.Get("closed"))
	suite.Equal(3.0, result.Get("won"))
	suite.Equal(2.0, result.Get("lost"))
	suite.InDelta(10.0, result.Get("pnl_net_total"), 1e-12)
	suite.InDelta(15.0, result.Get("pnl_gross_total"), 1e-12)
	suite.InDelta(2.0, result.Get("pnl_net_average"), 1e-12)
	suite.InDelta(18.0, result.Get("won_pnl_total"), 1e-12)
	suite.InDelta(-8.0, result.Get("lost_pnl_total"), 1e-12)
	suite.InDelta(0.6, result.Get("win_rate"), 1e-12)
	suite.Equal(2.0, result.Get("longest_win_streak"))
	suite.Equal(2.0, result.Get("longest_lose_streak"))
	suite.Equal(2.0, result.Get("bar_length_average"))
}

func (suite *AnalyzerTestSuite) TestTradeAnalyzerNoTrades() {
	ta := NewTradeAnalyzer()
	result := ta.OnFinish()

	suite.Equal(0.0, result.Get("total"))
	suite.True(math.IsNaN(result.Get("pnl_net_average")))
	suite.True(math.IsNaN(result.Get("win_rate")))
}

func (suite *AnalyzerTestSuite) TestAnnualReturn() {
	ar := NewAnnualReturn()

	// 2019-12-30, 2019-12-31, 2020-01-01, 2020-01-02
	suite.feed(ar, 100, 110, 121, 99)

	result := ar.OnFinish()
	suite.Equal(NameAnnualReturn, result.Analyzer)
	suite.InDelta(0.1, result.Get("2019"), 1e-12)
	suite.InDelta(-0.1, result.Get("2020"), 1e-12)
	suite.True(math.IsNaN(result.Get("2021")))
}

func (suite *AnalyzerTestSuite) TestDefaults() {
	analyzers := Defaults(252)
	suite.Len(analyzers, 4)

	names := make([]string, 0, len(analyzers))
	for _, a := range analyzers {
		names = append(names, a.Name())
	}

	suite.Equal([]string{NameSharpeRatio, NameDrawDown, NameTrades, NameAnnualReturn}, names)
}

package types

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/suite"
	"gopkg.in/yaml.v3"
)

type StatisticsTestSuite struct {
	suite.Suite
	tempDir string
}

func TestStatisticsSuite(t *testing.T) {
	suite.Run(t, new(StatisticsTestSuite))
}

func (suite *StatisticsTestSuite) SetupTest() {
	tempDir, err := os.MkdirTemp("", "statistics_test")
	suite.NoError(err)
	suite.tempDir = tempDir
}

func (suite *StatisticsTestSuite) TearDownTest() {
	os.RemoveAll(suite.tempDir)
}

func (suite *StatisticsTestSuite) TestWriteRunStats() {
	result := RunResult{
		ID:           "run-1",
		Symbol:       "600000",
		Strategy:     "sma_crossover",
		Bars:         10,
		InitialValue: 10000,
		FinalValue:   10250,
		FinalCash:    10250,
		Trades: []Trade{
			{ID: 1, Status: TradeStatusClosed, PnL: 200, PnLNet: 190, Commission: 10},
			{ID: 2, Status: TradeStatusClosed, PnL: 70, PnLNet: 60, Commission: 10},
		},
		Analyses: []AnalysisResult{
			{Analyzer: "drawdown", Metrics: map[string]float64{"max_drawdown": 0.05}},
		},
	}

	stats := NewRunStats(result)
	suite.Equal(2, stats.NumberOfTrades)
	suite.Equal(20.0, stats.TotalCommission)

	path := filepath.Join(suite.tempDir, "stats.yaml")
	suite.Require().NoError(WriteRunStats(path, stats))

	data, err := os.ReadFile(path)
	suite.Require().NoError(err)

	var decoded map[string]any
	suite.Require().NoError(yaml.Unmarshal(data, &decoded))
	suite.Equal("run-1", decoded["id"])
	suite.Equal("sma_crossover", decoded["strategy"])
	suite.Equal(2, decoded["number_of_trades"])
	suite.NotContains(decoded, "trades")
}

func (suite *StatisticsTestSuite) TestWriteRunStatsInvalidPath() {
	err := WriteRunStats(filepath.Join(suite.tempDir, "missing", "stats.yaml"), RunStats{})
	suite.Error(err)
}

func (suite *StatisticsTestSuite) TestAnalysisLookup() {
	result := RunResult{
		Analyses: []AnalysisResult{
			{Analyzer: "sharpe_ratio", Metrics: map[string]float64{"sharpe_ratio": math.NaN()}},
			{Analyzer: "drawdown", Metrics: map[string]float64{"max_drawdown": 0.1}},
		},
	}

	drawdown, ok := result.Analysis("drawdown")
	suite.True(ok)
	suite.Equal(0.1, drawdown.Get("max_drawdown"))
	suite.True(math.IsNaN(drawdown.Get("missing")))

	_, ok = result.Analysis("trades")
	suite.False(ok)
}

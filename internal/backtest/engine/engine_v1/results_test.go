package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rxtech-lab/argo-backtest/internal/log"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/runtime"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/stretchr/testify/suite"
	"gopkg.in/yaml.v3"
)

type ResultsWriterTestSuite struct {
	suite.Suite
	writer *ResultsWriter
	result types.RunResult
	logs   log.Log
}

func TestResultsWriterSuite(t *testing.T) {
	suite.Run(t, new(ResultsWriterTestSuite))
}

func (suite *ResultsWriterTestSuite) SetupTest() {
	writer, err := NewResultsWriter(logger.NewNopLogger())
	suite.Require().NoError(err)
	suite.writer = writer

	strategy := newScriptedStrategy().
		at(0, buy(2)).
		at(2, sell(2)).
		at(4, func(ctx runtime.Context) error {
			return ctx.Log(types.LogLevelInfo, "flat again", nil)
		})

	backtest := newTestEngine(suite.T(), testEngineConfig(), scenarioBars(scenarioCloses...), strategy)
	suite.Require().NoError(backtest.AddDefaultAnalyzers())

	suite.result = runToEnd(suite.T(), backtest)
	suite.logs = backtest.LogStore()
}

func (suite *ResultsWriterTestSuite) TearDownTest() {
	suite.Require().NoError(suite.writer.Close())
}

func (suite *ResultsWriterTestSuite) countParquet(path string) int {
	var count int

	err := suite.writer.db.QueryRow("SELECT COUNT(*) FROM read_parquet(?)", path).Scan(&count)
	suite.Require().NoError(err)

	return count
}

func (suite *ResultsWriterTestSuite) TestWrite() {
	folder := filepath.Join(suite.T().TempDir(), "run")

	stats, err := suite.writer.Write(folder, suite.result, suite.logs, "data/orcl.csv")
	suite.Require().NoError(err)

	suite.Equal(1, stats.NumberOfTrades)
	suite.Equal("data/orcl.csv", stats.DataPath)
	suite.Equal(filepath.Join(folder, "trades.parquet"), stats.TradesFilePath)
	suite.Equal(filepath.Join(folder, "orders.parquet"), stats.OrdersFilePath)
	suite.Equal(filepath.Join(folder, "logs.parquet"), stats.LogsFilePath)

	suite.Equal(1, suite.countParquet(stats.TradesFilePath))
	suite.Equal(2, suite.countParquet(stats.OrdersFilePath))
	suite.Equal(1, suite.countParquet(stats.LogsFilePath))

	data, err := os.ReadFile(filepath.Join(folder, "stats.yaml"))
	suite.Require().NoError(err)

	var decoded map[string]any
	suite.Require().NoError(yaml.Unmarshal(data, &decoded))
	suite.Equal(suite.result.ID, decoded["id"])
	suite.Equal("scripted", decoded["strategy"])
	suite.Equal(10, decoded["bars"])
	suite.Len(decoded["analyses"], 4)
}

func (suite *ResultsWriterTestSuite) TestWriteTwiceReplacesTables() {
	first := filepath.Join(suite.T().TempDir(), "first")
	second := filepath.Join(suite.T().TempDir(), "second")

	_, err := suite.writer.Write(first, suite.result, suite.logs, "")
	suite.Require().NoError(err)

	stats, err := suite.writer.Write(second, suite.result, suite.logs, "")
	suite.Require().NoError(err)

	suite.Equal(1, suite.countParquet(stats.TradesFilePath))
	suite.Equal(2, suite.countParquet(stats.OrdersFilePath))
}

func (suite *ResultsWriterTestSuite) TestWriteWithoutLogs() {
	folder := filepath.Join(suite.T().TempDir(), "run")

	stats, err := suite.writer.Write(folder, suite.result, nil, "")
	suite.Require().NoError(err)

	suite.Empty(stats.LogsFilePath)
	suite.NoFileExists(filepath.Join(folder, "logs.parquet"))
	suite.FileExists(filepath.Join(folder, "stats.yaml"))
}

func (suite *ResultsWriterTestSuite) TestWriteWithDuckDBLogStore() {
	store, err := NewBacktestLog(logger.NewNopLogger())
	suite.Require().NoError(err)

	defer store.Close()

	entries, err := suite.logs.GetLogs()
	suite.Require().NoError(err)

	for _, entry := range entries {
		suite.Require().NoError(store.Log(entry))
	}

	folder := filepath.Join(suite.T().TempDir(), "run")

	stats, err := suite.writer.Write(folder, suite.result, store, "")
	suite.Require().NoError(err)

	suite.FileExists(stats.LogsFilePath)
	suite.Equal(1, suite.countParquet(stats.LogsFilePath))
}

package log

import (
	"testing"
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/stretchr/testify/suite"
)

type MemoryLogTestSuite struct {
	suite.Suite
}

func TestMemoryLogSuite(t *testing.T) {
	suite.Run(t, new(MemoryLogTestSuite))
}

func (suite *MemoryLogTestSuite) TestLogAndGet() {
	store := NewMemoryLog()
	ts := time.Date(2019, 1, 2, 0, 0, 0, 0, time.UTC)

	suite.NoError(store.Log(LogEntry{Timestamp: ts, BarIndex: 0, Level: types.LogLevelInfo, Message: "buy created"}))
	suite.NoError(store.Log(LogEntry{Timestamp: ts.AddDate(0, 0, 1), BarIndex: 1, Level: types.LogLevelWarn, Message: "order margin"}))

	entries, err := store.GetLogs()
	suite.NoError(err)
	suite.Len(entries, 2)
	suite.Equal("buy created", entries[0].Message)
	suite.Equal(1, entries[1].BarIndex)

	// returned slice is a copy
	entries[0].Message = "changed"
	again, _ := store.GetLogs()
	suite.Equal("buy created", again[0].Message)
}

func (suite *MemoryLogTestSuite) TestEmpty() {
	entries, err := NewMemoryLog().GetLogs()
	suite.NoError(err)
	suite.Empty(entries)
}

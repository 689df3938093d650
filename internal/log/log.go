package log

import (
	"time"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// LogEntry represents a single strategy log entry stamped with simulated time.
type LogEntry struct {
	// Timestamp is the bar time when this log was created.
	Timestamp time.Time
	// BarIndex is the position of the bar in the sequence.
	BarIndex int
	// Symbol is the trading symbol associated with this log.
	Symbol string
	// Level is the severity level of the log.
	Level types.LogLevel
	// Message is the log message content.
	Message string
	// Fields contains optional structured key-value data.
	Fields map[string]string
}

// Log is the interface for storing strategy logs.
type Log interface {
	// Log stores a log entry.
	Log(entry LogEntry) error
	// GetLogs retrieves all stored log entries in insertion order.
	GetLogs() ([]LogEntry, error)
}

// MemoryLog keeps log entries in a slice. It is the default store of an engine run.
type MemoryLog struct {
	entries []LogEntry
}

// NewMemoryLog creates an empty in-memory log store.
func NewMemoryLog() *MemoryLog {
	return &MemoryLog{entries: nil}
}

// Log implements Log.
func (m *MemoryLog) Log(entry LogEntry) error {
	m.entries = append(m.entries, entry)

	return nil
}

// GetLogs implements Log.
func (m *MemoryLog) GetLogs() ([]LogEntry, error) {
	out := make([]LogEntry, len(m.entries))
	copy(out, m.entries)

	return out, nil
}

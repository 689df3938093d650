package types

import (
	"fmt"
	"math"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// AnalysisResult is the output of one analyzer. Undefined metrics are NaN.
type AnalysisResult struct {
	// Analyzer is the name the analyzer was registered with.
	Analyzer string `yaml:"analyzer" json:"analyzer"`
	// Metrics holds the named values computed by the analyzer.
	Metrics map[string]float64 `yaml:"metrics" json:"metrics"`
}

// Get returns a metric by key. Missing keys return NaN.
func (r AnalysisResult) Get(key string) float64 {
	value, ok := r.Metrics[key]
	if !ok {
		return math.NaN()
	}

	return value
}

// RunResult is everything a driving script consumes after a run.
type RunResult struct {
	// ID is the unique identifier for this run.
	ID string `yaml:"id" json:"id"`
	// Timestamp is when the run finished in wall-clock time.
	Timestamp     time.Time        `yaml:"timestamp" json:"timestamp"`
	Symbol        string           `yaml:"symbol" json:"symbol"`
	Strategy      string           `yaml:"strategy" json:"strategy"`
	EngineVersion string           `yaml:"engine_version" json:"engine_version"`
	Bars          int              `yaml:"bars" json:"bars"`
	InitialValue  float64          `yaml:"initial_value" json:"initial_value"`
	FinalValue    float64          `yaml:"final_value" json:"final_value"`
	FinalCash     float64          `yaml:"final_cash" json:"final_cash"`
	Position      Position         `yaml:"position" json:"position"`
	Trades        []Trade          `yaml:"-" json:"trades"`
	Orders        []Order          `yaml:"-" json:"orders"`
	Analyses      []AnalysisResult `yaml:"analyses" json:"analyses"`
}

// Analysis returns the result of the analyzer registered under name.
func (r RunResult) Analysis(name string) (AnalysisResult, bool) {
	for _, analysis := range r.Analyses {
		if analysis.Analyzer == name {
			return analysis, true
		}
	}

	return AnalysisResult{}, false
}

// RunStats is the summary written next to the exported trades and orders.
type RunStats struct {
	RunResult `yaml:",inline"`
	// TotalCommission is the commission paid across all closed trades.
	TotalCommission float64 `yaml:"total_commission"`
	// NumberOfTrades counts closed trades.
	NumberOfTrades int `yaml:"number_of_trades"`
	// TradesFilePath is the path to the trades parquet file.
	TradesFilePath string `yaml:"trades_file_path"`
	// OrdersFilePath is the path to the orders parquet file.
	OrdersFilePath string `yaml:"orders_file_path"`
	// LogsFilePath is the path to the strategy logs parquet file.
	LogsFilePath string `yaml:"logs_file_path"`
	// DataPath is the path to the bar data used for this run.
	DataPath string `yaml:"data_path"`
}

// NewRunStats summarizes a run result.
func NewRunStats(result RunResult) RunStats {
	stats := RunStats{RunResult: result, NumberOfTrades: len(result.Trades)}
	for _, trade := range result.Trades {
		stats.TotalCommission += trade.Commission
	}

	return stats
}

func WriteRunStats(path string, stats RunStats) error {
	data, err := yaml.Marshal(stats)
	if err != nil {
		return fmt.Errorf("failed to marshal run stats to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write run stats to file: %w", err)
	}

	return nil
}

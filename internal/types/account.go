package types

import "time"

// BrokerState is the cash and account value of a run.
// Value is cash plus the open position marked at the current bar's close.
type BrokerState struct {
	Cash  float64 `yaml:"cash" json:"cash"`
	Value float64 `yaml:"value" json:"value"`
}

// Snapshot is handed to analyzers after every bar. It is a value copy of the engine state.
type Snapshot struct {
	BarIndex int       `yaml:"bar_index" json:"bar_index"`
	Time     time.Time `yaml:"time" json:"time"`
	Close    float64   `yaml:"close" json:"close"`
	Cash     float64   `yaml:"cash" json:"cash"`
	Value    float64   `yaml:"value" json:"value"`
	Position Position  `yaml:"position" json:"position"`
}

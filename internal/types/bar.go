package types

import "time"

// Bar is one OHLCV record for one time interval of a single instrument.
// Bars are immutable once loaded; their position in the sequence is the canonical index.
type Bar struct {
	Symbol       string    `yaml:"symbol" json:"symbol" csv:"symbol"`
	Time         time.Time `yaml:"time" json:"time" csv:"time"`
	Open         float64   `yaml:"open" json:"open" csv:"open"`
	High         float64   `yaml:"high" json:"high" csv:"high"`
	Low          float64   `yaml:"low" json:"low" csv:"low"`
	Close        float64   `yaml:"close" json:"close" csv:"close"`
	Volume       float64   `yaml:"volume" json:"volume" csv:"volume"`
	OpenInterest float64   `yaml:"open_interest" json:"open_interest" csv:"open_interest"`
}

// PriceField selects one value line out of a bar.
type PriceField string

const (
	PriceFieldOpen         PriceField = "open"
	PriceFieldHigh         PriceField = "high"
	PriceFieldLow          PriceField = "low"
	PriceFieldClose        PriceField = "close"
	PriceFieldVolume       PriceField = "volume"
	PriceFieldOpenInterest PriceField = "open_interest"
)

// Field returns the value of the given line. Unknown fields fall back to close.
func (b Bar) Field(field PriceField) float64 {
	switch field {
	case PriceFieldOpen:
		return b.Open
	case PriceFieldHigh:
		return b.High
	case PriceFieldLow:
		return b.Low
	case PriceFieldVolume:
		return b.Volume
	case PriceFieldOpenInterest:
		return b.OpenInterest
	default:
		return b.Close
	}
}

package types

// Position is the single holding of a run. It is mutated only by the ledger on fills.
type Position struct {
	Symbol string `yaml:"symbol" json:"symbol"`
	// Size is positive for long, negative for short and zero when flat.
	Size float64 `yaml:"size" json:"size"`
	// AverageCost is the weighted average entry price of the open size.
	AverageCost float64 `yaml:"average_cost" json:"average_cost"`
}

// IsFlat reports whether there is no open size.
func (p Position) IsFlat() bool {
	return p.Size == 0
}

// IsLong reports whether the position is long.
func (p Position) IsLong() bool {
	return p.Size > 0
}

// IsShort reports whether the position is short.
func (p Position) IsShort() bool {
	return p.Size < 0
}

// MarketValue values the open size at the given price.
func (p Position) MarketValue(price float64) float64 {
	return p.Size * price
}

package commission_fee

import (
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/shopspring/decimal"
)

type RoundingMode string

const (
	RoundingNone     RoundingMode = "none"
	RoundingHalfUp   RoundingMode = "half_up"
	RoundingHalfEven RoundingMode = "half_even"
	RoundingDown     RoundingMode = "down"
	RoundingUp       RoundingMode = "up"
)

// Rounding is the rule applied to every computed commission.
type Rounding struct {
	Mode   RoundingMode `yaml:"mode" json:"mode,omitempty" validate:"omitempty,oneof=none half_up half_even down up" jsonschema:"title=Rounding mode,enum=none,enum=half_up,enum=half_even,enum=down,enum=up,default=none"`
	Places int32        `yaml:"places" json:"places" validate:"gte=0,lte=10" jsonschema:"title=Decimal places,minimum=0,maximum=10"`
}

func (r Rounding) Validate() error {
	switch r.Mode {
	case "", RoundingNone, RoundingHalfUp, RoundingHalfEven, RoundingDown, RoundingUp:
	default:
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "unknown rounding mode %q", r.Mode)
	}

	if r.Places < 0 {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "rounding places must be >= 0, got %d", r.Places)
	}

	return nil
}

// Apply rounds value to Places decimals. Down and up are toward and away from zero.
func (r Rounding) Apply(value float64) float64 {
	d := decimal.NewFromFloat(value)

	switch r.Mode {
	case RoundingHalfUp:
		d = d.Round(r.Places)
	case RoundingHalfEven:
		d = d.RoundBank(r.Places)
	case RoundingDown:
		d = d.Truncate(r.Places)
	case RoundingUp:
		d = d.RoundUp(r.Places)
	default:
		return value
	}

	return d.InexactFloat64()
}

type roundedCommissionFee struct {
	fee      CommissionFee
	rounding Rounding
}

// WithRounding applies rounding to every commission fee returns.
func WithRounding(fee CommissionFee, rounding Rounding) CommissionFee {
	if rounding.Mode == "" || rounding.Mode == RoundingNone {
		return fee
	}

	return &roundedCommissionFee{fee: fee, rounding: rounding}
}

func (c *roundedCommissionFee) Calculate(price float64, size float64) float64 {
	return c.rounding.Apply(c.fee.Calculate(price, size))
}

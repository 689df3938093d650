package slippage

import (
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/shopspring/decimal"
)

type Type string

const (
	TypeNone       Type = "none"
	TypeFixed      Type = "fixed"
	TypePercentage Type = "percentage"
)

var AllTypes = []any{
	TypeNone,
	TypeFixed,
	TypePercentage,
}

// Config describes the slippage model applied to every fill before commission.
type Config struct {
	Type Type    `yaml:"type" json:"type,omitempty" validate:"omitempty,oneof=none fixed percentage" jsonschema:"title=Slippage type,enum=none,enum=fixed,enum=percentage,default=none"`
	Rate float64 `yaml:"rate" json:"rate" validate:"gte=0" jsonschema:"title=Slippage amount or fraction,minimum=0"`
	// ClampToBar keeps the slipped price inside the bar's low/high range.
	ClampToBar bool `yaml:"clamp_to_bar" json:"clamp_to_bar" jsonschema:"title=Clamp to bar range,default=true"`
}

// Slippage moves a raw fill price against the trader.
type Slippage interface {
	// Apply returns the executed price for a fill at price on bar.
	// A limit price, when given, is never crossed.
	Apply(side types.OrderSide, price float64, bar types.Bar, limit optional.Option[float64]) float64
}

// NewSlippage builds the slippage model described by config.
func NewSlippage(config Config) (Slippage, error) {
	if config.Rate < 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "slippage rate must be >= 0, got %v", config.Rate)
	}

	switch config.Type {
	case "", TypeNone:
		return NewNoSlippage(), nil
	case TypeFixed:
		return &modelSlippage{shift: fixedShift(config.Rate), clamp: config.ClampToBar}, nil
	case TypePercentage:
		return &modelSlippage{shift: percentageShift(config.Rate), clamp: config.ClampToBar}, nil
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "unknown slippage type %q", config.Type)
	}
}

type noSlippage struct{}

// NewNoSlippage returns a model that fills at the raw price.
func NewNoSlippage() Slippage {
	return noSlippage{}
}

func (noSlippage) Apply(_ types.OrderSide, price float64, _ types.Bar, _ optional.Option[float64]) float64 {
	return price
}

// shift returns the adverse price move for a fill at price.
type shift func(price decimal.Decimal) decimal.Decimal

func fixedShift(amount float64) shift {
	a := decimal.NewFromFloat(amount)

	return func(_ decimal.Decimal) decimal.Decimal {
		return a
	}
}

func percentageShift(rate float64) shift {
	r := decimal.NewFromFloat(rate)

	return func(price decimal.Decimal) decimal.Decimal {
		return price.Mul(r)
	}
}

type modelSlippage struct {
	shift shift
	clamp bool
}

func (s *modelSlippage) Apply(side types.OrderSide, price float64, bar types.Bar, limit optional.Option[float64]) float64 {
	p := decimal.NewFromFloat(price)
	move := s.shift(p)

	var slipped float64

	if side == types.OrderSideBuy {
		slipped = p.Add(move).InexactFloat64()
		if s.clamp && slipped > bar.High {
			slipped = bar.High
		}

		if limit.IsSome() && slipped > limit.Unwrap() {
			slipped = limit.Unwrap()
		}
	} else {
		slipped = p.Sub(move).InexactFloat64()
		if s.clamp && slipped < bar.Low {
			slipped = bar.Low
		}

		if limit.IsSome() && slipped < limit.Unwrap() {
			slipped = limit.Unwrap()
		}
	}

	// never better than the raw price once clamped or capped
	if side == types.OrderSideBuy && slipped < price {
		return price
	}

	if side == types.OrderSideSell && slipped > price {
		return price
	}

	return slipped
}

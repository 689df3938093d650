package commission_fee

import (
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/shopspring/decimal"
)

type CommissionFee interface {
	// Calculate returns the commission for filling size units at price. Size is unsigned.
	Calculate(price float64, size float64) float64
}

type Type string

const (
	// TypePercentage charges price*size*rate.
	TypePercentage Type = "percentage"
	// TypeFixed charges rate per unit filled.
	TypeFixed Type = "fixed"
)

type Broker string

const (
	BrokerInteractiveBroker Broker = "interactive_broker"
	BrokerZero              Broker = "zero_commission"
)

var AllBrokers = []any{
	BrokerInteractiveBroker,
	BrokerZero,
}

var AllTypes = []any{
	TypePercentage,
	TypeFixed,
}

// Config selects a commission model. A broker preset wins over Type and Rate.
type Config struct {
	Broker   Broker   `yaml:"broker" json:"broker,omitempty" jsonschema:"title=Broker preset,enum=interactive_broker,enum=zero_commission"`
	Type     Type     `yaml:"type" json:"type,omitempty" validate:"omitempty,oneof=percentage fixed" jsonschema:"title=Commission type,enum=percentage,enum=fixed,default=percentage"`
	Rate     float64  `yaml:"rate" json:"rate" validate:"gte=0" jsonschema:"title=Commission rate,minimum=0"`
	Rounding Rounding `yaml:"rounding" json:"rounding"`
}

func GetCommissionFeeHandler(broker Broker) CommissionFee {
	switch broker {
	case BrokerInteractiveBroker:
		return NewInteractiveBrokerCommissionFee()
	case BrokerZero:
		return NewZeroCommissionFee()
	default:
		return NewZeroCommissionFee()
	}
}

// NewCommissionFee builds the commission model described by config, wrapped in its rounding rule.
func NewCommissionFee(config Config) (CommissionFee, error) {
	if config.Rate < 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "commission rate must be >= 0, got %v", config.Rate)
	}

	var fee CommissionFee

	switch {
	case config.Broker != "":
		fee = GetCommissionFeeHandler(config.Broker)
	case config.Type == TypeFixed:
		fee = NewFixedCommissionFee(config.Rate)
	case config.Type == TypePercentage || config.Type == "":
		fee = NewPercentageCommissionFee(config.Rate)
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "unknown commission type %q", config.Type)
	}

	if err := config.Rounding.Validate(); err != nil {
		return nil, err
	}

	return WithRounding(fee, config.Rounding), nil
}

// PercentageCommissionFee charges a fraction of the traded value.
type PercentageCommissionFee struct {
	rate decimal.Decimal
}

func NewPercentageCommissionFee(rate float64) CommissionFee {
	return &PercentageCommissionFee{rate: decimal.NewFromFloat(rate)}
}

func (c *PercentageCommissionFee) Calculate(price float64, size float64) float64 {
	return decimal.NewFromFloat(price).
		Mul(decimal.NewFromFloat(size).Abs()).
		Mul(c.rate).
		InexactFloat64()
}

// FixedCommissionFee charges a flat amount per unit.
type FixedCommissionFee struct {
	perUnit decimal.Decimal
}

func NewFixedCommissionFee(perUnit float64) CommissionFee {
	return &FixedCommissionFee{perUnit: decimal.NewFromFloat(perUnit)}
}

func (c *FixedCommissionFee) Calculate(_ float64, size float64) float64 {
	return decimal.NewFromFloat(size).Abs().Mul(c.perUnit).InexactFloat64()
}

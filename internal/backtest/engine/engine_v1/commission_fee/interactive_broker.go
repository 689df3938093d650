package commission_fee

// InteractiveBrokerCommissionFee charges 0.005 per unit with a 1.0 minimum per fill.
type InteractiveBrokerCommissionFee struct {
}

func NewInteractiveBrokerCommissionFee() CommissionFee {
	return &InteractiveBrokerCommissionFee{}
}

func (c *InteractiveBrokerCommissionFee) Calculate(_ float64, size float64) float64 {
	if size < 0 {
		size = -size
	}

	fee := 0.005 * size
	if fee < 1.0 {
		return 1.0
	}

	return fee
}

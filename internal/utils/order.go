package utils

import (
	"math"

	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/commission_fee"
)

// CalculateMaxQuantity returns the largest size, floored to decimalPrecision places,
// whose cost plus commission at price fits in balance.
func CalculateMaxQuantity(balance float64, price float64, commissionFee commission_fee.CommissionFee, decimalPrecision int) float64 {
	if !(price > 0) || !(balance > 0) || math.IsInf(price, 0) || math.IsInf(balance, 0) {
		return 0
	}

	// rough estimate ignoring fees, refined below
	maxQty := RoundToDecimalPrecision(balance/price, decimalPrecision)

	for i := 0; i < 10; i++ {
		totalCost := maxQty*price + commissionFee.Calculate(price, maxQty)
		if totalCost <= balance {
			break
		}

		adjustment := balance / totalCost
		maxQty = RoundToDecimalPrecision(maxQty*adjustment, decimalPrecision)
	}

	// step down one unit at a time when proportional shrinking stalls on a minimum fee
	step := math.Pow10(-decimalPrecision)
	for maxQty > 0 && maxQty*price+commissionFee.Calculate(price, maxQty) > balance {
		maxQty = RoundToDecimalPrecision(maxQty-step, decimalPrecision)
	}

	if maxQty < 0 {
		return 0
	}

	return maxQty
}

// RoundToDecimalPrecision rounds the quantity down to the specified decimal precision.
func RoundToDecimalPrecision(quantity float64, decimalPrecision int) float64 {
	multiplier := math.Pow10(decimalPrecision)

	// the epsilon keeps values like 0.29999999 from flooring a whole step down
	return math.Floor(quantity*multiplier+1e-9) / multiplier
}

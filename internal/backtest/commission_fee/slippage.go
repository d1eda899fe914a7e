package commission_fee

import "github.com/shopspring/decimal"

var basisPoints = decimal.NewFromInt(10000)

// ApplySlippage moves price against the trader by bps basis points:
// buys pay more, sells receive less.
func ApplySlippage(price float64, buy bool, bps float64) float64 {
	if bps <= 0 {
		return price
	}

	shift := decimal.NewFromFloat(bps).Div(basisPoints)
	if !buy {
		shift = shift.Neg()
	}

	adjusted, _ := decimal.NewFromFloat(price).Mul(decimal.NewFromInt(1).Add(shift)).Float64()

	return adjusted
}

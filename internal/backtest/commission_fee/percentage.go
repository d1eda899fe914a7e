package commission_fee

import "github.com/shopspring/decimal"

// BinanceSpotTakerRate is the default spot taker fee, 0.1% of notional.
const BinanceSpotTakerRate = 0.001

// PercentageCommissionFee charges a fixed fraction of the fill notional.
type PercentageCommissionFee struct {
	rate decimal.Decimal
}

func NewPercentageCommissionFee(rate float64) CommissionFee {
	return &PercentageCommissionFee{rate: decimal.NewFromFloat(rate)}
}

func (c *PercentageCommissionFee) Calculate(quantity, price float64) float64 {
	notional := decimal.NewFromFloat(quantity).Abs().Mul(decimal.NewFromFloat(price))
	fee, _ := notional.Mul(c.rate).Float64()

	return fee
}

package strategy

import (
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/turtle-trading/internal/types"
	"github.com/rxtech-lab/turtle-trading/pkg/errors"
	"github.com/shopspring/decimal"
)

// DefaultLotSize sizes in whole units of the instrument.
const DefaultLotSize = 1.0

// DefaultMaxNotionalFraction is the share of equity the open position may cost.
const DefaultMaxNotionalFraction = 0.95

// Sizer turns equity and volatility into a unit size.
type Sizer struct {
	riskPerTrade decimal.Decimal
	stopMultiple decimal.Decimal
	lotSize      decimal.Decimal
}

// NewSizer builds a sizer. A non-positive lot size falls back to DefaultLotSize.
func NewSizer(params types.TurtleParams, lotSize float64) *Sizer {
	if lotSize <= 0 {
		lotSize = DefaultLotSize
	}

	return &Sizer{
		riskPerTrade: decimal.NewFromFloat(params.RiskPerTrade),
		stopMultiple: decimal.NewFromFloat(params.StopMultiple),
		lotSize:      decimal.NewFromFloat(lotSize),
	}
}

// UnitSize is floor((equity * risk) / (stopMultiple * atr)) rounded down to
// whole lots. A missing or non-positive ATR cannot be sized. Zero is a valid
// size meaning the risk budget does not cover one lot.
func (s *Sizer) UnitSize(equity float64, atr optional.Option[float64]) (float64, error) {
	if atr.IsNone() {
		return 0, errors.New(errors.ErrCodeCannotSize, "atr unavailable")
	}

	atrValue := atr.Unwrap()
	if atrValue <= 0 {
		return 0, errors.Newf(errors.ErrCodeCannotSize, "atr must be positive, got %.8f", atrValue)
	}

	if equity <= 0 {
		return 0, nil
	}

	budget := decimal.NewFromFloat(equity).Mul(s.riskPerTrade)
	perUnitRisk := s.stopMultiple.Mul(decimal.NewFromFloat(atrValue))
	lots := budget.Div(perUnitRisk).Div(s.lotSize).Floor()

	size, _ := lots.Mul(s.lotSize).Float64()

	return size, nil
}

// CapToNotional shrinks size to whole lots so that the cost of the open
// position plus size at price stays within fraction of equity. It returns 0
// when not even one lot is affordable.
func (s *Sizer) CapToNotional(size, price, equity, openCost, fraction float64) float64 {
	if size <= 0 || price <= 0 || equity <= 0 || fraction <= 0 {
		return 0
	}

	room := decimal.NewFromFloat(equity).Mul(decimal.NewFromFloat(fraction)).Sub(decimal.NewFromFloat(openCost))
	if !room.IsPositive() {
		return 0
	}

	lots := room.Div(decimal.NewFromFloat(price)).Div(s.lotSize).Floor()
	affordable, _ := lots.Mul(s.lotSize).Float64()

	return min(size, affordable)
}

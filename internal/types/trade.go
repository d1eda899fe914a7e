package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is a closed round trip: every unit of a position from its first
// entry to the full exit.
type Trade struct {
	ID         string    `yaml:"id" json:"id" csv:"id"`
	Instrument string    `yaml:"instrument" json:"instrument" csv:"instrument"`
	Direction  Direction `yaml:"direction" json:"direction" csv:"direction"`
	OpenTime   time.Time `yaml:"open_time" json:"open_time" csv:"open_time"`
	CloseTime  time.Time `yaml:"close_time" json:"close_time" csv:"close_time"`
	// EntryPrice is the size-weighted average entry of all units.
	EntryPrice float64 `yaml:"entry_price" json:"entry_price" csv:"entry_price"`
	ExitPrice  float64 `yaml:"exit_price" json:"exit_price" csv:"exit_price"`
	Size       float64 `yaml:"size" json:"size" csv:"size"`
	Units      int     `yaml:"units" json:"units" csv:"units"`
	// Fee is the commission paid on every entry and the exit.
	Fee float64 `yaml:"fee" json:"fee" csv:"fee"`
	// PnL is net of fees. For example a long of 10 at 100 closed at 110
	// with 2 in fees has a PnL of (110-100)*10-2 = 98.
	PnL        float64    `yaml:"pnl" json:"pnl" csv:"pnl"`
	ExitReason ExitReason `yaml:"exit_reason" json:"exit_reason" csv:"exit_reason"`
}

// GrossPnL computes the pre-fee profit of exiting units at exitPrice.
func GrossPnL(direction Direction, units []Unit, exitPrice float64) decimal.Decimal {
	pnl := decimal.Zero
	exit := decimal.NewFromFloat(exitPrice)
	sign := decimal.NewFromFloat(direction.Sign())

	for _, u := range units {
		diff := exit.Sub(decimal.NewFromFloat(u.EntryPrice))
		pnl = pnl.Add(diff.Mul(decimal.NewFromFloat(u.Size)).Mul(sign))
	}

	return pnl
}

// IsWin reports whether the trade closed with a positive net PnL.
func (t Trade) IsWin() bool {
	return t.PnL > 0
}

// HoldingTime is the time between the first entry and the exit.
func (t Trade) HoldingTime() time.Duration {
	return t.CloseTime.Sub(t.OpenTime)
}

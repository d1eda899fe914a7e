// Package engine holds the per-instrument trading session shared by live
// trading and backtests. The two modes differ only in the FillSource they
// plug in.
package engine

import (
	"context"
	"time"

	"github.com/rxtech-lab/turtle-trading/internal/types"
)

type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// SideFor returns the side that opens (or adds to) a position in direction,
// or closes it when closing is true.
func SideFor(direction types.Direction, closing bool) Side {
	buy := direction == types.DirectionLong
	if closing {
		buy = !buy
	}

	if buy {
		return SideBuy
	}

	return SideSell
}

// Order asks a FillSource to execute one decision.
type Order struct {
	ID         string
	Instrument string
	Kind       types.SignalKind
	Side       Side
	Size       float64
	// ReferencePrice is the decision price: the bar close, or the stop level for stop exits.
	ReferencePrice float64
	ExitReason     types.ExitReason
	Time           time.Time
}

// Fill is the execution of an Order.
type Fill struct {
	OrderID string
	Price   float64
	Size    float64
	Fee     float64
	Time    time.Time
}

// FillSource turns orders into fills. Live sessions plug in an execution
// adapter, backtests a deterministic simulator.
type FillSource interface {
	Fill(ctx context.Context, order Order) (Fill, error)
}

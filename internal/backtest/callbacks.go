package backtest

import "github.com/rxtech-lab/turtle-trading/internal/types"

// Lifecycle callback types for a backtest run.
// All callbacks with error return can abort the run if they return an error.

// OnRunStartCallback is called before the first bar is replayed.
// runID is derived from the instrument and the bar range, so a replay of the same bars reuses it.
type OnRunStartCallback func(runID string, instrument string, totalBars int) error

// OnRunEndCallback is called when the run ends (always called via defer).
type OnRunEndCallback func(runID string, err error)

// OnProcessBarCallback is called for each bar processed, skipped ones included.
type OnProcessBarCallback func(current int, total int) error

// OnTradeCallback is called for each completed trade.
type OnTradeCallback func(trade types.Trade) error

// LifecycleCallbacks holds all lifecycle callback functions for the simulator.
// All fields are pointers - nil means no callback will be invoked.
type LifecycleCallbacks struct {
	OnRunStart   *OnRunStartCallback
	OnRunEnd     *OnRunEndCallback
	OnProcessBar *OnProcessBarCallback
	OnTrade      *OnTradeCallback
}

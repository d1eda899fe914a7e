package history

import "github.com/rxtech-lab/turtle-trading/internal/types"

// HistoryLoadedMsg carries the stored signals and trades of an instrument.
type HistoryLoadedMsg struct {
	Instrument string
	Signals    []types.Signal
	Trades     []types.Trade
}

// HistoryErrorMsg indicates the store could not be read.
type HistoryErrorMsg struct {
	Err error
}

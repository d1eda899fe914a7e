// Package storage persists bars, ticks, signals and trades.
package storage

import (
	"context"
	"time"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/turtle-trading/internal/types"
)

// Store is the persistence layer shared by data collection, live trading and
// the history viewer. Implementations must be safe for concurrent use.
//
//nolint:interfacebloat // one table per record kind, read and write
type Store interface {
	// SaveBars upserts bars keyed by (symbol, time), so re-downloading a range is idempotent.
	SaveBars(ctx context.Context, bars []types.Bar) error
	// LoadBars returns the instrument's bars in time order, optionally bounded (inclusive).
	LoadBars(ctx context.Context, instrument string, start, end optional.Option[time.Time]) ([]types.Bar, error)
	// LatestBars returns up to n of the most recent bars, oldest first.
	LatestBars(ctx context.Context, instrument string, n int) ([]types.Bar, error)
	// CountBars returns the number of stored bars for the instrument.
	CountBars(ctx context.Context, instrument string) (int, error)
	SaveTick(ctx context.Context, tick types.Tick) error
	AppendSignal(ctx context.Context, signal types.Signal) error
	AppendTrade(ctx context.Context, trade types.Trade) error
	// ListSignals returns signals in time order. An empty instrument lists all
	// of them; a limit of 0 means no limit.
	ListSignals(ctx context.Context, instrument string, limit int) ([]types.Signal, error)
	// ListTrades returns trades in close-time order, filtered like ListSignals.
	ListTrades(ctx context.Context, instrument string, limit int) ([]types.Trade, error)
	Close() error
}

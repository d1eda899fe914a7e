package provider

import (
	"context"
	"iter"
	"time"

	"github.com/rxtech-lab/turtle-trading/internal/types"
	"github.com/rxtech-lab/turtle-trading/pkg/errors"
)

// ProviderType defines the type of market data provider.
type ProviderType string

const (
	ProviderBinance ProviderType = "binance"
)

type OnDownloadProgress = func(current float64, total float64, message string)

type Provider interface {
	// Download fetches the closed bars of symbol between start and end, oldest first.
	// The context can be used to cancel the download operation.
	// example:
	// Download(ctx, "BTCUSDT", "1h", time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), onProgress)
	Download(ctx context.Context, symbol string, interval string, start time.Time, end time.Time, onProgress OnDownloadProgress) ([]types.Bar, error)
	// Stream returns an iterator that yields every closed bar of the symbols as it finalizes.
	// Candles still forming are never yielded. Cancel the context to stop streaming.
	Stream(ctx context.Context, symbols []string, interval string) iter.Seq2[types.Bar, error]
	// StreamTicks yields rolling 24h ticker snapshots of the symbols.
	StreamTicks(ctx context.Context, symbols []string) iter.Seq2[types.Tick, error]
}

// NewMarketDataProvider creates a new market data provider based on the provider type.
func NewMarketDataProvider(providerType ProviderType) (Provider, error) {
	switch providerType {
	case ProviderBinance:
		return NewBinanceClient()
	default:
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "unsupported market data provider: %s", providerType)
	}
}

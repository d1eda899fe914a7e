package marketdata

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/turtle-trading/internal/logger"
	"github.com/rxtech-lab/turtle-trading/internal/storage"
	"github.com/rxtech-lab/turtle-trading/internal/types"
	"github.com/rxtech-lab/turtle-trading/pkg/errors"
	"github.com/rxtech-lab/turtle-trading/pkg/marketdata/provider"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DownloadParams holds the parameters for a market data download request.
type DownloadParams struct {
	Symbol    string    `validate:"required"`
	Interval  string    `validate:"required"`
	StartDate time.Time `validate:"required"`
	EndDate   time.Time `validate:"required,gtfield=StartDate"`
}

// Client downloads bars from a provider and stores them.
type Client struct {
	provider   provider.Provider
	store      storage.Store
	validate   *validator.Validate
	onProgress provider.OnDownloadProgress
	logger     *logger.Logger
}

// NewClient creates a new market data client. onProgress may be nil.
func NewClient(p provider.Provider, store storage.Store, onProgress provider.OnDownloadProgress, log *logger.Logger) *Client {
	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Client{
		provider:   p,
		store:      store,
		validate:   validator.New(),
		onProgress: onProgress,
		logger:     log.Named("marketdata"),
	}
}

// Download fetches the closed bars described by params and saves them.
// It returns the number of bars stored. Re-downloading a range overwrites
// the stored bars in place.
func (c *Client) Download(ctx context.Context, params DownloadParams) (int, error) {
	if err := c.validate.Struct(params); err != nil {
		return 0, errors.Wrap(errors.ErrCodeInvalidParameter, "invalid download parameters", err)
	}

	bars, err := c.provider.Download(ctx, params.Symbol, params.Interval, params.StartDate, params.EndDate, c.onProgress)
	if err != nil {
		return 0, err
	}

	if err := c.store.SaveBars(ctx, bars); err != nil {
		return 0, err
	}

	c.logger.Info("Downloaded bars",
		zap.String("symbol", params.Symbol),
		zap.String("interval", params.Interval),
		zap.Int("count", len(bars)),
	)

	return len(bars), nil
}

// Collect records closed bars and ticker snapshots of symbols until ctx is
// cancelled. Stream errors are logged and skipped. A storage error or a
// stream that ends on its own stops collection and is returned.
func (c *Client) Collect(ctx context.Context, symbols []string, interval string) error {
	if len(symbols) == 0 {
		return errors.New(errors.ErrCodeInvalidParameter, "no symbols provided")
	}

	group, groupCtx := errgroup.WithContext(ctx)

	group.Go(func() error {
		for bar, err := range c.provider.Stream(groupCtx, symbols, interval) {
			if err != nil {
				if errors.HasCode(err, errors.ErrCodeInvalidInterval) {
					return err
				}

				c.logger.Warn("Bar stream error", zap.Error(err))

				continue
			}

			if err := c.store.SaveBars(groupCtx, []types.Bar{bar}); err != nil {
				return err
			}

			c.logger.Debug("Collected bar", zap.String("symbol", bar.Symbol), zap.Time("time", bar.Time))
		}

		if groupCtx.Err() == nil {
			return errors.New(errors.ErrCodeStreamFailed, "bar stream ended")
		}

		return nil
	})

	group.Go(func() error {
		for tick, err := range c.provider.StreamTicks(groupCtx, symbols) {
			if err != nil {
				c.logger.Warn("Ticker stream error", zap.Error(err))

				continue
			}

			if err := c.store.SaveTick(groupCtx, tick); err != nil {
				return err
			}
		}

		if groupCtx.Err() == nil {
			return errors.New(errors.ErrCodeStreamFailed, "ticker stream ended")
		}

		return nil
	})

	err := group.Wait()
	if ctx.Err() != nil {
		// shutdown can surface as a cancelled storage write
		return nil
	}

	return err
}

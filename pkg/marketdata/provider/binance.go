package provider

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/rxtech-lab/turtle-trading/internal/types"
	"github.com/rxtech-lab/turtle-trading/pkg/errors"
)

// binanceKlineLimit is the largest page the klines endpoint returns.
const binanceKlineLimit = 1000

// BinanceIntervals are the kline intervals Binance accepts.
var BinanceIntervals = []string{"1s", "1m", "3m", "5m", "15m", "30m", "1h", "2h", "4h", "6h", "8h", "12h", "1d", "3d", "1w", "1M"}

// BinanceKlinesService is the subset of binance.KlinesService the client uses.
type BinanceKlinesService interface {
	Symbol(symbol string) BinanceKlinesService
	Interval(interval string) BinanceKlinesService
	StartTime(startTime int64) BinanceKlinesService
	EndTime(endTime int64) BinanceKlinesService
	Limit(limit int) BinanceKlinesService
	Do(ctx context.Context) ([]*binance.Kline, error)
}

// BinanceAPIClient creates kline requests.
type BinanceAPIClient interface {
	NewKlinesService() BinanceKlinesService
}

// BinanceWsKline is a kline as pushed over the WebSocket stream.
type BinanceWsKline struct {
	StartTime int64
	EndTime   int64
	Open      string
	High      string
	Low       string
	Close     string
	Volume    string
	IsFinal   bool
}

type BinanceWsKlineEvent struct {
	Symbol string
	Kline  BinanceWsKline
}

// BinanceWsTickerEvent is a rolling 24h ticker update.
type BinanceWsTickerEvent struct {
	Symbol     string
	Time       int64
	LastPrice  string
	BidPrice   string
	AskPrice   string
	BaseVolume string
}

type WsKlineHandler func(event *BinanceWsKlineEvent)

type WsTickerHandler func(event *BinanceWsTickerEvent)

type WsErrorHandler func(err error)

// BinanceWebSocketService opens Binance WebSocket streams. Closing stopC
// ends a stream; doneC is closed once it has ended.
type BinanceWebSocketService interface {
	WsKlineServe(symbol string, interval string, handler WsKlineHandler, errHandler WsErrorHandler) (doneC chan struct{}, stopC chan struct{}, err error)
	WsTickerServe(symbol string, handler WsTickerHandler, errHandler WsErrorHandler) (doneC chan struct{}, stopC chan struct{}, err error)
}

type BinanceClient struct {
	api BinanceAPIClient
	ws  BinanceWebSocketService
	now func() time.Time
}

// NewBinanceClient creates a client for the public Binance endpoints. No
// credentials are needed for market data.
func NewBinanceClient() (*BinanceClient, error) {
	return NewBinanceClientWithWebSocket(&binanceAPIClientAdapter{client: binance.NewClient("", "")}, &binanceWebSocketAdapter{}), nil
}

// NewBinanceClientWithWebSocket creates a client on top of the given services.
func NewBinanceClientWithWebSocket(api BinanceAPIClient, ws BinanceWebSocketService) *BinanceClient {
	return &BinanceClient{
		api: api,
		ws:  ws,
		now: time.Now,
	}
}

// IsValidBinanceInterval reports whether Binance serves klines at interval.
func IsValidBinanceInterval(interval string) bool {
	return slices.Contains(BinanceIntervals, interval)
}

// Download implements Provider. Pages are requested from start until end,
// each starting right after the close of the previous page's last kline.
// Klines that have not closed yet are dropped.
func (c *BinanceClient) Download(ctx context.Context, symbol string, interval string, start time.Time, end time.Time, onProgress OnDownloadProgress) ([]types.Bar, error) {
	if !IsValidBinanceInterval(interval) {
		return nil, errors.Newf(errors.ErrCodeInvalidInterval, "invalid interval %q", interval)
	}

	if !start.Before(end) {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "start %s must be before end %s", start.Format(time.RFC3339), end.Format(time.RFC3339))
	}

	if c.api == nil {
		return nil, errors.New(errors.ErrCodeMarketDataFetchFailed, "binance API client is not configured")
	}

	startMillis := start.UnixMilli()
	endMillis := end.UnixMilli()
	nowMillis := c.now().UnixMilli()
	current := startMillis

	var bars []types.Bar

	for {
		klines, err := c.api.NewKlinesService().
			Symbol(symbol).
			Interval(interval).
			StartTime(current).
			EndTime(endMillis).
			Limit(binanceKlineLimit).
			Do(ctx)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeMarketDataFetchFailed, err, "failed to fetch %s klines from Binance", symbol)
		}

		for _, k := range klines {
			if k.CloseTime >= nowMillis {
				continue
			}

			bar, err := klineToBar(symbol, k.OpenTime, k.Open, k.High, k.Low, k.Close, k.Volume)
			if err != nil {
				return nil, err
			}

			bars = append(bars, bar)
		}

		if onProgress != nil {
			onProgress(float64(min(current, endMillis)-startMillis), float64(endMillis-startMillis), fmt.Sprintf("Downloading %s klines from Binance", symbol))
		}

		if len(klines) < binanceKlineLimit {
			break
		}

		current = klines[len(klines)-1].CloseTime + 1
		if current >= endMillis {
			break
		}
	}

	if onProgress != nil {
		onProgress(float64(endMillis-startMillis), float64(endMillis-startMillis), fmt.Sprintf("Downloaded %d %s klines", len(bars), symbol))
	}

	return bars, nil
}

// Stream implements Provider.
func (c *BinanceClient) Stream(ctx context.Context, symbols []string, interval string) iter.Seq2[types.Bar, error] {
	return func(yield func(types.Bar, error) bool) {
		if len(symbols) == 0 {
			yield(types.Bar{}, errors.New(errors.ErrCodeInvalidParameter, "no symbols provided"))

			return
		}

		if !IsValidBinanceInterval(interval) {
			yield(types.Bar{}, errors.Newf(errors.ErrCodeInvalidInterval, "invalid interval %q", interval))

			return
		}

		events := make(chan *BinanceWsKlineEvent, 100)
		streamErrs := make(chan error, 10)

		// done releases handlers still delivering after the consumer stopped.
		done := make(chan struct{})
		stops := make([]chan struct{}, 0, len(symbols))
		defer func() {
			close(done)

			for _, stop := range stops {
				close(stop)
			}
		}()

		for _, symbol := range symbols {
			_, stopC, err := c.ws.WsKlineServe(symbol, interval,
				func(event *BinanceWsKlineEvent) {
					select {
					case events <- event:
					case <-ctx.Done():
					case <-done:
					}
				},
				func(err error) {
					select {
					case streamErrs <- err:
					case <-ctx.Done():
					case <-done:
					}
				},
			)
			if err != nil {
				yield(types.Bar{}, errors.Wrapf(errors.ErrCodeStreamFailed, err, "failed to start websocket for %s", symbol))

				return
			}

			stops = append(stops, stopC)
		}

		for {
			select {
			case <-ctx.Done():
				return
			case err := <-streamErrs:
				if !yield(types.Bar{}, errors.Wrap(errors.ErrCodeStreamFailed, "websocket error", err)) {
					return
				}
			case event := <-events:
				if !event.Kline.IsFinal {
					continue
				}

				k := event.Kline

				bar, err := klineToBar(event.Symbol, k.StartTime, k.Open, k.High, k.Low, k.Close, k.Volume)
				if !yield(bar, err) {
					return
				}
			}
		}
	}
}

// StreamTicks implements Provider.
func (c *BinanceClient) StreamTicks(ctx context.Context, symbols []string) iter.Seq2[types.Tick, error] {
	return func(yield func(types.Tick, error) bool) {
		if len(symbols) == 0 {
			yield(types.Tick{}, errors.New(errors.ErrCodeInvalidParameter, "no symbols provided"))

			return
		}

		events := make(chan *BinanceWsTickerEvent, 100)
		streamErrs := make(chan error, 10)

		// done releases handlers still delivering after the consumer stopped.
		done := make(chan struct{})
		stops := make([]chan struct{}, 0, len(symbols))
		defer func() {
			close(done)

			for _, stop := range stops {
				close(stop)
			}
		}()

		for _, symbol := range symbols {
			_, stopC, err := c.ws.WsTickerServe(symbol,
				func(event *BinanceWsTickerEvent) {
					select {
					case events <- event:
					case <-ctx.Done():
					case <-done:
					}
				},
				func(err error) {
					select {
					case streamErrs <- err:
					case <-ctx.Done():
					case <-done:
					}
				},
			)
			if err != nil {
				yield(types.Tick{}, errors.Wrapf(errors.ErrCodeStreamFailed, err, "failed to start websocket for %s", symbol))

				return
			}

			stops = append(stops, stopC)
		}

		for {
			select {
			case <-ctx.Done():
				return
			case err := <-streamErrs:
				if !yield(types.Tick{}, errors.Wrap(errors.ErrCodeStreamFailed, "websocket error", err)) {
					return
				}
			case event := <-events:
				tick, err := convertWsTicker(event)
				if !yield(tick, err) {
					return
				}
			}
		}
	}
}

func klineToBar(symbol string, openTime int64, open, high, low, closePrice, volume string) (types.Bar, error) {
	values, err := parseFloats(open, high, low, closePrice, volume)
	if err != nil {
		return types.Bar{}, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "%s kline at %d", symbol, openTime)
	}

	return types.Bar{
		Symbol: symbol,
		Time:   time.UnixMilli(openTime).UTC(),
		Open:   values[0],
		High:   values[1],
		Low:    values[2],
		Close:  values[3],
		Volume: values[4],
	}, nil
}

func convertWsTicker(event *BinanceWsTickerEvent) (types.Tick, error) {
	values, err := parseFloats(event.LastPrice, event.BidPrice, event.AskPrice, event.BaseVolume)
	if err != nil {
		return types.Tick{}, errors.Wrapf(errors.ErrCodeMarketDataParseFailed, err, "%s ticker at %d", event.Symbol, event.Time)
	}

	return types.Tick{
		Symbol:    event.Symbol,
		Time:      time.UnixMilli(event.Time).UTC(),
		Last:      values[0],
		Bid:       values[1],
		Ask:       values[2],
		Volume24h: values[3],
	}, nil
}

func parseFloats(raw ...string) ([]float64, error) {
	values := make([]float64, len(raw))

	for i, s := range raw {
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, err
		}

		values[i] = v
	}

	return values, nil
}

// binanceAPIClientAdapter adapts *binance.Client to BinanceAPIClient.
type binanceAPIClientAdapter struct {
	client *binance.Client
}

func (a *binanceAPIClientAdapter) NewKlinesService() BinanceKlinesService {
	return &binanceKlinesServiceAdapter{service: a.client.NewKlinesService()}
}

type binanceKlinesServiceAdapter struct {
	service *binance.KlinesService
}

func (s *binanceKlinesServiceAdapter) Symbol(symbol string) BinanceKlinesService {
	s.service.Symbol(symbol)

	return s
}

func (s *binanceKlinesServiceAdapter) Interval(interval string) BinanceKlinesService {
	s.service.Interval(interval)

	return s
}

func (s *binanceKlinesServiceAdapter) StartTime(startTime int64) BinanceKlinesService {
	s.service.StartTime(startTime)

	return s
}

func (s *binanceKlinesServiceAdapter) EndTime(endTime int64) BinanceKlinesService {
	s.service.EndTime(endTime)

	return s
}

func (s *binanceKlinesServiceAdapter) Limit(limit int) BinanceKlinesService {
	s.service.Limit(limit)

	return s
}

func (s *binanceKlinesServiceAdapter) Do(ctx context.Context) ([]*binance.Kline, error) {
	return s.service.Do(ctx)
}

// binanceWebSocketAdapter adapts the package-level go-binance stream functions.
type binanceWebSocketAdapter struct{}

func (a *binanceWebSocketAdapter) WsKlineServe(symbol string, interval string, handler WsKlineHandler, errHandler WsErrorHandler) (chan struct{}, chan struct{}, error) {
	return binance.WsKlineServe(symbol, interval,
		func(event *binance.WsKlineEvent) {
			handler(&BinanceWsKlineEvent{
				Symbol: event.Symbol,
				Kline: BinanceWsKline{
					StartTime: event.Kline.StartTime,
					EndTime:   event.Kline.EndTime,
					Open:      event.Kline.Open,
					High:      event.Kline.High,
					Low:       event.Kline.Low,
					Close:     event.Kline.Close,
					Volume:    event.Kline.Volume,
					IsFinal:   event.Kline.IsFinal,
				},
			})
		},
		func(err error) {
			errHandler(err)
		},
	)
}

func (a *binanceWebSocketAdapter) WsTickerServe(symbol string, handler WsTickerHandler, errHandler WsErrorHandler) (chan struct{}, chan struct{}, error) {
	return binance.WsMarketStatServe(symbol,
		func(event *binance.WsMarketStatEvent) {
			handler(&BinanceWsTickerEvent{
				Symbol:     event.Symbol,
				Time:       event.Time,
				LastPrice:  event.LastPrice,
				BidPrice:   event.BidPrice,
				AskPrice:   event.AskPrice,
				BaseVolume: event.BaseVolume,
			})
		},
		func(err error) {
			errHandler(err)
		},
	)
}

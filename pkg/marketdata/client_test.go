package marketdata

import (
	"context"
	stderrors "errors"
	"iter"
	"sync"
	"testing"
	"time"

	"github.com/rxtech-lab/turtle-trading/internal/types"
	"github.com/rxtech-lab/turtle-trading/mocks"
	"github.com/rxtech-lab/turtle-trading/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

// ClientTestSuite is a test suite for the Client implementation
type ClientTestSuite struct {
	suite.Suite
	ctrl         *gomock.Controller
	mockProvider *mocks.MockProvider
	mockStore    *mocks.MockStore
	client       *Client
	start        time.Time
}

func TestClientSuite(t *testing.T) {
	suite.Run(t, new(ClientTestSuite))
}

// SetupTest runs before each test
func (suite *ClientTestSuite) SetupTest() {
	suite.ctrl = gomock.NewController(suite.T())
	suite.mockProvider = mocks.NewMockProvider(suite.ctrl)
	suite.mockStore = mocks.NewMockStore(suite.ctrl)
	suite.client = NewClient(suite.mockProvider, suite.mockStore, nil, nil)
	suite.start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
}

// TearDownTest runs after each test
func (suite *ClientTestSuite) TearDownTest() {
	suite.ctrl.Finish()
}

func (suite *ClientTestSuite) bar(i int) types.Bar {
	return types.Bar{
		Symbol: "BTCUSDT",
		Time:   suite.start.Add(time.Duration(i) * time.Hour),
		Open:   100,
		High:   110,
		Low:    90,
		Close:  105,
		Volume: 1,
	}
}

// blockingBars yields bars, then yields err if set, then blocks until ctx is done.
func blockingBars(ctx context.Context, bars []types.Bar, err error) iter.Seq2[types.Bar, error] {
	return func(yield func(types.Bar, error) bool) {
		if err != nil && !yield(types.Bar{}, err) {
			return
		}

		for _, bar := range bars {
			if !yield(bar, nil) {
				return
			}
		}

		<-ctx.Done()
	}
}

func blockingTicks(ctx context.Context, ticks []types.Tick) iter.Seq2[types.Tick, error] {
	return func(yield func(types.Tick, error) bool) {
		for _, tick := range ticks {
			if !yield(tick, nil) {
				return
			}
		}

		<-ctx.Done()
	}
}

func (suite *ClientTestSuite) TestClientDownload() {
	end := suite.start.Add(3 * time.Hour)
	bars := []types.Bar{suite.bar(0), suite.bar(1), suite.bar(2)}

	testCases := []struct {
		name      string
		params    DownloadParams
		setupMock func()
		count     int
		code      errors.ErrorCode
	}{
		{
			name:   "Valid download",
			params: DownloadParams{Symbol: "BTCUSDT", Interval: "1h", StartDate: suite.start, EndDate: end},
			setupMock: func() {
				suite.mockProvider.EXPECT().
					Download(gomock.Any(), "BTCUSDT", "1h", suite.start, end, gomock.Any()).
					Return(bars, nil)
				suite.mockStore.EXPECT().SaveBars(gomock.Any(), bars).Return(nil)
			},
			count: 3,
		},
		{
			name:      "End before start",
			params:    DownloadParams{Symbol: "BTCUSDT", Interval: "1h", StartDate: end, EndDate: suite.start},
			setupMock: func() {},
			code:      errors.ErrCodeInvalidParameter,
		},
		{
			name:      "Missing symbol",
			params:    DownloadParams{Interval: "1h", StartDate: suite.start, EndDate: end},
			setupMock: func() {},
			code:      errors.ErrCodeInvalidParameter,
		},
		{
			name:   "Provider failure",
			params: DownloadParams{Symbol: "BTCUSDT", Interval: "1h", StartDate: suite.start, EndDate: end},
			setupMock: func() {
				suite.mockProvider.EXPECT().
					Download(gomock.Any(), "BTCUSDT", "1h", suite.start, end, gomock.Any()).
					Return(nil, errors.New(errors.ErrCodeMarketDataFetchFailed, "boom"))
			},
			code: errors.ErrCodeMarketDataFetchFailed,
		},
		{
			name:   "Storage failure",
			params: DownloadParams{Symbol: "BTCUSDT", Interval: "1h", StartDate: suite.start, EndDate: end},
			setupMock: func() {
				suite.mockProvider.EXPECT().
					Download(gomock.Any(), "BTCUSDT", "1h", suite.start, end, gomock.Any()).
					Return(bars, nil)
				suite.mockStore.EXPECT().SaveBars(gomock.Any(), bars).
					Return(errors.New(errors.ErrCodeStorageWriteFailed, "disk full"))
			},
			code: errors.ErrCodeStorageWriteFailed,
		},
	}

	for _, tc := range testCases {
		suite.Run(tc.name, func() {
			tc.setupMock()

			count, err := suite.client.Download(context.Background(), tc.params)
			if tc.code != 0 {
				suite.True(errors.HasCode(err, tc.code), "got %v", err)
				suite.Zero(count)

				return
			}

			suite.NoError(err)
			suite.Equal(tc.count, count)
		})
	}
}

func (suite *ClientTestSuite) TestCollectStoresBarsAndTicks() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	symbols := []string{"BTCUSDT"}
	tick := types.Tick{Symbol: "BTCUSDT", Time: suite.start, Last: 100, Bid: 99.9, Ask: 100.1, Volume24h: 5000}

	var stored sync.WaitGroup
	stored.Add(3)

	suite.mockProvider.EXPECT().Stream(gomock.Any(), symbols, "1h").
		DoAndReturn(func(ctx context.Context, _ []string, _ string) iter.Seq2[types.Bar, error] {
			// a stream error is logged and skipped
			return blockingBars(ctx, []types.Bar{suite.bar(0), suite.bar(1)}, stderrors.New("reconnecting"))
		})
	suite.mockProvider.EXPECT().StreamTicks(gomock.Any(), symbols).
		DoAndReturn(func(ctx context.Context, _ []string) iter.Seq2[types.Tick, error] {
			return blockingTicks(ctx, []types.Tick{tick})
		})
	suite.mockStore.EXPECT().SaveBars(gomock.Any(), gomock.Len(1)).
		DoAndReturn(func(context.Context, []types.Bar) error {
			stored.Done()
			return nil
		}).Times(2)
	suite.mockStore.EXPECT().SaveTick(gomock.Any(), tick).
		DoAndReturn(func(context.Context, types.Tick) error {
			stored.Done()
			return nil
		})

	go func() {
		stored.Wait()
		cancel()
	}()

	suite.NoError(suite.client.Collect(ctx, symbols, "1h"))
}

func (suite *ClientTestSuite) TestCollectStopsOnStorageFailure() {
	symbols := []string{"BTCUSDT"}

	suite.mockProvider.EXPECT().Stream(gomock.Any(), symbols, "1h").
		DoAndReturn(func(ctx context.Context, _ []string, _ string) iter.Seq2[types.Bar, error] {
			return blockingBars(ctx, []types.Bar{suite.bar(0)}, nil)
		})
	suite.mockProvider.EXPECT().StreamTicks(gomock.Any(), symbols).
		DoAndReturn(func(ctx context.Context, _ []string) iter.Seq2[types.Tick, error] {
			return blockingTicks(ctx, nil)
		})
	suite.mockStore.EXPECT().SaveBars(gomock.Any(), gomock.Any()).
		Return(errors.New(errors.ErrCodeStorageWriteFailed, "disk full"))

	err := suite.client.Collect(context.Background(), symbols, "1h")
	suite.True(errors.HasCode(err, errors.ErrCodeStorageWriteFailed))
}

func (suite *ClientTestSuite) TestCollectFailsWhenStreamEnds() {
	symbols := []string{"BTCUSDT"}

	suite.mockProvider.EXPECT().Stream(gomock.Any(), symbols, "1h").
		Return(iter.Seq2[types.Bar, error](func(yield func(types.Bar, error) bool) {
			yield(types.Bar{}, errors.New(errors.ErrCodeStreamFailed, "failed to start websocket"))
		}))
	suite.mockProvider.EXPECT().StreamTicks(gomock.Any(), symbols).
		DoAndReturn(func(ctx context.Context, _ []string) iter.Seq2[types.Tick, error] {
			return blockingTicks(ctx, nil)
		})

	err := suite.client.Collect(context.Background(), symbols, "1h")
	suite.True(errors.HasCode(err, errors.ErrCodeStreamFailed))
}

func (suite *ClientTestSuite) TestCollectInvalidInput() {
	err := suite.client.Collect(context.Background(), nil, "1h")
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
}

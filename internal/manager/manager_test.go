package manager

import (
	"context"
	"fmt"
	"iter"
	"testing"
	"time"

	"github.com/rxtech-lab/turtle-trading/internal/logger"
	"github.com/rxtech-lab/turtle-trading/internal/storage"
	"github.com/rxtech-lab/turtle-trading/internal/types"
	"github.com/rxtech-lab/turtle-trading/mocks"
	"github.com/rxtech-lab/turtle-trading/pkg/errors"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"
)

type ManagerTestSuite struct {
	suite.Suite
	ctx   context.Context
	ctrl  *gomock.Controller
	start time.Time
	log   *logger.Logger
}

func TestManagerSuite(t *testing.T) {
	suite.Run(t, new(ManagerTestSuite))
}

func (suite *ManagerTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.ctrl = gomock.NewController(suite.T())
	suite.start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	suite.log = logger.NewNopLogger()
}

func (suite *ManagerTestSuite) TearDownTest() {
	suite.ctrl.Finish()
}

func (suite *ManagerTestSuite) config(symbols ...string) Config {
	config := DefaultConfig()
	config.Symbols = symbols

	return config
}

func (suite *ManagerTestSuite) newManager(config Config, opts ...Option) *Manager {
	opts = append(opts, WithLogger(suite.log))

	m, err := New(config, nil, opts...)
	suite.Require().NoError(err)

	return m
}

func (suite *ManagerTestSuite) TestNewValidation() {
	config := suite.config("BTCUSDT")
	config.InitialCapital = -1
	_, err := New(config, nil)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidCapital))

	_, err = New(suite.config("BTCUSDT", "BTCUSDT"), nil)
	suite.True(errors.IsConfigError(err))

	m, err := New(suite.config("ETHUSDT", "BTCUSDT"), nil)
	suite.Require().NoError(err)
	suite.Equal([]string{"BTCUSDT", "ETHUSDT"}, m.Instruments())
}

func (suite *ManagerTestSuite) TestFeedBarEmitsToSinksAndStore() {
	sink := mocks.NewMockSink(suite.ctrl)
	store := mocks.NewMockStore(suite.ctrl)

	var (
		signals []types.Signal
		trades  []types.Trade
	)

	sink.EXPECT().OnSignal(gomock.Any()).Times(5).Do(func(signal types.Signal) { signals = append(signals, signal) })
	sink.EXPECT().OnTrade(gomock.Any()).Times(1).Do(func(trade types.Trade) { trades = append(trades, trade) })
	store.EXPECT().SaveBars(gomock.Any(), gomock.Len(1)).Times(30).Return(nil)
	store.EXPECT().AppendSignal(gomock.Any(), gomock.Any()).Times(5).Return(nil)
	store.EXPECT().AppendTrade(gomock.Any(), gomock.Any()).Times(1).Return(nil)

	m := suite.newManager(suite.config("BTCUSDT"), WithSinks(sink), WithStore(store))

	returned := map[int]types.SignalKind{}

	for i, bar := range mocks.RiseAndFallBars("BTCUSDT", suite.start) {
		signal, err := m.FeedBar(suite.ctx, "BTCUSDT", bar)
		suite.Require().NoError(err)

		if signal.IsSome() {
			returned[i] = signal.Unwrap().Kind
		}
	}

	suite.Equal(map[int]types.SignalKind{
		20: types.SignalKindEnterLong,
		21: types.SignalKindAddUnit,
		22: types.SignalKindAddUnit,
		23: types.SignalKindAddUnit,
		27: types.SignalKindExit,
	}, returned)
	suite.Len(signals, 5)
	suite.Require().Len(trades, 1)
	suite.Equal(types.ExitReasonStop, trades[0].ExitReason)

	position, err := m.Position("BTCUSDT")
	suite.Require().NoError(err)
	suite.True(position.IsFlat())

	equity, err := m.Equity("BTCUSDT")
	suite.Require().NoError(err)
	suite.InDelta(10000+trades[0].PnL, equity, 1e-6)
}

func (suite *ManagerTestSuite) TestFeedBarDropsDuplicates() {
	m := suite.newManager(suite.config("BTCUSDT"))
	bars := mocks.RiseAndFallBars("BTCUSDT", suite.start)

	_, err := m.FeedBar(suite.ctx, "BTCUSDT", bars[1])
	suite.Require().NoError(err)

	for _, bar := range []types.Bar{bars[1], bars[0]} {
		signal, err := m.FeedBar(suite.ctx, "BTCUSDT", bar)
		suite.NoError(err)
		suite.True(signal.IsNone())
	}
}

func (suite *ManagerTestSuite) TestFeedBarDropsMislabelledBars() {
	store := mocks.NewMockStore(suite.ctrl)
	store.EXPECT().SaveBars(gomock.Any(), gomock.Len(1)).Times(20).Return(nil)

	m := suite.newManager(suite.config("BTCUSDT", "ETHUSDT"), WithStore(store))

	for _, bar := range mocks.RiseAndFallBars("BTCUSDT", suite.start)[:20] {
		_, err := m.FeedBar(suite.ctx, "BTCUSDT", bar)
		suite.Require().NoError(err)
	}

	// the ETHUSDT breakout bar must not reach the BTCUSDT session
	breakout := mocks.RiseAndFallBars("ETHUSDT", suite.start)[20]
	signal, err := m.FeedBar(suite.ctx, "BTCUSDT", breakout)
	suite.NoError(err)
	suite.True(signal.IsNone())

	position, err := m.Position("BTCUSDT")
	suite.Require().NoError(err)
	suite.True(position.IsFlat())

	equity, err := m.Equity("BTCUSDT")
	suite.Require().NoError(err)
	suite.Equal(10000.0, equity)
}

func (suite *ManagerTestSuite) TestFeedBarStampsUnlabelledBars() {
	store := mocks.NewMockStore(suite.ctrl)
	store.EXPECT().SaveBars(gomock.Any(), gomock.Len(1)).Return(nil).Do(func(_ context.Context, bars []types.Bar) {
		suite.Equal("BTCUSDT", bars[0].Symbol)
	})

	m := suite.newManager(suite.config("BTCUSDT"), WithStore(store))

	bar := mocks.RiseAndFallBars("BTCUSDT", suite.start)[0]
	bar.Symbol = ""

	_, err := m.FeedBar(suite.ctx, "BTCUSDT", bar)
	suite.NoError(err)
}

func (suite *ManagerTestSuite) TestFeedBarUnknownInstrument() {
	m := suite.newManager(suite.config("BTCUSDT"))

	signal, err := m.FeedBar(suite.ctx, "DOGEUSDT", mocks.RiseAndFallBars("DOGEUSDT", suite.start)[0])
	suite.True(errors.HasCode(err, errors.ErrCodeUnknownInstrument))
	suite.True(signal.IsNone())

	_, err = m.Position("DOGEUSDT")
	suite.True(errors.HasCode(err, errors.ErrCodeUnknownInstrument))
}

func (suite *ManagerTestSuite) TestStorageFailureDoesNotStopTrading() {
	store := mocks.NewMockStore(suite.ctrl)
	store.EXPECT().SaveBars(gomock.Any(), gomock.Any()).AnyTimes().Return(fmt.Errorf("disk full"))
	store.EXPECT().AppendSignal(gomock.Any(), gomock.Any()).AnyTimes().Return(fmt.Errorf("disk full"))
	store.EXPECT().AppendTrade(gomock.Any(), gomock.Any()).AnyTimes().Return(fmt.Errorf("disk full"))

	m := suite.newManager(suite.config("BTCUSDT"), WithStore(store))

	count := 0

	for _, bar := range mocks.RiseAndFallBars("BTCUSDT", suite.start) {
		signal, err := m.FeedBar(suite.ctx, "BTCUSDT", bar)
		suite.Require().NoError(err)

		if signal.IsSome() {
			count++
		}
	}

	suite.Equal(5, count)
}

func (suite *ManagerTestSuite) TestUpdateParams() {
	m := suite.newManager(suite.config("BTCUSDT"))
	bars := mocks.RiseAndFallBars("BTCUSDT", suite.start)

	params := types.DefaultTurtleParams()
	params.EntryPeriod = 10

	suite.NoError(m.UpdateParams("BTCUSDT", params))

	invalid := params
	invalid.MaxUnits = 0
	suite.True(errors.HasCode(m.UpdateParams("BTCUSDT", invalid), errors.ErrCodeInvalidMaxUnits))

	suite.NoError(m.UpdateParams("BTCUSDT", types.DefaultTurtleParams()))

	for _, bar := range bars[:21] {
		_, err := m.FeedBar(suite.ctx, "BTCUSDT", bar)
		suite.Require().NoError(err)
	}

	err := m.UpdateParams("BTCUSDT", params)
	suite.True(errors.HasCode(err, errors.ErrCodeParamsUpdateDenied))
	suite.True(errors.HasCode(m.UpdateParams("XRPUSDT", params), errors.ErrCodeUnknownInstrument))
}

func (suite *ManagerTestSuite) TestWarmupFromStore() {
	store, err := storage.NewDuckDBStore(storage.MemoryPath, suite.log)
	suite.Require().NoError(err)

	defer store.Close()

	bars := mocks.RiseAndFallBars("BTCUSDT", suite.start)
	suite.Require().NoError(store.SaveBars(suite.ctx, bars[:20]))

	m := suite.newManager(suite.config("BTCUSDT"), WithStore(store))
	suite.Require().NoError(m.Warmup(suite.ctx))

	// the stored history makes bar 20 a breakout immediately
	signal, err := m.FeedBar(suite.ctx, "BTCUSDT", bars[20])
	suite.Require().NoError(err)
	suite.Require().True(signal.IsSome())
	suite.Equal(types.SignalKindEnterLong, signal.Unwrap().Kind)

	signals, err := store.ListSignals(suite.ctx, "BTCUSDT", 0)
	suite.Require().NoError(err)
	suite.Len(signals, 1)

	count, err := store.CountBars(suite.ctx, "BTCUSDT")
	suite.Require().NoError(err)
	suite.Equal(21, count)
}

func (suite *ManagerTestSuite) interleave(symbols ...string) iter.Seq2[types.Bar, error] {
	series := make([][]types.Bar, len(symbols))
	for i, symbol := range symbols {
		series[i] = mocks.RiseAndFallBars(symbol, suite.start)
	}

	return func(yield func(types.Bar, error) bool) {
		for i := range series[0] {
			for _, bars := range series {
				if !yield(bars[i], nil) {
					return
				}
			}
		}
	}
}

func (suite *ManagerTestSuite) TestRunProcessesInstrumentsIndependently() {
	sink := mocks.NewMockSink(suite.ctrl)
	sink.EXPECT().OnSignal(gomock.Any()).Times(10)
	sink.EXPECT().OnTrade(gomock.Any()).Times(2)

	m := suite.newManager(suite.config("BTCUSDT", "ETHUSDT"), WithSinks(sink))

	stream := func(yield func(types.Bar, error) bool) {
		for bar, err := range suite.interleave("BTCUSDT", "ETHUSDT") {
			if !yield(bar, err) {
				return
			}
		}

		yield(types.Bar{}, fmt.Errorf("transient"))
		yield(types.Bar{Symbol: "XRPUSDT", Time: suite.start, Open: 1, High: 1, Low: 1, Close: 1}, nil)
	}

	suite.Require().NoError(m.Run(suite.ctx, stream))

	for _, instrument := range m.Instruments() {
		position, err := m.Position(instrument)
		suite.Require().NoError(err)
		suite.True(position.IsFlat())

		equity, err := m.Equity(instrument)
		suite.Require().NoError(err)
		suite.Greater(equity, 10000.0)
	}
}

func (suite *ManagerTestSuite) TestStopInterruptsBlockedStream() {
	m := suite.newManager(suite.config("BTCUSDT"))
	bars := mocks.RiseAndFallBars("BTCUSDT", suite.start)

	yielded := make(chan struct{})
	release := make(chan struct{})

	defer close(release)

	stream := func(yield func(types.Bar, error) bool) {
		for _, bar := range bars[:5] {
			if !yield(bar, nil) {
				return
			}
		}

		close(yielded)
		<-release
	}

	done := make(chan error, 1)

	go func() {
		done <- m.Run(suite.ctx, stream)
	}()

	<-yielded
	m.Stop()

	select {
	case err := <-done:
		suite.NoError(err)
	case <-time.After(5 * time.Second):
		suite.Fail("Run did not return after Stop")
	}

	// Stop with nothing running is a no-op
	m.Stop()
}

func (suite *ManagerTestSuite) TestRunRejectsConcurrentRuns() {
	m := suite.newManager(suite.config("BTCUSDT"))

	started := make(chan struct{})
	release := make(chan struct{})

	go func() {
		_ = m.Run(suite.ctx, func(yield func(types.Bar, error) bool) {
			close(started)
			<-release
		})
	}()

	<-started

	err := m.Run(suite.ctx, func(yield func(types.Bar, error) bool) {})
	suite.Error(err)

	close(release)
	m.Stop()
}

func (suite *ManagerTestSuite) TestRunReturnsContextError() {
	m := suite.newManager(suite.config("BTCUSDT"))

	ctx, cancel := context.WithCancel(suite.ctx)
	cancel()

	err := m.Run(ctx, suite.interleave("BTCUSDT"))
	suite.ErrorIs(err, context.Canceled)
}

func (suite *ManagerTestSuite) TestRunBacktestEmptyHistory() {
	m := suite.newManager(suite.config("BTCUSDT"))

	report, result, err := m.RunBacktest(suite.ctx, "BTCUSDT", nil, types.DefaultTurtleParams(), 10000)
	suite.Require().NoError(err)

	suite.Equal(10000.0, report.FinalCapital)
	suite.Equal(0.0, report.TotalReturn)
	suite.Equal(0.0, report.MaxDrawdown)
	suite.Equal(0, report.TradeCount)
	suite.Empty(result.Equity)
}

func (suite *ManagerTestSuite) TestRunBacktestMatchesLiveFeed() {
	m := suite.newManager(suite.config("BTCUSDT"))
	bars := mocks.RiseAndFallBars("BTCUSDT", suite.start)

	var live []types.Signal

	for _, bar := range bars {
		signal, err := m.FeedBar(suite.ctx, "BTCUSDT", bar)
		suite.Require().NoError(err)

		if signal.IsSome() {
			live = append(live, signal.Unwrap())
		}
	}

	_, result, err := m.RunBacktest(suite.ctx, "BTCUSDT", bars, types.DefaultTurtleParams(), 10000)
	suite.Require().NoError(err)
	suite.Equal(live, result.Signals)

	equity, err := m.Equity("BTCUSDT")
	suite.Require().NoError(err)
	suite.InDelta(equity, result.Report.FinalCapital, 1e-9)
}

func (suite *ManagerTestSuite) TestRunBacktestsInParallel() {
	m := suite.newManager(suite.config("BTCUSDT"))
	bars := mocks.RiseAndFallBars("BTCUSDT", suite.start)

	invalid := types.DefaultTurtleParams()
	invalid.RiskPerTrade = 0

	jobs := []BacktestJob{
		{Instrument: "BTCUSDT", Bars: bars, Params: types.DefaultTurtleParams(), InitialCapital: 10000},
		{Instrument: "BTCUSDT", Bars: bars, Params: invalid, InitialCapital: 10000},
		{Instrument: "BTCUSDT", Bars: bars, Params: types.DefaultTurtleParams(), InitialCapital: 10000},
		{Instrument: "ETHUSDT", Bars: mocks.RiseAndFallBars("ETHUSDT", suite.start), Params: types.DefaultTurtleParams(), InitialCapital: 5000},
	}

	outcomes := m.RunBacktests(suite.ctx, jobs)
	suite.Require().Len(outcomes, 4)

	suite.NoError(outcomes[0].Err)
	suite.True(errors.HasCode(outcomes[1].Err, errors.ErrCodeInvalidRiskFraction))
	suite.NoError(outcomes[2].Err)
	suite.NoError(outcomes[3].Err)

	suite.Equal(outcomes[0].Report, outcomes[2].Report)
	suite.Equal(1, outcomes[0].Report.TradeCount)
	suite.Equal("ETHUSDT", outcomes[3].Report.Instrument)
	suite.Equal(5000.0, outcomes[3].Report.InitialCapital)
}

func (suite *ManagerTestSuite) TestRunBacktestsMatchSequentialRuns() {
	symbols := []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"}
	m := suite.newManager(suite.config(symbols...))

	series := mocks.NewDataGenerator(42).GenerateMultiSymbol(symbols, mocks.TrendingConfig("", 400))

	jobs := make([]BacktestJob, 0, len(symbols))
	for _, symbol := range symbols {
		jobs = append(jobs, BacktestJob{
			Instrument:     symbol,
			Bars:           series[symbol],
			Params:         types.DefaultTurtleParams(),
			InitialCapital: 10000,
		})
	}

	outcomes := m.RunBacktests(suite.ctx, jobs)
	suite.Require().Len(outcomes, len(symbols))

	for i, job := range jobs {
		suite.Require().NoError(outcomes[i].Err)

		report, result, err := m.RunBacktest(suite.ctx, job.Instrument, job.Bars, job.Params, job.InitialCapital)
		suite.Require().NoError(err)

		suite.Equal(report, outcomes[i].Report)
		suite.Equal(result.Trades, outcomes[i].Result.Trades)
		suite.Equal(result.Equity, outcomes[i].Result.Equity)
		suite.Len(result.Equity, len(job.Bars))
		suite.NoError(result.OpenPosition.Validate(job.Params.MaxUnits))
	}
}

package backtest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rxtech-lab/turtle-trading/internal/backtest/commission_fee"
	"github.com/rxtech-lab/turtle-trading/internal/engine"
	"github.com/rxtech-lab/turtle-trading/internal/logger"
	"github.com/rxtech-lab/turtle-trading/internal/types"
	"github.com/rxtech-lab/turtle-trading/mocks"
	"github.com/rxtech-lab/turtle-trading/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type SimulatorTestSuite struct {
	suite.Suite
	ctx   context.Context
	start time.Time
	bars  []types.Bar
}

func TestSimulatorSuite(t *testing.T) {
	suite.Run(t, new(SimulatorTestSuite))
}

func (suite *SimulatorTestSuite) SetupTest() {
	suite.ctx = context.Background()
	suite.start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	suite.bars = mocks.RiseAndFallBars("BTCUSDT", suite.start)
}

func (suite *SimulatorTestSuite) newSimulator(config Config) *Simulator {
	sim, err := NewSimulator(config, logger.NewNopLogger())
	suite.Require().NoError(err)

	return sim
}

func (suite *SimulatorTestSuite) defaultConfig() Config {
	return Config{
		Params:              types.DefaultTurtleParams(),
		InitialCapital:      10000,
		Commission:          nil,
		SlippageBps:         0,
		LotSize:             0,
		AnnualizationFactor: 0,
	}
}

func (suite *SimulatorTestSuite) TestNewSimulatorValidation() {
	config := suite.defaultConfig()
	config.InitialCapital = 0
	_, err := NewSimulator(config, nil)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidCapital))

	config = suite.defaultConfig()
	config.Params.EntryPeriod = 0
	_, err = NewSimulator(config, nil)
	suite.True(errors.IsConfigError(err))

	config = suite.defaultConfig()
	config.SlippageBps = -1
	_, err = NewSimulator(config, nil)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))

	config = suite.defaultConfig()
	config.MaxNotionalFraction = -0.1
	_, err = NewSimulator(config, nil)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
}

func (suite *SimulatorTestSuite) TestRiseAndFall() {
	result, err := suite.newSimulator(suite.defaultConfig()).Run(suite.ctx, "BTCUSDT", suite.bars, LifecycleCallbacks{})
	suite.Require().NoError(err)

	suite.Len(result.Equity, 30)
	suite.Equal(0, result.Skipped)
	suite.Len(result.Signals, 5)
	suite.Require().Len(result.Trades, 1)
	suite.True(result.OpenPosition.IsFlat())

	trade := result.Trades[0]
	// 86@110 + 7@120 + 6@130 + 7@140 stopped out at 135.290125; the 95% cost
	// cap trims every unit below its risk size
	suite.InDelta(106*135.290125-12060, trade.PnL, 1e-6)
	suite.Equal(106.0, trade.Size)
	suite.Equal(types.ExitReasonStop, trade.ExitReason)

	report := result.Report
	suite.Equal(result.RunID, report.ID)
	suite.Equal("BTCUSDT", report.Instrument)
	suite.Equal(1, report.TradeCount)
	suite.Equal(1.0, report.WinRate)
	suite.InDelta(10000+trade.PnL, report.FinalCapital, 1e-6)
	suite.InDelta(trade.PnL/10000, report.TotalReturn, 1e-9)
	// peak at the 150 close: 10000 + 106*150 - 12060
	suite.InDelta((13840-report.FinalCapital)/13840, report.MaxDrawdown, 1e-9)
	suite.InDelta(0.2, report.BuyAndHoldReturn, 1e-9)
	suite.Equal(suite.bars[0].Time, report.StartTime)
	suite.Equal(suite.bars[29].Time, report.EndTime)
	suite.Equal(types.DefaultTurtleParams(), report.Params)
}

func (suite *SimulatorTestSuite) TestDeterministic() {
	config := suite.defaultConfig()
	config.Commission = commission_fee.NewPercentageCommissionFee(commission_fee.BinanceSpotTakerRate)
	config.SlippageBps = 5

	first, err := suite.newSimulator(config).Run(suite.ctx, "BTCUSDT", suite.bars, LifecycleCallbacks{})
	suite.Require().NoError(err)

	second, err := suite.newSimulator(config).Run(suite.ctx, "BTCUSDT", suite.bars, LifecycleCallbacks{})
	suite.Require().NoError(err)

	suite.Equal(first, second)
}

func (suite *SimulatorTestSuite) TestCostsReduceProfit() {
	free, err := suite.newSimulator(suite.defaultConfig()).Run(suite.ctx, "BTCUSDT", suite.bars, LifecycleCallbacks{})
	suite.Require().NoError(err)

	config := suite.defaultConfig()
	config.Commission = commission_fee.NewPercentageCommissionFee(commission_fee.BinanceSpotTakerRate)
	config.SlippageBps = 10

	costly, err := suite.newSimulator(config).Run(suite.ctx, "BTCUSDT", suite.bars, LifecycleCallbacks{})
	suite.Require().NoError(err)

	suite.Require().Len(costly.Trades, 1)
	suite.Greater(costly.Trades[0].Fee, 0.0)
	suite.Less(costly.Report.FinalCapital, free.Report.FinalCapital)
	suite.InDelta(costly.Trades[0].Fee, costly.Report.TotalFees, 1e-9)
}

func (suite *SimulatorTestSuite) TestSkipsDuplicateAndOutOfOrderBars() {
	bars := make([]types.Bar, 0, len(suite.bars)+2)
	bars = append(bars, suite.bars[:6]...)
	bars = append(bars, suite.bars[5], suite.bars[2])
	bars = append(bars, suite.bars[6:]...)

	result, err := suite.newSimulator(suite.defaultConfig()).Run(suite.ctx, "BTCUSDT", bars, LifecycleCallbacks{})
	suite.Require().NoError(err)

	suite.Equal(2, result.Skipped)
	suite.Len(result.Equity, 30)

	clean, err := suite.newSimulator(suite.defaultConfig()).Run(suite.ctx, "BTCUSDT", suite.bars, LifecycleCallbacks{})
	suite.Require().NoError(err)
	suite.Equal(clean.Trades, result.Trades)
	suite.Equal(clean.Equity, result.Equity)
}

func (suite *SimulatorTestSuite) TestEmptyHistory() {
	result, err := suite.newSimulator(suite.defaultConfig()).Run(suite.ctx, "BTCUSDT", nil, LifecycleCallbacks{})
	suite.Require().NoError(err)

	suite.Empty(result.Equity)
	suite.Empty(result.Trades)
	suite.Equal(10000.0, result.Report.FinalCapital)
	suite.Equal(0.0, result.Report.TotalReturn)
	suite.Equal(0.0, result.Report.SharpeRatio)
}

func (suite *SimulatorTestSuite) TestOpenPositionIsMarkedNotClosed() {
	result, err := suite.newSimulator(suite.defaultConfig()).Run(suite.ctx, "BTCUSDT", suite.bars[:25], LifecycleCallbacks{})
	suite.Require().NoError(err)

	suite.Empty(result.Trades)
	suite.Equal(types.DirectionLong, result.OpenPosition.Direction)
	suite.Len(result.OpenPosition.Units, 4)
	suite.InDelta(13840.0, result.Report.FinalCapital, 1e-6)
}

func (suite *SimulatorTestSuite) TestCancellation() {
	ctx, cancel := context.WithCancel(suite.ctx)

	onProcess := OnProcessBarCallback(func(current int, total int) error {
		if current == 10 {
			cancel()
		}

		return nil
	})

	result, err := suite.newSimulator(suite.defaultConfig()).Run(ctx, "BTCUSDT", suite.bars, LifecycleCallbacks{OnProcessBar: &onProcess})
	suite.True(errors.HasCode(err, errors.ErrCodeBacktestCancelled))
	suite.Len(result.Equity, 10)
	suite.Equal(result.Equity[9].Equity, result.Report.FinalCapital)
}

func (suite *SimulatorTestSuite) TestCallbacks() {
	var (
		startedID string
		endedID   string
		endErr    error
		processed int
		trades    int
	)

	onStart := OnRunStartCallback(func(runID string, instrument string, totalBars int) error {
		startedID = runID
		suite.Equal("BTCUSDT", instrument)
		suite.Equal(30, totalBars)

		return nil
	})
	onEnd := OnRunEndCallback(func(runID string, err error) {
		endedID = runID
		endErr = err
	})
	onProcess := OnProcessBarCallback(func(current int, total int) error {
		processed = current

		return nil
	})
	onTrade := OnTradeCallback(func(trade types.Trade) error {
		trades++

		return nil
	})

	result, err := suite.newSimulator(suite.defaultConfig()).Run(suite.ctx, "BTCUSDT", suite.bars, LifecycleCallbacks{
		OnRunStart:   &onStart,
		OnRunEnd:     &onEnd,
		OnProcessBar: &onProcess,
		OnTrade:      &onTrade,
	})
	suite.Require().NoError(err)

	suite.Equal(result.RunID, startedID)
	suite.Equal(result.RunID, endedID)
	suite.NoError(endErr)
	suite.Equal(30, processed)
	suite.Equal(1, trades)
}

func (suite *SimulatorTestSuite) TestCallbackErrorAborts() {
	var endErr error

	onProcess := OnProcessBarCallback(func(current int, total int) error {
		if current == 3 {
			return fmt.Errorf("stop here")
		}

		return nil
	})
	onEnd := OnRunEndCallback(func(runID string, err error) {
		endErr = err
	})

	result, err := suite.newSimulator(suite.defaultConfig()).Run(suite.ctx, "BTCUSDT", suite.bars, LifecycleCallbacks{
		OnProcessBar: &onProcess,
		OnRunEnd:     &onEnd,
	})
	suite.EqualError(err, "stop here")
	suite.Equal(err, endErr)
	suite.Len(result.Equity, 3)
}

func (suite *SimulatorTestSuite) TestFillUsesReferencePrice() {
	config := suite.defaultConfig()
	config.Commission = commission_fee.NewPercentageCommissionFee(0.001)
	config.SlippageBps = 10
	sim := suite.newSimulator(config)

	fill, err := sim.Fill(suite.ctx, engine.Order{
		ID:             "o",
		Instrument:     "BTCUSDT",
		Kind:           types.SignalKindExit,
		Side:           engine.SideSell,
		Size:           10,
		ReferencePrice: 97,
		ExitReason:     types.ExitReasonStop,
		Time:           suite.start,
	})
	suite.Require().NoError(err)
	suite.InDelta(96.903, fill.Price, 1e-9)
	suite.InDelta(0.96903, fill.Fee, 1e-9)

	_, err = sim.Fill(suite.ctx, engine.Order{ID: "z", Size: 0})
	suite.True(errors.HasCode(err, errors.ErrCodeFillFailed))
}

func (suite *SimulatorTestSuite) TestRunIDDependsOnRange() {
	suite.Equal(RunID("BTCUSDT", suite.bars), RunID("BTCUSDT", suite.bars))
	suite.NotEqual(RunID("BTCUSDT", suite.bars), RunID("BTCUSDT", suite.bars[:10]))
	suite.NotEqual(RunID("BTCUSDT", suite.bars), RunID("ETHUSDT", suite.bars))
}

package performance

import (
	"math"
	"testing"
	"time"

	"github.com/rxtech-lab/turtle-trading/internal/types"
	"github.com/stretchr/testify/suite"
)

type AnalyzerTestSuite struct {
	suite.Suite
	start time.Time
}

func TestAnalyzerSuite(t *testing.T) {
	suite.Run(t, new(AnalyzerTestSuite))
}

func (suite *AnalyzerTestSuite) SetupTest() {
	suite.start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
}

func (suite *AnalyzerTestSuite) curve(values ...float64) []types.EquityPoint {
	points := make([]types.EquityPoint, len(values))
	for i, v := range values {
		points[i] = types.EquityPoint{Time: suite.start.Add(time.Duration(i) * 24 * time.Hour), Equity: v}
	}

	return points
}

func (suite *AnalyzerTestSuite) TestEmptyHistoryIsNeutral() {
	report := Analyze(10000, nil, nil, DefaultOptions())

	suite.Equal(10000.0, report.InitialCapital)
	suite.Equal(10000.0, report.FinalCapital)
	suite.Equal(0.0, report.TotalReturn)
	suite.Equal(0.0, report.MaxDrawdown)
	suite.Equal(0, report.TradeCount)
	suite.Equal(0.0, report.WinRate)
	suite.Equal(0.0, report.AvgPnL)
	suite.Equal(0.0, report.SharpeRatio)
	suite.False(math.IsNaN(report.SharpeRatio))
}

func (suite *AnalyzerTestSuite) TestTotalReturnAndDrawdown() {
	equity := suite.curve(10000, 11000, 9900, 12000, 10800)
	report := Analyze(10000, equity, nil, DefaultOptions())

	suite.Equal(10800.0, report.FinalCapital)
	suite.InDelta(0.08, report.TotalReturn, 1e-12)
	// worst peak-to-trough: 11000 -> 9900
	suite.InDelta(0.1, report.MaxDrawdown, 1e-12)
	suite.Equal(equity[0].Time, report.StartTime)
	suite.Equal(equity[4].Time, report.EndTime)
}

func (suite *AnalyzerTestSuite) TestDrawdownFromInitialCapital() {
	suite.InDelta(0.2, MaxDrawdown(10000, suite.curve(8000, 9000)), 1e-12)
	suite.Equal(0.0, MaxDrawdown(10000, suite.curve(10000, 10500, 11000)))
}

func (suite *AnalyzerTestSuite) TestWinRateAndAvgPnL() {
	trades := []types.Trade{{PnL: 100, Fee: 1}, {PnL: -50, Fee: 1}, {PnL: 0, Fee: 1}, {PnL: 30, Fee: 2}}
	report := Analyze(10000, suite.curve(10000, 10080), trades, DefaultOptions())

	suite.Equal(4, report.TradeCount)
	suite.InDelta(0.5, report.WinRate, 1e-12)
	suite.InDelta(20.0, report.AvgPnL, 1e-12)
	suite.InDelta(5.0, report.TotalFees, 1e-12)
}

func (suite *AnalyzerTestSuite) TestSharpeUsesPopulationStddev() {
	// returns: +10%, -10%, +10%
	equity := suite.curve(100, 110, 99, 108.9)
	returns := Returns(equity)
	suite.Require().Len(returns, 3)

	mean := (0.1 - 0.1 + 0.1) / 3
	variance := (math.Pow(0.1-mean, 2)*2 + math.Pow(-0.1-mean, 2)) / 3
	expected := mean / math.Sqrt(variance) * math.Sqrt(365)

	suite.InDelta(expected, SharpeRatio(equity, 365), 1e-9)
	suite.InDelta(expected/math.Sqrt(365)*math.Sqrt(252), SharpeRatio(equity, 252), 1e-9)
}

func (suite *AnalyzerTestSuite) TestSharpeZeroCases() {
	suite.Equal(0.0, SharpeRatio(nil, 365))
	suite.Equal(0.0, SharpeRatio(suite.curve(100), 365))
	suite.Equal(0.0, SharpeRatio(suite.curve(100, 100, 100), 365))
	// a constant positive return has zero deviation
	suite.Equal(0.0, SharpeRatio(suite.curve(100, 200, 400), 365))
}

func (suite *AnalyzerTestSuite) TestNonPositiveFactorFallsBack() {
	equity := suite.curve(100, 110, 99, 108.9)

	report := Analyze(100, equity, nil, Options{AnnualizationFactor: 0})
	suite.InDelta(SharpeRatio(equity, DefaultAnnualizationFactor), report.SharpeRatio, 1e-12)
}

func (suite *AnalyzerTestSuite) TestBuyAndHold() {
	bars := []types.Bar{{Close: 100}, {Close: 90}, {Close: 125}}

	suite.InDelta(0.25, BuyAndHoldReturn(bars), 1e-12)
	suite.Equal(0.0, BuyAndHoldReturn(nil))
}

package series

import (
	"testing"
	"time"

	"github.com/rxtech-lab/turtle-trading/internal/types"
	"github.com/rxtech-lab/turtle-trading/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type BarSeriesTestSuite struct {
	suite.Suite
	start time.Time
}

func TestBarSeriesSuite(t *testing.T) {
	suite.Run(t, new(BarSeriesTestSuite))
}

func (suite *BarSeriesTestSuite) SetupTest() {
	suite.start = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
}

func (suite *BarSeriesTestSuite) bar(i int, closePrice float64) types.Bar {
	return types.Bar{
		Symbol: "BTCUSDT",
		Time:   suite.start.Add(time.Duration(i) * time.Hour),
		Open:   closePrice,
		High:   closePrice + 1,
		Low:    closePrice - 1,
		Close:  closePrice,
		Volume: 10,
	}
}

func (suite *BarSeriesTestSuite) TestAppendAndRead() {
	s := NewBarSeries("BTCUSDT")
	for i := range 5 {
		suite.Require().NoError(s.Append(suite.bar(i, float64(100+i))))
	}

	suite.Equal(5, s.Len())
	suite.Equal("BTCUSDT", s.Instrument())

	last, ok := s.Last()
	suite.True(ok)
	suite.Equal(104.0, last.Close)

	first, ok := s.At(0)
	suite.True(ok)
	suite.Equal(100.0, first.Close)

	_, ok = s.At(5)
	suite.False(ok)

	window := s.Window(3)
	suite.Len(window, 3)
	suite.Equal(104.0, window[2].Close)

	prior := s.Prior(3)
	suite.Len(prior, 3)
	suite.Equal(101.0, prior[0].Close)
	suite.Equal(103.0, prior[2].Close)

	suite.Len(s.Window(10), 5)
	suite.Len(s.Prior(10), 4)
	suite.Nil(s.Window(0))
}

func (suite *BarSeriesTestSuite) TestEmptySeries() {
	s := NewBarSeries("BTCUSDT")

	_, ok := s.Last()
	suite.False(ok)
	suite.Empty(s.Window(3))
	suite.Empty(s.Prior(3))
	suite.Empty(s.Bars())
}

func (suite *BarSeriesTestSuite) TestDuplicateBarRejected() {
	s := NewBarSeries("BTCUSDT")
	suite.Require().NoError(s.Append(suite.bar(0, 100)))

	err := s.Append(suite.bar(0, 200))
	suite.True(errors.HasCode(err, errors.ErrCodeDuplicateBar))
	suite.True(errors.IsDataError(err))

	last, _ := s.Last()
	suite.Equal(100.0, last.Close)
	suite.Equal(1, s.Len())
}

func (suite *BarSeriesTestSuite) TestOutOfOrderBarRejected() {
	s := NewBarSeries("BTCUSDT")
	suite.Require().NoError(s.Append(suite.bar(2, 100)))

	err := s.Append(suite.bar(1, 100))
	suite.True(errors.HasCode(err, errors.ErrCodeOutOfOrderBar))
	suite.Equal(1, s.Len())
}

func (suite *BarSeriesTestSuite) TestInvalidBarRejected() {
	s := NewBarSeries("BTCUSDT")
	bad := suite.bar(0, 100)
	bad.High = 50

	suite.True(errors.HasCode(s.Append(bad), errors.ErrCodeInvalidBar))
	suite.Equal(0, s.Len())
}

func (suite *BarSeriesTestSuite) TestCapacityKeepsTrailingWindow() {
	s := NewBarSeriesWithCapacity("BTCUSDT", 4)
	for i := range 20 {
		suite.Require().NoError(s.Append(suite.bar(i, float64(i+1))))
	}

	suite.Equal(20, s.Appended())
	suite.GreaterOrEqual(s.Len(), 4)

	window := s.Window(4)
	suite.Len(window, 4)
	suite.Equal([]float64{17, 18, 19, 20}, []float64{window[0].Close, window[1].Close, window[2].Close, window[3].Close})
}

func (suite *BarSeriesTestSuite) TestBarsReturnsCopy() {
	s := NewBarSeries("BTCUSDT")
	suite.Require().NoError(s.Append(suite.bar(0, 100)))

	bars := s.Bars()
	bars[0].Close = 1

	last, _ := s.Last()
	suite.Equal(100.0, last.Close)
}

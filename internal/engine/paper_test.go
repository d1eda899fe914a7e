package engine

import (
	"context"
	"testing"
	"time"

	"github.com/rxtech-lab/turtle-trading/internal/backtest/commission_fee"
	"github.com/rxtech-lab/turtle-trading/internal/logger"
	"github.com/rxtech-lab/turtle-trading/internal/types"
	"github.com/rxtech-lab/turtle-trading/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type PaperExecutionAdapterTestSuite struct {
	suite.Suite
}

func TestPaperExecutionAdapterSuite(t *testing.T) {
	suite.Run(t, new(PaperExecutionAdapterTestSuite))
}

func (suite *PaperExecutionAdapterTestSuite) order(side Side, size float64) Order {
	return Order{
		ID:             "order-1",
		Instrument:     "BTCUSDT",
		Kind:           types.SignalKindEnterLong,
		Side:           side,
		Size:           size,
		ReferencePrice: 100,
		ExitReason:     types.ExitReasonNone,
		Time:           time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (suite *PaperExecutionAdapterTestSuite) TestFillAppliesSlippageAndFee() {
	adapter := NewPaperExecutionAdapter(commission_fee.NewPercentageCommissionFee(0.001), 10, logger.NewNopLogger())

	buy, err := adapter.Fill(context.Background(), suite.order(SideBuy, 2))
	suite.Require().NoError(err)
	suite.InDelta(100.1, buy.Price, 1e-9)
	suite.InDelta(0.2002, buy.Fee, 1e-9)
	suite.Equal("order-1", buy.OrderID)

	sell, err := adapter.Fill(context.Background(), suite.order(SideSell, 2))
	suite.Require().NoError(err)
	suite.InDelta(99.9, sell.Price, 1e-9)

	suite.Len(adapter.Fills(), 2)
}

func (suite *PaperExecutionAdapterTestSuite) TestNilCommissionAndLogger() {
	adapter := NewPaperExecutionAdapter(nil, 0, nil)

	fill, err := adapter.Fill(context.Background(), suite.order(SideBuy, 1))
	suite.Require().NoError(err)
	suite.Equal(100.0, fill.Price)
	suite.Equal(0.0, fill.Fee)
}

func (suite *PaperExecutionAdapterTestSuite) TestRejects() {
	adapter := NewPaperExecutionAdapter(nil, 0, nil)

	_, err := adapter.Fill(context.Background(), suite.order(SideBuy, 0))
	suite.True(errors.HasCode(err, errors.ErrCodeFillFailed))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = adapter.Fill(ctx, suite.order(SideBuy, 1))
	suite.True(errors.HasCode(err, errors.ErrCodeFillFailed))
	suite.Empty(adapter.Fills())
}

func (suite *PaperExecutionAdapterTestSuite) TestSideFor() {
	suite.Equal(SideBuy, SideFor(types.DirectionLong, false))
	suite.Equal(SideSell, SideFor(types.DirectionLong, true))
	suite.Equal(SideSell, SideFor(types.DirectionShort, false))
	suite.Equal(SideBuy, SideFor(types.DirectionShort, true))
}

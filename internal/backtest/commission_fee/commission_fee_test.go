package commission_fee

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type CommissionFeeTestSuite struct {
	suite.Suite
}

func TestCommissionFeeSuite(t *testing.T) {
	suite.Run(t, new(CommissionFeeTestSuite))
}

func (suite *CommissionFeeTestSuite) TestZeroCommissionFee() {
	fee := NewZeroCommissionFee()
	suite.NotNil(fee)

	tests := []struct {
		name     string
		quantity float64
		price    float64
	}{
		{"zero quantity", 0, 100},
		{"small quantity", 10, 100},
		{"large quantity", 10000, 42000},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.Equal(0.0, fee.Calculate(tc.quantity, tc.price))
		})
	}
}

func (suite *CommissionFeeTestSuite) TestInteractiveBrokerCommissionFee() {
	fee := NewInteractiveBrokerCommissionFee()

	tests := []struct {
		name     string
		quantity float64
		expected float64
	}{
		{"zero quantity", 0, 1.0},
		{"small quantity - min fee", 10, 1.0},
		{"quantity at threshold", 200, 1.0},
		{"large quantity", 1000, 5.0},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			suite.Equal(tc.expected, fee.Calculate(tc.quantity, 123.45))
		})
	}
}

func (suite *CommissionFeeTestSuite) TestPercentageCommissionFee() {
	fee := NewPercentageCommissionFee(BinanceSpotTakerRate)

	suite.InDelta(10.0, fee.Calculate(2, 5000), 1e-9)
	suite.InDelta(10.0, fee.Calculate(-2, 5000), 1e-9)
	suite.Equal(0.0, fee.Calculate(0, 5000))
}

func (suite *CommissionFeeTestSuite) TestGetCommissionFeeHandler() {
	tests := []struct {
		name     string
		broker   Broker
		quantity float64
		price    float64
		expected float64
	}{
		{"interactive broker", BrokerInteractiveBroker, 1000, 10, 5.0},
		{"zero commission", BrokerZero, 1000, 10, 0.0},
		{"binance spot", BrokerBinanceSpot, 1000, 10, 10.0},
		{"unknown broker defaults to zero", Broker("unknown"), 1000, 10, 0.0},
	}

	for _, tc := range tests {
		suite.Run(tc.name, func() {
			handler := GetCommissionFeeHandler(tc.broker)
			suite.NotNil(handler)
			suite.InDelta(tc.expected, handler.Calculate(tc.quantity, tc.price), 1e-9)
		})
	}
}

func (suite *CommissionFeeTestSuite) TestAllBrokers() {
	suite.Len(AllBrokers, 3)
	suite.Contains(AllBrokers, BrokerInteractiveBroker)
	suite.Contains(AllBrokers, BrokerZero)
	suite.Contains(AllBrokers, BrokerBinanceSpot)
}

func (suite *CommissionFeeTestSuite) TestApplySlippage() {
	suite.Equal(100.0, ApplySlippage(100, true, 0))
	suite.InDelta(100.1, ApplySlippage(100, true, 10), 1e-9)
	suite.InDelta(99.9, ApplySlippage(100, false, 10), 1e-9)
}

package commission_fee

type CommissionFee interface {
	// Calculate the commission fee for a fill of quantity at price, in quote currency
	Calculate(quantity, price float64) float64
}

type Broker string

const (
	BrokerInteractiveBroker Broker = "interactive_broker"
	BrokerZero              Broker = "zero_commission"
	BrokerBinanceSpot       Broker = "binance_spot"
)

var AllBrokers = []any{
	BrokerInteractiveBroker,
	BrokerZero,
	BrokerBinanceSpot,
}

func GetCommissionFeeHandler(broker Broker) CommissionFee {
	switch broker {
	case BrokerInteractiveBroker:
		return NewInteractiveBrokerCommissionFee()
	case BrokerZero:
		return NewZeroCommissionFee()
	case BrokerBinanceSpot:
		return NewPercentageCommissionFee(BinanceSpotTakerRate)
	default:
		return NewZeroCommissionFee()
	}
}

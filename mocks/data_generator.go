package mocks

import (
	"math"
	"math/rand"
	"time"

	"github.com/rxtech-lab/turtle-trading/internal/types"
)

// DataGenerator generates random-walk bars for replay and determinism tests.
type DataGenerator struct {
	rng *rand.Rand
}

// NewDataGenerator creates a new DataGenerator with the given seed.
// Use a fixed seed for reproducible results in tests.
func NewDataGenerator(seed int64) *DataGenerator {
	return &DataGenerator{
		rng: rand.New(rand.NewSource(seed)),
	}
}

// GeneratorConfig configures a generated series.
type GeneratorConfig struct {
	Symbol    string
	StartTime time.Time
	Interval  time.Duration
	Count     int
	// InitialPrice is the open of the first bar.
	InitialPrice float64
	// Volatility is the standard deviation of the per-bar log return.
	Volatility float64
	// Drift is the per-bar log return added during an up regime and
	// subtracted during a down regime.
	Drift float64
	// RegimeLength is how many bars a regime lasts before the drift flips
	// sign. Zero keeps one up regime for the whole series.
	RegimeLength int
	// VolumeBase is the mean volume per bar.
	VolumeBase float64
	// SpikeEvery makes every nth bar trade three times its usual volume, 0 disables.
	SpikeEvery int
}

// DefaultConfig returns a driftless hourly BTCUSDT series.
func DefaultConfig() GeneratorConfig {
	return GeneratorConfig{
		Symbol:       "BTCUSDT",
		StartTime:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Interval:     time.Hour,
		Count:        2000,
		InitialPrice: 100.0,
		Volatility:   0.002,
		VolumeBase:   10000,
	}
}

// normal draws a standard normal value.
func (g *DataGenerator) normal() float64 {
	return g.rng.NormFloat64()
}

// Generate creates config.Count bars whose closes follow a geometric random
// walk with drift that alternates direction every RegimeLength bars.
func (g *DataGenerator) Generate(config GeneratorConfig) []types.Bar {
	bars := make([]types.Bar, config.Count)
	price := config.InitialPrice
	at := config.StartTime

	for i := range bars {
		drift := config.Drift
		if config.RegimeLength > 0 && (i/config.RegimeLength)%2 == 1 {
			drift = -drift
		}

		open := price
		closePrice := open * math.Exp(drift+config.Volatility*g.normal())

		// wicks extend beyond the body by up to half a volatility step
		wick := open * config.Volatility * 0.5
		high := math.Max(open, closePrice) + wick*g.rng.Float64()
		low := math.Min(open, closePrice) - wick*g.rng.Float64()

		volume := config.VolumeBase * (0.7 + 0.6*g.rng.Float64())
		if config.SpikeEvery > 0 && (i+1)%config.SpikeEvery == 0 {
			volume *= 3
		}

		bars[i] = types.Bar{
			Symbol: config.Symbol,
			Time:   at,
			Open:   roundToDecimals(open, 4),
			High:   roundToDecimals(high, 4),
			Low:    roundToDecimals(low, 4),
			Close:  roundToDecimals(closePrice, 4),
			Volume: roundToDecimals(volume, 2),
		}

		price = closePrice
		at = at.Add(config.Interval)
	}

	return bars
}

// GenerateMultiSymbol generates one series per symbol with slightly varied
// starting price and volatility.
func (g *DataGenerator) GenerateMultiSymbol(symbols []string, baseConfig GeneratorConfig) map[string][]types.Bar {
	out := make(map[string][]types.Bar, len(symbols))

	for _, symbol := range symbols {
		config := baseConfig
		config.Symbol = symbol
		config.InitialPrice = baseConfig.InitialPrice * (0.8 + g.rng.Float64()*0.4)
		config.Volatility = baseConfig.Volatility * (0.8 + g.rng.Float64()*0.4)

		out[symbol] = g.Generate(config)
	}

	return out
}

// TrendingConfig returns a config whose 60-bar regimes alternate between
// strong up and down trends, so breakouts on both sides, pyramids and exits
// all occur within a few hundred bars.
func TrendingConfig(symbol string, count int) GeneratorConfig {
	config := DefaultConfig()
	config.Symbol = symbol
	config.Count = count
	config.Volatility = 0.01
	config.Drift = 0.004
	config.RegimeLength = 60
	config.SpikeEvery = 25

	return config
}

// roundToDecimals rounds a float64 to the specified number of decimal places.
func roundToDecimals(val float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(val*pow) / pow
}

// RiseAndFallBars is a 30-bar hourly series: a slow climb from 100 to 110
// over 21 bars, a fast run to 150 over the next four, then a drop to 120.
// With default params it enters long on bar 20, pyramids to four units and
// is stopped out on bar 27 at a profit.
func RiseAndFallBars(symbol string, start time.Time) []types.Bar {
	closes := make([]float64, 0, 30)
	for i := range 21 {
		closes = append(closes, 100+0.5*float64(i))
	}

	for i := 1; i <= 4; i++ {
		closes = append(closes, 110+10*float64(i))
	}

	for i := 1; i <= 5; i++ {
		closes = append(closes, 150-6*float64(i))
	}

	bars := make([]types.Bar, len(closes))
	prev := closes[0]

	for i, c := range closes {
		bars[i] = types.Bar{
			Symbol: symbol,
			Time:   start.Add(time.Duration(i) * time.Hour),
			Open:   prev,
			High:   math.Max(prev, c) + 0.25,
			Low:    math.Min(prev, c) - 0.25,
			Close:  c,
			Volume: 1000,
		}
		prev = c
	}

	return bars
}

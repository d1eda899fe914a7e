// Package performance turns an equity curve and a trade list into a
// BacktestReport. Every function here is pure.
package performance

import (
	"math"

	"github.com/rxtech-lab/turtle-trading/internal/types"
	"github.com/shopspring/decimal"
)

// DefaultAnnualizationFactor treats each bar as one day of a market that
// trades every day of the year.
const DefaultAnnualizationFactor = 365.0

// Options tunes the derived ratios.
type Options struct {
	// AnnualizationFactor scales the per-bar Sharpe ratio by its square root.
	// Use 365 for daily crypto bars and 8760 for hourly ones.
	AnnualizationFactor float64
}

// DefaultOptions returns the daily annualization.
func DefaultOptions() Options {
	return Options{AnnualizationFactor: DefaultAnnualizationFactor}
}

// Analyze builds the report. An empty equity curve yields a neutral report
// whose final capital equals the initial capital.
func Analyze(initialCapital float64, equity []types.EquityPoint, trades []types.Trade, opts Options) types.BacktestReport {
	if opts.AnnualizationFactor <= 0 {
		opts.AnnualizationFactor = DefaultAnnualizationFactor
	}

	report := types.BacktestReport{
		InitialCapital: initialCapital,
		FinalCapital:   initialCapital,
		TradeCount:     len(trades),
	}

	if len(equity) > 0 {
		report.FinalCapital = equity[len(equity)-1].Equity
		report.StartTime = equity[0].Time
		report.EndTime = equity[len(equity)-1].Time
	}

	report.TotalReturn = TotalReturn(initialCapital, report.FinalCapital)
	report.MaxDrawdown = MaxDrawdown(initialCapital, equity)
	report.SharpeRatio = SharpeRatio(equity, opts.AnnualizationFactor)
	report.WinRate, report.AvgPnL, report.TotalFees = tradeStats(trades)

	return report
}

// TotalReturn is final/initial - 1, or 0 without capital.
func TotalReturn(initialCapital, finalCapital float64) float64 {
	if initialCapital == 0 {
		return 0
	}

	initial := decimal.NewFromFloat(initialCapital)
	result, _ := decimal.NewFromFloat(finalCapital).Sub(initial).Div(initial).Float64()

	return result
}

// MaxDrawdown is the largest (peak - equity) / peak over the curve. The peak
// starts at the initial capital so a loss on the very first bar counts.
func MaxDrawdown(initialCapital float64, equity []types.EquityPoint) float64 {
	peak := initialCapital
	worst := 0.0

	for _, point := range equity {
		peak = max(peak, point.Equity)
		if peak <= 0 {
			continue
		}

		worst = max(worst, (peak-point.Equity)/peak)
	}

	return worst
}

// Returns are the simple per-bar returns e[i]/e[i-1] - 1. A step from a
// non-positive equity is skipped.
func Returns(equity []types.EquityPoint) []float64 {
	if len(equity) < 2 {
		return nil
	}

	returns := make([]float64, 0, len(equity)-1)

	for i := 1; i < len(equity); i++ {
		prev := equity[i-1].Equity
		if prev <= 0 {
			continue
		}

		returns = append(returns, equity[i].Equity/prev-1)
	}

	return returns
}

// SharpeRatio is mean/stddev of the per-bar returns times
// sqrt(annualizationFactor), with the population standard deviation and a
// zero risk-free rate. It is 0 when there are fewer than two equity points or
// the returns never vary.
func SharpeRatio(equity []types.EquityPoint, annualizationFactor float64) float64 {
	returns := Returns(equity)
	if len(returns) == 0 {
		return 0
	}

	n := float64(len(returns))

	var sum float64
	for _, r := range returns {
		sum += r
	}

	mean := sum / n

	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}

	stddev := math.Sqrt(variance / n)
	if stddev == 0 || math.IsNaN(stddev) {
		return 0
	}

	return mean / stddev * math.Sqrt(annualizationFactor)
}

func tradeStats(trades []types.Trade) (winRate, avgPnL, totalFees float64) {
	if len(trades) == 0 {
		return 0, 0, 0
	}

	wins := 0
	pnl := decimal.Zero
	fees := decimal.Zero

	for _, trade := range trades {
		if trade.IsWin() {
			wins++
		}

		pnl = pnl.Add(decimal.NewFromFloat(trade.PnL))
		fees = fees.Add(decimal.NewFromFloat(trade.Fee))
	}

	count := decimal.NewFromInt(int64(len(trades)))
	avgPnL, _ = pnl.Div(count).Float64()
	totalFees, _ = fees.Float64()
	winRate = float64(wins) / float64(len(trades))

	return winRate, avgPnL, totalFees
}

// BuyAndHoldReturn is the return of holding from the first close to the last.
func BuyAndHoldReturn(bars []types.Bar) float64 {
	if len(bars) == 0 {
		return 0
	}

	return TotalReturn(bars[0].Close, bars[len(bars)-1].Close)
}

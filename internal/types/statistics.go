package types

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EquityPoint is the account value after one bar was processed.
type EquityPoint struct {
	Time   time.Time `yaml:"time" json:"time" csv:"time"`
	Equity float64   `yaml:"equity" json:"equity" csv:"equity"`
}

// BacktestReport summarizes one simulated run.
type BacktestReport struct {
	// ID is the unique identifier for this backtest run.
	ID         string `yaml:"id" json:"id"`
	Instrument string `yaml:"instrument" json:"instrument"`
	// InitialCapital is the cash the run started with.
	InitialCapital float64 `yaml:"initial_capital" json:"initial_capital"`
	// FinalCapital is the last equity point, or the initial capital when no bars were seen.
	FinalCapital float64 `yaml:"final_capital" json:"final_capital"`
	// TotalReturn is (final - initial) / initial.
	TotalReturn float64 `yaml:"total_return" json:"total_return"`
	// MaxDrawdown is the largest peak-to-trough decline as a fraction of the peak.
	MaxDrawdown float64 `yaml:"max_drawdown" json:"max_drawdown"`
	TradeCount  int     `yaml:"trade_count" json:"trade_count"`
	// WinRate is the share of trades with positive PnL, 0 without trades.
	WinRate float64 `yaml:"win_rate" json:"win_rate"`
	// AvgPnL is the mean trade PnL, 0 without trades.
	AvgPnL float64 `yaml:"avg_pnl" json:"avg_pnl"`
	// TotalFees is the commission paid across all trades.
	TotalFees   float64 `yaml:"total_fees" json:"total_fees"`
	SharpeRatio float64 `yaml:"sharpe_ratio" json:"sharpe_ratio"`
	// BuyAndHoldReturn is what holding the instrument from first to last close would have returned.
	BuyAndHoldReturn float64   `yaml:"buy_and_hold_return" json:"buy_and_hold_return"`
	StartTime        time.Time `yaml:"start_time" json:"start_time"`
	EndTime          time.Time `yaml:"end_time" json:"end_time"`
	// Params are the strategy settings the run used.
	Params TurtleParams `yaml:"params" json:"params"`
}

// WriteBacktestReport writes a single report to path as YAML.
func WriteBacktestReport(path string, report BacktestReport) error {
	return WriteBacktestReports(path, []BacktestReport{report})
}

// WriteBacktestReports writes reports to path as a YAML list.
func WriteBacktestReports(path string, reports []BacktestReport) error {
	data, err := yaml.Marshal(reports)
	if err != nil {
		return fmt.Errorf("failed to marshal backtest reports to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write backtest reports to file: %w", err)
	}

	return nil
}

// ReadBacktestReports loads reports written by WriteBacktestReports.
func ReadBacktestReports(path string) ([]BacktestReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read backtest reports: %w", err)
	}

	var reports []BacktestReport
	if err := yaml.Unmarshal(data, &reports); err != nil {
		return nil, fmt.Errorf("failed to unmarshal backtest reports: %w", err)
	}

	return reports, nil
}

// Package backtest replays historical bars through the same session the
// live path uses, with a deterministic fill model and a virtual ledger.
package backtest

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/rxtech-lab/turtle-trading/internal/backtest/commission_fee"
	"github.com/rxtech-lab/turtle-trading/internal/engine"
	"github.com/rxtech-lab/turtle-trading/internal/logger"
	"github.com/rxtech-lab/turtle-trading/internal/performance"
	"github.com/rxtech-lab/turtle-trading/internal/types"
	"github.com/rxtech-lab/turtle-trading/pkg/errors"
	"go.uber.org/zap"
)

// Config configures a Simulator.
type Config struct {
	Params         types.TurtleParams
	InitialCapital float64
	// Commission is charged on every fill, nothing when nil.
	Commission  commission_fee.CommissionFee
	SlippageBps float64
	// LotSize is the smallest tradable size, strategy.DefaultLotSize when 0.
	LotSize float64
	// MaxNotionalFraction caps the open position's cost as a share of equity,
	// strategy.DefaultMaxNotionalFraction when 0.
	MaxNotionalFraction float64
	AnnualizationFactor float64
}

// Result is everything one run produced.
type Result struct {
	RunID      string
	Instrument string
	Signals    []types.Signal
	Trades     []types.Trade
	Equity     []types.EquityPoint
	// Skipped counts duplicate, out-of-order and malformed bars.
	Skipped int
	// OpenPosition is the position still held after the last bar. It is
	// marked to market in the final equity point, not force-closed.
	OpenPosition types.Position
	Report       types.BacktestReport
}

// Simulator runs backtests. It holds no per-run state, so one Simulator can
// serve concurrent runs.
type Simulator struct {
	config Config
	log    *logger.Logger
}

// NewSimulator validates the configuration.
func NewSimulator(config Config, log *logger.Logger) (*Simulator, error) {
	if err := config.Params.Validate(); err != nil {
		return nil, err
	}

	if config.InitialCapital <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidCapital, "initial capital must be positive, got %.2f", config.InitialCapital)
	}

	if config.SlippageBps < 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "slippage must not be negative, got %.2f bps", config.SlippageBps)
	}

	if config.MaxNotionalFraction < 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "max notional fraction must not be negative, got %.4f", config.MaxNotionalFraction)
	}

	if config.Commission == nil {
		config.Commission = commission_fee.NewZeroCommissionFee()
	}

	if log == nil {
		log = logger.NewNopLogger()
	}

	return &Simulator{
		config: config,
		log:    log.Named("backtest"),
	}, nil
}

// Fill implements engine.FillSource. Orders fill at their reference price,
// which is the bar close or the stop level for stop exits, moved against the
// trader by the configured slippage.
func (s *Simulator) Fill(ctx context.Context, order engine.Order) (engine.Fill, error) {
	if order.Size <= 0 {
		return engine.Fill{}, errors.Newf(errors.ErrCodeFillFailed, "order %s has size %.8f", order.ID, order.Size)
	}

	price := commission_fee.ApplySlippage(order.ReferencePrice, order.Side == engine.SideBuy, s.config.SlippageBps)

	return engine.Fill{
		OrderID: order.ID,
		Price:   price,
		Size:    order.Size,
		Fee:     s.config.Commission.Calculate(order.Size, price),
		Time:    order.Time,
	}, nil
}

// Run replays bars in the order given, one pass, without look-ahead. Bars the
// series rejects are skipped with a warning and produce no equity point.
// Cancellation is checked between bars; the partial result is returned with
// the error.
func (s *Simulator) Run(ctx context.Context, instrument string, bars []types.Bar, callbacks LifecycleCallbacks) (result Result, err error) {
	runID := RunID(instrument, bars)
	log := s.log.With(zap.String("run_id", runID), zap.String("instrument", instrument))

	result = Result{
		RunID:        runID,
		Instrument:   instrument,
		Signals:      nil,
		Trades:       nil,
		Equity:       make([]types.EquityPoint, 0, len(bars)),
		Skipped:      0,
		OpenPosition: types.NewFlatPosition(instrument),
		Report:       types.BacktestReport{},
	}

	if callbacks.OnRunEnd != nil {
		defer func() {
			(*callbacks.OnRunEnd)(runID, err)
		}()
	}

	session, err := engine.NewSession(engine.SessionConfig{
		Instrument:          instrument,
		Params:              s.config.Params,
		InitialCapital:      s.config.InitialCapital,
		LotSize:             s.config.LotSize,
		MaxNotionalFraction: s.config.MaxNotionalFraction,
		Bounded:             false,
	}, s, log)
	if err != nil {
		return result, err
	}

	if callbacks.OnRunStart != nil {
		if err := (*callbacks.OnRunStart)(runID, instrument, len(bars)); err != nil {
			return result, err
		}
	}

	accepted := make([]types.Bar, 0, len(bars))

	for i, bar := range bars {
		select {
		case <-ctx.Done():
			s.finish(&result, session, accepted)

			return result, errors.Wrapf(errors.ErrCodeBacktestCancelled, ctx.Err(), "%s: backtest cancelled after %d bars", instrument, i)
		default:
		}

		step, err := session.Step(ctx, bar)

		switch {
		case err == nil:
			accepted = append(accepted, bar)
			result.Equity = append(result.Equity, step.Equity)
		case errors.IsDataError(err):
			result.Skipped++
			log.Warn("Skipping bar", zap.Int("index", i), zap.Time("bar_time", bar.Time), zap.Error(err))
		default:
			s.finish(&result, session, accepted)

			return result, errors.Wrapf(errors.ErrCodeBacktestFailed, err, "%s: bar %d", instrument, i)
		}

		if step.Signal.IsSome() {
			result.Signals = append(result.Signals, step.Signal.Unwrap())
		}

		if step.Trade.IsSome() {
			trade := step.Trade.Unwrap()
			result.Trades = append(result.Trades, trade)

			if callbacks.OnTrade != nil {
				if err := (*callbacks.OnTrade)(trade); err != nil {
					s.finish(&result, session, accepted)

					return result, err
				}
			}
		}

		if callbacks.OnProcessBar != nil {
			if err := (*callbacks.OnProcessBar)(i+1, len(bars)); err != nil {
				s.finish(&result, session, accepted)

				return result, err
			}
		}
	}

	s.finish(&result, session, accepted)

	log.Info("Backtest finished",
		zap.Int("bars", len(accepted)),
		zap.Int("skipped", result.Skipped),
		zap.Int("trades", len(result.Trades)),
		zap.Float64("final_capital", result.Report.FinalCapital),
	)

	return result, nil
}

func (s *Simulator) finish(result *Result, session *engine.Session, accepted []types.Bar) {
	result.OpenPosition = session.Position()

	report := performance.Analyze(s.config.InitialCapital, result.Equity, result.Trades, performance.Options{
		AnnualizationFactor: s.config.AnnualizationFactor,
	})
	report.ID = result.RunID
	report.Instrument = result.Instrument
	report.Params = s.config.Params
	report.BuyAndHoldReturn = performance.BuyAndHoldReturn(accepted)

	result.Report = report
}

// RunID is a name-based UUID of the instrument and the bar range.
func RunID(instrument string, bars []types.Bar) string {
	name := fmt.Sprintf("backtest/%s/%d", instrument, len(bars))
	if len(bars) > 0 {
		name = fmt.Sprintf("%s/%d/%d", name, bars[0].Time.UnixNano(), bars[len(bars)-1].Time.UnixNano())
	}

	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

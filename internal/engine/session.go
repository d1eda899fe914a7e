package engine

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/turtle-trading/internal/indicator"
	"github.com/rxtech-lab/turtle-trading/internal/logger"
	"github.com/rxtech-lab/turtle-trading/internal/series"
	"github.com/rxtech-lab/turtle-trading/internal/strategy"
	"github.com/rxtech-lab/turtle-trading/internal/types"
	"github.com/rxtech-lab/turtle-trading/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// confidenceHistory is the number of bars Confidence looks back over, the current one included.
const confidenceHistory = 10

// SessionConfig configures one instrument's session.
type SessionConfig struct {
	Instrument     string
	Params         types.TurtleParams
	InitialCapital float64
	// LotSize is the smallest tradable size, strategy.DefaultLotSize when 0.
	LotSize float64
	// MaxNotionalFraction caps the cost of the open position as a share of
	// equity, strategy.DefaultMaxNotionalFraction when 0.
	MaxNotionalFraction float64
	// Bounded keeps only the bars the indicators need. Live sessions run
	// bounded, backtests keep the full replay.
	Bounded bool
}

// StepResult is everything one bar produced.
type StepResult struct {
	Bar      types.Bar
	Decision strategy.Decision
	Signal   optional.Option[types.Signal]
	Trade    optional.Option[types.Trade]
	Equity   types.EquityPoint
}

// Session owns one instrument's bar history, ATR, position and cash and
// advances them one bar at a time. It is not safe for concurrent use; the
// owner serializes Step calls.
type Session struct {
	instrument string
	params     types.TurtleParams
	lotSize    float64
	maxCost    float64
	bounded    bool

	series *series.BarSeries
	atr    *indicator.ATR
	turtle *strategy.Turtle
	sizer  *strategy.Sizer

	position types.Position
	// cash is the initial capital plus realized PnL minus every fee paid.
	cash decimal.Decimal
	// openFees are the entry fees of the open position, charged to its trade on exit.
	openFees decimal.Decimal

	fills  FillSource
	halted error
	log    *logger.Logger
}

// NewSession validates the configuration and returns a flat session.
func NewSession(cfg SessionConfig, fills FillSource, log *logger.Logger) (*Session, error) {
	if cfg.Instrument == "" {
		return nil, errors.New(errors.ErrCodeMissingParameter, "instrument is required")
	}

	if cfg.InitialCapital <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidCapital, "initial capital must be positive, got %.2f", cfg.InitialCapital)
	}

	if fills == nil {
		return nil, errors.New(errors.ErrCodeMissingParameter, "fill source is required")
	}

	if cfg.MaxNotionalFraction < 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidParameter, "max notional fraction must not be negative, got %.4f", cfg.MaxNotionalFraction)
	}

	maxCost := cfg.MaxNotionalFraction
	if maxCost == 0 {
		maxCost = strategy.DefaultMaxNotionalFraction
	}

	s := &Session{
		instrument: cfg.Instrument,
		params:     types.TurtleParams{},
		lotSize:    cfg.LotSize,
		maxCost:    maxCost,
		bounded:    cfg.Bounded,
		series:     nil,
		atr:        nil,
		turtle:     nil,
		sizer:      nil,
		position:   types.NewFlatPosition(cfg.Instrument),
		cash:       decimal.NewFromFloat(cfg.InitialCapital),
		openFees:   decimal.Zero,
		fills:      fills,
		halted:     nil,
		log:        log.Named("session").With(zap.String("instrument", cfg.Instrument)),
	}

	if err := s.applyParams(cfg.Params, nil); err != nil {
		return nil, err
	}

	return s, nil
}

// applyParams rebuilds the rule objects and replays history into a fresh ATR.
func (s *Session) applyParams(params types.TurtleParams, history []types.Bar) error {
	turtle, err := strategy.NewTurtle(params)
	if err != nil {
		return err
	}

	atr, err := indicator.NewATR(params.ATRPeriod)
	if err != nil {
		return err
	}

	var bars *series.BarSeries
	if s.bounded {
		bars = series.NewBarSeriesWithCapacity(s.instrument, max(params.WarmupBars(), confidenceHistory))
	} else {
		bars = series.NewBarSeries(s.instrument)
	}

	for _, bar := range history {
		if err := bars.Append(bar); err != nil {
			return err
		}

		atr.Update(bar)
	}

	s.params = params
	s.turtle = turtle
	s.sizer = strategy.NewSizer(params, s.lotSize)
	s.atr = atr
	s.series = bars

	return nil
}

// Instrument returns the instrument this session trades.
func (s *Session) Instrument() string {
	return s.instrument
}

// Params returns the active strategy settings.
func (s *Session) Params() types.TurtleParams {
	return s.params
}

// Position returns a copy of the current position.
func (s *Session) Position() types.Position {
	return s.position.Clone()
}

// Cash returns initial capital plus realized PnL net of fees.
func (s *Session) Cash() float64 {
	cash, _ := s.cash.Float64()

	return cash
}

// Equity marks the open position to price and adds it to cash.
func (s *Session) Equity(price float64) float64 {
	equity, _ := s.equity(price).Float64()

	return equity
}

func (s *Session) equity(price float64) decimal.Decimal {
	return s.cash.Add(decimal.NewFromFloat(s.position.UnrealizedPnL(price)))
}

// ATR returns the current average true range.
func (s *Session) ATR() optional.Option[float64] {
	return s.atr.Value()
}

// LastBar returns the most recent accepted bar.
func (s *Session) LastBar() (types.Bar, bool) {
	return s.series.Last()
}

// Halted returns the fault that stopped the session, nil while healthy.
func (s *Session) Halted() error {
	return s.halted
}

// Warmup feeds history into the series and ATR without evaluating any rule.
// Bars that are duplicate or out of order are skipped.
func (s *Session) Warmup(bars []types.Bar) int {
	applied := 0

	for _, bar := range bars {
		if err := s.series.Append(bar); err != nil {
			s.log.Debug("Skipping warmup bar", zap.Time("bar_time", bar.Time), zap.Error(err))

			continue
		}

		s.atr.Update(bar)
		applied++
	}

	return applied
}

// UpdateParams swaps the strategy settings. It is only allowed while flat so
// an open position's stop can never be loosened by a new multiple.
func (s *Session) UpdateParams(params types.TurtleParams) error {
	if err := params.Validate(); err != nil {
		return err
	}

	if !s.position.IsFlat() {
		return errors.Newf(errors.ErrCodeParamsUpdateDenied, "%s: cannot update params while %s", s.instrument, s.position.Direction)
	}

	if err := s.applyParams(params, s.series.Bars()); err != nil {
		return err
	}

	s.log.Info("Params updated",
		zap.Int("entry_period", params.EntryPeriod),
		zap.Int("exit_period", params.ExitPeriod),
		zap.Int("atr_period", params.ATRPeriod),
		zap.Float64("risk_per_trade", params.RiskPerTrade),
		zap.Int("max_units", params.MaxUnits),
	)

	return nil
}

// Step applies one bar: append it, update the ATR, evaluate the rules, size
// and fill the decision, then mark equity at the close.
//
// Duplicate, out-of-order and malformed bars return a data error and leave
// the session untouched. An invariant fault halts the session.
func (s *Session) Step(ctx context.Context, bar types.Bar) (StepResult, error) {
	if s.halted != nil {
		return StepResult{}, errors.Wrapf(errors.ErrCodeSessionHalted, s.halted, "%s: session halted", s.instrument)
	}

	if err := s.series.Append(bar); err != nil {
		return StepResult{}, err
	}

	atr := s.atr.Update(bar)
	decision := s.turtle.Evaluate(s.series, atr, s.position)

	result := StepResult{
		Bar:      bar,
		Decision: decision,
		Signal:   optional.None[types.Signal](),
		Trade:    optional.None[types.Trade](),
		Equity:   types.EquityPoint{},
	}

	var err error

	switch decision.Kind {
	case types.SignalKindEnterLong, types.SignalKindEnterShort, types.SignalKindAddUnit:
		err = s.enter(ctx, bar, &result)
	case types.SignalKindExit:
		err = s.exit(ctx, bar, &result)
	case types.SignalKindHold:
		s.log.Debug("Hold", zap.Time("bar_time", bar.Time), zap.String("reason", decision.Reason))
	}

	if err != nil {
		if errors.IsInvariantError(err) {
			s.halt(err)
		}

		return result, err
	}

	if err := s.position.Validate(s.params.MaxUnits); err != nil {
		s.halt(err)

		return result, err
	}

	result.Equity = types.EquityPoint{Time: bar.Time, Equity: s.Equity(bar.Close)}

	return result, nil
}

func (s *Session) halt(err error) {
	s.halted = err
	s.log.Error("Session halted", zap.Error(err))
}

func (s *Session) enter(ctx context.Context, bar types.Bar, result *StepResult) error {
	decision := result.Decision

	direction := decision.Kind.EntryDirection()
	if decision.Kind == types.SignalKindAddUnit {
		direction = s.position.Direction
	}

	equity, _ := s.equity(bar.Close).Float64()

	size, err := s.sizer.UnitSize(equity, decision.ATR)
	if err != nil {
		if errors.IsDataError(err) {
			s.suppress(result, fmt.Sprintf("cannot size: %v", err))
			s.log.Warn("Entry suppressed", zap.Time("bar_time", bar.Time), zap.Error(err))

			return nil
		}

		return err
	}

	if size <= 0 {
		s.suppress(result, "risk budget below one lot")
		s.log.Debug("Entry suppressed, size is zero", zap.Time("bar_time", bar.Time), zap.Float64("equity", equity))

		return nil
	}

	openCost := s.openCost()

	capped := s.sizer.CapToNotional(size, decision.ReferencePrice, equity, openCost, s.maxCost)
	if capped <= 0 {
		s.suppress(result, fmt.Sprintf("position cost %.2f leaves no room under %.0f%% of equity", openCost, s.maxCost*100))
		s.log.Debug("Entry suppressed, notional cap reached", zap.Time("bar_time", bar.Time), zap.Float64("equity", equity), zap.Float64("open_cost", openCost))

		return nil
	}

	if capped < size {
		s.log.Debug("Unit capped by notional limit", zap.Float64("risk_size", size), zap.Float64("size", capped))
		size = capped
	}

	order := Order{
		ID:             s.deriveID(string(decision.Kind), bar),
		Instrument:     s.instrument,
		Kind:           decision.Kind,
		Side:           SideFor(direction, false),
		Size:           size,
		ReferencePrice: decision.ReferencePrice,
		ExitReason:     types.ExitReasonNone,
		Time:           bar.Time,
	}

	fill, err := s.fills.Fill(ctx, order)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeFillFailed, err, "%s: %s fill failed", s.instrument, decision.Kind)
	}

	stop := strategy.StopFor(direction, fill.Price, decision.ATR.Unwrap(), s.params.StopMultiple)
	unit := types.Unit{EntryPrice: fill.Price, Size: fill.Size, EntryTime: bar.Time}

	if decision.Kind == types.SignalKindAddUnit {
		err = s.position.AddUnit(unit, stop)
	} else {
		err = s.position.Open(direction, unit, stop)
	}

	if err != nil {
		return err
	}

	fee := decimal.NewFromFloat(fill.Fee)
	s.cash = s.cash.Sub(fee)
	s.openFees = s.openFees.Add(fee)

	result.Signal = optional.Some(types.Signal{
		ID:             order.ID,
		Instrument:     s.instrument,
		Time:           bar.Time,
		Kind:           decision.Kind,
		ReferencePrice: decision.ReferencePrice,
		Confidence:     strategy.Confidence(s.series, decision.Kind, direction),
		Reason:         decision.Reason,
		ExitReason:     types.ExitReasonNone,
		Size:           fill.Size,
	})

	s.log.Info("Unit filled",
		zap.String("kind", string(decision.Kind)),
		zap.Time("bar_time", bar.Time),
		zap.Float64("price", fill.Price),
		zap.Float64("size", fill.Size),
		zap.Float64("stop", s.position.StopPrice.Unwrap()),
		zap.Int("units", len(s.position.Units)),
	)

	return nil
}

func (s *Session) exit(ctx context.Context, bar types.Bar, result *StepResult) error {
	decision := result.Decision
	direction := s.position.Direction

	order := Order{
		ID:             s.deriveID(string(decision.Kind), bar),
		Instrument:     s.instrument,
		Kind:           decision.Kind,
		Side:           SideFor(direction, true),
		Size:           s.position.TotalSize(),
		ReferencePrice: decision.ReferencePrice,
		ExitReason:     decision.ExitReason,
		Time:           bar.Time,
	}

	fill, err := s.fills.Fill(ctx, order)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeFillFailed, err, "%s: exit fill failed", s.instrument)
	}

	entryPrice := s.position.AverageEntryPrice()
	openTime := s.position.OpenTime()
	units := s.position.Close()

	gross := types.GrossPnL(direction, units, fill.Price)
	exitFee := decimal.NewFromFloat(fill.Fee)
	totalFee := s.openFees.Add(exitFee)

	s.cash = s.cash.Add(gross).Sub(exitFee)
	s.openFees = decimal.Zero

	pnl, _ := gross.Sub(totalFee).Float64()
	fee, _ := totalFee.Float64()

	trade := types.Trade{
		ID:         s.deriveID("TRADE", bar),
		Instrument: s.instrument,
		Direction:  direction,
		OpenTime:   openTime,
		CloseTime:  bar.Time,
		EntryPrice: entryPrice,
		ExitPrice:  fill.Price,
		Size:       fill.Size,
		Units:      len(units),
		Fee:        fee,
		PnL:        pnl,
		ExitReason: decision.ExitReason,
	}

	result.Trade = optional.Some(trade)
	result.Signal = optional.Some(types.Signal{
		ID:             order.ID,
		Instrument:     s.instrument,
		Time:           bar.Time,
		Kind:           types.SignalKindExit,
		ReferencePrice: decision.ReferencePrice,
		Confidence:     strategy.Confidence(s.series, types.SignalKindExit, direction),
		Reason:         decision.Reason,
		ExitReason:     decision.ExitReason,
		Size:           fill.Size,
	})

	s.log.Info("Position closed",
		zap.String("exit_reason", string(decision.ExitReason)),
		zap.Time("bar_time", bar.Time),
		zap.Float64("entry_price", entryPrice),
		zap.Float64("exit_price", fill.Price),
		zap.Float64("size", fill.Size),
		zap.Float64("pnl", pnl),
	)

	return nil
}

// openCost is what the open units cost at their entry prices.
func (s *Session) openCost() float64 {
	cost := decimal.Zero

	for _, unit := range s.position.Units {
		cost = cost.Add(decimal.NewFromFloat(unit.EntryPrice).Mul(decimal.NewFromFloat(unit.Size)))
	}

	value, _ := cost.Float64()

	return value
}

func (s *Session) suppress(result *StepResult, reason string) {
	result.Decision.Kind = types.SignalKindHold
	result.Decision.Reason = reason
}

// deriveID is a name-based UUID of the instrument, a tag and the bar time, so
// replays of the same bars always produce the same identifiers.
func (s *Session) deriveID(tag string, bar types.Bar) string {
	name := fmt.Sprintf("%s/%s/%d", s.instrument, tag, bar.Time.UnixNano())

	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name)).String()
}

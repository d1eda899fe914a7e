// Package manager owns one trading session per instrument and routes live
// bars and backtest requests to them.
package manager

import (
	"context"
	"iter"
	"slices"
	"sync"

	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/turtle-trading/internal/backtest"
	"github.com/rxtech-lab/turtle-trading/internal/engine"
	"github.com/rxtech-lab/turtle-trading/internal/events"
	"github.com/rxtech-lab/turtle-trading/internal/logger"
	"github.com/rxtech-lab/turtle-trading/internal/storage"
	"github.com/rxtech-lab/turtle-trading/internal/types"
	"github.com/rxtech-lab/turtle-trading/pkg/errors"
	"go.uber.org/zap"
)

// instrumentBuffer is how many bars may queue for one instrument's worker
// before the dispatcher waits.
const instrumentBuffer = 64

type Option func(*Manager)

// WithStore persists accepted bars, signals and trades.
func WithStore(store storage.Store) Option {
	return func(m *Manager) {
		m.store = store
	}
}

// WithSinks adds observers for signals and trades.
func WithSinks(sinks ...events.Sink) Option {
	return func(m *Manager) {
		m.sinks = append(m.sinks, sinks...)
	}
}

func WithLogger(log *logger.Logger) Option {
	return func(m *Manager) {
		m.log = log
	}
}

type instrumentSession struct {
	mu      sync.Mutex
	session *engine.Session
}

// Manager holds the sessions of every configured instrument. Each session is
// guarded by its own mutex, so instruments never wait on each other.
type Manager struct {
	config Config
	fills  engine.FillSource
	store  storage.Store
	sinks  []events.Sink
	log    *logger.Logger

	sessions map[string]*instrumentSession

	runMu   sync.Mutex
	cancel  context.CancelFunc
	running chan struct{}
}

// New validates the config and creates a flat session per symbol. A nil fill
// source fills on paper with the configured broker's commission and slippage.
func New(config Config, fills engine.FillSource, opts ...Option) (*Manager, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	m := &Manager{
		config:   config,
		fills:    fills,
		store:    nil,
		sinks:    nil,
		log:      nil,
		sessions: make(map[string]*instrumentSession, len(config.Symbols)),
		runMu:    sync.Mutex{},
		cancel:   nil,
		running:  nil,
	}

	for _, opt := range opts {
		opt(m)
	}

	if m.log == nil {
		m.log = logger.NewNopLogger()
	}

	m.log = m.log.Named("manager")

	if m.fills == nil {
		m.fills = engine.NewPaperExecutionAdapter(config.Commission(), config.SlippageBps, m.log)
	}

	for _, symbol := range config.Symbols {
		if _, ok := m.sessions[symbol]; ok {
			return nil, errors.Newf(errors.ErrCodeInvalidConfiguration, "symbol %s listed twice", symbol)
		}

		session, err := engine.NewSession(engine.SessionConfig{
			Instrument:          symbol,
			Params:              config.Params,
			InitialCapital:      config.InitialCapital,
			LotSize:             config.LotSize,
			MaxNotionalFraction: config.MaxNotionalFraction,
			Bounded:             true,
		}, m.fills, m.log)
		if err != nil {
			return nil, err
		}

		m.sessions[symbol] = &instrumentSession{mu: sync.Mutex{}, session: session}
	}

	return m, nil
}

func (m *Manager) lookup(instrument string) (*instrumentSession, error) {
	s, ok := m.sessions[instrument]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeUnknownInstrument, "instrument %s is not configured", instrument)
	}

	return s, nil
}

// Instruments returns the configured instruments in sorted order.
func (m *Manager) Instruments() []string {
	instruments := make([]string, 0, len(m.sessions))
	for instrument := range m.sessions {
		instruments = append(instruments, instrument)
	}

	slices.Sort(instruments)

	return instruments
}

// Warmup loads the most recent stored bars of every instrument into its
// indicators so live trading can act on the first streamed bar. It is a no-op
// without a store.
func (m *Manager) Warmup(ctx context.Context) error {
	if m.store == nil {
		return nil
	}

	for _, instrument := range m.Instruments() {
		s := m.sessions[instrument]

		s.mu.Lock()
		required := s.session.Params().WarmupBars()
		bars, err := m.store.LatestBars(ctx, instrument, required)
		if err == nil {
			applied := s.session.Warmup(bars)
			m.log.Info("Warmed up", zap.String("instrument", instrument), zap.Int("bars", applied))

			if applied < required {
				short := errors.NewInsufficientDataErrorf(required, applied, instrument,
					"only %d of %d warmup bars stored for %s", applied, required, instrument)
				m.log.Warn("Indicators not ready after warmup", zap.String("instrument", instrument), zap.Error(short))
			}
		}
		s.mu.Unlock()

		if err != nil {
			return err
		}
	}

	return nil
}

// FeedBar applies one bar to its instrument's session and emits what it
// produced. Duplicate, out-of-order, malformed and mislabelled bars are
// dropped with a warning and yield None without an error.
func (m *Manager) FeedBar(ctx context.Context, instrument string, bar types.Bar) (optional.Option[types.Signal], error) {
	s, err := m.lookup(instrument)
	if err != nil {
		return optional.None[types.Signal](), err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := m.step(ctx, s, instrument, bar)
	if err != nil {
		if errors.IsDataError(err) {
			m.log.Warn("Dropping bar",
				zap.String("instrument", instrument),
				zap.Time("bar_time", bar.Time),
				zap.Error(err),
			)

			return optional.None[types.Signal](), nil
		}

		return optional.None[types.Signal](), err
	}

	m.persistBar(ctx, result.Bar)

	if result.Signal.IsSome() {
		signal := result.Signal.Unwrap()
		m.persist(ctx, "signal", signal.ID, func() error { return m.store.AppendSignal(ctx, signal) })

		for _, sink := range m.sinks {
			sink.OnSignal(signal)
		}
	}

	if result.Trade.IsSome() {
		trade := result.Trade.Unwrap()
		m.persist(ctx, "trade", trade.ID, func() error { return m.store.AppendTrade(ctx, trade) })

		for _, sink := range m.sinks {
			sink.OnTrade(trade)
		}
	}

	return result.Signal, nil
}

// step runs bar through the session once its symbol is known to belong to
// instrument. An unlabelled bar is stamped with instrument.
func (m *Manager) step(ctx context.Context, s *instrumentSession, instrument string, bar types.Bar) (engine.StepResult, error) {
	if bar.Symbol == "" {
		bar.Symbol = instrument
	}

	if bar.Symbol != instrument {
		return engine.StepResult{}, errors.Newf(errors.ErrCodeInvalidBar, "bar for %s fed to %s", bar.Symbol, instrument)
	}

	return s.session.Step(ctx, bar)
}

func (m *Manager) persistBar(ctx context.Context, bar types.Bar) {
	m.persist(ctx, "bar", bar.Time.String(), func() error { return m.store.SaveBars(ctx, []types.Bar{bar}) })
}

// persist never fails the trading path; a storage error is logged and the
// session keeps running.
func (m *Manager) persist(ctx context.Context, kind string, id string, write func() error) {
	if m.store == nil {
		return
	}

	if err := write(); err != nil {
		m.log.Error("Failed to persist", zap.String("kind", kind), zap.String("id", id), zap.Error(err))
	}
}

// Position returns a copy of the instrument's position.
func (m *Manager) Position(instrument string) (types.Position, error) {
	s, err := m.lookup(instrument)
	if err != nil {
		return types.Position{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.session.Position(), nil
}

// Equity returns the instrument's cash plus its position marked at the last close.
func (m *Manager) Equity(instrument string) (float64, error) {
	s, err := m.lookup(instrument)
	if err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	last, ok := s.session.LastBar()
	if !ok {
		return s.session.Cash(), nil
	}

	return s.session.Equity(last.Close), nil
}

// UpdateParams swaps the instrument's strategy settings. It is refused while a
// position is open.
func (m *Manager) UpdateParams(instrument string, params types.TurtleParams) error {
	s, err := m.lookup(instrument)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.session.UpdateParams(params)
}

// Run consumes the live stream until it ends, ctx is cancelled or Stop is
// called. Bars are dispatched to one worker per instrument, so instruments
// progress independently while each sees its bars in stream order.
// Cancellation is observed between bars; a bar already being applied always
// completes. The stream should stop on its own once ctx is done.
func (m *Manager) Run(ctx context.Context, stream iter.Seq2[types.Bar, error]) error {
	m.runMu.Lock()
	if m.running != nil {
		m.runMu.Unlock()

		return errors.New(errors.ErrCodeInvalidConfiguration, "manager is already running")
	}

	runCtx, cancel := context.WithCancel(ctx)
	running := make(chan struct{})
	m.cancel = cancel
	m.running = running
	m.runMu.Unlock()

	defer func() {
		cancel()

		m.runMu.Lock()
		m.cancel = nil
		m.running = nil
		m.runMu.Unlock()

		close(running)
	}()

	instruments := m.Instruments()
	queues := make(map[string]chan types.Bar, len(instruments))

	var wg sync.WaitGroup

	for _, instrument := range instruments {
		queue := make(chan types.Bar, instrumentBuffer)
		queues[instrument] = queue

		wg.Add(1)

		go func() {
			defer wg.Done()
			m.work(runCtx, instrument, queue)
		}()
	}

	m.log.Info("Live run started", zap.Strings("instruments", instruments))

	dispatched := make(chan struct{})

	go func() {
		defer close(dispatched)
		dispatch(runCtx, stream, queues, m.log)
	}()

	select {
	case <-dispatched:
	case <-runCtx.Done():
	}

	wg.Wait()

	m.log.Info("Live run stopped")

	return ctx.Err()
}

// dispatch is the only sender on the queues and closes them when the stream ends.
func dispatch(ctx context.Context, stream iter.Seq2[types.Bar, error], queues map[string]chan types.Bar, log *logger.Logger) {
	defer func() {
		for _, queue := range queues {
			close(queue)
		}
	}()

	for bar, err := range stream {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err != nil {
			log.Warn("Stream error received", zap.Error(err))

			continue
		}

		queue, ok := queues[bar.Symbol]
		if !ok {
			log.Warn("Bar for unknown instrument", zap.String("instrument", bar.Symbol))

			continue
		}

		select {
		case queue <- bar:
		case <-ctx.Done():
			return
		}
	}
}

func (m *Manager) work(ctx context.Context, instrument string, queue <-chan types.Bar) {
	// fills of an accepted bar must not be cut short by a stop request
	stepCtx := context.WithoutCancel(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case bar, ok := <-queue:
			if !ok || ctx.Err() != nil {
				return
			}

			if _, err := m.FeedBar(stepCtx, instrument, bar); err != nil {
				m.log.Error("Failed to apply bar",
					zap.String("instrument", instrument),
					zap.Time("bar_time", bar.Time),
					zap.Error(err),
				)
			}
		}
	}
}

// Stop cancels a live run and waits for its workers to finish. It returns
// immediately when nothing is running.
func (m *Manager) Stop() {
	m.runMu.Lock()
	cancel := m.cancel
	running := m.running
	m.runMu.Unlock()

	if cancel == nil {
		return
	}

	cancel()
	<-running
}

// BacktestJob is one independent replay.
type BacktestJob struct {
	Instrument     string
	Bars           []types.Bar
	Params         types.TurtleParams
	InitialCapital float64
}

// BacktestOutcome is the result of one job, in the order the jobs were given.
type BacktestOutcome struct {
	Job    BacktestJob
	Report types.BacktestReport
	Result backtest.Result
	Err    error
}

// RunBacktest replays bars through a fresh session. It shares no state with
// the live sessions or with other backtests.
func (m *Manager) RunBacktest(ctx context.Context, instrument string, bars []types.Bar, params types.TurtleParams, initialCapital float64) (types.BacktestReport, backtest.Result, error) {
	return m.RunBacktestWithCallbacks(ctx, instrument, bars, params, initialCapital, backtest.LifecycleCallbacks{})
}

// RunBacktestWithCallbacks is RunBacktest with progress notifications.
func (m *Manager) RunBacktestWithCallbacks(
	ctx context.Context,
	instrument string,
	bars []types.Bar,
	params types.TurtleParams,
	initialCapital float64,
	callbacks backtest.LifecycleCallbacks,
) (types.BacktestReport, backtest.Result, error) {
	simulator, err := backtest.NewSimulator(backtest.Config{
		Params:              params,
		InitialCapital:      initialCapital,
		Commission:          m.config.Commission(),
		SlippageBps:         m.config.SlippageBps,
		LotSize:             m.config.LotSize,
		MaxNotionalFraction: m.config.MaxNotionalFraction,
		AnnualizationFactor: m.config.SharpeFactor(),
	}, m.log)
	if err != nil {
		return types.BacktestReport{}, backtest.Result{}, err
	}

	result, err := simulator.Run(ctx, instrument, bars, callbacks)

	return result.Report, result, err
}

// RunBacktests runs every job in its own goroutine. One failing job does not
// affect the others.
func (m *Manager) RunBacktests(ctx context.Context, jobs []BacktestJob) []BacktestOutcome {
	outcomes := make([]BacktestOutcome, len(jobs))

	var wg sync.WaitGroup

	for i, job := range jobs {
		wg.Add(1)

		go func() {
			defer wg.Done()

			report, result, err := m.RunBacktest(ctx, job.Instrument, job.Bars, job.Params, job.InitialCapital)
			outcomes[i] = BacktestOutcome{Job: job, Report: report, Result: result, Err: err}
		}()
	}

	wg.Wait()

	return outcomes
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/turtle-trading/internal/backtest"
	"github.com/rxtech-lab/turtle-trading/internal/events"
	"github.com/rxtech-lab/turtle-trading/internal/history"
	"github.com/rxtech-lab/turtle-trading/internal/manager"
	"github.com/rxtech-lab/turtle-trading/internal/types"
	"github.com/rxtech-lab/turtle-trading/pkg/marketdata"
	"github.com/rxtech-lab/turtle-trading/pkg/marketdata/provider"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
)

// defaultHistory is how far back collect-data downloads without a start time.
const defaultHistory = 90 * 24 * time.Hour

// dataRange resolves the --start/--end flags over the config's range.
func dataRange(cmd *cli.Command, config manager.Config) (optional.Option[time.Time], optional.Option[time.Time]) {
	start, end := config.StartTime, config.EndTime

	if cmd.IsSet("start") {
		start = optional.Some(cmd.Timestamp("start"))
	}

	if cmd.IsSet("end") {
		end = optional.Some(cmd.Timestamp("end"))
	}

	return start, end
}

func collectData(ctx context.Context, cmd *cli.Command, a *app) error {
	ctx, stop := signalContext(ctx)
	defer stop()

	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	marketProvider, err := provider.NewMarketDataProvider(provider.ProviderBinance)
	if err != nil {
		return err
	}

	start, end := dataRange(cmd, a.config)
	endTime := end.UnwrapOr(time.Now().UTC())
	startTime := start.UnwrapOr(endTime.Add(-defaultHistory))

	for _, symbol := range a.config.Symbols {
		bar := progressbar.NewOptions(100, progressbar.OptionSetDescription(fmt.Sprintf("Downloading %s", symbol)), progressbar.OptionShowCount())
		onProgress := func(current, total float64, _ string) {
			if total > 0 {
				_ = bar.Set(int(current / total * 100))
			}
		}

		client := marketdata.NewClient(marketProvider, store, onProgress, a.log)

		count, err := client.Download(ctx, marketdata.DownloadParams{
			Symbol:    symbol,
			Interval:  a.config.Interval,
			StartDate: startTime,
			EndDate:   endTime,
		})
		_ = bar.Finish()

		if err != nil {
			return fmt.Errorf("download of %s failed: %w", symbol, err)
		}

		fmt.Printf("\n%s: stored %d bars\n", symbol, count)
	}

	if dir := cmd.String("export"); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}

		for _, symbol := range a.config.Symbols {
			path := filepath.Join(dir, fmt.Sprintf("%s_%s.parquet", symbol, a.config.Interval))
			if err := store.ExportBars(ctx, symbol, path); err != nil {
				return err
			}
		}
	}

	if !cmd.Bool("follow") {
		return nil
	}

	a.log.Info("Recording live bars and ticks, press Ctrl+C to stop", zap.Strings("symbols", a.config.Symbols))

	return marketdata.NewClient(marketProvider, store, nil, a.log).Collect(ctx, a.config.Symbols, a.config.Interval)
}

func runBacktest(ctx context.Context, cmd *cli.Command, a *app) error {
	ctx, stop := signalContext(ctx)
	defer stop()

	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	mgr, err := manager.New(a.config, nil, manager.WithLogger(a.log))
	if err != nil {
		return err
	}

	start, end := dataRange(cmd, a.config)

	jobs := make([]manager.BacktestJob, 0, len(a.config.Symbols))

	for _, symbol := range a.config.Symbols {
		bars, err := store.LoadBars(ctx, symbol, start, end)
		if err != nil {
			return err
		}

		if len(bars) == 0 {
			return fmt.Errorf("no stored bars for %s, run collect-data first", symbol)
		}

		jobs = append(jobs, manager.BacktestJob{
			Instrument:     symbol,
			Bars:           bars,
			Params:         a.config.Params,
			InitialCapital: a.config.InitialCapital,
		})
	}

	var outcomes []manager.BacktestOutcome

	if cmd.Bool("parallel") {
		outcomes = mgr.RunBacktests(ctx, jobs)
	} else {
		for _, job := range jobs {
			outcomes = append(outcomes, runWithProgress(ctx, mgr, job))
		}
	}

	reports := make([]types.BacktestReport, 0, len(outcomes))

	var failed error

	for _, outcome := range outcomes {
		if outcome.Err != nil {
			a.log.Error("Backtest failed", zap.String("instrument", outcome.Job.Instrument), zap.Error(outcome.Err))
			failed = errors.Join(failed, outcome.Err)

			continue
		}

		printReport(outcome)
		reports = append(reports, outcome.Report)
	}

	if path := cmd.String("output"); path != "" && len(reports) > 0 {
		if err := types.WriteBacktestReports(path, reports); err != nil {
			return err
		}

		a.log.Info("Wrote backtest reports", zap.String("path", path))
	}

	return failed
}

func runWithProgress(ctx context.Context, mgr *manager.Manager, job manager.BacktestJob) manager.BacktestOutcome {
	var bar *progressbar.ProgressBar

	onStart := backtest.OnRunStartCallback(func(_ string, instrument string, totalBars int) error {
		bar = progressbar.Default(int64(totalBars), fmt.Sprintf("Backtesting %s", instrument))
		return nil
	})
	onBar := backtest.OnProcessBarCallback(func(current int, _ int) error {
		return bar.Set(current)
	})
	onEnd := backtest.OnRunEndCallback(func(string, error) {
		if bar != nil {
			_ = bar.Finish()
		}
	})

	report, result, err := mgr.RunBacktestWithCallbacks(ctx, job.Instrument, job.Bars, job.Params, job.InitialCapital, backtest.LifecycleCallbacks{
		OnRunStart:   &onStart,
		OnProcessBar: &onBar,
		OnRunEnd:     &onEnd,
	})

	return manager.BacktestOutcome{Job: job, Report: report, Result: result, Err: err}
}

func printReport(outcome manager.BacktestOutcome) {
	r := outcome.Report

	fmt.Printf("\n%s  %s -> %s\n", r.Instrument, r.StartTime.Format("2006-01-02"), r.EndTime.Format("2006-01-02"))
	fmt.Printf("  final capital   %.2f (initial %.2f)\n", r.FinalCapital, r.InitialCapital)
	fmt.Printf("  total return    %.2f%% (buy and hold %.2f%%)\n", r.TotalReturn*100, r.BuyAndHoldReturn*100)
	fmt.Printf("  max drawdown    %.2f%%\n", r.MaxDrawdown*100)
	fmt.Printf("  sharpe          %.3f\n", r.SharpeRatio)
	fmt.Printf("  trades          %d (win rate %.1f%%, avg pnl %.2f, fees %.2f)\n", r.TradeCount, r.WinRate*100, r.AvgPnL, r.TotalFees)

	if outcome.Result.OpenPosition.Direction != types.DirectionFlat {
		fmt.Printf("  open position   %s %d units\n", outcome.Result.OpenPosition.Direction, len(outcome.Result.OpenPosition.Units))
	}

	if outcome.Result.Skipped > 0 {
		fmt.Printf("  skipped bars    %d\n", outcome.Result.Skipped)
	}
}

func liveTrade(ctx context.Context, _ *cli.Command, a *app) error {
	ctx, stop := signalContext(ctx)
	defer stop()

	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	marketProvider, err := provider.NewMarketDataProvider(provider.ProviderBinance)
	if err != nil {
		return err
	}

	hub := events.NewHub(a.log)
	defer hub.Close()

	mgr, err := manager.New(a.config, nil,
		manager.WithStore(store),
		manager.WithSinks(events.NewLogSink(a.log), hub),
		manager.WithLogger(a.log),
	)
	if err != nil {
		return err
	}

	if err := mgr.Warmup(ctx); err != nil {
		return err
	}

	if a.config.EventsAddr != "" {
		server := &http.Server{
			Addr:              a.config.EventsAddr,
			Handler:           hub.Router(),
			ReadHeaderTimeout: 10 * time.Second,
		}

		go func() {
			a.log.Info("Serving events", zap.String("addr", a.config.EventsAddr))

			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.log.Error("Events server failed", zap.Error(err))
			}
		}()

		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()

			_ = server.Shutdown(shutdownCtx)
		}()
	}

	a.log.Info("Live trading started",
		zap.Strings("symbols", mgr.Instruments()),
		zap.String("interval", a.config.Interval),
	)

	err = mgr.Run(ctx, marketProvider.Stream(ctx, a.config.Symbols, a.config.Interval))
	if errors.Is(err, context.Canceled) {
		err = nil
	}

	for _, instrument := range mgr.Instruments() {
		position, _ := mgr.Position(instrument)
		equity, _ := mgr.Equity(instrument)
		a.log.Info("Final state",
			zap.String("instrument", instrument),
			zap.String("direction", string(position.Direction)),
			zap.Float64("equity", equity),
		)
	}

	return err
}

func viewHistory(_ context.Context, cmd *cli.Command, a *app) error {
	store, err := a.openStore()
	if err != nil {
		return err
	}
	defer store.Close()

	model := history.NewModel(store, a.config.Symbols, int(cmd.Int("limit")))

	_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()

	return err
}

func writeSchema(_ context.Context, cmd *cli.Command) error {
	config := manager.DefaultConfig()

	schemaJSON, err := config.GenerateSchemaJSON()
	if err != nil {
		return err
	}

	path := cmd.String("output")
	if path == "" {
		fmt.Println(schemaJSON)

		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	return os.WriteFile(path, []byte(schemaJSON), 0644)
}

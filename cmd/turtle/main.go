package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rxtech-lab/turtle-trading/internal/logger"
	"github.com/rxtech-lab/turtle-trading/internal/manager"
	"github.com/rxtech-lab/turtle-trading/internal/storage"
	"github.com/rxtech-lab/turtle-trading/internal/version"
	"github.com/urfave/cli/v3"
)

// app bundles what every command needs.
type app struct {
	config manager.Config
	log    *logger.Logger
}

// setup loads the config named by --config (defaults when empty) and builds the logger.
func setup(cmd *cli.Command) (*app, error) {
	log, err := logger.NewLoggerWithLevel(cmd.String("log-level"))
	if err != nil {
		return nil, err
	}

	config := manager.DefaultConfig()

	if path := cmd.String("config"); path != "" {
		config, err = manager.LoadConfig(path)
		if err != nil {
			return nil, err
		}
	}

	if cmd.IsSet("db") {
		config.DatabasePath = cmd.String("db")
	}

	return &app{config: config, log: log}, nil
}

func (a *app) openStore() (*storage.DuckDBStore, error) {
	return storage.NewDuckDBStore(a.config.DatabasePath, a.log)
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
}

// withApp adapts a command body that needs the loaded config.
func withApp(run func(ctx context.Context, cmd *cli.Command, a *app) error) cli.ActionFunc {
	return func(ctx context.Context, cmd *cli.Command) error {
		a, err := setup(cmd)
		if err != nil {
			return err
		}

		defer a.log.Sync()

		return run(ctx, cmd, a)
	}
}

// runMode dispatches to the command named by the config's mode.
func runMode(ctx context.Context, cmd *cli.Command, a *app) error {
	switch a.config.Mode {
	case manager.ModeCollectData:
		return collectData(ctx, cmd, a)
	case manager.ModeBacktest:
		return runBacktest(ctx, cmd, a)
	case manager.ModeLiveTrade:
		return liveTrade(ctx, cmd, a)
	case manager.ModeViewHistory:
		return viewHistory(ctx, cmd, a)
	default:
		return fmt.Errorf("unsupported mode: %s", a.config.Mode)
	}
}

func main() {
	rangeFlags := []cli.Flag{
		&cli.TimestampFlag{
			Name:  "start",
			Usage: "Start of the data range in `YYYY-MM-DD` format. Overrides start_time of the config.",
			Config: cli.TimestampConfig{
				Layouts: []string{"2006-01-02", time.RFC3339},
			},
		},
		&cli.TimestampFlag{
			Name:  "end",
			Usage: "End of the data range in `YYYY-MM-DD` format. Overrides end_time of the config.",
			Config: cli.TimestampConfig{
				Layouts: []string{"2006-01-02", time.RFC3339},
			},
		},
	}

	cmd := &cli.Command{
		Name:    "turtle",
		Usage:   "Turtle trading strategy and execution engine",
		Version: version.GetVersion(),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML config. Built-in defaults are used when empty.",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "Log level (debug, info, warn, error)",
				Value: "info",
			},
			&cli.StringFlag{
				Name:  "db",
				Usage: "DuckDB file. Overrides database_path of the config.",
			},
		},
		Action: withApp(runMode),
		Commands: []*cli.Command{
			{
				Name:  string(manager.ModeCollectData),
				Usage: "Download historical bars and optionally keep recording live bars and ticks",
				Flags: append([]cli.Flag{
					&cli.BoolFlag{
						Name:  "follow",
						Usage: "Keep streaming bars and ticks into the database after the download",
					},
					&cli.StringFlag{
						Name:  "export",
						Usage: "Directory to export the stored bars of every symbol to as parquet",
					},
				}, rangeFlags...),
				Action: withApp(collectData),
			},
			{
				Name:  string(manager.ModeBacktest),
				Usage: "Replay stored bars through the strategy and report performance",
				Flags: append([]cli.Flag{
					&cli.StringFlag{
						Name:  "output",
						Usage: "Write the reports to this YAML file",
					},
					&cli.BoolFlag{
						Name:  "parallel",
						Usage: "Run the symbols concurrently without progress bars",
					},
				}, rangeFlags...),
				Action: withApp(runBacktest),
			},
			{
				Name:   string(manager.ModeLiveTrade),
				Usage:  "Trade closed bars from the Binance stream on paper",
				Action: withApp(liveTrade),
			},
			{
				Name:  string(manager.ModeViewHistory),
				Usage: "Browse the recorded signals and trades",
				Flags: []cli.Flag{
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of signals and trades to load, 0 for all",
						Value: 500,
					},
				},
				Action: withApp(viewHistory),
			},
			{
				Name:  "schema",
				Usage: "Print the JSON schema of the config file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "output",
						Usage: "Write the schema to this file instead of stdout",
					},
				},
				Action: writeSchema,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

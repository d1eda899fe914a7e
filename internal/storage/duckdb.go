package storage

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/turtle-trading/internal/logger"
	"github.com/rxtech-lab/turtle-trading/internal/types"
	"github.com/rxtech-lab/turtle-trading/internal/version"
	"github.com/rxtech-lab/turtle-trading/pkg/errors"
	"go.uber.org/zap"
)

// MemoryPath opens a throwaway in-memory database.
const MemoryPath = ":memory:"

var schema = []string{
	`CREATE TABLE IF NOT EXISTS bars (
		symbol TEXT NOT NULL,
		time TIMESTAMP NOT NULL,
		open DOUBLE,
		high DOUBLE,
		low DOUBLE,
		close DOUBLE,
		volume DOUBLE,
		PRIMARY KEY (symbol, time)
	)`,
	`CREATE TABLE IF NOT EXISTS ticks (
		symbol TEXT NOT NULL,
		time TIMESTAMP NOT NULL,
		last DOUBLE,
		bid DOUBLE,
		ask DOUBLE,
		volume_24h DOUBLE,
		PRIMARY KEY (symbol, time)
	)`,
	`CREATE TABLE IF NOT EXISTS signals (
		id TEXT PRIMARY KEY,
		instrument TEXT NOT NULL,
		time TIMESTAMP NOT NULL,
		kind TEXT NOT NULL,
		reference_price DOUBLE,
		confidence DOUBLE,
		reason TEXT,
		exit_reason TEXT,
		size DOUBLE
	)`,
	`CREATE TABLE IF NOT EXISTS trades (
		id TEXT PRIMARY KEY,
		instrument TEXT NOT NULL,
		direction TEXT NOT NULL,
		open_time TIMESTAMP NOT NULL,
		close_time TIMESTAMP NOT NULL,
		entry_price DOUBLE,
		exit_price DOUBLE,
		size DOUBLE,
		units INTEGER,
		fee DOUBLE,
		pnl DOUBLE,
		exit_reason TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS meta (
		key TEXT PRIMARY KEY,
		value TEXT
	)`,
}

// DuckDBStore is a Store backed by a DuckDB file.
type DuckDBStore struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewDuckDBStore opens (or creates) the database at path and creates the tables.
// A database written by an incompatible version is refused.
func NewDuckDBStore(path string, log *logger.Logger) (*DuckDBStore, error) {
	return openDuckDBStore(path, log, version.GetVersion())
}

func openDuckDBStore(path string, log *logger.Logger, current string) (*DuckDBStore, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeStorageOpenFailed, err, "failed to open database %s", path)
	}

	for _, statement := range schema {
		if _, err := db.Exec(statement); err != nil {
			db.Close()

			return nil, errors.Wrap(errors.ErrCodeStorageOpenFailed, "failed to create tables", err)
		}
	}

	if err := checkVersion(db, current); err != nil {
		db.Close()

		return nil, err
	}

	log.Debug("Opened DuckDB store", zap.String("path", path), zap.String("version", current))

	return &DuckDBStore{
		db:     db,
		logger: log.Named("storage"),
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}, nil
}

// SaveBars implements Store.
func (d *DuckDBStore) SaveBars(ctx context.Context, bars []types.Bar) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorageWriteFailed, "failed to begin transaction", err)
	}

	for _, bar := range bars {
		_, err := d.sq.
			Insert("bars").
			Options("OR REPLACE").
			Columns("symbol", "time", "open", "high", "low", "close", "volume").
			Values(bar.Symbol, bar.Time.UTC(), bar.Open, bar.High, bar.Low, bar.Close, bar.Volume).
			RunWith(tx).
			ExecContext(ctx)
		if err != nil {
			tx.Rollback()

			return errors.Wrapf(errors.ErrCodeStorageWriteFailed, err, "failed to save %s bar at %s", bar.Symbol, bar.Time.Format(time.RFC3339))
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeStorageWriteFailed, "failed to commit bars", err)
	}

	d.logger.Debug("Saved bars", zap.Int("count", len(bars)))

	return nil
}

var barColumns = []string{"symbol", "time", "open", "high", "low", "close", "volume"}

// LoadBars implements Store.
func (d *DuckDBStore) LoadBars(ctx context.Context, instrument string, start, end optional.Option[time.Time]) ([]types.Bar, error) {
	query := d.sq.
		Select(barColumns...).
		From("bars").
		Where(squirrel.Eq{"symbol": instrument}).
		OrderBy("time ASC")

	if start.IsSome() {
		query = query.Where(squirrel.GtOrEq{"time": start.Unwrap().UTC()})
	}

	if end.IsSome() {
		query = query.Where(squirrel.LtOrEq{"time": end.Unwrap().UTC()})
	}

	return d.queryBars(ctx, query)
}

// LatestBars implements Store.
func (d *DuckDBStore) LatestBars(ctx context.Context, instrument string, n int) ([]types.Bar, error) {
	if n <= 0 {
		return nil, nil
	}

	query := d.sq.
		Select(barColumns...).
		From("bars").
		Where(squirrel.Eq{"symbol": instrument}).
		OrderBy("time DESC").
		Limit(uint64(n))

	bars, err := d.queryBars(ctx, query)
	if err != nil {
		return nil, err
	}

	slices.Reverse(bars)

	return bars, nil
}

// CountBars implements Store.
func (d *DuckDBStore) CountBars(ctx context.Context, instrument string) (int, error) {
	var count int

	err := d.sq.
		Select("COUNT(*)").
		From("bars").
		Where(squirrel.Eq{"symbol": instrument}).
		RunWith(d.db).
		QueryRowContext(ctx).
		Scan(&count)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeStorageQueryFailed, "failed to count bars", err)
	}

	return count, nil
}

func (d *DuckDBStore) queryBars(ctx context.Context, query squirrel.SelectBuilder) ([]types.Bar, error) {
	rows, err := query.RunWith(d.db).QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorageQueryFailed, "failed to query bars", err)
	}
	defer rows.Close()

	var bars []types.Bar

	for rows.Next() {
		var bar types.Bar
		if err := rows.Scan(&bar.Symbol, &bar.Time, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStorageQueryFailed, "failed to scan bar", err)
		}

		bar.Time = bar.Time.UTC()
		bars = append(bars, bar)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorageQueryFailed, "failed to read bars", err)
	}

	return bars, nil
}

// SaveTick implements Store.
func (d *DuckDBStore) SaveTick(ctx context.Context, tick types.Tick) error {
	_, err := d.sq.
		Insert("ticks").
		Options("OR REPLACE").
		Columns("symbol", "time", "last", "bid", "ask", "volume_24h").
		Values(tick.Symbol, tick.Time.UTC(), tick.Last, tick.Bid, tick.Ask, tick.Volume24h).
		RunWith(d.db).
		ExecContext(ctx)
	if err != nil {
		return errors.Wrap(errors.ErrCodeStorageWriteFailed, "failed to save tick", err)
	}

	return nil
}

// AppendSignal implements Store. Signal IDs are derived from the bar, so
// replaying a bar overwrites its signal instead of duplicating it.
func (d *DuckDBStore) AppendSignal(ctx context.Context, signal types.Signal) error {
	_, err := d.sq.
		Insert("signals").
		Options("OR REPLACE").
		Columns("id", "instrument", "time", "kind", "reference_price", "confidence", "reason", "exit_reason", "size").
		Values(
			signal.ID, signal.Instrument, signal.Time.UTC(), string(signal.Kind), signal.ReferencePrice,
			signal.Confidence, signal.Reason, string(signal.ExitReason), signal.Size,
		).
		RunWith(d.db).
		ExecContext(ctx)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeStorageWriteFailed, err, "failed to save signal %s", signal.ID)
	}

	return nil
}

// AppendTrade implements Store.
func (d *DuckDBStore) AppendTrade(ctx context.Context, trade types.Trade) error {
	_, err := d.sq.
		Insert("trades").
		Options("OR REPLACE").
		Columns(
			"id", "instrument", "direction", "open_time", "close_time", "entry_price",
			"exit_price", "size", "units", "fee", "pnl", "exit_reason",
		).
		Values(
			trade.ID, trade.Instrument, string(trade.Direction), trade.OpenTime.UTC(), trade.CloseTime.UTC(), trade.EntryPrice,
			trade.ExitPrice, trade.Size, trade.Units, trade.Fee, trade.PnL, string(trade.ExitReason),
		).
		RunWith(d.db).
		ExecContext(ctx)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeStorageWriteFailed, err, "failed to save trade %s", trade.ID)
	}

	return nil
}

// ListSignals implements Store.
func (d *DuckDBStore) ListSignals(ctx context.Context, instrument string, limit int) ([]types.Signal, error) {
	query := d.sq.
		Select("id", "instrument", "time", "kind", "reference_price", "confidence", "reason", "exit_reason", "size").
		From("signals").
		OrderBy("time ASC", "id ASC")
	query = filter(query, instrument, limit)

	rows, err := query.RunWith(d.db).QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorageQueryFailed, "failed to query signals", err)
	}
	defer rows.Close()

	var signals []types.Signal

	for rows.Next() {
		var (
			signal     types.Signal
			kind       string
			exitReason string
		)

		err := rows.Scan(
			&signal.ID, &signal.Instrument, &signal.Time, &kind, &signal.ReferencePrice,
			&signal.Confidence, &signal.Reason, &exitReason, &signal.Size,
		)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeStorageQueryFailed, "failed to scan signal", err)
		}

		signal.Kind, err = types.ParseSignalKind(kind)
		if err != nil {
			return nil, fmt.Errorf("signal %s: %w", signal.ID, err)
		}

		signal.Time = signal.Time.UTC()
		signal.ExitReason = types.ExitReason(exitReason)
		signals = append(signals, signal)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorageQueryFailed, "failed to read signals", err)
	}

	return signals, nil
}

// ListTrades implements Store.
func (d *DuckDBStore) ListTrades(ctx context.Context, instrument string, limit int) ([]types.Trade, error) {
	query := d.sq.
		Select(
			"id", "instrument", "direction", "open_time", "close_time", "entry_price",
			"exit_price", "size", "units", "fee", "pnl", "exit_reason",
		).
		From("trades").
		OrderBy("close_time ASC", "id ASC")
	query = filter(query, instrument, limit)

	rows, err := query.RunWith(d.db).QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorageQueryFailed, "failed to query trades", err)
	}
	defer rows.Close()

	var trades []types.Trade

	for rows.Next() {
		var (
			trade      types.Trade
			direction  string
			exitReason string
		)

		err := rows.Scan(
			&trade.ID, &trade.Instrument, &direction, &trade.OpenTime, &trade.CloseTime, &trade.EntryPrice,
			&trade.ExitPrice, &trade.Size, &trade.Units, &trade.Fee, &trade.PnL, &exitReason,
		)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeStorageQueryFailed, "failed to scan trade", err)
		}

		trade.Direction = types.Direction(direction)
		trade.ExitReason = types.ExitReason(exitReason)
		trade.OpenTime = trade.OpenTime.UTC()
		trade.CloseTime = trade.CloseTime.UTC()
		trades = append(trades, trade)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeStorageQueryFailed, "failed to read trades", err)
	}

	return trades, nil
}

func filter(query squirrel.SelectBuilder, instrument string, limit int) squirrel.SelectBuilder {
	if instrument != "" {
		query = query.Where(squirrel.Eq{"instrument": instrument})
	}

	if limit > 0 {
		query = query.Limit(uint64(limit))
	}

	return query
}

// checkVersion records current in a new database, or verifies that current
// can read a database written before.
func checkVersion(db *sql.DB, current string) error {
	var written string

	err := db.QueryRow("SELECT value FROM meta WHERE key = 'version'").Scan(&written)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := db.Exec("INSERT INTO meta (key, value) VALUES ('version', $1)", current); err != nil {
			return errors.Wrap(errors.ErrCodeStorageOpenFailed, "failed to record database version", err)
		}

		return nil
	}

	if err != nil {
		return errors.Wrap(errors.ErrCodeStorageOpenFailed, "failed to read database version", err)
	}

	if err := version.CheckDatabaseCompatibility(current, written); err != nil {
		return errors.Wrap(errors.ErrCodeStorageOpenFailed, "incompatible database", err)
	}

	return nil
}

// ExportBars writes the stored bars of instrument to a parquet file, oldest first.
// An empty instrument exports every symbol.
func (d *DuckDBStore) ExportBars(ctx context.Context, instrument string, path string) error {
	where := ""
	if instrument != "" {
		where = fmt.Sprintf("WHERE symbol = %s", quote(instrument))
	}

	statement := fmt.Sprintf("COPY (SELECT %s FROM bars %s ORDER BY symbol, time) TO %s (FORMAT PARQUET)",
		strings.Join(barColumns, ", "), where, quote(path))

	if _, err := d.db.ExecContext(ctx, statement); err != nil {
		return errors.Wrapf(errors.ErrCodeStorageWriteFailed, err, "failed to export bars to %s", path)
	}

	d.logger.Info("Exported bars", zap.String("instrument", instrument), zap.String("path", path))

	return nil
}

// quote renders s as a SQL string literal. COPY does not take bound parameters.
func quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// Close implements Store.
func (d *DuckDBStore) Close() error {
	return d.db.Close()
}

// Package timescale exports candle series into a TimescaleDB hypertable.
package timescale

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"ib-history/internal/model"
	"ib-history/internal/slogx"
)

const (
	pingTimeout = 5 * time.Second
	execTimeout = 30 * time.Second
	table       = "market_ohlc"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

type Config struct {
	DSN    string
	Schema string
}

type Writer struct {
	db     *sql.DB
	schema string
	log    *slog.Logger
}

// Open connects, pings and makes sure the market_ohlc hypertable exists.
func Open(ctx context.Context, cfg Config, log *slog.Logger) (*Writer, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("timescale dsn is required")
	}
	schema, err := schemaName(cfg.Schema)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping timescale: %w", err)
	}
	w := &Writer{db: db, schema: schema, log: slogx.OrDefault(log)}
	if err := w.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return w, nil
}

func schemaName(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "public", nil
	}
	if !identRe.MatchString(s) {
		return "", fmt.Errorf("invalid schema name %q", s)
	}
	return s, nil
}

func (w *Writer) Close() error {
	if w == nil || w.db == nil {
		return nil
	}
	return w.db.Close()
}

func (w *Writer) ensureSchema(ctx context.Context) error {
	if w.schema != "public" {
		if err := w.exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", w.schema)); err != nil {
			return err
		}
	}
	if err := w.exec(ctx, createTableQuery(w.table())); err != nil {
		return err
	}
	if err := w.exec(ctx, "CREATE EXTENSION IF NOT EXISTS timescaledb"); err != nil {
		w.log.Warn("timescale extension ensure failed", "error", err)
		return nil
	}
	if err := w.exec(ctx, fmt.Sprintf("SELECT create_hypertable('%s', 'ts', if_not_exists => TRUE)", w.table())); err != nil {
		w.log.Warn("timescale hypertable create failed", "error", err)
	}
	return nil
}

// WriteBars upserts bars for (ticker, interval) in one transaction.
func (w *Writer) WriteBars(ctx context.Context, ticker, interval string, bars []model.Bar) (int, error) {
	if len(bars) == 0 {
		return 0, nil
	}
	ctx, cancel := context.WithTimeout(ctx, execTimeout)
	defer cancel()

	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, upsertQuery(w.table()))
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	for _, b := range bars {
		if _, err := stmt.ExecContext(ctx, b.Time(), ticker, interval, b.Open, b.High, b.Low, b.Close, b.Volume); err != nil {
			return 0, fmt.Errorf("upsert %s %s: %w", ticker, b.Time().Format(time.RFC3339), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	w.log.Info("timescale export", "ticker", ticker, "interval", interval, "rows", len(bars))
	return len(bars), nil
}

func (w *Writer) exec(ctx context.Context, query string) error {
	ctx, cancel := context.WithTimeout(ctx, execTimeout)
	defer cancel()
	_, err := w.db.ExecContext(ctx, query)
	return err
}

func (w *Writer) table() string {
	return w.schema + "." + table
}

func createTableQuery(table string) string {
	return fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
		ts TIMESTAMPTZ NOT NULL,
		asset TEXT NOT NULL,
		interval TEXT NOT NULL,
		open DOUBLE PRECISION NOT NULL,
		high DOUBLE PRECISION NOT NULL,
		low DOUBLE PRECISION NOT NULL,
		close DOUBLE PRECISION NOT NULL,
		volume BIGINT NOT NULL DEFAULT 0,
		PRIMARY KEY (ts, asset, interval)
	)`, table)
}

func upsertQuery(table string) string {
	return fmt.Sprintf(`INSERT INTO %s (
		ts, asset, interval, open, high, low, close, volume
	) VALUES (
		$1,$2,$3,$4,$5,$6,$7,$8
	)
	ON CONFLICT (ts, asset, interval) DO UPDATE SET
		open = EXCLUDED.open,
		high = EXCLUDED.high,
		low = EXCLUDED.low,
		close = EXCLUDED.close,
		volume = EXCLUDED.volume`, table)
}

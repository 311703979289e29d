package download

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"ib-history/internal/ib"
	"ib-history/internal/metrics"
	"ib-history/internal/model"
	"ib-history/internal/saver"
	"ib-history/internal/series"
	"ib-history/internal/slogx"
)

// Daily downloads daily bars in one request and merges them into the ticker's file.
type Daily struct {
	dial     Dialer
	saver    saver.PartitionSaver
	cfg      Config
	progress *Progress
	log      *slog.Logger
	metrics  *metrics.Metrics
}

// NewDaily builds a daily downloader. progress may be nil.
func NewDaily(dial Dialer, s saver.PartitionSaver, cfg Config, progress *Progress, log *slog.Logger, m *metrics.Metrics) *Daily {
	return &Daily{
		dial:     dial,
		saver:    s,
		cfg:      cfg,
		progress: progress,
		log:      slogx.OrDefault(log),
		metrics:  metrics.OrNoop(m),
	}
}

// Run requests the whole range at once. Bars are keyed by date, clipped to the
// range and merged into storage_dir/daily/TICKER.<ext>; fresh bars win.
// The request is bounded by Config.RequestTimeout, which the app sets from
// IB_DAILY_REQUEST_TIMEOUT (60s by default). Set it to 0 to wait without
// a bound until the provider completes or ctx is done.
func (d *Daily) Run(ctx context.Context, opts Options) (Summary, error) {
	opts, err := opts.normalized()
	if err != nil {
		return Summary{}, err
	}
	log := d.log.With("ticker", opts.Ticker, "kind", KindDaily)
	sum := Summary{Ticker: opts.Ticker, Kind: KindDaily, StartedAt: time.Now().UTC()}
	rangeLabel := opts.StartDate.Format(time.DateOnly) + ".." + opts.EndDate.Format(time.DateOnly)

	sess, err := d.dial(ctx, d.cfg.ClientID)
	if err != nil {
		return sum, fmt.Errorf("open session: %w", err)
	}
	defer func() {
		if err := sess.Close(); err != nil {
			log.Warn("session close", "error", err)
		}
	}()

	duration := DurationFor(daysInclusive(opts.StartDate, opts.EndDate))
	bars, err := sess.RequestBars(ctx, ib.BarRequest{
		Contract:         ib.StockContract(opts.Ticker),
		EndDateTime:      ib.EndDateTime(opts.EndDate, d.cfg.ExchangeTZ),
		Duration:         duration,
		BarSize:          DailyBarSize,
		WhatToShow:       d.cfg.WhatToShow,
		RegularHoursOnly: true,
		Timeout:          d.cfg.RequestTimeout,
	})
	if err != nil {
		sum.fail(rangeLabel, err)
		return sum, fmt.Errorf("%s daily %s: %w", opts.Ticker, rangeLabel, err)
	}
	if len(bars) == 0 {
		log.Info("no data", "range", rangeLabel, "duration", duration)
		d.metrics.EmptyResults.Inc()
		sum.empty(rangeLabel)
		return sum, nil
	}

	fresh := series.Clip(series.Normalize(series.TruncateToDate(bars)), opts.StartDate, opts.EndDate)
	if len(fresh) == 0 {
		log.Info("no bars inside range", "range", rangeLabel, "received", len(bars))
		sum.empty(rangeLabel)
		return sum, nil
	}

	path := DailyPath(opts.StorageDir, opts.Ticker, d.saver.Extension())
	existing, err := d.loadExisting(path)
	if err != nil {
		return sum, err
	}
	merged := series.Merge(existing, fresh)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return sum, err
	}
	if err := d.saver.Save(merged, path); err != nil {
		sum.fail(rangeLabel, err)
		return sum, err
	}
	d.metrics.FilesWritten.Inc()
	sum.saved(rangeLabel, len(fresh))
	log.Info("saved", "range", rangeLabel, "bars", len(fresh), "total", len(merged), "path", path)

	if err := d.progress.Mark(ctx, KindDaily, opts.Ticker, opts.EndDate); err != nil {
		log.Warn("progress write", "error", err)
	}
	return sum, nil
}

func (d *Daily) loadExisting(path string) ([]model.Bar, error) {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	bars, err := d.saver.Load(path)
	if err != nil {
		return nil, fmt.Errorf("read existing %s: %w", path, err)
	}
	return bars, nil
}

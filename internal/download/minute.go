package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"ib-history/internal/ib"
	"ib-history/internal/metrics"
	"ib-history/internal/saver"
	"ib-history/internal/series"
	"ib-history/internal/slogx"
)

// Minute downloads one-minute bars day by day into per-day partition files.
type Minute struct {
	dial     Dialer
	saver    saver.PartitionSaver
	cfg      Config
	progress *Progress
	log      *slog.Logger
	metrics  *metrics.Metrics
}

// NewMinute builds a minute downloader. progress may be nil.
func NewMinute(dial Dialer, s saver.PartitionSaver, cfg Config, progress *Progress, log *slog.Logger, m *metrics.Metrics) *Minute {
	return &Minute{
		dial:     dial,
		saver:    s,
		cfg:      cfg,
		progress: progress,
		log:      slogx.OrDefault(log),
		metrics:  metrics.OrNoop(m),
	}
}

// Run fetches every day from opts.StartDate to opts.EndDate on one session.
// A request timeout stops the run; days already written stay on disk.
// Provider rejections of a single day are recorded and skipped, and
// progress is not advanced past the first rejected day so it is retried.
func (d *Minute) Run(ctx context.Context, opts Options) (Summary, error) {
	opts, err := opts.normalized()
	if err != nil {
		return Summary{}, err
	}
	if opts.Duration == "" {
		opts.Duration = DefaultMinuteDuration
	}
	if opts.BarSize == "" {
		opts.BarSize = DefaultMinuteBarSize
	}
	log := d.log.With("ticker", opts.Ticker, "kind", KindMinute)

	sum := Summary{Ticker: opts.Ticker, Kind: KindMinute, StartedAt: time.Now().UTC()}
	if opts.Report {
		defer func() {
			sum.FinishedAt = time.Now().UTC()
			path := ReportPath(opts.StorageDir, opts.Ticker)
			if err := writeReport(path, sum); err != nil {
				log.Warn("could not write run report", "path", path, "error", err)
			}
		}()
	}

	from := opts.StartDate
	if opts.Resume {
		last, ok, err := d.progress.Last(ctx, KindMinute, opts.Ticker)
		if err != nil {
			return sum, err
		}
		if ok && !last.Before(from) {
			from = last.AddDate(0, 0, 1)
			log.Info("resuming", "after", last.Format(time.DateOnly))
		}
	}
	if from.After(opts.EndDate) {
		log.Info("nothing to download", "start", from.Format(time.DateOnly), "end", opts.EndDate.Format(time.DateOnly))
		return sum, nil
	}

	sess, err := d.dial(ctx, d.cfg.ClientID)
	if err != nil {
		return sum, fmt.Errorf("open session: %w", err)
	}
	defer func() {
		if err := sess.Close(); err != nil {
			log.Warn("session close", "error", err)
		}
	}()

	// cleared by the first rejected day
	advance := true
	mark := func(day time.Time) {
		if !advance {
			return
		}
		if err := d.progress.Mark(ctx, KindMinute, opts.Ticker, day); err != nil {
			log.Warn("progress write", "error", err)
		}
	}

	contract := ib.StockContract(opts.Ticker)
	for day := from; !day.After(opts.EndDate); day = day.AddDate(0, 0, 1) {
		date := day.Format(time.DateOnly)
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		bars, err := sess.RequestBars(ctx, ib.BarRequest{
			Contract:    contract,
			EndDateTime: ib.EndDateTime(day, d.cfg.ExchangeTZ),
			Duration:    opts.Duration,
			BarSize:     opts.BarSize,
			WhatToShow:  d.cfg.WhatToShow,
			Timeout:     d.cfg.RequestTimeout,
		})
		if err != nil {
			sum.fail(date, err)
			var perr *ib.ProviderError
			if errors.As(err, &perr) {
				log.Warn("request rejected, skipping day", "date", date, "code", perr.Code, "error", perr.Message)
				advance = false
				continue
			}
			if errors.Is(err, ib.ErrRequestTimeout) {
				log.Error("timeout, stopping download", "date", date, "error", err)
			}
			return sum, fmt.Errorf("%s %s: %w", opts.Ticker, date, err)
		}

		if len(bars) == 0 {
			log.Info("no data", "date", date)
			d.metrics.EmptyResults.Inc()
			sum.empty(date)
			mark(day)
			continue
		}

		path := MinutePath(opts.StorageDir, opts.Ticker, day, d.saver.Extension())
		bars = series.Normalize(bars)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return sum, err
		}
		if err := d.saver.Save(bars, path); err != nil {
			sum.fail(date, err)
			return sum, err
		}
		d.metrics.FilesWritten.Inc()
		sum.saved(date, len(bars))
		log.Info("saved", "date", date, "bars", len(bars), "path", path)

		mark(day)
	}

	if len(sum.Failed) > 0 {
		log.Warn("download finished with failures", "saved", len(sum.Saved), "failed", len(sum.Failed), "reasons", FailedReasons(sum.Failed))
	} else {
		log.Info("download finished", "saved", len(sum.Saved), "empty", len(sum.Empty), "bars", sum.Bars)
	}
	return sum, nil
}

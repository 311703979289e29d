package app

import (
	"context"
	"log/slog"
	"time"

	"ib-history/internal/download"
	"ib-history/internal/slogx"
)

// Scheduler refreshes every ticker once a day: it fetches the days missing
// since the last completed one, then sleeps until RunHour:RunMinute UTC.
type Scheduler struct {
	Minute     *download.Minute
	Daily      *download.Daily
	Progress   *download.Progress
	Tickers    []string
	StorageDir string
	RunHour    int
	RunMinute  int
	Lookback   time.Duration
	Log        *slog.Logger

	now func() time.Time
}

func (s *Scheduler) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now().UTC()
}

// Run loops run → wait → run until ctx is done.
func (s *Scheduler) Run(ctx context.Context) error {
	log := slogx.OrDefault(s.Log)
	for {
		s.RunOnce(ctx)
		if ctx.Err() != nil {
			log.Info("scheduler stopped")
			return nil
		}

		nextRun := NextRunTime(s.clock(), s.RunHour, s.RunMinute)
		waitDur := time.Until(nextRun)
		log.Info("done, wait until next run", "hours", waitDur.Hours(), "until", nextRun.Format("2006-01-02 15:04"))
		timer := time.NewTimer(waitDur)
		select {
		case <-timer.C:
		case <-ctx.Done():
			timer.Stop()
			log.Info("scheduler stopped", "restart_at", nextRun.Format("2006-01-02 15:04"))
			return nil
		}
	}
}

// RunOnce refreshes every ticker once. Ticker failures are reported, not returned.
func (s *Scheduler) RunOnce(ctx context.Context) (successList []string, failedList []failedEntry) {
	log := slogx.OrDefault(s.Log)
	now := s.clock()

	defer func() {
		if len(successList) == 0 && len(failedList) == 0 {
			return
		}
		if err := writeRunReport(s.StorageDir, successList, failedList); err != nil {
			log.Warn("could not write run report", "error", err)
			return
		}
		log.Info("run report saved", "success", len(successList), "failed", len(failedList))
	}()

	skipped := 0
	for _, ticker := range s.Tickers {
		if ctx.Err() != nil {
			return successList, failedList
		}
		ran := false
		ok := true
		for _, kind := range []string{download.KindMinute, download.KindDaily} {
			from, to, pending, err := s.Progress.Pending(ctx, kind, ticker, now, s.Lookback)
			if err != nil {
				failedList = append(failedList, failedEntry{Ticker: ticker, Kind: kind, Reason: err.Error()})
				ok = false
				continue
			}
			if !pending {
				continue
			}
			ran = true
			if err := s.runKind(ctx, kind, ticker, from, to); err != nil {
				failedList = append(failedList, failedEntry{
					Ticker:    ticker,
					Kind:      kind,
					DateRange: from.Format(time.DateOnly) + ".." + to.Format(time.DateOnly),
					Reason:    err.Error(),
				})
				ok = false
				log.Warn("refresh failed", "ticker", ticker, "kind", kind, "error", err)
			}
		}
		switch {
		case !ran && ok:
			skipped++
		case ok:
			successList = appendSuccess(successList, ticker)
		}
	}
	log.Info("refresh done", "success", len(successList), "failed", len(failedList), "up_to_date", skipped,
		"reasons", failedReasons(failedList))
	return successList, failedList
}

func (s *Scheduler) runKind(ctx context.Context, kind, ticker string, from, to time.Time) error {
	opts := download.Options{Ticker: ticker, StartDate: from, EndDate: to, StorageDir: s.StorageDir}
	var err error
	switch kind {
	case download.KindMinute:
		_, err = s.Minute.Run(ctx, opts)
	case download.KindDaily:
		_, err = s.Daily.Run(ctx, opts)
	}
	return err
}

// NextRunTime returns the next hour:minute UTC strictly after now.
func NextRunTime(now time.Time, hour, minute int) time.Time {
	now = now.UTC()
	targetToday := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, time.UTC)
	if now.Before(targetToday) {
		return targetToday
	}
	tomorrow := now.AddDate(0, 0, 1)
	return time.Date(tomorrow.Year(), tomorrow.Month(), tomorrow.Day(), hour, minute, 0, 0, time.UTC)
}

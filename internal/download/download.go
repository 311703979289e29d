// Package download fetches historical bars through an ib.Session and
// persists them as partition files.
package download

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"ib-history/internal/ib"
	"ib-history/internal/model"
	"ib-history/internal/series"
)

const (
	DefaultMinuteDuration = "1 D"
	DefaultMinuteBarSize  = "1 min"
	DailyBarSize          = "1 day"
	DailyDir              = "daily"

	KindMinute = "minute"
	KindDaily  = "daily"
)

// Requester is the part of *ib.Session the downloaders use.
type Requester interface {
	RequestBars(ctx context.Context, req ib.BarRequest) ([]model.Bar, error)
	Close() error
}

// Dialer opens a connected session for clientID.
type Dialer func(ctx context.Context, clientID int) (Requester, error)

// Config carries provider settings shared by both downloaders.
type Config struct {
	ClientID       int
	RequestTimeout time.Duration // 0 waits until ctx is done
	ExchangeTZ     string
	WhatToShow     string
}

// Options describe one download run. Dates are inclusive calendar days (UTC).
type Options struct {
	Ticker     string
	StartDate  time.Time
	EndDate    time.Time
	StorageDir string
	Duration   string
	BarSize    string
	// Resume skips days up to the last completed one recorded in Progress.
	Resume bool
	// Report writes <StorageDir>/<TICKER>/.lastrun.json after the run.
	Report bool
}

func (o Options) normalized() (Options, error) {
	o.Ticker = strings.ToUpper(strings.TrimSpace(o.Ticker))
	if o.Ticker == "" {
		return o, errors.New("ticker is required")
	}
	if o.StorageDir == "" {
		return o, errors.New("storage dir is required")
	}
	o.StartDate = series.Date(o.StartDate)
	o.EndDate = series.Date(o.EndDate)
	if o.EndDate.Before(o.StartDate) {
		return o, fmt.Errorf("end date %s before start date %s", o.EndDate.Format(time.DateOnly), o.StartDate.Format(time.DateOnly))
	}
	return o, nil
}

// DurationFor converts an inclusive day count into the provider's duration string.
// Up to 365 days is "<n> D", beyond that whole years rounded up.
func DurationFor(days int) string {
	if days <= 365 {
		return fmt.Sprintf("%d D", days)
	}
	return fmt.Sprintf("%d Y", (days+364)/365)
}

// MinutePath is storage_dir/TICKER/YYYY/MM/YYYY-MM-DD.<ext>.
func MinutePath(storageDir, ticker string, day time.Time, ext string) string {
	return filepath.Join(storageDir, ticker, day.Format("2006"), day.Format("01"), day.Format(time.DateOnly)+"."+ext)
}

// DailyPath is storage_dir/daily/TICKER.<ext>.
func DailyPath(storageDir, ticker, ext string) string {
	return filepath.Join(storageDir, DailyDir, ticker+"."+ext)
}

func daysInclusive(from, to time.Time) int {
	return int(to.Sub(from)/(24*time.Hour)) + 1
}

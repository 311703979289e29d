package download

import (
	"context"
	"fmt"
	"time"

	"ib-history/internal/state"
)

// Progress records the last completed day per ticker and bar kind.
type Progress struct {
	store state.Store
}

func NewProgress(store state.Store) *Progress {
	return &Progress{store: store}
}

func progressKey(kind, ticker string) string {
	return kind + ":" + ticker
}

// Last returns the last completed day, if any.
func (p *Progress) Last(ctx context.Context, kind, ticker string) (time.Time, bool, error) {
	if p == nil || p.store == nil {
		return time.Time{}, false, nil
	}
	v, ok, err := p.store.Get(ctx, progressKey(kind, ticker))
	if err != nil || !ok {
		return time.Time{}, false, err
	}
	d, err := time.ParseInLocation(time.DateOnly, v, time.UTC)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("progress %s: %w", progressKey(kind, ticker), err)
	}
	return d, true, nil
}

// Mark stores day as completed. Nil receivers are ignored.
func (p *Progress) Mark(ctx context.Context, kind, ticker string, day time.Time) error {
	if p == nil || p.store == nil {
		return nil
	}
	return p.store.Set(ctx, progressKey(kind, ticker), day.Format(time.DateOnly))
}

// Pending returns the range still to fetch for ticker up to yesterday.
// Without progress the range starts lookback before today.
// ok is false when the ticker is up to date.
func (p *Progress) Pending(ctx context.Context, kind, ticker string, now time.Time, lookback time.Duration) (from, to time.Time, ok bool, err error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	to = today.AddDate(0, 0, -1)

	last, found, err := p.Last(ctx, kind, ticker)
	if err != nil {
		return time.Time{}, time.Time{}, false, err
	}
	if found {
		from = last.AddDate(0, 0, 1)
	} else {
		from = today.Add(-lookback)
		from = time.Date(from.Year(), from.Month(), from.Day(), 0, 0, 0, 0, time.UTC)
	}
	if from.After(to) {
		return from, to, false, nil
	}
	return from, to, true, nil
}

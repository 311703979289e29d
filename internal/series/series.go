// Package series orders, merges, loads and resamples candle series.
package series

import (
	"sort"
	"time"

	"ib-history/internal/model"
)

// Normalize sorts bars by timestamp and drops duplicates, keeping the last
// occurrence of each timestamp in input order. The input slice is not modified.
func Normalize(bars []model.Bar) []model.Bar {
	if len(bars) == 0 {
		return nil
	}
	out := make([]model.Bar, len(bars))
	copy(out, bars)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })

	// stable sort keeps input order inside a run of equal timestamps, so the
	// last element of each run is the latest occurrence
	n := 0
	for i := range out {
		if n > 0 && out[n-1].Timestamp == out[i].Timestamp {
			out[n-1] = out[i]
			continue
		}
		out[n] = out[i]
		n++
	}
	return out[:n]
}

// Merge combines an existing series with fresh bars. Fresh wins on timestamp collision.
func Merge(existing, fresh []model.Bar) []model.Bar {
	all := make([]model.Bar, 0, len(existing)+len(fresh))
	all = append(all, existing...)
	all = append(all, fresh...)
	return Normalize(all)
}

// Clip keeps bars whose timestamp lies in [from, to].
func Clip(bars []model.Bar, from, to time.Time) []model.Bar {
	lo, hi := from.UnixMilli(), to.UnixMilli()
	out := make([]model.Bar, 0, len(bars))
	for _, b := range bars {
		if b.Timestamp >= lo && b.Timestamp <= hi {
			out = append(out, b)
		}
	}
	return out
}

// TruncateToDate sets every timestamp to 00:00 UTC of its date.
func TruncateToDate(bars []model.Bar) []model.Bar {
	out := make([]model.Bar, len(bars))
	for i, b := range bars {
		b.Timestamp = floorMillis(b.Timestamp, dayMillis, 0)
		out[i] = b
	}
	return out
}

// Date returns t's calendar date at 00:00 UTC.
func Date(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

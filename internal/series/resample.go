package series

import (
	"fmt"
	"strings"
	"time"

	"ib-history/internal/model"
)

// Interval is a resampling bucket width.
type Interval string

const (
	Interval15Min Interval = "15min"
	IntervalDay   Interval = "1D"
	IntervalWeek  Interval = "1W"
)

const (
	minuteMillis = int64(time.Minute / time.Millisecond)
	dayMillis    = 24 * 60 * minuteMillis
	weekMillis   = 7 * dayMillis
	// 1970-01-04 was a Sunday.
	sundayOffset = 3 * dayMillis
)

// ParseInterval accepts 15min, 1D and 1W (case-insensitive).
func ParseInterval(s string) (Interval, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "15min", "15m", "15t":
		return Interval15Min, nil
	case "1d", "d":
		return IntervalDay, nil
	case "1w", "w":
		return IntervalWeek, nil
	}
	return "", fmt.Errorf("unsupported interval %q (want 15min, 1D or 1W)", s)
}

// Bucket returns the label of the bucket containing ts (Unix ms).
// 15min and 1D buckets are labeled by their start. Weeks run from Sunday
// 00:00 exclusive to the next Sunday 00:00 inclusive and are labeled by
// that closing Sunday.
func (iv Interval) Bucket(ts int64) int64 {
	switch iv {
	case Interval15Min:
		return floorMillis(ts, 15*minuteMillis, 0)
	case IntervalDay:
		return floorMillis(ts, dayMillis, 0)
	case IntervalWeek:
		return floorMillis(ts-1, weekMillis, sundayOffset) + weekMillis
	}
	panic(fmt.Sprintf("series: unknown interval %q", string(iv)))
}

func floorMillis(ts, width, offset int64) int64 {
	rel := ts - offset
	q := rel / width
	if rel%width < 0 {
		q--
	}
	return q*width + offset
}

// Resample aggregates bars into interval buckets labeled as Bucket does.
// open is first, high max, low min, close last, volume sum. Empty buckets are not emitted.
func Resample(bars []model.Bar, iv Interval) []model.Bar {
	sorted := Normalize(bars)
	var out []model.Bar
	for _, b := range sorted {
		start := iv.Bucket(b.Timestamp)
		if n := len(out); n > 0 && out[n-1].Timestamp == start {
			cur := &out[n-1]
			cur.High = max(cur.High, b.High)
			cur.Low = min(cur.Low, b.Low)
			cur.Close = b.Close
			cur.Volume += b.Volume
			continue
		}
		out = append(out, model.Bar{
			Timestamp: start,
			Open:      b.Open,
			High:      b.High,
			Low:       b.Low,
			Close:     b.Close,
			Volume:    b.Volume,
		})
	}
	return out
}

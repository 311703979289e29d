package download

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ib-history/internal/model"
	"ib-history/internal/saver"
	"ib-history/internal/slogx"
)

// dailyBars stamps bars at 05:00 UTC (midnight exchange time) to exercise truncation.
func dailyBars(days []time.Time, closes ...float64) []model.Bar {
	out := make([]model.Bar, len(days))
	for i, d := range days {
		out[i] = model.NewBar(d.Add(5*time.Hour), closes[i], closes[i], closes[i], closes[i], 1000)
	}
	return out
}

func TestDailyRequestShape(t *testing.T) {
	f := &fakeRequester{}
	var clientID int
	d := NewDaily(dialerFor(f, &clientID), saver.ParquetSaver{}, dailyConfig(), nil, slogx.Discard(), nil)

	_, err := d.Run(context.Background(), Options{Ticker: "msft", StorageDir: t.TempDir(), StartDate: date(2024, 1, 1), EndDate: date(2024, 1, 10)})
	require.NoError(t, err)
	assert.Equal(t, 3, clientID)
	require.Len(t, f.requests, 1)
	req := f.requests[0]
	assert.Equal(t, "10 D", req.Duration)
	assert.Equal(t, "1 day", req.BarSize)
	assert.True(t, req.RegularHoursOnly)
	assert.Equal(t, "20240110 23:59:59 US/Eastern", req.EndDateTime)
	assert.Equal(t, 60*time.Second, req.Timeout)
	assert.Equal(t, 1, f.closed)
}

func TestDailyEmptyTouchesNoFile(t *testing.T) {
	dir := t.TempDir()
	d := NewDaily(dialerFor(&fakeRequester{}, nil), saver.ParquetSaver{}, dailyConfig(), nil, slogx.Discard(), nil)

	sum, err := d.Run(context.Background(), Options{Ticker: "AAPL", StorageDir: dir, StartDate: date(2024, 1, 1), EndDate: date(2024, 1, 5)})
	require.NoError(t, err)
	assert.Len(t, sum.Empty, 1)
	assert.False(t, fileExists(DailyPath(dir, "AAPL", "parquet")))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestDailyClipsToRange(t *testing.T) {
	dir := t.TempDir()
	days := []time.Time{date(2023, 12, 29), date(2024, 1, 2), date(2024, 1, 3), date(2024, 1, 8)}
	f := &fakeRequester{responses: []response{{bars: dailyBars(days, 0, 2, 3, 8)}}}
	s := saver.CSVSaver{}
	d := NewDaily(dialerFor(f, nil), s, dailyConfig(), nil, slogx.Discard(), nil)

	_, err := d.Run(context.Background(), Options{Ticker: "AAPL", StorageDir: dir, StartDate: date(2024, 1, 1), EndDate: date(2024, 1, 5)})
	require.NoError(t, err)

	bars, err := s.Load(DailyPath(dir, "AAPL", "csv"))
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, date(2024, 1, 2), bars[0].Time(), "timestamp truncated to date")
	assert.Equal(t, 3.0, bars[1].Close)
}

func TestDailyNothingInsideRange(t *testing.T) {
	dir := t.TempDir()
	f := &fakeRequester{responses: []response{{bars: dailyBars([]time.Time{date(2023, 6, 1)}, 1)}}}
	d := NewDaily(dialerFor(f, nil), saver.CSVSaver{}, dailyConfig(), nil, slogx.Discard(), nil)

	_, err := d.Run(context.Background(), Options{Ticker: "AAPL", StorageDir: dir, StartDate: date(2024, 1, 1), EndDate: date(2024, 1, 5)})
	require.NoError(t, err)
	assert.False(t, fileExists(DailyPath(dir, "AAPL", "csv")))
}

func TestDailyMergeAdditiveAndIdempotent(t *testing.T) {
	dir := t.TempDir()
	s := saver.ParquetSaver{}
	run := func(bars []model.Bar, from, to time.Time) {
		t.Helper()
		f := &fakeRequester{responses: []response{{bars: bars}}}
		_, err := NewDaily(dialerFor(f, nil), s, dailyConfig(), nil, slogx.Discard(), nil).
			Run(context.Background(), Options{Ticker: "AAPL", StorageDir: dir, StartDate: from, EndDate: to})
		require.NoError(t, err)
	}
	load := func() []model.Bar {
		t.Helper()
		bars, err := s.Load(DailyPath(dir, "AAPL", "parquet"))
		require.NoError(t, err)
		return bars
	}

	first := dailyBars([]time.Time{date(2024, 1, 2), date(2024, 1, 3)}, 2, 3)
	run(first, date(2024, 1, 1), date(2024, 1, 3))
	once := load()
	run(first, date(2024, 1, 1), date(2024, 1, 3))
	assert.Equal(t, once, load(), "same data twice leaves the file unchanged")

	second := dailyBars([]time.Time{date(2024, 1, 3), date(2024, 1, 4)}, 30, 4)
	run(second, date(2024, 1, 3), date(2024, 1, 4))
	merged := load()
	require.Len(t, merged, 3)
	assert.Equal(t, 2.0, merged[0].Close)
	assert.Equal(t, 30.0, merged[1].Close, "fresh wins on collision")
	assert.Equal(t, 4.0, merged[2].Close)
}

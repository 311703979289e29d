package model

import "time"

// Bar represents one OHLCV candle keyed by its UTC start instant.
// Shared by the session, the savers and the series helpers.
type Bar struct {
	Timestamp int64   `json:"t" parquet:"timestamp" msgpack:"t"` // Unix timestamp in milliseconds, UTC
	Open      float64 `json:"o" parquet:"open" msgpack:"o"`
	High      float64 `json:"h" parquet:"high" msgpack:"h"`
	Low       float64 `json:"l" parquet:"low" msgpack:"l"`
	Close     float64 `json:"c" parquet:"close" msgpack:"c"`
	Volume    int64   `json:"v" parquet:"volume" msgpack:"v"`
}

// Time returns the bar timestamp as a UTC time.
func (b Bar) Time() time.Time {
	return time.UnixMilli(b.Timestamp).UTC()
}

// NewBar builds a Bar stamped at t.
func NewBar(t time.Time, open, high, low, close float64, volume int64) Bar {
	return Bar{
		Timestamp: t.UnixMilli(),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     close,
		Volume:    volume,
	}
}

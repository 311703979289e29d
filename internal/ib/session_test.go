package ib

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ib-history/internal/metrics"
	"ib-history/internal/model"
	"ib-history/internal/slogx"
)

type fakeClient struct {
	mu       sync.Mutex
	h        Handler
	requests []HistoricalDataRequest

	never       bool
	polls       atomic.Int32
	connectAt   int32
	disconnects atomic.Int32

	respond func(h Handler, req HistoricalDataRequest)
}

func (f *fakeClient) Connect(_ context.Context, _ string, _ int, _ int, h Handler) error {
	f.mu.Lock()
	f.h = h
	f.mu.Unlock()
	return nil
}

func (f *fakeClient) IsConnected() bool {
	if f.never {
		return false
	}
	return f.polls.Add(1) > f.connectAt
}

func (f *fakeClient) Disconnect() error {
	f.disconnects.Add(1)
	return nil
}

func (f *fakeClient) Run(ctx context.Context) error {
	<-ctx.Done()
	return nil
}

func (f *fakeClient) RequestHistoricalData(_ context.Context, req HistoricalDataRequest) error {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	h := f.h
	f.mu.Unlock()
	if f.respond != nil {
		go f.respond(h, req)
	}
	return nil
}

type countingCounter struct{ n atomic.Int64 }

func (c *countingCounter) Inc()          { c.n.Add(1) }
func (c *countingCounter) Add(v float64) { c.n.Add(int64(v)) }

func testSessionConfig() SessionConfig {
	return SessionConfig{
		Host:           "127.0.0.1",
		Port:           7496,
		PollInterval:   5 * time.Millisecond,
		ConnectTimeout: 100 * time.Millisecond,
		JoinTimeout:    200 * time.Millisecond,
	}
}

func raw(date string, close float64) model.RawBar {
	return model.RawBar{Date: date, Open: close, High: close, Low: close, Close: close, Volume: 10}
}

func openTestSession(t *testing.T, c *fakeClient, m *metrics.Metrics) *Session {
	t.Helper()
	s, err := Open(context.Background(), c, testSessionConfig(), 2, slogx.Discard(), m)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSessionRequestBars(t *testing.T) {
	c := &fakeClient{connectAt: 3}
	c.respond = func(h Handler, req HistoricalDataRequest) {
		h.OnBar(req.ReqID, raw("20240102 09:31:00 US/Eastern", 2))
		h.OnBar(req.ReqID, raw("20240102 09:30:00 US/Eastern", 1))
		h.OnRequestComplete(req.ReqID, "a", "b")
	}
	s := openTestSession(t, c, nil)

	bars, err := s.RequestBars(context.Background(), BarRequest{
		Contract:    StockContract("aapl"),
		EndDateTime: "20240102 23:59:59 US/Eastern",
		Duration:    "1 D",
		BarSize:     "1 min",
		WhatToShow:  "TRADES",
		Timeout:     time.Second,
	})
	require.NoError(t, err)
	require.Len(t, bars, 2)
	// arrival order is preserved
	assert.Equal(t, 2.0, bars[0].Close)
	assert.Equal(t, time.Date(2024, 1, 2, 14, 31, 0, 0, time.UTC), bars[0].Time())
	assert.Equal(t, time.Date(2024, 1, 2, 14, 30, 0, 0, time.UTC), bars[1].Time())

	require.Len(t, c.requests, 1)
	req := c.requests[0]
	assert.Equal(t, 1, req.ReqID)
	assert.Equal(t, "AAPL", req.Contract.Symbol)
	assert.False(t, req.UseRTH)
	assert.Equal(t, 1, req.FormatDate)
}

func TestSessionConnectionTimeout(t *testing.T) {
	c := &fakeClient{never: true}
	cfg := testSessionConfig()
	cfg.ConnectTimeout = 30 * time.Millisecond

	s, err := Open(context.Background(), c, cfg, 3, slogx.Discard(), nil)
	require.Error(t, err)
	assert.Nil(t, s)
	assert.ErrorIs(t, err, ErrConnectionTimeout)
	assert.Equal(t, int32(1), c.disconnects.Load())
}

func TestSessionTimeoutDoesNotPolluteNextRequest(t *testing.T) {
	m := metrics.NewNoop()
	timeouts := &countingCounter{}
	m.RequestTimeouts = timeouts

	c := &fakeClient{}
	c.respond = func(h Handler, req HistoricalDataRequest) {
		if req.ReqID == 1 {
			return
		}
		// late data for the abandoned request
		h.OnBar(1, raw("20240102", 99))
		h.OnRequestComplete(1, "", "")
		h.OnBar(req.ReqID, raw("20240103", 1))
		h.OnRequestComplete(req.ReqID, "", "")
	}
	s := openTestSession(t, c, m)

	_, err := s.RequestBars(context.Background(), BarRequest{Timeout: 20 * time.Millisecond})
	require.ErrorIs(t, err, ErrRequestTimeout)
	assert.Equal(t, int64(1), timeouts.n.Load())

	bars, err := s.RequestBars(context.Background(), BarRequest{Timeout: time.Second})
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 1.0, bars[0].Close)
	assert.Equal(t, time.Date(2024, 1, 3, 0, 0, 0, 0, time.UTC), bars[0].Time())
}

func TestSessionDropsMalformedBars(t *testing.T) {
	m := metrics.NewNoop()
	malformed := &countingCounter{}
	received := &countingCounter{}
	m.MalformedBars = malformed
	m.BarsReceived = received

	c := &fakeClient{}
	c.respond = func(h Handler, req HistoricalDataRequest) {
		h.OnBar(req.ReqID, raw("20240102 09:30:00 Mars/Olympus", 1))
		h.OnBar(req.ReqID, raw("2024-01-02", 1))
		h.OnBar(req.ReqID, raw("20240102 09:30:00 UTC", 3))
		h.OnRequestComplete(req.ReqID, "", "")
	}
	s := openTestSession(t, c, m)

	bars, err := s.RequestBars(context.Background(), BarRequest{Timeout: time.Second})
	require.NoError(t, err)
	require.Len(t, bars, 1)
	assert.Equal(t, 3.0, bars[0].Close)
	assert.Equal(t, int64(2), malformed.n.Load())
	assert.Equal(t, int64(1), received.n.Load())
}

func TestSessionEmptyResult(t *testing.T) {
	c := &fakeClient{}
	c.respond = func(h Handler, req HistoricalDataRequest) {
		h.OnRequestComplete(req.ReqID, "", "")
	}
	s := openTestSession(t, c, nil)

	bars, err := s.RequestBars(context.Background(), BarRequest{})
	require.NoError(t, err)
	assert.Empty(t, bars)
}

func TestSessionProviderError(t *testing.T) {
	c := &fakeClient{}
	c.respond = func(h Handler, req HistoricalDataRequest) {
		h.OnError(-1, 2104, "Market data farm connection is OK")
		h.OnError(req.ReqID, 162, "HMDS query returned no data")
	}
	s := openTestSession(t, c, nil)

	_, err := s.RequestBars(context.Background(), BarRequest{Timeout: time.Second})
	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, 162, perr.Code)
	assert.Equal(t, 1, perr.ReqID)
}

func TestSessionWarningDoesNotEndRequest(t *testing.T) {
	c := &fakeClient{}
	c.respond = func(h Handler, req HistoricalDataRequest) {
		h.OnError(req.ReqID, 10167, "Requested market data is not subscribed. Displaying delayed market data.")
		h.OnBar(req.ReqID, raw("20240102 09:30:00 UTC", 1))
		h.OnError(req.ReqID, 2176, "Fractional share warning")
		h.OnBar(req.ReqID, raw("20240102 09:31:00 UTC", 2))
		h.OnRequestComplete(req.ReqID, "", "")
	}
	s := openTestSession(t, c, nil)

	bars, err := s.RequestBars(context.Background(), BarRequest{Timeout: time.Second})
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, 2.0, bars[1].Close)
}

func TestIsWarning(t *testing.T) {
	for code, want := range map[int]bool{
		2100:  true,
		2104:  true,
		2199:  true,
		10090: true,
		10167: true,
		162:   false,
		200:   false,
		2200:  false,
	} {
		assert.Equal(t, want, IsWarning(code), "code %d", code)
	}
}

func TestSessionContextCancel(t *testing.T) {
	s := openTestSession(t, &fakeClient{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := s.RequestBars(ctx, BarRequest{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestSessionCloseIdempotent(t *testing.T) {
	c := &fakeClient{}
	s, err := Open(context.Background(), c, testSessionConfig(), 2, slogx.Discard(), nil)
	require.NoError(t, err)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	assert.Equal(t, int32(1), c.disconnects.Load())

	_, err = s.RequestBars(context.Background(), BarRequest{})
	assert.ErrorIs(t, err, ErrSessionClosed)
}

package ib

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"ib-history/internal/metrics"
	"ib-history/internal/model"
	"ib-history/internal/slogx"
)

// SessionConfig bounds the session lifecycle.
type SessionConfig struct {
	Host           string
	Port           int
	PollInterval   time.Duration
	ConnectTimeout time.Duration
	StabilizeDelay time.Duration
	JoinTimeout    time.Duration
}

// DefaultSessionConfig matches a local TWS on the live port.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Host:           "127.0.0.1",
		Port:           7496,
		PollInterval:   100 * time.Millisecond,
		ConnectTimeout: 10 * time.Second,
		StabilizeDelay: time.Second,
		JoinTimeout:    2 * time.Second,
	}
}

// BarRequest describes one historical bars request. Timeout 0 waits until ctx is done.
type BarRequest struct {
	Contract         Contract
	EndDateTime      string
	Duration         string
	BarSize          string
	WhatToShow       string
	RegularHoursOnly bool
	Timeout          time.Duration
}

// Session owns one provider connection, its message loop and the bar buffer.
// Requests are strictly sequential.
type Session struct {
	client   Client
	cfg      SessionConfig
	clientID int
	log      *slog.Logger
	metrics  *metrics.Metrics

	reqMu  sync.Mutex
	nextID int
	buf    barBuffer

	cancel    context.CancelFunc
	loopDone  chan struct{}
	loopErr   error
	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Open connects client, waits for the connection and starts the message loop.
func Open(ctx context.Context, client Client, cfg SessionConfig, clientID int, log *slog.Logger, m *metrics.Metrics) (*Session, error) {
	s := &Session{
		client:   client,
		cfg:      cfg,
		clientID: clientID,
		log:      slogx.OrDefault(log).With("client_id", clientID),
		metrics:  metrics.OrNoop(m),
	}
	s.buf.reset(0)

	if err := client.Connect(ctx, cfg.Host, cfg.Port, clientID, s); err != nil {
		return nil, fmt.Errorf("connect %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	if err := s.waitConnected(ctx); err != nil {
		_ = client.Disconnect()
		return nil, err
	}

	loopCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.loopDone = make(chan struct{})
	var g errgroup.Group
	g.Go(func() error {
		return client.Run(loopCtx)
	})
	go func() {
		s.loopErr = g.Wait()
		close(s.loopDone)
	}()
	s.log.Info("session connected", "host", cfg.Host, "port", cfg.Port)

	if cfg.StabilizeDelay > 0 {
		t := time.NewTimer(cfg.StabilizeDelay)
		defer t.Stop()
		select {
		case <-t.C:
		case <-ctx.Done():
			_ = s.Close()
			return nil, ctx.Err()
		}
	}
	return s, nil
}

func (s *Session) waitConnected(ctx context.Context) error {
	if s.client.IsConnected() {
		return nil
	}
	poll := s.cfg.PollInterval
	if poll <= 0 {
		poll = 100 * time.Millisecond
	}
	deadline := time.NewTimer(s.cfg.ConnectTimeout)
	defer deadline.Stop()
	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	for !s.client.IsConnected() {
		select {
		case <-deadline.C:
			return fmt.Errorf("%w after %s", ErrConnectionTimeout, s.cfg.ConnectTimeout)
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// RequestBars issues one historical request and blocks until it completes,
// times out or ctx is done. Bars come back in arrival order.
func (s *Session) RequestBars(ctx context.Context, req BarRequest) ([]model.Bar, error) {
	s.reqMu.Lock()
	defer s.reqMu.Unlock()

	if s.closed.Load() {
		return nil, ErrSessionClosed
	}
	select {
	case <-s.loopDone:
		return nil, s.loopEnded()
	default:
	}

	s.nextID++
	id := s.nextID
	done := s.buf.reset(id)
	s.metrics.Requests.Inc()

	err := s.client.RequestHistoricalData(ctx, HistoricalDataRequest{
		ReqID:       id,
		Contract:    req.Contract,
		EndDateTime: req.EndDateTime,
		Duration:    req.Duration,
		BarSize:     req.BarSize,
		WhatToShow:  req.WhatToShow,
		UseRTH:      req.RegularHoursOnly,
		FormatDate:  1,
	})
	if err != nil {
		s.buf.reset(0)
		return nil, fmt.Errorf("request historical data: %w", err)
	}

	var timeout <-chan time.Time
	if req.Timeout > 0 {
		t := time.NewTimer(req.Timeout)
		defer t.Stop()
		timeout = t.C
	}

	select {
	case <-done:
	case <-timeout:
		s.buf.reset(0)
		s.metrics.RequestTimeouts.Inc()
		return nil, fmt.Errorf("%w after %s (req %d)", ErrRequestTimeout, req.Timeout, id)
	case <-ctx.Done():
		s.buf.reset(0)
		return nil, ctx.Err()
	case <-s.loopDone:
		s.buf.reset(0)
		return nil, s.loopEnded()
	}

	bars, err := s.buf.drain()
	if err != nil {
		return nil, err
	}
	s.metrics.BarsReceived.Add(float64(len(bars)))
	return bars, nil
}

func (s *Session) loopEnded() error {
	if s.loopErr != nil {
		return fmt.Errorf("message loop ended: %w", s.loopErr)
	}
	return fmt.Errorf("message loop ended: %w", ErrSessionClosed)
}

// Close disconnects and joins the message loop for at most JoinTimeout. Safe to call twice.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		s.closeErr = s.client.Disconnect()
		s.cancel()

		t := time.NewTimer(s.cfg.JoinTimeout)
		defer t.Stop()
		select {
		case <-s.loopDone:
		case <-t.C:
			s.log.Warn("message loop did not stop in time", "timeout", s.cfg.JoinTimeout)
		}
		s.log.Info("session closed")
	})
	return s.closeErr
}

// OnBar implements Handler.
func (s *Session) OnBar(reqID int, raw model.RawBar) {
	ts, err := ParseBarTime(raw.Date)
	if err != nil {
		s.metrics.MalformedBars.Inc()
		s.log.Warn("dropping bar", "req_id", reqID, "error", err)
		return
	}
	bar := model.NewBar(ts, raw.Open, raw.High, raw.Low, raw.Close, raw.Volume.Int64())
	if !s.buf.append(reqID, bar) {
		s.log.Debug("ignoring bar for stale request", "req_id", reqID)
	}
}

// OnRequestComplete implements Handler.
func (s *Session) OnRequestComplete(reqID int, start, end string) {
	if !s.buf.finish(reqID, nil) {
		s.log.Debug("ignoring completion for stale request", "req_id", reqID)
		return
	}
	s.log.Debug("request complete", "req_id", reqID, "start", start, "end", end)
}

// OnError implements Handler. Warnings and messages not tied to the
// in-flight request are only logged.
func (s *Session) OnError(reqID int, code int, message string) {
	if IsWarning(code) {
		s.log.Info("provider warning", "req_id", reqID, "code", code, "message", message)
		return
	}
	perr := &ProviderError{ReqID: reqID, Code: code, Message: message}
	if reqID > 0 && s.buf.finish(reqID, perr) {
		return
	}
	s.log.Warn("provider message", "req_id", reqID, "code", code, "message", message)
}

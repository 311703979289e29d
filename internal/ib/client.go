package ib

import (
	"context"

	"ib-history/internal/model"
)

// HistoricalDataRequest is the provider-level historical bars request.
type HistoricalDataRequest struct {
	ReqID        int      `json:"req_id"`
	Contract     Contract `json:"contract"`
	EndDateTime  string   `json:"end_date_time"`
	Duration     string   `json:"duration"`
	BarSize      string   `json:"bar_size"`
	WhatToShow   string   `json:"what_to_show"`
	UseRTH       bool     `json:"use_rth"`
	FormatDate   int      `json:"format_date"`
	KeepUpToDate bool     `json:"keep_up_to_date"`
}

// Handler receives the provider's asynchronous callbacks.
// Calls arrive on the goroutine running Client.Run.
type Handler interface {
	OnBar(reqID int, bar model.RawBar)
	OnRequestComplete(reqID int, start, end string)
	OnError(reqID int, code int, message string)
}

// Client is the provider connectivity collaborator.
//
// Connect establishes the transport and registers h for callbacks; the
// connection is usable once IsConnected reports true. Run drains inbound
// messages until ctx is done or the connection drops.
type Client interface {
	Connect(ctx context.Context, host string, port int, clientID int, h Handler) error
	IsConnected() bool
	Disconnect() error
	Run(ctx context.Context) error
	RequestHistoricalData(ctx context.Context, req HistoricalDataRequest) error
}

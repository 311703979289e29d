package gateway

import (
	"ib-history/internal/ib"
	"ib-history/internal/model"
)

// Message types exchanged with the bridge.
const (
	TypeHello             = "hello"
	TypeConnected         = "connected"
	TypeHistoricalRequest = "historical_data_request"
	TypeHistoricalData    = "historical_data"
	TypeHistoricalEnd     = "historical_data_end"
	TypeError             = "error"
)

// Message is the JSON envelope of every text frame.
type Message struct {
	Type          string                    `json:"type"`
	ClientID      int                       `json:"client_id,omitempty"`
	ServerVersion int                       `json:"server_version,omitempty"`
	ReqID         int                       `json:"req_id,omitempty"`
	Request       *ib.HistoricalDataRequest `json:"request,omitempty"`
	Bar           *model.RawBar             `json:"bar,omitempty"`
	Start         string                    `json:"start,omitempty"`
	End           string                    `json:"end,omitempty"`
	Code          int                       `json:"code,omitempty"`
	Message       string                    `json:"message,omitempty"`
}

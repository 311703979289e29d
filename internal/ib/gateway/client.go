// Package gateway talks to a websocket bridge in front of TWS / IB Gateway.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"nhooyr.io/websocket"

	"ib-history/internal/ib"
	"ib-history/internal/slogx"
)

var errNotConnected = errors.New("gateway not connected")

// Client implements ib.Client over JSON text frames.
type Client struct {
	path string
	log  *slog.Logger

	mu        sync.Mutex
	conn      *websocket.Conn
	h         ib.Handler
	connected atomic.Bool
}

var _ ib.Client = (*Client)(nil)

// New returns a client dialing ws://host:port<path>.
func New(path string, log *slog.Logger) *Client {
	if path == "" {
		path = "/"
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return &Client{path: path, log: slogx.OrDefault(log)}
}

// Connect dials the bridge and performs the hello handshake.
func (c *Client) Connect(ctx context.Context, host string, port int, clientID int, h ib.Handler) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn != nil {
		return nil
	}

	url := "ws://" + net.JoinHostPort(host, strconv.Itoa(port)) + c.path
	conn, _, err := websocket.Dial(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", url, err)
	}
	if err := writeJSON(ctx, conn, Message{Type: TypeHello, ClientID: clientID}); err != nil {
		_ = conn.Close(websocket.StatusInternalError, "hello failed")
		return fmt.Errorf("hello: %w", err)
	}

	var ack Message
	if err := readJSON(ctx, conn, &ack); err != nil {
		_ = conn.Close(websocket.StatusInternalError, "handshake failed")
		return fmt.Errorf("handshake: %w", err)
	}
	switch ack.Type {
	case TypeConnected:
	case TypeError:
		_ = conn.Close(websocket.StatusNormalClosure, "")
		return &ib.ProviderError{ReqID: ack.ReqID, Code: ack.Code, Message: ack.Message}
	default:
		_ = conn.Close(websocket.StatusProtocolError, "unexpected handshake")
		return fmt.Errorf("handshake: unexpected message %q", ack.Type)
	}

	c.conn = conn
	c.h = h
	c.connected.Store(true)
	c.log.Debug("gateway connected", "url", url, "client_id", clientID, "server_version", ack.ServerVersion)
	return nil
}

func (c *Client) IsConnected() bool {
	return c.connected.Load()
}

// Disconnect closes the websocket. Calling it on a closed client is a no-op.
func (c *Client) Disconnect() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.mu.Unlock()
	c.connected.Store(false)
	if conn == nil {
		return nil
	}
	err := conn.Close(websocket.StatusNormalClosure, "bye")
	if err == nil || errors.Is(err, net.ErrClosed) || websocket.CloseStatus(err) != -1 {
		return nil
	}
	return err
}

// Run reads frames and dispatches them to the handler until ctx is done
// or the connection drops.
func (c *Client) Run(ctx context.Context) error {
	c.mu.Lock()
	conn, h := c.conn, c.h
	c.mu.Unlock()
	if conn == nil {
		return errNotConnected
	}
	defer c.connected.Store(false)

	for {
		_, data, err := conn.Read(ctx)
		if err != nil {
			if ctx.Err() != nil || websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}
			return fmt.Errorf("read: %w", err)
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			c.log.Warn("skipping malformed frame", "error", err)
			continue
		}
		c.dispatch(h, msg)
	}
}

func (c *Client) dispatch(h ib.Handler, msg Message) {
	switch msg.Type {
	case TypeHistoricalData:
		if msg.Bar == nil {
			c.log.Warn("historical_data without bar", "req_id", msg.ReqID)
			return
		}
		h.OnBar(msg.ReqID, *msg.Bar)
	case TypeHistoricalEnd:
		h.OnRequestComplete(msg.ReqID, msg.Start, msg.End)
	case TypeError:
		h.OnError(msg.ReqID, msg.Code, msg.Message)
	default:
		c.log.Debug("ignoring message", "type", msg.Type)
	}
}

// RequestHistoricalData sends one historical_data_request frame.
func (c *Client) RequestHistoricalData(ctx context.Context, req ib.HistoricalDataRequest) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return errNotConnected
	}
	return writeJSON(ctx, conn, Message{Type: TypeHistoricalRequest, ReqID: req.ReqID, Request: &req})
}

func writeJSON(ctx context.Context, conn *websocket.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return conn.Write(ctx, websocket.MessageText, data)
}

func readJSON(ctx context.Context, conn *websocket.Conn, v any) error {
	_, data, err := conn.Read(ctx)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

package realtime

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is one transport session. ReadMessage is called from a single reader
// goroutine, the write methods from the manager loop only; Close may be
// called from either.
type Conn interface {
	ReadMessage() ([]byte, error)
	WriteMessage(data []byte) error
	WritePing() error
	Close() error
}

// Dialer opens transport sessions.
type Dialer interface {
	Dial(ctx context.Context, url string) (Conn, error)
}

// CloseError reports how a transport session ended. Clean is true for a
// normal closure and for a close this client initiated. A going-away close
// from a restarting server is not clean.
type CloseError struct {
	Code  int
	Clean bool
	Err   error
}

func (e *CloseError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("connection closed (code %d, clean %t)", e.Code, e.Clean)
	}
	return fmt.Sprintf("connection closed (code %d, clean %t): %v", e.Code, e.Clean, e.Err)
}

func (e *CloseError) Unwrap() error { return e.Err }

// IsCleanClose reports whether err describes a clean close.
func IsCleanClose(err error) bool {
	var ce *CloseError
	return errors.As(err, &ce) && ce.Clean
}

// WebSocketConfig holds configuration for the websocket transport.
type WebSocketConfig struct {
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
	ReadTimeout      time.Duration // zero disables the read deadline
	CloseGracePeriod time.Duration
	MaxMessageSize   int64
	ReadBufferSize   int
	WriteBufferSize  int
}

// DefaultWebSocketConfig returns default websocket configuration.
func DefaultWebSocketConfig() WebSocketConfig {
	return WebSocketConfig{
		HandshakeTimeout: 10 * time.Second,
		WriteTimeout:     10 * time.Second,
		ReadTimeout:      0,
		CloseGracePeriod: 2 * time.Second,
		MaxMessageSize:   1 << 20, // game snapshots carry the whole board
		ReadBufferSize:   4096,
		WriteBufferSize:  1024,
	}
}

// WebSocketDialer dials the game server with gorilla/websocket.
type WebSocketDialer struct {
	config WebSocketConfig
	dialer *websocket.Dialer
}

// NewWebSocketDialer creates a dialer.
func NewWebSocketDialer(config WebSocketConfig) *WebSocketDialer {
	return &WebSocketDialer{
		config: config,
		dialer: &websocket.Dialer{
			HandshakeTimeout: config.HandshakeTimeout,
			ReadBufferSize:   config.ReadBufferSize,
			WriteBufferSize:  config.WriteBufferSize,
		},
	}
}

// Dial opens a websocket session.
func (d *WebSocketDialer) Dial(ctx context.Context, url string) (Conn, error) {
	conn, resp, err := d.dialer.DialContext(ctx, url, nil)
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("websocket handshake failed with status %d: %w", resp.StatusCode, err)
		}
		return nil, fmt.Errorf("failed to dial websocket: %w", err)
	}

	wc := &wsConn{conn: conn, config: d.config}
	if d.config.MaxMessageSize > 0 {
		conn.SetReadLimit(d.config.MaxMessageSize)
	}
	wc.extendReadDeadline()
	conn.SetPongHandler(func(string) error {
		wc.extendReadDeadline()
		return nil
	})
	return wc, nil
}

type wsConn struct {
	conn   *websocket.Conn
	config WebSocketConfig

	closing   atomic.Bool
	closeOnce sync.Once
}

func (c *wsConn) ReadMessage() ([]byte, error) {
	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			c.closeNow()
			return nil, c.classify(err)
		}
		c.extendReadDeadline()
		if msgType == websocket.TextMessage || msgType == websocket.BinaryMessage {
			return data, nil
		}
	}
}

func (c *wsConn) WriteMessage(data []byte) error {
	_ = c.conn.SetWriteDeadline(c.writeDeadline())
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) WritePing() error {
	return c.conn.WriteControl(websocket.PingMessage, nil, c.writeDeadline())
}

// Close starts the closing handshake. The reader observes the peer's close
// frame, or the grace deadline, and then releases the socket.
func (c *wsConn) Close() error {
	if !c.closing.CompareAndSwap(false, true) {
		return nil
	}
	grace := c.config.CloseGracePeriod
	if grace <= 0 {
		grace = time.Second
	}
	deadline := time.Now().Add(grace)
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	if err := c.conn.WriteControl(websocket.CloseMessage, msg, deadline); err != nil {
		c.closeNow()
		return nil
	}
	_ = c.conn.SetReadDeadline(deadline)
	return nil
}

func (c *wsConn) writeDeadline() time.Time {
	timeout := c.config.WriteTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return time.Now().Add(timeout)
}

func (c *wsConn) closeNow() {
	c.closeOnce.Do(func() {
		_ = c.conn.Close()
	})
}

func (c *wsConn) extendReadDeadline() {
	if c.config.ReadTimeout > 0 && !c.closing.Load() {
		_ = c.conn.SetReadDeadline(time.Now().Add(c.config.ReadTimeout))
	}
}

func (c *wsConn) classify(err error) error {
	var ce *websocket.CloseError
	if errors.As(err, &ce) {
		return &CloseError{
			Code:  ce.Code,
			Clean: ce.Code == websocket.CloseNormalClosure || c.closing.Load(),
			Err:   err,
		}
	}
	return &CloseError{Code: websocket.CloseAbnormalClosure, Clean: c.closing.Load(), Err: err}
}

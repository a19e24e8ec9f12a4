// Copyright 2026 The Tripmate Authors
// SPDX-License-Identifier: Apache-2.0

package socket

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tripmate-app/tripmate/lib/clock"
	"github.com/tripmate-app/tripmate/lib/netutil"
	"github.com/tripmate-app/tripmate/lib/secret"
)

// MaxFrameSize bounds a single inbound frame. Chat envelopes are a few
// hundred bytes; anything near this limit is a protocol error.
const MaxFrameSize = 1 << 20

const (
	defaultHandshakeTimeout = 10 * time.Second
	writeTimeout            = 10 * time.Second
)

// WebSocketConfig configures a [WebSocketTransport].
type WebSocketConfig struct {
	// URL is the ws:// or wss:// endpoint.
	URL string

	// PingInterval is how often the link sends a ping control frame.
	// The read deadline is two intervals, so a peer that stops
	// answering pings is detected as a dropped link. Zero disables
	// keepalive.
	PingInterval time.Duration

	// HandshakeTimeout bounds the opening handshake. Zero uses 10s.
	HandshakeTimeout time.Duration

	// Clock drives the ping ticker. Nil uses the wall clock.
	Clock clock.Clock

	// Logger is used for link-level diagnostics. Nil uses slog.Default().
	Logger *slog.Logger
}

// WebSocketTransport dials the chat backend over gorilla/websocket,
// presenting the session token as a bearer Authorization header.
type WebSocketTransport struct {
	url          string
	pingInterval time.Duration
	dialer       *websocket.Dialer
	clock        clock.Clock
	logger       *slog.Logger
}

// NewWebSocketTransport validates config and returns a transport.
func NewWebSocketTransport(config WebSocketConfig) (*WebSocketTransport, error) {
	parsed, err := url.Parse(config.URL)
	if err != nil {
		return nil, fmt.Errorf("socket: invalid URL %q: %w", config.URL, err)
	}
	if parsed.Scheme != "ws" && parsed.Scheme != "wss" {
		return nil, fmt.Errorf("socket: URL %q must be ws or wss", config.URL)
	}

	handshakeTimeout := config.HandshakeTimeout
	if handshakeTimeout <= 0 {
		handshakeTimeout = defaultHandshakeTimeout
	}
	clk := config.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &WebSocketTransport{
		url:          config.URL,
		pingInterval: config.PingInterval,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: handshakeTimeout,
		},
		clock:  clk,
		logger: logger,
	}, nil
}

// Dial performs the WebSocket handshake.
func (t *WebSocketTransport) Dial(ctx context.Context, token *secret.Token) (Link, error) {
	header := http.Header{}
	if token != nil {
		header.Set("Authorization", "Bearer "+token.String())
	}

	conn, response, err := t.dialer.DialContext(ctx, t.url, header)
	if err != nil {
		if response != nil {
			return nil, fmt.Errorf("socket: dialing %s: handshake returned %s: %w", t.url, response.Status, err)
		}
		return nil, fmt.Errorf("socket: dialing %s: %w", t.url, err)
	}
	conn.SetReadLimit(MaxFrameSize)

	link := &webSocketLink{
		conn:   conn,
		logger: t.logger,
		done:   make(chan struct{}),
	}
	if t.pingInterval > 0 {
		deadline := 2 * t.pingInterval
		conn.SetReadDeadline(time.Now().Add(deadline))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(deadline))
		})
		go link.keepalive(t.clock.NewTicker(t.pingInterval))
	}
	return link, nil
}

type webSocketLink struct {
	conn   *websocket.Conn
	logger *slog.Logger

	// writeMu serializes writers; gorilla allows one concurrent writer.
	writeMu sync.Mutex

	closeOnce sync.Once
	done      chan struct{}
}

func (l *webSocketLink) ReadFrame() ([]byte, error) {
	for {
		messageType, data, err := l.conn.ReadMessage()
		if err != nil {
			return nil, err
		}
		if messageType == websocket.TextMessage || messageType == websocket.BinaryMessage {
			return data, nil
		}
	}
}

func (l *webSocketLink) WriteFrame(frame []byte, binary bool) error {
	messageType := websocket.TextMessage
	if binary {
		messageType = websocket.BinaryMessage
	}
	l.writeMu.Lock()
	defer l.writeMu.Unlock()
	l.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return l.conn.WriteMessage(messageType, frame)
}

func (l *webSocketLink) Close() error {
	var err error
	l.closeOnce.Do(func() {
		close(l.done)
		l.writeMu.Lock()
		closeMessage := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		l.conn.WriteControl(websocket.CloseMessage, closeMessage, time.Now().Add(time.Second))
		l.writeMu.Unlock()
		err = l.conn.Close()
	})
	return err
}

func (l *webSocketLink) keepalive(ticker *clock.Ticker) {
	defer ticker.Stop()
	for {
		select {
		case <-l.done:
			return
		case <-ticker.C:
			l.writeMu.Lock()
			err := l.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout))
			l.writeMu.Unlock()
			if err != nil {
				if !netutil.IsExpectedCloseError(err) {
					l.logger.Debug("websocket ping failed", "error", err)
				}
				return
			}
		}
	}
}

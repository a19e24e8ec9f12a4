// Copyright 2026 The Tripmate Authors
// SPDX-License-Identifier: Apache-2.0

package socket

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tripmate-app/tripmate/lib/clock"
	"github.com/tripmate-app/tripmate/lib/codec"
	"github.com/tripmate-app/tripmate/lib/netutil"
	"github.com/tripmate-app/tripmate/lib/schema"
	"github.com/tripmate-app/tripmate/lib/secret"
)

const (
	defaultInitialBackoff = 500 * time.Millisecond
	defaultMaxBackoff     = 30 * time.Second

	// inboundQueueSize is the number of decoded events buffered
	// between the read loop and the dispatch goroutine.
	inboundQueueSize = 256
)

// Event is one envelope delivered to a subscriber.
type Event struct {
	// Name is the event name from the envelope.
	Name string

	data  []byte
	codec codec.Codec
}

// NewEvent builds an Event carrying an encoded payload. Connections
// build events themselves; this is for substitutes in tests.
func NewEvent(name string, data []byte, wire codec.Codec) Event {
	return Event{Name: name, data: data, codec: wire}
}

// Decode unmarshals the event payload into v.
func (e Event) Decode(v any) error {
	if len(e.data) == 0 {
		return fmt.Errorf("socket: %s event has no payload", e.Name)
	}
	if err := e.codec.Unmarshal(e.data, v); err != nil {
		return fmt.Errorf("socket: decoding %s payload: %w", e.Name, err)
	}
	return nil
}

// Handler receives events for one subscription. Handlers run on the
// connection's dispatch goroutine and must not block for long: a slow
// handler delays every later event.
type Handler func(Event)

// DialerConfig configures a [Dialer].
type DialerConfig struct {
	// Transport establishes links. Required.
	Transport Transport

	// Codec encodes envelopes. Nil uses codec.JSON.
	Codec codec.Codec

	// Reconnect makes a Conn redial after its link drops, and lets
	// Open succeed while the first dial is still failing.
	Reconnect bool

	// InitialBackoff is the first redial delay. Zero uses 500ms.
	InitialBackoff time.Duration

	// MaxBackoff caps the redial delay. Zero uses 30s.
	MaxBackoff time.Duration

	// Clock drives backoff timers. Nil uses the wall clock.
	Clock clock.Clock

	// Logger is used for connection lifecycle logging. Nil uses
	// slog.Default().
	Logger *slog.Logger
}

// Dialer opens connections with a fixed configuration.
type Dialer struct {
	config DialerConfig
}

// NewDialer validates config and fills in defaults.
func NewDialer(config DialerConfig) (*Dialer, error) {
	if config.Transport == nil {
		return nil, fmt.Errorf("socket: Transport is required")
	}
	if config.Codec == nil {
		config.Codec = codec.JSON
	}
	if config.InitialBackoff <= 0 {
		config.InitialBackoff = defaultInitialBackoff
	}
	if config.MaxBackoff <= 0 {
		config.MaxBackoff = defaultMaxBackoff
	}
	if config.MaxBackoff < config.InitialBackoff {
		config.MaxBackoff = config.InitialBackoff
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Dialer{config: config}, nil
}

// Open dials the backend and returns the session's connection. The
// token is borrowed for every (re)dial until Close; the caller keeps
// ownership and must not close it before the Conn.
//
// Without reconnection a failed first dial is returned as an error.
// With reconnection the Conn is returned disconnected and keeps
// redialing in the background.
func (d *Dialer) Open(ctx context.Context, token *secret.Token) (*Conn, error) {
	link, err := d.config.Transport.Dial(ctx, token)
	if err != nil && !d.config.Reconnect {
		return nil, fmt.Errorf("socket: connecting: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.Background())
	conn := &Conn{
		config:   d.config,
		token:    token,
		logger:   d.config.Logger,
		ctx:      runCtx,
		cancel:   cancel,
		handlers: make(map[string][]*subscription),
		inbound:  make(chan Event, inboundQueueSize),
		runDone:  make(chan struct{}),
	}
	go conn.dispatch()

	if err != nil {
		conn.logger.Warn("socket connect failed, retrying in background", "error", err)
		link = nil
	} else {
		conn.attach(link)
	}
	go conn.run(link)
	return conn, nil
}

// Conn is one session's real-time connection. All methods are safe
// for concurrent use.
type Conn struct {
	config DialerConfig
	token  *secret.Token
	logger *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	link     Link
	closed   bool
	handlers map[string][]*subscription

	inbound   chan Event
	runDone   chan struct{}
	closeOnce sync.Once
}

type subscription struct {
	handler Handler
	active  atomic.Bool
}

// Connected reports the last known link state.
func (c *Conn) Connected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.link != nil
}

// Subscribe registers handler for event and returns a function that
// removes the registration. The returned function is idempotent.
// After it returns the handler is not invoked again, except for a call
// that was already in progress.
func (c *Conn) Subscribe(event string, handler Handler) (unsubscribe func()) {
	sub := &subscription{handler: handler}
	sub.active.Store(true)

	c.mu.Lock()
	c.handlers[event] = append(c.handlers[event], sub)
	c.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			sub.active.Store(false)
			c.mu.Lock()
			defer c.mu.Unlock()
			c.handlers[event] = slices.DeleteFunc(c.handlers[event], func(candidate *subscription) bool {
				return candidate == sub
			})
			if len(c.handlers[event]) == 0 {
				delete(c.handlers, event)
			}
		})
	}
}

// Emit encodes payload under event and writes it to the link. While
// the link is down Emit returns [ErrNotConnected] and nothing is sent;
// envelopes are never queued for later delivery.
func (c *Conn) Emit(event string, payload any) error {
	if event == schema.EventConnect || event == schema.EventDisconnect {
		return fmt.Errorf("socket: %q is a local event and cannot be emitted", event)
	}

	c.mu.Lock()
	closed, link := c.closed, c.link
	c.mu.Unlock()
	if closed {
		return ErrClosed
	}
	if link == nil {
		return ErrNotConnected
	}

	frame, err := c.config.Codec.EncodeEnvelope(event, payload)
	if err != nil {
		return fmt.Errorf("socket: %w", err)
	}
	if err := link.WriteFrame(frame, c.config.Codec.Binary()); err != nil {
		return fmt.Errorf("socket: emitting %s: %w", event, err)
	}
	return nil
}

// Close disconnects and stops redialing. Subscribers receive no
// events after Close returns, apart from a handler that is already
// running. Idempotent.
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		link := c.link
		c.link = nil
		c.mu.Unlock()

		c.cancel()
		if link != nil {
			link.Close()
		}
		<-c.runDone
		c.logger.Debug("socket closed")
	})
	return nil
}

// run owns the link lifecycle: read until the link fails, then redial
// when reconnection is enabled.
func (c *Conn) run(link Link) {
	defer close(c.runDone)
	for {
		if link == nil {
			if !c.config.Reconnect {
				return
			}
			link = c.redial()
			if link == nil {
				return
			}
			if !c.attach(link) {
				link.Close()
				return
			}
		}

		err := c.readLoop(link)
		c.detach(link, err)
		link = nil
		if c.ctx.Err() != nil {
			return
		}
	}
}

func (c *Conn) attach(link Link) bool {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false
	}
	c.link = link
	c.mu.Unlock()

	c.logger.Info("socket connected")
	c.enqueue(Event{Name: schema.EventConnect, codec: c.config.Codec})
	return true
}

func (c *Conn) detach(link Link, cause error) {
	c.mu.Lock()
	if c.link == link {
		c.link = nil
	}
	closed := c.closed
	c.mu.Unlock()
	link.Close()

	if closed {
		return
	}
	if netutil.IsExpectedCloseError(cause) {
		c.logger.Info("socket disconnected", "reason", cause)
	} else {
		c.logger.Warn("socket disconnected", "error", cause)
	}
	c.enqueue(Event{Name: schema.EventDisconnect, codec: c.config.Codec})
}

func (c *Conn) readLoop(link Link) error {
	for {
		frame, err := link.ReadFrame()
		if err != nil {
			return err
		}
		name, data, err := c.config.Codec.DecodeEnvelope(frame)
		if err != nil {
			c.logger.Warn("dropping malformed frame", "error", err)
			continue
		}
		if name == schema.EventConnect || name == schema.EventDisconnect {
			c.logger.Warn("dropping frame with reserved event name", "event", name)
			continue
		}
		if !c.enqueue(Event{Name: name, data: data, codec: c.config.Codec}) {
			return c.ctx.Err()
		}
	}
}

func (c *Conn) enqueue(event Event) bool {
	select {
	case c.inbound <- event:
		return true
	case <-c.ctx.Done():
		return false
	}
}

func (c *Conn) dispatch() {
	for {
		select {
		case <-c.ctx.Done():
			return
		case event := <-c.inbound:
			c.deliver(event)
		}
	}
}

func (c *Conn) deliver(event Event) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	subscribers := slices.Clone(c.handlers[event.Name])
	c.mu.Unlock()

	for _, sub := range subscribers {
		if sub.active.Load() {
			sub.handler(event)
		}
	}
}

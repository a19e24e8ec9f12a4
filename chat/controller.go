// Copyright 2026 The Tripmate Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tripmate-app/tripmate/lib/clock"
	"github.com/tripmate-app/tripmate/lib/schema"
	"github.com/tripmate-app/tripmate/socket"
)

// Socket is the real-time surface a Controller needs. *socket.Conn
// implements it.
type Socket interface {
	Subscribe(event string, handler socket.Handler) (unsubscribe func())
	Emit(event string, payload any) error
	Connected() bool
}

// Config configures a [Controller].
type Config struct {
	// Self is the signed-in user. Required.
	Self schema.Participant

	// Peer is the other participant. Required.
	Peer schema.Participant

	// MatchID, if set, is sent with every message.
	MatchID string

	// Socket is the session's connection. Nil means there is no
	// connection handle: the conversation is read-only and Send does
	// nothing.
	Socket Socket

	// History loads and acknowledges messages. Required.
	History History

	// TypingDebounce is the quiet period before "stopped typing" is
	// sent. Zero uses DefaultTypingDebounce.
	TypingDebounce time.Duration

	// PeerTypingTimeout clears the peer's typing indicator when no
	// "stopped typing" arrives. Zero uses DefaultPeerTypingTimeout;
	// negative disables expiry.
	PeerTypingTimeout time.Duration

	// ReconcileEcho replaces optimistic entries with the server's
	// echo. See StoreConfig.ReconcileEcho.
	ReconcileEcho bool

	Clock    clock.Clock
	Notifier Notifier
	Logger   *slog.Logger

	// NewNonce generates client nonces for sends. Nil uses random
	// UUIDs.
	NewNonce func() string
}

// Controller drives one open conversation. Safe for concurrent use.
type Controller struct {
	self              schema.Participant
	peer              schema.Participant
	matchID           string
	socket            Socket
	store             *Store
	typing            *TypingDebouncer
	peerTypingTimeout time.Duration
	clock             clock.Clock
	notifier          Notifier
	logger            *slog.Logger
	newNonce          func() string

	subscriptions socket.Subscriptions
	changes       chan struct{}

	mu              sync.Mutex
	draft           string
	peerTyping      bool
	peerTypingTimer *clock.Timer
	opened          bool
	closed          bool
}

// NewController creates a Controller and its Store. Call Open to start
// receiving events and load history.
func NewController(config Config) (*Controller, error) {
	if config.Peer.ID == "" {
		return nil, fmt.Errorf("chat: Peer.ID is required")
	}
	if config.Peer.ID == config.Self.ID {
		return nil, fmt.Errorf("chat: cannot open a conversation with yourself")
	}
	if config.Clock == nil {
		config.Clock = clock.Real()
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	if config.Notifier == nil {
		config.Notifier = LogNotifier(config.Logger)
	}
	if config.NewNonce == nil {
		config.NewNonce = uuid.NewString
	}
	if config.PeerTypingTimeout == 0 {
		config.PeerTypingTimeout = DefaultPeerTypingTimeout
	}

	controller := &Controller{
		self:              config.Self,
		peer:              config.Peer,
		matchID:           config.MatchID,
		socket:            config.Socket,
		peerTypingTimeout: config.PeerTypingTimeout,
		clock:             config.Clock,
		notifier:          config.Notifier,
		logger:            config.Logger.With("peer_id", config.Peer.ID),
		newNonce:          config.NewNonce,
		changes:           make(chan struct{}, 1),
	}

	store, err := NewStore(StoreConfig{
		Self:          config.Self,
		PeerID:        config.Peer.ID,
		History:       config.History,
		ReconcileEcho: config.ReconcileEcho,
		Clock:         config.Clock,
		Notifier:      config.Notifier,
		Logger:        config.Logger,
		OnChange:      controller.changed,
	})
	if err != nil {
		return nil, err
	}
	controller.store = store
	controller.typing = NewTypingDebouncer(config.Clock, config.TypingDebounce, controller.emitTyping)
	return controller, nil
}

// Open subscribes to the peer's events, announces the user with join,
// and loads the history. The returned error is the history failure,
// already reported to the user; the conversation stays usable for
// live events.
func (c *Controller) Open(ctx context.Context) error {
	c.mu.Lock()
	if c.opened || c.closed {
		c.mu.Unlock()
		return fmt.Errorf("chat: controller already opened")
	}
	c.opened = true
	c.mu.Unlock()

	if c.socket != nil {
		c.subscriptions.Add(c.socket.Subscribe(schema.EventNewMessage, c.handleNewMessage))
		c.subscriptions.Add(c.socket.Subscribe(schema.EventUserTyping, c.handleUserTyping))
		c.subscriptions.Add(c.socket.Subscribe(schema.EventConnect, c.handleConnect))
		c.subscriptions.Add(c.socket.Subscribe(schema.EventDisconnect, c.handleDisconnect))
		c.join()
	}
	return c.store.LoadHistory(ctx)
}

// Close releases subscriptions, signals "stopped typing" if the user
// was mid-typing, cancels timers, and discards the Store. Idempotent.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.peerTypingTimer != nil {
		c.peerTypingTimer.Stop()
		c.peerTypingTimer = nil
	}
	c.mu.Unlock()

	c.subscriptions.Release()
	c.typing.Stop()
	c.store.Close()
}

// Changes delivers a value after state changes. Notifications are
// coalesced: a slow reader sees one pending value, not one per change.
func (c *Controller) Changes() <-chan struct{} { return c.changes }

// Self returns the signed-in user.
func (c *Controller) Self() schema.Participant { return c.self }

// Peer returns the other participant.
func (c *Controller) Peer() schema.Participant { return c.peer }

// Messages returns a snapshot of the conversation.
func (c *Controller) Messages() []schema.Message { return c.store.Messages() }

// Groups returns the conversation bucketed by day relative to now.
func (c *Controller) Groups() []DayGroup {
	return GroupByDay(c.store.Messages(), c.clock.Now())
}

// Loading reports whether the initial history fetch is in progress.
func (c *Controller) Loading() bool { return c.store.Loading() }

// Connected reports whether the real-time connection is up.
func (c *Controller) Connected() bool {
	return c.socket != nil && c.socket.Connected()
}

// Draft returns the compose input.
func (c *Controller) Draft() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.draft
}

// PeerTyping reports whether the peer is currently typing.
func (c *Controller) PeerTyping() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.peerTyping
}

// Receipt returns the delivery state of message.
func (c *Controller) Receipt(message schema.Message) Receipt {
	return ReceiptFor(message, c.self.ID)
}

// SetDraft records a keystroke in the compose input and signals typing
// to the peer.
func (c *Controller) SetDraft(text string) {
	c.mu.Lock()
	if c.closed || text == c.draft {
		c.mu.Unlock()
		return
	}
	c.draft = text
	c.mu.Unlock()

	if c.socket != nil {
		c.typing.Keystroke()
	}
	c.changed()
}

// Send dispatches the draft. An empty (after trimming) draft is
// rejected without any change. Otherwise the draft is cleared, an
// optimistic entry is appended, and send_message is emitted. If the
// connection is down the entry stays, marked as sending; any other
// emit failure removes it again and notifies the user. Reports
// whether an entry was appended and kept. A closed connection counts
// as down.
func (c *Controller) Send() bool {
	if c.socket == nil {
		return false
	}

	c.mu.Lock()
	content := strings.TrimSpace(c.draft)
	if c.closed || content == "" {
		c.mu.Unlock()
		return false
	}
	c.draft = ""
	c.mu.Unlock()

	request := schema.SendRequest{
		ReceiverID:  c.peer.ID,
		Content:     content,
		MatchID:     c.matchID,
		ClientNonce: c.newNonce(),
	}
	message := c.store.AppendOptimistic(request)

	err := c.socket.Emit(schema.EventSendMessage, request)
	switch {
	case err == nil:
		c.logger.Debug("message sent", "message_id", message.ID)
	case errors.Is(err, socket.ErrNotConnected), errors.Is(err, socket.ErrClosed):
		c.logger.Debug("socket down, message left pending", "message_id", message.ID)
	default:
		c.logger.Debug("send failed", "message_id", message.ID, "error", err)
		c.store.Rollback(message.ID)
		c.notifier.Notify("Failed to send message")
		return false
	}
	return true
}

func (c *Controller) join() {
	err := c.socket.Emit(schema.EventJoin, c.self.ID)
	switch {
	case err == nil:
		c.logger.Debug("joined", "user_id", c.self.ID)
	case errors.Is(err, socket.ErrNotConnected), errors.Is(err, socket.ErrClosed):
		// Join is repeated on the next connect event.
	default:
		c.logger.Warn("join failed", "error", err)
	}
}

func (c *Controller) emitTyping(isTyping bool) {
	err := c.socket.Emit(schema.EventTyping, schema.TypingRequest{ReceiverID: c.peer.ID, IsTyping: isTyping})
	if err != nil && !errors.Is(err, socket.ErrNotConnected) && !errors.Is(err, socket.ErrClosed) {
		c.logger.Debug("typing signal failed", "error", err)
	}
}

func (c *Controller) handleNewMessage(event socket.Event) {
	var message schema.Message
	if err := event.Decode(&message); err != nil {
		c.logger.Warn("dropping undecodable message", "error", err)
		return
	}
	if message.SenderID == c.peer.ID {
		c.setPeerTyping(false)
	}
	c.store.AppendIncoming(message)
}

func (c *Controller) handleUserTyping(event socket.Event) {
	var signal schema.TypingSignal
	if err := event.Decode(&signal); err != nil {
		c.logger.Warn("dropping undecodable typing signal", "error", err)
		return
	}
	if signal.UserID != c.peer.ID {
		return
	}
	c.setPeerTyping(signal.IsTyping)
}

func (c *Controller) handleConnect(socket.Event) {
	c.join()
	c.changed()
}

func (c *Controller) handleDisconnect(socket.Event) {
	c.changed()
}

// setPeerTyping records the peer's typing state. While typing, an
// expiry timer clears the state if no further signal arrives.
func (c *Controller) setPeerTyping(typing bool) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	if c.peerTypingTimer != nil {
		c.peerTypingTimer.Stop()
		c.peerTypingTimer = nil
	}
	changed := c.peerTyping != typing
	c.peerTyping = typing
	if typing && c.peerTypingTimeout > 0 {
		var timer *clock.Timer
		timer = c.clock.AfterFunc(c.peerTypingTimeout, func() {
			c.mu.Lock()
			if c.peerTypingTimer != timer || c.closed {
				c.mu.Unlock()
				return
			}
			c.peerTyping = false
			c.peerTypingTimer = nil
			c.mu.Unlock()
			c.changed()
		})
		c.peerTypingTimer = timer
	}
	c.mu.Unlock()

	if changed {
		c.changed()
	}
}

func (c *Controller) changed() {
	select {
	case c.changes <- struct{}{}:
	default:
	}
}

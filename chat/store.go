// Copyright 2026 The Tripmate Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/tripmate-app/tripmate/lib/clock"
	"github.com/tripmate-app/tripmate/lib/schema"
)

// History is the REST surface a Store needs. *messaging.Session
// implements it.
type History interface {
	Conversation(ctx context.Context, otherUserID string) ([]schema.Message, error)
	MarkAsRead(ctx context.Context, messageIDs []string) error
}

// StoreConfig configures a [Store].
type StoreConfig struct {
	// Self is the signed-in user. Required.
	Self schema.Participant

	// PeerID is the other participant. Required.
	PeerID string

	// History loads and acknowledges messages. Required.
	History History

	// ReconcileEcho replaces an optimistic entry with the incoming
	// message carrying the same client nonce. When false the server's
	// copy is appended and the optimistic entry stays.
	ReconcileEcho bool

	// Clock stamps optimistic messages. Nil uses the wall clock.
	Clock clock.Clock

	// Notifier receives user-facing failure notices. Nil logs them at
	// warn level.
	Notifier Notifier

	// Logger is used for diagnostics. Nil uses slog.Default().
	Logger *slog.Logger

	// OnChange, if set, is called after every change to the message
	// list or loading state. It runs without the Store's lock held.
	OnChange func()
}

// Store is the message list of one conversation. Safe for concurrent
// use.
type Store struct {
	self          schema.Participant
	peerID        string
	history       History
	reconcileEcho bool
	clock         clock.Clock
	notifier      Notifier
	logger        *slog.Logger
	onChange      func()

	// ctx bounds background mark-as-read calls; canceled by Close.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	messages []schema.Message
	loading  bool
	closed   bool
	sequence uint64
}

// NewStore creates an empty Store for one peer.
func NewStore(config StoreConfig) (*Store, error) {
	if config.Self.ID == "" {
		return nil, fmt.Errorf("chat: Self.ID is required")
	}
	if config.PeerID == "" {
		return nil, fmt.Errorf("chat: PeerID is required")
	}
	if config.History == nil {
		return nil, fmt.Errorf("chat: History is required")
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

	ctx, cancel := context.WithCancel(context.Background())
	return &Store{
		self:          config.Self,
		peerID:        config.PeerID,
		history:       config.History,
		reconcileEcho: config.ReconcileEcho,
		clock:         config.Clock,
		notifier:      config.Notifier,
		logger:        config.Logger.With("peer_id", config.PeerID),
		onChange:      config.OnChange,
		ctx:           ctx,
		cancel:        cancel,
	}, nil
}

// PeerID returns the other participant's id.
func (s *Store) PeerID() string { return s.peerID }

// Messages returns a snapshot of the message list, oldest first.
func (s *Store) Messages() []schema.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.messages)
}

// Loading reports whether the initial history fetch is in progress.
func (s *Store) Loading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// LoadHistory fetches the conversation and replaces the list with it.
// Entries added while the fetch was in flight that the server did not
// return (optimistic sends, live events) are kept after the history.
//
// Inbound unread messages in the result are then acknowledged with a
// single mark-as-read call, and their read flags flip once the server
// confirms. On fetch failure the user is notified, the list is left
// as it was, and nothing is retried. A result that arrives after Close
// is discarded.
func (s *Store) LoadHistory(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.loading = true
	s.mu.Unlock()
	s.changed()

	fetched, err := s.history.Conversation(ctx, s.peerID)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.loading = false
	if err != nil {
		s.mu.Unlock()
		s.logger.Debug("loading conversation failed", "error", err)
		s.notifier.Notify("Failed to load messages")
		s.changed()
		return fmt.Errorf("chat: loading conversation with %s: %w", s.peerID, err)
	}

	known := make(map[string]bool, len(fetched))
	for _, message := range fetched {
		known[message.ID] = true
	}
	merged := slices.Clone(fetched)
	for _, message := range s.messages {
		if !known[message.ID] {
			merged = append(merged, message)
		}
	}
	s.messages = merged

	var unread []string
	for _, message := range fetched {
		if message.SenderID == s.peerID && !message.Read {
			unread = append(unread, message.ID)
		}
	}
	if len(unread) > 0 {
		s.wg.Add(1)
	}
	s.mu.Unlock()
	s.changed()

	s.logger.Debug("conversation loaded", "messages", len(fetched), "unread", len(unread))
	if len(unread) == 0 {
		return nil
	}
	defer s.wg.Done()

	// The acknowledgement ends with either the caller's context or Close.
	ackCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	s.markRead(ackCtx, unread)
	return nil
}

// AppendIncoming adds a message delivered by the socket. Messages
// between other participants are ignored, since the connection carries
// events for every conversation. There is no de-duplication: unless
// echo reconciliation matches an optimistic entry, the message is
// appended. A message from the peer is acknowledged in the background.
func (s *Store) AppendIncoming(message schema.Message) {
	if !s.belongs(message) {
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	replaced := false
	if s.reconcileEcho && message.ClientNonce != "" && message.SenderID == s.self.ID {
		for index := range s.messages {
			if s.messages[index].IsTemporary() && s.messages[index].ClientNonce == message.ClientNonce {
				s.messages[index] = message
				replaced = true
				break
			}
		}
	}
	if !replaced {
		s.messages = append(s.messages, message)
	}
	acknowledge := message.SenderID == s.peerID && !message.Read
	if acknowledge {
		s.wg.Add(1)
	}
	s.mu.Unlock()
	s.changed()

	if acknowledge {
		go func() {
			defer s.wg.Done()
			s.markRead(s.ctx, []string{message.ID})
		}()
	}
}

// AppendOptimistic adds a local, not yet acknowledged message for
// request at the tail and returns it. The message carries a temporary
// id and the current time.
func (s *Store) AppendOptimistic(request schema.SendRequest) schema.Message {
	now := s.clock.Now()

	s.mu.Lock()
	s.sequence++
	message := schema.Message{
		ID:          fmt.Sprintf("%s%d-%d", schema.TempIDPrefix, now.UnixMilli(), s.sequence),
		Content:     request.Content,
		SenderID:    s.self.ID,
		ReceiverID:  s.peerID,
		CreatedAt:   now,
		Sender:      s.self,
		MatchID:     request.MatchID,
		ClientNonce: request.ClientNonce,
	}
	if !s.closed {
		s.messages = append(s.messages, message)
	}
	s.mu.Unlock()
	s.changed()
	return message
}

// Rollback removes the optimistic entry tempID after its send failed.
// Reports whether an entry was removed. Persisted messages are never
// removed.
func (s *Store) Rollback(tempID string) bool {
	s.mu.Lock()
	index := slices.IndexFunc(s.messages, func(message schema.Message) bool {
		return message.ID == tempID && message.IsTemporary()
	})
	if index >= 0 {
		s.messages = slices.Delete(s.messages, index, index+1)
	}
	s.mu.Unlock()
	if index < 0 {
		return false
	}
	s.changed()
	return true
}

// Close discards the Store. In-flight requests are canceled and their
// results ignored. Close waits for every mark-as-read call, from
// LoadHistory or from incoming messages, to return.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.cancel()
	s.wg.Wait()
}

// markRead acknowledges ids and flips their read flags once the server
// confirms.
func (s *Store) markRead(ctx context.Context, ids []string) {
	if err := s.history.MarkAsRead(ctx, ids); err != nil {
		if ctx.Err() == nil {
			s.logger.Warn("marking messages read failed", "count", len(ids), "error", err)
		}
		return
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	flipped := 0
	for index := range s.messages {
		if !s.messages[index].Read && slices.Contains(ids, s.messages[index].ID) {
			s.messages[index].Read = true
			flipped++
		}
	}
	s.mu.Unlock()
	if flipped > 0 {
		s.changed()
	}
}

func (s *Store) belongs(message schema.Message) bool {
	return (message.SenderID == s.self.ID && message.ReceiverID == s.peerID) ||
		(message.SenderID == s.peerID && message.ReceiverID == s.self.ID)
}

func (s *Store) changed() {
	if s.onChange != nil {
		s.onChange()
	}
}

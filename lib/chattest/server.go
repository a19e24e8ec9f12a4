// Copyright 2026 The Tripmate Authors
// SPDX-License-Identifier: Apache-2.0

package chattest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/tripmate-app/tripmate/lib/codec"
	"github.com/tripmate-app/tripmate/lib/schema"
)

// Route names a REST endpoint for failure injection.
type Route string

const (
	RouteMe            Route = "me"
	RouteConversations Route = "conversations"
	RouteConversation  Route = "conversation"
	RouteMarkRead      Route = "mark-read"
)

// ReceivedEvent is one envelope a client sent over the socket.
type ReceivedEvent struct {
	// UserID is the authenticated sender.
	UserID string
	Event  string
	Data   []byte
}

// Decode unmarshals the payload with the server's codec.
func (e ReceivedEvent) Decode(wire codec.Codec, v any) error {
	return wire.Unmarshal(e.Data, v)
}

// Option configures a Server.
type Option func(*Server)

// WithCodec selects the socket wire format. The default is JSON.
func WithCodec(wire codec.Codec) Option {
	return func(s *Server) { s.codec = wire }
}

// WithEchoNonce makes persisted messages carry the sender's client
// nonce back in new_message.
func WithEchoNonce() Option {
	return func(s *Server) { s.echoNonce = true }
}

// WithClock sets the timestamp source for persisted messages.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.now = now }
}

type contextKey struct{}

// Server is a fake chat backend. Safe for concurrent use.
type Server struct {
	// URL is the REST base URL.
	URL string

	// SocketURL is the ws:// endpoint.
	SocketURL string

	httpServer *httptest.Server
	upgrader   websocket.Upgrader
	codec      codec.Codec
	echoNonce  bool
	now        func() time.Time

	mu        sync.Mutex
	users     map[string]schema.User // token -> user
	messages  []schema.Message
	nextID    int
	markReads [][]string
	failures  map[Route]int
	clients   map[*socketClient]struct{}
	received  chan ReceivedEvent
}

// New starts a backend on a loopback port.
func New(options ...Option) *Server {
	server := &Server{
		upgrader: websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }},
		codec:    codec.JSON,
		now:      time.Now,
		users:    make(map[string]schema.User),
		failures: make(map[Route]int),
		clients:  make(map[*socketClient]struct{}),
		received: make(chan ReceivedEvent, 1024),
	}
	for _, option := range options {
		option(server)
	}

	router := mux.NewRouter()
	api := router.PathPrefix("/api").Subrouter()
	api.Use(server.authenticate)
	api.HandleFunc("/users/me", server.handleMe).Methods(http.MethodGet)
	api.HandleFunc("/messages/conversations", server.handleConversations).Methods(http.MethodGet)
	api.HandleFunc("/messages/conversation/{userID}", server.handleConversation).Methods(http.MethodGet)
	api.HandleFunc("/messages/mark-read", server.handleMarkRead).Methods(http.MethodPost)
	router.Handle("/socket", server.authenticate(http.HandlerFunc(server.handleSocket)))

	server.httpServer = httptest.NewServer(router)
	server.URL = server.httpServer.URL
	server.SocketURL = "ws" + strings.TrimPrefix(server.httpServer.URL, "http") + "/socket"
	return server
}

// Close disconnects every socket and stops the server.
func (s *Server) Close() {
	s.DropSockets()
	s.httpServer.Close()
}

// Codec returns the socket wire format.
func (s *Server) Codec() codec.Codec { return s.codec }

// AddUser registers token as a session for user.
func (s *Server) AddUser(token string, user schema.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[token] = user
}

// Seed appends persisted messages to the history. Messages without a
// sender snapshot get one from the registered users.
func (s *Server) Seed(messages ...schema.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, message := range messages {
		if message.Sender.ID == "" {
			message.Sender = s.participantLocked(message.SenderID)
		}
		s.messages = append(s.messages, message)
	}
}

// Messages returns a copy of the stored history.
func (s *Server) Messages() []schema.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.messages)
}

// MarkReadCalls returns the id batches received by mark-read, in
// arrival order.
func (s *Server) MarkReadCalls() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	calls := make([][]string, len(s.markReads))
	for index, batch := range s.markReads {
		calls[index] = slices.Clone(batch)
	}
	return calls
}

// FailNext makes the next request to route fail with status.
func (s *Server) FailNext(route Route, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[route] = status
}

// Received delivers every envelope clients send, in arrival order per
// connection. Envelopes are dropped when nobody drains the channel.
func (s *Server) Received() <-chan ReceivedEvent {
	return s.received
}

// WaitForEvent returns the next received envelope named event,
// discarding others.
func (s *Server) WaitForEvent(ctx context.Context, event string) (ReceivedEvent, error) {
	for {
		select {
		case received := <-s.received:
			if received.Event == event {
				return received, nil
			}
		case <-ctx.Done():
			return ReceivedEvent{}, fmt.Errorf("chattest: waiting for %s: %w", event, ctx.Err())
		}
	}
}

// Push sends an envelope to every socket joined as userID. Returns the
// number of sockets it was queued on.
func (s *Server) Push(userID, event string, payload any) (int, error) {
	frame, err := s.codec.EncodeEnvelope(event, payload)
	if err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.deliverLocked(userID, frame), nil
}

// Joined reports whether any socket has joined as userID.
func (s *Server) Joined(userID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for client := range s.clients {
		if client.joined == userID {
			return true
		}
	}
	return false
}

// DropSockets closes every open WebSocket connection.
func (s *Server) DropSockets() {
	s.mu.Lock()
	clients := make([]*socketClient, 0, len(s.clients))
	for client := range s.clients {
		clients = append(clients, client)
	}
	s.mu.Unlock()
	for _, client := range clients {
		client.conn.Close()
	}
}

func (s *Server) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		token, ok := strings.CutPrefix(request.Header.Get("Authorization"), "Bearer ")
		s.mu.Lock()
		user, known := s.users[token]
		s.mu.Unlock()
		if !ok || !known {
			writeError(writer, http.StatusUnauthorized, "UNAUTHORIZED", "invalid or missing session token")
			return
		}
		next.ServeHTTP(writer, request.WithContext(context.WithValue(request.Context(), contextKey{}, user)))
	})
}

func currentUser(request *http.Request) schema.User {
	user, _ := request.Context().Value(contextKey{}).(schema.User)
	return user
}

// injectedFailure consumes a pending failure for route.
func (s *Server) injectedFailure(writer http.ResponseWriter, route Route) bool {
	s.mu.Lock()
	status, ok := s.failures[route]
	delete(s.failures, route)
	s.mu.Unlock()
	if !ok {
		return false
	}
	writeError(writer, status, "INJECTED", fmt.Sprintf("injected %s failure", route))
	return true
}

func (s *Server) handleMe(writer http.ResponseWriter, request *http.Request) {
	if s.injectedFailure(writer, RouteMe) {
		return
	}
	writeJSON(writer, http.StatusOK, map[string]any{"user": currentUser(request)})
}

func (s *Server) handleConversation(writer http.ResponseWriter, request *http.Request) {
	if s.injectedFailure(writer, RouteConversation) {
		return
	}
	me := currentUser(request).ID
	other := mux.Vars(request)["userID"]

	s.mu.Lock()
	history := []schema.Message{}
	for _, message := range s.messages {
		if isBetween(message, me, other) {
			history = append(history, message)
		}
	}
	s.mu.Unlock()

	writeJSON(writer, http.StatusOK, map[string]any{"messages": history})
}

func (s *Server) handleConversations(writer http.ResponseWriter, request *http.Request) {
	if s.injectedFailure(writer, RouteConversations) {
		return
	}
	me := currentUser(request).ID

	s.mu.Lock()
	byPeer := make(map[string]*schema.ConversationSummary)
	var order []string
	for index := range s.messages {
		message := s.messages[index]
		var peerID string
		switch me {
		case message.SenderID:
			peerID = message.ReceiverID
		case message.ReceiverID:
			peerID = message.SenderID
		default:
			continue
		}
		summary, ok := byPeer[peerID]
		if !ok {
			summary = &schema.ConversationSummary{Peer: s.participantLocked(peerID)}
			byPeer[peerID] = summary
			order = append(order, peerID)
		}
		summary.LastMessage = &message
		if message.MatchID != "" {
			summary.MatchID = message.MatchID
		}
		if message.ReceiverID == me && !message.Read {
			summary.UnreadCount++
		}
	}
	s.mu.Unlock()

	summaries := make([]schema.ConversationSummary, 0, len(order))
	for _, peerID := range order {
		summaries = append(summaries, *byPeer[peerID])
	}
	slices.SortStableFunc(summaries, func(a, b schema.ConversationSummary) int {
		return b.LastMessage.CreatedAt.Compare(a.LastMessage.CreatedAt)
	})
	writeJSON(writer, http.StatusOK, map[string]any{"conversations": summaries})
}

func (s *Server) handleMarkRead(writer http.ResponseWriter, request *http.Request) {
	if s.injectedFailure(writer, RouteMarkRead) {
		return
	}
	var body struct {
		MessageIDs []string `json:"messageIds"`
	}
	if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
		writeError(writer, http.StatusBadRequest, "BAD_REQUEST", "invalid JSON body")
		return
	}
	me := currentUser(request).ID

	s.mu.Lock()
	s.markReads = append(s.markReads, body.MessageIDs)
	for index := range s.messages {
		if s.messages[index].ReceiverID == me && slices.Contains(body.MessageIDs, s.messages[index].ID) {
			s.messages[index].Read = true
		}
	}
	s.mu.Unlock()

	writeJSON(writer, http.StatusOK, map[string]any{"updated": len(body.MessageIDs)})
}

func (s *Server) participantLocked(userID string) schema.Participant {
	for _, user := range s.users {
		if user.ID == userID {
			return user.Participant()
		}
	}
	return schema.Participant{ID: userID}
}

func isBetween(message schema.Message, a, b string) bool {
	return (message.SenderID == a && message.ReceiverID == b) ||
		(message.SenderID == b && message.ReceiverID == a)
}

func writeJSON(writer http.ResponseWriter, status int, value any) {
	writer.Header().Set("Content-Type", "application/json")
	writer.WriteHeader(status)
	json.NewEncoder(writer).Encode(value)
}

func writeError(writer http.ResponseWriter, status int, code, message string) {
	writeJSON(writer, status, map[string]string{"code": code, "message": message})
}

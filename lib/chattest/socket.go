// Copyright 2026 The Tripmate Authors
// SPDX-License-Identifier: Apache-2.0

package chattest

import (
	"fmt"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/tripmate-app/tripmate/lib/schema"
)

type socketClient struct {
	conn *websocket.Conn
	user schema.User
	send chan []byte

	// joined is the user id announced with join; guarded by Server.mu.
	joined string
}

func (s *Server) handleSocket(writer http.ResponseWriter, request *http.Request) {
	conn, err := s.upgrader.Upgrade(writer, request, nil)
	if err != nil {
		return
	}
	client := &socketClient{
		conn: conn,
		user: currentUser(request),
		send: make(chan []byte, 64),
	}

	s.mu.Lock()
	s.clients[client] = struct{}{}
	s.mu.Unlock()

	go client.writeLoop(s.codec.Binary())
	s.readLoop(client)

	s.mu.Lock()
	delete(s.clients, client)
	close(client.send)
	s.mu.Unlock()
}

func (c *socketClient) writeLoop(binary bool) {
	defer c.conn.Close()
	messageType := websocket.TextMessage
	if binary {
		messageType = websocket.BinaryMessage
	}
	for frame := range c.send {
		if err := c.conn.WriteMessage(messageType, frame); err != nil {
			return
		}
	}
}

func (s *Server) readLoop(client *socketClient) {
	defer client.conn.Close()
	client.conn.SetReadLimit(64 * 1024)
	for {
		_, frame, err := client.conn.ReadMessage()
		if err != nil {
			return
		}
		event, data, err := s.codec.DecodeEnvelope(frame)
		if err != nil {
			continue
		}

		s.apply(client, event, data)

		// Published after apply so a test that saw the event also sees
		// its effect.
		select {
		case s.received <- ReceivedEvent{UserID: client.user.ID, Event: event, Data: data}:
		default:
		}
	}
}

func (s *Server) apply(client *socketClient, event string, data []byte) {
	switch event {
	case schema.EventJoin:
		var userID string
		if err := s.codec.Unmarshal(data, &userID); err != nil || userID != client.user.ID {
			return
		}
		s.mu.Lock()
		client.joined = userID
		s.mu.Unlock()

	case schema.EventTyping:
		var request schema.TypingRequest
		if err := s.codec.Unmarshal(data, &request); err != nil {
			return
		}
		s.Push(request.ReceiverID, schema.EventUserTyping, schema.TypingSignal{
			UserID:   client.user.ID,
			IsTyping: request.IsTyping,
		})

	case schema.EventSendMessage:
		var request schema.SendRequest
		if err := s.codec.Unmarshal(data, &request); err != nil || request.Content == "" {
			return
		}
		s.persistAndBroadcast(client.user, request)
	}
}

func (s *Server) persistAndBroadcast(sender schema.User, request schema.SendRequest) {
	s.mu.Lock()
	s.nextID++
	message := schema.Message{
		ID:         fmt.Sprintf("m-%d", s.nextID),
		Content:    request.Content,
		SenderID:   sender.ID,
		ReceiverID: request.ReceiverID,
		CreatedAt:  s.now(),
		Sender:     sender.Participant(),
		MatchID:    request.MatchID,
	}
	if s.echoNonce {
		message.ClientNonce = request.ClientNonce
	}
	s.messages = append(s.messages, message)
	s.mu.Unlock()

	s.Push(sender.ID, schema.EventNewMessage, message)
	if request.ReceiverID != sender.ID {
		s.Push(request.ReceiverID, schema.EventNewMessage, message)
	}
}

// deliverLocked queues frame on every socket joined as userID. Slow
// sockets drop frames rather than block the caller.
func (s *Server) deliverLocked(userID string, frame []byte) int {
	delivered := 0
	for client := range s.clients {
		if client.joined != userID {
			continue
		}
		select {
		case client.send <- frame:
			delivered++
		default:
		}
	}
	return delivered
}

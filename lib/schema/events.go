// Copyright 2026 The Tripmate Authors
// SPDX-License-Identifier: Apache-2.0

package schema

// Socket event names.
const (
	// EventNewMessage (server to client) delivers a persisted
	// [Message] to both participants' sessions.
	EventNewMessage = "new_message"

	// EventUserTyping (server to client) relays a peer's
	// [TypingSignal].
	EventUserTyping = "user_typing"

	// EventJoin (client to server) carries the local user id so the
	// server routes messages to this session. Sent on every connect.
	EventJoin = "join"

	// EventTyping (client to server) carries a [TypingRequest].
	EventTyping = "typing"

	// EventSendMessage (client to server) carries a [SendRequest].
	EventSendMessage = "send_message"

	// EventConnect and EventDisconnect are raised locally by the
	// socket connection when the link comes up or drops. They never
	// appear on the wire.
	EventConnect    = "connect"
	EventDisconnect = "disconnect"
)

// TypingSignal is the payload of [EventUserTyping]. Ephemeral; the
// latest signal per peer wins.
type TypingSignal struct {
	UserID   string `json:"userId"`
	IsTyping bool   `json:"isTyping"`
}

// TypingRequest is the payload of [EventTyping].
type TypingRequest struct {
	ReceiverID string `json:"receiverId"`
	IsTyping   bool   `json:"isTyping"`
}

// SendRequest is the payload of [EventSendMessage].
type SendRequest struct {
	ReceiverID string `json:"receiverId"`
	Content    string `json:"content"`
	MatchID    string `json:"matchId,omitempty"`

	// ClientNonce correlates the send with the server's echo.
	// Backends that do not support echo reconciliation ignore it.
	ClientNonce string `json:"clientNonce,omitempty"`
}

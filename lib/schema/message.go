// Copyright 2026 The Tripmate Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"strings"
	"time"
)

// TempIDPrefix marks client-assigned ids of optimistic messages that
// the server has not acknowledged.
const TempIDPrefix = "temp-"

// Message is one chat message between two participants.
type Message struct {
	// ID is server-assigned for persisted messages, or a
	// TempIDPrefix id for optimistic entries.
	ID string `json:"id"`

	Content    string    `json:"content"`
	SenderID   string    `json:"senderId"`
	ReceiverID string    `json:"receiverId"`
	CreatedAt  time.Time `json:"createdAt"`

	// Read becomes true once the receiver has fetched the message. It
	// never goes back to false.
	Read bool `json:"read"`

	// Sender is a denormalized snapshot for rendering.
	Sender Participant `json:"sender"`

	MatchID     string `json:"matchId,omitempty"`
	ClientNonce string `json:"clientNonce,omitempty"`
}

// IsTemporary reports whether the message is an unacknowledged
// optimistic entry.
func (m Message) IsTemporary() bool {
	return strings.HasPrefix(m.ID, TempIDPrefix)
}

// Participant is the identity snapshot carried with a message.
type Participant struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Avatar string `json:"avatar,omitempty"`
}

// User is the authenticated user's profile as returned by the API.
type User struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	Avatar     string `json:"profileImage,omitempty"`
	IsPremium  bool   `json:"isPremium,omitempty"`
	IsVerified bool   `json:"isVerified,omitempty"`
}

// Participant returns the snapshot used as a message sender.
func (u User) Participant() Participant {
	return Participant{ID: u.ID, Name: u.Name, Avatar: u.Avatar}
}

// ConversationSummary is one row of the conversation list.
type ConversationSummary struct {
	Peer        Participant `json:"otherUser"`
	LastMessage *Message    `json:"lastMessage,omitempty"`
	UnreadCount int         `json:"unreadCount"`
	MatchID     string      `json:"matchId,omitempty"`
}

// Copyright 2026 The Tripmate Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/tripmate-app/tripmate/lib/schema"
	"github.com/tripmate-app/tripmate/lib/secret"
)

// Session is an authenticated view of the API. Sessions are cheap and
// safe for concurrent use.
type Session struct {
	client *Client
	token  *secret.Token
}

// conversationResponse is the body of GET /api/messages/conversation/{id}.
type conversationResponse struct {
	Messages []schema.Message `json:"messages"`
}

type conversationsResponse struct {
	Conversations []schema.ConversationSummary `json:"conversations"`
}

type markReadRequest struct {
	MessageIDs []string `json:"messageIds"`
}

type meResponse struct {
	User schema.User `json:"user"`
}

// Me returns the signed-in user's profile.
func (s *Session) Me(ctx context.Context) (schema.User, error) {
	body, err := s.client.doRequest(ctx, http.MethodGet, "/api/users/me", s.token, nil)
	if err != nil {
		return schema.User{}, fmt.Errorf("messaging: fetching profile: %w", err)
	}
	var response meResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return schema.User{}, fmt.Errorf("messaging: failed to parse profile response: %w", err)
	}
	if response.User.ID == "" {
		return schema.User{}, fmt.Errorf("messaging: profile response has no user id")
	}
	return response.User, nil
}

// Conversation returns the full message history with otherUserID,
// oldest first as the server orders it.
func (s *Session) Conversation(ctx context.Context, otherUserID string) ([]schema.Message, error) {
	if otherUserID == "" {
		return nil, fmt.Errorf("messaging: otherUserID is required")
	}
	path := "/api/messages/conversation/" + url.PathEscape(otherUserID)
	body, err := s.client.doRequest(ctx, http.MethodGet, path, s.token, nil)
	if err != nil {
		return nil, fmt.Errorf("messaging: fetching conversation with %s: %w", otherUserID, err)
	}
	var response conversationResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("messaging: failed to parse conversation response: %w", err)
	}
	return response.Messages, nil
}

// MarkAsRead acknowledges messageIDs as read by the current user. An
// empty batch is a no-op that sends nothing.
func (s *Session) MarkAsRead(ctx context.Context, messageIDs []string) error {
	if len(messageIDs) == 0 {
		return nil
	}
	_, err := s.client.doRequest(ctx, http.MethodPost, "/api/messages/mark-read", s.token, markReadRequest{MessageIDs: messageIDs})
	if err != nil {
		return fmt.Errorf("messaging: marking %d messages read: %w", len(messageIDs), err)
	}
	return nil
}

// Conversations lists the current user's conversations, most recent
// first.
func (s *Session) Conversations(ctx context.Context) ([]schema.ConversationSummary, error) {
	body, err := s.client.doRequest(ctx, http.MethodGet, "/api/messages/conversations", s.token, nil)
	if err != nil {
		return nil, fmt.Errorf("messaging: listing conversations: %w", err)
	}
	var response conversationsResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("messaging: failed to parse conversations response: %w", err)
	}
	return response.Conversations, nil
}

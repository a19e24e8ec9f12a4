// Copyright 2026 The Tripmate Authors
// SPDX-License-Identifier: Apache-2.0

package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/tripmate-app/tripmate/lib/schema"
	"github.com/tripmate-app/tripmate/lib/secret"
)

// testToken creates a secret.Token for testing. The token is closed
// when the test completes.
func testToken(t *testing.T, value string) *secret.Token {
	t.Helper()
	token, err := secret.NewTokenString(value)
	if err != nil {
		t.Fatalf("creating test token: %v", err)
	}
	t.Cleanup(func() { token.Close() })
	return token
}

func testSession(t *testing.T, handler http.HandlerFunc) *Session {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := NewClient(ClientConfig{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("NewClient failed: %v", err)
	}
	return client.Session(testToken(t, "session-token"))
}

func TestNewClient(t *testing.T) {
	t.Run("valid URL", func(t *testing.T) {
		client, err := NewClient(ClientConfig{BaseURL: "http://localhost:5000/"})
		if err != nil {
			t.Fatalf("NewClient failed: %v", err)
		}
		if client.baseURL != "http://localhost:5000" {
			t.Errorf("baseURL = %q, want trailing slash trimmed", client.baseURL)
		}
	})

	t.Run("empty URL", func(t *testing.T) {
		if _, err := NewClient(ClientConfig{}); err == nil {
			t.Fatal("expected error for empty URL")
		}
	})

	t.Run("non-http scheme", func(t *testing.T) {
		if _, err := NewClient(ClientConfig{BaseURL: "ws://localhost:5000"}); err == nil {
			t.Fatal("expected error for ws:// base URL")
		}
	})
}

func TestConversation(t *testing.T) {
	session := testSession(t, func(writer http.ResponseWriter, request *http.Request) {
		if request.Method != http.MethodGet {
			t.Errorf("method = %s, want GET", request.Method)
		}
		if request.URL.Path != "/api/messages/conversation/u2" {
			t.Errorf("unexpected path: %s", request.URL.Path)
		}
		if got := request.Header.Get("Authorization"); got != "Bearer session-token" {
			t.Errorf("Authorization = %q", got)
		}
		writer.Header().Set("Content-Type", "application/json")
		json.NewEncoder(writer).Encode(map[string]any{
			"messages": []schema.Message{
				{ID: "m1", Content: "hi", SenderID: "u2", ReceiverID: "u1", CreatedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)},
				{ID: "m2", Content: "hello!", SenderID: "u1", ReceiverID: "u2", CreatedAt: time.Date(2026, 3, 1, 9, 1, 0, 0, time.UTC), Read: true},
			},
		})
	})

	messages, err := session.Conversation(context.Background(), "u2")
	if err != nil {
		t.Fatalf("Conversation failed: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("got %d messages, want 2", len(messages))
	}
	if messages[0].ID != "m1" || messages[1].ID != "m2" {
		t.Errorf("order = %s, %s", messages[0].ID, messages[1].ID)
	}
	if !messages[1].Read {
		t.Error("m2 should be read")
	}
}

func TestConversationRequiresPeer(t *testing.T) {
	session := testSession(t, func(http.ResponseWriter, *http.Request) {
		t.Error("no request expected")
	})
	if _, err := session.Conversation(context.Background(), ""); err == nil {
		t.Fatal("expected error for empty peer id")
	}
}

func TestMarkAsRead(t *testing.T) {
	var received []string
	calls := 0
	session := testSession(t, func(writer http.ResponseWriter, request *http.Request) {
		calls++
		if request.Method != http.MethodPost || request.URL.Path != "/api/messages/mark-read" {
			t.Errorf("unexpected request: %s %s", request.Method, request.URL.Path)
		}
		var body struct {
			MessageIDs []string `json:"messageIds"`
		}
		if err := json.NewDecoder(request.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}
		received = body.MessageIDs
		writer.WriteHeader(http.StatusNoContent)
	})

	if err := session.MarkAsRead(context.Background(), []string{"m1", "m3"}); err != nil {
		t.Fatalf("MarkAsRead failed: %v", err)
	}
	if len(received) != 2 || received[0] != "m1" || received[1] != "m3" {
		t.Errorf("received ids = %v", received)
	}

	if err := session.MarkAsRead(context.Background(), nil); err != nil {
		t.Fatalf("MarkAsRead(nil) failed: %v", err)
	}
	if calls != 1 {
		t.Errorf("empty batch should not hit the server; calls = %d", calls)
	}
}

func TestMe(t *testing.T) {
	session := testSession(t, func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path != "/api/users/me" {
			t.Errorf("unexpected path: %s", request.URL.Path)
		}
		json.NewEncoder(writer).Encode(map[string]any{
			"user": schema.User{ID: "u1", Name: "Sam", IsPremium: true},
		})
	})

	user, err := session.Me(context.Background())
	if err != nil {
		t.Fatalf("Me failed: %v", err)
	}
	if user.ID != "u1" || user.Name != "Sam" || !user.IsPremium {
		t.Errorf("user = %+v", user)
	}
	if participant := user.Participant(); participant.ID != "u1" || participant.Name != "Sam" {
		t.Errorf("participant = %+v", participant)
	}
}

func TestConversations(t *testing.T) {
	session := testSession(t, func(writer http.ResponseWriter, request *http.Request) {
		json.NewEncoder(writer).Encode(map[string]any{
			"conversations": []schema.ConversationSummary{
				{Peer: schema.Participant{ID: "u2", Name: "Alice"}, UnreadCount: 2, MatchID: "match-7"},
			},
		})
	})

	summaries, err := session.Conversations(context.Background())
	if err != nil {
		t.Fatalf("Conversations failed: %v", err)
	}
	if len(summaries) != 1 || summaries[0].Peer.Name != "Alice" || summaries[0].UnreadCount != 2 {
		t.Errorf("summaries = %+v", summaries)
	}
}

func TestAPIError(t *testing.T) {
	t.Run("structured body", func(t *testing.T) {
		session := testSession(t, func(writer http.ResponseWriter, request *http.Request) {
			writer.Header().Set("Content-Type", "application/json")
			writer.WriteHeader(http.StatusForbidden)
			json.NewEncoder(writer).Encode(map[string]string{
				"code":    "NOT_MATCHED",
				"message": "you can only message accepted matches",
			})
		})

		_, err := session.Conversation(context.Background(), "u9")
		if err == nil {
			t.Fatal("expected error")
		}
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected *APIError in chain, got %T: %v", err, err)
		}
		if apiErr.StatusCode != http.StatusForbidden || apiErr.Code != "NOT_MATCHED" {
			t.Errorf("apiErr = %+v", apiErr)
		}
		if !IsStatus(err, http.StatusForbidden) {
			t.Error("IsStatus(403) should be true")
		}
		if IsStatus(err, http.StatusNotFound) {
			t.Error("IsStatus(404) should be false")
		}
	})

	t.Run("plain text body", func(t *testing.T) {
		session := testSession(t, func(writer http.ResponseWriter, request *http.Request) {
			http.Error(writer, "upstream unavailable", http.StatusBadGateway)
		})

		err := session.MarkAsRead(context.Background(), []string{"m1"})
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			t.Fatalf("expected *APIError, got %v", err)
		}
		if apiErr.Message != "upstream unavailable" {
			t.Errorf("Message = %q", apiErr.Message)
		}
	})
}

func TestContextCancellation(t *testing.T) {
	session := testSession(t, func(writer http.ResponseWriter, request *http.Request) {
		<-request.Context().Done()
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := session.Conversation(ctx, "u2"); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

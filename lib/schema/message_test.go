// Copyright 2026 The Tripmate Authors
// SPDX-License-Identifier: Apache-2.0

package schema

import (
	"encoding/json"
	"testing"
	"time"
)

func TestMessageIsTemporary(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		{"temp-1772355600000-1", true},
		{"temp-", true},
		{"65f1c0de9a", false},
		{"", false},
		{"attempt-3", false},
	}
	for _, test := range tests {
		if got := (Message{ID: test.id}).IsTemporary(); got != test.want {
			t.Errorf("IsTemporary(%q) = %v, want %v", test.id, got, test.want)
		}
	}
}

func TestMessageWireShape(t *testing.T) {
	raw := `{
		"id": "m1",
		"content": "Meet at the station?",
		"senderId": "u2",
		"receiverId": "u1",
		"createdAt": "2026-03-01T09:30:00.000Z",
		"read": false,
		"sender": {"id": "u2", "name": "Alice", "avatar": "https://cdn.example/a.png"}
	}`

	var message Message
	if err := json.Unmarshal([]byte(raw), &message); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if message.SenderID != "u2" || message.ReceiverID != "u1" {
		t.Errorf("participants = %s -> %s", message.SenderID, message.ReceiverID)
	}
	if message.Sender.Name != "Alice" {
		t.Errorf("sender name = %q", message.Sender.Name)
	}
	want := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	if !message.CreatedAt.Equal(want) {
		t.Errorf("CreatedAt = %v, want %v", message.CreatedAt, want)
	}
}

// Copyright 2026 The Tripmate Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/tripmate-app/tripmate/lib/codec"
	"github.com/tripmate-app/tripmate/lib/schema"
	"github.com/tripmate-app/tripmate/socket"
)

var (
	epoch = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	alice = schema.Participant{ID: "u1", Name: "Alice"}
	bruno = schema.Participant{ID: "u2", Name: "Bruno"}
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeHistory is an in-memory History.
type fakeHistory struct {
	mu        sync.Mutex
	messages  []schema.Message
	fetchErr  error
	markErr   error
	markCalls [][]string

	// release, when set, blocks Conversation until closed.
	release chan struct{}

	// beforeMarkReturns runs inside MarkAsRead before it reports
	// success.
	beforeMarkReturns func(ids []string)

	// onMark sees the context of each MarkAsRead call.
	onMark func(ctx context.Context)
}

func (h *fakeHistory) Conversation(ctx context.Context, otherUserID string) ([]schema.Message, error) {
	if h.release != nil {
		select {
		case <-h.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.fetchErr != nil {
		return nil, h.fetchErr
	}
	return slices.Clone(h.messages), nil
}

func (h *fakeHistory) MarkAsRead(ctx context.Context, ids []string) error {
	h.mu.Lock()
	h.markCalls = append(h.markCalls, slices.Clone(ids))
	markErr := h.markErr
	hook := h.beforeMarkReturns
	onMark := h.onMark
	h.mu.Unlock()
	if onMark != nil {
		onMark(ctx)
	}
	if hook != nil {
		hook(ids)
	}
	return markErr
}

func (h *fakeHistory) calls() [][]string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return slices.Clone(h.markCalls)
}

type emission struct {
	event   string
	payload any
}

// fakeSocket records emits and delivers events synchronously on the
// calling goroutine.
type fakeSocket struct {
	mu           sync.Mutex
	connected    bool
	emitErr      error
	emitted      []emission
	handlers     map[string][]*fakeHandler
	unsubscribed int
}

type fakeHandler struct {
	handler socket.Handler
}

func newFakeSocket() *fakeSocket {
	return &fakeSocket{connected: true, handlers: make(map[string][]*fakeHandler)}
}

func (f *fakeSocket) Subscribe(event string, handler socket.Handler) func() {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry := &fakeHandler{handler: handler}
	f.handlers[event] = append(f.handlers[event], entry)
	var once sync.Once
	return func() {
		once.Do(func() {
			f.mu.Lock()
			defer f.mu.Unlock()
			f.unsubscribed++
			f.handlers[event] = slices.DeleteFunc(f.handlers[event], func(candidate *fakeHandler) bool {
				return candidate == entry
			})
		})
	}
}

func (f *fakeSocket) Emit(event string, payload any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.emitErr != nil {
		return f.emitErr
	}
	if !f.connected {
		return socket.ErrNotConnected
	}
	f.emitted = append(f.emitted, emission{event: event, payload: payload})
	return nil
}

func (f *fakeSocket) Connected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeSocket) setConnected(connected bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = connected
}

func (f *fakeSocket) deliver(t *testing.T, event string, payload any) {
	t.Helper()
	var data []byte
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("encoding %s payload: %v", event, err)
		}
		data = encoded
	}
	f.mu.Lock()
	handlers := slices.Clone(f.handlers[event])
	f.mu.Unlock()
	for _, entry := range handlers {
		entry.handler(socket.NewEvent(event, data, codec.JSON))
	}
}

func (f *fakeSocket) emissions(event string) []emission {
	f.mu.Lock()
	defer f.mu.Unlock()
	var matched []emission
	for _, entry := range f.emitted {
		if entry.event == event {
			matched = append(matched, entry)
		}
	}
	return matched
}

func (f *fakeSocket) typingSignals() []bool {
	var signals []bool
	for _, entry := range f.emissions(schema.EventTyping) {
		signals = append(signals, entry.payload.(schema.TypingRequest).IsTyping)
	}
	return signals
}

func (f *fakeSocket) handlerCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	count := 0
	for _, entries := range f.handlers {
		count += len(entries)
	}
	return count
}

// recordingNotifier collects notices.
type recordingNotifier struct {
	mu      sync.Mutex
	notices []string
}

func (r *recordingNotifier) Notify(message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, message)
}

func (r *recordingNotifier) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.notices)
}

// waitFor polls condition after every change notification until it
// holds or the timeout elapses.
func waitFor(t *testing.T, changes <-chan struct{}, condition func() bool, description string) {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for !condition() {
		select {
		case <-changes:
		case <-time.After(10 * time.Millisecond):
		case <-deadline:
			t.Fatalf("timed out waiting for %s", description)
		}
	}
}

// Copyright 2026 The Tripmate Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"testing"
	"time"

	"github.com/tripmate-app/tripmate/lib/clock"
	"github.com/tripmate-app/tripmate/lib/schema"
	"github.com/tripmate-app/tripmate/socket"
)

type controllerHarness struct {
	controller *Controller
	socket     *fakeSocket
	history    *fakeHistory
	clock      *clock.FakeClock
	notifier   *recordingNotifier
}

func newControllerHarness(t *testing.T, configure func(*Config)) *controllerHarness {
	t.Helper()
	h := &controllerHarness{
		socket:   newFakeSocket(),
		history:  &fakeHistory{},
		clock:    clock.Fake(epoch),
		notifier: &recordingNotifier{},
	}
	nonce := 0
	config := Config{
		Self:     alice,
		Peer:     bruno,
		Socket:   h.socket,
		History:  h.history,
		Clock:    h.clock,
		Notifier: h.notifier,
		Logger:   quietLogger(),
		NewNonce: func() string {
			nonce++
			return fmt.Sprintf("nonce-%d", nonce)
		},
	}
	if configure != nil {
		configure(&config)
	}
	controller, err := NewController(config)
	if err != nil {
		t.Fatalf("NewController: %v", err)
	}
	t.Cleanup(controller.Close)
	h.controller = controller
	return h
}

func (h *controllerHarness) open(t *testing.T) {
	t.Helper()
	if err := h.controller.Open(context.Background()); err != nil {
		t.Fatalf("Open: %v", err)
	}
}

func TestNewControllerValidates(t *testing.T) {
	history := &fakeHistory{}
	if _, err := NewController(Config{Self: alice, History: history}); err == nil {
		t.Error("missing peer should fail")
	}
	if _, err := NewController(Config{Self: alice, Peer: alice, History: history}); err == nil {
		t.Error("chatting with yourself should fail")
	}
	if _, err := NewController(Config{Peer: bruno, History: history}); err == nil {
		t.Error("missing current user should fail")
	}
}

func TestOpenSubscribesJoinsAndLoads(t *testing.T) {
	h := newControllerHarness(t, nil)
	h.history.messages = []schema.Message{{ID: "m1", SenderID: "u2", ReceiverID: "u1", Content: "hi", CreatedAt: epoch}}
	h.open(t)

	joins := h.socket.emissions(schema.EventJoin)
	if len(joins) != 1 || joins[0].payload != "u1" {
		t.Errorf("join emissions = %+v, want one with the user id", joins)
	}
	if got := ids(h.controller.Messages()); !slices.Equal(got, []string{"m1"}) {
		t.Errorf("messages = %v", got)
	}
	if h.socket.handlerCount() != 4 {
		t.Errorf("handlers = %d, want 4", h.socket.handlerCount())
	}
	if err := h.controller.Open(context.Background()); err == nil {
		t.Error("second Open should fail")
	}
}

func TestRejoinOnConnect(t *testing.T) {
	h := newControllerHarness(t, nil)
	h.open(t)

	h.socket.deliver(t, "connect", nil)
	if joins := h.socket.emissions(schema.EventJoin); len(joins) != 2 {
		t.Errorf("join emissions = %d, want a second join after reconnect", len(joins))
	}
}

func TestSendAppendsOptimisticAndEmits(t *testing.T) {
	h := newControllerHarness(t, func(config *Config) { config.MatchID = "match-7" })
	h.open(t)

	h.controller.SetDraft("  see you at the station  ")
	if !h.controller.Send() {
		t.Fatal("Send should keep the optimistic entry")
	}
	if h.controller.Draft() != "" {
		t.Errorf("draft = %q, want cleared", h.controller.Draft())
	}

	messages := h.controller.Messages()
	if len(messages) != 1 {
		t.Fatalf("messages = %d, want 1", len(messages))
	}
	optimistic := messages[0]
	if !optimistic.IsTemporary() || optimistic.Content != "see you at the station" || optimistic.Read {
		t.Errorf("optimistic entry = %+v", optimistic)
	}
	if h.controller.Receipt(optimistic) != ReceiptSending {
		t.Errorf("receipt = %v, want sending", h.controller.Receipt(optimistic))
	}

	sends := h.socket.emissions(schema.EventSendMessage)
	if len(sends) != 1 {
		t.Fatalf("send emissions = %d, want 1", len(sends))
	}
	want := schema.SendRequest{ReceiverID: "u2", Content: "see you at the station", MatchID: "match-7", ClientNonce: "nonce-1"}
	if got := sends[0].payload.(schema.SendRequest); got != want {
		t.Errorf("send payload = %+v, want %+v", got, want)
	}
}

func TestSendRejectsBlankDraft(t *testing.T) {
	h := newControllerHarness(t, nil)
	h.open(t)

	h.controller.SetDraft("   \n\t")
	if h.controller.Send() {
		t.Error("Send of a blank draft should be rejected")
	}
	if len(h.controller.Messages()) != 0 {
		t.Error("no entry may be appended for a blank draft")
	}
	if len(h.socket.emissions(schema.EventSendMessage)) != 0 {
		t.Error("no send_message may be emitted for a blank draft")
	}
	if h.controller.Draft() != "   \n\t" {
		t.Error("a rejected send must not clear the draft")
	}
}

func TestSendWhileDisconnectedKeepsPendingEntry(t *testing.T) {
	h := newControllerHarness(t, nil)
	h.open(t)
	h.socket.setConnected(false)

	h.controller.SetDraft("hello?")
	if !h.controller.Send() {
		t.Fatal("Send while disconnected should still keep the entry")
	}
	messages := h.controller.Messages()
	if len(messages) != 1 || h.controller.Receipt(messages[0]) != ReceiptSending {
		t.Errorf("messages = %+v, want one pending entry", messages)
	}
	if notices := h.notifier.all(); len(notices) != 0 {
		t.Errorf("notices = %v, a disconnected socket is a silent no-op", notices)
	}
}

func TestSendAfterConnectionClosedKeepsPendingEntry(t *testing.T) {
	h := newControllerHarness(t, nil)
	h.open(t)
	h.socket.emitErr = socket.ErrClosed

	h.controller.SetDraft("still there?")
	if !h.controller.Send() {
		t.Fatal("Send on a closed connection should keep the entry")
	}
	messages := h.controller.Messages()
	if len(messages) != 1 || h.controller.Receipt(messages[0]) != ReceiptSending {
		t.Errorf("messages = %+v, want one pending entry", messages)
	}
	if notices := h.notifier.all(); len(notices) != 0 {
		t.Errorf("notices = %v, a closed connection is a silent no-op", notices)
	}
}

func TestCloseWaitsForHistoryAcknowledgement(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	h := newControllerHarness(t, nil)
	h.history.messages = []schema.Message{{ID: "m1", SenderID: "u2", ReceiverID: "u1", Content: "unread"}}
	h.history.beforeMarkReturns = func([]string) {
		close(started)
		<-release
	}

	opened := make(chan error, 1)
	go func() { opened <- h.controller.Open(context.Background()) }()
	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("mark-as-read never started")
	}

	closed := make(chan struct{})
	go func() {
		h.controller.Close()
		close(closed)
	}()
	select {
	case <-closed:
		t.Fatal("Close returned while mark-as-read was still running")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)
	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatal("Close did not return after mark-as-read finished")
	}
	if err := <-opened; err != nil {
		t.Errorf("Open: %v", err)
	}
}

func TestSendFailureRollsBack(t *testing.T) {
	h := newControllerHarness(t, nil)
	h.open(t)
	h.socket.emitErr = errors.New("codec: encoding send_message payload: unsupported value")

	h.controller.SetDraft("hello")
	if h.controller.Send() {
		t.Error("a failed send should report false")
	}
	if len(h.controller.Messages()) != 0 {
		t.Error("the optimistic entry should be rolled back")
	}
	if notices := h.notifier.all(); len(notices) != 1 {
		t.Errorf("notices = %v, want one", notices)
	}
}

func TestSendWithoutSocketIsGuarded(t *testing.T) {
	h := newControllerHarness(t, func(config *Config) { config.Socket = nil })
	h.open(t)

	h.controller.SetDraft("hello")
	if h.controller.Send() {
		t.Error("Send without a connection handle should do nothing")
	}
	if h.controller.Draft() != "hello" || len(h.controller.Messages()) != 0 {
		t.Error("the guard must return before any state change")
	}
	if h.controller.Connected() {
		t.Error("Connected() = true without a socket")
	}
}

func TestTypingDebounceThroughController(t *testing.T) {
	h := newControllerHarness(t, nil)
	h.open(t)

	h.controller.SetDraft("s")
	h.clock.Advance(200 * time.Millisecond)
	h.controller.SetDraft("se")
	h.clock.Advance(200 * time.Millisecond)
	h.controller.SetDraft("see")

	h.clock.Advance(899 * time.Millisecond)
	if got := h.socket.typingSignals(); !slices.Equal(got, []bool{true, true, true}) {
		t.Fatalf("typing signals before the quiet period = %v", got)
	}
	h.clock.Advance(time.Millisecond)
	if got := h.socket.typingSignals(); !slices.Equal(got, []bool{true, true, true, false}) {
		t.Fatalf("typing signals at 1300ms = %v, want one trailing false", got)
	}
	for _, entry := range h.socket.emissions(schema.EventTyping) {
		if entry.payload.(schema.TypingRequest).ReceiverID != "u2" {
			t.Errorf("typing signal addressed to %q", entry.payload.(schema.TypingRequest).ReceiverID)
		}
	}
}

func TestPeerTyping(t *testing.T) {
	h := newControllerHarness(t, nil)
	h.open(t)

	h.socket.deliver(t, schema.EventUserTyping, schema.TypingSignal{UserID: "u3", IsTyping: true})
	if h.controller.PeerTyping() {
		t.Error("typing from another user must be ignored")
	}

	h.socket.deliver(t, schema.EventUserTyping, schema.TypingSignal{UserID: "u2", IsTyping: true})
	if !h.controller.PeerTyping() {
		t.Fatal("peer should be typing")
	}
	h.socket.deliver(t, schema.EventUserTyping, schema.TypingSignal{UserID: "u2", IsTyping: false})
	if h.controller.PeerTyping() {
		t.Fatal("explicit stop should clear typing")
	}

	h.socket.deliver(t, schema.EventUserTyping, schema.TypingSignal{UserID: "u2", IsTyping: true})
	h.clock.Advance(2 * time.Second)
	h.socket.deliver(t, schema.EventUserTyping, schema.TypingSignal{UserID: "u2", IsTyping: true})
	h.clock.Advance(2 * time.Second)
	if !h.controller.PeerTyping() {
		t.Fatal("a fresh signal should restart the expiry")
	}
	h.clock.Advance(time.Second)
	if h.controller.PeerTyping() {
		t.Error("typing should expire without a stop signal")
	}

	h.socket.deliver(t, schema.EventUserTyping, schema.TypingSignal{UserID: "u2", IsTyping: true})
	h.socket.deliver(t, schema.EventNewMessage, schema.Message{ID: "m1", SenderID: "u2", ReceiverID: "u1", Content: "hi"})
	if h.controller.PeerTyping() {
		t.Error("a message from the peer should clear typing")
	}
}

func TestIncomingMessagesFlowIntoStore(t *testing.T) {
	h := newControllerHarness(t, nil)
	h.open(t)

	h.controller.SetDraft("first")
	h.controller.Send()
	h.socket.deliver(t, schema.EventNewMessage, schema.Message{ID: "m1", SenderID: "u2", ReceiverID: "u1", Content: "reply", CreatedAt: epoch})
	h.socket.deliver(t, schema.EventNewMessage, schema.Message{ID: "m2", SenderID: "u9", ReceiverID: "u1", Content: "elsewhere", CreatedAt: epoch})

	messages := h.controller.Messages()
	if len(messages) != 2 || !messages[0].IsTemporary() || messages[1].ID != "m1" {
		t.Fatalf("messages = %v, want [pending m1]", ids(messages))
	}
	waitFor(t, h.controller.Changes(), func() bool {
		return len(h.history.calls()) == 1
	}, "acknowledgement of m1")

	groups := h.controller.Groups()
	if len(groups) != 1 || groups[0].Label != TodayLabel {
		t.Errorf("groups = %+v", groups)
	}
}

func TestCloseReleasesEverything(t *testing.T) {
	h := newControllerHarness(t, nil)
	h.open(t)
	h.controller.SetDraft("typing...")
	h.socket.deliver(t, schema.EventUserTyping, schema.TypingSignal{UserID: "u2", IsTyping: true})

	h.controller.Close()
	h.controller.Close()

	if h.socket.unsubscribed != 4 {
		t.Errorf("unsubscribed = %d, want each of 4 subscriptions released once", h.socket.unsubscribed)
	}
	if h.socket.handlerCount() != 0 {
		t.Errorf("%d handlers still registered", h.socket.handlerCount())
	}
	if got := h.socket.typingSignals(); !slices.Equal(got, []bool{true, false}) {
		t.Errorf("typing signals = %v, want a final false on close", got)
	}
	if h.clock.PendingCount() != 0 {
		t.Errorf("%d timers still pending after Close", h.clock.PendingCount())
	}

	h.controller.SetDraft("after close")
	if h.controller.Send() {
		t.Error("Send after Close should do nothing")
	}
}

func TestChangesCoalesce(t *testing.T) {
	h := newControllerHarness(t, nil)
	h.open(t)
	for range 10 {
		h.socket.deliver(t, schema.EventUserTyping, schema.TypingSignal{UserID: "u2", IsTyping: true})
		h.socket.deliver(t, schema.EventUserTyping, schema.TypingSignal{UserID: "u2", IsTyping: false})
	}
	<-h.controller.Changes()
	select {
	case <-h.controller.Changes():
		t.Error("changes should coalesce into one pending notification")
	default:
	}
}

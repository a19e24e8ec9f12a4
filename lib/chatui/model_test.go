// Copyright 2026 The Tripmate Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"log/slog"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/tripmate-app/tripmate/chat"
	"github.com/tripmate-app/tripmate/lib/schema"
	"github.com/tripmate-app/tripmate/lib/tui"
)

var (
	now   = time.Date(2026, 3, 1, 21, 30, 0, 0, time.UTC)
	alice = schema.Participant{ID: "u1", Name: "Alice"}
	bruno = schema.Participant{ID: "u2", Name: "Bruno"}
)

// fakeConversation is a scripted Conversation.
type fakeConversation struct {
	changes    chan struct{}
	messages   []schema.Message
	loading    bool
	connected  bool
	draft      string
	peerTyping bool
	sends      int
	drafts     []string
}

func newFakeConversation(messages ...schema.Message) *fakeConversation {
	return &fakeConversation{changes: make(chan struct{}, 1), messages: messages, connected: true}
}

func (f *fakeConversation) Changes() <-chan struct{} { return f.changes }
func (f *fakeConversation) Self() schema.Participant { return alice }
func (f *fakeConversation) Peer() schema.Participant { return bruno }
func (f *fakeConversation) Loading() bool            { return f.loading }
func (f *fakeConversation) Connected() bool          { return f.connected }
func (f *fakeConversation) Draft() string            { return f.draft }
func (f *fakeConversation) PeerTyping() bool         { return f.peerTyping }

func (f *fakeConversation) Groups() []chat.DayGroup {
	return chat.GroupByDay(f.messages, now)
}

func (f *fakeConversation) Receipt(message schema.Message) chat.Receipt {
	return chat.ReceiptFor(message, alice.ID)
}

func (f *fakeConversation) SetDraft(text string) {
	f.draft = text
	f.drafts = append(f.drafts, text)
}

func (f *fakeConversation) Send() bool {
	content := strings.TrimSpace(f.draft)
	if content == "" {
		return false
	}
	f.sends++
	f.draft = ""
	f.messages = append(f.messages, schema.Message{
		ID: "temp-1-1", SenderID: alice.ID, ReceiverID: bruno.ID, Content: content, CreatedAt: now,
	})
	return true
}

func sized(t *testing.T, conversation Conversation) Model {
	t.Helper()
	model := NewModel(conversation)
	model.SetLocation(time.UTC)
	updated, _ := model.Update(tea.WindowSizeMsg{Width: 60, Height: 24})
	return updated.(Model)
}

func update(t *testing.T, model Model, message tea.Msg) (Model, tea.Cmd) {
	t.Helper()
	updated, command := model.Update(message)
	return updated.(Model), command
}

func plain(model Model) string {
	return ansi.Strip(model.View())
}

func TestViewBeforeSize(t *testing.T) {
	model := NewModel(newFakeConversation())
	if model.View() != LoadingText {
		t.Errorf("View() = %q before the first resize", model.View())
	}
}

func TestViewShowsMessagesAndReceipts(t *testing.T) {
	conversation := newFakeConversation(
		schema.Message{ID: "m1", SenderID: "u2", ReceiverID: "u1", Content: "Meet at the hostel?", CreatedAt: time.Date(2026, 2, 28, 18, 0, 0, 0, time.UTC)},
		schema.Message{ID: "m2", SenderID: "u1", ReceiverID: "u2", Content: "Sure", Read: true, CreatedAt: now.Add(-time.Hour)},
		schema.Message{ID: "m3", SenderID: "u1", ReceiverID: "u2", Content: "On my way", CreatedAt: now.Add(-time.Minute)},
		schema.Message{ID: "temp-1-1", SenderID: "u1", ReceiverID: "u2", Content: "5 min", CreatedAt: now},
	)
	view := plain(sized(t, conversation))

	for _, want := range []string{"Bruno", "● online", "Feb 28, 2026", "Today", "Meet at the hostel?", "6:00 PM", "8:30 PM " + IconRead, "9:29 PM " + IconSent, "9:30 PM " + IconSending} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q:\n%s", want, view)
		}
	}
	if strings.Contains(view, "6:00 PM "+IconSent) {
		t.Error("messages from the peer carry no receipt")
	}
}

func TestOwnMessagesAlignRight(t *testing.T) {
	conversation := newFakeConversation(
		schema.Message{ID: "m1", SenderID: "u2", ReceiverID: "u1", Content: "left", CreatedAt: now},
		schema.Message{ID: "m2", SenderID: "u1", ReceiverID: "u2", Content: "right", CreatedAt: now},
	)
	for _, line := range strings.Split(plain(sized(t, conversation)), "\n") {
		if index := strings.Index(line, "left"); index >= 0 && index > 5 {
			t.Errorf("peer bubble not left-aligned: %q", line)
		}
		if index := strings.Index(line, "right"); index >= 0 && index < 30 {
			t.Errorf("own bubble not right-aligned: %q", line)
		}
	}
}

func TestLongMessagesWrap(t *testing.T) {
	content := strings.Repeat("train ", 30)
	conversation := newFakeConversation(schema.Message{ID: "m1", SenderID: "u2", ReceiverID: "u1", Content: content, CreatedAt: now})
	model := sized(t, conversation)
	for _, line := range strings.Split(model.View(), "\n") {
		if width := ansi.StringWidth(line); width > 60 {
			t.Errorf("line is %d columns wide, terminal is 60: %q", width, ansi.Strip(line))
		}
	}
}

func TestPlaceholders(t *testing.T) {
	conversation := newFakeConversation()
	conversation.loading = true
	if view := plain(sized(t, conversation)); !strings.Contains(view, LoadingText) {
		t.Errorf("loading view:\n%s", view)
	}
	conversation.loading = false
	if view := plain(sized(t, conversation)); !strings.Contains(view, EmptyText) {
		t.Errorf("empty view:\n%s", view)
	}
}

func TestPresenceAndTyping(t *testing.T) {
	conversation := newFakeConversation()
	conversation.connected = false
	conversation.peerTyping = true
	view := plain(sized(t, conversation))
	if !strings.Contains(view, "○ offline") {
		t.Errorf("expected offline indicator:\n%s", view)
	}
	if !strings.Contains(view, "Bruno is typing...") {
		t.Errorf("expected typing indicator:\n%s", view)
	}
}

func TestTypingUpdatesDraftAndEnterSends(t *testing.T) {
	conversation := newFakeConversation()
	model := sized(t, conversation)

	for _, character := range "hi" {
		model, _ = update(t, model, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{character}})
	}
	if conversation.draft != "hi" || len(conversation.drafts) != 2 {
		t.Fatalf("draft = %q after %v, want keystrokes forwarded", conversation.draft, conversation.drafts)
	}

	model, _ = update(t, model, tea.KeyMsg{Type: tea.KeyEnter})
	if conversation.sends != 1 {
		t.Fatalf("sends = %d, want 1", conversation.sends)
	}
	if model.input.Value() != "" {
		t.Errorf("input = %q, want cleared after send", model.input.Value())
	}
	if !strings.Contains(plain(model), "hi") {
		t.Error("the sent message should be visible")
	}
}

func TestQuit(t *testing.T) {
	model := sized(t, newFakeConversation())
	_, command := update(t, model, tea.KeyMsg{Type: tea.KeyEsc})
	if command == nil {
		t.Fatal("Esc should return a command")
	}
	if _, ok := command().(tea.QuitMsg); !ok {
		t.Error("Esc should quit")
	}
}

func TestChangeRerendersAndRelistens(t *testing.T) {
	conversation := newFakeConversation()
	model := sized(t, conversation)

	conversation.messages = append(conversation.messages, schema.Message{ID: "m1", SenderID: "u2", ReceiverID: "u1", Content: "new!", CreatedAt: now})
	model, command := update(t, model, changeMsg{})
	if !strings.Contains(plain(model), "new!") {
		t.Error("change should re-render the message list")
	}

	conversation.changes <- struct{}{}
	if _, ok := command().(changeMsg); !ok {
		t.Error("the returned command should wait for the next change")
	}
}

func TestNoticesFade(t *testing.T) {
	model := sized(t, newFakeConversation())

	model, _ = update(t, model, tui.NoticeMsg{Summary: "Failed to send message", Level: slog.LevelWarn})
	model, _ = update(t, model, tui.NoticeMsg{Summary: "Failed to load messages", Level: slog.LevelWarn})
	if view := plain(model); !strings.Contains(view, "Failed to load messages") {
		t.Fatalf("status bar should show the newest notice:\n%s", view)
	}

	model, _ = update(t, model, noticeFadeMsg{serial: 1})
	if !strings.Contains(plain(model), "Failed to load messages") {
		t.Error("an older fade must not clear a newer notice")
	}
	model, _ = update(t, model, noticeFadeMsg{serial: 2})
	if view := plain(model); strings.Contains(view, "Failed") || !strings.Contains(view, "Enter send") {
		t.Errorf("status bar should return to help:\n%s", view)
	}
}

// Copyright 2026 The Tripmate Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// NoticeFadeDelay is how long a notice stays in the status bar before
// the help line returns.
const NoticeFadeDelay = 5 * time.Second

// NoticeMsg delivers a log record to a bubbletea model for display in
// the status bar.
type NoticeMsg struct {
	// Summary is the one-line text: the record message followed by its
	// attributes in parentheses.
	Summary string

	// Level selects the notice color.
	Level slog.Level
}

// MessageSender accepts messages for a running bubbletea program.
// *tea.Program implements it.
type MessageSender interface {
	Send(message tea.Msg)
}

type senderBox struct {
	sender MessageSender
}

// NoticeHandler is a slog.Handler that routes records at or above its
// level into a bubbletea program as [NoticeMsg] values. Records below
// the level are dropped, as are records that arrive before SetProgram.
//
// Handlers derived with WithAttrs and WithGroup share the program
// pointer, so one SetProgram call reaches all of them.
type NoticeHandler struct {
	level  slog.Level
	target *atomic.Pointer[senderBox]
	attrs  []slog.Attr
	groups []string
}

// NewNoticeHandler creates a handler for records at or above level.
func NewNoticeHandler(level slog.Level) *NoticeHandler {
	return &NoticeHandler{
		level:  level,
		target: &atomic.Pointer[senderBox]{},
	}
}

// SetProgram sets the program that receives notices. Safe to call from
// any goroutine.
func (handler *NoticeHandler) SetProgram(program MessageSender) {
	handler.target.Store(&senderBox{sender: program})
}

// Enabled reports whether records at level become notices.
func (handler *NoticeHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= handler.level
}

// Handle formats the record and sends it to the program.
func (handler *NoticeHandler) Handle(_ context.Context, record slog.Record) error {
	box := handler.target.Load()
	if box == nil {
		return nil
	}
	box.sender.Send(NoticeMsg{Summary: handler.summarize(record), Level: record.Level})
	return nil
}

// WithAttrs returns a handler with attrs appended to every notice.
func (handler *NoticeHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &NoticeHandler{
		level:  handler.level,
		target: handler.target,
		attrs:  append(slices.Clone(handler.attrs), attrs...),
		groups: slices.Clone(handler.groups),
	}
}

// WithGroup returns a handler that prefixes later attribute keys with
// name.
func (handler *NoticeHandler) WithGroup(name string) slog.Handler {
	return &NoticeHandler{
		level:  handler.level,
		target: handler.target,
		attrs:  slices.Clone(handler.attrs),
		groups: append(slices.Clone(handler.groups), name),
	}
}

// summarize builds "message (key=value, ...)". Handler-level attrs
// come first.
func (handler *NoticeHandler) summarize(record slog.Record) string {
	var parts []string
	for _, attr := range handler.attrs {
		parts = append(parts, fmt.Sprintf("%s=%s", attr.Key, attr.Value))
	}
	prefix := ""
	if len(handler.groups) > 0 {
		prefix = strings.Join(handler.groups, ".") + "."
	}
	record.Attrs(func(attr slog.Attr) bool {
		parts = append(parts, fmt.Sprintf("%s%s=%s", prefix, attr.Key, attr.Value))
		return true
	})
	if len(parts) == 0 {
		return record.Message
	}
	return record.Message + " (" + strings.Join(parts, ", ") + ")"
}

// FadeNotice returns a command that delivers message after
// NoticeFadeDelay.
func FadeNotice(message tea.Msg) tea.Cmd {
	return tea.Tick(NoticeFadeDelay, func(time.Time) tea.Msg { return message })
}

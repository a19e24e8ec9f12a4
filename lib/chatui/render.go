// Copyright 2026 The Tripmate Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/tripmate-app/tripmate/chat"
	"github.com/tripmate-app/tripmate/lib/schema"
	"github.com/tripmate-app/tripmate/lib/tui"
)

// Receipt icons shown after the time of own messages.
const (
	IconSending = "◷"
	IconSent    = "✓"
	IconRead    = "✓✓"
)

// Placeholder texts for the message area.
const (
	LoadingText = "Loading messages..."
	EmptyText   = "No messages yet. Say hello!"
)

// minBubbleWidth keeps very narrow terminals readable.
const minBubbleWidth = 12

// renderer draws the message area.
type renderer struct {
	theme    tui.Theme
	selfID   string
	receipt  func(schema.Message) chat.Receipt
	location *time.Location
	width    int
}

// render returns the whole conversation: a centered label per day
// followed by its bubbles, own messages right-aligned.
func (r renderer) render(groups []chat.DayGroup) string {
	var blocks []string
	labelStyle := lipgloss.NewStyle().Foreground(r.theme.FaintText)
	for _, group := range groups {
		label := labelStyle.Render("── " + group.Label + " ──")
		blocks = append(blocks, lipgloss.PlaceHorizontal(r.width, lipgloss.Center, label))
		for _, message := range group.Messages {
			blocks = append(blocks, r.bubble(message))
		}
	}
	return strings.Join(blocks, "\n")
}

// placeholder centers text in the message area.
func (r renderer) placeholder(text string, height int) string {
	style := lipgloss.NewStyle().Foreground(r.theme.FaintText)
	return lipgloss.Place(r.width, max(height, 1), lipgloss.Center, lipgloss.Center, style.Render(text))
}

func (r renderer) bubble(message schema.Message) string {
	own := message.SenderID == r.selfID
	bubbleWidth := max(r.width*3/4, minBubbleWidth)
	bubbleWidth = min(bubbleWidth, max(r.width, 1))

	style := lipgloss.NewStyle().Padding(0, 1)
	align := lipgloss.Left
	if own {
		style = style.Background(r.theme.OwnBubbleBackground).Foreground(r.theme.OwnBubbleForeground)
		align = lipgloss.Right
	} else {
		style = style.Background(r.theme.PeerBubbleBackground).Foreground(r.theme.PeerBubbleForeground)
	}

	content := ansi.Wrap(message.Content, max(bubbleWidth-2, 1), "")
	block := lipgloss.JoinVertical(align, style.Render(content), r.meta(message))
	return lipgloss.PlaceHorizontal(r.width, align, block)
}

// meta is the line under a bubble: the time and, for own messages, the
// receipt icon.
func (r renderer) meta(message schema.Message) string {
	faint := lipgloss.NewStyle().Foreground(r.theme.FaintText)
	line := faint.Render(chat.FormatTime(message.CreatedAt, r.location))

	switch r.receipt(message) {
	case chat.ReceiptSending:
		line += " " + lipgloss.NewStyle().Foreground(r.theme.ReceiptPending).Render(IconSending)
	case chat.ReceiptSent:
		line += " " + faint.Render(IconSent)
	case chat.ReceiptRead:
		line += " " + lipgloss.NewStyle().Foreground(r.theme.ReceiptRead).Render(IconRead)
	}
	return line
}

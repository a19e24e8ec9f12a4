// Copyright 2026 The Tripmate Authors
// SPDX-License-Identifier: Apache-2.0

package chatui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tripmate-app/tripmate/chat"
	"github.com/tripmate-app/tripmate/lib/schema"
	"github.com/tripmate-app/tripmate/lib/tui"
)

// Conversation is the state and actions the view needs.
// *chat.Controller implements it.
type Conversation interface {
	Changes() <-chan struct{}
	Self() schema.Participant
	Peer() schema.Participant
	Groups() []chat.DayGroup
	Loading() bool
	Connected() bool
	Draft() string
	PeerTyping() bool
	Receipt(message schema.Message) chat.Receipt
	SetDraft(text string)
	Send() bool
}

// changeMsg reports that the conversation changed.
type changeMsg struct{}

// noticeFadeMsg clears the notice it was scheduled for. A newer notice
// has a higher serial and survives an older fade.
type noticeFadeMsg struct {
	serial int
}

// chromeHeight is the rows around the message area: header, typing
// line, separator, compose line, and status bar.
const chromeHeight = 5

// Model is the bubbletea model of one conversation.
type Model struct {
	conversation Conversation
	theme        tui.Theme
	keys         KeyMap
	location     *time.Location

	input    textinput.Model
	viewport viewport.Model

	width  int
	height int
	ready  bool

	notice       *tui.NoticeMsg
	noticeSerial int
}

// NewModel creates the view for conversation with the default theme
// and key bindings, rendering times in the local zone.
func NewModel(conversation Conversation) Model {
	input := textinput.New()
	input.Placeholder = "Type a message..."
	input.Prompt = "> "
	input.SetValue(conversation.Draft())
	input.Focus()

	return Model{
		conversation: conversation,
		theme:        tui.DefaultTheme,
		keys:         DefaultKeyMap,
		location:     time.Local,
		input:        input,
		viewport:     viewport.New(0, 0),
	}
}

// SetTheme replaces the color scheme.
func (model *Model) SetTheme(theme tui.Theme) {
	model.theme = theme
}

// SetLocation sets the zone message times are shown in.
func (model *Model) SetLocation(location *time.Location) {
	model.location = location
}

// Init implements tea.Model.
func (model Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, listenForChanges(model.conversation.Changes()))
}

// listenForChanges blocks until the conversation changes.
func listenForChanges(changes <-chan struct{}) tea.Cmd {
	return func() tea.Msg {
		if _, ok := <-changes; !ok {
			return nil
		}
		return changeMsg{}
	}
}

// Update implements tea.Model.
func (model Model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch message := message.(type) {
	case tea.KeyMsg:
		return model.handleKey(message)

	case tea.WindowSizeMsg:
		model.width = message.Width
		model.height = message.Height
		model.ready = true
		model.updateSizes()
		model.refresh(true)

	case changeMsg:
		model.refresh(model.viewport.AtBottom())
		return model, listenForChanges(model.conversation.Changes())

	case tui.NoticeMsg:
		model.noticeSerial++
		model.notice = &message
		return model, tui.FadeNotice(noticeFadeMsg{serial: model.noticeSerial})

	case noticeFadeMsg:
		if message.serial == model.noticeSerial {
			model.notice = nil
		}

	default:
		var command tea.Cmd
		model.input, command = model.input.Update(message)
		return model, command
	}
	return model, nil
}

func (model Model) handleKey(message tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(message, model.keys.Quit):
		return model, tea.Quit

	case key.Matches(message, model.keys.Send):
		model.conversation.Send()
		model.input.SetValue(model.conversation.Draft())
		model.refresh(true)
		return model, nil

	case key.Matches(message, model.keys.ScrollUp):
		model.viewport.LineUp(1)
		return model, nil

	case key.Matches(message, model.keys.ScrollDown):
		model.viewport.LineDown(1)
		return model, nil

	case key.Matches(message, model.keys.PageUp):
		model.viewport.SetYOffset(model.viewport.YOffset - model.viewport.Height)
		return model, nil

	case key.Matches(message, model.keys.PageDown):
		model.viewport.SetYOffset(model.viewport.YOffset + model.viewport.Height)
		return model, nil

	case key.Matches(message, model.keys.Bottom):
		model.viewport.GotoBottom()
		return model, nil
	}

	var command tea.Cmd
	model.input, command = model.input.Update(message)
	if value := model.input.Value(); value != model.conversation.Draft() {
		model.conversation.SetDraft(value)
	}
	return model, command
}

func (model *Model) updateSizes() {
	model.viewport.Width = max(model.width-1, 1)
	model.viewport.Height = max(model.height-chromeHeight, 1)
	model.input.Width = max(model.width-len(model.input.Prompt)-2, 1)
}

// refresh re-renders the message area, following the newest message
// when stick is set.
func (model *Model) refresh(stick bool) {
	if !model.ready {
		return
	}
	r := renderer{
		theme:    model.theme,
		selfID:   model.conversation.Self().ID,
		receipt:  model.conversation.Receipt,
		location: model.location,
		width:    model.viewport.Width,
	}

	groups := model.conversation.Groups()
	switch {
	case len(groups) == 0 && model.conversation.Loading():
		model.viewport.SetContent(r.placeholder(LoadingText, model.viewport.Height))
	case len(groups) == 0:
		model.viewport.SetContent(r.placeholder(EmptyText, model.viewport.Height))
	default:
		model.viewport.SetContent(r.render(groups))
	}
	if stick {
		model.viewport.GotoBottom()
	}
}

// View implements tea.Model.
func (model Model) View() string {
	if !model.ready {
		return LoadingText
	}

	scrollbar := tui.RenderScrollbar(model.theme, model.viewport.Height,
		model.viewport.TotalLineCount(), model.viewport.Height, model.viewport.YOffset)
	messages := lipgloss.JoinHorizontal(lipgloss.Top, model.viewport.View(), scrollbar)

	separator := lipgloss.NewStyle().
		Foreground(model.theme.BorderColor).
		Render(strings.Repeat("─", model.width))

	sections := []string{
		model.renderHeader(),
		messages,
		model.renderTyping(),
		separator,
		model.input.View(),
		model.renderStatus(),
	}
	return strings.Join(sections, "\n")
}

// renderHeader shows the peer's name and presence.
func (model Model) renderHeader() string {
	nameStyle := lipgloss.NewStyle().Foreground(model.theme.HeaderForeground).Bold(true)
	dot := lipgloss.NewStyle().Foreground(model.theme.Offline).Render("○ offline")
	if model.conversation.Connected() {
		dot = lipgloss.NewStyle().Foreground(model.theme.Online).Render("● online")
	}
	return " " + nameStyle.Render(model.conversation.Peer().Name) + "  " + dot
}

// renderTyping is blank unless the peer is typing.
func (model Model) renderTyping() string {
	if !model.conversation.PeerTyping() {
		return ""
	}
	style := lipgloss.NewStyle().Foreground(model.theme.FaintText).Italic(true)
	return " " + style.Render(model.conversation.Peer().Name+" is typing...")
}

// renderStatus shows the current notice, or the key help when there is
// none.
func (model Model) renderStatus() string {
	if model.notice != nil {
		style := lipgloss.NewStyle().Foreground(model.theme.NoticeColor(model.notice.Level)).Bold(true)
		return " " + style.Render(model.notice.Summary)
	}
	help := fmt.Sprintf(" %s %s  %s %s  %s %s",
		model.keys.Send.Help().Key, model.keys.Send.Help().Desc,
		model.keys.PageUp.Help().Key, model.keys.PageUp.Help().Desc,
		model.keys.Quit.Help().Key, model.keys.Quit.Help().Desc)
	return lipgloss.NewStyle().Foreground(model.theme.HelpText).Render(help)
}

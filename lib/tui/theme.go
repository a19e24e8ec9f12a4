// Copyright 2026 The Tripmate Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"io"
	"log/slog"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme defines the color palette for Tripmate's terminal UIs. All
// colors use lipgloss ANSI 256-color codes for broad terminal
// compatibility.
type Theme struct {
	// Text colors.
	NormalText lipgloss.Color
	FaintText  lipgloss.Color

	// Message bubbles. Own messages sit on the right in the accent
	// color; the peer's on the left.
	OwnBubbleBackground  lipgloss.Color
	OwnBubbleForeground  lipgloss.Color
	PeerBubbleBackground lipgloss.Color
	PeerBubbleForeground lipgloss.Color

	// Delivery receipts. ReceiptRead tints the double check.
	ReceiptPending lipgloss.Color
	ReceiptRead    lipgloss.Color

	// Presence dot next to the peer's name.
	Online  lipgloss.Color
	Offline lipgloss.Color

	// UI chrome.
	HeaderForeground lipgloss.Color
	BorderColor      lipgloss.Color
	HelpText         lipgloss.Color
	AccentColor      lipgloss.Color

	// Status bar notices by severity.
	NoticeWarn  lipgloss.Color
	NoticeError lipgloss.Color
}

// NoticeColor returns the status bar color for a record level.
func (theme Theme) NoticeColor(level slog.Level) lipgloss.Color {
	switch {
	case level >= slog.LevelError:
		return theme.NoticeError
	case level >= slog.LevelWarn:
		return theme.NoticeWarn
	default:
		return theme.FaintText
	}
}

// DefaultTheme is the built-in dark-terminal color scheme.
var DefaultTheme = Theme{
	NormalText: lipgloss.Color("252"),
	FaintText:  lipgloss.Color("245"),

	OwnBubbleBackground:  lipgloss.Color("24"), // deep teal
	OwnBubbleForeground:  lipgloss.Color("255"),
	PeerBubbleBackground: lipgloss.Color("237"), // slightly lighter than the terminal
	PeerBubbleForeground: lipgloss.Color("252"),

	ReceiptPending: lipgloss.Color("245"),
	ReceiptRead:    lipgloss.Color("75"), // blue

	Online:  lipgloss.Color("114"), // green
	Offline: lipgloss.Color("240"),

	HeaderForeground: lipgloss.Color("255"),
	BorderColor:      lipgloss.Color("240"),
	HelpText:         lipgloss.Color("241"),
	AccentColor:      lipgloss.Color("220"), // amber

	NoticeWarn:  lipgloss.Color("208"), // orange
	NoticeError: lipgloss.Color("196"), // red
}

// LightTheme is the color scheme for light terminal backgrounds.
var LightTheme = Theme{
	NormalText: lipgloss.Color("235"),
	FaintText:  lipgloss.Color("242"),

	OwnBubbleBackground:  lipgloss.Color("31"),
	OwnBubbleForeground:  lipgloss.Color("255"),
	PeerBubbleBackground: lipgloss.Color("254"),
	PeerBubbleForeground: lipgloss.Color("235"),

	ReceiptPending: lipgloss.Color("244"),
	ReceiptRead:    lipgloss.Color("27"),

	Online:  lipgloss.Color("28"),
	Offline: lipgloss.Color("248"),

	HeaderForeground: lipgloss.Color("232"),
	BorderColor:      lipgloss.Color("250"),
	HelpText:         lipgloss.Color("244"),
	AccentColor:      lipgloss.Color("130"),

	NoticeWarn:  lipgloss.Color("166"),
	NoticeError: lipgloss.Color("160"),
}

// DetectTheme queries the terminal behind output for its background
// color and returns the matching theme. Terminals that do not answer
// are assumed dark.
func DetectTheme(output io.Writer) Theme {
	if termenv.NewOutput(output).HasDarkBackground() {
		return DefaultTheme
	}
	return LightTheme
}

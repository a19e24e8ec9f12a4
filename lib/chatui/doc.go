// Copyright 2026 The Tripmate Authors
// SPDX-License-Identifier: Apache-2.0

// Package chatui is the terminal view of one conversation. Built on
// bubbletea, it shows the message list grouped by day with delivery
// receipts, the peer's presence and typing state, a compose line, and
// a status bar for notices.
//
// The model reads everything from a [Conversation], which
// *chat.Controller implements, and re-renders whenever the
// conversation's change channel fires:
//
//	[chat.Controller] --Changes()--> [Model] <- bubbletea event loop
//	        ^                           |
//	        +-- SetDraft / Send --------+
package chatui

// Copyright 2026 The Tripmate Authors
// SPDX-License-Identifier: Apache-2.0

// Package chat implements the client side of a one-to-one conversation
// between two matched travellers.
//
// A [Store] holds the message list for one peer. It is filled from the
// REST history, extended by live socket events and by optimistic local
// sends, and it acknowledges inbound messages as read. The list only
// grows at the tail; the only mutations of existing entries are the
// read flag (false to true, once) and, when echo reconciliation is
// enabled, the replacement of an optimistic entry by the server's copy
// at the same position.
//
// A [Controller] binds a Store to a socket connection for the lifetime
// of one open conversation: it subscribes to inbound events, announces
// the user with join, debounces typing signals, performs optimistic
// sends, and derives per-message read receipts. Switching to another
// peer means closing the Controller and opening a new one; nothing is
// carried across.
//
// Failures never escape the Controller. They are logged and surfaced
// to the user through a [Notifier].
package chat

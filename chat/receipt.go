// Copyright 2026 The Tripmate Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import "github.com/tripmate-app/tripmate/lib/schema"

// Receipt is the delivery state shown on a message the user sent.
type Receipt int

const (
	// ReceiptNone applies to messages from the peer.
	ReceiptNone Receipt = iota

	// ReceiptSending is an optimistic entry the server has not
	// acknowledged. Rendered as a clock.
	ReceiptSending

	// ReceiptSent is persisted but unread. Rendered as one check.
	ReceiptSent

	// ReceiptRead has been read by the peer. Rendered as two checks.
	ReceiptRead
)

func (r Receipt) String() string {
	switch r {
	case ReceiptNone:
		return "none"
	case ReceiptSending:
		return "sending"
	case ReceiptSent:
		return "sent"
	case ReceiptRead:
		return "read"
	default:
		return "unknown"
	}
}

// ReceiptFor derives the receipt of message as seen by selfID.
func ReceiptFor(message schema.Message, selfID string) Receipt {
	switch {
	case message.SenderID != selfID:
		return ReceiptNone
	case message.IsTemporary():
		return ReceiptSending
	case message.Read:
		return ReceiptRead
	default:
		return ReceiptSent
	}
}

// Copyright 2026 The Tripmate Authors
// SPDX-License-Identifier: Apache-2.0

package socket

import (
	"context"

	"github.com/tripmate-app/tripmate/lib/secret"
)

// Transport establishes links to the chat backend.
type Transport interface {
	// Dial opens a new link authenticated with token. The token is
	// borrowed for the duration of the call.
	Dial(ctx context.Context, token *secret.Token) (Link, error)
}

// Link is one established transport connection. ReadFrame is called
// from a single goroutine; WriteFrame may be called concurrently with
// ReadFrame and with itself.
type Link interface {
	// ReadFrame blocks until the next frame arrives or the link fails.
	ReadFrame() ([]byte, error)

	// WriteFrame sends one frame. binary selects a binary frame on
	// transports that distinguish text and binary messages.
	WriteFrame(frame []byte, binary bool) error

	// Close tears the link down. Pending and future ReadFrame calls
	// return an error. Idempotent.
	Close() error
}

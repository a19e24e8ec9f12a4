// Copyright 2026 The Tripmate Authors
// SPDX-License-Identifier: Apache-2.0

package socket

import "errors"

var (
	// ErrNotConnected is returned by [Conn.Emit] while the link is
	// down. The envelope was not sent.
	ErrNotConnected = errors.New("socket: not connected")

	// ErrClosed is returned by operations on a closed [Conn].
	ErrClosed = errors.New("socket: connection closed")
)

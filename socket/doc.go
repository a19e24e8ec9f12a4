// Copyright 2026 The Tripmate Authors
// SPDX-License-Identifier: Apache-2.0

// Package socket maintains the real-time connection between a signed-in
// user's session and the chat backend.
//
// A [Dialer] opens one [Conn] per authenticated session. The Conn owns
// a [Link] obtained from a [Transport] (a WebSocket in production, an
// in-memory pipe in tests) and exchanges envelopes of the form
//
//	{"event": "new_message", "data": {...}}
//
// encoded by a [codec.Codec]. Inbound envelopes are delivered to
// subscribers on a single dispatch goroutine in the order the transport
// produced them. The Conn also delivers two local pseudo-events,
// [schema.EventConnect] after every successful dial and
// [schema.EventDisconnect] when the link drops, so consumers can
// re-announce themselves after a reconnect.
//
// Outbound emits are fire-and-forget. There is no queue: emitting while
// the link is down returns [ErrNotConnected] and the envelope is
// dropped. When reconnection is enabled the Conn redials with
// exponential backoff until it succeeds or is closed.
package socket

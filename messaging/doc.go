// Copyright 2026 The Tripmate Authors
// SPDX-License-Identifier: Apache-2.0

// Package messaging wraps the Tripmate REST API used by the chat client.
//
// [Client] holds the API origin, HTTP transport, and logger, and is
// shared by every [Session] derived from it. A Session adds the
// bearer token for authenticated calls:
//
//   - [Session.Me] resolves the signed-in user's profile.
//   - [Session.Conversation] fetches the full history with one peer.
//   - [Session.MarkAsRead] acknowledges a batch of message ids.
//   - [Session.Conversations] lists conversation summaries.
//
// Non-2xx responses are returned as [*APIError] carrying the HTTP
// status and the server's message; use errors.As or [IsStatus].
// Nothing here retries. Callers decide how to surface a failure.
package messaging

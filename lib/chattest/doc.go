// Copyright 2026 The Tripmate Authors
// SPDX-License-Identifier: Apache-2.0

// Package chattest runs an in-process chat backend for tests. It serves
// the REST endpoints the messaging package calls and a WebSocket
// endpoint speaking the socket package's envelope protocol, with just
// enough server behavior (join routing, message persistence, typing
// relay, read flags) to drive the chat client end to end.
//
// Tests seed users and messages, push server events, inject REST
// failures, and inspect what the client sent:
//
//	backend := chattest.New()
//	defer backend.Close()
//	backend.AddUser("alice-token", schema.User{ID: "alice", Name: "Alice"})
//	backend.Seed(schema.Message{ID: "m1", SenderID: "bob", ReceiverID: "alice", Content: "hi"})
package chattest

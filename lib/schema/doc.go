// Copyright 2026 The Tripmate Authors
// SPDX-License-Identifier: Apache-2.0

// Package schema defines the wire types shared by the REST client, the
// real-time socket, and the conversation logic: [Message] and its
// sender snapshot, the typing signal, outbound socket payloads, and
// the socket event names.
//
// Field names follow the backend's camelCase JSON. The same `json`
// tags name fields in CBOR frames (see lib/codec).
//
// This package depends on no other tripmate packages.
package schema

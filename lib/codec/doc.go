// Copyright 2026 The Tripmate Authors
// SPDX-License-Identifier: Apache-2.0

// Package codec encodes real-time socket envelopes.
//
// Every socket frame is an envelope carrying an event name and a
// payload: {"event": "new_message", "data": {...}}. Two wire formats
// are supported and chosen per connection:
//
//   - [JSON] sends text frames. This is what browser clients and most
//     backends speak.
//   - [CBOR] sends binary frames using Core Deterministic Encoding
//     (RFC 8949 §4.2) with times as RFC 3339 strings, so a message
//     decodes to the same values in either format.
//
// Payload types carry only `json` struct tags; fxamacker/cbor falls
// back to them, so one tag set names fields in both formats.
package codec

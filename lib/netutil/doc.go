// Copyright 2026 The Tripmate Authors
// SPDX-License-Identifier: Apache-2.0

// Package netutil holds small network helpers shared by the REST client
// and the socket connection: bounded response reads and classification
// of errors that mean "the other side hung up normally".
package netutil

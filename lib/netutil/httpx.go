// Copyright 2026 The Tripmate Authors
// SPDX-License-Identifier: Apache-2.0

package netutil

import (
	"io"
	"net"
	"net/http"
	"time"
)

// MaxResponseSize bounds REST response reads. A full conversation
// history is far smaller; the bound only stops a misbehaving server
// from exhausting memory.
const MaxResponseSize int64 = 32 << 20

// ReadResponse reads body up to MaxResponseSize bytes.
func ReadResponse(body io.Reader) ([]byte, error) {
	return io.ReadAll(io.LimitReader(body, MaxResponseSize))
}

// NewHTTPClient returns an HTTP client whose requests time out after
// timeout. Zero means no client-side timeout (the request context
// still applies).
func NewHTTPClient(timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
	}).DialContext
	return &http.Client{Transport: transport, Timeout: timeout}
}

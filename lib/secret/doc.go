// Copyright 2026 The Tripmate Authors
// SPDX-License-Identifier: Apache-2.0

// Package secret keeps the session bearer token out of the Go heap.
//
// A [Token] copies its bytes into an anonymous mmap region that is
// locked against swap and excluded from core dumps. Close zeroes and
// unmaps the region. When the process may not lock memory (a low
// RLIMIT_MEMLOCK, common in containers), the region is still mapped
// and zeroed on Close but is not locked; [Token.Locked] reports which.
//
// [ReadToken] loads a token from a file or stdin ("-") for the
// --token-file flag.
package secret

// Copyright 2026 The Tripmate Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sys/unix"
)

// ErrClosed is returned (or panicked with, for string access) after
// Close.
var ErrClosed = errors.New("secret: token is closed")

// Token holds a bearer token in mmap-backed memory. A Token must not
// be copied after creation.
type Token struct {
	mu     sync.Mutex
	region []byte
	size   int
	locked bool
	closed bool
}

// NewToken copies source into protected memory and zeroes source.
func NewToken(source []byte) (*Token, error) {
	if len(source) == 0 {
		return nil, errors.New("secret: token is empty")
	}

	region, err := unix.Mmap(-1, 0, len(source), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("secret: mmap failed: %w", err)
	}

	locked := unix.Mlock(region) == nil
	// Best effort: older kernels reject MADV_DONTDUMP.
	_ = unix.Madvise(region, unix.MADV_DONTDUMP)

	copy(region, source)
	clear(source)

	return &Token{region: region, size: len(source), locked: locked}, nil
}

// NewTokenString is NewToken for a string. The string itself cannot be
// zeroed; use it only for values that already live on the heap.
func NewTokenString(value string) (*Token, error) {
	return NewToken([]byte(value))
}

// String returns a heap copy of the token for use at API boundaries
// such as an Authorization header. Panics after Close.
func (t *Token) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		panic(ErrClosed)
	}
	return string(t.region[:t.size])
}

// Locked reports whether the region is locked against swap.
func (t *Token) Locked() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.locked
}

// Close zeroes and releases the region. Idempotent.
func (t *Token) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return nil
	}
	t.closed = true

	clear(t.region)
	var errs []error
	if t.locked {
		if err := unix.Munlock(t.region); err != nil {
			errs = append(errs, fmt.Errorf("secret: munlock failed: %w", err))
		}
	}
	if err := unix.Munmap(t.region); err != nil {
		errs = append(errs, fmt.Errorf("secret: munmap failed: %w", err))
	}
	t.region = nil
	return errors.Join(errs...)
}

// Copyright 2026 The Tripmate Authors
// SPDX-License-Identifier: Apache-2.0

package socket

import "sync"

// Subscriptions collects unsubscribe functions so a consumer that
// registered several handlers can tear them all down at once. The zero
// value is ready to use.
type Subscriptions struct {
	mu           sync.Mutex
	unsubscribes []func()
	released     bool
}

// Add records unsubscribe. After Release, Add calls unsubscribe
// immediately.
func (s *Subscriptions) Add(unsubscribe func()) {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		unsubscribe()
		return
	}
	s.unsubscribes = append(s.unsubscribes, unsubscribe)
	s.mu.Unlock()
}

// Release runs every recorded unsubscribe function exactly once.
// Later calls do nothing.
func (s *Subscriptions) Release() {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return
	}
	s.released = true
	unsubscribes := s.unsubscribes
	s.unsubscribes = nil
	s.mu.Unlock()

	for _, unsubscribe := range unsubscribes {
		unsubscribe()
	}
}

// Copyright 2026 The Tripmate Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import (
	"sync"
	"time"

	"github.com/tripmate-app/tripmate/lib/clock"
)

// DefaultTypingDebounce is the quiet period after the last keystroke
// before "stopped typing" is signalled.
const DefaultTypingDebounce = 900 * time.Millisecond

// DefaultPeerTypingTimeout clears a peer's typing indicator when no
// "stopped typing" signal arrives.
const DefaultPeerTypingTimeout = 3 * time.Second

// TypingDebouncer turns keystrokes into typing signals with a trailing
// debounce: every keystroke signals true at once and restarts a quiet
// period, and false is signalled once when a quiet period elapses.
type TypingDebouncer struct {
	clock  clock.Clock
	window time.Duration
	signal func(isTyping bool)

	mu         sync.Mutex
	timer      *clock.Timer
	generation uint64
	active     bool
}

// NewTypingDebouncer returns a debouncer that calls signal. A
// non-positive window uses DefaultTypingDebounce.
func NewTypingDebouncer(clk clock.Clock, window time.Duration, signal func(isTyping bool)) *TypingDebouncer {
	if window <= 0 {
		window = DefaultTypingDebounce
	}
	return &TypingDebouncer{clock: clk, window: window, signal: signal}
}

// Keystroke signals true and restarts the quiet period.
func (d *TypingDebouncer) Keystroke() {
	d.signal(true)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.generation++
	generation := d.generation
	d.active = true
	d.timer = d.clock.AfterFunc(d.window, func() { d.expire(generation) })
}

// Active reports whether a quiet period is pending.
func (d *TypingDebouncer) Active() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.active
}

// Stop cancels the pending quiet period. If one was pending, false is
// signalled immediately so the peer's indicator clears.
func (d *TypingDebouncer) Stop() {
	d.mu.Lock()
	wasActive := d.active
	d.active = false
	d.generation++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()

	if wasActive {
		d.signal(false)
	}
}

func (d *TypingDebouncer) expire(generation uint64) {
	d.mu.Lock()
	// A keystroke or Stop after this timer was armed supersedes it.
	if generation != d.generation || !d.active {
		d.mu.Unlock()
		return
	}
	d.active = false
	d.timer = nil
	d.mu.Unlock()

	d.signal(false)
}

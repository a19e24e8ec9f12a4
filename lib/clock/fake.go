// Copyright 2026 The Tripmate Authors
// SPDX-License-Identifier: Apache-2.0

package clock

import (
	"slices"
	"sync"
	"time"
)

// FakeClock is a manually advanced Clock. Scheduled callbacks run
// synchronously inside Advance, in deadline order, on the goroutine
// that called Advance. A callback must not call Advance itself.
type FakeClock struct {
	mu      sync.Mutex
	now     time.Time
	pending []*scheduled
	changed *sync.Cond
}

// scheduled is one pending After, AfterFunc, or ticker registration.
type scheduled struct {
	at     time.Time
	fire   func(time.Time)
	period time.Duration // non-zero for tickers
}

// Fake returns a FakeClock reading start.
func Fake(start time.Time) *FakeClock {
	clock := &FakeClock{now: start}
	clock.changed = sync.NewCond(&clock.mu)
	return clock
}

// Now returns the fake current time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// After delivers on the returned channel once the clock reaches now+d.
func (c *FakeClock) After(d time.Duration) <-chan time.Time {
	channel := make(chan time.Time, 1)
	c.mu.Lock()
	defer c.mu.Unlock()
	if d <= 0 {
		channel <- c.now
		return channel
	}
	c.addLocked(&scheduled{
		at:   c.now.Add(d),
		fire: func(at time.Time) { channel <- at },
	})
	return channel
}

// AfterFunc runs f during the Advance call that reaches now+d. A
// non-positive d runs f before AfterFunc returns.
func (c *FakeClock) AfterFunc(d time.Duration, f func()) *Timer {
	entry := &scheduled{fire: func(time.Time) { f() }}

	c.mu.Lock()
	if d <= 0 {
		c.mu.Unlock()
		f()
	} else {
		entry.at = c.now.Add(d)
		c.addLocked(entry)
		c.mu.Unlock()
	}

	return &Timer{
		stop: func() bool {
			c.mu.Lock()
			defer c.mu.Unlock()
			return c.removeLocked(entry)
		},
		reset: func(d time.Duration) bool {
			c.mu.Lock()
			defer c.mu.Unlock()
			wasPending := c.removeLocked(entry)
			entry.at = c.now.Add(d)
			c.addLocked(entry)
			return wasPending
		},
	}
}

// NewTicker ticks every d of fake time. Ticks that find C full are
// dropped.
func (c *FakeClock) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("clock: NewTicker with non-positive interval")
	}
	channel := make(chan time.Time, 1)
	entry := &scheduled{
		period: d,
		fire: func(at time.Time) {
			select {
			case channel <- at:
			default:
			}
		},
	}
	c.mu.Lock()
	entry.at = c.now.Add(d)
	c.addLocked(entry)
	c.mu.Unlock()

	return &Ticker{
		C: channel,
		stop: func() {
			c.mu.Lock()
			defer c.mu.Unlock()
			c.removeLocked(entry)
		},
	}
}

// Advance moves the clock forward by d, firing everything due on the
// way. Entries scheduled by a callback during Advance fire in the same
// call if they fall due before the new time.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now.Add(d)
	c.mu.Unlock()

	for {
		c.mu.Lock()
		entry := c.nextDueLocked(target)
		if entry == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = entry.at
		firedAt := entry.at
		if entry.period > 0 {
			entry.at = entry.at.Add(entry.period)
		} else {
			c.removeLocked(entry)
		}
		c.mu.Unlock()

		entry.fire(firedAt)
	}
}

// WaitForTimers blocks until at least n entries are pending.
func (c *FakeClock) WaitForTimers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for len(c.pending) < n {
		c.changed.Wait()
	}
}

// PendingCount reports how many entries are waiting to fire.
func (c *FakeClock) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

func (c *FakeClock) addLocked(entry *scheduled) {
	c.pending = append(c.pending, entry)
	c.changed.Broadcast()
}

// removeLocked drops entry from pending. Reports whether it was there.
func (c *FakeClock) removeLocked(entry *scheduled) bool {
	index := slices.Index(c.pending, entry)
	if index < 0 {
		return false
	}
	c.pending = slices.Delete(c.pending, index, index+1)
	return true
}

// nextDueLocked returns the earliest entry due at or before target.
// Ties keep registration order.
func (c *FakeClock) nextDueLocked(target time.Time) *scheduled {
	var next *scheduled
	for _, entry := range c.pending {
		if entry.at.After(target) {
			continue
		}
		if next == nil || entry.at.Before(next.at) {
			next = entry
		}
	}
	return next
}

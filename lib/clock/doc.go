// Copyright 2026 The Tripmate Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock abstracts time so timer-driven behavior (typing
// debounce, peer typing expiry, socket keepalive, reconnect backoff)
// can be driven deterministically in tests.
//
// Production code holds a [Clock] field set to [Real]. Tests use
// [Fake], which stands still until [FakeClock.Advance] is called:
//
//	fake := clock.Fake(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC))
//	debouncer := chat.NewTypingDebouncer(fake, 900*time.Millisecond, emit)
//	debouncer.Keystroke()
//	fake.Advance(900 * time.Millisecond) // fires the trailing "stopped" emit
//
// Goroutines that register timers asynchronously race with the test's
// Advance call. [FakeClock.WaitForTimers] blocks until the expected
// number of timers are pending, closing that race.
package clock

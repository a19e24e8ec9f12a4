// Copyright 2026 The Tripmate Authors
// SPDX-License-Identifier: Apache-2.0

package socket

import (
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/tripmate-app/tripmate/lib/clock"
)

// redial dials until a link is established or the Conn is closed.
// Returns nil when closed.
func (c *Conn) redial() Link {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.config.InitialBackoff
	policy.MaxInterval = c.config.MaxBackoff
	policy.MaxElapsedTime = 0
	policy.Clock = c.config.Clock

	attempt := 0
	var link Link
	operation := func() error {
		attempt++
		dialed, err := c.config.Transport.Dial(c.ctx, c.token)
		if err != nil {
			if c.ctx.Err() != nil {
				return backoff.Permanent(c.ctx.Err())
			}
			return err
		}
		link = dialed
		return nil
	}
	notify := func(err error, wait time.Duration) {
		c.logger.Info("socket redial failed",
			"attempt", attempt,
			"retry_in", wait,
			"error", err,
		)
	}

	err := backoff.RetryNotifyWithTimer(operation, backoff.WithContext(policy, c.ctx), notify, &clockTimer{clock: c.config.Clock})
	if err != nil {
		if link != nil {
			link.Close()
		}
		return nil
	}
	return link
}

// clockTimer adapts a clock.Clock to backoff.Timer so redial delays
// follow the injected clock.
type clockTimer struct {
	clock clock.Clock
	timer *clock.Timer
	fired chan time.Time
}

func (t *clockTimer) Start(duration time.Duration) {
	fired := make(chan time.Time, 1)
	t.fired = fired
	t.timer = t.clock.AfterFunc(duration, func() {
		fired <- t.clock.Now()
	})
}

func (t *clockTimer) Stop() {
	if t.timer != nil {
		t.timer.Stop()
	}
}

func (t *clockTimer) C() <-chan time.Time {
	return t.fired
}

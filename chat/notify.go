// Copyright 2026 The Tripmate Authors
// SPDX-License-Identifier: Apache-2.0

package chat

import "log/slog"

// Notifier shows short-lived notices to the user.
type Notifier interface {
	Notify(message string)
}

// NotifierFunc adapts a function to [Notifier].
type NotifierFunc func(message string)

// Notify calls f.
func (f NotifierFunc) Notify(message string) { f(message) }

// LogNotifier returns a Notifier that writes each notice to logger at
// warn level. The terminal UI renders warn records as status bar
// notices, so this is the default.
func LogNotifier(logger *slog.Logger) Notifier {
	return NotifierFunc(func(message string) {
		logger.Warn(message)
	})
}

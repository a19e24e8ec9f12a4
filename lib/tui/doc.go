// Copyright 2026 The Tripmate Authors
// SPDX-License-Identifier: Apache-2.0

// Package tui provides shared terminal user interface pieces for
// Tripmate's interactive viewers: dark and light color themes, a
// scrollbar, a fuzzy matcher for name lookups, and a slog handler that
// turns log records into status bar notices.
//
// Viewers such as [chatui] own their layout and data source and import
// this package for a consistent look.
package tui

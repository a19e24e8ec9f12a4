// Copyright 2026 The Tripmate Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil holds channel assertions shared by tripmate tests.
// They are the only place tests wait on the wall clock; everything
// else runs on a clock.FakeClock.
package testutil

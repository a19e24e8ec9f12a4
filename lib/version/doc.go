// Copyright 2026 The Tripmate Authors
// SPDX-License-Identifier: Apache-2.0

// Package version reports how a tripmate binary was built. Release
// builds set [Version], [GitCommit], [GitDirty], and [BuildTime] with
// -ldflags -X; development builds and tests see placeholder values.
// [Fprint] formats them for a --version flag.
package version

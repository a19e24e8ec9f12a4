// Copyright 2026 The Tripmate Authors
// SPDX-License-Identifier: Apache-2.0

// Package config loads YAML configuration for the tripmate chat client.
//
// Configuration comes from exactly one file, named either by the
// TRIPMATE_CONFIG environment variable ([Load]) or a --config flag
// ([LoadFile]). There is no search path and no per-field environment
// override; the file is the single source of truth.
//
// A file may carry development, staging, and production sections that
// override base values when [Config].Environment matches. URL fields
// support ${VAR} and ${VAR:-default} expansion so one file can serve
// several hosts.
//
// This package depends on no other tripmate packages.
package config

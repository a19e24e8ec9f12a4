// Copyright 2026 The Tripmate Authors
// SPDX-License-Identifier: Apache-2.0

// Package sealed keeps session tokens encrypted at rest with age.
//
// A sealed token file is an ASCII-armored age file encrypted to one or
// more x25519 recipients. [Seal] writes one; [OpenToken] decrypts it
// with an identity file and returns the plaintext as a [secret.Token],
// so the decrypted token never lives on the Go heap longer than the
// copy into protected memory.
package sealed

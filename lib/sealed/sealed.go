// Copyright 2026 The Tripmate Authors
// SPDX-License-Identifier: Apache-2.0

package sealed

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"filippo.io/age"
	"filippo.io/age/armor"

	"github.com/tripmate-app/tripmate/lib/secret"
)

// Suffix marks token files that hold sealed rather than plain tokens.
const Suffix = ".age"

// Keypair is an x25519 identity and its public recipient string.
type Keypair struct {
	// Identity is the "AGE-SECRET-KEY-1..." private key.
	Identity *secret.Token

	// Recipient is the "age1..." public key.
	Recipient string
}

// Close releases the identity's protected memory.
func (k *Keypair) Close() error {
	if k.Identity != nil {
		return k.Identity.Close()
	}
	return nil
}

// GenerateKeypair creates a new x25519 keypair.
func GenerateKeypair() (*Keypair, error) {
	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return nil, fmt.Errorf("sealed: generating keypair: %w", err)
	}
	private, err := secret.NewTokenString(identity.String())
	if err != nil {
		return nil, fmt.Errorf("sealed: protecting identity: %w", err)
	}
	return &Keypair{Identity: private, Recipient: identity.Recipient().String()}, nil
}

// ParseRecipient validates an "age1..." public key.
func ParseRecipient(recipient string) error {
	if _, err := age.ParseX25519Recipient(recipient); err != nil {
		return fmt.Errorf("sealed: invalid recipient %q: %w", recipient, err)
	}
	return nil
}

// Seal encrypts plaintext to every recipient and writes the armored
// result to w.
func Seal(w io.Writer, plaintext []byte, recipientKeys []string) error {
	if len(recipientKeys) == 0 {
		return errors.New("sealed: at least one recipient is required")
	}
	recipients := make([]age.Recipient, 0, len(recipientKeys))
	for _, key := range recipientKeys {
		recipient, err := age.ParseX25519Recipient(key)
		if err != nil {
			return fmt.Errorf("sealed: parsing recipient %q: %w", key, err)
		}
		recipients = append(recipients, recipient)
	}

	armored := armor.NewWriter(w)
	encrypted, err := age.Encrypt(armored, recipients...)
	if err != nil {
		return fmt.Errorf("sealed: creating encryptor: %w", err)
	}
	if _, err := encrypted.Write(plaintext); err != nil {
		return fmt.Errorf("sealed: writing plaintext: %w", err)
	}
	if err := encrypted.Close(); err != nil {
		return fmt.Errorf("sealed: finalizing encryption: %w", err)
	}
	if err := armored.Close(); err != nil {
		return fmt.Errorf("sealed: finalizing armor: %w", err)
	}
	return nil
}

// OpenToken decrypts a sealed token from ciphertext using the age
// identities read from identities. Both armored and binary age files
// are accepted. Surrounding whitespace in the plaintext is trimmed.
func OpenToken(ciphertext, identities io.Reader) (*secret.Token, error) {
	parsed, err := age.ParseIdentities(identities)
	if err != nil {
		return nil, fmt.Errorf("sealed: parsing identities: %w", err)
	}

	buffered := bufio.NewReader(ciphertext)
	var source io.Reader = buffered
	if head, _ := buffered.Peek(len(armor.Header)); string(head) == armor.Header {
		source = armor.NewReader(buffered)
	}

	decrypted, err := age.Decrypt(source, parsed...)
	if err != nil {
		return nil, fmt.Errorf("sealed: decrypting: %w", err)
	}
	plaintext, err := io.ReadAll(decrypted)
	defer clear(plaintext)
	if err != nil {
		return nil, fmt.Errorf("sealed: reading plaintext: %w", err)
	}

	trimmed := bytes.TrimSpace(plaintext)
	if len(trimmed) == 0 {
		return nil, errors.New("sealed: token is empty")
	}
	return secret.NewToken(trimmed)
}

// OpenTokenFile opens the sealed token at path with the identity file
// at identityPath.
func OpenTokenFile(path, identityPath string) (*secret.Token, error) {
	ciphertext, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer ciphertext.Close()

	identities, err := os.Open(identityPath)
	if err != nil {
		return nil, err
	}
	defer identities.Close()

	return OpenToken(ciphertext, identities)
}

// IsSealed reports whether path names a sealed token file.
func IsSealed(path string) bool {
	return strings.HasSuffix(path, Suffix)
}

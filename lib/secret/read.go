// Copyright 2026 The Tripmate Authors
// SPDX-License-Identifier: Apache-2.0

package secret

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
)

// ReadToken reads a token from path, or from stdin when path is "-".
// Surrounding whitespace is trimmed; an empty result is an error.
func ReadToken(path string) (*Token, error) {
	if path == "-" {
		return readFirstLine(os.Stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	defer clear(data)
	return tokenFromBytes(data)
}

func readFirstLine(reader io.Reader) (*Token, error) {
	scanner := bufio.NewScanner(reader)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return nil, errors.New("stdin is empty")
	}
	line := scanner.Bytes()
	defer clear(line)
	return tokenFromBytes(line)
}

func tokenFromBytes(data []byte) (*Token, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("token is empty")
	}
	return NewToken(trimmed)
}

// Copyright 2026 The Tripmate Authors
// SPDX-License-Identifier: Apache-2.0

package version

import (
	"bytes"
	"strings"
	"testing"
)

func TestInfoMarksDirtyBuilds(t *testing.T) {
	original := GitDirty
	t.Cleanup(func() { GitDirty = original })

	GitDirty = "false"
	if strings.Contains(Info(), "-dirty") {
		t.Errorf("clean build reported dirty: %s", Info())
	}
	GitDirty = "true"
	if !strings.Contains(Info(), GitCommit+"-dirty") {
		t.Errorf("dirty build not marked: %s", Info())
	}
}

func TestFprint(t *testing.T) {
	var buffer bytes.Buffer
	Fprint(&buffer, "tripmate-chat")
	if !strings.HasPrefix(buffer.String(), "tripmate-chat "+Version) {
		t.Errorf("output = %q", buffer.String())
	}
	if !strings.Contains(buffer.String(), "Go: ") {
		t.Errorf("output lacks the Go version: %q", buffer.String())
	}
}

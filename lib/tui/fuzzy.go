// Copyright 2026 The Tripmate Authors
// SPDX-License-Identifier: Apache-2.0

package tui

import (
	"strings"

	"github.com/junegunn/fzf/src/algo"
	"github.com/junegunn/fzf/src/util"
)

// FuzzyResult is the outcome of matching one string against a pattern.
// Score is zero when the pattern does not match. Positions index the
// matched runes of the text.
type FuzzyResult struct {
	Score     int
	Positions []int
}

// NewSlab allocates scratch space for repeated [FuzzyMatch] calls on
// one goroutine.
func NewSlab() *util.Slab {
	return util.MakeSlab(100*1024, 2048)
}

// FuzzyMatch scores text against pattern with fzf's V2 algorithm,
// ignoring case on both sides. slab may be nil.
func FuzzyMatch(text string, pattern []rune, slab *util.Slab) FuzzyResult {
	if len(pattern) == 0 {
		return FuzzyResult{}
	}
	lowered := []rune(strings.ToLower(text))
	chars := util.RunesToChars(lowered)
	loweredPattern := []rune(strings.ToLower(string(pattern)))

	result, positions := algo.FuzzyMatchV2(false, false, true, &chars, loweredPattern, true, slab)
	if result.Start < 0 || result.Score <= 0 {
		return FuzzyResult{}
	}
	matched := FuzzyResult{Score: result.Score}
	if positions != nil {
		matched.Positions = append([]int(nil), (*positions)...)
	}
	return matched
}

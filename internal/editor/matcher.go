// Copyright (c) 2026 The aider authors. All rights reserved.
// SPDX-License-Identifier: MIT

package editor

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/gregm711/aider/pkg/types"
)

const (
	defaultFuzzyThreshold  = 0.8
	defaultAmbiguityMargin = 0.05
)

// matchResult holds the outcome of a single match attempt.
type matchResult struct {
	start      int              // Byte offset of the match start in the content
	end        int              // Byte offset of the match end in the content
	stage      types.MatchStage // Which stage found the match
	similarity float64          // Similarity score (1.0 for exact and whitespace)
}

// findMatch runs the three matching stages in order against content,
// returning the first successful match. Exact and whitespace-normalized
// matches take the first occurrence in document order. A fuzzy match is
// accepted only when the best candidate clears the threshold and beats the
// best non-overlapping runner-up by at least the margin; otherwise
// ambiguous is true and the returned match describes the tied best
// candidate. Returns (nil, false) when no stage matches.
func findMatch(content, search string, threshold, margin float64) (m *matchResult, ambiguous bool) {
	if m := exactMatch(content, search); m != nil {
		return m, false
	}
	if m := whitespaceNormalizedMatch(content, search); m != nil {
		return m, false
	}
	best, runnerUp := fuzzyMatch(content, search, threshold)
	if best == nil {
		return nil, false
	}
	if best.similarity-runnerUp < margin {
		return best, true
	}
	return best, false
}

// exactMatch attempts a byte-for-byte substring match.
func exactMatch(content, search string) *matchResult {
	idx := strings.Index(content, search)
	if idx < 0 {
		return nil
	}
	return &matchResult{
		start:      idx,
		end:        idx + len(search),
		stage:      types.StageExact,
		similarity: 1.0,
	}
}

// whitespaceNormalizedMatch collapses runs of whitespace in both content
// and search text, then finds the match by comparing normalized lines.
// When found, it maps back to the original content line boundaries.
func whitespaceNormalizedMatch(content, search string) *matchResult {
	normSearchLines := normalizeLines(search)
	if len(normSearchLines) == 0 {
		return nil
	}

	contentLines := strings.Split(content, "\n")
	normContentLines := make([]string, len(contentLines))
	for i, line := range contentLines {
		normContentLines[i] = collapseSpaces(strings.TrimSpace(line))
	}

	// Slide a window of len(normSearchLines) over normContentLines.
	searchLen := len(normSearchLines)
	for i := 0; i <= len(normContentLines)-searchLen; i++ {
		match := true
		for j := 0; j < searchLen; j++ {
			if normContentLines[i+j] != normSearchLines[j] {
				match = false
				break
			}
		}
		if match {
			start := byteOffsetOfLine(contentLines, i)
			end := min(byteOffsetOfLine(contentLines, i+searchLen), len(content))
			return &matchResult{
				start:      start,
				end:        end,
				stage:      types.StageWhitespaceNormalized,
				similarity: 1.0,
			}
		}
	}

	return nil
}

// normalizeLines splits text into lines and normalizes each line by
// trimming whitespace and collapsing runs of spaces.
func normalizeLines(s string) []string {
	lines := strings.Split(s, "\n")
	// Remove trailing empty line from a terminal newline.
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	result := make([]string, len(lines))
	for i, line := range lines {
		result[i] = collapseSpaces(strings.TrimSpace(line))
	}
	return result
}

// fuzzyMatch scans content for the line window most similar to search.
// Returns the best candidate meeting the threshold, plus the similarity of
// the best candidate whose window does not overlap it. Overlapping windows
// are near-copies of each other by construction and would make every fuzzy
// match look ambiguous.
func fuzzyMatch(content, search string, threshold float64) (*matchResult, float64) {
	if search == "" || content == "" {
		return nil, 0
	}

	contentLines := strings.Split(content, "\n")
	searchLines := strings.Split(search, "\n")
	if len(searchLines) > 0 && searchLines[len(searchLines)-1] == "" {
		searchLines = searchLines[:len(searchLines)-1]
	}
	searchLen := len(searchLines)
	if searchLen == 0 {
		return nil, 0
	}

	if searchLen > len(contentLines) {
		sim := similarity(content, search)
		if sim >= threshold {
			return &matchResult{
				start:      0,
				end:        len(content),
				stage:      types.StageFuzzy,
				similarity: sim,
			}, 0
		}
		return nil, 0
	}

	type candidate struct {
		line int
		sim  float64
	}
	var candidates []candidate
	searchText := strings.Join(searchLines, "\n")
	for i := 0; i <= len(contentLines)-searchLen; i++ {
		window := strings.Join(contentLines[i:i+searchLen], "\n")
		sim := similarity(window, searchText)
		if sim >= threshold {
			candidates = append(candidates, candidate{line: i, sim: sim})
		}
	}
	if len(candidates) == 0 {
		return nil, 0
	}

	best := candidates[0]
	for _, c := range candidates[1:] {
		if c.sim > best.sim {
			best = c
		}
	}
	runnerUp := 0.0
	for _, c := range candidates {
		overlap := c.line < best.line+searchLen && best.line < c.line+searchLen
		if !overlap && c.sim > runnerUp {
			runnerUp = c.sim
		}
	}

	start := byteOffsetOfLine(contentLines, best.line)
	end := min(byteOffsetOfLine(contentLines, best.line+searchLen), len(content))
	return &matchResult{
		start:      start,
		end:        end,
		stage:      types.StageFuzzy,
		similarity: best.sim,
	}, runnerUp
}

// findClosestMatch finds the best partial match in content for diagnostics.
// Returns the closest match text, its similarity, and line range (1-based).
func findClosestMatch(content, search string) (closest string, sim float64, lineStart, lineEnd int) {
	if search == "" || content == "" {
		return "", 0, 0, 0
	}

	contentLines := strings.Split(content, "\n")
	searchLines := strings.Split(search, "\n")
	searchLen := len(searchLines)

	if searchLen > len(contentLines) {
		searchLen = len(contentLines)
	}

	var bestSim float64
	var bestStart int

	for i := 0; i <= len(contentLines)-searchLen; i++ {
		window := strings.Join(contentLines[i:i+searchLen], "\n")
		s := similarity(window, search)
		if s > bestSim {
			bestSim = s
			bestStart = i
		}
	}

	if bestSim > 0 {
		closest = strings.Join(contentLines[bestStart:bestStart+searchLen], "\n")
		return closest, bestSim, bestStart + 1, bestStart + searchLen
	}

	return "", 0, 0, 0
}

// similarity computes the Levenshtein-based similarity ratio between two
// strings using the go-diff library. Returns a value between 0.0 and 1.0.
func similarity(a, b string) float64 {
	if a == b {
		return 1.0
	}
	if a == "" || b == "" {
		return 0.0
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(a, b, false)
	distance := dmp.DiffLevenshtein(diffs)
	maxLen := len(a)
	if len(b) > maxLen {
		maxLen = len(b)
	}
	return 1.0 - float64(distance)/float64(maxLen)
}

// collapseSpaces replaces runs of spaces and tabs with a single space.
func collapseSpaces(s string) string {
	var b strings.Builder
	inSpace := false
	for _, r := range s {
		if r == ' ' || r == '\t' {
			if !inSpace {
				b.WriteByte(' ')
				inSpace = true
			}
		} else {
			b.WriteRune(r)
			inSpace = false
		}
	}
	return b.String()
}

// byteOffsetOfLine returns the byte offset of the start of line idx
// in the content reconstructed from lines.
func byteOffsetOfLine(lines []string, idx int) int {
	offset := 0
	for i := 0; i < idx; i++ {
		offset += len(lines[i]) + 1 // +1 for newline
	}
	return offset
}

// Copyright (c) 2026 The aider authors. All rights reserved.
// SPDX-License-Identifier: MIT

package editor

import (
	"fmt"
	"strings"

	"github.com/gregm711/aider/pkg/types"
)

const defaultOffsetWindow = 3

// applyHunks applies unified-diff hunks to content in order, each against
// the result of the previous one. A hunk anchors at its declared old-file
// position adjusted by the line delta of already-applied hunks, then
// searches nearby positions up to window lines away to tolerate upstream
// drift. Context and delete lines are compared after trailing-whitespace
// trim. A hunk that matches nowhere in the window fails the whole call
// with the original content untouched.
func applyHunks(content string, hunks []types.Hunk, window int) (string, *types.ApplyFailure) {
	if window <= 0 {
		window = defaultOffsetWindow
	}

	lines := strings.Split(content, "\n")
	trailingNewline := false
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
		trailingNewline = true
	}
	if content == "" {
		lines = nil
		trailingNewline = false
	}

	delta := 0
	for _, hunk := range hunks {
		oldBlock, newBlock := hunkBlocks(hunk)
		anchor := hunk.OldStart - 1 + delta

		pos, ok := locateHunk(lines, oldBlock, anchor, window)
		if !ok {
			closest, sim, lineStart, lineEnd := findClosestMatch(
				strings.Join(lines, "\n"), strings.Join(oldBlock, "\n"))
			return "", &types.ApplyFailure{
				Kind:             types.FailNotFound,
				Snippet:          renderHunk(hunk),
				ClosestMatch:     closest,
				Similarity:       sim,
				ClosestLineStart: lineStart,
				ClosestLineEnd:   lineEnd,
			}
		}

		updated := make([]string, 0, len(lines)+len(newBlock)-len(oldBlock))
		updated = append(updated, lines[:pos]...)
		updated = append(updated, newBlock...)
		updated = append(updated, lines[pos+len(oldBlock):]...)
		lines = updated
		delta += len(newBlock) - len(oldBlock)
	}

	out := strings.Join(lines, "\n")
	if out != "" && (trailingNewline || content == "") {
		out += "\n"
	}
	return out, nil
}

// hunkBlocks splits a hunk body into the lines it expects to find (context
// and deletes) and the lines that replace them (context and adds).
func hunkBlocks(h types.Hunk) (oldBlock, newBlock []string) {
	for _, l := range h.Lines {
		switch l.Op {
		case types.HunkContext:
			oldBlock = append(oldBlock, l.Text)
			newBlock = append(newBlock, l.Text)
		case types.HunkDelete:
			oldBlock = append(oldBlock, l.Text)
		case types.HunkAdd:
			newBlock = append(newBlock, l.Text)
		}
	}
	return oldBlock, newBlock
}

// locateHunk finds the line position where oldBlock matches, trying the
// anchor first and then alternating offsets outward up to window lines.
func locateHunk(lines, oldBlock []string, anchor, window int) (int, bool) {
	if len(oldBlock) == 0 {
		// Pure insertion: clamp the anchor into range.
		pos := anchor
		if pos < 0 {
			pos = 0
		}
		if pos > len(lines) {
			pos = len(lines)
		}
		return pos, true
	}

	for off := 0; off <= window; off++ {
		for _, pos := range []int{anchor + off, anchor - off} {
			if pos < 0 || pos+len(oldBlock) > len(lines) {
				continue
			}
			if blockMatches(lines, oldBlock, pos) {
				return pos, true
			}
			if off == 0 {
				break
			}
		}
	}
	return 0, false
}

func blockMatches(lines, oldBlock []string, pos int) bool {
	for i, want := range oldBlock {
		if strings.TrimRight(lines[pos+i], " \t") != strings.TrimRight(want, " \t") {
			return false
		}
	}
	return true
}

// renderHunk reconstructs a hunk's text for failure reporting.
func renderHunk(h types.Hunk) string {
	var b strings.Builder
	fmt.Fprintf(&b, "@@ -%d,%d +%d,%d @@\n", h.OldStart, h.OldLines, h.NewStart, h.NewLines)
	for _, l := range h.Lines {
		b.WriteByte(byte(l.Op))
		b.WriteString(l.Text)
		b.WriteByte('\n')
	}
	return b.String()
}

// Copyright (c) 2026 The aider authors. All rights reserved.
// SPDX-License-Identifier: MIT

package editformat

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/gregm711/aider/pkg/types"
)

// hunkHeaderRegex matches unified diff hunk headers:
// @@ -10,5 +12,6 @@ optional section
var hunkHeaderRegex = regexp.MustCompile(`^@@ -(\d+)(?:,(\d+))? \+(\d+)(?:,(\d+))? @@`)

// parseUnifiedDiff extracts unified-diff file sections. Each section is a
// ---/+++ header pair followed by one or more @@ hunks; markdown fences
// around the diff are tolerated. One directive is produced per file
// section, carrying all of its hunks in order.
func parseUnifiedDiff(response string) *ParseResult {
	result := &ParseResult{}
	lines := strings.Split(response, "\n")
	var reasoning strings.Builder
	i := 0

	for i < len(lines) {
		line := lines[i]

		if !strings.HasPrefix(line, "--- ") {
			// Hunk headers outside a file section are reported, not dropped
			// silently.
			if hunkHeaderRegex.MatchString(line) {
				result.Failures = append(result.Failures, &ParseFailure{
					Kind:    UnknownFormatMarker,
					Line:    i + 1,
					RawText: line,
					Message: "hunk header without a preceding ---/+++ file header",
				})
			} else if !isMarkdownFence(line) {
				appendReasoning(&reasoning, line)
			}
			i++
			continue
		}

		headerIdx := i
		result.BlocksFound++

		if i+1 >= len(lines) || !strings.HasPrefix(lines[i+1], "+++ ") {
			result.Failures = append(result.Failures, &ParseFailure{
				Kind:    MalformedBlock,
				Line:    headerIdx + 1,
				RawText: reconstructBlock(lines, headerIdx, headerIdx+2),
				Message: "--- header without matching +++ header",
			})
			i++
			continue
		}

		oldPath := stripDiffPath(line[4:])
		newPath := stripDiffPath(lines[i+1][4:])
		filePath := newPath
		if filePath == "" || filePath == "/dev/null" {
			filePath = oldPath
		}
		i += 2

		hunks, next, failure := parseHunks(lines, i, headerIdx)
		i = next
		if failure != nil {
			result.Failures = append(result.Failures, failure)
			continue
		}
		if filePath == "" {
			result.Failures = append(result.Failures, &ParseFailure{
				Kind:    MalformedBlock,
				Line:    headerIdx + 1,
				RawText: reconstructBlock(lines, headerIdx, i),
				Message: "diff header carries no usable file path",
			})
			continue
		}

		result.Directives = append(result.Directives, types.UnifiedDiff{
			FilePath: filePath,
			Hunks:    hunks,
		})
		result.BlocksParsed++
	}

	result.ReasoningText = strings.TrimSpace(reasoning.String())
	return result
}

// parseHunks collects every @@ hunk following a file header. It stops at
// the next file header, a markdown fence, or a prose line. A section with
// no hunks at all is malformed; a hunk cut off by end of input is truncated.
func parseHunks(lines []string, start, headerIdx int) ([]types.Hunk, int, *ParseFailure) {
	var hunks []types.Hunk
	i := start

	for i < len(lines) {
		m := hunkHeaderRegex.FindStringSubmatch(lines[i])
		if m == nil {
			break
		}
		hunkIdx := i
		hunk := types.Hunk{
			OldStart: mustAtoi(m[1]),
			OldLines: atoiDefault(m[2], 1),
			NewStart: mustAtoi(m[3]),
			NewLines: atoiDefault(m[4], 1),
		}
		i++

		for i < len(lines) {
			l := lines[i]
			if hunkHeaderRegex.MatchString(l) || strings.HasPrefix(l, "--- ") || isMarkdownFence(l) {
				break
			}
			if l == "" {
				// Tolerate a bare blank line as empty context; models drop
				// the leading space routinely.
				hunk.Lines = append(hunk.Lines, types.HunkLine{Op: types.HunkContext, Text: ""})
				i++
				continue
			}
			op := types.HunkOp(l[0])
			if op != types.HunkContext && op != types.HunkDelete && op != types.HunkAdd {
				break
			}
			hunk.Lines = append(hunk.Lines, types.HunkLine{Op: op, Text: l[1:]})
			i++
		}

		if len(hunk.Lines) == 0 {
			kind := MalformedBlock
			msg := "hunk header with an empty body"
			if i >= len(lines) {
				kind = TruncatedInput
				msg = "response ended inside a hunk"
			}
			return nil, i, &ParseFailure{
				Kind:    kind,
				Line:    hunkIdx + 1,
				RawText: reconstructBlock(lines, headerIdx, i),
				Message: msg,
			}
		}

		// Trim trailing blank context introduced by the blank-line tolerance.
		for len(hunk.Lines) > 0 {
			last := hunk.Lines[len(hunk.Lines)-1]
			if last.Op == types.HunkContext && last.Text == "" {
				hunk.Lines = hunk.Lines[:len(hunk.Lines)-1]
				continue
			}
			break
		}
		if len(hunk.Lines) == 0 {
			continue
		}

		hunks = append(hunks, hunk)
	}

	if len(hunks) == 0 {
		return nil, i, &ParseFailure{
			Kind:    MalformedBlock,
			Line:    headerIdx + 1,
			RawText: reconstructBlock(lines, headerIdx, i+1),
			Message: "file header without any hunks",
		}
	}
	return hunks, i, nil
}

// stripDiffPath removes a/ b/ prefixes and trailing timestamps from a diff
// header path.
func stripDiffPath(s string) string {
	s = strings.TrimSpace(s)
	if idx := strings.IndexByte(s, '\t'); idx >= 0 {
		s = s[:idx]
	}
	s = strings.TrimPrefix(s, "a/")
	s = strings.TrimPrefix(s, "b/")
	return s
}

func mustAtoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, _ := strconv.Atoi(s)
	return n
}

// Copyright (c) 2026 The aider authors. All rights reserved.
// SPDX-License-Identifier: MIT

package editformat

import (
	"strings"

	"github.com/gregm711/aider/pkg/types"
)

const (
	markerSearch  = "<<<<<<< SEARCH"
	markerDivider = "======="
	markerReplace = ">>>>>>> REPLACE"
)

// parseSearchReplace extracts SEARCH/REPLACE blocks. Each block is preceded
// by its file path line:
//
//	path/to/file.go
//	<<<<<<< SEARCH
//	old text
//	=======
//	new text
//	>>>>>>> REPLACE
func parseSearchReplace(response string) *ParseResult {
	result := &ParseResult{}
	lines := strings.Split(response, "\n")
	var reasoning strings.Builder
	i := 0

	for i < len(lines) {
		searchIdx := -1
		for j := i; j < len(lines); j++ {
			if isMarker(lines[j], markerSearch) {
				searchIdx = j
				break
			}
			// A REPLACE marker with no open block is model confusion worth
			// reporting, not silently treating as prose.
			if isMarker(lines[j], markerReplace) {
				result.Failures = append(result.Failures, &ParseFailure{
					Kind:    UnknownFormatMarker,
					Line:    j + 1,
					RawText: lines[j],
					Message: "REPLACE marker without a matching SEARCH block",
				})
			}
		}

		if searchIdx < 0 {
			for ; i < len(lines); i++ {
				appendReasoning(&reasoning, lines[i])
			}
			break
		}

		// Everything before this block is reasoning text, except the line
		// immediately before SEARCH, which is the file path. A markdown
		// fence may sit between the path and the marker.
		filePathLine := searchIdx - 1
		if filePathLine >= 0 && isMarkdownFence(lines[filePathLine]) {
			filePathLine--
		}
		for ; i < filePathLine; i++ {
			appendReasoning(&reasoning, lines[i])
		}

		filePath := ""
		if filePathLine >= 0 {
			filePath = extractFilePath(lines[filePathLine])
		}

		i = searchIdx + 1
		result.BlocksFound++

		searchText, next, foundDivider := collectUntil(lines, i, markerDivider)
		i = next
		if !foundDivider {
			result.Failures = append(result.Failures, &ParseFailure{
				Kind:    TruncatedInput,
				Line:    searchIdx + 1,
				RawText: reconstructBlock(lines, searchIdx, i),
				Message: "response ended before ======= divider",
			})
			continue
		}

		replaceText, next, foundReplace := collectUntil(lines, i, markerReplace)
		i = next
		if !foundReplace {
			result.Failures = append(result.Failures, &ParseFailure{
				Kind:    TruncatedInput,
				Line:    searchIdx + 1,
				RawText: reconstructBlock(lines, searchIdx, i),
				Message: "response ended before >>>>>>> REPLACE marker",
			})
			continue
		}

		// Skip a trailing markdown fence after the REPLACE marker.
		if i < len(lines) && isMarkdownFence(lines[i]) {
			i++
		}

		if filePath == "" {
			result.Failures = append(result.Failures, &ParseFailure{
				Kind:    MalformedBlock,
				Line:    searchIdx + 1,
				RawText: reconstructBlock(lines, searchIdx, i),
				Message: "missing file path before <<<<<<< SEARCH marker",
			})
			continue
		}

		// The block format omits the final newline before each marker.
		if searchText != "" {
			searchText += "\n"
		}
		if replaceText != "" {
			replaceText += "\n"
		}

		result.Directives = append(result.Directives, types.SearchReplace{
			FilePath: filePath,
			Search:   searchText,
			Replace:  replaceText,
		})
		result.BlocksParsed++
	}

	result.ReasoningText = strings.TrimSpace(reasoning.String())
	return result
}

// collectUntil gathers lines from start until the marker line. Returns the
// joined text, the index after the marker (or len(lines)), and whether the
// marker was found.
func collectUntil(lines []string, start int, marker string) (string, int, bool) {
	var b strings.Builder
	i := start
	for i < len(lines) {
		if isMarker(lines[i], marker) {
			return b.String(), i + 1, true
		}
		if b.Len() > 0 {
			b.WriteByte('\n')
		}
		b.WriteString(lines[i])
		i++
	}
	return b.String(), i, false
}

// appendReasoning adds a line to the reasoning text builder.
func appendReasoning(b *strings.Builder, line string) {
	if b.Len() > 0 {
		b.WriteByte('\n')
	}
	b.WriteString(line)
}

// Copyright (c) 2026 The aider authors. All rights reserved.
// SPDX-License-Identifier: MIT

package editformat

import (
	"strings"

	"github.com/gregm711/aider/pkg/types"
)

// parseWholeFile extracts whole-file blocks. Each block is a file path line
// followed by a fenced code block holding the file's entire new content:
//
//	path/to/file.go
//	```go
//	package main
//	...
//	```
func parseWholeFile(response string) *ParseResult {
	result := &ParseResult{}
	lines := strings.Split(response, "\n")
	var reasoning strings.Builder
	i := 0

	for i < len(lines) {
		if !isMarkdownFence(lines[i]) {
			appendReasoning(&reasoning, lines[i])
			i++
			continue
		}

		fenceIdx := i
		result.BlocksFound++

		// The path is the last non-blank line before the fence.
		filePath := ""
		pathIdx := fenceIdx - 1
		for pathIdx >= 0 && strings.TrimSpace(lines[pathIdx]) == "" {
			pathIdx--
		}
		if pathIdx >= 0 {
			filePath = extractFilePath(lines[pathIdx])
		}

		// Collect content until the closing fence.
		i = fenceIdx + 1
		var content strings.Builder
		closed := false
		for i < len(lines) {
			if isMarkdownFence(lines[i]) {
				closed = true
				i++
				break
			}
			content.WriteString(lines[i])
			content.WriteByte('\n')
			i++
		}

		if !closed {
			result.Failures = append(result.Failures, &ParseFailure{
				Kind:    TruncatedInput,
				Line:    fenceIdx + 1,
				RawText: reconstructBlock(lines, fenceIdx, i),
				Message: "response ended before closing fence",
			})
			continue
		}

		if filePath == "" {
			result.Failures = append(result.Failures, &ParseFailure{
				Kind:    MalformedBlock,
				Line:    fenceIdx + 1,
				RawText: reconstructBlock(lines, fenceIdx, i),
				Message: "missing file path before fenced block",
			})
			continue
		}

		result.Directives = append(result.Directives, types.WholeFile{
			FilePath: filePath,
			Content:  content.String(),
		})
		result.BlocksParsed++
	}

	result.ReasoningText = strings.TrimSpace(reasoning.String())
	return result
}

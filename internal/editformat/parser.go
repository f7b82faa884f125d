// Copyright (c) 2026 The aider authors. All rights reserved.
// SPDX-License-Identifier: MIT

// Package editformat parses raw model responses into edit directives.
// Parsing is streaming and line-oriented; a malformed block never aborts
// the rest of the scan, so a valid directive is never dropped because a
// sibling is malformed.
package editformat

import (
	"fmt"
	"strings"

	"github.com/gregm711/aider/pkg/types"
)

// FailureKind classifies a parse failure.
type FailureKind int

const (
	UnknownFormatMarker FailureKind = iota // Marker line with no open block
	MalformedBlock                         // Block structure violated
	TruncatedInput                         // Response ended inside an open block
)

func (k FailureKind) String() string {
	switch k {
	case UnknownFormatMarker:
		return "unknown_format_marker"
	case MalformedBlock:
		return "malformed_block"
	case TruncatedInput:
		return "truncated_input"
	default:
		return "unknown"
	}
}

// ParseFailure describes one malformed region of the response.
type ParseFailure struct {
	Kind    FailureKind
	Line    int    // Line number where the region starts (1-based)
	RawText string // The raw text of the offending region
	Message string // What went wrong
}

func (f *ParseFailure) Error() string {
	return fmt.Sprintf("parse failure (%s) at line %d: %s", f.Kind, f.Line, f.Message)
}

// NoEditsFoundError is returned when the response contains no edit blocks.
type NoEditsFoundError struct{}

func (e *NoEditsFoundError) Error() string {
	return "no edit blocks found in response"
}

// ParseResult holds the outcome of parsing one model response.
type ParseResult struct {
	Directives    []types.Directive // Successfully parsed directives, in response order
	Failures      []*ParseFailure   // Failures from malformed regions
	ReasoningText string            // Non-edit text from the response
	BlocksFound   int               // Total blocks attempted
	BlocksParsed  int               // Blocks that produced valid directives
}

// Parse extracts directives from a raw model response using the active edit
// format. Directives for a given path keep their response order; the applier
// relies on that order. When the response contains neither blocks nor
// recognizable fragments of one, returns a NoEditsFoundError; stray markers
// and malformed regions are reported as failures so the caller can retry.
func Parse(response string, format types.EditFormat) (*ParseResult, error) {
	if !format.Valid() {
		return nil, fmt.Errorf("unsupported edit format %q", format)
	}
	if strings.TrimSpace(response) == "" {
		return nil, &NoEditsFoundError{}
	}

	var result *ParseResult
	switch format {
	case types.FormatSearchReplace:
		result = parseSearchReplace(response)
	case types.FormatWholeFile:
		result = parseWholeFile(response)
	case types.FormatUnifiedDiff:
		result = parseUnifiedDiff(response)
	}

	if result.BlocksFound == 0 && len(result.Failures) == 0 {
		return nil, &NoEditsFoundError{}
	}
	return result, nil
}

// extractFilePath cleans a file path line, stripping markdown fences,
// backticks, and surrounding whitespace. Returns "" when the line does not
// look like a path.
func extractFilePath(line string) string {
	s := strings.TrimSpace(line)

	if isMarkdownFence(s) {
		return ""
	}

	s = strings.Trim(s, "`")
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ":")

	// A line with interior spaces and no path separator is prose.
	if strings.ContainsAny(s, " \t") && !strings.Contains(s, "/") {
		return ""
	}

	return s
}

// isMarker checks if a line matches a marker, allowing surrounding whitespace.
func isMarker(line, marker string) bool {
	return strings.TrimSpace(line) == marker
}

// isMarkdownFence checks if a line is a markdown fence (``` with optional language).
func isMarkdownFence(line string) bool {
	return strings.HasPrefix(strings.TrimSpace(line), "```")
}

// reconstructBlock joins lines from start to end for failure reporting.
func reconstructBlock(lines []string, start, end int) string {
	if end > len(lines) {
		end = len(lines)
	}
	if start < 0 {
		start = 0
	}
	return strings.Join(lines[start:end], "\n")
}

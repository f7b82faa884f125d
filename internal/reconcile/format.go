// Copyright (c) 2026 The aider authors. All rights reserved.
// SPDX-License-Identifier: MIT

// Package reconcile turns parse and apply failures into retry guidance for
// the model and drives the bounded retry loop around it.
package reconcile

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"github.com/spf13/afero"

	"github.com/gregm711/aider/internal/editformat"
	"github.com/gregm711/aider/pkg/types"
)

const defaultContextLines = 5

// FormatConfig configures diagnostic formatting.
type FormatConfig struct {
	FS           afero.Fs // Filesystem for nearby-context reads. Defaults to the OS filesystem.
	WorkDir      string   // Prepended to failure paths when reading context
	ContextLines int      // Lines of context above/below the closest match (default 5)
}

// FormatFailures produces a follow-up prompt from one response's parse and
// apply failures. Each failed edit is shown with its snippet, a unified
// diff against the closest match in the file, and the surrounding file
// context with line numbers. Guidance sharpens as attempt grows.
func FormatFailures(parseFailures []*editformat.ParseFailure, fileResults []types.FileResult, attempt int, cfg FormatConfig) string {
	contextLines := cfg.ContextLines
	if contextLines == 0 {
		contextLines = defaultContextLines
	}

	var buf strings.Builder
	buf.WriteString(guidance(attempt))
	buf.WriteString("\n\n")

	if len(parseFailures) > 0 {
		buf.WriteString("## Malformed Edit Blocks\n\n")
		for _, pf := range parseFailures {
			buf.WriteString(fmt.Sprintf("### Line %d: %s\n\n%s\n\n", pf.Line, pf.Kind, pf.Message))
			if pf.RawText != "" {
				buf.WriteString("```\n")
				buf.WriteString(strings.TrimRight(pf.RawText, "\n"))
				buf.WriteString("\n```\n\n")
			}
		}
	}

	for _, fr := range fileResults {
		failures := fr.Failures()
		if len(failures) == 0 {
			continue
		}
		buf.WriteString(fmt.Sprintf("## Failed Edits in %s\n\n", fr.FilePath))
		if !fr.Committed && len(failures) < len(fr.Results) {
			buf.WriteString("No edits were applied to this file: the edits that matched were rolled back when a sibling edit failed. Resend every edit for this file, including the ones that matched.\n\n")
		}
		for _, f := range failures {
			formatFailure(&buf, f, contextLines, cfg)
		}
	}

	return buf.String()
}

func formatFailure(buf *strings.Builder, f *types.ApplyFailure, contextLines int, cfg FormatConfig) {
	buf.WriteString(fmt.Sprintf("### %s\n\n", f.Kind))

	switch f.Kind {
	case types.FailIO:
		buf.WriteString(fmt.Sprintf("%v\n\n", f.Err))
		return
	case types.FailConflictingEdits:
		buf.WriteString("This edit was skipped because an earlier edit to the same file failed. Resend it after fixing the failed edit.\n\n")
		return
	}

	if f.Snippet != "" {
		buf.WriteString("The edit tried to match:\n\n```\n")
		buf.WriteString(strings.TrimRight(f.Snippet, "\n"))
		buf.WriteString("\n```\n\n")
	}

	if f.ClosestMatch != "" {
		buf.WriteString(fmt.Sprintf("Closest match in the file (lines %d-%d, similarity %.2f):\n\n```\n",
			f.ClosestLineStart, f.ClosestLineEnd, f.Similarity))
		buf.WriteString(strings.TrimRight(f.ClosestMatch, "\n"))
		buf.WriteString("\n```\n\n")

		if diff := snippetDiff(f.Snippet, f.ClosestMatch); diff != "" {
			buf.WriteString("Difference between your text and the file:\n\n```diff\n")
			buf.WriteString(strings.TrimRight(diff, "\n"))
			buf.WriteString("\n```\n\n")
		}

		if context := fileContext(f.FilePath, f.ClosestLineStart, f.ClosestLineEnd, contextLines, cfg); context != "" {
			buf.WriteString("File context:\n\n```\n")
			buf.WriteString(context)
			buf.WriteString("```\n\n")
		}
	}
}

// guidance returns the retry preamble, more prescriptive on later attempts.
func guidance(attempt int) string {
	switch {
	case attempt <= 1:
		return "Some edits could not be applied. Fix the failed edits below and resend them in the same edit format. Edits to files not listed below were applied and must not be resent."
	case attempt == 2:
		return "The corrected edits still failed. The search text must match the current file content exactly, character for character, including whitespace and indentation. Copy the text from the file context below rather than retyping it."
	default:
		return "Repeated attempts to apply these edits have failed. Abandon the failing search text entirely: copy the exact lines from the file context below into a fresh edit block, and keep each edit as small as possible."
	}
}

// snippetDiff renders a unified diff between the failed search text and the
// closest match found in the file.
func snippetDiff(search, closest string) string {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(strings.TrimRight(search, "\n") + "\n"),
		B:        difflib.SplitLines(strings.TrimRight(closest, "\n") + "\n"),
		FromFile: "your edit",
		ToFile:   "file content",
		Context:  3,
	})
	if err != nil {
		return ""
	}
	return diff
}

// fileContext reads the file and renders numbered lines around the closest
// match, marking the matched range.
func fileContext(relPath string, lineStart, lineEnd, contextLines int, cfg FormatConfig) string {
	fs := cfg.FS
	if fs == nil {
		fs = afero.NewOsFs()
	}
	path := relPath
	if cfg.WorkDir != "" {
		path = cfg.WorkDir + "/" + relPath
	}

	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return ""
	}

	lines := strings.Split(string(data), "\n")
	start := lineStart - contextLines - 1 // Convert to 0-based
	if start < 0 {
		start = 0
	}
	end := lineEnd + contextLines
	if end > len(lines) {
		end = len(lines)
	}

	var buf strings.Builder
	for i := start; i < end; i++ {
		lineNum := i + 1
		marker := "  "
		if lineNum >= lineStart && lineNum <= lineEnd {
			marker = "> "
		}
		buf.WriteString(fmt.Sprintf("%s%4d │ %s\n", marker, lineNum, lines[i]))
	}

	return buf.String()
}

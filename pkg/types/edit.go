// Copyright (c) 2026 The aider authors. All rights reserved.
// SPDX-License-Identifier: MIT

package types

import "fmt"

// Directive is one structured edit instruction extracted from a model
// response. It is a closed variant: the only implementations are WholeFile,
// SearchReplace, and UnifiedDiff, so consumers can switch exhaustively over
// the three kinds.
type Directive interface {
	// TargetPath returns the file the directive applies to, relative to
	// the repository root.
	TargetPath() string

	directive()
}

// WholeFile replaces (or creates, per policy) the entire content of a file.
type WholeFile struct {
	FilePath string
	Content  string
}

// SearchReplace replaces the first qualifying occurrence of Search with
// Replace. An empty Search means append.
type SearchReplace struct {
	FilePath string
	Search   string
	Replace  string
}

// UnifiedDiff applies one or more unified-diff hunks to a file.
type UnifiedDiff struct {
	FilePath string
	Hunks    []Hunk
}

func (d WholeFile) TargetPath() string     { return d.FilePath }
func (d SearchReplace) TargetPath() string { return d.FilePath }
func (d UnifiedDiff) TargetPath() string   { return d.FilePath }

func (WholeFile) directive()     {}
func (SearchReplace) directive() {}
func (UnifiedDiff) directive()   {}

// HunkOp identifies the role of one line in a unified-diff hunk.
type HunkOp byte

const (
	HunkContext HunkOp = ' '
	HunkDelete  HunkOp = '-'
	HunkAdd     HunkOp = '+'
)

// HunkLine is a single line of a hunk body, without the leading op byte.
type HunkLine struct {
	Op   HunkOp
	Text string
}

// Hunk is a contiguous change block with surrounding context lines and a
// declared anchor position from the @@ header.
type Hunk struct {
	OldStart int // 1-based line in the original file
	OldLines int
	NewStart int // 1-based line in the new file
	NewLines int
	Lines    []HunkLine
}

// MatchStage identifies which matching strategy located the target region.
type MatchStage int

const (
	StageExact                MatchStage = iota // Byte-for-byte match
	StageWhitespaceNormalized                   // Whitespace-collapsed match
	StageFuzzy                                  // Similarity-threshold match
	StageNone                                   // No match found
)

func (s MatchStage) String() string {
	switch s {
	case StageExact:
		return "exact"
	case StageWhitespaceNormalized:
		return "whitespace_normalized"
	case StageFuzzy:
		return "fuzzy"
	case StageNone:
		return "none"
	default:
		return "unknown"
	}
}

// ApplyFailureKind classifies why a directive could not be applied.
type ApplyFailureKind int

const (
	FailNotFound         ApplyFailureKind = iota // No candidate cleared the threshold
	FailAmbiguous                                // Two or more candidates tied within the margin
	FailConflictingEdits                         // A sibling directive already failed for this file
	FailIO                                       // Filesystem error; fatal for the directive
)

func (k ApplyFailureKind) String() string {
	switch k {
	case FailNotFound:
		return "not_found"
	case FailAmbiguous:
		return "ambiguous"
	case FailConflictingEdits:
		return "conflicting_edits"
	case FailIO:
		return "io_error"
	default:
		return "unknown"
	}
}

// ApplyFailure describes why a directive failed, with enough detail for the
// reconciliation controller to format a useful retry message.
type ApplyFailure struct {
	Kind             ApplyFailureKind
	FilePath         string  // File where the apply was attempted
	Snippet          string  // The search text or hunk that failed
	ClosestMatch     string  // Best partial match found (empty if none)
	Similarity       float64 // Similarity score of the closest match
	ClosestLineStart int     // Starting line of the closest match (1-based)
	ClosestLineEnd   int     // Ending line of the closest match (1-based)
	Err              error   // Underlying error for FailIO
}

func (f *ApplyFailure) Error() string {
	switch f.Kind {
	case FailAmbiguous:
		return fmt.Sprintf("ambiguous match in %s: multiple candidates within margin (best similarity %.2f)",
			f.FilePath, f.Similarity)
	case FailConflictingEdits:
		return fmt.Sprintf("skipped edit in %s: an earlier edit for this file failed", f.FilePath)
	case FailIO:
		return fmt.Sprintf("io error in %s: %v", f.FilePath, f.Err)
	}
	if f.ClosestMatch == "" {
		return fmt.Sprintf("no match found in %s", f.FilePath)
	}
	return fmt.Sprintf("no match in %s (closest match at lines %d-%d, similarity %.2f)",
		f.FilePath, f.ClosestLineStart, f.ClosestLineEnd, f.Similarity)
}

// ApplyResult describes the outcome of applying a single directive.
// Exactly one of Failure == nil (success) or Failure != nil holds.
type ApplyResult struct {
	FilePath   string        // File the directive targeted
	Stage      MatchStage    // Matching stage that succeeded (StageNone on failure)
	Similarity float64       // 1.0 for exact/whitespace matches
	Failure    *ApplyFailure // Non-nil when the directive failed
}

// OK reports whether the directive applied cleanly.
func (r ApplyResult) OK() bool { return r.Failure == nil }

// FileResult groups the apply outcomes for one target file. Committed is
// true only when the file's working copy was written back to storage; on
// any failure without partial commit the on-disk file is byte-identical to
// before the attempt.
type FileResult struct {
	FilePath  string
	Committed bool
	Results   []ApplyResult
}

// Failures returns the failed results for the file, in directive order.
func (fr FileResult) Failures() []*ApplyFailure {
	var out []*ApplyFailure
	for _, r := range fr.Results {
		if r.Failure != nil {
			out = append(out, r.Failure)
		}
	}
	return out
}

// EditFormat selects the wire format parsed out of model responses.
type EditFormat string

const (
	FormatSearchReplace EditFormat = "search-replace"
	FormatWholeFile     EditFormat = "whole-file"
	FormatUnifiedDiff   EditFormat = "udiff"
)

// Valid reports whether the format is one of the three supported values.
func (f EditFormat) Valid() bool {
	switch f {
	case FormatSearchReplace, FormatWholeFile, FormatUnifiedDiff:
		return true
	}
	return false
}

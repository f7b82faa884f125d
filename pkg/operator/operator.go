// Copyright (c) 2026 The aider authors. All rights reserved.
// SPDX-License-Identifier: MIT

// Package operator defines the public interface for aider, a
// repository-aware edit engine: ranked context selection, edit directive
// parsing, and transactional edit application driven by a model.
package operator

import (
	"context"
	"errors"

	"github.com/gregm711/aider/pkg/types"
)

// Error types for the Operator API.
var (
	ErrInvalidConfig = errors.New("invalid config")
	ErrModelFailure  = errors.New("model call failed")
	ErrParseFailure  = errors.New("failed to parse model response into edits")
)

// Config configures an Operator instance.
type Config struct {
	WorkDir    string           // Repository root (required)
	Model      string           // Bedrock model ID (required)
	Region     string           // AWS region (required)
	EditFormat types.EditFormat // Edit directive format (default search-replace)

	MaxRetries     int // Maximum reconciliation iterations (default 3)
	MapTokenBudget int // Token budget for the repository context (default 2048)
	MaxTokens      int // Maximum tokens for the model response (default 4096)

	FuzzyThreshold  float64 // Minimum similarity for fuzzy matches (default 0.8)
	AmbiguityMargin float64 // Required lead over the fuzzy runner-up (default 0.05)
	OffsetWindow    int     // Line drift tolerance for diff hunks (default 3)
	PartialCommit   bool    // Commit files whose directives partially applied
	AllowCreate     bool    // Permit directives to create new files

	MentionedFiles  []string // User-named files: mandatory context + rank seeds
	MentionedIdents []string // Identifiers from the conversation: rank seeds

	NoGit bool // Disable git operations
}

// Result holds the outcome of an Operator.Run invocation.
type Result struct {
	ModifiedFiles []string         // Paths of files changed
	Errors        []string         // Remaining errors after all retries
	TokensUsed    types.TokenUsage // Total tokens consumed
	Retries       int              // Number of retry iterations performed
	Success       bool             // True if no errors remain
}

// ParseFailure describes a malformed region in a model response.
type ParseFailure struct {
	Kind    string // unknown_format_marker, malformed_block, or truncated_input
	Line    int    // Line number where the region starts (1-based)
	Message string // What went wrong
}

// Operator runs edit tasks against a repository.
type Operator interface {
	// Run executes the full edit lifecycle: build the ranked repository
	// context, send the prompt to the model, parse directives, apply them
	// transactionally, reconcile failures with bounded retries, and return
	// the result.
	Run(ctx context.Context, prompt string) (*Result, error)

	// BuildContext returns the token-budgeted repository context as text,
	// seeded from the given files. A zero budget uses the configured one.
	BuildContext(ctx context.Context, seedFiles []string, tokenBudget int) (string, error)

	// ParseDirectives extracts edit directives from raw response text
	// using the configured edit format. Malformed regions are reported as
	// failures without discarding parseable siblings.
	ParseDirectives(raw string) ([]types.Directive, []ParseFailure, error)

	// ApplyDirectives applies directives under the configured matching and
	// commit policy, returning per-file results in first-seen path order.
	ApplyDirectives(ctx context.Context, directives []types.Directive) ([]types.FileResult, error)
}

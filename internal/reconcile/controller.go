// Copyright (c) 2026 The aider authors. All rights reserved.
// SPDX-License-Identifier: MIT

package reconcile

import (
	"context"
	"fmt"

	"github.com/gregm711/aider/internal/editformat"
	"github.com/gregm711/aider/pkg/types"
)

const defaultMaxRetries = 3

// RetryFunc is called on each retry with the formatted diagnostic. It
// should send the diagnostic to the model, parse the response, apply the
// resulting directives, and return the new outcome. A non-nil error aborts
// the loop.
type RetryFunc func(ctx context.Context, retryPrompt string) ([]types.FileResult, []*editformat.ParseFailure, error)

// Config configures the retry loop.
type Config struct {
	MaxRetries int          // Maximum retry iterations (default 3)
	Format     FormatConfig // Diagnostic formatting settings
}

// Result holds the outcome of the retry loop.
type Result struct {
	Success        bool               // Every directive applied and committed
	Attempts       int                // Retry iterations performed
	CommittedFiles []string           // Files committed across all iterations
	FileResults    []types.FileResult // Outcome of the last iteration
	LastDiagnostic string             // Diagnostic from the last failed iteration
}

// Run drives the retry loop over one response's outcome. When failures
// remain it formats a diagnostic, hands it to retryFn, and evaluates the
// new outcome, up to MaxRetries times. On exhaustion it returns the last
// diagnostic as a terminal failure; committed work from earlier iterations
// is never rolled back.
func Run(ctx context.Context, cfg Config, fileResults []types.FileResult, parseFailures []*editformat.ParseFailure, retryFn RetryFunc) (*Result, error) {
	maxRetries := cfg.MaxRetries
	if maxRetries == 0 {
		maxRetries = defaultMaxRetries
	}

	result := &Result{FileResults: fileResults}
	result.CommittedFiles = mergeCommitted(nil, fileResults)

	if clean(fileResults, parseFailures) {
		result.Success = true
		return result, nil
	}

	for i := 0; i < maxRetries; i++ {
		if err := ctx.Err(); err != nil {
			return result, fmt.Errorf("canceled after %d attempts: %w", result.Attempts, err)
		}

		result.Attempts++
		result.LastDiagnostic = FormatFailures(parseFailures, fileResults, result.Attempts, cfg.Format)

		var err error
		fileResults, parseFailures, err = retryFn(ctx, result.LastDiagnostic)
		if err != nil {
			return result, fmt.Errorf("retry %d: %w", result.Attempts, err)
		}

		result.FileResults = fileResults
		result.CommittedFiles = mergeCommitted(result.CommittedFiles, fileResults)

		if clean(fileResults, parseFailures) {
			result.Success = true
			return result, nil
		}
	}

	result.LastDiagnostic = FormatFailures(parseFailures, fileResults, result.Attempts+1, cfg.Format)
	return result, fmt.Errorf("retry limit (%d) exhausted with unapplied edits", maxRetries)
}

// clean reports whether an iteration produced no failures at all.
func clean(fileResults []types.FileResult, parseFailures []*editformat.ParseFailure) bool {
	if len(parseFailures) > 0 {
		return false
	}
	for _, fr := range fileResults {
		if len(fr.Failures()) > 0 || !fr.Committed {
			return false
		}
	}
	return true
}

// mergeCommitted adds newly committed file paths, deduplicating.
func mergeCommitted(existing []string, fileResults []types.FileResult) []string {
	seen := make(map[string]bool, len(existing))
	for _, f := range existing {
		seen[f] = true
	}
	merged := append([]string(nil), existing...)
	for _, fr := range fileResults {
		if fr.Committed && !seen[fr.FilePath] {
			merged = append(merged, fr.FilePath)
			seen[fr.FilePath] = true
		}
	}
	return merged
}

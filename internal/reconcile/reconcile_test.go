// Copyright (c) 2026 The aider authors. All rights reserved.
// SPDX-License-Identifier: MIT

package reconcile

import (
	"context"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gregm711/aider/internal/editformat"
	"github.com/gregm711/aider/pkg/types"
)

func failedResult(path string) types.FileResult {
	return types.FileResult{
		FilePath: path,
		Results: []types.ApplyResult{{
			FilePath: path,
			Stage:    types.StageNone,
			Failure: &types.ApplyFailure{
				Kind:             types.FailNotFound,
				FilePath:         path,
				Snippet:          "retries: 4\n",
				ClosestMatch:     "retries: 3",
				Similarity:       0.9,
				ClosestLineStart: 2,
				ClosestLineEnd:   2,
			},
		}},
	}
}

func committedResult(path string) types.FileResult {
	return types.FileResult{
		FilePath:  path,
		Committed: true,
		Results: []types.ApplyResult{{
			FilePath:   path,
			Stage:      types.StageExact,
			Similarity: 1.0,
		}},
	}
}

func TestFormatFailures_IncludesDiagnosticParts(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "config.yaml",
		[]byte("timeout: 30\nretries: 3\nverbose: true\n"), 0o644))

	out := FormatFailures(nil, []types.FileResult{failedResult("config.yaml")}, 1,
		FormatConfig{FS: fs})

	assert.Contains(t, out, "## Failed Edits in config.yaml")
	assert.Contains(t, out, "retries: 4")
	assert.Contains(t, out, "similarity 0.90")
	assert.Contains(t, out, "-retries: 4")
	assert.Contains(t, out, "+retries: 3")
	assert.Contains(t, out, "   2 │ retries: 3")
	assert.Contains(t, out, ">    2")
}

func TestFormatFailures_ParseFailures(t *testing.T) {
	failures := []*editformat.ParseFailure{{
		Kind:    editformat.TruncatedInput,
		Line:    12,
		RawText: "<<<<<<< SEARCH\nincomplete",
		Message: "response ended before ======= divider",
	}}

	out := FormatFailures(failures, nil, 1, FormatConfig{FS: afero.NewMemMapFs()})

	assert.Contains(t, out, "## Malformed Edit Blocks")
	assert.Contains(t, out, "Line 12: truncated_input")
	assert.Contains(t, out, "response ended before ======= divider")
}

func TestFormatFailures_RolledBackSiblingsRequireFullResend(t *testing.T) {
	fr := failedResult("f.txt")
	fr.Results = append([]types.ApplyResult{{
		FilePath: "f.txt",
		Stage:    types.StageExact,
	}}, fr.Results...)

	out := FormatFailures(nil, []types.FileResult{fr}, 1, FormatConfig{FS: afero.NewMemMapFs()})

	assert.Contains(t, out, "No edits were applied to this file")
	assert.Contains(t, out, "Resend every edit for this file")
	assert.NotContains(t, out, "already applied")
}

func TestFormatFailures_NoResendNoteWhenFileCommitted(t *testing.T) {
	// Under a partial-commit policy the matching edits were kept, so the
	// model must not resend them.
	fr := failedResult("f.txt")
	fr.Committed = true
	fr.Results = append([]types.ApplyResult{{
		FilePath: "f.txt",
		Stage:    types.StageExact,
	}}, fr.Results...)

	out := FormatFailures(nil, []types.FileResult{fr}, 1, FormatConfig{FS: afero.NewMemMapFs()})

	assert.NotContains(t, out, "No edits were applied to this file")
}

func TestFormatFailures_GuidanceEscalates(t *testing.T) {
	fr := []types.FileResult{failedResult("f.txt")}
	cfg := FormatConfig{FS: afero.NewMemMapFs()}

	first := FormatFailures(nil, fr, 1, cfg)
	second := FormatFailures(nil, fr, 2, cfg)
	third := FormatFailures(nil, fr, 3, cfg)

	assert.NotEqual(t, first[:60], second[:60])
	assert.NotEqual(t, second[:60], third[:60])
	assert.Contains(t, second, "character for character")
	assert.Contains(t, third, "Abandon the failing search text")
}

func TestRun_SucceedsImmediately(t *testing.T) {
	called := false
	result, err := Run(context.Background(), Config{},
		[]types.FileResult{committedResult("a.txt")}, nil,
		func(ctx context.Context, prompt string) ([]types.FileResult, []*editformat.ParseFailure, error) {
			called = true
			return nil, nil, nil
		})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.False(t, called, "retryFn must not run when the first outcome is clean")
	assert.Equal(t, 0, result.Attempts)
	assert.Equal(t, []string{"a.txt"}, result.CommittedFiles)
}

func TestRun_RetriesUntilSuccess(t *testing.T) {
	attempts := 0
	result, err := Run(context.Background(), Config{},
		[]types.FileResult{failedResult("f.txt")}, nil,
		func(ctx context.Context, prompt string) ([]types.FileResult, []*editformat.ParseFailure, error) {
			attempts++
			assert.Contains(t, prompt, "Failed Edits in f.txt")
			if attempts < 2 {
				return []types.FileResult{failedResult("f.txt")}, nil, nil
			}
			return []types.FileResult{committedResult("f.txt")}, nil, nil
		})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 2, result.Attempts)
	assert.Equal(t, []string{"f.txt"}, result.CommittedFiles)
}

func TestRun_ExhaustsRetries(t *testing.T) {
	result, err := Run(context.Background(), Config{MaxRetries: 2},
		[]types.FileResult{failedResult("f.txt")}, nil,
		func(ctx context.Context, prompt string) ([]types.FileResult, []*editformat.ParseFailure, error) {
			return []types.FileResult{failedResult("f.txt")}, nil, nil
		})

	require.Error(t, err)
	assert.False(t, result.Success)
	assert.Equal(t, 2, result.Attempts)
	assert.Contains(t, result.LastDiagnostic, "Failed Edits in f.txt")
}

func TestRun_RetryErrorAborts(t *testing.T) {
	boom := errors.New("model unavailable")
	result, err := Run(context.Background(), Config{},
		[]types.FileResult{failedResult("f.txt")}, nil,
		func(ctx context.Context, prompt string) ([]types.FileResult, []*editformat.ParseFailure, error) {
			return nil, nil, boom
		})

	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.False(t, result.Success)
	assert.Equal(t, 1, result.Attempts)
}

func TestRun_AccumulatesCommittedAcrossAttempts(t *testing.T) {
	attempts := 0
	result, err := Run(context.Background(), Config{},
		[]types.FileResult{committedResult("a.txt"), failedResult("b.txt")}, nil,
		func(ctx context.Context, prompt string) ([]types.FileResult, []*editformat.ParseFailure, error) {
			attempts++
			return []types.FileResult{committedResult("b.txt")}, nil, nil
		})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, attempts)
	assert.Equal(t, []string{"a.txt", "b.txt"}, result.CommittedFiles)
}

func TestRun_ParseFailuresTriggerRetry(t *testing.T) {
	parseFailures := []*editformat.ParseFailure{{
		Kind:    editformat.MalformedBlock,
		Line:    1,
		Message: "missing file path before <<<<<<< SEARCH marker",
	}}

	attempts := 0
	result, err := Run(context.Background(), Config{}, nil, parseFailures,
		func(ctx context.Context, prompt string) ([]types.FileResult, []*editformat.ParseFailure, error) {
			attempts++
			assert.Contains(t, prompt, "Malformed Edit Blocks")
			return []types.FileResult{committedResult("f.txt")}, nil, nil
		})

	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 1, attempts)
	_ = result
}

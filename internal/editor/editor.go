// Copyright (c) 2026 The aider authors. All rights reserved.
// SPDX-License-Identifier: MIT

// Package editor applies parsed edit directives to files. Directives for a
// file run sequentially against an in-memory working copy; the copy is
// committed to storage only when every directive for that file succeeded,
// so a failed attempt leaves the on-disk file byte-identical to before.
// Disjoint files apply concurrently.
package editor

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/sourcegraph/conc/pool"
	"github.com/spf13/afero"

	"github.com/gregm711/aider/pkg/types"
)

// Applier applies a batch of directives from one model response.
type Applier struct {
	// FS is the target filesystem. Defaults to the OS filesystem.
	FS afero.Fs

	// WorkDir is prepended to directive paths. Empty means paths are used
	// as-is.
	WorkDir string

	// FuzzyThreshold is the minimum similarity score for fuzzy matching.
	// Defaults to 0.8 if zero.
	FuzzyThreshold float64

	// AmbiguityMargin is the minimum lead the best fuzzy candidate must
	// hold over the runner-up. Defaults to 0.05 if zero.
	AmbiguityMargin float64

	// OffsetWindow bounds how far a diff hunk may drift from its declared
	// position, in lines. Defaults to 3 if zero.
	OffsetWindow int

	// PartialCommit, when true, commits a file even if some of its
	// directives failed; failed directives are skipped. When false a
	// single failure leaves the file untouched.
	PartialCommit bool

	// AllowCreate permits directives to create files that do not exist:
	// a WholeFile directive, or a SearchReplace with an empty search.
	AllowCreate bool
}

// Apply runs every directive, grouped by target file. Files apply
// concurrently; directives within a file apply in response order against
// the progressively mutated working copy. Cancellation is honored between
// directives, never within one; a cancelled file is left uncommitted.
// Results are returned in first-seen path order. The error is non-nil only
// for cancellation.
func (a *Applier) Apply(ctx context.Context, directives []types.Directive) ([]types.FileResult, error) {
	var paths []string
	byPath := make(map[string][]types.Directive)
	for _, d := range directives {
		p := d.TargetPath()
		if _, seen := byPath[p]; !seen {
			paths = append(paths, p)
		}
		byPath[p] = append(byPath[p], d)
	}

	results := make([]types.FileResult, len(paths))
	p := pool.New().WithContext(ctx)
	for i, path := range paths {
		p.Go(func(ctx context.Context) error {
			results[i] = a.applyFile(ctx, path, byPath[path])
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return results, err
	}
	return results, ctx.Err()
}

// applyFile applies one file's directives against an in-memory working
// copy and commits atomically on success.
func (a *Applier) applyFile(ctx context.Context, relPath string, dirs []types.Directive) types.FileResult {
	fr := types.FileResult{FilePath: relPath}
	absPath := a.absPath(relPath)

	working := ""
	exists := false
	data, err := afero.ReadFile(a.fs(), absPath)
	switch {
	case err == nil:
		working = string(data)
		exists = true
	case os.IsNotExist(err):
		// Creation may still be allowed below.
	default:
		for range dirs {
			fr.Results = append(fr.Results, failureResult(&types.ApplyFailure{
				Kind:     types.FailIO,
				FilePath: relPath,
				Err:      err,
			}))
		}
		return fr
	}

	failed := false
	applied := 0
	for _, d := range dirs {
		if ctx.Err() != nil {
			return fr
		}
		if failed && !a.PartialCommit {
			fr.Results = append(fr.Results, failureResult(&types.ApplyFailure{
				Kind:     types.FailConflictingEdits,
				FilePath: relPath,
			}))
			continue
		}

		next, result := a.applyDirective(working, exists, relPath, d)
		fr.Results = append(fr.Results, result)
		if result.OK() {
			working = next
			exists = true
			applied++
		} else {
			failed = true
		}
	}

	commit := applied > 0 && (!failed || a.PartialCommit)
	if !commit {
		return fr
	}
	if err := a.atomicWrite(absPath, []byte(working)); err != nil {
		for i := range fr.Results {
			if fr.Results[i].OK() {
				fr.Results[i] = failureResult(&types.ApplyFailure{
					Kind:     types.FailIO,
					FilePath: relPath,
					Err:      err,
				})
			}
		}
		return fr
	}
	fr.Committed = true
	return fr
}

// applyDirective applies a single directive to the working copy, returning
// the new content and the per-directive result.
func (a *Applier) applyDirective(working string, exists bool, relPath string, d types.Directive) (string, types.ApplyResult) {
	switch d := d.(type) {
	case types.WholeFile:
		if !exists && !a.AllowCreate {
			return working, failureResult(&types.ApplyFailure{
				Kind:     types.FailIO,
				FilePath: relPath,
				Err:      fmt.Errorf("%s does not exist and file creation is disabled", relPath),
			})
		}
		return d.Content, types.ApplyResult{
			FilePath:   relPath,
			Stage:      types.StageExact,
			Similarity: 1.0,
		}

	case types.SearchReplace:
		if !exists {
			if d.Search == "" && a.AllowCreate {
				return d.Replace, types.ApplyResult{
					FilePath:   relPath,
					Stage:      types.StageExact,
					Similarity: 1.0,
				}
			}
			return working, failureResult(&types.ApplyFailure{
				Kind:     types.FailIO,
				FilePath: relPath,
				Err:      fmt.Errorf("%s does not exist", relPath),
			})
		}
		if d.Search == "" {
			return working + d.Replace, types.ApplyResult{
				FilePath:   relPath,
				Stage:      types.StageExact,
				Similarity: 1.0,
			}
		}

		m, ambiguous := findMatch(working, d.Search, a.fuzzyThreshold(), a.ambiguityMargin())
		if m == nil {
			closest, sim, lineStart, lineEnd := findClosestMatch(working, d.Search)
			return working, failureResult(&types.ApplyFailure{
				Kind:             types.FailNotFound,
				FilePath:         relPath,
				Snippet:          d.Search,
				ClosestMatch:     closest,
				Similarity:       sim,
				ClosestLineStart: lineStart,
				ClosestLineEnd:   lineEnd,
			})
		}
		if ambiguous {
			return working, failureResult(&types.ApplyFailure{
				Kind:       types.FailAmbiguous,
				FilePath:   relPath,
				Snippet:    d.Search,
				Similarity: m.similarity,
			})
		}
		return working[:m.start] + d.Replace + working[m.end:], types.ApplyResult{
			FilePath:   relPath,
			Stage:      m.stage,
			Similarity: m.similarity,
		}

	case types.UnifiedDiff:
		if !exists {
			return working, failureResult(&types.ApplyFailure{
				Kind:     types.FailIO,
				FilePath: relPath,
				Err:      fmt.Errorf("%s does not exist", relPath),
			})
		}
		next, failure := applyHunks(working, d.Hunks, a.OffsetWindow)
		if failure != nil {
			failure.FilePath = relPath
			return working, failureResult(failure)
		}
		return next, types.ApplyResult{
			FilePath:   relPath,
			Stage:      types.StageExact,
			Similarity: 1.0,
		}
	}

	return working, failureResult(&types.ApplyFailure{
		Kind:     types.FailIO,
		FilePath: relPath,
		Err:      fmt.Errorf("unhandled directive kind %T", d),
	})
}

func failureResult(f *types.ApplyFailure) types.ApplyResult {
	return types.ApplyResult{
		FilePath: f.FilePath,
		Stage:    types.StageNone,
		Failure:  f,
	}
}

func (a *Applier) fs() afero.Fs {
	if a.FS != nil {
		return a.FS
	}
	return afero.NewOsFs()
}

func (a *Applier) absPath(relPath string) string {
	if a.WorkDir == "" {
		return relPath
	}
	return filepath.Join(a.WorkDir, relPath)
}

func (a *Applier) fuzzyThreshold() float64 {
	if a.FuzzyThreshold > 0 {
		return a.FuzzyThreshold
	}
	return defaultFuzzyThreshold
}

func (a *Applier) ambiguityMargin() float64 {
	if a.AmbiguityMargin > 0 {
		return a.AmbiguityMargin
	}
	return defaultAmbiguityMargin
}

// atomicWrite writes data to a temp file in the same directory, then
// renames it to the target path. Partial writes never reach the target.
func (a *Applier) atomicWrite(path string, data []byte) error {
	fs := a.fs()
	dir := filepath.Dir(path)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	// Preserve original file permissions if the file exists.
	perm := os.FileMode(0o644)
	if info, err := fs.Stat(path); err == nil {
		perm = info.Mode().Perm()
	}

	f, err := afero.TempFile(fs, dir, ".aider-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpPath := f.Name()

	if _, err := f.Write(data); err != nil {
		f.Close()
		fs.Remove(tmpPath)
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		fs.Remove(tmpPath)
		return fmt.Errorf("closing temp file: %w", err)
	}

	if err := fs.Chmod(tmpPath, perm); err != nil {
		fs.Remove(tmpPath)
		return fmt.Errorf("setting permissions: %w", err)
	}

	if err := fs.Rename(tmpPath, path); err != nil {
		fs.Remove(tmpPath)
		return fmt.Errorf("renaming temp file: %w", err)
	}

	return nil
}

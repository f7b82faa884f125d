// Copyright (c) 2026 The aider authors. All rights reserved.
// SPDX-License-Identifier: MIT

package repomap

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/gregm711/aider/internal/discover"
	"github.com/gregm711/aider/pkg/types"
)

const (
	defaultTokenRatio  = 0.25
	defaultTokenBudget = 4096
	maxLineLength      = 100
)

// RenderConfig configures context rendering.
type RenderConfig struct {
	TokenBudget float64 // Maximum tokens for the whole context (default 4096)
	TokenRatio  float64 // Tokens per character (default 0.25)
	WorkDir     string  // Repository root for reading signatures
}

// RenderContext assembles the context text: mandatory files verbatim first,
// then the largest prefix of ranked tags whose signature summary fits the
// remaining budget. The tag count is found by binary search; rendered size
// grows monotonically with the count, so the result is the maximum fitting
// prefix and is deterministic for fixed inputs and budget.
func RenderContext(ranked []types.RankedTag, mandatory []types.FileContent, totalFiles, totalTags int, cfg RenderConfig) *types.ContextResult {
	budget := cfg.TokenBudget
	if budget == 0 {
		budget = defaultTokenBudget
	}
	ratio := cfg.TokenRatio
	if ratio == 0 {
		ratio = defaultTokenRatio
	}

	var buf strings.Builder
	for _, f := range mandatory {
		buf.WriteString(fmt.Sprintf("### %s\n\n", f.Path))
		buf.WriteString(f.Content)
		if !strings.HasSuffix(f.Content, "\n") {
			buf.WriteByte('\n')
		}
		buf.WriteByte('\n')
	}
	mandatoryText := buf.String()

	remaining := budget - float64(len(mandatoryText))*ratio

	// Don't summarize tags for files already included in full.
	included := make(map[string]bool, len(mandatory))
	for _, f := range mandatory {
		included[f.Path] = true
	}
	var candidates []types.RankedTag
	for _, rt := range ranked {
		if !included[rt.FilePath] {
			candidates = append(candidates, rt)
		}
	}

	// Binary search the largest tag count whose rendering fits.
	lo, hi := 0, len(candidates)
	for lo < hi {
		mid := (lo + hi + 1) / 2
		text := renderTags(candidates[:mid], cfg.WorkDir)
		if float64(len(text))*ratio <= remaining {
			lo = mid
		} else {
			hi = mid - 1
		}
	}

	summary := renderTags(candidates[:lo], cfg.WorkDir)
	text := mandatoryText + summary

	fileSet := make(map[string]bool)
	for _, rt := range candidates[:lo] {
		fileSet[rt.FilePath] = true
	}

	return &types.ContextResult{
		Text:       text,
		FileCount:  len(fileSet),
		TotalFiles: totalFiles,
		TagCount:   lo,
		TotalTags:  totalTags,
		TokensUsed: float64(len(text)) * ratio,
	}
}

// renderTags renders signature-only summaries for the given tags, grouped
// by file. Files are ordered by their best rank, then by path, so repeated
// calls over the same prefix produce stable, diffable output.
func renderTags(tags []types.RankedTag, workDir string) string {
	if len(tags) == 0 {
		return ""
	}

	type fileGroup struct {
		path string
		best float64
		tags []types.RankedTag
	}
	groups := make(map[string]*fileGroup)
	for _, rt := range tags {
		grp, ok := groups[rt.FilePath]
		if !ok {
			grp = &fileGroup{path: rt.FilePath, best: rt.Score}
			groups[rt.FilePath] = grp
		}
		grp.tags = append(grp.tags, rt)
	}

	ordered := make([]*fileGroup, 0, len(groups))
	for _, grp := range groups {
		ordered = append(ordered, grp)
	}
	sort.Slice(ordered, func(i, j int) bool {
		if ordered[i].best != ordered[j].best {
			return ordered[i].best > ordered[j].best
		}
		return ordered[i].path < ordered[j].path
	})

	var buf strings.Builder
	for _, grp := range ordered {
		buf.WriteString(grp.path + "\n")
		sort.SliceStable(grp.tags, func(i, j int) bool {
			return grp.tags[i].Line < grp.tags[j].Line
		})
		for _, rt := range grp.tags {
			sig := rt.Signature
			if sig == "" && workDir != "" {
				sig = readSignature(workDir, rt.FilePath, rt.Line)
			}
			if sig == "" {
				sig = rt.Name
			}
			line := "  " + sig
			if len(line) > maxLineLength {
				line = line[:maxLineLength-3] + "..."
			}
			buf.WriteString(line + "\n")
		}
		buf.WriteByte('\n')
	}

	return buf.String()
}

// BuildContext runs the full pipeline for one request: discover, extract,
// build the graph, rank, and render. The graph and scores are recomputed
// from current file state; only the extractor's content-hash cache persists
// across calls.
func BuildContext(ctx context.Context, ext *Extractor, workDir string, seeds types.SeedSet, mandatoryPaths []string, budget float64, rankCfg RankConfig) (*types.ContextResult, error) {
	files, err := discover.Files(workDir)
	if err != nil {
		return nil, fmt.Errorf("discovering files: %w", err)
	}

	tags, stats, err := ext.ExtractAll(ctx, workDir, files)
	if err != nil {
		return nil, fmt.Errorf("extracting tags: %w", err)
	}

	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	graph := BuildGraph(paths, tags)
	ranked := Rank(graph, tags, seeds, rankCfg)

	for i := range ranked {
		if ranked[i].Signature == "" {
			ranked[i].Signature = readSignature(workDir, ranked[i].FilePath, ranked[i].Line)
		}
	}

	var mandatory []types.FileContent
	for _, p := range mandatoryPaths {
		content, err := os.ReadFile(filepath.Join(workDir, p))
		if err != nil {
			return nil, fmt.Errorf("reading mandatory file %s: %w", p, err)
		}
		mandatory = append(mandatory, types.FileContent{Path: p, Content: string(content)})
	}

	totalDefs := 0
	for _, t := range tags {
		if t.Kind == types.Definition {
			totalDefs++
		}
	}

	result := RenderContext(ranked, mandatory, stats.FilesProcessed+stats.FilesSkipped, totalDefs, RenderConfig{
		TokenBudget: budget,
		WorkDir:     workDir,
	})
	return result, nil
}

// readSignature reads the source line at the given line number.
func readSignature(workDir, relPath string, line int) string {
	content, err := os.ReadFile(filepath.Join(workDir, relPath))
	if err != nil {
		return ""
	}
	return getSignature(content, line)
}

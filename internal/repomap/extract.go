// Copyright (c) 2026 The aider authors. All rights reserved.
// SPDX-License-Identifier: MIT

// Package repomap builds a ranked, token-budgeted summary of a repository
// for model context.
package repomap

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/sourcegraph/conc/pool"

	"github.com/gregm711/aider/internal/discover"
	"github.com/gregm711/aider/internal/lang"
	"github.com/gregm711/aider/pkg/types"
)

const defaultCacheSize = 4096

// ExtractStats tracks extraction statistics for one pass.
type ExtractStats struct {
	FilesProcessed int
	FilesSkipped   int
	CacheHits      int
	ParseCount     int
}

// Extractor extracts tags from source files using the grammar plugins.
//
// The only cross-request state is the content-hash cache: an explicit,
// bounded side table keyed by SHA-256 of file content. A changed file
// misses the cache by construction, so no stale tags survive an edit.
type Extractor struct {
	mu    sync.Mutex
	cache *lru.Cache[string, []types.Tag]
	stats ExtractStats
}

// NewExtractor creates an extractor with a bounded tag cache. cacheSize <= 0
// selects the default.
func NewExtractor(cacheSize int) *Extractor {
	if cacheSize <= 0 {
		cacheSize = defaultCacheSize
	}
	cache, _ := lru.New[string, []types.Tag](cacheSize)
	return &Extractor{cache: cache}
}

// Invalidate drops every cached tag sequence.
func (e *Extractor) Invalidate() {
	e.cache.Purge()
}

// ExtractAll extracts tags from every file in the editable set. Files are
// processed in parallel; each file produces an immutable tag sequence, and
// results are merged in the input's file order so the combined sequence is
// deterministic. Cancellation is honored between files, never mid-file.
func (e *Extractor) ExtractAll(ctx context.Context, workDir string, files []discover.File) ([]types.Tag, ExtractStats, error) {
	e.mu.Lock()
	e.stats = ExtractStats{}
	e.mu.Unlock()

	perFile := make([][]types.Tag, len(files))

	p := pool.New().WithContext(ctx).WithCancelOnError()
	for i, f := range files {
		if f.Dialect == "" {
			e.bump(func(s *ExtractStats) { s.FilesSkipped++ })
			continue
		}
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			tags, err := e.extractFile(ctx, workDir, f.Path)
			if err != nil {
				// Unreadable files degrade to zero tags.
				e.bump(func(s *ExtractStats) { s.FilesSkipped++ })
				return nil
			}
			perFile[i] = tags
			e.bump(func(s *ExtractStats) { s.FilesProcessed++ })
			return nil
		})
	}

	err := p.Wait()

	var all []types.Tag
	for _, tags := range perFile {
		all = append(all, tags...)
	}

	e.mu.Lock()
	stats := e.stats
	e.mu.Unlock()

	return all, stats, err
}

// extractFile extracts tags from a single file, consulting the cache first.
func (e *Extractor) extractFile(ctx context.Context, workDir, relPath string) ([]types.Tag, error) {
	plugin := lang.ForPath(relPath)
	if plugin == nil {
		return nil, nil
	}

	content, err := os.ReadFile(filepath.Join(workDir, relPath))
	if err != nil {
		return nil, err
	}

	key := cacheKey(relPath, content)
	if tags, ok := e.cache.Get(key); ok {
		e.bump(func(s *ExtractStats) { s.CacheHits++ })
		return tags, nil
	}

	tags := plugin.Extract(ctx, content, relPath)

	e.bump(func(s *ExtractStats) { s.ParseCount++ })
	e.cache.Add(key, tags)

	return tags, nil
}

func (e *Extractor) bump(f func(*ExtractStats)) {
	e.mu.Lock()
	f(&e.stats)
	e.mu.Unlock()
}

// cacheKey derives the cache key from path and content hash. The path is
// included because tags embed their owning file.
func cacheKey(relPath string, content []byte) string {
	sum := sha256.Sum256(content)
	return relPath + ":" + hex.EncodeToString(sum[:])
}

// getSignature returns the trimmed source line of a tag for rendering.
func getSignature(content []byte, line int) string {
	lines := strings.Split(string(content), "\n")
	if line < 1 || line > len(lines) {
		return ""
	}
	sig := strings.TrimSpace(lines[line-1])
	if len(sig) > 100 {
		sig = sig[:97] + "..."
	}
	return sig
}

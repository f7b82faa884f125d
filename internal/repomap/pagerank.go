// Copyright (c) 2026 The aider authors. All rights reserved.
// SPDX-License-Identifier: MIT

package repomap

import (
	"math"
	"sort"

	"github.com/gregm711/aider/pkg/types"
)

const (
	defaultDamping       = 0.85
	defaultMaxIter       = 100
	defaultEpsilon       = 1e-6
	defaultMentionWeight = 100.0
	defaultIdentWeight   = 50.0
	defaultRecentWeight  = 25.0
	defaultRecentDecay   = 0.5
)

// RankConfig configures the personalized rank propagation. Every seed
// category carries a named weight rather than a hard-coded ratio.
type RankConfig struct {
	Damping       float64 // Damping factor (default 0.85)
	MaxIterations int     // Maximum iterations (default 100)
	Epsilon       float64 // Convergence threshold on total score movement (default 1e-6)

	MentionWeight float64 // Extra seed mass for files the user named (default 100)
	IdentWeight   float64 // Extra seed mass for files defining mentioned identifiers (default 50)
	RecentWeight  float64 // Extra seed mass for recently edited files (default 25)
	RecentDecay   float64 // Multiplier applied per commit of distance from HEAD (default 0.5)
}

func (cfg *RankConfig) applyDefaults() {
	if cfg.Damping == 0 {
		cfg.Damping = defaultDamping
	}
	if cfg.MaxIterations == 0 {
		cfg.MaxIterations = defaultMaxIter
	}
	if cfg.Epsilon == 0 {
		cfg.Epsilon = defaultEpsilon
	}
	if cfg.MentionWeight == 0 {
		cfg.MentionWeight = defaultMentionWeight
	}
	if cfg.IdentWeight == 0 {
		cfg.IdentWeight = defaultIdentWeight
	}
	if cfg.RecentWeight == 0 {
		cfg.RecentWeight = defaultRecentWeight
	}
	if cfg.RecentDecay == 0 {
		cfg.RecentDecay = defaultRecentDecay
	}
}

// Rank runs personalized rank propagation on the graph and returns the
// definition tags ordered by relevance. The scores over all nodes form a
// probability distribution (they sum to 1 within tolerance) after
// convergence. Ties break by seed membership, then lexical file-path order,
// then in-file definition order, so rankings are reproducible across runs
// on identical input.
func Rank(g *Graph, tags []types.Tag, seeds types.SeedSet, cfg RankConfig) []types.RankedTag {
	cfg.applyDefaults()

	n := len(g.Files)
	if n == 0 {
		return nil
	}

	seed, seeded := seedVector(g, seeds, cfg)

	// Adjacency: outgoing edges with total out-weight per node.
	type outEdge struct {
		to     int
		weight float64
	}
	outEdges := make([][]outEdge, n)
	outWeight := make([]float64, n)
	for _, e := range g.Edges {
		outEdges[e.From] = append(outEdges[e.From], outEdge{to: e.To, weight: e.Weight})
		outWeight[e.From] += e.Weight
	}

	score := make([]float64, n)
	for i := range score {
		score[i] = 1.0 / float64(n)
	}

	next := make([]float64, n)
	for iter := 0; iter < cfg.MaxIterations; iter++ {
		for i := range next {
			next[i] = (1.0 - cfg.Damping) * seed[i]
		}

		for i := 0; i < n; i++ {
			if outWeight[i] == 0 {
				// Dangling node: redistribute its mass via the seed
				// vector so the distribution keeps summing to 1.
				for j := range next {
					next[j] += cfg.Damping * score[i] * seed[j]
				}
				continue
			}
			for _, e := range outEdges[i] {
				next[e.to] += cfg.Damping * score[i] * (e.weight / outWeight[i])
			}
		}

		movement := 0.0
		for i := range score {
			movement += math.Abs(next[i] - score[i])
		}
		copy(score, next)
		if movement < cfg.Epsilon {
			break
		}
	}

	// Attach file scores to definition tags.
	var ranked []types.RankedTag
	for _, t := range tags {
		if t.Kind != types.Definition {
			continue
		}
		id := g.NodeID(t.FilePath)
		if id < 0 {
			continue
		}
		ranked = append(ranked, types.RankedTag{
			FilePath: t.FilePath,
			Name:     t.Name,
			Line:     t.Line,
			Score:    score[id],
			Seeded:   seeded[id],
		})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		if a.Seeded != b.Seeded {
			return a.Seeded
		}
		if a.FilePath != b.FilePath {
			return a.FilePath < b.FilePath
		}
		return a.Line < b.Line
	})

	return ranked
}

// seedVector builds the normalized personalization vector. Every node gets
// a floor of 1 so disconnected files retain some mass; seed categories add
// their configured weights on top.
func seedVector(g *Graph, seeds types.SeedSet, cfg RankConfig) (vec []float64, seeded []bool) {
	n := len(g.Files)
	vec = make([]float64, n)
	seeded = make([]bool, n)
	for i := range vec {
		vec[i] = 1.0
	}

	mark := func(id int, w float64) {
		if id < 0 || w <= 0 {
			return
		}
		vec[id] += w
		seeded[id] = true
	}

	for _, f := range seeds.MentionedFiles {
		mark(g.NodeID(f), cfg.MentionWeight)
	}
	for _, ident := range seeds.MentionedIdents {
		for _, id := range g.DefiningFiles(ident) {
			mark(id, cfg.IdentWeight)
		}
	}
	for _, rf := range seeds.RecentFiles {
		decay := math.Pow(cfg.RecentDecay, float64(rf.Distance))
		mark(g.NodeID(rf.Path), cfg.RecentWeight*decay)
	}

	total := 0.0
	for _, v := range vec {
		total += v
	}
	for i := range vec {
		vec[i] /= total
	}

	return vec, seeded
}

// Copyright (c) 2026 The aider authors. All rights reserved.
// SPDX-License-Identifier: MIT

package repomap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gregm711/aider/pkg/types"
)

// chainTags builds a small repo where main.go references both libraries but
// util.go is referenced by everything.
func chainTags() ([]string, []types.Tag) {
	files := []string{"main.go", "lib.go", "util.go"}
	tags := []types.Tag{
		{Name: "main", FilePath: "main.go", Line: 1, Kind: types.Definition},
		{Name: "DoWork", FilePath: "lib.go", Line: 1, Kind: types.Definition},
		{Name: "Format", FilePath: "util.go", Line: 1, Kind: types.Definition},
		{Name: "DoWork", FilePath: "main.go", Line: 3, Kind: types.Reference},
		{Name: "Format", FilePath: "main.go", Line: 4, Kind: types.Reference},
		{Name: "Format", FilePath: "lib.go", Line: 3, Kind: types.Reference},
	}
	return files, tags
}

func fileScores(g *Graph, ranked []types.RankedTag) map[string]float64 {
	scores := make(map[string]float64)
	for _, rt := range ranked {
		scores[rt.FilePath] = rt.Score
	}
	return scores
}

func TestRank_ScoresSumToOne(t *testing.T) {
	files, tags := chainTags()
	g := BuildGraph(files, tags)
	ranked := Rank(g, tags, types.SeedSet{}, RankConfig{})
	require.NotEmpty(t, ranked)

	// Sum per-file (each file has one definition here).
	sum := 0.0
	for _, s := range fileScores(g, ranked) {
		sum += s
	}
	assert.InDelta(t, 1.0, sum, 1e-6, "scores must form a probability distribution")
}

func TestRank_ReferencedFileRanksHigher(t *testing.T) {
	files, tags := chainTags()
	g := BuildGraph(files, tags)
	ranked := Rank(g, tags, types.SeedSet{}, RankConfig{})

	scores := fileScores(g, ranked)
	assert.Greater(t, scores["util.go"], scores["main.go"],
		"the most-referenced file should outrank the unreferenced entry point")
}

func TestRank_MentionedFileGainsMass(t *testing.T) {
	files, tags := chainTags()
	g := BuildGraph(files, tags)

	baseline := fileScores(g, Rank(g, tags, types.SeedSet{}, RankConfig{}))
	seeded := fileScores(g, Rank(g, tags, types.SeedSet{
		MentionedFiles: []string{"lib.go"},
	}, RankConfig{}))

	assert.Greater(t, seeded["lib.go"], baseline["lib.go"])
}

func TestRank_IdentSeedBoostsDefiningFile(t *testing.T) {
	files, tags := chainTags()
	g := BuildGraph(files, tags)

	baseline := fileScores(g, Rank(g, tags, types.SeedSet{}, RankConfig{}))
	seeded := fileScores(g, Rank(g, tags, types.SeedSet{
		MentionedIdents: []string{"DoWork"},
	}, RankConfig{}))

	assert.Greater(t, seeded["lib.go"], baseline["lib.go"],
		"mentioning an identifier should boost the file defining it")
}

func TestRank_RecentDecayOrdersRecentFiles(t *testing.T) {
	files := []string{"old.go", "new.go", "other.go"}
	tags := []types.Tag{
		{Name: "Old", FilePath: "old.go", Line: 1, Kind: types.Definition},
		{Name: "New", FilePath: "new.go", Line: 1, Kind: types.Definition},
		{Name: "Other", FilePath: "other.go", Line: 1, Kind: types.Definition},
	}
	g := BuildGraph(files, tags)

	scores := fileScores(g, Rank(g, tags, types.SeedSet{
		RecentFiles: []types.RecentFile{
			{Path: "new.go", Distance: 0},
			{Path: "old.go", Distance: 3},
		},
	}, RankConfig{}))

	assert.Greater(t, scores["new.go"], scores["old.go"],
		"seed mass must decay with commit distance")
	assert.Greater(t, scores["old.go"], scores["other.go"])
}

func TestRank_Deterministic(t *testing.T) {
	files, tags := chainTags()
	g := BuildGraph(files, tags)
	seeds := types.SeedSet{MentionedFiles: []string{"main.go"}}

	first := Rank(g, tags, seeds, RankConfig{})
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Rank(g, tags, seeds, RankConfig{}))
	}
}

func TestRank_TieBreakBySeedThenPathThenLine(t *testing.T) {
	// Three isolated files: identical propagation scores, so ordering is
	// decided purely by the tie-break chain.
	files := []string{"b.go", "a.go", "c.go"}
	tags := []types.Tag{
		{Name: "B", FilePath: "b.go", Line: 1, Kind: types.Definition},
		{Name: "A1", FilePath: "a.go", Line: 1, Kind: types.Definition},
		{Name: "A2", FilePath: "a.go", Line: 5, Kind: types.Definition},
		{Name: "C", FilePath: "c.go", Line: 1, Kind: types.Definition},
	}
	g := BuildGraph(files, tags)

	ranked := Rank(g, tags, types.SeedSet{}, RankConfig{})
	require.Len(t, ranked, 4)
	assert.Equal(t, "a.go", ranked[0].FilePath)
	assert.Equal(t, 1, ranked[0].Line)
	assert.Equal(t, 5, ranked[1].Line)
	assert.Equal(t, "b.go", ranked[2].FilePath)
	assert.Equal(t, "c.go", ranked[3].FilePath)
}

func TestRank_EmptyGraph(t *testing.T) {
	g := BuildGraph(nil, nil)
	assert.Nil(t, Rank(g, nil, types.SeedSet{}, RankConfig{}))
}

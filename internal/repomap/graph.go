// Copyright (c) 2026 The aider authors. All rights reserved.
// SPDX-License-Identifier: MIT

package repomap

import (
	"sort"

	"github.com/gregm711/aider/pkg/types"
)

// Edge is a directed, weighted edge from a referencing file to a defining
// file. From and To index Graph.Files.
type Edge struct {
	From      int
	To        int
	Reference string  // Symbol name that created the edge
	Weight    float64
}

// Graph is the dependency graph over the editable set. Nodes are files held
// in an arena and addressed by integer index; files with zero tags are
// isolated nodes so they can still be explicitly included by the user.
type Graph struct {
	Files []string // Node arena; index is the node id
	Edges []Edge

	index map[string]int   // file path → node id
	defs  map[string][]int // symbol name → defining node ids
}

// NodeID returns the node index for a file path, or -1.
func (g *Graph) NodeID(path string) int {
	id, ok := g.index[path]
	if !ok {
		return -1
	}
	return id
}

// DefiningFiles returns the node ids that define the given symbol name.
func (g *Graph) DefiningFiles(name string) []int {
	return g.defs[name]
}

// BuildGraph constructs the dependency graph from the editable set and its
// extracted tags. Edge weight from A to B sums, over symbols defined in B
// and referenced in A, reference_count scaled by the inverse of the symbol's
// global definition frequency; when a name has several definers the
// attributed weight is split across them in proportion to each file's share
// of the definitions. Rare, specific names therefore carry more signal than
// common ones.
func BuildGraph(files []string, tags []types.Tag) *Graph {
	g := &Graph{
		Files: make([]string, 0, len(files)),
		index: make(map[string]int, len(files)),
		defs:  make(map[string][]int),
	}

	for _, f := range files {
		if _, ok := g.index[f]; ok {
			continue
		}
		g.index[f] = len(g.Files)
		g.Files = append(g.Files, f)
	}
	// Tags may mention files outside the provided list (e.g. mandatory
	// includes); add them as nodes too.
	for _, t := range tags {
		if _, ok := g.index[t.FilePath]; !ok {
			g.index[t.FilePath] = len(g.Files)
			g.Files = append(g.Files, t.FilePath)
		}
	}

	// Definition frequency per name, and per (name, file).
	defFreq := make(map[string]int)
	defsInFile := make(map[string]map[int]int)
	for _, t := range tags {
		if t.Kind != types.Definition {
			continue
		}
		id := g.index[t.FilePath]
		defFreq[t.Name]++
		if defsInFile[t.Name] == nil {
			defsInFile[t.Name] = make(map[int]int)
		}
		if defsInFile[t.Name][id] == 0 {
			g.defs[t.Name] = append(g.defs[t.Name], id)
		}
		defsInFile[t.Name][id]++
	}

	// Reference counts per (from, name).
	type refKey struct {
		from int
		name string
	}
	refCounts := make(map[refKey]int)
	for _, t := range tags {
		if t.Kind != types.Reference {
			continue
		}
		if defFreq[t.Name] == 0 {
			continue
		}
		refCounts[refKey{from: g.index[t.FilePath], name: t.Name}]++
	}

	// Materialize edges, splitting each reference's weight across definers.
	type edgeKey struct {
		from, to int
		name     string
	}
	weights := make(map[edgeKey]float64)
	for key, count := range refCounts {
		freq := float64(defFreq[key.name])
		attributed := float64(count) / freq
		for to, n := range defsInFile[key.name] {
			if to == key.from {
				continue // Skip self-references.
			}
			share := float64(n) / freq
			weights[edgeKey{from: key.from, to: to, name: key.name}] += attributed * share
		}
	}

	for key, w := range weights {
		g.Edges = append(g.Edges, Edge{From: key.from, To: key.to, Reference: key.name, Weight: w})
	}
	sort.Slice(g.Edges, func(i, j int) bool {
		a, b := g.Edges[i], g.Edges[j]
		if a.From != b.From {
			return a.From < b.From
		}
		if a.To != b.To {
			return a.To < b.To
		}
		return a.Reference < b.Reference
	})

	return g
}

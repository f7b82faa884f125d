// Copyright (c) 2026 The aider authors. All rights reserved.
// SPDX-License-Identifier: MIT

// Package lang provides per-dialect grammar plugins that turn one file's
// text into definition and reference tags using tree-sitter.
package lang

import (
	"context"
	"path/filepath"
	"sort"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
	"github.com/smacker/go-tree-sitter/yaml"

	"github.com/gregm711/aider/pkg/types"
)

// Plugin holds the tree-sitter language and query patterns for one dialect.
type Plugin struct {
	Dialect string
	lang    *sitter.Language
	defQ    string // Tree-sitter query for definitions (capture @name)
	refQ    string // Tree-sitter query for references (capture @ref)
}

// registry maps file extensions to their Plugin.
var registry = map[string]*Plugin{
	".go": {
		Dialect: "go",
		lang:    golang.GetLanguage(),
		defQ: `
			(function_declaration name: (identifier) @name)
			(method_declaration name: (field_identifier) @name)
			(type_declaration (type_spec name: (type_identifier) @name))
		`,
		refQ: `
			(identifier) @ref
			(field_identifier) @ref
			(type_identifier) @ref
		`,
	},
	".py": {
		Dialect: "python",
		lang:    python.GetLanguage(),
		defQ: `
			(function_definition name: (identifier) @name)
			(class_definition name: (identifier) @name)
		`,
		refQ: `
			(identifier) @ref
		`,
	},
	".js": {
		Dialect: "javascript",
		lang:    javascript.GetLanguage(),
		defQ: `
			(function_declaration name: (identifier) @name)
			(class_declaration name: (identifier) @name)
			(variable_declarator name: (identifier) @name)
		`,
		refQ: `
			(identifier) @ref
		`,
	},
	".ts": {
		Dialect: "typescript",
		lang:    typescript.GetLanguage(),
		defQ: `
			(function_declaration name: (identifier) @name)
			(class_declaration name: (identifier) @name)
			(variable_declarator name: (identifier) @name)
			(interface_declaration name: (type_identifier) @name)
		`,
		refQ: `
			(identifier) @ref
			(type_identifier) @ref
		`,
	},
	".yaml": {
		Dialect: "yaml",
		lang:    yaml.GetLanguage(),
		defQ: `
			(block_mapping_pair key: (flow_node) @name)
		`,
	},
	".yml": {
		Dialect: "yaml",
		lang:    yaml.GetLanguage(),
		defQ: `
			(block_mapping_pair key: (flow_node) @name)
		`,
	},
}

// ForPath returns the plugin for the file's extension, or nil when the
// dialect is unsupported. Unsupported dialects are not an error: the file
// simply yields no tags and remains eligible for verbatim inclusion.
func ForPath(path string) *Plugin {
	return registry[strings.ToLower(filepath.Ext(path))]
}

// Dialects returns the supported dialect names, sorted.
func Dialects() []string {
	seen := make(map[string]bool)
	var out []string
	for _, p := range registry {
		if !seen[p.Dialect] {
			seen[p.Dialect] = true
			out = append(out, p.Dialect)
		}
	}
	sort.Strings(out)
	return out
}

// Extract parses content and returns its tags in stable document order:
// definitions and references sorted by byte offset, definitions first on
// ties. Identical content always yields an identical tag sequence.
func (p *Plugin) Extract(ctx context.Context, content []byte, relPath string) []types.Tag {
	root, err := sitter.ParseCtx(ctx, content, p.lang)
	if err != nil || root == nil {
		return nil
	}

	var tags []types.Tag

	if p.defQ != "" {
		for _, c := range runQuery(p.defQ, p.lang, root, content) {
			tags = append(tags, types.Tag{
				Name:      c.name,
				FilePath:  relPath,
				Line:      c.line,
				StartByte: c.start,
				EndByte:   c.end,
				Kind:      types.Definition,
			})
		}
	}

	if p.refQ != "" {
		// References that coincide with a definition capture are the
		// definition itself; drop them.
		defAt := make(map[int]bool, len(tags))
		for _, t := range tags {
			defAt[t.StartByte] = true
		}
		for _, c := range runQuery(p.refQ, p.lang, root, content) {
			if defAt[c.start] {
				continue
			}
			tags = append(tags, types.Tag{
				Name:      c.name,
				FilePath:  relPath,
				Line:      c.line,
				StartByte: c.start,
				EndByte:   c.end,
				Kind:      types.Reference,
			})
		}
	}

	sort.SliceStable(tags, func(i, j int) bool {
		if tags[i].StartByte != tags[j].StartByte {
			return tags[i].StartByte < tags[j].StartByte
		}
		return tags[i].Kind < tags[j].Kind
	})

	return tags
}

// capture holds one captured symbol name and its location.
type capture struct {
	name  string
	line  int
	start int
	end   int
}

// runQuery executes a tree-sitter query and returns captured names with
// locations, deduplicated by byte offset.
func runQuery(pattern string, lang *sitter.Language, root *sitter.Node, content []byte) []capture {
	q, err := sitter.NewQuery([]byte(pattern), lang)
	if err != nil {
		return nil
	}

	qc := sitter.NewQueryCursor()
	defer qc.Close()
	qc.Exec(q, root)

	seen := make(map[int]bool)
	var results []capture

	for {
		m, ok := qc.NextMatch()
		if !ok {
			break
		}
		for _, c := range m.Captures {
			name := c.Node.Content(content)
			start := int(c.Node.StartByte())
			if name == "" || seen[start] {
				continue
			}
			seen[start] = true
			results = append(results, capture{
				name:  name,
				line:  int(c.Node.StartPoint().Row) + 1,
				start: start,
				end:   int(c.Node.EndByte()),
			})
		}
	}

	return results
}

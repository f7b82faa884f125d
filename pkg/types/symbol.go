// Copyright (c) 2026 The aider authors. All rights reserved.
// SPDX-License-Identifier: MIT

// Package types defines shared types used across aider packages.
package types

// TagKind distinguishes symbol definitions from references.
type TagKind int

const (
	Definition TagKind = iota
	Reference
)

// String returns the human-readable name of the tag kind.
func (k TagKind) String() string {
	switch k {
	case Definition:
		return "definition"
	case Reference:
		return "reference"
	default:
		return "unknown"
	}
}

// Tag represents a named definition or reference extracted from a source
// file. Tags are immutable once produced; the extractor rebuilds them from
// scratch for each request.
type Tag struct {
	Name      string  // Symbol name
	FilePath  string  // Source file path (relative to repo root)
	Line      int     // Line number (1-based)
	StartByte int     // Byte offset of the symbol in the file
	EndByte   int     // Byte offset one past the symbol
	Kind      TagKind // Definition or reference
}

// RankedTag is a definition tag with its rank score after propagation.
type RankedTag struct {
	FilePath  string
	Name      string
	Line      int
	Signature string  // Source line of the definition, for rendering
	Score     float64 // Rank score of the owning file
	Seeded    bool    // Owning file carried seed mass
}

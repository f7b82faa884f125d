// Copyright (c) 2026 The aider authors. All rights reserved.
// SPDX-License-Identifier: MIT

package types

// SeedSet carries the inputs that bias ranking toward the conversation's
// focus: files the user named, identifiers mentioned in recent turns, and
// files touched by recent commits (with their distance from HEAD).
type SeedSet struct {
	MentionedFiles  []string
	MentionedIdents []string
	RecentFiles     []RecentFile
}

// RecentFile is a file edited in a recent commit. Distance is the number of
// commits between that commit and HEAD (0 for HEAD itself).
type RecentFile struct {
	Path     string
	Distance int
}

// ContextResult holds the rendered repository context and its metadata.
type ContextResult struct {
	Text       string  // Rendered context text
	FileCount  int     // Files represented in the summary section
	TotalFiles int     // Total files in the editable set
	TagCount   int     // Definition tags included in the summary
	TotalTags  int     // Total definition tags extracted
	TokensUsed float64 // Estimated token count of the rendered text
}

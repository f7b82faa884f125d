// Copyright (c) 2026 The aider authors. All rights reserved.
// SPDX-License-Identifier: MIT

// Package git provides auto-commit, dirty file handling, undo, and
// recent-edit history for model-generated edits.
package git

import (
	"errors"
	"fmt"
	"strings"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/storer"

	"github.com/gregm711/aider/pkg/types"
)

const (
	coAuthorTrailer = "Co-Authored-By: aider <noreply@aider>"
	dirtyCommitMsg  = "aider: save uncommitted changes before edit"
)

// ErrNotAiderCommit is returned when undo targets a commit not made by aider.
var ErrNotAiderCommit = errors.New("not an aider commit")

// ErrDirtyWorkTree is returned when uncommitted changes exist and DirtyCommit is false.
var ErrDirtyWorkTree = errors.New("uncommitted changes exist")

// ErrNoGit is returned when the working directory is not a git repository.
var ErrNoGit = errors.New("not a git repository")

// Config configures git integration behavior.
type Config struct {
	WorkDir     string // Repository working directory
	AutoCommit  bool   // Create commits after edits (default true)
	DirtyCommit bool   // Commit dirty files before edits (default true)
}

// Repo wraps a go-git repository for the operations we need.
type Repo struct {
	repo *gogit.Repository
	cfg  Config
}

// Open opens an existing git repository at the configured work directory.
// Returns ErrNoGit if the directory is not a git repository.
func Open(cfg Config) (*Repo, error) {
	r, err := gogit.PlainOpen(cfg.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoGit, err)
	}
	return &Repo{repo: r, cfg: cfg}, nil
}

// IsDirty returns true if the working tree has uncommitted changes
// (either staged or unstaged).
func (r *Repo) IsDirty() (bool, error) {
	wt, err := r.repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("getting worktree: %w", err)
	}

	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("getting status: %w", err)
	}

	return !status.IsClean(), nil
}

// IsAiderCommit checks whether the HEAD commit was made by aider by
// looking for the Co-Authored-By trailer.
func (r *Repo) IsAiderCommit() (bool, error) {
	head, err := r.repo.Head()
	if err != nil {
		return false, fmt.Errorf("getting HEAD: %w", err)
	}

	commit, err := r.repo.CommitObject(head.Hash())
	if err != nil {
		return false, fmt.Errorf("getting commit: %w", err)
	}

	return strings.Contains(commit.Message, coAuthorTrailer), nil
}

// RecentlyEdited walks the commit log from HEAD and returns the files
// touched by the most recent maxCommits commits, each with its distance
// from HEAD (0 for files in the HEAD commit). A file keeps the smallest
// distance at which it appears. Results are ordered by distance, then by
// path within a commit.
func (r *Repo) RecentlyEdited(maxCommits int) ([]types.RecentFile, error) {
	iter, err := r.repo.Log(&gogit.LogOptions{})
	if err != nil {
		return nil, fmt.Errorf("reading log: %w", err)
	}
	defer iter.Close()

	var recent []types.RecentFile
	seen := make(map[string]bool)

	distance := 0
	err = iter.ForEach(func(c *object.Commit) error {
		if distance >= maxCommits {
			return storer.ErrStop
		}
		stats, err := c.Stats()
		if err != nil {
			// Stats are unavailable for some merge commits; skip them.
			distance++
			return nil
		}
		for _, s := range stats {
			if seen[s.Name] {
				continue
			}
			seen[s.Name] = true
			recent = append(recent, types.RecentFile{Path: s.Name, Distance: distance})
		}
		distance++
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking log: %w", err)
	}
	return recent, nil
}

// Copyright (c) 2026 The aider authors. All rights reserved.
// SPDX-License-Identifier: MIT

// Package discover finds the editable set of files in a repository.
package discover

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	ignore "github.com/sabhiram/go-gitignore"

	"github.com/gregm711/aider/internal/lang"
)

// maxFileSize caps files included in the editable set. Larger files are
// almost always generated artifacts.
const maxFileSize = 1 << 20

// File is one member of the editable set.
type File struct {
	Path    string // Relative to repo root, slash-separated
	Dialect string // Empty when no grammar plugin supports the file
}

var skipDirs = map[string]struct{}{
	".git":         {},
	".hg":          {},
	".svn":         {},
	"vendor":       {},
	"node_modules": {},
	"__pycache__":  {},
	"venv":         {},
	".venv":        {},
	"dist":         {},
	"build":        {},
}

// Files walks root and returns the editable set, honoring .gitignore at the
// repository root. Files in unsupported dialects are still returned (with an
// empty Dialect) so they can be explicitly included by the user. The result
// is sorted by path.
func Files(root string) ([]File, error) {
	gi := loadGitignore(root)

	var results []File

	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil // Skip files we cannot stat.
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil || rel == "." {
			return nil
		}
		rel = filepath.ToSlash(rel)
		name := d.Name()

		if d.IsDir() {
			if _, skip := skipDirs[name]; skip || strings.HasPrefix(name, ".") {
				return filepath.SkipDir
			}
			if gi != nil && gi.MatchesPath(rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if strings.HasPrefix(name, ".") {
			return nil
		}
		if d.Type()&os.ModeSymlink != 0 {
			return nil
		}
		if gi != nil && gi.MatchesPath(rel) {
			return nil
		}
		if info, err := d.Info(); err != nil || info.Size() > maxFileSize {
			return nil
		}

		f := File{Path: rel}
		if p := lang.ForPath(rel); p != nil {
			f.Dialect = p.Dialect
		}
		results = append(results, f)
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Path < results[j].Path })
	return results, nil
}

// loadGitignore compiles the root .gitignore, if present.
func loadGitignore(root string) *ignore.GitIgnore {
	gi, err := ignore.CompileIgnoreFile(filepath.Join(root, ".gitignore"))
	if err != nil {
		return nil
	}
	return gi
}

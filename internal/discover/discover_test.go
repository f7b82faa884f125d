// Copyright (c) 2026 The aider authors. All rights reserved.
// SPDX-License-Identifier: MIT

package discover

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, rel)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestFiles_DialectsAndOrder(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, "lib/util.py", "def f():\n    pass\n")
	writeFile(t, root, "README.md", "# readme\n")

	files, err := Files(root)
	require.NoError(t, err)
	require.Len(t, files, 3)

	// Sorted by path.
	assert.Equal(t, "README.md", files[0].Path)
	assert.Equal(t, "lib/util.py", files[1].Path)
	assert.Equal(t, "main.go", files[2].Path)

	assert.Equal(t, "", files[0].Dialect, "unsupported dialect stays in the set")
	assert.Equal(t, "python", files[1].Dialect)
	assert.Equal(t, "go", files[2].Dialect)
}

func TestFiles_SkipsVendorAndHidden(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, "vendor/dep/dep.go", "package dep\n")
	writeFile(t, root, "node_modules/pkg/index.js", "module.exports = {}\n")
	writeFile(t, root, ".hidden/secret.go", "package secret\n")
	writeFile(t, root, ".dotfile", "x\n")

	files, err := Files(root)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "main.go", files[0].Path)
}

func TestFiles_HonorsGitignore(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, ".gitignore", "generated.go\nout/\n")
	writeFile(t, root, "main.go", "package main\n")
	writeFile(t, root, "generated.go", "package main\n")
	writeFile(t, root, "out/result.go", "package out\n")

	files, err := Files(root)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "main.go", files[0].Path)
}

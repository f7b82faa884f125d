// Copyright (c) 2026 The aider authors. All rights reserved.
// SPDX-License-Identifier: MIT

package operator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/gregm711/aider/pkg/types"
)

// mockPrompter implements Prompter for testing.
type mockPrompter struct {
	responses []string // Responses to return in order.
	callCount int
	usage     types.TokenUsage
}

func (m *mockPrompter) Generate(_ context.Context, _ []brtypes.SystemContentBlock, _ []brtypes.Message) (string, error) {
	if m.callCount >= len(m.responses) {
		return "", fmt.Errorf("no more mock responses")
	}
	resp := m.responses[m.callCount]
	m.callCount++
	m.usage.InputTokens += 500
	m.usage.OutputTokens += 200
	return resp, nil
}

func (m *mockPrompter) Usage() types.TokenUsage {
	return m.usage
}

func TestRunner_SuccessfulEdit(t *testing.T) {
	dir := setupWorkDir(t, map[string]string{
		"main.go": "package main\n\nfunc main() {}\n",
	})

	mock := &mockPrompter{
		responses: []string{`Here is the edit:

main.go
<<<<<<< SEARCH
func main() {}
=======
func main() {}

func Hello() string { return "hello" }
>>>>>>> REPLACE
`},
	}

	runner := NewRunner(Deps{
		Prompter:       mock,
		WorkDir:        dir,
		MaxRetries:     1,
		MapTokenBudget: 1000,
		MentionedFiles: []string{"main.go"},
		NoGit:          true,
	})

	result, err := runner.Run(context.Background(), "add hello function")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, []string{"main.go"}, result.ModifiedFiles)
	assert.Equal(t, 700, result.TokensUsed.Total())

	content, err := os.ReadFile(filepath.Join(dir, "main.go"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "func Hello() string")
}

func TestRunner_ParseFailure(t *testing.T) {
	dir := setupWorkDir(t, map[string]string{
		"main.go": "package main\n\nfunc main() {}\n",
	})

	mock := &mockPrompter{
		responses: []string{"I'm not sure what to edit. Can you clarify?"},
	}

	runner := NewRunner(Deps{
		Prompter:       mock,
		WorkDir:        dir,
		MaxRetries:     1,
		MapTokenBudget: 1000,
		NoGit:          true,
	})

	_, err := runner.Run(context.Background(), "do something")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "parsing model response")
}

func TestRunner_RetryRecoversFromBadSearch(t *testing.T) {
	dir := setupWorkDir(t, map[string]string{
		"config.yaml": "retries: 3\ntimeout: 30\n",
	})

	// First response searches for text too far from anything in the file;
	// the second, sent after the diagnostic, matches it.
	mock := &mockPrompter{
		responses: []string{
			"config.yaml\n<<<<<<< SEARCH\nmax_connection_retries: 99\n=======\nretries: 5\n>>>>>>> REPLACE\n",
			"config.yaml\n<<<<<<< SEARCH\nretries: 3\n=======\nretries: 5\n>>>>>>> REPLACE\n",
		},
	}

	runner := NewRunner(Deps{
		Prompter:       mock,
		WorkDir:        dir,
		MaxRetries:     2,
		MapTokenBudget: 1000,
		NoGit:          true,
	})

	result, err := runner.Run(context.Background(), "bump retries")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Retries)
	assert.Equal(t, 2, mock.callCount)

	content, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Contains(t, string(content), "retries: 5")
}

func TestRunner_RetryResendsRolledBackSiblingEdits(t *testing.T) {
	dir := setupWorkDir(t, map[string]string{
		"notes.txt": "alpha\nbeta\ngamma\n",
	})

	// The first response carries two edits for the same file; the second
	// one fails, so the first is rolled back with it. The retry resends
	// both, and the final file must contain both changes.
	mock := &mockPrompter{
		responses: []string{
			"notes.txt\n<<<<<<< SEARCH\nalpha\n=======\nALPHA\n>>>>>>> REPLACE\n\n" +
				"notes.txt\n<<<<<<< SEARCH\nomega\n=======\nZZZ\n>>>>>>> REPLACE\n",
			"notes.txt\n<<<<<<< SEARCH\nalpha\n=======\nALPHA\n>>>>>>> REPLACE\n\n" +
				"notes.txt\n<<<<<<< SEARCH\ngamma\n=======\nZZZ\n>>>>>>> REPLACE\n",
		},
	}

	runner := NewRunner(Deps{
		Prompter:       mock,
		WorkDir:        dir,
		MaxRetries:     2,
		MapTokenBudget: 1000,
		NoGit:          true,
	})

	result, err := runner.Run(context.Background(), "rewrite notes")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Retries)

	content, err := os.ReadFile(filepath.Join(dir, "notes.txt"))
	require.NoError(t, err)
	assert.Equal(t, "ALPHA\nbeta\nZZZ\n", string(content))
}

func TestRunner_RetryAfterStrayMarkerResponse(t *testing.T) {
	dir := setupWorkDir(t, map[string]string{
		"config.yaml": "retries: 3\n",
	})

	// The first response contains only a stray marker; that is a parse
	// failure, not an aborted turn, so the diagnostic goes back to the
	// model and the second response applies.
	mock := &mockPrompter{
		responses: []string{
			"here is my edit\n>>>>>>> REPLACE\n",
			"config.yaml\n<<<<<<< SEARCH\nretries: 3\n=======\nretries: 5\n>>>>>>> REPLACE\n",
		},
	}

	runner := NewRunner(Deps{
		Prompter:       mock,
		WorkDir:        dir,
		MaxRetries:     2,
		MapTokenBudget: 1000,
		NoGit:          true,
	})

	result, err := runner.Run(context.Background(), "bump retries")
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, 1, result.Retries)

	content, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "retries: 5\n", string(content))
}

func TestRunner_RetriesExhausted(t *testing.T) {
	dir := setupWorkDir(t, map[string]string{
		"config.yaml": "retries: 3\n",
	})

	bad := "config.yaml\n<<<<<<< SEARCH\nmax_connection_retries: 99\n=======\nretries: 5\n>>>>>>> REPLACE\n"
	mock := &mockPrompter{responses: []string{bad, bad, bad}}

	runner := NewRunner(Deps{
		Prompter:       mock,
		WorkDir:        dir,
		MaxRetries:     2,
		MapTokenBudget: 1000,
		NoGit:          true,
	})

	result, err := runner.Run(context.Background(), "bump retries")
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.NotEmpty(t, result.Errors)
	assert.Empty(t, result.ModifiedFiles)

	content, err := os.ReadFile(filepath.Join(dir, "config.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "retries: 3\n", string(content))
}

func TestRunner_ContextCancellation(t *testing.T) {
	dir := setupWorkDir(t, map[string]string{
		"main.go": "package main\n\nfunc main() {}\n",
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	runner := NewRunner(Deps{
		Prompter:       &mockPrompter{responses: []string{"anything"}},
		WorkDir:        dir,
		MaxRetries:     1,
		MapTokenBudget: 1000,
		NoGit:          true,
	})

	_, err := runner.Run(ctx, "add feature")
	assert.Error(t, err)
}

func TestRunner_NoModelClient(t *testing.T) {
	dir := setupWorkDir(t, map[string]string{
		"main.go": "package main\n\nfunc main() {}\n",
	})

	runner := NewRunner(Deps{
		WorkDir:        dir,
		MaxRetries:     1,
		MapTokenBudget: 1000,
		NoGit:          true,
	})

	_, err := runner.Run(context.Background(), "add feature")
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "no model client")
}

func TestRunner_ParseDirectives(t *testing.T) {
	runner := NewRunner(Deps{WorkDir: t.TempDir(), NoGit: true})

	res, err := runner.ParseDirectives("a.go\n<<<<<<< SEARCH\nold\n=======\nnew\n>>>>>>> REPLACE\n")
	require.NoError(t, err)
	require.Len(t, res.Directives, 1)
	assert.Empty(t, res.Failures)
}

func TestRunner_ApplyDirectives(t *testing.T) {
	dir := setupWorkDir(t, map[string]string{
		"a.txt": "old\n",
	})
	runner := NewRunner(Deps{WorkDir: dir, NoGit: true})

	results, err := runner.ApplyDirectives(context.Background(), []types.Directive{
		types.SearchReplace{FilePath: "a.txt", Search: "old\n", Replace: "new\n"},
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].Committed)
}

func TestRunner_BuildContext(t *testing.T) {
	dir := setupWorkDir(t, map[string]string{
		"main.go": "package main\n\nfunc Greet() string { return \"hi\" }\n\nfunc main() { Greet() }\n",
		"util.go": "package main\n\nfunc Helper() int { return 1 }\n",
	})

	runner := NewRunner(Deps{
		WorkDir:        dir,
		MapTokenBudget: 1000,
		NoGit:          true,
	})

	text, err := runner.BuildContext(context.Background(), nil, nil, 0)
	require.NoError(t, err)
	assert.Contains(t, text, "main.go")
}

// setupWorkDir creates a temp dir with go.mod and the given files.
func setupWorkDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()

	goMod := "module testmod\n\ngo 1.25\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "go.mod"), []byte(goMod), 0o644))

	for name, content := range files {
		path := filepath.Join(dir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}

	return dir
}

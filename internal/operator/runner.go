// Copyright (c) 2026 The aider authors. All rights reserved.
// SPDX-License-Identifier: MIT

// Package operator implements the engine orchestrator, wiring all internal
// components to execute one edit turn: build context, prompt the model,
// parse directives, apply them, and reconcile failures.
package operator

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/gregm711/aider/internal/editformat"
	"github.com/gregm711/aider/internal/editor"
	gitpkg "github.com/gregm711/aider/internal/git"
	"github.com/gregm711/aider/internal/llm"
	"github.com/gregm711/aider/internal/reconcile"
	"github.com/gregm711/aider/internal/repomap"
	"github.com/gregm711/aider/pkg/types"
)

const (
	defaultMapTokenBudget = 2048
	defaultRecentCommits  = 10
	extractorCacheSize    = 4096
)

// Prompter abstracts model interactions so the orchestrator is testable.
type Prompter interface {
	Generate(ctx context.Context, system []brtypes.SystemContentBlock, messages []brtypes.Message) (string, error)
	Usage() types.TokenUsage
}

// RunResult holds the outcome of a Runner.Run invocation. This is the
// internal result type; pkg/operator converts it to the public Result.
type RunResult struct {
	ModifiedFiles []string
	Errors        []string
	TokensUsed    types.TokenUsage
	Retries       int
	Success       bool
}

// Deps holds injected dependencies for the runner.
type Deps struct {
	LLMClient *llm.Client // Real client; nil when Prompter is set.
	Prompter  Prompter    // Mock for testing; overrides LLMClient.

	WorkDir    string
	EditFormat types.EditFormat // Active edit format (default search-replace)

	MapTokenBudget int // Token budget for the repository context (default 2048)
	MaxRetries     int // Reconciliation retry limit

	FuzzyThreshold  float64 // Minimum similarity for fuzzy matches
	AmbiguityMargin float64 // Required lead over the fuzzy runner-up
	OffsetWindow    int     // Line drift tolerance for diff hunks
	PartialCommit   bool    // Commit files whose directives partially applied
	AllowCreate     bool    // Permit directives to create new files

	MentionedFiles  []string // User-named files: mandatory context + rank seeds
	MentionedIdents []string // Identifiers from the conversation: rank seeds
	RecentCommits   int      // Commits mined for recency seeds (default 10)

	NoGit bool
}

// Runner orchestrates one edit turn.
type Runner struct {
	deps Deps
	ext  *repomap.Extractor
}

// NewRunner creates a Runner with the given dependencies. The symbol
// extractor's content-hash cache persists across Run calls.
func NewRunner(deps Deps) *Runner {
	if deps.EditFormat == "" {
		deps.EditFormat = types.FormatSearchReplace
	}
	if deps.MapTokenBudget == 0 {
		deps.MapTokenBudget = defaultMapTokenBudget
	}
	if deps.RecentCommits == 0 {
		deps.RecentCommits = defaultRecentCommits
	}
	return &Runner{deps: deps, ext: repomap.NewExtractor(extractorCacheSize)}
}

// Run executes the full turn: handle git state, build the ranked context,
// prompt the model, parse directives, apply them, reconcile failures with
// bounded retries, and auto-commit on success.
func (r *Runner) Run(ctx context.Context, prompt string) (*RunResult, error) {
	result := &RunResult{}

	var gitRepo *gitpkg.Repo
	if !r.deps.NoGit {
		repo, err := gitpkg.Open(gitpkg.Config{
			WorkDir:     r.deps.WorkDir,
			AutoCommit:  true,
			DirtyCommit: true,
		})
		if err == nil {
			gitRepo = repo
			if err := repo.HandleDirty(); err != nil {
				return result, fmt.Errorf("handling dirty files: %w", err)
			}
		}
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	contextText, err := r.BuildContext(ctx, gitRepo, r.deps.MentionedFiles, r.deps.MapTokenBudget)
	if err != nil {
		return result, fmt.Errorf("building repository context: %w", err)
	}

	systemPrompt, err := llm.RenderSystemPrompt(llm.TemplateData{
		OS:         runtime.GOOS,
		EditFormat: r.deps.EditFormat,
	})
	if err != nil {
		return result, fmt.Errorf("rendering system prompt: %w", err)
	}

	files := r.readMentionedFiles()
	system, messages := llm.ConstructMessages(systemPrompt, contextText, files, prompt)

	responseText, err := r.generate(ctx, system, messages)
	if err != nil {
		return result, fmt.Errorf("model call failed: %w", err)
	}

	parseResult, err := editformat.Parse(responseText, r.deps.EditFormat)
	if err != nil {
		return result, fmt.Errorf("parsing model response: %w", err)
	}

	applier := r.applier()
	fileResults, err := applier.Apply(ctx, parseResult.Directives)
	if err != nil {
		return result, fmt.Errorf("applying directives: %w", err)
	}

	prevMessages := messages
	prevResponse := responseText

	loopResult, loopErr := reconcile.Run(ctx, reconcile.Config{
		MaxRetries: r.deps.MaxRetries,
		Format:     reconcile.FormatConfig{WorkDir: r.deps.WorkDir},
	}, fileResults, parseResult.Failures, func(ctx context.Context, diagnostic string) ([]types.FileResult, []*editformat.ParseFailure, error) {
		retryMessages := llm.ConstructRetryMessages(prevMessages, prevResponse, diagnostic)

		retryText, err := r.generate(ctx, system, retryMessages)
		if err != nil {
			return nil, nil, fmt.Errorf("retry model call: %w", err)
		}
		prevMessages = retryMessages
		prevResponse = retryText

		retryParse, err := editformat.Parse(retryText, r.deps.EditFormat)
		if err != nil {
			return nil, nil, fmt.Errorf("parsing retry response: %w", err)
		}

		retryResults, err := applier.Apply(ctx, retryParse.Directives)
		if err != nil {
			return nil, nil, err
		}
		return retryResults, retryParse.Failures, nil
	})

	if loopResult != nil {
		result.Retries = loopResult.Attempts
		result.ModifiedFiles = loopResult.CommittedFiles
		result.Success = loopResult.Success

		if !loopResult.Success {
			for _, fr := range loopResult.FileResults {
				for _, f := range fr.Failures() {
					result.Errors = append(result.Errors, f.Error())
				}
			}
		}
	}
	if loopErr != nil && len(result.Errors) == 0 {
		result.Errors = append(result.Errors, loopErr.Error())
	}

	result.TokensUsed = r.usage()

	if result.Success && gitRepo != nil && len(result.ModifiedFiles) > 0 {
		if err := gitRepo.AutoCommit(result.ModifiedFiles, prompt); err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("auto-commit failed: %v", err))
		}
	}

	return result, nil
}

// BuildContext builds a token-budgeted repository context seeded from the
// given files, configured identifiers, and recent commits.
func (r *Runner) BuildContext(ctx context.Context, gitRepo *gitpkg.Repo, seedFiles []string, tokenBudget int) (string, error) {
	if tokenBudget == 0 {
		tokenBudget = r.deps.MapTokenBudget
	}
	seeds := types.SeedSet{
		MentionedFiles:  seedFiles,
		MentionedIdents: r.deps.MentionedIdents,
	}
	if gitRepo != nil {
		recent, err := gitRepo.RecentlyEdited(r.deps.RecentCommits)
		if err == nil {
			seeds.RecentFiles = recent
		}
	}

	ctxResult, err := repomap.BuildContext(ctx, r.ext, r.deps.WorkDir, seeds,
		seedFiles, float64(tokenBudget), repomap.RankConfig{})
	if err != nil {
		return "", err
	}
	return ctxResult.Text, nil
}

// ParseDirectives parses one raw response into directives plus failures
// using the configured edit format.
func (r *Runner) ParseDirectives(raw string) (*editformat.ParseResult, error) {
	return editformat.Parse(raw, r.deps.EditFormat)
}

// ApplyDirectives applies directives under the configured matching and
// commit policy.
func (r *Runner) ApplyDirectives(ctx context.Context, directives []types.Directive) ([]types.FileResult, error) {
	return r.applier().Apply(ctx, directives)
}

// Invalidate drops the extractor's content-hash cache, forcing fresh
// symbol extraction on the next turn.
func (r *Runner) Invalidate() {
	r.ext.Invalidate()
}

func (r *Runner) applier() *editor.Applier {
	return &editor.Applier{
		WorkDir:         r.deps.WorkDir,
		FuzzyThreshold:  r.deps.FuzzyThreshold,
		AmbiguityMargin: r.deps.AmbiguityMargin,
		OffsetWindow:    r.deps.OffsetWindow,
		PartialCommit:   r.deps.PartialCommit,
		AllowCreate:     r.deps.AllowCreate,
	}
}

// generate sends a prompt to the model and returns the full response text.
func (r *Runner) generate(ctx context.Context, system []brtypes.SystemContentBlock, messages []brtypes.Message) (string, error) {
	if r.deps.Prompter != nil {
		return r.deps.Prompter.Generate(ctx, system, messages)
	}
	if r.deps.LLMClient == nil {
		return "", fmt.Errorf("no model client configured")
	}

	tokenCh, responseCh := r.deps.LLMClient.SendPrompt(ctx, system, messages)
	for range tokenCh {
	}

	resp := <-responseCh
	if resp == nil || resp.FullText == "" {
		return "", fmt.Errorf("no response from model")
	}
	return resp.FullText, nil
}

// usage returns cumulative token usage.
func (r *Runner) usage() types.TokenUsage {
	if r.deps.Prompter != nil {
		return r.deps.Prompter.Usage()
	}
	if r.deps.LLMClient != nil {
		return r.deps.LLMClient.CumulativeUsage()
	}
	return types.TokenUsage{}
}

// readMentionedFiles reads the user-named files for verbatim inclusion in
// the prompt. Missing files are skipped; the model may be creating them.
func (r *Runner) readMentionedFiles() []types.FileContent {
	var files []types.FileContent
	for _, p := range r.deps.MentionedFiles {
		content, err := os.ReadFile(filepath.Join(r.deps.WorkDir, p))
		if err != nil {
			continue
		}
		files = append(files, types.FileContent{Path: p, Content: string(content)})
	}
	return files
}

// Copyright (c) 2026 The aider authors. All rights reserved.
// SPDX-License-Identifier: MIT

package operator

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/gregm711/aider/internal/editformat"
	gitpkg "github.com/gregm711/aider/internal/git"
	"github.com/gregm711/aider/internal/llm"
	internalop "github.com/gregm711/aider/internal/operator"
	"github.com/gregm711/aider/pkg/types"
)

const (
	defaultMaxRetries     = 3
	defaultMapTokenBudget = 2048
	defaultMaxTokens      = 4096
	defaultModelTimeout   = 5 * time.Minute
)

// New validates the config, initializes the model client, and returns a
// ready-to-use Operator. It does not scan the repository; that happens in
// Run and BuildContext.
func New(cfg Config) (Operator, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	applyDefaults(&cfg)

	client, err := llm.NewClient(context.Background(), llm.ClientConfig{
		ModelID:   cfg.Model,
		Region:    cfg.Region,
		Timeout:   defaultModelTimeout,
		MaxTokens: cfg.MaxTokens,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelFailure, err)
	}

	runner := internalop.NewRunner(internalop.Deps{
		LLMClient:       client,
		WorkDir:         cfg.WorkDir,
		EditFormat:      cfg.EditFormat,
		MaxRetries:      cfg.MaxRetries,
		MapTokenBudget:  cfg.MapTokenBudget,
		FuzzyThreshold:  cfg.FuzzyThreshold,
		AmbiguityMargin: cfg.AmbiguityMargin,
		OffsetWindow:    cfg.OffsetWindow,
		PartialCommit:   cfg.PartialCommit,
		AllowCreate:     cfg.AllowCreate,
		MentionedFiles:  cfg.MentionedFiles,
		MentionedIdents: cfg.MentionedIdents,
		NoGit:           cfg.NoGit,
	})

	return &operatorAdapter{runner: runner, cfg: cfg}, nil
}

// operatorAdapter adapts internal/operator.Runner to the public interface.
type operatorAdapter struct {
	runner *internalop.Runner
	cfg    Config
}

func (a *operatorAdapter) Run(ctx context.Context, prompt string) (*Result, error) {
	ir, err := a.runner.Run(ctx, prompt)
	if ir == nil {
		return &Result{}, err
	}
	return &Result{
		ModifiedFiles: ir.ModifiedFiles,
		Errors:        ir.Errors,
		TokensUsed:    ir.TokensUsed,
		Retries:       ir.Retries,
		Success:       ir.Success,
	}, err
}

func (a *operatorAdapter) BuildContext(ctx context.Context, seedFiles []string, tokenBudget int) (string, error) {
	var gitRepo *gitpkg.Repo
	if !a.cfg.NoGit {
		if repo, err := gitpkg.Open(gitpkg.Config{WorkDir: a.cfg.WorkDir}); err == nil {
			gitRepo = repo
		}
	}
	return a.runner.BuildContext(ctx, gitRepo, seedFiles, tokenBudget)
}

func (a *operatorAdapter) ParseDirectives(raw string) ([]types.Directive, []ParseFailure, error) {
	res, err := a.runner.ParseDirectives(raw)
	if err != nil {
		var noEdits *editformat.NoEditsFoundError
		if errors.As(err, &noEdits) {
			return nil, nil, fmt.Errorf("%w: %v", ErrParseFailure, err)
		}
		return nil, nil, err
	}

	failures := make([]ParseFailure, 0, len(res.Failures))
	for _, f := range res.Failures {
		failures = append(failures, ParseFailure{
			Kind:    f.Kind.String(),
			Line:    f.Line,
			Message: f.Message,
		})
	}
	return res.Directives, failures, nil
}

func (a *operatorAdapter) ApplyDirectives(ctx context.Context, directives []types.Directive) ([]types.FileResult, error) {
	return a.runner.ApplyDirectives(ctx, directives)
}

// validateConfig checks that required fields are present.
func validateConfig(cfg Config) error {
	if cfg.WorkDir == "" {
		return fmt.Errorf("WorkDir is required")
	}
	if info, err := os.Stat(cfg.WorkDir); err != nil || !info.IsDir() {
		return fmt.Errorf("WorkDir %q does not exist or is not a directory", cfg.WorkDir)
	}
	if cfg.Model == "" {
		return fmt.Errorf("Model is required")
	}
	if cfg.Region == "" {
		return fmt.Errorf("Region is required")
	}
	if cfg.EditFormat != "" && !cfg.EditFormat.Valid() {
		return fmt.Errorf("unknown edit format %q", cfg.EditFormat)
	}
	return nil
}

// applyDefaults fills in zero-value fields with their defaults.
func applyDefaults(cfg *Config) {
	if cfg.EditFormat == "" {
		cfg.EditFormat = types.FormatSearchReplace
	}
	if cfg.MaxRetries == 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.MapTokenBudget == 0 {
		cfg.MapTokenBudget = defaultMapTokenBudget
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = defaultMaxTokens
	}
}

// Copyright (c) 2026 The aider authors. All rights reserved.
// SPDX-License-Identifier: MIT

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	gitpkg "github.com/gregm711/aider/internal/git"
	"github.com/gregm711/aider/pkg/operator"
	"github.com/gregm711/aider/pkg/types"
)

// newRunCmd creates the "run" command.
func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Execute an edit task",
		Long:  "Run takes a natural language prompt, sends it to the model with the ranked repository context, and applies the resulting edits.",
		RunE:  runOperator,
	}

	cmd.Flags().StringP("prompt", "p", "", "Edit task description (required)")
	cmd.Flags().StringSliceP("file", "f", nil, "File to include verbatim and seed the ranking (repeatable)")
	cmd.MarkFlagRequired("prompt")

	return cmd
}

// runOperator executes the edit task.
func runOperator(cmd *cobra.Command, args []string) error {
	prompt, _ := cmd.Flags().GetString("prompt")
	files, _ := cmd.Flags().GetStringSlice("file")

	op, err := operator.New(configFromViper(files))
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	result, err := op.Run(ctx, prompt)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if result != nil {
			printResult(result)
		}
		return err
	}

	printResult(result)
	return nil
}

// newContextCmd creates the "context" command, which prints the ranked
// repository context without calling the model.
func newContextCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "context",
		Short: "Print the ranked repository context",
		Long:  "Context builds the token-budgeted repository summary that run would send to the model, and prints it to stdout.",
		RunE: func(cmd *cobra.Command, args []string) error {
			files, _ := cmd.Flags().GetStringSlice("file")

			op, err := operator.New(configFromViper(files))
			if err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
			defer cancel()

			text, err := op.BuildContext(ctx, files, viper.GetInt("map-token-budget"))
			if err != nil {
				return fmt.Errorf("building context: %w", err)
			}

			fmt.Println(text)
			return nil
		},
	}

	cmd.Flags().StringSliceP("file", "f", nil, "File to seed the ranking (repeatable)")

	return cmd
}

// configFromViper assembles the operator config from flags, env, and the
// optional config file.
func configFromViper(files []string) operator.Config {
	return operator.Config{
		WorkDir:         viper.GetString("workdir"),
		Model:           viper.GetString("model"),
		Region:          viper.GetString("region"),
		EditFormat:      types.EditFormat(viper.GetString("edit-format")),
		MaxRetries:      viper.GetInt("max-retries"),
		MapTokenBudget:  viper.GetInt("map-token-budget"),
		MaxTokens:       viper.GetInt("max-tokens"),
		FuzzyThreshold:  viper.GetFloat64("fuzzy-threshold"),
		AmbiguityMargin: viper.GetFloat64("ambiguity-margin"),
		OffsetWindow:    viper.GetInt("offset-window"),
		PartialCommit:   viper.GetBool("partial-commit"),
		AllowCreate:     viper.GetBool("allow-create"),
		MentionedFiles:  files,
		NoGit:           viper.GetBool("no-git"),
	}
}

// printResult outputs the result as JSON to stdout.
func printResult(result *operator.Result) {
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling result: %v\n", err)
		return
	}
	fmt.Println(string(out))
}

// newUndoCmd creates the "undo" command.
func newUndoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "undo",
		Short: "Revert the last aider commit",
		Long:  "Undo performs a soft reset of the last commit if it was made by aider.",
		RunE: func(cmd *cobra.Command, args []string) error {
			workDir := viper.GetString("workdir")

			repo, err := gitpkg.Open(gitpkg.Config{WorkDir: workDir})
			if err != nil {
				return fmt.Errorf("opening repository: %w", err)
			}

			if err := repo.Undo(); err != nil {
				return fmt.Errorf("undo failed: %w", err)
			}

			fmt.Println("Successfully reverted last aider commit.")
			return nil
		},
	}
}

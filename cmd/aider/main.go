// Copyright (c) 2026 The aider authors. All rights reserved.
// SPDX-License-Identifier: MIT

// Command aider is a CLI for the aider edit engine.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "aider",
		Short: "Repository-aware edit engine",
		Long:  "aider takes a natural language prompt, selects the relevant repository context, generates code edits via a model, and applies them transactionally.",
	}

	// Global flags.
	rootCmd.PersistentFlags().String("workdir", ".", "Repository root directory")
	rootCmd.PersistentFlags().String("model", "", "Bedrock model ID")
	rootCmd.PersistentFlags().String("region", "", "AWS region for Bedrock")
	rootCmd.PersistentFlags().String("edit-format", "search-replace", "Edit directive format (search-replace, whole-file, udiff)")
	rootCmd.PersistentFlags().Int("max-retries", 3, "Maximum reconciliation iterations")
	rootCmd.PersistentFlags().Int("map-token-budget", 2048, "Token budget for repository context")
	rootCmd.PersistentFlags().Int("max-tokens", 4096, "Maximum tokens for model response")
	rootCmd.PersistentFlags().Float64("fuzzy-threshold", 0.8, "Minimum similarity for fuzzy edit matching")
	rootCmd.PersistentFlags().Float64("ambiguity-margin", 0.05, "Required lead over the fuzzy runner-up")
	rootCmd.PersistentFlags().Int("offset-window", 3, "Line drift tolerance for diff hunks")
	rootCmd.PersistentFlags().Bool("partial-commit", false, "Commit files whose directives partially applied")
	rootCmd.PersistentFlags().Bool("allow-create", false, "Permit edits to create new files")
	rootCmd.PersistentFlags().Bool("no-git", false, "Disable git operations")

	// Bind flags to viper.
	viper.BindPFlag("workdir", rootCmd.PersistentFlags().Lookup("workdir"))
	viper.BindPFlag("model", rootCmd.PersistentFlags().Lookup("model"))
	viper.BindPFlag("region", rootCmd.PersistentFlags().Lookup("region"))
	viper.BindPFlag("edit-format", rootCmd.PersistentFlags().Lookup("edit-format"))
	viper.BindPFlag("max-retries", rootCmd.PersistentFlags().Lookup("max-retries"))
	viper.BindPFlag("map-token-budget", rootCmd.PersistentFlags().Lookup("map-token-budget"))
	viper.BindPFlag("max-tokens", rootCmd.PersistentFlags().Lookup("max-tokens"))
	viper.BindPFlag("fuzzy-threshold", rootCmd.PersistentFlags().Lookup("fuzzy-threshold"))
	viper.BindPFlag("ambiguity-margin", rootCmd.PersistentFlags().Lookup("ambiguity-margin"))
	viper.BindPFlag("offset-window", rootCmd.PersistentFlags().Lookup("offset-window"))
	viper.BindPFlag("partial-commit", rootCmd.PersistentFlags().Lookup("partial-commit"))
	viper.BindPFlag("allow-create", rootCmd.PersistentFlags().Lookup("allow-create"))
	viper.BindPFlag("no-git", rootCmd.PersistentFlags().Lookup("no-git"))

	// Env vars: AIDER_MODEL, AIDER_REGION, etc.
	viper.SetEnvPrefix("AIDER")
	viper.AutomaticEnv()

	// Config file.
	viper.SetConfigName(".aider")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.ReadInConfig() // Ignore error; config file is optional.

	// Add commands.
	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newContextCmd())
	rootCmd.AddCommand(newUndoCmd())
	rootCmd.AddCommand(newVersionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// newVersionCmd creates the "version" command.
func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print aider version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("aider %s\n", version)
		},
	}
}

// Copyright (c) 2026 The aider authors. All rights reserved.
// SPDX-License-Identifier: MIT

// Package llm wraps the AWS Bedrock ConverseStream API for model access and
// builds the prompts the engine sends through it.
package llm

import (
	"bytes"
	"embed"
	"fmt"
	"strings"
	"text/template"

	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"github.com/gregm711/aider/pkg/types"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// TemplateData holds the values injected into the system prompt template.
type TemplateData struct {
	OS         string
	EditFormat types.EditFormat
}

// RenderSystemPrompt renders the system prompt template with the given data.
// The template selects edit-format instructions from the active format.
func RenderSystemPrompt(data TemplateData) (string, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/system.tmpl")
	if err != nil {
		return "", fmt.Errorf("parsing system template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("executing system template: %w", err)
	}

	return buf.String(), nil
}

// ConstructMessages builds the Bedrock API message array from system prompt,
// repository context, file contents, and user prompt.
//
// The message order is:
//  1. System message (separate field, not in messages array)
//  2. User message with the repository context summary
//  3. User message with file contents (paths and numbered lines)
//  4. User message with the coding task
func ConstructMessages(systemPrompt, repoContext string, files []types.FileContent, userPrompt string) ([]brtypes.SystemContentBlock, []brtypes.Message) {
	system := []brtypes.SystemContentBlock{
		&brtypes.SystemContentBlockMemberText{Value: systemPrompt},
	}

	var messages []brtypes.Message

	if repoContext != "" {
		messages = append(messages, userMessage(
			"## Repository Map\n\n"+repoContext,
		))
	}

	if len(files) > 0 {
		var buf strings.Builder
		buf.WriteString("## File Contents\n\n")
		for _, f := range files {
			buf.WriteString(formatFileContent(f))
			buf.WriteString("\n")
		}
		messages = append(messages, userMessage(buf.String()))
	}

	messages = append(messages, userMessage(userPrompt))

	return system, messages
}

// ConstructRetryMessages appends the assistant's previous response and the
// reconciliation diagnostic as a follow-up user message, continuing the
// conversation.
func ConstructRetryMessages(prevMessages []brtypes.Message, assistantResponse, diagnostic string) []brtypes.Message {
	messages := append(prevMessages, assistantMessage(assistantResponse))
	messages = append(messages, userMessage(diagnostic))
	return messages
}

// formatFileContent formats a file's content with path header and line numbers.
func formatFileContent(f types.FileContent) string {
	var buf strings.Builder
	buf.WriteString(fmt.Sprintf("### %s\n\n", f.Path))

	lines := strings.Split(f.Content, "\n")
	for i, line := range lines {
		buf.WriteString(fmt.Sprintf("%4d │ %s\n", i+1, line))
	}

	return buf.String()
}

// userMessage creates a user message with text content.
func userMessage(text string) brtypes.Message {
	return brtypes.Message{
		Role: brtypes.ConversationRoleUser,
		Content: []brtypes.ContentBlock{
			&brtypes.ContentBlockMemberText{Value: text},
		},
	}
}

// assistantMessage creates an assistant message with text content.
func assistantMessage(text string) brtypes.Message {
	return brtypes.Message{
		Role: brtypes.ConversationRoleAssistant,
		Content: []brtypes.ContentBlock{
			&brtypes.ContentBlockMemberText{Value: text},
		},
	}
}
